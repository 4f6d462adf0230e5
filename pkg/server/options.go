package server

import (
	"github.com/draftforge/draftforge/pkg/booster"
	"github.com/draftforge/draftforge/pkg/catalog"
)

// LogRecipients controls who receives the draft log when a draft ends.
type LogRecipients string

// Draft log recipient modes.
const (
	LogNone     LogRecipients = "none"
	LogOwner    LogRecipients = "owner"
	LogDelayed  LogRecipients = "delayed"
	LogEveryone LogRecipients = "everyone"
)

// Valid reports whether r is a known mode.
func (r LogRecipients) Valid() bool {
	switch r {
	case LogNone, LogOwner, LogDelayed, LogEveryone:
		return true
	}
	return false
}

// Options is the owner-mutable session configuration.
type Options struct {
	SetRestriction      []string
	IsPublic            bool
	IgnoreCollections   bool
	BoostersPerPlayer   int
	Bots                int
	MaxPlayers          int // 0 means unbounded
	MaxRarity           catalog.Rarity
	ColorBalance        bool
	MaxDuplicates       map[catalog.Rarity]int
	Foil                bool
	UseCustomCardList   bool
	CustomCardList      *booster.CustomList
	BurnedCardsPerRound int
	CustomBoosters      []string
	DistributionMode    booster.DistributionMode
	DraftLogRecipients  LogRecipients
	OwnerIsPlayer       bool
	PickTimer           int // seconds per pick at the start of a pack; 0 disables
}

// DefaultOptions matches what a freshly created session advertises.
func DefaultOptions() Options {
	return Options{
		BoostersPerPlayer:  3,
		MaxPlayers:         8,
		MaxRarity:          catalog.RarityMythic,
		ColorBalance:       true,
		CustomBoosters:     []string{"", "", ""},
		DistributionMode:   booster.DistributionRegular,
		DraftLogRecipients: LogEveryone,
		OwnerIsPlayer:      true,
		PickTimer:          75,
	}
}

// boosterOptions projects the session options onto the generator's knobs.
func (o Options) boosterOptions() booster.Options {
	return booster.Options{
		SetRestriction:    append([]string(nil), o.SetRestriction...),
		IgnoreCollections: o.IgnoreCollections,
		MaxRarity:         o.MaxRarity,
		ColorBalance:      o.ColorBalance,
		MaxDuplicates:     o.MaxDuplicates,
		Foil:              o.Foil,
		UseCustomCardList: o.UseCustomCardList,
		CustomCardList:    o.CustomCardList,
		CustomBoosters:    append([]string(nil), o.CustomBoosters...),
		DistributionMode:  o.DistributionMode,
	}
}
