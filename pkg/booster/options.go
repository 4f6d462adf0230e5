package booster

import "github.com/draftforge/draftforge/pkg/catalog"

// DistributionMode controls how generated packs are handed out.
type DistributionMode string

const (
	DistributionRegular               DistributionMode = "regular"
	DistributionShufflePlayerBoosters DistributionMode = "shufflePlayerBoosters"
	DistributionShuffleBoosterPool    DistributionMode = "shuffleBoosterPool"
)

// Valid reports whether m is a known distribution mode.
func (m DistributionMode) Valid() bool {
	switch m {
	case DistributionRegular, DistributionShufflePlayerBoosters, DistributionShuffleBoosterPool:
		return true
	}
	return false
}

// Options is the generation subset of the session configuration.
type Options struct {
	SetRestriction    []string
	IgnoreCollections bool
	MaxRarity         catalog.Rarity
	ColorBalance      bool
	MaxDuplicates     map[catalog.Rarity]int
	Foil              bool
	UseCustomCardList bool
	CustomCardList    *CustomList
	CustomBoosters    []string
	DistributionMode  DistributionMode
}

// DefaultMaxDuplicates mirrors paper print-run expectations.
func DefaultMaxDuplicates() map[catalog.Rarity]int {
	return map[catalog.Rarity]int{
		catalog.RarityCommon:   8,
		catalog.RarityUncommon: 4,
		catalog.RarityRare:     2,
		catalog.RarityMythic:   1,
	}
}

func (o Options) maxDuplicatesFor(r catalog.Rarity) int {
	if o.MaxDuplicates != nil {
		if n, ok := o.MaxDuplicates[r]; ok && n > 0 {
			return n
		}
	}
	return DefaultMaxDuplicates()[r]
}

// restrictedTo reports whether the options allow cards of the given set.
func (o Options) restrictedTo(set string) bool {
	if len(o.SetRestriction) == 0 {
		return true
	}
	for _, s := range o.SetRestriction {
		if s == set {
			return true
		}
	}
	return false
}

// targets is the per-pack rarity slot table.
type targets struct {
	rare     int
	uncommon int
	common   int
}

func targetsFor(maxRarity catalog.Rarity) targets {
	switch maxRarity {
	case catalog.RarityUncommon:
		return targets{rare: 0, uncommon: 3, common: 11}
	case catalog.RarityCommon:
		return targets{rare: 0, uncommon: 0, common: 14}
	default: // rare and mythic
		return targets{rare: 1, uncommon: 3, common: 10}
	}
}
