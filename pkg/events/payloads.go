package events

import (
	"github.com/draftforge/draftforge/pkg/booster"
	"github.com/draftforge/draftforge/pkg/catalog"
	"github.com/draftforge/draftforge/pkg/draft"
)

// AlreadyConnectedPayload carries the replacement ID minted when a user ID
// is already in use.
type AlreadyConnectedPayload struct {
	NewID string `json:"newID"`
}

// SessionOwnerPayload announces the current owner.
type SessionOwnerPayload struct {
	UserID   string `json:"userID"`
	UserName string `json:"userName,omitempty"`
}

// UserInfo is one row of a sessionUsers broadcast.
type UserInfo struct {
	UserID        string `json:"userID"`
	UserName      string `json:"userName"`
	Collection    int    `json:"collection"`
	UseCollection bool   `json:"useCollection"`
}

// UpdateUserPayload is a partial per-user state change.
type UpdateUserPayload struct {
	UserID            string                 `json:"userID"`
	UpdatedProperties map[string]interface{} `json:"updatedProperties"`
}

// ChatMessagePayload relays one chat line.
type ChatMessagePayload struct {
	Author string `json:"author"`
	Text   string `json:"text"`
}

// MessagePayload is a display notice (modal on the stock client).
type MessagePayload struct {
	Title             string `json:"title"`
	Text              string `json:"text,omitempty"`
	ShowConfirmButton bool   `json:"showConfirmButton"`
	Timer             int    `json:"timer,omitempty"`
}

// SetSessionPayload moves a client to another session.
type SetSessionPayload struct {
	SessionID string `json:"sessionID"`
}

// NextBoosterPayload hands a pack to a player for one pick.
type NextBoosterPayload struct {
	Booster       booster.Booster `json:"booster"`
	BoosterNumber int             `json:"boosterNumber"`
	PickNumber    int             `json:"pickNumber"`
}

// PickCardPayload is the inbound pick request. AckID correlates the reply;
// legacy clients send a bare integer which the gateway folds into
// SelectedCard.
type PickCardPayload struct {
	SelectedCard catalog.CardID   `json:"selectedCard"`
	BurnedCards  []catalog.CardID `json:"burnedCards,omitempty"`
	AckID        int              `json:"ackID,omitempty"`
}

// PickAckPayload is the reply to a pickCard: code 0 on success, 1 with an
// error text on any validation failure.
type PickAckPayload struct {
	AckID int    `json:"ackID,omitempty"`
	Code  int    `json:"code"`
	Error string `json:"error,omitempty"`
}

// TimerPayload broadcasts the pick countdown.
type TimerPayload struct {
	Countdown int `json:"countdown"`
}

// CardSelectionPayload delivers a sealed/jumpstart pool.
type CardSelectionPayload struct {
	Boosters []booster.Booster `json:"boosters"`
}

// RejoinDraftPayload resynchronizes a reconnecting player.
type RejoinDraftPayload struct {
	PickedCards     []catalog.CardID `json:"pickedCards"`
	Booster         booster.Booster  `json:"booster,omitempty"`
	BoosterNumber   int              `json:"boosterNumber"`
	PickNumber      int              `json:"pickNumber"`
	PickedThisRound bool             `json:"pickedThisRound"`
}

// WinstonSyncPayload mirrors the visible winston state: pile sizes and pool
// count, never pile contents.
type WinstonSyncPayload struct {
	PileSizes     [3]int `json:"pileSizes"`
	CurrentPile   int    `json:"currentPile"`
	PoolRemaining int    `json:"poolRemaining"`
	CurrentPlayer string `json:"currentPlayer"`
}

// RejoinWinstonPayload resynchronizes a reconnecting winston player.
type RejoinWinstonPayload struct {
	Sync        WinstonSyncPayload `json:"sync"`
	PickedCards []catalog.CardID   `json:"pickedCards"`
}

// OptionsDelta is the coalesced sessionOptions event: only changed keys are
// present.
type OptionsDelta struct {
	SetRestriction      []string               `json:"setRestriction,omitempty"`
	IsPublic            *bool                  `json:"isPublic,omitempty"`
	IgnoreCollections   *bool                  `json:"ignoreCollections,omitempty"`
	BoostersPerPlayer   *int                   `json:"boostersPerPlayer,omitempty"`
	Bots                *int                   `json:"bots,omitempty"`
	MaxPlayers          *int                   `json:"maxPlayers,omitempty"`
	MaxRarity           *string                `json:"maxRarity,omitempty"`
	ColorBalance        *bool                  `json:"colorBalance,omitempty"`
	MaxDuplicates       map[catalog.Rarity]int `json:"maxDuplicates,omitempty"`
	Foil                *bool                  `json:"foil,omitempty"`
	UseCustomCardList   *bool                  `json:"useCustomCardList,omitempty"`
	CustomCardListName  *string                `json:"customCardList,omitempty"`
	BurnedCardsPerRound *int                   `json:"burnedCardsPerRound,omitempty"`
	CustomBoosters      []string               `json:"customBoosters,omitempty"`
	DistributionMode    *string                `json:"distributionMode,omitempty"`
	DraftLogRecipients  *string                `json:"draftLogRecipients,omitempty"`
	OwnerIsPlayer       *bool                  `json:"ownerIsPlayer,omitempty"`
	PickTimer           *int                   `json:"pickTimer,omitempty"`
}

// CustomListPayload carries a cube list to parse and install.
type CustomListPayload struct {
	Name string `json:"name"`
	List string `json:"list"`
}

// UpdateBracketPayload reports one bracket match result.
type UpdateBracketPayload struct {
	MatchIndex int    `json:"matchIndex"`
	Wins       [2]int `json:"wins"`
}

// SeatInfo describes one virtual player in the startDraft announcement.
type SeatInfo struct {
	UserID   string `json:"userID,omitempty"`
	UserName string `json:"userName"`
	IsBot    bool   `json:"isBot,omitempty"`
}

// StartDraftPayload announces the seating a draft starts with.
type StartDraftPayload struct {
	Seats               []SeatInfo `json:"seats"`
	BurnedCardsPerRound int        `json:"burnedCardsPerRound,omitempty"`
}

// DisconnectedUserInfo is one row of a userDisconnected broadcast.
type DisconnectedUserInfo struct {
	UserID   string `json:"userID"`
	UserName string `json:"userName"`
	Replaced bool   `json:"replaced,omitempty"`
}

// DraftLogPayload carries a finished draft's log. Delayed asks the client to
// withhold other players' picks until the owner shares them.
type DraftLogPayload struct {
	Delayed bool       `json:"delayed,omitempty"`
	Log     *draft.Log `json:"log"`
}

// CurrentPlayerPayload names whose turn it is in a winston draft.
type CurrentPlayerPayload struct {
	UserID string `json:"userID"`
}

// PublicSessionInfo is one row of the publicSessions broadcast.
type PublicSessionInfo struct {
	ID         string `json:"id"`
	Players    int    `json:"players"`
	MaxPlayers int    `json:"maxPlayers"`
}

// Bool returns a pointer for delta fields.
func Bool(v bool) *bool { return &v }

// Int returns a pointer for delta fields.
func Int(v int) *int { return &v }

// String returns a pointer for delta fields.
func String(v string) *string { return &v }
