// Package events defines the closed sets of inbound and outbound event
// names, their payload shapes, and the wire envelope shared by the session
// core and the transport gateway.
package events

import "encoding/json"

// Type names one event on the wire.
type Type string

// Inbound events (client -> server).
const (
	InSetUserName            Type = "setUserName"
	InSetSession             Type = "setSession"
	InSetCollection          Type = "setCollection"
	InUseCollection          Type = "useCollection"
	InChatMessage            Type = "chatMessage"
	InStartDraft             Type = "startDraft"
	InPickCard               Type = "pickCard"
	InSetSessionOwner        Type = "setSessionOwner"
	InRemovePlayer           Type = "removePlayer"
	InBoostersPerPlayer      Type = "boostersPerPlayer"
	InBots                   Type = "bots"
	InSetRestriction         Type = "setRestriction"
	InCustomCardList         Type = "customCardList"
	InIgnoreCollections      Type = "ignoreCollections"
	InSetPickTimer           Type = "setPickTimer"
	InSetMaxPlayers          Type = "setMaxPlayers"
	InSetMaxRarity           Type = "setMaxRarity"
	InSetColorBalance        Type = "setColorBalance"
	InSetUseCustomCardList   Type = "setUseCustomCardList"
	InSetFoil                Type = "setFoil"
	InSetPublic              Type = "setPublic"
	InSetMaxDuplicates       Type = "setMaxDuplicates"
	InSetBurnedCardsPerRound Type = "setBurnedCardsPerRound"
	InSetCustomBoosters      Type = "setCustomBoosters"
	InSetDistributionMode    Type = "setDistributionMode"
	InSetDraftLogRecipients  Type = "setDraftLogRecipients"
	InSetOwnerIsPlayer       Type = "setOwnerIsPlayer"
	InReplaceDisconnected    Type = "replaceDisconnectedPlayers"
	InDistributeSealed       Type = "distributeSealed"
	InDistributeJumpstart    Type = "distributeJumpstart"
	InStartWinstonDraft      Type = "startWinstonDraft"
	InWinstonTakePile        Type = "winstonDraftTakePile"
	InWinstonSkipPile        Type = "winstonDraftSkipPile"
	InParseCustomCardList    Type = "parseCustomCardList"
	InLoadLocalCustomList    Type = "loadLocalCustomCardList"
	InSetSeating             Type = "setSeating"
	InRandomizeSeating       Type = "randomizeSeating"
	InGenerateBracket        Type = "generateBracket"
	InUpdateBracket          Type = "updateBracket"
)

// Outbound events (server -> client).
const (
	OutPublicSessions    Type = "publicSessions"
	OutAlreadyConnected  Type = "alreadyConnected"
	OutSessionOwner      Type = "sessionOwner"
	OutSessionUsers      Type = "sessionUsers"
	OutSessionOptions    Type = "sessionOptions"
	OutUpdateUser        Type = "updateUser"
	OutChatMessage       Type = "chatMessage"
	OutMessage           Type = "message"
	OutSetSession        Type = "setSession"
	OutSetCardSelection  Type = "setCardSelection"
	OutStartDraft        Type = "startDraft"
	OutNextBooster       Type = "nextBooster"
	OutEndDraft          Type = "endDraft"
	OutDraftLog          Type = "draftLog"
	OutPickAck           Type = "pickAck"
	OutTimer             Type = "timer"
	OutDisableTimer      Type = "disableTimer"
	OutUserDisconnected  Type = "userDisconnected"
	OutRejoinDraft       Type = "rejoinDraft"
	OutStartWinston      Type = "startWinstonDraft"
	OutWinstonSync       Type = "winstonDraftSync"
	OutWinstonNextRound  Type = "winstonDraftNextRound"
	OutWinstonRandomCard Type = "winstonDraftRandomCard"
	OutWinstonEnd        Type = "winstonDraftEnd"
	OutRejoinWinston     Type = "rejoinWinstonDraft"
	OutBracket           Type = "bracket"

	// Dedicated option echoes.
	OutBots              Type = "bots"
	OutBoostersPerPlayer Type = "boostersPerPlayer"
	OutSetRestriction    Type = "setRestriction"
	OutIsPublic          Type = "isPublic"
	OutSetPickTimer      Type = "setPickTimer"
	OutSetMaxPlayers     Type = "setMaxPlayers"
	OutSetMaxRarity      Type = "setMaxRarity"
	OutIgnoreCollections Type = "ignoreCollections"
)

// Critical reports whether an event must never be dropped by a congested
// write queue. Everything else may be shed for a slow consumer.
func Critical(t Type) bool {
	switch t {
	case OutStartDraft, OutNextBooster, OutEndDraft, OutRejoinDraft,
		OutSetCardSelection, OutAlreadyConnected, OutSetSession,
		OutStartWinston, OutWinstonEnd, OutRejoinWinston, OutPickAck:
		return true
	}
	return false
}

// Envelope is the wire form of one event: {"e": name, "p": payload}.
type Envelope struct {
	E Type            `json:"e"`
	P json.RawMessage `json:"p,omitempty"`
}

// Encode marshals an event and payload into an envelope.
func Encode(t Type, payload interface{}) ([]byte, error) {
	env := Envelope{E: t}
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return nil, err
		}
		env.P = raw
	}
	return json.Marshal(env)
}

// Conn is the transport handle owned by one participant. Send must not
// block: implementations queue the event and shed non-critical entries
// under back-pressure.
type Conn interface {
	Send(t Type, payload interface{})
	Close()
}
