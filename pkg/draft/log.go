package draft

import (
	"time"

	"github.com/draftforge/draftforge/pkg/booster"
	"github.com/draftforge/draftforge/pkg/catalog"
)

// LogEntry records one pick: what was taken, what was burned, and the
// booster as it looked before removal.
type LogEntry struct {
	Pick    catalog.CardID   `json:"pick"`
	Burn    []catalog.CardID `json:"burn,omitempty"`
	Booster booster.Booster  `json:"booster"`
}

// SeatLog is the per-seat slice of a draft log.
type SeatLog struct {
	UserID   string           `json:"userID"`
	UserName string           `json:"userName"`
	IsBot    bool             `json:"isBot,omitempty"`
	Picks    []LogEntry       `json:"picks"`
	Cards    []catalog.CardID `json:"cards,omitempty"`
}

// Log is the complete record of one draft, kept in memory and dispatched
// per the session's draftLogRecipients option when the draft ends.
type Log struct {
	SessionID      string              `json:"sessionID"`
	Time           time.Time           `json:"time"`
	SetRestriction []string            `json:"setRestriction,omitempty"`
	Boosters       []booster.Booster   `json:"boosters"`
	Users          map[string]*SeatLog `json:"users"`
}

// NewLog snapshots the generated boosters before the draft consumes them.
func NewLog(sessionID string, setRestriction []string, boosters []booster.Booster) *Log {
	snap := make([]booster.Booster, len(boosters))
	for i, b := range boosters {
		snap[i] = b.Clone()
	}
	restr := make([]string, len(setRestriction))
	copy(restr, setRestriction)
	return &Log{
		SessionID:      sessionID,
		Time:           time.Now(),
		SetRestriction: restr,
		Boosters:       snap,
		Users:          make(map[string]*SeatLog),
	}
}
