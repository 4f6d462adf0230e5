package server

import (
	"sync"

	"github.com/draftforge/draftforge/pkg/catalog"
	"github.com/draftforge/draftforge/pkg/events"
)

// Participant is one connected client. It lives as long as its transport
// handle; draft-local state (picks, seat) lives in the session's draft.
type Participant struct {
	ID string

	mu            sync.Mutex
	name          string
	conn          events.Conn
	collection    map[catalog.CardID]int
	useCollection bool
	sessionID     string
}

// NewParticipant wraps a fresh connection.
func NewParticipant(id, name string, conn events.Conn) *Participant {
	return &Participant{ID: id, name: name, conn: conn, useCollection: true}
}

// Name returns the display name.
func (p *Participant) Name() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.name
}

// SetName updates the display name.
func (p *Participant) SetName(name string) {
	p.mu.Lock()
	p.name = name
	p.mu.Unlock()
}

// Send forwards an event to the participant's connection, if any.
func (p *Participant) Send(t events.Type, payload interface{}) {
	p.mu.Lock()
	conn := p.conn
	p.mu.Unlock()
	if conn != nil {
		conn.Send(t, payload)
	}
}

// SessionID returns the session the participant currently belongs to.
func (p *Participant) SessionID() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.sessionID
}

func (p *Participant) setSessionID(id string) {
	p.mu.Lock()
	p.sessionID = id
	p.mu.Unlock()
}

// SetCollection replaces the owned-cards map.
func (p *Participant) SetCollection(coll map[catalog.CardID]int) {
	p.mu.Lock()
	p.collection = coll
	p.mu.Unlock()
}

// Collection returns the owned-cards map (shared; treated as read-only).
func (p *Participant) Collection() map[catalog.CardID]int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.collection
}

// SetUseCollection toggles whether the collection restricts generation.
func (p *Participant) SetUseCollection(v bool) {
	p.mu.Lock()
	p.useCollection = v
	p.mu.Unlock()
}

// UseCollection reports the toggle.
func (p *Participant) UseCollection() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.useCollection
}
