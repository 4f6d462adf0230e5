package server

import (
	crand "crypto/rand"
	"encoding/binary"
	"math/rand"
	"sync"
	"time"

	"github.com/decred/slog"
	"github.com/google/uuid"

	"github.com/draftforge/draftforge/pkg/booster"
	"github.com/draftforge/draftforge/pkg/catalog"
	"github.com/draftforge/draftforge/pkg/events"
	"github.com/draftforge/draftforge/internal/logstore"
)

// Registry owns every connected participant and live session. Sessions are
// created on demand when a client names an unknown session ID and destroyed
// when their last member leaves.
type Registry struct {
	log        slog.Logger
	cat        *catalog.Catalog
	dispatcher *events.Dispatcher
	logs       *logstore.Store

	mu           sync.RWMutex
	participants map[string]*Participant
	sessions     map[string]*Session

	// Server-bundled cubes loadable by name, filled at startup.
	localLists map[string]*booster.CustomList

	seedMu sync.Mutex
	seeds  *rand.Rand
}

// NewRegistry creates a registry over the given catalog. seed pins booster
// and bot randomness for reproducible runs; 0 draws a fresh seed from
// crypto/rand. logs may be nil to disable draft log archival.
func NewRegistry(cat *catalog.Catalog, log slog.Logger, dispatcher *events.Dispatcher, logs *logstore.Store, seed int64) *Registry {
	if seed == 0 {
		var buf [8]byte
		if _, err := crand.Read(buf[:]); err == nil {
			seed = int64(binary.LittleEndian.Uint64(buf[:]))
		}
		if seed == 0 {
			seed = time.Now().UnixNano()
		}
	}
	return &Registry{
		log:          log,
		cat:          cat,
		dispatcher:   dispatcher,
		logs:         logs,
		participants: make(map[string]*Participant),
		sessions:     make(map[string]*Session),
		localLists:   make(map[string]*booster.CustomList),
		seeds:        rand.New(rand.NewSource(seed)),
	}
}

// RegisterLocalList makes a server-bundled cube available to sessions under
// its list name. Called during startup, before any client connects.
func (r *Registry) RegisterLocalList(list *booster.CustomList) {
	r.localLists[list.Name] = list
	r.log.Infof("registered local card list %q (%d cards)", list.Name, list.CardCount())
}

// LocalList returns the named server-bundled cube, or nil.
func (r *Registry) LocalList(name string) *booster.CustomList {
	return r.localLists[name]
}

// Catalog returns the card catalog sessions draft from.
func (r *Registry) Catalog() *catalog.Catalog { return r.cat }

// newRNG derives a fresh generator from the registry's seed stream.
func (r *Registry) newRNG() *rand.Rand {
	r.seedMu.Lock()
	defer r.seedMu.Unlock()
	return rand.New(rand.NewSource(r.seeds.Int63()))
}

// Connect registers a participant and joins them to the requested session.
// A userID already in use is supplanted: the new connection is assigned a
// fresh ID and told about it via alreadyConnected.
func (r *Registry) Connect(userID, userName, sessionID string, conn events.Conn) *Participant {
	r.mu.Lock()
	if _, taken := r.participants[userID]; taken {
		userID = "user_" + uuid.NewString()
		conn.Send(events.OutAlreadyConnected, events.AlreadyConnectedPayload{NewID: userID})
	}
	p := NewParticipant(userID, userName, conn)
	r.participants[userID] = p
	r.mu.Unlock()

	r.log.Infof("participant %s (%q) connected, joining session %s", userID, userName, sessionID)
	conn.Send(events.OutPublicSessions, r.PublicSessions())
	r.Join(p, sessionID)
	return p
}

// Disconnect removes a participant. Their session decides whether this is a
// plain leave or a mid-draft disconnect.
func (r *Registry) Disconnect(p *Participant) {
	r.mu.Lock()
	// Only remove if the map still points at this exact participant; a
	// supplanting reconnect may have replaced the entry already.
	if cur, ok := r.participants[p.ID]; ok && cur == p {
		delete(r.participants, p.ID)
	}
	r.mu.Unlock()

	if s := r.Session(p.SessionID()); s != nil {
		s.Leave(p)
	}
	r.log.Infof("participant %s disconnected", p.ID)
}

// newSessionID mints a short session ID, an 8 character uuid fragment,
// retrying the unlikely collision with a live session.
func (r *Registry) newSessionID() string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for {
		id := uuid.NewString()[:8]
		if _, taken := r.sessions[id]; !taken {
			return id
		}
	}
}

// Join adds the participant to the named session, creating it if needed.
// When the session refuses the join (draft in progress, or full), the
// participant is redirected to a freshly minted session instead.
func (r *Registry) Join(p *Participant, sessionID string) {
	if sessionID == "" {
		sessionID = r.newSessionID()
	}
	s, created := r.getOrCreateSession(sessionID)
	if !created && !s.CanJoin(p.ID) {
		fresh := r.newSessionID()
		p.Send(events.OutSetSession, events.SetSessionPayload{SessionID: fresh})
		p.Send(events.OutMessage, events.MessagePayload{
			Title:             "Session unavailable",
			Text:              "That session is full or already drafting. You have been moved to a new one.",
			ShowConfirmButton: true,
		})
		s, _ = r.getOrCreateSession(fresh)
	}
	s.Join(p)
	r.BroadcastPublicSessions()
}

// Move takes a participant out of their current session and into another.
func (r *Registry) Move(p *Participant, sessionID string) {
	if cur := r.Session(p.SessionID()); cur != nil {
		cur.Leave(p)
	}
	r.Join(p, sessionID)
}

func (r *Registry) getOrCreateSession(id string) (*Session, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if s, ok := r.sessions[id]; ok {
		return s, false
	}
	s := newSession(id, r)
	r.sessions[id] = s
	r.log.Infof("session %s created", id)
	return s, true
}

// Session returns the live session with the given ID, or nil.
func (r *Registry) Session(id string) *Session {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.sessions[id]
}

// Participant returns the connected participant with the given ID, or nil.
func (r *Registry) Participant(id string) *Participant {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.participants[id]
}

// removeSession drops an emptied session from the map.
func (r *Registry) removeSession(id string) {
	r.mu.Lock()
	delete(r.sessions, id)
	r.mu.Unlock()
	r.log.Infof("session %s destroyed", id)
	r.BroadcastPublicSessions()
}

// PublicSessions lists the joinable public sessions.
func (r *Registry) PublicSessions() []events.PublicSessionInfo {
	r.mu.RLock()
	sessions := make([]*Session, 0, len(r.sessions))
	for _, s := range r.sessions {
		sessions = append(sessions, s)
	}
	r.mu.RUnlock()

	list := make([]events.PublicSessionInfo, 0)
	for _, s := range sessions {
		if info, ok := s.PublicInfo(); ok {
			list = append(list, info)
		}
	}
	return list
}

// BroadcastPublicSessions pushes the current public session list to every
// connected client through the dispatcher.
func (r *Registry) BroadcastPublicSessions() {
	list := r.PublicSessions()

	r.mu.RLock()
	conns := make([]events.Conn, 0, len(r.participants))
	for _, p := range r.participants {
		p.mu.Lock()
		if p.conn != nil {
			conns = append(conns, p.conn)
		}
		p.mu.Unlock()
	}
	r.mu.RUnlock()

	r.dispatcher.Publish(events.Broadcast{
		Event:   events.OutPublicSessions,
		Payload: list,
		Conns:   conns,
	})
}

// RecentLogs returns the newest archived draft logs for a session.
func (r *Registry) RecentLogs(sessionID string, n int) ([][]byte, error) {
	if r.logs == nil {
		return nil, nil
	}
	return r.logs.Recent(sessionID, n)
}

// SessionSummary is one row of the debug view.
type SessionSummary struct {
	ID       string
	Owner    string
	Users    []string
	Drafting bool
	Public   bool
}

// Summaries snapshots every live session for the debug endpoints.
func (r *Registry) Summaries() []SessionSummary {
	r.mu.RLock()
	sessions := make([]*Session, 0, len(r.sessions))
	for _, s := range r.sessions {
		sessions = append(sessions, s)
	}
	r.mu.RUnlock()

	out := make([]SessionSummary, 0, len(sessions))
	for _, s := range sessions {
		s.mu.Lock()
		out = append(out, SessionSummary{
			ID:       s.id,
			Owner:    s.ownerID,
			Users:    append([]string(nil), s.users...),
			Drafting: s.drafting,
			Public:   s.opts.IsPublic,
		})
		s.mu.Unlock()
	}
	return out
}

// ParticipantIDs lists the connected participants for the debug endpoints.
func (r *Registry) ParticipantIDs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ids := make([]string, 0, len(r.participants))
	for id := range r.participants {
		ids = append(ids, id)
	}
	return ids
}

// ArchiveLog stores a finished draft log, when archival is enabled.
func (r *Registry) ArchiveLog(sessionID string, raw []byte) {
	if r.logs == nil {
		return
	}
	if err := r.logs.Archive(sessionID, raw); err != nil {
		r.log.Errorf("archiving draft log for session %s: %v", sessionID, err)
	}
}
