package server

import (
	"fmt"
	"maps"
	"sync"

	"github.com/decred/slog"

	"github.com/draftforge/draftforge/pkg/booster"
	"github.com/draftforge/draftforge/pkg/catalog"
	"github.com/draftforge/draftforge/pkg/draft"
	"github.com/draftforge/draftforge/pkg/events"
)

// maxChatLen caps relayed chat messages.
const maxChatLen = 255

// disconnectedUser snapshots the identity of a player who dropped
// mid-draft, so the same user ID can reclaim the seat.
type disconnectedUser struct {
	name          string
	collection    map[catalog.CardID]int
	useCollection bool
	replaced      bool
}

// Session is one lobby: a user list in seating order, the owner's options,
// and at most one running draft. Every entry point takes the session mutex,
// so all operations on one session are serialized.
type Session struct {
	id  string
	reg *Registry
	log slog.Logger

	mu           sync.Mutex
	ownerID      string
	users        []string
	opts         Options
	drafting     bool
	draft        *draft.Traditional
	winston      *draft.Winston
	disconnected map[string]*disconnectedUser
	timer        *pickTimer
	// Seconds left on the countdown, kept so a disconnect-frozen clock
	// resumes where it stopped instead of granting a fresh pick window.
	timerRemaining int
	bracket        *Bracket
}

func newSession(id string, reg *Registry) *Session {
	return &Session{
		id:           id,
		reg:          reg,
		log:          reg.log,
		opts:         DefaultOptions(),
		disconnected: make(map[string]*disconnectedUser),
	}
}

// ID returns the session identifier.
func (s *Session) ID() string { return s.id }

// Owner returns the current owner's user ID.
func (s *Session) Owner() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ownerID
}

// Users returns the user IDs in seating order.
func (s *Session) Users() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.users...)
}

// Drafting reports whether a draft is running.
func (s *Session) Drafting() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.drafting
}

// PublicInfo returns the session's public listing, when it is listable.
func (s *Session) PublicInfo() (events.PublicSessionInfo, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.opts.IsPublic || s.drafting {
		return events.PublicSessionInfo{}, false
	}
	return events.PublicSessionInfo{
		ID:         s.id,
		Players:    len(s.users),
		MaxPlayers: s.opts.MaxPlayers,
	}, true
}

// UserList returns the current sessionUsers view.
func (s *Session) UserList() []events.UserInfo {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.userInfos()
}

// CollectionPool computes the card pool the session would generate from
// right now: the per-card minimum across restricting collections, or the
// whole catalog.
func (s *Session) CollectionPool() map[catalog.CardID]int {
	s.mu.Lock()
	defer s.mu.Unlock()
	gen := booster.NewGenerator(s.reg.cat, s.reg.newRNG())
	return gen.EffectiveCollection(s.collections(s.playingUsers()), s.opts.boosterOptions())
}

// CanJoin reports whether a join by the given user would be accepted.
// Disconnected draft members may always come back.
func (s *Session) CanJoin(userID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, gone := s.disconnected[userID]; gone {
		return true
	}
	if s.drafting {
		return false
	}
	if s.opts.MaxPlayers > 0 && len(s.users) >= s.opts.MaxPlayers {
		return false
	}
	return true
}

// Join adds a participant, or restores them when they are reconnecting to a
// running draft.
func (s *Session) Join(p *Participant) {
	s.mu.Lock()
	p.setSessionID(s.id)
	if snap, gone := s.disconnected[p.ID]; gone && s.drafting {
		s.reconnect(p, snap)
		s.mu.Unlock()
		return
	}

	if !s.isMember(p.ID) {
		s.users = append(s.users, p.ID)
	}
	if s.ownerID == "" {
		s.ownerID = p.ID
	}
	owner := s.ownerID
	ownerName := s.nameOf(owner)
	full := s.fullOptions()
	bracket := s.bracket
	s.mu.Unlock()

	p.Send(events.OutSessionOwner, events.SessionOwnerPayload{UserID: owner, UserName: ownerName})
	p.Send(events.OutSessionOptions, full)
	if bracket != nil {
		p.Send(events.OutBracket, bracket)
	}
	s.broadcastUsers()
	s.log.Debugf("session %s: %s joined (%d users)", s.id, p.ID, len(s.Users()))
}

// Leave handles a participant going away, either a clean lobby exit or a
// mid-draft disconnect.
func (s *Session) Leave(p *Participant) {
	s.mu.Lock()
	if s.drafting && (s.seatOf(p.ID) != nil || (s.winston != nil && s.winston.HasPlayer(p.ID))) {
		s.handleDisconnect(p)
		s.mu.Unlock()
		return
	}
	destroyed := s.removeUser(p.ID)
	s.mu.Unlock()

	if destroyed {
		s.reg.removeSession(s.id)
		return
	}
	s.broadcastUsers()
	s.reg.BroadcastPublicSessions()
}

// isMember reports membership. Lock held.
func (s *Session) isMember(userID string) bool {
	for _, id := range s.users {
		if id == userID {
			return true
		}
	}
	return false
}

// removeUser drops a user and transfers ownership to the first remaining
// seat when the owner left. Returns true when the session emptied. Lock held.
func (s *Session) removeUser(userID string) bool {
	for i, id := range s.users {
		if id == userID {
			s.users = append(s.users[:i], s.users[i+1:]...)
			break
		}
	}
	if len(s.users) == 0 && len(s.disconnected) == 0 {
		return true
	}
	if s.ownerID == userID && len(s.users) > 0 {
		s.ownerID = s.users[0]
		owner, name := s.ownerID, s.nameOf(s.ownerID)
		s.toSession(events.OutSessionOwner, events.SessionOwnerPayload{UserID: owner, UserName: name})
		s.log.Infof("session %s: ownership transferred to %s", s.id, owner)
	}
	return false
}

// nameOf resolves a display name, falling back to the disconnect snapshot.
// Lock held.
func (s *Session) nameOf(userID string) string {
	if p := s.reg.Participant(userID); p != nil {
		return p.Name()
	}
	if snap, ok := s.disconnected[userID]; ok {
		return snap.name
	}
	return ""
}

// playingUsers is the seating order minus a non-playing owner. Lock held.
func (s *Session) playingUsers() []string {
	if s.opts.OwnerIsPlayer {
		return append([]string(nil), s.users...)
	}
	out := make([]string, 0, len(s.users))
	for _, id := range s.users {
		if id != s.ownerID {
			out = append(out, id)
		}
	}
	return out
}

// conns resolves the live connections of every member. Lock held.
func (s *Session) conns(except string) []*Participant {
	out := make([]*Participant, 0, len(s.users))
	for _, id := range s.users {
		if id == except {
			continue
		}
		if p := s.reg.Participant(id); p != nil {
			out = append(out, p)
		}
	}
	return out
}

// toSession fans an event out to every member. Lock held.
func (s *Session) toSession(t events.Type, payload interface{}) {
	for _, p := range s.conns("") {
		p.Send(t, payload)
	}
}

// toSessionExcept fans out to everyone but one user. Lock held.
func (s *Session) toSessionExcept(except string, t events.Type, payload interface{}) {
	for _, p := range s.conns(except) {
		p.Send(t, payload)
	}
}

// toUser sends to a single member. Lock held.
func (s *Session) toUser(userID string, t events.Type, payload interface{}) {
	if p := s.reg.Participant(userID); p != nil {
		p.Send(t, payload)
	}
}

// userInfos builds the sessionUsers payload. Lock held.
func (s *Session) userInfos() []events.UserInfo {
	out := make([]events.UserInfo, 0, len(s.users))
	for _, id := range s.users {
		p := s.reg.Participant(id)
		if p == nil {
			continue
		}
		out = append(out, events.UserInfo{
			UserID:        id,
			UserName:      p.Name(),
			Collection:    len(p.Collection()),
			UseCollection: p.UseCollection(),
		})
	}
	return out
}

func (s *Session) broadcastUsers() {
	s.mu.Lock()
	s.toSession(events.OutSessionUsers, s.userInfos())
	s.mu.Unlock()
}

// Chat relays a chat line to the whole session, truncated to 255 runes.
func (s *Session) Chat(p *Participant, text string) {
	if runes := []rune(text); len(runes) > maxChatLen {
		text = string(runes[:maxChatLen])
	}
	s.mu.Lock()
	s.toSession(events.OutChatMessage, events.ChatMessagePayload{Author: p.ID, Text: text})
	s.mu.Unlock()
}

// SetUserName renames a participant and tells the session.
func (s *Session) SetUserName(p *Participant, name string) {
	p.SetName(name)
	s.mu.Lock()
	s.toSession(events.OutUpdateUser, events.UpdateUserPayload{
		UserID:            p.ID,
		UpdatedProperties: map[string]interface{}{"userName": name},
	})
	s.mu.Unlock()
}

// SetCollection replaces a participant's collection.
func (s *Session) SetCollection(p *Participant, coll map[catalog.CardID]int) {
	p.SetCollection(coll)
	s.mu.Lock()
	s.toSession(events.OutUpdateUser, events.UpdateUserPayload{
		UserID:            p.ID,
		UpdatedProperties: map[string]interface{}{"collection": len(coll)},
	})
	s.mu.Unlock()
}

// SetUseCollection toggles whether a participant's collection counts.
func (s *Session) SetUseCollection(p *Participant, v bool) {
	if p.UseCollection() == v {
		return
	}
	p.SetUseCollection(v)
	s.mu.Lock()
	s.toSession(events.OutUpdateUser, events.UpdateUserPayload{
		UserID:            p.ID,
		UpdatedProperties: map[string]interface{}{"useCollection": v},
	})
	s.mu.Unlock()
}

// isOwner checks the owner gate. Lock held.
func (s *Session) isOwner(userID string) bool {
	if userID != s.ownerID {
		s.log.Debugf("session %s: %s attempted an owner-only operation", s.id, userID)
		return false
	}
	return true
}

// SetOwner hands the session to another member.
func (s *Session) SetOwner(userID, newOwner string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.isOwner(userID) || !s.isMember(newOwner) || newOwner == s.ownerID {
		return
	}
	s.ownerID = newOwner
	s.toSession(events.OutSessionOwner, events.SessionOwnerPayload{
		UserID: newOwner, UserName: s.nameOf(newOwner),
	})
}

// RemovePlayer kicks a member into a fresh session of their own.
func (s *Session) RemovePlayer(userID, target string) {
	s.mu.Lock()
	if !s.isOwner(userID) || target == s.ownerID || !s.isMember(target) || s.drafting {
		s.mu.Unlock()
		return
	}
	p := s.reg.Participant(target)
	s.removeUser(target)
	s.toUser(userID, events.OutMessage, events.MessagePayload{
		Title: fmt.Sprintf("%s removed", s.nameOf(target)), ShowConfirmButton: true, Timer: 1500,
	})
	s.mu.Unlock()

	s.broadcastUsers()
	if p != nil {
		p.Send(events.OutMessage, events.MessagePayload{
			Title:             "Removed from session",
			Text:              "The session owner removed you. You have been moved to a new session.",
			ShowConfirmButton: true,
		})
		s.reg.Join(p, "")
	}
}

// SetSeating reorders the table. order must be a permutation of the current
// members.
func (s *Session) SetSeating(userID string, order []string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.isOwner(userID) || s.drafting {
		return
	}
	if len(order) != len(s.users) {
		return
	}
	seen := make(map[string]bool, len(order))
	for _, id := range order {
		if !s.isMember(id) || seen[id] {
			return
		}
		seen[id] = true
	}
	s.users = append([]string(nil), order...)
	s.toSession(events.OutSessionUsers, s.userInfos())
}

// RandomizeSeating shuffles the table.
func (s *Session) RandomizeSeating(userID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.isOwner(userID) || s.drafting {
		return
	}
	rng := s.reg.newRNG()
	rng.Shuffle(len(s.users), func(i, j int) {
		s.users[i], s.users[j] = s.users[j], s.users[i]
	})
	s.toSession(events.OutSessionUsers, s.userInfos())
}

// fullOptions snapshots every option into a delta, for new joiners. Lock
// held.
func (s *Session) fullOptions() events.OptionsDelta {
	o := s.opts
	d := events.OptionsDelta{
		SetRestriction:      append([]string{}, o.SetRestriction...),
		IsPublic:            events.Bool(o.IsPublic),
		IgnoreCollections:   events.Bool(o.IgnoreCollections),
		BoostersPerPlayer:   events.Int(o.BoostersPerPlayer),
		Bots:                events.Int(o.Bots),
		MaxPlayers:          events.Int(o.MaxPlayers),
		MaxRarity:           events.String(string(o.MaxRarity)),
		ColorBalance:        events.Bool(o.ColorBalance),
		MaxDuplicates:       o.MaxDuplicates,
		Foil:                events.Bool(o.Foil),
		UseCustomCardList:   events.Bool(o.UseCustomCardList),
		BurnedCardsPerRound: events.Int(o.BurnedCardsPerRound),
		CustomBoosters:      append([]string{}, o.CustomBoosters...),
		DistributionMode:    events.String(string(o.DistributionMode)),
		DraftLogRecipients:  events.String(string(o.DraftLogRecipients)),
		OwnerIsPlayer:       events.Bool(o.OwnerIsPlayer),
		PickTimer:           events.Int(o.PickTimer),
	}
	if o.CustomCardList != nil {
		d.CustomCardListName = events.String(o.CustomCardList.Name)
	}
	return d
}

// SetBots sets the bot count. Idempotent sets emit nothing; everyone but the
// initiator gets the echo.
func (s *Session) SetBots(userID string, n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.isOwner(userID) || n < 0 || s.opts.Bots == n {
		return
	}
	s.opts.Bots = n
	s.toSessionExcept(userID, events.OutBots, n)
}

// SetBoostersPerPlayer sets the number of rounds.
func (s *Session) SetBoostersPerPlayer(userID string, n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.isOwner(userID) || n < 1 || s.opts.BoostersPerPlayer == n {
		return
	}
	s.opts.BoostersPerPlayer = n
	// The per-round set override list tracks the round count.
	cb := make([]string, n)
	copy(cb, s.opts.CustomBoosters)
	s.opts.CustomBoosters = cb
	s.toSessionExcept(userID, events.OutBoostersPerPlayer, n)
}

// SetRestriction limits generation to the given set codes.
func (s *Session) SetRestriction(userID string, sets []string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.isOwner(userID) {
		return
	}
	for _, code := range sets {
		if !s.reg.cat.HasSet(code) {
			s.log.Warnf("session %s: unknown set code %q in restriction", s.id, code)
			return
		}
	}
	if equalStrings(s.opts.SetRestriction, sets) {
		return
	}
	s.opts.SetRestriction = append([]string(nil), sets...)
	s.toSessionExcept(userID, events.OutSetRestriction, sets)
}

// SetPublic lists or unlists the session.
func (s *Session) SetPublic(userID string, v bool) {
	s.mu.Lock()
	if !s.isOwner(userID) || s.opts.IsPublic == v {
		s.mu.Unlock()
		return
	}
	s.opts.IsPublic = v
	s.toSessionExcept(userID, events.OutIsPublic, v)
	s.mu.Unlock()
	s.reg.BroadcastPublicSessions()
}

// SetPickTimer sets the per-pick countdown base; 0 disables the timer.
func (s *Session) SetPickTimer(userID string, seconds int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.isOwner(userID) || seconds < 0 || s.opts.PickTimer == seconds {
		return
	}
	s.opts.PickTimer = seconds
	s.toSessionExcept(userID, events.OutSetPickTimer, seconds)
}

// SetMaxPlayers caps the table size; 0 removes the cap.
func (s *Session) SetMaxPlayers(userID string, n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.isOwner(userID) || n < 0 || s.opts.MaxPlayers == n {
		return
	}
	s.opts.MaxPlayers = n
	s.toSessionExcept(userID, events.OutSetMaxPlayers, n)
}

// SetMaxRarity caps pack rarity.
func (s *Session) SetMaxRarity(userID string, r catalog.Rarity) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.isOwner(userID) || !r.Valid() || s.opts.MaxRarity == r {
		return
	}
	s.opts.MaxRarity = r
	s.toSessionExcept(userID, events.OutSetMaxRarity, string(r))
}

// SetIgnoreCollections toggles collection-restricted generation.
func (s *Session) SetIgnoreCollections(userID string, v bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.isOwner(userID) || s.opts.IgnoreCollections == v {
		return
	}
	s.opts.IgnoreCollections = v
	s.toSessionExcept(userID, events.OutIgnoreCollections, v)
}

// SetColorBalance toggles the color-balanced common slot fill.
func (s *Session) SetColorBalance(userID string, v bool) {
	s.setCoalesced(userID, func() bool { return s.opts.ColorBalance == v }, func() {
		s.opts.ColorBalance = v
	}, events.OptionsDelta{ColorBalance: events.Bool(v)})
}

// SetFoil toggles the foil slot.
func (s *Session) SetFoil(userID string, v bool) {
	s.setCoalesced(userID, func() bool { return s.opts.Foil == v }, func() {
		s.opts.Foil = v
	}, events.OptionsDelta{Foil: events.Bool(v)})
}

// SetMaxDuplicates replaces the per-rarity duplicate caps.
func (s *Session) SetMaxDuplicates(userID string, caps map[catalog.Rarity]int) {
	s.setCoalesced(userID, func() bool { return maps.Equal(s.opts.MaxDuplicates, caps) }, func() {
		s.opts.MaxDuplicates = caps
	}, events.OptionsDelta{MaxDuplicates: caps})
}

// SetUseCustomCardList toggles cube mode.
func (s *Session) SetUseCustomCardList(userID string, v bool) {
	s.setCoalesced(userID, func() bool { return s.opts.UseCustomCardList == v }, func() {
		s.opts.UseCustomCardList = v
	}, events.OptionsDelta{UseCustomCardList: events.Bool(v)})
}

// SetBurnedCardsPerRound sets how many extra cards each pick removes.
func (s *Session) SetBurnedCardsPerRound(userID string, n int) {
	s.setCoalesced(userID, func() bool { return n < 0 || s.opts.BurnedCardsPerRound == n }, func() {
		s.opts.BurnedCardsPerRound = n
	}, events.OptionsDelta{BurnedCardsPerRound: events.Int(n)})
}

// SetCustomBoosters sets per-round set overrides ("" keeps the session
// restriction for that round).
func (s *Session) SetCustomBoosters(userID string, sets []string) {
	s.setCoalesced(userID, func() bool { return equalStrings(s.opts.CustomBoosters, sets) }, func() {
		s.opts.CustomBoosters = append([]string(nil), sets...)
	}, events.OptionsDelta{CustomBoosters: sets})
}

// SetDistributionMode selects how generated packs are dealt.
func (s *Session) SetDistributionMode(userID string, m booster.DistributionMode) {
	s.setCoalesced(userID, func() bool { return !m.Valid() || s.opts.DistributionMode == m }, func() {
		s.opts.DistributionMode = m
	}, events.OptionsDelta{DistributionMode: events.String(string(m))})
}

// SetDraftLogRecipients selects who receives the log at draft end.
func (s *Session) SetDraftLogRecipients(userID string, r LogRecipients) {
	s.setCoalesced(userID, func() bool { return !r.Valid() || s.opts.DraftLogRecipients == r }, func() {
		s.opts.DraftLogRecipients = r
	}, events.OptionsDelta{DraftLogRecipients: events.String(string(r))})
}

// SetOwnerIsPlayer toggles whether the owner takes a seat.
func (s *Session) SetOwnerIsPlayer(userID string, v bool) {
	s.setCoalesced(userID, func() bool { return s.opts.OwnerIsPlayer == v }, func() {
		s.opts.OwnerIsPlayer = v
	}, events.OptionsDelta{OwnerIsPlayer: events.Bool(v)})
}

// SetCustomCardList installs a parsed cube and announces its name.
func (s *Session) SetCustomCardList(userID string, list *booster.CustomList) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.isOwner(userID) || list == nil {
		return
	}
	s.opts.CustomCardList = list
	s.opts.UseCustomCardList = true
	s.toSessionExcept(userID, events.OutSessionOptions, events.OptionsDelta{
		CustomCardListName: events.String(list.Name),
		UseCustomCardList:  events.Bool(true),
	})
}

// setCoalesced is the shared shape of options that echo through a coalesced
// sessionOptions delta instead of a dedicated event.
func (s *Session) setCoalesced(userID string, unchanged func() bool, apply func(), delta events.OptionsDelta) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.isOwner(userID) || unchanged() {
		return
	}
	apply()
	s.toSessionExcept(userID, events.OutSessionOptions, delta)
}

func equalStrings(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
