package server

import (
	"encoding/json"
	"fmt"
	"sort"

	"github.com/draftforge/draftforge/pkg/booster"
	"github.com/draftforge/draftforge/pkg/bot"
	"github.com/draftforge/draftforge/pkg/catalog"
	"github.com/draftforge/draftforge/pkg/draft"
	"github.com/draftforge/draftforge/pkg/events"
)

// seatOf returns the draft seat of a user, if a draft holds one. Lock held.
func (s *Session) seatOf(userID string) *draft.Seat {
	if s.draft == nil {
		return nil
	}
	return s.draft.Seat(userID)
}

// ownerMessage sends a notice to the owner. Lock held.
func (s *Session) ownerMessage(title, text string) {
	s.toUser(s.ownerID, events.OutMessage, events.MessagePayload{
		Title: title, Text: text, ShowConfirmButton: true,
	})
}

// collections gathers the collections that restrict generation. Lock held.
func (s *Session) collections(players []string) []map[catalog.CardID]int {
	if s.opts.IgnoreCollections {
		return nil
	}
	var colls []map[catalog.CardID]int
	for _, id := range players {
		p := s.reg.Participant(id)
		if p == nil || !p.UseCollection() {
			continue
		}
		if coll := p.Collection(); len(coll) > 0 {
			colls = append(colls, coll)
		}
	}
	return colls
}

// StartDraft deals packs and opens the first pick round. Owner only.
func (s *Session) StartDraft(userID string) {
	s.mu.Lock()
	started := s.startDraftLocked(userID)
	s.mu.Unlock()
	if started {
		// The session is no longer joinable.
		s.reg.BroadcastPublicSessions()
	}
}

func (s *Session) startDraftLocked(userID string) bool {
	if !s.isOwner(userID) || s.drafting {
		return false
	}
	humans := s.playingUsers()
	total := len(humans) + s.opts.Bots
	if total < 2 {
		s.ownerMessage("Unable to start draft",
			"A draft needs at least 2 virtual players. Add bots or wait for more players.")
		return false
	}

	gen := booster.NewGenerator(s.reg.cat, s.reg.newRNG())
	packs, err := gen.GenerateDraftBoosters(s.collections(humans), s.opts.boosterOptions(), total, s.opts.BoostersPerPlayer)
	if err != nil {
		s.log.Infof("session %s: booster generation failed: %v", s.id, err)
		s.ownerMessage("Unable to generate boosters", err.Error())
		return false
	}

	seats, infos := s.buildSeats(humans, total)
	lg := draft.NewLog(s.id, s.opts.SetRestriction, packs)
	for _, info := range infos {
		key := info.UserID
		lg.Users[key] = &draft.SeatLog{UserID: key, UserName: info.UserName, IsBot: info.IsBot}
	}

	d, err := draft.NewTraditional(seats, packs, s.opts.BurnedCardsPerRound, lg)
	if err != nil {
		s.ownerMessage("Unable to start draft", err.Error())
		return false
	}
	s.draft = d
	s.drafting = true
	s.log.Infof("session %s: draft started with %d seats (%d humans, %d bots)",
		s.id, total, len(humans), s.opts.Bots)

	s.toSession(events.OutStartDraft, events.StartDraftPayload{
		Seats:               infos,
		BurnedCardsPerRound: s.opts.BurnedCardsPerRound,
	})
	for _, del := range d.Start() {
		s.sendDelivery(del)
	}
	if s.opts.PickTimer > 0 {
		s.restartPickTimer()
	} else {
		s.toSession(events.OutDisableTimer, nil)
	}
	// An all-bot table drafts to completion on the spot.
	s.pumpAdvance()
	return true
}

// buildSeats interleaves humans (in seating order) with bots so bot seats
// spread evenly around the table. Lock held.
func (s *Session) buildSeats(humans []string, total int) ([]*draft.Seat, []events.SeatInfo) {
	bots := total - len(humans)
	seats := make([]*draft.Seat, 0, total)
	infos := make([]events.SeatInfo, 0, total)
	hi, bi := 0, 0
	for len(seats) < total {
		if hi < len(humans) && (bi >= bots || hi*bots <= bi*len(humans)) {
			id := humans[hi]
			seats = append(seats, &draft.Seat{UserID: id})
			infos = append(infos, events.SeatInfo{UserID: id, UserName: s.nameOf(id)})
			hi++
		} else {
			b := bot.New(s.reg.cat, s.id, bi)
			seats = append(seats, &draft.Seat{Bot: b})
			infos = append(infos, events.SeatInfo{UserID: b.ID, UserName: b.Name, IsBot: true})
			bi++
		}
	}
	return seats, infos
}

func (s *Session) sendDelivery(del draft.Delivery) {
	s.toUser(del.UserID, events.OutNextBooster, events.NextBoosterPayload{
		Booster:       del.Booster,
		BoosterNumber: del.BoosterNumber,
		PickNumber:    del.PickNumber,
	})
}

// PickCard validates and applies a pick; the returned error becomes the
// negative ack. On success the round advances as far as it can.
func (s *Session) PickCard(userID string, card catalog.CardID, burned []catalog.CardID) error {
	s.mu.Lock()
	if !s.drafting || s.draft == nil {
		s.mu.Unlock()
		return fmt.Errorf("no draft in progress")
	}
	if err := s.draft.Pick(userID, card, burned); err != nil {
		s.mu.Unlock()
		return err
	}
	s.toSession(events.OutUpdateUser, events.UpdateUserPayload{
		UserID:            userID,
		UpdatedProperties: map[string]interface{}{"pickedThisRound": true},
	})
	ended := s.pumpAdvance()
	s.mu.Unlock()
	if ended {
		s.reg.BroadcastPublicSessions()
	}
	return nil
}

// pumpAdvance advances the draft until it blocks on a human pick or ends.
// Returns true when the draft finished. Lock held.
func (s *Session) pumpAdvance() bool {
	for {
		res := s.draft.TryAdvance()
		if res == nil {
			return false
		}
		if res.Ended {
			s.finishTraditional()
			return true
		}
		for _, del := range res.Deliveries {
			s.sendDelivery(del)
		}
		if len(res.Deliveries) > 0 {
			if s.opts.PickTimer > 0 {
				s.restartPickTimer()
			}
			return false
		}
		// Only bot seats (or sat-out seats) remain this round; keep going.
	}
}

// finishTraditional closes out the draft: stop the clock, dispatch the log,
// and return the lobby to its pre-draft state. Lock held.
func (s *Session) finishTraditional() {
	s.stopPickTimer()
	lg := s.draft.Log()
	s.toSession(events.OutEndDraft, nil)
	s.dispatchLog(lg)
	s.draft = nil
	s.drafting = false
	s.disconnected = make(map[string]*disconnectedUser)
	s.log.Infof("session %s: draft ended", s.id)
}

// dispatchLog sends the finished log per the recipients option and archives
// it. Lock held.
func (s *Session) dispatchLog(lg *draft.Log) {
	if lg == nil {
		return
	}
	if raw, err := json.Marshal(lg); err == nil {
		s.reg.ArchiveLog(s.id, raw)
	} else {
		s.log.Errorf("session %s: marshaling draft log: %v", s.id, err)
	}
	switch s.opts.DraftLogRecipients {
	case LogNone:
	case LogOwner:
		s.toUser(s.ownerID, events.OutDraftLog, events.DraftLogPayload{Log: lg})
	case LogDelayed:
		s.toUser(s.ownerID, events.OutDraftLog, events.DraftLogPayload{Delayed: true, Log: lg})
	default: // everyone
		s.toSession(events.OutDraftLog, events.DraftLogPayload{Log: lg})
	}
}

// handleDisconnect freezes the draft while a seated player is away. Lock
// held.
func (s *Session) handleDisconnect(p *Participant) {
	s.disconnected[p.ID] = &disconnectedUser{
		name:          p.Name(),
		collection:    p.Collection(),
		useCollection: p.UseCollection(),
	}
	s.removeUser(p.ID)
	if s.draft != nil {
		s.draft.Pause()
	}
	if s.winston != nil {
		s.winston.Pause()
	}
	s.stopPickTimer()
	s.toSession(events.OutSessionUsers, s.userInfos())
	s.toSession(events.OutUserDisconnected, s.disconnectedInfos())
	// A winston seat has no bot replacement; the draft waits.
	text := fmt.Sprintf("%s disconnected. Wait for them to come back, or replace them with a bot.", s.disconnected[p.ID].name)
	if s.winston != nil {
		text = fmt.Sprintf("%s disconnected. The winston draft is paused until they come back.", s.disconnected[p.ID].name)
	}
	s.ownerMessage("Player disconnected", text)
	s.log.Infof("session %s: %s disconnected mid-draft", s.id, p.ID)
}

// disconnectedInfos builds the userDisconnected payload. Lock held.
func (s *Session) disconnectedInfos() []events.DisconnectedUserInfo {
	ids := make([]string, 0, len(s.disconnected))
	for id := range s.disconnected {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	out := make([]events.DisconnectedUserInfo, 0, len(ids))
	for _, id := range ids {
		snap := s.disconnected[id]
		out = append(out, events.DisconnectedUserInfo{
			UserID: id, UserName: snap.name, Replaced: snap.replaced,
		})
	}
	return out
}

// reconnect restores a returning player to a running draft. Lock held.
func (s *Session) reconnect(p *Participant, snap *disconnectedUser) {
	delete(s.disconnected, p.ID)
	s.users = append(s.users, p.ID)
	if len(p.Collection()) == 0 {
		p.SetCollection(snap.collection)
		p.SetUseCollection(snap.useCollection)
	}

	s.toSession(events.OutSessionUsers, s.userInfos())
	s.toSession(events.OutUserDisconnected, s.disconnectedInfos())
	s.toSession(events.OutMessage, events.MessagePayload{
		Title: fmt.Sprintf("%s reconnected", p.Name()), ShowConfirmButton: false, Timer: 1500,
	})
	s.log.Infof("session %s: %s reconnected", s.id, p.ID)

	if s.winston != nil {
		p.Send(events.OutRejoinWinston, events.RejoinWinstonPayload{
			Sync:        s.winstonSync(),
			PickedCards: s.winston.Picked(p.ID),
		})
		if len(s.disconnected) == 0 {
			s.winston.Resume()
			s.toSession(events.OutWinstonNextRound, events.CurrentPlayerPayload{UserID: s.winston.CurrentPlayer()})
		}
		return
	}
	if s.draft == nil {
		return
	}

	seat := s.draft.Seat(p.ID)
	if seat == nil {
		return
	}
	if snap.replaced {
		s.draft.Release(p.ID)
	}
	rejoin := events.RejoinDraftPayload{
		PickedCards:     append([]catalog.CardID(nil), seat.Picked...),
		PickedThisRound: seat.PickedThisRound,
	}
	if del := s.draft.CurrentDelivery(p.ID); del != nil {
		rejoin.Booster = del.Booster
		rejoin.BoosterNumber = del.BoosterNumber
		rejoin.PickNumber = del.PickNumber
	}
	p.Send(events.OutRejoinDraft, rejoin)

	if len(s.disconnected) == 0 {
		s.draft.Resume()
		// Everyone still owing a pick sees their pack again.
		for _, st := range s.draft.Seats() {
			if st.Human() && !st.BotRun() && !st.PickedThisRound && st.UserID != p.ID {
				if del := s.draft.CurrentDelivery(st.UserID); del != nil {
					s.sendDelivery(*del)
				}
			}
		}
		s.pumpAdvance()
		if s.drafting && s.opts.PickTimer > 0 {
			s.resumePickTimer()
		}
	}
}

// ReplaceDisconnected hands every disconnected player's seat to a bot that
// replays their picks, then resumes the draft. Owner only.
func (s *Session) ReplaceDisconnected(userID string) {
	s.mu.Lock()
	if !s.isOwner(userID) || !s.drafting || s.draft == nil || len(s.disconnected) == 0 {
		s.mu.Unlock()
		return
	}
	ids := make([]string, 0, len(s.disconnected))
	for id := range s.disconnected {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for i, id := range ids {
		seat := s.draft.Seat(id)
		if seat == nil || seat.BotRun() {
			continue
		}
		b := bot.New(s.reg.cat, id, i)
		b.Feed(seat.Picked)
		if err := s.draft.Substitute(id, b); err != nil {
			s.log.Errorf("session %s: substituting %s: %v", s.id, id, err)
			continue
		}
		s.disconnected[id].replaced = true
	}
	s.toSession(events.OutUserDisconnected, s.disconnectedInfos())
	s.toSession(events.OutMessage, events.MessagePayload{
		Title: "Disconnected players replaced by bots", ShowConfirmButton: false, Timer: 1500,
	})
	s.draft.Resume()
	ended := s.pumpAdvance()
	if !ended && s.opts.PickTimer > 0 {
		s.resumePickTimer()
	}
	s.mu.Unlock()
	if ended {
		s.reg.BroadcastPublicSessions()
	}
}

// DistributeSealed deals boostersPerPlayer fresh packs to every player as a
// sealed pool. Owner only; no draft state is created.
func (s *Session) DistributeSealed(userID string, boostersPerPlayer int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.isOwner(userID) || s.drafting {
		return
	}
	if boostersPerPlayer < 1 || boostersPerPlayer > 12 {
		s.ownerMessage("Unable to distribute sealed pools",
			fmt.Sprintf("boosters per player must be between 1 and 12, got %d", boostersPerPlayer))
		return
	}
	players := s.playingUsers()
	if len(players) == 0 {
		return
	}
	gen := booster.NewGenerator(s.reg.cat, s.reg.newRNG())
	packs, err := gen.GenerateDraftBoosters(s.collections(players), s.opts.boosterOptions(), len(players), boostersPerPlayer)
	if err != nil {
		s.ownerMessage("Unable to generate boosters", err.Error())
		return
	}
	for p, id := range players {
		pool := make([]booster.Booster, 0, boostersPerPlayer)
		for r := 0; r < boostersPerPlayer; r++ {
			pool = append(pool, packs[r*len(players)+p])
		}
		s.toUser(id, events.OutSetCardSelection, events.CardSelectionPayload{Boosters: pool})
	}
	s.log.Infof("session %s: distributed %d sealed packs to %d players", s.id, boostersPerPlayer, len(players))
}

// DistributeJumpstart deals every player two random themed packs. Owner
// only.
func (s *Session) DistributeJumpstart(userID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.isOwner(userID) || s.drafting {
		return
	}
	jump := s.reg.cat.Jumpstart
	if len(jump) == 0 {
		s.ownerMessage("Unable to distribute jumpstart packs", "this catalog has no jumpstart packs")
		return
	}
	rng := s.reg.newRNG()
	for _, id := range s.playingUsers() {
		i := rng.Intn(len(jump))
		j := rng.Intn(len(jump))
		for len(jump) > 1 && j == i {
			j = rng.Intn(len(jump))
		}
		s.toUser(id, events.OutSetCardSelection, events.CardSelectionPayload{
			Boosters: []booster.Booster{
				booster.Booster(jump[i].Cards).Clone(),
				booster.Booster(jump[j].Cards).Clone(),
			},
		})
	}
	s.log.Infof("session %s: distributed jumpstart packs", s.id)
}
