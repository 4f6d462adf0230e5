package server

import (
	"fmt"

	"github.com/draftforge/draftforge/pkg/booster"
	"github.com/draftforge/draftforge/pkg/catalog"
	"github.com/draftforge/draftforge/pkg/draft"
	"github.com/draftforge/draftforge/pkg/events"
)

// winstonSync builds the shared winston state event. Lock held.
func (s *Session) winstonSync() events.WinstonSyncPayload {
	return events.WinstonSyncPayload{
		PileSizes:     s.winston.PileSizes(),
		CurrentPile:   s.winston.CurrentPile(),
		PoolRemaining: s.winston.PoolRemaining(),
		CurrentPlayer: s.winston.CurrentPlayer(),
	}
}

// StartWinston opens a two-player pile draft over boosterCount packs. Owner
// only.
func (s *Session) StartWinston(userID string, boosterCount int) {
	s.mu.Lock()
	started := s.startWinstonLocked(userID, boosterCount)
	s.mu.Unlock()
	if started {
		s.reg.BroadcastPublicSessions()
	}
}

func (s *Session) startWinstonLocked(userID string, boosterCount int) bool {
	if !s.isOwner(userID) || s.drafting {
		return false
	}
	players := s.playingUsers()
	if len(players) != 2 {
		s.ownerMessage("Unable to start winston draft",
			fmt.Sprintf("a winston draft needs exactly 2 players, have %d", len(players)))
		return false
	}
	if boosterCount < 1 {
		boosterCount = 6
	}

	gen := booster.NewGenerator(s.reg.cat, s.reg.newRNG())
	opts := s.opts.boosterOptions()
	pool := gen.EffectiveCollection(s.collections(players), opts)
	packs, err := gen.Generate(pool, opts, boosterCount)
	if err != nil {
		s.ownerMessage("Unable to generate boosters", err.Error())
		return false
	}
	var cards []catalog.CardID
	for _, p := range packs {
		cards = append(cards, p...)
	}
	rng := s.reg.newRNG()
	rng.Shuffle(len(cards), func(i, j int) { cards[i], cards[j] = cards[j], cards[i] })

	w, err := draft.NewWinston(players[0], players[1], cards)
	if err != nil {
		s.ownerMessage("Unable to start winston draft", err.Error())
		return false
	}
	s.winston = w
	s.drafting = true
	s.log.Infof("session %s: winston draft started over %d cards", s.id, len(cards))

	s.toSession(events.OutStartWinston, s.winstonSync())
	s.toSession(events.OutWinstonNextRound, events.CurrentPlayerPayload{UserID: w.CurrentPlayer()})
	return true
}

// WinstonTake gives the offered pile to the acting player.
func (s *Session) WinstonTake(userID string) error {
	s.mu.Lock()
	if s.winston == nil {
		s.mu.Unlock()
		return fmt.Errorf("no winston draft in progress")
	}
	res, err := s.winston.Take(userID)
	if err != nil {
		s.mu.Unlock()
		return err
	}
	s.toUser(userID, events.OutUpdateUser, events.UpdateUserPayload{
		UserID:            userID,
		UpdatedProperties: map[string]interface{}{"pickedCards": s.winston.Picked(userID)},
	})
	ended := s.afterWinstonMove(res.Ended)
	s.mu.Unlock()
	if ended {
		s.reg.BroadcastPublicSessions()
	}
	return nil
}

// WinstonSkip declines the offered pile.
func (s *Session) WinstonSkip(userID string) error {
	s.mu.Lock()
	if s.winston == nil {
		s.mu.Unlock()
		return fmt.Errorf("no winston draft in progress")
	}
	res, err := s.winston.Skip(userID)
	if err != nil {
		s.mu.Unlock()
		return err
	}
	if res.GotRandom {
		s.toUser(userID, events.OutWinstonRandomCard, res.RandomCard)
		s.toUser(userID, events.OutUpdateUser, events.UpdateUserPayload{
			UserID:            userID,
			UpdatedProperties: map[string]interface{}{"pickedCards": s.winston.Picked(userID)},
		})
	}
	ended := s.afterWinstonMove(s.winston.Ended())
	s.mu.Unlock()
	if ended {
		s.reg.BroadcastPublicSessions()
	}
	return nil
}

// afterWinstonMove broadcasts the post-move state, closing the draft when it
// is over. Lock held.
func (s *Session) afterWinstonMove(ended bool) bool {
	if !ended {
		s.toSession(events.OutWinstonSync, s.winstonSync())
		s.toSession(events.OutWinstonNextRound, events.CurrentPlayerPayload{UserID: s.winston.CurrentPlayer()})
		return false
	}
	s.finishWinston()
	return true
}

// finishWinston dispatches the log and returns the lobby to its pre-draft
// state. Lock held.
func (s *Session) finishWinston() {
	lg := draft.NewLog(s.id, s.opts.SetRestriction, nil)
	for _, id := range s.winston.Players() {
		picks := s.winston.Picked(id)
		lg.Users[id] = &draft.SeatLog{
			UserID:   id,
			UserName: s.nameOf(id),
			Cards:    append([]catalog.CardID(nil), picks...),
		}
	}
	s.toSession(events.OutWinstonEnd, nil)
	s.dispatchLog(lg)
	s.winston = nil
	s.drafting = false
	s.disconnected = make(map[string]*disconnectedUser)
	s.log.Infof("session %s: winston draft ended", s.id)
}
