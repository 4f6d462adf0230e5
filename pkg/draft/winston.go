package draft

import (
	"fmt"

	"github.com/draftforge/draftforge/pkg/catalog"
)

// Winston is the two-player pile draft. Three face-down piles start with one
// card each; the active player either takes a pile (it refills with one card
// from the pool) or skips it (one pool card is added to it and the next pile
// is offered). Skipping the last pile grants the top of the pool instead.
type Winston struct {
	players     [2]string
	piles       [3][]catalog.CardID
	pool        []catalog.CardID
	turn        int
	currentPile int
	picked      map[string][]catalog.CardID
	paused      bool
	ended       bool
}

// NewWinston starts a winston draft over an already-shuffled card pool.
func NewWinston(playerA, playerB string, pool []catalog.CardID) (*Winston, error) {
	if len(pool) < 3 {
		return nil, fmt.Errorf("winston draft needs at least 3 cards, have %d", len(pool))
	}
	w := &Winston{
		players: [2]string{playerA, playerB},
		pool:    append([]catalog.CardID(nil), pool...),
		picked: map[string][]catalog.CardID{
			playerA: nil,
			playerB: nil,
		},
	}
	for i := range w.piles {
		w.piles[i] = []catalog.CardID{w.pool[0]}
		w.pool = w.pool[1:]
	}
	return w, nil
}

// CurrentPlayer returns whose turn it is.
func (w *Winston) CurrentPlayer() string { return w.players[w.turn] }

// Players returns both seat holders in seating order.
func (w *Winston) Players() [2]string { return w.players }

// HasPlayer reports whether the given user holds one of the two seats.
func (w *Winston) HasPlayer(player string) bool {
	return w.players[0] == player || w.players[1] == player
}

// CurrentPile returns the pile currently offered (0..2).
func (w *Winston) CurrentPile() int { return w.currentPile }

// Ended reports whether the draft is over.
func (w *Winston) Ended() bool { return w.ended }

// Pause freezes the draft while a player is away; Take and Skip are
// refused until Resume.
func (w *Winston) Pause() { w.paused = true }

// Resume lifts a pause.
func (w *Winston) Resume() { w.paused = false }

// Paused reports whether the draft is frozen.
func (w *Winston) Paused() bool { return w.paused }

// Picked returns a player's picks.
func (w *Winston) Picked(player string) []catalog.CardID { return w.picked[player] }

// PileSizes reports the current size of each pile, for state sync events.
func (w *Winston) PileSizes() [3]int {
	return [3]int{len(w.piles[0]), len(w.piles[1]), len(w.piles[2])}
}

// PoolRemaining reports how many cards are left undealt.
func (w *Winston) PoolRemaining() int { return len(w.pool) }

// TakeResult describes a successful take.
type TakeResult struct {
	Cards      []catalog.CardID
	NextPlayer string
	Ended      bool
}

// Take gives the offered pile to the current player.
func (w *Winston) Take(player string) (*TakeResult, error) {
	if err := w.checkTurn(player); err != nil {
		return nil, err
	}
	pile := w.piles[w.currentPile]
	if len(pile) == 0 {
		return nil, fmt.Errorf("pile %d is empty", w.currentPile)
	}
	w.picked[player] = append(w.picked[player], pile...)
	w.piles[w.currentPile] = nil
	if len(w.pool) > 0 {
		w.piles[w.currentPile] = []catalog.CardID{w.pool[0]}
		w.pool = w.pool[1:]
	}
	res := &TakeResult{Cards: pile}
	w.nextRound(res)
	return res, nil
}

// SkipResult describes a skip. RandomCard is set when the last pile was
// skipped and the pool's top card went straight to the player.
type SkipResult struct {
	RandomCard catalog.CardID
	GotRandom  bool
	NextPlayer string
	Ended      bool
}

// Skip declines the offered pile. Guarded so the player always has a real
// choice left: the last pile cannot be skipped once the pool is empty.
func (w *Winston) Skip(player string) (*SkipResult, error) {
	if err := w.checkTurn(player); err != nil {
		return nil, err
	}
	if w.currentPile == 2 && len(w.pool) == 0 {
		return nil, fmt.Errorf("cannot skip the last pile with an empty pool")
	}
	res := &SkipResult{}
	w.skip(res)
	return res, nil
}

func (w *Winston) skip(res *SkipResult) {
	if len(w.pool) > 0 {
		w.piles[w.currentPile] = append(w.piles[w.currentPile], w.pool[0])
		w.pool = w.pool[1:]
	}
	if w.currentPile < 2 {
		w.currentPile++
		if len(w.piles[w.currentPile]) == 0 {
			// Nothing to look at here; skip onward.
			w.skip(res)
		}
		return
	}
	// Skipped the last pile: the player draws blind from the pool.
	if len(w.pool) > 0 {
		res.RandomCard = w.pool[0]
		res.GotRandom = true
		w.picked[w.players[w.turn]] = append(w.picked[w.players[w.turn]], w.pool[0])
		w.pool = w.pool[1:]
	}
	tr := &TakeResult{}
	w.nextRound(tr)
	res.NextPlayer = tr.NextPlayer
	res.Ended = tr.Ended
}

func (w *Winston) nextRound(res *TakeResult) {
	w.turn = 1 - w.turn
	w.currentPile = 0
	if len(w.piles[0]) == 0 && len(w.piles[1]) == 0 && len(w.piles[2]) == 0 {
		w.ended = true
		res.Ended = true
		return
	}
	// Do not offer an empty leading pile.
	for w.currentPile < 2 && len(w.piles[w.currentPile]) == 0 {
		w.currentPile++
	}
	res.NextPlayer = w.players[w.turn]
}

func (w *Winston) checkTurn(player string) error {
	if w.ended {
		return fmt.Errorf("winston draft already ended")
	}
	if w.paused {
		return fmt.Errorf("winston draft is paused")
	}
	if w.players[w.turn] != player {
		return fmt.Errorf("not %s's turn", player)
	}
	return nil
}
