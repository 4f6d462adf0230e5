package draft

import (
	"fmt"

	"github.com/draftforge/draftforge/pkg/booster"
	"github.com/draftforge/draftforge/pkg/bot"
	"github.com/draftforge/draftforge/pkg/catalog"
)

// Seat is one virtual player position at the table. Humans have a UserID;
// pure bots have only Bot; a disconnected human who was replaced has both.
type Seat struct {
	UserID string
	Bot    *bot.Bot

	Picked          []catalog.CardID
	PickedThisRound bool
	BoosterIndex    int
}

// Human reports whether the seat was dealt to a human participant.
func (s *Seat) Human() bool { return s.UserID != "" }

// BotRun reports whether a bot currently makes this seat's picks.
func (s *Seat) BotRun() bool { return s.Bot != nil }

// Delivery tells the session to hand a booster to a human.
type Delivery struct {
	UserID        string
	Booster       booster.Booster
	BoosterNumber int
	PickNumber    int
}

// Traditional is the rotation draft: every virtual player holds one pack
// per round, picks one card (plus burns), and the packs rotate, flipping
// direction on every other pack.
type Traditional struct {
	phase         Phase
	seats         []*Seat
	boosters      []booster.Booster
	packNumber    int
	pickNumber    int
	burnsPerRound int
	log           *Log
}

// NewTraditional builds a draft over the given seats and pack sequence.
// len(boosters) must be a multiple of len(seats).
func NewTraditional(seats []*Seat, boosters []booster.Booster, burnsPerRound int, log *Log) (*Traditional, error) {
	if len(seats) < 2 {
		return nil, fmt.Errorf("draft needs at least 2 virtual players, have %d", len(seats))
	}
	if len(boosters) == 0 || len(boosters)%len(seats) != 0 {
		return nil, fmt.Errorf("booster count %d is not a positive multiple of %d seats", len(boosters), len(seats))
	}
	return &Traditional{
		phase:         PhasePreparing,
		seats:         seats,
		boosters:      boosters,
		burnsPerRound: burnsPerRound,
		log:           log,
	}, nil
}

func (d *Traditional) Phase() Phase        { return d.phase }
func (d *Traditional) Seats() []*Seat      { return d.seats }
func (d *Traditional) PackNumber() int     { return d.packNumber }
func (d *Traditional) PickNumber() int     { return d.pickNumber }
func (d *Traditional) Log() *Log           { return d.log }
func (d *Traditional) BurnsPerRound() int  { return d.burnsPerRound }
func (d *Traditional) RemainingPacks() int { return len(d.boosters) }

// Seat returns the seat occupied by the given user.
func (d *Traditional) Seat(userID string) *Seat {
	for _, s := range d.seats {
		if s.UserID == userID {
			return s
		}
	}
	return nil
}

// Pause freezes the draft after a disconnect. Picks from still-connected
// players are accepted, but the round cannot advance until Resume.
func (d *Traditional) Pause() {
	if d.phase == PhaseInRound || d.phase == PhaseBetweenRounds {
		d.phase = PhasePaused
	}
}

// Resume lifts a pause. The caller follows up with TryAdvance in case the
// round completed while frozen.
func (d *Traditional) Resume() {
	if d.phase == PhasePaused {
		d.phase = PhaseInRound
	}
}

// Start deals the first round. Returns the deliveries for human seats.
func (d *Traditional) Start() []Delivery {
	d.phase = PhaseInRound
	return d.startRound()
}

// startRound assigns every seat its booster for this pick and lets bot-run
// seats pick immediately.
func (d *Traditional) startRound() []Delivery {
	v := len(d.seats)
	offset := d.pickNumber
	if d.packNumber%2 == 0 {
		offset = -d.pickNumber
	}
	var deliveries []Delivery
	for p, seat := range d.seats {
		seat.BoosterIndex = negMod(offset+p, v)
		seat.PickedThisRound = false
		pack := d.boosters[seat.BoosterIndex]
		if len(pack) == 0 {
			// Uneven pack sizes only happen with hand-crafted custom lists;
			// a seat with nothing left to pick sits the round out.
			seat.PickedThisRound = true
			continue
		}
		if seat.BotRun() {
			d.botPick(seat)
			continue
		}
		deliveries = append(deliveries, Delivery{
			UserID:        seat.UserID,
			Booster:       pack.Clone(),
			BoosterNumber: d.packNumber,
			PickNumber:    d.pickNumber,
		})
	}
	return deliveries
}

// botPick makes the seat's bot pick and burn from its assigned booster.
func (d *Traditional) botPick(seat *Seat) {
	pack := d.boosters[seat.BoosterIndex]
	snapshot := pack.Clone()

	idx := seat.Bot.Pick(pack)
	picked := pack[idx]
	pack = removeAt(pack, idx)
	seat.Picked = append(seat.Picked, picked)

	var burned []catalog.CardID
	for i := 0; i < d.burnsPerRound && len(pack) > 0; i++ {
		bi := seat.Bot.Burn(pack)
		burned = append(burned, pack[bi])
		pack = removeAt(pack, bi)
	}
	d.boosters[seat.BoosterIndex] = pack
	seat.PickedThisRound = true
	d.logPick(seat, picked, burned, snapshot)
}

// Pick validates and applies a human pick. It does not advance the round;
// the caller invokes TryAdvance afterwards so it can fan out the update
// event first.
func (d *Traditional) Pick(userID string, card catalog.CardID, burned []catalog.CardID) error {
	if d.phase != PhaseInRound && d.phase != PhasePaused {
		return fmt.Errorf("draft is not in a pick round")
	}
	seat := d.Seat(userID)
	if seat == nil {
		return fmt.Errorf("user %s has no seat in this draft", userID)
	}
	if seat.BotRun() {
		return fmt.Errorf("seat is bot-controlled")
	}
	if seat.PickedThisRound {
		return fmt.Errorf("already picked this round")
	}
	if seat.BoosterIndex < 0 || seat.BoosterIndex >= len(d.boosters) {
		return fmt.Errorf("booster index %d out of range", seat.BoosterIndex)
	}
	pack := d.boosters[seat.BoosterIndex]
	if indexOf(pack, card) < 0 {
		return fmt.Errorf("card %d is not in the booster", card)
	}
	expectedBurns := d.burnsPerRound
	if len(pack)-1 < expectedBurns {
		expectedBurns = len(pack) - 1
	}
	if len(burned) != expectedBurns {
		return fmt.Errorf("expected %d burned cards, got %d", expectedBurns, len(burned))
	}

	// Validate burns against a working copy so a bad list mutates nothing.
	work := pack.Clone()
	work = removeAt(work, indexOf(work, card))
	for _, b := range burned {
		i := indexOf(work, b)
		if i < 0 {
			return fmt.Errorf("burned card %d is not in the booster", b)
		}
		work = removeAt(work, i)
	}

	snapshot := pack.Clone()
	d.boosters[seat.BoosterIndex] = work
	seat.Picked = append(seat.Picked, card)
	seat.PickedThisRound = true
	d.logPick(seat, card, burned, snapshot)
	return nil
}

// Substitute hands a human seat to a bot. If the seat still owes a pick
// this round, the bot picks immediately.
func (d *Traditional) Substitute(userID string, b *bot.Bot) error {
	seat := d.Seat(userID)
	if seat == nil {
		return fmt.Errorf("user %s has no seat in this draft", userID)
	}
	seat.Bot = b
	if d.phase.Active() && !seat.PickedThisRound &&
		seat.BoosterIndex >= 0 && seat.BoosterIndex < len(d.boosters) &&
		len(d.boosters[seat.BoosterIndex]) > 0 {
		d.botPick(seat)
	}
	return nil
}

// Release returns a substituted seat to its human.
func (d *Traditional) Release(userID string) {
	if seat := d.Seat(userID); seat != nil {
		seat.Bot = nil
	}
}

// CurrentDelivery rebuilds the booster hand-off for a seat mid-round, used
// when a reconnecting player needs the current pack again.
func (d *Traditional) CurrentDelivery(userID string) *Delivery {
	seat := d.Seat(userID)
	if seat == nil || !d.phase.Active() {
		return nil
	}
	if seat.BoosterIndex < 0 || seat.BoosterIndex >= len(d.boosters) {
		return nil
	}
	return &Delivery{
		UserID:        seat.UserID,
		Booster:       d.boosters[seat.BoosterIndex].Clone(),
		BoosterNumber: d.packNumber,
		PickNumber:    d.pickNumber,
	}
}

// AdvanceResult describes what happened after a completed round.
type AdvanceResult struct {
	Deliveries []Delivery
	NewPack    bool
	Ended      bool
}

// TryAdvance moves to the next pick once every seat has picked. Returns nil
// while the round is still open or the draft is paused.
func (d *Traditional) TryAdvance() *AdvanceResult {
	if d.phase != PhaseInRound {
		return nil
	}
	for _, seat := range d.seats {
		if !seat.PickedThisRound {
			return nil
		}
	}
	v := len(d.seats)
	d.pickNumber++
	if d.roundPacksEmpty() {
		d.boosters = d.boosters[v:]
		d.packNumber++
		d.pickNumber = 0
		if len(d.boosters) == 0 {
			d.phase = PhaseEnded
			d.finishLog()
			return &AdvanceResult{Ended: true}
		}
		d.phase = PhaseBetweenRounds
		deliveries := d.startRound()
		d.phase = PhaseInRound
		return &AdvanceResult{Deliveries: deliveries, NewPack: true}
	}
	return &AdvanceResult{Deliveries: d.startRound()}
}

func (d *Traditional) roundPacksEmpty() bool {
	for p := 0; p < len(d.seats); p++ {
		if len(d.boosters[p]) > 0 {
			return false
		}
	}
	return true
}

func (d *Traditional) logPick(seat *Seat, pick catalog.CardID, burned []catalog.CardID, before booster.Booster) {
	if d.log == nil {
		return
	}
	key := seat.UserID
	if key == "" {
		key = seat.Bot.ID
	}
	sl, ok := d.log.Users[key]
	if !ok {
		return
	}
	sl.Picks = append(sl.Picks, LogEntry{Pick: pick, Burn: burned, Booster: before})
}

func (d *Traditional) finishLog() {
	if d.log == nil {
		return
	}
	for _, seat := range d.seats {
		key := seat.UserID
		if key == "" {
			key = seat.Bot.ID
		}
		if sl, ok := d.log.Users[key]; ok {
			sl.Cards = append([]catalog.CardID(nil), seat.Picked...)
		}
	}
}

func indexOf(pack booster.Booster, card catalog.CardID) int {
	for i, id := range pack {
		if id == card {
			return i
		}
	}
	return -1
}

func removeAt(pack booster.Booster, i int) booster.Booster {
	return append(pack[:i], pack[i+1:]...)
}
