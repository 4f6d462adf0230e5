package catalog

import (
	"math/rand"
	"sort"
	"strings"
)

// landSlotSets names the sets whose boosters carry a dedicated land slot and
// how that slot is filled. Gate and dual-land slots consume their cards from
// the common pool during Setup; basic-land slots draw from the set's basics
// without touching the pool.
var landSlotSets = map[string]landSlotKind{
	"grn": landSlotGates,
	"rna": landSlotGates,
	"m19": landSlotDuals,
	"m20": landSlotDuals,
	"iko": landSlotDuals,
	"thb": landSlotBasics,
	"znr": landSlotBasics,
}

type landSlotKind int

const (
	landSlotBasics landSlotKind = iota
	landSlotGates
	landSlotDuals
)

// LandSlot describes one set's dedicated land slot. Immutable after the
// catalog is built; per-generation state lives in the LandPicker that
// Setup returns, so concurrent sessions can share one catalog.
type LandSlot struct {
	Set  string
	kind landSlotKind
}

// registerLandSlots scans the catalog for sets with a land slot and builds
// their slot tables.
func (c *Catalog) registerLandSlots() {
	for _, set := range c.SetList {
		kind, ok := landSlotSets[set]
		if !ok {
			continue
		}
		c.LandSlots[set] = &LandSlot{Set: set, kind: kind}
	}
}

// LandPicker draws lands for one generation run's land slot.
type LandPicker struct {
	lands []CardID
}

// Setup resolves the land list for one generation run. Gate and dual-land
// slots remove their lands from the supplied commons pool so they cannot
// also show up in the common block of the same pack. The slot itself is
// never written, only the returned picker.
func (ls *LandSlot) Setup(commons map[CardID]int, cat *Catalog) *LandPicker {
	var lands []CardID
	switch ls.kind {
	case landSlotGates, landSlotDuals:
		for id, count := range commons {
			card, ok := cat.Card(id)
			if !ok || card.Set != ls.Set || count <= 0 {
				continue
			}
			if ls.matches(card) {
				lands = append(lands, id)
				delete(commons, id)
			}
		}
	case landSlotBasics:
		for id, card := range cat.Cards {
			if card.Set == ls.Set && isBasicLand(card) {
				lands = append(lands, id)
			}
		}
	}
	sort.Slice(lands, func(i, j int) bool { return lands[i] < lands[j] })
	return &LandPicker{lands: lands}
}

func (ls *LandSlot) matches(card Card) bool {
	switch ls.kind {
	case landSlotGates:
		return strings.Contains(card.Type, "Gate")
	case landSlotDuals:
		return strings.Contains(card.Type, "Land") && !isBasicLand(card)
	}
	return false
}

func isBasicLand(card Card) bool {
	return strings.HasPrefix(card.Type, "Basic Land")
}

// Pick returns one land for a pack's land slot, or false when the set has no
// eligible lands at all.
func (lp *LandPicker) Pick(rng *rand.Rand) (CardID, bool) {
	if len(lp.lands) == 0 {
		return 0, false
	}
	return lp.lands[rng.Intn(len(lp.lands))], true
}
