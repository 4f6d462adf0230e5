package booster

import (
	"math/rand"
	"sort"

	"github.com/draftforge/draftforge/pkg/catalog"
)

// Bag is a multiset of cards that draws decrement. Iteration order is fixed
// by sorted card ID so that the same seed always produces the same draws.
type Bag struct {
	ids    []catalog.CardID
	counts map[catalog.CardID]int
	total  int
}

// NewBag builds a bag from a card -> count map.
func NewBag(counts map[catalog.CardID]int) *Bag {
	b := &Bag{counts: make(map[catalog.CardID]int, len(counts))}
	for id, n := range counts {
		if n <= 0 {
			continue
		}
		b.ids = append(b.ids, id)
		b.counts[id] = n
		b.total += n
	}
	sort.Slice(b.ids, func(i, j int) bool { return b.ids[i] < b.ids[j] })
	return b
}

// Total returns the number of copies remaining.
func (b *Bag) Total() int { return b.total }

// Count returns the remaining copies of one card.
func (b *Bag) Count(id catalog.CardID) int { return b.counts[id] }

// Draw removes and returns one copy chosen uniformly over the remaining
// copies.
func (b *Bag) Draw(rng *rand.Rand) (catalog.CardID, bool) {
	return b.DrawMatching(rng, nil)
}

// DrawMatching draws uniformly over the remaining copies of cards accepted
// by the filter. A nil filter accepts everything.
func (b *Bag) DrawMatching(rng *rand.Rand, match func(catalog.CardID) bool) (catalog.CardID, bool) {
	eligible := b.total
	if match != nil {
		eligible = 0
		for _, id := range b.ids {
			if b.counts[id] > 0 && match(id) {
				eligible += b.counts[id]
			}
		}
	}
	if eligible == 0 {
		return 0, false
	}
	k := rng.Intn(eligible)
	for _, id := range b.ids {
		n := b.counts[id]
		if n == 0 || (match != nil && !match(id)) {
			continue
		}
		if k < n {
			b.counts[id] = n - 1
			b.total--
			return id, true
		}
		k -= n
	}
	// Unreachable while counts and total agree.
	return 0, false
}
