// Package bot implements the server-side draft bot: a deterministic
// pick/burn policy seeded from the seat it occupies, so reconnect-driven
// rebuilds replay the exact same choices.
package bot

import (
	"fmt"
	"hash/fnv"
	"math/rand"

	"github.com/draftforge/draftforge/pkg/booster"
	"github.com/draftforge/draftforge/pkg/catalog"
)

// Bot drafts from boosters on behalf of a seat. Not safe for concurrent
// use; the owning session serializes all calls.
type Bot struct {
	ID    string
	Name  string
	Cards []catalog.CardID

	cat    *catalog.Catalog
	rng    *rand.Rand
	colors map[catalog.Color]int
}

// New creates a bot for the given seat. The RNG seed derives from the owner
// user ID and seat index, which keeps the policy stable across reconnects.
func New(cat *catalog.Catalog, ownerID string, index int) *Bot {
	h := fnv.New64a()
	fmt.Fprintf(h, "%s/%d", ownerID, index)
	return &Bot{
		ID:     fmt.Sprintf("bot_%d", index),
		Name:   fmt.Sprintf("Bot #%d", index+1),
		cat:    cat,
		rng:    rand.New(rand.NewSource(int64(h.Sum64()))),
		colors: make(map[catalog.Color]int),
	}
}

// Pick chooses a card from the booster, records it, and returns its index.
func (b *Bot) Pick(pack booster.Booster) int {
	idx := b.bestIndex(pack)
	b.record(pack[idx])
	return idx
}

// Burn returns the index of the card the bot is most willing to discard.
// It never records the card, so a Pick on the same booster in the same
// round cannot return the same choice twice (the caller removes each
// returned index before the next call).
func (b *Bot) Burn(pack booster.Booster) int {
	if len(pack) == 1 {
		return 0
	}
	worst := 0
	worstScore := b.score(pack[0])
	for i := 1; i < len(pack); i++ {
		if s := b.score(pack[i]); s < worstScore {
			worst, worstScore = i, s
		}
	}
	return worst
}

// Feed replays a card list through the pick bookkeeping. Used when a bot
// substitutes for a disconnected human: the human's prior picks shape the
// bot's color commitments.
func (b *Bot) Feed(cards []catalog.CardID) {
	for _, id := range cards {
		b.record(id)
	}
}

func (b *Bot) record(id catalog.CardID) {
	b.Cards = append(b.Cards, id)
	if card, ok := b.cat.Card(id); ok {
		if card.ColorIdentity != catalog.ColorColorless && card.ColorIdentity != catalog.ColorMulti {
			b.colors[card.ColorIdentity]++
		}
	}
}

func (b *Bot) bestIndex(pack booster.Booster) int {
	best := 0
	bestScore := -1.0
	for i, id := range pack {
		// Small jitter keeps equal-scored cards from always resolving to the
		// lowest index while staying deterministic per instance.
		s := b.score(id) + b.rng.Float64()*0.1
		if s > bestScore {
			best, bestScore = i, s
		}
	}
	return best
}

// score rates a card by rarity with a bonus for the colors the bot has
// already committed to.
func (b *Bot) score(id catalog.CardID) float64 {
	card, ok := b.cat.Card(id)
	if !ok {
		return 0
	}
	s := rarityScore(card.Rarity)
	switch card.ColorIdentity {
	case catalog.ColorColorless:
		s += 0.5
	case catalog.ColorMulti:
		// Multicolor cards are risky early and fine late; flat small bonus.
		s += 0.25
	default:
		commit := b.colors[card.ColorIdentity]
		if commit > 6 {
			commit = 6
		}
		s += float64(commit) * 0.35
	}
	return s
}

func rarityScore(r catalog.Rarity) float64 {
	switch r {
	case catalog.RarityMythic:
		return 5
	case catalog.RarityRare:
		return 4.5
	case catalog.RarityUncommon:
		return 3
	default:
		return 2
	}
}
