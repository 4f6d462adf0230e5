package booster

import (
	"fmt"
	"math/rand"

	"github.com/draftforge/draftforge/pkg/catalog"
)

// Booster is an ordered list of cards handed to one participant for one pick
// round.
type Booster []catalog.CardID

// Clone returns a copy safe to hand to another goroutine.
func (b Booster) Clone() Booster {
	out := make(Booster, len(b))
	copy(out, b)
	return out
}

// ShortageError reports that the card pool cannot satisfy the slot targets
// for the requested number of packs. It is the only retryable generation
// failure: the owner fixes the options and tries again.
type ShortageError struct {
	Rarity    catalog.Rarity
	Needed    int
	Available int
}

func (e *ShortageError) Error() string {
	return fmt.Sprintf("not enough %s cards: need %d, have %d", e.Rarity, e.Needed, e.Available)
}

// Foil slot odds.
const (
	foilChance       = 15.0 / 63.0
	mythicFoilChance = 1.0 / 128.0
	rareFoilChance   = 8.0 / 128.0
	uncoFoilChance   = 4.0 / 16.0
	mythicPromotion  = 1.0 / 8.0
)

// Generator produces booster packs from the catalog. All randomness comes
// from the injected source so tests can pin exact outputs.
type Generator struct {
	cat *catalog.Catalog
	rng *rand.Rand
}

// NewGenerator returns a generator drawing from cat with rng.
func NewGenerator(cat *catalog.Catalog, rng *rand.Rand) *Generator {
	return &Generator{cat: cat, rng: rng}
}

// EffectiveCollection computes the pool packs are drawn from: the custom
// list when one is in use, otherwise the per-card minimum across the given
// player collections, otherwise the whole inBooster catalog capped at
// maxDuplicates per rarity. Callers pass only the collections of players
// who opted in with a non-empty collection.
func (g *Generator) EffectiveCollection(collections []map[catalog.CardID]int, opts Options) map[catalog.CardID]int {
	if opts.UseCustomCardList && opts.CustomCardList != nil {
		return opts.CustomCardList.bag()
	}
	if opts.IgnoreCollections || len(collections) == 0 {
		pool := make(map[catalog.CardID]int)
		for _, id := range g.cat.BoosterCards() {
			card := g.cat.Cards[id]
			pool[id] = opts.maxDuplicatesFor(card.Rarity)
		}
		return pool
	}
	pool := make(map[catalog.CardID]int)
	for id, n := range collections[0] {
		card, ok := g.cat.Card(id)
		if !ok || !card.InBooster {
			continue
		}
		min := n
		for _, other := range collections[1:] {
			if other[id] < min {
				min = other[id]
			}
		}
		if min > 0 {
			pool[id] = min
		}
	}
	return pool
}

// Generate produces quantity packs from the given pool under opts. The pool
// is consumed: a second call needs a fresh pool.
func (g *Generator) Generate(pool map[catalog.CardID]int, opts Options, quantity int) ([]Booster, error) {
	if opts.UseCustomCardList && opts.CustomCardList != nil {
		return g.generateCustom(opts.CustomCardList, opts, quantity)
	}
	return g.generateStandard(pool, opts, quantity)
}

func (g *Generator) generateStandard(pool map[catalog.CardID]int, opts Options, quantity int) ([]Booster, error) {
	// Bucket the pool by rarity, dropping cards outside the set restriction
	// or above the rarity ceiling.
	maxRarity := opts.MaxRarity
	if !maxRarity.Valid() {
		maxRarity = catalog.RarityMythic
	}
	buckets := make(map[catalog.Rarity]map[catalog.CardID]int)
	for _, r := range catalog.Rarities {
		buckets[r] = make(map[catalog.CardID]int)
	}
	for id, n := range pool {
		card, ok := g.cat.Card(id)
		if !ok || n <= 0 {
			continue
		}
		if !opts.restrictedTo(card.Set) {
			continue
		}
		if !card.Rarity.AtMost(maxRarity) {
			continue
		}
		buckets[card.Rarity][id] = n
	}

	// A single-set restriction may carry a dedicated land slot; it claims its
	// lands from the common pool before the bags are built.
	var slot *catalog.LandPicker
	if len(opts.SetRestriction) == 1 {
		if ls, ok := g.cat.LandSlots[opts.SetRestriction[0]]; ok {
			slot = ls.Setup(buckets[catalog.RarityCommon], g.cat)
		}
	}

	commons := NewBag(buckets[catalog.RarityCommon])
	uncommons := NewBag(buckets[catalog.RarityUncommon])
	rares := NewBag(buckets[catalog.RarityRare])
	mythics := NewBag(buckets[catalog.RarityMythic])

	tg := targetsFor(maxRarity)
	if err := checkSupply(catalog.RarityCommon, commons.Total(), tg.common*quantity); err != nil {
		return nil, err
	}
	if err := checkSupply(catalog.RarityUncommon, uncommons.Total(), tg.uncommon*quantity); err != nil {
		return nil, err
	}
	rareSupply := rares.Total()
	if maxRarity == catalog.RarityMythic {
		rareSupply += mythics.Total()
	}
	if err := checkSupply(catalog.RarityRare, rareSupply, tg.rare*quantity); err != nil {
		return nil, err
	}

	bagFor := func(r catalog.Rarity) *Bag {
		switch r {
		case catalog.RarityMythic:
			return mythics
		case catalog.RarityRare:
			return rares
		case catalog.RarityUncommon:
			return uncommons
		}
		return commons
	}

	packs := make([]Booster, 0, quantity)
	for i := 0; i < quantity; i++ {
		pack := make(Booster, 0, 16)
		foils := 0

		if opts.Foil && g.rng.Float64() < foilChance {
			r := g.rollFoilRarity()
			if id, ok := bagFor(r).Draw(g.rng); ok {
				pack = append(pack, id)
				foils++
			}
		}

		for s := 0; s < tg.rare; s++ {
			drawn := false
			if maxRarity == catalog.RarityMythic && mythics.Total() > 0 && g.rng.Float64() < mythicPromotion {
				if id, ok := mythics.Draw(g.rng); ok {
					pack = append(pack, id)
					drawn = true
				}
			}
			if !drawn {
				id, ok := rares.Draw(g.rng)
				if !ok {
					// Promotion already drained the rares; fall back to mythics.
					id, ok = mythics.Draw(g.rng)
					if !ok {
						return nil, &ShortageError{Rarity: catalog.RarityRare, Needed: 1, Available: 0}
					}
				}
				pack = append(pack, id)
			}
		}

		for s := 0; s < tg.uncommon; s++ {
			id, ok := uncommons.Draw(g.rng)
			if !ok {
				return nil, &ShortageError{Rarity: catalog.RarityUncommon, Needed: 1, Available: 0}
			}
			pack = append(pack, id)
		}

		block, err := g.drawCommons(commons, tg.common-foils, opts.ColorBalance)
		if err != nil {
			return nil, err
		}
		pack = append(pack, block...)

		if slot != nil {
			if id, ok := slot.Pick(g.rng); ok {
				pack = append(pack, id)
			}
		}

		packs = append(packs, pack)
	}
	return packs, nil
}

// drawCommons fills the common block. With color balancing on, one common of
// each mono color is drawn first when the pool still has one, then the block
// is topped up and shuffled so the balanced picks don't sit in a fixed
// position.
func (g *Generator) drawCommons(commons *Bag, count int, balance bool) ([]catalog.CardID, error) {
	block := make([]catalog.CardID, 0, count)
	if balance {
		for _, color := range catalog.WUBRG {
			if len(block) >= count {
				break
			}
			c := color
			id, ok := commons.DrawMatching(g.rng, func(id catalog.CardID) bool {
				return g.cat.Cards[id].ColorIdentity == c
			})
			if ok {
				block = append(block, id)
			}
		}
	}
	for len(block) < count {
		id, ok := commons.Draw(g.rng)
		if !ok {
			return nil, &ShortageError{Rarity: catalog.RarityCommon, Needed: count, Available: len(block)}
		}
		block = append(block, id)
	}
	g.rng.Shuffle(len(block), func(i, j int) { block[i], block[j] = block[j], block[i] })
	return block, nil
}

func (g *Generator) rollFoilRarity() catalog.Rarity {
	roll := g.rng.Float64()
	switch {
	case roll < mythicFoilChance:
		return catalog.RarityMythic
	case roll < mythicFoilChance+rareFoilChance:
		return catalog.RarityRare
	case roll < mythicFoilChance+rareFoilChance+uncoFoilChance:
		return catalog.RarityUncommon
	}
	return catalog.RarityCommon
}

func checkSupply(r catalog.Rarity, available, needed int) error {
	if needed > 0 && available < needed {
		return &ShortageError{Rarity: r, Needed: needed, Available: available}
	}
	return nil
}

// GenerateDraftBoosters produces the full pack sequence for a traditional
// draft: rounds * players packs, laid out round-major so that positions
// [round*players, (round+1)*players) drain together. Per-round custom
// boosters override the set restriction for that round; the distribution
// mode then reorders the result.
func (g *Generator) GenerateDraftBoosters(collections []map[catalog.CardID]int, opts Options, players, rounds int) ([]Booster, error) {
	useCustomRounds := false
	for i := 0; i < rounds && i < len(opts.CustomBoosters); i++ {
		if opts.CustomBoosters[i] != "" {
			useCustomRounds = true
			break
		}
	}

	var packs []Booster
	if !useCustomRounds {
		pool := g.EffectiveCollection(collections, opts)
		all, err := g.Generate(pool, opts, players*rounds)
		if err != nil {
			return nil, err
		}
		packs = all
	} else {
		packs = make([]Booster, 0, players*rounds)
		for round := 0; round < rounds; round++ {
			roundOpts := opts
			if round < len(opts.CustomBoosters) && opts.CustomBoosters[round] != "" {
				roundOpts.SetRestriction = []string{opts.CustomBoosters[round]}
				roundOpts.UseCustomCardList = false
				roundOpts.CustomCardList = nil
			}
			pool := g.EffectiveCollection(collections, roundOpts)
			roundPacks, err := g.Generate(pool, roundOpts, players)
			if err != nil {
				return nil, err
			}
			packs = append(packs, roundPacks...)
		}
	}

	switch opts.DistributionMode {
	case DistributionShufflePlayerBoosters:
		// Shuffle each player's personal stack across rounds.
		for p := 0; p < players; p++ {
			g.rng.Shuffle(rounds, func(i, j int) {
				packs[i*players+p], packs[j*players+p] = packs[j*players+p], packs[i*players+p]
			})
		}
	case DistributionShuffleBoosterPool:
		g.rng.Shuffle(len(packs), func(i, j int) {
			packs[i], packs[j] = packs[j], packs[i]
		})
	}
	return packs, nil
}
