package bot

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/draftforge/draftforge/pkg/booster"
	"github.com/draftforge/draftforge/pkg/catalog"
)

func testCatalog() *catalog.Catalog {
	return catalog.New([]catalog.Card{
		{ID: 1, Set: "thb", Rarity: catalog.RarityMythic, ColorIdentity: catalog.ColorRed, InBooster: true},
		{ID: 2, Set: "thb", Rarity: catalog.RarityRare, ColorIdentity: catalog.ColorBlue, InBooster: true},
		{ID: 3, Set: "thb", Rarity: catalog.RarityUncommon, ColorIdentity: catalog.ColorRed, InBooster: true},
		{ID: 4, Set: "thb", Rarity: catalog.RarityCommon, ColorIdentity: catalog.ColorRed, InBooster: true},
		{ID: 5, Set: "thb", Rarity: catalog.RarityCommon, ColorIdentity: catalog.ColorGreen, InBooster: true},
		{ID: 6, Set: "thb", Rarity: catalog.RarityCommon, ColorIdentity: catalog.ColorColorless, InBooster: true},
	})
}

func TestPickPrefersHigherRarity(t *testing.T) {
	b := New(testCatalog(), "owner", 0)
	pack := booster.Booster{4, 3, 1, 5}
	idx := b.Pick(pack)
	// Mythic outscores everything else by more than the jitter range.
	assert.Equal(t, 2, idx)
	assert.Equal(t, []catalog.CardID{1}, b.Cards)
}

func TestBurnPicksWorstCard(t *testing.T) {
	b := New(testCatalog(), "owner", 0)
	pack := booster.Booster{1, 2, 4}
	idx := b.Burn(pack)
	assert.Equal(t, 2, idx)
	assert.Empty(t, b.Cards, "burns are not recorded")
}

func TestColorCommitmentShapesPicks(t *testing.T) {
	b := New(testCatalog(), "owner", 1)
	// Commit hard to red.
	b.Feed([]catalog.CardID{4, 4, 4, 4, 4, 4})
	require.Equal(t, 6, len(b.Cards))

	// Red common (2 + 6*0.35 = 4.1) now beats the green common (2) by more
	// than the jitter.
	pack := booster.Booster{5, 4}
	assert.Equal(t, 1, b.Pick(pack))
}

func TestSameSeatSamePicks(t *testing.T) {
	pack := booster.Booster{4, 5, 6, 3}
	a := New(testCatalog(), "session1", 2)
	b := New(testCatalog(), "session1", 2)
	for i := 0; i < 3; i++ {
		ia := a.Pick(pack)
		ib := b.Pick(pack)
		assert.Equal(t, ia, ib)
	}
}

func TestDifferentSeatsDifferentIdentity(t *testing.T) {
	a := New(testCatalog(), "session1", 0)
	b := New(testCatalog(), "session1", 1)
	assert.NotEqual(t, a.ID, b.ID)
	assert.Equal(t, "bot_0", a.ID)
	assert.Equal(t, "Bot #2", b.Name)
}
