package catalog

import (
	"encoding/json"
	"math/rand"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewDerivesSetListInFirstSeenOrder(t *testing.T) {
	cat := New([]Card{
		{ID: 1, Set: "eld", Rarity: RarityCommon, InBooster: true},
		{ID: 2, Set: "thb", Rarity: RarityCommon, InBooster: true},
		{ID: 3, Set: "eld", Rarity: RarityRare, InBooster: true},
		{ID: 4, Set: "iko", Rarity: RarityMythic, InBooster: true},
	})
	assert.Equal(t, []string{"eld", "thb", "iko"}, cat.SetList)
	assert.True(t, cat.HasSet("thb"))
	assert.False(t, cat.HasSet("znr"))
}

func TestBoosterCardsSortedAndFiltered(t *testing.T) {
	cat := New([]Card{
		{ID: 30, Set: "eld", Rarity: RarityCommon, InBooster: true},
		{ID: 10, Set: "eld", Rarity: RarityCommon, InBooster: true},
		{ID: 20, Set: "eld", Rarity: RarityCommon, InBooster: false},
	})
	assert.Equal(t, []CardID{10, 30}, cat.BoosterCards())
}

func TestRarityAtMost(t *testing.T) {
	assert.True(t, RarityCommon.AtMost(RarityCommon))
	assert.True(t, RarityRare.AtMost(RarityMythic))
	assert.False(t, RarityMythic.AtMost(RarityRare))
	assert.False(t, RarityRare.AtMost(RarityUncommon))
}

func TestLandSlotRegistration(t *testing.T) {
	cat := New([]Card{
		{ID: 1, Set: "thb", Rarity: RarityCommon, InBooster: true},
		{ID: 2, Set: "thb", Rarity: RarityCommon, Type: "Basic Land - Island"},
		{ID: 3, Set: "eld", Rarity: RarityCommon, InBooster: true},
	})
	require.Contains(t, cat.LandSlots, "thb")
	assert.NotContains(t, cat.LandSlots, "eld")
}

func TestBasicLandSlotDrawsBasics(t *testing.T) {
	cat := New([]Card{
		{ID: 1, Set: "thb", Rarity: RarityCommon, InBooster: true, Type: "Creature"},
		{ID: 2, Set: "thb", Rarity: RarityCommon, Type: "Basic Land - Island"},
		{ID: 3, Set: "thb", Rarity: RarityCommon, Type: "Basic Land - Swamp"},
	})
	slot := cat.LandSlots["thb"]
	commons := map[CardID]int{1: 4}
	picker := slot.Setup(commons, cat)

	// Basic slots never consume the common pool.
	assert.Equal(t, 4, commons[1])

	rng := rand.New(rand.NewSource(1))
	for i := 0; i < 20; i++ {
		id, ok := picker.Pick(rng)
		require.True(t, ok)
		assert.Contains(t, []CardID{2, 3}, id)
	}
}

func TestGateSlotConsumesCommons(t *testing.T) {
	cat := New([]Card{
		{ID: 1, Set: "grn", Rarity: RarityCommon, InBooster: true, Type: "Creature"},
		{ID: 2, Set: "grn", Rarity: RarityCommon, InBooster: true, Type: "Land - Gate"},
	})
	slot := cat.LandSlots["grn"]
	commons := map[CardID]int{1: 4, 2: 4}
	picker := slot.Setup(commons, cat)

	assert.NotContains(t, commons, CardID(2))
	assert.Equal(t, 4, commons[1])

	rng := rand.New(rand.NewSource(1))
	id, ok := picker.Pick(rng)
	require.True(t, ok)
	assert.Equal(t, CardID(2), id)
}

func TestLandSlotSetupSharedAcrossGoroutines(t *testing.T) {
	cat := New([]Card{
		{ID: 1, Set: "grn", Rarity: RarityCommon, InBooster: true, Type: "Creature"},
		{ID: 2, Set: "grn", Rarity: RarityCommon, InBooster: true, Type: "Land - Gate"},
		{ID: 3, Set: "grn", Rarity: RarityCommon, InBooster: true, Type: "Land - Gate"},
	})
	slot := cat.LandSlots["grn"]

	// Each run setups over its own commons pool; the pickers must not see
	// each other's lands even when the runs overlap.
	pickers := make([]*LandPicker, 2)
	pools := []map[CardID]int{
		{1: 4, 2: 4},
		{1: 4, 3: 4},
	}
	var wg sync.WaitGroup
	for i := range pickers {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			for n := 0; n < 100; n++ {
				commons := map[CardID]int{}
				for id, c := range pools[i] {
					commons[id] = c
				}
				pickers[i] = slot.Setup(commons, cat)
			}
		}(i)
	}
	wg.Wait()

	rng := rand.New(rand.NewSource(1))
	for n := 0; n < 20; n++ {
		id, ok := pickers[0].Pick(rng)
		require.True(t, ok)
		assert.Equal(t, CardID(2), id)
		id, ok = pickers[1].Pick(rng)
		require.True(t, ok)
		assert.Equal(t, CardID(3), id)
	}
}

func TestLoad(t *testing.T) {
	file := catalogFile{
		Cards: []Card{
			{ID: 1, Name: "Omen of the Sea", Set: "thb", Rarity: RarityCommon, ColorIdentity: ColorBlue, InBooster: true},
			{ID: 2, Name: "Shatter the Sky", Set: "thb", Rarity: RarityRare, ColorIdentity: ColorWhite, InBooster: true},
		},
		Jumpstart: []JumpstartPack{{Name: "Doctor", Cards: []CardID{1, 2}}},
	}
	raw, err := json.Marshal(file)
	require.NoError(t, err)
	path := filepath.Join(t.TempDir(), "cards.json")
	require.NoError(t, os.WriteFile(path, raw, 0o600))

	cat, err := Load(path)
	require.NoError(t, err)
	assert.Len(t, cat.Cards, 2)
	assert.Len(t, cat.Jumpstart, 1)

	card, ok := cat.Card(1)
	require.True(t, ok)
	assert.Equal(t, "Omen of the Sea", card.Name)
}

func TestLoadRejectsBadRarity(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cards.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"cards":[{"id":1,"set":"thb","rarity":"legendary"}]}`), 0o600))
	_, err := Load(path)
	require.Error(t, err)
}

func TestLoadRejectsEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cards.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"cards":[]}`), 0o600))
	_, err := Load(path)
	require.Error(t, err)
}
