package catalog

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
)

// CardID identifies a card in the catalog. IDs are stable across server
// restarts because they come from the card data file, not from the server.
type CardID int

// Rarity is one of the four booster rarities.
type Rarity string

const (
	RarityCommon   Rarity = "common"
	RarityUncommon Rarity = "uncommon"
	RarityRare     Rarity = "rare"
	RarityMythic   Rarity = "mythic"
)

// Rarities lists all rarities from lowest to highest.
var Rarities = []Rarity{RarityCommon, RarityUncommon, RarityRare, RarityMythic}

// Valid reports whether r is a known rarity.
func (r Rarity) Valid() bool {
	switch r {
	case RarityCommon, RarityUncommon, RarityRare, RarityMythic:
		return true
	}
	return false
}

// AtMost reports whether r is at or below the given ceiling.
func (r Rarity) AtMost(max Rarity) bool {
	return rarityRank(r) <= rarityRank(max)
}

func rarityRank(r Rarity) int {
	switch r {
	case RarityCommon:
		return 0
	case RarityUncommon:
		return 1
	case RarityRare:
		return 2
	case RarityMythic:
		return 3
	}
	return -1
}

// Color is a card's color identity bucket.
type Color string

const (
	ColorWhite     Color = "W"
	ColorBlue      Color = "U"
	ColorBlack     Color = "B"
	ColorRed       Color = "R"
	ColorGreen     Color = "G"
	ColorMulti     Color = "multi"
	ColorColorless Color = "colorless"
)

// WUBRG lists the five mono colors used for color balancing.
var WUBRG = []Color{ColorWhite, ColorBlue, ColorBlack, ColorRed, ColorGreen}

// Card holds the read-only facts the server needs about one printing.
type Card struct {
	ID            CardID `json:"id"`
	Name          string `json:"name"`
	Set           string `json:"set"`
	Rarity        Rarity `json:"rarity"`
	ColorIdentity Color  `json:"color_identity"`
	InBooster     bool   `json:"in_booster"`
	Type          string `json:"type,omitempty"`
	CMC           int    `json:"cmc,omitempty"`
}

// Catalog is the immutable card database loaded at startup.
type Catalog struct {
	Cards     map[CardID]Card
	SetList   []string
	LandSlots map[string]*LandSlot
	Jumpstart []JumpstartPack
}

// JumpstartPack is one themed half-deck handed out by distributeJumpstart.
type JumpstartPack struct {
	Name  string   `json:"name"`
	Cards []CardID `json:"cards"`
}

// catalogFile is the on-disk layout of the card data file.
type catalogFile struct {
	Cards     []Card          `json:"cards"`
	Jumpstart []JumpstartPack `json:"jumpstart,omitempty"`
}

// New builds a catalog from a card list. The set list is derived from the
// cards in first-seen order and land slots are registered for the sets that
// have one.
func New(cards []Card) *Catalog {
	c := &Catalog{
		Cards:     make(map[CardID]Card, len(cards)),
		LandSlots: make(map[string]*LandSlot),
	}
	seen := make(map[string]bool)
	for _, card := range cards {
		c.Cards[card.ID] = card
		if !seen[card.Set] {
			seen[card.Set] = true
			c.SetList = append(c.SetList, card.Set)
		}
	}
	c.registerLandSlots()
	return c
}

// Load reads the card data file. The catalog is read-only after this.
func Load(path string) (*Catalog, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read card data: %w", err)
	}
	var file catalogFile
	if err := json.Unmarshal(raw, &file); err != nil {
		return nil, fmt.Errorf("parse card data: %w", err)
	}
	if len(file.Cards) == 0 {
		return nil, fmt.Errorf("card data file %s contains no cards", path)
	}
	for _, card := range file.Cards {
		if !card.Rarity.Valid() {
			return nil, fmt.Errorf("card %d (%s) has unknown rarity %q", card.ID, card.Name, card.Rarity)
		}
	}
	c := New(file.Cards)
	c.Jumpstart = file.Jumpstart
	return c, nil
}

// Card looks up a single card.
func (c *Catalog) Card(id CardID) (Card, bool) {
	card, ok := c.Cards[id]
	return card, ok
}

// HasSet reports whether any card belongs to the given set code.
func (c *Catalog) HasSet(code string) bool {
	for _, s := range c.SetList {
		if s == code {
			return true
		}
	}
	return false
}

// BoosterCards returns the IDs of every inBooster card, sorted for
// deterministic iteration.
func (c *Catalog) BoosterCards() []CardID {
	ids := make([]CardID, 0, len(c.Cards))
	for id, card := range c.Cards {
		if card.InBooster {
			ids = append(ids, id)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}
