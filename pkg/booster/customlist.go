package booster

import (
	"bufio"
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/draftforge/draftforge/pkg/catalog"
)

// CustomList is an owner-supplied card pool. A flat list (cube) deals 15
// random cards per pack; a sheeted list deals a fixed count from each named
// sheet.
type CustomList struct {
	Name            string
	Cube            map[catalog.CardID]int
	CardsPerBooster map[string]int
	Sheets          map[string][]catalog.CardID
}

// Sheeted reports whether the list declares per-sheet pack composition.
func (l *CustomList) Sheeted() bool {
	return len(l.CardsPerBooster) > 0 && len(l.Sheets) > 0
}

// CardCount returns the total number of copies in the list.
func (l *CustomList) CardCount() int {
	if l.Sheeted() {
		n := 0
		for _, sheet := range l.Sheets {
			n += len(sheet)
		}
		return n
	}
	n := 0
	for _, c := range l.Cube {
		n += c
	}
	return n
}

func (l *CustomList) bag() map[catalog.CardID]int {
	out := make(map[catalog.CardID]int)
	if l.Sheeted() {
		for _, sheet := range l.Sheets {
			for _, id := range sheet {
				out[id]++
			}
		}
		return out
	}
	for id, n := range l.Cube {
		out[id] = n
	}
	return out
}

const cubePackSize = 15

func (g *Generator) generateCustom(list *CustomList, opts Options, quantity int) ([]Booster, error) {
	if list.Sheeted() {
		return g.generateSheets(list, opts, quantity)
	}
	return g.generateCube(list, opts, quantity)
}

func (g *Generator) generateCube(list *CustomList, opts Options, quantity int) ([]Booster, error) {
	bag := NewBag(list.Cube)
	if bag.Total() < quantity*cubePackSize {
		return nil, &ShortageError{Rarity: catalog.RarityCommon, Needed: quantity * cubePackSize, Available: bag.Total()}
	}
	packs := make([]Booster, 0, quantity)
	for i := 0; i < quantity; i++ {
		block, err := g.drawCustomBlock(bag, cubePackSize, opts.ColorBalance)
		if err != nil {
			return nil, err
		}
		packs = append(packs, block)
	}
	return packs, nil
}

func (g *Generator) generateSheets(list *CustomList, opts Options, quantity int) ([]Booster, error) {
	// Deterministic sheet order, and find the widest sheet for balancing.
	names := make([]string, 0, len(list.CardsPerBooster))
	largest := ""
	for name := range list.CardsPerBooster {
		names = append(names, name)
		if largest == "" || len(list.Sheets[name]) > len(list.Sheets[largest]) {
			largest = name
		}
	}
	sort.Strings(names)

	bags := make(map[string]*Bag, len(names))
	for _, name := range names {
		sheet := make(map[catalog.CardID]int)
		for _, id := range list.Sheets[name] {
			sheet[id]++
		}
		bag := NewBag(sheet)
		need := list.CardsPerBooster[name] * quantity
		if bag.Total() < need {
			return nil, &ShortageError{Rarity: catalog.RarityCommon, Needed: need, Available: bag.Total()}
		}
		bags[name] = bag
	}

	packs := make([]Booster, 0, quantity)
	for i := 0; i < quantity; i++ {
		pack := make(Booster, 0, 16)
		for _, name := range names {
			count := list.CardsPerBooster[name]
			balance := opts.ColorBalance && name == largest && count >= len(catalog.WUBRG)
			block, err := g.drawCustomBlock(bags[name], count, balance)
			if err != nil {
				return nil, err
			}
			pack = append(pack, block...)
		}
		packs = append(packs, pack)
	}
	return packs, nil
}

func (g *Generator) drawCustomBlock(bag *Bag, count int, balance bool) (Booster, error) {
	block := make(Booster, 0, count)
	if balance {
		for _, color := range catalog.WUBRG {
			if len(block) >= count {
				break
			}
			c := color
			id, ok := bag.DrawMatching(g.rng, func(id catalog.CardID) bool {
				return g.cat.Cards[id].ColorIdentity == c
			})
			if ok {
				block = append(block, id)
			}
		}
	}
	for len(block) < count {
		id, ok := bag.Draw(g.rng)
		if !ok {
			return nil, &ShortageError{Rarity: catalog.RarityCommon, Needed: count, Available: len(block)}
		}
		block = append(block, id)
	}
	g.rng.Shuffle(len(block), func(i, j int) { block[i], block[j] = block[j], block[i] })
	return block, nil
}

// sheetHeader matches "[SheetName(4)]" section markers.
var sheetHeader = regexp.MustCompile(`^\[([^(\]]+)\((\d+)\)\]$`)

// cardLine matches "4 Card Name" or "4x Card Name"; a bare name means one
// copy.
var cardLine = regexp.MustCompile(`^(\d+)x?\s+(.+)$`)

// ParseList parses an owner-pasted card list into a CustomList. Lines are
// either card entries or "[Sheet(count)]" headers introducing a custom
// booster sheet. Card names resolve against the catalog case-insensitively;
// unknown names fail the whole parse so the owner sees the typo.
func ParseList(cat *catalog.Catalog, name, text string) (*CustomList, error) {
	byName := make(map[string]catalog.CardID, len(cat.Cards))
	for id, card := range cat.Cards {
		key := strings.ToLower(card.Name)
		if prev, ok := byName[key]; !ok || id < prev {
			byName[key] = id
		}
	}

	list := &CustomList{
		Name:            name,
		Cube:            make(map[catalog.CardID]int),
		CardsPerBooster: make(map[string]int),
		Sheets:          make(map[string][]catalog.CardID),
	}

	currentSheet := ""
	lineNo := 0
	scanner := bufio.NewScanner(strings.NewReader(text))
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") || strings.HasPrefix(line, "//") {
			continue
		}
		if m := sheetHeader.FindStringSubmatch(line); m != nil {
			count, err := strconv.Atoi(m[2])
			if err != nil || count <= 0 {
				return nil, fmt.Errorf("line %d: bad sheet count in %q", lineNo, line)
			}
			currentSheet = strings.TrimSpace(m[1])
			list.CardsPerBooster[currentSheet] = count
			continue
		}

		count := 1
		cardName := line
		if m := cardLine.FindStringSubmatch(line); m != nil {
			count, _ = strconv.Atoi(m[1])
			cardName = strings.TrimSpace(m[2])
		}
		// Strip an Arena-style "(SET) 123" suffix.
		if idx := strings.LastIndex(cardName, " ("); idx > 0 {
			cardName = cardName[:idx]
		}
		id, ok := byName[strings.ToLower(cardName)]
		if !ok {
			return nil, fmt.Errorf("line %d: unknown card %q", lineNo, cardName)
		}
		if currentSheet != "" {
			for i := 0; i < count; i++ {
				list.Sheets[currentSheet] = append(list.Sheets[currentSheet], id)
			}
		} else {
			list.Cube[id] += count
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}

	if len(list.CardsPerBooster) > 0 {
		for sheet := range list.CardsPerBooster {
			if len(list.Sheets[sheet]) == 0 {
				return nil, fmt.Errorf("sheet %q declared but has no cards", sheet)
			}
		}
	} else if len(list.Cube) == 0 {
		return nil, fmt.Errorf("card list is empty")
	}
	return list, nil
}
