package server

import "github.com/draftforge/draftforge/pkg/events"

// bracketMatches is the match count of a single-elimination bracket over 8
// players: four quarterfinals, two semifinals, one final.
const bracketMatches = 7

// Bracket is the post-draft tournament bracket. Results holds the win count
// of each match's two players, reported as matches complete.
type Bracket struct {
	Players []string `json:"players"`
	Results [][2]int `json:"results"`
}

func newBracket(players []string) *Bracket {
	slots := make([]string, 8)
	copy(slots, players)
	return &Bracket{
		Players: slots,
		Results: make([][2]int, bracketMatches),
	}
}

// GenerateBracket seeds a fresh bracket from the given player names, or from
// the current seating when none are given. Owner only.
func (s *Session) GenerateBracket(userID string, players []string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.isOwner(userID) {
		return
	}
	if len(players) == 0 {
		for _, id := range s.playingUsers() {
			players = append(players, s.nameOf(id))
		}
	}
	if len(players) > 8 {
		players = players[:8]
	}
	s.bracket = newBracket(players)
	s.toSession(events.OutBracket, s.bracket)
}

// UpdateBracket records one match result and rebroadcasts the bracket.
// Owner only.
func (s *Session) UpdateBracket(userID string, match int, wins [2]int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.isOwner(userID) || s.bracket == nil {
		return
	}
	if match < 0 || match >= len(s.bracket.Results) {
		return
	}
	s.bracket.Results[match] = wins
	s.toSession(events.OutBracket, s.bracket)
}
