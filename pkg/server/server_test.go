package server

import (
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/decred/slog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/draftforge/draftforge/pkg/catalog"
	"github.com/draftforge/draftforge/pkg/events"
)

// fakeConn records every event sent to one client.
type fakeConn struct {
	mu   sync.Mutex
	recs []record
}

type record struct {
	event   events.Type
	payload interface{}
}

func (c *fakeConn) Send(t events.Type, payload interface{}) {
	c.mu.Lock()
	c.recs = append(c.recs, record{event: t, payload: payload})
	c.mu.Unlock()
}

func (c *fakeConn) Close() {}

func (c *fakeConn) count(t events.Type) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, r := range c.recs {
		if r.event == t {
			n++
		}
	}
	return n
}

func (c *fakeConn) has(t events.Type) bool { return c.count(t) > 0 }

// payloads returns every payload sent for one event type, in order.
func (c *fakeConn) payloads(t events.Type) []interface{} {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []interface{}
	for _, r := range c.recs {
		if r.event == t {
			out = append(out, r.payload)
		}
	}
	return out
}

func (c *fakeConn) last(t events.Type) (interface{}, bool) {
	all := c.payloads(t)
	if len(all) == 0 {
		return nil, false
	}
	return all[len(all)-1], true
}

type discardWriter struct{}

func (discardWriter) Write(p []byte) (int, error) { return len(p), nil }

func testLogger() slog.Logger {
	return slog.NewBackend(discardWriter{}).Logger("TEST")
}

// testCatalog builds a single-set catalog big enough for a four-seat,
// three-round draft, plus two jumpstart packs.
func testCatalog() *catalog.Catalog {
	var cards []catalog.Card
	colors := catalog.WUBRG
	add := func(base catalog.CardID, n int, r catalog.Rarity) {
		for i := 0; i < n; i++ {
			cards = append(cards, catalog.Card{
				ID:            base + catalog.CardID(i),
				Name:          fmt.Sprintf("Card %d", int(base)+i),
				Set:           "alp",
				Rarity:        r,
				ColorIdentity: colors[i%len(colors)],
				InBooster:     true,
			})
		}
	}
	add(1000, 60, catalog.RarityCommon)
	add(2000, 30, catalog.RarityUncommon)
	add(3000, 20, catalog.RarityRare)
	add(4000, 8, catalog.RarityMythic)
	cat := catalog.New(cards)
	cat.Jumpstart = []catalog.JumpstartPack{
		{Name: "Spirits", Cards: []catalog.CardID{1000, 1001, 1002}},
		{Name: "Dragons", Cards: []catalog.CardID{1003, 1004, 1005}},
	}
	return cat
}

func newTestRegistry(t *testing.T) *Registry {
	t.Helper()
	dispatcher := events.NewDispatcher(testLogger(), 64)
	dispatcher.Start()
	t.Cleanup(dispatcher.Stop)
	return NewRegistry(testCatalog(), testLogger(), dispatcher, nil, 42)
}

// driveDraft plays every delivered booster by always picking its first card
// until the draft ends.
func driveDraft(t *testing.T, s *Session, conns map[string]*fakeConn) {
	t.Helper()
	consumed := make(map[string]int)
	for i := 0; i < 500; i++ {
		ended := true
		for _, c := range conns {
			if !c.has(events.OutEndDraft) {
				ended = false
			}
		}
		if ended {
			return
		}
		progressed := false
		for uid, c := range conns {
			deliveries := c.payloads(events.OutNextBooster)
			if len(deliveries) <= consumed[uid] {
				continue
			}
			del := deliveries[consumed[uid]].(events.NextBoosterPayload)
			consumed[uid]++
			require.NotEmpty(t, del.Booster)
			require.NoError(t, s.PickCard(uid, del.Booster[0], nil))
			progressed = true
		}
		require.True(t, progressed, "draft stalled with no pending deliveries")
	}
	t.Fatal("draft did not finish")
}

func TestConnectCreatesSessionAndOwner(t *testing.T) {
	reg := newTestRegistry(t)
	c1 := &fakeConn{}
	p1 := reg.Connect("u1", "Alice", "s1", c1)

	require.Equal(t, "u1", p1.ID)
	assert.Equal(t, "s1", p1.SessionID())
	assert.True(t, c1.has(events.OutPublicSessions))
	assert.True(t, c1.has(events.OutSessionOptions))
	assert.True(t, c1.has(events.OutSessionUsers))

	owner, ok := c1.last(events.OutSessionOwner)
	require.True(t, ok)
	assert.Equal(t, "u1", owner.(events.SessionOwnerPayload).UserID)

	c2 := &fakeConn{}
	reg.Connect("u2", "Bob", "s1", c2)
	users, ok := c1.last(events.OutSessionUsers)
	require.True(t, ok)
	require.Len(t, users.([]events.UserInfo), 2)

	// Ownership does not move on join.
	s := reg.Session("s1")
	require.NotNil(t, s)
	assert.Equal(t, "u1", s.Owner())
}

func TestSupplantedConnectionGetsFreshID(t *testing.T) {
	reg := newTestRegistry(t)
	reg.Connect("u1", "Alice", "s1", &fakeConn{})

	c2 := &fakeConn{}
	p2 := reg.Connect("u1", "Impostor", "s1", c2)

	require.NotEqual(t, "u1", p2.ID)
	payload, ok := c2.last(events.OutAlreadyConnected)
	require.True(t, ok)
	assert.Equal(t, p2.ID, payload.(events.AlreadyConnectedPayload).NewID)
	assert.NotNil(t, reg.Participant("u1"))
	assert.NotNil(t, reg.Participant(p2.ID))
}

func TestOptionEchoSkipsInitiator(t *testing.T) {
	reg := newTestRegistry(t)
	c1, c2 := &fakeConn{}, &fakeConn{}
	reg.Connect("u1", "Alice", "s1", c1)
	reg.Connect("u2", "Bob", "s1", c2)
	s := reg.Session("s1")

	s.SetBots("u1", 4)
	assert.Equal(t, 0, c1.count(events.OutBots))
	require.Equal(t, 1, c2.count(events.OutBots))
	payload, _ := c2.last(events.OutBots)
	assert.Equal(t, 4, payload)

	// Setting the same value again emits nothing.
	s.SetBots("u1", 4)
	assert.Equal(t, 1, c2.count(events.OutBots))

	// Non-owner sets are ignored entirely.
	s.SetBots("u2", 7)
	assert.Equal(t, 1, c2.count(events.OutBots))
	assert.Equal(t, 0, c1.count(events.OutBots))
}

func TestCoalescedOptionDelta(t *testing.T) {
	reg := newTestRegistry(t)
	c1, c2 := &fakeConn{}, &fakeConn{}
	reg.Connect("u1", "Alice", "s1", c1)
	reg.Connect("u2", "Bob", "s1", c2)
	s := reg.Session("s1")

	before := c2.count(events.OutSessionOptions)
	s.SetColorBalance("u1", false)
	require.Equal(t, before+1, c2.count(events.OutSessionOptions))
	payload, _ := c2.last(events.OutSessionOptions)
	delta := payload.(events.OptionsDelta)
	require.NotNil(t, delta.ColorBalance)
	assert.False(t, *delta.ColorBalance)
	// Only the changed key rides along.
	assert.Nil(t, delta.Foil)
	assert.Nil(t, delta.OwnerIsPlayer)
}

func TestSetMaxDuplicatesIdempotent(t *testing.T) {
	reg := newTestRegistry(t)
	c1, c2 := &fakeConn{}, &fakeConn{}
	reg.Connect("u1", "Alice", "s1", c1)
	reg.Connect("u2", "Bob", "s1", c2)
	s := reg.Session("s1")

	caps := map[catalog.Rarity]int{
		catalog.RarityCommon:   4,
		catalog.RarityUncommon: 2,
		catalog.RarityRare:     1,
	}
	before := c2.count(events.OutSessionOptions)
	s.SetMaxDuplicates("u1", caps)
	require.Equal(t, before+1, c2.count(events.OutSessionOptions))

	// Re-sending equal caps emits nothing.
	same := map[catalog.Rarity]int{
		catalog.RarityCommon:   4,
		catalog.RarityUncommon: 2,
		catalog.RarityRare:     1,
	}
	s.SetMaxDuplicates("u1", same)
	assert.Equal(t, before+1, c2.count(events.OutSessionOptions))

	same[catalog.RarityRare] = 2
	s.SetMaxDuplicates("u1", same)
	assert.Equal(t, before+2, c2.count(events.OutSessionOptions))
}

func TestFullSessionRedirectsJoiner(t *testing.T) {
	reg := newTestRegistry(t)
	c1 := &fakeConn{}
	reg.Connect("u1", "Alice", "s1", c1)
	s := reg.Session("s1")
	s.SetMaxPlayers("u1", 1)

	c2 := &fakeConn{}
	p2 := reg.Connect("u2", "Bob", "s1", c2)

	require.True(t, c2.has(events.OutSetSession))
	assert.True(t, c2.has(events.OutMessage))
	assert.NotEqual(t, "s1", p2.SessionID())
	// Minted session IDs are short uuid fragments, easy to share by hand.
	assert.Len(t, p2.SessionID(), 8)
	assert.Equal(t, []string{"u1"}, s.Users())
	// The refugee owns their fresh session.
	assert.Equal(t, "u2", reg.Session(p2.SessionID()).Owner())
}

func TestChatRelayTruncates(t *testing.T) {
	reg := newTestRegistry(t)
	c1, c2 := &fakeConn{}, &fakeConn{}
	p1 := reg.Connect("u1", "Alice", "s1", c1)
	reg.Connect("u2", "Bob", "s1", c2)
	s := reg.Session("s1")

	s.Chat(p1, strings.Repeat("x", 300))
	payload, ok := c2.last(events.OutChatMessage)
	require.True(t, ok)
	msg := payload.(events.ChatMessagePayload)
	assert.Equal(t, "u1", msg.Author)
	assert.Len(t, msg.Text, 255)
}

func TestStartDraftRequiresTwoSeats(t *testing.T) {
	reg := newTestRegistry(t)
	c1 := &fakeConn{}
	reg.Connect("u1", "Alice", "s1", c1)
	s := reg.Session("s1")

	s.StartDraft("u1")
	assert.False(t, s.Drafting())
	assert.True(t, c1.has(events.OutMessage))
}

func TestStartDraftOwnerOnly(t *testing.T) {
	reg := newTestRegistry(t)
	reg.Connect("u1", "Alice", "s1", &fakeConn{})
	reg.Connect("u2", "Bob", "s1", &fakeConn{})
	s := reg.Session("s1")

	s.StartDraft("u2")
	assert.False(t, s.Drafting())
}

func TestDraftRunsToCompletion(t *testing.T) {
	reg := newTestRegistry(t)
	conns := map[string]*fakeConn{"u1": {}, "u2": {}}
	reg.Connect("u1", "Alice", "s1", conns["u1"])
	reg.Connect("u2", "Bob", "s1", conns["u2"])
	s := reg.Session("s1")
	s.SetBots("u1", 2)
	s.SetPickTimer("u1", 0)

	s.StartDraft("u1")
	require.True(t, s.Drafting())
	for _, c := range conns {
		require.True(t, c.has(events.OutStartDraft))
		require.Equal(t, 1, c.count(events.OutNextBooster))
	}

	// Seating interleaves humans and bots.
	payload, _ := conns["u1"].last(events.OutStartDraft)
	seats := payload.(events.StartDraftPayload).Seats
	require.Len(t, seats, 4)
	bots := 0
	for _, seat := range seats {
		if seat.IsBot {
			bots++
		}
	}
	assert.Equal(t, 2, bots)
	assert.NotEqual(t, seats[0].IsBot, seats[1].IsBot, "bots spread between humans")

	driveDraft(t, s, conns)

	assert.False(t, s.Drafting())
	for _, c := range conns {
		assert.True(t, c.has(events.OutEndDraft))
		// Default recipients: everyone.
		require.True(t, c.has(events.OutDraftLog))
	}
	payload, _ = conns["u2"].last(events.OutDraftLog)
	lg := payload.(events.DraftLogPayload).Log
	require.NotNil(t, lg)
	assert.False(t, payload.(events.DraftLogPayload).Delayed)
	require.Contains(t, lg.Users, "u1")
	// 3 packs of 14 cards: every seat logs every pick.
	assert.Len(t, lg.Users["u1"].Picks, 42)
	assert.Len(t, lg.Users["u1"].Cards, 42)
}

func TestUpdateUserPrecedesNextBooster(t *testing.T) {
	reg := newTestRegistry(t)
	conns := map[string]*fakeConn{"u1": {}, "u2": {}}
	reg.Connect("u1", "Alice", "s1", conns["u1"])
	reg.Connect("u2", "Bob", "s1", conns["u2"])
	s := reg.Session("s1")
	s.SetPickTimer("u1", 0)
	s.StartDraft("u1")

	pick := func(uid string, c *fakeConn, n int) {
		del := c.payloads(events.OutNextBooster)[n].(events.NextBoosterPayload)
		require.NoError(t, s.PickCard(uid, del.Booster[0], nil))
	}
	pick("u1", conns["u1"], 0)

	// u2 sees u1's pick flag, and no new pack until u2 also picks.
	payload, ok := conns["u2"].last(events.OutUpdateUser)
	require.True(t, ok)
	upd := payload.(events.UpdateUserPayload)
	assert.Equal(t, "u1", upd.UserID)
	assert.Equal(t, true, upd.UpdatedProperties["pickedThisRound"])
	assert.Equal(t, 1, conns["u2"].count(events.OutNextBooster))

	pick("u2", conns["u2"], 0)
	assert.Equal(t, 2, conns["u2"].count(events.OutNextBooster))
}

func TestPickValidationErrors(t *testing.T) {
	reg := newTestRegistry(t)
	conns := map[string]*fakeConn{"u1": {}, "u2": {}}
	reg.Connect("u1", "Alice", "s1", conns["u1"])
	reg.Connect("u2", "Bob", "s1", conns["u2"])
	s := reg.Session("s1")
	s.SetPickTimer("u1", 0)

	require.Error(t, s.PickCard("u1", 1000, nil), "no draft yet")

	s.StartDraft("u1")
	del := conns["u1"].payloads(events.OutNextBooster)[0].(events.NextBoosterPayload)

	require.Error(t, s.PickCard("u1", 9999, nil), "card not in pack")
	require.NoError(t, s.PickCard("u1", del.Booster[0], nil))
	require.Error(t, s.PickCard("u1", del.Booster[1], nil), "double pick")
}

func TestDisconnectPausesAndReconnectResumes(t *testing.T) {
	reg := newTestRegistry(t)
	conns := map[string]*fakeConn{"u1": {}, "u2": {}}
	reg.Connect("u1", "Alice", "s1", conns["u1"])
	p2 := reg.Connect("u2", "Bob", "s1", conns["u2"])
	s := reg.Session("s1")
	s.SetPickTimer("u1", 0)
	s.StartDraft("u1")

	del1 := conns["u1"].payloads(events.OutNextBooster)[0].(events.NextBoosterPayload)
	require.NoError(t, s.PickCard("u1", del1.Booster[0], nil))

	reg.Disconnect(p2)
	require.True(t, conns["u1"].has(events.OutUserDisconnected))
	require.True(t, s.Drafting(), "draft survives the disconnect")

	// The round cannot advance while a seat is dark.
	assert.Equal(t, 1, conns["u1"].count(events.OutNextBooster))

	// Same user ID comes back on a fresh connection.
	c3 := &fakeConn{}
	reg.Connect("u2", "Bob", "s1", c3)

	payload, ok := c3.last(events.OutRejoinDraft)
	require.True(t, ok)
	rejoin := payload.(events.RejoinDraftPayload)
	assert.False(t, rejoin.PickedThisRound)
	require.NotEmpty(t, rejoin.Booster)

	// The rest of the table saw the reconnect notice.
	assert.True(t, conns["u1"].has(events.OutMessage))

	// The returning player finishes the round and the draft moves on.
	require.NoError(t, s.PickCard("u2", rejoin.Booster[0], nil))
	assert.Equal(t, 2, conns["u1"].count(events.OutNextBooster))
}

func TestReplaceDisconnectedFinishesDraft(t *testing.T) {
	reg := newTestRegistry(t)
	conns := map[string]*fakeConn{"u1": {}, "u2": {}}
	reg.Connect("u1", "Alice", "s1", conns["u1"])
	p2 := reg.Connect("u2", "Bob", "s1", conns["u2"])
	s := reg.Session("s1")
	s.SetPickTimer("u1", 0)
	s.StartDraft("u1")

	del2 := conns["u2"].payloads(events.OutNextBooster)[0].(events.NextBoosterPayload)
	require.NoError(t, s.PickCard("u2", del2.Booster[0], nil))
	reg.Disconnect(p2)

	s.ReplaceDisconnected("u1")

	driveDraft(t, s, map[string]*fakeConn{"u1": conns["u1"]})

	payload, ok := conns["u1"].last(events.OutDraftLog)
	require.True(t, ok)
	lg := payload.(events.DraftLogPayload).Log
	require.Contains(t, lg.Users, "u2")
	// The substituted seat still logs a full draft.
	assert.Len(t, lg.Users["u2"].Picks, 42)
}

func TestOwnerTransferOnLeave(t *testing.T) {
	reg := newTestRegistry(t)
	c2 := &fakeConn{}
	p1 := reg.Connect("u1", "Alice", "s1", &fakeConn{})
	reg.Connect("u2", "Bob", "s1", c2)
	s := reg.Session("s1")

	reg.Disconnect(p1)
	assert.Equal(t, "u2", s.Owner())
	payload, ok := c2.last(events.OutSessionOwner)
	require.True(t, ok)
	assert.Equal(t, "u2", payload.(events.SessionOwnerPayload).UserID)
}

func TestSessionDestroyedWhenEmpty(t *testing.T) {
	reg := newTestRegistry(t)
	p1 := reg.Connect("u1", "Alice", "s1", &fakeConn{})
	require.NotNil(t, reg.Session("s1"))

	reg.Disconnect(p1)
	assert.Nil(t, reg.Session("s1"))
}

func TestRemovePlayerMovesToFreshSession(t *testing.T) {
	reg := newTestRegistry(t)
	c2 := &fakeConn{}
	reg.Connect("u1", "Alice", "s1", &fakeConn{})
	p2 := reg.Connect("u2", "Bob", "s1", c2)
	s := reg.Session("s1")

	s.RemovePlayer("u1", "u2")
	assert.NotEqual(t, "s1", p2.SessionID())
	assert.Len(t, p2.SessionID(), 8)
	assert.True(t, c2.has(events.OutMessage))
	assert.Equal(t, []string{"u1"}, s.Users())
}

func TestSetSeatingValidatesPermutation(t *testing.T) {
	reg := newTestRegistry(t)
	reg.Connect("u1", "Alice", "s1", &fakeConn{})
	reg.Connect("u2", "Bob", "s1", &fakeConn{})
	reg.Connect("u3", "Cay", "s1", &fakeConn{})
	s := reg.Session("s1")

	s.SetSeating("u1", []string{"u3", "u1", "u2"})
	assert.Equal(t, []string{"u3", "u1", "u2"}, s.Users())

	// Rejected orders leave seating untouched.
	s.SetSeating("u1", []string{"u1", "u2"})
	s.SetSeating("u1", []string{"u1", "u2", "u2"})
	s.SetSeating("u1", []string{"u1", "u2", "ghost"})
	assert.Equal(t, []string{"u3", "u1", "u2"}, s.Users())

	s.RandomizeSeating("u1")
	assert.ElementsMatch(t, []string{"u1", "u2", "u3"}, s.Users())
}

func TestSealedDistribution(t *testing.T) {
	reg := newTestRegistry(t)
	conns := map[string]*fakeConn{"u1": {}, "u2": {}}
	reg.Connect("u1", "Alice", "s1", conns["u1"])
	reg.Connect("u2", "Bob", "s1", conns["u2"])
	s := reg.Session("s1")

	s.DistributeSealed("u1", 3)
	for uid, c := range conns {
		payload, ok := c.last(events.OutSetCardSelection)
		require.True(t, ok, "%s got no pool", uid)
		pools := payload.(events.CardSelectionPayload).Boosters
		require.Len(t, pools, 3)
		for _, pack := range pools {
			assert.Len(t, pack, 14)
		}
	}
	assert.False(t, s.Drafting())

	// Out-of-range counts are refused.
	before := conns["u2"].count(events.OutSetCardSelection)
	s.DistributeSealed("u1", 0)
	s.DistributeSealed("u1", 13)
	assert.Equal(t, before, conns["u2"].count(events.OutSetCardSelection))
}

func TestJumpstartDistribution(t *testing.T) {
	reg := newTestRegistry(t)
	c1 := &fakeConn{}
	reg.Connect("u1", "Alice", "s1", c1)
	reg.Connect("u2", "Bob", "s1", &fakeConn{})
	s := reg.Session("s1")

	s.DistributeJumpstart("u1")
	payload, ok := c1.last(events.OutSetCardSelection)
	require.True(t, ok)
	pools := payload.(events.CardSelectionPayload).Boosters
	require.Len(t, pools, 2)
	assert.NotEqual(t, pools[0], pools[1], "two different themed packs")
}

func TestWinstonDraftFlow(t *testing.T) {
	reg := newTestRegistry(t)
	conns := map[string]*fakeConn{"u1": {}, "u2": {}}
	reg.Connect("u1", "Alice", "s1", conns["u1"])
	reg.Connect("u2", "Bob", "s1", conns["u2"])
	s := reg.Session("s1")

	// Needs exactly two players.
	p3 := reg.Connect("u3", "Cay", "s1", &fakeConn{})
	s.StartWinston("u1", 6)
	require.False(t, s.Drafting())

	reg.Disconnect(p3)
	s.StartWinston("u1", 6)
	require.True(t, s.Drafting())
	for _, c := range conns {
		require.True(t, c.has(events.OutStartWinston))
	}

	for i := 0; i < 200 && s.Drafting(); i++ {
		payload, ok := conns["u1"].last(events.OutWinstonNextRound)
		require.True(t, ok)
		current := payload.(events.CurrentPlayerPayload).UserID
		require.NoError(t, s.WinstonTake(current))
	}
	require.False(t, s.Drafting())
	for _, c := range conns {
		assert.True(t, c.has(events.OutWinstonEnd))
		assert.True(t, c.has(events.OutDraftLog))
	}

	// All 84 generated cards ended up split between the two players.
	payload, _ := conns["u1"].last(events.OutDraftLog)
	lg := payload.(events.DraftLogPayload).Log
	total := 0
	for _, sl := range lg.Users {
		total += len(sl.Cards)
	}
	assert.Equal(t, 84, total)
}

func TestWinstonPausesOnDisconnect(t *testing.T) {
	reg := newTestRegistry(t)
	conns := map[string]*fakeConn{"u1": {}, "u2": {}}
	reg.Connect("u1", "Alice", "s1", conns["u1"])
	p2 := reg.Connect("u2", "Bob", "s1", conns["u2"])
	s := reg.Session("s1")

	s.StartWinston("u1", 6)
	require.True(t, s.Drafting())

	reg.Disconnect(p2)
	require.True(t, s.Drafting(), "winston survives the disconnect")
	require.True(t, conns["u1"].has(events.OutUserDisconnected))

	// The remaining player cannot keep drafting alone.
	require.Error(t, s.WinstonTake("u1"))
	require.Error(t, s.WinstonSkip("u1"))

	// Same user ID comes back and play resumes.
	c3 := &fakeConn{}
	reg.Connect("u2", "Bob", "s1", c3)
	require.True(t, c3.has(events.OutRejoinWinston))

	payload, ok := c3.last(events.OutWinstonNextRound)
	require.True(t, ok)
	current := payload.(events.CurrentPlayerPayload).UserID
	require.NoError(t, s.WinstonTake(current))
}

func TestPickTimerBroadcast(t *testing.T) {
	reg := newTestRegistry(t)
	conns := map[string]*fakeConn{"u1": {}, "u2": {}}
	p1 := reg.Connect("u1", "Alice", "s1", conns["u1"])
	p2 := reg.Connect("u2", "Bob", "s1", conns["u2"])
	s := reg.Session("s1")

	s.StartDraft("u1")
	require.True(t, s.Drafting())
	t.Cleanup(func() {
		reg.Disconnect(p1)
		reg.Disconnect(p2)
	})

	require.Eventually(t, func() bool {
		return conns["u2"].has(events.OutTimer)
	}, time.Second, 5*time.Millisecond)

	// Default 75s base: the first countdown tick carries the full budget.
	first := conns["u2"].payloads(events.OutTimer)[0].(events.TimerPayload)
	assert.Equal(t, 75, first.Countdown)
}

func TestTimerResumesFromRemainingAfterReconnect(t *testing.T) {
	reg := newTestRegistry(t)
	conns := map[string]*fakeConn{"u1": {}, "u2": {}}
	p1 := reg.Connect("u1", "Alice", "s1", conns["u1"])
	p2 := reg.Connect("u2", "Bob", "s1", conns["u2"])
	s := reg.Session("s1")

	s.StartDraft("u1")
	require.True(t, s.Drafting())

	reg.Disconnect(p2)

	// The disconnect froze the clock; wind it down as if most of the pick
	// window had already burned.
	s.mu.Lock()
	require.Nil(t, s.timer)
	s.timerRemaining = 31
	s.mu.Unlock()

	c3 := &fakeConn{}
	p3 := reg.Connect("u2", "Bob", "s1", c3)
	t.Cleanup(func() {
		reg.Disconnect(p1)
		reg.Disconnect(p3)
	})

	require.Eventually(t, func() bool {
		return c3.has(events.OutTimer)
	}, time.Second, 5*time.Millisecond)
	first := c3.payloads(events.OutTimer)[0].(events.TimerPayload)
	assert.Equal(t, 31, first.Countdown, "countdown continues, not a fresh window")
}

func TestDisabledTimerAnnounced(t *testing.T) {
	reg := newTestRegistry(t)
	conns := map[string]*fakeConn{"u1": {}, "u2": {}}
	reg.Connect("u1", "Alice", "s1", conns["u1"])
	reg.Connect("u2", "Bob", "s1", conns["u2"])
	s := reg.Session("s1")
	s.SetPickTimer("u1", 0)

	s.StartDraft("u1")
	assert.True(t, conns["u2"].has(events.OutDisableTimer))
	assert.Equal(t, 0, conns["u2"].count(events.OutTimer))
}

func TestBracketLifecycle(t *testing.T) {
	reg := newTestRegistry(t)
	conns := map[string]*fakeConn{"u1": {}, "u2": {}}
	reg.Connect("u1", "Alice", "s1", conns["u1"])
	reg.Connect("u2", "Bob", "s1", conns["u2"])
	s := reg.Session("s1")

	s.GenerateBracket("u1", nil)
	payload, ok := conns["u2"].last(events.OutBracket)
	require.True(t, ok)
	bracket := payload.(*Bracket)
	require.Len(t, bracket.Players, 8)
	assert.Equal(t, "Alice", bracket.Players[0])
	require.Len(t, bracket.Results, 7)

	s.UpdateBracket("u1", 0, [2]int{2, 1})
	payload, _ = conns["u2"].last(events.OutBracket)
	assert.Equal(t, [2]int{2, 1}, payload.(*Bracket).Results[0])

	// Out-of-range match indices are ignored.
	s.UpdateBracket("u1", 7, [2]int{1, 0})
	s.UpdateBracket("u1", -1, [2]int{1, 0})

	// A late joiner receives the existing bracket.
	c3 := &fakeConn{}
	reg.Connect("u3", "Cay", "s1", c3)
	assert.True(t, c3.has(events.OutBracket))
}

func TestNonPlayingOwnerExcludedFromSeats(t *testing.T) {
	reg := newTestRegistry(t)
	conns := map[string]*fakeConn{"u1": {}, "u2": {}, "u3": {}}
	reg.Connect("u1", "Alice", "s1", conns["u1"])
	reg.Connect("u2", "Bob", "s1", conns["u2"])
	reg.Connect("u3", "Cay", "s1", conns["u3"])
	s := reg.Session("s1")
	s.SetOwnerIsPlayer("u1", false)
	s.SetPickTimer("u1", 0)

	s.StartDraft("u1")
	require.True(t, s.Drafting())

	// The owner watches: session events yes, packs no.
	assert.True(t, conns["u1"].has(events.OutStartDraft))
	assert.Equal(t, 0, conns["u1"].count(events.OutNextBooster))
	assert.Equal(t, 1, conns["u2"].count(events.OutNextBooster))
	assert.Equal(t, 1, conns["u3"].count(events.OutNextBooster))

	driveDraft(t, s, map[string]*fakeConn{"u2": conns["u2"], "u3": conns["u3"]})
	assert.True(t, conns["u1"].has(events.OutEndDraft))
}

func TestDraftLogRecipientsOwner(t *testing.T) {
	reg := newTestRegistry(t)
	conns := map[string]*fakeConn{"u1": {}, "u2": {}}
	reg.Connect("u1", "Alice", "s1", conns["u1"])
	reg.Connect("u2", "Bob", "s1", conns["u2"])
	s := reg.Session("s1")
	s.SetPickTimer("u1", 0)
	s.SetDraftLogRecipients("u1", LogOwner)

	s.StartDraft("u1")
	driveDraft(t, s, conns)

	assert.True(t, conns["u1"].has(events.OutDraftLog))
	assert.False(t, conns["u2"].has(events.OutDraftLog))
}

func TestPublicSessionListing(t *testing.T) {
	reg := newTestRegistry(t)
	c1 := &fakeConn{}
	reg.Connect("u1", "Alice", "s1", c1)
	s := reg.Session("s1")

	require.Empty(t, reg.PublicSessions())
	s.SetPublic("u1", true)

	list := reg.PublicSessions()
	require.Len(t, list, 1)
	assert.Equal(t, "s1", list[0].ID)
	assert.Equal(t, 1, list[0].Players)

	// Drafting sessions drop off the list.
	reg.Connect("u2", "Bob", "s1", &fakeConn{})
	s.SetPickTimer("u1", 0)
	s.StartDraft("u1")
	assert.Empty(t, reg.PublicSessions())
}

func TestCollectionRestrictsGeneration(t *testing.T) {
	reg := newTestRegistry(t)
	conns := map[string]*fakeConn{"u1": {}, "u2": {}}
	p1 := reg.Connect("u1", "Alice", "s1", conns["u1"])
	p2 := reg.Connect("u2", "Bob", "s1", conns["u2"])
	s := reg.Session("s1")
	s.SetPickTimer("u1", 0)

	// Both own deep playsets of a narrow shared pool.
	coll := make(map[catalog.CardID]int)
	for i := 0; i < 40; i++ {
		coll[catalog.CardID(1000+i)] = 20 // commons
	}
	for i := 0; i < 12; i++ {
		coll[catalog.CardID(2000+i)] = 20 // uncommons
	}
	for i := 0; i < 6; i++ {
		coll[catalog.CardID(3000+i)] = 20 // rares
	}
	s.SetCollection(p1, coll)
	s.SetCollection(p2, coll)

	s.StartDraft("u1")
	require.True(t, s.Drafting())
	del := conns["u1"].payloads(events.OutNextBooster)[0].(events.NextBoosterPayload)
	for _, id := range del.Booster {
		_, owned := coll[id]
		assert.True(t, owned, "card %d not in the shared collection", id)
	}
}

func TestIgnoreCollectionsWidensPool(t *testing.T) {
	reg := newTestRegistry(t)
	c1 := &fakeConn{}
	p1 := reg.Connect("u1", "Alice", "s1", c1)
	reg.Connect("u2", "Bob", "s1", &fakeConn{})
	s := reg.Session("s1")
	s.SetPickTimer("u1", 0)

	// A collection far too small to draft from.
	s.SetCollection(p1, map[catalog.CardID]int{1000: 1})
	s.SetIgnoreCollections("u1", true)

	s.StartDraft("u1")
	assert.True(t, s.Drafting())
}
