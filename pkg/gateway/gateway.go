// Package gateway speaks the websocket protocol: it upgrades HTTP requests,
// decodes inbound event envelopes, and routes them into the session core.
package gateway

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/decred/slog"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/draftforge/draftforge/pkg/booster"
	"github.com/draftforge/draftforge/pkg/catalog"
	"github.com/draftforge/draftforge/pkg/events"
	"github.com/draftforge/draftforge/pkg/server"
)

// Gateway accepts client connections for a registry.
type Gateway struct {
	log      slog.Logger
	reg      *server.Registry
	upgrader websocket.Upgrader
}

// New creates a gateway over the registry.
func New(reg *server.Registry, log slog.Logger) *Gateway {
	return &Gateway{
		log: log,
		reg: reg,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			// Clients are served from arbitrary origins.
			CheckOrigin: func(*http.Request) bool { return true },
		},
	}
}

// ServeHTTP upgrades the request and runs the connection until it drops.
// Identity rides in the query string: userID, userName and sessionID.
func (g *Gateway) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	userID := q.Get("userID")
	if userID == "" {
		userID = "user_" + uuid.NewString()
	}
	userName := q.Get("userName")
	if userName == "" {
		userName = "Anonymous"
	}
	sessionID := q.Get("sessionID")

	ws, err := g.upgrader.Upgrade(w, r, nil)
	if err != nil {
		g.log.Debugf("websocket upgrade failed: %v", err)
		return
	}
	conn := newWSConn(ws, g.log)
	p := g.reg.Connect(userID, userName, sessionID, conn)
	g.readPump(p, ws, conn)
}

// readPump decodes inbound envelopes until the connection dies. Malformed
// frames and unknown events are dropped without breaking the connection.
func (g *Gateway) readPump(p *server.Participant, ws *websocket.Conn, conn *wsConn) {
	defer func() {
		conn.Close()
		g.reg.Disconnect(p)
	}()
	for {
		_, data, err := ws.ReadMessage()
		if err != nil {
			g.log.Debugf("read from %s: %v", p.ID, err)
			return
		}
		var env events.Envelope
		if err := json.Unmarshal(data, &env); err != nil {
			g.log.Debugf("malformed frame from %s: %v", p.ID, err)
			continue
		}
		g.dispatch(p, conn, env)
	}
}

func (g *Gateway) dispatch(p *server.Participant, conn *wsConn, env events.Envelope) {
	s := g.reg.Session(p.SessionID())
	if s == nil && env.E != events.InSetSession {
		g.log.Warnf("event %s from %s with no session", env.E, p.ID)
		return
	}

	switch env.E {
	case events.InSetSession:
		var id string
		if decode(env.P, &id) == nil {
			g.reg.Move(p, id)
		}

	case events.InSetUserName:
		var name string
		if decode(env.P, &name) == nil && name != "" {
			s.SetUserName(p, name)
		}

	case events.InSetCollection:
		var coll map[catalog.CardID]int
		if decode(env.P, &coll) == nil {
			s.SetCollection(p, coll)
		}

	case events.InUseCollection:
		var v bool
		if decode(env.P, &v) == nil {
			s.SetUseCollection(p, v)
		}

	case events.InChatMessage:
		var msg events.ChatMessagePayload
		if decode(env.P, &msg) == nil {
			s.Chat(p, msg.Text)
		}

	case events.InStartDraft:
		s.StartDraft(p.ID)

	case events.InPickCard:
		g.handlePick(p, conn, s, env.P)

	case events.InReplaceDisconnected:
		s.ReplaceDisconnected(p.ID)

	case events.InStartWinstonDraft:
		var n int
		if decode(env.P, &n) != nil {
			n = 0
		}
		s.StartWinston(p.ID, n)

	case events.InWinstonTakePile:
		if err := s.WinstonTake(p.ID); err != nil {
			g.log.Debugf("winston take by %s: %v", p.ID, err)
		}

	case events.InWinstonSkipPile:
		if err := s.WinstonSkip(p.ID); err != nil {
			g.log.Debugf("winston skip by %s: %v", p.ID, err)
		}

	case events.InDistributeSealed:
		var n int
		if decode(env.P, &n) == nil {
			s.DistributeSealed(p.ID, n)
		}

	case events.InDistributeJumpstart:
		s.DistributeJumpstart(p.ID)

	case events.InSetSessionOwner:
		var id string
		if decode(env.P, &id) == nil {
			s.SetOwner(p.ID, id)
		}

	case events.InRemovePlayer:
		var id string
		if decode(env.P, &id) == nil {
			s.RemovePlayer(p.ID, id)
		}

	case events.InBots:
		var n int
		if decode(env.P, &n) == nil {
			s.SetBots(p.ID, n)
		}

	case events.InBoostersPerPlayer:
		var n int
		if decode(env.P, &n) == nil {
			s.SetBoostersPerPlayer(p.ID, n)
		}

	case events.InSetRestriction:
		var sets []string
		if decode(env.P, &sets) == nil {
			s.SetRestriction(p.ID, sets)
		}

	case events.InSetPublic:
		var v bool
		if decode(env.P, &v) == nil {
			s.SetPublic(p.ID, v)
		}

	case events.InSetPickTimer:
		var n int
		if decode(env.P, &n) == nil {
			s.SetPickTimer(p.ID, n)
		}

	case events.InSetMaxPlayers:
		var n int
		if decode(env.P, &n) == nil {
			s.SetMaxPlayers(p.ID, n)
		}

	case events.InSetMaxRarity:
		var r string
		if decode(env.P, &r) == nil {
			s.SetMaxRarity(p.ID, catalog.Rarity(r))
		}

	case events.InIgnoreCollections:
		var v bool
		if decode(env.P, &v) == nil {
			s.SetIgnoreCollections(p.ID, v)
		}

	case events.InSetColorBalance:
		var v bool
		if decode(env.P, &v) == nil {
			s.SetColorBalance(p.ID, v)
		}

	case events.InSetFoil:
		var v bool
		if decode(env.P, &v) == nil {
			s.SetFoil(p.ID, v)
		}

	case events.InSetMaxDuplicates:
		var caps map[catalog.Rarity]int
		if decode(env.P, &caps) == nil {
			s.SetMaxDuplicates(p.ID, caps)
		}

	case events.InSetUseCustomCardList:
		var v bool
		if decode(env.P, &v) == nil {
			s.SetUseCustomCardList(p.ID, v)
		}

	case events.InSetBurnedCardsPerRound:
		var n int
		if decode(env.P, &n) == nil {
			s.SetBurnedCardsPerRound(p.ID, n)
		}

	case events.InSetCustomBoosters:
		var sets []string
		if decode(env.P, &sets) == nil {
			s.SetCustomBoosters(p.ID, sets)
		}

	case events.InSetDistributionMode:
		var m string
		if decode(env.P, &m) == nil {
			s.SetDistributionMode(p.ID, booster.DistributionMode(m))
		}

	case events.InSetDraftLogRecipients:
		var r string
		if decode(env.P, &r) == nil {
			s.SetDraftLogRecipients(p.ID, server.LogRecipients(r))
		}

	case events.InSetOwnerIsPlayer:
		var v bool
		if decode(env.P, &v) == nil {
			s.SetOwnerIsPlayer(p.ID, v)
		}

	case events.InCustomCardList, events.InParseCustomCardList:
		g.handleCustomList(p, conn, s, env.P)

	case events.InLoadLocalCustomList:
		var name string
		if decode(env.P, &name) == nil {
			g.handleLocalList(p, conn, s, name)
		}

	case events.InSetSeating:
		var order []string
		if decode(env.P, &order) == nil {
			s.SetSeating(p.ID, order)
		}

	case events.InRandomizeSeating:
		s.RandomizeSeating(p.ID)

	case events.InGenerateBracket:
		var players []string
		if decode(env.P, &players) != nil {
			players = nil
		}
		s.GenerateBracket(p.ID, players)

	case events.InUpdateBracket:
		var upd events.UpdateBracketPayload
		if decode(env.P, &upd) == nil {
			s.UpdateBracket(p.ID, upd.MatchIndex, upd.Wins)
		}

	default:
		g.log.Debugf("unknown event %q from %s", env.E, p.ID)
	}
}

// handlePick folds the two pick encodings (structured payload or a legacy
// bare card ID) and always answers with an ack.
func (g *Gateway) handlePick(p *server.Participant, conn *wsConn, s *server.Session, raw json.RawMessage) {
	var pick events.PickCardPayload
	if err := decode(raw, &pick); err != nil {
		var card catalog.CardID
		if err := decode(raw, &card); err != nil {
			conn.Send(events.OutPickAck, events.PickAckPayload{Code: 1, Error: "malformed pick"})
			return
		}
		pick = events.PickCardPayload{SelectedCard: card}
	}
	if err := s.PickCard(p.ID, pick.SelectedCard, pick.BurnedCards); err != nil {
		conn.Send(events.OutPickAck, events.PickAckPayload{AckID: pick.AckID, Code: 1, Error: err.Error()})
		return
	}
	conn.Send(events.OutPickAck, events.PickAckPayload{AckID: pick.AckID, Code: 0})
}

// handleLocalList installs a server-bundled cube by name.
func (g *Gateway) handleLocalList(p *server.Participant, conn *wsConn, s *server.Session, name string) {
	list := g.reg.LocalList(name)
	if list == nil {
		conn.Send(events.OutMessage, events.MessagePayload{
			Title:             "Unknown card list",
			Text:              fmt.Sprintf("this server has no card list named %q", name),
			ShowConfirmButton: true,
		})
		return
	}
	s.SetCustomCardList(p.ID, list)
}

func (g *Gateway) handleCustomList(p *server.Participant, conn *wsConn, s *server.Session, raw json.RawMessage) {
	var payload events.CustomListPayload
	if decode(raw, &payload) != nil {
		return
	}
	list, err := booster.ParseList(g.reg.Catalog(), payload.Name, payload.List)
	if err != nil {
		conn.Send(events.OutMessage, events.MessagePayload{
			Title:             "Unable to parse card list",
			Text:              err.Error(),
			ShowConfirmButton: true,
		})
		return
	}
	s.SetCustomCardList(p.ID, list)
}

func decode(raw json.RawMessage, v interface{}) error {
	return json.Unmarshal(raw, v)
}
