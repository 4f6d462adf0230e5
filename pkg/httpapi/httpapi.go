// Package httpapi exposes the read-only HTTP surface next to the websocket
// gateway: session collections, user lists, health, and secret-guarded debug
// dumps.
package httpapi

import (
	"encoding/json"
	"net/http"
	"sort"

	"github.com/davecgh/go-spew/spew"
	"github.com/decred/slog"
	"github.com/gin-gonic/gin"

	"github.com/draftforge/draftforge/pkg/server"
)

// API serves the HTTP endpoints for a registry.
type API struct {
	log    slog.Logger
	reg    *server.Registry
	secret string
}

// New creates the API. secret guards the debug routes; empty disables them.
func New(reg *server.Registry, log slog.Logger, secret string) *API {
	return &API{log: log, reg: reg, secret: secret}
}

// Router builds the gin engine with every route mounted.
func (a *API) Router() *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())

	r.GET("/healthz", a.health)
	r.GET("/getCollection", a.collectionUsage)
	r.GET("/getCollection/:sessionID", a.collection)
	r.GET("/getUsers/:sessionID", a.users)

	dbg := r.Group("/debug", a.requireSecret)
	dbg.GET("/sessions", a.debugSessions)
	dbg.GET("/users", a.debugUsers)
	dbg.GET("/logs/:sessionID", a.debugLogs)

	return r
}

func (a *API) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (a *API) collectionUsage(c *gin.Context) {
	c.String(http.StatusBadRequest, "Usage: /getCollection/:sessionID")
}

// collection returns the card pool a session would generate from, as a
// cardID -> count map sorted for stable output.
func (a *API) collection(c *gin.Context) {
	s := a.reg.Session(c.Param("sessionID"))
	if s == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "session not found"})
		return
	}
	pool := s.CollectionPool()
	c.JSON(http.StatusOK, pool)
}

func (a *API) users(c *gin.Context) {
	s := a.reg.Session(c.Param("sessionID"))
	if s == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "session not found"})
		return
	}
	c.JSON(http.StatusOK, s.UserList())
}

func (a *API) requireSecret(c *gin.Context) {
	if a.secret == "" || c.Query("secret") != a.secret {
		c.AbortWithStatus(http.StatusForbidden)
	}
}

func (a *API) debugSessions(c *gin.Context) {
	summaries := a.reg.Summaries()
	sort.Slice(summaries, func(i, j int) bool { return summaries[i].ID < summaries[j].ID })
	c.String(http.StatusOK, spew.Sdump(summaries))
}

func (a *API) debugUsers(c *gin.Context) {
	ids := a.reg.ParticipantIDs()
	sort.Strings(ids)
	c.String(http.StatusOK, spew.Sdump(ids))
}

func (a *API) debugLogs(c *gin.Context) {
	logs, err := a.reg.RecentLogs(c.Param("sessionID"), 10)
	if err != nil {
		a.log.Errorf("fetching archived logs: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "log store failure"})
		return
	}
	out := make([]json.RawMessage, len(logs))
	for i, raw := range logs {
		out[i] = json.RawMessage(raw)
	}
	c.JSON(http.StatusOK, out)
}
