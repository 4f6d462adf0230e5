package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/draftforge/draftforge/pkg/booster"
	"github.com/draftforge/draftforge/pkg/catalog"
	"github.com/draftforge/draftforge/pkg/events"
	"github.com/draftforge/draftforge/pkg/gateway"
	"github.com/draftforge/draftforge/pkg/httpapi"
	"github.com/draftforge/draftforge/pkg/logging"
	"github.com/draftforge/draftforge/pkg/server"
	"github.com/draftforge/draftforge/internal/logstore"
)

func main() {
	var (
		cardsPath   string
		cubeDir     string
		host        string
		port        int
		portFile    string
		logDBPath   string
		logFile     string
		seed        int64
		debugLevel  string
		debugSecret string
	)
	flag.StringVar(&cardsPath, "cards", "data/cards.json", "Path to the card catalog JSON")
	flag.StringVar(&cubeDir, "cubedir", "", "Directory of .txt card lists loadable by name (empty disables)")
	flag.StringVar(&host, "host", "127.0.0.1", "Host to listen on")
	flag.IntVar(&port, "port", 3000, "Port to listen on (0 for random free port)")
	flag.StringVar(&portFile, "portfile", "", "If set, write selected port to this file")
	flag.StringVar(&logDBPath, "draftlogdb", "", "Path to SQLite draft log archive (empty disables archiving)")
	flag.StringVar(&logFile, "logfile", "", "Path to rotating log file (empty logs to stderr only)")
	flag.Int64Var(&seed, "seed", 0, "Deterministic RNG seed for boosters and bots (0 = random)")
	flag.StringVar(&debugLevel, "debuglevel", "info", "Logging level: trace, debug, info, warn, error")
	flag.StringVar(&debugSecret, "debugsecret", "", "Secret guarding the /debug endpoints (empty disables them)")
	flag.Parse()

	logBackend, err := logging.NewLogBackend(logging.LogConfig{
		LogFile:    logFile,
		DebugLevel: debugLevel,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to init logging: %v\n", err)
		os.Exit(1)
	}
	defer logBackend.Close()
	log := logBackend.Logger("SRVR")

	cat, err := catalog.Load(cardsPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load card catalog: %v\n", err)
		os.Exit(1)
	}
	log.Infof("loaded %d cards across %d sets", len(cat.Cards), len(cat.SetList))

	var store *logstore.Store
	if logDBPath != "" {
		store, err = logstore.Open(logDBPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to open draft log store: %v\n", err)
			os.Exit(1)
		}
		defer store.Close()
	}

	if seed == 0 {
		if env := os.Getenv("DRAFTFORGE_SEED"); env != "" {
			if v, err := strconv.ParseInt(env, 10, 64); err == nil {
				seed = v
			}
		}
	}

	dispatcher := events.NewDispatcher(logBackend.Logger("DISP"), 128)
	dispatcher.Start()
	defer dispatcher.Stop()

	reg := server.NewRegistry(cat, logBackend.Logger("SESS"), dispatcher, store, seed)
	if cubeDir != "" {
		if err := loadLocalLists(reg, cat, cubeDir); err != nil {
			fmt.Fprintf(os.Stderr, "failed to load local card lists: %v\n", err)
			os.Exit(1)
		}
	}
	gw := gateway.New(reg, logBackend.Logger("GATE"))
	api := httpapi.New(reg, logBackend.Logger("HTTP"), debugSecret)

	router := api.Router()
	router.GET("/ws", gin.WrapH(gw))

	lis, err := net.Listen("tcp", fmt.Sprintf("%s:%d", host, port))
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to listen: %v\n", err)
		os.Exit(1)
	}
	if portFile != "" {
		_, p, _ := net.SplitHostPort(lis.Addr().String())
		_ = os.WriteFile(portFile, []byte(p), 0600)
	}
	log.Infof("listening on %s", lis.Addr())

	srv := &http.Server{Handler: router}
	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGTERM)
	go func() {
		sig := <-done
		log.Infof("received %s, shutting down", sig)
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(ctx); err != nil {
			log.Errorf("shutdown: %v", err)
		}
	}()

	if err := srv.Serve(lis); err != nil && !errors.Is(err, http.ErrServerClosed) {
		fmt.Fprintf(os.Stderr, "http serve error: %v\n", err)
		os.Exit(1)
	}
}

// loadLocalLists parses every .txt file in dir into a named card list
// clients can load with loadLocalCustomCardList.
func loadLocalLists(reg *server.Registry, cat *catalog.Catalog, dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return err
	}
	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != ".txt" {
			continue
		}
		raw, err := os.ReadFile(filepath.Join(dir, e.Name()))
		if err != nil {
			return err
		}
		name := strings.TrimSuffix(e.Name(), ".txt")
		list, err := booster.ParseList(cat, name, string(raw))
		if err != nil {
			return fmt.Errorf("%s: %w", e.Name(), err)
		}
		reg.RegisterLocalList(list)
	}
	return nil
}
