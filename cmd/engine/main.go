package main

import (
	"context"
	"log"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/gofrs/flock"

	"profreach-engine/internal/avatar"
	"profreach-engine/internal/card"
	"profreach-engine/internal/config"
	"profreach-engine/internal/emaildraft"
	"profreach-engine/internal/events"
	"profreach-engine/internal/followup"
	"profreach-engine/internal/httpapi"
	"profreach-engine/internal/ingest"
	"profreach-engine/internal/llm"
	"profreach-engine/internal/replypoll"
	"profreach-engine/internal/scheduler"
	"profreach-engine/internal/search"
	"profreach-engine/internal/store"
	"profreach-engine/internal/webutil"
)

func main() {
	// Engine data dir: use env if provided (the desktop shell can pass one),
	// else local folder.
	dataDir := os.Getenv("PROFREACH_DATA_DIR")
	if dataDir == "" {
		dataDir = "."
	}
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		log.Fatal(err)
	}

	// One engine per data dir; two processes sharing a SQLite file is how
	// databases get corrupted.
	lock := flock.New(filepath.Join(dataDir, "engine.lock"))
	locked, err := lock.TryLock()
	if err != nil {
		log.Fatalf("lock: %v", err)
	}
	if !locked {
		log.Fatalf("another engine is already running in %s", dataDir)
	}
	defer func() { _ = lock.Unlock() }()

	defaultCfgPath := filepath.Join("config", "config.yml")
	userCfgPath, err := config.EnsureUserConfig(dataDir, defaultCfgPath)
	if err != nil {
		log.Fatalf("config bootstrap failed: %v", err)
	}

	// Load config and keep it reloadable
	var cfgVal atomic.Value // stores config.Config
	loadCfg := func() (config.Config, error) {
		cfg, err := config.Load(userCfgPath)
		if err != nil {
			return cfg, err
		}
		cfg, _ = config.NormalizeAndValidate(cfg)
		return cfg, nil
	}
	cfg, err := loadCfg()
	if err != nil {
		log.Fatalf("config load failed (%s): %v", userCfgPath, err)
	}
	cfgVal.Store(cfg)

	dbPath := filepath.Join(dataDir, "profreach.db")
	db, err := store.Open(dbPath)
	if err != nil {
		log.Fatal(err)
	}
	defer db.Close()

	if err := store.Migrate(db.Pool); err != nil {
		log.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	llmClient := llm.New(cfg)
	llmClient.Probe(ctx)

	hub := events.NewHub()
	limiter := webutil.NewHostLimiter(cfg.Fetch.HostReqPerSec, cfg.Fetch.HostBurst)

	var replyPollState atomic.Value
	replyPollState.Store(httpapi.ReplyPollStatus{})

	deps := httpapi.Deps{
		DB:             db.Pool,
		Hub:            hub,
		CfgVal:         &cfgVal,
		ReplyPollState: &replyPollState,
		UserCfgPath:    userCfgPath,
		LoadCfg:        loadCfg,
		TokenTTL:       time.Duration(cfg.Auth.TokenTTLHours) * time.Hour,
		Ingest: &ingest.Service{
			DB:      db.Pool,
			Fetcher: ingest.NewFetcher(time.Duration(cfg.Fetch.TimeoutSeconds)*time.Second, limiter),
		},
		Cards:  &card.Service{DB: db.Pool, LLM: llmClient},
		Drafts: &emaildraft.Service{DB: db.Pool, LLM: llmClient},
		Search: search.NewClient(cfg.Search.MaxResults, limiter),
		Avatar: avatar.NewService(db.Pool, llmClient, limiter),
		LLM:    llmClient,
		RunReplyPoll: func() (int, error) {
			cur := cfgVal.Load().(config.Config)
			return replypoll.RunOnce(ctx, db.Pool, cur, hub)
		},
	}

	mux := httpapi.NewMux(deps)

	addr := net.JoinHostPort("127.0.0.1", strconv.Itoa(cfg.App.Port))
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		log.Fatal(err)
	}

	srv := &http.Server{
		Handler:           httpapi.Chain(mux, httpapi.Cors, httpapi.RequestID, httpapi.Recover, httpapi.AccessLog),
		ReadHeaderTimeout: 5 * time.Second,
	}

	shutdownToken, err := randomToken(16)
	if err != nil {
		log.Fatal(err)
	}
	mux.HandleFunc("/shutdown", shutdownHandler(&shutdownToken, srv))
	if err := os.WriteFile(filepath.Join(dataDir, "engine.shutdown_token"), []byte(shutdownToken), 0o600); err != nil {
		log.Printf("could not persist shutdown token: %v", err)
	}

	// Background tasks. Each reads the live config so a PUT /config applies
	// on the next tick without a restart.
	go scheduler.Every(ctx, time.Duration(cfg.Followup.RecomputeHours)*time.Hour, "followup", func(ctx context.Context) error {
		cur := cfgVal.Load().(config.Config)
		return followup.Recompute(ctx, db.Pool, cur.Followup.AfterDays)
	})
	go scheduler.Every(ctx, time.Duration(cfg.ReplyPoll.PollSeconds)*time.Second, "replypoll", func(ctx context.Context) error {
		cur := cfgVal.Load().(config.Config)
		if !cur.ReplyPoll.Enabled {
			return nil
		}
		_, err := replypoll.RunOnce(ctx, db.Pool, cur, hub)
		return err
	})
	go scheduler.Every(ctx, time.Hour, "sessions", func(ctx context.Context) error {
		n, err := store.PurgeExpiredSessions(ctx, db.Pool)
		if n > 0 {
			log.Printf("[sessions] purged %d expired", n)
		}
		return err
	})

	log.Printf("engine listening on http://%s (db=%s)", addr, dbPath)
	if err := srv.Serve(ln); err != nil && err != http.ErrServerClosed {
		log.Fatal(err)
	}
	log.Printf("engine stopped")
}
