// Package main provides the long-running mixing service:
// - Sessions (scheduled): mixing runs over a shared vendor pool
// - HTTP surface: /health, /metrics, /stats, /tail (live audit stream)
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"math/rand"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"token-mixer/internal/audit"
	"token-mixer/internal/config"
	"token-mixer/internal/domain"
	"token-mixer/internal/observability"
	"token-mixer/internal/orchestrator"
	"token-mixer/internal/vendor"
)

// Server holds the shared pool, the orchestrator, and scheduler state.
type Server struct {
	cfg             config.Config
	sessionInterval time.Duration
	concurrency     int

	pool   *vendor.Pool
	orch   *orchestrator.Orchestrator
	hub    *audit.Hub
	logger zerolog.Logger

	mu             sync.Mutex
	sessionsRun    int
	sessionsFailed int
	lastSessionRun time.Time
	started        time.Time
}

func main() {
	configPath := flag.String("config", "", "Path to YAML config file")
	addr := flag.String("addr", "", "HTTP listen address (default: config metrics_addr)")
	sessionInterval := flag.Duration("session-interval", 1*time.Minute, "Interval between scheduled mixing sessions")
	concurrency := flag.Int("sessions", 1, "Concurrent mixing sessions per interval")
	verbose := flag.Bool("verbose", false, "Verbose output (debug-level audit events)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}
	if *addr == "" {
		*addr = cfg.MetricsAddr
	}
	if *concurrency < 1 {
		*concurrency = 1
	}

	zerolog.SetGlobalLevel(zerolog.InfoLevel)
	if *verbose {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}

	// Audit stream goes to stdout and to websocket subscribers on /tail
	hub := audit.NewHub()
	defer hub.Close()
	logger := audit.New(zerolog.MultiLevelWriter(os.Stdout, hub))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	seedVal := cfg.Seed
	if seedVal == 0 {
		seedVal = time.Now().UnixNano()
	}
	rng := rand.New(rand.NewSource(seedVal))

	pool, err := vendor.Discover(cfg.PoolSize, vendor.DiscoverOptions{
		MinLatency: cfg.MinLatency(),
		MaxLatency: cfg.MaxLatency(),
		Rand:       rng,
		Logger:     logger,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Vendor discovery error: %v\n", err)
		os.Exit(1)
	}

	server := &Server{
		cfg:             cfg,
		sessionInterval: *sessionInterval,
		concurrency:     *concurrency,
		pool:            pool,
		orch: orchestrator.New(orchestrator.Options{
			Pool:     pool,
			Selector: vendor.NewSelector(rng, logger),
			Logger:   logger,
		}),
		hub:     hub,
		logger:  logger,
		started: time.Now(),
	}

	// Handle shutdown signals; second signal forces exit
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logger.Info().Msgf("received signal %v, initiating graceful shutdown", sig)
		cancel()

		select {
		case sig = <-sigCh:
			logger.Info().Msgf("received second signal %v, forcing immediate shutdown", sig)
			os.Exit(1)
		case <-time.After(30 * time.Second):
			logger.Info().Msg("graceful shutdown timed out after 30s, forcing exit")
			os.Exit(1)
		}
	}()

	go server.startHTTPServer(*addr)

	if err := server.runScheduler(ctx); err != nil && err != context.Canceled {
		fmt.Fprintf(os.Stderr, "Server error: %v\n", err)
		os.Exit(1)
	}
	logger.Info().Msg("shutdown complete")
}

// runScheduler runs mixing sessions on the configured interval. The first
// batch starts immediately.
func (s *Server) runScheduler(ctx context.Context) error {
	s.runSessions(ctx)

	ticker := time.NewTicker(s.sessionInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			s.runSessions(ctx)
		}
	}
}

// runSessions executes the configured number of concurrent sessions over
// the shared pool. Per-issuer locking keeps concurrent ledger access safe.
func (s *Server) runSessions(ctx context.Context) {
	g, ctx := errgroup.WithContext(ctx)

	for n := 0; n < s.concurrency; n++ {
		g.Go(func() error {
			_, err := s.orch.Run(ctx, s.cfg.Amount, s.cfg.SourceLabel, s.cfg.Hops)
			return err
		})
	}

	err := g.Wait()

	s.mu.Lock()
	s.sessionsRun += s.concurrency
	s.lastSessionRun = time.Now()
	if err != nil {
		s.sessionsFailed++
	}
	s.mu.Unlock()

	if err != nil {
		s.logger.Error().Err(err).Msg("session batch failed")
	}
}

// startHTTPServer starts the HTTP server for health/metrics/stats/tail.
func (s *Server) startHTTPServer(addr string) {
	mux := http.NewServeMux()

	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	mux.Handle("/metrics", observability.Handler())
	mux.HandleFunc("/stats", s.handleStats)
	mux.HandleFunc("/tail", s.handleTail)

	s.logger.Info().Str("addr", addr).Msg("starting HTTP server")
	if err := http.ListenAndServe(addr, mux); err != nil && err != http.ErrServerClosed {
		s.logger.Error().Err(err).Msg("HTTP server error")
	}
}

// StatsResponse is the JSON response for the /stats endpoint.
type StatsResponse struct {
	Status         string               `json:"status"`
	Uptime         string               `json:"uptime"`
	SessionsRun    int                  `json:"sessions_run"`
	SessionsFailed int                  `json:"sessions_failed"`
	LastSessionRun time.Time            `json:"last_session_run,omitempty"`
	PoolSize       int                  `json:"pool_size"`
	Vendors        []domain.IssuerStats `json:"vendors"`
}

// handleStats returns per-issuer counters as JSON.
func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	resp := StatsResponse{
		Status:         "running",
		Uptime:         time.Since(s.started).String(),
		SessionsRun:    s.sessionsRun,
		SessionsFailed: s.sessionsFailed,
		LastSessionRun: s.lastSessionRun,
		PoolSize:       s.pool.Size(),
		Vendors:        s.pool.Stats(),
	}
	s.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
}

// handleTail upgrades to a websocket and streams audit lines until the
// client disconnects.
func (s *Server) handleTail(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Error().Err(err).Msg("websocket upgrade failed")
		return
	}

	s.hub.Subscribe(conn)
	defer func() {
		s.hub.Unsubscribe(conn)
		conn.Close()
	}()

	// Consume control frames; returns when the client goes away
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}
