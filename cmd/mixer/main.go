// Package main provides the one-shot mixing run entry point.
// Executes: vendor discovery → initial mint → N redeem/re-mint hops → summary
package main

import (
	"context"
	"flag"
	"fmt"
	"math/rand"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"token-mixer/internal/audit"
	"token-mixer/internal/config"
	"token-mixer/internal/orchestrator"
	"token-mixer/internal/vendor"
	"token-mixer/internal/verification"
)

func main() {
	// Parse flags; unset overrides keep the config/env value
	configPath := flag.String("config", "", "Path to YAML config file")
	hops := flag.Int("hops", -1, "Override hop count")
	poolSize := flag.Int("pool-size", 0, "Override vendor pool size")
	amount := flag.Int64("amount", 0, "Override initial amount")
	source := flag.String("source", "", "Override source label")
	seed := flag.Int64("seed", 0, "Override RNG seed (selection and latency)")
	verify := flag.Bool("verify", true, "Verify the audit stream after the run")
	verbose := flag.Bool("verbose", false, "Verbose output (debug-level audit events)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}
	if *hops >= 0 {
		cfg.Hops = *hops
	}
	if *poolSize > 0 {
		cfg.PoolSize = *poolSize
	}
	if *amount > 0 {
		cfg.Amount = *amount
	}
	if *source != "" {
		cfg.SourceLabel = *source
	}
	if *seed != 0 {
		cfg.Seed = *seed
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Invalid config: %v\n", err)
		os.Exit(1)
	}

	zerolog.SetGlobalLevel(zerolog.InfoLevel)
	if *verbose {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}

	// Audit stream goes to stdout and to the in-memory recorder used for
	// the post-run self check
	recorder := audit.NewRecorder()
	logger := audit.New(zerolog.MultiLevelWriter(os.Stdout, recorder))

	// Create context with cancellation for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		fmt.Printf("\nReceived signal %v, cancelling run...\n", sig)
		cancel()
	}()

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

	orch := orchestrator.New(orchestrator.Options{
		Pool:     pool,
		Selector: vendor.NewSelector(rng, logger),
		Logger:   logger,
	})

	result, err := orch.Run(ctx, cfg.Amount, cfg.SourceLabel, cfg.Hops)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Mixing run error: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("\nMixing run completed:\n")
	fmt.Printf("  Session:  %s\n", result.SessionID)
	fmt.Printf("  Hops:     %d\n", result.Hops)
	fmt.Printf("  Duration: %v\n", result.Duration)
	for _, t := range result.FinalTokens {
		fmt.Printf("  Final:    %s\n", t)
	}

	fmt.Printf("\nVendor statistics (%d vendors):\n", pool.Size())
	for _, s := range pool.Stats() {
		if s.TotalIssuedCount == 0 && s.TotalRedeemedCount == 0 {
			continue
		}
		fmt.Printf("  %-12s issued=%d (%d units)  redeemed=%d (%d units)  active=%d\n",
			s.Name, s.TotalIssuedCount, s.TotalAmountIssued,
			s.TotalRedeemedCount, s.TotalAmountRedeemed, s.ActiveTokenCount)
	}

	if *verify {
		report := verification.VerifyRun(recorder.Entries(), cfg.Hops)
		if !report.Passed() {
			fmt.Fprintf(os.Stderr, "\nAudit verification failed:\n")
			for _, c := range report.Failures() {
				fmt.Fprintf(os.Stderr, "  %s: tag %s want %d got %d\n", c.Name, c.Tag, c.Want, c.Got)
			}
			os.Exit(1)
		}
		fmt.Printf("\nAudit verification passed (%d checks)\n", len(report.Checks))
	}
}
