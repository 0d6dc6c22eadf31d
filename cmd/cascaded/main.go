// Package main is the entry point for the cascade trading service.
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/jonasrmichel/solcascade/pkg/api"
	"github.com/jonasrmichel/solcascade/pkg/cascade"
	"github.com/jonasrmichel/solcascade/pkg/config"
	"github.com/jonasrmichel/solcascade/pkg/events"
	"github.com/jonasrmichel/solcascade/pkg/jupiter"
	"github.com/jonasrmichel/solcascade/pkg/logger"
	"github.com/jonasrmichel/solcascade/pkg/notifier"
	"github.com/jonasrmichel/solcascade/pkg/pairs"
	"github.com/jonasrmichel/solcascade/pkg/ranking"
	"github.com/jonasrmichel/solcascade/pkg/risk"
	"github.com/jonasrmichel/solcascade/pkg/solana"
	"github.com/jonasrmichel/solcascade/pkg/storage"
)

var configPath = flag.String("config", "", "Path to configuration file (JSON)")

func main() {
	flag.Parse()

	// .env is optional; real environments set variables directly.
	_ = godotenv.Load()

	var cfg *config.Config
	var err error
	if *configPath != "" {
		cfg, err = config.LoadFromFile(*configPath)
	} else {
		cfg = config.LoadFromEnv()
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Invalid config: %v\n", err)
		os.Exit(1)
	}

	log := logger.New(cfg.LogLevel)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		log.Info("shutting down gracefully...")
		cancel()
	}()

	ledger, err := solana.NewClient(&solana.ClientConfig{
		RPCURL:        cfg.SolanaRPCURL,
		PrivateKey:    cfg.WalletPrivateKey,
		WalletAddress: cfg.WalletAddress,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error creating Solana client: %v\n", err)
		os.Exit(1)
	}
	log.Info("wallet: %s", ledger.WalletAddress())

	quotes := jupiter.NewClient(&jupiter.ClientConfig{
		BaseURL: cfg.JupiterBaseURL,
		APIKey:  cfg.JupiterAPIKey,
	})

	registry := pairs.NewRegistry()
	configured, err := cfg.TradingPairs()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Invalid pair config: %v\n", err)
		os.Exit(1)
	}
	for _, p := range configured {
		if err := registry.Add(p); err != nil {
			fmt.Fprintf(os.Stderr, "Invalid pair config: %v\n", err)
			os.Exit(1)
		}
	}
	log.Info("loaded %d trading pairs", len(configured))

	limits, err := cfg.RiskLimits()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Invalid risk config: %v\n", err)
		os.Exit(1)
	}
	riskMgr := risk.NewManager(limits)

	ranker := ranking.NewRanker(registry, quotes, log)
	engine := cascade.NewEngine(ranker, riskMgr, quotes, ledger, cfg.HomeMint, log)

	hub := events.NewHub(log)
	go hub.Run()

	slack := notifier.NewSlackNotifier(cfg.SlackWebhookURL)
	engine.SetEvents(&eventFanout{hub: hub, slack: slack, log: log})

	apiServer := api.NewServer(engine, registry, ranker, riskMgr, hub, log)

	if cfg.DatabaseURL != "" {
		store, err := storage.Open(cfg.DatabaseURL)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error opening trade journal: %v\n", err)
			os.Exit(1)
		}
		defer store.Close()
		engine.SetJournal(store)
		apiServer.SetTradeHistory(store)
		log.Info("trade journal enabled")
	}

	// Score the pairs once at startup, then keep them fresh in the background.
	ranker.RefreshAllScores(ctx)
	go refreshLoop(ctx, ranker, time.Duration(cfg.ScoreRefreshSecs)*time.Second, log)

	server := &http.Server{
		Addr:         cfg.Listen,
		Handler:      apiServer.Router(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 5 * time.Minute, // A cascade can wait through several confirmations
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		server.Shutdown(shutdownCtx)
	}()

	log.Info("listening on %s", cfg.Listen)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		fmt.Fprintf(os.Stderr, "Server error: %v\n", err)
		os.Exit(1)
	}
}

// refreshLoop periodically recomputes profitability scores.
func refreshLoop(ctx context.Context, ranker *ranking.Ranker, interval time.Duration, log *logger.Logger) {
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			ranker.RefreshAllScores(ctx)
			log.Debug("profitability scores refreshed")
		}
	}
}

// eventFanout forwards engine events to the WebSocket hub and raises Slack
// notifications for outcomes that need an operator.
type eventFanout struct {
	hub   *events.Hub
	slack *notifier.SlackNotifier
	log   *logger.Logger
}

func (f *eventFanout) Publish(event interface{}) {
	f.hub.Publish(event)

	if !f.slack.IsEnabled() {
		return
	}
	switch e := event.(type) {
	case *cascade.ResultEvent:
		if err := f.slack.NotifyCascadeResult(e.Result); err != nil {
			f.log.Warn("slack notification failed: %v", err)
		}
	case *cascade.StepEvent:
		if e.State == cascade.StateUnconfirmed {
			step := &cascade.Step{StepNumber: e.StepNumber, PairID: e.PairID, Error: e.Error}
			if err := f.slack.NotifyReconciliationNeeded(step); err != nil {
				f.log.Warn("slack notification failed: %v", err)
			}
		}
	}
}
