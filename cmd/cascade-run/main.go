// Package main runs a single cascade from the command line and prints the
// result.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/jonasrmichel/solcascade/pkg/cascade"
	"github.com/jonasrmichel/solcascade/pkg/config"
	"github.com/jonasrmichel/solcascade/pkg/jupiter"
	"github.com/jonasrmichel/solcascade/pkg/logger"
	"github.com/jonasrmichel/solcascade/pkg/pairs"
	"github.com/jonasrmichel/solcascade/pkg/ranking"
	"github.com/jonasrmichel/solcascade/pkg/risk"
	"github.com/jonasrmichel/solcascade/pkg/solana"
)

var (
	configPath    = flag.String("config", "", "Path to configuration file (JSON)")
	amountSOL     = flag.String("amount", "0.1", "Initial amount in SOL")
	maxDepth      = flag.Int("depth", 3, "Maximum cascade depth")
	stopOnFailure = flag.Bool("stop-on-failure", true, "Stop the cascade at the first failed hop")
	pairIDs       = flag.String("pairs", "", "Comma-separated pair ids to restrict the cascade to")
	outputFormat  = flag.String("format", "text", "Output format: text, json")
)

func main() {
	flag.Parse()

	_ = godotenv.Load()

	var cfg *config.Config
	var err error
	if *configPath != "" {
		cfg, err = config.LoadFromFile(*configPath)
	} else {
		cfg = config.LoadFromEnv()
	}
	if err != nil {
		fatal("Error loading config: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		fatal("Invalid config: %v", err)
	}

	amount, err := solana.ParseSOL(*amountSOL)
	if err != nil || amount == 0 {
		fatal("Invalid -amount: %v", err)
	}

	log := logger.New(cfg.LogLevel)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		fmt.Println("\nCanceling...")
		cancel()
	}()

	ledger, err := solana.NewClient(&solana.ClientConfig{
		RPCURL:        cfg.SolanaRPCURL,
		PrivateKey:    cfg.WalletPrivateKey,
		WalletAddress: cfg.WalletAddress,
	})
	if err != nil {
		fatal("Error creating Solana client: %v", err)
	}

	quotes := jupiter.NewClient(&jupiter.ClientConfig{
		BaseURL: cfg.JupiterBaseURL,
		APIKey:  cfg.JupiterAPIKey,
	})

	registry := pairs.NewRegistry()
	configured, err := cfg.TradingPairs()
	if err != nil {
		fatal("Invalid pair config: %v", err)
	}
	for _, p := range configured {
		if err := registry.Add(p); err != nil {
			fatal("Invalid pair config: %v", err)
		}
	}

	limits, err := cfg.RiskLimits()
	if err != nil {
		fatal("Invalid risk config: %v", err)
	}

	ranker := ranking.NewRanker(registry, quotes, log)
	engine := cascade.NewEngine(ranker, risk.NewManager(limits), quotes, ledger, cfg.HomeMint, log)

	var req cascade.Request
	req.InitialLamports = amount
	req.MaxDepth = *maxDepth
	req.StopOnFailure = *stopOnFailure
	if *pairIDs != "" {
		req.PairIDs = strings.Split(*pairIDs, ",")
	}

	result := engine.ExecuteCascade(ctx, &req)

	if *outputFormat == "json" {
		json.NewEncoder(os.Stdout).Encode(result)
	} else {
		printResult(result)
	}

	if !result.Success {
		os.Exit(1)
	}
}

func printResult(result *cascade.Result) {
	fmt.Printf("Cascade %s\n", result.ID)
	fmt.Printf("─────────────────────────────────────────────\n")
	for _, step := range result.Steps {
		status := "OK"
		if !step.Success {
			status = "FAILED"
			if step.NeedsReconciliation {
				status = "UNCONFIRMED"
			}
		}
		fmt.Printf("  %d. %-12s %-12s", step.StepNumber, step.PairID, status)
		if step.Success && step.Details != nil {
			fmt.Printf(" in=%s out=%s impact=%.4f%%",
				solana.FormatSOL(step.Details.InLamports),
				solana.FormatSOL(step.Details.OutLamports),
				step.Details.PriceImpactPct)
		}
		if step.Error != "" {
			fmt.Printf(" (%s)", step.Error)
		}
		fmt.Println()
	}
	fmt.Printf("─────────────────────────────────────────────\n")
	outcome := "SUCCESS"
	if !result.Success {
		outcome = "FAILURE: " + result.ErrorMessage
	}
	fmt.Printf("Result:  %s\n", outcome)
	fmt.Printf("Initial: %s SOL\n", solana.FormatSOL(result.InitialLamports))
	fmt.Printf("Final:   %s SOL\n", solana.FormatSOL(result.FinalLamports))
	sign := "+"
	profit := result.ProfitLamports
	if profit < 0 {
		sign = "-"
		profit = -profit
	}
	fmt.Printf("P/L:     %s%s SOL\n", sign, solana.FormatSOL(uint64(profit)))
}

func fatal(format string, v ...interface{}) {
	fmt.Fprintf(os.Stderr, format+"\n", v...)
	os.Exit(1)
}
