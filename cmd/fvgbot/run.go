package main

import (
	"context"
	"errors"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"fvgbot/internal/config"
	"fvgbot/internal/engine"
	"fvgbot/internal/exchange"
	"fvgbot/internal/logging"
	"fvgbot/internal/position"
)

// runCmd starts the live polling loop
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the live trading loop",
	Long: `Run the live polling loop: one pass per symbol per candle close,
placing bracketed entries when a gap touch lines up with the MACD.

Example usage:
  fvgbot run --config config.yaml`,
	RunE: runLive,
}

func init() {
	rootCmd.AddCommand(runCmd)
}

func runLive(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return err
	}
	logging.Setup(cfg.LogLevel)

	gw, ledger := buildGateway(cfg)
	live, err := engine.NewLive(cfg, gw, ledger)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := live.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	log.Info().Msg("live loop stopped")
	return nil
}

// buildGateway wires the REST client and, in paper mode, the simulated
// gateway that settles against the ledger.
func buildGateway(cfg *config.Config) (exchange.Gateway, *position.Ledger) {
	baseURL := cfg.BaseURL
	if baseURL == "" && cfg.Sandbox {
		baseURL = exchange.SandboxBaseURL
	}
	client := exchange.NewClient(baseURL, cfg.APIKey, cfg.APISecret)

	ledger := position.NewLedger(cfg.StateFile, cfg.DailyLossLimitPct, cfg.PaperTrading)
	if cfg.PaperTrading {
		ledger.FundPaper(cfg.StartingBalance)
		return exchange.NewPaper(client, ledger), ledger
	}
	return client, ledger
}
