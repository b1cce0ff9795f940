package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"fvgbot/internal/config"
	"fvgbot/internal/engine"
	"fvgbot/internal/exchange"
	"fvgbot/internal/logging"
	"fvgbot/internal/tradingview"
)

// Command-line flags for backtest
var (
	backtestDays       int
	backtestShowTrades bool
)

// backtestCmd replays the strategy over historical data
var backtestCmd = &cobra.Command{
	Use:   "backtest",
	Short: "Replay the strategy over historical candles",
	Long: `Replay the gap detection, entry trigger and sizing logic bar-by-bar
over historical data with a simulated ledger, reporting final equity and
trade statistics per symbol.

Example usage:
  fvgbot backtest --config config.yaml
  fvgbot backtest --days 30 --trades`,
	RunE: runBacktest,
}

func init() {
	rootCmd.AddCommand(backtestCmd)

	backtestCmd.Flags().IntVar(&backtestDays, "days", 0, "Override backtest_days from the config")
	backtestCmd.Flags().BoolVar(&backtestShowTrades, "trades", false, "Print the individual simulated trades")
}

func runBacktest(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return err
	}
	logging.Setup(cfg.LogLevel)

	if backtestDays > 0 {
		cfg.BacktestDays = backtestDays
	}

	// Backtests only read public market data, no credentials needed.
	client := exchange.NewClient(cfg.BaseURL, "", "")

	bt := engine.NewBacktest(cfg, client)
	results, err := bt.Run()
	if err != nil {
		return err
	}
	if len(results) == 0 {
		return fmt.Errorf("no backtest results: no symbol had fetchable history")
	}

	for i := range results {
		results[i].Print()
		if backtestShowTrades {
			results[i].PrintTrades()
		}
		tradingview.DumpPineScript(results[i].Trades)
	}
	return nil
}
