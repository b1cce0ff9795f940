package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var cfgPath string

// rootCmd is the base command for the fvgbot CLI
var rootCmd = &cobra.Command{
	Use:   "fvgbot",
	Short: "Fair value gap swing-trading bot",
	Long: `fvgbot detects 3-candle fair value gaps on candlestick data, confirms
entries with a MACD crossover, sizes positions by fixed fractional risk and
manages the resulting positions through a live polling loop or a historical
backtest replay.`,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgPath, "config", "config.yaml", "Path to YAML configuration file")
}

func main() {
	// API keys come from the environment; .env is optional.
	_ = godotenv.Load()

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
