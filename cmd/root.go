package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/legislator-panel/internal/config"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "legislator-panel",
	Short: "Party-switching panel of Romanian legislators, 1990-2020",
	Long:  "Scrapes parliament profile pages, reconstructs party histories and ranks, and builds the person-year panel and risk sets for party-switching models.",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		cfg = c

		if err := config.InitLogger(cfg.Log); err != nil {
			return fmt.Errorf("init logger: %w", err)
		}

		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = zap.L().Sync()
	},
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
