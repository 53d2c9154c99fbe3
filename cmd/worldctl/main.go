// Package main worldctl 运维命令行：迁移表结构、本地试运行世界构建
package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"world-forge-api/internal/config"
	"world-forge-api/pkg/logger"
)

var configDir string

var rootCmd = &cobra.Command{
	Use:   "worldctl",
	Short: "World forge maintenance tool",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		_ = godotenv.Load()
		return nil
	},
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configDir, "config", "", "config directory (defaults to $CONFIG_DIR or ./configs)")
	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(buildCmd)
}

func loadConfig() (*config.Config, error) {
	var (
		cfg *config.Config
		err error
	)
	if configDir != "" {
		cfg, err = config.LoadFrom(configDir)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	logger.Init(cfg.Observability.Logging.Level, cfg.Observability.Logging.Format)
	return cfg, nil
}
