package main

import (
	"context"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/rotapost/rotapost/internal/app"
	"github.com/rotapost/rotapost/internal/config"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the scheduler and API server",
	RunE:  runServe,
}

var configFile string

func init() {
	serveCmd.Flags().StringVarP(&configFile, "config", "c", "", "Path to configuration file")
}

// loadConfig reads .env for Telegram credentials, then the YAML file if
// one was given, falling back to built-in defaults.
func loadConfig() (*config.Config, error) {
	_ = godotenv.Load()

	if configFile == "" {
		return config.Default(), nil
	}
	return config.Load(configFile)
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	a, err := app.New(cfg, version)
	if err != nil {
		return err
	}

	return a.Run(context.Background())
}
