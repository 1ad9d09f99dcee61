package cmd

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/coopco/remindbot/internal/config"
)

var (
	cfg        = config.DefaultConfig()
	configFile string
	envFile    string
)

var rootCmd = &cobra.Command{
	Use:           "remindbot [flags]",
	Short:         "Discord bot for recurring reminders and message translation",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		loaded, err := config.Load(configFile)
		if err != nil {
			return err
		}
		cfg = loaded
		return nil
	},
}

// Execute runs the root command with a context cancelled on SIGINT, SIGTERM
// or SIGHUP.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM, syscall.SIGHUP)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

// loadEnvFile loads envFile, or ./.env when unset. A missing default file is
// not an error.
func loadEnvFile() {
	if envFile == "" {
		if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
			log.Printf("failed to load .env: %v", err)
		}
		return
	}
	if err := godotenv.Load(envFile); err != nil {
		log.Printf("failed to load env file %s: %v", envFile, err)
	}
}

//nolint:gochecknoinits
func init() {
	cobra.OnInitialize(loadEnvFile)
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "JSON config file (optional)")
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", "", "dotenv file to load before reading config (default ./.env)")
}
