// Package main is the certverify CLI: verify certificates, fingerprint
// documents and run directory batches against the submission store.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/joseph-ayodele/cert-verifier/internal/app"
	"github.com/joseph-ayodele/cert-verifier/internal/common"
)

var (
	cfg    *common.Config
	logger *slog.Logger
)

var rootCmd = &cobra.Command{
	Use:   "certverify",
	Short: "Automatic verification of uploaded certificates",
	Long: `certverify fingerprints a certificate, extracts its text and QR codes,
probes the issuer links it finds and decides whether the document can be
accepted without human review.

Configuration comes from the environment (DB_URL, REDIS_ADDR, LINKCHECK_*,
...), an optional .env file and an optional YAML file given with --config.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// A missing .env is normal outside local development.
		_ = godotenv.Load()

		v := viper.New()
		if file, _ := cmd.Flags().GetString("config"); file != "" {
			v.SetConfigFile(file)
			if err := v.ReadInConfig(); err != nil {
				return fmt.Errorf("read config %s: %w", file, err)
			}
		}
		c, err := common.LoadConfig(v)
		if err != nil {
			return err
		}
		if lvl, _ := cmd.Flags().GetString("log-level"); lvl != "" {
			c.Log.Level = lvl
		}
		cfg = c
		logger = common.NewLogger(cfg.Log, os.Stderr)
		slog.SetDefault(logger)
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().String("config", "", "YAML config file")
	rootCmd.PersistentFlags().String("log-level", "", "override LOG_LEVEL (debug, info, warn, error)")
}

// signalContext is cancelled on SIGINT/SIGTERM so in-flight probes stop.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

// buildApp wires the pipeline from the loaded configuration.
func buildApp(ctx context.Context) (*app.App, error) {
	a, err := app.Build(ctx, cfg, nil, logger)
	if err != nil {
		return nil, fmt.Errorf("initialize pipeline: %w", err)
	}
	return a, nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
