// Package main runs the verifier daemon: the gRPC verifier service with
// health checks, plus Prometheus metrics over HTTP.
package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/joseph-ayodele/cert-verifier/internal/app"
	"github.com/joseph-ayodele/cert-verifier/internal/common"
	"github.com/joseph-ayodele/cert-verifier/internal/server"
)

var rootCmd = &cobra.Command{
	Use:          "verifierd",
	Short:        "Certificate verifier gRPC daemon",
	SilenceUsage: true,
	Args:         cobra.NoArgs,
	RunE:         run,
}

func init() {
	rootCmd.Flags().String("config", "", "YAML config file")
	rootCmd.Flags().StringSlice("root", nil, "restrict Verify/Fingerprint to files under these directories (repeatable)")
}

func run(cmd *cobra.Command, _ []string) error {
	_ = godotenv.Load()

	v := viper.New()
	if file, _ := cmd.Flags().GetString("config"); file != "" {
		v.SetConfigFile(file)
		if err := v.ReadInConfig(); err != nil {
			return fmt.Errorf("read config %s: %w", file, err)
		}
	}
	cfg, err := common.LoadConfig(v)
	if err != nil {
		return err
	}
	logger := common.NewLogger(cfg.Log, os.Stdout)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	a, err := app.Build(ctx, cfg, reg, logger)
	if err != nil {
		logger.Error("failed to initialize pipeline", "error", err)
		return err
	}
	defer a.Close()

	if err := a.DB.HealthCheck(ctx, 3*time.Second, logger); err != nil {
		return fmt.Errorf("db health: %w", err)
	}
	logger.Info("DB health OK", "dialect", a.DB.Dialect())

	roots, _ := cmd.Flags().GetStringSlice("root")
	svc := server.NewVerifierService(a.Processor, a.Gate, roots, logger)
	gs, hs := server.NewGRPCServer(svc, logger)

	lis, err := net.Listen("tcp", cfg.Server.GRPCAddr)
	if err != nil {
		return fmt.Errorf("listen: %w", err)
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}))
	metricsSrv := &http.Server{
		Addr:              cfg.Server.MetricsAddr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 2)
	go func() {
		logger.Info("gRPC serving", "addr", lis.Addr().String())
		if err := gs.Serve(lis); err != nil {
			errCh <- fmt.Errorf("grpc serve: %w", err)
		}
	}()
	go func() {
		logger.Info("metrics serving", "addr", cfg.Server.MetricsAddr)
		if err := metricsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("metrics serve: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
	case err = <-errCh:
		logger.Error("server failed", "error", err)
	}

	logger.Info("shutting down...")
	hs.SetServingStatus("", healthpb.HealthCheckResponse_NOT_SERVING)
	hs.SetServingStatus(server.ServiceName, healthpb.HealthCheckResponse_NOT_SERVING)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if serr := metricsSrv.Shutdown(shutdownCtx); serr != nil {
		logger.Warn("metrics shutdown", "error", serr)
	}

	stopped := make(chan struct{})
	go func() { gs.GracefulStop(); close(stopped) }()
	select {
	case <-stopped:
	case <-shutdownCtx.Done():
		gs.Stop()
	}
	logger.Info("stopped")
	return err
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
