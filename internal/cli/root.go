// Package cli implements the ragnotes command line.
package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"ragnotes/internal/config"
	"ragnotes/internal/logger"
	"ragnotes/internal/metrics"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

var (
	cfgPath     string
	logLevel    string
	metricsAddr string

	appConfig  *config.AppConfig
	appLog     zerolog.Logger
	appMetrics *metrics.Metrics

	metricsServer *http.Server
)

var rootCmd = &cobra.Command{
	Use:   "ragnotes",
	Short: "Ask questions about your PDFs and turn books into structured notes",
	Long: `ragnotes indexes a folder of PDF documents into a vector store, answers
questions grounded in the indexed text, and summarizes books chapter by
chapter into structured JSON notes.`,
	SilenceUsage:       true,
	PersistentPreRunE:  setup,
	PersistentPostRunE: teardown,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgPath, "config", "c", "", "config file (default ./ragnotes.yaml or ~/.config/ragnotes/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level: debug, info, warn, error")
	rootCmd.PersistentFlags().StringVar(&metricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address while the command runs")
}

// Execute runs the root command
func Execute(ctx context.Context) error {
	return rootCmd.ExecuteContext(ctx)
}

func setup(cmd *cobra.Command, _ []string) error {
	var err error
	if cfgPath != "" {
		appConfig, err = config.Load(cfgPath)
	} else {
		appConfig, _, err = config.LoadDefault()
	}
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	level := appConfig.Log.Level
	if logLevel != "" {
		level = logLevel
	}
	appLog = logger.New(logger.Config{
		Level:  level,
		Pretty: appConfig.Log.Pretty,
		Output: cmd.ErrOrStderr(),
	})
	appMetrics = metrics.New(prometheus.NewRegistry())

	addr := appConfig.Metrics.Addr
	if metricsAddr != "" {
		addr = metricsAddr
	}
	if addr != "" {
		startMetricsServer(addr)
	}
	return nil
}

func startMetricsServer(addr string) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", appMetrics.Handler())
	metricsServer = &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	log := logger.Component(appLog, "metrics")
	go func() {
		if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Str("addr", addr).Msg("metrics server stopped")
		}
	}()
	log.Info().Str("addr", addr).Msg("serving metrics")
}

func teardown(*cobra.Command, []string) error {
	if metricsServer == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	err := metricsServer.Shutdown(ctx)
	metricsServer = nil
	return err
}
