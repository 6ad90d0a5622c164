package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/handsomefox/movie-ranking/internal/config"
	"github.com/handsomefox/movie-ranking/internal/env"
	"github.com/handsomefox/movie-ranking/internal/handlers"
	"github.com/handsomefox/movie-ranking/internal/logger"
	"github.com/handsomefox/movie-ranking/internal/metrics"
	"github.com/handsomefox/movie-ranking/internal/store"
	"github.com/handsomefox/movie-ranking/internal/tmdb"

	_ "github.com/joho/godotenv/autoload"
)

const shutdownTimeout = 10 * time.Second

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Println("Error:", err.Error())
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	v := config.NewViper()

	root := &cobra.Command{
		Use:           "movie-ranking",
		Short:         "Personal movie ranking web app",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(*cobra.Command, []string) {
			configureProcess(v)
		},
	}
	root.PersistentFlags().String("db-path", "", "path to the SQLite database (env DB_PATH)")
	root.PersistentFlags().String("log-level", "", "debug, info, warn or error (env LOG_LEVEL)")
	bindFlag(v, root.PersistentFlags().Lookup("db-path"), config.KeyDBPath)
	bindFlag(v, root.PersistentFlags().Lookup("log-level"), config.KeyLogLevel)

	serve := newServeCmd(v)
	root.RunE = serve.RunE
	root.Flags().AddFlagSet(serve.Flags())

	root.AddCommand(serve, newRerankCmd(v), newSearchCmd(v))
	return root
}

// configureProcess reads ENV through v, after .env has been loaded, and sets
// the process environment and default logger from it.
func configureProcess(v *viper.Viper) {
	env.Current = env.Parse(v.GetString(config.KeyEnv))
	slog.SetDefault(logger.New(logger.ParseLevel(v.GetString(config.KeyLogLevel))))
}

func newServeCmd(v *viper.Viper) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the web server (default)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(v, true)
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return serve(ctx, cfg)
		},
	}
	cmd.Flags().String("port", "", "port to listen on (env PORT)")
	bindFlag(v, cmd.Flags().Lookup("port"), config.KeyPort)
	return cmd
}

func serve(ctx context.Context, cfg *config.Config) error {
	st, err := store.Open(cfg.DBPath)
	if err != nil {
		return fmt.Errorf("failed to open db: %w", err)
	}
	defer func() {
		if err := st.Close(); err != nil {
			slog.Error("Failed to close DB", logger.Error(err))
		}
	}()

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m, err := metrics.New(registry)
	if err != nil {
		return err
	}

	tmdbCfg := cfg.TMDB()
	tmdbCfg.Recorder = m

	app, err := handlers.New(&handlers.Config{
		Store:         st,
		Catalog:       tmdb.New(tmdbCfg),
		Metrics:       m,
		Logger:        slog.Default(),
		Env:           cfg.Env,
		SessionSecret: cfg.SessionSecret,
		CORSOrigins:   cfg.CORSOrigins,
	})
	if err != nil {
		return fmt.Errorf("failed to init handlers: %w", err)
	}

	server := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           app.Router(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      cfg.TMDBTimeout + 10*time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("listening", slog.String("addr", server.Addr), slog.String("env", string(cfg.Env)))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("server error: %w", err)
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	slog.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return <-errCh
}
