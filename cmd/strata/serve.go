package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	backend "github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"github.com/stratadesk/strata"
	"github.com/stratadesk/strata/internal/config"
	"github.com/stratadesk/strata/internal/logging"
	"github.com/stratadesk/strata/internal/metrics"
	"github.com/stratadesk/strata/pkg/adapters/bolt"
	httpAdapter "github.com/stratadesk/strata/pkg/adapters/http"
	"github.com/stratadesk/strata/pkg/adapters/memory"
	redisAdapter "github.com/stratadesk/strata/pkg/adapters/redis"
	"github.com/stratadesk/strata/pkg/persistence/middleware"
	"github.com/stratadesk/strata/pkg/ports"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the navigation daemon",
	Long:  `Starts the Strata daemon, exposing the command/event bridge over HTTP and SSE.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		configPath, _ := cmd.Flags().GetString("config")
		listen, _ := cmd.Flags().GetString("listen")

		cfg := config.Default()
		if configPath != "" {
			var err error
			cfg, err = config.Load(configPath)
			if err != nil {
				return err
			}
		}
		if listen != "" {
			cfg.Listen = listen
		}

		logger := logging.New(logging.ParseLevel(cfg.LogLevel))

		reg := prometheus.NewRegistry()
		m := metrics.New(reg)

		opts := []strata.Option{
			strata.WithLogger(logger),
			strata.WithMetrics(m),
		}

		var closeStore func() error
		var clusterStore ports.ClusterStore
		var metaStore ports.MetaStore
		switch cfg.Store.Backend {
		case "memory":
			clusterStore = memory.NewClusterStore()
			metaStore = memory.NewMetaStore()
		case "bolt":
			store, err := bolt.Open(cfg.Store.Bolt.Path)
			if err != nil {
				return err
			}
			closeStore = store.Close
			clusterStore = store
			metaStore = store.Meta()
		case "redis":
			client := backend.NewClient(&backend.Options{
				Addr:     cfg.Store.Redis.Addr,
				Password: cfg.Store.Redis.Password,
				DB:       cfg.Store.Redis.DB,
			})
			closeStore = client.Close
			clusterStore = redisAdapter.NewClusterStore(client)
			metaStore = redisAdapter.NewMetaStore(client, "")
			opts = append(opts, strata.WithLocker(redisAdapter.NewLocker(client, "strata:")))
		}

		// Metadata carries window titles and document paths; redaction and
		// encryption wrap the backend when configured. Redact first so the
		// ciphertext never contains the masked values.
		var mws []middleware.Middleware
		if len(cfg.Store.RedactPatterns) > 0 {
			mws = append(mws, middleware.NewRedactMiddleware(cfg.Store.RedactPatterns))
		}
		if cfg.Store.EncryptionKey != "" {
			key, err := cfg.Store.EncryptionKeyBytes()
			if err != nil {
				return err
			}
			mws = append(mws, middleware.NewEncryptionMiddleware(middleware.EncryptionConfig{ActiveKey: key}))
		}
		metaStore = middleware.Chain(metaStore, mws...)

		opts = append(opts,
			strata.WithClusterStore(clusterStore),
			strata.WithMetaStore(metaStore),
		)

		sys := strata.New(opts...)
		defer sys.Close()
		if closeStore != nil {
			defer closeStore()
		}

		var httpOpts []httpAdapter.Option
		httpOpts = append(httpOpts,
			httpAdapter.WithLogger(logger),
			httpAdapter.WithMetricsGatherer(reg),
			httpAdapter.WithVersion(strata.Version),
		)

		handler := httpAdapter.NewHandler(sys.Bridge, sys.Graph, sys.Viewports, httpOpts...)

		srv := &http.Server{
			Addr:    cfg.Listen,
			Handler: handler,
		}

		serverErrors := make(chan error, 1)
		go func() {
			logger.Info("strata daemon listening", "addr", srv.Addr, "store", cfg.Store.Backend)
			serverErrors <- srv.ListenAndServe()
		}()

		shutdown := make(chan os.Signal, 1)
		signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

		select {
		case err := <-serverErrors:
			return fmt.Errorf("server error: %w", err)

		case sig := <-shutdown:
			logger.Info("shutdown started", "signal", sig.String())

			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := srv.Shutdown(ctx); err != nil {
				logger.Warn("graceful shutdown did not complete", "err", err)
				if err := srv.Close(); err != nil {
					return fmt.Errorf("error killing server: %w", err)
				}
			}
			logger.Info("strata daemon stopped")
			return nil
		}
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringP("config", "c", "", "Path to the YAML config file")
	serveCmd.Flags().StringP("listen", "l", "", "HTTP listen address (overrides config)")
}
