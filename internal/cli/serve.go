// SPDX-License-Identifier: Apache-2.0

package cli

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/ferrywire/ferrywire/internal/backend"
	"github.com/ferrywire/ferrywire/internal/config"
	"github.com/ferrywire/ferrywire/internal/logging"
	"github.com/ferrywire/ferrywire/internal/persistence/postgres"
	"github.com/ferrywire/ferrywire/internal/relay"
	"github.com/ferrywire/ferrywire/internal/repository"
	"github.com/ferrywire/ferrywire/internal/supervisor"
	httptransport "github.com/ferrywire/ferrywire/internal/transport/http"
)

var serveFlags struct {
	wcfHost  string
	wcfPort  int
	wcfDebug bool
	host     string
	port     int
	callback string
}

func init() {
	serveCmd.Flags().StringVar(&serveFlags.wcfHost, "wcf-host", "", "backend host (empty starts a local backend)")
	serveCmd.Flags().IntVar(&serveFlags.wcfPort, "wcf-port", 10086, "backend port (port+1 is reserved for the event stream)")
	serveCmd.Flags().BoolVar(&serveFlags.wcfDebug, "wcf-debug", true, "enable backend debug mode")
	serveCmd.Flags().StringVar(&serveFlags.host, "host", "0.0.0.0", "HTTP listen host")
	serveCmd.Flags().IntVar(&serveFlags.port, "port", 9999, "HTTP listen port")
	serveCmd.Flags().StringVar(&serveFlags.callback, "cb", "", "callback URL for forwarded events (empty discards them)")

	rootCmd.AddCommand(serveCmd)
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP facade and event relay",
	RunE:  runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	applyFlagOverrides(cmd, &cfg)
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	logger := logging.NewLogger(cfg.Env)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	queue := relay.NewQueue(cfg.QueueCapacity)

	var sink relay.DeadLetterSink = &relay.LogSink{Logger: logger}
	if cfg.DatabaseURL != "" {
		pool, err := postgres.NewPool(ctx, cfg.DatabaseURL)
		if err != nil {
			return fmt.Errorf("db connect failed: %w", err)
		}
		defer pool.Close()

		if err := postgres.EnsureSchema(ctx, pool, logger); err != nil {
			return fmt.Errorf("schema bootstrap failed: %w", err)
		}
		sink = repository.NewDeadLetterRepository(pool, logger)
		logger.Info("dead letters persisted to postgres")
	}

	logger.Info("backend configured",
		"wcf_host", cfg.WcfHost,
		"wcf_port", cfg.WcfPort,
		"wcf_debug", cfg.WcfDebug,
	)
	client := &backend.StubClient{Logger: logger}
	gate := backend.NewGate(client)

	adapter := relay.NewAdapter(relay.AdapterDeps{
		Receiver: gate,
		Queue:    queue,
		Logger:   logging.WithComponent(logger, "adapter"),
	})
	dispatcher := relay.NewDispatcher(relay.DispatcherDeps{
		Queue:          queue,
		Sink:           sink,
		Logger:         logging.WithComponent(logger, "dispatcher"),
		CallbackURL:    cfg.CallbackURL,
		MaxAttempts:    cfg.MaxAttempts,
		AttemptTimeout: cfg.AttemptTimeout,
		RetryBase:      cfg.RetryBase,
	})

	sup := supervisor.New(supervisor.Deps{
		Backend:        gate,
		Adapter:        adapter,
		Dispatcher:     dispatcher,
		Queue:          queue,
		Logger:         logging.WithComponent(logger, "supervisor"),
		StartupTimeout: cfg.StartupTimeout,
		DrainGrace:     cfg.DrainGrace,
	})

	if err := sup.Start(ctx); err != nil {
		return fmt.Errorf("relay startup failed: %w", err)
	}

	handler := httptransport.NewRouter(httptransport.Deps{
		Backend:   gate,
		Ready:     sup,
		Logger:    logging.WithComponent(logger, "http"),
		Version:   Version,
		Commit:    Commit,
		BuildDate: BuildDate,
	})

	addr := net.JoinHostPort(cfg.HTTPHost, fmt.Sprintf("%d", cfg.HTTPPort))
	srv := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("http listening",
			"addr", addr,
			"callback_url", cfg.CallbackURL,
			"version", Version,
			"commit", Commit,
			"build_date", BuildDate,
		)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		sup.Stop()
		if err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("server error: %w", err)
		}
	case <-ctx.Done():
		logger.Info("shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("server shutdown error", "error", err)
		}

		// Stop intake and drain queued deliveries within the grace period.
		sup.Stop()
	}

	logger.Info("stopped")
	return nil
}

// applyFlagOverrides layers explicitly-set command line flags over the
// loaded configuration. Flags win over environment and file values.
func applyFlagOverrides(cmd *cobra.Command, cfg *config.Config) {
	flags := cmd.Flags()
	if flags.Changed("wcf-host") {
		cfg.WcfHost = serveFlags.wcfHost
	}
	if flags.Changed("wcf-port") {
		cfg.WcfPort = serveFlags.wcfPort
	}
	if flags.Changed("wcf-debug") {
		cfg.WcfDebug = serveFlags.wcfDebug
	}
	if flags.Changed("host") {
		cfg.HTTPHost = serveFlags.host
	}
	if flags.Changed("port") {
		cfg.HTTPPort = serveFlags.port
	}
	if flags.Changed("cb") {
		cfg.CallbackURL = serveFlags.callback
	}
}
