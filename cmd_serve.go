package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"agentic_research_writer/metrics"
	"agentic_research_writer/publisher"
	"agentic_research_writer/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP/websocket API",
	Args:  cobra.NoArgs,
	RunE:  runServe,
}

var (
	addrFlag         string
	serveOfflineFlag bool
)

func init() {
	serveCmd.Flags().StringVar(&addrFlag, "addr", "", "listen address (overrides server.addr)")
	serveCmd.Flags().BoolVar(&serveOfflineFlag, "offline", false, "use offline mock providers")
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, logger, err := loadConfig()
	if err != nil {
		return err
	}
	defer logger.Sync() //nolint:errcheck

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	collector := metrics.NewCollector("arw", reg, logger)

	orch, err := buildOrchestrator(cfg, serveOfflineFlag, logger, collector)
	if err != nil {
		return err
	}

	var publish server.PublishFunc
	if cfg.WeChat.Enabled() {
		publish = func(ctx context.Context, params publisher.PublishParams) (string, error) {
			p, err := publisher.New(ctx, cfg.WeChat, logger)
			if err != nil {
				return "", err
			}
			return p.PublishDraft(ctx, params)
		}
	}

	srv, err := server.New(server.Options{
		Orchestrator: orch,
		Publish:      publish,
		Recorder:     collector,
		Gatherer:     reg,
		Logger:       logger,
		RunTimeout:   cfg.Server.RunTimeout,
	})
	if err != nil {
		return err
	}

	listen := cfg.Server.Addr
	if addrFlag != "" {
		listen = addrFlag
	}
	httpServer := &http.Server{
		Addr:              listen,
		Handler:           srv.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		logger.Info("starting web server", zap.String("addr", listen), zap.Bool("offline", serveOfflineFlag))
		errCh <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	return httpServer.Shutdown(shutdownCtx)
}
