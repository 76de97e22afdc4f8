package client

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/cloo-solutions/skumatch/internal/cli"
	"github.com/cloo-solutions/skumatch/internal/config"
	"github.com/cloo-solutions/skumatch/internal/jobs"
	"github.com/cloo-solutions/skumatch/internal/remote"
	"github.com/cloo-solutions/skumatch/internal/server"
	"github.com/cloo-solutions/skumatch/internal/web"
)

const (
	minSweepInterval = time.Second
	maxSweepInterval = time.Minute
)

// UICmd creates the ui command.
func UICmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ui",
		Short: "Serve the matching UI in the browser",
		Long: `Starts a web server for the upload, match and confirm flow. Each browser
gets its own session; idle sessions are dropped after SKUMATCH_SESSION_TTL.`,
		RunE: runUI,
	}

	config.RegisterUIFlags(cmd.Flags())

	return cmd
}

func runUI(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.LoadUI()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	cfg.ApplyFlags(cmd.Flags())

	defer cli.InitTelemetry(cfg.Debug)()

	client := remote.NewClient(remote.Config{
		ProcessURL: cfg.ProcessURL,
		SearchURL:  cfg.SearchURL,
		Timeout:    cfg.RequestTimeout,
	})
	log.Printf("collaborators: process=%s search=%s", cfg.ProcessURL, cfg.SearchURL)

	store := web.NewStore(client, cfg.SessionTTL)
	var workers []*jobs.Worker
	if cfg.SessionTTL > 0 {
		sweeper := jobs.NewWorker("session-sweep", jobs.ProcessorFunc(store.Sweep), sweepInterval(cfg.SessionTTL))
		go sweeper.Start(ctx)
		workers = append(workers, sweeper)
	}

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           server.NewUIRouter(server.UIRouterConfig{Handler: web.NewHandler(store)}),
		ReadHeaderTimeout: 10 * time.Second,
	}

	return server.ListenAndServe(ctx, srv, workers...)
}

func sweepInterval(ttl time.Duration) time.Duration {
	return max(min(ttl/4, maxSweepInterval), minSweepInterval)
}
