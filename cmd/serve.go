package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/manvithgkacharya/yt-download/internal/fetcher"
	"github.com/manvithgkacharya/yt-download/internal/manager"
	"github.com/manvithgkacharya/yt-download/internal/output"
	"github.com/manvithgkacharya/yt-download/internal/progress"
	"github.com/manvithgkacharya/yt-download/internal/resolver"
	"github.com/manvithgkacharya/yt-download/internal/server"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

func newServeCmd() *cobra.Command {
	var listen string

	cmd := &cobra.Command{
		Use:   "serve [--listen ADDR]",
		Short: "Run the download server",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			cfg, err := loadConfig()
			if err != nil {
				output.PrintError(err.Error())
				os.Exit(1)
			}
			if listen != "" {
				cfg.Listen = listen
			}
			if err := os.MkdirAll(cfg.DownloadsDir, 0755); err != nil {
				output.PrintError("Could not create downloads directory: " + err.Error())
				os.Exit(1)
			}

			res, err := resolver.New(cfg.ResolveTimeout.Std(), cfg.RandomizeUA)
			if err != nil {
				output.PrintError(err.Error())
				os.Exit(1)
			}
			fet, err := fetcher.New(cfg.RandomizeUA)
			if err != nil {
				output.PrintError(err.Error())
				os.Exit(1)
			}
			store := progress.NewStore()
			mgr := manager.New(store, res, fet, cfg.DownloadsDir, cfg.MaxJobs)
			srv := server.New(cfg.Listen, cfg.DownloadsDir, mgr, res)

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			if cfg.Retention > 0 {
				go reapLoop(ctx, store, cfg.Retention.Std())
			}

			if err := srv.Run(ctx); err != nil {
				output.PrintError("Server error: " + err.Error())
				os.Exit(1)
			}
		},
	}

	cmd.Flags().StringVarP(&listen, "listen", "l", "", "Listen address (overrides config)")
	return cmd
}

// reapLoop evicts terminal job states older than the retention window.
// Evicted ids report unknown to pollers afterward, which is why this only
// runs when retention is explicitly configured.
func reapLoop(ctx context.Context, store *progress.Store, retention time.Duration) {
	interval := retention / 4
	if interval < time.Minute {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if removed := store.Reap(retention); removed > 0 {
				log.Debug().Str("op", "cmd/serve").Msgf("Reaped %d finished job entries", removed)
			}
		}
	}
}
