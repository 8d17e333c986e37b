package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/zeusync/eventscope/internal/core/manager"
	"github.com/zeusync/eventscope/internal/core/notify"
	"github.com/zeusync/eventscope/internal/core/observability/log"
	"github.com/zeusync/eventscope/internal/core/project"
	"github.com/zeusync/eventscope/internal/core/stats"
	"github.com/zeusync/eventscope/internal/server"
)

func newWatchCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Reload the project on change and print statistics after every rebuild",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			m, _, err := a.open()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			sub, err := m.Notices().Subscribe(notify.IndexRebuilt, func(notify.Notice) error {
				fmt.Fprintf(out, "\n%s rebuilt\n", time.Now().Format(time.TimeOnly))
				return writeStats(out, m.AllStatistics())
			})
			if err != nil {
				return err
			}
			defer func() { _ = sub.Cancel() }()

			if err := writeStats(out, m.AllStatistics()); err != nil {
				return err
			}

			g, ctx := errgroup.WithContext(ctx)
			reloads := make(chan struct{}, 1)
			g.Go(func() error { return watchProject(ctx, a.cfg.Project, reloads, log.Provide()) })
			g.Go(func() error { return pollLoop(ctx, m, a, reloads) })
			return g.Wait()
		},
	}
}

func newServeCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the statistics feed over websocket and metrics over HTTP",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			m, reg, err := a.open()
			if err != nil {
				return err
			}
			logger := log.Provide()
			hub := server.NewHub(logger)
			broadcast := func(n notify.Notice) error {
				rows := m.AllStatistics()
				return hub.Broadcast(server.Snapshot{
					Reason:     n.Type(),
					At:         n.Timestamp(),
					Containers: rows,
					Totals:     stats.Totals(rows),
				})
			}
			sub, err := m.Notices().Subscribe(notify.IndexRebuilt, broadcast)
			if err != nil {
				return err
			}
			defer func() { _ = sub.Cancel() }()
			if err := broadcast(notify.NewNotice(notify.IndexRebuilt, "serve", nil)); err != nil {
				return err
			}

			srv := server.NewHTTPServer(a.cfg.Serve, hub, promhttp.HandlerFor(reg, promhttp.HandlerOpts{}), logger)

			g, ctx := errgroup.WithContext(ctx)
			reloads := make(chan struct{}, 1)
			g.Go(func() error { return srv.Run(ctx) })
			g.Go(func() error { return watchProject(ctx, a.cfg.Project, reloads, logger) })
			g.Go(func() error { return pollLoop(ctx, m, a, reloads) })
			return g.Wait()
		},
	}
	cmd.Flags().String("addr", "", "listen address")
	_ = a.v.BindPFlag("serve.addr", cmd.Flags().Lookup("addr"))
	return cmd
}

// watchProject signals reloads whenever the project file is written or replaced.
// The directory is watched so editors that save through a rename are seen.
func watchProject(ctx context.Context, path string, reloads chan<- struct{}, logger log.Log) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	target := filepath.Clean(path)
	if err := watcher.Add(filepath.Dir(target)); err != nil {
		return fmt.Errorf("watching %s: %w", target, err)
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != target || !ev.Has(fsnotify.Write|fsnotify.Create|fsnotify.Rename) {
				continue
			}
			select {
			case reloads <- struct{}{}:
			default:
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.Warn("project watcher error", log.Error(err))
		}
	}
}

// pollLoop owns the manager: it ticks the rescan scheduler and applies reloads.
func pollLoop(ctx context.Context, m *manager.Manager, a *app, reloads <-chan struct{}) error {
	logger := log.Provide()
	ticker := time.NewTicker(a.cfg.PollInterval)
	defer ticker.Stop()
	last := time.Now()

	for {
		select {
		case <-ctx.Done():
			return nil
		case now := <-ticker.C:
			m.Poll(now.Sub(last))
			last = now
		case <-reloads:
			p, err := project.Load(a.cfg.Project, project.NewRegistry())
			if err != nil {
				logger.Warn("project reload failed", log.String("path", a.cfg.Project), log.Error(err))
				continue
			}
			m.SetProject(p)
			logger.Info("project reloaded", log.String("path", a.cfg.Project))
		}
	}
}
