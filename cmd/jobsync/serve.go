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

	"github.com/spf13/cobra"

	"github.com/Devjadhav25/Prashikshan-sub001/internal/notify"
	"github.com/Devjadhav25/Prashikshan-sub001/internal/scheduler"
	"github.com/Devjadhav25/Prashikshan-sub001/internal/server"
)

const shutdownTimeout = 10 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the scheduler and the HTTP/WebSocket server",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		return serve(ctx)
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func serve(ctx context.Context) error {
	// ── Store ───────────────────────────────────────────────────────────────
	st, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer st.Close()

	owner, err := resolveOwner(ctx, st, cfg)
	if err != nil {
		return err
	}

	// ── Broadcast ───────────────────────────────────────────────────────────
	hub := notify.NewHub()
	defer hub.Close()

	bc, rdb, err := newBroadcaster(ctx, cfg, hub)
	if err != nil {
		return err
	}
	if rdb != nil {
		defer rdb.Close()
		// Every process relays the shared channel to its own clients,
		// including the one that published.
		go func() {
			if err := notify.NewRelay(rdb, hub).Run(ctx); err != nil {
				slog.Error("redis relay stopped", "err", err)
			}
		}()
	}

	// ── Sync ────────────────────────────────────────────────────────────────
	syncer := newSyncer(cfg, st, owner.ID, bc)
	sched := scheduler.New(syncer, cfg.SyncQuery, scheduler.Spec(cfg.SyncIntervalHours, cfg.SyncCron))
	if err := sched.Start(ctx); err != nil {
		return err
	}
	defer sched.Stop()

	// ── HTTP server ─────────────────────────────────────────────────────────
	h := server.NewHandler(server.Options{
		Store:        st,
		Syncer:       syncer,
		Hub:          hub,
		AdminToken:   cfg.AdminToken,
		DefaultQuery: cfg.SyncQuery,
		Version:      version,
	})
	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      h.Routes(),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 2 * time.Minute, // POST /sync answers after the run
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("listening", "addr", srv.Addr, "version", version)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	// ── Graceful shutdown ───────────────────────────────────────────────────
	select {
	case <-ctx.Done():
	case err := <-errCh:
		return fmt.Errorf("http server: %w", err)
	}

	slog.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Warn("shutdown error", "err", err)
	}
	return nil
}
