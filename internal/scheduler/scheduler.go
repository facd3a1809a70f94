// Package scheduler wires up the cron job that periodically triggers a sync
// run.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/robfig/cron/v3"

	"github.com/Devjadhav25/Prashikshan-sub001/internal/ingest"
)

// Runner executes one sync run. *ingest.Syncer satisfies it.
type Runner interface {
	Run(ctx context.Context, query string) ingest.Report
}

// Scheduler wraps robfig/cron and manages the sync loop. Triggers may
// overlap; the store's upsert keeps concurrent runs safe.
type Scheduler struct {
	cron   *cron.Cron
	runner Runner
	query  string
	spec   string // cron spec, e.g. "@every 6h"
	wg     sync.WaitGroup
}

// Spec returns override when set, otherwise an interval of intervalHours.
func Spec(intervalHours int, override string) string {
	if s := strings.TrimSpace(override); s != "" {
		return s
	}
	return fmt.Sprintf("@every %dh", intervalHours)
}

// New creates a Scheduler that runs query on spec.
func New(runner Runner, query, spec string) *Scheduler {
	return &Scheduler{
		cron:   cron.New(cron.WithLogger(cron.DefaultLogger), cron.WithChain(cron.Recover(cron.DefaultLogger))),
		runner: runner,
		query:  query,
		spec:   spec,
	}
}

// Start registers the job and starts the scheduler. It also runs one sync
// immediately so the job feed is populated without waiting for the first
// tick.
func (s *Scheduler) Start(ctx context.Context) error {
	if _, err := s.cron.AddFunc(s.spec, func() { s.run(ctx, "cron") }); err != nil {
		return fmt.Errorf("cron.AddFunc(%q): %w", s.spec, err)
	}

	s.cron.Start()
	slog.Info("scheduler started", "spec", s.spec, "query", s.query)

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.run(ctx, "startup")
	}()
	return nil
}

// Stop halts the scheduler and waits for running syncs to finish.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
	s.wg.Wait()
	slog.Info("scheduler stopped")
}

func (s *Scheduler) run(ctx context.Context, trigger string) {
	rep := s.runner.Run(ctx, s.query)
	slog.Info("scheduled sync finished",
		"trigger", trigger, "run_id", rep.RunID, "state", rep.State,
		"merged", rep.Merged, "skipped", rep.Skipped)
}
