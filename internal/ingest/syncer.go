package ingest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/Devjadhav25/Prashikshan-sub001/internal/jsearch"
	"github.com/Devjadhav25/Prashikshan-sub001/internal/notify"
	"github.com/Devjadhav25/Prashikshan-sub001/internal/store"
)

// State is the lifecycle stage of one sync run.
type State string

const (
	StateIdle      State = "Idle"
	StateFetching  State = "Fetching"
	StateMerging   State = "Merging"
	StateCompleted State = "Completed"
	StateFailed    State = "Failed"
)

// Source supplies raw records for a query.
type Source interface {
	Fetch(ctx context.Context, query string) ([]jsearch.RawJob, error)
}

// Report summarizes one run.
type Report struct {
	RunID      string    `json:"runId"`
	Query      string    `json:"query"`
	State      State     `json:"state"`
	Fetched    int       `json:"fetched"`
	Merged     int       `json:"merged"`
	Inserted   int       `json:"inserted"`
	Updated    int       `json:"updated"`
	Skipped    int       `json:"skipped"`
	Err        string    `json:"error,omitempty"`
	StartedAt  time.Time `json:"startedAt"`
	FinishedAt time.Time `json:"finishedAt"`
}

// Syncer runs fetch-normalize-merge cycles. It holds no run state, so any
// number of Run calls may execute at once; the store's upsert keeps them
// from producing duplicates.
type Syncer struct {
	source      Source
	merger      *Merger
	broadcaster notify.Broadcaster
	workers     int
}

// Option configures a Syncer.
type Option func(*Syncer)

// WithWorkers bounds how many records of one run are merged in parallel.
// Values below 2 keep merges sequential.
func WithWorkers(n int) Option {
	return func(s *Syncer) { s.workers = n }
}

// NewSyncer creates a Syncer. A nil broadcaster only logs events.
func NewSyncer(source Source, merger *Merger, broadcaster notify.Broadcaster, opts ...Option) *Syncer {
	if broadcaster == nil {
		broadcaster = notify.LogBroadcaster{}
	}
	s := &Syncer{source: source, merger: merger, broadcaster: broadcaster, workers: 1}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

type outcome struct {
	res store.UpsertResult
	err error
}

// Run performs one sync for query. It never returns an error: adapter
// failures end the run in StateFailed and record failures are counted as
// skips. Cancelling ctx aborts the fetch; once merging starts the run goes
// to completion.
func (s *Syncer) Run(ctx context.Context, query string) (rep Report) {
	if query == "" {
		query = jsearch.DefaultQuery
	}
	rep = Report{
		RunID:     uuid.NewString(),
		Query:     query,
		State:     StateIdle,
		StartedAt: time.Now().UTC(),
	}
	log := slog.Default().With("run_id", rep.RunID)

	defer func() {
		if p := recover(); p != nil {
			rep.State = StateFailed
			rep.Err = fmt.Sprintf("panic: %v", p)
			log.Error("sync run panicked", "panic", p)
		}
		rep.FinishedAt = time.Now().UTC()
	}()

	rep.State = StateFetching
	log.Info("sync run started", "query", query)

	records, err := s.source.Fetch(ctx, query)
	if err != nil {
		rep.State = StateFailed
		rep.Err = err.Error()
		log.Error("sync run failed at fetch", "err", err)
		return rep
	}
	rep.Fetched = len(records)
	if len(records) == 0 {
		rep.State = StateCompleted
		log.Info("sync run found no records")
		return rep
	}

	rep.State = StateMerging
	outcomes := s.mergeAll(context.WithoutCancel(ctx), log, records)

	var (
		summaries []notify.JobSummary
		seen      = make(map[string]bool, len(outcomes))
	)
	for _, o := range outcomes {
		if o.err != nil {
			rep.Skipped++
			continue
		}
		rep.Merged++
		if o.res.Inserted {
			rep.Inserted++
		} else {
			rep.Updated++
		}
		if !seen[o.res.Job.ID] {
			seen[o.res.Job.ID] = true
			summaries = append(summaries, notify.Summarize(o.res.Job))
		}
	}

	rep.State = StateCompleted
	log.Info("sync run completed",
		"fetched", rep.Fetched, "merged", rep.Merged, "inserted", rep.Inserted,
		"updated", rep.Updated, "skipped", rep.Skipped)

	if rep.Merged > 0 {
		s.broadcast(context.WithoutCancel(ctx), log,
			notify.NewJobEvent(rep.RunID, summaries, rep.Inserted, rep.Updated))
	}
	return rep
}

// broadcast delivers ev. The merged jobs are already committed, so a
// failing subscriber is logged and never changes the run's outcome.
func (s *Syncer) broadcast(ctx context.Context, log *slog.Logger, ev notify.Event) {
	defer func() {
		if p := recover(); p != nil {
			log.Error("broadcast panicked", "panic", p)
		}
	}()
	s.broadcaster.Broadcast(ctx, ev)
}

// mergeAll merges every record and returns the outcomes in input order.
func (s *Syncer) mergeAll(ctx context.Context, log *slog.Logger, records []jsearch.RawJob) []outcome {
	outcomes := make([]outcome, len(records))

	if s.workers < 2 {
		for i, raw := range records {
			outcomes[i] = s.mergeOne(ctx, log, raw)
		}
		return outcomes
	}

	var g errgroup.Group
	g.SetLimit(s.workers)
	for i, raw := range records {
		g.Go(func() error {
			outcomes[i] = s.mergeOne(ctx, log, raw)
			return nil
		})
	}
	_ = g.Wait()
	return outcomes
}

func (s *Syncer) mergeOne(ctx context.Context, log *slog.Logger, raw jsearch.RawJob) (o outcome) {
	extID := raw.ExternalID()
	defer func() {
		if p := recover(); p != nil {
			o = outcome{err: fmt.Errorf("panic: %v", p)}
			log.Error("record merge panicked", "external_id", extID, "panic", p)
		}
	}()

	res, err := s.merger.Merge(ctx, raw)
	switch {
	case errors.Is(err, ErrRecordInvalid):
		log.Warn("record skipped", "external_id", extID, "reason", err)
	case err != nil:
		log.Error("record merge failed", "external_id", extID, "err", err)
	default:
		log.Debug("record merged", "external_id", extID, "job_id", res.Job.ID, "inserted", res.Inserted)
	}
	return outcome{res: res, err: err}
}
