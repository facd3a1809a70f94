// Package store persists the canonical collections: jobs, users, logbooks
// and resources.
//
// Two implementations share one contract. PostgresStore (pgx) is the
// production store; GormStore runs on SQLite for single-node deployments and
// tests. Both key external jobs on a unique index over external_id and rely
// on the database's INSERT ... ON CONFLICT DO UPDATE for atomic upserts.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/Devjadhav25/Prashikshan-sub001/internal/model"
)

var (
	// ErrNotFound is returned when a referenced row does not exist.
	ErrNotFound = errors.New("not found")
	// ErrDuplicate is returned when a uniqueness constraint rejects a write.
	ErrDuplicate = errors.New("duplicate")
	// ErrNotExternal is returned when an upsert is attempted on a job
	// without an external id. Manual jobs are never touched by the sync
	// engine.
	ErrNotExternal = errors.New("job has no external id")
	// ErrManualWithExternalID is returned when CreateJob receives a job
	// that carries an external id.
	ErrManualWithExternalID = errors.New("manual job must not carry an external id")
)

// UpsertResult describes the outcome of UpsertExternalJob.
type UpsertResult struct {
	Job      *model.Job
	Inserted bool
}

// JobUpserter is the single primitive the merge engine needs.
type JobUpserter interface {
	UpsertExternalJob(ctx context.Context, job *model.Job) (UpsertResult, error)
}

// Store is the full persistence contract.
type Store interface {
	JobUpserter

	Migrate(ctx context.Context) error
	Close() error

	CreateJob(ctx context.Context, job *model.Job) (*model.Job, error)
	GetJob(ctx context.Context, id string) (*model.Job, error)
	GetJobByExternalID(ctx context.Context, externalID string) (*model.Job, error)
	ListJobs(ctx context.Context) ([]model.Job, error)
	CountJobs(ctx context.Context) (int64, error)

	LikeJob(ctx context.Context, jobID, userID string) error
	ApplyToJob(ctx context.Context, jobID, userID string) error
	SaveJob(ctx context.Context, userID, jobID string) error

	EnsureUser(ctx context.Context, u *model.User) (*model.User, error)
	GetUser(ctx context.Context, id string) (*model.User, error)

	CreateLogbook(ctx context.Context, l *model.Logbook) (*model.Logbook, error)
	ReviewLogbook(ctx context.Context, id, reviewerID string, status model.LogbookStatus) (*model.Logbook, error)

	CreateResource(ctx context.Context, r *model.Resource) (*model.Resource, error)
	CompleteResource(ctx context.Context, userID, resourceID string) (awarded bool, err error)
}

// prepareUpsert validates an incoming external job before any write.
func prepareUpsert(job *model.Job) error {
	if !job.IsExternal() {
		return ErrNotExternal
	}
	return job.Validate()
}

// prepareLogbook validates a new entry and normalizes its date and status.
func prepareLogbook(l *model.Logbook) error {
	if err := l.Validate(); err != nil {
		return err
	}
	l.Date = model.Day(l.Date)
	l.Status = model.LogbookPending
	return nil
}

// checkReview validates a review transition.
func checkReview(from, to model.LogbookStatus) error {
	if !model.IsLogbookTransitionAllowed(from, to) {
		return &model.ValidationError{
			Field: "status",
			Msg:   "transition " + string(from) + " → " + string(to) + " is not allowed",
		}
	}
	return nil
}

func nowUTC() time.Time { return time.Now().UTC() }

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
