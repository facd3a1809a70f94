// Package ingest turns raw external job records into canonical jobs. The
// Merger normalizes and upserts one record; the Syncer runs a whole batch
// from a Source and signals subscribers once per run.
package ingest

import (
	"context"
	"errors"
	"fmt"

	"github.com/Devjadhav25/Prashikshan-sub001/internal/jsearch"
	"github.com/Devjadhav25/Prashikshan-sub001/internal/model"
	"github.com/Devjadhav25/Prashikshan-sub001/internal/store"
)

// ErrRecordInvalid marks a record that was skipped because it failed
// normalization or validation.
var ErrRecordInvalid = jsearch.ErrRecordInvalid

// Merger normalizes raw records and upserts them under a fixed owner.
type Merger struct {
	store store.JobUpserter
	owner string
}

// NewMerger returns a Merger writing jobs owned by owner, the id of the
// ingestion service account.
func NewMerger(s store.JobUpserter, owner string) *Merger {
	return &Merger{store: s, owner: owner}
}

// Merge inserts the record as a new job or overwrites the normalized fields
// of the job already stored under its external id. Validation failures wrap
// ErrRecordInvalid; anything else is a store error.
func (m *Merger) Merge(ctx context.Context, raw jsearch.RawJob) (store.UpsertResult, error) {
	job, err := jsearch.Normalize(raw, m.owner)
	if err != nil {
		return store.UpsertResult{}, err
	}

	res, err := m.store.UpsertExternalJob(ctx, job)
	if err != nil {
		var verr *model.ValidationError
		if errors.As(err, &verr) {
			return store.UpsertResult{}, fmt.Errorf("%w: %w", ErrRecordInvalid, err)
		}
		return store.UpsertResult{}, err
	}
	return res, nil
}
