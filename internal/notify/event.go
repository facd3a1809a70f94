// Package notify delivers best-effort "new job available" signals to
// connected client sessions. Delivery is fire-and-forget: nothing is
// acknowledged or retried, and a client that misses a signal picks the change
// up on its next regular fetch.
package notify

import (
	"context"
	"log/slog"
	"time"

	"github.com/Devjadhav25/Prashikshan-sub001/internal/model"
)

const (
	// EventNewJobAvailable is the type of the aggregate event sent after a
	// sync run merges at least one job.
	EventNewJobAvailable = "NEW_JOB_AVAILABLE"
	// Channel is the Redis pub/sub channel events travel on between processes.
	Channel = "EVENT_" + EventNewJobAvailable
)

// JobSummary identifies one affected job inside an Event.
type JobSummary struct {
	ID         string `json:"id"`
	ExternalID string `json:"externalId"`
	Title      string `json:"title"`
	Location   string `json:"location"`
	Source     string `json:"source"`
}

// Summarize builds the summary of a stored job.
func Summarize(j *model.Job) JobSummary {
	s := JobSummary{ID: j.ID, Title: j.Title, Location: j.Location, Source: j.Source}
	if j.ExternalID != nil {
		s.ExternalID = *j.ExternalID
	}
	return s
}

// Event is the single aggregate notification of one sync run.
type Event struct {
	Type      string       `json:"type"`
	RunID     string       `json:"runId"`
	Count     int          `json:"count"`
	Inserted  int          `json:"inserted"`
	Updated   int          `json:"updated"`
	Jobs      []JobSummary `json:"jobs"`
	Timestamp time.Time    `json:"timestamp"`
}

// NewJobEvent returns the event for a run that merged jobs.
func NewJobEvent(runID string, jobs []JobSummary, inserted, updated int) Event {
	return Event{
		Type:      EventNewJobAvailable,
		RunID:     runID,
		Count:     len(jobs),
		Inserted:  inserted,
		Updated:   updated,
		Jobs:      jobs,
		Timestamp: time.Now().UTC(),
	}
}

// Broadcaster fans an event out to subscribers. Implementations never
// block on slow consumers and never report delivery failures.
type Broadcaster interface {
	Broadcast(ctx context.Context, ev Event)
}

// Multi broadcasts to every member in order.
type Multi []Broadcaster

// Broadcast implements Broadcaster.
func (m Multi) Broadcast(ctx context.Context, ev Event) {
	for _, b := range m {
		if b != nil {
			b.Broadcast(ctx, ev)
		}
	}
}

// LogBroadcaster only records the event in the log.
type LogBroadcaster struct{}

// Broadcast implements Broadcaster.
func (LogBroadcaster) Broadcast(_ context.Context, ev Event) {
	slog.Info("broadcast event",
		"type", ev.Type, "run_id", ev.RunID, "count", ev.Count,
		"inserted", ev.Inserted, "updated", ev.Updated)
}
