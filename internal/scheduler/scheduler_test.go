package scheduler

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/Devjadhav25/Prashikshan-sub001/internal/ingest"
)

type countingRunner struct {
	mu      sync.Mutex
	queries []string
}

func (r *countingRunner) Run(_ context.Context, query string) ingest.Report {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.queries = append(r.queries, query)
	return ingest.Report{State: ingest.StateCompleted}
}

func (r *countingRunner) calls() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.queries)
}

func TestSpec(t *testing.T) {
	tests := []struct {
		hours    int
		override string
		want     string
	}{
		{6, "", "@every 6h"},
		{1, "  ", "@every 1h"},
		{6, "0 */2 * * *", "0 */2 * * *"},
	}
	for _, tt := range tests {
		if got := Spec(tt.hours, tt.override); got != tt.want {
			t.Errorf("Spec(%d, %q) = %q, want %q", tt.hours, tt.override, got, tt.want)
		}
	}
}

func TestStart_RunsImmediately(t *testing.T) {
	r := &countingRunner{}
	s := New(r, "Software Engineer", "@every 1h")
	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	s.Stop()

	if got := r.calls(); got != 1 {
		t.Fatalf("expected 1 startup run, got %d", got)
	}
	if r.queries[0] != "Software Engineer" {
		t.Errorf("query = %q", r.queries[0])
	}
}

func TestStart_TicksOnSchedule(t *testing.T) {
	r := &countingRunner{}
	s := New(r, "q", "@every 1s")
	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer s.Stop()

	deadline := time.Now().Add(5 * time.Second)
	for r.calls() < 2 {
		if time.Now().After(deadline) {
			t.Fatalf("expected a cron tick after the startup run, got %d calls", r.calls())
		}
		time.Sleep(50 * time.Millisecond)
	}
}

func TestStart_InvalidSpec(t *testing.T) {
	s := New(&countingRunner{}, "q", "not a spec")
	if err := s.Start(context.Background()); err == nil {
		t.Fatal("expected an error for an invalid cron spec")
	}
}
