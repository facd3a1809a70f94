package model_test

import (
	"errors"
	"testing"
	"time"

	"github.com/Devjadhav25/Prashikshan-sub001/internal/model"
)

// ── ParseLogbookStatus ─────────────────────────────────────────────────────

func TestParseLogbookStatus_ValidValues(t *testing.T) {
	valid := []string{"PENDING", "APPROVED", "REJECTED"}
	for _, s := range valid {
		got, err := model.ParseLogbookStatus(s)
		if err != nil {
			t.Errorf("ParseLogbookStatus(%q) returned unexpected error: %v", s, err)
		}
		if string(got) != s {
			t.Errorf("ParseLogbookStatus(%q) = %q, want %q", s, got, s)
		}
	}
}

func TestParseLogbookStatus_Invalid(t *testing.T) {
	for _, s := range []string{"", "UNKNOWN", "pending", " APPROVED"} {
		if _, err := model.ParseLogbookStatus(s); err == nil {
			t.Errorf("ParseLogbookStatus(%q) expected error, got nil", s)
		}
	}
}

// ── IsLogbookTransitionAllowed ─────────────────────────────────────────────

func TestIsLogbookTransitionAllowed_FromPending(t *testing.T) {
	for _, to := range []model.LogbookStatus{model.LogbookApproved, model.LogbookRejected} {
		if !model.IsLogbookTransitionAllowed(model.LogbookPending, to) {
			t.Errorf("IsLogbookTransitionAllowed(PENDING → %s) should be true", to)
		}
	}
}

func TestIsLogbookTransitionAllowed_FromTerminal(t *testing.T) {
	terminals := []model.LogbookStatus{model.LogbookApproved, model.LogbookRejected}
	targets := []model.LogbookStatus{model.LogbookPending, model.LogbookApproved, model.LogbookRejected}
	for _, from := range terminals {
		if !from.IsTerminal() {
			t.Errorf("%s.IsTerminal() should be true", from)
		}
		for _, to := range targets {
			if model.IsLogbookTransitionAllowed(from, to) {
				t.Errorf("IsLogbookTransitionAllowed(%s → %s) should be false (terminal state)", from, to)
			}
		}
	}
}

// PENDING is only ever an initial state.
func TestIsLogbookTransitionAllowed_PendingIsNeverReachable(t *testing.T) {
	all := []model.LogbookStatus{model.LogbookPending, model.LogbookApproved, model.LogbookRejected}
	for _, from := range all {
		if model.IsLogbookTransitionAllowed(from, model.LogbookPending) {
			t.Errorf("IsLogbookTransitionAllowed(%s → PENDING) must be false", from)
		}
	}
}

// ── Logbook.Validate ───────────────────────────────────────────────────────

func TestLogbookValidate_HoursBounds(t *testing.T) {
	cases := []struct {
		hours int
		ok    bool
	}{
		{0, false},
		{1, true},
		{8, true},
		{12, true},
		{13, false},
		{-3, false},
	}
	for _, c := range cases {
		l := model.Logbook{
			StudentID:       "s1",
			Date:            time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC),
			HoursWorked:     c.hours,
			TaskDescription: "wrote tests",
		}
		err := l.Validate()
		if c.ok && err != nil {
			t.Errorf("hours=%d: unexpected error %v", c.hours, err)
		}
		if !c.ok {
			var verr *model.ValidationError
			if !errors.As(err, &verr) || verr.Field != "hoursWorked" {
				t.Errorf("hours=%d: expected hoursWorked validation error, got %v", c.hours, err)
			}
		}
	}
}

func TestLogbookValidate_MissingFields(t *testing.T) {
	base := model.Logbook{
		StudentID:       "s1",
		Date:            time.Now(),
		HoursWorked:     4,
		TaskDescription: "standup",
	}

	noStudent := base
	noStudent.StudentID = ""
	noDate := base
	noDate.Date = time.Time{}
	noTask := base
	noTask.TaskDescription = "   "

	for name, l := range map[string]model.Logbook{"student": noStudent, "date": noDate, "task": noTask} {
		if err := l.Validate(); err == nil {
			t.Errorf("%s: expected validation error, got nil", name)
		}
	}
}

func TestDay_TruncatesToUTCDate(t *testing.T) {
	loc := time.FixedZone("IST", 5*3600+1800)
	in := time.Date(2026, 5, 10, 2, 15, 0, 0, loc) // 2026-05-09 20:45 UTC
	got := model.Day(in)
	want := time.Date(2026, 5, 9, 0, 0, 0, 0, time.UTC)
	if !got.Equal(want) {
		t.Errorf("Day(%v) = %v, want %v", in, got, want)
	}
}
