package model

import (
	"fmt"
	"strings"
	"time"
)

// Logbook hours bounds, inclusive.
const (
	MinLogbookHours = 1
	MaxLogbookHours = 12
)

// LogbookStatus is the review state of a daily logbook entry.
//
//	PENDING ──► APPROVED
//	   │
//	   └──────► REJECTED
//
// APPROVED and REJECTED are terminal states.
type LogbookStatus string

const (
	LogbookPending  LogbookStatus = "PENDING"
	LogbookApproved LogbookStatus = "APPROVED"
	LogbookRejected LogbookStatus = "REJECTED"
)

var logbookTransitions = map[LogbookStatus][]LogbookStatus{
	LogbookPending: {LogbookApproved, LogbookRejected},
}

// ParseLogbookStatus converts a raw string to a LogbookStatus, returning an
// error for unknown values.
func ParseLogbookStatus(s string) (LogbookStatus, error) {
	st := LogbookStatus(s)
	switch st {
	case LogbookPending, LogbookApproved, LogbookRejected:
		return st, nil
	}
	return "", fmt.Errorf("unknown logbook status %q", s)
}

// IsLogbookTransitionAllowed returns true when moving from → to is
// permitted by the review state machine.
func IsLogbookTransitionAllowed(from, to LogbookStatus) bool {
	for _, s := range logbookTransitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// IsTerminal reports whether no further review transition exists.
func (s LogbookStatus) IsTerminal() bool {
	return len(logbookTransitions[s]) == 0
}

// Logbook is one student's activity record for a single day.
type Logbook struct {
	ID              string        `json:"id"`
	StudentID       string        `json:"studentId"`
	Date            time.Time     `json:"date"`
	HoursWorked     int           `json:"hoursWorked"`
	TaskDescription string        `json:"taskDescription"`
	Status          LogbookStatus `json:"status"`
	ReviewedBy      *string       `json:"reviewedBy,omitempty"`
	ReviewedAt      *time.Time    `json:"reviewedAt,omitempty"`
	CreatedAt       time.Time     `json:"createdAt"`
}

// Validate checks the entry before it is created.
func (l *Logbook) Validate() error {
	if l.StudentID == "" {
		return &ValidationError{Field: "studentId", Msg: "studentId is required"}
	}
	if l.Date.IsZero() {
		return &ValidationError{Field: "date", Msg: "date is required"}
	}
	if l.HoursWorked < MinLogbookHours || l.HoursWorked > MaxLogbookHours {
		return &ValidationError{
			Field: "hoursWorked",
			Msg:   fmt.Sprintf("hoursWorked must be between %d and %d", MinLogbookHours, MaxLogbookHours),
		}
	}
	if strings.TrimSpace(l.TaskDescription) == "" {
		return &ValidationError{Field: "taskDescription", Msg: "taskDescription is required"}
	}
	return nil
}

// Day truncates t to its UTC calendar day, the uniqueness grain of
// logbook entries.
func Day(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
