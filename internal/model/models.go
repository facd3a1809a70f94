// Package model defines the canonical records shared by the store, the
// ingestion pipeline and the HTTP surface.
package model

import (
	"fmt"
	"strings"
	"time"
)

const (
	// DefaultLocation is used when a posting carries no location at all.
	DefaultLocation = "Remote"
	// SourceManual marks jobs created by a user rather than ingested.
	SourceManual = "Manual"
)

// SalaryType is the pay period a Job's salary refers to.
type SalaryType string

const (
	SalaryYear  SalaryType = "Year"
	SalaryMonth SalaryType = "Month"
	SalaryWeek  SalaryType = "Week"
	SalaryHour  SalaryType = "Hour"
)

// ParseSalaryType converts a raw string to a SalaryType, returning an error
// for unknown values.
func ParseSalaryType(s string) (SalaryType, error) {
	st := SalaryType(s)
	switch st {
	case SalaryYear, SalaryMonth, SalaryWeek, SalaryHour:
		return st, nil
	}
	return "", fmt.Errorf("unknown salary type %q", s)
}

// Job is the canonical posting, irrespective of origin.
//
// ExternalID is nil for manually created jobs. When set it is unique across
// the jobs collection; the sync engine keys every upsert on it.
type Job struct {
	ID           string     `json:"id"`
	ExternalID   *string    `json:"externalId,omitempty"`
	Title        string     `json:"title"`
	Description  string     `json:"description"`
	Location     string     `json:"location"`
	Salary       float64    `json:"salary"`
	SalaryType   SalaryType `json:"salaryType"`
	Negotiable   bool       `json:"negotiable"`
	JobType      []string   `json:"jobType"`
	Tags         []string   `json:"tags"`
	Skills       []string   `json:"skills"`
	Likes        []string   `json:"likes"`
	Applicants   []string   `json:"applicants"`
	CreatedBy    string     `json:"createdBy"`
	Source       string     `json:"source"`
	ExternalLink *string    `json:"externalLink,omitempty"`
	ApplyLink    *string    `json:"applyLink,omitempty"`
	EmployerLogo *string    `json:"employer_logo,omitempty"`
	CreatedAt    time.Time  `json:"createdAt"`
	UpdatedAt    time.Time  `json:"updatedAt"`
}

// IsExternal reports whether the job was ingested from an external source.
func (j *Job) IsExternal() bool { return j.ExternalID != nil }

// Validate enforces the write-time constraints of the jobs collection.
func (j *Job) Validate() error {
	if strings.TrimSpace(j.Title) == "" {
		return &ValidationError{Field: "title", Msg: "title is required"}
	}
	if j.Salary <= 0 {
		return &ValidationError{Field: "salary", Msg: "salary must be a positive number"}
	}
	if _, err := ParseSalaryType(string(j.SalaryType)); err != nil {
		return &ValidationError{Field: "salaryType", Msg: err.Error()}
	}
	if j.CreatedBy == "" {
		return &ValidationError{Field: "createdBy", Msg: "createdBy is required"}
	}
	if j.ExternalID != nil && strings.TrimSpace(*j.ExternalID) == "" {
		return &ValidationError{Field: "externalId", Msg: "externalId must not be empty when present"}
	}
	return nil
}

// NewManualJob returns a user-created job with the manual defaults applied.
func NewManualJob(title, description string, salary float64, createdBy string) *Job {
	return &Job{
		Title:       title,
		Description: description,
		Location:    DefaultLocation,
		Salary:      salary,
		SalaryType:  SalaryYear,
		JobType:     []string{"Full Time"},
		Tags:        []string{},
		Skills:      []string{},
		CreatedBy:   createdBy,
		Source:      SourceManual,
	}
}

// User holds the fields of a platform account the sync engine and the
// credit process rely on.
type User struct {
	ID               string             `json:"id"`
	Email            string             `json:"email"`
	ProviderID       string             `json:"providerId"`
	Name             string             `json:"name"`
	AppliedJobs      []string           `json:"appliedJobs"`
	SavedJobs        []string           `json:"savedJobs"`
	CompletedCourses []string           `json:"completedCourses"`
	EarnedCredits    float64            `json:"earnedCredits"`
	Skills           map[string]float64 `json:"skills"`
	CreatedAt        time.Time          `json:"createdAt"`
}

// Validate checks the identity fields every user must carry.
func (u *User) Validate() error {
	if strings.TrimSpace(u.Email) == "" {
		return &ValidationError{Field: "email", Msg: "email is required"}
	}
	if strings.TrimSpace(u.ProviderID) == "" {
		return &ValidationError{Field: "providerId", Msg: "providerId is required"}
	}
	return nil
}

// Resource is a learning item that awards credits and skills on completion.
type Resource struct {
	ID            string    `json:"id"`
	Title         string    `json:"title"`
	SkillsAwarded []string  `json:"skillsAwarded"`
	Credits       float64   `json:"credits"`
	CreatedAt     time.Time `json:"createdAt"`
}

// Validate checks a resource before it is stored.
func (r *Resource) Validate() error {
	if strings.TrimSpace(r.Title) == "" {
		return &ValidationError{Field: "title", Msg: "title is required"}
	}
	if r.Credits < 0 {
		return &ValidationError{Field: "credits", Msg: "credits must not be negative"}
	}
	return nil
}

// AddUnique appends v to set unless already present. Order is preserved.
func AddUnique(set []string, v string) []string {
	for _, s := range set {
		if s == v {
			return set
		}
	}
	return append(set, v)
}

// Dedupe drops repeated and empty values, keeping first occurrences.
func Dedupe(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if v == "" {
			continue
		}
		out = AddUnique(out, v)
	}
	return out
}
