package store

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Devjadhav25/Prashikshan-sub001/internal/model"
)

const missingID = "00000000-0000-0000-0000-000000000000"

// runContract exercises the Store contract against one implementation.
func runContract(t *testing.T, open func(t *testing.T) Store) {
	t.Run("UpsertInsertsThenUpdatesInPlace", func(t *testing.T) { testUpsertInsertThenUpdate(t, open(t)) })
	t.Run("UpsertPreservesRelationships", func(t *testing.T) { testUpsertPreservesRelationships(t, open(t)) })
	t.Run("UpsertRejectsManualAndInvalid", func(t *testing.T) { testUpsertRejects(t, open(t)) })
	t.Run("ManualJobsCoexist", func(t *testing.T) { testManualJobsCoexist(t, open(t)) })
	t.Run("ConcurrentUpsertsSameKey", func(t *testing.T) { testConcurrentUpserts(t, open(t)) })
	t.Run("EnsureUserIsIdempotent", func(t *testing.T) { testEnsureUser(t, open(t)) })
	t.Run("RelationshipSets", func(t *testing.T) { testRelationshipSets(t, open(t)) })
	t.Run("LogbookLifecycle", func(t *testing.T) { testLogbookLifecycle(t, open(t)) })
	t.Run("CompleteResourceAwardsOnce", func(t *testing.T) { testCompleteResource(t, open(t)) })
}

func seedUser(t *testing.T, s Store, name string) *model.User {
	t.Helper()
	u, err := s.EnsureUser(context.Background(), &model.User{
		Email:      name + "@example.com",
		ProviderID: "provider|" + name,
		Name:       name,
	})
	require.NoError(t, err)
	return u
}

func externalJob(extID, title, owner string) *model.Job {
	id := extID
	link := "https://apply.example/" + extID
	return &model.Job{
		ExternalID:  &id,
		Title:       title,
		Description: "desc",
		Location:    "Remote",
		Salary:      45000,
		SalaryType:  model.SalaryYear,
		JobType:     []string{"Full Time"},
		Tags:        []string{title, "API"},
		Skills:      []string{"Contact Recruiter"},
		CreatedBy:   owner,
		Source:      "JSearch",
		ApplyLink:   &link,
	}
}

func testUpsertInsertThenUpdate(t *testing.T, s Store) {
	ctx := context.Background()
	owner := seedUser(t, s, "svc")

	first, err := s.UpsertExternalJob(ctx, externalJob("ext-1", "Go Dev", owner.ID))
	require.NoError(t, err)
	assert.True(t, first.Inserted)
	require.NotEmpty(t, first.Job.ID)

	changed := externalJob("ext-1", "Senior Go Dev", owner.ID)
	changed.Salary = 99000
	changed.Location = "Pune, IN"
	changed.ApplyLink = nil
	second, err := s.UpsertExternalJob(ctx, changed)
	require.NoError(t, err)
	assert.False(t, second.Inserted)
	assert.Equal(t, first.Job.ID, second.Job.ID, "internal id must survive an update")
	assert.Equal(t, "Senior Go Dev", second.Job.Title)
	assert.Equal(t, 99000.0, second.Job.Salary)
	assert.Equal(t, "Pune, IN", second.Job.Location)
	assert.Nil(t, second.Job.ApplyLink, "update is a full replace of normalized fields")
	assert.Equal(t, []string{"Senior Go Dev", "API"}, second.Job.Tags)

	n, err := s.CountJobs(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

func testUpsertPreservesRelationships(t *testing.T, s Store) {
	ctx := context.Background()
	owner := seedUser(t, s, "svc")
	student := seedUser(t, s, "student")

	res, err := s.UpsertExternalJob(ctx, externalJob("ext-2", "Data Intern", owner.ID))
	require.NoError(t, err)
	require.NoError(t, s.LikeJob(ctx, res.Job.ID, student.ID))
	require.NoError(t, s.ApplyToJob(ctx, res.Job.ID, student.ID))

	again, err := s.UpsertExternalJob(ctx, externalJob("ext-2", "Data Intern (updated)", owner.ID))
	require.NoError(t, err)
	assert.Equal(t, []string{student.ID}, again.Job.Likes)
	assert.Equal(t, []string{student.ID}, again.Job.Applicants)
}

func testUpsertRejects(t *testing.T, s Store) {
	ctx := context.Background()
	owner := seedUser(t, s, "svc")

	manual := model.NewManualJob("Manual", "d", 1000, owner.ID)
	_, err := s.UpsertExternalJob(ctx, manual)
	assert.ErrorIs(t, err, ErrNotExternal)

	bad := externalJob("ext-3", "", owner.ID)
	_, err = s.UpsertExternalJob(ctx, bad)
	var verr *model.ValidationError
	assert.True(t, errors.As(err, &verr), "expected validation error, got %v", err)

	n, err := s.CountJobs(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func testManualJobsCoexist(t *testing.T, s Store) {
	ctx := context.Background()
	owner := seedUser(t, s, "recruiter")

	for i := 0; i < 3; i++ {
		j, err := s.CreateJob(ctx, model.NewManualJob("Same Title", "d", 1000, owner.ID))
		require.NoError(t, err)
		assert.Nil(t, j.ExternalID)
		assert.Equal(t, model.SourceManual, j.Source)
	}

	_, err := s.CreateJob(ctx, externalJob("ext-4", "x", owner.ID))
	assert.ErrorIs(t, err, ErrManualWithExternalID)

	jobs, err := s.ListJobs(ctx)
	require.NoError(t, err)
	assert.Len(t, jobs, 3)
}

func testConcurrentUpserts(t *testing.T, s Store) {
	ctx := context.Background()
	owner := seedUser(t, s, "svc")

	const writers = 8
	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		inserted int
		ids      = map[string]bool{}
	)
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			res, err := s.UpsertExternalJob(ctx, externalJob("race", fmt.Sprintf("Title %d", i), owner.ID))
			if !assert.NoError(t, err) {
				return
			}
			mu.Lock()
			defer mu.Unlock()
			ids[res.Job.ID] = true
			if res.Inserted {
				inserted++
			}
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 1, inserted, "exactly one writer takes the insert branch")
	assert.Len(t, ids, 1)
	n, err := s.CountJobs(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

func testEnsureUser(t *testing.T, s Store) {
	ctx := context.Background()
	a := seedUser(t, s, "svc")
	b := seedUser(t, s, "svc")
	assert.Equal(t, a.ID, b.ID)
	assert.Empty(t, a.AppliedJobs)
	assert.NotNil(t, a.Skills)

	_, err := s.EnsureUser(ctx, &model.User{Email: "svc@example.com", ProviderID: "other"})
	assert.ErrorIs(t, err, ErrDuplicate, "email stays unique")

	_, err = s.GetUser(ctx, missingID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func testRelationshipSets(t *testing.T, s Store) {
	ctx := context.Background()
	owner := seedUser(t, s, "recruiter")
	student := seedUser(t, s, "student")

	job, err := s.CreateJob(ctx, model.NewManualJob("Intern", "d", 5000, owner.ID))
	require.NoError(t, err)

	for i := 0; i < 2; i++ {
		require.NoError(t, s.ApplyToJob(ctx, job.ID, student.ID))
		require.NoError(t, s.SaveJob(ctx, student.ID, job.ID))
		require.NoError(t, s.LikeJob(ctx, job.ID, student.ID))
	}

	u, err := s.GetUser(ctx, student.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{job.ID}, u.AppliedJobs)
	assert.Equal(t, []string{job.ID}, u.SavedJobs)

	got, err := s.GetJob(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{student.ID}, got.Applicants)
	assert.Equal(t, []string{student.ID}, got.Likes)

	assert.ErrorIs(t, s.LikeJob(ctx, missingID, student.ID), ErrNotFound)
	assert.ErrorIs(t, s.ApplyToJob(ctx, job.ID, missingID), ErrNotFound)
}

func testLogbookLifecycle(t *testing.T, s Store) {
	ctx := context.Background()
	student := seedUser(t, s, "student")
	mentor := seedUser(t, s, "mentor")
	day := time.Date(2026, 7, 1, 15, 30, 0, 0, time.UTC)

	entry, err := s.CreateLogbook(ctx, &model.Logbook{
		StudentID: student.ID, Date: day, HoursWorked: 6, TaskDescription: "API design",
	})
	require.NoError(t, err)
	assert.Equal(t, model.LogbookPending, entry.Status)
	assert.True(t, entry.Date.Equal(model.Day(day)))

	_, err = s.CreateLogbook(ctx, &model.Logbook{
		StudentID: student.ID, Date: day.Add(2 * time.Hour), HoursWorked: 2, TaskDescription: "again",
	})
	assert.ErrorIs(t, err, ErrDuplicate, "one entry per student per day")

	_, err = s.CreateLogbook(ctx, &model.Logbook{
		StudentID: student.ID, Date: day, HoursWorked: 13, TaskDescription: "too long",
	})
	var verr *model.ValidationError
	assert.True(t, errors.As(err, &verr))

	approved, err := s.ReviewLogbook(ctx, entry.ID, mentor.ID, model.LogbookApproved)
	require.NoError(t, err)
	assert.Equal(t, model.LogbookApproved, approved.Status)
	require.NotNil(t, approved.ReviewedBy)
	assert.Equal(t, mentor.ID, *approved.ReviewedBy)

	_, err = s.ReviewLogbook(ctx, entry.ID, mentor.ID, model.LogbookRejected)
	assert.True(t, errors.As(err, &verr), "approved entries are terminal")

	_, err = s.ReviewLogbook(ctx, missingID, mentor.ID, model.LogbookApproved)
	assert.ErrorIs(t, err, ErrNotFound)
}

func testCompleteResource(t *testing.T, s Store) {
	ctx := context.Background()
	student := seedUser(t, s, "student")

	res, err := s.CreateResource(ctx, &model.Resource{
		Title: "Go Concurrency", SkillsAwarded: []string{"Go", "Concurrency"}, Credits: 2.5,
	})
	require.NoError(t, err)

	awarded, err := s.CompleteResource(ctx, student.ID, res.ID)
	require.NoError(t, err)
	assert.True(t, awarded)

	awarded, err = s.CompleteResource(ctx, student.ID, res.ID)
	require.NoError(t, err)
	assert.False(t, awarded, "completing twice awards nothing")

	u, err := s.GetUser(ctx, student.ID)
	require.NoError(t, err)
	assert.Equal(t, 2.5, u.EarnedCredits)
	assert.Equal(t, []string{res.ID}, u.CompletedCourses)
	assert.Equal(t, map[string]float64{"Go": 1, "Concurrency": 1}, u.Skills)

	_, err = s.CompleteResource(ctx, student.ID, missingID)
	assert.ErrorIs(t, err, ErrNotFound)
}
