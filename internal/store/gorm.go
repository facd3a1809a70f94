package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/Devjadhav25/Prashikshan-sub001/internal/model"
)

// GormStore implements Store using GORM. It is used with SQLite for
// single-node deployments and in tests.
type GormStore struct {
	db *gorm.DB
}

// NewGormStore creates a new GORM-backed store.
func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

// ─── Records ─────────────────────────────────────────────────────────────────

type userRecord struct {
	ID            string             `gorm:"primaryKey;size:36"`
	Email         string             `gorm:"not null;uniqueIndex"`
	ProviderID    string             `gorm:"not null;uniqueIndex"`
	Name          string             `gorm:"not null"`
	EarnedCredits float64            `gorm:"not null"`
	Skills        map[string]float64 `gorm:"serializer:json"`
	CreatedAt     time.Time
}

func (userRecord) TableName() string { return "users" }

// jobRecord mirrors the jobs table. NULL external ids never collide on the
// unique index, so manual jobs coexist freely.
type jobRecord struct {
	ID           string   `gorm:"primaryKey;size:36"`
	ExternalID   *string  `gorm:"uniqueIndex:idx_jobs_external_id"`
	Title        string   `gorm:"not null"`
	Description  string   `gorm:"not null"`
	Location     string   `gorm:"not null"`
	Salary       float64  `gorm:"not null"`
	SalaryType   string   `gorm:"not null"`
	Negotiable   bool     `gorm:"not null"`
	JobType      []string `gorm:"serializer:json"`
	Tags         []string `gorm:"serializer:json"`
	Skills       []string `gorm:"serializer:json"`
	CreatedBy    string   `gorm:"not null;index;size:36"`
	Source       string   `gorm:"not null"`
	ExternalLink *string
	ApplyLink    *string
	EmployerLogo *string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

func (jobRecord) TableName() string { return "jobs" }

type jobLikeRecord struct {
	JobID     string `gorm:"primaryKey;size:36"`
	UserID    string `gorm:"primaryKey;size:36"`
	CreatedAt time.Time
}

func (jobLikeRecord) TableName() string { return "job_likes" }

type jobApplicantRecord struct {
	JobID     string `gorm:"primaryKey;size:36"`
	UserID    string `gorm:"primaryKey;size:36"`
	CreatedAt time.Time
}

func (jobApplicantRecord) TableName() string { return "job_applicants" }

type savedJobRecord struct {
	UserID    string `gorm:"primaryKey;size:36"`
	JobID     string `gorm:"primaryKey;size:36"`
	CreatedAt time.Time
}

func (savedJobRecord) TableName() string { return "user_saved_jobs" }

type resourceRecord struct {
	ID            string   `gorm:"primaryKey;size:36"`
	Title         string   `gorm:"not null"`
	SkillsAwarded []string `gorm:"serializer:json"`
	Credits       float64  `gorm:"not null"`
	CreatedAt     time.Time
}

func (resourceRecord) TableName() string { return "resources" }

type completionRecord struct {
	UserID      string `gorm:"primaryKey;size:36"`
	ResourceID  string `gorm:"primaryKey;size:36"`
	CompletedAt time.Time
}

func (completionRecord) TableName() string { return "user_completed_resources" }

type logbookRecord struct {
	ID              string    `gorm:"primaryKey;size:36"`
	StudentID       string    `gorm:"not null;size:36;uniqueIndex:idx_logbooks_student_date"`
	Date            time.Time `gorm:"not null;uniqueIndex:idx_logbooks_student_date"`
	HoursWorked     int       `gorm:"not null"`
	TaskDescription string    `gorm:"not null"`
	Status          string    `gorm:"not null"`
	ReviewedBy      *string   `gorm:"size:36"`
	ReviewedAt      *time.Time
	CreatedAt       time.Time
}

func (logbookRecord) TableName() string { return "logbooks" }

// upsertColumns are the normalized fields overwritten when an external job
// is seen again.
var upsertColumns = []string{
	"title", "description", "location", "salary", "salary_type", "negotiable",
	"job_type", "tags", "skills", "created_by", "source",
	"external_link", "apply_link", "employer_logo", "updated_at",
}

// Migrate creates the necessary tables.
func (s *GormStore) Migrate(ctx context.Context) error {
	return s.db.WithContext(ctx).AutoMigrate(
		&userRecord{}, &jobRecord{}, &jobLikeRecord{}, &jobApplicantRecord{},
		&savedJobRecord{}, &resourceRecord{}, &completionRecord{}, &logbookRecord{},
	)
}

// Close closes the underlying connection pool.
func (s *GormStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// ─── Jobs ────────────────────────────────────────────────────────────────────

func jobToRecord(j *model.Job) jobRecord {
	return jobRecord{
		ID:           j.ID,
		ExternalID:   j.ExternalID,
		Title:        j.Title,
		Description:  j.Description,
		Location:     j.Location,
		Salary:       j.Salary,
		SalaryType:   string(j.SalaryType),
		Negotiable:   j.Negotiable,
		JobType:      nonNil(j.JobType),
		Tags:         nonNil(j.Tags),
		Skills:       nonNil(j.Skills),
		CreatedBy:    j.CreatedBy,
		Source:       j.Source,
		ExternalLink: j.ExternalLink,
		ApplyLink:    j.ApplyLink,
		EmployerLogo: j.EmployerLogo,
	}
}

func recordToJob(r jobRecord) model.Job {
	return model.Job{
		ID:           r.ID,
		ExternalID:   r.ExternalID,
		Title:        r.Title,
		Description:  r.Description,
		Location:     r.Location,
		Salary:       r.Salary,
		SalaryType:   model.SalaryType(r.SalaryType),
		Negotiable:   r.Negotiable,
		JobType:      nonNil(r.JobType),
		Tags:         nonNil(r.Tags),
		Skills:       nonNil(r.Skills),
		Likes:        []string{},
		Applicants:   []string{},
		CreatedBy:    r.CreatedBy,
		Source:       r.Source,
		ExternalLink: r.ExternalLink,
		ApplyLink:    r.ApplyLink,
		EmployerLogo: r.EmployerLogo,
		CreatedAt:    r.CreatedAt,
		UpdatedAt:    r.UpdatedAt,
	}
}

// UpsertExternalJob inserts job or overwrites the normalized fields of the
// job already stored under the same external_id, in a single
// INSERT ... ON CONFLICT statement. The freshly generated id only survives
// when the insert branch wins, which is how Inserted is derived.
func (s *GormStore) UpsertExternalJob(ctx context.Context, job *model.Job) (UpsertResult, error) {
	if err := prepareUpsert(job); err != nil {
		return UpsertResult{}, err
	}

	rec := jobToRecord(job)
	rec.ID = uuid.NewString()
	now := nowUTC()
	rec.CreatedAt, rec.UpdatedAt = now, now

	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "external_id"}},
		DoUpdates: clause.AssignmentColumns(upsertColumns),
	}).Create(&rec).Error
	if err != nil {
		return UpsertResult{}, fmt.Errorf("upsert job %s: %w", *job.ExternalID, mapGormErr(err))
	}

	stored, err := s.GetJobByExternalID(ctx, *job.ExternalID)
	if err != nil {
		return UpsertResult{}, fmt.Errorf("reload job %s: %w", *job.ExternalID, err)
	}
	return UpsertResult{Job: stored, Inserted: stored.ID == rec.ID}, nil
}

// CreateJob inserts a manually created job.
func (s *GormStore) CreateJob(ctx context.Context, job *model.Job) (*model.Job, error) {
	if job.IsExternal() {
		return nil, ErrManualWithExternalID
	}
	if err := job.Validate(); err != nil {
		return nil, err
	}
	rec := jobToRecord(job)
	rec.ID = uuid.NewString()
	if rec.Source == "" {
		rec.Source = model.SourceManual
	}
	if rec.Location == "" {
		rec.Location = model.DefaultLocation
	}
	if err := s.db.WithContext(ctx).Create(&rec).Error; err != nil {
		return nil, fmt.Errorf("createJob: %w", mapGormErr(err))
	}
	return s.GetJob(ctx, rec.ID)
}

// GetJob returns a job by internal id.
func (s *GormStore) GetJob(ctx context.Context, id string) (*model.Job, error) {
	return s.findJob(ctx, "id = ?", id)
}

// GetJobByExternalID returns the job ingested under externalID.
func (s *GormStore) GetJobByExternalID(ctx context.Context, externalID string) (*model.Job, error) {
	return s.findJob(ctx, "external_id = ?", externalID)
}

func (s *GormStore) findJob(ctx context.Context, query string, arg string) (*model.Job, error) {
	var rec jobRecord
	if err := s.db.WithContext(ctx).Where(query, arg).First(&rec).Error; err != nil {
		return nil, mapGormErr(err)
	}
	jobs, err := s.withRelations(ctx, []jobRecord{rec})
	if err != nil {
		return nil, err
	}
	return &jobs[0], nil
}

// ListJobs returns all jobs, newest first.
func (s *GormStore) ListJobs(ctx context.Context) ([]model.Job, error) {
	var recs []jobRecord
	if err := s.db.WithContext(ctx).Order("created_at DESC").Order("id").Find(&recs).Error; err != nil {
		return nil, fmt.Errorf("listJobs: %w", err)
	}
	return s.withRelations(ctx, recs)
}

// withRelations converts records and attaches likes and applicants.
func (s *GormStore) withRelations(ctx context.Context, recs []jobRecord) ([]model.Job, error) {
	jobs := make([]model.Job, 0, len(recs))
	if len(recs) == 0 {
		return jobs, nil
	}
	ids := make([]string, 0, len(recs))
	for _, r := range recs {
		ids = append(ids, r.ID)
	}

	var likes []jobLikeRecord
	if err := s.db.WithContext(ctx).Where("job_id IN ?", ids).
		Order("created_at").Find(&likes).Error; err != nil {
		return nil, fmt.Errorf("load likes: %w", err)
	}
	var applicants []jobApplicantRecord
	if err := s.db.WithContext(ctx).Where("job_id IN ?", ids).
		Order("created_at").Find(&applicants).Error; err != nil {
		return nil, fmt.Errorf("load applicants: %w", err)
	}

	likesBy := make(map[string][]string, len(recs))
	for _, l := range likes {
		likesBy[l.JobID] = append(likesBy[l.JobID], l.UserID)
	}
	applicantsBy := make(map[string][]string, len(recs))
	for _, a := range applicants {
		applicantsBy[a.JobID] = append(applicantsBy[a.JobID], a.UserID)
	}

	for _, r := range recs {
		j := recordToJob(r)
		j.Likes = nonNil(likesBy[r.ID])
		j.Applicants = nonNil(applicantsBy[r.ID])
		jobs = append(jobs, j)
	}
	return jobs, nil
}

// CountJobs returns the number of jobs.
func (s *GormStore) CountJobs(ctx context.Context) (int64, error) {
	var n int64
	if err := s.db.WithContext(ctx).Model(&jobRecord{}).Count(&n).Error; err != nil {
		return 0, fmt.Errorf("countJobs: %w", err)
	}
	return n, nil
}

// LikeJob adds userID to the job's likes. Repeated likes are no-ops.
func (s *GormStore) LikeJob(ctx context.Context, jobID, userID string) error {
	return s.link(ctx, jobID, userID, &jobLikeRecord{JobID: jobID, UserID: userID})
}

// ApplyToJob records userID as an applicant; the same row backs the user's
// appliedJobs.
func (s *GormStore) ApplyToJob(ctx context.Context, jobID, userID string) error {
	return s.link(ctx, jobID, userID, &jobApplicantRecord{JobID: jobID, UserID: userID})
}

// SaveJob adds jobID to the user's savedJobs.
func (s *GormStore) SaveJob(ctx context.Context, userID, jobID string) error {
	return s.link(ctx, jobID, userID, &savedJobRecord{UserID: userID, JobID: jobID})
}

// link inserts a join row after checking both ends exist.
func (s *GormStore) link(ctx context.Context, jobID, userID string, row any) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := mustExist(tx, &jobRecord{}, jobID); err != nil {
			return err
		}
		if err := mustExist(tx, &userRecord{}, userID); err != nil {
			return err
		}
		return mapGormErr(tx.Clauses(clause.OnConflict{DoNothing: true}).Create(row).Error)
	})
}

func mustExist(tx *gorm.DB, m any, id string) error {
	var n int64
	if err := tx.Model(m).Where("id = ?", id).Count(&n).Error; err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// ─── Users ───────────────────────────────────────────────────────────────────

// EnsureUser creates u unless a user with the same provider id exists, and
// returns the stored row either way.
func (s *GormStore) EnsureUser(ctx context.Context, u *model.User) (*model.User, error) {
	if err := u.Validate(); err != nil {
		return nil, err
	}
	rec := userRecord{
		ID:         uuid.NewString(),
		Email:      u.Email,
		ProviderID: u.ProviderID,
		Name:       u.Name,
		Skills:     map[string]float64{},
	}
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "provider_id"}},
		DoNothing: true,
	}).Create(&rec).Error
	if err != nil {
		return nil, fmt.Errorf("ensureUser: %w", mapGormErr(err))
	}

	var stored userRecord
	if err := s.db.WithContext(ctx).Where("provider_id = ?", u.ProviderID).First(&stored).Error; err != nil {
		return nil, mapGormErr(err)
	}
	return s.GetUser(ctx, stored.ID)
}

// GetUser returns a user with its relationship sets.
func (s *GormStore) GetUser(ctx context.Context, id string) (*model.User, error) {
	var rec userRecord
	if err := s.db.WithContext(ctx).Where("id = ?", id).First(&rec).Error; err != nil {
		return nil, mapGormErr(err)
	}
	u := &model.User{
		ID:            rec.ID,
		Email:         rec.Email,
		ProviderID:    rec.ProviderID,
		Name:          rec.Name,
		EarnedCredits: rec.EarnedCredits,
		Skills:        rec.Skills,
		CreatedAt:     rec.CreatedAt,
	}
	if u.Skills == nil {
		u.Skills = map[string]float64{}
	}

	db := s.db.WithContext(ctx)
	if err := db.Model(&jobApplicantRecord{}).Where("user_id = ?", id).
		Order("created_at").Pluck("job_id", &u.AppliedJobs).Error; err != nil {
		return nil, err
	}
	if err := db.Model(&savedJobRecord{}).Where("user_id = ?", id).
		Order("created_at").Pluck("job_id", &u.SavedJobs).Error; err != nil {
		return nil, err
	}
	if err := db.Model(&completionRecord{}).Where("user_id = ?", id).
		Order("completed_at").Pluck("resource_id", &u.CompletedCourses).Error; err != nil {
		return nil, err
	}
	u.AppliedJobs = nonNil(u.AppliedJobs)
	u.SavedJobs = nonNil(u.SavedJobs)
	u.CompletedCourses = nonNil(u.CompletedCourses)
	return u, nil
}

// ─── Logbooks ────────────────────────────────────────────────────────────────

func recordToLogbook(r logbookRecord) *model.Logbook {
	return &model.Logbook{
		ID:              r.ID,
		StudentID:       r.StudentID,
		Date:            r.Date.UTC(),
		HoursWorked:     r.HoursWorked,
		TaskDescription: r.TaskDescription,
		Status:          model.LogbookStatus(r.Status),
		ReviewedBy:      r.ReviewedBy,
		ReviewedAt:      r.ReviewedAt,
		CreatedAt:       r.CreatedAt,
	}
}

// CreateLogbook inserts a PENDING entry. A second entry for the same
// student and day returns ErrDuplicate.
func (s *GormStore) CreateLogbook(ctx context.Context, l *model.Logbook) (*model.Logbook, error) {
	if err := prepareLogbook(l); err != nil {
		return nil, err
	}
	rec := logbookRecord{
		ID:              uuid.NewString(),
		StudentID:       l.StudentID,
		Date:            l.Date,
		HoursWorked:     l.HoursWorked,
		TaskDescription: l.TaskDescription,
		Status:          string(l.Status),
	}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := mustExist(tx, &userRecord{}, l.StudentID); err != nil {
			return err
		}
		return mapGormErr(tx.Create(&rec).Error)
	})
	if err != nil {
		return nil, fmt.Errorf("createLogbook: %w", err)
	}
	return recordToLogbook(rec), nil
}

// ReviewLogbook moves a PENDING entry to APPROVED or REJECTED.
func (s *GormStore) ReviewLogbook(ctx context.Context, id, reviewerID string, status model.LogbookStatus) (*model.Logbook, error) {
	var rec logbookRecord
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("id = ?", id).First(&rec).Error; err != nil {
			return mapGormErr(err)
		}
		if err := checkReview(model.LogbookStatus(rec.Status), status); err != nil {
			return err
		}
		now := nowUTC()
		rec.Status = string(status)
		rec.ReviewedBy = &reviewerID
		rec.ReviewedAt = &now
		return tx.Model(&rec).Select("status", "reviewed_by", "reviewed_at").Updates(&rec).Error
	})
	if err != nil {
		return nil, err
	}
	return recordToLogbook(rec), nil
}

// ─── Resources & credits ─────────────────────────────────────────────────────

// CreateResource inserts a learning resource.
func (s *GormStore) CreateResource(ctx context.Context, r *model.Resource) (*model.Resource, error) {
	if err := r.Validate(); err != nil {
		return nil, err
	}
	rec := resourceRecord{
		ID:            uuid.NewString(),
		Title:         r.Title,
		SkillsAwarded: nonNil(r.SkillsAwarded),
		Credits:       r.Credits,
	}
	if err := s.db.WithContext(ctx).Create(&rec).Error; err != nil {
		return nil, fmt.Errorf("createResource: %w", mapGormErr(err))
	}
	return &model.Resource{
		ID:            rec.ID,
		Title:         rec.Title,
		SkillsAwarded: rec.SkillsAwarded,
		Credits:       rec.Credits,
		CreatedAt:     rec.CreatedAt,
	}, nil
}

// CompleteResource awards the resource's credits and skills to the user on
// first completion. Later completions change nothing and return false.
func (s *GormStore) CompleteResource(ctx context.Context, userID, resourceID string) (bool, error) {
	var awarded bool
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var res resourceRecord
		if err := tx.Where("id = ?", resourceID).First(&res).Error; err != nil {
			return mapGormErr(err)
		}
		var user userRecord
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("id = ?", userID).First(&user).Error; err != nil {
			return mapGormErr(err)
		}

		result := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&completionRecord{
			UserID:      userID,
			ResourceID:  resourceID,
			CompletedAt: nowUTC(),
		})
		if result.Error != nil {
			return mapGormErr(result.Error)
		}
		if result.RowsAffected == 0 {
			return nil
		}

		if user.Skills == nil {
			user.Skills = map[string]float64{}
		}
		for _, skill := range model.Dedupe(res.SkillsAwarded) {
			user.Skills[skill]++
		}
		user.EarnedCredits += res.Credits
		awarded = true
		return tx.Model(&user).Select("earned_credits", "skills").Updates(&user).Error
	})
	if err != nil {
		return false, err
	}
	return awarded, nil
}

// ─── Errors ──────────────────────────────────────────────────────────────────

// mapGormErr translates GORM and driver errors into the store's sentinel
// errors. TranslateError must be enabled on the *gorm.DB for the typed
// cases; the message checks cover drivers that do not translate.
func mapGormErr(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, ErrNotFound), errors.Is(err, ErrDuplicate):
		return err
	case errors.Is(err, gorm.ErrRecordNotFound):
		return ErrNotFound
	case errors.Is(err, gorm.ErrDuplicatedKey),
		strings.Contains(err.Error(), "UNIQUE constraint failed"):
		return fmt.Errorf("%w: %v", ErrDuplicate, err)
	case errors.Is(err, gorm.ErrForeignKeyViolated):
		return fmt.Errorf("%w: %v", ErrNotFound, err)
	}
	return err
}

var _ Store = (*GormStore)(nil)
