package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Devjadhav25/Prashikshan-sub001/internal/model"
)

// PostgresStore implements Store on a pgx connection pool.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore wraps an existing pool. The caller owns the pool unless
// Close is called.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

// Migrate creates the schema.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	return RunMigrations(ctx, s.pool)
}

// Close releases the pool.
func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

// ─── Jobs ────────────────────────────────────────────────────────────────────

const jobColumns = `
	j.id::text, j.external_id, j.title, j.description, j.location,
	j.salary, j.salary_type, j.negotiable, j.job_type, j.tags, j.skills,
	j.created_by::text, j.source, j.external_link, j.apply_link, j.employer_logo,
	j.created_at, j.updated_at,
	COALESCE((SELECT array_agg(l.user_id::text ORDER BY l.created_at)
	          FROM job_likes l WHERE l.job_id = j.id), '{}'),
	COALESCE((SELECT array_agg(a.user_id::text ORDER BY a.created_at)
	          FROM job_applicants a WHERE a.job_id = j.id), '{}')`

func scanJob(row pgx.Row) (*model.Job, error) {
	var (
		j          model.Job
		salaryType string
	)
	err := row.Scan(
		&j.ID, &j.ExternalID, &j.Title, &j.Description, &j.Location,
		&j.Salary, &salaryType, &j.Negotiable, &j.JobType, &j.Tags, &j.Skills,
		&j.CreatedBy, &j.Source, &j.ExternalLink, &j.ApplyLink, &j.EmployerLogo,
		&j.CreatedAt, &j.UpdatedAt,
		&j.Likes, &j.Applicants,
	)
	if err != nil {
		return nil, err
	}
	j.SalaryType = model.SalaryType(salaryType)
	return &j, nil
}

// UpsertExternalJob inserts job or, when a job with the same external_id
// exists, overwrites every normalized field in one statement. id,
// created_at, likes and applicants are never written by the update branch.
// Concurrent callers on the same external_id serialize on the unique index:
// the loser of the insert race takes the update branch.
func (s *PostgresStore) UpsertExternalJob(ctx context.Context, job *model.Job) (UpsertResult, error) {
	if err := prepareUpsert(job); err != nil {
		return UpsertResult{}, err
	}

	var (
		id       string
		inserted bool
	)
	err := s.pool.QueryRow(ctx,
		`INSERT INTO jobs (
		   external_id, title, description, location, salary, salary_type,
		   negotiable, job_type, tags, skills, created_by, source,
		   external_link, apply_link, employer_logo
		 )
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
		 ON CONFLICT (external_id) WHERE external_id IS NOT NULL DO UPDATE SET
		   title         = EXCLUDED.title,
		   description   = EXCLUDED.description,
		   location      = EXCLUDED.location,
		   salary        = EXCLUDED.salary,
		   salary_type   = EXCLUDED.salary_type,
		   negotiable    = EXCLUDED.negotiable,
		   job_type      = EXCLUDED.job_type,
		   tags          = EXCLUDED.tags,
		   skills        = EXCLUDED.skills,
		   created_by    = EXCLUDED.created_by,
		   source        = EXCLUDED.source,
		   external_link = EXCLUDED.external_link,
		   apply_link    = EXCLUDED.apply_link,
		   employer_logo = EXCLUDED.employer_logo,
		   updated_at    = NOW()
		 RETURNING id::text, (xmax = 0)`,
		*job.ExternalID, job.Title, job.Description, job.Location, job.Salary,
		string(job.SalaryType), job.Negotiable, nonNil(job.JobType), nonNil(job.Tags),
		nonNil(job.Skills), job.CreatedBy, job.Source,
		job.ExternalLink, job.ApplyLink, job.EmployerLogo,
	).Scan(&id, &inserted)
	if err != nil {
		return UpsertResult{}, fmt.Errorf("upsert job %s: %w", *job.ExternalID, mapPgErr(err))
	}

	stored, err := s.GetJob(ctx, id)
	if err != nil {
		return UpsertResult{}, fmt.Errorf("reload job %s: %w", id, err)
	}
	return UpsertResult{Job: stored, Inserted: inserted}, nil
}

// CreateJob inserts a manually created job.
func (s *PostgresStore) CreateJob(ctx context.Context, job *model.Job) (*model.Job, error) {
	if job.IsExternal() {
		return nil, ErrManualWithExternalID
	}
	if err := job.Validate(); err != nil {
		return nil, err
	}
	if job.Source == "" {
		job.Source = model.SourceManual
	}
	if job.Location == "" {
		job.Location = model.DefaultLocation
	}

	var id string
	err := s.pool.QueryRow(ctx,
		`INSERT INTO jobs (
		   title, description, location, salary, salary_type, negotiable,
		   job_type, tags, skills, created_by, source,
		   external_link, apply_link, employer_logo
		 )
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		 RETURNING id::text`,
		job.Title, job.Description, job.Location, job.Salary, string(job.SalaryType),
		job.Negotiable, nonNil(job.JobType), nonNil(job.Tags), nonNil(job.Skills),
		job.CreatedBy, job.Source, job.ExternalLink, job.ApplyLink, job.EmployerLogo,
	).Scan(&id)
	if err != nil {
		return nil, fmt.Errorf("createJob: %w", mapPgErr(err))
	}
	return s.GetJob(ctx, id)
}

// GetJob returns a job by internal id.
func (s *PostgresStore) GetJob(ctx context.Context, id string) (*model.Job, error) {
	j, err := scanJob(s.pool.QueryRow(ctx,
		`SELECT `+jobColumns+` FROM jobs j WHERE j.id = $1`, id))
	if err != nil {
		return nil, mapPgErr(err)
	}
	return j, nil
}

// GetJobByExternalID returns the job ingested under externalID.
func (s *PostgresStore) GetJobByExternalID(ctx context.Context, externalID string) (*model.Job, error) {
	j, err := scanJob(s.pool.QueryRow(ctx,
		`SELECT `+jobColumns+` FROM jobs j WHERE j.external_id = $1`, externalID))
	if err != nil {
		return nil, mapPgErr(err)
	}
	return j, nil
}

// ListJobs returns all jobs, newest first.
func (s *PostgresStore) ListJobs(ctx context.Context) ([]model.Job, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+jobColumns+` FROM jobs j ORDER BY j.created_at DESC, j.id`)
	if err != nil {
		return nil, fmt.Errorf("listJobs query: %w", err)
	}
	defer rows.Close()

	jobs := make([]model.Job, 0)
	for rows.Next() {
		j, err := scanJob(rows)
		if err != nil {
			return nil, fmt.Errorf("listJobs scan: %w", err)
		}
		jobs = append(jobs, *j)
	}
	return jobs, rows.Err()
}

// CountJobs returns the number of jobs.
func (s *PostgresStore) CountJobs(ctx context.Context) (int64, error) {
	var n int64
	if err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM jobs`).Scan(&n); err != nil {
		return 0, fmt.Errorf("countJobs: %w", err)
	}
	return n, nil
}

// LikeJob adds userID to the job's likes. Repeated likes are no-ops.
func (s *PostgresStore) LikeJob(ctx context.Context, jobID, userID string) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO job_likes (job_id, user_id) VALUES ($1, $2)
		 ON CONFLICT DO NOTHING`,
		jobID, userID,
	)
	return mapPgErr(err)
}

// ApplyToJob records userID as an applicant; the same row backs the user's
// appliedJobs.
func (s *PostgresStore) ApplyToJob(ctx context.Context, jobID, userID string) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO job_applicants (job_id, user_id) VALUES ($1, $2)
		 ON CONFLICT DO NOTHING`,
		jobID, userID,
	)
	return mapPgErr(err)
}

// SaveJob adds jobID to the user's savedJobs.
func (s *PostgresStore) SaveJob(ctx context.Context, userID, jobID string) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO user_saved_jobs (user_id, job_id) VALUES ($1, $2)
		 ON CONFLICT DO NOTHING`,
		userID, jobID,
	)
	return mapPgErr(err)
}

// ─── Users ───────────────────────────────────────────────────────────────────

// EnsureUser creates u unless a user with the same provider id exists, and
// returns the stored row either way.
func (s *PostgresStore) EnsureUser(ctx context.Context, u *model.User) (*model.User, error) {
	if err := u.Validate(); err != nil {
		return nil, err
	}
	_, err := s.pool.Exec(ctx,
		`INSERT INTO users (email, provider_id, name) VALUES ($1, $2, $3)
		 ON CONFLICT (provider_id) DO NOTHING`,
		u.Email, u.ProviderID, u.Name,
	)
	if err != nil {
		return nil, fmt.Errorf("ensureUser: %w", mapPgErr(err))
	}

	var id string
	if err := s.pool.QueryRow(ctx,
		`SELECT id::text FROM users WHERE provider_id = $1`, u.ProviderID,
	).Scan(&id); err != nil {
		return nil, mapPgErr(err)
	}
	return s.GetUser(ctx, id)
}

// GetUser returns a user with its relationship sets.
func (s *PostgresStore) GetUser(ctx context.Context, id string) (*model.User, error) {
	var u model.User
	err := s.pool.QueryRow(ctx,
		`SELECT u.id::text, u.email, u.provider_id, u.name, u.earned_credits, u.skills, u.created_at,
		        COALESCE((SELECT array_agg(a.job_id::text ORDER BY a.created_at)
		                  FROM job_applicants a WHERE a.user_id = u.id), '{}'),
		        COALESCE((SELECT array_agg(sj.job_id::text ORDER BY sj.created_at)
		                  FROM user_saved_jobs sj WHERE sj.user_id = u.id), '{}'),
		        COALESCE((SELECT array_agg(c.resource_id::text ORDER BY c.completed_at)
		                  FROM user_completed_resources c WHERE c.user_id = u.id), '{}')
		 FROM users u WHERE u.id = $1`,
		id,
	).Scan(
		&u.ID, &u.Email, &u.ProviderID, &u.Name, &u.EarnedCredits, &u.Skills, &u.CreatedAt,
		&u.AppliedJobs, &u.SavedJobs, &u.CompletedCourses,
	)
	if err != nil {
		return nil, mapPgErr(err)
	}
	if u.Skills == nil {
		u.Skills = map[string]float64{}
	}
	return &u, nil
}

// ─── Logbooks ────────────────────────────────────────────────────────────────

const logbookColumns = `id::text, student_id::text, date, hours_worked, task_description,
	status, reviewed_by::text, reviewed_at, created_at`

func scanLogbook(row pgx.Row) (*model.Logbook, error) {
	var (
		l      model.Logbook
		status string
	)
	if err := row.Scan(
		&l.ID, &l.StudentID, &l.Date, &l.HoursWorked, &l.TaskDescription,
		&status, &l.ReviewedBy, &l.ReviewedAt, &l.CreatedAt,
	); err != nil {
		return nil, err
	}
	l.Status = model.LogbookStatus(status)
	return &l, nil
}

// CreateLogbook inserts a PENDING entry. A second entry for the same
// student and day returns ErrDuplicate.
func (s *PostgresStore) CreateLogbook(ctx context.Context, l *model.Logbook) (*model.Logbook, error) {
	if err := prepareLogbook(l); err != nil {
		return nil, err
	}
	out, err := scanLogbook(s.pool.QueryRow(ctx,
		`INSERT INTO logbooks (student_id, date, hours_worked, task_description, status)
		 VALUES ($1, $2, $3, $4, $5)
		 RETURNING `+logbookColumns,
		l.StudentID, l.Date, l.HoursWorked, l.TaskDescription, string(l.Status),
	))
	if err != nil {
		return nil, fmt.Errorf("createLogbook: %w", mapPgErr(err))
	}
	return out, nil
}

// ReviewLogbook moves a PENDING entry to APPROVED or REJECTED.
func (s *PostgresStore) ReviewLogbook(ctx context.Context, id, reviewerID string, status model.LogbookStatus) (*model.Logbook, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("reviewLogbook begin: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var current string
	if err := tx.QueryRow(ctx,
		`SELECT status FROM logbooks WHERE id = $1 FOR UPDATE`, id,
	).Scan(&current); err != nil {
		return nil, mapPgErr(err)
	}
	if err := checkReview(model.LogbookStatus(current), status); err != nil {
		return nil, err
	}

	out, err := scanLogbook(tx.QueryRow(ctx,
		`UPDATE logbooks
		 SET status = $1, reviewed_by = $2, reviewed_at = $3
		 WHERE id = $4
		 RETURNING `+logbookColumns,
		string(status), reviewerID, nowUTC(), id,
	))
	if err != nil {
		return nil, fmt.Errorf("reviewLogbook update: %w", mapPgErr(err))
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("reviewLogbook commit: %w", err)
	}
	return out, nil
}

// ─── Resources & credits ─────────────────────────────────────────────────────

// CreateResource inserts a learning resource.
func (s *PostgresStore) CreateResource(ctx context.Context, r *model.Resource) (*model.Resource, error) {
	if err := r.Validate(); err != nil {
		return nil, err
	}
	out := *r
	out.SkillsAwarded = nonNil(r.SkillsAwarded)
	err := s.pool.QueryRow(ctx,
		`INSERT INTO resources (title, skills_awarded, credits) VALUES ($1, $2, $3)
		 RETURNING id::text, created_at`,
		out.Title, out.SkillsAwarded, out.Credits,
	).Scan(&out.ID, &out.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("createResource: %w", mapPgErr(err))
	}
	return &out, nil
}

// CompleteResource awards the resource's credits and skills to the user on
// first completion. Later completions change nothing and return false.
func (s *PostgresStore) CompleteResource(ctx context.Context, userID, resourceID string) (bool, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return false, fmt.Errorf("completeResource begin: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var (
		credits float64
		skills  []string
	)
	if err := tx.QueryRow(ctx,
		`SELECT credits, skills_awarded FROM resources WHERE id = $1`, resourceID,
	).Scan(&credits, &skills); err != nil {
		return false, mapPgErr(err)
	}

	tag, err := tx.Exec(ctx,
		`INSERT INTO user_completed_resources (user_id, resource_id) VALUES ($1, $2)
		 ON CONFLICT DO NOTHING`,
		userID, resourceID,
	)
	if err != nil {
		return false, mapPgErr(err)
	}
	if tag.RowsAffected() == 0 {
		return false, tx.Commit(ctx)
	}

	if _, err := tx.Exec(ctx,
		`UPDATE users SET earned_credits = earned_credits + $1 WHERE id = $2`,
		credits, userID,
	); err != nil {
		return false, fmt.Errorf("completeResource credits: %w", mapPgErr(err))
	}
	for _, skill := range model.Dedupe(skills) {
		if _, err := tx.Exec(ctx,
			`UPDATE users
			 SET skills = jsonb_set(skills, ARRAY[$1::text],
			              to_jsonb(COALESCE((skills ->> $1::text)::float8, 0) + 1))
			 WHERE id = $2`,
			skill, userID,
		); err != nil {
			return false, fmt.Errorf("completeResource skill %q: %w", skill, mapPgErr(err))
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return false, fmt.Errorf("completeResource commit: %w", err)
	}
	return true, nil
}

// ─── Errors ──────────────────────────────────────────────────────────────────

// mapPgErr translates driver errors into the store's sentinel errors.
func mapPgErr(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "23505": // unique_violation
			return fmt.Errorf("%w: %s", ErrDuplicate, pgErr.ConstraintName)
		case "23503", "22P02": // foreign_key_violation, invalid_text_representation
			return fmt.Errorf("%w: %s", ErrNotFound, pgErr.Message)
		case "23514": // check_violation
			return &model.ValidationError{Field: pgErr.ConstraintName, Msg: pgErr.Message}
		}
	}
	return err
}

var _ Store = (*PostgresStore)(nil)
