package store

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Migration is one named, idempotent schema step.
type Migration struct {
	Name string
	SQL  string
}

// migrations run in order on every start; each statement is written to be
// safe to re-run.
var migrations = []Migration{
	{
		Name: "create_users",
		SQL: `CREATE TABLE IF NOT EXISTS users (
			id             UUID PRIMARY KEY DEFAULT gen_random_uuid(),
			email          TEXT NOT NULL UNIQUE,
			provider_id    TEXT NOT NULL UNIQUE,
			name           TEXT NOT NULL DEFAULT '',
			earned_credits DOUBLE PRECISION NOT NULL DEFAULT 0,
			skills         JSONB NOT NULL DEFAULT '{}'::jsonb,
			created_at     TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
	},
	{
		Name: "create_jobs",
		SQL: `CREATE TABLE IF NOT EXISTS jobs (
			id            UUID PRIMARY KEY DEFAULT gen_random_uuid(),
			external_id   TEXT,
			title         TEXT NOT NULL CHECK (btrim(title) <> ''),
			description   TEXT NOT NULL DEFAULT '',
			location      TEXT NOT NULL DEFAULT 'Remote',
			salary        DOUBLE PRECISION NOT NULL CHECK (salary > 0),
			salary_type   TEXT NOT NULL DEFAULT 'Year'
			              CHECK (salary_type IN ('Year', 'Month', 'Week', 'Hour')),
			negotiable    BOOLEAN NOT NULL DEFAULT false,
			job_type      TEXT[] NOT NULL DEFAULT '{}',
			tags          TEXT[] NOT NULL DEFAULT '{}',
			skills        TEXT[] NOT NULL DEFAULT '{}',
			created_by    UUID NOT NULL REFERENCES users(id),
			source        TEXT NOT NULL DEFAULT 'Manual',
			external_link TEXT,
			apply_link    TEXT,
			employer_logo TEXT,
			created_at    TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at    TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
	},
	{
		// Sparse: manual jobs (NULL external_id) never collide.
		Name: "jobs_external_id_unique",
		SQL: `CREATE UNIQUE INDEX IF NOT EXISTS jobs_external_id_key
			ON jobs (external_id) WHERE external_id IS NOT NULL`,
	},
	{
		Name: "create_job_likes",
		SQL: `CREATE TABLE IF NOT EXISTS job_likes (
			job_id     UUID NOT NULL REFERENCES jobs(id) ON DELETE CASCADE,
			user_id    UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			PRIMARY KEY (job_id, user_id)
		)`,
	},
	{
		Name: "create_job_applicants",
		SQL: `CREATE TABLE IF NOT EXISTS job_applicants (
			job_id     UUID NOT NULL REFERENCES jobs(id) ON DELETE CASCADE,
			user_id    UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			PRIMARY KEY (job_id, user_id)
		)`,
	},
	{
		Name: "create_user_saved_jobs",
		SQL: `CREATE TABLE IF NOT EXISTS user_saved_jobs (
			user_id    UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			job_id     UUID NOT NULL REFERENCES jobs(id) ON DELETE CASCADE,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			PRIMARY KEY (user_id, job_id)
		)`,
	},
	{
		Name: "create_resources",
		SQL: `CREATE TABLE IF NOT EXISTS resources (
			id             UUID PRIMARY KEY DEFAULT gen_random_uuid(),
			title          TEXT NOT NULL,
			skills_awarded TEXT[] NOT NULL DEFAULT '{}',
			credits        DOUBLE PRECISION NOT NULL DEFAULT 0 CHECK (credits >= 0),
			created_at     TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
	},
	{
		Name: "create_user_completed_resources",
		SQL: `CREATE TABLE IF NOT EXISTS user_completed_resources (
			user_id      UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			resource_id  UUID NOT NULL REFERENCES resources(id) ON DELETE CASCADE,
			completed_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			PRIMARY KEY (user_id, resource_id)
		)`,
	},
	{
		Name: "create_logbooks",
		SQL: `CREATE TABLE IF NOT EXISTS logbooks (
			id               UUID PRIMARY KEY DEFAULT gen_random_uuid(),
			student_id       UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			date             DATE NOT NULL,
			hours_worked     INT NOT NULL CHECK (hours_worked BETWEEN 1 AND 12),
			task_description TEXT NOT NULL,
			status           TEXT NOT NULL DEFAULT 'PENDING'
			                 CHECK (status IN ('PENDING', 'APPROVED', 'REJECTED')),
			reviewed_by      UUID REFERENCES users(id),
			reviewed_at      TIMESTAMPTZ,
			created_at       TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			UNIQUE (student_id, date)
		)`,
	},
}

// RunMigrations executes every migration in order.
func RunMigrations(ctx context.Context, pool *pgxpool.Pool) error {
	slog.Info("starting database migrations", "count", len(migrations))
	for _, m := range migrations {
		if _, err := pool.Exec(ctx, m.SQL); err != nil {
			slog.Error("migration failed", "name", m.Name, "err", err)
			return fmt.Errorf("migration %s: %w", m.Name, err)
		}
		slog.Debug("migration applied", "name", m.Name)
	}
	slog.Info("database migrations complete")
	return nil
}
