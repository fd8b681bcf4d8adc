package state

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/ShayCichocki/steward/pkg/models"
)

const jobColumns = `id, name, command, kind, interval_ns, time_of_day, cron_expr, run_at,
	enabled, last_fired, next_fire, fire_count, last_error, created_at`

// SaveJob inserts or replaces a scheduled job.
func (db *DB) SaveJob(j *models.Job) error {
	_, err := db.Exec(`
		INSERT INTO jobs (`+jobColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			command = excluded.command,
			kind = excluded.kind,
			interval_ns = excluded.interval_ns,
			time_of_day = excluded.time_of_day,
			cron_expr = excluded.cron_expr,
			run_at = excluded.run_at,
			enabled = excluded.enabled,
			last_fired = excluded.last_fired,
			next_fire = excluded.next_fire,
			fire_count = excluded.fire_count,
			last_error = excluded.last_error
	`, j.ID, j.Name, j.Command, string(j.Kind), int64(j.Interval), j.TimeOfDay, j.CronExpr,
		formatTime(j.RunAt), j.Enabled, formatTime(j.LastFired), formatTime(j.NextFire),
		j.FireCount, j.LastError, formatTime(j.CreatedAt))
	if err != nil {
		return fmt.Errorf("save job %s: %w", j.ID, err)
	}
	return nil
}

// LoadJobs returns every stored job.
func (db *DB) LoadJobs() ([]models.Job, error) {
	rows, err := db.Query(`SELECT ` + jobColumns + ` FROM jobs ORDER BY created_at, id`)
	if err != nil {
		return nil, fmt.Errorf("load jobs: %w", err)
	}
	defer rows.Close()
	return scanJobs(rows)
}

// DeleteJob removes a job by ID.
func (db *DB) DeleteJob(id string) error {
	if _, err := db.Exec(`DELETE FROM jobs WHERE id = ?`, id); err != nil {
		return fmt.Errorf("delete job: %w", err)
	}
	return nil
}

func scanJobs(rows *sql.Rows) ([]models.Job, error) {
	var jobs []models.Job
	for rows.Next() {
		var (
			j                                    models.Job
			kind                                 string
			intervalNS                           int64
			runAt, lastFired, nextFire, createdAt string
		)
		if err := rows.Scan(&j.ID, &j.Name, &j.Command, &kind, &intervalNS, &j.TimeOfDay, &j.CronExpr,
			&runAt, &j.Enabled, &lastFired, &nextFire, &j.FireCount, &j.LastError, &createdAt); err != nil {
			return nil, fmt.Errorf("scan job: %w", err)
		}
		j.Kind = models.JobKind(kind)
		j.Interval = time.Duration(intervalNS)

		for _, f := range []struct {
			dst *time.Time
			src string
		}{
			{&j.RunAt, runAt},
			{&j.LastFired, lastFired},
			{&j.NextFire, nextFire},
			{&j.CreatedAt, createdAt},
		} {
			t, err := parseTime(f.src)
			if err != nil {
				return nil, fmt.Errorf("parse time of job %s: %w", j.ID, err)
			}
			*f.dst = t
		}
		jobs = append(jobs, j)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate jobs: %w", err)
	}
	return jobs, nil
}
