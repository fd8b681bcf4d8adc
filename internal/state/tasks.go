package state

import (
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/ShayCichocki/steward/pkg/models"
)

const taskColumns = `id, parent_id, order_index, title, agent, status, result,
	retry_count, max_retries, created_at, updated_at`

// SaveTask inserts or replaces a task.
func (db *DB) SaveTask(t *models.Task) error {
	var result sql.NullString
	if t.Result != nil {
		data, err := json.Marshal(t.Result)
		if err != nil {
			return fmt.Errorf("encode result: %w", err)
		}
		result = sql.NullString{String: string(data), Valid: true}
	}

	_, err := db.Exec(`
		INSERT INTO tasks (`+taskColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			parent_id = excluded.parent_id,
			order_index = excluded.order_index,
			title = excluded.title,
			agent = excluded.agent,
			status = excluded.status,
			result = excluded.result,
			retry_count = excluded.retry_count,
			max_retries = excluded.max_retries,
			updated_at = excluded.updated_at
	`, t.ID, t.ParentID, t.OrderIndex, t.Title, t.Agent, string(t.Status), result,
		t.RetryCount, t.MaxRetries, formatTime(t.CreatedAt), formatTime(t.UpdatedAt))
	if err != nil {
		return fmt.Errorf("save task %s: %w", t.ID, err)
	}
	return nil
}

// LoadTasks returns every stored task ordered by creation time.
func (db *DB) LoadTasks() ([]models.Task, error) {
	rows, err := db.Query(`SELECT ` + taskColumns + ` FROM tasks ORDER BY created_at, id`)
	if err != nil {
		return nil, fmt.Errorf("load tasks: %w", err)
	}
	defer rows.Close()
	return scanTasks(rows)
}

func scanTasks(rows *sql.Rows) ([]models.Task, error) {
	var tasks []models.Task
	for rows.Next() {
		var (
			t                    models.Task
			status               string
			result               sql.NullString
			createdAt, updatedAt string
		)
		if err := rows.Scan(&t.ID, &t.ParentID, &t.OrderIndex, &t.Title, &t.Agent, &status, &result,
			&t.RetryCount, &t.MaxRetries, &createdAt, &updatedAt); err != nil {
			return nil, fmt.Errorf("scan task: %w", err)
		}
		t.Status = models.TaskStatus(status)

		if result.Valid && result.String != "" {
			var r models.TaskResult
			if err := json.Unmarshal([]byte(result.String), &r); err != nil {
				return nil, fmt.Errorf("decode result of task %s: %w", t.ID, err)
			}
			t.Result = &r
		}

		var err error
		if t.CreatedAt, err = parseTime(createdAt); err != nil {
			return nil, fmt.Errorf("parse created_at of task %s: %w", t.ID, err)
		}
		if t.UpdatedAt, err = parseTime(updatedAt); err != nil {
			return nil, fmt.Errorf("parse updated_at of task %s: %w", t.ID, err)
		}
		tasks = append(tasks, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate tasks: %w", err)
	}
	return tasks, nil
}
