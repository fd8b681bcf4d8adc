package state

import (
	"fmt"
	"io"
	"path/filepath"

	"github.com/ShayCichocki/steward/pkg/models"
)

// TaskStore persists tasks.
type TaskStore interface {
	LoadTasks() ([]models.Task, error)
	SaveTask(t *models.Task) error
}

// JobStore persists scheduled jobs.
type JobStore interface {
	LoadJobs() ([]models.Job, error)
	SaveJob(j *models.Job) error
	DeleteJob(id string) error
}

// Migrator handles database schema migrations.
type Migrator interface {
	Migrate() error
}

// Store bundles the stores of one backend.
type Store struct {
	Tasks TaskStore
	Jobs  JobStore
	// DB is set for the sqlite backend.
	DB     *DB
	closer io.Closer
}

// Close releases the backend.
func (s *Store) Close() error {
	if s.closer == nil {
		return nil
	}
	return s.closer.Close()
}

// Backend names accepted by OpenStore.
const (
	BackendSQLite = "sqlite"
	BackendJSON   = "json"
)

// OpenStore opens the configured backend under dir. The sqlite backend uses
// dbPath and the given driver; the json backend writes tasks.json and
// jobs.json into dir.
func OpenStore(backend, driver, dir, dbPath string) (*Store, error) {
	switch backend {
	case "", BackendSQLite:
		db, err := Open(dbPath, driver)
		if err != nil {
			return nil, err
		}
		if err := db.Migrate(); err != nil {
			db.Close()
			return nil, fmt.Errorf("migrate: %w", err)
		}
		return &Store{Tasks: db, Jobs: db, DB: db, closer: db}, nil
	case BackendJSON:
		return &Store{
			Tasks: NewJSONTaskFile(filepath.Join(dir, "tasks.json")),
			Jobs:  NewJSONJobFile(filepath.Join(dir, "jobs.json")),
		}, nil
	default:
		return nil, fmt.Errorf("unknown storage backend %q", backend)
	}
}

// Compile-time verification that both backends implement the stores.
var (
	_ TaskStore = (*DB)(nil)
	_ JobStore  = (*DB)(nil)
	_ Migrator  = (*DB)(nil)
	_ io.Closer = (*DB)(nil)
	_ TaskStore = (*JSONTaskFile)(nil)
	_ JobStore  = (*JSONJobFile)(nil)
)
