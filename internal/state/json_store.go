package state

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/ShayCichocki/steward/pkg/models"
)

// JSONTaskFile stores every task in one JSON file, rewritten in full on
// each mutation.
type JSONTaskFile struct {
	path string

	mu     sync.Mutex
	loaded bool
	tasks  map[string]models.Task
}

// NewJSONTaskFile returns a task store backed by path.
func NewJSONTaskFile(path string) *JSONTaskFile {
	return &JSONTaskFile{path: path, tasks: make(map[string]models.Task)}
}

// LoadTasks reads the file. A missing file is an empty store.
func (f *JSONTaskFile) LoadTasks() ([]models.Task, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.load(); err != nil {
		return nil, err
	}
	return sortedValues(f.tasks, func(t models.Task) string { return t.ID }), nil
}

// SaveTask upserts a task and rewrites the file.
func (f *JSONTaskFile) SaveTask(t *models.Task) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.load(); err != nil {
		return err
	}
	prev, had := f.tasks[t.ID]
	f.tasks[t.ID] = *t.Clone()
	if err := writeJSON(f.path, sortedValues(f.tasks, func(t models.Task) string { return t.ID })); err != nil {
		if had {
			f.tasks[t.ID] = prev
		} else {
			delete(f.tasks, t.ID)
		}
		return err
	}
	return nil
}

func (f *JSONTaskFile) load() error {
	if f.loaded {
		return nil
	}
	var tasks []models.Task
	if err := readJSON(f.path, &tasks); err != nil {
		return err
	}
	for _, t := range tasks {
		f.tasks[t.ID] = t
	}
	f.loaded = true
	return nil
}

// JSONJobFile stores every job in one JSON file, rewritten in full on each
// mutation.
type JSONJobFile struct {
	path string

	mu     sync.Mutex
	loaded bool
	jobs   map[string]models.Job
}

// NewJSONJobFile returns a job store backed by path.
func NewJSONJobFile(path string) *JSONJobFile {
	return &JSONJobFile{path: path, jobs: make(map[string]models.Job)}
}

// LoadJobs reads the file. A missing file is an empty store.
func (f *JSONJobFile) LoadJobs() ([]models.Job, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.load(); err != nil {
		return nil, err
	}
	return sortedValues(f.jobs, func(j models.Job) string { return j.ID }), nil
}

// SaveJob upserts a job and rewrites the file.
func (f *JSONJobFile) SaveJob(j *models.Job) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.load(); err != nil {
		return err
	}
	prev, had := f.jobs[j.ID]
	f.jobs[j.ID] = *j
	if err := f.flush(); err != nil {
		if had {
			f.jobs[j.ID] = prev
		} else {
			delete(f.jobs, j.ID)
		}
		return err
	}
	return nil
}

// DeleteJob removes a job and rewrites the file.
func (f *JSONJobFile) DeleteJob(id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.load(); err != nil {
		return err
	}
	prev, had := f.jobs[id]
	if !had {
		return nil
	}
	delete(f.jobs, id)
	if err := f.flush(); err != nil {
		f.jobs[id] = prev
		return err
	}
	return nil
}

func (f *JSONJobFile) flush() error {
	return writeJSON(f.path, sortedValues(f.jobs, func(j models.Job) string { return j.ID }))
}

func (f *JSONJobFile) load() error {
	if f.loaded {
		return nil
	}
	var jobs []models.Job
	if err := readJSON(f.path, &jobs); err != nil {
		return err
	}
	for _, j := range jobs {
		f.jobs[j.ID] = j
	}
	f.loaded = true
	return nil
}

func sortedValues[T any](m map[string]T, key func(T) string) []T {
	out := make([]T, 0, len(m))
	for _, v := range m {
		out = append(out, v)
	}
	sort.Slice(out, func(i, j int) bool { return key(out[i]) < key(out[j]) })
	return out
}

func readJSON(path string, v any) error {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}
	if len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}
	return nil
}

// writeJSON replaces path atomically via a temp file and rename.
func writeJSON(path string, v any) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create directory: %w", err)
	}
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encode %s: %w", path, err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(append(data, '\n')); err != nil {
		tmp.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("sync %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close %s: %w", path, err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("replace %s: %w", path, err)
	}
	return nil
}
