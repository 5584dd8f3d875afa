// Package tasklist owns the task collection of the active session and the
// search/filter view derived from it.
package tasklist

import (
	"context"
	"errors"
	"slices"
	"strings"
	"time"

	"github.com/chetan-code/tasktracker/internal/models"
	"github.com/chetan-code/tasktracker/internal/session"
	"github.com/google/uuid"
)

var (
	ErrNotFound   = errors.New("task not found")
	ErrEmptyTitle = errors.New("task title is empty")
	ErrNoSession  = errors.New("no active session")
)

// Persister is the external record store. Save receives the whole
// collection after every change.
type Persister interface {
	Load(ctx context.Context, owner string) ([]models.Task, error)
	Save(ctx context.Context, owner string, tasks []models.Task) error
}

// Manager is not safe for concurrent use, same as the Store it reads.
type Manager struct {
	store *session.Store
	tasks []models.Task
	now   func() time.Time
	newID func() string

	// set by Clear until the session's stored tasks are applied
	cleared bool
}

func NewManager(store *session.Store) *Manager {
	m := &Manager{
		store: store,
		now:   time.Now,
		newID: uuid.NewString,
	}
	store.OnReset(m.reset)
	return m
}

func (m *Manager) reset() {
	m.tasks = nil
	m.cleared = false
}

func (m *Manager) active() error {
	if _, ok := m.store.Current(); !ok {
		return ErrNoSession
	}
	return nil
}

func (m *Manager) indexOf(id string) int {
	return slices.IndexFunc(m.tasks, func(t models.Task) bool { return t.ID == id })
}

// Owner is the email the collection belongs to.
func (m *Manager) Owner() (string, bool) {
	id, ok := m.store.Current()
	return id.Email, ok
}

// Add appends a new pending task. A blank title is ignored and reported
// with ok == false.
func (m *Manager) Add(title string) (task models.Task, ok bool, err error) {
	if err := m.active(); err != nil {
		return models.Task{}, false, err
	}
	if strings.TrimSpace(title) == "" {
		return models.Task{}, false, nil
	}

	task = models.Task{
		ID:        m.newID(),
		Title:     title,
		Completed: false,
		CreatedAt: m.now(),
	}
	m.tasks = append(m.tasks, task)
	return task, true, nil
}

// Edit replaces the title. Blank titles are rejected the same way Add
// ignores them, so no task ever ends up untitled.
func (m *Manager) Edit(id, title string) (models.Task, error) {
	if err := m.active(); err != nil {
		return models.Task{}, err
	}
	i := m.indexOf(id)
	if i < 0 {
		return models.Task{}, ErrNotFound
	}
	if strings.TrimSpace(title) == "" {
		return models.Task{}, ErrEmptyTitle
	}
	m.tasks[i].Title = title
	return m.tasks[i], nil
}

// Toggle flips Completed. Unknown ids are a no-op.
func (m *Manager) Toggle(id string) (models.Task, bool, error) {
	if err := m.active(); err != nil {
		return models.Task{}, false, err
	}
	i := m.indexOf(id)
	if i < 0 {
		return models.Task{}, false, nil
	}
	m.tasks[i].Completed = !m.tasks[i].Completed
	return m.tasks[i], true, nil
}

// Delete removes the task. Unknown ids are a no-op.
func (m *Manager) Delete(id string) (bool, error) {
	if err := m.active(); err != nil {
		return false, err
	}
	i := m.indexOf(id)
	if i < 0 {
		return false, nil
	}
	m.tasks = slices.Delete(m.tasks, i, i+1)
	return true, nil
}

// Clear removes every task of the active session, including stored tasks
// that a later Apply brings in.
func (m *Manager) Clear() error {
	if err := m.active(); err != nil {
		return err
	}
	m.tasks = nil
	m.cleared = true
	return nil
}

// List returns a copy in insertion order.
func (m *Manager) List() ([]models.Task, error) {
	if err := m.active(); err != nil {
		return nil, err
	}
	return slices.Clone(m.tasks), nil
}

// Merge reports what Apply did with a loaded collection.
type Merge struct {
	// Local is how many tasks added before the load are kept.
	Local int
	// Dropped is how many loaded tasks were left out: duplicate or empty
	// ids, or everything when the list was cleared before the load.
	Dropped int
}

// Changed is true when the merged collection differs from what was loaded.
func (mg Merge) Changed() bool {
	return mg.Local > 0 || mg.Dropped > 0
}

// Apply installs a collection loaded for the session t was issued for.
// Loaded tasks come first; tasks added while the load was in flight are
// kept after them. A Clear before the load discards the loaded tasks.
func (m *Manager) Apply(t session.Ticket, loaded []models.Task) (Merge, error) {
	if !m.store.Valid(t) {
		return Merge{}, session.ErrStaleResult
	}

	var mg Merge
	seen := make(map[string]bool, len(loaded)+len(m.tasks))
	merged := make([]models.Task, 0, len(loaded)+len(m.tasks))
	for _, task := range loaded {
		if m.cleared || task.ID == "" || seen[task.ID] {
			mg.Dropped++
			continue
		}
		seen[task.ID] = true
		merged = append(merged, task)
	}

	for _, task := range m.tasks {
		if seen[task.ID] {
			continue
		}
		seen[task.ID] = true
		merged = append(merged, task)
		mg.Local++
	}

	m.tasks = merged
	m.cleared = false
	return mg, nil
}
