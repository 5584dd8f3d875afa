package repository

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/chetan-code/tasktracker/internal/models"
	"gopkg.in/yaml.v3"
)

// FileRepo keeps one YAML file per owner. Used when no database is configured.
type FileRepo struct {
	dir string
	mu  sync.Mutex
}

type taskFile struct {
	Owner string        `yaml:"owner"`
	Tasks []models.Task `yaml:"tasks"`
}

func NewFileRepo(dir string) (*FileRepo, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}
	return &FileRepo{dir: dir}, nil
}

// owner emails are not safe file names
func (r *FileRepo) path(owner string) string {
	sum := sha256.Sum256([]byte(owner))
	return filepath.Join(r.dir, hex.EncodeToString(sum[:])+".yaml")
}

func (r *FileRepo) Load(ctx context.Context, owner string) ([]models.Task, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	b, err := os.ReadFile(r.path(owner))
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read tasks: %w", err)
	}

	var f taskFile
	if err := yaml.Unmarshal(b, &f); err != nil {
		return nil, fmt.Errorf("decode tasks: %w", err)
	}
	if f.Owner != owner {
		return nil, fmt.Errorf("task file owner mismatch: %q", f.Owner)
	}
	return f.Tasks, nil
}

func (r *FileRepo) Save(ctx context.Context, owner string, tasks []models.Task) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	b, err := yaml.Marshal(taskFile{Owner: owner, Tasks: tasks})
	if err != nil {
		return fmt.Errorf("encode tasks: %w", err)
	}

	dst := r.path(owner)
	tmp := dst + ".tmp"
	if err := os.WriteFile(tmp, b, 0o600); err != nil {
		return fmt.Errorf("write tasks: %w", err)
	}
	return os.Rename(tmp, dst)
}
