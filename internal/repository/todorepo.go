package repository

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/chetan-code/tasktracker/internal/models"
)

type TodoRepo struct {
	db *sql.DB
}

func NewTodoRepo(db *sql.DB) (*TodoRepo, error) {
	repo := &TodoRepo{db: db}

	err := repo.CreateTable(context.Background())
	if err != nil {
		return nil, fmt.Errorf("could not initialize table: %w", err)
	}

	return repo, nil
}

func (r *TodoRepo) CreateTable(ctx context.Context) error {
	createTableQuery := `CREATE TABLE IF NOT EXISTS todos(
		id TEXT PRIMARY KEY,
		email TEXT NOT NULL,
		title TEXT NOT NULL,
		is_done BOOLEAN NOT NULL DEFAULT FALSE,
		position INTEGER NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now()
	);`
	_, err := r.db.ExecContext(ctx, createTableQuery)
	return err
}

// Load returns the owner's tasks in the order they were saved.
func (r *TodoRepo) Load(ctx context.Context, email string) ([]models.Task, error) {
	query := "SELECT id, title, is_done, created_at FROM todos WHERE email = $1 ORDER BY position ASC"
	rows, err := r.db.QueryContext(ctx, query, email)
	if err != nil {
		return nil, fmt.Errorf("fetch tasks: %w", err)
	}
	defer rows.Close() //close the connect in the end

	var tasks []models.Task
	for rows.Next() {
		var t models.Task
		if err := rows.Scan(&t.ID, &t.Title, &t.Completed, &t.CreatedAt); err != nil {
			slog.Error("task_scan_failed", "email", email, "error", err)
			continue
		}
		tasks = append(tasks, t)
	}
	return tasks, rows.Err()
}

// Save replaces everything stored for the owner with tasks.
func (r *TodoRepo) Save(ctx context.Context, email string, tasks []models.Task) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin save: %w", err)
	}
	defer tx.Rollback()

	//placeholders ($1, $2) let the driver escape the input
	if _, err := tx.ExecContext(ctx, "DELETE FROM todos WHERE email = $1", email); err != nil {
		return fmt.Errorf("clear tasks: %w", err)
	}

	insert := "INSERT INTO todos (id, email, title, is_done, position, created_at) VALUES ($1, $2, $3, $4, $5, $6)"
	for i, t := range tasks {
		if _, err := tx.ExecContext(ctx, insert, t.ID, email, t.Title, t.Completed, i, t.CreatedAt); err != nil {
			return fmt.Errorf("insert task %s: %w", t.ID, err)
		}
	}

	return tx.Commit()
}
