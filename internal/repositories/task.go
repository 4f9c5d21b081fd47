package repositories

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/desertthunder/focusync/internal/models"
	"github.com/desertthunder/focusync/internal/shared"
)

const taskColumns = `id, title, notes, done, priority, created_at, updated_at`

// TaskRepository implements [models.Repository] for tasks.
type TaskRepository struct {
	db *sql.DB
}

// NewTaskRepository creates a new TaskRepository with the given database connection
func NewTaskRepository(db *sql.DB) *TaskRepository {
	return &TaskRepository{db: db}
}

// Create inserts a task owned by userID with a generated ID and sequence
func (r *TaskRepository) Create(userID string, t models.Task) (models.Task, error) {
	if err := t.Validate(); err != nil {
		return models.Task{}, fmt.Errorf("validation failed: %w", err)
	}

	sequence, err := NextSequence(r.db, "tasks")
	if err != nil {
		return models.Task{}, fmt.Errorf("failed to generate sequence: %w", err)
	}

	now := time.Now().UTC()
	t.ID = shared.GenerateID()
	t.LocalOnly = false
	t.CreatedAt = createdAt(t.CreatedAt, now)
	t.UpdatedAt = now

	query := `
		INSERT INTO tasks (id, sequence, user_id, title, notes, done, priority, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err = r.db.Exec(query, t.ID, sequence, userID, t.Title, t.Notes, t.Done, t.Priority, t.CreatedAt, t.UpdatedAt)
	if err != nil {
		return models.Task{}, fmt.Errorf("failed to insert task: %w", err)
	}

	return t, nil
}

// Get retrieves a task by ID, excluding soft-deleted tasks
func (r *TaskRepository) Get(id string) (models.Task, error) {
	query := `SELECT ` + taskColumns + ` FROM tasks WHERE id = ? AND deleted_at IS NULL`

	t, err := scanTask(r.db.QueryRow(query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return models.Task{}, fmt.Errorf("%w: task %s", shared.ErrEntityNotFound, id)
	}
	return t, err
}

// Update applies patch to a stored task
func (r *TaskRepository) Update(id string, patch models.Patch) (models.Task, error) {
	current, err := r.Get(id)
	if err != nil {
		return models.Task{}, err
	}

	t, _, err := current.Apply(patch)
	if err != nil {
		return models.Task{}, fmt.Errorf("validation failed: %w", err)
	}
	t.UpdatedAt = time.Now().UTC()

	query := `
		UPDATE tasks
		SET title = ?, notes = ?, done = ?, priority = ?, updated_at = ?
		WHERE id = ? AND deleted_at IS NULL
	`

	result, err := r.db.Exec(query, t.Title, t.Notes, t.Done, t.Priority, t.UpdatedAt, id)
	if err != nil {
		return models.Task{}, fmt.Errorf("failed to update task: %w", err)
	}
	if err := checkAffected(result, models.KindTask, id); err != nil {
		return models.Task{}, err
	}

	return t, nil
}

// Delete soft-deletes a task by ID
func (r *TaskRepository) Delete(id string) error {
	return softDelete(r.db, "tasks", models.KindTask, id)
}

// List retrieves the tasks owned by userID in creation order, excluding soft-deleted tasks.
//
// The "done" criterion (bool) restricts the result to finished or open tasks.
func (r *TaskRepository) List(userID string, criteria map[string]any) ([]models.Task, error) {
	query := `SELECT ` + taskColumns + ` FROM tasks WHERE deleted_at IS NULL`
	query, args := ownerClause(query, nil, userID)

	if done, ok := criteria["done"].(bool); ok {
		query += " AND done = ?"
		args = append(args, done)
	}

	query += " ORDER BY sequence ASC"

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query tasks: %w", err)
	}
	defer rows.Close()

	tasks := []models.Task{}
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, t)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return tasks, nil
}

func scanTask(row scanner) (models.Task, error) {
	var t models.Task
	err := row.Scan(&t.ID, &t.Title, &t.Notes, &t.Done, &t.Priority, &t.CreatedAt, &t.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Task{}, err
	}
	if err != nil {
		return models.Task{}, fmt.Errorf("failed to scan task: %w", err)
	}
	return t, nil
}
