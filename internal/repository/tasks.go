package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

type TaskStatus string

const (
	TaskStatusCreated        TaskStatus = "CREATED"
	TaskStatusProcessing     TaskStatus = "PROCESSING"
	TaskStatusFailed         TaskStatus = "FAILED"
	TaskStatusNoAttemptsLeft TaskStatus = "NO_ATTEMPTS_LEFT"
)

// Task is one audit event parked in the outbox until the relay publishes
// it to Kafka.
type Task struct {
	ID            int
	CreatedAt     time.Time
	UpdatedAt     time.Time
	Payload       []byte
	Status        TaskStatus
	AttemptCount  int
	NextAttemptAt sql.NullTime
}

type TaskRepository interface {
	CreateTask(ctx context.Context, payload []byte) error
	GetPendingTasks(ctx context.Context, limit, maxAttempts int) ([]*Task, error)
	MarkTaskProcessing(ctx context.Context, taskID int) error
	DeleteTask(ctx context.Context, taskID int) error
	UpdateTaskFailure(ctx context.Context, taskID int, attemptCount int, newStatus TaskStatus, nextAttemptAt time.Time) error
}

type PostgresTaskRepository struct {
	db *sql.DB
}

func NewPostgresTaskRepository(db *sql.DB) *PostgresTaskRepository {
	return &PostgresTaskRepository{db: db}
}

func (r *PostgresTaskRepository) CreateTask(ctx context.Context, payload []byte) error {
	query := `
		INSERT INTO outbox_tasks (created_at, updated_at, payload, status, attempt_count)
		VALUES (NOW(), NOW(), $1, $2, 0)
	`
	if _, err := r.db.ExecContext(ctx, query, payload, TaskStatusCreated); err != nil {
		return fmt.Errorf("create task: %w", err)
	}
	return nil
}

func (r *PostgresTaskRepository) GetPendingTasks(ctx context.Context, limit, maxAttempts int) ([]*Task, error) {
	query := `
		SELECT id, created_at, updated_at, payload, status, attempt_count, next_attempt_at
		FROM outbox_tasks
		WHERE status IN ($1, $2)
		  AND (next_attempt_at IS NULL OR next_attempt_at <= NOW())
		  AND attempt_count < $3
		ORDER BY created_at
		LIMIT $4
	`
	rows, err := r.db.QueryContext(ctx, query, TaskStatusCreated, TaskStatusFailed, maxAttempts, limit)
	if err != nil {
		return nil, fmt.Errorf("get pending tasks: %w", err)
	}
	defer rows.Close()

	var tasks []*Task
	for rows.Next() {
		t := &Task{}
		if err := rows.Scan(&t.ID, &t.CreatedAt, &t.UpdatedAt, &t.Payload,
			&t.Status, &t.AttemptCount, &t.NextAttemptAt); err != nil {
			return nil, fmt.Errorf("scan task: %w", err)
		}
		tasks = append(tasks, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate tasks: %w", err)
	}
	return tasks, nil
}

func (r *PostgresTaskRepository) MarkTaskProcessing(ctx context.Context, taskID int) error {
	query := `UPDATE outbox_tasks SET status = $1, updated_at = NOW() WHERE id = $2`
	if _, err := r.db.ExecContext(ctx, query, TaskStatusProcessing, taskID); err != nil {
		return fmt.Errorf("mark task processing: %w", err)
	}
	return nil
}

func (r *PostgresTaskRepository) DeleteTask(ctx context.Context, taskID int) error {
	query := `DELETE FROM outbox_tasks WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, taskID); err != nil {
		return fmt.Errorf("delete task: %w", err)
	}
	return nil
}

func (r *PostgresTaskRepository) UpdateTaskFailure(ctx context.Context, taskID int, attemptCount int, newStatus TaskStatus, nextAttemptAt time.Time) error {
	query := `
		UPDATE outbox_tasks
		SET status = $1, attempt_count = $2, updated_at = NOW(), next_attempt_at = $3
		WHERE id = $4
	`
	if _, err := r.db.ExecContext(ctx, query, newStatus, attemptCount, nextAttemptAt, taskID); err != nil {
		return fmt.Errorf("update task failure: %w", err)
	}
	return nil
}
