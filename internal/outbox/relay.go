package outbox

import (
	"context"
	"time"

	"go.uber.org/zap"

	"toyadmin/internal/repository"
)

type publisher interface {
	Publish(topic string, message []byte) error
}

// Relay drains the outbox into Kafka: mark PROCESSING, publish, delete.
// A failed publish is scheduled for retry until maxAttempts is exhausted.
type Relay struct {
	repo         repository.TaskRepository
	producer     publisher
	topic        string
	pollInterval time.Duration
	limit        int
	maxAttempts  int
	retryDelay   time.Duration
	log          *zap.SugaredLogger
}

func NewRelay(repo repository.TaskRepository, producer publisher, topic string,
	pollInterval time.Duration, limit int, log *zap.SugaredLogger) *Relay {
	return &Relay{
		repo:         repo,
		producer:     producer,
		topic:        topic,
		pollInterval: pollInterval,
		limit:        limit,
		maxAttempts:  3,
		retryDelay:   2 * time.Second,
		log:          log,
	}
}

func (r *Relay) Start(ctx context.Context) {
	ticker := time.NewTicker(r.pollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.drain(ctx)
		}
	}
}

func (r *Relay) drain(ctx context.Context) {
	tasks, err := r.repo.GetPendingTasks(ctx, r.limit, r.maxAttempts)
	if err != nil {
		r.log.Errorw("fetching pending tasks failed", "error", err)
		return
	}
	for _, task := range tasks {
		if err := r.repo.MarkTaskProcessing(ctx, task.ID); err != nil {
			r.log.Errorw("marking task processing failed", "task_id", task.ID, "error", err)
			continue
		}
		if err := r.producer.Publish(r.topic, task.Payload); err != nil {
			r.recordFailure(ctx, task, err)
			continue
		}
		if err := r.repo.DeleteTask(ctx, task.ID); err != nil {
			r.log.Errorw("deleting published task failed", "task_id", task.ID, "error", err)
		}
	}
}

func (r *Relay) recordFailure(ctx context.Context, task *repository.Task, cause error) {
	newAttempt := task.AttemptCount + 1
	newStatus := repository.TaskStatusFailed
	if newAttempt >= r.maxAttempts {
		newStatus = repository.TaskStatusNoAttemptsLeft
	}
	nextAttempt := time.Now().Add(r.retryDelay)
	if err := r.repo.UpdateTaskFailure(ctx, task.ID, newAttempt, newStatus, nextAttempt); err != nil {
		r.log.Errorw("updating failed task failed", "task_id", task.ID, "error", err)
	}
	r.log.Warnw("publish failed", "task_id", task.ID, "attempt", newAttempt, "error", cause)
}
