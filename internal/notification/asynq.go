package notification

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"github.com/rs/zerolog/log"
)

const (
	QueueNotifications = "notifications"
	maxTaskRetry       = 3
)

type enqueuer interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

// AsynqDispatcher hands jobs to a Redis-backed asynq queue; cmd/worker
// delivers them.
type AsynqDispatcher struct {
	client enqueuer
}

func NewAsynqDispatcher(client *asynq.Client) *AsynqDispatcher {
	return &AsynqDispatcher{client: client}
}

func NewSongTask(job Job) (*asynq.Task, error) {
	payload, err := json.Marshal(job)
	if err != nil {
		return nil, fmt.Errorf("marshal notification job: %w", err)
	}
	return asynq.NewTask(TypeSongShared, payload), nil
}

func (d *AsynqDispatcher) Submit(ctx context.Context, job Job) error {
	task, err := NewSongTask(job)
	if err != nil {
		return err
	}

	info, err := d.client.EnqueueContext(ctx, task,
		asynq.Queue(QueueNotifications),
		asynq.MaxRetry(maxTaskRetry),
		asynq.TaskID(uuid.NewString()),
	)
	if err != nil {
		return fmt.Errorf("enqueue notification: %w", err)
	}

	log.Debug().Str("task_id", info.ID).Str("to", job.RecipientEmail).Msg("notification enqueued")
	return nil
}

// TaskHandler is the asynq handler for TypeSongShared.
type TaskHandler struct {
	sender Sender
}

func NewTaskHandler(sender Sender) *TaskHandler {
	return &TaskHandler{sender: sender}
}

func (h *TaskHandler) ProcessTask(ctx context.Context, task *asynq.Task) error {
	var job Job
	if err := json.Unmarshal(task.Payload(), &job); err != nil {
		log.Error().Err(err).Msg("failed to unmarshal notification payload")
		// a payload that never decodes will not decode on retry either
		return fmt.Errorf("unmarshal payload: %v: %w", err, asynq.SkipRetry)
	}

	log.Info().Str("to", job.RecipientEmail).Str("song", job.SongTitle).Msg("processing song notification")

	if err := h.sender.Send(ctx, job); err != nil {
		return fmt.Errorf("send song notification: %w", err)
	}
	return nil
}

// LogTaskFailure is the asynq server error handler.
func LogTaskFailure(ctx context.Context, task *asynq.Task, err error) {
	retried, _ := asynq.GetRetryCount(ctx)
	maxRetry, _ := asynq.GetMaxRetry(ctx)

	log.Error().Err(err).
		Str("type", task.Type()).
		Int("retried", retried).
		Int("max_retry", maxRetry).
		Bool("final", retried >= maxRetry).
		Msg("notification task failed")
}
