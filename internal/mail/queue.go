package mail

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/hibiken/asynq"
	"go.uber.org/zap"
)

// Task type and queue used for asynchronous delivery
const (
	TaskTypeSendEmail = "email:send"
	QueueName         = "mail"
)

const maxRetry = 5

// Enqueuer is satisfied by *asynq.Client
type Enqueuer interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

// QueueMailer hands messages to the mail worker through asynq
type QueueMailer struct {
	client Enqueuer
	logger *zap.Logger
}

// NewQueueMailer creates a mailer that enqueues email:send tasks
func NewQueueMailer(client Enqueuer, logger *zap.Logger) *QueueMailer {
	return &QueueMailer{
		client: client,
		logger: logger,
	}
}

// NewSendEmailTask wraps msg into an email:send task
func NewSendEmailTask(msg Message) (*asynq.Task, error) {
	payload, err := json.Marshal(msg)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal email payload: %w", err)
	}
	return asynq.NewTask(TaskTypeSendEmail, payload), nil
}

// Send enqueues msg; delivery happens in the worker
func (m *QueueMailer) Send(ctx context.Context, msg Message) error {
	task, err := NewSendEmailTask(msg)
	if err != nil {
		return err
	}

	info, err := m.client.EnqueueContext(ctx, task, asynq.Queue(QueueName), asynq.MaxRetry(maxRetry))
	if err != nil {
		m.logger.Error("failed to enqueue email", zap.Error(err), zap.String("to", msg.To))
		return fmt.Errorf("failed to enqueue email: %w", err)
	}

	m.logger.Debug("email enqueued", zap.String("task_id", info.ID), zap.String("to", msg.To))
	return nil
}

// TaskHandler processes email:send tasks in the worker
type TaskHandler struct {
	sender Sender
	logger *zap.Logger
}

// NewTaskHandler creates a task handler delivering through sender
func NewTaskHandler(sender Sender, logger *zap.Logger) *TaskHandler {
	return &TaskHandler{
		sender: sender,
		logger: logger,
	}
}

// HandleSendEmail handles an email:send task. Malformed payloads are not retried.
func (h *TaskHandler) HandleSendEmail(ctx context.Context, t *asynq.Task) error {
	var msg Message
	if err := json.Unmarshal(t.Payload(), &msg); err != nil {
		return fmt.Errorf("failed to parse email payload: %v: %w", err, asynq.SkipRetry)
	}
	if msg.To == "" {
		return fmt.Errorf("email payload has no recipient: %w", asynq.SkipRetry)
	}

	if err := h.sender.Send(ctx, msg); err != nil {
		return err
	}

	h.logger.Info("email task completed", zap.String("to", msg.To), zap.String("subject", msg.Subject))
	return nil
}
