// Package notify delivers assignment notifications outside the request path.
package notify

import (
	"context"
	"log/slog"
)

// Assignment tells a user that a task was assigned to them.
type Assignment struct {
	TaskID         string
	TaskTitle      string
	RecipientEmail string
	RecipientName  string
	AssignerName   string
}

// Notifier delivers a single assignment notification.
type Notifier interface {
	NotifyAssignment(ctx context.Context, a Assignment) error
}

// LogNotifier is used when mail delivery is disabled.
type LogNotifier struct {
	logger *slog.Logger
}

func NewLogNotifier(logger *slog.Logger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

func (n *LogNotifier) NotifyAssignment(_ context.Context, a Assignment) error {
	n.logger.Info("email disabled, would notify assignee",
		"recipient", a.RecipientEmail,
		"task_id", a.TaskID,
		"task_title", a.TaskTitle,
	)
	return nil
}
