package consumer

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/giobyte8/picturefill/internal/models"
	"github.com/giobyte8/picturefill/internal/services"
)

type MessageConsumer interface {
	Start(ctx context.Context) error

	Stop()
}

// TargetRunner runs one target of a task file.
type TargetRunner interface {
	RunTarget(
		ctx context.Context,
		name string,
		target models.Target,
		opts services.RunOptions,
	) (*services.RunResult, error)
}

// RunRequestHandler turns run request messages into target runs,
// independent of the transport they arrived on.
type RunRequestHandler struct {
	taskFile *models.TaskFile
	runner   TargetRunner
}

func NewRunRequestHandler(
	taskFile *models.TaskFile,
	runner TargetRunner,
) *RunRequestHandler {
	return &RunRequestHandler{
		taskFile: taskFile,
		runner:   runner,
	}
}

// Handle decodes body and runs the requested target. A non-nil error
// means the message must not be acknowledged.
func (h *RunRequestHandler) Handle(ctx context.Context, body []byte) error {
	req, err := decodeRunRequest(body)
	if err != nil {
		return err
	}

	target, ok := h.taskFile.Targets[req.Target]
	if !ok {
		return fmt.Errorf(
			"run request %s: %w %q",
			req.RunRequestId,
			services.ErrUnknownTarget,
			req.Target,
		)
	}

	slog.Info(
		"Processing run request",
		"runRequestId", req.RunRequestId,
		"target", req.Target,
	)

	res, err := h.runner.RunTarget(ctx, req.Target, target, services.RunOptions{})
	if err != nil {
		return fmt.Errorf("run request %s: %w", req.RunRequestId, err)
	}

	slog.Info(
		"Run request completed",
		"runRequestId", req.RunRequestId,
		"runId", res.RunID,
		"variants", res.Completed,
	)
	return nil
}
