package plugin

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"
)

// ErrActionFailed is returned when a plugin reports failure.
var ErrActionFailed = errors.New("action failed")

// Runner resolves an action to the plugin that handles it and runs it.
type Runner struct {
	manager  *Manager
	executor *Executor
	logger   *zap.Logger
}

// NewRunner creates a Runner. A nil logger disables logging.
func NewRunner(manager *Manager, executor *Executor, logger *zap.Logger) *Runner {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Runner{manager: manager, executor: executor, logger: logger}
}

// Execute carries out action with its optional parameter.
func (r *Runner) Execute(ctx context.Context, action, param string) error {
	plugin, err := r.manager.ForAction(action)
	if err != nil {
		return fmt.Errorf("%s: %w", action, err)
	}

	resp, err := r.executor.Execute(ctx, plugin, &Request{Action: action, Param: param})
	if err != nil {
		return fmt.Errorf("plugin %s: %w", plugin.Manifest.Name, err)
	}
	if !resp.Success {
		return fmt.Errorf("plugin %s: %w: %s", plugin.Manifest.Name, ErrActionFailed, resp.Error)
	}

	r.logger.Debug("action executed",
		zap.String("action", action),
		zap.String("plugin", plugin.Manifest.Name))
	return nil
}
