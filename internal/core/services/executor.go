package services

import (
	"context"

	"github.com/dust-tt/connectors-go/internal/core/ports/driving"
)

// Executor binds queued jobs to the services that run them. The workflow
// queue calls it without knowing which service owns which job kind.
type Executor struct {
	sync      driving.SyncOrchestrator
	bot       driving.BotService
	lifecycle driving.LifecycleService
}

// NewExecutor creates a job executor.
func NewExecutor(sync driving.SyncOrchestrator, bot driving.BotService, lifecycle driving.LifecycleService) *Executor {
	return &Executor{sync: sync, bot: bot, lifecycle: lifecycle}
}

// ExecuteSync runs one sync pass.
func (e *Executor) ExecuteSync(ctx context.Context, connectorID string, scope []string) error {
	return e.sync.RunSync(ctx, connectorID, scope)
}

// ExecuteGC runs one garbage-collection pass.
func (e *Executor) ExecuteGC(ctx context.Context, connectorID string) error {
	return e.sync.RunGC(ctx, connectorID)
}

// ExecuteTeardown deletes the connector after an uninstall.
func (e *Executor) ExecuteTeardown(ctx context.Context, connectorID string) error {
	return e.lifecycle.Delete(ctx, connectorID)
}

// ExecuteBotReply answers one recorded bot message.
func (e *Executor) ExecuteBotReply(ctx context.Context, connectorID, botMessageID string) error {
	return e.bot.Reply(ctx, connectorID, botMessageID)
}
