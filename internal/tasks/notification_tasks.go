package tasks

import (
	"context"
	"encoding/json"
	"fmt"

	"gorm.io/gorm"

	"matricula_app_echo/internal/models"
	"matricula_app_echo/internal/services"
)

// VoucherNotificationTaskDef dispatches a queued voucher event to staff over
// the configured channels. The worker wires Notifier at startup; without one
// the handler builds a service from the environment (no FCM).
type VoucherNotificationTaskDef struct {
	Notifier *services.NotificationService
}

// TaskID returns the unique identifier for this task
func (t *VoucherNotificationTaskDef) TaskID() string {
	return services.VoucherNotificationTaskName
}

// HandleExecution sends the voucher event. Returns an error only when every
// channel failed, so the worker retries up to MaxAttempt times.
func (t *VoucherNotificationTaskDef) HandleExecution(ctx context.Context, db *gorm.DB, task models.ScheduledTask) (map[string]interface{}, error) {
	argsBytes, err := json.Marshal(task.Arguments)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal args: %w", err)
	}

	var evt services.VoucherEvent
	if err := json.Unmarshal(argsBytes, &evt); err != nil {
		return nil, fmt.Errorf("failed to unmarshal voucher event: %w", err)
	}

	notifier := t.Notifier
	if notifier == nil {
		notifier = services.NewNotificationService(db, services.NewEmailService(), services.NewWahaService(), nil)
	}

	if err := notifier.Dispatch(ctx, evt); err != nil {
		return nil, err
	}

	return map[string]interface{}{
		"status":        "success",
		"kind":          string(evt.Kind),
		"enrollment_id": evt.EnrollmentID,
	}, nil
}

// SendVoucherNotificationTask is the singleton instance
var SendVoucherNotificationTask = &VoucherNotificationTaskDef{}
