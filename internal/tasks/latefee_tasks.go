package tasks

import (
	"context"
	"fmt"
	"log"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"matricula_app_echo/internal/models"
)

// LateFeeSweepTaskDef recomputes late fees for every active enrollment and
// materializes the overdue label on pending installments past their grace
// window. Scheduled as a recurring daily task.
type LateFeeSweepTaskDef struct{}

// TaskID returns the unique identifier for this task
func (t *LateFeeSweepTaskDef) TaskID() string {
	return "latefee_sweep"
}

// HandleExecution walks active enrollments one transaction each, so a failure
// on one enrollment does not block the rest of the sweep
func (t *LateFeeSweepTaskDef) HandleExecution(ctx context.Context, db *gorm.DB, task models.ScheduledTask) (map[string]interface{}, error) {
	var enrollments []models.Enrollment
	err := db.WithContext(ctx).
		Preload("PaymentPlan").
		Where("status = ?", models.EnrollmentStatusActive).
		Find(&enrollments).Error
	if err != nil {
		return nil, fmt.Errorf("failed to fetch active enrollments: %w", err)
	}

	now := time.Now()
	feesApplied := 0
	markedOverdue := 0
	failures := 0

	for _, enrollment := range enrollments {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}

		plan := enrollment.PaymentPlan
		err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			var installments []*models.Installment
			// Row locks serialize the sweep against in-flight payments
			err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
				Where("enrollment_id = ? AND status IN ?", enrollment.ID, []models.InstallmentStatus{
					models.InstallmentStatusPending,
					models.InstallmentStatusOverdue,
				}).Find(&installments).Error
			if err != nil {
				return err
			}

			for _, inst := range installments {
				changed := inst.CalculateLateFee(plan.GracePeriodDays, plan.LateFeeAmount, now)
				if changed {
					feesApplied++
				}
				if inst.MarkOverdue(plan.GracePeriodDays, now) {
					markedOverdue++
				} else if !changed {
					continue
				}
				if err := tx.Save(inst).Error; err != nil {
					return err
				}
			}
			return nil
		})
		if err != nil {
			log.Printf("Late fee sweep failed for enrollment %d: %v", enrollment.ID, err)
			failures++
		}
	}

	return map[string]interface{}{
		"status":         "success",
		"enrollments":    len(enrollments),
		"fees_applied":   feesApplied,
		"marked_overdue": markedOverdue,
		"failures":       failures,
	}, nil
}

// LateFeeSweepTask is the singleton instance of LateFeeSweepTaskDef
var LateFeeSweepTask = &LateFeeSweepTaskDef{}
