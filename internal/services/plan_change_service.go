package services

import (
	"context"
	"fmt"
	"log"
	"sort"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"matricula_app_echo/internal/models"
)

// planChangeCooldown is how long a student must wait between plan changes
const planChangeCooldown = 30 * 24 * time.Hour

// PlanChangeService migrates an active enrollment to a different payment
// plan while protecting already-claimed payments.
type PlanChangeService struct {
	db    *gorm.DB
	cache *RedisCache
}

func NewPlanChangeService(db *gorm.DB, cache *RedisCache) *PlanChangeService {
	return &PlanChangeService{db: db, cache: cache}
}

// PlanChangeEligibility is the policy gate result. Callers must consult it
// before mutating.
type PlanChangeEligibility struct {
	CanChange bool   `json:"can_change"`
	Reason    string `json:"reason,omitempty"`
}

// PlanChangeResult summarizes what the migration did
type PlanChangeResult struct {
	EnrollmentID uint `json:"enrollment_id"`
	NewPlanID    uint `json:"new_plan_id"`
	Cancelled    int  `json:"cancelled_installments"`
	Kept         int  `json:"kept_installments"`
	Created      int  `json:"created_installments"`
}

// orderKeptInstallments sorts the preserved installments by due date and
// renumbers them contiguously from 1, returning the ones whose number changed.
// Numbers only ever move down, so the unique index never collides mid-update.
func orderKeptInstallments(kept []*models.Installment) []*models.Installment {
	sort.SliceStable(kept, func(i, j int) bool {
		if kept[i].DueDate.Equal(kept[j].DueDate) {
			return kept[i].InstallmentNumber < kept[j].InstallmentNumber
		}
		return kept[i].DueDate.Before(kept[j].DueDate)
	})

	var changed []*models.Installment
	for idx, inst := range kept {
		if inst.InstallmentNumber != idx+1 {
			inst.InstallmentNumber = idx + 1
			changed = append(changed, inst)
		}
	}
	return changed
}

// CanChangePlan checks the plan-change policy for a student: an active
// enrollment must exist and the cooldown window since the last change (or
// the enrollment itself) must have passed.
func (s *PlanChangeService) CanChangePlan(ctx context.Context, studentID uint) (*PlanChangeEligibility, error) {
	var enrollment models.Enrollment
	err := s.db.WithContext(ctx).
		Where("student_id = ? AND status = ?", studentID, models.EnrollmentStatusActive).
		First(&enrollment).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return &PlanChangeEligibility{CanChange: false, Reason: "no active enrollment"}, nil
		}
		return nil, err
	}

	lastChange := enrollment.EnrollmentDate
	if enrollment.LastPlanChangeAt != nil {
		lastChange = *enrollment.LastPlanChangeAt
	}
	if elapsed := time.Since(lastChange); elapsed < planChangeCooldown {
		return &PlanChangeEligibility{
			CanChange: false,
			Reason:    fmt.Sprintf("plan changed %d days ago, cooldown is %d days", int(elapsed.Hours()/24), int(planChangeCooldown.Hours()/24)),
		}, nil
	}
	return &PlanChangeEligibility{CanChange: true}, nil
}

// ChangePlan migrates the student's active enrollment to newPlanID:
// pending installments with no vouchers are cancelled, paid/verified ones
// (and pending ones carrying vouchers) are preserved and renumbered
// contiguously, and the remaining quota is backfilled at the new plan's
// monthly amount, due monthly from now. After the change the non-cancelled
// installment count equals the new plan's installment count.
func (s *PlanChangeService) ChangePlan(ctx context.Context, studentID, newPlanID uint) (*PlanChangeResult, error) {
	eligibility, err := s.CanChangePlan(ctx, studentID)
	if err != nil {
		return nil, err
	}
	if !eligibility.CanChange {
		return nil, fmt.Errorf("plan change not allowed: %s", eligibility.Reason)
	}

	// Plan templates are immutable, so a cached copy is never stale
	var newPlan models.PaymentPlan
	cacheKey := fmt.Sprintf("payment_plan:%d", newPlanID)
	if err := s.cache.Get(ctx, cacheKey, &newPlan); err != nil {
		if err := s.db.WithContext(ctx).First(&newPlan, newPlanID).Error; err != nil {
			if err == gorm.ErrRecordNotFound {
				return nil, models.ErrNotFound
			}
			return nil, err
		}
		if err := s.cache.Set(ctx, cacheKey, newPlan, time.Hour); err != nil {
			log.Printf("Failed to cache payment plan %d: %v", newPlanID, err)
		}
	}

	var enrollment models.Enrollment
	err = s.db.WithContext(ctx).
		Where("student_id = ? AND status = ?", studentID, models.EnrollmentStatusActive).
		First(&enrollment).Error
	if err != nil {
		return nil, err
	}

	lock, err := s.cache.LockEnrollment(ctx, enrollment.ID)
	if err != nil {
		return nil, err
	}
	defer lock.Unlock(ctx)

	result := &PlanChangeResult{EnrollmentID: enrollment.ID, NewPlanID: newPlan.ID}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var installments []*models.Installment
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("enrollment_id = ?", enrollment.ID).
			Order("due_date ASC, installment_number ASC").
			Find(&installments).Error
		if err != nil {
			return err
		}

		var kept []*models.Installment
		for _, inst := range installments {
			switch inst.Status {
			case models.InstallmentStatusPaid, models.InstallmentStatusVerified:
				kept = append(kept, inst)
			case models.InstallmentStatusPending, models.InstallmentStatusOverdue:
				var vouchers int64
				if err := tx.Model(&models.InstallmentVoucher{}).
					Where("installment_id = ?", inst.ID).
					Count(&vouchers).Error; err != nil {
					return err
				}
				if vouchers > 0 {
					// A claimed payment is never wiped by a plan change
					kept = append(kept, inst)
					continue
				}
				if err := inst.Cancel(); err != nil {
					return err
				}
				if err := tx.Save(inst).Error; err != nil {
					return err
				}
				// Soft-delete frees the installment number for the new schedule
				if err := tx.Delete(inst).Error; err != nil {
					return err
				}
				result.Cancelled++
			}
		}

		if len(kept) > newPlan.InstallmentsCount {
			return fmt.Errorf("new plan has %d installments but %d are already committed", newPlan.InstallmentsCount, len(kept))
		}

		for _, inst := range orderKeptInstallments(kept) {
			if err := tx.Save(inst).Error; err != nil {
				return err
			}
		}
		result.Kept = len(kept)

		now := time.Now()
		backfill := newPlan.InstallmentsCount - len(kept)
		if backfill > 0 {
			installments := buildInstallmentSchedule(enrollment.ID, &newPlan, len(kept)+1, backfill, now)
			if err := tx.Create(&installments).Error; err != nil {
				return err
			}
		}
		result.Created = backfill

		enrollment.PaymentPlanID = newPlan.ID
		enrollment.LastPlanChangeAt = &now
		return tx.Save(&enrollment).Error
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}
