package services

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"matricula_app_echo/internal/models"
)

// AllocatorService distributes one declared payment across a student's
// outstanding installments, oldest obligation first.
type AllocatorService struct {
	db       *gorm.DB
	cache    *RedisCache
	notifier *NotificationService
}

func NewAllocatorService(db *gorm.DB, cache *RedisCache, notifier *NotificationService) *AllocatorService {
	return &AllocatorService{db: db, cache: cache, notifier: notifier}
}

// PaymentDeclaration describes one declared payment event: who claims it, how
// it was paid and the uploaded artifact every resulting voucher references.
type PaymentDeclaration struct {
	UploadedBy    uint
	PaymentMethod string
	PaymentDate   time.Time
	FilePath      string

	// AutoApprove is set by the card-gateway rail: money is already settled,
	// so vouchers skip staff review and completed installments verify directly.
	AutoApprove bool
}

// DistributionLine is the per-installment audit record of one allocation
type DistributionLine struct {
	InstallmentID     uint            `json:"installment_id"`
	InstallmentNumber int             `json:"installment_number"`
	AmountApplied     decimal.Decimal `json:"amount_applied"`
	Completed         bool            `json:"completed"`
	Remaining         decimal.Decimal `json:"remaining"`
}

// AllocationResult is returned to callers for audit and notification
type AllocationResult struct {
	BatchID          string             `json:"batch_id"`
	TotalDistributed decimal.Decimal    `json:"total_distributed"`
	Remainder        decimal.Decimal    `json:"remainder"`
	AffectedIDs      []uint             `json:"affected_installment_ids"`
	Lines            []DistributionLine `json:"lines"`
}

// checkPendingBalance rejects a declared amount larger than the sum still
// awaiting payment. Paid installments are excluded: their balance can only
// reopen through late-fee growth, which the distribution itself recomputes.
func checkPendingBalance(declared decimal.Decimal, installments []*models.Installment) error {
	pending := decimal.Zero
	for _, inst := range installments {
		if inst.Status == models.InstallmentStatusPending || inst.Status == models.InstallmentStatusOverdue {
			pending = pending.Add(inst.RemainingAmount())
		}
	}
	if declared.GreaterThan(pending) {
		return &models.ExceedsPendingBalanceError{Declared: declared, Pending: pending}
	}
	return nil
}

// distributePayment walks the ordered installments applying money until the
// amount runs out. Late fees are recomputed first so each installment's
// pending balance reflects "now" before any money lands on it. Mutates the
// passed installments; persistence is the caller's job.
func distributePayment(installments []*models.Installment, total decimal.Decimal, gracePeriodDays int, lateFee decimal.Decimal, now time.Time) ([]DistributionLine, decimal.Decimal, error) {
	lines := make([]DistributionLine, 0, len(installments))
	remaining := total

	for _, inst := range installments {
		if remaining.LessThanOrEqual(decimal.Zero) {
			break
		}

		inst.CalculateLateFee(gracePeriodDays, lateFee, now)
		if inst.RemainingAmount().LessThanOrEqual(decimal.Zero) {
			continue
		}

		app, err := inst.ApplyPayment(remaining, now)
		if err != nil {
			return nil, remaining, fmt.Errorf("failed to apply payment to installment %d: %w", inst.InstallmentNumber, err)
		}

		remaining = remaining.Sub(app.AmountApplied)
		lines = append(lines, DistributionLine{
			InstallmentID:     inst.ID,
			InstallmentNumber: inst.InstallmentNumber,
			AmountApplied:     app.AmountApplied,
			Completed:         app.Completed,
			Remaining:         app.RemainingInInstallment,
		})
	}

	return lines, remaining, nil
}

// Allocate distributes totalAmount across the enrollment's outstanding
// installments in due-date order. All ledger writes commit in one
// transaction; validation happens before any mutation.
func (s *AllocatorService) Allocate(ctx context.Context, enrollmentID uint, totalAmount decimal.Decimal, decl PaymentDeclaration) (*AllocationResult, error) {
	if totalAmount.LessThanOrEqual(decimal.Zero) {
		return nil, models.ErrInvalidAmount
	}

	lock, err := s.cache.LockEnrollment(ctx, enrollmentID)
	if err != nil {
		return nil, err
	}
	defer lock.Unlock(ctx)

	var enrollment models.Enrollment
	if err := s.db.WithContext(ctx).Preload("PaymentPlan").First(&enrollment, enrollmentID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, models.ErrNotFound
		}
		return nil, err
	}
	if enrollment.StudentID != decl.UploadedBy {
		return nil, &models.OwnershipViolationError{Resource: "enrollment", ActorID: decl.UploadedBy}
	}

	now := time.Now()
	plan := enrollment.PaymentPlan
	result := &AllocationResult{BatchID: uuid.New().String()}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var installments []*models.Installment
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("enrollment_id = ? AND status IN ?", enrollmentID, []models.InstallmentStatus{
				models.InstallmentStatusPending,
				models.InstallmentStatusOverdue,
				models.InstallmentStatusPaid,
			}).
			Order("due_date ASC, installment_number ASC").
			Find(&installments).Error
		if err != nil {
			return err
		}

		// Reject over-declared amounts against a consistent snapshot,
		// before anything is written
		if err := checkPendingBalance(totalAmount, installments); err != nil {
			return err
		}

		lines, remainder, err := distributePayment(installments, totalAmount, plan.GracePeriodDays, plan.LateFeeAmount, now)
		if err != nil {
			return err
		}
		// Exhaustion cannot happen when the precondition held, but a dirty
		// snapshot must roll back rather than under-apply silently
		if remainder.GreaterThan(decimal.Zero) {
			return fmt.Errorf("could not distribute %s of declared %s across enrollment %d",
				remainder.StringFixed(2), totalAmount.StringFixed(2), enrollmentID)
		}

		byID := make(map[uint]*models.Installment, len(installments))
		for _, inst := range installments {
			byID[inst.ID] = inst
		}

		for _, line := range lines {
			inst := byID[line.InstallmentID]

			voucher := models.InstallmentVoucher{
				InstallmentID:  inst.ID,
				BatchID:        result.BatchID,
				DeclaredAmount: line.AmountApplied,
				AppliedAmount:  line.AmountApplied,
				PaymentDate:    decl.PaymentDate,
				PaymentMethod:  decl.PaymentMethod,
				Status:         models.VoucherStatusPending,
				AppliedToTotal: true,
				FilePath:       decl.FilePath,
				UploadedBy:     decl.UploadedBy,
			}
			if line.Completed {
				voucher.PaymentType = models.VoucherPaymentTypeFull
			} else {
				voucher.PaymentType = models.VoucherPaymentTypePartial
			}
			if decl.AutoApprove {
				voucher.Status = models.VoucherStatusApproved
				if line.Completed {
					if err := inst.Verify(); err != nil {
						return err
					}
				}
			}

			if err := tx.Save(inst).Error; err != nil {
				return err
			}
			if err := tx.Create(&voucher).Error; err != nil {
				return err
			}

			result.AffectedIDs = append(result.AffectedIDs, inst.ID)
		}

		result.Lines = lines
		result.TotalDistributed = totalAmount.Sub(remainder)
		result.Remainder = remainder
		return nil
	})
	if err != nil {
		log.Printf("Allocation failed: enrollment=%d amount=%s touched=%v: %v",
			enrollmentID, totalAmount.StringFixed(2), result.AffectedIDs, err)
		return nil, err
	}

	// Notification is best-effort, outside the atomicity boundary
	s.notifier.EnqueueVoucherEvent(ctx, VoucherEvent{
		Kind:         VoucherEventUploaded,
		EnrollmentID: enrollmentID,
		BatchID:      result.BatchID,
		Amount:       result.TotalDistributed,
		UploadedBy:   decl.UploadedBy,
	})

	return result, nil
}
