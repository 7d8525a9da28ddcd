package services

import (
	"context"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"matricula_app_echo/internal/models"
)

// ProgressService computes derived, read-only views over an enrollment's
// installments. It never mutates ledger state and never serves a cached value
// as the authority: every read recomputes from the live installment set.
type ProgressService struct {
	db *gorm.DB
}

func NewProgressService(db *gorm.DB) *ProgressService {
	return &ProgressService{db: db}
}

// EnrollmentProgress is the aggregate payment view of one enrollment.
// PaymentProgress is exact; DisplayProgress is rounded for presentation only.
type EnrollmentProgress struct {
	EnrollmentID    uint            `json:"enrollment_id"`
	TotalPaid       decimal.Decimal `json:"total_paid"`
	TotalPending    decimal.Decimal `json:"total_pending"`
	TotalObligation decimal.Decimal `json:"total_obligation"`
	PaymentProgress decimal.Decimal `json:"payment_progress"`
	DisplayProgress string          `json:"display_progress"`
}

// ComputeProgress derives the aggregate from an enrollment and its full
// installment set. Pure; callers supply a fresh load.
func ComputeProgress(enrollment *models.Enrollment, installments []*models.Installment) EnrollmentProgress {
	totalPaid := enrollment.EnrollmentFee
	totalPending := decimal.Zero
	totalObligation := enrollment.EnrollmentFee

	for _, inst := range installments {
		if inst.Status == models.InstallmentStatusCancelled {
			continue
		}
		totalPaid = totalPaid.Add(inst.PaidAmount)
		totalObligation = totalObligation.Add(inst.TotalDue())
		if inst.Status == models.InstallmentStatusPending || inst.Status == models.InstallmentStatusOverdue {
			totalPending = totalPending.Add(inst.RemainingAmount())
		}
	}

	progress := decimal.Zero
	if totalObligation.GreaterThan(decimal.Zero) {
		progress = totalPaid.Div(totalObligation).Mul(decimal.NewFromInt(100))
	}
	// Clamp to [0, 100]
	if progress.GreaterThan(decimal.NewFromInt(100)) {
		progress = decimal.NewFromInt(100)
	}
	if progress.IsNegative() {
		progress = decimal.Zero
	}

	return EnrollmentProgress{
		EnrollmentID:    enrollment.ID,
		TotalPaid:       totalPaid,
		TotalPending:    totalPending,
		TotalObligation: totalObligation,
		PaymentProgress: progress,
		DisplayProgress: progress.StringFixed(2),
	}
}

// Progress loads the enrollment and its installments fresh and recomputes the
// aggregate. There is no persisted snapshot to drift from.
func (s *ProgressService) Progress(ctx context.Context, enrollmentID uint) (*EnrollmentProgress, error) {
	var enrollment models.Enrollment
	if err := s.db.WithContext(ctx).First(&enrollment, enrollmentID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, models.ErrNotFound
		}
		return nil, err
	}

	var installments []*models.Installment
	if err := s.db.WithContext(ctx).
		Where("enrollment_id = ?", enrollmentID).
		Order("installment_number ASC").
		Find(&installments).Error; err != nil {
		return nil, err
	}

	progress := ComputeProgress(&enrollment, installments)
	return &progress, nil
}
