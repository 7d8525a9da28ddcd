package services

import (
	"context"
	"fmt"
	"io"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"matricula_app_echo/internal/models"
)

// LedgerService owns the voucher-driven control paths of the installment
// ledger: direct uploads against one installment, staff review and voucher
// replacement. Money amounts only move at upload time; review changes the
// confirmed status of money already applied.
type LedgerService struct {
	db       *gorm.DB
	cache    *RedisCache
	storage  FileStorage
	notifier *NotificationService
}

func NewLedgerService(db *gorm.DB, cache *RedisCache, storage FileStorage, notifier *NotificationService) *LedgerService {
	return &LedgerService{db: db, cache: cache, storage: storage, notifier: notifier}
}

// UploadResult reports a direct voucher upload against one installment
type UploadResult struct {
	VoucherID     uint                      `json:"voucher_id"`
	InstallmentID uint                      `json:"installment_id"`
	Application   models.PaymentApplication `json:"application"`
}

// StoreArtifact persists a payment proof file and returns its storage ref.
// Used when a single file backs a multi-installment distribution.
func (s *LedgerService) StoreArtifact(filename string, file io.Reader) (string, error) {
	ref, err := s.storage.Save(filename, file)
	if err != nil {
		return "", fmt.Errorf("failed to store voucher file: %w", err)
	}
	return ref, nil
}

// UploadVoucher records a payment claim against one specific installment.
// The declared amount need not cover the total due: any upload optimistically
// flips a pending installment to paid, awaiting staff verification.
func (s *LedgerService) UploadVoucher(ctx context.Context, installmentID uint, declared decimal.Decimal, decl PaymentDeclaration, file io.Reader, filename string) (*UploadResult, error) {
	if declared.LessThanOrEqual(decimal.Zero) {
		return nil, models.ErrInvalidAmount
	}

	inst, err := s.loadInstallment(ctx, installmentID)
	if err != nil {
		return nil, err
	}
	if inst.Enrollment.StudentID != decl.UploadedBy {
		return nil, &models.OwnershipViolationError{Resource: "installment", ActorID: decl.UploadedBy}
	}

	lock, err := s.cache.LockEnrollment(ctx, inst.EnrollmentID)
	if err != nil {
		return nil, err
	}
	defer lock.Unlock(ctx)

	fileRef, err := s.storage.Save(filename, file)
	if err != nil {
		return nil, fmt.Errorf("failed to store voucher file: %w", err)
	}

	now := time.Now()
	plan := inst.Enrollment.PaymentPlan
	result := &UploadResult{InstallmentID: installmentID}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var locked models.Installment
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&locked, installmentID).Error; err != nil {
			return err
		}

		locked.CalculateLateFee(plan.GracePeriodDays, plan.LateFeeAmount, now)
		app, err := locked.ApplyPayment(declared, now)
		if err != nil {
			return err
		}
		// Underpaid uploads still flip to paid: uploaded, awaiting confirmation
		if !app.Completed {
			if err := locked.MarkPendingVerification(now); err != nil {
				return err
			}
		}

		voucher := models.InstallmentVoucher{
			InstallmentID:  locked.ID,
			BatchID:        uuid.New().String(),
			DeclaredAmount: declared,
			AppliedAmount:  app.AmountApplied,
			PaymentDate:    decl.PaymentDate,
			PaymentMethod:  decl.PaymentMethod,
			Status:         models.VoucherStatusPending,
			AppliedToTotal: false,
			FilePath:       fileRef,
			UploadedBy:     decl.UploadedBy,
		}
		if app.Completed {
			voucher.PaymentType = models.VoucherPaymentTypeFull
		} else {
			voucher.PaymentType = models.VoucherPaymentTypePartial
		}

		if err := tx.Save(&locked).Error; err != nil {
			return err
		}
		if err := tx.Create(&voucher).Error; err != nil {
			return err
		}

		result.VoucherID = voucher.ID
		result.Application = app
		return nil
	})
	if err != nil {
		log.Printf("Voucher upload failed: installment=%d declared=%s: %v", installmentID, declared.StringFixed(2), err)
		return nil, err
	}

	s.notifier.EnqueueVoucherEvent(ctx, VoucherEvent{
		Kind:          VoucherEventUploaded,
		EnrollmentID:  inst.EnrollmentID,
		InstallmentID: installmentID,
		Amount:        declared,
		UploadedBy:    decl.UploadedBy,
	})

	return result, nil
}

// VerifyVoucher approves a pending voucher and, when the installment is fully
// covered and sitting in paid, confirms it as verified. An approved partial
// goes back to pending: the money stands, the open balance stays collectible.
func (s *LedgerService) VerifyVoucher(ctx context.Context, voucherID, reviewerID uint) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		voucher, inst, err := loadVoucherForReview(tx, voucherID)
		if err != nil {
			return err
		}

		now := time.Now()
		if err := voucher.Approve(reviewerID, now); err != nil {
			return err
		}
		// A partial voucher of a distributed batch leaves the installment
		// pending; only a fully covered paid installment can be confirmed
		if inst.Status == models.InstallmentStatusPaid {
			if inst.RemainingAmount().IsZero() {
				if err := inst.Verify(); err != nil {
					return err
				}
			} else {
				if err := inst.Reopen(); err != nil {
					return err
				}
			}
		}

		if err := tx.Save(voucher).Error; err != nil {
			return err
		}
		return tx.Save(inst).Error
	})
}

// RejectVoucher rejects a pending voucher with a reason. When no other
// non-rejected voucher backs the installment, the installment fully reverts
// to pending with its tentative money wiped; otherwise only this voucher's
// contribution is removed.
func (s *LedgerService) RejectVoucher(ctx context.Context, voucherID, reviewerID uint, reason string) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		voucher, inst, err := loadVoucherForReview(tx, voucherID)
		if err != nil {
			return err
		}

		now := time.Now()
		if err := voucher.Reject(reviewerID, reason, now); err != nil {
			return err
		}

		var others int64
		if err := tx.Model(&models.InstallmentVoucher{}).
			Where("installment_id = ? AND id <> ? AND status <> ?", inst.ID, voucher.ID, models.VoucherStatusRejected).
			Count(&others).Error; err != nil {
			return err
		}

		if others == 0 {
			if err := inst.Reject(); err != nil {
				return err
			}
		} else {
			if err := inst.RevertContribution(voucher.AppliedAmount); err != nil {
				return err
			}
		}

		if err := tx.Save(voucher).Error; err != nil {
			return err
		}
		return tx.Save(inst).Error
	})
}

// reapplyVoucher rewinds a voucher's previous contribution and applies the new
// declared amount in its place. Mutates both records; persistence is the
// caller's job. Only a direct upload flips an underpaid installment back to
// optimistic paid; a distributed partial stays in the pending family.
func reapplyVoucher(inst *models.Installment, voucher *models.InstallmentVoucher, newDeclared decimal.Decimal, now time.Time) (models.PaymentApplication, error) {
	oldApplied := voucher.AppliedAmount
	wasRejected := voucher.Status == models.VoucherStatusRejected

	if err := voucher.ResetForReplacement(newDeclared, voucher.FilePath, now); err != nil {
		return models.PaymentApplication{}, err
	}

	// A rejected voucher's contribution was already wiped, nothing to revert
	if !wasRejected && oldApplied.GreaterThan(decimal.Zero) {
		if err := inst.RevertContribution(oldApplied); err != nil {
			return models.PaymentApplication{}, err
		}
	}
	app, err := inst.ApplyPayment(newDeclared, now)
	if err != nil {
		return models.PaymentApplication{}, err
	}
	voucher.AppliedAmount = app.AmountApplied

	if !app.Completed && !voucher.AppliedToTotal {
		if err := inst.ResetForReplacement(newDeclared, now); err != nil {
			return models.PaymentApplication{}, err
		}
	}
	return app, nil
}

// ReplaceVoucher swaps the file and declared amount of a not-yet-approved
// voucher. The old blob is overwritten, the voucher returns to pending review
// and the installment's tentative money is re-applied from the new amount.
func (s *LedgerService) ReplaceVoucher(ctx context.Context, voucherID, actorID uint, newDeclared decimal.Decimal, file io.Reader) error {
	if newDeclared.LessThanOrEqual(decimal.Zero) {
		return models.ErrInvalidAmount
	}

	var voucher models.InstallmentVoucher
	if err := s.db.WithContext(ctx).First(&voucher, voucherID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return models.ErrNotFound
		}
		return err
	}
	if voucher.UploadedBy != actorID {
		return &models.OwnershipViolationError{Resource: "voucher", ActorID: actorID}
	}
	if voucher.Status == models.VoucherStatusApproved {
		return &models.InvalidStateTransitionError{
			Entity: "voucher", From: string(voucher.Status), To: string(models.VoucherStatusPending),
		}
	}

	// Overwrite the stored blob in place; the old file is gone after this
	if err := s.storage.Replace(voucher.FilePath, file); err != nil {
		return fmt.Errorf("failed to replace voucher file: %w", err)
	}

	var enrollmentID uint
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		locked, inst, err := loadVoucherForReview(tx, voucherID)
		if err != nil {
			return err
		}
		enrollmentID = inst.EnrollmentID

		if _, err := reapplyVoucher(inst, locked, newDeclared, time.Now()); err != nil {
			return err
		}

		if err := tx.Save(locked).Error; err != nil {
			return err
		}
		return tx.Save(inst).Error
	})
	if err != nil {
		log.Printf("Voucher replacement failed: voucher=%d declared=%s: %v", voucherID, newDeclared.StringFixed(2), err)
		return err
	}

	s.notifier.EnqueueVoucherEvent(ctx, VoucherEvent{
		Kind:         VoucherEventReplaced,
		EnrollmentID: enrollmentID,
		Amount:       newDeclared,
		UploadedBy:   actorID,
	})

	return nil
}

// OpenVoucherFile streams the stored proof behind a voucher for staff review
func (s *LedgerService) OpenVoucherFile(ctx context.Context, voucherID uint) (io.ReadCloser, error) {
	var voucher models.InstallmentVoucher
	if err := s.db.WithContext(ctx).First(&voucher, voucherID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, models.ErrNotFound
		}
		return nil, err
	}
	return s.storage.Open(voucher.FilePath)
}

func (s *LedgerService) loadInstallment(ctx context.Context, installmentID uint) (*models.Installment, error) {
	var inst models.Installment
	err := s.db.WithContext(ctx).
		Preload("Enrollment").
		Preload("Enrollment.PaymentPlan").
		First(&inst, installmentID).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, models.ErrNotFound
		}
		return nil, err
	}
	return &inst, nil
}

func loadVoucherForReview(tx *gorm.DB, voucherID uint) (*models.InstallmentVoucher, *models.Installment, error) {
	var voucher models.InstallmentVoucher
	if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&voucher, voucherID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil, models.ErrNotFound
		}
		return nil, nil, err
	}
	var inst models.Installment
	if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&inst, voucher.InstallmentID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil, models.ErrNotFound
		}
		return nil, nil, err
	}
	return &voucher, &inst, nil
}
