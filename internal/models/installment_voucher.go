package models

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// VoucherStatus represents the review status of a voucher
type VoucherStatus string

const (
	VoucherStatusPending  VoucherStatus = "pending"
	VoucherStatusApproved VoucherStatus = "approved"
	VoucherStatusRejected VoucherStatus = "rejected"
)

// VoucherPaymentType records whether the voucher covered the installment's
// pending balance in full or only partially at the moment it was applied
type VoucherPaymentType string

const (
	VoucherPaymentTypeFull    VoucherPaymentType = "full"
	VoucherPaymentTypePartial VoucherPaymentType = "partial"
)

// InstallmentVoucher is a claim that a payment of DeclaredAmount was made,
// attached to exactly one installment. A distributed payment fans out into one
// voucher per touched installment, all sharing the same BatchID and file.
type InstallmentVoucher struct {
	ID        uint           `gorm:"primarykey" json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`

	InstallmentID  uint            `gorm:"index" json:"installment_id"`
	BatchID        string          `gorm:"type:varchar(36);index" json:"batch_id"`
	DeclaredAmount decimal.Decimal `gorm:"type:decimal(15,2)" json:"declared_amount"`

	// AppliedAmount is what actually landed on the installment. ApplyPayment
	// clamps to the remaining balance, so it can be less than DeclaredAmount;
	// reversals must move this figure, never the declaration.
	AppliedAmount decimal.Decimal `gorm:"type:decimal(15,2)" json:"applied_amount"`

	PaymentDate    time.Time          `json:"payment_date"`
	PaymentMethod  string             `gorm:"type:varchar(50)" json:"payment_method"`
	Status         VoucherStatus      `gorm:"type:varchar(20);default:'pending';index" json:"status"`
	PaymentType    VoucherPaymentType `gorm:"type:varchar(20)" json:"payment_type"`
	AppliedToTotal bool               `gorm:"default:false" json:"applied_to_total"`
	FilePath       string             `gorm:"type:varchar(500)" json:"file_path"`

	RejectionReason string     `gorm:"type:text" json:"rejection_reason"`
	UploadedBy      uint       `gorm:"index" json:"uploaded_by"`
	ReviewedBy      *uint      `json:"reviewed_by"`
	ReviewedAt      *time.Time `json:"reviewed_at"`

	// Relationships
	Installment Installment `gorm:"foreignKey:InstallmentID" json:"installment,omitempty"`
}

// Approve marks a pending voucher approved by the given reviewer
func (v *InstallmentVoucher) Approve(reviewerID uint, now time.Time) error {
	if v.Status != VoucherStatusPending {
		return &InvalidStateTransitionError{
			Entity: "voucher", From: string(v.Status), To: string(VoucherStatusApproved),
		}
	}
	v.Status = VoucherStatusApproved
	v.ReviewedBy = &reviewerID
	reviewedAt := now
	v.ReviewedAt = &reviewedAt
	return nil
}

// Reject marks a pending voucher rejected. A non-empty reason is required.
func (v *InstallmentVoucher) Reject(reviewerID uint, reason string, now time.Time) error {
	if strings.TrimSpace(reason) == "" {
		return ErrEmptyRejectionReason
	}
	if v.Status != VoucherStatusPending {
		return &InvalidStateTransitionError{
			Entity: "voucher", From: string(v.Status), To: string(VoucherStatusRejected),
		}
	}
	v.Status = VoucherStatusRejected
	v.RejectionReason = reason
	v.ReviewedBy = &reviewerID
	reviewedAt := now
	v.ReviewedAt = &reviewedAt
	return nil
}

// ResetForReplacement swaps the underlying file and declared amount on a
// not-yet-approved voucher and puts it back to pending review. Review fields
// are cleared; the old file is overwritten by the caller.
func (v *InstallmentVoucher) ResetForReplacement(newDeclared decimal.Decimal, newFilePath string, now time.Time) error {
	if v.Status == VoucherStatusApproved {
		return &InvalidStateTransitionError{
			Entity: "voucher", From: string(v.Status), To: string(VoucherStatusPending),
		}
	}
	v.Status = VoucherStatusPending
	v.DeclaredAmount = newDeclared
	v.FilePath = newFilePath
	v.PaymentDate = now
	v.RejectionReason = ""
	v.ReviewedBy = nil
	v.ReviewedAt = nil
	return nil
}
