package models

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// InstallmentStatus represents the status of an installment.
// "overdue" is a materialized label over "pending": the worker sweep stamps it
// for query convenience, but every transition treats it as pending.
type InstallmentStatus string

const (
	InstallmentStatusPending   InstallmentStatus = "pending"
	InstallmentStatusPaid      InstallmentStatus = "paid"
	InstallmentStatusVerified  InstallmentStatus = "verified"
	InstallmentStatusOverdue   InstallmentStatus = "overdue"
	InstallmentStatusCancelled InstallmentStatus = "cancelled"
)

// Installment is one scheduled tuition payment. All money mutations go through
// the transition methods below; services persist the result in a transaction.
type Installment struct {
	ID        uint           `gorm:"primarykey" json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`

	EnrollmentID      uint              `gorm:"index;uniqueIndex:idx_installment_number,priority:1,where:deleted_at IS NULL" json:"enrollment_id"`
	InstallmentNumber int               `gorm:"uniqueIndex:idx_installment_number,priority:2,where:deleted_at IS NULL" json:"installment_number"`
	DueDate           time.Time         `gorm:"index" json:"due_date"`
	Amount            decimal.Decimal   `gorm:"type:decimal(15,2)" json:"amount"`
	LateFee           decimal.Decimal   `gorm:"type:decimal(15,2)" json:"late_fee"`
	PaidAmount        decimal.Decimal   `gorm:"type:decimal(15,2)" json:"paid_amount"`
	Status            InstallmentStatus `gorm:"type:varchar(20);default:'pending';index" json:"status"`
	PaidDate          *time.Time        `json:"paid_date"`

	// Relationships
	Enrollment Enrollment           `gorm:"foreignKey:EnrollmentID" json:"enrollment,omitempty"`
	Vouchers   []InstallmentVoucher `gorm:"foreignKey:InstallmentID" json:"vouchers,omitempty"`
}

// PaymentApplication is the result of applying money to one installment
type PaymentApplication struct {
	AmountApplied          decimal.Decimal `json:"amount_applied"`
	RemainingInInstallment decimal.Decimal `json:"remaining_in_installment"`
	Completed              bool            `json:"completed"`
}

// TotalDue is the base amount plus any accrued late fee
func (i *Installment) TotalDue() decimal.Decimal {
	return i.Amount.Add(i.LateFee)
}

// RemainingAmount is how much is still owed on this installment, floored at zero
func (i *Installment) RemainingAmount() decimal.Decimal {
	remaining := i.TotalDue().Sub(i.PaidAmount)
	if remaining.IsNegative() {
		return decimal.Zero
	}
	return remaining
}

// isCollectible reports whether money can still move against this installment
func (i *Installment) isCollectible() bool {
	switch i.Status {
	case InstallmentStatusPending, InstallmentStatusOverdue, InstallmentStatusPaid:
		return true
	}
	return false
}

// isAwaitingPayment reports whether the installment is in the pending family
// (stored "pending" or the materialized "overdue" label)
func (i *Installment) isAwaitingPayment() bool {
	return i.Status == InstallmentStatusPending || i.Status == InstallmentStatusOverdue
}

// DaysLate counts whole days past the due date, zero when not yet due
func (i *Installment) DaysLate(today time.Time) int {
	if !today.After(i.DueDate) {
		return 0
	}
	return int(today.Sub(i.DueDate).Hours() / 24)
}

// IsOverdue reports whether the installment is awaiting payment and past the
// grace window. This is the derived rule the stored "overdue" label must agree with.
func (i *Installment) IsOverdue(gracePeriodDays int, today time.Time) bool {
	if !i.isAwaitingPayment() {
		return false
	}
	graceLimit := i.DueDate.AddDate(0, 0, gracePeriodDays)
	return today.After(graceLimit)
}

// CalculateLateFee assigns the plan's flat late fee once the grace window has
// elapsed. Assignment (not accumulation) keeps the call idempotent: recomputing
// on an already-charged installment changes nothing. The fee never shrinks and
// is never applied once the installment is paid, verified or cancelled.
// Returns true when the stored fee changed.
func (i *Installment) CalculateLateFee(gracePeriodDays int, feeAmount decimal.Decimal, today time.Time) bool {
	if !i.isAwaitingPayment() {
		return false
	}
	if !i.IsOverdue(gracePeriodDays, today) {
		return false
	}
	if feeAmount.LessThanOrEqual(i.LateFee) {
		return false
	}
	i.LateFee = feeAmount
	return true
}

// ApplyPayment clamps the given amount to the remaining balance, accumulates it
// into PaidAmount and flips the installment to paid when fully covered.
// Over-payment never fails: the clamp reports the unapplied remainder back so
// the allocator can carry it to the next installment.
func (i *Installment) ApplyPayment(amount decimal.Decimal, now time.Time) (PaymentApplication, error) {
	if amount.LessThanOrEqual(decimal.Zero) {
		return PaymentApplication{}, ErrInvalidAmount
	}
	if !i.isCollectible() {
		return PaymentApplication{}, &InvalidStateTransitionError{
			Entity: "installment", From: string(i.Status), To: string(InstallmentStatusPaid),
		}
	}

	remaining := i.RemainingAmount()
	toApply := amount
	if toApply.GreaterThan(remaining) {
		toApply = remaining
	}
	i.PaidAmount = i.PaidAmount.Add(toApply)

	completed := i.PaidAmount.GreaterThanOrEqual(i.TotalDue())
	if completed && i.isAwaitingPayment() {
		i.Status = InstallmentStatusPaid
		paidAt := now
		i.PaidDate = &paidAt
	}

	return PaymentApplication{
		AmountApplied:          toApply,
		RemainingInInstallment: i.RemainingAmount(),
		Completed:              completed,
	}, nil
}

// MarkPendingVerification flips a pending installment to paid when any voucher
// is uploaded against it, even if underpaid. This is the optimistic
// "uploaded, awaiting staff confirmation" transition; Verify or Reject settle
// it. A no-op when the installment already sits in paid, so stacking further
// partial vouchers on an optimistically paid installment is allowed.
func (i *Installment) MarkPendingVerification(now time.Time) error {
	if i.Status == InstallmentStatusPaid {
		return nil
	}
	if !i.isAwaitingPayment() {
		return &InvalidStateTransitionError{
			Entity: "installment", From: string(i.Status), To: string(InstallmentStatusPaid),
		}
	}
	i.Status = InstallmentStatusPaid
	paidAt := now
	i.PaidDate = &paidAt
	return nil
}

// Verify confirms a fully covered paid installment after staff review.
// Verified is terminal: an underpaid installment must not reach it, or the
// open balance would drop out of collection forever. The reviewer identity is
// recorded on the voucher by the service layer.
func (i *Installment) Verify() error {
	if i.Status != InstallmentStatusPaid || i.RemainingAmount().GreaterThan(decimal.Zero) {
		return &InvalidStateTransitionError{
			Entity: "installment", From: string(i.Status), To: string(InstallmentStatusVerified),
		}
	}
	i.Status = InstallmentStatusVerified
	return nil
}

// Reopen returns an optimistically paid installment to pending while keeping
// the money already applied. Used when review confirms a partial payment: the
// contribution stands, the open balance stays collectible.
func (i *Installment) Reopen() error {
	if i.Status != InstallmentStatusPaid {
		return &InvalidStateTransitionError{
			Entity: "installment", From: string(i.Status), To: string(InstallmentStatusPending),
		}
	}
	i.Status = InstallmentStatusPending
	return nil
}

// Reject wipes the tentatively applied money after the installment's backing
// claim is rejected. Accepts paid as well as the pending family, since a
// distributed partial leaves the installment pending while its voucher exists.
// A later CalculateLateFee behaves as if no payment had existed.
func (i *Installment) Reject() error {
	if i.Status != InstallmentStatusPaid && !i.isAwaitingPayment() {
		return &InvalidStateTransitionError{
			Entity: "installment", From: string(i.Status), To: string(InstallmentStatusPending),
		}
	}
	if i.Status == InstallmentStatusPaid {
		i.Status = InstallmentStatusPending
	}
	i.PaidAmount = decimal.Zero
	i.PaidDate = nil
	return nil
}

// RevertContribution removes one voucher's contribution without resetting the
// rest. Used when a single voucher of a batch is rejected or replaced while
// sibling vouchers stand. Floors at zero and reopens the installment when it
// is no longer fully covered.
func (i *Installment) RevertContribution(amount decimal.Decimal) error {
	if i.Status == InstallmentStatusCancelled {
		return &InvalidStateTransitionError{
			Entity: "installment", From: string(i.Status), To: string(InstallmentStatusPending),
		}
	}
	i.PaidAmount = i.PaidAmount.Sub(amount)
	if i.PaidAmount.IsNegative() {
		i.PaidAmount = decimal.Zero
	}
	if i.PaidAmount.LessThan(i.TotalDue()) &&
		(i.Status == InstallmentStatusPaid || i.Status == InstallmentStatusVerified) {
		i.Status = InstallmentStatusPending
		if i.PaidAmount.IsZero() {
			i.PaidDate = nil
		}
	}
	return nil
}

// ResetForReplacement re-evaluates the optimistic paid status after a pending
// voucher is swapped for a new file and declared amount. No reviewer involved.
func (i *Installment) ResetForReplacement(newDeclared decimal.Decimal, now time.Time) error {
	if i.Status != InstallmentStatusPaid && !i.isAwaitingPayment() {
		return &InvalidStateTransitionError{
			Entity: "installment", From: string(i.Status), To: string(InstallmentStatusPaid),
		}
	}
	if newDeclared.GreaterThan(decimal.Zero) {
		return i.MarkPendingVerification(now)
	}
	return nil
}

// Cancel marks a pending installment cancelled during a plan change. The
// service layer guarantees no vouchers are attached before calling this.
func (i *Installment) Cancel() error {
	if !i.isAwaitingPayment() {
		return &InvalidStateTransitionError{
			Entity: "installment", From: string(i.Status), To: string(InstallmentStatusCancelled),
		}
	}
	i.Status = InstallmentStatusCancelled
	return nil
}

// MarkOverdue materializes the overdue label on a pending installment past its
// grace window. The worker sweep is the only caller.
func (i *Installment) MarkOverdue(gracePeriodDays int, today time.Time) bool {
	if i.Status != InstallmentStatusPending {
		return false
	}
	if !i.IsOverdue(gracePeriodDays, today) {
		return false
	}
	i.Status = InstallmentStatusOverdue
	return true
}
