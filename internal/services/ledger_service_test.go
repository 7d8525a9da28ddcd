package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"matricula_app_echo/internal/models"
)

func makeVoucher(t *testing.T, installmentID uint, declared, applied string, appliedToTotal bool) *models.InstallmentVoucher {
	t.Helper()
	return &models.InstallmentVoucher{
		ID:             1,
		InstallmentID:  installmentID,
		BatchID:        "batch-1",
		DeclaredAmount: dec(t, declared),
		AppliedAmount:  dec(t, applied),
		PaymentMethod:  "bank_transfer",
		Status:         models.VoucherStatusPending,
		AppliedToTotal: appliedToTotal,
		FilePath:       "vouchers/voucher-1.jpg",
		UploadedBy:     1,
	}
}

func TestReapplyVoucherDirectUpload(t *testing.T) {
	now := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)
	installments := makeInstallments(t, "500.00")
	inst := installments[0]

	// Original underpaid upload flipped the installment to optimistic paid
	_, err := inst.ApplyPayment(dec(t, "200.00"), now)
	require.NoError(t, err)
	require.NoError(t, inst.MarkPendingVerification(now))
	voucher := makeVoucher(t, inst.ID, "200.00", "200.00", false)

	app, err := reapplyVoucher(inst, voucher, dec(t, "350.00"), now)
	require.NoError(t, err)

	assert.True(t, app.AmountApplied.Equal(dec(t, "350.00")))
	assert.True(t, inst.PaidAmount.Equal(dec(t, "350.00")))
	assert.True(t, voucher.DeclaredAmount.Equal(dec(t, "350.00")))
	assert.True(t, voucher.AppliedAmount.Equal(dec(t, "350.00")))
	// Still underpaid, but a direct upload stays optimistically paid
	assert.Equal(t, models.InstallmentStatusPaid, inst.Status)
	assert.Equal(t, models.VoucherStatusPending, voucher.Status)
}

func TestReapplyVoucherDistributedPartialStaysPending(t *testing.T) {
	now := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)
	installments := makeInstallments(t, "500.00")
	inst := installments[0]

	// A distributed partial leaves the installment pending
	_, err := inst.ApplyPayment(dec(t, "200.00"), now)
	require.NoError(t, err)
	require.Equal(t, models.InstallmentStatusPending, inst.Status)
	voucher := makeVoucher(t, inst.ID, "200.00", "200.00", true)

	_, err = reapplyVoucher(inst, voucher, dec(t, "300.00"), now)
	require.NoError(t, err)

	assert.True(t, inst.PaidAmount.Equal(dec(t, "300.00")))
	// Replacing the batch voucher must not flip the installment to paid
	assert.Equal(t, models.InstallmentStatusPending, inst.Status)
}

func TestReapplyVoucherRevertsByAppliedAmount(t *testing.T) {
	now := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)
	installments := makeInstallments(t, "500.00")
	inst := installments[0]

	// A sibling voucher holds 300.00; this voucher declared 400.00 but only
	// 200.00 landed because of the clamp
	_, err := inst.ApplyPayment(dec(t, "300.00"), now)
	require.NoError(t, err)
	app, err := inst.ApplyPayment(dec(t, "400.00"), now)
	require.NoError(t, err)
	require.True(t, app.AmountApplied.Equal(dec(t, "200.00")))
	voucher := makeVoucher(t, inst.ID, "400.00", "200.00", false)

	_, err = reapplyVoucher(inst, voucher, dec(t, "100.00"), now)
	require.NoError(t, err)

	// 500 - 200 (rewind of what landed) + 100 (new amount); the sibling's
	// 300.00 stays untouched
	assert.True(t, inst.PaidAmount.Equal(dec(t, "400.00")))
	assert.True(t, voucher.AppliedAmount.Equal(dec(t, "100.00")))
}

func TestReapplyVoucherAfterRejection(t *testing.T) {
	now := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)
	installments := makeInstallments(t, "500.00")
	inst := installments[0]
	reviewerID := uint(9)

	// First upload was rejected, its money already wiped
	_, err := inst.ApplyPayment(dec(t, "200.00"), now)
	require.NoError(t, err)
	voucher := makeVoucher(t, inst.ID, "200.00", "200.00", false)
	require.NoError(t, voucher.Reject(reviewerID, "unreadable photo", now))
	require.NoError(t, inst.Reject())
	require.True(t, inst.PaidAmount.IsZero())

	_, err = reapplyVoucher(inst, voucher, dec(t, "500.00"), now)
	require.NoError(t, err)

	// Nothing was rewound twice: the fresh amount stands alone
	assert.True(t, inst.PaidAmount.Equal(dec(t, "500.00")))
	assert.Equal(t, models.InstallmentStatusPaid, inst.Status)
	assert.Equal(t, models.VoucherStatusPending, voucher.Status)
	assert.Empty(t, voucher.RejectionReason)
	assert.Nil(t, voucher.ReviewedBy)
}

func TestReapplyVoucherRefusesApproved(t *testing.T) {
	now := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)
	installments := makeInstallments(t, "500.00")
	inst := installments[0]
	reviewerID := uint(9)

	_, err := inst.ApplyPayment(dec(t, "500.00"), now)
	require.NoError(t, err)
	voucher := makeVoucher(t, inst.ID, "500.00", "500.00", false)
	require.NoError(t, voucher.Approve(reviewerID, now))

	_, err = reapplyVoucher(inst, voucher, dec(t, "300.00"), now)
	require.Error(t, err)

	var stateErr *models.InvalidStateTransitionError
	assert.ErrorAs(t, err, &stateErr)
	assert.True(t, inst.PaidAmount.Equal(dec(t, "500.00")))
}
