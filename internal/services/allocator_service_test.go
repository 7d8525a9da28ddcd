package services

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"matricula_app_echo/internal/models"
)

func dec(t *testing.T, s string) decimal.Decimal {
	t.Helper()
	d, err := decimal.NewFromString(s)
	require.NoError(t, err)
	return d
}

func makeInstallments(t *testing.T, amounts ...string) []*models.Installment {
	t.Helper()
	installments := make([]*models.Installment, 0, len(amounts))
	base := time.Date(2026, 1, 15, 0, 0, 0, 0, time.UTC)
	for i, amount := range amounts {
		installments = append(installments, &models.Installment{
			ID:                uint(i + 1),
			EnrollmentID:      1,
			InstallmentNumber: i + 1,
			DueDate:           base.AddDate(0, i, 0),
			Amount:            dec(t, amount),
			LateFee:           decimal.Zero,
			PaidAmount:        decimal.Zero,
			Status:            models.InstallmentStatusPending,
		})
	}
	return installments
}

func TestDistributePaymentOldestFirst(t *testing.T) {
	now := time.Date(2026, 1, 20, 0, 0, 0, 0, time.UTC)
	installments := makeInstallments(t, "500.00", "500.00", "500.00")

	lines, remainder, err := distributePayment(installments, dec(t, "1200.00"), 5, decimal.Zero, now)
	require.NoError(t, err)

	require.Len(t, lines, 3)
	assert.True(t, remainder.IsZero())

	assert.Equal(t, uint(1), lines[0].InstallmentID)
	assert.True(t, lines[0].AmountApplied.Equal(dec(t, "500.00")))
	assert.True(t, lines[0].Completed)

	assert.Equal(t, uint(2), lines[1].InstallmentID)
	assert.True(t, lines[1].AmountApplied.Equal(dec(t, "500.00")))
	assert.True(t, lines[1].Completed)

	assert.Equal(t, uint(3), lines[2].InstallmentID)
	assert.True(t, lines[2].AmountApplied.Equal(dec(t, "200.00")))
	assert.False(t, lines[2].Completed)
	assert.True(t, lines[2].Remaining.Equal(dec(t, "300.00")))

	assert.Equal(t, models.InstallmentStatusPaid, installments[0].Status)
	assert.Equal(t, models.InstallmentStatusPaid, installments[1].Status)
	assert.Equal(t, models.InstallmentStatusPending, installments[2].Status)
}

func TestDistributePaymentExactCoverage(t *testing.T) {
	now := time.Date(2026, 1, 20, 0, 0, 0, 0, time.UTC)
	installments := makeInstallments(t, "500.00", "500.00")

	lines, remainder, err := distributePayment(installments, dec(t, "1000.00"), 5, decimal.Zero, now)
	require.NoError(t, err)
	require.Len(t, lines, 2)
	assert.True(t, remainder.IsZero())
	for _, line := range lines {
		assert.True(t, line.Completed)
	}
}

func TestDistributePaymentSkipsCoveredInstallments(t *testing.T) {
	now := time.Date(2026, 1, 20, 0, 0, 0, 0, time.UTC)
	installments := makeInstallments(t, "500.00", "500.00")
	installments[0].PaidAmount = dec(t, "500.00")
	installments[0].Status = models.InstallmentStatusPaid

	lines, remainder, err := distributePayment(installments, dec(t, "300.00"), 5, decimal.Zero, now)
	require.NoError(t, err)
	require.Len(t, lines, 1)
	assert.True(t, remainder.IsZero())
	assert.Equal(t, uint(2), lines[0].InstallmentID)
	assert.True(t, lines[0].AmountApplied.Equal(dec(t, "300.00")))
}

// Late fees accrued by "now" must be collected before money moves, so an
// overdue first installment absorbs its fee ahead of the second installment.
func TestDistributePaymentRecomputesLateFees(t *testing.T) {
	now := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	installments := makeInstallments(t, "500.00", "500.00")
	// First installment due Jan 15, well past a 5-day grace window

	lines, remainder, err := distributePayment(installments, dec(t, "600.00"), 5, dec(t, "50.00"), now)
	require.NoError(t, err)
	require.Len(t, lines, 2)
	assert.True(t, remainder.IsZero())

	assert.True(t, lines[0].AmountApplied.Equal(dec(t, "550.00")),
		"first line should absorb base amount plus late fee, got %s", lines[0].AmountApplied)
	assert.True(t, lines[0].Completed)
	assert.True(t, lines[1].AmountApplied.Equal(dec(t, "50.00")))
	assert.False(t, lines[1].Completed)
}

func TestDistributePaymentLeftoverRemainder(t *testing.T) {
	now := time.Date(2026, 1, 20, 0, 0, 0, 0, time.UTC)
	installments := makeInstallments(t, "500.00")

	lines, remainder, err := distributePayment(installments, dec(t, "800.00"), 5, decimal.Zero, now)
	require.NoError(t, err)
	require.Len(t, lines, 1)
	assert.True(t, remainder.Equal(dec(t, "300.00")))
}

func TestCheckPendingBalance(t *testing.T) {
	t.Run("within balance passes", func(t *testing.T) {
		installments := makeInstallments(t, "500.00", "500.00")
		assert.NoError(t, checkPendingBalance(dec(t, "1000.00"), installments))
	})

	t.Run("over-declared amount is rejected with figures", func(t *testing.T) {
		installments := makeInstallments(t, "500.00", "500.00")
		err := checkPendingBalance(dec(t, "1200.00"), installments)
		require.Error(t, err)

		var exceedsErr *models.ExceedsPendingBalanceError
		require.ErrorAs(t, err, &exceedsErr)
		assert.True(t, exceedsErr.Declared.Equal(dec(t, "1200.00")))
		assert.True(t, exceedsErr.Pending.Equal(dec(t, "1000.00")))
	})

	t.Run("partial money already applied shrinks the ceiling", func(t *testing.T) {
		installments := makeInstallments(t, "500.00", "500.00")
		installments[0].PaidAmount = dec(t, "300.00")

		require.NoError(t, checkPendingBalance(dec(t, "700.00"), installments))
		assert.Error(t, checkPendingBalance(dec(t, "700.01"), installments))
	})

	t.Run("overdue late fee counts toward the ceiling", func(t *testing.T) {
		installments := makeInstallments(t, "500.00")
		installments[0].Status = models.InstallmentStatusOverdue
		installments[0].LateFee = dec(t, "50.00")

		assert.NoError(t, checkPendingBalance(dec(t, "550.00"), installments))
	})

	t.Run("paid installments are excluded", func(t *testing.T) {
		// An optimistically paid installment may still carry an open balance,
		// but it does not raise the declarable ceiling
		installments := makeInstallments(t, "500.00", "500.00")
		installments[0].PaidAmount = dec(t, "200.00")
		installments[0].Status = models.InstallmentStatusPaid

		err := checkPendingBalance(dec(t, "600.00"), installments)
		require.Error(t, err)

		var exceedsErr *models.ExceedsPendingBalanceError
		require.ErrorAs(t, err, &exceedsErr)
		assert.True(t, exceedsErr.Pending.Equal(dec(t, "500.00")))
	})
}

func TestDistributePaymentEmptySet(t *testing.T) {
	now := time.Date(2026, 1, 20, 0, 0, 0, 0, time.UTC)

	lines, remainder, err := distributePayment(nil, dec(t, "100.00"), 5, decimal.Zero, now)
	require.NoError(t, err)
	assert.Empty(t, lines)
	assert.True(t, remainder.Equal(dec(t, "100.00")))
}
