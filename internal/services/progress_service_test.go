package services

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"matricula_app_echo/internal/models"
)

func TestComputeProgress(t *testing.T) {
	enrollment := &models.Enrollment{
		ID:            1,
		StudentID:     1,
		EnrollmentFee: decimal.NewFromInt(300),
	}

	installments := makeInstallments(t, "500.00", "500.00", "500.00", "500.00")
	installments[0].PaidAmount = dec(t, "500.00")
	installments[0].Status = models.InstallmentStatusVerified
	installments[1].PaidAmount = dec(t, "200.00")

	progress := ComputeProgress(enrollment, installments)

	// 300 fee + 500 verified + 200 partial
	assert.True(t, progress.TotalPaid.Equal(dec(t, "1000.00")), "TotalPaid = %s", progress.TotalPaid)
	// 300 remaining on #2 plus 500 each on #3 and #4
	assert.True(t, progress.TotalPending.Equal(dec(t, "1300.00")), "TotalPending = %s", progress.TotalPending)
	// 300 fee + 4 x 500
	assert.True(t, progress.TotalObligation.Equal(dec(t, "2300.00")), "TotalObligation = %s", progress.TotalObligation)

	want := dec(t, "1000.00").Div(dec(t, "2300.00")).Mul(decimal.NewFromInt(100))
	assert.True(t, progress.PaymentProgress.Equal(want), "PaymentProgress = %s", progress.PaymentProgress)
	assert.Equal(t, want.StringFixed(2), progress.DisplayProgress)
}

func TestComputeProgressIgnoresCancelled(t *testing.T) {
	enrollment := &models.Enrollment{ID: 1, EnrollmentFee: decimal.Zero}

	installments := makeInstallments(t, "500.00", "500.00")
	installments[1].Status = models.InstallmentStatusCancelled
	installments[1].PaidAmount = dec(t, "100.00")

	progress := ComputeProgress(enrollment, installments)
	assert.True(t, progress.TotalPaid.IsZero())
	assert.True(t, progress.TotalPending.Equal(dec(t, "500.00")))
	assert.True(t, progress.TotalObligation.Equal(dec(t, "500.00")))
}

func TestComputeProgressIncludesLateFees(t *testing.T) {
	enrollment := &models.Enrollment{ID: 1, EnrollmentFee: decimal.Zero}

	installments := makeInstallments(t, "500.00")
	installments[0].LateFee = dec(t, "50.00")
	installments[0].Status = models.InstallmentStatusOverdue

	progress := ComputeProgress(enrollment, installments)
	assert.True(t, progress.TotalPending.Equal(dec(t, "550.00")))
	assert.True(t, progress.TotalObligation.Equal(dec(t, "550.00")))
}

func TestComputeProgressFullyPaid(t *testing.T) {
	enrollment := &models.Enrollment{ID: 1, EnrollmentFee: decimal.NewFromInt(100)}

	installments := makeInstallments(t, "500.00")
	installments[0].PaidAmount = dec(t, "500.00")
	installments[0].Status = models.InstallmentStatusVerified

	progress := ComputeProgress(enrollment, installments)
	assert.True(t, progress.PaymentProgress.Equal(decimal.NewFromInt(100)))
	assert.Equal(t, "100.00", progress.DisplayProgress)
	assert.True(t, progress.TotalPending.IsZero())
}

func TestComputeProgressEmptySchedule(t *testing.T) {
	enrollment := &models.Enrollment{ID: 1, EnrollmentFee: decimal.Zero}

	progress := ComputeProgress(enrollment, nil)
	assert.True(t, progress.PaymentProgress.IsZero())
	assert.Equal(t, "0.00", progress.DisplayProgress)
}
