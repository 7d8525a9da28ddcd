package services

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"matricula_app_echo/internal/models"
)

func TestMonthlyDueDates(t *testing.T) {
	start := time.Date(2026, 1, 15, 0, 0, 0, 0, time.UTC)

	dates := monthlyDueDates(start, 3)
	require.Len(t, dates, 3)
	assert.Equal(t, time.Date(2026, 2, 15, 0, 0, 0, 0, time.UTC), dates[0])
	assert.Equal(t, time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC), dates[1])
	assert.Equal(t, time.Date(2026, 4, 15, 0, 0, 0, 0, time.UTC), dates[2])
}

func TestMonthlyDueDatesCrossYear(t *testing.T) {
	start := time.Date(2026, 11, 10, 0, 0, 0, 0, time.UTC)

	dates := monthlyDueDates(start, 3)
	require.Len(t, dates, 3)
	assert.Equal(t, time.Date(2026, 12, 10, 0, 0, 0, 0, time.UTC), dates[0])
	assert.Equal(t, time.Date(2027, 1, 10, 0, 0, 0, 0, time.UTC), dates[1])
	assert.Equal(t, time.Date(2027, 2, 10, 0, 0, 0, 0, time.UTC), dates[2])
}

func TestBuildInstallmentSchedule(t *testing.T) {
	plan := &models.PaymentPlan{
		MonthlyAmount:     decimal.NewFromInt(500),
		InstallmentsCount: 10,
	}
	start := time.Date(2026, 1, 15, 0, 0, 0, 0, time.UTC)

	installments := buildInstallmentSchedule(42, plan, 1, 10, start)
	require.Len(t, installments, 10)

	for i, inst := range installments {
		assert.Equal(t, uint(42), inst.EnrollmentID)
		assert.Equal(t, i+1, inst.InstallmentNumber)
		assert.True(t, inst.Amount.Equal(decimal.NewFromInt(500)))
		assert.True(t, inst.LateFee.IsZero())
		assert.True(t, inst.PaidAmount.IsZero())
		assert.Equal(t, models.InstallmentStatusPending, inst.Status)
		if i > 0 {
			assert.True(t, inst.DueDate.After(installments[i-1].DueDate),
				"due dates must be strictly ascending")
		}
	}
}

// Backfill schedules during a plan change start numbering after the kept
// installments.
func TestBuildInstallmentScheduleOffsetNumbering(t *testing.T) {
	plan := &models.PaymentPlan{
		MonthlyAmount:     decimal.NewFromInt(250),
		InstallmentsCount: 20,
	}
	start := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)

	installments := buildInstallmentSchedule(42, plan, 6, 4, start)
	require.Len(t, installments, 4)
	assert.Equal(t, 6, installments[0].InstallmentNumber)
	assert.Equal(t, 9, installments[3].InstallmentNumber)
	for _, inst := range installments {
		assert.True(t, inst.Amount.Equal(decimal.NewFromInt(250)))
	}
}
