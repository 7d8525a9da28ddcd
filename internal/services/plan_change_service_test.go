package services

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"matricula_app_echo/internal/models"
)

func keptInstallment(number int, due time.Time) *models.Installment {
	return &models.Installment{
		ID:                uint(number),
		EnrollmentID:      1,
		InstallmentNumber: number,
		DueDate:           due,
		Amount:            decimal.NewFromInt(500),
		Status:            models.InstallmentStatusVerified,
	}
}

func TestOrderKeptInstallments(t *testing.T) {
	base := time.Date(2026, 1, 15, 0, 0, 0, 0, time.UTC)

	t.Run("closes gaps left by cancelled installments", func(t *testing.T) {
		// Installments 2 and 5 survived a plan change
		kept := []*models.Installment{
			keptInstallment(2, base.AddDate(0, 1, 0)),
			keptInstallment(5, base.AddDate(0, 4, 0)),
		}

		changed := orderKeptInstallments(kept)
		require.Len(t, changed, 2)
		assert.Equal(t, 1, kept[0].InstallmentNumber)
		assert.Equal(t, 2, kept[1].InstallmentNumber)
	})

	t.Run("already contiguous set is untouched", func(t *testing.T) {
		kept := []*models.Installment{
			keptInstallment(1, base),
			keptInstallment(2, base.AddDate(0, 1, 0)),
			keptInstallment(3, base.AddDate(0, 2, 0)),
		}

		changed := orderKeptInstallments(kept)
		assert.Empty(t, changed)
	})

	t.Run("orders by due date before renumbering", func(t *testing.T) {
		kept := []*models.Installment{
			keptInstallment(4, base.AddDate(0, 3, 0)),
			keptInstallment(1, base),
		}

		changed := orderKeptInstallments(kept)
		require.Len(t, changed, 1)
		assert.Equal(t, uint(1), kept[0].ID)
		assert.Equal(t, 1, kept[0].InstallmentNumber)
		assert.Equal(t, uint(4), kept[1].ID)
		assert.Equal(t, 2, kept[1].InstallmentNumber)
	})

	t.Run("numbers never move up", func(t *testing.T) {
		kept := []*models.Installment{
			keptInstallment(3, base),
			keptInstallment(7, base.AddDate(0, 1, 0)),
			keptInstallment(9, base.AddDate(0, 2, 0)),
		}
		before := []int{3, 7, 9}

		orderKeptInstallments(kept)
		for i, inst := range kept {
			assert.LessOrEqual(t, inst.InstallmentNumber, before[i])
		}
	})
}
