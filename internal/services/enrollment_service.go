package services

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"
	"github.com/teambition/rrule-go"
	"gorm.io/gorm"

	"matricula_app_echo/internal/models"
)

// ErrActiveEnrollmentExists guards the one-active-enrollment-per-student rule
var ErrActiveEnrollmentExists = errors.New("student already has an active enrollment")

// EnrollmentService creates enrollments and their installment schedules when
// a prospect is matriculated.
type EnrollmentService struct {
	db *gorm.DB
}

func NewEnrollmentService(db *gorm.DB) *EnrollmentService {
	return &EnrollmentService{db: db}
}

// monthlyDueDates generates count due dates, one month apart, starting one
// month after the given start date
func monthlyDueDates(start time.Time, count int) []time.Time {
	rule, err := rrule.NewRRule(rrule.ROption{
		Freq:    rrule.MONTHLY,
		Count:   count,
		Dtstart: start.AddDate(0, 1, 0),
	})
	if err != nil {
		// Fallback: plain AddDate stepping
		dates := make([]time.Time, count)
		for i := range dates {
			dates[i] = start.AddDate(0, i+1, 0)
		}
		return dates
	}
	return rule.All()
}

// buildInstallmentSchedule produces the pending installments for a plan,
// numbered from firstNumber, due monthly from start
func buildInstallmentSchedule(enrollmentID uint, plan *models.PaymentPlan, firstNumber, count int, start time.Time) []models.Installment {
	dueDates := monthlyDueDates(start, count)
	installments := make([]models.Installment, 0, count)
	for i := 0; i < count; i++ {
		installments = append(installments, models.Installment{
			EnrollmentID:      enrollmentID,
			InstallmentNumber: firstNumber + i,
			DueDate:           dueDates[i],
			Amount:            plan.MonthlyAmount,
			LateFee:           decimal.Zero,
			PaidAmount:        decimal.Zero,
			Status:            models.InstallmentStatusPending,
		})
	}
	return installments
}

// Enroll creates an active enrollment for the student against the plan and
// generates its full installment schedule in one transaction.
func (s *EnrollmentService) Enroll(ctx context.Context, studentID, planID uint, enrollmentFee decimal.Decimal) (*models.Enrollment, error) {
	var plan models.PaymentPlan
	if err := s.db.WithContext(ctx).First(&plan, planID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, models.ErrNotFound
		}
		return nil, err
	}

	var enrollment models.Enrollment
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var active int64
		err := tx.Model(&models.Enrollment{}).
			Where("student_id = ? AND status = ?", studentID, models.EnrollmentStatusActive).
			Count(&active).Error
		if err != nil {
			return err
		}
		if active > 0 {
			return ErrActiveEnrollmentExists
		}

		now := time.Now()
		enrollment = models.Enrollment{
			StudentID:      studentID,
			PaymentPlanID:  plan.ID,
			EnrollmentFee:  enrollmentFee,
			EnrollmentDate: now,
			Status:         models.EnrollmentStatusActive,
		}
		if err := tx.Create(&enrollment).Error; err != nil {
			return err
		}

		installments := buildInstallmentSchedule(enrollment.ID, &plan, 1, plan.InstallmentsCount, now)
		return tx.Create(&installments).Error
	})
	if err != nil {
		return nil, err
	}
	return &enrollment, nil
}
