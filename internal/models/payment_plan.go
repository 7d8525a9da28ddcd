package models

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// PaymentPlan is an immutable tuition plan template. The ledger only reads it.
type PaymentPlan struct {
	ID        uint           `gorm:"primarykey" json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`

	Name              string          `gorm:"type:varchar(255)" json:"name"`
	TotalAmount       decimal.Decimal `gorm:"type:decimal(15,2)" json:"total_amount"`
	InstallmentsCount int             `json:"installments_count"`
	MonthlyAmount     decimal.Decimal `gorm:"type:decimal(15,2)" json:"monthly_amount"`
	GracePeriodDays   int             `gorm:"default:5" json:"grace_period_days"`

	// LateFeeAmount is the flat surcharge assigned once per installment after
	// the grace window elapses.
	LateFeeAmount decimal.Decimal `gorm:"type:decimal(15,2)" json:"late_fee_amount"`

	IsActive bool `gorm:"default:true" json:"is_active"`

	// Relationships
	Enrollments []Enrollment `gorm:"foreignKey:PaymentPlanID" json:"enrollments,omitempty"`
}
