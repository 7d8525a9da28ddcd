package models

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// EnrollmentStatus represents the status of an enrollment
type EnrollmentStatus string

const (
	EnrollmentStatusActive    EnrollmentStatus = "active"
	EnrollmentStatusCancelled EnrollmentStatus = "cancelled"
)

// Enrollment is one student's active contract against one PaymentPlan.
// At most one active enrollment per student at a time.
type Enrollment struct {
	ID        uint           `gorm:"primarykey" json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`

	StudentID      uint             `gorm:"index" json:"student_id"`
	PaymentPlanID  uint             `gorm:"index" json:"payment_plan_id"`
	EnrollmentFee  decimal.Decimal  `gorm:"type:decimal(15,2)" json:"enrollment_fee"`
	EnrollmentDate time.Time        `json:"enrollment_date"`
	Status         EnrollmentStatus `gorm:"type:varchar(20);default:'active'" json:"status"`

	// LastPlanChangeAt feeds the plan-change cooldown policy.
	LastPlanChangeAt *time.Time `json:"last_plan_change_at"`

	// Relationships
	Student      Student       `gorm:"foreignKey:StudentID" json:"student,omitempty"`
	PaymentPlan  PaymentPlan   `gorm:"foreignKey:PaymentPlanID" json:"payment_plan,omitempty"`
	Installments []Installment `gorm:"foreignKey:EnrollmentID" json:"installments,omitempty"`
}
