package models

import (
	"time"

	"gorm.io/gorm"
)

// Student represents a student (or the paying guardian account) in the system
type Student struct {
	ID        uint           `gorm:"primarykey" json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`

	Name  string `gorm:"type:varchar(255)" json:"name"`
	Phone string `gorm:"type:varchar(50)" json:"phone"`
	Email string `gorm:"type:varchar(255);uniqueIndex" json:"email"`

	// Relationships
	Enrollments    []Enrollment    `gorm:"foreignKey:StudentID" json:"enrollments,omitempty"`
	PaymentMethods []PaymentMethod `gorm:"foreignKey:StudentID" json:"payment_methods,omitempty"`
}

// PaymentMethod is a saved tokenized card belonging to a student. Gateway
// specific fields stay opaque to the ledger.
type PaymentMethod struct {
	ID        uint           `gorm:"primarykey" json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`

	StudentID uint   `gorm:"index" json:"student_id"`
	CardToken string `gorm:"type:varchar(255)" json:"card_token"`
	CardBrand string `gorm:"type:varchar(50)" json:"card_brand"`
	LastFour  string `gorm:"type:varchar(4)" json:"last_four"`
	IsDefault bool   `gorm:"default:false" json:"is_default"`

	// Relationships
	Student Student `gorm:"foreignKey:StudentID" json:"student,omitempty"`
}
