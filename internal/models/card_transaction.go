package models

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// PaymentGateway identifies the rail a payment came in on
type PaymentGateway string

const (
	PaymentGatewayMidtrans PaymentGateway = "midtrans"
	PaymentGatewayManual   PaymentGateway = "manual"
)

// CardTransaction records one gateway card charge. It is an input adapter
// record: the money it represents enters the ledger through the same voucher
// contract as a manual upload, but auto-approved.
type CardTransaction struct {
	ID        uint           `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`

	EnrollmentID    uint            `gorm:"index" json:"enrollment_id"`
	StudentID       uint            `gorm:"index" json:"student_id"`
	PaymentMethodID *uint           `json:"payment_method_id"`
	PaymentGateway  PaymentGateway  `gorm:"type:varchar(50);not null" json:"payment_gateway"`
	OrderID         string          `gorm:"type:varchar(100);index" json:"order_id"`
	Amount          decimal.Decimal `gorm:"type:decimal(15,2)" json:"amount"`
	GatewayStatus   string          `gorm:"type:varchar(50)" json:"gateway_status"`
	BatchID         string          `gorm:"type:varchar(36);index" json:"batch_id"`

	// Card brand, masked number and the raw gateway payload stay opaque here
	CardMetadata json.RawMessage `gorm:"type:jsonb" json:"card_metadata"`

	// Relationships
	Enrollment Enrollment `gorm:"foreignKey:EnrollmentID" json:"enrollment,omitempty"`
	Student    Student    `gorm:"foreignKey:StudentID" json:"student,omitempty"`
}
