package services

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"matricula_app_echo/internal/models"
)

// PaymentService is the card rail entry point: it charges the gateway and
// feeds the settled amount through the same allocation contract manual
// vouchers use, skipping staff verification.
type PaymentService struct {
	db        *gorm.DB
	gateway   *GatewayService
	allocator *AllocatorService
}

func NewPaymentService(db *gorm.DB, gateway *GatewayService, allocator *AllocatorService) *PaymentService {
	return &PaymentService{db: db, gateway: gateway, allocator: allocator}
}

// CardChargeResult reports one settled card payment and its allocation
type CardChargeResult struct {
	TransactionID uint              `json:"transaction_id"`
	OrderID       string            `json:"order_id"`
	Allocation    *AllocationResult `json:"allocation"`
}

// ChargeCard charges the student's saved card for the given amount and
// distributes the settled money across the enrollment's installments.
// Nothing is persisted when the gateway reports failure.
func (s *PaymentService) ChargeCard(ctx context.Context, studentID, enrollmentID, paymentMethodID uint, amount decimal.Decimal) (*CardChargeResult, error) {
	if amount.LessThanOrEqual(decimal.Zero) {
		return nil, models.ErrInvalidAmount
	}

	var method models.PaymentMethod
	if err := s.db.WithContext(ctx).First(&method, paymentMethodID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, models.ErrNotFound
		}
		return nil, err
	}
	if method.StudentID != studentID {
		return nil, &models.OwnershipViolationError{Resource: "payment method", ActorID: studentID}
	}

	orderID := fmt.Sprintf("enrollment-%d-%d", enrollmentID, time.Now().Unix())
	charge, err := s.gateway.ChargeCard(orderID, amount, method.CardToken)
	if err != nil {
		return nil, err
	}

	allocation, err := s.allocator.Allocate(ctx, enrollmentID, amount, PaymentDeclaration{
		UploadedBy:    studentID,
		PaymentMethod: "card",
		PaymentDate:   time.Now(),
		AutoApprove:   true,
	})
	if err != nil {
		// The charge settled but the ledger rejected it; void at the gateway
		// so the student is not charged for money that never landed
		if cancelErr := s.gateway.CancelTransaction(orderID); cancelErr != nil {
			log.Printf("CRITICAL: charge %s settled but allocation failed (%v) and cancel failed: %v", orderID, err, cancelErr)
		}
		return nil, err
	}

	transaction := models.CardTransaction{
		EnrollmentID:    enrollmentID,
		StudentID:       studentID,
		PaymentMethodID: &method.ID,
		PaymentGateway:  models.PaymentGatewayMidtrans,
		OrderID:         charge.OrderID,
		Amount:          amount,
		GatewayStatus:   charge.Status,
		BatchID:         allocation.BatchID,
		CardMetadata:    charge.RawResponse,
	}
	if err := s.db.WithContext(ctx).Create(&transaction).Error; err != nil {
		log.Printf("Failed to record card transaction %s: %v", orderID, err)
		return nil, err
	}

	return &CardChargeResult{
		TransactionID: transaction.ID,
		OrderID:       charge.OrderID,
		Allocation:    allocation,
	}, nil
}
