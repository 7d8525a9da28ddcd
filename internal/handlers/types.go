package handlers

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
)

// RequestValidator adapts go-playground/validator to Echo's Validator hook
type RequestValidator struct {
	validate *validator.Validate
}

func NewRequestValidator() *RequestValidator {
	return &RequestValidator{validate: validator.New()}
}

// Validate implements echo.Validator
func (v *RequestValidator) Validate(i interface{}) error {
	if err := v.validate.Struct(i); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return nil
}

// UploadVoucherRequest targets one specific installment
type UploadVoucherRequest struct {
	StudentID      uint   `form:"student_id" validate:"required"`
	DeclaredAmount string `form:"declared_amount" validate:"required"`
	PaymentMethod  string `form:"payment_method" validate:"required"`
	PaymentDate    string `form:"payment_date"`
}

// DistributePaymentRequest declares one payment to spread across an
// enrollment's outstanding installments
type DistributePaymentRequest struct {
	StudentID     uint   `form:"student_id" validate:"required"`
	Amount        string `form:"amount" validate:"required"`
	PaymentMethod string `form:"payment_method" validate:"required"`
	PaymentDate   string `form:"payment_date"`
}

// ReviewVoucherRequest carries the reviewer identity for verify/reject
type ReviewVoucherRequest struct {
	ReviewerID uint   `json:"reviewer_id" validate:"required"`
	Reason     string `json:"reason"`
}

// ReplaceVoucherRequest swaps the file and declared amount of a voucher
type ReplaceVoucherRequest struct {
	StudentID      uint   `form:"student_id" validate:"required"`
	DeclaredAmount string `form:"declared_amount" validate:"required"`
}

// ChargeCardRequest charges a saved card and allocates the settled amount
type ChargeCardRequest struct {
	StudentID       uint   `json:"student_id" validate:"required"`
	EnrollmentID    uint   `json:"enrollment_id" validate:"required"`
	PaymentMethodID uint   `json:"payment_method_id" validate:"required"`
	Amount          string `json:"amount" validate:"required"`
}

// EnrollRequest matriculates a student onto a payment plan
type EnrollRequest struct {
	StudentID     uint   `json:"student_id" validate:"required"`
	PaymentPlanID uint   `json:"payment_plan_id" validate:"required"`
	EnrollmentFee string `json:"enrollment_fee" validate:"required"`
}

// ChangePlanRequest migrates the student's active enrollment to a new plan
type ChangePlanRequest struct {
	StudentID uint `json:"student_id" validate:"required"`
	NewPlanID uint `json:"new_plan_id" validate:"required"`
}
