package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"

	"matricula_app_echo/internal/services"
)

// PaymentHandler exposes the reconciliation core's payment operations as a
// thin JSON surface. Actor identities are explicit request fields.
type PaymentHandler struct {
	ledger    *services.LedgerService
	allocator *services.AllocatorService
	payments  *services.PaymentService
}

func NewPaymentHandler(ledger *services.LedgerService, allocator *services.AllocatorService, payments *services.PaymentService) *PaymentHandler {
	return &PaymentHandler{ledger: ledger, allocator: allocator, payments: payments}
}

func parseAmount(raw string) (decimal.Decimal, error) {
	amount, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, echo.NewHTTPError(http.StatusBadRequest, "invalid amount")
	}
	return amount, nil
}

func parsePaymentDate(raw string) time.Time {
	if raw == "" {
		return time.Now()
	}
	parsed, err := time.Parse("2006-01-02", raw)
	if err != nil {
		return time.Now()
	}
	return parsed
}

func parseIDParam(c echo.Context, name string) (uint, error) {
	id, err := strconv.ParseUint(c.Param(name), 10, 32)
	if err != nil {
		return 0, echo.NewHTTPError(http.StatusBadRequest, "invalid "+name)
	}
	return uint(id), nil
}

// UploadVoucher handles POST /installments/:id/vouchers (multipart)
func (h *PaymentHandler) UploadVoucher(c echo.Context) error {
	installmentID, err := parseIDParam(c, "id")
	if err != nil {
		return err
	}

	var req UploadVoucherRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}
	declared, err := parseAmount(req.DeclaredAmount)
	if err != nil {
		return err
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "voucher file is required")
	}
	file, err := fileHeader.Open()
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "could not read voucher file")
	}
	defer file.Close()

	result, err := h.ledger.UploadVoucher(c.Request().Context(), installmentID, declared, services.PaymentDeclaration{
		UploadedBy:    req.StudentID,
		PaymentMethod: req.PaymentMethod,
		PaymentDate:   parsePaymentDate(req.PaymentDate),
	}, file, fileHeader.Filename)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, result)
}

// DistributePayment handles POST /enrollments/:id/payments (multipart)
func (h *PaymentHandler) DistributePayment(c echo.Context) error {
	enrollmentID, err := parseIDParam(c, "id")
	if err != nil {
		return err
	}

	var req DistributePaymentRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}
	amount, err := parseAmount(req.Amount)
	if err != nil {
		return err
	}

	decl := services.PaymentDeclaration{
		UploadedBy:    req.StudentID,
		PaymentMethod: req.PaymentMethod,
		PaymentDate:   parsePaymentDate(req.PaymentDate),
	}

	// The shared artifact is optional for bank-transfer declarations
	if fileHeader, err := c.FormFile("file"); err == nil {
		file, err := fileHeader.Open()
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "could not read voucher file")
		}
		defer file.Close()
		ref, err := h.ledger.StoreArtifact(fileHeader.Filename, file)
		if err != nil {
			return err
		}
		decl.FilePath = ref
	}

	result, err := h.allocator.Allocate(c.Request().Context(), enrollmentID, amount, decl)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, result)
}

// VerifyVoucher handles POST /vouchers/:id/verify
func (h *PaymentHandler) VerifyVoucher(c echo.Context) error {
	voucherID, err := parseIDParam(c, "id")
	if err != nil {
		return err
	}
	var req ReviewVoucherRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	if err := h.ledger.VerifyVoucher(c.Request().Context(), voucherID, req.ReviewerID); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]string{"status": "verified"})
}

// RejectVoucher handles POST /vouchers/:id/reject
func (h *PaymentHandler) RejectVoucher(c echo.Context) error {
	voucherID, err := parseIDParam(c, "id")
	if err != nil {
		return err
	}
	var req ReviewVoucherRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	if err := h.ledger.RejectVoucher(c.Request().Context(), voucherID, req.ReviewerID, req.Reason); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]string{"status": "rejected"})
}

// ReplaceVoucher handles POST /vouchers/:id/replace (multipart)
func (h *PaymentHandler) ReplaceVoucher(c echo.Context) error {
	voucherID, err := parseIDParam(c, "id")
	if err != nil {
		return err
	}

	var req ReplaceVoucherRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}
	declared, err := parseAmount(req.DeclaredAmount)
	if err != nil {
		return err
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "replacement file is required")
	}
	file, err := fileHeader.Open()
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "could not read replacement file")
	}
	defer file.Close()

	if err := h.ledger.ReplaceVoucher(c.Request().Context(), voucherID, req.StudentID, declared, file); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]string{"status": "replaced"})
}

// DownloadVoucherFile handles GET /vouchers/:id/file
func (h *PaymentHandler) DownloadVoucherFile(c echo.Context) error {
	voucherID, err := parseIDParam(c, "id")
	if err != nil {
		return err
	}

	file, err := h.ledger.OpenVoucherFile(c.Request().Context(), voucherID)
	if err != nil {
		return err
	}
	defer file.Close()

	return c.Stream(http.StatusOK, "application/octet-stream", file)
}

// ChargeCard handles POST /payments/card
func (h *PaymentHandler) ChargeCard(c echo.Context) error {
	var req ChargeCardRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}
	amount, err := parseAmount(req.Amount)
	if err != nil {
		return err
	}

	result, err := h.payments.ChargeCard(c.Request().Context(), req.StudentID, req.EnrollmentID, req.PaymentMethodID, amount)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, result)
}
