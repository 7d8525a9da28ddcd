package handlers

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"

	"matricula_app_echo/internal/services"
)

// EnrollmentHandler covers enrollment lifecycle, progress reporting and
// payment plan migration.
type EnrollmentHandler struct {
	enrollments *services.EnrollmentService
	progress    *services.ProgressService
	planChange  *services.PlanChangeService
}

func NewEnrollmentHandler(enrollments *services.EnrollmentService, progress *services.ProgressService, planChange *services.PlanChangeService) *EnrollmentHandler {
	return &EnrollmentHandler{enrollments: enrollments, progress: progress, planChange: planChange}
}

// Enroll handles POST /enrollments
func (h *EnrollmentHandler) Enroll(c echo.Context) error {
	var req EnrollRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}
	fee, err := decimal.NewFromString(req.EnrollmentFee)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid enrollment fee")
	}

	enrollment, err := h.enrollments.Enroll(c.Request().Context(), req.StudentID, req.PaymentPlanID, fee)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, enrollment)
}

// Progress handles GET /enrollments/:id/progress
func (h *EnrollmentHandler) Progress(c echo.Context) error {
	enrollmentID, err := parseIDParam(c, "id")
	if err != nil {
		return err
	}

	progress, err := h.progress.Progress(c.Request().Context(), enrollmentID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, progress)
}

// CanChangePlan handles GET /students/:id/plan-change-eligibility
func (h *EnrollmentHandler) CanChangePlan(c echo.Context) error {
	studentID, err := parseIDParam(c, "id")
	if err != nil {
		return err
	}

	eligibility, err := h.planChange.CanChangePlan(c.Request().Context(), studentID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, eligibility)
}

// ChangePlan handles POST /enrollments/change-plan
func (h *EnrollmentHandler) ChangePlan(c echo.Context) error {
	var req ChangePlanRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	result, err := h.planChange.ChangePlan(c.Request().Context(), req.StudentID, req.NewPlanID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, result)
}
