package services

import (
	"context"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"firebase.google.com/go/v4/messaging"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"matricula_app_echo/internal/models"
)

// VoucherEventKind labels the staff-facing payment events
type VoucherEventKind string

const (
	VoucherEventUploaded VoucherEventKind = "voucher_uploaded"
	VoucherEventReplaced VoucherEventKind = "voucher_replaced"
)

// VoucherNotificationTaskName is the worker task that dispatches these events
const VoucherNotificationTaskName = "send_voucher_notification"

// VoucherEvent is the fire-and-forget payload consumed by the staff
// notification channels
type VoucherEvent struct {
	Kind          VoucherEventKind `json:"kind"`
	EnrollmentID  uint             `json:"enrollment_id"`
	InstallmentID uint             `json:"installment_id,omitempty"`
	BatchID       string           `json:"batch_id,omitempty"`
	Amount        decimal.Decimal  `json:"amount"`
	UploadedBy    uint             `json:"uploaded_by"`
}

// NotificationService pushes voucher events to staff over email, WhatsApp
// and FCM. Everything here is best-effort: a notification failure never
// rolls back a payment.
type NotificationService struct {
	db    *gorm.DB
	email *EmailService
	waha  *WahaService
	fcm   *messaging.Client

	staffEmails []string
	staffChatID string
	fcmTopic    string
}

func NewNotificationService(db *gorm.DB, email *EmailService, waha *WahaService, fcm *messaging.Client) *NotificationService {
	var staffEmails []string
	for _, addr := range strings.Split(os.Getenv("STAFF_NOTIFICATION_EMAILS"), ",") {
		if addr = strings.TrimSpace(addr); addr != "" {
			staffEmails = append(staffEmails, addr)
		}
	}
	topic := os.Getenv("FCM_STAFF_TOPIC")
	if topic == "" {
		topic = "staff-payments"
	}
	return &NotificationService{
		db:          db,
		email:       email,
		waha:        waha,
		fcm:         fcm,
		staffEmails: staffEmails,
		staffChatID: os.Getenv("STAFF_WHATSAPP_CHAT_ID"),
		fcmTopic:    topic,
	}
}

// EnqueueVoucherEvent schedules the event for the worker to dispatch. Called
// after the payment transaction commits; a scheduling failure is only logged.
func (n *NotificationService) EnqueueVoucherEvent(ctx context.Context, evt VoucherEvent) {
	if n == nil || n.db == nil {
		return
	}
	task := models.ScheduledTask{
		TaskName: VoucherNotificationTaskName,
		Arguments: map[string]interface{}{
			"kind":           string(evt.Kind),
			"enrollment_id":  evt.EnrollmentID,
			"installment_id": evt.InstallmentID,
			"batch_id":       evt.BatchID,
			"amount":         evt.Amount.StringFixed(2),
			"uploaded_by":    evt.UploadedBy,
		},
		Due:        time.Now(),
		Status:     models.ScheduledTaskStatusActive,
		TaskType:   models.ScheduledTaskTypeOneTime,
		MaxAttempt: 3,
	}
	if err := n.db.WithContext(ctx).Create(&task).Error; err != nil {
		log.Printf("Failed to enqueue %s for enrollment %d: %v", evt.Kind, evt.EnrollmentID, err)
	}
}

// Dispatch sends the event over every configured channel. Returns an error
// only when no channel succeeded, so the worker can retry.
func (n *NotificationService) Dispatch(ctx context.Context, evt VoucherEvent) error {
	subject, body := voucherEventMessage(evt)

	attempted := 0
	delivered := 0

	if n.email != nil && len(n.staffEmails) > 0 {
		attempted++
		if err := n.email.SendEmail(n.staffEmails, subject, body); err != nil {
			log.Printf("Voucher event email failed: %v", err)
		} else {
			delivered++
		}
	}

	if n.waha != nil && n.staffChatID != "" {
		attempted++
		if err := n.waha.SendMessage(n.staffChatID, subject+"\n"+body); err != nil {
			log.Printf("Voucher event WhatsApp failed: %v", err)
		} else {
			delivered++
		}
	}

	if n.fcm != nil {
		attempted++
		msg := &messaging.Message{
			Topic: n.fcmTopic,
			Notification: &messaging.Notification{
				Title: subject,
				Body:  body,
			},
			Data: map[string]string{
				"kind":          string(evt.Kind),
				"enrollment_id": fmt.Sprintf("%d", evt.EnrollmentID),
			},
		}
		if _, err := n.fcm.Send(ctx, msg); err != nil {
			log.Printf("Voucher event FCM push failed: %v", err)
		} else {
			delivered++
		}
	}

	if attempted > 0 && delivered == 0 {
		return fmt.Errorf("all notification channels failed for %s (enrollment %d)", evt.Kind, evt.EnrollmentID)
	}
	return nil
}

func voucherEventMessage(evt VoucherEvent) (subject, body string) {
	switch evt.Kind {
	case VoucherEventReplaced:
		subject = "Voucher replaced"
		body = fmt.Sprintf("Student %d replaced a payment voucher on enrollment %d (declared %s). Pending review.",
			evt.UploadedBy, evt.EnrollmentID, evt.Amount.StringFixed(2))
	default:
		subject = "Voucher uploaded"
		body = fmt.Sprintf("Student %d uploaded a payment voucher of %s on enrollment %d. Pending review.",
			evt.UploadedBy, evt.Amount.StringFixed(2), evt.EnrollmentID)
	}
	return subject, body
}
