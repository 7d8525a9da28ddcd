package models

import (
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func TestVoucherApprove(t *testing.T) {
	now := time.Date(2026, 3, 3, 0, 0, 0, 0, time.UTC)

	v := &InstallmentVoucher{Status: VoucherStatusPending}
	if err := v.Approve(7, now); err != nil {
		t.Fatalf("approve: %v", err)
	}
	if v.Status != VoucherStatusApproved {
		t.Errorf("Status = %s; want approved", v.Status)
	}
	if v.ReviewedBy == nil || *v.ReviewedBy != 7 {
		t.Errorf("ReviewedBy = %v; want 7", v.ReviewedBy)
	}
	if v.ReviewedAt == nil || !v.ReviewedAt.Equal(now) {
		t.Errorf("ReviewedAt = %v; want %v", v.ReviewedAt, now)
	}

	// Double approval is a state violation
	if err := v.Approve(7, now); err == nil {
		t.Error("expected error approving an approved voucher")
	}
}

func TestVoucherReject(t *testing.T) {
	now := time.Date(2026, 3, 3, 0, 0, 0, 0, time.UTC)

	t.Run("requires a reason", func(t *testing.T) {
		v := &InstallmentVoucher{Status: VoucherStatusPending}
		if err := v.Reject(7, "   ", now); !errors.Is(err, ErrEmptyRejectionReason) {
			t.Errorf("err = %v; want ErrEmptyRejectionReason", err)
		}
		if v.Status != VoucherStatusPending {
			t.Errorf("Status = %s; want pending", v.Status)
		}
	})

	t.Run("records reason and reviewer", func(t *testing.T) {
		v := &InstallmentVoucher{Status: VoucherStatusPending}
		if err := v.Reject(7, "blurry photo", now); err != nil {
			t.Fatalf("reject: %v", err)
		}
		if v.Status != VoucherStatusRejected {
			t.Errorf("Status = %s; want rejected", v.Status)
		}
		if v.RejectionReason != "blurry photo" {
			t.Errorf("RejectionReason = %q", v.RejectionReason)
		}
	})

	t.Run("approved voucher cannot be rejected", func(t *testing.T) {
		v := &InstallmentVoucher{Status: VoucherStatusApproved}
		if err := v.Reject(7, "too late", now); err == nil {
			t.Error("expected error")
		}
	})
}

func TestVoucherResetForReplacement(t *testing.T) {
	now := time.Date(2026, 3, 5, 0, 0, 0, 0, time.UTC)
	reviewer := uint(7)
	reviewedAt := now.AddDate(0, 0, -1)

	t.Run("rejected voucher returns to pending with cleared review", func(t *testing.T) {
		v := &InstallmentVoucher{
			Status:          VoucherStatusRejected,
			DeclaredAmount:  decimal.NewFromInt(200),
			FilePath:        "old.jpg",
			RejectionReason: "blurry photo",
			ReviewedBy:      &reviewer,
			ReviewedAt:      &reviewedAt,
		}
		if err := v.ResetForReplacement(decimal.NewFromInt(500), "new.jpg", now); err != nil {
			t.Fatalf("reset: %v", err)
		}
		if v.Status != VoucherStatusPending {
			t.Errorf("Status = %s; want pending", v.Status)
		}
		if !v.DeclaredAmount.Equal(decimal.NewFromInt(500)) {
			t.Errorf("DeclaredAmount = %s; want 500", v.DeclaredAmount)
		}
		if v.FilePath != "new.jpg" {
			t.Errorf("FilePath = %q; want new.jpg", v.FilePath)
		}
		if v.RejectionReason != "" || v.ReviewedBy != nil || v.ReviewedAt != nil {
			t.Error("review fields not cleared")
		}
	})

	t.Run("approved voucher is immutable", func(t *testing.T) {
		v := &InstallmentVoucher{Status: VoucherStatusApproved}
		if err := v.ResetForReplacement(decimal.NewFromInt(500), "new.jpg", now); err == nil {
			t.Error("expected error")
		}
	})
}
