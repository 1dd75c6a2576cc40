package service

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/teller-next/internal/config"
	"github.com/teller-next/internal/constants"
	"github.com/teller-next/internal/models"
	"github.com/teller-next/internal/repository"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
)

type captureEmailSender struct {
	to      string
	subject string
	body    string
	calls   int
}

func (s *captureEmailSender) Send(to, subject, body string) error {
	s.to = to
	s.subject = subject
	s.body = body
	s.calls++
	return nil
}

func setupNotificationServiceTest(t *testing.T, enabled bool) (*NotificationService, *captureEmailSender, *gorm.DB) {
	t.Helper()

	dsn := fmt.Sprintf("file:notification_service_%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite failed: %v", err)
	}
	if err := db.AutoMigrate(&models.User{}, &models.Transaction{}); err != nil {
		t.Fatalf("auto migrate failed: %v", err)
	}

	sender := &captureEmailSender{}
	svc := NewNotificationService(
		repository.NewUserRepository(db),
		repository.NewTransactionRepository(db),
		sender,
		config.EmailConfig{Enabled: enabled, From: "noreply@teller.local"},
	)
	return svc, sender, db
}

func TestSendTransactionStatusEmail(t *testing.T) {
	svc, sender, db := setupNotificationServiceTest(t, true)

	code := "M-6001"
	merchant := models.User{
		Email:        "merchant@example.com",
		Role:         constants.RoleRetailer,
		MerchantCode: &code,
	}
	if err := db.Create(&merchant).Error; err != nil {
		t.Fatalf("create merchant failed: %v", err)
	}
	txn := createPayoutTestTransaction(t, db, code, 10, 2)

	if err := svc.SendTransactionStatusEmail(txn.ID, constants.TransactionStatusApproved); err != nil {
		t.Fatalf("send failed: %v", err)
	}
	if sender.calls != 1 {
		t.Fatalf("expected 1 email, got %d", sender.calls)
	}
	if sender.to != merchant.Email {
		t.Fatalf("expected recipient %s, got %s", merchant.Email, sender.to)
	}
	if !strings.Contains(sender.body, code) || !strings.Contains(sender.body, "approved") {
		t.Fatalf("unexpected email body: %q", sender.body)
	}
}

func TestSendTransactionStatusEmailDisabled(t *testing.T) {
	svc, sender, db := setupNotificationServiceTest(t, false)

	txn := createPayoutTestTransaction(t, db, "M-6002", 10, 0)
	if err := svc.SendTransactionStatusEmail(txn.ID, constants.TransactionStatusApproved); err != nil {
		t.Fatalf("expected silent skip, got %v", err)
	}
	if sender.calls != 0 {
		t.Fatalf("expected no email when disabled, got %d", sender.calls)
	}
}

func TestSendTransactionStatusEmailNoReceiver(t *testing.T) {
	svc, sender, db := setupNotificationServiceTest(t, true)

	txn := createPayoutTestTransaction(t, db, "M-6003", 10, 0)
	if err := svc.SendTransactionStatusEmail(txn.ID, constants.TransactionStatusApproved); err != nil {
		t.Fatalf("expected silent skip for orphan merchant, got %v", err)
	}
	if sender.calls != 0 {
		t.Fatalf("expected no email without receiver, got %d", sender.calls)
	}
}
