package service

import (
	"fmt"
	"strings"

	"github.com/teller-next/internal/config"
	"github.com/teller-next/internal/logger"
	"github.com/teller-next/internal/models"
	"github.com/teller-next/internal/repository"
)

// EmailSender 邮件投递接口，具体传输由外部实现注入
type EmailSender interface {
	Send(to, subject, body string) error
}

// LogEmailSender 默认投递实现：只落日志，不发真实邮件
type LogEmailSender struct{}

// Send 记录邮件内容
func (LogEmailSender) Send(to, subject, body string) error {
	logger.Infow("email_logged",
		"to", to,
		"subject", subject,
		"body_len", len(body),
	)
	return nil
}

// NotificationService 交易状态变更通知服务
type NotificationService struct {
	userRepo repository.UserRepository
	txnRepo  repository.TransactionRepository
	sender   EmailSender
	cfg      config.EmailConfig
}

// NewNotificationService 创建通知服务
func NewNotificationService(
	userRepo repository.UserRepository,
	txnRepo repository.TransactionRepository,
	sender EmailSender,
	cfg config.EmailConfig,
) *NotificationService {
	if sender == nil {
		sender = LogEmailSender{}
	}
	return &NotificationService{
		userRepo: userRepo,
		txnRepo:  txnRepo,
		sender:   sender,
		cfg:      cfg,
	}
}

// SendTransactionStatusEmail 向交易所属商户发送状态变更通知。
// 收件人缺失或通知关闭时静默跳过。
func (s *NotificationService) SendTransactionStatusEmail(transactionID uint, status string) error {
	if !s.cfg.Enabled {
		return nil
	}
	txn, err := s.txnRepo.GetByID(transactionID)
	if err != nil {
		return err
	}
	if txn == nil {
		return ErrNotFound
	}
	merchant, err := s.userRepo.GetByMerchantCode(txn.MerchantCode)
	if err != nil {
		return err
	}
	if merchant == nil || strings.TrimSpace(merchant.Email) == "" {
		logger.Debugw("status_email_skip_no_receiver",
			"transaction_id", transactionID,
			"merchant_code", txn.MerchantCode,
		)
		return nil
	}

	subject := fmt.Sprintf("Transaction #%d %s", txn.ID, strings.TrimSpace(status))
	body := buildStatusEmailBody(txn, status)
	return s.sender.Send(merchant.Email, subject, body)
}

func buildStatusEmailBody(txn *models.Transaction, status string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Transaction #%d for merchant %s is now %s.\n", txn.ID, txn.MerchantCode, status)
	fmt.Fprintf(&b, "Total transactions: %d (countable: %d)\n", txn.TotalCount(), txn.CountableCount())
	fmt.Fprintf(&b, "Withdrawals: %d, Balance inquiries: %d, Transfers: %d, Bill payments: %d, Cash-in: %d\n",
		txn.WithdrawalCount, txn.BalanceInquiryCount, txn.FundTransferCount, txn.BillPaymentCount, txn.CashInCount)
	return b.String()
}
