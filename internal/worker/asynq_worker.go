package worker

import (
	"context"
	"encoding/json"

	"github.com/teller-next/internal/logger"
	"github.com/teller-next/internal/provider"
	"github.com/teller-next/internal/queue"

	"github.com/hibiken/asynq"
)

// Consumer 异步任务消费者
type Consumer struct {
	*provider.Container
}

// NewConsumer 创建消费者
func NewConsumer(c *provider.Container) *Consumer {
	return &Consumer{
		Container: c,
	}
}

// Register 注册消费者
func (c *Consumer) Register(mux *asynq.ServeMux) {
	if c == nil || mux == nil {
		logger.Debugw("worker_register_skip_nil", "consumer_nil", c == nil, "mux_nil", mux == nil)
		return
	}
	mux.HandleFunc(queue.TaskTransactionPayout, c.handleTransactionPayout)
	mux.HandleFunc(queue.TaskTransactionStatusEmail, c.handleTransactionStatusEmail)
}

// handleTransactionPayout 消费分佣任务。
// 任务可能重投，入账幂等性由台账唯一索引保证。
func (c *Consumer) handleTransactionPayout(_ context.Context, task *asynq.Task) error {
	if c == nil || task == nil {
		return nil
	}
	var payload queue.TransactionPayoutPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		logger.Warnw("worker_payout_unmarshal_failed", "error", err)
		return err
	}
	if payload.TransactionID == 0 {
		logger.Debugw("worker_payout_skip_invalid_payload", "transaction_id", payload.TransactionID)
		return nil
	}
	txn, err := c.TransactionRepo.GetByID(payload.TransactionID)
	if err != nil {
		logger.Warnw("worker_payout_fetch_transaction_failed",
			"transaction_id", payload.TransactionID,
			"error", err,
		)
		return err
	}
	if txn == nil {
		logger.Debugw("worker_payout_skip_transaction_not_found", "transaction_id", payload.TransactionID)
		return nil
	}
	if c.PassiveIncomeService == nil {
		logger.Warnw("worker_payout_skip_service_nil", "transaction_id", txn.ID)
		return nil
	}
	if err := c.PassiveIncomeService.GeneratePayout(txn); err != nil {
		// 返回错误让 asynq 重试；重复入账安全
		logger.Errorw("worker_payout_failed",
			"transaction_id", txn.ID,
			"merchant_code", txn.MerchantCode,
			"error", err,
		)
		return err
	}
	return nil
}

// handleTransactionStatusEmail 消费状态通知任务
func (c *Consumer) handleTransactionStatusEmail(_ context.Context, task *asynq.Task) error {
	if c == nil || task == nil {
		return nil
	}
	var payload queue.TransactionStatusEmailPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		logger.Warnw("worker_status_email_unmarshal_failed", "error", err)
		return err
	}
	if payload.TransactionID == 0 {
		logger.Debugw("worker_status_email_skip_invalid_payload", "transaction_id", payload.TransactionID)
		return nil
	}
	if c.NotificationService == nil {
		logger.Warnw("worker_status_email_skip_service_nil", "transaction_id", payload.TransactionID)
		return nil
	}
	if err := c.NotificationService.SendTransactionStatusEmail(payload.TransactionID, payload.Status); err != nil {
		logger.Warnw("worker_status_email_failed",
			"transaction_id", payload.TransactionID,
			"status", payload.Status,
			"error", err,
		)
		// 通知失败不重投
		return nil
	}
	return nil
}
