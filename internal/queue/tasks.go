package queue

import (
	"encoding/json"

	"github.com/teller-next/internal/constants"

	"github.com/hibiken/asynq"
)

const (
	// TaskTransactionPayout 交易审批后的被动收益分佣任务
	TaskTransactionPayout = constants.TaskTransactionPayout
	// TaskTransactionStatusEmail 交易状态变更邮件通知任务
	TaskTransactionStatusEmail = constants.TaskTransactionStatusEmail
)

// TransactionPayoutPayload 分佣任务载荷
type TransactionPayoutPayload struct {
	TransactionID uint `json:"transaction_id"`
}

// TransactionStatusEmailPayload 状态通知任务载荷
type TransactionStatusEmailPayload struct {
	TransactionID uint   `json:"transaction_id"`
	Status        string `json:"status"`
}

// NewTransactionPayoutTask 创建分佣任务
func NewTransactionPayoutTask(payload TransactionPayoutPayload) (*asynq.Task, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskTransactionPayout, body), nil
}

// NewTransactionStatusEmailTask 创建状态通知任务
func NewTransactionStatusEmailTask(payload TransactionStatusEmailPayload) (*asynq.Task, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskTransactionStatusEmail, body), nil
}
