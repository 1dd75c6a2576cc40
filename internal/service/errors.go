package service

import "errors"

// 服务层哨兵错误，处理器用 errors.Is 匹配。
var (
	ErrNotFound          = errors.New("record not found")
	ErrInvalidStatus     = errors.New("transaction status invalid")
	ErrEmptyBatch        = errors.New("batch id list is empty")
	ErrInvalidBatchSize  = errors.New("batch size invalid")
	ErrPayoutCommit      = errors.New("payout commit failed")
	ErrStatusUpdate      = errors.New("transaction status update failed")
	ErrMerchantNotLinked = errors.New("transaction merchant has no owning user")
)
