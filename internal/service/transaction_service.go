package service

import (
	"context"
	"strings"
	"time"

	"github.com/teller-next/internal/cache"
	"github.com/teller-next/internal/constants"
	"github.com/teller-next/internal/logger"
	"github.com/teller-next/internal/models"
	"github.com/teller-next/internal/queue"
	"github.com/teller-next/internal/repository"

	"github.com/google/uuid"
)

// TransactionService 交易审批与分佣编排服务
type TransactionService struct {
	txnRepo     repository.TransactionRepository
	incomeSvc   *PassiveIncomeService
	queueClient *queue.Client
	batchSize   int
}

// NewTransactionService 创建交易服务
func NewTransactionService(
	txnRepo repository.TransactionRepository,
	incomeSvc *PassiveIncomeService,
	queueClient *queue.Client,
	batchSize int,
) *TransactionService {
	if batchSize <= 0 {
		batchSize = constants.BatchDefaultSize
	}
	if batchSize > constants.BatchMaxSize {
		batchSize = constants.BatchMaxSize
	}
	return &TransactionService{
		txnRepo:     txnRepo,
		incomeSvc:   incomeSvc,
		queueClient: queueClient,
		batchSize:   batchSize,
	}
}

// StatusUpdateResult 单笔状态更新结果。
// 状态更新与分佣是两阶段：阶段一失败会返回错误，
// 阶段二（分佣）失败只体现在 PayoutOK 上，不影响阶段一。
type StatusUpdateResult struct {
	TransactionID  uint   `json:"transaction_id"`
	Status         string `json:"status"`
	StatusUpdateOK bool   `json:"status_update_ok"`
	PayoutOK       bool   `json:"payout_ok"`
	Message        string `json:"message"`
}

// BatchResult 批量状态更新结果（可续批）
type BatchResult struct {
	BatchID        string `json:"batch_id"`
	Status         string `json:"status"`
	ProcessedIDs   []uint `json:"processed_ids"`
	RemainingIDs   []uint `json:"remaining_ids"`
	IsComplete     bool   `json:"is_complete"`
	StatusUpdateOK bool   `json:"status_update_ok"`
	PayoutOK       bool   `json:"payout_ok"`
	Message        string `json:"message"`
}

// GetByID 按ID获取交易
func (s *TransactionService) GetByID(id uint) (*models.Transaction, error) {
	txn, err := s.txnRepo.GetByID(id)
	if err != nil {
		return nil, err
	}
	if txn == nil {
		return nil, ErrNotFound
	}
	return txn, nil
}

// List 分页查询交易
func (s *TransactionService) List(filter repository.TransactionListFilter) ([]models.Transaction, int64, error) {
	return s.txnRepo.List(filter)
}

// UpdateStatus 更新单笔交易状态，审批通过时触发分佣。
// 分佣失败被记录并吞掉：审批结果只取决于状态更新本身。
func (s *TransactionService) UpdateStatus(id uint, rawStatus string) (*StatusUpdateResult, error) {
	status, ok := normalizeStatus(rawStatus)
	if !ok {
		return nil, ErrInvalidStatus
	}
	txn, err := s.txnRepo.GetByID(id)
	if err != nil {
		return nil, err
	}
	if txn == nil {
		return nil, ErrNotFound
	}

	now := time.Now()
	updates := map[string]interface{}{
		"updated_at": now,
	}
	if column, stamped := statusTimestampColumn(status); stamped {
		updates[column] = now
	}
	if err := s.txnRepo.UpdateStatus(id, status, updates); err != nil {
		return nil, ErrStatusUpdate
	}

	result := &StatusUpdateResult{
		TransactionID:  id,
		Status:         status,
		StatusUpdateOK: true,
		PayoutOK:       true,
		Message:        "status updated",
	}
	if status == constants.TransactionStatusApproved {
		txn.Status = status
		txn.ApprovedDate = &now
		result.PayoutOK = s.triggerPayout(txn)
		if !result.PayoutOK {
			result.Message = "status updated, payout deferred"
		}
	}
	s.notifyStatusChange(id, status)
	return result, nil
}

// UpdateStatusBatch 批量状态更新编排：
// 取前 batchSize 个ID一次性批量更新状态并盖时间戳，
// 审批状态下对每笔交易串行触发分佣（单笔失败不阻断兄弟项），
// 返回已处理/剩余ID切片与完成标记，供调用方续批。
func (s *TransactionService) UpdateStatusBatch(ids []uint, rawStatus string, batchSize int) (*BatchResult, error) {
	if len(ids) == 0 {
		return nil, ErrEmptyBatch
	}
	status, ok := normalizeStatus(rawStatus)
	if !ok {
		return nil, ErrInvalidStatus
	}
	if batchSize < 0 {
		return nil, ErrInvalidBatchSize
	}
	if batchSize == 0 {
		batchSize = s.batchSize
	}
	if batchSize > constants.BatchMaxSize {
		batchSize = constants.BatchMaxSize
	}

	head := ids
	var remaining []uint
	if len(ids) > batchSize {
		head = ids[:batchSize]
		remaining = ids[batchSize:]
	}

	now := time.Now()
	updates := map[string]interface{}{
		"updated_at": now,
	}
	if column, stamped := statusTimestampColumn(status); stamped {
		updates[column] = now
	}
	affected, err := s.txnRepo.BatchUpdateStatus(head, status, updates)
	if err != nil {
		return nil, ErrStatusUpdate
	}

	result := &BatchResult{
		BatchID:        uuid.NewString(),
		Status:         status,
		ProcessedIDs:   head,
		RemainingIDs:   remaining,
		IsComplete:     len(remaining) == 0,
		StatusUpdateOK: true,
		PayoutOK:       true,
		Message:        "batch status updated",
	}
	logger.Infow("transaction_batch_status_updated",
		"batch_id", result.BatchID,
		"status", status,
		"requested", len(head),
		"affected", affected,
		"remaining", len(remaining),
	)

	if status == constants.TransactionStatusApproved {
		txns, fetchErr := s.txnRepo.GetByIDs(head)
		if fetchErr != nil {
			// 状态已更新成功，分佣留给带外补偿
			logger.Errorw("transaction_batch_payout_fetch_failed",
				"batch_id", result.BatchID,
				"error", fetchErr,
			)
			result.PayoutOK = false
		} else {
			for i := range txns {
				// 单笔分佣失败不阻断后续交易
				if ok := s.triggerPayout(&txns[i]); !ok {
					result.PayoutOK = false
				}
			}
		}
		if !result.PayoutOK {
			result.Message = "batch status updated, some payouts deferred"
		}
	}

	for _, id := range head {
		s.notifyStatusChange(id, status)
	}
	s.saveBatchProgress(result)
	return result, nil
}

// triggerPayout 触发一笔交易的分佣。
// 队列可用时走异步任务（台账唯一索引保证重投安全），
// 否则内联执行。任何失败都只记录，不向上抛。
func (s *TransactionService) triggerPayout(txn *models.Transaction) bool {
	if txn == nil {
		return false
	}
	if s.queueClient.Enabled() {
		err := s.queueClient.EnqueueTransactionPayout(queue.TransactionPayoutPayload{
			TransactionID: txn.ID,
		})
		if err == nil {
			return true
		}
		logger.Warnw("payout_enqueue_failed_fallback_inline",
			"transaction_id", txn.ID,
			"error", err,
		)
	}
	if s.incomeSvc == nil {
		return false
	}
	if err := s.incomeSvc.GeneratePayout(txn); err != nil {
		logger.Errorw("payout_commit_failed",
			"transaction_id", txn.ID,
			"merchant_code", txn.MerchantCode,
			"error", err,
		)
		return false
	}
	return true
}

// notifyStatusChange 推送状态变更通知任务（尽力而为）
func (s *TransactionService) notifyStatusChange(transactionID uint, status string) {
	if !s.queueClient.Enabled() {
		return
	}
	if err := s.queueClient.EnqueueTransactionStatusEmail(queue.TransactionStatusEmailPayload{
		TransactionID: transactionID,
		Status:        status,
	}); err != nil {
		logger.Warnw("status_email_enqueue_failed",
			"transaction_id", transactionID,
			"status", status,
			"error", err,
		)
	}
}

// saveBatchProgress 把批次进度快照写入缓存（失败只记录）
func (s *TransactionService) saveBatchProgress(result *BatchResult) {
	if result == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := cache.SaveBatchProgress(ctx, cache.BatchProgressSnapshot{
		BatchID:      result.BatchID,
		Status:       result.Status,
		ProcessedIDs: result.ProcessedIDs,
		RemainingIDs: result.RemainingIDs,
		IsComplete:   result.IsComplete,
	}); err != nil {
		logger.Warnw("batch_progress_cache_failed",
			"batch_id", result.BatchID,
			"error", err,
		)
	}
}

// normalizeStatus 归一化并校验目标状态
func normalizeStatus(raw string) (string, bool) {
	status := strings.ToLower(strings.TrimSpace(raw))
	switch status {
	case constants.TransactionStatusPending,
		constants.TransactionStatusVerified,
		constants.TransactionStatusApproved,
		constants.TransactionStatusRejected:
		return status, true
	}
	return "", false
}

// statusTimestampColumn 返回状态对应的时间戳列
func statusTimestampColumn(status string) (string, bool) {
	switch status {
	case constants.TransactionStatusVerified:
		return "verified_date", true
	case constants.TransactionStatusApproved:
		return "approved_date", true
	case constants.TransactionStatusRejected:
		return "rejected_date", true
	}
	return "", false
}
