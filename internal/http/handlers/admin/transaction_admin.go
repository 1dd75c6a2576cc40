package admin

import (
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/teller-next/internal/http/response"
	"github.com/teller-next/internal/models"
	"github.com/teller-next/internal/repository"
	"github.com/teller-next/internal/service"

	"github.com/gin-gonic/gin"
)

// AdminTransactionDetail 管理端交易详情返回
type AdminTransactionDetail struct {
	models.Transaction
	MerchantName  string                 `json:"merchant_name,omitempty"`
	CountableCnt  int                    `json:"countable_count"`
	LedgerEntries []models.PassiveIncome `json:"ledger_entries,omitempty"`
}

// UpdateTransactionStatusRequest 单笔状态更新请求
type UpdateTransactionStatusRequest struct {
	Status string `json:"status" binding:"required"`
}

// BatchUpdateTransactionStatusRequest 批量状态更新请求
type BatchUpdateTransactionStatusRequest struct {
	TransactionIDs []uint `json:"transaction_ids" binding:"required"`
	Status         string `json:"status" binding:"required"`
	BatchSize      int    `json:"batch_size"`
}

// AdminListTransactions 管理端交易列表
func (h *Handler) AdminListTransactions(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))
	page, pageSize = normalizePagination(page, pageSize)

	status := strings.TrimSpace(c.Query("status"))
	merchantCode := strings.TrimSpace(c.Query("merchant_code"))
	createdFromRaw := strings.TrimSpace(c.Query("created_from"))
	createdToRaw := strings.TrimSpace(c.Query("created_to"))

	createdFrom, err := parseTimeNullable(createdFromRaw)
	if err != nil {
		respondError(c, response.CodeBadRequest, "invalid created_from", err)
		return
	}
	createdTo, err := parseTimeNullable(createdToRaw)
	if err != nil {
		respondError(c, response.CodeBadRequest, "invalid created_to", err)
		return
	}

	transactions, total, err := h.TransactionService.List(repository.TransactionListFilter{
		Page:         page,
		PageSize:     pageSize,
		MerchantCode: merchantCode,
		Status:       status,
		CreatedFrom:  createdFrom,
		CreatedTo:    createdTo,
	})
	if err != nil {
		respondError(c, response.CodeInternal, "transaction list failed", err)
		return
	}

	pagination := response.Pagination{
		Page:      page,
		PageSize:  pageSize,
		Total:     total,
		TotalPage: (total + int64(pageSize) - 1) / int64(pageSize),
	}
	response.SuccessWithPage(c, transactions, pagination)
}

// AdminGetTransaction 管理端交易详情（含分佣台账）
func (h *Handler) AdminGetTransaction(c *gin.Context) {
	transactionID, ok := parsePathUint(c, "id")
	if !ok {
		return
	}

	txn, err := h.TransactionService.GetByID(transactionID)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrNotFound):
			respondError(c, response.CodeNotFound, "transaction not found", nil)
		default:
			respondError(c, response.CodeInternal, "transaction fetch failed", err)
		}
		return
	}

	detail := AdminTransactionDetail{
		Transaction:  *txn,
		CountableCnt: txn.CountableCount(),
	}
	if merchant, err := h.UserRepo.GetByMerchantCode(txn.MerchantCode); err == nil && merchant != nil {
		detail.MerchantName = merchant.DisplayName
	}
	entries, err := h.PassiveIncomeRepo.ListByTransaction(txn.ID)
	if err != nil {
		respondError(c, response.CodeInternal, "transaction fetch failed", err)
		return
	}
	detail.LedgerEntries = entries

	response.Success(c, detail)
}

// AdminUpdateTransactionStatus 管理端单笔状态更新
func (h *Handler) AdminUpdateTransactionStatus(c *gin.Context) {
	transactionID, ok := parsePathUint(c, "id")
	if !ok {
		return
	}

	var req UpdateTransactionStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "invalid request body", err)
		return
	}

	result, err := h.TransactionService.UpdateStatus(transactionID, req.Status)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrNotFound):
			respondError(c, response.CodeNotFound, "transaction not found", nil)
		case errors.Is(err, service.ErrInvalidStatus):
			respondError(c, response.CodeBadRequest, "invalid status", nil)
		default:
			respondError(c, response.CodeInternal, "status update failed", err)
		}
		return
	}

	response.Success(c, result)
}

// AdminBatchUpdateTransactionStatus 管理端批量状态更新
// 超过批大小的 ID 会返回在 remaining_ids 中，由调用方续批提交。
func (h *Handler) AdminBatchUpdateTransactionStatus(c *gin.Context) {
	var req BatchUpdateTransactionStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "invalid request body", err)
		return
	}

	result, err := h.TransactionService.UpdateStatusBatch(req.TransactionIDs, req.Status, req.BatchSize)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrEmptyBatch):
			respondError(c, response.CodeBadRequest, "transaction_ids is empty", nil)
		case errors.Is(err, service.ErrInvalidBatchSize):
			respondError(c, response.CodeBadRequest, "invalid batch size", nil)
		case errors.Is(err, service.ErrInvalidStatus):
			respondError(c, response.CodeBadRequest, "invalid status", nil)
		default:
			respondError(c, response.CodeInternal, "batch status update failed", err)
		}
		return
	}

	response.Success(c, result)
}

func parsePathUint(c *gin.Context, name string) (uint, bool) {
	parsed, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || parsed == 0 {
		respondError(c, response.CodeBadRequest, "invalid "+name, nil)
		return 0, false
	}
	return uint(parsed), true
}

func parseTimeNullable(raw string) (*time.Time, error) {
	if raw == "" {
		return nil, nil
	}
	parsed, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return nil, err
	}
	return &parsed, nil
}
