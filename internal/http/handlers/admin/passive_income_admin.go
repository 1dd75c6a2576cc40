package admin

import (
	"strconv"
	"strings"

	"github.com/teller-next/internal/cache"
	"github.com/teller-next/internal/http/response"
	"github.com/teller-next/internal/models"
	"github.com/teller-next/internal/repository"

	"github.com/gin-gonic/gin"
)

// AdminIncomeSummary 管理端收益汇总返回
type AdminIncomeSummary struct {
	UserID       uint         `json:"user_id"`
	DisplayName  string       `json:"display_name"`
	Role         string       `json:"role"`
	Balance      models.Money `json:"balance"`
	TotalEarned  models.Money `json:"total_earned"`
	FallbackUser bool         `json:"fallback_user"`
}

// AdminListPassiveIncomes 管理端分佣台账列表
func (h *Handler) AdminListPassiveIncomes(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))
	page, pageSize = normalizePagination(page, pageSize)

	filter := repository.PassiveIncomeListFilter{
		Page:     page,
		PageSize: pageSize,
	}
	if raw := strings.TrimSpace(c.Query("transaction_id")); raw != "" {
		if parsed, err := strconv.ParseUint(raw, 10, 64); err == nil {
			filter.TransactionID = uint(parsed)
		}
	}
	if raw := strings.TrimSpace(c.Query("recipient_id")); raw != "" {
		if parsed, err := strconv.ParseUint(raw, 10, 64); err == nil {
			filter.RecipientID = uint(parsed)
		}
	}
	if raw := strings.TrimSpace(c.Query("sender_id")); raw != "" {
		if parsed, err := strconv.ParseUint(raw, 10, 64); err == nil {
			filter.SenderID = uint(parsed)
		}
	}
	if raw := strings.TrimSpace(c.Query("level")); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil {
			filter.Level = parsed
		}
	}

	entries, total, err := h.PassiveIncomeService.ListLedger(filter)
	if err != nil {
		respondError(c, response.CodeInternal, "ledger list failed", err)
		return
	}

	pagination := response.Pagination{
		Page:      page,
		PageSize:  pageSize,
		Total:     total,
		TotalPage: (total + int64(pageSize) - 1) / int64(pageSize),
	}
	response.SuccessWithPage(c, entries, pagination)
}

// AdminGetUserIncomeSummary 管理端用户收益汇总
func (h *Handler) AdminGetUserIncomeSummary(c *gin.Context) {
	userID, ok := parsePathUint(c, "id")
	if !ok {
		return
	}

	user, err := h.UserRepo.GetByID(userID)
	if err != nil {
		respondError(c, response.CodeInternal, "user fetch failed", err)
		return
	}
	if user == nil {
		respondError(c, response.CodeNotFound, "user not found", nil)
		return
	}

	totalEarned, err := h.PassiveIncomeRepo.SumByRecipient(userID)
	if err != nil {
		respondError(c, response.CodeInternal, "income summary failed", err)
		return
	}

	response.Success(c, AdminIncomeSummary{
		UserID:       user.ID,
		DisplayName:  user.DisplayName,
		Role:         user.Role,
		Balance:      user.Balance,
		TotalEarned:  models.Money{Decimal: totalEarned},
		FallbackUser: user.IsPayoutFallback,
	})
}

// AdminGetBatchProgress 管理端批次进度查询
func (h *Handler) AdminGetBatchProgress(c *gin.Context) {
	batchID := strings.TrimSpace(c.Param("batch_id"))
	if batchID == "" {
		respondError(c, response.CodeBadRequest, "invalid batch_id", nil)
		return
	}

	snapshot, err := cache.GetBatchProgress(c.Request.Context(), batchID)
	if err != nil {
		respondError(c, response.CodeInternal, "batch progress fetch failed", err)
		return
	}
	if snapshot == nil {
		respondError(c, response.CodeNotFound, "batch not found", nil)
		return
	}

	response.Success(c, snapshot)
}
