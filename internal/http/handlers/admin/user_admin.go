package admin

import (
	"strconv"
	"strings"

	"github.com/teller-next/internal/http/response"
	"github.com/teller-next/internal/repository"

	"github.com/gin-gonic/gin"
)

// AdminListUsers 管理端用户列表
func (h *Handler) AdminListUsers(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))
	page, pageSize = normalizePagination(page, pageSize)

	users, total, err := h.UserRepo.List(repository.UserListFilter{
		Page:     page,
		PageSize: pageSize,
		Role:     strings.TrimSpace(c.Query("role")),
		Search:   strings.TrimSpace(c.Query("search")),
	})
	if err != nil {
		respondError(c, response.CodeInternal, "user list failed", err)
		return
	}

	pagination := response.Pagination{
		Page:      page,
		PageSize:  pageSize,
		Total:     total,
		TotalPage: (total + int64(pageSize) - 1) / int64(pageSize),
	}
	response.SuccessWithPage(c, users, pagination)
}

// AdminGetUserUplineChain 管理端查询用户的分佣上级链
// 返回补位后的完整链，fallback 标记补位的管理员。
func (h *Handler) AdminGetUserUplineChain(c *gin.Context) {
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

	chain := h.UplineService.ResolveChain(userID)
	chain = h.UplineService.PadChain(chain)
	response.Success(c, gin.H{
		"user_id": userID,
		"chain":   chain,
	})
}
