package service

import (
	"time"

	"github.com/teller-next/internal/constants"
	"github.com/teller-next/internal/logger"
	"github.com/teller-next/internal/models"
	"github.com/teller-next/internal/repository"
)

// ChainEntry 分佣链上的一个收款节点
type ChainEntry struct {
	UserID   uint   `json:"user_id"`
	Role     string `json:"role"`
	Fallback bool   `json:"fallback"` // 是否为兜底管理员补位
}

// UplineService 上级链解析服务
type UplineService struct {
	userRepo  repository.UserRepository
	maxLevels int
	retry     retryPolicy
}

// NewUplineService 创建上级链解析服务
func NewUplineService(userRepo repository.UserRepository, maxLevels int) *UplineService {
	return NewUplineServiceWithRetry(userRepo, maxLevels,
		constants.UplineResolveMaxAttempts,
		constants.UplineResolveBackoffMS*time.Millisecond,
	)
}

// NewUplineServiceWithRetry 创建带自定义重试策略的解析服务
func NewUplineServiceWithRetry(userRepo repository.UserRepository, maxLevels, maxAttempts int, backoffBase time.Duration) *UplineService {
	if maxLevels <= 0 {
		maxLevels = constants.PayoutMaxLevels
	}
	if maxAttempts <= 0 {
		maxAttempts = constants.UplineResolveMaxAttempts
	}
	if backoffBase <= 0 {
		backoffBase = constants.UplineResolveBackoffMS * time.Millisecond
	}
	return &UplineService{
		userRepo:  userRepo,
		maxLevels: maxLevels,
		retry:     newExponentialRetryPolicy(maxAttempts, backoffBase),
	}
}

// MaxLevels 分佣链长度
func (s *UplineService) MaxLevels() int {
	return s.maxLevels
}

// ResolveChain 从指定用户出发向上解析分佣链。
// 整体包在有界指数退避重试里；全部尝试失败时返回空链，
// 由上层用兜底管理员补位，绝不向调用方抛错。
func (s *UplineService) ResolveChain(startUserID uint) []ChainEntry {
	if s == nil || s.userRepo == nil || startUserID == 0 {
		return []ChainEntry{}
	}
	var chain []ChainEntry
	err := s.retry.run(func() error {
		resolved, resolveErr := s.resolveOnce(startUserID)
		if resolveErr != nil {
			return resolveErr
		}
		chain = resolved
		return nil
	})
	if err != nil {
		logger.Warnw("upline_resolve_exhausted",
			"start_user_id", startUserID,
			"attempts", s.retry.maxAttempts,
			"error", err,
		)
		return []ChainEntry{}
	}
	return chain
}

// PadChain 用兜底管理员把链补齐到 maxLevels。
// 同一个管理员可占多个槽位；找不到兜底管理员时按原样返回。
func (s *UplineService) PadChain(chain []ChainEntry) []ChainEntry {
	if len(chain) >= s.maxLevels {
		return chain[:s.maxLevels]
	}
	admin, err := s.userRepo.GetPayoutFallbackAdmin()
	if err != nil {
		logger.Warnw("upline_fallback_admin_fetch_failed", "error", err)
		return chain
	}
	if admin == nil {
		logger.Warnw("upline_fallback_admin_missing")
		return chain
	}
	for len(chain) < s.maxLevels {
		chain = append(chain, ChainEntry{
			UserID:   admin.ID,
			Role:     admin.Role,
			Fallback: true,
		})
	}
	return chain
}

// resolveOnce 单次解析：优先走递归查询快路径，
// 失败时退化为逐节点顺序回溯（语义相同，更慢）。
func (s *UplineService) resolveOnce(startUserID uint) ([]ChainEntry, error) {
	ancestors, err := s.userRepo.GetUplineAncestors(startUserID, 0)
	if err != nil {
		logger.Debugw("upline_fast_path_failed",
			"start_user_id", startUserID,
			"error", err,
		)
		return s.resolveSequential(startUserID)
	}
	return s.filterChain(startUserID, ancestors), nil
}

// resolveSequential 逐节点顺序回溯（慢路径）
func (s *UplineService) resolveSequential(startUserID uint) ([]ChainEntry, error) {
	chain := make([]ChainEntry, 0, s.maxLevels)
	visited := map[uint]struct{}{startUserID: {}}

	current, err := s.userRepo.GetByID(startUserID)
	if err != nil {
		return nil, err
	}
	for current != nil && current.UplineID != nil && len(chain) < s.maxLevels {
		nextID := *current.UplineID
		if _, seen := visited[nextID]; seen {
			// 环路防御：数据约定无环，但不信任约定
			logger.Warnw("upline_cycle_detected", "user_id", nextID)
			break
		}
		visited[nextID] = struct{}{}

		next, err := s.userRepo.GetByID(nextID)
		if err != nil {
			return nil, err
		}
		if next == nil {
			break
		}
		if next.IsPayoutQualified() {
			chain = append(chain, ChainEntry{UserID: next.ID, Role: next.Role})
		}
		// 无资格的中间节点跳过但继续向上
		current = next
	}
	return chain, nil
}

// filterChain 对快路径取回的祖先序列做资格过滤与环路去重
func (s *UplineService) filterChain(startUserID uint, ancestors []models.User) []ChainEntry {
	chain := make([]ChainEntry, 0, s.maxLevels)
	visited := map[uint]struct{}{startUserID: {}}
	for i := range ancestors {
		node := ancestors[i]
		if _, seen := visited[node.ID]; seen {
			logger.Warnw("upline_cycle_detected", "user_id", node.ID)
			break
		}
		visited[node.ID] = struct{}{}
		if node.IsPayoutQualified() {
			chain = append(chain, ChainEntry{UserID: node.ID, Role: node.Role})
			if len(chain) >= s.maxLevels {
				break
			}
		}
	}
	return chain
}
