package repository

import (
	"errors"
	"strings"

	"github.com/teller-next/internal/constants"
	"github.com/teller-next/internal/models"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// uplineQueryDepthCap 递归上级查询的硬深度上限，防御数据环路。
const uplineQueryDepthCap = 32

// UserRepository 用户数据访问接口
type UserRepository interface {
	GetByID(id uint) (*models.User, error)
	GetByIDs(ids []uint) ([]models.User, error)
	GetByMerchantCode(code string) (*models.User, error)
	GetPayoutFallbackAdmin() (*models.User, error)
	GetUplineAncestors(startID uint, maxDepth int) ([]models.User, error)
	IncrementBalance(id uint, delta decimal.Decimal) error
	Create(user *models.User) error
	List(filter UserListFilter) ([]models.User, int64, error)
	WithTx(tx *gorm.DB) UserRepository
	Transaction(fn func(tx *gorm.DB) error) error
}

// GormUserRepository GORM 用户仓储实现
type GormUserRepository struct {
	db *gorm.DB
}

// NewUserRepository 创建用户仓储
func NewUserRepository(db *gorm.DB) *GormUserRepository {
	return &GormUserRepository{db: db}
}

// WithTx 绑定事务
func (r *GormUserRepository) WithTx(tx *gorm.DB) UserRepository {
	if tx == nil {
		return r
	}
	return &GormUserRepository{db: tx}
}

// Transaction 执行数据库事务
func (r *GormUserRepository) Transaction(fn func(tx *gorm.DB) error) error {
	if fn == nil {
		return errors.New("transaction fn is nil")
	}
	return r.db.Transaction(fn)
}

// GetByID 按ID获取用户
func (r *GormUserRepository) GetByID(id uint) (*models.User, error) {
	if id == 0 {
		return nil, nil
	}
	var user models.User
	if err := r.db.Where("id = ?", id).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &user, nil
}

// GetByIDs 批量获取用户
func (r *GormUserRepository) GetByIDs(ids []uint) ([]models.User, error) {
	if len(ids) == 0 {
		return []models.User{}, nil
	}
	var users []models.User
	if err := r.db.Where("id IN ?", ids).Find(&users).Error; err != nil {
		return nil, err
	}
	return users, nil
}

// GetByMerchantCode 按商户编号获取用户
func (r *GormUserRepository) GetByMerchantCode(code string) (*models.User, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return nil, nil
	}
	var user models.User
	if err := r.db.Where("merchant_code = ?", code).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &user, nil
}

// GetPayoutFallbackAdmin 获取指定的分佣兜底管理员。
// 每次解析都重新查询，不做进程内缓存。
func (r *GormUserRepository) GetPayoutFallbackAdmin() (*models.User, error) {
	var user models.User
	if err := r.db.Where("is_payout_fallback = ? AND role = ?", true, constants.RoleAdmin).
		Order("id asc").
		First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &user, nil
}

// GetUplineAncestors 通过递归查询一次性取回上级链（快路径）。
// 返回从直接上级开始按距离升序排列的祖先节点；
// 深度受 uplineQueryDepthCap 限制，角色过滤由调用方完成。
func (r *GormUserRepository) GetUplineAncestors(startID uint, maxDepth int) ([]models.User, error) {
	if startID == 0 {
		return []models.User{}, nil
	}
	if maxDepth <= 0 || maxDepth > uplineQueryDepthCap {
		maxDepth = uplineQueryDepthCap
	}
	// sqlite 与 postgres 均支持 WITH RECURSIVE。
	query := `
WITH RECURSIVE upline(id, depth) AS (
	SELECT u.upline_id, 1
	FROM users u
	WHERE u.id = ? AND u.upline_id IS NOT NULL
	UNION ALL
	SELECT u.upline_id, upline.depth + 1
	FROM users u
	JOIN upline ON u.id = upline.id
	WHERE u.upline_id IS NOT NULL AND upline.depth < ?
)
SELECT users.*
FROM upline
JOIN users ON users.id = upline.id
WHERE users.deleted_at IS NULL
ORDER BY upline.depth ASC`
	var users []models.User
	if err := r.db.Raw(query, startID, maxDepth).Scan(&users).Error; err != nil {
		return nil, err
	}
	return users, nil
}

// IncrementBalance 原子余额增量更新（increment-by-delta，避免读改写丢失更新）
func (r *GormUserRepository) IncrementBalance(id uint, delta decimal.Decimal) error {
	if id == 0 {
		return errors.New("user id is zero")
	}
	return r.db.Model(&models.User{}).
		Where("id = ?", id).
		UpdateColumn("balance", gorm.Expr("balance + ?", delta)).Error
}

// Create 创建用户
func (r *GormUserRepository) Create(user *models.User) error {
	return r.db.Create(user).Error
}

// List 分页查询用户
func (r *GormUserRepository) List(filter UserListFilter) ([]models.User, int64, error) {
	query := r.db.Model(&models.User{})
	if filter.Role != "" {
		query = query.Where("role = ?", filter.Role)
	}
	if search := strings.TrimSpace(filter.Search); search != "" {
		like := "%" + search + "%"
		query = query.Where("email LIKE ? OR display_name LIKE ? OR merchant_code LIKE ?", like, like, like)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	query = applyPagination(query, filter.Page, filter.PageSize)

	var users []models.User
	if err := query.Order("id desc").Find(&users).Error; err != nil {
		return nil, 0, err
	}
	return users, total, nil
}
