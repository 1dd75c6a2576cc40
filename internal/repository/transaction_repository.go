package repository

import (
	"errors"
	"strings"

	"github.com/teller-next/internal/models"

	"gorm.io/gorm"
)

// TransactionRepository 交易数据访问接口
type TransactionRepository interface {
	GetByID(id uint) (*models.Transaction, error)
	GetByIDs(ids []uint) ([]models.Transaction, error)
	Create(txn *models.Transaction) error
	List(filter TransactionListFilter) ([]models.Transaction, int64, error)
	UpdateStatus(id uint, status string, updates map[string]interface{}) error
	BatchUpdateStatus(ids []uint, status string, updates map[string]interface{}) (int64, error)
	ListApprovedMissingPayout(limit int) ([]models.Transaction, error)
	WithTx(tx *gorm.DB) TransactionRepository
}

// GormTransactionRepository GORM 交易仓储实现
type GormTransactionRepository struct {
	db *gorm.DB
}

// NewTransactionRepository 创建交易仓储
func NewTransactionRepository(db *gorm.DB) *GormTransactionRepository {
	return &GormTransactionRepository{db: db}
}

// WithTx 绑定事务
func (r *GormTransactionRepository) WithTx(tx *gorm.DB) TransactionRepository {
	if tx == nil {
		return r
	}
	return &GormTransactionRepository{db: tx}
}

// GetByID 按ID获取交易
func (r *GormTransactionRepository) GetByID(id uint) (*models.Transaction, error) {
	if id == 0 {
		return nil, nil
	}
	var txn models.Transaction
	if err := r.db.Where("id = ?", id).First(&txn).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &txn, nil
}

// GetByIDs 批量获取交易
func (r *GormTransactionRepository) GetByIDs(ids []uint) ([]models.Transaction, error) {
	if len(ids) == 0 {
		return []models.Transaction{}, nil
	}
	var txns []models.Transaction
	if err := r.db.Where("id IN ?", ids).Find(&txns).Error; err != nil {
		return nil, err
	}
	return txns, nil
}

// Create 创建交易
func (r *GormTransactionRepository) Create(txn *models.Transaction) error {
	return r.db.Create(txn).Error
}

// List 分页查询交易
func (r *GormTransactionRepository) List(filter TransactionListFilter) ([]models.Transaction, int64, error) {
	query := r.db.Model(&models.Transaction{})
	if code := strings.TrimSpace(filter.MerchantCode); code != "" {
		query = query.Where("merchant_code = ?", code)
	}
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}
	if filter.CreatedFrom != nil {
		query = query.Where("created_at >= ?", filter.CreatedFrom)
	}
	if filter.CreatedTo != nil {
		query = query.Where("created_at <= ?", filter.CreatedTo)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	query = applyPagination(query, filter.Page, filter.PageSize)

	var txns []models.Transaction
	if err := query.Order("id desc").Find(&txns).Error; err != nil {
		return nil, 0, err
	}
	return txns, total, nil
}

// UpdateStatus 更新单笔交易状态
func (r *GormTransactionRepository) UpdateStatus(id uint, status string, updates map[string]interface{}) error {
	if updates == nil {
		updates = map[string]interface{}{}
	}
	updates["status"] = status
	return r.db.Model(&models.Transaction{}).Where("id = ?", id).Updates(updates).Error
}

// ListApprovedMissingPayout 查询已审批但尚无任何台账记录的交易，
// 供带外分佣补偿扫描使用。
func (r *GormTransactionRepository) ListApprovedMissingPayout(limit int) ([]models.Transaction, error) {
	if limit <= 0 {
		limit = 50
	}
	var txns []models.Transaction
	if err := r.db.
		Where("status = ?", "approved").
		Where("NOT EXISTS (SELECT 1 FROM passive_incomes pi WHERE pi.transaction_id = transactions.id)").
		Order("approved_date asc").
		Limit(limit).
		Find(&txns).Error; err != nil {
		return nil, err
	}
	return txns, nil
}

// BatchUpdateStatus 批量更新交易状态，返回受影响行数
func (r *GormTransactionRepository) BatchUpdateStatus(ids []uint, status string, updates map[string]interface{}) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	if updates == nil {
		updates = map[string]interface{}{}
	}
	updates["status"] = status
	result := r.db.Model(&models.Transaction{}).Where("id IN ?", ids).Updates(updates)
	return result.RowsAffected, result.Error
}
