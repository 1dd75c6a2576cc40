package repository

import (
	"errors"

	"github.com/teller-next/internal/models"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// PassiveIncomeRepository 被动收益台账数据访问接口
type PassiveIncomeRepository interface {
	CreateSkipDuplicate(entry *models.PassiveIncome) (bool, error)
	ListByTransaction(transactionID uint) ([]models.PassiveIncome, error)
	List(filter PassiveIncomeListFilter) ([]models.PassiveIncome, int64, error)
	SumByRecipient(recipientID uint) (decimal.Decimal, error)
	WithTx(tx *gorm.DB) PassiveIncomeRepository
	Transaction(fn func(tx *gorm.DB) error) error
}

// GormPassiveIncomeRepository GORM 被动收益仓储实现
type GormPassiveIncomeRepository struct {
	db *gorm.DB
}

// NewPassiveIncomeRepository 创建被动收益仓储
func NewPassiveIncomeRepository(db *gorm.DB) *GormPassiveIncomeRepository {
	return &GormPassiveIncomeRepository{db: db}
}

// WithTx 绑定事务
func (r *GormPassiveIncomeRepository) WithTx(tx *gorm.DB) PassiveIncomeRepository {
	if tx == nil {
		return r
	}
	return &GormPassiveIncomeRepository{db: tx}
}

// Transaction 执行数据库事务
func (r *GormPassiveIncomeRepository) Transaction(fn func(tx *gorm.DB) error) error {
	if fn == nil {
		return errors.New("transaction fn is nil")
	}
	return r.db.Transaction(fn)
}

// CreateSkipDuplicate 插入台账记录，命中唯一索引
// (transaction_id, recipient_id, level) 时静默跳过。
// 返回是否实际插入了新行。
func (r *GormPassiveIncomeRepository) CreateSkipDuplicate(entry *models.PassiveIncome) (bool, error) {
	if entry == nil {
		return false, errors.New("passive income entry is nil")
	}
	result := r.db.Clauses(clause.OnConflict{
		Columns: []clause.Column{
			{Name: "transaction_id"},
			{Name: "recipient_id"},
			{Name: "level"},
		},
		DoNothing: true,
	}).Create(entry)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

// ListByTransaction 查询一笔交易的全部台账记录
func (r *GormPassiveIncomeRepository) ListByTransaction(transactionID uint) ([]models.PassiveIncome, error) {
	if transactionID == 0 {
		return []models.PassiveIncome{}, nil
	}
	var entries []models.PassiveIncome
	if err := r.db.Where("transaction_id = ?", transactionID).
		Order("level asc").
		Find(&entries).Error; err != nil {
		return nil, err
	}
	return entries, nil
}

// List 分页查询台账记录
func (r *GormPassiveIncomeRepository) List(filter PassiveIncomeListFilter) ([]models.PassiveIncome, int64, error) {
	query := r.db.Model(&models.PassiveIncome{})
	if filter.TransactionID != 0 {
		query = query.Where("transaction_id = ?", filter.TransactionID)
	}
	if filter.RecipientID != 0 {
		query = query.Where("recipient_id = ?", filter.RecipientID)
	}
	if filter.SenderID != 0 {
		query = query.Where("sender_id = ?", filter.SenderID)
	}
	if filter.Level != 0 {
		query = query.Where("level = ?", filter.Level)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	query = applyPagination(query, filter.Page, filter.PageSize)

	var entries []models.PassiveIncome
	if err := query.Order("id desc").Find(&entries).Error; err != nil {
		return nil, 0, err
	}
	return entries, total, nil
}

// SumByRecipient 汇总某收款人累计入账金额
func (r *GormPassiveIncomeRepository) SumByRecipient(recipientID uint) (decimal.Decimal, error) {
	if recipientID == 0 {
		return decimal.Zero, nil
	}
	var row struct {
		Total decimal.Decimal `gorm:"column:total"`
	}
	if err := r.db.Model(&models.PassiveIncome{}).
		Where("recipient_id = ?", recipientID).
		Select("COALESCE(SUM(amount), 0) AS total").
		Scan(&row).Error; err != nil {
		return decimal.Zero, err
	}
	return row.Total.Round(2), nil
}
