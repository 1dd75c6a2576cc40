package models

import (
	"time"
)

// PassiveIncome 被动收益台账记录（只增不改）
// (transaction_id, recipient_id, level) 组合唯一索引保证
// 同一笔交易对同一收款人同一层级只入账一次。
type PassiveIncome struct {
	ID            uint      `gorm:"primarykey" json:"id"`
	TransactionID uint      `gorm:"not null;index;index:idx_passive_income_unique,unique" json:"transaction_id"`
	SenderID      uint      `gorm:"not null;index" json:"sender_id"`    // 产生收益的商户用户
	RecipientID   uint      `gorm:"not null;index;index:idx_passive_income_unique,unique" json:"recipient_id"` // 收取分佣的上级
	Level         int       `gorm:"not null;index:idx_passive_income_unique,unique" json:"level"`              // 距商户的层级（1-3）
	Amount        Money     `gorm:"type:decimal(20,2);not null;default:0" json:"amount"`
	CreatedAt     time.Time `gorm:"index" json:"created_at"`

	Sender    User `gorm:"foreignKey:SenderID" json:"sender,omitempty"`
	Recipient User `gorm:"foreignKey:RecipientID" json:"recipient,omitempty"`
}

// TableName 指定表名
func (PassiveIncome) TableName() string {
	return "passive_incomes"
}
