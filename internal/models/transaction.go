package models

import (
	"time"

	"gorm.io/gorm"
)

// Transaction ATM 交易对账记录（按商户按日汇总上报）
type Transaction struct {
	ID           uint   `gorm:"primarykey" json:"id"`
	MerchantCode string `gorm:"type:varchar(32);not null;index" json:"merchant_code"` // 所属商户编号

	// 各类型交易笔数
	WithdrawalCount     int `gorm:"not null;default:0" json:"withdrawal_count"`
	BalanceInquiryCount int `gorm:"not null;default:0" json:"balance_inquiry_count"`
	FundTransferCount   int `gorm:"not null;default:0" json:"fund_transfer_count"`
	BillPaymentCount    int `gorm:"not null;default:0" json:"bill_payment_count"`
	CashInCount         int `gorm:"not null;default:0" json:"cash_in_count"`

	// 各类型交易金额小计
	WithdrawalAmount   Money `gorm:"type:decimal(20,2);not null;default:0" json:"withdrawal_amount"`
	FundTransferAmount Money `gorm:"type:decimal(20,2);not null;default:0" json:"fund_transfer_amount"`
	BillPaymentAmount  Money `gorm:"type:decimal(20,2);not null;default:0" json:"bill_payment_amount"`
	CashInAmount       Money `gorm:"type:decimal(20,2);not null;default:0" json:"cash_in_amount"`

	Status       string     `gorm:"type:varchar(32);not null;index" json:"status"`
	VerifiedDate *time.Time `gorm:"index" json:"verified_date,omitempty"`
	ApprovedDate *time.Time `gorm:"index" json:"approved_date,omitempty"`
	RejectedDate *time.Time `gorm:"index" json:"rejected_date,omitempty"`

	CreatedAt time.Time      `gorm:"index" json:"created_at"`
	UpdatedAt time.Time      `gorm:"index" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

// TableName 指定表名
func (Transaction) TableName() string {
	return "transactions"
}

// TotalCount 全部交易笔数
func (t *Transaction) TotalCount() int {
	if t == nil {
		return 0
	}
	return t.WithdrawalCount + t.BalanceInquiryCount + t.FundTransferCount +
		t.BillPaymentCount + t.CashInCount
}

// CountableCount 可计佣交易笔数。余额查询不计佣；
// 异常计数导致的负值按 0 处理。
func (t *Transaction) CountableCount() int {
	countable := t.TotalCount() - t.BalanceInquiryCount
	if countable < 0 {
		return 0
	}
	return countable
}
