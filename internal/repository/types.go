package repository

import "time"

// UserListFilter 查询用户列表的过滤条件
type UserListFilter struct {
	Page     int
	PageSize int
	Role     string
	Search   string
}

// TransactionListFilter 查询交易列表的过滤条件
type TransactionListFilter struct {
	Page         int
	PageSize     int
	MerchantCode string
	Status       string
	CreatedFrom  *time.Time
	CreatedTo    *time.Time
}

// PassiveIncomeListFilter 查询被动收益台账的过滤条件
type PassiveIncomeListFilter struct {
	Page          int
	PageSize      int
	TransactionID uint
	RecipientID   uint
	SenderID      uint
	Level         int
}
