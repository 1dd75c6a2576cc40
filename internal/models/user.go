package models

import (
	"time"

	"gorm.io/gorm"

	"github.com/teller-next/internal/constants"
)

// User 用户表（商户与分销层级共用）
type User struct {
	ID          uint   `gorm:"primarykey" json:"id"`              // 主键
	Email       string `gorm:"uniqueIndex;not null" json:"email"` // 邮箱
	DisplayName string `gorm:"default:''" json:"display_name"`    // 昵称
	Role        string `gorm:"type:varchar(32);not null;index" json:"role"`
	// UplineID 上级用户ID（自引用，可为空）。层级图约定无环，
	// 解析时仍以 visited 集合防御环路。
	UplineID         *uint          `gorm:"index" json:"upline_id,omitempty"`
	Balance          Money          `gorm:"type:decimal(20,2);not null;default:0" json:"balance"` // 被动收益余额
	MerchantCode     *string        `gorm:"type:varchar(32);uniqueIndex" json:"merchant_code,omitempty"`
	IsPayoutFallback bool           `gorm:"not null;default:false;index" json:"is_payout_fallback"` // 指定的分佣兜底管理员
	Status           string         `gorm:"default:'active'" json:"status"`
	CreatedAt        time.Time      `gorm:"index" json:"created_at"`
	UpdatedAt        time.Time      `gorm:"index" json:"updated_at"`
	DeletedAt        gorm.DeletedAt `gorm:"index" json:"-"`
}

// TableName 指定表名
func (User) TableName() string {
	return "users"
}

// IsPayoutQualified 判断角色是否具备收取分佣资格
func (u *User) IsPayoutQualified() bool {
	if u == nil {
		return false
	}
	switch u.Role {
	case constants.RoleAdmin, constants.RoleDistributor, constants.RoleSubDistributor:
		return true
	}
	return false
}
