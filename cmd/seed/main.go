package main

import (
	"github.com/teller-next/internal/config"
	"github.com/teller-next/internal/constants"
	"github.com/teller-next/internal/logger"
	"github.com/teller-next/internal/models"
)

// 演示数据：兜底管理员、三级分销链、挂在链尾的网点商户，
// 以及若干条待审核的交易汇总。
func main() {
	cfg := config.Load()
	logger.Init(cfg.Server.Mode, cfg.Log.ToLoggerOptions())
	stdLog := logger.StdLogger()

	if err := models.InitDB(cfg.Database.Driver, cfg.Database.DSN, models.DBPoolConfig{
		MaxOpenConns:           cfg.Database.Pool.MaxOpenConns,
		MaxIdleConns:           cfg.Database.Pool.MaxIdleConns,
		ConnMaxLifetimeSeconds: cfg.Database.Pool.ConnMaxLifetimeSeconds,
		ConnMaxIdleTimeSeconds: cfg.Database.Pool.ConnMaxIdleTimeSeconds,
	}); err != nil {
		stdLog.Fatalf("Failed to connect database: %v", err)
	}

	if err := models.AutoMigrate(); err != nil {
		stdLog.Fatalf("Failed to migrate database: %v", err)
	}

	// 兜底管理员
	admin := ensureUser(models.User{
		Email:            "admin@teller.local",
		DisplayName:      "Head Office",
		Role:             constants.RoleAdmin,
		IsPayoutFallback: true,
	})

	// 三级分销链：distributor -> sub_distributor -> retailer 商户
	distributor := ensureUser(models.User{
		Email:       "distributor@teller.local",
		DisplayName: "Metro Distributor",
		Role:        constants.RoleDistributor,
		UplineID:    &admin.ID,
	})
	subDistributor := ensureUser(models.User{
		Email:       "subdist@teller.local",
		DisplayName: "District Sub-Distributor",
		Role:        constants.RoleSubDistributor,
		UplineID:    &distributor.ID,
	})

	merchantCodes := []string{"M-1001", "M-1002", "M-1003"}
	for _, code := range merchantCodes {
		code := code
		ensureUser(models.User{
			Email:        "merchant-" + code + "@teller.local",
			DisplayName:  "Merchant " + code,
			Role:         constants.RoleRetailer,
			UplineID:     &subDistributor.ID,
			MerchantCode: &code,
		})
	}

	// 待审核交易汇总
	for _, code := range merchantCodes {
		txn := models.Transaction{
			MerchantCode:        code,
			WithdrawalCount:     40,
			BalanceInquiryCount: 10,
			FundTransferCount:   25,
			BillPaymentCount:    20,
			CashInCount:         25,
			WithdrawalAmount:    models.NewMoneyFromInt(52000),
			FundTransferAmount:  models.NewMoneyFromInt(31000),
			BillPaymentAmount:   models.NewMoneyFromInt(14500),
			CashInAmount:        models.NewMoneyFromInt(28000),
			Status:              constants.TransactionStatusPending,
		}
		var count int64
		models.DB.Model(&models.Transaction{}).
			Where("merchant_code = ? AND status = ?", code, constants.TransactionStatusPending).
			Count(&count)
		if count > 0 {
			stdLog.Printf("Pending transaction already exists for merchant %s", code)
			continue
		}
		if err := models.DB.Create(&txn).Error; err != nil {
			stdLog.Printf("Failed to create transaction for merchant %s: %v", code, err)
			continue
		}
		stdLog.Printf("Created pending transaction %d for merchant %s", txn.ID, code)
	}

	stdLog.Printf("Seed finished")
}

func ensureUser(user models.User) models.User {
	stdLog := logger.StdLogger()
	var existing models.User
	if err := models.DB.Where("email = ?", user.Email).First(&existing).Error; err == nil {
		stdLog.Printf("User already exists: %s", user.Email)
		return existing
	}
	if err := models.DB.Create(&user).Error; err != nil {
		stdLog.Fatalf("Failed to create user %s: %v", user.Email, err)
	}
	stdLog.Printf("Created user: %s (%s)", user.Email, user.Role)
	return user
}
