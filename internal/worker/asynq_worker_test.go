package worker

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/teller-next/internal/constants"
	"github.com/teller-next/internal/models"
	"github.com/teller-next/internal/provider"
	"github.com/teller-next/internal/queue"
	"github.com/teller-next/internal/repository"
	"github.com/teller-next/internal/service"

	"github.com/glebarez/sqlite"
	"github.com/hibiken/asynq"
	"gorm.io/gorm"
)

func setupWorkerTest(t *testing.T) (*Consumer, *gorm.DB) {
	t.Helper()

	dsn := fmt.Sprintf("file:worker_test_%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite failed: %v", err)
	}
	if err := db.AutoMigrate(&models.User{}, &models.Transaction{}, &models.PassiveIncome{}); err != nil {
		t.Fatalf("auto migrate failed: %v", err)
	}

	userRepo := repository.NewUserRepository(db)
	txnRepo := repository.NewTransactionRepository(db)
	uplineSvc := service.NewUplineService(userRepo, constants.PayoutMaxLevels)
	incomeSvc := service.NewPassiveIncomeService(repository.NewPassiveIncomeRepository(db), userRepo, uplineSvc)

	container := &provider.Container{
		UserRepo:             userRepo,
		TransactionRepo:      txnRepo,
		PassiveIncomeRepo:    repository.NewPassiveIncomeRepository(db),
		UplineService:        uplineSvc,
		PassiveIncomeService: incomeSvc,
	}
	return NewConsumer(container), db
}

func TestHandleTransactionPayoutCreditsChain(t *testing.T) {
	consumer, db := setupWorkerTest(t)

	code := "M-8001"
	admin := models.User{Email: "admin@example.com", Role: constants.RoleAdmin, IsPayoutFallback: true}
	if err := db.Create(&admin).Error; err != nil {
		t.Fatalf("create admin failed: %v", err)
	}
	merchant := models.User{
		Email:        "merchant@example.com",
		Role:         constants.RoleRetailer,
		MerchantCode: &code,
		UplineID:     &admin.ID,
	}
	if err := db.Create(&merchant).Error; err != nil {
		t.Fatalf("create merchant failed: %v", err)
	}
	txn := models.Transaction{
		MerchantCode:    code,
		WithdrawalCount: 100,
		Status:          constants.TransactionStatusApproved,
	}
	if err := db.Create(&txn).Error; err != nil {
		t.Fatalf("create transaction failed: %v", err)
	}

	task, err := queue.NewTransactionPayoutTask(queue.TransactionPayoutPayload{TransactionID: txn.ID})
	if err != nil {
		t.Fatalf("build task failed: %v", err)
	}

	// 模拟重投：同一任务消费两次只入账一次
	for i := 0; i < 2; i++ {
		if err := consumer.handleTransactionPayout(context.Background(), task); err != nil {
			t.Fatalf("handle %d failed: %v", i+1, err)
		}
	}

	var rows int64
	if err := db.Model(&models.PassiveIncome{}).Where("transaction_id = ?", txn.ID).Count(&rows).Error; err != nil {
		t.Fatalf("count ledger failed: %v", err)
	}
	if rows != 3 {
		t.Fatalf("expected 3 ledger rows, got %d", rows)
	}

	var reloaded models.User
	if err := db.First(&reloaded, admin.ID).Error; err != nil {
		t.Fatalf("reload admin failed: %v", err)
	}
	// 100 笔可计佣，管理员占满三层：300 + 100 + 100
	if !reloaded.Balance.Equal(models.NewMoneyFromInt(500).Decimal) {
		t.Fatalf("expected balance 500, got %s", reloaded.Balance)
	}
}

func TestHandleTransactionPayoutSkipsUnknownTransaction(t *testing.T) {
	consumer, _ := setupWorkerTest(t)

	task, err := queue.NewTransactionPayoutTask(queue.TransactionPayoutPayload{TransactionID: 99999})
	if err != nil {
		t.Fatalf("build task failed: %v", err)
	}
	if err := consumer.handleTransactionPayout(context.Background(), task); err != nil {
		t.Fatalf("expected missing transaction skipped, got %v", err)
	}
}

func TestHandleTransactionPayoutInvalidPayload(t *testing.T) {
	consumer, _ := setupWorkerTest(t)

	task := asynq.NewTask(queue.TaskTransactionPayout, []byte("{not-json"))
	if err := consumer.handleTransactionPayout(context.Background(), task); err == nil {
		t.Fatalf("expected unmarshal error for malformed payload")
	}
}

func TestHandleTransactionStatusEmailMissingService(t *testing.T) {
	consumer, _ := setupWorkerTest(t)

	task, err := queue.NewTransactionStatusEmailTask(queue.TransactionStatusEmailPayload{
		TransactionID: 1,
		Status:        constants.TransactionStatusApproved,
	})
	if err != nil {
		t.Fatalf("build task failed: %v", err)
	}
	if err := consumer.handleTransactionStatusEmail(context.Background(), task); err != nil {
		t.Fatalf("expected silent skip without notification service, got %v", err)
	}
}
