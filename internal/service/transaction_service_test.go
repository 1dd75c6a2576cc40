package service

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/teller-next/internal/constants"
	"github.com/teller-next/internal/models"
	"github.com/teller-next/internal/repository"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
)

func setupTransactionServiceTest(t *testing.T) (*TransactionService, *gorm.DB) {
	t.Helper()

	dsn := fmt.Sprintf("file:transaction_service_%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite failed: %v", err)
	}
	if err := db.AutoMigrate(&models.User{}, &models.Transaction{}, &models.PassiveIncome{}); err != nil {
		t.Fatalf("auto migrate failed: %v", err)
	}

	userRepo := repository.NewUserRepository(db)
	txnRepo := repository.NewTransactionRepository(db)
	uplineSvc := NewUplineService(userRepo, constants.PayoutMaxLevels)
	incomeSvc := NewPassiveIncomeService(repository.NewPassiveIncomeRepository(db), userRepo, uplineSvc)
	svc := NewTransactionService(txnRepo, incomeSvc, nil, constants.BatchDefaultSize)
	return svc, db
}

// setupMerchantGraph 建立 admin <- dist <- sub <- merchant 四级结构
func setupMerchantGraph(t *testing.T, db *gorm.DB, merchantCode string) (admin, dist, sub, merchant models.User) {
	t.Helper()

	admin = createFallbackAdmin(t, db, merchantCode+"-admin@example.com")
	dist = createChainTestUser(t, db, merchantCode+"-dist@example.com", constants.RoleDistributor, &admin.ID)
	sub = createChainTestUser(t, db, merchantCode+"-sub@example.com", constants.RoleSubDistributor, &dist.ID)
	merchant = createChainTestUser(t, db, merchantCode+"-merchant@example.com", constants.RoleRetailer, &sub.ID)
	if err := db.Model(&models.User{}).Where("id = ?", merchant.ID).
		UpdateColumn("merchant_code", merchantCode).Error; err != nil {
		t.Fatalf("bind merchant code failed: %v", err)
	}
	return admin, dist, sub, merchant
}

func TestUpdateStatusApprovedTriggersPayout(t *testing.T) {
	svc, db := setupTransactionServiceTest(t)

	_, _, sub, _ := setupMerchantGraph(t, db, "M-4001")
	txn := createPayoutTestTransaction(t, db, "M-4001", 100, 10)

	result, err := svc.UpdateStatus(txn.ID, "Approved")
	if err != nil {
		t.Fatalf("update status failed: %v", err)
	}
	if !result.StatusUpdateOK || !result.PayoutOK {
		t.Fatalf("expected both phases ok, got %+v", result)
	}

	var updated models.Transaction
	if err := db.First(&updated, txn.ID).Error; err != nil {
		t.Fatalf("load transaction failed: %v", err)
	}
	if updated.Status != constants.TransactionStatusApproved {
		t.Fatalf("expected approved status, got %s", updated.Status)
	}
	if updated.ApprovedDate == nil {
		t.Fatalf("expected approved_date stamped")
	}
	if got := ledgerCount(t, db, txn.ID); got != 3 {
		t.Fatalf("expected 3 ledger rows, got %d", got)
	}
	if balance := userBalance(t, db, sub.ID); !balance.Equal(models.NewMoneyFromInt(300).Decimal) {
		t.Fatalf("expected level 1 balance 300, got %s", balance)
	}
}

func TestUpdateStatusRejectedSkipsPayout(t *testing.T) {
	svc, db := setupTransactionServiceTest(t)

	setupMerchantGraph(t, db, "M-4002")
	txn := createPayoutTestTransaction(t, db, "M-4002", 50, 0)

	result, err := svc.UpdateStatus(txn.ID, constants.TransactionStatusRejected)
	if err != nil {
		t.Fatalf("update status failed: %v", err)
	}
	if !result.StatusUpdateOK {
		t.Fatalf("expected status update ok, got %+v", result)
	}

	var updated models.Transaction
	if err := db.First(&updated, txn.ID).Error; err != nil {
		t.Fatalf("load transaction failed: %v", err)
	}
	if updated.RejectedDate == nil {
		t.Fatalf("expected rejected_date stamped")
	}
	if got := ledgerCount(t, db, txn.ID); got != 0 {
		t.Fatalf("expected no ledger rows on rejection, got %d", got)
	}
}

func TestUpdateStatusApprovedWithUnknownMerchantDefersPayout(t *testing.T) {
	svc, db := setupTransactionServiceTest(t)

	txn := createPayoutTestTransaction(t, db, "M-ORPHAN", 50, 0)

	result, err := svc.UpdateStatus(txn.ID, constants.TransactionStatusApproved)
	if err != nil {
		t.Fatalf("update status failed: %v", err)
	}
	if !result.StatusUpdateOK {
		t.Fatalf("expected status update ok, got %+v", result)
	}
	if result.PayoutOK {
		t.Fatalf("expected payout deferred for orphan merchant")
	}

	var updated models.Transaction
	if err := db.First(&updated, txn.ID).Error; err != nil {
		t.Fatalf("load transaction failed: %v", err)
	}
	if updated.Status != constants.TransactionStatusApproved {
		t.Fatalf("payout failure must not roll back approval, got %s", updated.Status)
	}
}

func TestUpdateStatusInvalidStatus(t *testing.T) {
	svc, db := setupTransactionServiceTest(t)

	txn := createPayoutTestTransaction(t, db, "M-4003", 10, 0)
	if _, err := svc.UpdateStatus(txn.ID, "cancelled"); !errors.Is(err, ErrInvalidStatus) {
		t.Fatalf("expected ErrInvalidStatus, got %v", err)
	}
}

func TestUpdateStatusNotFound(t *testing.T) {
	svc, _ := setupTransactionServiceTest(t)

	if _, err := svc.UpdateStatus(99999, constants.TransactionStatusApproved); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestUpdateStatusBatchEmptyIDs(t *testing.T) {
	svc, _ := setupTransactionServiceTest(t)

	if _, err := svc.UpdateStatusBatch(nil, constants.TransactionStatusApproved, 0); !errors.Is(err, ErrEmptyBatch) {
		t.Fatalf("expected ErrEmptyBatch, got %v", err)
	}
}

func TestUpdateStatusBatchNegativeSize(t *testing.T) {
	svc, _ := setupTransactionServiceTest(t)

	if _, err := svc.UpdateStatusBatch([]uint{1}, constants.TransactionStatusApproved, -1); !errors.Is(err, ErrInvalidBatchSize) {
		t.Fatalf("expected ErrInvalidBatchSize, got %v", err)
	}
}

func TestUpdateStatusBatchWithinLimitCompletes(t *testing.T) {
	svc, db := setupTransactionServiceTest(t)

	setupMerchantGraph(t, db, "M-4004")
	var ids []uint
	for i := 0; i < 3; i++ {
		txn := createPayoutTestTransaction(t, db, "M-4004", 10, 0)
		ids = append(ids, txn.ID)
	}

	result, err := svc.UpdateStatusBatch(ids, constants.TransactionStatusVerified, 0)
	if err != nil {
		t.Fatalf("batch update failed: %v", err)
	}
	if !result.IsComplete {
		t.Fatalf("expected batch complete, got %+v", result)
	}
	if len(result.ProcessedIDs) != 3 || len(result.RemainingIDs) != 0 {
		t.Fatalf("unexpected split: %+v", result)
	}
	if result.BatchID == "" {
		t.Fatalf("expected batch id assigned")
	}

	var count int64
	if err := db.Model(&models.Transaction{}).
		Where("status = ?", constants.TransactionStatusVerified).
		Count(&count).Error; err != nil {
		t.Fatalf("count verified failed: %v", err)
	}
	if count != 3 {
		t.Fatalf("expected 3 verified transactions, got %d", count)
	}
}

func TestUpdateStatusBatchSplitsOversizedList(t *testing.T) {
	svc, db := setupTransactionServiceTest(t)

	setupMerchantGraph(t, db, "M-4005")
	var ids []uint
	for i := 0; i < 5; i++ {
		txn := createPayoutTestTransaction(t, db, "M-4005", 10, 0)
		ids = append(ids, txn.ID)
	}

	result, err := svc.UpdateStatusBatch(ids, constants.TransactionStatusVerified, 2)
	if err != nil {
		t.Fatalf("batch update failed: %v", err)
	}
	if result.IsComplete {
		t.Fatalf("expected incomplete batch, got %+v", result)
	}
	if len(result.ProcessedIDs) != 2 || len(result.RemainingIDs) != 3 {
		t.Fatalf("unexpected split: processed=%d remaining=%d",
			len(result.ProcessedIDs), len(result.RemainingIDs))
	}
	if result.ProcessedIDs[0] != ids[0] || result.RemainingIDs[0] != ids[2] {
		t.Fatalf("expected order-preserving split, got %+v", result)
	}
}

func TestUpdateStatusBatchApproveReplayDoesNotDoubleCredit(t *testing.T) {
	svc, db := setupTransactionServiceTest(t)

	_, _, sub, _ := setupMerchantGraph(t, db, "M-4006")
	txn := createPayoutTestTransaction(t, db, "M-4006", 100, 0)
	ids := []uint{txn.ID}

	for i := 0; i < 2; i++ {
		result, err := svc.UpdateStatusBatch(ids, constants.TransactionStatusApproved, 0)
		if err != nil {
			t.Fatalf("batch approve %d failed: %v", i+1, err)
		}
		if !result.PayoutOK {
			t.Fatalf("batch approve %d: expected payout ok, got %+v", i+1, result)
		}
	}

	if got := ledgerCount(t, db, txn.ID); got != 3 {
		t.Fatalf("expected 3 ledger rows after replay, got %d", got)
	}
	if balance := userBalance(t, db, sub.ID); !balance.Equal(models.NewMoneyFromInt(300).Decimal) {
		t.Fatalf("expected balance 300 after replay, got %s", balance)
	}
}
