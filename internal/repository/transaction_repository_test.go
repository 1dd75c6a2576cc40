package repository

import (
	"fmt"
	"testing"
	"time"

	"github.com/teller-next/internal/constants"
	"github.com/teller-next/internal/models"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
)

func setupTransactionRepositoryTest(t *testing.T) (*GormTransactionRepository, *gorm.DB) {
	t.Helper()
	dsn := fmt.Sprintf("file:transaction_repo_test_%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite failed: %v", err)
	}
	if err := db.AutoMigrate(
		&models.User{},
		&models.Transaction{},
		&models.PassiveIncome{},
	); err != nil {
		t.Fatalf("auto migrate failed: %v", err)
	}
	return NewTransactionRepository(db), db
}

func seedTransaction(t *testing.T, db *gorm.DB, merchantCode, status string) models.Transaction {
	t.Helper()
	txn := models.Transaction{
		MerchantCode:    merchantCode,
		WithdrawalCount: 10,
		Status:          status,
		CreatedAt:       time.Now(),
		UpdatedAt:       time.Now(),
	}
	if err := db.Create(&txn).Error; err != nil {
		t.Fatalf("create transaction failed: %v", err)
	}
	return txn
}

func TestBatchUpdateStatusStampsTimestamp(t *testing.T) {
	repo, db := setupTransactionRepositoryTest(t)

	first := seedTransaction(t, db, "M-5001", constants.TransactionStatusPending)
	second := seedTransaction(t, db, "M-5001", constants.TransactionStatusPending)

	now := time.Now()
	affected, err := repo.BatchUpdateStatus(
		[]uint{first.ID, second.ID},
		constants.TransactionStatusApproved,
		map[string]interface{}{"approved_date": now, "updated_at": now},
	)
	if err != nil {
		t.Fatalf("batch update failed: %v", err)
	}
	if affected != 2 {
		t.Fatalf("expected 2 rows affected, got %d", affected)
	}

	var rows []models.Transaction
	if err := db.Find(&rows, []uint{first.ID, second.ID}).Error; err != nil {
		t.Fatalf("reload failed: %v", err)
	}
	for _, row := range rows {
		if row.Status != constants.TransactionStatusApproved {
			t.Fatalf("transaction %d: expected approved, got %s", row.ID, row.Status)
		}
		if row.ApprovedDate == nil {
			t.Fatalf("transaction %d: expected approved_date stamped", row.ID)
		}
	}
}

func TestBatchUpdateStatusEmptyIDs(t *testing.T) {
	repo, _ := setupTransactionRepositoryTest(t)

	affected, err := repo.BatchUpdateStatus(nil, constants.TransactionStatusApproved, nil)
	if err != nil {
		t.Fatalf("expected noop success, got %v", err)
	}
	if affected != 0 {
		t.Fatalf("expected 0 rows affected, got %d", affected)
	}
}

func TestListApprovedMissingPayout(t *testing.T) {
	repo, db := setupTransactionRepositoryTest(t)

	paid := seedTransaction(t, db, "M-5002", constants.TransactionStatusApproved)
	unpaid := seedTransaction(t, db, "M-5002", constants.TransactionStatusApproved)
	seedTransaction(t, db, "M-5002", constants.TransactionStatusPending)

	if err := db.Create(&models.PassiveIncome{
		TransactionID: paid.ID,
		SenderID:      1,
		RecipientID:   2,
		Level:         1,
		Amount:        models.NewMoneyFromInt(30),
		CreatedAt:     time.Now(),
	}).Error; err != nil {
		t.Fatalf("seed ledger failed: %v", err)
	}

	missing, err := repo.ListApprovedMissingPayout(10)
	if err != nil {
		t.Fatalf("query failed: %v", err)
	}
	if len(missing) != 1 || missing[0].ID != unpaid.ID {
		t.Fatalf("expected only unpaid approved transaction %d, got %+v", unpaid.ID, missing)
	}
}

func TestTransactionListFilterByStatusAndMerchant(t *testing.T) {
	repo, db := setupTransactionRepositoryTest(t)

	seedTransaction(t, db, "M-5003", constants.TransactionStatusPending)
	seedTransaction(t, db, "M-5003", constants.TransactionStatusApproved)
	seedTransaction(t, db, "M-5004", constants.TransactionStatusPending)

	rows, total, err := repo.List(TransactionListFilter{
		Page:         1,
		PageSize:     10,
		MerchantCode: "M-5003",
		Status:       constants.TransactionStatusPending,
	})
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if total != 1 || len(rows) != 1 {
		t.Fatalf("expected single pending row for M-5003, got total=%d rows=%d", total, len(rows))
	}
	if rows[0].MerchantCode != "M-5003" {
		t.Fatalf("unexpected merchant code %s", rows[0].MerchantCode)
	}
}
