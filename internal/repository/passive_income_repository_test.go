package repository

import (
	"fmt"
	"testing"
	"time"

	"github.com/teller-next/internal/models"

	"github.com/glebarez/sqlite"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

func setupPassiveIncomeRepositoryTest(t *testing.T) (*GormPassiveIncomeRepository, *gorm.DB) {
	t.Helper()
	dsn := fmt.Sprintf("file:passive_income_repo_test_%d?mode=memory&cache=shared", time.Now().UnixNano())
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
	return NewPassiveIncomeRepository(db), db
}

func TestCreateSkipDuplicate(t *testing.T) {
	repo, db := setupPassiveIncomeRepositoryTest(t)

	entry := models.PassiveIncome{
		TransactionID: 1,
		SenderID:      10,
		RecipientID:   20,
		Level:         1,
		Amount:        models.NewMoneyFromInt(300),
		CreatedAt:     time.Now(),
	}
	inserted, err := repo.CreateSkipDuplicate(&entry)
	if err != nil {
		t.Fatalf("first insert failed: %v", err)
	}
	if !inserted {
		t.Fatalf("expected first insert reported as new row")
	}

	replay := models.PassiveIncome{
		TransactionID: 1,
		SenderID:      10,
		RecipientID:   20,
		Level:         1,
		Amount:        models.NewMoneyFromInt(300),
		CreatedAt:     time.Now(),
	}
	inserted, err = repo.CreateSkipDuplicate(&replay)
	if err != nil {
		t.Fatalf("replay insert failed: %v", err)
	}
	if inserted {
		t.Fatalf("expected replay skipped by unique index")
	}

	var count int64
	if err := db.Model(&models.PassiveIncome{}).Count(&count).Error; err != nil {
		t.Fatalf("count failed: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected single ledger row, got %d", count)
	}
}

func TestCreateSkipDuplicateDistinctLevels(t *testing.T) {
	repo, _ := setupPassiveIncomeRepositoryTest(t)

	for level := 1; level <= 3; level++ {
		inserted, err := repo.CreateSkipDuplicate(&models.PassiveIncome{
			TransactionID: 2,
			SenderID:      10,
			RecipientID:   20,
			Level:         level,
			Amount:        models.NewMoneyFromInt(100),
			CreatedAt:     time.Now(),
		})
		if err != nil {
			t.Fatalf("level %d insert failed: %v", level, err)
		}
		if !inserted {
			t.Fatalf("level %d: expected distinct level accepted", level)
		}
	}
}

func TestSumByRecipient(t *testing.T) {
	repo, _ := setupPassiveIncomeRepositoryTest(t)

	entries := []models.PassiveIncome{
		{TransactionID: 1, SenderID: 10, RecipientID: 20, Level: 1, Amount: models.NewMoneyFromInt(300)},
		{TransactionID: 2, SenderID: 10, RecipientID: 20, Level: 1, Amount: models.NewMoneyFromInt(150)},
		{TransactionID: 1, SenderID: 10, RecipientID: 30, Level: 2, Amount: models.NewMoneyFromInt(100)},
	}
	for i := range entries {
		entries[i].CreatedAt = time.Now()
		if _, err := repo.CreateSkipDuplicate(&entries[i]); err != nil {
			t.Fatalf("seed entry %d failed: %v", i, err)
		}
	}

	total, err := repo.SumByRecipient(20)
	if err != nil {
		t.Fatalf("sum failed: %v", err)
	}
	if !total.Equal(decimal.NewFromInt(450)) {
		t.Fatalf("expected total 450, got %s", total)
	}

	empty, err := repo.SumByRecipient(99)
	if err != nil {
		t.Fatalf("sum for unknown recipient failed: %v", err)
	}
	if !empty.IsZero() {
		t.Fatalf("expected zero total for unknown recipient, got %s", empty)
	}
}

func TestPassiveIncomeListFilters(t *testing.T) {
	repo, _ := setupPassiveIncomeRepositoryTest(t)

	seed := []models.PassiveIncome{
		{TransactionID: 1, SenderID: 10, RecipientID: 20, Level: 1, Amount: models.NewMoneyFromInt(300)},
		{TransactionID: 1, SenderID: 10, RecipientID: 30, Level: 2, Amount: models.NewMoneyFromInt(100)},
		{TransactionID: 2, SenderID: 11, RecipientID: 20, Level: 1, Amount: models.NewMoneyFromInt(60)},
	}
	for i := range seed {
		seed[i].CreatedAt = time.Now()
		if _, err := repo.CreateSkipDuplicate(&seed[i]); err != nil {
			t.Fatalf("seed entry %d failed: %v", i, err)
		}
	}

	byRecipient, total, err := repo.List(PassiveIncomeListFilter{Page: 1, PageSize: 10, RecipientID: 20})
	if err != nil {
		t.Fatalf("list by recipient failed: %v", err)
	}
	if total != 2 || len(byRecipient) != 2 {
		t.Fatalf("expected 2 rows for recipient 20, got total=%d rows=%d", total, len(byRecipient))
	}

	byTxn, total, err := repo.List(PassiveIncomeListFilter{Page: 1, PageSize: 10, TransactionID: 2})
	if err != nil {
		t.Fatalf("list by transaction failed: %v", err)
	}
	if total != 1 || len(byTxn) != 1 || byTxn[0].SenderID != 11 {
		t.Fatalf("unexpected transaction filter result: total=%d rows=%+v", total, byTxn)
	}
}
