package service

import (
	"fmt"
	"time"

	"github.com/teller-next/internal/constants"
	"github.com/teller-next/internal/logger"
	"github.com/teller-next/internal/models"
	"github.com/teller-next/internal/repository"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// levelMultipliers 各层级固定分佣倍率（按可计佣笔数计算）
var levelMultipliers = [constants.PayoutMaxLevels]int64{
	constants.PayoutLevel1Multiplier,
	constants.PayoutLevel2Multiplier,
	constants.PayoutLevel3Multiplier,
}

// LevelAmount 单个层级的分佣金额
type LevelAmount struct {
	RecipientID uint         `json:"recipient_id"`
	Level       int          `json:"level"`
	Amount      models.Money `json:"amount"`
}

// PassiveIncomeService 被动收益计算与入账服务
type PassiveIncomeService struct {
	incomeRepo repository.PassiveIncomeRepository
	userRepo   repository.UserRepository
	uplineSvc  *UplineService
}

// NewPassiveIncomeService 创建被动收益服务
func NewPassiveIncomeService(
	incomeRepo repository.PassiveIncomeRepository,
	userRepo repository.UserRepository,
	uplineSvc *UplineService,
) *PassiveIncomeService {
	return &PassiveIncomeService{
		incomeRepo: incomeRepo,
		userRepo:   userRepo,
		uplineSvc:  uplineSvc,
	}
}

// ComputeLevelAmounts 按固定倍率计算各层级分佣金额。
// 链短于 3 时只对实际存在的位置出账（补位后不应发生，但仍防御）。
func (s *PassiveIncomeService) ComputeLevelAmounts(txn *models.Transaction, chain []ChainEntry) []LevelAmount {
	if txn == nil || len(chain) == 0 {
		return []LevelAmount{}
	}
	countable := int64(txn.CountableCount())
	amounts := make([]LevelAmount, 0, len(chain))
	for i, entry := range chain {
		if i >= len(levelMultipliers) {
			break
		}
		amount := decimal.NewFromInt(countable * levelMultipliers[i])
		amounts = append(amounts, LevelAmount{
			RecipientID: entry.UserID,
			Level:       i + 1,
			Amount:      models.NewMoneyFromDecimal(amount),
		})
	}
	return amounts
}

// CommitPayouts 在单个数据库事务内入账：
// 每个收款人一次聚合余额增量，每个 (sender, recipient, level, amount)
// 元组一条台账记录。重复入账由台账唯一索引静默跳过，
// 且只有实际新插入的台账行才会累计到余额增量。
func (s *PassiveIncomeService) CommitPayouts(transactionID, senderID uint, amounts []LevelAmount) error {
	if transactionID == 0 {
		return ErrNotFound
	}
	if len(amounts) == 0 {
		// 没有可入账层级视为成功空操作
		return nil
	}
	now := time.Now()
	return s.incomeRepo.Transaction(func(tx *gorm.DB) error {
		incomeRepo := s.incomeRepo.WithTx(tx)
		userRepo := s.userRepo.WithTx(tx)

		// 聚合同一收款人的新入账金额（兜底管理员可能占多个层级）
		credited := map[uint]decimal.Decimal{}
		order := make([]uint, 0, len(amounts))

		for _, la := range amounts {
			inserted, err := incomeRepo.CreateSkipDuplicate(&models.PassiveIncome{
				TransactionID: transactionID,
				SenderID:      senderID,
				RecipientID:   la.RecipientID,
				Level:         la.Level,
				Amount:        la.Amount,
				CreatedAt:     now,
			})
			if err != nil {
				return fmt.Errorf("insert passive income ledger: %w", err)
			}
			if !inserted {
				logger.Debugw("payout_ledger_duplicate_skipped",
					"transaction_id", transactionID,
					"recipient_id", la.RecipientID,
					"level", la.Level,
				)
				continue
			}
			if _, ok := credited[la.RecipientID]; !ok {
				order = append(order, la.RecipientID)
			}
			credited[la.RecipientID] = credited[la.RecipientID].Add(la.Amount.Decimal)
		}

		for _, recipientID := range order {
			delta := credited[recipientID]
			if delta.IsZero() {
				continue
			}
			if err := userRepo.IncrementBalance(recipientID, delta); err != nil {
				return fmt.Errorf("increment recipient balance: %w", err)
			}
		}
		return nil
	})
}

// GeneratePayout 对一笔已审批交易执行完整分佣流水线：
// 解析上级链 -> 兜底补位 -> 计算层级金额 -> 原子入账。
// 调用方将其视为尽力而为，失败只记录不回滚审批。
func (s *PassiveIncomeService) GeneratePayout(txn *models.Transaction) error {
	if txn == nil {
		return ErrNotFound
	}
	merchant, err := s.userRepo.GetByMerchantCode(txn.MerchantCode)
	if err != nil {
		return fmt.Errorf("fetch merchant user: %w", err)
	}
	if merchant == nil {
		return ErrMerchantNotLinked
	}

	chain := s.uplineSvc.ResolveChain(merchant.ID)
	chain = s.uplineSvc.PadChain(chain)
	amounts := s.ComputeLevelAmounts(txn, chain)
	if err := s.CommitPayouts(txn.ID, merchant.ID, amounts); err != nil {
		return fmt.Errorf("%w: %v", ErrPayoutCommit, err)
	}
	logger.Infow("payout_committed",
		"transaction_id", txn.ID,
		"merchant_code", txn.MerchantCode,
		"levels", len(amounts),
	)
	return nil
}

// ListLedger 分页查询台账
func (s *PassiveIncomeService) ListLedger(filter repository.PassiveIncomeListFilter) ([]models.PassiveIncome, int64, error) {
	return s.incomeRepo.List(filter)
}
