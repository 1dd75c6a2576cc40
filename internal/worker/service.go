package worker

import (
	"context"
	"errors"
	"time"

	"github.com/teller-next/internal/config"
	"github.com/teller-next/internal/logger"
	"github.com/teller-next/internal/queue"

	"github.com/hibiken/asynq"
)

const (
	payoutSweepInterval  = time.Minute
	payoutSweepBatchSize = 50
)

// Service 异步队列服务
type Service struct {
	name     string
	server   *asynq.Server
	mux      *asynq.ServeMux
	consumer *Consumer
}

// NewService 创建异步队列服务
func NewService(cfg *config.QueueConfig, consumer *Consumer) (*Service, error) {
	if cfg == nil || !cfg.Enabled {
		return nil, errors.New("queue disabled")
	}
	if consumer == nil {
		return nil, errors.New("consumer is nil")
	}
	opt, serverCfg := queue.BuildServerConfig(cfg)
	server := asynq.NewServer(opt, serverCfg)
	mux := asynq.NewServeMux()
	consumer.Register(mux)
	return &Service{
		name:     "worker",
		server:   server,
		mux:      mux,
		consumer: consumer,
	}, nil
}

// Name 服务名称
func (s *Service) Name() string {
	if s == nil || s.name == "" {
		return "worker"
	}
	return s.name
}

// Start 启动服务
func (s *Service) Start(ctx context.Context) error {
	if s == nil || s.server == nil || s.mux == nil {
		return errors.New("worker not initialized")
	}
	if s.consumer != nil && s.consumer.PassiveIncomeService != nil {
		go s.runPayoutSweepLoop(ctx)
	}
	return s.server.Run(s.mux)
}

// Stop 停止服务
func (s *Service) Stop(ctx context.Context) error {
	if s == nil || s.server == nil {
		return nil
	}
	_ = ctx
	s.server.Shutdown()
	return nil
}

// runPayoutSweepLoop 带外分佣补偿扫描：
// 定期找出已审批但无台账记录的交易重跑分佣流水线。
// 台账唯一索引保证与在线路径并发时不会重复入账。
func (s *Service) runPayoutSweepLoop(ctx context.Context) {
	if s == nil || s.consumer == nil || s.consumer.PassiveIncomeService == nil {
		return
	}
	runOnce := func() {
		txns, err := s.consumer.TransactionRepo.ListApprovedMissingPayout(payoutSweepBatchSize)
		if err != nil {
			logger.Warnw("worker_payout_sweep_query_failed", "error", err)
			return
		}
		for i := range txns {
			if err := s.consumer.PassiveIncomeService.GeneratePayout(&txns[i]); err != nil {
				logger.Warnw("worker_payout_sweep_item_failed",
					"transaction_id", txns[i].ID,
					"error", err,
				)
			}
		}
	}
	runOnce()

	ticker := time.NewTicker(payoutSweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			runOnce()
		}
	}
}
