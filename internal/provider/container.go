package provider

import (
	"time"

	"github.com/teller-next/internal/cache"
	"github.com/teller-next/internal/config"
	"github.com/teller-next/internal/logger"
	"github.com/teller-next/internal/models"
	"github.com/teller-next/internal/queue"
	"github.com/teller-next/internal/repository"
	"github.com/teller-next/internal/service"
)

// Container 依赖注入容器
type Container struct {
	Config      *config.Config
	QueueClient *queue.Client

	// Repositories
	UserRepo          repository.UserRepository
	TransactionRepo   repository.TransactionRepository
	PassiveIncomeRepo repository.PassiveIncomeRepository

	// Services
	UplineService        *service.UplineService
	PassiveIncomeService *service.PassiveIncomeService
	TransactionService   *service.TransactionService
	NotificationService  *service.NotificationService
}

// NewContainer 初始化容器
func NewContainer(cfg *config.Config) *Container {
	if err := cache.InitRedis(&cfg.Redis); err != nil {
		logger.Warnw("provider_init_redis_failed", "error", err)
	}

	var queueClient *queue.Client
	if cfg.Queue.Enabled {
		qc, err := queue.NewClient(&cfg.Queue)
		if err != nil {
			logger.Errorw("provider_init_queue_client_failed", "error", err)
		} else {
			queueClient = qc
		}
	}

	c := &Container{
		Config:      cfg,
		QueueClient: queueClient,
	}

	c.initRepositories()
	c.initServices()

	return c
}

func (c *Container) initRepositories() {
	db := models.DB
	c.UserRepo = repository.NewUserRepository(db)
	c.TransactionRepo = repository.NewTransactionRepository(db)
	c.PassiveIncomeRepo = repository.NewPassiveIncomeRepository(db)
}

func (c *Container) initServices() {
	payout := c.Config.Payout
	c.UplineService = service.NewUplineServiceWithRetry(
		c.UserRepo,
		payout.MaxLevels,
		payout.ResolveAttempts,
		time.Duration(payout.ResolveBackoffMS)*time.Millisecond,
	)
	c.PassiveIncomeService = service.NewPassiveIncomeService(c.PassiveIncomeRepo, c.UserRepo, c.UplineService)
	c.TransactionService = service.NewTransactionService(
		c.TransactionRepo,
		c.PassiveIncomeService,
		c.QueueClient,
		payout.BatchSize,
	)
	c.NotificationService = service.NewNotificationService(
		c.UserRepo,
		c.TransactionRepo,
		service.LogEmailSender{},
		c.Config.Email,
	)
}
