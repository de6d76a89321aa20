package provider

import (
	"github.com/yieldtree/engine/internal/cache"
	"github.com/yieldtree/engine/internal/config"
	"github.com/yieldtree/engine/internal/logger"
	"github.com/yieldtree/engine/internal/models"
	"github.com/yieldtree/engine/internal/queue"
	"github.com/yieldtree/engine/internal/repository"
	"github.com/yieldtree/engine/internal/service"

	"gorm.io/gorm"
)

// Container 依赖注入容器
type Container struct {
	Config      *config.Config
	QueueClient *queue.Client

	// Repositories
	AccountRepo    repository.AccountRepository
	PlanRepo       repository.PlanRepository
	InvestmentRepo repository.InvestmentRepository
	ActivationRepo repository.ActivationRepository
	LedgerRepo     repository.LedgerRepository
	RunRepo        repository.RunRepository
	UnitOfWork     repository.UnitOfWork

	// Services
	LedgerService      *service.LedgerService
	EligibilityService *service.EligibilityService
	ProfitService      *service.ProfitService
	CommissionService  *service.CommissionService
	RunTracker         *service.RunTracker
	PlanPolicy         *service.PlanPolicy
	CycleService       *service.CycleService
	CycleLock          *cache.CycleLock
}

// NewContainer 初始化容器
func NewContainer(cfg *config.Config) *Container {
	// 初始化缓存
	if err := cache.InitRedis(&cfg.Redis); err != nil {
		logger.Warnw("provider_init_redis_failed", "error", err)
	}

	// 初始化队列客户端
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

	// 1. 初始化 Repositories
	c.initRepositories(models.DB)

	// 2. 初始化 Services
	c.initServices()

	return c
}

func (c *Container) initRepositories(db *gorm.DB) {
	c.AccountRepo = repository.NewAccountRepository(db)
	c.PlanRepo = repository.NewPlanRepository(db)
	c.InvestmentRepo = repository.NewInvestmentRepository(db)
	c.ActivationRepo = repository.NewActivationRepository(db)
	c.LedgerRepo = repository.NewLedgerRepository(db)
	c.RunRepo = repository.NewRunRepository(db)
	c.UnitOfWork = repository.NewUnitOfWork(db)
}

func (c *Container) initServices() {
	engineCfg := c.Config.Engine
	loc, err := engineCfg.Location()
	if err != nil {
		logger.Errorw("provider_engine_timezone_invalid", "timezone", engineCfg.Timezone, "error", err)
		panic(err)
	}

	c.CycleLock = cache.NewCycleLock()
	c.PlanPolicy = service.NewPlanPolicy(engineCfg)
	c.LedgerService = service.NewLedgerService(c.LedgerRepo, c.AccountRepo, c.UnitOfWork)
	c.EligibilityService = service.NewEligibilityService(c.InvestmentRepo, c.AccountRepo, c.PlanRepo, c.ActivationRepo, c.UnitOfWork, engineCfg, loc)
	c.ProfitService = service.NewProfitService(c.InvestmentRepo, c.LedgerService)
	c.CommissionService = service.NewCommissionService(c.AccountRepo, c.InvestmentRepo, c.LedgerService, engineCfg)
	c.RunTracker = service.NewRunTracker(c.RunRepo, c.UnitOfWork, engineCfg)
	c.CycleService = service.NewCycleService(service.CycleServiceDeps{
		Eligibility:    c.EligibilityService,
		Profit:         c.ProfitService,
		Commission:     c.CommissionService,
		Ledger:         c.LedgerService,
		Tracker:        c.RunTracker,
		Policy:         c.PlanPolicy,
		ActivationRepo: c.ActivationRepo,
		RunRepo:        c.RunRepo,
		UnitOfWork:     c.UnitOfWork,
		Locker:         c.CycleLock,
		Config:         engineCfg,
		Location:       loc,
	})
}

// Close 释放外部连接
func (c *Container) Close() {
	if c == nil {
		return
	}
	if err := c.QueueClient.Close(); err != nil {
		logger.Warnw("provider_close_queue_client_failed", "error", err)
	}
	if err := cache.Close(); err != nil {
		logger.Warnw("provider_close_redis_failed", "error", err)
	}
}
