package provider

import (
	"github.com/devshad-01/alx-project-nexus/internal/authz"
	"github.com/devshad-01/alx-project-nexus/internal/cache"
	"github.com/devshad-01/alx-project-nexus/internal/config"
	"github.com/devshad-01/alx-project-nexus/internal/logger"
	"github.com/devshad-01/alx-project-nexus/internal/models"
	"github.com/devshad-01/alx-project-nexus/internal/queue"
	"github.com/devshad-01/alx-project-nexus/internal/repository"
	"github.com/devshad-01/alx-project-nexus/internal/service"
)

// Container 依赖注入容器
type Container struct {
	Config      *config.Config
	QueueClient *queue.Client

	// Repositories
	AdminRepo     repository.AdminRepository
	UserRepo      repository.UserRepository
	CategoryRepo  repository.CategoryRepository
	ProductRepo   repository.ProductRepository
	CartRepo      repository.CartRepository
	OrderRepo     repository.OrderRepository
	ReviewRepo    repository.ReviewRepository
	DashboardRepo repository.DashboardRepository

	// Services
	AuthzService     *authz.Service
	AuthService      *service.AuthService
	UserAuthService  *service.UserAuthService
	UserAdminService *service.UserAdminService
	EmailService     *service.EmailService
	CategoryService  *service.CategoryService
	ProductService   *service.ProductService
	CartService      *service.CartService
	OrderService     *service.OrderService
	ReviewService    *service.ReviewService
	DashboardService *service.DashboardService
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
	c.initRepositories()

	// 2. 初始化 Services
	c.initServices()

	return c
}

func (c *Container) initRepositories() {
	db := models.DB
	c.AdminRepo = repository.NewAdminRepository(db)
	c.UserRepo = repository.NewUserRepository(db)
	c.CategoryRepo = repository.NewCategoryRepository(db)
	c.ProductRepo = repository.NewProductRepository(db)
	c.CartRepo = repository.NewCartRepository(db)
	c.OrderRepo = repository.NewOrderRepository(db)
	c.ReviewRepo = repository.NewReviewRepository(db)
	c.DashboardRepo = repository.NewDashboardRepository(db)
}

func (c *Container) initServices() {
	authzService, err := authz.NewService(models.DB)
	if err != nil {
		logger.Errorw("provider_init_authz_failed", "error", err)
		panic(err)
	}
	c.AuthzService = authzService
	if err := c.AuthzService.BootstrapBuiltinRoles(); err != nil {
		logger.Errorw("provider_bootstrap_builtin_roles_failed", "error", err)
		panic(err)
	}

	c.EmailService = service.NewEmailService(&c.Config.Email)
	c.AuthService = service.NewAuthService(c.Config, c.AdminRepo)
	c.UserAuthService = service.NewUserAuthService(c.Config, c.UserRepo)
	c.UserAdminService = service.NewUserAdminService(c.UserRepo)
	c.CategoryService = service.NewCategoryService(c.CategoryRepo)
	c.ProductService = service.NewProductService(c.ProductRepo, c.CategoryRepo, c.ReviewRepo)
	c.CartService = service.NewCartService(c.CartRepo, c.ProductRepo)
	c.OrderService = service.NewOrderService(c.OrderRepo, c.ProductRepo, c.CartRepo, c.QueueClient, c.Config.Order.ConfirmExpireMinutes)
	c.ReviewService = service.NewReviewService(c.ReviewRepo, c.OrderRepo, c.ProductRepo)
	c.DashboardService = service.NewDashboardService(c.DashboardRepo)
}
