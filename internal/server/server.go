package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"vinyl-store/internal/config"
	"vinyl-store/internal/database"
	custommiddleware "vinyl-store/internal/middleware"
	"vinyl-store/internal/repository"
	"vinyl-store/internal/service"
	"vinyl-store/internal/storage"
	"vinyl-store/internal/transport"

	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

type Server struct {
	*http.Server
	config      *config.Config
	logger      *zap.Logger
	dbService   database.Service
	redis       *redis.Client
	authService service.AuthService
}

func NewServer(cfg *config.Config, logger *zap.Logger, dbService database.Service, redisClient *redis.Client) (*Server, error) {
	db := dbService.DB()

	store, err := storage.NewStore(cfg.Assets, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize asset store: %w", err)
	}

	// Create router
	router := chi.NewRouter()

	for _, mw := range custommiddleware.DefaultMiddlewareStack() {
		router.Use(mw)
	}
	router.Use(custommiddleware.LoggingMiddleware(logger))
	router.Use(custommiddleware.ErrorHandlingMiddleware(logger))
	router.Use(custommiddleware.CORSMiddleware(cfg.CORSOrigin, cfg.Server.IsDevelopment()))
	router.Use(custommiddleware.RateLimitMiddleware(redisClient, custommiddleware.RateLimitConfig{
		RequestsPerWindow: cfg.RateLimit.Requests,
		Window:            cfg.RateLimit.Window,
		KeyPrefix:         "rate_limit:ip",
	}, logger))

	// Health check endpoint
	router.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		health := dbService.Health()
		status := http.StatusOK
		if health["status"] != "up" {
			status = http.StatusServiceUnavailable
		}
		custommiddleware.RespondWithJSON(w, status, health)
	})

	// Initialize repositories
	transactor := repository.NewTransactor(db)
	productRepo := repository.NewProductRepository(db)
	cartRepo := repository.NewCartRepository(db)
	orderRepo := repository.NewOrderRepository(db)
	customerRepo := repository.NewCustomerRepository(db)
	adminRepo := repository.NewAdministratorRepository(db)
	eventRepo := repository.NewEventRepository(db)
	notificationRepo := repository.NewNotificationRepository()

	// Initialize services
	authService := service.NewAuthService(customerRepo, adminRepo, cfg.JWT, logger)
	cartService := service.NewCartService(transactor, cartRepo, productRepo)
	orderService := service.NewOrderService(service.OrderDeps{
		Transactor:    transactor,
		Carts:         cartRepo,
		Products:      productRepo,
		Orders:        orderRepo,
		Customers:     customerRepo,
		Notifications: notificationRepo,
		Store:         store,
		MaxUpload:     cfg.Assets.MaxUpload,
		OperatorEmail: cfg.Notify.OperatorEmail,
	}, logger)
	productService := service.NewProductService(productRepo, store, cfg.Assets.MaxUpload)
	eventService := service.NewEventService(eventRepo, store, cfg.Assets.MaxUpload)

	// Authenticated routes are also limited per principal
	jwtMiddleware := custommiddleware.AuthMiddleware(cfg.JWT.Secret, logger)
	principalLimit := custommiddleware.RateLimitMiddleware(redisClient, custommiddleware.RateLimitConfig{
		RequestsPerWindow: cfg.RateLimit.Requests,
		Window:            cfg.RateLimit.Window,
		KeyPrefix:         "rate_limit:principal",
	}, logger)
	authMiddleware := func(next http.Handler) http.Handler {
		return jwtMiddleware(principalLimit(next))
	}

	// Register routes
	transport.NewAuthHandler(authService, logger).RegisterRoutes(router, authMiddleware)
	transport.NewCartHandler(cartService, logger).RegisterRoutes(router, authMiddleware)
	transport.NewOrderHandler(orderService, cfg.Assets.MaxUpload, logger).RegisterRoutes(router, authMiddleware)
	transport.NewProductHandler(productService, cfg.Assets.MaxUpload, logger).RegisterRoutes(router, authMiddleware)
	transport.NewEventHandler(eventService, cfg.Assets.MaxUpload, logger).RegisterRoutes(router, authMiddleware)

	server := &Server{
		Server: &http.Server{
			Addr:         fmt.Sprintf(":%s", cfg.Server.Port),
			Handler:      router,
			IdleTimeout:  time.Minute,
			ReadTimeout:  30 * time.Second,
			WriteTimeout: 60 * time.Second,
		},
		config:      cfg,
		logger:      logger,
		dbService:   dbService,
		redis:       redisClient,
		authService: authService,
	}

	return server, nil
}

// EnsureAdmin seeds the configured administrator on an empty install
func (s *Server) EnsureAdmin(ctx context.Context) error {
	return s.authService.EnsureAdmin(ctx, s.config.Admin)
}

func (s *Server) Close() error {
	s.logger.Info("Closing server resources")

	if s.redis != nil {
		if err := s.redis.Close(); err != nil {
			s.logger.Error("Failed to close redis client", zap.Error(err))
		}
	}

	if s.dbService != nil {
		if err := s.dbService.Close(); err != nil {
			s.logger.Error("Failed to close database connection", zap.Error(err))
		}
	}

	s.logger.Sync()
	return nil
}
