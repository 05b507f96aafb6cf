package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "officina/api/swagger" // swagger docs
	"officina/internal/cache"
	"officina/internal/config"
	"officina/internal/database"
	"officina/internal/handler"
	"officina/internal/logger"
	"officina/internal/middleware"
	"officina/internal/notification"
	"officina/internal/repository"
	"officina/internal/service"
	"officina/internal/websocket"
	"officina/internal/worker"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"github.com/hibiken/asynq"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"
)

// @title           Officina API
// @version         1.0
// @description     Workshop management API: clients, quotes, appointments and public booking.
// @host            localhost:8080
// @BasePath        /
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	zlog, err := logger.New(cfg.Env, cfg.LogLevel)
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer func() { _ = zlog.Sync() }()

	db, err := database.NewConnection(cfg.DSN(), !cfg.IsRelease(), zlog)
	if err != nil {
		zlog.Fatal("database connection failed", zap.Error(err))
	}
	zlog.Info("connected to PostgreSQL")

	middleware.InitAuth([]byte(cfg.JWTSecret))

	wsHub := websocket.NewHub(zlog)
	go wsHub.Run()

	publicCatalog, _ := cfg.PublicCatalog()
	calendarCatalog, _ := cfg.CalendarCatalog()

	// Notifications go out directly unless a redis queue is available
	var direct notification.Sender = notification.NewLogSender(zlog)
	if cfg.MailEnabled() {
		direct = notification.NewMailSender(notification.MailConfig{
			Host:     cfg.SMTPHost,
			Port:     cfg.SMTPPort,
			Username: cfg.SMTPUsername,
			Password: cfg.SMTPPassword,
			From:     cfg.MailFrom,
			To:       cfg.MailTo,
		})
	}
	sender := direct

	var holds cache.SlotHolds = cache.NewMemorySlotHolds()
	var bgWorker *worker.Worker
	var queueClient *asynq.Client
	if cfg.RedisEnabled() {
		rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPassword, DB: cfg.RedisDB})
		pingCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		if err := rdb.Ping(pingCtx).Err(); err != nil {
			zlog.Warn("redis unreachable, slot holds stay in memory", zap.Error(err))
		} else {
			holds = cache.NewRedisSlotHolds(rdb)
		}
		cancel()

		queueOpt := asynq.RedisClientOpt{Addr: cfg.RedisAddr, Password: cfg.RedisPassword, DB: cfg.RedisQueueDB}
		queueClient = asynq.NewClient(queueOpt)
		sender = notification.NewQueueSender(queueClient)
		bgWorker = worker.New(queueOpt, direct, zlog)
		bgWorker.Start()
	}

	// Set up dependencies (Repository -> Service -> Handler)
	txManager := repository.NewTransactionManager(db)
	userRepo := repository.NewUserRepository(db)
	auditRepo := repository.NewAuditRepository(db)
	clientRepo := repository.NewClientRepository(db)
	serviceTypeRepo := repository.NewServiceTypeRepository(db)
	quoteRepo := repository.NewQuoteRepository(db)
	appointmentRepo := repository.NewAppointmentRepository(db)
	taxRepo := repository.NewTaxRuleRepository(db)
	leadRepo := repository.NewLeadRepository(db)
	statsRepo := repository.NewStatisticsRepository(db)

	userService := service.NewUserService(userRepo, []byte(cfg.JWTSecret), cfg.TokenTTL, zlog)
	auditService := service.NewAuditService(auditRepo)
	clientService := service.NewClientService(clientRepo, txManager, auditRepo)
	serviceTypeService := service.NewServiceTypeService(serviceTypeRepo)
	taxService := service.NewTaxService(taxRepo, txManager, auditRepo, cfg.TaxRate())
	quoteService := service.NewQuoteService(quoteRepo, clientRepo, serviceTypeRepo, appointmentRepo, taxService, txManager, auditRepo)
	appointmentService := service.NewAppointmentService(appointmentRepo, clientRepo, quoteRepo, txManager, auditRepo, holds, wsHub, sender, service.AppointmentSettings{
		PublicCatalog:   publicCatalog,
		CalendarCatalog: calendarCatalog,
		HoldTTL:         cfg.SlotHoldTTL,
		ReopenWindow:    cfg.ReopenWindow,
		ReminderLead:    cfg.ReminderLead,
		Location:        time.Local,
	}, zlog)
	leadService := service.NewLeadService(leadRepo, clientRepo, appointmentService, txManager, sender, zlog)
	statisticsService := service.NewStatisticsService(statsRepo, appointmentRepo, quoteRepo, clientRepo, leadRepo)

	if err := userService.EnsureAdmin(context.Background(), cfg.AdminEmail, cfg.AdminPassword); err != nil {
		zlog.Error("failed to bootstrap admin", zap.Error(err))
	}

	if cfg.IsRelease() {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(middleware.Recovery(zlog), middleware.RequestLogger(zlog))

	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = cfg.AllowedOrigins()
	corsConfig.AllowCredentials = true
	corsConfig.AllowHeaders = []string{"Origin", "Content-Length", "Content-Type", "Authorization", "Accept"}
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}
	router.Use(cors.New(corsConfig))

	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "OK"})
	})
	router.GET("/ws", func(c *gin.Context) {
		websocket.ServeWs(wsHub, c, middleware.GetJWTSecret())
	})

	publicLimiter := middleware.RateLimit(cfg.PublicRatePerMinute, zlog)
	root := router.Group("")
	handler.NewUserHandler(userService, cfg.IsRelease(), int(cfg.TokenTTL.Seconds())).RegisterRoutes(root, publicLimiter)
	handler.NewPublicHandler(appointmentService, leadService).RegisterRoutes(router.Group("", publicLimiter))
	handler.NewClientHandler(clientService).RegisterRoutes(root)
	handler.NewServiceTypeHandler(serviceTypeService).RegisterRoutes(root)
	handler.NewQuoteHandler(quoteService).RegisterRoutes(root)
	handler.NewAppointmentHandler(appointmentService).RegisterRoutes(root)
	handler.NewLeadHandler(leadService).RegisterRoutes(root)
	handler.NewTaxHandler(taxService).RegisterRoutes(root)
	handler.NewAuditHandler(auditService).RegisterRoutes(root)
	handler.NewStatisticsHandler(statisticsService).RegisterRoutes(root)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		zlog.Info("server listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zlog.Fatal("server failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	zlog.Info("server is shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		zlog.Error("server forced to shutdown", zap.Error(err))
	}
	if bgWorker != nil {
		bgWorker.Shutdown()
	}
	if queueClient != nil {
		_ = queueClient.Close()
	}
	zlog.Info("server stopped")
}
