package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	inventoryapp "github.com/invoiceflow/backend/internal/application/inventory"
	invoiceapp "github.com/invoiceflow/backend/internal/application/invoice"
	vendorapp "github.com/invoiceflow/backend/internal/application/vendor"
	"github.com/invoiceflow/backend/internal/domain/invoice"
	"github.com/invoiceflow/backend/internal/infrastructure/cache"
	"github.com/invoiceflow/backend/internal/infrastructure/config"
	"github.com/invoiceflow/backend/internal/infrastructure/event"
	extractioninfra "github.com/invoiceflow/backend/internal/infrastructure/extraction"
	"github.com/invoiceflow/backend/internal/infrastructure/logger"
	"github.com/invoiceflow/backend/internal/infrastructure/persistence"
	"github.com/invoiceflow/backend/internal/interfaces/http/handler"
	"github.com/invoiceflow/backend/internal/interfaces/http/middleware"
	"github.com/invoiceflow/backend/internal/interfaces/http/router"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	// Initialize logger
	log, err := logger.New(&logger.Config{
		Level:      cfg.Log.Level,
		Format:     cfg.Log.Format,
		Output:     cfg.Log.Output,
		TimeFormat: "2006-01-02T15:04:05.000Z07:00",
	})
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	defer func() {
		_ = logger.Sync(log)
	}()

	log.Info("Starting InvoiceFlow Backend",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port),
	)

	// Create GORM logger backed by zap
	gormLogLevel := logger.MapGormLogLevel(cfg.Log.Level)
	gormLog := logger.NewGormLogger(log, gormLogLevel)

	// Initialize database connection with custom logger
	db, err := persistence.NewDatabaseWithCustomLogger(&cfg.Database, gormLog)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error("Error closing database", zap.Error(err))
		}
	}()
	log.Info("Database connected successfully")

	// Initialize repositories
	invoiceRepo := persistence.NewGormInvoiceRepository(db.DB)
	lineRepo := persistence.NewGormLineItemRepository(db.DB)
	profileRepo := persistence.NewGormParsingProfileRepository(db.DB)
	inventoryRepo := persistence.NewGormInventoryRepository(db.DB)
	txManager := persistence.NewGormTransactionManager(db.DB)

	// Hint cache: Redis when reachable, in-memory fallback otherwise
	var hintCache vendorapp.HintCache
	redisCache, err := cache.NewRedisHintCache(cache.RedisConfig{
		Host:     cfg.Redis.Host,
		Port:     cfg.Redis.Port,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err != nil {
		log.Warn("Redis unavailable, using in-memory hint cache", zap.Error(err))
		hintCache = cache.NewInMemoryHintCache()
	} else {
		hintCache = redisCache
		log.Info("Redis hint cache connected")
	}

	// Event bus with audit and price alert subscribers
	eventBus := event.NewInMemoryEventBus(log)
	eventBus.Subscribe(event.NewAuditLogHandler(log))
	eventBus.Subscribe(event.NewPriceAlertHandler(log, cfg.Reconciliation.PriceChangeThreshold))

	// Document extraction provider
	extractor, err := extractioninfra.NewHTTPExtractor(&extractioninfra.ProviderConfig{
		Endpoint: cfg.Extraction.Endpoint,
		APIKey:   cfg.Extraction.APIKey,
		Timeout:  cfg.Extraction.Timeout,
	}, log)
	if err != nil {
		log.Fatal("Failed to configure extraction provider", zap.Error(err))
	}

	// Initialize application services
	profileService := vendorapp.NewProfileService(profileRepo, hintCache, eventBus, log)
	workflowService := vendorapp.NewWorkflowService(profileRepo, profileService, eventBus, log)
	invoiceService := invoiceapp.NewInvoiceService(invoiceRepo, eventBus, log)
	duplicateChecker := invoiceapp.NewDuplicateChecker(invoiceRepo, log)
	inventoryService := inventoryapp.NewInventoryService(inventoryRepo, eventBus, log)

	detectorConfig := invoice.DetectorConfig{
		RelativeTolerance: decimal.NewFromFloat(cfg.Reconciliation.RelativeTolerance),
		AbsoluteTolerance: decimal.NewFromFloat(cfg.Reconciliation.AbsoluteTolerance),
	}
	ingestService := invoiceapp.NewIngestService(invoiceapp.IngestServiceConfig{
		Extractor:        extractor,
		HintProvider:     profileService,
		ProfileRepo:      profileRepo,
		InvoiceRepo:      invoiceRepo,
		LineRepo:         lineRepo,
		DuplicateChecker: duplicateChecker,
		TxManager:        txManager,
		EventPublisher:   eventBus,
		DetectorConfig:   detectorConfig,
		Logger:           log,
	})
	matchingService := invoiceapp.NewMatchingService(invoiceapp.MatchingServiceConfig{
		LineRepo:             lineRepo,
		InventoryRepo:        inventoryRepo,
		TxManager:            txManager,
		EventPublisher:       eventBus,
		AutoMatchThreshold:   cfg.Reconciliation.AutoMatchThreshold,
		PriceChangeThreshold: cfg.Reconciliation.PriceChangeThreshold,
		Logger:               log,
	})

	// Initialize handlers
	invoiceHandler := handler.NewInvoiceHandler(ingestService, invoiceService, duplicateChecker)
	lineHandler := handler.NewLineHandler(matchingService, lineRepo)
	vendorHandler := handler.NewVendorHandler(profileService, workflowService)
	inventoryHandler := handler.NewInventoryHandler(inventoryService)
	systemHandler := handler.NewSystemHandler(db)

	// Setup validation
	middleware.SetupValidator()

	// Initialize router with custom middleware
	engine := gin.New()

	// Configure trusted proxies
	if len(cfg.HTTP.TrustedProxies) > 0 {
		if err := engine.SetTrustedProxies(cfg.HTTP.TrustedProxies); err != nil {
			log.Warn("Failed to set trusted proxies", zap.Error(err))
		}
	}

	// Apply middleware stack in order:
	// 1. RequestID - Generate/propagate request ID
	// 2. Recovery - Catch panics
	// 3. Logger - Log requests
	// 4. Security - Add security headers
	// 5. CORS - Handle cross-origin requests
	// 6. BodyLimit - Limit request body size
	// 7. RateLimit - Apply rate limiting (if enabled)
	engine.Use(middleware.RequestID())
	engine.Use(logger.Recovery(log))
	engine.Use(logger.GinMiddleware(log))
	engine.Use(middleware.Secure())

	// Configure CORS from config
	corsConfig := middleware.CORSConfig{
		AllowOrigins:     cfg.HTTP.CORSAllowOrigins,
		AllowMethods:     cfg.HTTP.CORSAllowMethods,
		AllowHeaders:     cfg.HTTP.CORSAllowHeaders,
		ExposeHeaders:    []string{"X-Request-ID", "X-RateLimit-Limit", "X-RateLimit-Remaining"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	engine.Use(middleware.CORSWithConfig(corsConfig))

	// Body size limit covers document uploads
	engine.Use(middleware.BodyLimit(cfg.HTTP.MaxBodySize))

	// Rate limiting (if enabled)
	if cfg.HTTP.RateLimitEnabled {
		rateLimiter := middleware.NewRateLimiter(cfg.HTTP.RateLimitRequests, cfg.HTTP.RateLimitWindow)
		engine.Use(middleware.RateLimit(rateLimiter))
		log.Info("Rate limiting enabled",
			zap.Int("requests", cfg.HTTP.RateLimitRequests),
			zap.Duration("window", cfg.HTTP.RateLimitWindow),
		)
	}

	// Health check endpoint (outside API versioning)
	engine.GET("/health", healthHandler(db))

	// Setup API routes using router
	r := router.NewRouter(engine, router.WithAPIVersion("v1"))

	// Invoice domain (ingestion, lifecycle, payments)
	invoiceRoutes := router.NewDomainGroup("invoice", "/invoices")
	invoiceRoutes.POST("", invoiceHandler.Ingest)
	invoiceRoutes.GET("", invoiceHandler.ListByStatus)
	invoiceRoutes.GET("/stats/status-counts", invoiceHandler.StatusCounts)
	invoiceRoutes.GET("/by-date", invoiceHandler.ListByDateRange)
	invoiceRoutes.GET("/duplicate-check", invoiceHandler.CheckDuplicate)
	invoiceRoutes.GET("/vendor/:vendorId", invoiceHandler.ListByVendor)
	invoiceRoutes.GET("/:id", invoiceHandler.GetByID)
	invoiceRoutes.DELETE("/:id", invoiceHandler.Delete)
	invoiceRoutes.POST("/:id/review", invoiceHandler.MarkReviewed)
	invoiceRoutes.POST("/:id/process", invoiceHandler.MarkProcessed)
	invoiceRoutes.POST("/:id/send-to-qb", invoiceHandler.MarkSentToQB)
	invoiceRoutes.POST("/:id/error", invoiceHandler.MarkError)
	invoiceRoutes.POST("/:id/retry", invoiceHandler.Retry)
	invoiceRoutes.POST("/:id/archive", invoiceHandler.Archive)
	invoiceRoutes.POST("/:id/void", invoiceHandler.Void)
	invoiceRoutes.POST("/:id/dispute", invoiceHandler.Dispute)
	invoiceRoutes.POST("/:id/resolve-dispute", invoiceHandler.ResolveDispute)
	invoiceRoutes.POST("/:id/payments", invoiceHandler.RecordPayment)
	invoiceRoutes.PUT("/:id/due-date", invoiceHandler.SetDueDate)
	invoiceRoutes.POST("/overdue/refresh", invoiceHandler.RefreshOverdue)

	// Line matching domain
	lineRoutes := router.NewDomainGroup("line", "/lines")
	lineRoutes.GET("", lineHandler.ListByMatchStatus)
	lineRoutes.GET("/invoice/:invoiceId", lineHandler.ListByInvoice)
	lineRoutes.GET("/invoice/:invoiceId/unresolved", lineHandler.ListUnresolved)
	lineRoutes.GET("/:id/candidates", lineHandler.Candidates)
	lineRoutes.POST("/:id/auto-match", lineHandler.AutoMatch)
	lineRoutes.POST("/:id/match", lineHandler.MatchManual)
	lineRoutes.POST("/:id/mark-new", lineHandler.MarkNewItem)
	lineRoutes.POST("/:id/reject", lineHandler.RejectMatch)
	lineRoutes.POST("/:id/skip", lineHandler.Skip)
	lineRoutes.POST("/:id/reopen", lineHandler.Reopen)
	lineRoutes.POST("/:id/confirm", lineHandler.Confirm)

	// Vendor domain (parsing profiles, classification workflow)
	vendorRoutes := router.NewDomainGroup("vendor", "/vendors")
	vendorRoutes.POST("/profiles", vendorHandler.GetOrCreateProfile)
	vendorRoutes.GET("/profiles/hints", vendorHandler.Hints)
	vendorRoutes.GET("/:vendorId/profile", vendorHandler.GetProfile)
	vendorRoutes.DELETE("/:vendorId/profile", vendorHandler.ResetProfile)
	vendorRoutes.POST("/:vendorId/profile/column-corrections", vendorHandler.RecordColumnCorrection)
	vendorRoutes.POST("/:vendorId/profile/item-corrections", vendorHandler.RecordItemCorrection)
	vendorRoutes.PUT("/:vendorId/profile/weight-unit", vendorHandler.SetWeightUnit)
	vendorRoutes.PUT("/:vendorId/profile/quirks", vendorHandler.SetQuirks)
	vendorRoutes.POST("/workflows", vendorHandler.StartWorkflow)
	vendorRoutes.POST("/workflows/:sessionId/confirm-name", vendorHandler.ConfirmVendorName)
	vendorRoutes.PUT("/workflows/:sessionId/quirks", vendorHandler.SetWorkflowQuirks)
	vendorRoutes.POST("/workflows/:sessionId/columns", vendorHandler.AssignColumn)
	vendorRoutes.POST("/workflows/:sessionId/columns/reorder", vendorHandler.ReorderColumns)
	vendorRoutes.POST("/workflows/:sessionId/columns/finish", vendorHandler.FinishColumnAssignment)
	vendorRoutes.POST("/workflows/:sessionId/samples", vendorHandler.RecordSampleResult)
	vendorRoutes.POST("/workflows/:sessionId/item-corrections", vendorHandler.RecordWorkflowItemCorrection)
	vendorRoutes.POST("/workflows/:sessionId/complete", vendorHandler.CompleteWorkflow)
	vendorRoutes.DELETE("/workflows/:sessionId", vendorHandler.AbandonWorkflow)

	// Inventory domain
	inventoryRoutes := router.NewDomainGroup("inventory", "/inventory")
	inventoryRoutes.POST("/items", inventoryHandler.Create)
	inventoryRoutes.GET("/items/search", inventoryHandler.Search)
	inventoryRoutes.GET("/items/below-minimum", inventoryHandler.ListBelowMinimum)
	inventoryRoutes.GET("/items/vendor/:vendorId", inventoryHandler.ListByVendor)
	inventoryRoutes.GET("/items/:id", inventoryHandler.GetByID)
	inventoryRoutes.GET("/items/:id/price-history", inventoryHandler.PriceHistory)
	inventoryRoutes.POST("/items/:id/receive", inventoryHandler.ReceiveStock)
	inventoryRoutes.POST("/items/:id/adjust", inventoryHandler.AdjustStock)
	inventoryRoutes.PUT("/items/:id/min-stock", inventoryHandler.SetMinStock)
	inventoryRoutes.PUT("/items/:id/name", inventoryHandler.Rename)
	inventoryRoutes.POST("/items/:id/deactivate", inventoryHandler.Deactivate)
	inventoryRoutes.POST("/items/:id/reactivate", inventoryHandler.Reactivate)

	// System routes
	systemRoutes := router.NewDomainGroup("system", "/system")
	systemRoutes.GET("/info", systemHandler.GetSystemInfo)
	systemRoutes.GET("/ping", systemHandler.Ping)
	systemRoutes.GET("/health", systemHandler.Health)

	// Register all domain groups
	r.Register(invoiceRoutes).
		Register(lineRoutes).
		Register(vendorRoutes).
		Register(inventoryRoutes).
		Register(systemRoutes)

	// Setup routes
	r.Setup()

	// Also keep a simple ping at root API level for basic health checks
	engine.GET("/api/v1/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "pong"})
	})

	// Background overdue sweep
	sweepCtx, stopSweep := context.WithCancel(context.Background())
	defer stopSweep()
	if cfg.Overdue.SweepEnabled {
		go runOverdueSweep(sweepCtx, invoiceService, cfg.Overdue.SweepInterval, log)
		log.Info("Overdue sweep enabled", zap.Duration("interval", cfg.Overdue.SweepInterval))
	}

	// Create HTTP server with config
	srv := &http.Server{
		Addr:           ":" + cfg.App.Port,
		Handler:        engine,
		ReadTimeout:    cfg.HTTP.ReadTimeout,
		WriteTimeout:   cfg.HTTP.WriteTimeout,
		IdleTimeout:    cfg.HTTP.IdleTimeout,
		MaxHeaderBytes: cfg.HTTP.MaxHeaderBytes,
	}

	// Start server in goroutine
	go func() {
		log.Info("Server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down server...")

	stopSweep()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal("Server forced to shutdown", zap.Error(err))
	}

	log.Info("Server exited gracefully")
}

// runOverdueSweep periodically flags unpaid invoices past their due date
func runOverdueSweep(ctx context.Context, invoiceService *invoiceapp.InvoiceService, interval time.Duration, log *zap.Logger) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			flagged, err := invoiceService.RefreshOverdueFlags(ctx)
			if err != nil {
				log.Error("Overdue sweep failed", zap.Error(err))
				continue
			}
			if flagged > 0 {
				log.Info("Overdue sweep flagged invoices", zap.Int("count", flagged))
			}
		}
	}
}

// healthHandler returns a handler for health check endpoints
func healthHandler(db *persistence.Database) gin.HandlerFunc {
	return func(c *gin.Context) {
		reqLog := logger.GetGinLogger(c)
		if err := db.Ping(); err != nil {
			reqLog.Warn("Health check failed", zap.Error(err))
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status":   "unhealthy",
				"time":     time.Now().Format(time.RFC3339),
				"database": "error",
			})
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"status":   "healthy",
			"time":     time.Now().Format(time.RFC3339),
			"database": "ok",
		})
	}
}
