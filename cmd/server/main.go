package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/fnsdeividy/sales-pdv-backend/internal/config"
	"github.com/fnsdeividy/sales-pdv-backend/internal/middleware"
	"github.com/fnsdeividy/sales-pdv-backend/internal/production/entity"
	"github.com/fnsdeividy/sales-pdv-backend/internal/production/handler"
	"github.com/fnsdeividy/sales-pdv-backend/internal/production/repository"
	"github.com/fnsdeividy/sales-pdv-backend/internal/production/service"
	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var (
	Version   = "dev"
	BuildTime = "unknown"
)

func main() {
	// carrega o .env quando existir
	if err := godotenv.Load(); err != nil {
		log.Printf("Warning: .env file not found, using environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	zapLogger, err := initLogger(cfg.Log)
	if err != nil {
		log.Fatalf("Failed to init logger: %v", err)
	}
	defer zapLogger.Sync()

	zapLogger.Info("Starting production engine",
		zap.String("version", Version),
		zap.String("build_time", BuildTime),
	)

	db, err := initDatabase(cfg.Database)
	if err != nil {
		zapLogger.Fatal("Failed to connect to database", zap.Error(err))
	}

	if err := entity.AutoMigrate(db); err != nil {
		zapLogger.Fatal("Failed to auto-migrate tables", zap.Error(err))
	}
	zapLogger.Info("Database migration completed")

	// Redis é opcional: sem ele o cache quente de custo fica desligado e
	// tudo segue pelo Postgres.
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr(),
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
		PoolSize: cfg.Redis.PoolSize,
	})
	if err := rdb.Ping(context.Background()).Err(); err != nil {
		zapLogger.Warn("Redis unavailable, cost cache disabled", zap.Error(err))
		rdb = nil
	}

	repos := repository.NewRepositories(db)
	services := service.NewServices(db, repos, rdb, service.Options{
		DefaultCostingMethod: cfg.Costing.DefaultMethod,
		CostCacheTTL:         cfg.Costing.CacheTTLSeconds,
	})
	handlers := handler.NewHandlers(services)

	if cfg.Server.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.Logger(zapLogger))
	router.Use(middleware.CORS())
	router.Use(middleware.RequestID())
	router.Use(gzip.Gzip(gzip.DefaultCompression))

	router.GET("/health/live", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "service": "sales-pdv-backend"})
	})
	router.GET("/health/ready", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "service": "sales-pdv-backend"})
	})

	router.GET("/version", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"service":    "sales-pdv-backend",
			"version":    Version,
			"build_time": BuildTime,
		})
	})

	v1 := router.Group("/api/v1")
	v1.Use(middleware.JWTAuth(cfg.JWT.Secret))
	{
		// Insumos
		materials := v1.Group("/materials")
		{
			materials.GET("", handlers.Catalog.ListMaterials)
			materials.POST("", handlers.Catalog.CreateMaterial)
			materials.GET("/low-stock", handlers.Catalog.ListLowStock)
			materials.GET("/:id", handlers.Catalog.GetMaterial)
			materials.PUT("/:id", handlers.Catalog.UpdateMaterial)
			materials.DELETE("/:id", middleware.RequireRole("manager"), handlers.Catalog.DeleteMaterial)
			materials.GET("/:id/availability", handlers.Catalog.CheckAvailability)
			materials.GET("/:id/conversions", handlers.Catalog.ListConversionRules)
		}

		// Lotes de insumo
		batches := v1.Group("/batches")
		{
			batches.GET("", handlers.Catalog.ListBatches)
			batches.POST("", handlers.Catalog.ReceiveBatch)
		}

		// Regras de conversão por insumo
		v1.POST("/conversions", handlers.Catalog.AddConversionRule)
		v1.DELETE("/conversions/:id", middleware.RequireRole("manager"), handlers.Catalog.DeleteConversionRule)

		// Ficha técnica e custeio do produto
		products := v1.Group("/products")
		{
			products.GET("/:id/bom", handlers.Catalog.GetRecipe)
			products.POST("/:id/bom", handlers.Catalog.AddBomLine)
			products.GET("/:id/bom/scale", handlers.Catalog.ScaleRecipe)
			products.GET("/:id/consumption", handlers.Costing.SimulateConsumption)
			products.POST("/:id/suggested-price", handlers.Costing.SuggestedPrice)
			products.GET("/:id/cost-history", handlers.Costing.CostHistory)
		}
		v1.DELETE("/bom/:id", handlers.Catalog.DeleteBomLine)

		// Ordens de produção
		orders := v1.Group("/production-orders")
		{
			orders.GET("", handlers.Production.List)
			orders.POST("", handlers.Production.Create)
			orders.GET("/:id", handlers.Production.Get)
			orders.DELETE("/:id", middleware.RequireRole("manager"), handlers.Production.Delete)
			orders.POST("/:id/start", handlers.Production.Start)
			orders.POST("/:id/finish", handlers.Production.Finish)
			orders.POST("/:id/cancel", handlers.Production.Cancel)
			orders.GET("/:id/consumptions", handlers.Production.ListConsumptions)
		}
	}

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		zapLogger.Info("Server starting", zap.Int("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			zapLogger.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	// desligamento gracioso
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	zapLogger.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		zapLogger.Error("Server forced to shutdown", zap.Error(err))
	}

	zapLogger.Info("Server exited")
}

func initLogger(cfg config.LogConfig) (*zap.Logger, error) {
	var zapCfg zap.Config
	if cfg.Format == "json" {
		zapCfg = zap.NewProductionConfig()
	} else {
		zapCfg = zap.NewDevelopmentConfig()
	}
	switch cfg.Level {
	case "debug":
		zapCfg.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	case "info":
		zapCfg.Level = zap.NewAtomicLevelAt(zap.InfoLevel)
	case "warn":
		zapCfg.Level = zap.NewAtomicLevelAt(zap.WarnLevel)
	case "error":
		zapCfg.Level = zap.NewAtomicLevelAt(zap.ErrorLevel)
	}
	return zapCfg.Build()
}

func initDatabase(cfg config.DatabaseConfig) (*gorm.DB, error) {
	gormConfig := &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	}
	db, err := gorm.Open(postgres.Open(cfg.DSN()), gormConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database instance: %w", err)
	}
	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	sqlDB.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)
	return db, nil
}
