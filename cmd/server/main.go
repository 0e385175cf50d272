package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"

	"github.com/iliyamo/equipment-rental/internal/config"
	"github.com/iliyamo/equipment-rental/internal/database"
	"github.com/iliyamo/equipment-rental/internal/handler"
	"github.com/iliyamo/equipment-rental/internal/logger"
	"github.com/iliyamo/equipment-rental/internal/mailer"
	"github.com/iliyamo/equipment-rental/internal/media"
	"github.com/iliyamo/equipment-rental/internal/middleware"
	"github.com/iliyamo/equipment-rental/internal/queue"
	"github.com/iliyamo/equipment-rental/internal/repository"
	"github.com/iliyamo/equipment-rental/internal/router"
	"github.com/iliyamo/equipment-rental/internal/service"
)

// orderLogDir receives logs/orders.log from the order consumer.
const orderLogDir = "logs"

func main() {
	_ = godotenv.Load() // .env is optional; real environment wins
	cfg := config.Load()

	zl, err := logger.Init(cfg.IsProduction())
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer logger.Sync(zl)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		zl.Fatal("database", zap.Error(err))
	}
	defer db.Close()
	if cfg.AutoMigrate {
		if err := database.Migrate(ctx, db); err != nil {
			zl.Fatal("migrate", zap.Error(err))
		}
	}

	rdb := config.NewRedisClient()
	if rdb == nil {
		zl.Warn("redis unavailable; rate limiting in-process, response cache off")
	} else {
		defer rdb.Close()
	}

	users := repository.NewUserRepo(db)
	tokens := repository.NewTokenRepo(db)
	equipment := repository.NewEquipmentRepo(db)
	orders := repository.NewOrderRepo(db)

	if n, err := tokens.PurgeExpired(ctx, time.Now()); err != nil {
		zl.Warn("purge expired tokens", zap.Error(err))
	} else if n > 0 {
		zl.Info("purged expired tokens", zap.Int64("count", n))
	}

	store := media.NewLocalStorage(cfg.Media.Root, cfg.Media.PublicPrefix, cfg.AppURL, cfg.Media.MaxBytes)

	// Without a broker the queue mail driver is refused by mailer.New and
	// order events are skipped.
	var (
		pub    *queue.Publisher
		events service.OrderEvents
	)
	if cfg.Mail.QueueEnabled() {
		pub = queue.NewPublisher(cfg.Mail.RabbitMQURL, zl)
		events = pub
	} else {
		zl.Warn("rabbitmq not configured; order events disabled")
	}

	notifier, smtpMailer, err := mailer.New(cfg.Mail, pub, zl)
	if err != nil {
		zl.Fatal("mailer", zap.Error(err))
	}
	if cfg.Mail.QueueEnabled() && cfg.Mail.Driver == "queue" {
		go func() {
			if err := queue.StartMailConsumer(ctx, cfg.Mail.RabbitMQURL, smtpMailer, zl); err != nil && !errors.Is(err, context.Canceled) {
				zl.Error("mail consumer stopped", zap.Error(err))
			}
		}()
	}
	if cfg.Mail.QueueEnabled() {
		go func() {
			if err := queue.StartOrderLogConsumer(ctx, cfg.Mail.RabbitMQURL, orderLogDir, zl); err != nil && !errors.Is(err, context.Canceled) {
				zl.Error("order consumer stopped", zap.Error(err))
			}
		}()
	}

	maxKB := cfg.Media.MaxBytes / 1024
	authSvc := service.NewAuthService(users, tokens, store, notifier, service.AuthConfig{
		JWTSecret:    cfg.JWTSecret,
		TokenTTLMin:  cfg.AccessTTLMin,
		BcryptCost:   cfg.BcryptCost,
		DefaultImage: cfg.Media.DefaultImage,
		MaxUploadKB:  maxKB,
	}, zl)
	equipmentSvc := service.NewEquipmentService(equipment, store, maxKB, zl)
	orderSvc := service.NewOrderService(orders, equipment, store, events, zl)

	e := echo.New()
	e.HideBanner = true
	e.Use(echomw.Recover())
	e.Use(echomw.RequestID())
	e.Use(middleware.RequestLogger(zl))
	e.Use(echomw.CORS())

	router.Register(e, router.Deps{
		Auth:          handler.NewAuthHandler(authSvc, zl),
		Users:         handler.NewUserHandler(authSvc, zl),
		Equipment:     handler.NewEquipmentHandler(equipmentSvc, zl),
		Orders:        handler.NewOrderHandler(orderSvc, zl),
		Authenticator: authSvc,
		Redis:         rdb,
		RateLimit:     config.LoadRateLimitConfig(),
		Cache:         config.LoadCacheConfig(),
		MediaRoot:     cfg.Media.Root,
		MediaPrefix:   cfg.Media.PublicPrefix,
		Log:           zl,
	})

	addr := ":" + cfg.Port
	go func() {
		zl.Info("listening", zap.String("addr", addr), zap.String("env", cfg.Env))
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zl.Fatal("server", zap.Error(err))
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		zl.Error("shutdown", zap.Error(err))
	}
}
