package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/go-playground/validator/v10"
	"github.com/go-redis/redis/v8"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"wellness-notify/internal/listeners"
	"wellness-notify/internal/repositories"
	"wellness-notify/internal/routes"
	"wellness-notify/internal/services"
	"wellness-notify/pkg/config"
	"wellness-notify/pkg/database/postgresql"
	apperrors "wellness-notify/pkg/errors"
	"wellness-notify/pkg/eventbus"
	applogger "wellness-notify/pkg/logger"
	"wellness-notify/pkg/service"
	"wellness-notify/pkg/utils"
	appwebsocket "wellness-notify/pkg/websocket"
)

func main() {
	cfg := config.New()
	logger := applogger.NewLogger(cfg.Log.Level, cfg.Log.File)
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	e := echo.New()
	e.HideBanner = true

	e.Use(middleware.RecoverWithConfig(middleware.RecoverConfig{
		DisableStackAll: true,
		StackSize:       1 << 10,
		LogErrorFunc: func(c echo.Context, err error, stack []byte) error {
			logger.Error("!!! ОБНАРУЖЕНА ПАНИКА (PANIC) !!!",
				zap.String("method", c.Request().Method),
				zap.String("uri", c.Request().RequestURI),
				zap.Error(err),
				zap.String("stack", string(stack)),
			)
			if !c.Response().Committed {
				_ = utils.ErrorResponse(c, fmt.Errorf("%w: %v", apperrors.ErrInternalServer, err), logger)
			}
			return err
		},
	}))

	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins:  cfg.Server.AllowedOrigins,
		AllowMethods:  []string{http.MethodGet, http.MethodPut, http.MethodOptions},
		AllowHeaders:  []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, echo.HeaderAuthorization},
		ExposeHeaders: []string{"Content-Disposition"},
	}))

	v := validator.New()
	e.Validator = utils.NewValidator(v)

	dbConn, err := postgresql.ConnectDB(ctx, cfg.Postgres.DSN, logger)
	if err != nil {
		logger.Fatal("не удалось подключиться к базе данных", zap.Error(err))
	}
	defer dbConn.Close()

	if err := postgresql.Migrate(dbConn, logger); err != nil {
		logger.Fatal("не удалось применить миграции", zap.Error(err))
	}

	var cacheRepo repositories.CacheRepositoryInterface
	if cfg.Redis.Address != "" {
		redisClient := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Address,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer redisClient.Close()
		if _, err := redisClient.Ping(ctx).Result(); err != nil {
			logger.Fatal("не удалось подключиться к Redis", zap.Error(err), zap.String("address", cfg.Redis.Address))
		}
		cacheRepo = repositories.NewRedisCacheRepository(redisClient)
	} else {
		logger.Info("REDIS_ADDRESS не задан, счетчики кешируются в памяти процесса")
		cacheRepo = repositories.NewMemoryCacheRepository(cfg.Notifications.UnreadCacheTTL, 2*cfg.Notifications.UnreadCacheTTL)
	}

	jwtSvc := service.NewJWTService(cfg.JWT.SecretKey, cfg.JWT.AccessTokenTTL, logger)

	registry := appwebsocket.NewRegistry(logger.Named("registry"))
	dispatcher := appwebsocket.NewDispatcher(registry, logger.Named("dispatcher"))

	notificationRepo := repositories.NewNotificationRepository(dbConn, logger)
	notificationService := services.NewNotificationService(
		notificationRepo,
		cacheRepo,
		dispatcher,
		v,
		cfg.Notifications.UnreadCacheTTL,
		cfg.Notifications.ListLimit,
		logger.Named("notifications"),
	)

	bus := eventbus.New(logger.Named("eventbus"))
	listeners.NewNotificationListener(notificationService, logger.Named("listener")).Register(bus)

	routes.InitRouter(e, routes.Dependencies{
		BaseCtx:             ctx,
		NotificationService: notificationService,
		Registry:            registry,
		JWTService:          jwtSvc,
		Bus:                 bus,
	}, &routes.Loggers{
		Main:         logger,
		Auth:         logger.Named("auth"),
		Notification: logger.Named("notifications"),
		WebSocket:    logger.Named("websocket"),
	}, cfg)

	g, gCtx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("🚀 Сервер запущен", zap.String("port", cfg.Server.Port), zap.String("ws", cfg.WebSocket.Path))
		if err := e.Start(":" + cfg.Server.Port); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gCtx.Done()
		logger.Info("Получен сигнал остановки, сервер завершает работу")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()

		if err := e.Shutdown(shutdownCtx); err != nil {
			logger.Error("Ошибка остановки HTTP-сервера", zap.Error(err))
		}
		if err := bus.Wait(shutdownCtx); err != nil {
			logger.Warn("Не все обработчики событий завершились", zap.Error(err))
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		logger.Fatal("Ошибка запуска сервера", zap.Error(err))
	}
	logger.Info("Сервер остановлен")
}
