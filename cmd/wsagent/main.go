package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"wellness-notify/internal/entities"
	"wellness-notify/pkg/config"
	applogger "wellness-notify/pkg/logger"
	"wellness-notify/pkg/service"
	"wellness-notify/pkg/wsclient"
)

func main() {
	wsURL := flag.String("url", "ws://localhost:8080/ws", "Адрес канала доставки")
	apiURL := flag.String("api", "http://localhost:8080", "База REST API для сверки, пусто - без сверки")
	userID := flag.Uint64("user", 0, "userId для identify")
	token := flag.String("token", "", "JWT для REST API и ?token=")
	devToken := flag.Bool("dev-token", false, "Выпустить токен для -user ключом JWT_SECRET_KEY из окружения")
	ping := flag.Duration("ping", 25*time.Second, "Период ping-кадров")
	poll := flag.Duration("poll", time.Minute, "Период резервного опроса, 0 - без опроса")
	backoffBase := flag.Duration("backoff", time.Second, "Начальная пауза переподключения")
	backoffMax := flag.Duration("backoff-max", 30*time.Second, "Предел паузы переподключения")
	constant := flag.Bool("constant", false, "Постоянная пауза вместо экспоненциальной")
	markRead := flag.Bool("mark-read", false, "Сразу отмечать полученные уведомления прочитанными")
	flag.Parse()

	if *userID == 0 {
		log.Println("❌ Не указан -user.")
		flag.PrintDefaults()
		return
	}

	cfg := config.New()
	logger := applogger.NewLogger(cfg.Log.Level, cfg.Log.File)
	defer func() { _ = logger.Sync() }()

	if *devToken {
		issued, err := service.NewJWTService(cfg.JWT.SecretKey, cfg.JWT.AccessTokenTTL, logger).GenerateAccessToken(*userID)
		if err != nil {
			logger.Fatal("Не удалось выпустить токен", zap.Error(err))
		}
		*token = issued
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var agent *wsclient.Agent
	onNotification := func(n entities.Notification) {
		logger.Info("🔔 Уведомление",
			zap.String("id", n.ID),
			zap.String("type", n.Type.String()),
			zap.String("title", n.Title),
			zap.String("message", n.Message),
			zap.Bool("isRead", n.IsRead),
		)
		if *markRead && !n.IsRead && *apiURL != "" {
			go func() {
				if _, err := agent.MarkRead(ctx, n.ID); err != nil {
					logger.Warn("Не удалось отметить прочтение", zap.String("id", n.ID), zap.Error(err))
				}
			}()
		}
	}

	agent, err := wsclient.New(wsclient.Config{
		URL:          *wsURL,
		APIURL:       *apiURL,
		Token:        *token,
		UserID:       *userID,
		PingInterval: *ping,
		PollInterval: *poll,
		Backoff: wsclient.BackoffPolicy{
			Constant: *constant,
			Base:     *backoffBase,
			Max:      *backoffMax,
			Jitter:   *backoffBase / 2,
		},
		OnNotification: onNotification,
		Logger:         logger.Named("wsagent"),
	})
	if err != nil {
		logger.Fatal("Неверные параметры агента", zap.Error(err))
	}

	logger.Info("Агент запущен", zap.String("url", *wsURL), zap.Uint64("userID", *userID))
	if err := agent.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Fatal("Агент остановлен с ошибкой", zap.Error(err))
	}
	logger.Info("Агент остановлен")
}
