package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"student-services/config"
	"student-services/internal/auth"
	"student-services/internal/bot"
	"student-services/internal/cache"
	"student-services/internal/feed"
	"student-services/internal/handlers"
	"student-services/internal/middleware"
	"student-services/internal/notify"
	"student-services/internal/outbox"
	"student-services/internal/routes"
	"student-services/internal/seed"
	"student-services/internal/services"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

func main() {
	config.SetupLogger()
	settings := config.Load()
	if settings.GinMode != "" {
		gin.SetMode(settings.GinMode)
	}

	config.ConnectDB(settings)
	config.ConnectRedis(settings)

	if err := seed.SuperAdmin(config.DB, settings.SuperAdminName, settings.SuperAdminPhone, settings.SuperAdminPassword); err != nil {
		slog.Error("Не удалось создать SuperAdmin", "error", err)
		os.Exit(1)
	}
	if err := seed.Designs(config.DB); err != nil {
		slog.Error("Не удалось добавить оформления", "error", err)
		os.Exit(1)
	}

	producer, err := config.ConnectKafka(settings)
	if err != nil {
		slog.Error("Kafka недоступна, события останутся в outbox", "error", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	hub := feed.NewHub()
	go hub.Run(ctx)

	notifyOpts := services.NotificationOptions{
		Feed:         hub,
		AdminChatIDs: settings.AdminTelegramIDs,
		AdminEmails:  settings.AdminEmails,
	}
	var telegram *notify.Telegram
	botAPI := config.ConnectTelegram(settings)
	if botAPI != nil {
		telegram = notify.NewTelegram(botAPI)
		notifyOpts.Telegram = telegram
	}
	if settings.SMTPHost != "" {
		notifyOpts.Mail = notify.NewMailer(settings.SMTPHost, settings.SMTPPort, settings.SMTPUser, settings.SMTPPassword, settings.SMTPSender)
	}

	userCache := cache.NewUserCache(config.RDB)
	tokens := auth.NewTokenIssuer(settings.JWTSecret, settings.JWTTTL)

	notifications := services.NewNotificationService(config.DB, notifyOpts)
	users := services.NewUserService(config.DB, tokens, services.UserOptions{
		Attempts:    cache.NewAttemptLimiter(config.RDB),
		CodeTTL:     settings.VerificationTTL,
		MaxAttempts: settings.MaxVerifyAttempts,
	})
	admins := services.NewAdminService(config.DB, notifications, userCache)
	payments := services.NewPaymentService(config.DB, notifications, settings.UploadDir)
	designs := services.NewDesignService(config.DB)
	apiKeys := services.NewAPIKeyService(config.DB)
	presentationOpts := services.PresentationOptions{
		Generator:    services.NewKeyPoolGenerator(apiKeys, services.GeminiFactory(settings.GeminiModel)),
		UploadDir:    settings.UploadDir,
		DocumentsDir: settings.DocumentsDir,
		PricePerPage: settings.PricePerPage,
	}
	if telegram != nil {
		presentationOpts.Documents = telegram
	}
	presentations := services.NewPresentationService(config.DB, notifications, presentationOpts)

	if botAPI != nil {
		go bot.New(telegram, users).Run(ctx, botAPI)
	}
	if producer != nil {
		go outbox.NewRelay(config.DB, producer, settings.KafkaPaymentsTopic, settings.OutboxInterval).Run(ctx)
	}

	r := gin.Default()
	r.MaxMultipartMemory = 16 << 20
	r.Use(cors.New(cors.Config{
		AllowOrigins:     settings.CORSOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		ExposeHeaders:    []string{"Content-Length", "Content-Disposition"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	routes.SetupRoutes(r, &routes.Handlers{
		Auth:          handlers.NewAuthHandler(users, settings.JWTTTL),
		Payments:      handlers.NewPaymentHandler(payments),
		Users:         handlers.NewUserHandler(users, admins),
		Notifications: handlers.NewNotificationHandler(notifications),
		Designs:       handlers.NewDesignHandler(designs),
		Presentations: handlers.NewPresentationHandler(presentations),
		APIKeys:       handlers.NewAPIKeyHandler(apiKeys),
		Feed:          hub,
		RequireAuth:   middleware.AuthMiddleware(tokens, users, userCache),
	})

	srv := &http.Server{
		Addr:              ":" + settings.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		slog.Info("Сервер запущен", "port", settings.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("Ошибка запуска сервера", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	slog.Info("Останавливаем сервер...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("Ошибка при остановке сервера", "error", err)
	}
	if producer != nil {
		if err := producer.Close(); err != nil {
			slog.Error("Ошибка закрытия Kafka producer", "error", err)
		}
	}
	if config.RDB != nil {
		config.RDB.Close()
	}
	slog.Info("Сервер остановлен")
}
