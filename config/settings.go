package config

import (
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Settings - конфигурация приложения, собранная из переменных окружения.
type Settings struct {
	Port        string
	GinMode     string
	CORSOrigins []string

	DBDriver  string
	DBURL     string
	RedisAddr string

	JWTSecret []byte
	JWTTTL    time.Duration

	TelegramToken    string
	AdminTelegramIDs []int64

	AdminEmails  []string
	SMTPHost     string
	SMTPPort     int
	SMTPUser     string
	SMTPPassword string
	SMTPSender   string

	KafkaBrokers       []string
	KafkaPaymentsTopic string
	OutboxInterval     time.Duration

	UploadDir    string
	DocumentsDir string

	GeminiModel       string
	PricePerPage      int64
	VerificationTTL   time.Duration
	MaxVerifyAttempts int

	SuperAdminName     string
	SuperAdminPhone    string
	SuperAdminPassword string
}

// JwtKey используется middleware и сервисом выдачи токенов.
var JwtKey []byte

// Load читает .env (если есть) и переменные окружения.
func Load() *Settings {
	if err := godotenv.Load(); err != nil {
		slog.Debug(".env файл не найден, используются только переменные окружения")
	}

	s := &Settings{
		Port:               getEnv("PORT", "8080"),
		GinMode:            os.Getenv("GIN_MODE"),
		CORSOrigins:        splitList(getEnv("CORS_ORIGINS", "*")),
		DBDriver:           getEnv("DB_DRIVER", "postgres"),
		DBURL:              os.Getenv("DB_URL"),
		RedisAddr:          os.Getenv("REDIS_ADDR"),
		JWTSecret:          []byte(os.Getenv("JWT_SECRET")),
		JWTTTL:             getDuration("JWT_TTL", 24*time.Hour),
		TelegramToken:      os.Getenv("TELEGRAM_BOT_TOKEN"),
		AdminTelegramIDs:   parseIDs(os.Getenv("ADMIN_TELEGRAM_IDS")),
		AdminEmails:        splitList(os.Getenv("ADMIN_EMAILS")),
		SMTPHost:           os.Getenv("SMTP_HOST"),
		SMTPPort:           getInt("SMTP_PORT", 465),
		SMTPUser:           os.Getenv("SMTP_USER"),
		SMTPPassword:       os.Getenv("SMTP_PASS"),
		SMTPSender:         os.Getenv("SMTP_SENDER"),
		KafkaBrokers:       splitList(os.Getenv("KAFKA_BROKERS")),
		KafkaPaymentsTopic: getEnv("KAFKA_TOPIC_PAYMENTS", "payments.events"),
		OutboxInterval:     getDuration("OUTBOX_INTERVAL", 5*time.Second),
		UploadDir:          getEnv("UPLOAD_DIR", "static/uploads"),
		DocumentsDir:       getEnv("DOCUMENTS_DIR", "static/documents"),
		GeminiModel:        getEnv("GEMINI_MODEL", "gemini-1.5-flash"),
		PricePerPage:       int64(getInt("PRESENTATION_PRICE_PER_PAGE", 1000)),
		VerificationTTL:    getDuration("VERIFICATION_TTL", 5*time.Minute),
		MaxVerifyAttempts:  getInt("VERIFICATION_MAX_ATTEMPTS", 5),
		SuperAdminName:     os.Getenv("SUPERADMIN_NAME"),
		SuperAdminPhone:    os.Getenv("SUPERADMIN_PHONE"),
		SuperAdminPassword: os.Getenv("SUPERADMIN_PASSWORD"),
	}

	if len(s.JWTSecret) == 0 {
		slog.Warn("JWT_SECRET не задан, используется небезопасный ключ для разработки")
		s.JWTSecret = []byte("dev-secret")
	}
	JwtKey = s.JWTSecret

	return s
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		slog.Warn("Некорректное числовое значение переменной", "key", key, "value", v)
		return fallback
	}
	return n
}

func getDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		slog.Warn("Некорректная длительность в переменной", "key", key, "value", v)
		return fallback
	}
	return d
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func parseIDs(v string) []int64 {
	var ids []int64
	for _, part := range splitList(v) {
		id, err := strconv.ParseInt(part, 10, 64)
		if err != nil {
			slog.Warn("Пропущен некорректный Telegram ID администратора", "value", part)
			continue
		}
		ids = append(ids, id)
	}
	return ids
}
