package config

import (
	"fmt"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
)

type Config struct {
	DBDSN       string `validate:"required"`
	Environment string `validate:"oneof=development production test"`
	LogLevel    string `validate:"omitempty,oneof=debug info warn error"`

	MeetingHost       string `validate:"required,hostname"`
	MeetingRoomPrefix string `validate:"required,alphanum"`

	RedisAddr     string `validate:"omitempty,hostname_port"`
	RedisPassword string
	LockTTL       time.Duration `validate:"gt=0"`

	SendGridAPIKey string
	MailFrom       string `validate:"required_with=SendGridAPIKey,omitempty,email"`
	AppName        string `validate:"required"`

	TelegramToken string
}

// Load читает .env (если он есть) и переменные окружения
func Load() (*Config, error) {
	return load(true)
}

// LoadOffline - то же без DB_DSN, для dry-run над фикстурой
func LoadOffline() (*Config, error) {
	return load(false)
}

func load(requireDB bool) (*Config, error) {
	// отсутствие .env - нормальная ситуация, значения берутся из окружения
	_ = godotenv.Load(".env")

	cfg := &Config{
		DBDSN:             os.Getenv("DB_DSN"),
		Environment:       getEnv("ENV", "development"),
		LogLevel:          os.Getenv("LOG_LEVEL"),
		MeetingHost:       getEnv("MEETING_HOST", "meet.jit.si"),
		MeetingRoomPrefix: getEnv("MEETING_ROOM_PREFIX", "tutoring"),
		RedisAddr:         os.Getenv("REDIS_ADDR"),
		RedisPassword:     os.Getenv("REDIS_PASSWORD"),
		SendGridAPIKey:    os.Getenv("SENDGRID_API_KEY"),
		MailFrom:          os.Getenv("MAIL_FROM"),
		AppName:           getEnv("APP_NAME", "Tutoring"),
		TelegramToken:     os.Getenv("TELEGRAM_TOKEN"),
	}

	ttl, err := time.ParseDuration(getEnv("LOCK_TTL", "30s"))
	if err != nil {
		return nil, fmt.Errorf("parse LOCK_TTL: %w", err)
	}
	cfg.LockTTL = ttl

	validate := validator.New()
	if requireDB {
		err = validate.Struct(cfg)
	} else {
		err = validate.StructExcept(cfg, "DBDSN")
	}
	if err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
