package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

type Config struct {
	Port                 string
	AllowedOrigin        string
	LogLevel             string
	DatabaseURL          string
	RedisAddr            string
	RedisPassword        string
	RedisDB              int
	StateKeyPrefix       string
	SeedDemoData         bool
	DefaultMarginPercent decimal.Decimal
	PhoneRegion          string
	BusyLockTTLSeconds   int

	GeminiAPIKey       string
	GeminiModel        string
	GeminiBaseURL      string
	InsightsTTLSeconds int

	Backup BackupConfig
}

type BackupConfig struct {
	Provider           string
	GCSBucket          string
	GCSCredentialsJSON string
	S3Bucket           string
	S3Region           string
	S3Endpoint         string
	S3AccessKey        string
	S3SecretKey        string
	S3UsePathStyle     bool
}

func Load() Config {
	redisDB, _ := strconv.Atoi(getEnv("REDIS_DB", "0"))
	lockTTL, err := strconv.Atoi(getEnv("BUSY_LOCK_TTL_SECONDS", "30"))
	if err != nil || lockTTL < 1 {
		lockTTL = 30
	}
	insightsTTL, err := strconv.Atoi(getEnv("INSIGHTS_TTL_SECONDS", "900"))
	if err != nil || insightsTTL < 1 {
		insightsTTL = 900
	}
	margin, err := decimal.NewFromString(getEnv("DEFAULT_MARGIN_PERCENT", "35"))
	if err != nil || margin.IsNegative() {
		margin = decimal.NewFromInt(35)
	}

	cfg := Config{
		Port:                 getEnv("PORT", "8080"),
		AllowedOrigin:        getEnv("ALLOWED_ORIGIN", "http://127.0.0.1:3000"),
		LogLevel:             getEnv("LOG_LEVEL", "info"),
		DatabaseURL:          os.Getenv("DATABASE_URL"),
		RedisAddr:            os.Getenv("REDIS_ADDR"),
		RedisPassword:        os.Getenv("REDIS_PASSWORD"),
		RedisDB:              redisDB,
		StateKeyPrefix:       getEnv("STATE_KEY_PREFIX", "mercadinho:"),
		SeedDemoData:         getBool("SEED_DEMO_DATA", true),
		DefaultMarginPercent: margin,
		PhoneRegion:          strings.ToUpper(getEnv("PHONE_REGION", "BR")),
		BusyLockTTLSeconds:   lockTTL,
		GeminiAPIKey:         strings.TrimSpace(os.Getenv("GEMINI_API_KEY")),
		GeminiModel:          getEnv("GEMINI_MODEL", "gemini-3-flash-preview"),
		GeminiBaseURL:        getEnv("GEMINI_BASE_URL", "https://generativelanguage.googleapis.com"),
		InsightsTTLSeconds:   insightsTTL,
		Backup: BackupConfig{
			Provider:           strings.ToLower(strings.TrimSpace(os.Getenv("BACKUP_PROVIDER"))),
			GCSBucket:          os.Getenv("GCS_BUCKET"),
			GCSCredentialsJSON: os.Getenv("GCS_CREDENTIALS_JSON"),
			S3Bucket:           os.Getenv("S3_BUCKET"),
			S3Region:           getEnv("S3_REGION", "us-east-1"),
			S3Endpoint:         os.Getenv("S3_ENDPOINT"),
			S3AccessKey:        os.Getenv("S3_ACCESS_KEY"),
			S3SecretKey:        os.Getenv("S3_SECRET_KEY"),
			S3UsePathStyle:     getBool("S3_USE_PATH_STYLE", false),
		},
	}

	return cfg
}

func (c Config) Address() string {
	return fmt.Sprintf(":%s", c.Port)
}

func getEnv(key string, fallback string) string {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	return val
}

func getBool(key string, fallback bool) bool {
	val, err := strconv.ParseBool(strings.TrimSpace(os.Getenv(key)))
	if err != nil {
		return fallback
	}
	return val
}
