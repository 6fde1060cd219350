package config

import (
	"log"
	"os"
	"time"
)

type Config struct {
	Port           string
	DBDSN          string
	LogFile        string
	TemplatesDir   string
	APIBaseURL     string
	APITimeout     time.Duration
	StorageBackend string // sqlite | redis
	RedisURL       string
	UPIPayee       string
	UPIPayeeName   string
	AdminPin       string
	TagBaseURL     string
	SettleDelay    time.Duration
	RevertDelay    time.Duration
	Cooldown       time.Duration
	SessionIdleTTL time.Duration
}

func Load() Config {
	cfg := Config{
		Port:           env("PORT", "8080"),
		DBDSN:          env("DB_DSN", "tappinpay.db"), // sqlite file in project root
		LogFile:        env("LOG_FILE", "./tappinpay.log"),
		TemplatesDir:   env("TEMPLATES_DIR", "./web/templates"),
		APIBaseURL:     env("API_BASE_URL", "https://tap-pin-pay-nfc-backend.vercel.app/api"),
		APITimeout:     duration("API_TIMEOUT", 10*time.Second),
		StorageBackend: env("STORAGE_BACKEND", "sqlite"),
		RedisURL:       env("REDIS_URL", "redis://localhost:6379/0"),
		UPIPayee:       env("UPI_PAYEE", "asinghvns99-2@okicici"),
		UPIPayeeName:   env("UPI_PAYEE_NAME", "QR Scanner Store"),
		AdminPin:       os.Getenv("ADMIN_PIN"),
		TagBaseURL:     env("TAG_BASE_URL", "https://tap-pin-pay.vercel.app/product/"),
		SettleDelay:    duration("SETTLE_DELAY", 500*time.Millisecond),
		RevertDelay:    duration("REVERT_DELAY", 3*time.Second),
		Cooldown:       duration("COOLDOWN", 2*time.Second),
		SessionIdleTTL: duration("SESSION_IDLE_TTL", 30*time.Minute),
	}
	log.Printf("[config] PORT=%s DB_DSN=%s LOG_FILE=%s API_BASE_URL=%s STORAGE_BACKEND=%s",
		cfg.Port, cfg.DBDSN, cfg.LogFile, cfg.APIBaseURL, cfg.StorageBackend)
	return cfg
}

func env(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func duration(key string, def time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		log.Printf("[warn] bad %s=%q, using %s", key, v, def)
		return def
	}
	return d
}
