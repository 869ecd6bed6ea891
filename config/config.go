package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Database DatabaseConfig
	Redis    RedisConfig
	Engine   EngineConfig
	Gateway  GatewayConfig
	Notifier NotifierConfig
}

type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	SSLMode  string
}

type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
}

// EngineConfig holds the raffle engine knobs: how long a reservation is
// held before the sweeper reclaims it, and how often the background sweep
// runs.
type EngineConfig struct {
	ReservationWindow time.Duration
	SweepInterval     time.Duration
}

// GatewayConfig is the payment gateway (PIX) credential set.
type GatewayConfig struct {
	BaseURL     string
	AccessToken string
	PixKey      string
	WebhookURL  string
}

// NotifierConfig covers the WhatsApp API used for buyer messages and the
// optional Telegram channel used for operator alerts.
type NotifierConfig struct {
	WhatsAppBaseURL  string
	WhatsAppAPIKey   string
	WhatsAppInstance string
	TelegramToken    string
	TelegramChatID   int64
}

var AppConfig *Config

func LoadConfig() *Config {
	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()

	AppConfig = &Config{
		Database: GetDatabaseConfig(),
		Redis:    GetRedisConfig(),
		Engine:   GetEngineConfig(),
		Gateway:  GetGatewayConfig(),
		Notifier: GetNotifierConfig(),
	}

	return AppConfig
}

func LoadTestConfig() *Config {
	testConfig := &DatabaseConfig{
		Host:     "localhost",
		Port:     "5433", // test DB runs on 5433
		User:     "postgres",
		Password: "postgres",
		DBName:   "test_db",
		SSLMode:  "disable",
	}

	testRedisConfig := RedisConfig{
		Host:     "localhost",
		Port:     "6380", // test Redis runs on 6380
		Password: "",
		DB:       1,
	}

	return &Config{
		Database: *testConfig,
		Redis:    testRedisConfig,
		Engine: EngineConfig{
			ReservationWindow: 15 * time.Minute,
			SweepInterval:     time.Minute,
		},
	}
}

func GetDatabaseConfig() DatabaseConfig {
	return DatabaseConfig{
		Host:     getEnv("DB_HOST", "localhost"),
		Port:     getEnv("DB_PORT", "5432"),
		User:     getEnv("DB_USER", "postgres"),
		Password: getEnv("DB_PASSWORD", "postgres"),
		DBName:   getEnv("DB_NAME", "postgres"),
		SSLMode:  getEnv("DB_SSL_MODE", "disable"),
	}
}

func GetRedisConfig() RedisConfig {
	db, err := strconv.Atoi(getEnv("REDIS_DB", "0"))
	if err != nil {
		panic(err)
	}

	return RedisConfig{
		Host:     getEnv("REDIS_HOST", "localhost"),
		Port:     getEnv("REDIS_PORT", "6379"),
		Password: getEnv("REDIS_PASSWORD", ""),
		DB:       db,
	}
}

func GetEngineConfig() EngineConfig {
	return EngineConfig{
		ReservationWindow: getEnvDuration("RESERVATION_WINDOW", 15*time.Minute),
		SweepInterval:     getEnvDuration("SWEEP_INTERVAL", time.Minute),
	}
}

func GetGatewayConfig() GatewayConfig {
	return GatewayConfig{
		BaseURL:     getEnv("GATEWAY_BASE_URL", ""),
		AccessToken: getEnv("GATEWAY_ACCESS_TOKEN", ""),
		PixKey:      getEnv("GATEWAY_PIX_KEY", ""),
		WebhookURL:  getEnv("GATEWAY_WEBHOOK_URL", ""),
	}
}

func GetNotifierConfig() NotifierConfig {
	chatID, err := strconv.ParseInt(getEnv("TELEGRAM_CHAT_ID", "0"), 10, 64)
	if err != nil {
		panic(err)
	}

	return NotifierConfig{
		WhatsAppBaseURL:  getEnv("WHATSAPP_API_URL", ""),
		WhatsAppAPIKey:   getEnv("WHATSAPP_API_KEY", ""),
		WhatsAppInstance: getEnv("WHATSAPP_INSTANCE", ""),
		TelegramToken:    getEnv("TELEGRAM_BOT_TOKEN", ""),
		TelegramChatID:   chatID,
	}
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		panic(err)
	}
	return d
}
