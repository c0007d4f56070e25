// internal/config/config.go
package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type DBConfig struct {
	Host         string
	Port         string
	User         string
	Password     string
	DBName       string
	SSLMode      string
	MaxOpenConns int
	MaxIdleConns int
	ConnLifetime time.Duration
}

type Config struct {
	Telegram struct {
		Token string
	}
	DB  DBConfig
	GPT struct {
		APIKey      string
		Model       string
		MaxTokens   int
		Temperature float32
	}
	Gym struct {
		AdminChatID    string
		GymName        string
		WelcomeMessage string
		PriceToman     int64
		PriceTon       float64
		BankCard       string
		CardOwner      string
		TonWallet      string
	}
	Server struct {
		Port string
	}
	ShutdownTimeout time.Duration
}

// Load reads configuration from a config file if one exists, otherwise from
// environment variables. A .env file is honored either way.
func Load() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("$HOME/.fitness-bot")

	v.SetDefault("ShutdownTimeout", 10*time.Second)
	v.SetDefault("GPT.Model", "gpt-3.5-turbo")
	v.SetDefault("GPT.MaxTokens", 1600)
	v.SetDefault("GPT.Temperature", 0.7)
	v.SetDefault("Server.Port", "8080")
	v.SetDefault("DB.MaxOpenConns", 20)
	v.SetDefault("DB.MaxIdleConns", 10)
	v.SetDefault("DB.ConnLifetime", 5*time.Minute)

	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		// No config file: build everything from environment variables.
		return fromEnv(), nil
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}
	// AutomaticEnv does not feed Unmarshal for keys absent from the file, so
	// a partial config file still falls back to the environment per key.
	applyEnvFallbacks(&cfg)
	return &cfg, nil
}

func applyEnvFallbacks(cfg *Config) {
	if cfg.Telegram.Token == "" {
		cfg.Telegram.Token = os.Getenv("TELEGRAM_BOT_TOKEN")
	}
	if cfg.GPT.APIKey == "" {
		cfg.GPT.APIKey = os.Getenv("OPENAI_API_KEY")
	}
	if cfg.DB.Host == "" {
		cfg.DB.Host = getEnvOr("DB_HOST", "localhost")
	}
	if cfg.DB.Port == "" {
		cfg.DB.Port = getEnvOr("DB_PORT", "5432")
	}
	if cfg.DB.User == "" {
		cfg.DB.User = getEnvOr("DB_USER", "postgres")
	}
	if cfg.DB.Password == "" {
		cfg.DB.Password = getEnvOr("DB_PASSWORD", "postgres")
	}
	if cfg.DB.DBName == "" {
		cfg.DB.DBName = getEnvOr("DB_NAME", "fitness_bot")
	}
	if cfg.DB.SSLMode == "" {
		cfg.DB.SSLMode = getEnvOr("DB_SSL_MODE", "disable")
	}
	if cfg.Gym.AdminChatID == "" {
		cfg.Gym.AdminChatID = os.Getenv("ADMIN_CHAT_ID")
	}
	if cfg.Gym.GymName == "" {
		cfg.Gym.GymName = getEnvOr("GYM_NAME", "باشگاه نمونه")
	}
	if cfg.Gym.WelcomeMessage == "" {
		cfg.Gym.WelcomeMessage = getEnvOr("GYM_WELCOME", "به ربات خوش آمدید! 🏋️‍♂️")
	}
	if cfg.Gym.PriceToman == 0 {
		cfg.Gym.PriceToman = getEnvInt64Or("PRICE_TOMAN", 500000)
	}
	if cfg.Gym.PriceTon == 0 {
		cfg.Gym.PriceTon = getEnvFloatOr("PRICE_TON", 5.0)
	}
	if cfg.Gym.BankCard == "" {
		cfg.Gym.BankCard = getEnvOr("BANK_CARD_NUMBER", "----")
	}
	if cfg.Gym.CardOwner == "" {
		cfg.Gym.CardOwner = getEnvOr("CARD_OWNER_NAME", "----")
	}
	if cfg.Gym.TonWallet == "" {
		cfg.Gym.TonWallet = getEnvOr("TON_WALLET", "ton://----")
	}
	if cfg.Server.Port == "" {
		cfg.Server.Port = getEnvOr("PORT", "8080")
	}
}

func fromEnv() *Config {
	cfg := &Config{}

	cfg.DB.MaxOpenConns = 20
	cfg.DB.MaxIdleConns = 10
	cfg.DB.ConnLifetime = 5 * time.Minute

	cfg.GPT.Model = getEnvOr("GPT_MODEL", "gpt-3.5-turbo")
	cfg.GPT.MaxTokens = 1600
	cfg.GPT.Temperature = 0.7

	cfg.ShutdownTimeout = 10 * time.Second

	applyEnvFallbacks(cfg)
	return cfg
}

// AdminIDs parses the comma-separated admin allow-list into an immutable set.
// Malformed entries are skipped.
func (c *Config) AdminIDs() map[int64]struct{} {
	ids := make(map[int64]struct{})
	for _, part := range strings.Split(c.Gym.AdminChatID, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		id, err := strconv.ParseInt(part, 10, 64)
		if err != nil {
			continue
		}
		ids[id] = struct{}{}
	}
	return ids
}

func getEnvOr(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt64Or(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.ParseInt(value, 10, 64); err == nil {
			return n
		}
	}
	return defaultValue
}

func getEnvFloatOr(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}
