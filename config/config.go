package config

import (
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

type Config struct {
	Server   ServerConfig
	DB       DBConfig
	Paystack PaystackConfig
}

type ServerConfig struct {
	Port      int
	StaticDir string
}

type DBConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Database string
}

type PaystackConfig struct {
	SecretKey   string
	BaseURL     string
	CallbackURL string // where the gateway sends the customer after hosted checkout
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	port, _ := strconv.Atoi(getEnv("PORT", "4000"))
	dbPort, _ := strconv.Atoi(getEnv("DB_PORT", "5432"))

	return &Config{
		Server: ServerConfig{
			Port:      port,
			StaticDir: getEnv("STATIC_DIR", "public"),
		},
		DB: DBConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     dbPort,
			User:     getEnv("DB_USER", "postgres"),
			Password: getEnv("DB_PASSWORD", ""),
			Database: getEnv("DB_NAME", "restaurant_chatbot"),
		},
		Paystack: PaystackConfig{
			SecretKey:   getEnv("PAYSTACK_SECRET_KEY", ""),
			BaseURL:     getEnv("PAYSTACK_BASE_URL", "https://api.paystack.co"),
			CallbackURL: getEnv("PAYMENT_CALLBACK_URL", ""),
		},
	}, nil
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
