package config

import (
	"errors"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config 运行配置，全部来自环境变量（可由 .env 提供）
type Config struct {
	Port        string
	DBDriver    string // postgres | sqlite
	DatabaseURL string
	GinMode     string
	LogMode     string

	SecretKey string
	TokenTTL  time.Duration

	WechatAppID  string
	WechatSecret string
	AuthDevMode  bool // 开发模式：不调用微信接口，按 code 生成模拟身份

	CORSOrigins []string
}

// Load 读取 .env 与系统环境变量
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, finding env vars from system")
	}

	cfg := &Config{
		Port:         getEnv("PORT", "8080"),
		DBDriver:     strings.ToLower(getEnv("DB_DRIVER", "postgres")),
		DatabaseURL:  os.Getenv("DATABASE_URL"),
		GinMode:      getEnv("GIN_MODE", "debug"),
		LogMode:      getEnv("LOG_MODE", "dev"),
		SecretKey:    os.Getenv("SECRET_KEY"),
		TokenTTL:     getDuration("TOKEN_TTL", 7*24*time.Hour),
		WechatAppID:  os.Getenv("WECHAT_APPID"),
		WechatSecret: os.Getenv("WECHAT_SECRET"),
		AuthDevMode:  getBool("AUTH_DEV_MODE", false),
		CORSOrigins:  splitList(getEnv("CORS_ORIGINS", "http://localhost:3000,http://127.0.0.1:3000")),
	}

	if cfg.DatabaseURL == "" {
		switch cfg.DBDriver {
		case "sqlite":
			cfg.DatabaseURL = "coursehub.db"
		default:
			// Fallback for local dev if not set
			cfg.DatabaseURL = "host=localhost user=postgres password=postgres dbname=coursehub port=5432 sslmode=disable TimeZone=Asia/Shanghai"
		}
	}

	if cfg.SecretKey == "" {
		if !cfg.AuthDevMode {
			return nil, errors.New("SECRET_KEY is required unless AUTH_DEV_MODE is enabled")
		}
		cfg.SecretKey = "dev_secret_key_change_me"
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func getBool(key string, fallback bool) bool {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return b
}

func getDuration(key string, fallback time.Duration) time.Duration {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
