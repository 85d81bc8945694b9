package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	HTTPAddr string
	GinMode  string

	DBDriver string
	DBDSN    string

	JWTSecret string
	JWTTTL    time.Duration

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	// agent gateway
	AgentBackend string
	AgentBaseURL string
	AgentCommand string

	LogLevel string
	LogFile  string
}

func Load() Config {
	// .env is optional; real environment variables win.
	_ = godotenv.Load()

	driver := getEnv("DB_DRIVER", "mysql")

	dsn := os.Getenv("DB_DSN")
	if dsn == "" {
		dsn = buildDSN(driver,
			getEnv("MYSQL_HOSTS", "127.0.0.1"),
			getEnv("MYSQL_PORT", defaultPort(driver)),
			getEnv("MYSQL_USER", "app"),
			os.Getenv("MYSQL_PASSWORD"),
			getEnv("MYSQL_DATABASE", "agent_chat"),
		)
	}

	secret := os.Getenv("JWT_SECRET")
	if secret == "" {
		secret = "dev-secret-change-me"
	}

	ttl := 24 * time.Hour
	if v := os.Getenv("JWT_TTL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			ttl = d
		}
	}

	redisDB := 0
	if v := os.Getenv("REDIS_DB"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			redisDB = n
		}
	}

	return Config{
		HTTPAddr: getEnv("HTTP_ADDR", ":8080"),
		GinMode:  getEnv("GIN_MODE", "debug"),

		DBDriver: driver,
		DBDSN:    dsn,

		JWTSecret: secret,
		JWTTTL:    ttl,

		RedisAddr:     getEnv("REDIS_ADDR", "127.0.0.1:6379"),
		RedisPassword: os.Getenv("REDIS_PASSWORD"),
		RedisDB:       redisDB,

		AgentBackend: getEnv("AGENT_BACKEND", "adk"),
		AgentBaseURL: getEnv("AGENT_BASE_URL", "http://localhost:8000"),
		AgentCommand: os.Getenv("AGENT_COMMAND"),

		LogLevel: getEnv("LOG_LEVEL", "info"),
		LogFile:  getEnv("LOG_FILE", "logs/app_activity.log"),
	}
}

func buildDSN(driver, host, port, user, pass, name string) string {
	switch driver {
	case "postgres", "postgresql":
		return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=disable",
			host, port, user, pass, name)
	case "sqlite":
		return name + ".db"
	default:
		// app:apppass@tcp(127.0.0.1:3306)/agent_chat?charset=utf8mb4&parseTime=true&loc=Local
		return fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?charset=utf8mb4&parseTime=true&loc=Local",
			user, pass, host, port, name)
	}
}

func defaultPort(driver string) string {
	if driver == "postgres" || driver == "postgresql" {
		return "5432"
	}
	return "3306"
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
