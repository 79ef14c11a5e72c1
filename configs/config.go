package configs

import (
	"log"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

type Config struct {
	AppPort    int
	DBHost     string
	DBPort     int
	DBUser     string
	DBPassword string
	DBName     string
	DBNameTest string
	RedisHost  string
	RedisPort  int
	JWTSecret  []byte
	TokenTTL   int // hours
	UploadDir  string
	CacheKey   string

	// Initial Admin account, seeded at startup when AdminPassword is set.
	AdminUsername string
	AdminEmail    string
	AdminPassword string
}

func LoadConfig() Config {
	if err := godotenv.Load(); err != nil {
		if os.Getenv("GO_ENV") != "test" {
			log.Println("No .env file found, using default values")
		}
	}

	return Config{
		AppPort:    envInt("APP_PORT", 3004),
		DBHost:     envString("DB_HOST", "localhost"),
		DBPort:     envInt("DB_PORT", 5432),
		DBUser:     envString("DB_USER", "postgres"),
		DBPassword: os.Getenv("DB_PASSWORD"),
		DBName:     envString("DB_NAME", "taskhub"),
		DBNameTest: envString("DB_NAME_TEST", "taskhub_test"),
		RedisHost:  envString("REDIS_HOST", "localhost"),
		RedisPort:  envInt("REDIS_PORT", 6379),
		JWTSecret:  []byte(envString("JWT_SECRET", "secret")),
		TokenTTL:   envInt("TOKEN_TTL_HOURS", 24),
		UploadDir:  envString("UPLOAD_DIR", "uploads"),
		CacheKey:   envString("CACHE_KEY", "taskhub-cache-key"),

		AdminUsername: envString("ADMIN_USERNAME", "admin"),
		AdminEmail:    envString("ADMIN_EMAIL", "admin@taskhub.local"),
		AdminPassword: os.Getenv("ADMIN_PASSWORD"),
	}
}

func envString(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	v, err := strconv.Atoi(os.Getenv(key))
	if err != nil {
		return fallback
	}
	return v
}
