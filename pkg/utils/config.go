package utils

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"

	"animehub/pkg/database"
)

type AuthConfig struct {
	JWTSecret   string
	JWTIssuer   string
	JWTDuration time.Duration
}

type RedisConfig struct {
	Addr     string // empty disables caching
	Password string
}

type MinioConfig struct {
	Endpoint  string // empty disables object storage
	AccessKey string
	SecretKey string
	Bucket    string
	PublicURL string
	UseSSL    bool
}

type Config struct {
	Addr  string
	DB    database.Config
	Auth  AuthConfig
	Redis RedisConfig
	Minio MinioConfig
}

// Load reads configuration from the environment, picking up a .env file
// first when one is present.
func Load() Config {
	if _, err := os.Stat(".env"); err == nil {
		if err := godotenv.Load(); err != nil {
			log.Println("could not load .env file")
		}
	}

	return Config{
		Addr:  getEnv("ANIMEHUB_ADDR", ":8080"),
		DB:    database.DefaultConfig(),
		Auth:  LoadAuthConfig(),
		Redis: RedisConfig{
			Addr:     os.Getenv("ANIMEHUB_REDIS_ADDR"),
			Password: os.Getenv("ANIMEHUB_REDIS_PASSWORD"),
		},
		Minio: MinioConfig{
			Endpoint:  os.Getenv("ANIMEHUB_MINIO_ENDPOINT"),
			AccessKey: os.Getenv("ANIMEHUB_MINIO_ACCESS_KEY"),
			SecretKey: os.Getenv("ANIMEHUB_MINIO_SECRET_KEY"),
			Bucket:    getEnv("ANIMEHUB_MINIO_BUCKET", "animehub"),
			PublicURL: os.Getenv("ANIMEHUB_MINIO_PUBLIC_URL"),
			UseSSL:    os.Getenv("ANIMEHUB_MINIO_USE_SSL") == "true",
		},
	}
}

func LoadAuthConfig() AuthConfig {
	secret := os.Getenv("ANIMEHUB_JWT_SECRET")
	if secret == "" {
		// dev default (change for demo / production)
		secret = "dev-secret-change-me"
	}

	issuer := os.Getenv("ANIMEHUB_JWT_ISSUER")
	if issuer == "" {
		issuer = "animehub"
	}

	duration := 24 * time.Hour
	if ttl := os.Getenv("ANIMEHUB_JWT_TTL_HOURS"); ttl != "" {
		if h, err := strconv.Atoi(ttl); err == nil && h > 0 {
			duration = time.Duration(h) * time.Hour
		}
	}

	return AuthConfig{
		JWTSecret:   secret,
		JWTIssuer:   issuer,
		JWTDuration: duration,
	}
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
