package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

var AppEnv Config

type Config struct {
	MongoURI       string
	DBName         string
	JWTSecret      string
	AccessTokenTTL time.Duration

	// MercadoPago
	MPAccessToken string
	MPBaseURL     string
	MPTimeout     time.Duration

	// Redirect and webhook callback URL construction
	FrontendURL string
	BackendURL  string

	// Correo Argentino via RapidAPI
	RapidAPIKey      string
	RapidAPIBaseURL  string
	RapidAPIHost     string
	OriginPostalCode string

	// Delivery quote cache
	QuoteCacheTTL      time.Duration
	BranchCacheTTL     time.Duration
	CacheSweepInterval time.Duration
}

func Load() {
	if err := godotenv.Load(); err != nil {
		log.Println(".env not loaded:", err)
	}
	AppEnv = Config{
		MongoURI:       getEnvOrDefault("MONGO_URI", ""),
		DBName:         getEnvOrDefault("DB_NAME", "glitchstore"),
		JWTSecret:      getEnvOrDefault("JWT_SECRET", ""),
		AccessTokenTTL: getDurationEnv("ACCESS_TOKEN_TTL", 20, time.Minute),

		MPAccessToken: getEnvOrDefault("MP_ACCESS_TOKEN", ""),
		MPBaseURL:     getEnvOrDefault("MP_BASE_URL", "https://api.mercadopago.com"),
		MPTimeout:     getDurationEnv("MP_TIMEOUT_SECONDS", 5, time.Second),

		FrontendURL: getEnvOrDefault("FRONTEND_URL", "http://localhost:5173"),
		BackendURL:  getEnvOrDefault("BACKEND_URL", "http://localhost:8080"),

		RapidAPIKey:      getEnvOrDefault("RAPID_API_KEY", ""),
		RapidAPIBaseURL:  getEnvOrDefault("RAPID_API_BASE_URL", "https://correo-argentino1.p.rapidapi.com"),
		RapidAPIHost:     getEnvOrDefault("RAPID_API_HOST", "correo-argentino1.p.rapidapi.com"),
		OriginPostalCode: getEnvOrDefault("ORIGIN_POSTAL_CODE", "3300"),

		QuoteCacheTTL:      getDurationEnv("QUOTE_CACHE_TTL_MINUTES", 15, time.Minute),
		BranchCacheTTL:     getDurationEnv("BRANCH_CACHE_TTL_MINUTES", 60, time.Minute),
		CacheSweepInterval: getDurationEnv("CACHE_SWEEP_MINUTES", 30, time.Minute),
	}
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return defaultValue
}

func getDurationEnv(key string, defaultValue int, unit time.Duration) time.Duration {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil && parsed > 0 {
			return time.Duration(parsed) * unit
		}
	}
	return time.Duration(defaultValue) * unit
}
