package utils

import (
	"os"

	"github.com/joho/godotenv"
)

func LoadEnv() {
	godotenv.Load()
}

// Getenv returns the value of key or fallback when unset.
func Getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func JWTSecret() string {
	return os.Getenv("SECRET")
}

func FrontendURL() string {
	return Getenv("FRONTEND_URL", "http://localhost:3000")
}

func Production() bool {
	return os.Getenv("APP_ENV") == "production"
}
