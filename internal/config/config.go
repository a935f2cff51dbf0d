package config

import (
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

type Config struct {
	Port           string
	MongoURI       string
	MongoDB        string
	JWTSecret      string
	AccessTTLMin   int
	OtpTTLSec      int
	ResetOtpTTLSec int
	BcryptCost     int
	SMTPHost       string
	SMTPPort       string
	SMTPUser       string
	SMTPPass       string
	MailFrom       string
	RabbitURL      string
	RabbitExchange string
}

func Load() Config {
	// .env is optional; real deployments set the environment directly
	_ = godotenv.Load()

	return Config{
		Port:           getenv("APP_PORT", "8080"),
		MongoURI:       getenv("MONGO_URI", "mongodb://localhost:27017"),
		MongoDB:        getenv("MONGO_DB", "account_db"),
		JWTSecret:      getenv("JWT_SECRET", "default_secret_key"),
		AccessTTLMin:   atoi(getenv("ACCESS_TTL_MIN", "60")),
		OtpTTLSec:      atoi(getenv("OTP_TTL_SEC", "120")),
		ResetOtpTTLSec: atoi(getenv("RESET_OTP_TTL_SEC", "120")),
		BcryptCost:     atoi(getenv("BCRYPT_COST", "12")),
		SMTPHost:       getenv("SMTP_HOST", ""),
		SMTPPort:       getenv("SMTP_PORT", "587"),
		SMTPUser:       getenv("SMTP_USER", ""),
		SMTPPass:       getenv("SMTP_PASS", ""),
		MailFrom:       getenv("MAIL_FROM", ""),
		RabbitURL:      getenv("RABBIT_URL", ""),
		RabbitExchange: getenv("RABBIT_EXCHANGE", "account.events"),
	}
}

func atoi(s string) int {
	if v, err := strconv.Atoi(s); err == nil {
		return v
	}
	return 0
}

func getenv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}
