package config

import (
	"log"

	"github.com/spf13/viper"
)

type Config struct {
	DBUrl string `mapstructure:"DB_URL"`
	Port  string `mapstructure:"PORT"`

	SMTPHost     string `mapstructure:"SMTP_HOST"`
	SMTPPort     int    `mapstructure:"SMTP_PORT"`
	SMTPUser     string `mapstructure:"SMTP_USER"`
	SMTPPassword string `mapstructure:"SMTP_PASS"`
	SMTPFrom     string `mapstructure:"SMTP_FROM"`

	SettlementWebhookURL string `mapstructure:"SETTLEMENT_WEBHOOK_URL"`
	OTPFallbackFile      string `mapstructure:"OTP_FALLBACK_FILE"`
	QueryTimeoutSeconds  int    `mapstructure:"QUERY_TIMEOUT_SECONDS"`
}

func LoadConfig() Config {
	viper.SetConfigFile(".env")
	viper.AutomaticEnv()

	viper.SetDefault("PORT", "8080")
	viper.SetDefault("SMTP_PORT", 587)
	viper.SetDefault("OTP_FALLBACK_FILE", "otp_fallback.log")
	viper.SetDefault("QUERY_TIMEOUT_SECONDS", 10)

	if err := viper.ReadInConfig(); err != nil {
		log.Println("No .env file found, using env variables only")
	}

	var c Config
	if err := viper.Unmarshal(&c); err != nil {
		log.Fatal("config unmarshal error:", err)
	}

	return c
}
