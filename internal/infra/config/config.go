package config

import (
	"fmt"
	"os"
	"strings"
	"time"
)

// Config aggregates application configuration values loaded from environment variables.
type Config struct {
	Env                string
	HTTPAddr           string
	MongoURI           string
	MongoDB            string
	KafkaBrokers       []string
	KafkaTopicPrefix   string
	KafkaAuditGroup    string
	OutboxPollInterval time.Duration
	SessionTTL         time.Duration
	VerificationTTL    time.Duration
	ResetTTL           time.Duration
	RequireEduEmail    bool
	RequireVerified    bool
	FrontendURL        string
	S3Endpoint         string
	S3PublicEndpoint   string
	S3AccessKey        string
	S3SecretKey        string
	S3Bucket           string
	S3UseSSL           bool
	SMTPAddr           string
	SMTPFrom           string
	SMTPUsername       string
	SMTPPassword       string
}

// Load parses configuration from the current environment. MONGO_URI, KAFKA_BROKERS
// and SMTP_ADDR are optional: absent values select the in-memory stores, disable
// event publishing and log account mails instead of sending them.
func Load() (Config, error) {
	cfg := Config{
		Env:              getEnv("APP_ENV", "dev"),
		HTTPAddr:         getEnv("HTTP_ADDR", ":8080"),
		MongoURI:         os.Getenv("MONGO_URI"),
		MongoDB:          getEnv("MONGO_DB", "esocial"),
		KafkaTopicPrefix: getEnv("KAFKA_TOPIC_PREFIX", ""),
		KafkaAuditGroup:  os.Getenv("KAFKA_AUDIT_GROUP"),
		FrontendURL:      getEnv("FRONTEND_URL", "http://localhost:3000"),
		S3Endpoint:       getEnv("S3_ENDPOINT", "http://localhost:9000"),
		S3PublicEndpoint: getEnv("S3_PUBLIC_ENDPOINT", ""),
		S3AccessKey:      getEnv("S3_ACCESS_KEY", "minioadmin"),
		S3SecretKey:      getEnv("S3_SECRET_KEY", "minioadmin"),
		S3Bucket:         getEnv("S3_BUCKET", "esocial-uploads"),
		SMTPAddr:         os.Getenv("SMTP_ADDR"),
		SMTPFrom:         getEnv("SMTP_FROM", "no-reply@esocial.local"),
		SMTPUsername:     os.Getenv("SMTP_USERNAME"),
		SMTPPassword:     os.Getenv("SMTP_PASSWORD"),
	}
	brokers := getEnv("KAFKA_BROKERS", "")
	if brokers != "" {
		cfg.KafkaBrokers = strings.Split(brokers, ",")
	}

	poll, err := parseDurationEnv("OUTBOX_POLL_INTERVAL", 500*time.Millisecond)
	if err != nil {
		return Config{}, err
	}
	cfg.OutboxPollInterval = poll

	sessionTTL, err := parseDurationEnv("SESSION_TTL", 24*time.Hour)
	if err != nil {
		return Config{}, err
	}
	cfg.SessionTTL = sessionTTL

	verificationTTL, err := parseDurationEnv("VERIFICATION_TTL", 24*time.Hour)
	if err != nil {
		return Config{}, err
	}
	cfg.VerificationTTL = verificationTTL

	resetTTL, err := parseDurationEnv("RESET_TTL", time.Hour)
	if err != nil {
		return Config{}, err
	}
	cfg.ResetTTL = resetTTL

	requireEdu, err := parseBoolEnv("REQUIRE_EDU_EMAIL", true)
	if err != nil {
		return Config{}, err
	}
	cfg.RequireEduEmail = requireEdu

	// Dev accounts are verified at registration, so the login gate defaults off there.
	requireVerified, err := parseBoolEnv("REQUIRE_VERIFIED_LOGIN", cfg.Env != "dev")
	if err != nil {
		return Config{}, err
	}
	cfg.RequireVerified = requireVerified

	useSSL, err := parseBoolEnv("S3_USE_SSL", false)
	if err != nil {
		return Config{}, err
	}
	cfg.S3UseSSL = useSSL
	if cfg.S3PublicEndpoint == "" {
		cfg.S3PublicEndpoint = cfg.S3Endpoint
	}
	return cfg, nil
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func parseDurationEnv(key string, def time.Duration) (time.Duration, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return def, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s duration: %w", key, err)
	}
	return d, nil
}

func parseBoolEnv(key string, def bool) (bool, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return def, nil
	}
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "1", "t", "true", "yes", "y", "on":
		return true, nil
	case "0", "f", "false", "no", "n", "off":
		return false, nil
	default:
		return false, fmt.Errorf("invalid %s boolean: %q", key, raw)
	}
}
