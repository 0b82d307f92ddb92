package config

import (
	"crypto/rand"
	"encoding/base64"
	"log/slog"
	"os"
	"strings"
	"time"
)

type Config struct {
	ListenAddr string
	DBPath     string
	LogLevel   string
	LogFormat  string
	LogFile    string

	PhotoBackend      string
	PhotoPath         string
	S3Bucket          string
	S3Region          string
	S3Endpoint        string
	S3AccessKeyID     string
	S3SecretAccessKey string

	VisionBackend string
	OllamaHost    string
	OllamaModel   string
	ClaudeAPIKey  string
	ClaudeModel   string

	SessionKey     []byte
	TokenKey       []byte
	CSRFKey        []byte
	CSRFEnabled    bool
	TrustedOrigins []string
	CookieSecure   bool
	TokenTTL       time.Duration

	RedisURL     string
	QRBaseURL    string
	OTelExporter string
}

func Load() *Config {
	return &Config{
		ListenAddr: getEnv("LISTEN_ADDR", ":8080"),
		DBPath:     getEnv("DB_PATH", "/data/lockerinv.db"),
		LogLevel:   getEnv("LOG_LEVEL", "info"),
		LogFormat:  getEnv("LOG_FORMAT", "json"),
		LogFile:    getEnv("LOG_FILE", ""),

		PhotoBackend:      getEnv("PHOTO_BACKEND", "local"),
		PhotoPath:         getEnv("PHOTO_LOCAL_PATH", "/data/photos"),
		S3Bucket:          getEnv("S3_BUCKET", ""),
		S3Region:          getEnv("S3_REGION", "us-east-1"),
		S3Endpoint:        getEnv("S3_ENDPOINT", ""),
		S3AccessKeyID:     getEnv("S3_ACCESS_KEY_ID", ""),
		S3SecretAccessKey: getEnv("S3_SECRET_ACCESS_KEY", ""),

		VisionBackend: getEnv("VISION_BACKEND", "none"),
		OllamaHost:    getEnv("OLLAMA_HOST", "http://localhost:11434"),
		OllamaModel:   getEnv("OLLAMA_MODEL", "moondream"),
		ClaudeAPIKey:  getEnv("CLAUDE_API_KEY", ""),
		ClaudeModel:   getEnv("CLAUDE_MODEL", "claude-sonnet-4-5"),

		SessionKey:     getSecret("SESSION_KEY"),
		TokenKey:       getSecret("TOKEN_KEY"),
		CSRFKey:        getSecret("CSRF_KEY"),
		CSRFEnabled:    getEnv("CSRF_ENABLED", "false") == "true",
		TrustedOrigins: splitList(getEnv("CSRF_TRUSTED_ORIGINS", "")),
		CookieSecure:   getEnv("COOKIE_SECURE", "false") == "true",
		TokenTTL:       getDuration("TOKEN_TTL", 30*24*time.Hour),

		RedisURL:     getEnv("REDIS_URL", ""),
		QRBaseURL:    strings.TrimRight(getEnv("QR_BASE_URL", ""), "/"),
		OTelExporter: getEnv("OTEL_EXPORTER", ""),
	}
}

func getEnv(key, defaultVal string) string {
	if val, exists := os.LookupEnv(key); exists {
		return val
	}
	return defaultVal
}

func getDuration(key string, defaultVal time.Duration) time.Duration {
	raw, exists := os.LookupEnv(key)
	if !exists {
		return defaultVal
	}
	d, err := time.ParseDuration(raw)
	if err != nil || d <= 0 {
		slog.Warn("invalid duration, using default", "key", key, "value", raw, "default", defaultVal)
		return defaultVal
	}
	return d
}

// getSecret decodes a base64 key of at least 32 bytes. Anything else falls
// back to a random key, which invalidates sessions and tokens on restart.
func getSecret(key string) []byte {
	raw := os.Getenv(key)
	if raw != "" {
		decoded, err := base64.StdEncoding.DecodeString(raw)
		if err == nil && len(decoded) >= 32 {
			return decoded
		}
		slog.Warn("secret is invalid or shorter than 32 bytes, generating a random one", "key", key)
	} else {
		slog.Warn("secret not set, generating a random one", "key", key)
	}
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		panic("crypto/rand unavailable: " + err.Error())
	}
	return b
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
