package config

import (
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Config stores the application configuration.
type Config struct {
	Port       string
	FFmpegPath string
	UploadDir  string // Spool directory for uploads before they reach MinIO

	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string

	// Redis配置
	RedisHost     string
	RedisPort     string
	RedisPassword string
	RedisDB       int

	// MinIO配置
	MinioEndpoint  string
	MinioAccessKey string
	MinioSecretKey string
	MinioBucket    string
	MinioRegion    string
	MinioUseSSL    bool

	JWTSecret string

	// AI prompt service (OpenAI compatible)
	AIAPIBaseURL string
	AIAPIKey     string
	AIModel      string

	// Search and captions
	YouTubeAPIKey string
	RapidAPIKey   string
	RapidAPIHost  string

	// Mixer
	MixerSamplesDir string
	MixerBPM        float64

	LogLevel string
	LogFile  string
}

// getEnv gets an environment variable or returns a default value.
func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

// getEnvInt gets an environment variable as int or returns a default value.
func getEnvInt(key string, fallback int) int {
	if value, exists := os.LookupEnv(key); exists {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return fallback
}

func getEnvFloat(key string, fallback float64) float64 {
	if value, exists := os.LookupEnv(key); exists {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if value, exists := os.LookupEnv(key); exists {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return fallback
}

// IsPlaceholder reports whether a credential is unset or still carries a
// template value such as "YOUR_RAPIDAPI_HOST_HERE".
func IsPlaceholder(value string) bool {
	v := strings.TrimSpace(value)
	if v == "" {
		return true
	}
	return strings.HasPrefix(strings.ToUpper(v), "YOUR_")
}

// Load loads configuration from environment variables (via .env file) or defaults.
func Load() *Config {
	// godotenv.Load() will not override existing env vars.
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found or error loading .env, relying on existing environment variables and defaults.")
	}

	return &Config{
		Port:       getEnv("PORT", "8080"),
		FFmpegPath: getEnv("FFMPEG_PATH", "ffmpeg"),
		UploadDir:  getEnv("UPLOAD_DIR", "uploads"),

		DBHost:     getEnv("DB_HOST", "127.0.0.1"),
		DBPort:     getEnv("DB_PORT", "3306"),
		DBUser:     getEnv("DB_USER", "root"),
		DBPassword: os.Getenv("DB_PASSWORD"), // no hardcoded default for passwords
		DBName:     getEnv("DB_NAME", "echo_canvas"),

		RedisHost:     getEnv("REDIS_HOST", "127.0.0.1"),
		RedisPort:     getEnv("REDIS_PORT", "6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getEnvInt("REDIS_DB", 0),

		MinioEndpoint:  getEnv("MINIO_ENDPOINT", "127.0.0.1:9000"),
		MinioAccessKey: getEnv("MINIO_ACCESS_KEY", ""),
		MinioSecretKey: getEnv("MINIO_SECRET_KEY", ""),
		MinioBucket:    getEnv("MINIO_BUCKET", "echo-canvas"),
		MinioRegion:    getEnv("MINIO_REGION", "us-east-1"),
		MinioUseSSL:    getEnvBool("MINIO_USE_SSL", false),

		JWTSecret: getEnv("JWT_SECRET", "echo-canvas-dev-secret"),

		AIAPIBaseURL: strings.TrimRight(getEnv("AI_API_BASE_URL", "https://api.openai.com/v1"), "/"),
		AIAPIKey:     getEnv("AI_API_KEY", ""),
		AIModel:      getEnv("AI_MODEL", "gpt-4o-mini"),

		YouTubeAPIKey: getEnv("YOUTUBE_API_KEY", ""),
		RapidAPIKey:   getEnv("RAPIDAPI_KEY", ""),
		RapidAPIHost:  getEnv("RAPIDAPI_HOST", ""),

		MixerSamplesDir: getEnv("MIXER_SAMPLES_DIR", ""),
		MixerBPM:        getEnvFloat("MIXER_BPM", 120),

		LogLevel: getEnv("LOG_LEVEL", "info"),
		LogFile:  getEnv("LOG_FILE", ""),
	}
}
