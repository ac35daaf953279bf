package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	// Server
	ServerPort     string
	ServerHost     string
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	MaxRequestBody int64
	CORSOrigin     string
	RateLimitRPS   int
	RateLimitBurst int

	// Database
	AuditLogEnabled  bool
	PostgresHost     string
	PostgresPort     string
	PostgresUser     string
	PostgresPassword string
	PostgresDB       string
	PostgresSSLMode  string

	// Redis
	ResultCacheEnabled bool
	ResultCacheTTL     time.Duration
	RedisHost          string
	RedisPort          string
	RedisPassword      string
	RedisDB            int

	// Kafka
	EventsEnabled          bool
	KafkaBrokers           []string
	KafkaGroupID           string
	AssessmentRequestTopic string
	AssessmentEventTopic   string

	// Preprocessing
	VocabularyPath      string
	StandardizationMode string
	StatisticsPath      string

	// Classifier
	ClassifierBackend string
	RiskThreshold     float64
	ModelArtifactDir  string
	ModelName         string
	RemoteModelURL    string
	RemoteTimeout     time.Duration
	RemoteRetries     int
	OAuthTokenURL     string
	OAuthClientID     string
	OAuthClientSecret string
	OAuthScopes       []string
	ONNXModelPath     string
	ONNXLibraryPath   string
}

// Load reads configuration from the environment. A .env file in the working
// directory is applied first; real environment variables win over it.
func Load() *Config {
	_ = godotenv.Load()

	return &Config{
		ServerPort:     getEnv("SERVER_PORT", "8090"),
		ServerHost:     getEnv("SERVER_HOST", "0.0.0.0"),
		ReadTimeout:    getDuration("READ_TIMEOUT", 30*time.Second),
		WriteTimeout:   getDuration("WRITE_TIMEOUT", 30*time.Second),
		MaxRequestBody: int64(getIntEnv("MAX_REQUEST_BODY_BYTES", 64*1024)),
		CORSOrigin:     getEnv("CORS_ALLOW_ORIGIN", "*"),
		RateLimitRPS:   getIntEnv("RATE_LIMIT_RPS", 0),
		RateLimitBurst: getIntEnv("RATE_LIMIT_BURST", 0),

		AuditLogEnabled:  getBoolEnv("AUDIT_LOG_ENABLED", false),
		PostgresHost:     getEnv("POSTGRES_HOST", "localhost"),
		PostgresPort:     getEnv("POSTGRES_PORT", "5432"),
		PostgresUser:     getEnv("POSTGRES_USER", "dementia"),
		PostgresPassword: getEnv("POSTGRES_PASSWORD", "dementia123"),
		PostgresDB:       getEnv("POSTGRES_DB", "dementia_risk"),
		PostgresSSLMode:  getEnv("POSTGRES_SSLMODE", "disable"),

		ResultCacheEnabled: getBoolEnv("RESULT_CACHE_ENABLED", false),
		ResultCacheTTL:     getDuration("RESULT_CACHE_TTL", 24*time.Hour),
		RedisHost:          getEnv("REDIS_HOST", "localhost"),
		RedisPort:          getEnv("REDIS_PORT", "6379"),
		RedisPassword:      getEnv("REDIS_PASSWORD", ""),
		RedisDB:            getIntEnv("REDIS_DB", 0),

		EventsEnabled:          getBoolEnv("EVENTS_ENABLED", false),
		KafkaBrokers:           getStringSliceEnv("KAFKA_BROKERS", []string{"localhost:9092"}),
		KafkaGroupID:           getEnv("KAFKA_GROUP_ID", "dementia-assessment"),
		AssessmentRequestTopic: getEnv("ASSESSMENT_REQUEST_TOPIC", "assessment.requested"),
		AssessmentEventTopic:   getEnv("ASSESSMENT_EVENT_TOPIC", "assessment.completed"),

		VocabularyPath:      getEnv("VOCABULARY_PATH", ""),
		StandardizationMode: getEnv("STANDARDIZATION_MODE", "record"),
		StatisticsPath:      getEnv("STATISTICS_PATH", ""),

		ClassifierBackend: getEnv("CLASSIFIER_BACKEND", "artifact"),
		RiskThreshold:     getFloatEnv("RISK_THRESHOLD", 0.5),
		ModelArtifactDir:  getEnv("MODEL_ARTIFACT_DIR", "models"),
		ModelName:         getEnv("MODEL_NAME", "dementia"),
		RemoteModelURL:    getEnv("REMOTE_MODEL_URL", "http://localhost:8501"),
		RemoteTimeout:     getDuration("REMOTE_MODEL_TIMEOUT", 5*time.Second),
		RemoteRetries:     getIntEnv("REMOTE_MODEL_RETRIES", 3),
		OAuthTokenURL:     getEnv("OAUTH_TOKEN_URL", ""),
		OAuthClientID:     getEnv("OAUTH_CLIENT_ID", ""),
		OAuthClientSecret: getEnv("OAUTH_CLIENT_SECRET", ""),
		OAuthScopes:       getStringSliceEnv("OAUTH_SCOPES", nil),
		ONNXModelPath:     getEnv("ONNX_MODEL_PATH", "models/dementia.onnx"),
		ONNXLibraryPath:   getEnv("ONNX_LIBRARY_PATH", ""),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getFloatEnv(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

func getBoolEnv(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getStringSliceEnv(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	if len(out) == 0 {
		return defaultValue
	}
	return out
}

func getDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
