package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds application configuration
type Config struct {
	Port               string
	Env                string
	LogLevel           string
	CORSAllowedOrigins []string
	OperatorJWTSecret  string

	// FHIR record store
	FHIRBaseURL            string
	FHIRBearerToken        string
	FHIRTimeout            time.Duration
	FHIRUnsortedCategories []string
	FHIRSearchCount        int

	// Summarization
	SummaryProvider         string
	SummaryFallbackProvider string
	SummaryServiceURL       string
	GeminiAPIKey            string
	GeminiModelID           string
	BedrockModelID          string
	SummaryRatePerMinute    int

	// AWS (Bedrock)
	AWSRegion           string
	AWSAccessKeyID      string
	AWSSecretAccessKey  string
	AWSEndpointOverride string

	// Session narrative mirror; empty RedisAddr disables it.
	RedisAddr     string
	RedisPassword string
	RedisTLS      bool
	SessionID     string
	SessionTTL    time.Duration
}

// Load reads configuration from environment variables
func Load() *Config {
	return &Config{
		Port:               getEnv("PORT", "8080"),
		Env:                getEnv("ENV", "development"),
		LogLevel:           getEnv("LOG_LEVEL", "info"),
		CORSAllowedOrigins: getEnvAsList("CORS_ALLOWED_ORIGINS", nil),
		OperatorJWTSecret:  getEnv("OPERATOR_JWT_SECRET", ""),

		FHIRBaseURL:            getEnv("FHIR_BASE_URL", "https://hapi.fhir.org/baseR4"),
		FHIRBearerToken:        getEnv("FHIR_BEARER_TOKEN", ""),
		FHIRTimeout:            getEnvAsDuration("FHIR_TIMEOUT", 0),
		FHIRUnsortedCategories: getEnvAsList("FHIR_UNSORTED_CATEGORIES", []string{"medication", "condition"}),
		FHIRSearchCount:        getEnvAsInt("FHIR_SEARCH_COUNT", 10),

		SummaryProvider:         strings.ToLower(strings.TrimSpace(getEnv("SUMMARY_PROVIDER", "gemini"))),
		SummaryFallbackProvider: strings.ToLower(strings.TrimSpace(getEnv("SUMMARY_FALLBACK_PROVIDER", ""))),
		SummaryServiceURL:       getEnv("SUMMARY_SERVICE_URL", ""),
		GeminiAPIKey:            getEnv("GEMINI_API_KEY", ""),
		GeminiModelID:           getEnv("GEMINI_MODEL_ID", "gemini-2.5-flash-lite"),
		BedrockModelID:          getEnv("BEDROCK_MODEL_ID", ""),
		SummaryRatePerMinute:    getEnvAsInt("SUMMARY_RATE_PER_MINUTE", 6),

		AWSRegion:           getEnv("AWS_REGION", "us-east-1"),
		AWSAccessKeyID:      getEnv("AWS_ACCESS_KEY_ID", ""),
		AWSSecretAccessKey:  getEnv("AWS_SECRET_ACCESS_KEY", ""),
		AWSEndpointOverride: getEnv("AWS_ENDPOINT_OVERRIDE", ""),

		RedisAddr:     getEnv("REDIS_ADDR", ""),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisTLS:      getEnvAsBool("REDIS_TLS", false),
		SessionID:     getEnv("SESSION_ID", ""),
		SessionTTL:    getEnvAsDuration("SESSION_TTL", 8*time.Hour),
	}
}

// getEnv retrieves an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsInt retrieves an environment variable as an integer or returns a default value
func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

// getEnvAsBool retrieves an environment variable as a boolean or returns a default value
func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseBool(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	if value, err := time.ParseDuration(valueStr); err == nil {
		return value
	}
	return defaultValue
}

// getEnvAsList splits a comma-separated variable. A variable set to "-" yields an
// empty list so defaults can be switched off explicitly.
func getEnvAsList(key string, defaultValue []string) []string {
	valueStr := strings.TrimSpace(getEnv(key, ""))
	if valueStr == "" {
		return defaultValue
	}
	if valueStr == "-" {
		return []string{}
	}
	var out []string
	for _, part := range strings.Split(valueStr, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
