package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// generateConsumerID creates a unique consumer ID using hostname and PID
func generateConsumerID() string {
	hostname, _ := os.Hostname()
	if hostname == "" {
		hostname = "replayer"
	}
	return fmt.Sprintf("%s-%d", hostname, os.Getpid())
}

type Config struct {
	Port        string
	Environment string

	// Database
	DatabaseURL string
	MongoDBURL  string
	MongoDBName string
	RedisURL    string

	// JWT
	JWTSecret string

	// OpenAI
	OpenAIAPIKey   string
	LLMModel       string
	LLMMaxTokens   int
	LLMTemperature float64
	LLMMaxRetries  int

	// Helpdesk (Zoho Desk)
	ZohoBaseURL      string
	ZohoOrgID        string
	ZohoClientID     string
	ZohoClientSecret string
	ZohoRefreshToken string
	ZohoTokenURL     string
	SupportEmail     string
	SupportCCEmail   string
	UptimeTeamID     string
	EscalationTeamID string

	// Notifications
	TicketURLFormat string

	// Replayer (Redis Stream)
	ReplayConsumerID string
	ReplayGroup      string
	ReplayBatchSize  int
	ReplayBlock      time.Duration

	// CORS
	AllowedOrigins []string
}

func Load() (*Config, error) {
	return &Config{
		Port:        getEnv("PORT", "8080"),
		Environment: getEnv("ENV", "development"),

		// Database
		DatabaseURL: getEnv("DATABASE_URL", ""),
		MongoDBURL:  getEnv("MONGODB_URL", ""),
		MongoDBName: getEnv("MONGODB_DATABASE", "ticketflow"),
		RedisURL:    getEnv("REDIS_URL", ""),

		// JWT
		JWTSecret: getEnv("JWT_SECRET", ""),

		// OpenAI
		OpenAIAPIKey:   getEnv("OPENAI_API_KEY", ""),
		LLMModel:       getEnv("LLM_MODEL", "gpt-4o-mini"),
		LLMMaxTokens:   getEnvInt("LLM_MAX_TOKENS", 2048),
		LLMTemperature: getEnvFloat("LLM_TEMPERATURE", 0.2),
		LLMMaxRetries:  getEnvInt("LLM_MAX_RETRIES", 3),

		// Helpdesk
		ZohoBaseURL:      getEnv("ZOHO_BASE_URL", "https://desk.zoho.in"),
		ZohoOrgID:        getEnv("ZOHO_ORG_ID", ""),
		ZohoClientID:     getEnv("ZOHO_CLIENT_ID", ""),
		ZohoClientSecret: getEnv("ZOHO_CLIENT_SECRET", ""),
		ZohoRefreshToken: getEnv("ZOHO_REFRESH_TOKEN", ""),
		ZohoTokenURL:     getEnv("ZOHO_TOKEN_URL", "https://accounts.zoho.in/oauth/v2/token"),
		SupportEmail:     getEnv("SUPPORT_EMAIL", ""),
		SupportCCEmail:   getEnv("SUPPORT_CC_EMAIL", ""),
		UptimeTeamID:     getEnv("UPTIME_TEAM_ID", ""),
		EscalationTeamID: getEnv("ESCALATION_TEAM_ID", ""),

		// Notifications
		TicketURLFormat: getEnv("TICKET_URL_FORMAT", "https://desk.zoho.in/agent/tickets/%s"),

		// Replayer
		ReplayConsumerID: getEnv("REPLAY_CONSUMER_ID", generateConsumerID()),
		ReplayGroup:      getEnv("REPLAY_GROUP", "dlq-replayers"),
		ReplayBatchSize:  getEnvInt("REPLAY_BATCH_SIZE", 10),
		ReplayBlock:      time.Duration(getEnvInt("REPLAY_BLOCK_MS", 5000)) * time.Millisecond,

		// CORS
		AllowedOrigins: getEnvSlice("ALLOWED_ORIGINS", []string{"http://localhost:3000"}),
	}, nil
}

// Validate checks the settings the pipeline cannot run without.
func (c *Config) Validate() error {
	var missing []string
	if c.OpenAIAPIKey == "" {
		missing = append(missing, "OPENAI_API_KEY")
	}
	if c.ZohoOrgID == "" {
		missing = append(missing, "ZOHO_ORG_ID")
	}
	if c.ZohoRefreshToken == "" {
		missing = append(missing, "ZOHO_REFRESH_TOKEN")
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing required configuration: %s", strings.Join(missing, ", "))
	}
	return nil
}

// TeamIDs maps team display names to helpdesk team identifiers.
func (c *Config) TeamIDs() map[string]string {
	ids := make(map[string]string)
	if c.UptimeTeamID != "" {
		ids["Uptime Team"] = c.UptimeTeamID
	}
	if c.EscalationTeamID != "" {
		ids["Escalation Team"] = c.EscalationTeamID
	}
	return ids
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}

func getEnvSlice(key string, defaultValue []string) []string {
	if value := os.Getenv(key); value != "" {
		return strings.Split(value, ",")
	}
	return defaultValue
}

// IsDevelopment returns true if running in development mode
func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}

// IsProduction returns true if running in production mode
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}
