package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds application configuration. It is constructed once at startup
// and passed explicitly into components; nothing reads the environment at
// request time.
type Config struct {
	Port          string
	Env           string
	PublicBaseURL string
	LogLevel      string

	// Scheduling
	TimeZone         string
	SlotMinutes      int
	LeadTimeHours    int
	HorizonDays      int
	SlotsPerPage     int
	EmptyDayScanDays int
	AvailabilityJSON string

	// Google Calendar
	CalendarID          string
	GoogleClientID      string
	GoogleClientSecret  string
	GoogleRefreshToken  string
	CalendarCallTimeout time.Duration

	// Persistence (optional; in-memory fallbacks are used when unset)
	DatabaseURL   string
	RedisAddr     string
	RedisPassword string
	RedisTLS      bool

	// Payments
	StripeSecretKey    string
	PaymentLinkURL     string
	DepositAmountCents int
	Currency           string

	// Notifications
	EmailProvider     string
	SendGridAPIKey    string
	SendGridFromEmail string
	SendGridFromName  string
	AWSRegion         string
	SESFromEmail      string
	SESFromName       string
	OwnerEmail        string
	NotifyTimeout     time.Duration

	// Persona / copy
	BusinessName string
	PricingText  string

	// Optional tone smoothing of outgoing text replies
	GeminiAPIKey         string
	ToneSmoothingEnabled bool

	CORSAllowedOrigins []string
}

// Load reads configuration from environment variables.
func Load() *Config {
	return &Config{
		Port:          getEnv("PORT", "8080"),
		Env:           getEnv("ENV", "development"),
		PublicBaseURL: getEnv("PUBLIC_BASE_URL", ""),
		LogLevel:      getEnv("LOG_LEVEL", "info"),

		TimeZone:         getEnv("TIMEZONE", "America/New_York"),
		SlotMinutes:      getEnvAsInt("SLOT_MINUTES", 30),
		LeadTimeHours:    getEnvAsInt("LEAD_TIME_HOURS", 4),
		HorizonDays:      getEnvAsInt("HORIZON_DAYS", 14),
		SlotsPerPage:     getEnvAsInt("SLOTS_PER_PAGE", 6),
		EmptyDayScanDays: getEnvAsInt("EMPTY_DAY_SCAN_DAYS", 6),
		AvailabilityJSON: getEnv("AVAILABILITY_JSON", ""),

		CalendarID:          getEnv("GOOGLE_CALENDAR_ID", "primary"),
		GoogleClientID:      getEnv("GOOGLE_CLIENT_ID", ""),
		GoogleClientSecret:  getEnv("GOOGLE_CLIENT_SECRET", ""),
		GoogleRefreshToken:  getEnv("GOOGLE_REFRESH_TOKEN", ""),
		CalendarCallTimeout: getEnvAsDuration("CALENDAR_CALL_TIMEOUT", 10*time.Second),

		DatabaseURL:   getEnv("DATABASE_URL", ""),
		RedisAddr:     getEnv("REDIS_ADDR", ""),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisTLS:      getEnvAsBool("REDIS_TLS", false),

		StripeSecretKey:    getEnv("STRIPE_SECRET_KEY", ""),
		PaymentLinkURL:     getEnv("PAYMENT_LINK_URL", ""),
		DepositAmountCents: getEnvAsInt("DEPOSIT_AMOUNT_CENTS", 9900),
		Currency:           getEnv("CURRENCY", "usd"),

		EmailProvider:     strings.ToLower(strings.TrimSpace(getEnv("EMAIL_PROVIDER", "auto"))),
		SendGridAPIKey:    getEnv("SENDGRID_API_KEY", ""),
		SendGridFromEmail: getEnv("SENDGRID_FROM_EMAIL", ""),
		SendGridFromName:  getEnv("SENDGRID_FROM_NAME", "Frontdesk"),
		AWSRegion:         getEnv("AWS_REGION", "us-east-1"),
		SESFromEmail:      getEnv("SES_FROM_EMAIL", ""),
		SESFromName:       getEnv("SES_FROM_NAME", "Frontdesk"),
		OwnerEmail:        getEnv("OWNER_EMAIL", ""),
		NotifyTimeout:     getEnvAsDuration("NOTIFY_TIMEOUT", 5*time.Second),

		BusinessName: getEnv("BUSINESS_NAME", "Frontdesk"),
		PricingText:  getEnv("PRICING_TEXT", ""),

		GeminiAPIKey:         getEnv("GEMINI_API_KEY", ""),
		ToneSmoothingEnabled: getEnvAsBool("TONE_SMOOTHING_ENABLED", false),

		CORSAllowedOrigins: getEnvAsSlice("CORS_ALLOWED_ORIGINS", []string{"*"}),
	}
}

// Validate reports configuration errors that must stop startup. A bad time
// zone or nonsensical slot geometry can silently corrupt every offered
// time, so these are fatal rather than per-request errors.
func (c *Config) Validate() error {
	var problems []string

	if _, err := time.LoadLocation(c.TimeZone); err != nil {
		problems = append(problems, fmt.Sprintf("TIMEZONE %q is not a valid IANA zone", c.TimeZone))
	}
	if c.SlotMinutes <= 0 || c.SlotMinutes > 24*60 {
		problems = append(problems, fmt.Sprintf("SLOT_MINUTES %d out of range", c.SlotMinutes))
	}
	if c.LeadTimeHours < 0 {
		problems = append(problems, fmt.Sprintf("LEAD_TIME_HOURS %d must not be negative", c.LeadTimeHours))
	}
	if c.HorizonDays <= 0 {
		problems = append(problems, fmt.Sprintf("HORIZON_DAYS %d must be positive", c.HorizonDays))
	}
	if c.SlotsPerPage <= 0 {
		problems = append(problems, fmt.Sprintf("SLOTS_PER_PAGE %d must be positive", c.SlotsPerPage))
	}
	if c.GoogleRefreshToken != "" && (c.GoogleClientID == "" || c.GoogleClientSecret == "") {
		problems = append(problems, "GOOGLE_REFRESH_TOKEN set without GOOGLE_CLIENT_ID/GOOGLE_CLIENT_SECRET")
	}

	if len(problems) > 0 {
		return fmt.Errorf("config: %s", strings.Join(problems, "; "))
	}
	return nil
}

// Location resolves the configured zone. Call Validate first; this panics on
// an unloadable zone because by then it is a programmer error.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.TimeZone)
	if err != nil {
		panic(fmt.Sprintf("config: zone %q not loadable after validation: %v", c.TimeZone, err))
	}
	return loc
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

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

func getEnvAsSlice(key string, defaultValue []string) []string {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	parts := strings.Split(valueStr, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		return defaultValue
	}
	return out
}
