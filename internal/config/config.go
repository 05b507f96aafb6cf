package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
	"github.com/spf13/viper"

	"officina/internal/scheduling"
)

// Config holds every runtime setting of the API server and the worker
type Config struct {
	Port     string `mapstructure:"PORT"`
	GinMode  string `mapstructure:"GIN_MODE"`
	Env      string `mapstructure:"ENV"`
	LogLevel string `mapstructure:"LOG_LEVEL"`

	DatabaseURL string `mapstructure:"DATABASE_URL"`
	DBHost      string `mapstructure:"DB_HOST"`
	DBPort      string `mapstructure:"DB_PORT"`
	DBUser      string `mapstructure:"DB_USER"`
	DBPassword  string `mapstructure:"DB_PASSWORD"`
	DBName      string `mapstructure:"DB_NAME"`
	DBSSLMode   string `mapstructure:"DB_SSLMODE"`

	JWTSecret   string        `mapstructure:"JWT_SECRET"`
	TokenTTL    time.Duration `mapstructure:"TOKEN_TTL"`
	CORSOrigins string        `mapstructure:"CORS_ORIGINS"`

	DefaultTaxRate string `mapstructure:"DEFAULT_TAX_RATE"`

	PublicSlotStart   string        `mapstructure:"PUBLIC_SLOT_START"`
	PublicSlotEnd     string        `mapstructure:"PUBLIC_SLOT_END"`
	CalendarSlotStart string        `mapstructure:"CALENDAR_SLOT_START"`
	CalendarSlotEnd   string        `mapstructure:"CALENDAR_SLOT_END"`
	SlotStepMinutes   int           `mapstructure:"SLOT_STEP_MINUTES"`
	SlotHoldTTL       time.Duration `mapstructure:"SLOT_HOLD_TTL"`
	ReopenWindow      time.Duration `mapstructure:"REOPEN_WINDOW"`
	ReminderLead      time.Duration `mapstructure:"REMINDER_LEAD"`

	RedisAddr     string `mapstructure:"REDIS_ADDR"`
	RedisPassword string `mapstructure:"REDIS_PASSWORD"`
	RedisDB       int    `mapstructure:"REDIS_DB"`
	RedisQueueDB  int    `mapstructure:"REDIS_QUEUE_DB"`

	SMTPHost     string `mapstructure:"SMTP_HOST"`
	SMTPPort     int    `mapstructure:"SMTP_PORT"`
	SMTPUsername string `mapstructure:"SMTP_USERNAME"`
	SMTPPassword string `mapstructure:"SMTP_PASSWORD"`
	MailFrom     string `mapstructure:"MAIL_FROM"`
	MailTo       string `mapstructure:"MAIL_TO"`

	AdminEmail    string `mapstructure:"ADMIN_EMAIL"`
	AdminPassword string `mapstructure:"ADMIN_PASSWORD"`

	PublicRatePerMinute int `mapstructure:"PUBLIC_RATE_PER_MINUTE"`
}

var defaults = map[string]interface{}{
	"PORT":                   "8080",
	"ENV":                    "development",
	"LOG_LEVEL":              "info",
	"DB_HOST":                "localhost",
	"DB_PORT":                "5432",
	"DB_USER":                "postgres",
	"DB_PASSWORD":            "postgres",
	"DB_NAME":                "postgres",
	"DB_SSLMODE":             "disable",
	"CORS_ORIGINS":           "http://localhost:5173,http://127.0.0.1:5173",
	"DEFAULT_TAX_RATE":       "22",
	"PUBLIC_SLOT_START":      "09:00",
	"PUBLIC_SLOT_END":        "18:00",
	"CALENDAR_SLOT_START":    "08:00",
	"CALENDAR_SLOT_END":      "19:00",
	"SLOT_STEP_MINUTES":      30,
	"SLOT_HOLD_TTL":          "5m",
	"REOPEN_WINDOW":          "24h",
	"REMINDER_LEAD":          "24h",
	"TOKEN_TTL":              "24h",
	"REDIS_DB":               0,
	"REDIS_QUEUE_DB":         1,
	"SMTP_PORT":              587,
	"PUBLIC_RATE_PER_MINUTE": 20,
}

// Load reads configs/.env (if present) and the process environment into a Config
func Load(envFiles ...string) (*Config, error) {
	if len(envFiles) == 0 {
		envFiles = []string{"configs/.env"}
	}
	// A missing .env file is fine, the environment may already carry everything.
	_ = godotenv.Load(envFiles...)

	v := viper.New()
	for key, value := range defaults {
		v.SetDefault(key, value)
	}
	// Unmarshal only sees keys viper knows about, so bind the ones without a default explicitly.
	for _, key := range []string{
		"GIN_MODE", "DATABASE_URL", "JWT_SECRET", "REDIS_ADDR", "REDIS_PASSWORD",
		"SMTP_HOST", "SMTP_USERNAME", "SMTP_PASSWORD", "MAIL_FROM", "MAIL_TO",
		"ADMIN_EMAIL", "ADMIN_PASSWORD",
	} {
		if err := v.BindEnv(key); err != nil {
			return nil, fmt.Errorf("bind %s: %w", key, err)
		}
	}
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	if c.JWTSecret == "" {
		if c.IsRelease() {
			return fmt.Errorf("JWT_SECRET is required in release mode")
		}
		c.JWTSecret = "default_super_secret_key" // development fallback only
	}
	if c.SlotStepMinutes <= 0 {
		return fmt.Errorf("SLOT_STEP_MINUTES must be positive, got %d", c.SlotStepMinutes)
	}
	if _, err := c.PublicCatalog(); err != nil {
		return fmt.Errorf("public slot catalog: %w", err)
	}
	if _, err := c.CalendarCatalog(); err != nil {
		return fmt.Errorf("calendar slot catalog: %w", err)
	}
	if _, err := decimal.NewFromString(c.DefaultTaxRate); err != nil {
		return fmt.Errorf("invalid DEFAULT_TAX_RATE %q: %w", c.DefaultTaxRate, err)
	}
	return nil
}

// IsRelease reports whether the server runs in gin release mode or production env
func (c *Config) IsRelease() bool {
	return c.GinMode == "release" || c.Env == "production"
}

// DSN returns the postgres connection string, preferring DATABASE_URL when set
func (c *Config) DSN() string {
	if c.DatabaseURL != "" {
		return c.DatabaseURL
	}
	return "postgres://" + c.DBUser + ":" + c.DBPassword + "@" + c.DBHost + ":" + c.DBPort + "/" + c.DBName + "?sslmode=" + c.DBSSLMode
}

// AllowedOrigins splits CORS_ORIGINS into a clean list
func (c *Config) AllowedOrigins() []string {
	var origins []string
	for _, o := range strings.Split(c.CORSOrigins, ",") {
		if o = strings.TrimSpace(o); o != "" {
			origins = append(origins, o)
		}
	}
	return origins
}

// TaxRate returns the fallback tax percentage used when no tax rule is active
func (c *Config) TaxRate() decimal.Decimal {
	rate, err := decimal.NewFromString(c.DefaultTaxRate)
	if err != nil {
		return decimal.Zero
	}
	return rate
}

// PublicCatalog is the slot catalog offered by the public booking form
func (c *Config) PublicCatalog() (scheduling.Catalog, error) {
	return scheduling.NewCatalog(c.PublicSlotStart, c.PublicSlotEnd, time.Duration(c.SlotStepMinutes)*time.Minute)
}

// CalendarCatalog is the slot catalog of the internal calendar
func (c *Config) CalendarCatalog() (scheduling.Catalog, error) {
	return scheduling.NewCatalog(c.CalendarSlotStart, c.CalendarSlotEnd, time.Duration(c.SlotStepMinutes)*time.Minute)
}

// MailEnabled reports whether SMTP delivery is configured
func (c *Config) MailEnabled() bool {
	return c.SMTPHost != ""
}

// RedisEnabled reports whether a redis instance is configured for holds and the job queue
func (c *Config) RedisEnabled() bool {
	return c.RedisAddr != ""
}
