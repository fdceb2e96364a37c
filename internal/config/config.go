package config // package config loads application configuration from environment variables

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all runtime configuration values.  Each field corresponds to
// an environment variable.  Required values are enforced by Load; every
// other value falls back to a development-friendly default.
type Config struct {
	Env  string // application environment (e.g. "dev", "production")
	Port string // HTTP port to listen on

	DBDriver string // "mysql" or "sqlite3"
	DBUser   string // database username
	DBPass   string // database password (optional)
	DBHost   string // database host address
	DBPort   string // database port number
	DBName   string // database name
	DBPath   string // sqlite file path when DBDriver is sqlite3

	JWTSecret    string // secret used to sign JWTs
	AccessTTLMin int    // access token time-to-live in minutes
	BcryptCost   int    // bcrypt cost for password hashing
	CookieSecure bool   // mark the session cookie Secure

	AutoVerifyEmail   bool          // skip the email verification step on registration
	OTPTTL            time.Duration // validity of OTP and verification tokens
	TokenSweepSpec    string        // cron spec for clearing expired tokens
	AdminSignupKey    string        // when set, /admin/register requires X-Admin-Key
	AppBaseURL        string        // used to build verification links
	CheckoutReturnURL string        // payment provider redirects here after checkout

	SMTPHost string
	SMTPPort int
	SMTPUser string
	SMTPPass string
	MailFrom string

	RabbitURL string // empty disables the event publisher and consumer

	OmisePublicKey  string
	OmiseSecretKey  string
	OmiseSourceType string // offsite source used when no card token is supplied
	Currency        string

	Logging        LoggingConfig
	MetricsEnabled bool
}

// LoggingConfig controls where and how log lines are written.
type LoggingConfig struct {
	Level    string // zerolog level name
	Format   string // "json" or "console"
	Output   string // "stdout", "stderr" or "file"
	FilePath string // required when Output is "file"
}

// IsProduction reports whether internal error details must be hidden.
func (c Config) IsProduction() bool {
	return strings.EqualFold(c.Env, "production") || strings.EqualFold(c.Env, "prod")
}

// Load reads a .env file when present and then builds a Config from the
// environment.  Missing required variables are reported together.
func Load() (Config, error) {
	_ = godotenv.Load() // a missing .env file is not an error

	var missing []string
	must := func(key string) string {
		v, ok := os.LookupEnv(key)
		if !ok || strings.TrimSpace(v) == "" {
			missing = append(missing, key)
		}
		return v
	}

	cfg := Config{
		Env:       must("APP_ENV"),
		Port:      must("APP_PORT"),
		JWTSecret: must("JWT_SECRET"),

		DBDriver: strings.ToLower(envStr("DB_DRIVER", "mysql")),
		DBUser:   envStr("DB_USER", "root"),
		DBPass:   os.Getenv("DB_PASS"),
		DBHost:   envStr("DB_HOST", "127.0.0.1"),
		DBPort:   envStr("DB_PORT", "3306"),
		DBName:   envStr("DB_NAME", "studio"),
		DBPath:   envStr("DB_PATH", "data/studio.db"),

		AccessTTLMin: envInt("ACCESS_TOKEN_TTL_MIN", 60*24*7),
		BcryptCost:   envInt("BCRYPT_COST", 12),
		CookieSecure: envBool("COOKIE_SECURE", false),

		AutoVerifyEmail:   envBool("AUTO_VERIFY_EMAIL", false),
		OTPTTL:            envDur("OTP_TTL", 10*time.Minute),
		TokenSweepSpec:    envStr("TOKEN_SWEEP_CRON", "@every 5m"),
		AdminSignupKey:    os.Getenv("ADMIN_REGISTRATION_KEY"),
		AppBaseURL:        strings.TrimRight(envStr("APP_BASE_URL", "http://localhost:8080"), "/"),
		CheckoutReturnURL: envStr("CHECKOUT_RETURN_URL", "http://localhost:8080/checkout/complete"),

		SMTPHost: os.Getenv("SMTP_HOST"),
		SMTPPort: envInt("SMTP_PORT", 587),
		SMTPUser: os.Getenv("SMTP_USER"),
		SMTPPass: os.Getenv("SMTP_PASS"),
		MailFrom: envStr("MAIL_FROM", "no-reply@studio.local"),

		RabbitURL: rabbitURL(),

		OmisePublicKey:  os.Getenv("OMISE_PUBLIC_KEY"),
		OmiseSecretKey:  os.Getenv("OMISE_SECRET_KEY"),
		OmiseSourceType: envStr("OMISE_SOURCE_TYPE", "promptpay"),
		Currency:        strings.ToLower(envStr("PAYMENT_CURRENCY", "thb")),

		Logging: LoggingConfig{
			Level:    envStr("LOG_LEVEL", "info"),
			Format:   envStr("LOG_FORMAT", "json"),
			Output:   envStr("LOG_OUTPUT", "stdout"),
			FilePath: os.Getenv("LOG_FILE"),
		},
		MetricsEnabled: envBool("METRICS_ENABLED", true),
	}
	if len(missing) > 0 {
		return Config{}, fmt.Errorf("missing required env vars: %s", strings.Join(missing, ", "))
	}
	if cfg.DBDriver != "mysql" && cfg.DBDriver != "sqlite3" {
		return Config{}, fmt.Errorf("unsupported DB_DRIVER %q", cfg.DBDriver)
	}
	if _, err := strconv.Atoi(cfg.Port); err != nil {
		return Config{}, fmt.Errorf("invalid APP_PORT %q", cfg.Port)
	}
	return cfg, nil
}

// rabbitURL honours both RABBITMQ_URL and the older AMQP_URL name.
func rabbitURL() string {
	if v := os.Getenv("RABBITMQ_URL"); v != "" {
		return v
	}
	return os.Getenv("AMQP_URL")
}
