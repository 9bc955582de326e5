package config // package config loads application configuration from environment variables

import (
	"log"     // log is used to report configuration errors and halt execution
	"os"      // os provides access to environment variables
	"strconv" // strconv converts strings to other types
	"strings"
	"time"
)

// Config holds all runtime configuration values.  Each field corresponds to
// an environment variable.  Required values are enforced by must(); the rest
// fall back to defaults that suit local development.
type Config struct {
	Env            string // application environment (e.g. "dev", "prod")
	Port           string // HTTP port to listen on
	DBUser         string // database username
	DBPass         string // database password (optional)
	DBHost         string // database host address
	DBPort         string // database port number
	DBName         string // database name
	DBMigrate      bool   // apply the embedded schema on startup
	JWTSecret      string // secret used to sign JWTs
	AccessTTLMin   int    // access token time-to-live in minutes
	RefreshTTLDays int    // refresh token time-to-live in days
	ResetTTLMin    int    // password reset token time-to-live in minutes
	BcryptCost     int    // bcrypt cost for password hashing

	ResetRedirectURL   string   // default target of password reset links
	ResetRedirectAllow []string // extra origins a reset request may redirect to

	LogLevel  string
	LogFormat string // "json" or "console"
	LogDir    string // booking audit and mail outbox files

	StorageRoot      string // local directory backing the buckets
	StoragePublicURL string // URL prefix under which public buckets are served
	MaxUploadBytes   int64

	AMQPURL string // empty disables the broker; realtime events stay in-process

	CronEnabled      bool
	ReminderSchedule string // cron spec of the event reminder job
	PurgeSchedule    string // cron spec of the token purge job
	ReminderWindow   time.Duration

	MetricsEnabled bool
	CORSOrigins    []string
}

// Load reads configuration values from environment variables and returns a
// Config.  Missing required variables cause the program to exit with a fatal
// log message.
func Load() Config {
	return Config{
		Env:            must("APP_ENV"),
		Port:           must("APP_PORT"),
		DBUser:         must("DB_USER"),
		DBPass:         os.Getenv("DB_PASS"), // empty allowed
		DBHost:         must("DB_HOST"),
		DBPort:         must("DB_PORT"),
		DBName:         must("DB_NAME"),
		DBMigrate:      envBool("DB_MIGRATE", true),
		JWTSecret:      must("JWT_SECRET"),
		AccessTTLMin:   mustInt("ACCESS_TOKEN_TTL_MIN"),
		RefreshTTLDays: mustInt("REFRESH_TOKEN_TTL_DAYS"),
		ResetTTLMin:    envInt("RESET_TOKEN_TTL_MIN", 30),
		BcryptCost:     mustInt("BCRYPT_COST"),

		ResetRedirectURL:   envStr("RESET_REDIRECT_URL", "http://localhost:3000/reset-password"),
		ResetRedirectAllow: splitList(os.Getenv("RESET_REDIRECT_ALLOWLIST")),

		LogLevel:  envStr("LOG_LEVEL", "info"),
		LogFormat: envStr("LOG_FORMAT", "json"),
		LogDir:    envStr("LOG_DIR", "logs"),

		StorageRoot:      envStr("STORAGE_ROOT", "./data/storage"),
		StoragePublicURL: strings.TrimRight(envStr("STORAGE_PUBLIC_URL", "/storage"), "/"),
		MaxUploadBytes:   int64(envInt("STORAGE_MAX_UPLOAD_BYTES", 10<<20)),

		AMQPURL: amqpURL(),

		CronEnabled:      envBool("CRON_ENABLED", true),
		ReminderSchedule: envStr("CRON_REMINDERS", "@every 1h"),
		PurgeSchedule:    envStr("CRON_PURGE_TOKENS", "@daily"),
		ReminderWindow:   envDur("REMINDER_WINDOW", 24*time.Hour),

		MetricsEnabled: envBool("METRICS_ENABLED", true),
		CORSOrigins:    splitList(os.Getenv("CORS_ORIGINS")),
	}
}

// amqpURL honours both RABBITMQ_URL and the older AMQP_URL name.
func amqpURL() string {
	if v := os.Getenv("RABBITMQ_URL"); v != "" {
		return v
	}
	return os.Getenv("AMQP_URL")
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// must retrieves the value of a required environment variable.  If the
// variable is unset or empty, the application logs a fatal error and exits.
func must(key string) string {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		log.Fatalf("missing required env var: %s", key)
	}
	return v
}

// mustInt is like must() but converts the retrieved string into an integer.
func mustInt(key string) int {
	s := must(key)
	n, err := strconv.Atoi(s)
	if err != nil {
		log.Fatalf("invalid int for %s: %q", key, s)
	}
	return n
}
