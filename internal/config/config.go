package config // package config loads application configuration from environment variables

import (
	"log"     // log is used to report configuration errors and halt execution
	"os"      // os provides access to environment variables
	"strings"
)

// Config holds all runtime configuration values.  Each field corresponds to
// an environment variable.  Required values are enforced by must(); the rest
// fall back to defaults suitable for local development.
type Config struct {
	Env          string // application environment (e.g. "dev", "production")
	Port         string // HTTP port to listen on
	DBUser       string // database username
	DBPass       string // database password (optional)
	DBHost       string // database host address
	DBPort       string // database port number
	DBName       string // database name
	AutoMigrate  bool   // apply the embedded schema on startup
	JWTSecret    string // secret used to sign bearer tokens
	AccessTTLMin int    // bearer token time-to-live in minutes
	BcryptCost   int    // bcrypt cost for password hashing
	AppURL       string // public base URL used to build media links
	Media        MediaConfig
	Mail         MailConfig
}

// MediaConfig controls where uploaded images live and how they are served.
type MediaConfig struct {
	Root         string // directory on disk holding uploaded files
	PublicPrefix string // URL prefix the directory is served under
	MaxBytes     int64  // upload size cap
	DefaultImage string // reference assigned to new user profiles
}

// MailConfig selects the OTP delivery driver and its SMTP settings.
type MailConfig struct {
	Driver      string // smtp | queue | log
	Host        string
	Port        int
	User        string
	Password    string
	From        string
	FromName    string
	RabbitMQURL string
}

// Load reads configuration values from environment variables and returns a
// Config.  Missing required values cause the program to exit with a fatal
// log message.
func Load() Config {
	return Config{
		Env:          getenv("APP_ENV", "dev"),
		Port:         getenv("APP_PORT", "8080"),
		DBUser:       must("DB_USER"),
		DBPass:       os.Getenv("DB_PASS"), // empty allowed
		DBHost:       getenv("DB_HOST", "127.0.0.1"),
		DBPort:       getenv("DB_PORT", "3306"),
		DBName:       must("DB_NAME"),
		AutoMigrate:  envBool("DB_AUTO_MIGRATE", true),
		JWTSecret:    must("JWT_SECRET"),
		AccessTTLMin: envInt("ACCESS_TOKEN_TTL_MIN", 60*24*7),
		BcryptCost:   envInt("BCRYPT_COST", 10),
		AppURL:       strings.TrimRight(getenv("APP_URL", "http://localhost:8080"), "/"),
		Media: MediaConfig{
			Root:         getenv("MEDIA_ROOT", "storage/app/public"),
			PublicPrefix: getenv("MEDIA_PUBLIC_PREFIX", "/storage"),
			MaxBytes:     int64(envInt("MEDIA_MAX_KB", 2048)) * 1024,
			DefaultImage: getenv("DEFAULT_PROFILE_IMAGE", "user_profiles/default.png"),
		},
		Mail: MailConfig{
			Driver:      strings.ToLower(getenv("MAIL_DRIVER", "log")),
			Host:        getenv("SMTP_HOST", "localhost"),
			Port:        envInt("SMTP_PORT", 587),
			User:        os.Getenv("SMTP_USER"),
			Password:    os.Getenv("SMTP_PASSWORD"),
			From:        getenv("SMTP_FROM", "no-reply@localhost"),
			FromName:    getenv("SMTP_FROM_NAME", "Equipment Rental"),
			RabbitMQURL: rabbitURL(),
		},
	}
}

// IsProduction reports whether the service runs with production settings.
func (c Config) IsProduction() bool {
	return c.Env == "production" || c.Env == "prod"
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

// rabbitURL honours both RABBITMQ_URL and AMQP_URL.  Empty means no broker.
func rabbitURL() string {
	if v := os.Getenv("RABBITMQ_URL"); v != "" {
		return v
	}
	return os.Getenv("AMQP_URL")
}

// QueueEnabled reports whether a RabbitMQ broker is configured.
func (c MailConfig) QueueEnabled() bool { return c.RabbitMQURL != "" }
