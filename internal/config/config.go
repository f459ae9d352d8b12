package config

import (
	"os"
	"strconv"
	"strings"

	"github.com/campusworks/acadia/pkg/db"
	"github.com/joho/godotenv"
	"go.uber.org/fx"
)

// Module loads configuration once per process.
var Module = fx.Module("config",
	fx.Provide(Load),
	fx.Provide(NewDBConfig),
	fx.Provide(NewTenancyPolicyHolder),
)

// Config holds application configuration.
type Config struct {
	AppName     string
	AppVersion  string
	Environment string
	HTTPAddr    string

	DBType            string
	DBHost            string
	DBPort            string
	DBName            string
	DBUser            string
	DBPassword        string
	DBSSLMode         string
	DBMaxIdleConn     int
	DBMaxOpenConn     int
	DBConnMaxLifetime int
	DBConnMaxIdleTime int

	KafkaBrokers []string
	KafkaGroupID string

	RedisURL string

	AccessTokenSecret  string
	RefreshTokenSecret string

	IdentityProviderURL string
	ClientURL           string

	BootstrapAdminEmail    string
	BootstrapAdminPassword string

	SMTPFrom string
}

// Load loads configuration from environment variables and .env file.
func Load() Config {
	_ = godotenv.Load()

	appName := getenv("APP_SERVICE", "acadia")

	return Config{
		AppName:     appName,
		AppVersion:  getenv("APP_VERSION", "0.1.0"),
		Environment: getenv("ENVIRONMENT", "development"),
		HTTPAddr:    getenv("HTTP_ADDR", ":8080"),

		DBType:            getenv("DATABASE_TYPE", "postgres"),
		DBHost:            getenv("DATABASE_HOST", "localhost"),
		DBPort:            getenv("DATABASE_PORT", "5432"),
		DBName:            getenv("DATABASE_NAME", appName),
		DBUser:            getenv("DATABASE_USER", "postgres"),
		DBPassword:        getenv("DATABASE_PASSWORD", "postgres"),
		DBSSLMode:         getenv("DATABASE_SSLMODE", "disable"),
		DBMaxIdleConn:     getenvInt("DATABASE_MAX_IDLE_CONN", 2),
		DBMaxOpenConn:     getenvInt("DATABASE_MAX_OPEN_CONN", 10),
		DBConnMaxLifetime: getenvInt("DATABASE_CONN_MAX_LIFETIME", 3600),
		DBConnMaxIdleTime: getenvInt("DATABASE_CONN_MAX_IDLE_TIME", 600),

		KafkaBrokers: splitList(getenv("KAFKA_BROKERS", "kafka:9092")),
		KafkaGroupID: getenv("KAFKA_GROUP_ID", appName+"-group"),

		RedisURL: getenv("REDIS_URL", "redis://localhost:6379"),

		AccessTokenSecret:  strings.TrimSpace(getenv("ACCESS_TOKEN_SECRET", "")),
		RefreshTokenSecret: strings.TrimSpace(getenv("REFRESH_TOKEN_SECRET", "")),

		IdentityProviderURL: getenv("IDENTITY_PROVIDER_URL", "http://authd:5000"),
		ClientURL:           getenv("CLIENT_URL", "http://localhost:3000"),

		BootstrapAdminEmail:    getenv("BOOTSTRAP_ADMIN_EMAIL", ""),
		BootstrapAdminPassword: getenv("BOOTSTRAP_ADMIN_PASSWORD", ""),

		SMTPFrom: getenv("SMTP_FROM", "no-reply@acadia.local"),
	}
}

// NewDBConfig maps the flat environment config onto the database layer's
// own config type.
func NewDBConfig(c Config) db.Config {
	return db.Config{
		Type:            c.DBType,
		Host:            c.DBHost,
		Port:            c.DBPort,
		Name:            c.DBName,
		User:            c.DBUser,
		Password:        c.DBPassword,
		SSLMode:         c.DBSSLMode,
		MaxIdleConn:     c.DBMaxIdleConn,
		MaxOpenConn:     c.DBMaxOpenConn,
		ConnMaxLifetime: c.DBConnMaxLifetime,
		ConnMaxIdleTime: c.DBConnMaxIdleTime,
	}
}

func (c Config) IsProduction() bool {
	return c.Environment == "production"
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvInt(key string, def int) int {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return def
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return def
	}
	return parsed
}

func splitList(raw string) []string {
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		out = append(out, p)
	}
	return out
}
