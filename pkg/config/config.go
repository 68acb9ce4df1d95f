package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

type Pricing struct {
	TaxRate          float64
	FreeShippingOver float64
	ShippingFee      float64
}

type Config struct {
	ServiceName string
	Env         string
	LogLevel    string

	ServerPort int

	DatabaseURL string
	DBDriver    string

	JWTSecret []byte
	JWTTTL    time.Duration
	CookieTTL time.Duration

	CORSOrigins []string
	BodyLimit   string

	KafkaBrokers []string

	ElasticURL      string
	ElasticUser     string
	ElasticPassword string
	ElasticIndex    string

	RedisURL string

	Pricing         Pricing
	LowStockDefault int
}

func Load() Config {
	return Config{
		ServiceName: EnvDefault("SERVICE_NAME", "radiant_bloom"),
		Env:         EnvDefault("APP_ENV", "development"),
		LogLevel:    EnvDefault("LOG_LEVEL", "info"),

		ServerPort: EnvIntDefault("SERVER_PORT", 8080),

		DatabaseURL: os.Getenv("DATABASE_URL"),
		DBDriver:    EnvDefault("DB_DRIVER", "pgx"),

		JWTSecret: []byte(os.Getenv("JWT_SECRET")),
		JWTTTL:    EnvDurationDefault("JWT_EXPIRES_IN", 7*24*time.Hour),
		CookieTTL: EnvDurationDefault("JWT_COOKIE_EXPIRES_IN", 7*24*time.Hour),

		CORSOrigins: CSV(EnvDefault("CORS_ORIGINS", "http://localhost:5173")),
		BodyLimit:   EnvDefault("BODY_LIMIT", "10M"),

		KafkaBrokers: CSV(os.Getenv("KAFKA_BROKERS")),

		ElasticURL:      os.Getenv("ES_URL"),
		ElasticUser:     os.Getenv("ES_USER"),
		ElasticPassword: os.Getenv("ES_PASSWORD"),
		ElasticIndex:    EnvDefault("ES_INDEX", "products"),

		RedisURL: os.Getenv("REDIS_URL"),

		Pricing: Pricing{
			TaxRate:          EnvFloatDefault("TAX_RATE", 0.08),
			FreeShippingOver: EnvFloatDefault("FREE_SHIPPING_OVER", 50),
			ShippingFee:      EnvFloatDefault("SHIPPING_FEE", 10),
		},
		LowStockDefault: EnvIntDefault("LOW_STOCK_THRESHOLD", 5),
	}
}

func (c Config) IsDevelopment() bool {
	return c.Env == "development"
}

func CSV(v string) []string {
	if v == "" {
		return nil
	}
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

func EnvDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func EnvIntDefault(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

func EnvFloatDefault(key string, def float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return def
	}
	return f
}

// EnvDurationDefault accepts Go durations ("15m") and the "7d" day form.
func EnvDurationDefault(key string, def time.Duration) time.Duration {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	if days, ok := strings.CutSuffix(v, "d"); ok {
		n, err := strconv.Atoi(days)
		if err != nil || n <= 0 {
			return def
		}
		return time.Duration(n) * 24 * time.Hour
	}
	d, err := time.ParseDuration(v)
	if err != nil || d <= 0 {
		return def
	}
	return d
}

func EnvBoolDefault(key string, def bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}
