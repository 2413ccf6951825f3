package config

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// -----------------------------------------------------------------------------
// Environment variable configuration guidelines:
// - required: Values that differ between environments (port, DB connection, etc.), security settings
// - default: Values common across all environments (timezone, timeout, etc.), standard settings
// -----------------------------------------------------------------------------

type Config struct {
	Server   ServerConfig
	DB       DBConfig
	Redis    RedisConfig
	RabbitMQ RabbitMQConfig
	CORS     CORSConfig
	Log      LogConfig
	JWT      JWTConfig
	Payment  PaymentConfig
	Booking  BookingConfig
	Outbox   OutboxConfig
}

type ServerConfig struct {
	Port string `envconfig:"PORT" required:"true"`
}

type DBConfig struct {
	Host     string `envconfig:"DB_HOST" default:"localhost"`
	Port     string `envconfig:"DB_PORT" default:"5432"`
	User     string `envconfig:"DB_USER" required:"true"`
	Password string `envconfig:"DB_PASSWORD" required:"true"`
	DBName   string `envconfig:"DB_NAME" required:"true"`
	SSLMode  string `envconfig:"DB_SSL_MODE" default:"disable"`
	TimeZone string `envconfig:"DB_TIMEZONE" default:"Asia/Kolkata"`
	MaxConns int32  `envconfig:"DB_MAX_CONNS" default:"20"`
}

// An empty Addr disables Redis; booking locks then fall back to in-process mutexes.
type RedisConfig struct {
	Addr     string        `envconfig:"REDIS_ADDR" default:""`
	Password string        `envconfig:"REDIS_PASSWORD" default:""`
	DB       int           `envconfig:"REDIS_DB" default:"0"`
	LockTTL  time.Duration `envconfig:"REDIS_LOCK_TTL" default:"30s"`
	LockWait time.Duration `envconfig:"REDIS_LOCK_WAIT" default:"5s"`
}

// An empty URL disables publishing; outbox jobs stay pending until a broker is configured.
type RabbitMQConfig struct {
	URL      string `envconfig:"RABBITMQ_URL" default:""`
	Exchange string `envconfig:"RABBITMQ_EXCHANGE" default:"academy.bookings"`
}

type CORSConfig struct {
	AllowOrigins     []string      `envconfig:"CORS_ALLOW_ORIGINS" default:"http://localhost:3000,http://localhost:8080"`
	AllowMethods     []string      `envconfig:"CORS_ALLOW_METHODS" default:"GET,POST,PUT,PATCH,DELETE,OPTIONS"`
	AllowHeaders     []string      `envconfig:"CORS_ALLOW_HEADERS" default:"Origin,Content-Type,Accept,Authorization"`
	ExposeHeaders    []string      `envconfig:"CORS_EXPOSE_HEADERS" default:"Content-Length"`
	AllowCredentials bool          `envconfig:"CORS_ALLOW_CREDENTIALS" default:"true"`
	MaxAge           time.Duration `envconfig:"CORS_MAX_AGE" default:"12h"`
}

type LogConfig struct {
	Level          string `envconfig:"LOG_LEVEL" default:"info"`
	TimeZone       string `envconfig:"LOG_TIMEZONE" default:"Asia/Kolkata"`
	TimeFormat     string `envconfig:"LOG_TIME_FORMAT" default:"2006-01-02 15:04:05.000"`
	TimeZoneOffset int    `envconfig:"LOG_TIMEZONE_OFFSET" default:"19800"` // 5.5*60*60
}

// Tokens are issued by the identity service; Duration only applies to tokens minted locally.
type JWTConfig struct {
	Secret   string        `envconfig:"JWT_SECRET" required:"true"`
	Issuer   string        `envconfig:"JWT_ISSUER" default:""`
	Duration time.Duration `envconfig:"JWT_DURATION" default:"24h"`
}

type PaymentConfig struct {
	BaseURL       string        `envconfig:"PAYMENT_BASE_URL" default:"https://api.razorpay.com/v1"`
	KeyID         string        `envconfig:"PAYMENT_KEY_ID" required:"true"`
	KeySecret     string        `envconfig:"PAYMENT_KEY_SECRET" required:"true"`
	WebhookSecret string        `envconfig:"PAYMENT_WEBHOOK_SECRET" required:"true"`
	Timeout       time.Duration `envconfig:"PAYMENT_TIMEOUT" default:"10s"`
	MaxRetries    uint64        `envconfig:"PAYMENT_MAX_RETRIES" default:"3"`
}

// OrderTimeout bounds one CreateOrder gateway call, retries included. It must
// stay below REDIS_LOCK_TTL so the booking lock outlives the call.
type BookingConfig struct {
	PaymentTimeout     time.Duration `envconfig:"BOOKING_PAYMENT_TIMEOUT" default:"30m"`
	MaxPaymentAttempts int           `envconfig:"BOOKING_MAX_PAYMENT_ATTEMPTS" default:"3"`
	ReserveTimeout     time.Duration `envconfig:"BOOKING_RESERVE_TIMEOUT" default:"5s"`
	OrderTimeout       time.Duration `envconfig:"BOOKING_ORDER_TIMEOUT" default:"20s"`
	SweepInterval      time.Duration `envconfig:"BOOKING_SWEEP_INTERVAL" default:"1m"`
	SweepBatchSize     int           `envconfig:"BOOKING_SWEEP_BATCH_SIZE" default:"100"`
}

type OutboxConfig struct {
	PollInterval time.Duration `envconfig:"OUTBOX_POLL_INTERVAL" default:"2s"`
	BatchSize    int           `envconfig:"OUTBOX_BATCH_SIZE" default:"50"`
	MaxAttempts  int           `envconfig:"OUTBOX_MAX_ATTEMPTS" default:"10"`
}

func (c *DBConfig) BuildDSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%s/%s?sslmode=%s&timezone=%s",
		c.User, c.Password, c.Host, c.Port, c.DBName, c.SSLMode, c.TimeZone,
	)
}

func LoadConfig() (Config, error) {
	var cfg Config
	err := envconfig.Process("", &cfg)
	if err != nil {
		return Config{}, fmt.Errorf("failed to process env config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	if c.Booking.OrderTimeout <= 0 {
		return fmt.Errorf("BOOKING_ORDER_TIMEOUT must be positive, got %s", c.Booking.OrderTimeout)
	}
	if c.Redis.Addr != "" && c.Booking.OrderTimeout >= c.Redis.LockTTL {
		return fmt.Errorf("BOOKING_ORDER_TIMEOUT (%s) must be shorter than REDIS_LOCK_TTL (%s)",
			c.Booking.OrderTimeout, c.Redis.LockTTL)
	}
	if c.Payment.Timeout > c.Booking.OrderTimeout {
		return fmt.Errorf("PAYMENT_TIMEOUT (%s) must not exceed BOOKING_ORDER_TIMEOUT (%s)",
			c.Payment.Timeout, c.Booking.OrderTimeout)
	}
	return nil
}

func NewTestConfig() Config {
	return Config{
		Server: ServerConfig{
			Port: "8889", // Test port
		},
		DB: DBConfig{
			Host:     "localhost",
			Port:     "15433", // Test DB port
			User:     "test",
			Password: "test",
			DBName:   "test_db",
			SSLMode:  "disable",
			TimeZone: "Asia/Kolkata",
			MaxConns: 10,
		},
		Redis: RedisConfig{
			LockTTL:  5 * time.Second,
			LockWait: 2 * time.Second,
		},
		RabbitMQ: RabbitMQConfig{
			Exchange: "academy.bookings.test",
		},
		Log: LogConfig{
			Level:          "error", // Error level only for tests
			TimeZone:       "Asia/Kolkata",
			TimeFormat:     "2006-01-02 15:04:05.000",
			TimeZoneOffset: 19800,
		},
		JWT: JWTConfig{
			Secret:   "test-secret",
			Issuer:   "academy-identity-test",
			Duration: time.Hour,
		},
		Payment: PaymentConfig{
			BaseURL:       "http://localhost:0",
			KeyID:         "rzp_test_key",
			KeySecret:     "rzp_test_secret",
			WebhookSecret: "rzp_webhook_secret",
			Timeout:       2 * time.Second,
			MaxRetries:    1,
		},
		Booking: BookingConfig{
			PaymentTimeout:     30 * time.Minute,
			MaxPaymentAttempts: 3,
			ReserveTimeout:     5 * time.Second,
			OrderTimeout:       3 * time.Second,
			SweepInterval:      time.Minute,
			SweepBatchSize:     100,
		},
		Outbox: OutboxConfig{
			PollInterval: time.Second,
			BatchSize:    50,
			MaxAttempts:  10,
		},
	}
}
