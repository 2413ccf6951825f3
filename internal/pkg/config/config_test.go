//go:build unit

package config_test

import (
	"testing"
	"time"

	"academy-booking/internal/pkg/config"

	"github.com/stretchr/testify/assert"
)

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		modify  func(c *config.Config)
		wantErr string
	}{
		{
			name:   "test defaults",
			modify: func(c *config.Config) {},
		},
		{
			name: "order timeout must stay below the redis lock ttl",
			modify: func(c *config.Config) {
				c.Redis.Addr = "localhost:6379"
				c.Redis.LockTTL = 30 * time.Second
				c.Booking.OrderTimeout = 41 * time.Second
			},
			wantErr: "REDIS_LOCK_TTL",
		},
		{
			name: "lock ttl is irrelevant without redis",
			modify: func(c *config.Config) {
				c.Redis.LockTTL = time.Second
				c.Booking.OrderTimeout = 20 * time.Second
			},
		},
		{
			name: "single gateway attempt must fit the order budget",
			modify: func(c *config.Config) {
				c.Payment.Timeout = 10 * time.Second
				c.Booking.OrderTimeout = 5 * time.Second
			},
			wantErr: "PAYMENT_TIMEOUT",
		},
		{
			name: "order timeout required",
			modify: func(c *config.Config) {
				c.Booking.OrderTimeout = 0
			},
			wantErr: "BOOKING_ORDER_TIMEOUT",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := config.NewTestConfig()
			tt.modify(&cfg)

			err := cfg.Validate()

			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			assert.ErrorContains(t, err, tt.wantErr)
		})
	}
}

func TestLoadConfig_Defaults(t *testing.T) {
	t.Setenv("PORT", "8080")
	t.Setenv("DB_USER", "app")
	t.Setenv("DB_PASSWORD", "secret")
	t.Setenv("DB_NAME", "academy")
	t.Setenv("JWT_SECRET", "jwt-secret")
	t.Setenv("PAYMENT_KEY_ID", "rzp_key")
	t.Setenv("PAYMENT_KEY_SECRET", "rzp_secret")
	t.Setenv("PAYMENT_WEBHOOK_SECRET", "rzp_webhook")
	t.Setenv("REDIS_ADDR", "localhost:6379")

	cfg, err := config.LoadConfig()

	assert.NoError(t, err)
	assert.Less(t, cfg.Booking.OrderTimeout, cfg.Redis.LockTTL)

	t.Run("rejects an order budget longer than the lock", func(t *testing.T) {
		t.Setenv("BOOKING_ORDER_TIMEOUT", "45s")

		_, err := config.LoadConfig()

		assert.ErrorContains(t, err, "REDIS_LOCK_TTL")
	})
}
