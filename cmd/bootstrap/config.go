package bootstrap

import (
	"errors"
	"io/fs"

	"academy-booking/internal/pkg/config"

	"github.com/joho/godotenv"
	"go.uber.org/fx"
)

var ConfigModule = fx.Module("config",
	fx.Provide(
		NewConfig,
	),
)

// NewConfig reads an optional .env for local runs; variables already set in the
// environment take precedence.
func NewConfig() (config.Config, error) {
	if err := godotenv.Load(".env"); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return config.Config{}, err
	}
	return config.LoadConfig()
}
