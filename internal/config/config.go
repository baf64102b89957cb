// internal/config/config.go
//
// Environment-driven configuration for the server and client binaries.
// `.env` loading happens in main (godotenv); this package only parses the
// resulting environment into typed structs.

package config

import (
	"fmt"

	"github.com/caarlos0/env/v11"
)

// Server configures cmd/server.
type Server struct {
	GameAddr string `env:"GAME_ADDR" envDefault:":7430"`
	HTTPAddr string `env:"HTTP_ADDR" envDefault:":7431"`
	GridSize uint8  `env:"GRID_SIZE" envDefault:"10"`
	DBPath   string `env:"DB_PATH" envDefault:"./data/battleship.db"`
	NoDB     bool   `env:"NO_DB" envDefault:"false"`
	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`
}

// Client configures cmd/client.
type Client struct {
	ServerAddr string `env:"SERVER_ADDR" envDefault:"127.0.0.1:7430"`
	Username   string `env:"USERNAME"`
	LogLevel   string `env:"LOG_LEVEL" envDefault:"info"`
}

// Parse loads configuration from environment variables into target.
func Parse(target any) error {
	if err := env.Parse(target); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}
