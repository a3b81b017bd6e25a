// Package config loads the table setup from a JSON file and the server
// runtime settings from the environment.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/caarlos0/env/v11"
)

// Seat describes one player position at the table.
type Seat struct {
	User string `json:"user"`
	// Bot selects the strategy driving this seat when no human joins;
	// empty means the seat is human-controlled.
	Bot string `json:"bot,omitempty"`
	// Transport picks how a human seat connects: "rest" for the poll
	// transport, anything else (including empty) for the websocket one.
	Transport string `json:"transport,omitempty"`
}

// GameConfig is the per-table game setup.
type GameConfig struct {
	Script string `json:"script"`
	Seats  []Seat `json:"seats"`
	// ShuffleSeed overrides plugin-drawn shuffle seeds when non-zero, so a
	// game can be replayed deterministically.
	ShuffleSeed int64 `json:"shuffle_seed,omitempty"`
	// BotDelayMillis throttles bot responses so humans can follow along.
	BotDelayMillis int `json:"bot_delay_millis,omitempty"`
}

var (
	cfg      *GameConfig
	loadOnce sync.Once
	loadErr  error
)

// LoadGameConfig loads the game configuration from the given path.
func LoadGameConfig(path string) error {
	loadOnce.Do(func() {
		data, err := os.ReadFile(path)
		if err != nil {
			loadErr = fmt.Errorf("failed to read game config: %w", err)
			return
		}

		var c GameConfig
		if err := json.Unmarshal(data, &c); err != nil {
			loadErr = fmt.Errorf("failed to unmarshal game config: %w", err)
			return
		}
		cfg = &c
	})
	return loadErr
}

// GetGameConfig returns the global game configuration.
func GetGameConfig() *GameConfig {
	return cfg
}

// BotDelay returns the configured bot response delay, zero when unset.
func BotDelay() time.Duration {
	if cfg == nil {
		return 0
	}
	return time.Duration(cfg.BotDelayMillis) * time.Millisecond
}

// ServerConfig is the standalone host's runtime configuration.
type ServerConfig struct {
	Addr           string        `env:"CARDTABLE_ADDR" envDefault:":8080"`
	PollInterval   time.Duration `env:"CARDTABLE_POLL_INTERVAL" envDefault:"250ms"`
	GameConfigPath string        `env:"CARDTABLE_GAME_CONFIG" envDefault:"game.json"`
	ScriptPath     string        `env:"CARDTABLE_SCRIPT" envDefault:""`
}

// ParseEnv reads environment variables into target, applying defaults.
func ParseEnv(target any) error {
	if err := env.Parse(target); err != nil {
		return fmt.Errorf("parse environment: %w", err)
	}
	return nil
}

// LoadServerConfig parses the server configuration from the environment.
func LoadServerConfig() (ServerConfig, error) {
	var c ServerConfig
	if err := ParseEnv(&c); err != nil {
		return ServerConfig{}, err
	}
	return c, nil
}
