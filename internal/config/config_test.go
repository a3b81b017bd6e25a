package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadServerConfigDefaults(t *testing.T) {
	for _, key := range []string{"CARDTABLE_ADDR", "CARDTABLE_POLL_INTERVAL", "CARDTABLE_GAME_CONFIG", "CARDTABLE_SCRIPT"} {
		t.Setenv(key, "")
		os.Unsetenv(key)
	}

	c, err := LoadServerConfig()
	if err != nil {
		t.Fatalf("LoadServerConfig() error = %v", err)
	}
	if c.Addr != ":8080" {
		t.Fatalf("Addr = %q", c.Addr)
	}
	if c.PollInterval != 250*time.Millisecond {
		t.Fatalf("PollInterval = %v", c.PollInterval)
	}
	if c.GameConfigPath != "game.json" {
		t.Fatalf("GameConfigPath = %q", c.GameConfigPath)
	}
	if c.ScriptPath != "" {
		t.Fatalf("ScriptPath = %q", c.ScriptPath)
	}
}

func TestLoadServerConfigFromEnv(t *testing.T) {
	t.Setenv("CARDTABLE_ADDR", ":9999")
	t.Setenv("CARDTABLE_POLL_INTERVAL", "50ms")
	t.Setenv("CARDTABLE_GAME_CONFIG", "/etc/cardtable/game.json")
	t.Setenv("CARDTABLE_SCRIPT", "/etc/cardtable/game.lua")

	c, err := LoadServerConfig()
	if err != nil {
		t.Fatalf("LoadServerConfig() error = %v", err)
	}
	if c.Addr != ":9999" || c.PollInterval != 50*time.Millisecond {
		t.Fatalf("config = %+v", c)
	}
	if c.GameConfigPath != "/etc/cardtable/game.json" || c.ScriptPath != "/etc/cardtable/game.lua" {
		t.Fatalf("config = %+v", c)
	}
}

func TestParseEnvRejectsBadValue(t *testing.T) {
	t.Setenv("CARDTABLE_POLL_INTERVAL", "not-a-duration")
	var c ServerConfig
	if err := ParseEnv(&c); err == nil {
		t.Fatal("ParseEnv() accepted a malformed duration")
	}
}

// LoadGameConfig caches its first result for the process lifetime, so one
// test covers the load path end to end.
func TestLoadGameConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "game.json")
	data := `{
		"script": "demo",
		"seats": [
			{"user": "player1"},
			{"user": "player2", "bot": "random"},
			{"user": "player3", "transport": "rest"}
		],
		"shuffle_seed": 42,
		"bot_delay_millis": 150
	}`
	if err := os.WriteFile(path, []byte(data), 0o600); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	if err := LoadGameConfig(path); err != nil {
		t.Fatalf("LoadGameConfig() error = %v", err)
	}
	c := GetGameConfig()
	if c == nil {
		t.Fatal("GetGameConfig() = nil after load")
	}
	if c.Script != "demo" || len(c.Seats) != 3 {
		t.Fatalf("config = %+v", c)
	}
	if c.Seats[1].Bot != "random" || c.Seats[2].Transport != "rest" {
		t.Fatalf("seats = %+v", c.Seats)
	}
	if c.ShuffleSeed != 42 {
		t.Fatalf("ShuffleSeed = %d", c.ShuffleSeed)
	}
	if got := BotDelay(); got != 150*time.Millisecond {
		t.Fatalf("BotDelay() = %v", got)
	}

	// Later calls return the cached result even for another path.
	if err := LoadGameConfig(filepath.Join(t.TempDir(), "missing.json")); err != nil {
		t.Fatalf("cached LoadGameConfig() error = %v", err)
	}
	if GetGameConfig() != c {
		t.Fatal("cached config replaced")
	}
}
