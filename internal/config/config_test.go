package config

import "testing"

func TestServerDefaults(t *testing.T) {
	var cfg Server
	if err := Parse(&cfg); err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if cfg.GameAddr != ":7430" {
		t.Errorf("GameAddr = %q, want :7430", cfg.GameAddr)
	}
	if cfg.GridSize != 10 {
		t.Errorf("GridSize = %d, want 10", cfg.GridSize)
	}
	if cfg.NoDB {
		t.Error("NoDB should default to false")
	}
}

func TestServerOverrides(t *testing.T) {
	t.Setenv("GAME_ADDR", "127.0.0.1:9000")
	t.Setenv("GRID_SIZE", "12")
	t.Setenv("NO_DB", "true")

	var cfg Server
	if err := Parse(&cfg); err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if cfg.GameAddr != "127.0.0.1:9000" {
		t.Errorf("GameAddr = %q", cfg.GameAddr)
	}
	if cfg.GridSize != 12 {
		t.Errorf("GridSize = %d, want 12", cfg.GridSize)
	}
	if !cfg.NoDB {
		t.Error("NO_DB override not applied")
	}
}

func TestClientDefaults(t *testing.T) {
	var cfg Client
	if err := Parse(&cfg); err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if cfg.ServerAddr != "127.0.0.1:7430" {
		t.Errorf("ServerAddr = %q", cfg.ServerAddr)
	}
}
