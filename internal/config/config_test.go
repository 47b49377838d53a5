package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "client.toml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadMergesDefaults(t *testing.T) {
	path := writeConfig(t, `
[client]
name = "vega"
client_id = 7

[network]
transport = "ws"
server_address = "battle.example:9000"

[turn]
plan_delay = "2s"
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Client.Name != "vega" || cfg.Client.ClientID != 7 {
		t.Errorf("client = %+v", cfg.Client)
	}
	if cfg.Network.Transport != "ws" || cfg.Network.ServerAddress != "battle.example:9000" {
		t.Errorf("network = %+v", cfg.Network)
	}
	if cfg.Network.InQueueSize != 64 {
		t.Errorf("in_queue_size default lost: %d", cfg.Network.InQueueSize)
	}
	if cfg.Turn.PlanDelay != 2*time.Second {
		t.Errorf("plan_delay = %s", cfg.Turn.PlanDelay)
	}
	if cfg.Turn.ExitGrace != 5*time.Second {
		t.Errorf("exit_grace default lost: %s", cfg.Turn.ExitGrace)
	}
	if cfg.Client.StartTime == 0 {
		t.Error("start time not stamped")
	}
}

func TestLoadRejectsInvalid(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{"transport", "[network]\ntransport = \"udp\"\n", "network.transport"},
		{"sink", "[journal]\nsink = \"kafka\"\n", "journal.sink"},
		{"frame rate", "[turn]\nframe_rate = 0\n", "frame_rate"},
		{"grace", "[turn]\nexit_grace = \"1s\"\n", "exit_grace"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.body))
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("Load err = %v, want mention of %q", err, tt.want)
			}
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.toml")); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestFrameInterval(t *testing.T) {
	if got := (TurnConfig{FrameRate: 50}).FrameInterval(); got != 20*time.Millisecond {
		t.Errorf("FrameInterval = %s", got)
	}
}
