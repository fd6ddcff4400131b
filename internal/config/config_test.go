package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg == nil {
		t.Fatal("DefaultConfig returned nil")
	}

	if cfg.Listen != ":8888" {
		t.Errorf("expected default listen :8888, got %s", cfg.Listen)
	}

	if cfg.WebSocket.Enabled {
		t.Error("expected WebSocket bridge disabled by default")
	}

	if len(cfg.WebSocket.AllowedOrigins) != 0 {
		t.Errorf("expected empty allowed origins by default, got %v", cfg.WebSocket.AllowedOrigins)
	}

	if cfg.WebSocket.MaxMessageSize != 4096 {
		t.Errorf("expected max message size 4096, got %d", cfg.WebSocket.MaxMessageSize)
	}
}

func TestLoadConfig_FileNotExists(t *testing.T) {
	cfg, err := LoadConfig("/nonexistent/path/config.yaml")

	if err != nil {
		t.Errorf("expected no error for missing file, got %v", err)
	}

	if cfg == nil {
		t.Fatal("expected default config for missing file, got nil")
	}

	if cfg.Listen != ":8888" {
		t.Errorf("expected default listen for missing file, got %s", cfg.Listen)
	}
}

func TestLoadConfig_ValidFile(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "server.yaml")

	content := `
listen: ":9000"
websocket:
  enabled: true
  listen: ":9001"
  allowed_origins:
    - "https://example.com"
    - "http://localhost:3000"
  max_message_size: 8192
connections:
  max_per_ip: 2
  max_total: 10
`
	if err := os.WriteFile(configPath, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadConfig(configPath)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Listen != ":9000" {
		t.Errorf("expected listen :9000, got %s", cfg.Listen)
	}

	if !cfg.WebSocket.Enabled {
		t.Error("expected WebSocket bridge enabled")
	}

	if len(cfg.WebSocket.AllowedOrigins) != 2 {
		t.Errorf("expected 2 allowed origins, got %d", len(cfg.WebSocket.AllowedOrigins))
	}

	if cfg.WebSocket.MaxMessageSize != 8192 {
		t.Errorf("expected max message size 8192, got %d", cfg.WebSocket.MaxMessageSize)
	}

	if cfg.Connections.MaxPerIP != 2 || cfg.Connections.MaxTotal != 10 {
		t.Errorf("connection limits not loaded: %+v", cfg.Connections)
	}
}

func TestIsOriginAllowed_EmptyList_SameOrigin(t *testing.T) {
	cfg := WebSocketConfig{
		AllowedOrigins: []string{},
	}

	// Same origin (no Origin header)
	if !cfg.IsOriginAllowed("", "localhost:8889") {
		t.Error("expected empty origin to be allowed (same-origin)")
	}

	// Same origin (matching host)
	if !cfg.IsOriginAllowed("http://localhost:8889", "localhost:8889") {
		t.Error("expected matching origin to be allowed (same-origin)")
	}

	// Different origin should be rejected
	if cfg.IsOriginAllowed("http://evil.com", "localhost:8889") {
		t.Error("expected different origin to be rejected (same-origin policy)")
	}
}

func TestIsOriginAllowed_Wildcard(t *testing.T) {
	cfg := WebSocketConfig{
		AllowedOrigins: []string{"*"},
	}

	if !cfg.IsOriginAllowed("http://anything.com", "localhost:8889") {
		t.Error("expected wildcard to allow any origin")
	}

	if !cfg.IsOriginAllowed("", "localhost:8889") {
		t.Error("expected wildcard to allow empty origin")
	}
}

func TestIsOriginAllowed_ExactMatch(t *testing.T) {
	cfg := WebSocketConfig{
		AllowedOrigins: []string{
			"https://example.com",
			"http://localhost:3000",
		},
	}

	if !cfg.IsOriginAllowed("https://example.com", "localhost:8889") {
		t.Error("expected exact match to be allowed")
	}

	if cfg.IsOriginAllowed("http://evil.com", "localhost:8889") {
		t.Error("expected non-matching origin to be rejected")
	}

	// Partial match should not work
	if cfg.IsOriginAllowed("https://example.com:8080", "localhost:8889") {
		t.Error("expected partial match to be rejected")
	}
}

func TestIsSameOrigin(t *testing.T) {
	tests := []struct {
		origin      string
		requestHost string
		expected    bool
	}{
		{"", "localhost:8889", true},                       // No origin header
		{"http://localhost:8889", "localhost:8889", true},  // HTTP match
		{"https://localhost:8889", "localhost:8889", true}, // HTTPS match
		{"http://localhost:8889/", "localhost:8889", true}, // Trailing slash
		{"http://example.com", "localhost:8889", false},    // Different host
		{"http://localhost:3000", "localhost:8889", false}, // Different port
		{"ws://localhost:8889", "localhost:8889", true},    // WebSocket scheme
	}

	for _, tt := range tests {
		result := isSameOrigin(tt.origin, tt.requestHost)
		if result != tt.expected {
			t.Errorf("isSameOrigin(%q, %q) = %v, want %v",
				tt.origin, tt.requestHost, result, tt.expected)
		}
	}
}
