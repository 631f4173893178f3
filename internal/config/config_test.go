package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeTemp(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

const validJSON = `{
	"discord": {"token": "bot-token", "privileged": ["111", 222]},
	"elastic": {"baseUrl": "https://es.local:9200", "apiKey": "key", "index": "chat"}
}`

func TestLoadJSON(t *testing.T) {
	cfg, err := Load(writeTemp(t, "config.json", validJSON))
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Discord.Token != "bot-token" {
		t.Errorf("token = %q", cfg.Discord.Token)
	}
	if got := []string(cfg.Discord.Privileged); len(got) != 2 || got[0] != "111" || got[1] != "222" {
		t.Errorf("privileged = %v, want [111 222]", got)
	}
	// Defaults survive a partial config.
	if cfg.Discord.CommandPrefix != "!" {
		t.Errorf("commandPrefix = %q, want \"!\"", cfg.Discord.CommandPrefix)
	}
	if !cfg.Elastic.InsecureSkipVerify {
		t.Error("insecureSkipVerify should default to true")
	}
	if cfg.Elastic.TimeoutSeconds != 30 {
		t.Errorf("timeoutSeconds = %d, want 30", cfg.Elastic.TimeoutSeconds)
	}
}

func TestLoadYAML(t *testing.T) {
	path := writeTemp(t, "config.yaml", `
discord:
  token: bot-token
  privileged:
    - "111"
    - 222
elastic:
  baseUrl: https://es.local:9200
  apiKey: key
  index: chat
  insecureSkipVerify: false
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if got := []string(cfg.Discord.Privileged); len(got) != 2 || got[1] != "222" {
		t.Errorf("privileged = %v, want numeric ids coerced to strings", got)
	}
	if cfg.Elastic.InsecureSkipVerify {
		t.Error("explicit insecureSkipVerify=false should override the default")
	}
}

func TestLoadMissingCredentials(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{"no token", `{"elastic":{"baseUrl":"u","apiKey":"k","index":"i"}}`, "discord.token"},
		{"no base url", `{"discord":{"token":"t"},"elastic":{"apiKey":"k","index":"i"}}`, "elastic.baseUrl"},
		{"no api key", `{"discord":{"token":"t"},"elastic":{"baseUrl":"u","index":"i"}}`, "elastic.apiKey"},
		{"no index", `{"discord":{"token":"t"},"elastic":{"baseUrl":"u","apiKey":"k"}}`, "elastic.index"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeTemp(t, "config.json", tt.body))
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("error %q does not name %q", err, tt.want)
			}
		})
	}
}

func TestEmptyPrivilegedIsNotFatal(t *testing.T) {
	cfg, err := Load(writeTemp(t, "config.json",
		`{"discord":{"token":"t"},"elastic":{"baseUrl":"u","apiKey":"k","index":"i"}}`))
	if err != nil {
		t.Fatal(err)
	}
	if len(cfg.Discord.Privileged) != 0 {
		t.Errorf("privileged = %v, want empty", cfg.Discord.Privileged)
	}
}

func TestSaveRoundTrip(t *testing.T) {
	cfg := Defaults()
	cfg.Discord.Token = "t"
	cfg.Elastic.BaseURL = "https://es.local:9200"
	cfg.Elastic.APIKey = "k"
	cfg.Elastic.Index = "chat"

	path := filepath.Join(t.TempDir(), "config.json")
	if err := Save(path, cfg); err != nil {
		t.Fatal(err)
	}
	loaded, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if loaded.Elastic.Index != "chat" {
		t.Errorf("index = %q after round trip", loaded.Elastic.Index)
	}
}

func TestSanitizeMasksCredentials(t *testing.T) {
	cfg := Defaults()
	cfg.Discord.Token = "super-secret-discord-token"
	cfg.Elastic.APIKey = "short"

	s := Sanitize(cfg)
	if s.Discord.Token == cfg.Discord.Token {
		t.Error("token not masked")
	}
	if !strings.HasPrefix(s.Discord.Token, "supe") {
		t.Errorf("mask should keep a prefix, got %q", s.Discord.Token)
	}
	if s.Elastic.APIKey != "***" {
		t.Errorf("short key should be fully masked, got %q", s.Elastic.APIKey)
	}
	// Original untouched.
	if cfg.Discord.Token != "super-secret-discord-token" {
		t.Error("Sanitize mutated the original config")
	}
}

func TestGetSetByPath(t *testing.T) {
	cfg := Defaults()
	if err := SetByPath(cfg, "elastic.index", "chat-v2"); err != nil {
		t.Fatal(err)
	}
	if cfg.Elastic.Index != "chat-v2" {
		t.Errorf("index = %q after SetByPath", cfg.Elastic.Index)
	}
	v, err := GetByPath(cfg, "elastic.index")
	if err != nil {
		t.Fatal(err)
	}
	if v != "chat-v2" {
		t.Errorf("GetByPath = %v", v)
	}
	if _, err := GetByPath(cfg, "elastic.nope"); err == nil {
		t.Error("expected error for unknown path")
	}
}
