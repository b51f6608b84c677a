package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestParse_MinimalConfig(t *testing.T) {
	yaml := `
accounts:
  - server: imap.example.com:993
    user: alice
    password: secret
`
	cfg, err := Parse([]byte(yaml))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}

	// check defaults applied
	if cfg.Workers != 10 {
		t.Errorf("Workers = %d, want 10", cfg.Workers)
	}
	if cfg.Timeout.Duration() != 30*time.Second {
		t.Errorf("Timeout = %v, want 30s", cfg.Timeout.Duration())
	}
	if cfg.Mailbox != "INBOX" {
		t.Errorf("Mailbox = %q, want INBOX", cfg.Mailbox)
	}
	if len(cfg.Accounts) != 1 {
		t.Fatalf("len(Accounts) = %d, want 1", len(cfg.Accounts))
	}
}

func TestParse_FullConfig(t *testing.T) {
	yaml := `
workers: 3
timeout: 5s
mailbox: Archive

accounts:
  - server: imap.example.com:993
    user: alice
    password: a-secret
  - server: "[2001:db8::25]:143"
    user: bob
    password: b-secret
`
	cfg, err := Parse([]byte(yaml))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}

	if cfg.Workers != 3 {
		t.Errorf("Workers = %d, want 3", cfg.Workers)
	}
	if cfg.Timeout.Duration() != 5*time.Second {
		t.Errorf("Timeout = %v, want 5s", cfg.Timeout.Duration())
	}
	if cfg.Mailbox != "Archive" {
		t.Errorf("Mailbox = %q, want Archive", cfg.Mailbox)
	}

	want := []AccountConfig{
		{Server: "imap.example.com:993", User: "alice", Password: "a-secret"},
		{Server: "[2001:db8::25]:143", User: "bob", Password: "b-secret"},
	}
	if len(cfg.Accounts) != len(want) {
		t.Fatalf("len(Accounts) = %d, want %d", len(cfg.Accounts), len(want))
	}
	for i := range want {
		if cfg.Accounts[i] != want[i] {
			t.Errorf("Accounts[%d] = %+v, want %+v", i, cfg.Accounts[i], want[i])
		}
	}
}

func TestParse_BareList(t *testing.T) {
	yaml := `
- server: imap.example.com
  user: alice
  password: secret
- server: mail.example.org:993
  user: bob
  password: other
`
	cfg, err := Parse([]byte(yaml))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}

	if len(cfg.Accounts) != 2 {
		t.Fatalf("len(Accounts) = %d, want 2", len(cfg.Accounts))
	}
	if cfg.Accounts[1].User != "bob" {
		t.Errorf("Accounts[1].User = %q, want bob", cfg.Accounts[1].User)
	}
	if cfg.Workers != DefaultWorkers || cfg.Mailbox != DefaultMailbox {
		t.Errorf("defaults not applied: workers=%d mailbox=%q", cfg.Workers, cfg.Mailbox)
	}
}

func TestParse_Empty(t *testing.T) {
	for _, input := range []string{"", "[]", "accounts: []"} {
		cfg, err := Parse([]byte(input))
		if err != nil {
			t.Fatalf("Parse(%q) error = %v", input, err)
		}
		if len(cfg.Accounts) != 0 {
			t.Errorf("Parse(%q) accounts = %d, want 0", input, len(cfg.Accounts))
		}
	}
}

func TestParse_AddressNotValidated(t *testing.T) {
	yaml := `
- server: "bad::host"
  user: alice
  password: secret
`
	cfg, err := Parse([]byte(yaml))
	if err != nil {
		t.Fatalf("Parse() error = %v, want malformed server accepted at load time", err)
	}
	if cfg.Accounts[0].Server != "bad::host" {
		t.Errorf("Server = %q, want bad::host", cfg.Accounts[0].Server)
	}
}

func TestParse_EnvVarSubstitution(t *testing.T) {
	// t.Setenv auto-restores after test
	t.Setenv("TEST_IMAP_HOST", "imap.test.com")
	t.Setenv("TEST_IMAP_USER", "carol")
	t.Setenv("TEST_IMAP_PASSWORD", "secret123")

	yaml := `
accounts:
  - server: ${TEST_IMAP_HOST}:993
    user: ${TEST_IMAP_USER}
    password: ${TEST_IMAP_PASSWORD}
`
	cfg, err := Parse([]byte(yaml))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}

	want := AccountConfig{Server: "imap.test.com:993", User: "carol", Password: "secret123"}
	if cfg.Accounts[0] != want {
		t.Errorf("Accounts[0] = %+v, want %+v", cfg.Accounts[0], want)
	}
}

func TestParse_EnvVarDefault(t *testing.T) {
	yaml := `
accounts:
  - server: ${UNSET_VAR:-fallback.example.com}
    user: alice
    password: ${UNSET_PASSWORD:-}
`
	cfg, err := Parse([]byte(yaml))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}

	if cfg.Accounts[0].Server != "fallback.example.com" {
		t.Errorf("Server = %q, want fallback.example.com", cfg.Accounts[0].Server)
	}
	if cfg.Accounts[0].Password != "" {
		t.Errorf("Password = %q, want empty", cfg.Accounts[0].Password)
	}
}

func TestParse_EnvVarMissing(t *testing.T) {
	// MISSING_PASSWORD is expected to not exist in the environment
	yaml := `
accounts:
  - server: imap.example.com
    user: alice
    password: ${MISSING_PASSWORD}
`
	_, err := Parse([]byte(yaml))
	if err == nil {
		t.Fatal("Parse() expected error for missing env var, got nil")
	}
	if !strings.Contains(err.Error(), "MISSING_PASSWORD") {
		t.Errorf("error should mention MISSING_PASSWORD: %v", err)
	}
	if !errors.Is(err, ErrInvalid) {
		t.Errorf("error should wrap ErrInvalid: %v", err)
	}
}

func TestParse_ValidationErrors(t *testing.T) {
	tests := []struct {
		name        string
		yaml        string
		wantErrLike string
	}{
		{
			name:        "zero workers",
			yaml:        "workers: 0\naccounts: []",
			wantErrLike: "workers must be positive",
		},
		{
			name:        "negative workers",
			yaml:        "workers: -2\naccounts: []",
			wantErrLike: "workers must be positive",
		},
		{
			name:        "non-numeric workers",
			yaml:        "workers: many\naccounts: []",
			wantErrLike: "workers must be an integer",
		},
		{
			name:        "fractional workers",
			yaml:        "workers: 2.5\naccounts: []",
			wantErrLike: "workers must be an integer",
		},
		{
			name:        "invalid duration",
			yaml:        "timeout: soon\naccounts: []",
			wantErrLike: "invalid duration",
		},
		{
			name:        "timeout below minimum",
			yaml:        "timeout: 500ms\naccounts: []",
			wantErrLike: "timeout must be at least 1s",
		},
		{
			name:        "negative timeout",
			yaml:        "timeout: -5s\naccounts: []",
			wantErrLike: "timeout must be at least 1s",
		},
		{
			name:        "missing server",
			yaml:        "accounts:\n  - user: alice\n    password: pw",
			wantErrLike: "accounts[0]: server is required",
		},
		{
			name:        "blank server",
			yaml:        "accounts:\n  - server: '  '\n    user: alice",
			wantErrLike: "server is required",
		},
		{
			name:        "missing user",
			yaml:        "accounts:\n  - server: imap.example.com\n    password: pw",
			wantErrLike: "accounts[0] (imap.example.com): user is required",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.yaml))
			if err == nil {
				t.Fatal("Parse() expected error, got nil")
			}
			if !strings.Contains(err.Error(), tt.wantErrLike) {
				t.Errorf("error = %q, want to contain %q", err.Error(), tt.wantErrLike)
			}
			if !errors.Is(err, ErrInvalid) {
				t.Errorf("error = %v, want wrapping ErrInvalid", err)
			}
		})
	}
}

func TestParse_InvalidYAML(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"broken syntax", "this is not: valid: yaml: at all\n  - broken\n"},
		{"scalar document", "just a string"},
		{"account is a list", "accounts:\n  - [a, b]"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.yaml))
			if err == nil {
				t.Fatal("Parse() expected error for invalid YAML, got nil")
			}
			if errors.Is(err, ErrInvalid) {
				t.Errorf("decode error %v should not wrap ErrInvalid", err)
			}
		})
	}
}

func TestDuration_UnmarshalYAML(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    time.Duration
		wantErr bool
	}{
		{"seconds", "10s", 10 * time.Second, false},
		{"minutes", "2m", 2 * time.Minute, false},
		{"hours", "1h", 1 * time.Hour, false},
		{"combined", "1m30s", 90 * time.Second, false},
		{"invalid", "not-a-duration", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := Parse([]byte("timeout: " + tt.input))
			if tt.wantErr {
				if err == nil {
					t.Fatal("Parse() expected error, got nil")
				}
				return
			}
			if err != nil {
				t.Fatalf("Parse() error = %v", err)
			}
			if cfg.Timeout.Duration() != tt.want {
				t.Errorf("Timeout = %v, want %v", cfg.Timeout.Duration(), tt.want)
			}
		})
	}
}

func TestExpandEnvVars(t *testing.T) {
	t.Setenv("TEST_VAR", "value")
	t.Setenv("EMPTY_VAR", "") // set but empty

	tests := []struct {
		name    string
		input   string
		want    string
		wantErr bool
	}{
		{"no vars", "plain text", "plain text", false},
		{"simple var", "${TEST_VAR}", "value", false},
		{"var in text", "prefix ${TEST_VAR} suffix", "prefix value suffix", false},
		{"multiple vars", "${TEST_VAR}-${TEST_VAR}", "value-value", false},
		{"with default (var set)", "${TEST_VAR:-default}", "value", false},
		{"with default (var unset)", "${UNSET:-default}", "default", false},
		{"missing required", "${MISSING}", "", true},
		{"empty default (var unset)", "${UNSET:-}", "", false},
		{"set but empty var", "${EMPTY_VAR}", "", false},
		{"set but empty with default", "${EMPTY_VAR:-fallback}", "", false}, // set var takes precedence
		{"dollar without braces", "pa$$word", "pa$$word", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// UNSET and MISSING are expected to not exist in environment
			got, err := expandEnvVars(tt.input)
			if tt.wantErr {
				if err == nil {
					t.Fatal("expandEnvVars() expected error, got nil")
				}
				return
			}
			if err != nil {
				t.Fatalf("expandEnvVars() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("expandEnvVars() = %q, want %q", got, tt.want)
			}
		})
	}
}

// writeConfig writes content to a file in a temp dir with the given mode.
func writeConfig(t *testing.T, content string, mode os.FileMode) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), mode); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}
	// WriteFile honours umask; force the exact mode
	if err := os.Chmod(path, mode); err != nil {
		t.Fatalf("failed to chmod config: %v", err)
	}
	return path
}

func TestLoad_Valid(t *testing.T) {
	path := writeConfig(t, "- server: imap.example.com\n  user: alice\n  password: pw\n", 0o600)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if len(cfg.Accounts) != 1 {
		t.Errorf("len(Accounts) = %d, want 1", len(cfg.Accounts))
	}
}

func TestLoad_OwnerReadOnly(t *testing.T) {
	path := writeConfig(t, "[]", 0o400)

	if _, err := Load(path); err != nil {
		t.Fatalf("Load() error = %v, want 0400 accepted", err)
	}
}

func TestLoad_LoosePermissions(t *testing.T) {
	for _, mode := range []os.FileMode{0o640, 0o604, 0o644, 0o660, 0o666} {
		t.Run(mode.String(), func(t *testing.T) {
			path := writeConfig(t, "[]", mode)

			_, err := Load(path)
			if err == nil {
				t.Fatalf("Load() with mode %04o expected error, got nil", mode)
			}
			if !strings.Contains(err.Error(), "must not be accessible by group or others") {
				t.Errorf("error = %q, want permission message", err.Error())
			}
			if errors.Is(err, ErrInvalid) {
				t.Errorf("permission error %v should not wrap ErrInvalid", err)
			}
		})
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	if err == nil {
		t.Fatal("Load() expected error for missing file, got nil")
	}
	if !errors.Is(err, os.ErrNotExist) {
		t.Errorf("error = %v, want wrapping os.ErrNotExist", err)
	}
}

func TestLoad_Directory(t *testing.T) {
	dir := t.TempDir()
	if err := os.Chmod(dir, 0o700); err != nil {
		t.Fatal(err)
	}

	_, err := Load(dir)
	if err == nil || !strings.Contains(err.Error(), "not a regular file") {
		t.Errorf("Load(dir) error = %v, want not a regular file", err)
	}
}

func TestDefaultPath(t *testing.T) {
	t.Setenv("HOME", "/home/alice")

	got, err := DefaultPath()
	if err != nil {
		t.Fatalf("DefaultPath() error = %v", err)
	}
	if want := "/home/alice/.config/mail-pinger/config.yaml"; got != want {
		t.Errorf("DefaultPath() = %q, want %q", got, want)
	}
}

func TestDefaultPath_NoHome(t *testing.T) {
	t.Setenv("HOME", "")

	if _, err := DefaultPath(); err == nil {
		t.Error("DefaultPath() expected error with $HOME unset, got nil")
	}
}
