// Package config provides YAML configuration parsing for mailpinger.
//
// This package enables running mailpinger as a standalone binary with a
// configuration file, as an alternative to the programmatic SDK approach.
//
// Example configuration:
//
//	workers: 10
//	timeout: 30s
//	mailbox: INBOX
//
//	accounts:
//	  - server: imap.example.com:993
//	    user: alice
//	    password: ${ALICE_PASSWORD}
//
// A bare list of accounts (without the surrounding mapping) is accepted as
// well, in which case every setting takes its default.
//
// The file holds credentials, so [Load] refuses files that are readable or
// writable by group or others.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	// DefaultWorkers is the worker count used when the file sets none.
	DefaultWorkers = 10

	// DefaultTimeout is the per-step timeout used when the file sets none.
	DefaultTimeout = 30 * time.Second

	// DefaultMailbox is the mailbox examined when the file sets none.
	DefaultMailbox = "INBOX"
)

// MinTimeout is the smallest per-step timeout accepted from a file or flag.
const MinTimeout = 1 * time.Second

// ErrInvalid marks errors caused by a configuration value rather than by
// reading or decoding the file. Use errors.Is to tell them apart.
var ErrInvalid = errors.New("invalid configuration")

// Config is the root configuration structure for mailpinger.
//
// It maps directly to the YAML configuration file structure.
// Use [Load] or [Parse] to create a Config from YAML.
type Config struct {
	// Workers is the maximum number of accounts probed at once.
	// Defaults to 10. Must be positive.
	Workers int

	// Timeout bounds each step of a probe (connect, login, select, noop,
	// logout). Accepts duration strings like "10s" or "1m".
	// Defaults to 30s. Must be at least 1s.
	Timeout Duration

	// Mailbox is examined as the liveness check. Defaults to INBOX.
	Mailbox string

	// Accounts lists the mail accounts to probe, in file order.
	Accounts []AccountConfig
}

// AccountConfig defines a single mail account.
//
// All fields support environment variable substitution:
// ${VAR} or ${VAR:-default}.
type AccountConfig struct {
	// Server is "host", "host:port" or "[ipv6]:port". The grammar is
	// checked when the account is probed, not at load time.
	Server string `yaml:"server"`

	// User is the login name.
	User string `yaml:"user"`

	// Password is the login secret.
	Password string `yaml:"password"`
}

// Duration wraps time.Duration for YAML unmarshalling.
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler for Duration.
func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	var s string
	if err := node.Decode(&s); err != nil {
		return err
	}

	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("%w: invalid duration %q: %v", ErrInvalid, s, err)
	}

	*d = Duration(parsed)
	return nil
}

// Duration returns the underlying time.Duration value.
func (d Duration) Duration() time.Duration {
	return time.Duration(d)
}

// UnmarshalYAML implements yaml.Unmarshaler for Config.
//
// It accepts either the mapping form or a bare sequence of accounts.
func (c *Config) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.SequenceNode:
		return node.Decode(&c.Accounts)

	case yaml.MappingNode:
		// temporary struct to avoid infinite recursion
		var raw struct {
			Workers  *yaml.Node      `yaml:"workers"`
			Timeout  Duration        `yaml:"timeout"`
			Mailbox  string          `yaml:"mailbox"`
			Accounts []AccountConfig `yaml:"accounts"`
		}
		if err := node.Decode(&raw); err != nil {
			return err
		}

		if raw.Workers != nil {
			n, err := strconv.Atoi(strings.TrimSpace(raw.Workers.Value))
			if raw.Workers.Kind != yaml.ScalarNode || err != nil {
				return fmt.Errorf("%w: workers must be an integer, got %q", ErrInvalid, raw.Workers.Value)
			}
			if n <= 0 {
				return fmt.Errorf("%w: workers must be positive, got %d", ErrInvalid, n)
			}
			c.Workers = n
		}
		c.Timeout = raw.Timeout
		c.Mailbox = raw.Mailbox
		c.Accounts = raw.Accounts
		return nil
	}

	return fmt.Errorf("configuration must be a mapping or a list of accounts, got %v", kindName(node.Kind))
}

func kindName(k yaml.Kind) string {
	switch k {
	case yaml.ScalarNode:
		return "scalar"
	case yaml.AliasNode:
		return "alias"
	case yaml.DocumentNode:
		return "document"
	default:
		return fmt.Sprintf("kind %d", k)
	}
}

// envVarPattern matches ${VAR} and ${VAR:-default} patterns.
// Group 1: variable name
// Group 2: the ":-default" part (if present, indicates a default was specified)
// Group 3: the default value (may be empty for ${VAR:-})
var envVarPattern = regexp.MustCompile(`\$\{([^}:]+)(:-([^}]*))?\}`)

// expandEnvVars replaces ${VAR} and ${VAR:-default} patterns with environment values.
func expandEnvVars(s string) (string, error) {
	var firstErr error

	result := envVarPattern.ReplaceAllStringFunc(s, func(match string) string {
		if firstErr != nil {
			return match
		}

		submatches := envVarPattern.FindStringSubmatch(match)
		if len(submatches) < 2 {
			return match
		}

		varName := submatches[1]
		hasDefault := len(submatches) > 2 && submatches[2] != ""
		defaultVal := ""
		if hasDefault && len(submatches) > 3 {
			defaultVal = submatches[3]
		}

		value, exists := os.LookupEnv(varName)
		if !exists {
			if hasDefault {
				return defaultVal
			}
			firstErr = fmt.Errorf("environment variable %q is not set", varName)
			return match
		}
		return value
	})

	if firstErr != nil {
		return "", firstErr
	}
	return result, nil
}

// DefaultPath returns $HOME/.config/mail-pinger/config.yaml.
//
// Returns an error if the home directory cannot be determined.
func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("locating default config file: %w", err)
	}
	return filepath.Join(home, ".config", "mail-pinger", "config.yaml"), nil
}

// Load reads and parses a YAML configuration file.
//
// The file must not be accessible by group or others (mode 0600 or
// stricter). Returns an error if the file cannot be read, has loose
// permissions, or does not parse.
func Load(path string) (*Config, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	if err := checkPermissions(path, info.Mode()); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return Parse(data)
}

func checkPermissions(path string, mode fs.FileMode) error {
	if !mode.IsRegular() {
		return fmt.Errorf("config file %q is not a regular file", path)
	}
	if perm := mode.Perm(); perm&0o077 != 0 {
		return fmt.Errorf("config file %q has permissions %04o, must not be accessible by group or others (e.g. 0600)", path, perm)
	}
	return nil
}

// Parse parses YAML configuration data.
//
// Environment variables are expanded in every account field. Defaults are
// applied for Workers (10), Timeout (30s) and Mailbox (INBOX). An empty
// document yields a Config with no accounts.
//
// Errors caused by a bad value wrap [ErrInvalid]; YAML syntax errors do not.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		if errors.Is(err, ErrInvalid) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if cfg.Workers == 0 {
		cfg.Workers = DefaultWorkers
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = Duration(DefaultTimeout)
	}
	if cfg.Mailbox == "" {
		cfg.Mailbox = DefaultMailbox
	}

	if err := cfg.expandAndValidate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// expandAndValidate expands environment variables and validates the config.
func (c *Config) expandAndValidate() error {
	if c.Timeout.Duration() < MinTimeout {
		return fmt.Errorf("%w: timeout must be at least %s, got %s", ErrInvalid, MinTimeout, c.Timeout.Duration())
	}

	for i := range c.Accounts {
		a := &c.Accounts[i]

		fields := []struct {
			name string
			val  *string
		}{
			{"server", &a.Server},
			{"user", &a.User},
			{"password", &a.Password},
		}
		for _, f := range fields {
			expanded, err := expandEnvVars(*f.val)
			if err != nil {
				return fmt.Errorf("%w: accounts[%d]: %s: %v", ErrInvalid, i, f.name, err)
			}
			*f.val = expanded
		}

		if strings.TrimSpace(a.Server) == "" {
			return fmt.Errorf("%w: accounts[%d]: server is required", ErrInvalid, i)
		}
		if a.User == "" {
			return fmt.Errorf("%w: accounts[%d] (%s): user is required", ErrInvalid, i, a.Server)
		}
	}

	return nil
}
