// Package botkit implements the core of a dual-mode Telegram bot
// framework: configuration loading, command registration, authorization,
// message routing and the daemon dispatch loop. Concrete bot
// applications plug into it through the Application interface and the
// per-bot command registry.
package botkit

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/v2"
)

// envPrefix is the prefix for environment variables that override
// config file values, e.g. BOT_LOG_LEVEL overrides log_level.
const envPrefix = "BOT_"

// requiredKeys are checked in order; the first absent one is reported.
var requiredKeys = []string{"bot_token", "chat_ids"}

// Config holds the settings of one bot, read from its config file with
// optional BOT_* environment overrides.
type Config struct {
	BotToken     string `koanf:"bot_token"    validate:"required"`
	ChatIDs      string `koanf:"chat_ids"     validate:"required"`
	Unrestricted bool   `koanf:"unrestricted"`
	LogLevel     string `koanf:"log_level"    validate:"omitempty,oneof=debug info warn error"`
	LogJSON      bool   `koanf:"log_json"`

	dir     string
	raw     map[string]string
	chatIDs []int64
}

// Dir returns the bot's config directory, where applications keep their
// own flat-file state next to the config file.
func (c *Config) Dir() string {
	return c.dir
}

// Get returns the raw value of an application-specific config key, or
// the empty string when the key is not set.
func (c *Config) Get(key string) string {
	return c.raw[key]
}

// Destinations returns the authorized chat ids in config order.
func (c *Config) Destinations() []int64 {
	out := make([]int64, len(c.chatIDs))
	copy(out, c.chatIDs)
	return out
}

// DefaultConfigRoot returns the per-user config root, ~/.config on
// most systems.
func DefaultConfigRoot() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("resolving config root: %w", err)
	}
	return dir, nil
}

// ConfigDir returns the config directory for the named bot under root.
func ConfigDir(root, name string) string {
	return filepath.Join(root, "tgbot-"+strings.ToLower(name))
}

// LoadConfig reads <root>/tgbot-<lowercased name>/config, layers BOT_*
// environment variables on top and validates the result. It fails with
// ErrConfigNotFound when the file is missing and with MissingKeyError
// naming the first absent required key.
func LoadConfig(root, name string) (*Config, error) {
	dir := ConfigDir(root, name)
	path := filepath.Join(dir, "config")

	raw, err := parseConfigFile(path)
	if err != nil {
		return nil, err
	}

	vals := make(map[string]any, len(raw))
	for key, val := range raw {
		vals[key] = val
	}

	k := koanf.New(".")
	if err := k.Load(confmap.Provider(vals, "."), nil); err != nil {
		return nil, fmt.Errorf("loading config values: %w", err)
	}
	if err := k.Load(env.Provider(envPrefix, ".", func(s string) string {
		return strings.ToLower(strings.TrimPrefix(s, envPrefix))
	}), nil); err != nil {
		return nil, fmt.Errorf("loading environment overrides: %w", err)
	}

	cfg := &Config{LogLevel: "info", dir: dir}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}

	// Keep the merged view so applications can read their own keys.
	cfg.raw = make(map[string]string, len(k.Keys()))
	for _, key := range k.Keys() {
		cfg.raw[key] = k.String(key)
	}

	for _, key := range requiredKeys {
		if k.String(key) == "" {
			return nil, &MissingKeyError{Key: key}
		}
	}
	if err := validator.New().Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}

	cfg.chatIDs, err = parseChatIDs(cfg.ChatIDs)
	if err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}

	return cfg, nil
}

// parseConfigFile reads a key=value file. Blank lines and lines without
// an equals sign are ignored; there is no quoting or escaping.
func parseConfigFile(path string) (map[string]string, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrConfigNotFound, path)
		}
		return nil, fmt.Errorf("opening config %s: %w", path, err)
	}
	defer f.Close()

	vals := make(map[string]string)
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		key, val, ok := strings.Cut(sc.Text(), "=")
		if !ok {
			continue
		}
		vals[strings.TrimSpace(key)] = strings.TrimSpace(val)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("reading config %s: %w", path, err)
	}
	return vals, nil
}

func parseChatIDs(csv string) ([]int64, error) {
	var ids []int64
	for _, part := range strings.Split(csv, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		id, err := strconv.ParseInt(part, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("chat_ids entry %q is not an integer", part)
		}
		ids = append(ids, id)
	}
	if len(ids) == 0 {
		return nil, &MissingKeyError{Key: "chat_ids"}
	}
	return ids, nil
}
