// Package config loads notesec settings from TOML and the environment.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"notesec/internal/container"
)

const (
	DefaultAPIURL           = "http://127.0.0.1:7334"
	DefaultConversationsDir = "chats"
	DefaultDBFileName       = "notesec.db"
	DefaultLogLevel         = "debug"
	DefaultReadConcurrency  = 10
	DefaultFetchTimeout     = "30s"

	DefaultResolverMaxBytes int64 = 100 * 1024 * 1024

	configFileName = ".notesec.toml"
	appDirName     = "notesec"
	redactedValue  = "<redacted>"

	configDirEnvKey  = "NOTESEC_CONFIG_DIR"
	dataRootEnvKey   = "NOTESEC_DATA_ROOT"
	apiURLEnvKey     = "NOTESEC_API_URL"
	dbPathEnvKey     = "NOTESEC_DB"
	keyHexEnvKey     = "NOTESEC_KEY_HEX"
	passphraseEnvKey = "NOTESEC_PASSPHRASE"
)

// EncryptionConfig holds the container key material. KeyHex wins over
// Passphrase when both are set.
type EncryptionConfig struct {
	KeyHex     string `toml:"key_hex"`
	Passphrase string `toml:"passphrase"`
}

// StoreConfig tunes conversation storage.
type StoreConfig struct {
	ReadConcurrency int `toml:"read_concurrency"`
}

// ResolverConfig bounds attachment source fetching.
type ResolverConfig struct {
	FetchTimeout string `toml:"fetch_timeout"`
	MaxBytes     int64  `toml:"max_bytes"`
}

// Config defines runtime configuration for notesec.
type Config struct {
	DataRoot         string           `toml:"data_root"`
	ConversationsDir string           `toml:"conversations_dir"`
	APIURL           string           `toml:"api_url"`
	DBPath           string           `toml:"db_path"`
	LogLevel         string           `toml:"log_level"`
	Encryption       EncryptionConfig `toml:"encryption"`
	Store            StoreConfig      `toml:"store"`
	Resolver         ResolverConfig   `toml:"resolver"`
}

// Default returns default configuration values. DataRoot and DBPath are
// resolved by Load.
func Default() Config {
	return Config{
		ConversationsDir: DefaultConversationsDir,
		APIURL:           DefaultAPIURL,
		LogLevel:         DefaultLogLevel,
		Store: StoreConfig{
			ReadConcurrency: DefaultReadConcurrency,
		},
		Resolver: ResolverConfig{
			FetchTimeout: DefaultFetchTimeout,
			MaxBytes:     DefaultResolverMaxBytes,
		},
	}
}

func loadFile(path string, cfg *Config) error {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	if info.IsDir() {
		return nil
	}
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	return nil
}

var allowedKeys = []string{
	"data_root",
	"conversations_dir",
	"api_url",
	"db_path",
	"log_level",
	"encryption.key_hex",
	"encryption.passphrase",
	"store.read_concurrency",
	"resolver.fetch_timeout",
	"resolver.max_bytes",
}

var secretKeys = map[string]struct{}{
	"encryption.key_hex":    {},
	"encryption.passphrase": {},
}

// AllowedKeys returns the set of valid config keys.
func AllowedKeys() []string {
	return allowedKeys
}

// IsAllowedKey checks if a key is a valid config key.
func IsAllowedKey(key string) bool {
	for _, k := range allowedKeys {
		if k == key {
			return true
		}
	}
	return false
}

// Get returns the value of a config key. Key material is redacted.
func (c *Config) Get(key string) (string, error) {
	var value string
	switch key {
	case "data_root":
		value = c.DataRoot
	case "conversations_dir":
		value = c.ConversationsDir
	case "api_url":
		value = c.APIURL
	case "db_path":
		value = c.DBPath
	case "log_level":
		value = c.LogLevel
	case "encryption.key_hex":
		value = c.Encryption.KeyHex
	case "encryption.passphrase":
		value = c.Encryption.Passphrase
	case "store.read_concurrency":
		value = strconv.Itoa(c.Store.ReadConcurrency)
	case "resolver.fetch_timeout":
		value = c.Resolver.FetchTimeout
	case "resolver.max_bytes":
		value = strconv.FormatInt(c.Resolver.MaxBytes, 10)
	default:
		return "", fmt.Errorf("unknown key: %s", key)
	}
	if _, secret := secretKeys[key]; secret && value != "" {
		return redactedValue, nil
	}
	return value, nil
}

// GlobalPath returns the path to the config file.
func GlobalPath() (string, error) {
	if dir := strings.TrimSpace(os.Getenv(configDirEnvKey)); dir != "" {
		return filepath.Join(dir, configFileName), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, configFileName), nil
}

// SetKey reads the TOML file at path, sets key=value, and writes it back.
func SetKey(path, key, value string) error {
	if !IsAllowedKey(key) {
		return fmt.Errorf("unknown key: %s", key)
	}

	data := make(map[string]any)
	if _, err := os.Stat(path); err == nil {
		if _, err := toml.DecodeFile(path, &data); err != nil {
			return fmt.Errorf("parse %s: %w", path, err)
		}
	}

	parsedValue, err := parseSetValue(key, value)
	if err != nil {
		return err
	}
	if err := setNestedKey(data, strings.Split(key, "."), parsedValue); err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}

	// The file may carry key material.
	f, err := os.OpenFile(path, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o600)
	if err != nil {
		return err
	}
	defer f.Close()

	return toml.NewEncoder(f).Encode(data)
}

// Load reads the config file and applies env overrides.
func Load() (*Config, error) {
	cfg := Default()

	path, err := GlobalPath()
	if err == nil {
		if err := loadFile(path, &cfg); err != nil {
			return nil, err
		}
	}

	if v := os.Getenv(dataRootEnvKey); v != "" {
		cfg.DataRoot = v
	}
	if v := os.Getenv(apiURLEnvKey); v != "" {
		cfg.APIURL = v
	}
	if v := os.Getenv(dbPathEnvKey); v != "" {
		cfg.DBPath = v
	}
	if v := strings.TrimSpace(os.Getenv(keyHexEnvKey)); v != "" {
		cfg.Encryption.KeyHex = v
	}
	if v := os.Getenv(passphraseEnvKey); v != "" {
		cfg.Encryption.Passphrase = v
	}

	if cfg.DataRoot == "" {
		root, err := defaultDataRoot()
		if err != nil {
			return nil, err
		}
		cfg.DataRoot = root
	}
	if cfg.DBPath == "" {
		cfg.DBPath = filepath.Join(cfg.DataRoot, DefaultDBFileName)
	}

	cfg.normalize()
	return &cfg, nil
}

func defaultDataRoot() (string, error) {
	if xdg := strings.TrimSpace(os.Getenv("XDG_DATA_HOME")); xdg != "" {
		return filepath.Join(xdg, appDirName), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve data root: %w", err)
	}
	return filepath.Join(home, ".local", "share", appDirName), nil
}

// FetchTimeout parses resolver.fetch_timeout.
func (c *Config) FetchTimeout() (time.Duration, error) {
	raw := strings.TrimSpace(c.Resolver.FetchTimeout)
	if raw == "" {
		raw = DefaultFetchTimeout
	}
	d, err := time.ParseDuration(raw)
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("resolver.fetch_timeout must be a positive duration, got %q", raw)
	}
	return d, nil
}

// ContainerKey builds the process-wide container key from the configured
// key material.
func (c *Config) ContainerKey() (*container.Key, error) {
	if c.Encryption.KeyHex != "" {
		return container.ParseKeyHex(c.Encryption.KeyHex)
	}
	if c.Encryption.Passphrase != "" {
		return container.DeriveKey(c.Encryption.Passphrase)
	}
	return nil, fmt.Errorf("no encryption key configured; set %s or %s (or encryption.key_hex / encryption.passphrase)", keyHexEnvKey, passphraseEnvKey)
}

func parseSetValue(key, value string) (any, error) {
	value = strings.TrimSpace(value)
	switch key {
	case "store.read_concurrency":
		parsed, err := strconv.Atoi(value)
		if err != nil || parsed <= 0 {
			return nil, fmt.Errorf("%s must be a positive integer", key)
		}
		return parsed, nil
	case "resolver.max_bytes":
		parsed, err := strconv.ParseInt(value, 10, 64)
		if err != nil || parsed <= 0 {
			return nil, fmt.Errorf("%s must be a positive integer", key)
		}
		return parsed, nil
	case "resolver.fetch_timeout":
		if d, err := time.ParseDuration(value); err != nil || d <= 0 {
			return nil, fmt.Errorf("%s must be a positive duration", key)
		}
		return value, nil
	case "encryption.key_hex":
		if _, err := container.ParseKeyHex(value); err != nil {
			return nil, fmt.Errorf("%s: %w", key, err)
		}
		return value, nil
	case "conversations_dir":
		if value == "" || strings.ContainsAny(value, `/\`) || value == "." || value == ".." {
			return nil, fmt.Errorf("%s must be a single directory name", key)
		}
		return value, nil
	default:
		return value, nil
	}
}

func setNestedKey(data map[string]any, parts []string, value any) error {
	if len(parts) == 0 {
		return fmt.Errorf("invalid config key")
	}
	if len(parts) == 1 {
		data[parts[0]] = value
		return nil
	}
	childRaw, ok := data[parts[0]]
	if !ok {
		child := map[string]any{}
		data[parts[0]] = child
		return setNestedKey(child, parts[1:], value)
	}
	child, ok := childRaw.(map[string]any)
	if !ok {
		return fmt.Errorf("cannot set nested key %q", strings.Join(parts, "."))
	}
	return setNestedKey(child, parts[1:], value)
}

func (c *Config) normalize() {
	if strings.TrimSpace(c.ConversationsDir) == "" {
		c.ConversationsDir = DefaultConversationsDir
	}
	if strings.TrimSpace(c.LogLevel) == "" {
		c.LogLevel = DefaultLogLevel
	}
	if c.Store.ReadConcurrency <= 0 {
		c.Store.ReadConcurrency = DefaultReadConcurrency
	}
	if c.Resolver.MaxBytes <= 0 {
		c.Resolver.MaxBytes = DefaultResolverMaxBytes
	}
	if strings.TrimSpace(c.Resolver.FetchTimeout) == "" {
		c.Resolver.FetchTimeout = DefaultFetchTimeout
	}
}
