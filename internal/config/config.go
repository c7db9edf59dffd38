package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Defaults.
const (
	DefaultHTTPPort        = 8080
	DefaultHTTPSPort       = 8443
	DefaultFallbackPort    = 8080
	DefaultValidity        = "365d"
	DefaultShutdownTimeout = "5s"
	DefaultCallbackPath    = "/public/index.html"
	DefaultOpenSSL         = "openssl"
	EnvPrefix              = "DEVSERVE_"
)

// SearchFiles are tried in the working directory when no file is given.
var SearchFiles = []string{"devserve.toml", "devserve.yaml", "devserve.yml"}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Root:            ".",
			HTTPPort:        DefaultHTTPPort,
			HTTPSPort:       DefaultHTTPSPort,
			ShutdownTimeout: DefaultShutdownTimeout,
		},
		TLS: TLSConfig{
			FallbackPort: DefaultFallbackPort,
			Validity:     DefaultValidity,
			Hosts:        []string{"localhost", "127.0.0.1"},
			OpenSSL:      DefaultOpenSSL,
		},
		Log: LogConfig{
			Level: "info",
		},
		Auth: AuthConfig{
			CallbackPath: DefaultCallbackPath,
		},
	}
}

// Options tells Load where to look.
type Options struct {
	// File is an explicit config file. It must exist when set.
	File string
	// Dir is searched for SearchFiles and .env. Defaults to the working directory.
	Dir string
	// EnvFile overrides the .env location.
	EnvFile string
}

// Load builds the configuration from defaults, files and the environment.
// Command-line flags are applied afterwards by the caller.
func Load(opts Options) (*Config, error) {
	cfg := Default()

	dir := opts.Dir
	if dir == "" {
		wd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("failed to get working directory: %w", err)
		}
		dir = wd
	}

	file := opts.File
	if file == "" {
		for _, name := range SearchFiles {
			p := filepath.Join(dir, name)
			if _, err := os.Stat(p); err == nil {
				file = p
				break
			}
		}
	}
	if file != "" {
		if err := decodeFile(file, cfg); err != nil {
			return nil, err
		}
	}

	envFile := opts.EnvFile
	if envFile == "" {
		envFile = filepath.Join(dir, ".env")
	}
	dotenv, err := godotenv.Read(envFile)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to read %s: %w", envFile, err)
	}
	lookup := func(key string) (string, bool) {
		if v, ok := os.LookupEnv(key); ok {
			return v, true
		}
		v, ok := dotenv[key]
		return v, ok
	}
	if err := applyEnv(cfg, lookup); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func decodeFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".toml":
		if _, err := toml.Decode(string(data), cfg); err != nil {
			return fmt.Errorf("failed to parse %s: %w", path, err)
		}
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return fmt.Errorf("failed to parse %s: %w", path, err)
		}
	default:
		return fmt.Errorf("unsupported config file extension %q", ext)
	}
	return nil
}

func applyEnv(cfg *Config, lookup func(string) (string, bool)) error {
	str := func(name string, dst *string) {
		if v, ok := lookup(EnvPrefix + name); ok {
			*dst = v
		}
	}
	num := func(name string, dst *int) error {
		v, ok := lookup(EnvPrefix + name)
		if !ok {
			return nil
		}
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return fmt.Errorf("invalid %s%s: %w", EnvPrefix, name, err)
		}
		*dst = n
		return nil
	}

	str("ROOT", &cfg.Server.Root)
	str("HOST", &cfg.Server.Host)
	str("SHUTDOWN_TIMEOUT", &cfg.Server.ShutdownTimeout)
	str("CERT_DIR", &cfg.TLS.CertDir)
	str("CERT_VALIDITY", &cfg.TLS.Validity)
	str("OPENSSL", &cfg.TLS.OpenSSL)
	str("LOG_LEVEL", &cfg.Log.Level)
	str("CALLBACK_PATH", &cfg.Auth.CallbackPath)

	for name, dst := range map[string]*int{
		"HTTP_PORT":     &cfg.Server.HTTPPort,
		"HTTPS_PORT":    &cfg.Server.HTTPSPort,
		"FALLBACK_PORT": &cfg.TLS.FallbackPort,
	} {
		if err := num(name, dst); err != nil {
			return err
		}
	}

	if v, ok := lookup(EnvPrefix + "CERT_HOSTS"); ok {
		var hosts []string
		for _, h := range strings.Split(v, ",") {
			if h = strings.TrimSpace(h); h != "" {
				hosts = append(hosts, h)
			}
		}
		cfg.TLS.Hosts = hosts
	}
	if v, ok := lookup(EnvPrefix + "ACCESS_LOG"); ok {
		b, err := strconv.ParseBool(strings.TrimSpace(v))
		if err != nil {
			return fmt.Errorf("invalid %sACCESS_LOG: %w", EnvPrefix, err)
		}
		cfg.Log.AccessLog = b
	}
	return nil
}

// Validate checks ports and durations.
func (c *Config) Validate() error {
	for name, port := range map[string]int{
		"http_port":     c.Server.HTTPPort,
		"https_port":    c.Server.HTTPSPort,
		"fallback_port": c.TLS.FallbackPort,
	} {
		if err := ValidPort(port); err != nil {
			return fmt.Errorf("invalid %s: %w", name, err)
		}
	}
	if _, err := c.Server.Shutdown(); err != nil {
		return err
	}
	if _, err := c.TLS.ValidityDuration(); err != nil {
		return err
	}
	return nil
}

// ValidPort reports whether port can be bound.
func ValidPort(port int) error {
	if port < 1 || port > 65535 {
		return fmt.Errorf("port %d out of range 1-65535", port)
	}
	return nil
}

// Shutdown returns the parsed shutdown timeout.
func (s ServerConfig) Shutdown() (time.Duration, error) {
	d, err := ParseDuration(s.ShutdownTimeout)
	if err != nil {
		return 0, fmt.Errorf("invalid shutdown_timeout: %w", err)
	}
	return d, nil
}

// ValidityDuration returns the parsed certificate lifetime.
func (t TLSConfig) ValidityDuration() (time.Duration, error) {
	d, err := ParseDuration(t.Validity)
	if err != nil {
		return 0, fmt.Errorf("invalid validity: %w", err)
	}
	return d, nil
}

// ParseDuration accepts time.ParseDuration syntax plus a whole-day form
// such as "365d". The result must be positive.
func ParseDuration(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)
	var d time.Duration
	if days, ok := strings.CutSuffix(s, "d"); ok {
		n, err := strconv.Atoi(days)
		if err != nil {
			return 0, fmt.Errorf("invalid day count %q: %w", s, err)
		}
		d = time.Duration(n) * 24 * time.Hour
	} else {
		parsed, err := time.ParseDuration(s)
		if err != nil {
			return 0, err
		}
		d = parsed
	}
	if d <= 0 {
		return 0, fmt.Errorf("duration %q must be positive", s)
	}
	return d, nil
}
