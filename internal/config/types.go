// Package config provides the settings shared by the serve commands.
package config

// Config is the complete runtime configuration.
// It is assembled from defaults, an optional TOML or YAML file, a .env file,
// DEVSERVE_* environment variables and finally command-line flags.
type Config struct {
	// Server controls the listener and the served directory.
	Server ServerConfig `toml:"server" yaml:"server"`
	// TLS controls certificate provisioning for the HTTPS command.
	TLS TLSConfig `toml:"tls" yaml:"tls"`
	// Log controls the structured logger.
	Log LogConfig `toml:"log" yaml:"log"`
	// Auth holds the paths printed as identity-provider URLs in the HTTPS banner.
	Auth AuthConfig `toml:"auth" yaml:"auth"`
}

// ServerConfig describes where and what to serve.
type ServerConfig struct {
	// Root is the document root. Defaults to the working directory.
	// The front end conventionally lives in its public/ subdirectory.
	Root string `toml:"root" yaml:"root"`
	// Host is the bind address. Empty means all interfaces.
	Host string `toml:"host" yaml:"host"`
	// HTTPPort is the plain HTTP port (default 8080).
	HTTPPort int `toml:"http_port" yaml:"http_port"`
	// HTTPSPort is the TLS port (default 8443).
	HTTPSPort int `toml:"https_port" yaml:"https_port"`
	// ShutdownTimeout bounds graceful shutdown, as a Go duration string.
	ShutdownTimeout string `toml:"shutdown_timeout" yaml:"shutdown_timeout"`
}

// TLSConfig describes how the self-signed certificate is produced.
type TLSConfig struct {
	// CertDir holds cert.pem and key.pem. Defaults to <tempdir>/event-matcher-ssl.
	CertDir string `toml:"cert_dir" yaml:"cert_dir"`
	// FallbackPort is the plain HTTP port used when no certificate could be made.
	FallbackPort int `toml:"fallback_port" yaml:"fallback_port"`
	// Validity is the certificate lifetime, e.g. "365d" or "720h".
	Validity string `toml:"validity" yaml:"validity"`
	// Hosts become subject alternative names.
	Hosts []string `toml:"hosts" yaml:"hosts"`
	// OpenSSL is the external tool tried when in-process generation fails.
	OpenSSL string `toml:"openssl" yaml:"openssl"`
}

// LogConfig describes logging.
type LogConfig struct {
	// Level is a logrus level name.
	Level string `toml:"level" yaml:"level"`
	// AccessLog enables one record per request.
	AccessLog bool `toml:"access_log" yaml:"access_log"`
}

// AuthConfig holds identity-provider settings used only for console guidance.
type AuthConfig struct {
	// CallbackPath is appended to the server origin for callback and logout URLs.
	CallbackPath string `toml:"callback_path" yaml:"callback_path"`
}
