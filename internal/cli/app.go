package cli

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"

	"github.com/f4ah6o/devserve-go/internal/certgen"
	"github.com/f4ah6o/devserve-go/internal/config"
	"github.com/f4ah6o/devserve-go/internal/logging"
	"github.com/f4ah6o/devserve-go/internal/server"
	"github.com/f4ah6o/devserve-go/internal/static"
)

// Flags are the options common to both commands.
type Flags struct {
	ConfigFile string
	Dir        string
	CertDir    string
	Verbose    bool
	AccessLog  bool
}

// RegisterFlags defines the common flags on fs. withTLS adds -cert-dir.
func RegisterFlags(fs *flag.FlagSet, withTLS bool) *Flags {
	f := &Flags{}
	fs.StringVar(&f.ConfigFile, "config", "", "Config file (.toml, .yaml); defaults to ./devserve.toml if present")
	fs.StringVar(&f.Dir, "dir", "", "Directory to serve (default: working directory)")
	fs.BoolVar(&f.Verbose, "v", false, "Enable debug logging")
	fs.BoolVar(&f.AccessLog, "access-log", false, "Log every request")
	if withTLS {
		fs.StringVar(&f.CertDir, "cert-dir", "", "Directory for cert.pem and key.pem (default: <tempdir>/"+certgen.DirName+")")
	}
	return f
}

// Load reads the configuration and applies flag overrides.
func (f *Flags) Load() (*config.Config, error) {
	cfg, err := config.Load(config.Options{File: f.ConfigFile})
	if err != nil {
		return nil, err
	}
	if f.Dir != "" {
		cfg.Server.Root = f.Dir
	}
	if f.CertDir != "" {
		cfg.TLS.CertDir = f.CertDir
	}
	if f.Verbose {
		cfg.Log.Level = "debug"
	}
	if f.AccessLog {
		cfg.Log.AccessLog = true
	}

	root, err := filepath.Abs(cfg.Server.Root)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve directory: %w", err)
	}
	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("directory not available: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("not a directory: %s", root)
	}
	cfg.Server.Root = root
	return cfg, nil
}

// NewRunner wires the static handler into a server.Runner.
func NewRunner(cfg *config.Config, log *logrus.Logger, console *logging.Console) (*server.Runner, error) {
	timeout, err := cfg.Server.Shutdown()
	if err != nil {
		return nil, err
	}
	handler := static.New(cfg.Server.Root,
		static.WithLogger(log),
		static.WithAccessLog(cfg.Log.AccessLog),
	)
	return &server.Runner{
		Handler:         handler,
		Host:            cfg.Server.Host,
		ShutdownTimeout: timeout,
		CallbackPath:    cfg.Auth.CallbackPath,
		Log:             log,
		Console:         console,
	}, nil
}

// NewAcquirer builds the certificate pipeline and target paths from cfg.
func NewAcquirer(cfg *config.Config, log *logrus.Logger) (*certgen.Acquirer, certgen.Paths, error) {
	validity, err := cfg.TLS.ValidityDuration()
	if err != nil {
		return nil, certgen.Paths{}, err
	}
	subject := certgen.DefaultSubject()
	subject.Validity = validity
	if cfg.TLS.Hosts != nil {
		subject.Hosts = cfg.TLS.Hosts
	}
	return certgen.NewAcquirer(subject, cfg.TLS.OpenSSL, log), certgen.Paths{Dir: cfg.TLS.CertDir}, nil
}
