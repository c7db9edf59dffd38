// Package certgen provisions a self-signed certificate and key for serving
// localhost over TLS.
//
// Generation is attempted by an ordered list of strategies. The first one
// that succeeds wins; the failures of the others are reported with a distinct
// error kind so that operators can tell a missing tool from a bad host name.
package certgen

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/sirupsen/logrus"
)

// DirName is the directory created under the system temp dir by default.
const DirName = "event-matcher-ssl"

// Error kinds returned (wrapped) by strategies. Match them with errors.Is.
var (
	// ErrLibraryUnavailable means the strategy cannot run at all on this
	// host, e.g. the external tool is not installed.
	ErrLibraryUnavailable = errors.New("certificate generator unavailable")
	// ErrInvalidSAN means a configured host could not be turned into a
	// subject alternative name.
	ErrInvalidSAN = errors.New("invalid subject alternative name")
	// ErrKeyGeneration means the private key could not be generated.
	ErrKeyGeneration = errors.New("key generation failed")
	// ErrSigning means the certificate could not be created or signed.
	ErrSigning = errors.New("certificate signing failed")
	// ErrWrite means the PEM files could not be written.
	ErrWrite = errors.New("writing certificate files failed")
	// ErrToolFailed means the external tool ran and exited unsuccessfully.
	ErrToolFailed = errors.New("certificate tool failed")
)

var kinds = []struct {
	err  error
	name string
}{
	{ErrLibraryUnavailable, "unavailable"},
	{ErrInvalidSAN, "invalid_san"},
	{ErrKeyGeneration, "key_generation"},
	{ErrSigning, "signing"},
	{ErrWrite, "write"},
	{ErrToolFailed, "tool_failed"},
}

// Kind returns a short name for the error kind of err, or "unknown".
func Kind(err error) string {
	for _, k := range kinds {
		if errors.Is(err, k.err) {
			return k.name
		}
	}
	return "unknown"
}

// Paths locates the certificate and key files.
type Paths struct {
	// Dir holds cert.pem and key.pem.
	Dir string
}

// DefaultDir returns <tempdir>/event-matcher-ssl.
func DefaultDir() string {
	return filepath.Join(os.TempDir(), DirName)
}

// CertFile returns the certificate path.
func (p Paths) CertFile() string { return filepath.Join(p.dir(), "cert.pem") }

// KeyFile returns the private key path.
func (p Paths) KeyFile() string { return filepath.Join(p.dir(), "key.pem") }

func (p Paths) dir() string {
	if p.Dir == "" {
		return DefaultDir()
	}
	return p.Dir
}

func (p Paths) ensure() error {
	if err := os.MkdirAll(p.dir(), 0o700); err != nil {
		return fmt.Errorf("%w: %w", ErrWrite, err)
	}
	return nil
}

// Strategy generates a certificate/key pair at the given paths.
type Strategy interface {
	Name() string
	Generate(ctx context.Context, paths Paths) error
}

// Result describes a successful acquisition.
type Result struct {
	// Strategy is the name of the strategy that produced the files.
	Strategy string
	CertFile string
	KeyFile  string
}

// Attempt records one failed strategy.
type Attempt struct {
	Strategy string
	Err      error
}

// AcquireError is returned when every strategy failed.
type AcquireError struct {
	Attempts []Attempt
}

func (e *AcquireError) Error() string {
	if len(e.Attempts) == 0 {
		return "certgen: no strategies configured"
	}
	parts := make([]string, 0, len(e.Attempts))
	for _, a := range e.Attempts {
		parts = append(parts, fmt.Sprintf("%s: %v", a.Strategy, a.Err))
	}
	return "certgen: all strategies failed: " + strings.Join(parts, "; ")
}

// Unwrap exposes the individual failures to errors.Is and errors.As.
func (e *AcquireError) Unwrap() []error {
	errs := make([]error, 0, len(e.Attempts))
	for _, a := range e.Attempts {
		errs = append(errs, a.Err)
	}
	return errs
}

// Acquirer runs strategies in order until one succeeds.
type Acquirer struct {
	Strategies []Strategy
	Log        logrus.FieldLogger
}

// NewAcquirer returns the default pipeline: in-process generation followed
// by the openssl command named by tool (defaults to "openssl").
func NewAcquirer(subject Subject, tool string, log logrus.FieldLogger) *Acquirer {
	return &Acquirer{
		Strategies: []Strategy{
			&LibraryStrategy{Subject: subject},
			&ToolStrategy{Subject: subject, Command: tool},
		},
		Log: log,
	}
}

// Acquire tries each strategy and returns the first success.
func (a *Acquirer) Acquire(ctx context.Context, paths Paths) (Result, error) {
	log := a.Log
	if log == nil {
		log = logrus.StandardLogger()
	}

	var failed []Attempt
	for _, s := range a.Strategies {
		if err := ctx.Err(); err != nil {
			return Result{}, err
		}
		log.WithFields(logrus.Fields{"strategy": s.Name(), "dir": paths.dir()}).Debug("Generating certificate")

		err := s.Generate(ctx, paths)
		if err != nil {
			log.WithFields(logrus.Fields{
				"strategy": s.Name(),
				"kind":     Kind(err),
				"error":    err.Error(),
			}).Warn("Certificate strategy failed")
			failed = append(failed, Attempt{Strategy: s.Name(), Err: err})
			continue
		}

		res := Result{Strategy: s.Name(), CertFile: paths.CertFile(), KeyFile: paths.KeyFile()}
		log.WithFields(logrus.Fields{
			"strategy": res.Strategy,
			"cert":     res.CertFile,
			"key":      res.KeyFile,
		}).Info("Certificate ready")
		return res, nil
	}
	return Result{}, &AcquireError{Attempts: failed}
}
