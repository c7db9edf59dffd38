package certgen

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"os/exec"
	"strconv"
	"strings"
)

// DefaultTool is the external command used by ToolStrategy.
const DefaultTool = "openssl"

// ToolStrategy shells out to openssl req. Subject.Hosts is passed as a
// subjectAltName extension, which needs openssl 1.1.1 or later.
type ToolStrategy struct {
	Subject Subject
	// Command is the openssl binary name or path.
	Command string
}

// Name implements Strategy.
func (s *ToolStrategy) Name() string { return "openssl" }

// Args returns the openssl arguments used for paths. It fails with
// ErrInvalidSAN when a host cannot be expressed as a SAN entry.
func (s *ToolStrategy) Args(paths Paths) ([]string, error) {
	subject := s.Subject.withDefaults()
	dns, ips, err := subject.SANs()
	if err != nil {
		return nil, err
	}
	return []string{
		"req", "-x509",
		"-newkey", "rsa:" + strconv.Itoa(DefaultKeyBits),
		"-keyout", paths.KeyFile(),
		"-out", paths.CertFile(),
		"-days", strconv.Itoa(subject.days()),
		"-nodes",
		"-subj", subject.opensslSubject(),
		"-addext", opensslSAN(dns, ips),
	}, nil
}

// Generate implements Strategy.
func (s *ToolStrategy) Generate(ctx context.Context, paths Paths) error {
	command := s.Command
	if command == "" {
		command = DefaultTool
	}
	bin, err := exec.LookPath(command)
	if err != nil {
		return fmt.Errorf("%w: %s: %w", ErrLibraryUnavailable, command, err)
	}
	args, err := s.Args(paths)
	if err != nil {
		return err
	}
	if err := paths.ensure(); err != nil {
		return err
	}
	// Files left by an earlier run must not count as output of this one.
	for _, f := range []string{paths.CertFile(), paths.KeyFile()} {
		if err := os.Remove(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("%w: remove stale %s: %w", ErrWrite, f, err)
		}
	}

	var stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, bin, args...)
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return fmt.Errorf("%w: %s exited with %d: %s",
				ErrToolFailed, command, exitErr.ExitCode(), strings.TrimSpace(stderr.String()))
		}
		return fmt.Errorf("%w: %s: %w", ErrToolFailed, command, err)
	}

	for _, f := range []string{paths.CertFile(), paths.KeyFile()} {
		if _, err := os.Stat(f); err != nil {
			return fmt.Errorf("%w: %s did not produce %s", ErrToolFailed, command, f)
		}
	}
	if err := os.Chmod(paths.KeyFile(), 0o600); err != nil {
		return fmt.Errorf("%w: %w", ErrWrite, err)
	}
	return nil
}
