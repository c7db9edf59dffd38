// Package logging provides the structured logger and the operator console
// shared by the serve commands.
package logging

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/sirupsen/logrus"
)

// New creates a logrus logger writing text records to out at the given level.
// An empty level means "info". A nil out means stderr.
func New(level string, out io.Writer) (*logrus.Logger, error) {
	if out == nil {
		out = os.Stderr
	}
	lvl := logrus.InfoLevel
	if level != "" {
		parsed, err := logrus.ParseLevel(strings.ToLower(level))
		if err != nil {
			return nil, fmt.Errorf("invalid log level %q: %w", level, err)
		}
		lvl = parsed
	}

	log := logrus.New()
	log.SetOutput(out)
	log.SetLevel(lvl)
	log.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "2006-01-02 15:04:05",
	})
	return log, nil
}

// Discard returns a logger that drops everything. Used by tests.
func Discard() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

// Console prints operator-facing text: banners, guidance and fallback notices.
// It is separate from the logger so that the banner stays readable when the
// log level is raised.
type Console struct {
	out io.Writer

	title *color.Color
	warn  *color.Color
	fail  *color.Color
	hint  *color.Color
}

// NewConsole returns a Console writing to out (stdout when nil).
func NewConsole(out io.Writer) *Console {
	if out == nil {
		out = color.Output
	}
	return &Console{
		out:   out,
		title: color.New(color.Bold),
		warn:  color.New(color.FgYellow),
		fail:  color.New(color.FgRed),
		hint:  color.New(color.FgCyan),
	}
}

// Title prints a bold heading followed by an underline of the same width.
func (c *Console) Title(s string) {
	c.title.Fprintln(c.out, s)
	fmt.Fprintln(c.out, strings.Repeat("=", len([]rune(s))))
}

// Println prints an uncoloured line.
func (c *Console) Println(a ...any) {
	fmt.Fprintln(c.out, a...)
}

// Printf prints an uncoloured formatted line.
func (c *Console) Printf(format string, a ...any) {
	fmt.Fprintf(c.out, format+"\n", a...)
}

// Warnf prints a yellow line.
func (c *Console) Warnf(format string, a ...any) {
	c.warn.Fprintf(c.out, format+"\n", a...)
}

// Failf prints a red line.
func (c *Console) Failf(format string, a ...any) {
	c.fail.Fprintf(c.out, format+"\n", a...)
}

// Hintf prints a cyan line.
func (c *Console) Hintf(format string, a ...any) {
	c.hint.Fprintf(c.out, format+"\n", a...)
}
