package server

import (
	"errors"
	"io"
	"log"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/f4ah6o/devserve-go/internal/certgen"
	"github.com/f4ah6o/devserve-go/internal/logging"
)

func printHTTPBanner(c *logging.Console, port int) {
	c.Title("Event Matcher Server")
	c.Printf("Server running on http://localhost:%d", port)
	c.Printf("Open http://localhost:%d/public/ in your browser", port)
	c.Println("Press Ctrl+C to stop the server")
}

func printHTTPSBanner(c *logging.Console, port int, callbackPath string, res certgen.Result, info *certgen.Info) {
	origin := "https://localhost:" + strconv.Itoa(port)
	if callbackPath == "" {
		callbackPath = "/public/index.html"
	}
	if !strings.HasPrefix(callbackPath, "/") {
		callbackPath = "/" + callbackPath
	}

	c.Title("🔒 Event Matcher HTTPS Server")
	c.Printf("Server running on %s", origin)
	c.Printf("Open %s/public/ in your browser", origin)
	c.Println()
	c.Warnf("⚠️  You'll see a security warning - click 'Advanced' → 'Proceed to localhost'")
	c.Warnf("   This is normal for self-signed certificates in development.")
	c.Println()
	c.Printf("Certificate: %s (via %s)", res.CertFile, res.Strategy)
	if info != nil {
		c.Printf("   Valid until %s for %s", info.NotAfter.Local().Format("2006-01-02"),
			strings.Join(append(append([]string(nil), info.DNSNames...), info.IPs...), ", "))
	}
	c.Println()
	c.Hintf("🔧 For Auth0, use these URLs:")
	c.Printf("   Callback URL: %s%s", origin, callbackPath)
	c.Printf("   Logout URL: %s%s", origin, callbackPath)
	c.Printf("   Web Origin: %s", origin)
	c.Println()
	c.Println("Press Ctrl+C to stop the server")
}

func printFallback(c *logging.Console, err error, port int) {
	c.Failf("❌ Could not create SSL certificates.")

	var acqErr *certgen.AcquireError
	if errors.As(err, &acqErr) {
		for _, a := range acqErr.Attempts {
			c.Failf("   %s [%s]: %v", a.Strategy, certgen.Kind(a.Err), a.Err)
		}
	} else if err != nil {
		c.Failf("   %v", err)
	}

	if errors.Is(err, certgen.ErrInvalidSAN) {
		c.Hintf("Check the tls.hosts setting: every entry must be a DNS name or an IP address.")
	}
	if errors.Is(err, certgen.ErrLibraryUnavailable) || errors.Is(err, certgen.ErrToolFailed) {
		c.Hintf("Please install the 'openssl' command or set tls.openssl to its path.")
	}
	c.Warnf("Fallback: using regular HTTP server on port %d instead.", port)
	c.Println("Falling back to HTTP server...")
}

// logrusErrorLog routes net/http's internal error log (TLS handshake
// failures and the like) into the structured logger. Closing the returned
// io.Closer ends the pipe and the goroutine logrus runs behind it.
func logrusErrorLog(l logrus.FieldLogger) (*log.Logger, io.Closer) {
	type levelWriter interface {
		WriterLevel(logrus.Level) *io.PipeWriter
	}
	if lw, ok := l.(levelWriter); ok {
		w := lw.WriterLevel(logrus.DebugLevel)
		return log.New(w, "", 0), w
	}
	return nil, nopCloser{}
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
