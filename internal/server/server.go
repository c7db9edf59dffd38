// Package server runs the static handler over plain HTTP or over TLS with a
// freshly provisioned self-signed certificate.
package server

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/net/http2"

	"github.com/f4ah6o/devserve-go/internal/certgen"
	"github.com/f4ah6o/devserve-go/internal/logging"
)

// DefaultShutdownTimeout bounds graceful shutdown when Runner leaves it unset.
const DefaultShutdownTimeout = 5 * time.Second

// CertSource produces the certificate files used by RunHTTPS.
// *certgen.Acquirer implements it.
type CertSource interface {
	Acquire(ctx context.Context, paths certgen.Paths) (certgen.Result, error)
}

// Runner serves Handler until its context is cancelled.
type Runner struct {
	Handler http.Handler
	// Host is the bind address; empty means all interfaces.
	Host string
	// ShutdownTimeout bounds graceful shutdown.
	ShutdownTimeout time.Duration
	// CallbackPath is printed as the identity-provider callback in the HTTPS banner.
	CallbackPath string

	Log     logrus.FieldLogger
	Console *logging.Console

	// Listen opens the TCP listener. Defaults to net.Listen.
	Listen func(network, addr string) (net.Listener, error)
}

func (r *Runner) log() logrus.FieldLogger {
	if r.Log == nil {
		return logrus.StandardLogger()
	}
	return r.Log
}

func (r *Runner) console() *logging.Console {
	if r.Console == nil {
		return logging.NewConsole(io.Discard)
	}
	return r.Console
}

func (r *Runner) listen(port int) (net.Listener, error) {
	listen := r.Listen
	if listen == nil {
		listen = net.Listen
	}
	addr := net.JoinHostPort(r.Host, strconv.Itoa(port))
	ln, err := listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("listen on %s: %w", addr, err)
	}
	return ln, nil
}

// newServer returns the http.Server and the closer for its error log pipe,
// which must be closed once the server has stopped.
func (r *Runner) newServer() (*http.Server, io.Closer) {
	errLog, closer := logrusErrorLog(r.log())
	return &http.Server{
		Handler:           r.Handler,
		ReadHeaderTimeout: 10 * time.Second,
		ErrorLog:          errLog,
	}, closer
}

// RunHTTP binds port and serves plain HTTP. Bind failures are returned
// unchanged in meaning; callers treat them as fatal.
func (r *Runner) RunHTTP(ctx context.Context, port int) error {
	ln, err := r.listen(port)
	if err != nil {
		return err
	}
	printHTTPBanner(r.console(), port)
	r.log().WithField("addr", ln.Addr().String()).Info("Serving HTTP")
	return r.Serve(ctx, ln)
}

// Serve serves plain HTTP on ln until ctx is cancelled.
func (r *Runner) Serve(ctx context.Context, ln net.Listener) error {
	srv, errLog := r.newServer()
	defer errLog.Close()
	return r.serve(ctx, srv, ln)
}

// RunHTTPS provisions a certificate into paths and serves TLS on port.
// If no certificate can be produced it prints fallback guidance and serves
// plain HTTP on fallbackPort instead, whatever port was requested.
func (r *Runner) RunHTTPS(ctx context.Context, port int, certs CertSource, paths certgen.Paths, fallbackPort int) error {
	res, err := certs.Acquire(ctx, paths)
	if err == nil {
		var cert tls.Certificate
		cert, err = tls.LoadX509KeyPair(res.CertFile, res.KeyFile)
		if err != nil {
			err = fmt.Errorf("load key pair: %w", err)
		}
		if err == nil {
			ln, lerr := r.listen(port)
			if lerr != nil {
				return lerr
			}
			info, ierr := certgen.Inspect(res.CertFile)
			if ierr != nil {
				r.log().WithError(ierr).Debug("Could not inspect certificate")
			}
			printHTTPSBanner(r.console(), port, r.CallbackPath, res, info)
			r.log().WithFields(logrus.Fields{
				"addr":     ln.Addr().String(),
				"strategy": res.Strategy,
			}).Info("Serving HTTPS")
			return r.ServeTLS(ctx, ln, cert)
		}
	}

	if ctx.Err() != nil {
		return nil
	}
	r.log().WithError(err).Warn("TLS unavailable, falling back to HTTP")
	printFallback(r.console(), err, fallbackPort)
	return r.RunHTTP(ctx, fallbackPort)
}

// ServeTLS serves HTTPS (HTTP/2 and HTTP/1.1) on ln until ctx is cancelled.
func (r *Runner) ServeTLS(ctx context.Context, ln net.Listener, cert tls.Certificate) error {
	srv, errLog := r.newServer()
	defer errLog.Close()
	srv.TLSConfig = &tls.Config{
		MinVersion:   tls.VersionTLS12,
		Certificates: []tls.Certificate{cert},
	}
	if err := http2.ConfigureServer(srv, &http2.Server{}); err != nil {
		ln.Close()
		return fmt.Errorf("configure http2: %w", err)
	}
	return r.serve(ctx, srv, tls.NewListener(ln, srv.TLSConfig))
}

func (r *Runner) serve(ctx context.Context, srv *http.Server, ln net.Listener) error {
	errc := make(chan error, 1)
	go func() {
		errc <- srv.Serve(ln)
	}()

	select {
	case err := <-errc:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	timeout := r.ShutdownTimeout
	if timeout <= 0 {
		timeout = DefaultShutdownTimeout
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	// In-flight requests still running at the deadline are cut off so that
	// an interrupt always ends in a clean exit.
	if err := srv.Shutdown(shutdownCtx); err != nil {
		r.log().WithError(err).WithField("timeout", timeout.String()).
			Warn("Graceful shutdown timed out, closing open connections")
		srv.Close()
	}
	<-errc
	r.console().Println("\nServer stopped.")
	r.log().Info("Server stopped")
	return nil
}
