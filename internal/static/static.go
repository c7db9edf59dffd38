// Package static serves a directory tree for local front-end development.
//
// Every response carries permissive CORS headers and disables client caching,
// preflight requests are answered without touching the file system, and
// script files are always served as application/javascript so that browsers
// load ES modules.
package static

import (
	"errors"
	"io/fs"
	"mime"
	"net/http"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// JavaScriptType is the content type used for .js and .mjs files.
const JavaScriptType = "application/javascript"

var injected = map[string]string{
	"Access-Control-Allow-Origin":  "*",
	"Access-Control-Allow-Methods": "GET, POST, OPTIONS",
	"Access-Control-Allow-Headers": "Content-Type",
	"Cache-Control":                "no-store, no-cache, must-revalidate",
}

// Headers returns a copy of the headers injected into every response.
func Headers() map[string]string {
	out := make(map[string]string, len(injected))
	for k, v := range injected {
		out[k] = v
	}
	return out
}

// RequestIDHeader echoes the id used for the request in the access log.
const RequestIDHeader = "X-Request-Id"

// Handler is the CORS-aware static file handler.
type Handler struct {
	root      string
	dir       http.Dir
	files     http.Handler
	log       logrus.FieldLogger
	accessLog bool
}

// Option configures a Handler.
type Option func(*Handler)

// WithLogger sets the logger used for access logging.
func WithLogger(log logrus.FieldLogger) Option {
	return func(h *Handler) { h.log = log }
}

// WithAccessLog enables or disables per-request log records.
func WithAccessLog(enabled bool) Option {
	return func(h *Handler) { h.accessLog = enabled }
}

// New returns a Handler serving files below root.
func New(root string, opts ...Option) *Handler {
	if root == "" {
		root = "."
	}
	h := &Handler{
		root:  root,
		dir:   http.Dir(root),
		files: http.FileServer(http.Dir(root)),
	}
	for _, opt := range opts {
		opt(h)
	}
	if h.log == nil {
		h.log = logrus.StandardLogger()
	}
	return h
}

// Root returns the directory being served.
func (h *Handler) Root() string {
	return h.root
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	id := uuid.NewString()
	rw := &responseWriter{ResponseWriter: w, status: http.StatusOK}
	rw.Header().Set(RequestIDHeader, id)

	if r.Method == http.MethodOptions {
		rw.WriteHeader(http.StatusOK)
	} else {
		if ct := ContentType(r.URL.Path); ct != "" {
			rw.Header().Set("Content-Type", ct)
		}
		if strings.HasSuffix(r.URL.Path, "/"+indexPage) {
			h.serveIndex(rw, r)
		} else {
			h.files.ServeHTTP(rw, r)
		}
	}
	if !rw.wroteHeader {
		rw.WriteHeader(http.StatusOK)
	}

	if h.accessLog {
		h.log.WithFields(logrus.Fields{
			"request_id": id,
			"method":     r.Method,
			"path":       r.URL.Path,
			"status":     rw.status,
			"bytes":      rw.written,
			"duration":   time.Since(start).String(),
			"remote":     r.RemoteAddr,
		}).Info("request")
	}
}

// ContentType resolves the content type for a request path. It uses the
// standard extension table and forces application/javascript for .js and
// .mjs. An empty result leaves detection to the file server.
func ContentType(p string) string {
	ct := mime.TypeByExtension(path.Ext(p))
	if strings.HasSuffix(p, ".js") || strings.HasSuffix(p, ".mjs") {
		ct = JavaScriptType
	}
	return ct
}

const indexPage = "index.html"

// serveIndex answers an explicit .../index.html request with the file
// itself. http.FileServer would redirect it to the directory, which loses
// the path identity-provider callbacks are registered with.
func (h *Handler) serveIndex(w http.ResponseWriter, r *http.Request) {
	f, err := h.dir.Open(r.URL.Path)
	if err != nil {
		serveError(w, err)
		return
	}
	defer f.Close()

	st, err := f.Stat()
	if err != nil {
		serveError(w, err)
		return
	}
	if st.IsDir() {
		h.files.ServeHTTP(w, r)
		return
	}
	http.ServeContent(w, r, st.Name(), st.ModTime(), f)
}

func serveError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, fs.ErrNotExist):
		http.Error(w, "404 page not found", http.StatusNotFound)
	case errors.Is(err, fs.ErrPermission):
		http.Error(w, "403 Forbidden", http.StatusForbidden)
	default:
		http.Error(w, "500 Internal Server Error", http.StatusInternalServerError)
	}
}

func setHeaders(h http.Header) {
	for k, v := range injected {
		h.Set(k, v)
	}
}

// responseWriter injects the CORS headers at the moment the status line is written,
// after the file server has made its own header changes. Error responses
// from http.FileServer drop Cache-Control, so setting them up front is not
// enough.
type responseWriter struct {
	http.ResponseWriter
	status      int
	written     int64
	wroteHeader bool
}

func (w *responseWriter) WriteHeader(code int) {
	if w.wroteHeader {
		return
	}
	w.wroteHeader = true
	w.status = code
	setHeaders(w.Header())
	w.ResponseWriter.WriteHeader(code)
}

func (w *responseWriter) Write(b []byte) (int, error) {
	if !w.wroteHeader {
		w.WriteHeader(http.StatusOK)
	}
	n, err := w.ResponseWriter.Write(b)
	w.written += int64(n)
	return n, err
}

func (w *responseWriter) Flush() {
	if !w.wroteHeader {
		w.WriteHeader(http.StatusOK)
	}
	if f, ok := w.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

func (w *responseWriter) Unwrap() http.ResponseWriter {
	return w.ResponseWriter
}
