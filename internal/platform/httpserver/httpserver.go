// Package httpserver builds the service's *http.Server from configuration.
package httpserver

import (
	"net/http"
	"time"

	"sglgb/internal/platform/config"
)

const (
	readHeaderTimeout = 5 * time.Second
	idleTimeout       = 2 * time.Minute
	// writeSlack leaves room after the request timeout fires for the 503
	// body to reach the client.
	writeSlack = 5 * time.Second
)

// New returns a server for cfg.Addr whose read and write deadlines track the
// per-request timeout.
func New(cfg config.Server, handler http.Handler) *http.Server {
	requestTimeout := cfg.RequestTimeout
	if requestTimeout <= 0 {
		requestTimeout = 30 * time.Second
	}
	return &http.Server{
		Addr:              cfg.Addr,
		Handler:           handler,
		ReadHeaderTimeout: readHeaderTimeout,
		ReadTimeout:       requestTimeout,
		WriteTimeout:      requestTimeout + writeSlack,
		IdleTimeout:       idleTimeout,
	}
}
