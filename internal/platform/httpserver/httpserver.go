// Package httpserver builds the shared HTTP server instance.
package httpserver

import (
	"net/http"
	"time"
)

// New configures the server. Scan traffic arrives in bursts when sessions
// let out, so header reads are bounded tightly while idle keep-alives from
// portal devices are kept long.
func New(addr string, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
}
