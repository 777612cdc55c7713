// Package httpserver builds the process HTTP server.
package httpserver

import (
	"net/http"
	"time"
)

// Inbound HL7 payloads are small (tens of KB); slow reads indicate a stuck
// client, not a large upload, so the read timeouts stay tight. Writes get
// more room because a transformation response carries the full resource set.
const (
	readHeaderTimeout = 5 * time.Second
	readTimeout       = 15 * time.Second
	writeTimeout      = 30 * time.Second
	idleTimeout       = 60 * time.Second
	maxHeaderBytes    = 1 << 20
)

// New builds the HTTP server for the bridge's API surface.
func New(addr string, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: readHeaderTimeout,
		ReadTimeout:       readTimeout,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       idleTimeout,
		MaxHeaderBytes:    maxHeaderBytes,
	}
}
