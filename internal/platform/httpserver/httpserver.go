package httpserver

import (
	"net/http"
	"time"
)

// New builds an HTTP server with defaults sized for roster uploads: header
// reads stay tight while bodies get room to arrive.
func New(addr string, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       2 * time.Minute,
		IdleTimeout:       time.Minute,
	}
}
