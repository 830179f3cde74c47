package httpserver

import (
	"net/http"
	"time"
)

// New builds the API server. Gate terminals and sensor relays issue small,
// short-lived requests, so timeouts are tight; shutdown is owned by main.
func New(addr string, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
}
