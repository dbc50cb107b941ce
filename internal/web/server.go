// Package web serves the keep-alive HTTP endpoint that hosting platforms
// ping to keep the process warm.
package web

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog/log"
)

// Server is the keep-alive HTTP listener.
type Server struct {
	srv *http.Server
}

// New creates the server on addr.
func New(addr string) *Server {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Get("/", func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprintf(w, "alive %s", time.Now().UTC().Format(time.RFC3339))
	})
	return &Server{srv: &http.Server{Addr: addr, Handler: r}}
}

// Start begins listening in the background. Listener failures are fatal
// only for the endpoint, not the bot.
func (s *Server) Start() {
	go func() {
		log.Info().Str("addr", s.srv.Addr).Msg("Keep-alive server listening")
		if err := s.srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error().Err(err).Msg("Keep-alive server failed")
		}
	}()
}

// Shutdown stops the listener gracefully.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}
