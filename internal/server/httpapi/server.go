// Package httpapi exposes the development gateway over HTTP with gin. The
// routes and JSON bodies follow the Masa auth, settings and bucket APIs.
package httpapi

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/dmitrijs2005/masaclient/internal/logging"
	"github.com/dmitrijs2005/masaclient/internal/server/config"
	"github.com/dmitrijs2005/masaclient/internal/server/storage"
	"github.com/dmitrijs2005/masaclient/internal/server/users"
)

const shutdownTimeout = 5 * time.Second

type HTTPServer struct {
	config  *config.Config
	users   *users.Service
	avatars storage.AvatarStore
	logger  logging.Logger
}

func NewHTTPServer(c *config.Config, l logging.Logger, us *users.Service, avatars storage.AvatarStore) *HTTPServer {
	return &HTTPServer{
		config:  c,
		users:   us,
		avatars: avatars,
		logger:  l.With("module", "http_server"),
	}
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *HTTPServer) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.config.ListenAddr,
		Handler:           s.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		s.logger.Info(ctx, "Stopping HTTP server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			s.logger.Error(ctx, "shutdown failed", "error", err)
		}
	}()

	s.logger.Info(ctx, "Starting HTTP server", "address", s.config.ListenAddr)

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
