package httpapi

import (
	"context"
	"net/http"
	"time"

	"github.com/pkg/errors"

	"github.com/rcarvalho-pb/tipbot-go/internal/infra/logging"
)

type Server struct {
	*http.Server
	Logger logging.Logger
}

func NewServer(addr string, handler http.Handler, logger logging.Logger) *Server {
	return &Server{
		Server: &http.Server{
			Addr:              addr,
			Handler:           handler,
			ReadHeaderTimeout: 5 * time.Second,
			ReadTimeout:       10 * time.Second,
			// gateway calls on /pay and /confirm can take a while
			WriteTimeout:   60 * time.Second,
			MaxHeaderBytes: 1 << 20,
		},
		Logger: logger,
	}
}

// Start blocks until the server stops. A graceful shutdown is not an error.
func (s *Server) Start() error {
	s.Logger.Info("http server listening", map[string]any{"addr": s.Addr})
	if err := s.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return errors.Wrap(err, "Failed listen")
	}
	return nil
}

func (s *Server) Stop(ctx context.Context) error {
	s.Logger.Info("http server shutting down", nil)
	return s.Shutdown(ctx)
}
