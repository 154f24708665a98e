package server

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"docskew/internal/logger"
)

// Server owns the HTTP listener of the daemon.
type Server struct {
	http *http.Server
	log  logger.Logger
}

func New(addr string, handler http.Handler, log logger.Logger) *Server {
	if log == nil {
		log = logger.NewNop()
	}
	return &Server{
		http: &http.Server{
			Addr:              addr,
			Handler:           handler,
			ReadHeaderTimeout: 10 * time.Second,
		},
		log: log,
	}
}

// Serve blocks until the listener fails or Shutdown is called. A nil
// listener listens on the configured address.
func (s *Server) Serve(listener net.Listener) error {
	s.log.Info("http", "listening", map[string]interface{}{"addr": s.http.Addr})

	var err error
	if listener != nil {
		err = s.http.Serve(listener)
	} else {
		err = s.http.ListenAndServe()
	}
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.http.Shutdown(ctx)
}
