package http

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

type Server struct {
	Engine *gin.Engine
	srv    *http.Server
	// cancel ends every request context, including open event streams
	cancel context.CancelFunc
}

func NewServer(address string, cfg RouterConfig) *Server {
	engine := NewRouter(cfg)
	base, cancel := context.WithCancel(context.Background())
	return &Server{
		Engine: engine,
		cancel: cancel,
		srv: &http.Server{
			Addr:              address,
			Handler:           engine,
			ReadHeaderTimeout: 10 * time.Second,
			BaseContext:       func(net.Listener) context.Context { return base },
		},
	}
}

// Run blocks until the server stops. A clean Shutdown returns nil.
func (s *Server) Run() error {
	if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown detaches open streams and waits for in-flight requests until ctx is done.
// Running jobs are not affected.
func (s *Server) Shutdown(ctx context.Context) error {
	s.cancel()
	return s.srv.Shutdown(ctx)
}
