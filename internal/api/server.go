package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/wonny/ivix/pkg/config"
	"github.com/wonny/ivix/pkg/logger"
)

// writeSlack is the time left after a compute deadline for encoding the response
const writeSlack = 15 * time.Second

// Server represents the HTTP API server
// ⭐ SSOT: API 서버 설정은 이 파일에서만
type Server struct {
	httpServer *http.Server
	logger     *logger.Logger
	config     *config.Config
}

// New creates a new API server
func New(cfg *config.Config, log *logger.Logger, router http.Handler) *Server {
	return &Server{
		httpServer: &http.Server{
			Addr:         ":" + cfg.Port,
			Handler:      router,
			ReadTimeout:  15 * time.Second,
			WriteTimeout: WriteTimeout(cfg.ComputeTimeout),
			IdleTimeout:  60 * time.Second,
		},
		logger: log,
		config: cfg,
	}
}

// WriteTimeout returns the server write timeout for a compute deadline.
// 계산이 제한 시간에 끊겨도 오류 응답을 쓸 수 있어야 함
func WriteTimeout(computeTimeout time.Duration) time.Duration {
	return computeTimeout + writeSlack
}

// computeDeadline bounds the request context of a compute call. The service
// stops its workers when the context ends.
func computeDeadline(timeout time.Duration, next http.Handler) http.Handler {
	if timeout <= 0 {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), timeout)
		defer cancel()
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// Start blocks serving HTTP until Shutdown
func (s *Server) Start() error {
	s.logger.WithFields(map[string]interface{}{
		"port":            s.config.Port,
		"env":             s.config.Env,
		"compute_timeout": s.config.ComputeTimeout,
	}).Info("Starting API server")

	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("failed to start server: %w", err)
	}

	return nil
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("Shutting down API server")

	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("failed to shutdown server: %w", err)
	}

	return nil
}
