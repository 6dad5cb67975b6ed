// Package keepalive runs a small HTTP server so hosting platforms that
// sleep idle services see the bot as a live web process, plus an optional
// self-ping loop against the public URL.
package keepalive

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

const (
	shutdownTimeout  = 5 * time.Second
	selfPingInterval = 10 * time.Minute
)

// Server is the keep-alive HTTP server.
type Server struct {
	server  *http.Server
	started time.Time
	version string
}

// NewServer builds the server on the given port. version is reported on
// the status endpoint.
func NewServer(port, version string) *Server {
	gin.SetMode(gin.ReleaseMode)

	s := &Server{
		started: time.Now(),
		version: version,
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.GET("/", s.handleRoot)
	router.GET("/health", s.handleHealth)
	router.GET("/ping", s.handlePing)
	router.GET("/status", s.handleStatus)

	s.server = &http.Server{
		Addr:         fmt.Sprintf(":%s", port),
		Handler:      router,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
	}
	return s
}

func (s *Server) handleRoot(c *gin.Context) {
	c.String(http.StatusOK, "Bot is alive!")
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "healthy"})
}

func (s *Server) handlePing(c *gin.Context) {
	c.String(http.StatusOK, "pong")
}

func (s *Server) handleStatus(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "running",
		"version": s.version,
		"uptime":  time.Since(s.started).Round(time.Second).String(),
	})
}

// Run serves until the context is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		log.Printf("Keep-alive server listening on %s", s.server.Addr)
		if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
			return
		}
		errCh <- nil
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := s.server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("keep-alive server shutdown: %w", err)
	}
	log.Println("Keep-alive server stopped")
	return nil
}

// SelfPing periodically requests the public URL to keep the hosting
// platform from idling the service. It returns when the context is
// cancelled.
func SelfPing(ctx context.Context, url string) {
	if url == "" {
		return
	}

	client := &http.Client{Timeout: 30 * time.Second}
	ticker := time.NewTicker(selfPingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
			if err != nil {
				log.Printf("Self-ping request build failed: %v", err)
				continue
			}
			resp, err := client.Do(req)
			if err != nil {
				log.Printf("Self-ping failed: %v", err)
				continue
			}
			resp.Body.Close()
		}
	}
}
