package relay

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/mahlburgc/lorachat/internal/chat"
	"github.com/rs/zerolog/log"
)

// Server exposes the hub and a small REST API over HTTP.
type Server struct {
	addr   string
	hub    *Hub
	engine *gin.Engine
}

type sendRequest struct {
	Text string `json:"text" binding:"required"`
}

func NewServer(addr string, hub *Hub) *Server {
	gin.SetMode(gin.ReleaseMode)

	s := &Server{
		addr:   addr,
		hub:    hub,
		engine: gin.New(),
	}
	s.engine.Use(gin.Recovery(), requestLogger())

	s.engine.GET("/ws", func(c *gin.Context) {
		hub.HandleWebSocket(c.Writer, c.Request)
	})

	api := s.engine.Group("/api")
	api.GET("/status", s.handleStatus)
	api.GET("/history", s.handleHistory)
	api.POST("/messages", s.handleSend)

	return s
}

func (s *Server) Handler() http.Handler {
	return s.engine
}

// Run serves until ctx is cancelled. The hub runs for the same lifetime.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.addr,
		Handler:           s.engine,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go s.hub.Run(ctx)

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()

	log.Info().Str("addr", s.addr).Msg("relay listening")
	err := srv.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

func (s *Server) handleStatus(c *gin.Context) {
	resp := StatusResponse{
		Port:      s.hub.portName,
		Available: s.hub.sender != nil && s.hub.sender.Available(),
		Clients:   s.hub.ClientCount(),
	}
	if s.hub.history != nil {
		resp.Messages = s.hub.history.Len()
	}
	c.JSON(http.StatusOK, resp)
}

func (s *Server) handleHistory(c *gin.Context) {
	var events []chat.DisplayEvent
	if s.hub.history != nil {
		events = s.hub.history.Events()
	}
	c.JSON(http.StatusOK, messageHistory(events))
}

func (s *Server) handleSend(c *gin.Context) {
	var req sendRequest
	if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.Text) == "" {
		c.JSON(http.StatusBadRequest, ErrorMessage{Type: "error", Message: "text is required"})
		return
	}

	if s.hub.sender == nil {
		c.JSON(http.StatusServiceUnavailable, ErrorMessage{Type: "error", Message: chat.ErrDeviceUnavailable.Error()})
		return
	}

	if err := s.hub.sender.Send(req.Text); err != nil {
		status := http.StatusBadGateway
		if errors.Is(err, chat.ErrDeviceUnavailable) {
			status = http.StatusServiceUnavailable
		}
		c.JSON(status, ErrorMessage{Type: "error", Message: err.Error()})
		return
	}

	c.Status(http.StatusNoContent)
}

func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		log.Debug().
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Int("status", c.Writer.Status()).
			Dur("latency", time.Since(start)).
			Msg("relay request")
	}
}
