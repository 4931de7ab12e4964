// Package server exposes an interactive Session over HTTP.
//
// Routes:
//
//	POST /api/tasks               multipart "files", 202 with the created tasks
//	GET  /api/tasks               every task in submission order
//	GET  /api/tasks/:id           one task
//	GET  /api/tasks/:id/audio     decoded audio as an attachment
//	GET  /api/tasks/:id/artwork   cover image
//	GET  /api/events?since=N      events after sequence N
//	GET  /api/events/ws?since=N   the same, then pushed as they happen
package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/simonhull/audiounlock"
)

// Options configures a Server.
type Options struct {
	Session *audiounlock.Session
	// Events must be the Reporter of Session for the event routes to see
	// completions.
	Events *audiounlock.EventBus
	Logger *slog.Logger
	// MaxUpload limits the request body of POST /api/tasks. 0 means 256 MiB.
	MaxUpload int64
}

// Server routes HTTP requests to a Session.
type Server struct {
	echo     *echo.Echo
	session  *audiounlock.Session
	events   *audiounlock.EventBus
	logger   *slog.Logger
	upgrader websocket.Upgrader
}

// New builds the router.
func New(opts Options) (*Server, error) {
	if opts.Session == nil || opts.Events == nil {
		return nil, errors.New("server needs a session and an event bus")
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.MaxUpload <= 0 {
		opts.MaxUpload = 256 << 20
	}

	s := &Server{
		echo:    echo.New(),
		session: opts.Session,
		events:  opts.Events,
		logger:  opts.Logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
	}
	s.echo.HideBanner = true
	s.echo.HidePort = true
	s.echo.HTTPErrorHandler = s.handleError

	s.echo.Use(middleware.Recover())
	s.echo.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogMethod:  true,
		LogURI:     true,
		LogStatus:  true,
		LogLatency: true,
		LogError:   true,
		LogValuesFunc: func(_ echo.Context, v middleware.RequestLoggerValues) error {
			attrs := []any{"method", v.Method, "uri", v.URI, "status", v.Status, "latency", v.Latency}
			if v.Error != nil {
				attrs = append(attrs, "error", v.Error)
			}
			s.logger.Debug("http request", attrs...)
			return nil
		},
	}))

	api := s.echo.Group("/api")
	api.POST("/tasks", s.createTasks, middleware.BodyLimit(bodyLimit(opts.MaxUpload)))
	api.GET("/tasks", s.listTasks)
	api.GET("/tasks/:id", s.getTask)
	api.GET("/tasks/:id/audio", s.getAudio)
	api.GET("/tasks/:id/artwork", s.getArtwork)
	api.GET("/events", s.listEvents)
	api.GET("/events/ws", s.streamEvents)

	return s, nil
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.echo.ServeHTTP(w, r)
}

// Start listens on addr until Shutdown. It returns http.ErrServerClosed
// after a clean shutdown.
func (s *Server) Start(addr string) error {
	s.logger.Info("listening", "addr", addr)
	return s.echo.Start(addr)
}

// Shutdown stops accepting requests and waits for active ones.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}

func (s *Server) handleError(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	code := http.StatusInternalServerError
	msg := err.Error()
	var he *echo.HTTPError
	switch {
	case errors.As(err, &he):
		code = he.Code
		if m, ok := he.Message.(string); ok {
			msg = m
		} else {
			msg = http.StatusText(code)
		}
	case errors.Is(err, audiounlock.ErrUnknownTask):
		code = http.StatusNotFound
	case errors.Is(err, audiounlock.ErrSessionClosed):
		code = http.StatusServiceUnavailable
	}

	if code >= http.StatusInternalServerError {
		s.logger.Error("request failed", "uri", c.Request().RequestURI, "error", err)
	}
	if err := c.JSON(code, map[string]string{"error": msg}); err != nil {
		s.logger.Error("cannot write error response", "error", err)
	}
}
