// Package server exposes the cleaning pipeline over HTTP with echo.
//
// Routes:
//
//	GET  /                       → upload form
//	GET  /health                 → liveness probe
//	POST /profile                → profile an uploaded CSV
//	POST /clean/basic            → deterministic cleaning pass
//	POST /plan                   → LLM cleaning plan for an uploaded CSV
//	POST /clean/llm              → plan, validate and execute in one call
//	POST /clean/plan             → execute a caller-supplied plan
//	POST /plan/validate          → semantic validation of a plan document
//	GET  /jobs/:id               → saved report
//	GET  /jobs/:id/cleaned.csv   → cleaned CSV download
//
// Every error response has the shape {"detail": ...}.
package server

import (
	"context"
	_ "embed"
	"errors"
	"html/template"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"

	"csvclean/internal/artifacts"
	"csvclean/internal/planner"
)

// Config controls the HTTP server.
type Config struct {
	Addr           string
	MaxUploadBytes int64
	PreviewRows    int
	// Job labels metrics emitted by request handlers.
	Job string
	// ShutdownTimeout bounds graceful shutdown in Run.
	ShutdownTimeout time.Duration
}

// Server wires the echo router to the artifact store and the planner.
type Server struct {
	cfg     Config
	e       *echo.Echo
	store   *artifacts.Store
	planner *planner.Planner
	log     *zap.Logger
	tmpl    *template.Template
}

//go:embed index.tmpl.html
var indexHTML string

// New builds a Server. A nil planner leaves /plan and /clean/llm answering
// 500; a nil logger is replaced by a no-op logger.
func New(cfg Config, store *artifacts.Store, pl *planner.Planner, log *zap.Logger) *Server {
	if log == nil {
		log = zap.NewNop()
	}
	if cfg.MaxUploadBytes <= 0 {
		cfg.MaxUploadBytes = 50 << 20
	}
	if cfg.PreviewRows <= 0 {
		cfg.PreviewRows = 10
	}
	if cfg.Job == "" {
		cfg.Job = "csvclean"
	}
	if cfg.ShutdownTimeout <= 0 {
		cfg.ShutdownTimeout = 10 * time.Second
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	s := &Server{
		cfg:     cfg,
		e:       e,
		store:   store,
		planner: pl,
		log:     log,
		tmpl:    template.Must(template.New("index").Parse(indexHTML)),
	}
	e.HTTPErrorHandler = s.handleError

	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{echo.GET, echo.HEAD, echo.POST},
		AllowHeaders: []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept},
	}))
	e.Use(middleware.Logger())
	e.Use(middleware.Recover())
	e.Use(middleware.BodyLimit(bodyLimit(cfg.MaxUploadBytes)))

	s.routes()
	return s
}

func (s *Server) routes() {
	s.e.GET("/", s.handleIndex)
	s.e.GET("/health", s.handleHealth)
	s.e.POST("/profile", s.handleProfile)
	s.e.POST("/clean/basic", s.handleCleanBasic)
	s.e.POST("/plan", s.handlePlan)
	s.e.POST("/clean/llm", s.handleCleanLLM)
	s.e.POST("/clean/plan", s.handleCleanPlan)
	s.e.POST("/plan/validate", s.handleValidatePlan)
	s.e.GET("/jobs/:id", s.handleGetJob)
	s.e.GET("/jobs/:id/cleaned.csv", s.handleDownload)
}

// Handler returns the router, mainly for tests.
func (s *Server) Handler() http.Handler { return s.e }

// Run serves on cfg.Addr until ctx is canceled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.log.Info("http server listening", zap.String("addr", s.cfg.Addr))
		errCh <- s.e.Start(s.cfg.Addr)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	s.log.Info("http server shutting down")
	sctx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
	defer cancel()
	if err := s.e.Shutdown(sctx); err != nil {
		return err
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// handleError renders every error as {"detail": ...}. Details of HTTP
// errors are passed through; anything else is logged and reported as 500.
func (s *Server) handleError(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	code := http.StatusInternalServerError
	var detail any = http.StatusText(code)

	var he *echo.HTTPError
	if errors.As(err, &he) {
		code = he.Code
		detail = he.Message
		if he.Internal != nil {
			s.log.Debug("request failed", zap.Int("status", code), zap.Error(he.Internal))
		}
	} else {
		s.log.Error("unhandled request error",
			zap.String("path", c.Path()),
			zap.Error(err))
	}

	if c.Request().Method == http.MethodHead {
		err = c.NoContent(code)
	} else {
		err = c.JSON(code, map[string]any{"detail": detail})
	}
	if err != nil {
		s.log.Warn("write error response", zap.Error(err))
	}
}

// bodyLimit renders n bytes in the form BodyLimit expects, leaving room for
// multipart framing around the file.
func bodyLimit(n int64) string {
	const slack = 1 << 20
	kb := (n + slack + 1023) / 1024
	return strconv.FormatInt(kb, 10) + "K"
}
