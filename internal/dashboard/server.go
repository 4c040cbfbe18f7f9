// Package dashboard serves the upload page, chart images, results download and
// the JSON API over gin.
package dashboard

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"html/template"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"github.com/KaramelBytes/fraudlens/docs"
	"github.com/KaramelBytes/fraudlens/internal/analysis"
	"github.com/KaramelBytes/fraudlens/internal/classifier"
)

// @title          Fraudlens API
// @version        1.0
// @description    Scores job listing CSV uploads for likely fraud.

// @license.name MIT
// @license.url  https://opensource.org/licenses/MIT

// @BasePath  /api/v1

//go:embed templates/*.html
var templateFS embed.FS

// ServiceName is reported by the health endpoint.
const ServiceName = "fraudlens"

// Config holds server settings.
type Config struct {
	Addr           string
	GinMode        string
	CORSOrigins    []string
	MaxUploadBytes int64
	ResultTTL      time.Duration
	MaxResults     int
	Analysis       analysis.Options
}

// Server hosts the dashboard.
type Server struct {
	cfg    Config
	holder *classifier.Holder
	logger *slog.Logger
	store  *ResultStore
	tmpl   *template.Template
	router *gin.Engine
}

// New builds the router. The holder may still be loading; requests that need
// the model answer 503 until it is ready.
func New(cfg Config, holder *classifier.Holder, logger *slog.Logger) (*Server, error) {
	if cfg.Addr == "" {
		cfg.Addr = ":8080"
	}
	if cfg.MaxUploadBytes <= 0 {
		cfg.MaxUploadBytes = 32 << 20
	}
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.GinMode != "" {
		gin.SetMode(cfg.GinMode)
	}

	tmpl, err := template.New("").Funcs(templateFuncs).ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("parse templates: %w", err)
	}

	s := &Server{
		cfg:    cfg,
		holder: holder,
		logger: logger,
		store:  NewResultStore(cfg.ResultTTL, cfg.MaxResults),
		tmpl:   tmpl,
	}
	s.router = s.routes()
	return s, nil
}

func (s *Server) routes() *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery(), requestLogger(s.logger))
	router.MaxMultipartMemory = s.cfg.MaxUploadBytes

	if len(s.cfg.CORSOrigins) > 0 {
		router.Use(cors.New(cors.Config{
			AllowOrigins:     s.cfg.CORSOrigins,
			AllowMethods:     []string{"GET", "POST", "OPTIONS"},
			AllowHeaders:     []string{"Content-Type", "Accept"},
			ExposeHeaders:    []string{"Content-Length", "Content-Disposition"},
			AllowCredentials: false,
			MaxAge:           12 * time.Hour,
		}))
	}

	docs.SwaggerInfo.BasePath = "/api/v1"
	router.GET("/api/v1/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	router.GET("/health", s.handleHealth)
	router.GET("/", s.handleIndex)
	router.POST("/upload", limitBody(s.cfg.MaxUploadBytes), s.handleUpload)
	router.GET("/download/:id", s.handleDownload)
	router.GET("/charts/:id/:file", s.handleChart)

	apiV1 := router.Group("/api/v1")
	{
		apiV1.POST("/predict", limitBody(s.cfg.MaxUploadBytes), s.handlePredict)
		apiV1.GET("/reports/:id", s.handleReport)
	}
	return router
}

// Handler returns the HTTP handler.
func (s *Server) Handler() http.Handler { return s.router }

// Store exposes the result store.
func (s *Server) Store() *ResultStore { return s.store }

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.Addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("starting dashboard", "addr", s.cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("listen %s: %w", s.cfg.Addr, err)
		}
		return nil
	case <-ctx.Done():
	}

	s.logger.Info("shutting down dashboard")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	s.logger.Info("dashboard exited")
	return nil
}

// requestLogger logs one line per request through slog.
func requestLogger(logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		level := slog.LevelInfo
		if c.Writer.Status() >= 500 {
			level = slog.LevelError
		}
		logger.Log(c.Request.Context(), level, "request",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"bytes", c.Writer.Size(),
			"latency_ms", float64(time.Since(start).Microseconds())/1000,
			"client_ip", c.ClientIP(),
		)
	}
}

// limitBody caps the request body; reads past the limit fail with *http.MaxBytesError.
func limitBody(n int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, n)
		c.Next()
	}
}

var templateFuncs = template.FuncMap{
	"prob": func(v float64) string { return fmt.Sprintf("%.4f", v) },
}
