package server

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"worklog-summary/internal/config"
	"worklog-summary/internal/evaluator"
	"worklog-summary/internal/logger"
	"worklog-summary/internal/period"
	"worklog-summary/internal/storage"
	"worklog-summary/internal/task"
)

// Store is the storage surface the API touches directly.
type Store interface {
	SaveRecord(ctx context.Context, record *storage.Record) error
	GetSummary(ctx context.Context, id string) (*storage.Summary, error)
	UpdateSummaryContent(ctx context.Context, id, content string) (*storage.Summary, error)
	ListSummaries(ctx context.Context, tenant string, t period.Type) ([]*storage.Summary, error)
	FindLatestSummary(ctx context.Context, tenant string) (*storage.Summary, error)
}

// Generator runs summary generation.
type Generator interface {
	OnRecordWritten(tenant string, date time.Time)
	GenerateManual(ctx context.Context, req task.ManualRequest) (*task.GenerateResult, error)
	GenerateRange(ctx context.Context, tenant string, from, to time.Time, save bool) (*task.GenerateResult, error)
}

// Advisor produces critique and insight feedback.
type Advisor interface {
	Critique(ctx context.Context, tenant string, refresh bool) (*evaluator.Feedback, error)
	Insight(ctx context.Context, tenant string) (*evaluator.Feedback, error)
}

type Server struct {
	cfg       *config.ServerConfig
	store     Store
	generator Generator
	advisor   Advisor
	engine    *gin.Engine
	http      *http.Server
}

func New(cfg *config.ServerConfig, store Store, generator Generator, advisor Advisor) *Server {
	s := &Server{
		cfg:       cfg,
		store:     store,
		generator: generator,
		advisor:   advisor,
	}
	s.engine = s.setupRouter()
	return s
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.engine
}

func (s *Server) setupRouter() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(accessLog(logger.WithModule("http")))
	r.Use(cors.New(corsConfig(s.cfg.CORSOrigins)))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	api := r.Group("/api")
	{
		api.POST("/logs", s.createRecord)

		summaries := api.Group("/summaries")
		{
			summaries.POST("/generate", s.generateSummary)
			summaries.GET("/:type", s.listSummaries)
			summaries.PUT("/:id", s.updateSummary)
		}

		api.GET("/export/summaries", s.exportSummaries)

		ai := api.Group("/ai")
		{
			ai.POST("/generate", s.generateReport)
			ai.GET("/latest", s.latestSummary)
			ai.POST("/insight", s.insight)
		}

		api.GET("/feedback/critique", s.critique)
	}

	return r
}

// Start serves until Shutdown is called.
func (s *Server) Start() error {
	s.http = &http.Server{
		Addr:              s.cfg.Address,
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}
	logger.GetLogger().Infof("HTTP server listening on %s", s.cfg.Address)
	if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	if s.http == nil {
		return nil
	}
	return s.http.Shutdown(ctx)
}

func corsConfig(origins []string) cors.Config {
	cfg := cors.DefaultConfig()
	if len(origins) == 0 {
		cfg.AllowAllOrigins = true
	} else {
		for _, o := range origins {
			cfg.AllowOrigins = append(cfg.AllowOrigins, strings.TrimRight(o, "/"))
		}
		cfg.AllowCredentials = true
	}
	cfg.AddAllowMethods("GET", "POST", "PUT", "OPTIONS")
	cfg.AddAllowHeaders("Origin", "Content-Type", "Authorization")
	cfg.AddExposeHeaders("Content-Length", "Content-Disposition")
	return cfg
}

// accessLog 请求日志中间件
func accessLog(log *logrus.Entry) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path

		c.Next()

		entry := log.WithFields(logrus.Fields{
			"status":  c.Writer.Status(),
			"method":  c.Request.Method,
			"path":    path,
			"query":   c.Request.URL.RawQuery,
			"ip":      c.ClientIP(),
			"latency": time.Since(start).String(),
		})
		if len(c.Errors) > 0 {
			entry = entry.WithField("errors", c.Errors.ByType(gin.ErrorTypePrivate).String())
		}

		switch status := c.Writer.Status(); {
		case status >= 500:
			entry.Error("request failed")
		case status >= 400:
			entry.Warn("client error")
		default:
			entry.Info("request completed")
		}
	}
}
