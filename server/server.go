package server

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/agentrelay/agentrelay/core"
	"github.com/agentrelay/agentrelay/logging"
	"github.com/agentrelay/agentrelay/runner"
	"github.com/agentrelay/agentrelay/session"
	"github.com/agentrelay/agentrelay/store"
	"github.com/agentrelay/agentrelay/uitool"
)

// Options holds dependency + configuration overrides passed to New().
type Options struct {
	// Recorder receives inbound UI interaction events before Resume runs.
	Recorder *session.Recorder
	// PersistStore serves session read endpoints.
	PersistStore store.Store
	// Tools backs the UI-tool registration endpoints. Nil leaves those
	// routes unregistered.
	Tools uitool.Registry
	// Logger receives request diagnostics.
	Logger logging.Logger
	// MetricsRegistry backs the /metrics endpoint. Nil uses the default
	// prometheus gatherer.
	MetricsRegistry *prometheus.Registry
	// CORSOrigins lists allowed browser origins; "*" allows all.
	CORSOrigins []string
	// Debug keeps gin in debug mode with request logging.
	Debug bool
}

// Server is the HTTP surface over the execution engine: system lifecycle,
// chat turns and UI interaction delivery.
type Server struct {
	runner   *runner.Runner
	recorder *session.Recorder
	persist  store.Store
	tools    uitool.Registry
	logger   logging.Logger
	engine   *gin.Engine
	http     *http.Server

	mu      sync.RWMutex
	systems map[string]*core.SystemSpec
}

// New constructs a Server over the given runner with optional overrides.
func New(r *runner.Runner, optFns ...func(o *Options)) *Server {
	opts := Options{
		PersistStore: store.NewMemory(),
		Logger:       logging.NoOpLogger{},
		CORSOrigins:  []string{"*"},
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.Recorder == nil {
		opts.Recorder = session.NewRecorder(r.Sessions(), opts.Logger)
	}

	if !opts.Debug {
		gin.SetMode(gin.ReleaseMode)
	}
	engine := gin.New()
	engine.Use(gin.Recovery())

	corsConfig := cors.DefaultConfig()
	if len(opts.CORSOrigins) == 1 && opts.CORSOrigins[0] == "*" {
		corsConfig.AllowAllOrigins = true
	} else {
		corsConfig.AllowOrigins = opts.CORSOrigins
	}
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Authorization"}
	engine.Use(cors.New(corsConfig))

	s := &Server{
		runner:   r,
		recorder: opts.Recorder,
		persist:  opts.PersistStore,
		tools:    opts.Tools,
		logger:   opts.Logger,
		engine:   engine,
		systems:  make(map[string]*core.SystemSpec),
	}
	s.routes(opts.MetricsRegistry)
	return s
}

func (s *Server) routes(reg *prometheus.Registry) {
	s.engine.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	var metricsHandler http.Handler
	if reg != nil {
		metricsHandler = promhttp.HandlerFor(reg, promhttp.HandlerOpts{})
	} else {
		metricsHandler = promhttp.Handler()
	}
	s.engine.GET("/metrics", gin.WrapH(metricsHandler))

	s.engine.POST("/agent-systems", s.createSystem)
	s.engine.GET("/agent-systems", s.listSystems)
	s.engine.GET("/agent-systems/:id", s.getSystem)
	s.engine.PUT("/agent-systems/:id", s.updateSystem)
	s.engine.DELETE("/agent-systems/:id", s.deleteSystem)
	s.engine.POST("/agent-systems/:id/deploy", s.deploySystem)

	s.engine.POST("/agent-chat/:systemId", s.chat)

	s.engine.POST("/ui-interaction", s.uiInteraction)
	s.engine.GET("/ui-interaction", s.interactionHistory)

	if s.tools != nil {
		s.engine.POST("/ui-tools", s.registerTool)
		s.engine.GET("/ui-tools", s.listTools)
		s.engine.DELETE("/ui-tools/:id", s.deleteTool)
	}

	s.engine.GET("/sessions/:id", s.getSession)
}

// Handler exposes the underlying HTTP handler, primarily for tests.
func (s *Server) Handler() http.Handler { return s.engine }

// Start serves HTTP on addr until the context is cancelled, then drains
// in-flight requests.
func (s *Server) Start(ctx context.Context, addr string) error {
	s.http = &http.Server{
		Addr:              addr,
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("http server listening addr=%s", addr)
		if err := s.http.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return s.http.Shutdown(shutdownCtx)
	}
}
