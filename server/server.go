package server

import (
	"context"
	"fmt"
	"net/http"
	"runtime"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/hashicorp/go-multierror"
	"github.com/sirupsen/logrus"

	"github.com/dnstrail/dnstrail/api"
	"github.com/dnstrail/dnstrail/cache/resultcache"
	"github.com/dnstrail/dnstrail/config"
	"github.com/dnstrail/dnstrail/lists"
	"github.com/dnstrail/dnstrail/log"
	"github.com/dnstrail/dnstrail/metrics"
	"github.com/dnstrail/dnstrail/querylog"
	"github.com/dnstrail/dnstrail/resolver"
)

const (
	shutdownTimeout      = 5 * time.Second
	queryLogCleanupEvery = 24 * time.Hour
)

// Server hosts the HTTP API and owns the long-lived components
type Server struct {
	cfg          *config.Config
	httpServer   *http.Server
	httpMux      *chi.Mux
	cache        *resultcache.ResultCache
	gate         *lists.Gate
	client       *resolver.UpstreamClient
	orchestrator *resolver.Orchestrator
	queryLog     querylog.Writer
}

func logger() *logrus.Entry {
	return log.PrefixedLog("server")
}

// NewServer creates new server instance with passed config
func NewServer(cfg *config.Config) (*Server, error) {
	log.ConfigureLogger(cfg.LogLevel, cfg.LogFormat, cfg.LogTimestamp)

	cache := resultcache.New(cfg.Caching.File,
		resultcache.WithMaxSize(uint(cfg.Caching.MaxItemsCount)),
		resultcache.WithNegativeTTL(cfg.Caching.NegativeTTL.ToDuration()))

	gate := lists.NewGate(cfg.Blocking)
	client := resolver.NewUpstreamClient(cfg.Upstreams, cfg.QueryTimeout.ToDuration())
	queryLog := querylog.NewWriter(cfg.QueryLog)
	orchestrator := resolver.NewOrchestrator(cfg, gate, cache, client, queryLog)

	router := createRouter()

	metrics.Start(router, cfg.Prometheus)

	api.RegisterEndpoint(router, orchestrator)
	api.RegisterEndpoint(router, cache)
	api.RegisterEndpoint(router, gate)

	registerHealthEndpoint(router)

	server := &Server{
		cfg:     cfg,
		httpMux: router,
		httpServer: &http.Server{
			Addr:              fmt.Sprintf(":%d", cfg.HTTPPort),
			Handler:           router,
			ReadHeaderTimeout: 10 * time.Second,
		},
		cache:        cache,
		gate:         gate,
		client:       client,
		orchestrator: orchestrator,
		queryLog:     queryLog,
	}

	server.printConfiguration()

	return server, nil
}

// Start starts the server
func (s *Server) Start(errCh chan<- error) {
	logger().Info("starting server")

	go func() {
		logger().Infof("http server is up and running on addr/port %s", s.httpServer.Addr)

		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- fmt.Errorf("start http listener failed: %w", err)
		}
	}()

	go s.periodicQueryLogCleanup()
}

func (s *Server) periodicQueryLogCleanup() {
	ticker := time.NewTicker(queryLogCleanupEvery)
	defer ticker.Stop()

	for {
		<-ticker.C
		s.queryLog.CleanUp()
	}
}

// Stop stops the server, flushes the cache state and runs the query log
// retention cleanup
func (s *Server) Stop() error {
	logger().Info("stopping server")

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	var result *multierror.Error

	if err := s.httpServer.Shutdown(ctx); err != nil {
		result = multierror.Append(result, fmt.Errorf("stop http listener failed: %w", err))
	}

	if err := s.cache.Flush(); err != nil {
		result = multierror.Append(result, fmt.Errorf("cache flush failed: %w", err))
	}

	s.queryLog.CleanUp()

	return result.ErrorOrNil()
}

func (s *Server) printConfiguration() {
	logger().Info("current configuration:")

	logger().Info("-> orchestrator:")

	for _, c := range s.orchestrator.Configuration() {
		logger().Infof("     %s", c)
	}

	logger().Info("-> upstream client:")

	for _, c := range s.client.Configuration() {
		logger().Infof("     %s", c)
	}

	logger().Infof("- HTTP listening on port: %d", s.cfg.HTTPPort)
	logger().Infof("- query log: %s", s.cfg.QueryLog.Type)

	logger().Info("runtime information:")

	var m runtime.MemStats

	runtime.ReadMemStats(&m)

	logger().Infof("MEM Alloc =        %10v MB", toMB(m.Alloc))
	logger().Infof("MEM Sys =          %10v MB", toMB(m.Sys))
	logger().Infof("RUN NumCPU =       %10d", runtime.NumCPU())
	logger().Infof("RUN NumGoroutine = %10d", runtime.NumGoroutine())
}

func toMB(b uint64) uint64 {
	const bytesInKB = 1024

	return b / bytesInKB / bytesInKB
}
