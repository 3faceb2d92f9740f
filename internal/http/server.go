package http

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"networth/internal/amqp"
	"networth/internal/bridge"
	"networth/internal/cache"
	"networth/internal/core"
	applog "networth/internal/log"
	"networth/internal/metrics"
	"networth/internal/middleware/ratelimit"
	"networth/internal/middleware/security"
	"networth/internal/middleware/trace"
	"networth/internal/services"
)

// SnapshotAPI is the part of the snapshot service the API exposes.
type SnapshotAPI interface {
	Generate(ctx context.Context, months []core.Month) (*services.RunResult, error)
	GetSnapshot(ctx context.Context, m core.Month) (core.MonthlySnapshot, error)
	ListSnapshots(ctx context.Context, from, to core.Month) ([]core.MonthlySnapshot, error)
	VerifyChain(ctx context.Context, from, to core.Month) error
}

// BridgeAPI computes cash-flow bridges. A zero end means up to now.
type BridgeAPI interface {
	Compute(ctx context.Context, start, end time.Time) (bridge.Result, error)
}

// RequestPublisher hands generation requests to the worker.
type RequestPublisher interface {
	PublishSnapshotRequest(ctx context.Context, msg *amqp.SnapshotRequestMessage) error
}

// Deps wires the server. Snapshots and Bridge are required.
type Deps struct {
	Snapshots SnapshotAPI
	Bridge    BridgeAPI
	// Publisher makes generation asynchronous when set.
	Publisher RequestPublisher
	// Ready reports backend readiness for /readyz.
	Ready    func(context.Context) error
	Registry *prometheus.Registry
	Caches   *cache.Manager
	Logger   *applog.Logger

	RateLimit ratelimit.Config
}

type Server struct {
	http.Server
	snapshots SnapshotAPI
	bridge    BridgeAPI
	publisher RequestPublisher
	ready     func(context.Context) error

	limiter  *ratelimit.Limiter
	detector *security.Detector
	caches   *cache.Manager

	shutdownOnce sync.Once
}

// NewServer configures routes and middleware, returning a ready-to-run
// http.Server.
func NewServer(addr string, deps Deps) *Server {
	logger := deps.Logger
	if logger == nil {
		logger = applog.FromContext(context.Background())
	}
	logger = logger.WithComponent(applog.ComponentHTTP)

	s := &Server{
		snapshots: deps.Snapshots,
		bridge:    deps.Bridge,
		publisher: deps.Publisher,
		ready:     deps.Ready,
		limiter:   ratelimit.NewLimiter(deps.RateLimit),
		detector:  security.NewDetector(),
		caches:    deps.Caches,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)

	mux.HandleFunc("GET /api/snapshots", s.handleListSnapshots)
	mux.HandleFunc("GET /api/snapshots/verify", s.handleVerifyChain)
	mux.HandleFunc("GET /api/snapshots/{month}", s.handleGetSnapshot)
	mux.HandleFunc("POST /api/snapshots/generate", s.handleGenerate)
	mux.HandleFunc("GET /api/bridge", s.handleBridge)

	if deps.Registry != nil {
		mux.Handle("GET /metrics", metrics.Handler(deps.Registry))
	}

	var h http.Handler = mux
	h = s.limiter.Middleware(s.detector.ClientIP)(h)
	h = s.flagSuspicious(h)
	h = security.Headers(security.DefaultHeadersConfig())(h)
	h = trace.NewMiddleware(logger, s.detector.ClientIP).Handler(h)

	s.Server = http.Server{
		Addr:              addr,
		Handler:           h,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// flagSuspicious logs scanner-looking requests. They are still served; the
// router rejects anything it does not know.
func (s *Server) flagSuspicious(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.detector.IsSuspicious(r) {
			applog.FromContext(r.Context()).WarnContext(r.Context(), "Suspicious request detected",
				applog.FieldMethod, r.Method,
				applog.FieldPath, r.URL.Path,
				applog.FieldClientIP, s.detector.ClientIP(r),
				applog.FieldUserAgent, r.Header.Get("User-Agent"))
		}
		next.ServeHTTP(w, r)
	})
}

// Shutdown gracefully shuts down the server and its background routines.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		s.limiter.Stop()
		if s.caches != nil {
			s.caches.Stop()
		}
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte("ok"))
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if s.ready != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := s.ready(ctx); err != nil {
			applog.FromContext(r.Context()).WarnContext(r.Context(), "Readiness check failed", applog.FieldError, err)
			ErrorResponse(http.StatusServiceUnavailable, "not ready").Write(w)
			return
		}
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte("ready"))
}
