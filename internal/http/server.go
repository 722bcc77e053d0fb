package http

import (
	"context"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
	"sync"
	"time"

	"budget/internal/auth"
	"budget/internal/cache"
	"budget/internal/log"
	"budget/internal/middleware/ratelimit"
	"budget/internal/middleware/security"
	"budget/internal/middleware/trace"
	"budget/internal/services"
	"budget/internal/session"
	appweb "budget/web"
)

// MaxUploadBytes caps the size of an uploaded transactions file.
const MaxUploadBytes = 5 << 20

type Server struct {
	http.Server
	templates *template.Template
	ledger    *services.Ledger
	users     *auth.Users
	sessions  *session.Manager
	logger    *log.Logger

	detector     *security.Detector
	tracer       *trace.Middleware
	limiter      *ratelimit.Limiter
	loginLimiter *ratelimit.Limiter
	caches       *cache.Manager

	started      time.Time
	shutdownOnce sync.Once
}

// Options wires a Server to its collaborators.
type Options struct {
	Ledger   *services.Ledger
	Users    *auth.Users
	Sessions *session.Manager
	Logger   *log.Logger

	// RateLimit applies to every POST; LoginRateLimit to POST /login only.
	RateLimit      ratelimit.Config
	LoginRateLimit ratelimit.Config
	TrustedProxies []string

	CacheCleanupInterval time.Duration
}

// NewServer configures routes, middleware and templates, returning a
// ready-to-run http.Server.
func NewServer(addr string, opts Options) (*Server, error) {
	if opts.Ledger == nil || opts.Users == nil {
		return nil, fmt.Errorf("server needs a ledger and users")
	}
	if opts.Sessions == nil {
		opts.Sessions = session.NewManager(session.Options{})
	}
	if opts.Logger == nil {
		opts.Logger = log.New(log.DefaultConfig())
	}
	if opts.LoginRateLimit.Requests == 0 {
		opts.LoginRateLimit = ratelimit.Config{Requests: 10, Window: time.Minute}
	}
	if opts.CacheCleanupInterval <= 0 {
		opts.CacheCleanupInterval = 5 * time.Minute
	}

	t, err := template.New("").Funcs(templateFuncs).ParseFS(appweb.TemplatesFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("parse templates: %w", err)
	}

	s := &Server{
		templates:    t,
		ledger:       opts.Ledger,
		users:        opts.Users,
		sessions:     opts.Sessions,
		logger:       opts.Logger.WithComponent(log.ComponentHTTP),
		detector:     security.NewDetector(),
		limiter:      ratelimit.NewLimiter(opts.RateLimit),
		loginLimiter: ratelimit.NewLimiter(opts.LoginRateLimit),
		caches:       cache.NewManager(),
		started:      time.Now(),
	}
	for _, cidr := range opts.TrustedProxies {
		if err := s.detector.AddTrustedProxy(cidr); err != nil {
			return nil, err
		}
	}
	s.tracer = trace.NewMiddleware(opts.Logger, s.detector.ExtractClientIP)

	s.caches.Register("sessions", s.sessions.Store())
	if c := s.ledger.SnapshotCache(); c != nil {
		s.caches.Register("snapshots", c)
	}
	s.caches.StartCleanup(opts.CacheCleanupInterval)

	mux := http.NewServeMux()
	if err := s.routes(mux); err != nil {
		return nil, err
	}

	var handler http.Handler = mux
	handler = s.limiter.Middleware(s.detector.ExtractClientIP, s.rateLimited, http.MethodPost)(handler)
	handler = s.detector.Middleware(handler)
	handler = security.NewHeadersMiddleware(security.DefaultHeadersConfig()).Middleware(handler)
	handler = s.tracer.Middleware(handler)

	s.Server = http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	return s, nil
}

func (s *Server) routes(mux *http.ServeMux) error {
	sub, err := fs.Sub(appweb.StaticFS, "static")
	if err != nil {
		return fmt.Errorf("mount static assets: %w", err)
	}
	static := http.StripPrefix("/static/", http.FileServer(http.FS(sub)))
	mux.Handle("GET /static/", security.StaticAssetMiddleware(3600)(static))

	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)

	loginLimit := s.loginLimiter.Middleware(s.detector.ExtractClientIP, s.rateLimited)
	mux.Handle("GET /login", security.NoStore(http.HandlerFunc(s.handleLoginPage)))
	mux.Handle("POST /login", loginLimit(http.HandlerFunc(s.handleLogin)))
	mux.HandleFunc("POST /logout", s.handleLogout)

	private := func(h http.HandlerFunc) http.Handler {
		return security.NoStore(s.requireAuth(h))
	}

	mux.Handle("GET /{$}", private(s.handleDashboard))
	mux.Handle("GET /ui/dashboard", private(s.handleDashboardPanel))
	mux.Handle("GET /api/breakdown", private(s.handleBreakdown))

	mux.Handle("GET /transactions", private(s.handleTransactionsPage))
	mux.Handle("POST /transactions/stage", private(s.handleStageTransaction))
	mux.Handle("POST /transactions/upload", private(s.handleUploadTransactions))
	mux.Handle("POST /transactions/clear", private(s.handleClearTransactions))
	mux.Handle("POST /transactions/submit", private(s.handleSubmitTransactions))

	mux.Handle("GET /bills", private(s.handleBillsPage))
	mux.Handle("POST /bills/stage", private(s.handleStageBill))
	mux.Handle("POST /bills/clear", private(s.handleClearBills))
	mux.Handle("POST /bills/submit", private(s.handleSubmitBills))
	return nil
}

// Shutdown gracefully shuts down the server and cleanup routines
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		s.caches.Stop()
		s.limiter.Stop()
		s.loginLimiter.Stop()
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}

func (s *Server) rateLimited(w http.ResponseWriter, r *http.Request) {
	log.FromContext(r.Context()).WithComponent(log.ComponentRateLimit).WarnContext(r.Context(), "Rate limit exceeded",
		log.FieldClientIP, s.detector.ExtractClientIP(r),
		log.FieldMethod, r.Method,
		log.FieldPath, r.URL.Path)
	ErrorResponse(http.StatusTooManyRequests, "Too many requests. Please try again later.").Write(w)
}
