// Package api implements app.Runner for the economy API server process.
package api

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	apphttp "github.com/kamyabi/economy-engine/pkg/app/http"
	"github.com/kamyabi/economy-engine/pkg/auditor"
	"github.com/kamyabi/economy-engine/pkg/auth"
	"github.com/kamyabi/economy-engine/pkg/config"
	"github.com/kamyabi/economy-engine/pkg/economy/referral"
	"github.com/kamyabi/economy-engine/pkg/economy/spin"
	"github.com/kamyabi/economy-engine/pkg/economy/task"
	"github.com/kamyabi/economy-engine/pkg/economy/withdrawal"
	"github.com/kamyabi/economy-engine/pkg/ledgerstore"
	"github.com/kamyabi/economy-engine/pkg/pgutil"
	registrationservice "github.com/kamyabi/economy-engine/pkg/registration/service"
	"github.com/kamyabi/economy-engine/pkg/security"
)

const defaultRequestTimeout = 60

// Server holds cfg to init the api server.
type Server struct {
	cfg *config.Config
}

// NewServer initializes new api server.
func NewServer(cfg *config.Config) *Server {
	return &Server{cfg: cfg}
}

func (s *Server) Run() error {
	if s.cfg == nil {
		return fmt.Errorf("api server config is nil")
	}
	cfg := s.cfg

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger, err := config.NewLogger(cfg.Logging)
	if err != nil {
		return fmt.Errorf("setup logger: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("Starting economy API server",
		zap.String("host", cfg.Server.Host),
		zap.Int("port", cfg.Server.Port),
	)

	db, err := pgutil.ConnectDB(&cfg.Database)
	if err != nil {
		return fmt.Errorf("connect db: %w", err)
	}
	defer func() { _ = db.Close() }()
	logger.Info("Connected to database",
		zap.String("host", cfg.Database.Host),
		zap.String("database", cfg.Database.Database),
	)

	store := ledgerstore.NewStore(db)

	validator := auth.NewJWTValidator(cfg.JWKS.URL, cfg.JWKS.Issuer)

	dispatcher := referral.NewDispatcher(store, cfg.Referral.QueueSize, cfg.Referral.Workers, logger)
	dispatcher.Start()

	aud := auditor.New(store, logger)
	s.runInitialAudit(ctx, aud, logger)
	stopAudit := s.startPeriodicAudits(aud, logger)
	defer stopAudit()

	registrationSvc := registrationservice.NewLog(
		registrationservice.NewService(store, logger),
		logger,
	)
	taskSvc := task.NewLog(task.NewService(store, dispatcher, logger), logger)
	spinSvc := spin.NewService(store, dispatcher, logger)
	withdrawalSvc := withdrawal.NewService(store, logger)
	gateSvc := security.NewService(
		store,
		security.NewIntegrityVerifier(cfg.Security.IntegrityURL, cfg.Security.APIKey, cfg.Security.RequestTimeout),
		security.NewIPIntel(cfg.Security.IPIntelURL, cfg.Security.APIKey, cfg.Security.RequestTimeout),
		security.NewCredentialAdmin(cfg.Security.CredentialAdminURL, cfg.Security.APIKey, cfg.Security.RequestTimeout),
		logger,
	)

	router := s.setupRouter(validator, registrationSvc, taskSvc, spinSvc, withdrawalSvc, gateSvc, logger)

	err = apphttp.ServeAndWait(ctx, router, logger, &cfg.Server)

	// Stop background work before deferred DB close kicks in.
	stopAudit()
	dispatcher.Stop()

	return err
}

func (s *Server) runInitialAudit(ctx context.Context, aud *auditor.Auditor, logger *zap.Logger) {
	if s.cfg.Audit.InitialTimeout <= 0 {
		return
	}

	logger.Info("Running initial ledger audit",
		zap.Duration("timeout", s.cfg.Audit.InitialTimeout),
	)

	startupCtx, cancel := context.WithTimeout(ctx, s.cfg.Audit.InitialTimeout)
	defer cancel()

	if err := aud.Audit(startupCtx); err != nil {
		logger.Warn("Initial ledger audit failed (will retry periodically)", zap.Error(err))
		return
	}

	logger.Info("Initial ledger audit completed")
}

func (s *Server) startPeriodicAudits(aud *auditor.Auditor, logger *zap.Logger) func() {
	if s.cfg.Audit.Interval <= 0 {
		return func() {}
	}

	logger.Info("Starting periodic ledger audits", zap.Duration("interval", s.cfg.Audit.Interval))
	aud.StartPeriodicAudits(s.cfg.Audit.Interval)

	// Return stopper for deterministic shutdown ordering.
	var stopped bool
	return func() {
		if stopped {
			return
		}
		stopped = true
		aud.Stop()
	}
}

func (s *Server) setupRouter(
	validator auth.TokenValidator,
	registrationSvc registrationservice.Service,
	taskSvc task.Service,
	spinSvc spin.Service,
	withdrawalSvc withdrawal.Service,
	gateSvc security.Service,
	logger *zap.Logger,
) chi.Router {
	r := chi.NewRouter()

	// Middleware stack
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(time.Second * defaultRequestTimeout))

	// Health check
	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})

	if s.cfg.Monitoring.Enabled {
		r.Handle("/metrics", promhttp.Handler())
		logger.Info("Metrics enabled", zap.String("path", "/metrics"))
	}

	// Authenticated client surface
	r.Group(func(r chi.Router) {
		r.Use(auth.RequireUser(validator))

		r.Route("/users", func(r chi.Router) {
			registrationservice.RegisterRoutes(r, registrationSvc, logger)
		})
		r.Route("/tasks", func(r chi.Router) {
			task.RegisterRoutes(r, taskSvc, logger)
			spin.RegisterRoutes(r, spinSvc, logger)
		})
		r.Route("/withdrawals", func(r chi.Router) {
			withdrawal.RegisterRoutes(r, withdrawalSvc, logger)
		})
		r.Route("/security", func(r chi.Router) {
			security.RegisterRoutes(r, gateSvc, logger)
		})

		// Operator surface
		r.Route("/admin", func(r chi.Router) {
			r.Use(auth.RequireAdmin)

			r.Route("/withdrawals", func(r chi.Router) {
				withdrawal.RegisterAdminRoutes(r, withdrawalSvc, logger)
			})
			r.Route("/security", func(r chi.Router) {
				security.RegisterAdminRoutes(r, gateSvc, logger)
			})
		})
	})

	return r
}
