package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"pennyleague/internal/config"
	"pennyleague/internal/database"
	"pennyleague/internal/modules/admin"
	"pennyleague/internal/modules/leaderboard"
	"pennyleague/internal/modules/ledger"
	"pennyleague/internal/modules/portfolio"
	"pennyleague/internal/modules/users"
)

// Config holds server configuration
type Config struct {
	Port    int
	Log     zerolog.Logger
	DB      *database.DB
	Config  *config.Config
	Quotes  portfolio.QuoteFunc
	DevMode bool
}

// Server represents the HTTP server
type Server struct {
	router *chi.Mux
	server *http.Server
	log    zerolog.Logger
	cfg    *config.Config

	tradeRepo   *ledger.TradeRepository
	userRepo    *users.Repository
	sessionRepo *users.SessionRepository
}

// New creates a new HTTP server with all modules wired
func New(cfg Config) *Server {
	s := &Server{
		router: chi.NewRouter(),
		log:    cfg.Log.With().Str("component", "server").Logger(),
		cfg:    cfg.Config,
	}

	db := cfg.DB.Conn()

	var maxPrice *decimal.Decimal
	if cfg.Config.EnforcePriceCeiling {
		p := cfg.Config.MaxEligiblePrice
		maxPrice = &p
	}

	s.tradeRepo = ledger.NewTradeRepository(db, maxPrice, cfg.Log)
	s.userRepo = users.NewRepository(db, cfg.Log)
	s.sessionRepo = users.NewSessionRepository(db, cfg.Config.SessionTTL, cfg.Log)

	portfolioSvc := portfolio.NewService(s.tradeRepo, cfg.Quotes, cfg.Config.StartingCash, cfg.Log)

	ledgerHandlers := ledger.NewHandlers(s.tradeRepo, cfg.Log)
	portfolioHandlers := portfolio.NewHandlers(portfolioSvc, cfg.Log)
	leaderboardHandlers := leaderboard.NewHandlers(s.userRepo, s.tradeRepo, cfg.Quotes, cfg.Config.StartingCash, cfg.Log)
	userHandlers := users.NewHandlers(s.userRepo, s.sessionRepo, cfg.Log)
	adminHandlers := admin.NewHandlers(s.tradeRepo, s.userRepo, portfolioSvc, cfg.Log)

	s.setupMiddleware(cfg.DevMode)
	s.setupRoutes(ledgerHandlers, portfolioHandlers, leaderboardHandlers, userHandlers, adminHandlers)

	s.server = &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return s
}

// TradeRepo exposes the trade repository for background jobs.
func (s *Server) TradeRepo() *ledger.TradeRepository {
	return s.tradeRepo
}

// setupMiddleware configures middleware
func (s *Server) setupMiddleware(devMode bool) {
	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(s.loggingMiddleware)
	s.router.Use(middleware.Timeout(60 * time.Second))

	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	if !devMode {
		s.router.Use(middleware.Compress(5))
	}
}

// setupRoutes configures all routes
func (s *Server) setupRoutes(
	ledgerHandlers *ledger.Handlers,
	portfolioHandlers *portfolio.Handlers,
	leaderboardHandlers *leaderboard.Handlers,
	userHandlers *users.Handlers,
	adminHandlers *admin.Handlers,
) {
	s.router.Get("/health", s.handleHealth)

	s.router.Route("/api", func(r chi.Router) {
		// Public
		r.Post("/register", userHandlers.HandleRegister)
		r.Post("/login", userHandlers.HandleLogin)

		// Authenticated
		r.Group(func(r chi.Router) {
			r.Use(users.Auth(s.sessionRepo, s.userRepo))

			r.Post("/logout", userHandlers.HandleLogout)
			r.Get("/me", userHandlers.HandleMe)

			r.Route("/trades", func(r chi.Router) {
				r.Get("/", ledgerHandlers.HandleGetTrades)
				r.Post("/", ledgerHandlers.HandleRecordTrade)
				r.Post("/import", ledgerHandlers.HandleImportCSV)
				r.Delete("/{id}", ledgerHandlers.HandleDeleteTrade)
			})

			r.Get("/portfolio", portfolioHandlers.HandleGetOwn)
			r.Get("/leaderboard", leaderboardHandlers.HandleGetLeaderboard)

			// Admin
			r.Group(func(r chi.Router) {
				r.Use(users.RequireAdmin)

				r.Get("/portfolio/{username}", portfolioHandlers.HandleGetForUser)

				r.Route("/admin", func(r chi.Router) {
					r.Get("/trades", adminHandlers.HandleGetAllTrades)
					r.Delete("/trades/{id}", adminHandlers.HandleDeleteTrade)
					r.Put("/trades/{id}/timestamp", adminHandlers.HandleUpdateTimestamp)
					r.Get("/users", adminHandlers.HandleGetUsers)
					r.Delete("/users/{username}", adminHandlers.HandleDeleteUser)
					r.Get("/oversells", adminHandlers.HandleGetOversells)
				})
			})
		})
	})
}

// Start starts the HTTP server
func (s *Server) Start() error {
	s.log.Info().Int("port", s.cfg.Port).Msg("Starting HTTP server")
	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	s.log.Info().Msg("Shutting down HTTP server")
	return s.server.Shutdown(ctx)
}

// loggingMiddleware logs HTTP requests
func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		s.log.Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Int("bytes", ww.BytesWritten()).
			Dur("duration_ms", time.Since(start)).
			Str("request_id", middleware.GetReqID(r.Context())).
			Msg("HTTP request")
	})
}
