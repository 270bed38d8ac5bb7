package api

import (
	"io/fs"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/hibiken/asynq"
	"github.com/jdramirez/servipro/internal/api/handlers"
	"github.com/jdramirez/servipro/internal/api/middleware"
	"github.com/jdramirez/servipro/internal/audit"
	"github.com/jdramirez/servipro/internal/auth"
	"github.com/jdramirez/servipro/internal/identity"
	"github.com/jdramirez/servipro/internal/ownership"
	"github.com/jdramirez/servipro/internal/settings"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

type Router struct {
	chi.Router
}

type RouterConfig struct {
	DB             *gorm.DB
	Redis          *redis.Client
	Logger         *slog.Logger
	JWTService     *auth.JWTService
	AuthService    *auth.Service
	Mapper         *identity.Mapper
	AsynqClient    *asynq.Client
	StaticFS       fs.FS
	AllowedOrigins []string // CORS allowed origins
	RateLimitReqs  int      // Rate limit requests per window
	RateLimitSecs  int      // Rate limit window in seconds
}

func NewRouter(cfg RouterConfig) *Router {
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.Recovery(cfg.Logger))
	r.Use(middleware.Logging(cfg.Logger))

	// Rate limiting - applied globally to prevent abuse
	if cfg.RateLimitReqs > 0 {
		r.Use(middleware.RateLimit(cfg.RateLimitReqs, cfg.RateLimitSecs))
	}

	// CORS - restrict to configured origins, or allow all in development
	allowedOrigins := cfg.AllowedOrigins
	if len(allowedOrigins) == 0 {
		// Default to localhost for development - configure in production
		allowedOrigins = []string{"http://localhost:3000", "http://localhost:8080"}
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   allowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Auth-Token"},
		ExposedHeaders:   []string{"X-RateLimit-Limit", "X-RateLimit-Remaining", "X-RateLimit-Reset"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Shared services
	scopes := ownership.NewResolver(cfg.Mapper)
	bootstrap := settings.NewBootstrapper(cfg.DB)
	recorder := audit.NewRecorder(cfg.DB, cfg.Mapper, cfg.AsynqClient, cfg.Logger)

	// Handlers
	healthHandler := handlers.NewHealthHandler(cfg.DB, cfg.Redis)
	publicHandler := handlers.NewPublicHandler(cfg.Mapper, bootstrap)
	authHandler := handlers.NewAuthHandler(cfg.AuthService, recorder)
	clientHandler := handlers.NewClientHandler(cfg.DB, cfg.Mapper, scopes, recorder)
	employeeHandler := handlers.NewEmployeeHandler(cfg.DB, cfg.Mapper, scopes, recorder)
	serviceHandler := handlers.NewServiceHandler(cfg.DB, cfg.Mapper, scopes, recorder)
	expenseHandler := handlers.NewExpenseHandler(cfg.DB, cfg.Mapper, scopes, recorder)
	closingHandler := handlers.NewCashClosingHandler(cfg.DB, cfg.Mapper, scopes, recorder, bootstrap)
	quoteHandler := handlers.NewQuoteHandler(cfg.DB, cfg.Mapper, scopes, recorder)
	settingsHandler := handlers.NewSettingsHandler(cfg.DB, cfg.Mapper, bootstrap, recorder)
	auditHandler := handlers.NewAuditLogHandler(cfg.DB)

	// Public endpoints (no auth required)
	r.Get("/health", healthHandler.Health)
	r.Get("/ready", healthHandler.Ready)
	r.Get("/manifest.json", publicHandler.Manifest)
	r.Get("/logo", publicHandler.Logo)

	// API routes
	r.Route("/api/v1", func(r chi.Router) {
		// Public auth endpoints
		r.Post("/auth/login", authHandler.Login)
		r.Post("/auth/logout", authHandler.Logout)

		// Protected routes
		r.Group(func(r chi.Router) {
			r.Use(middleware.Auth(cfg.JWTService))

			r.Get("/auth/me", authHandler.Me)
			r.Post("/auth/change-password", authHandler.ChangePassword)

			r.Route("/clients", func(r chi.Router) {
				r.Get("/", clientHandler.List)
				r.Post("/", clientHandler.Create)
				r.Get("/{id}", clientHandler.Get)
				r.Put("/{id}", clientHandler.Update)
				r.Delete("/{id}", clientHandler.Delete)
			})

			r.Route("/employees", func(r chi.Router) {
				r.Get("/", employeeHandler.List)
				r.Post("/", employeeHandler.Create)
				r.Get("/{id}", employeeHandler.Get)
				r.Put("/{id}", employeeHandler.Update)
				r.Delete("/{id}", employeeHandler.Delete)
			})

			r.Route("/services", func(r chi.Router) {
				r.Get("/", serviceHandler.List)
				r.Post("/", serviceHandler.Create)
				r.Get("/{id}", serviceHandler.Get)
				r.Put("/{id}", serviceHandler.Update)
				r.Delete("/{id}", serviceHandler.Delete)
			})

			r.Route("/expenses", func(r chi.Router) {
				r.Get("/", expenseHandler.List)
				r.Post("/", expenseHandler.Create)
				r.Get("/{id}", expenseHandler.Get)
				r.Put("/{id}", expenseHandler.Update)
				r.Delete("/{id}", expenseHandler.Delete)
			})

			r.Route("/cash-closings", func(r chi.Router) {
				r.Get("/", closingHandler.List)
				r.Post("/", closingHandler.Create)
				r.Get("/{id}", closingHandler.Get)
				r.Delete("/{id}", closingHandler.Delete)
			})

			r.Route("/quotes", func(r chi.Router) {
				r.Get("/", quoteHandler.List)
				r.Post("/", quoteHandler.Create)
				r.Get("/{id}", quoteHandler.Get)
				r.Put("/{id}", quoteHandler.Update)
				r.Delete("/{id}", quoteHandler.Delete)
			})

			r.Route("/settings", func(r chi.Router) {
				r.Get("/", settingsHandler.Get)
				r.Put("/", settingsHandler.Update)
			})

			r.Get("/audit-logs", auditHandler.List)
		})
	})

	// Static files
	if cfg.StaticFS != nil {
		fileServer := http.FileServer(http.FS(cfg.StaticFS))
		r.Handle("/static/*", http.StripPrefix("/static/", fileServer))
	}

	return &Router{r}
}
