package api

import (
	"net/http"
	"time"

	"notekeeper/internal/api/handler"
	"notekeeper/internal/api/middleware"
	"notekeeper/internal/app/service"
	"notekeeper/internal/common/security"
	"notekeeper/internal/domain/model"
	"notekeeper/internal/platform/payments"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// RouterConfig carries the HTTP-layer settings taken from config.Config.
type RouterConfig struct {
	Tokens         *security.TokenManager
	RequireCookie  bool
	Cookie         handler.CookieOptions
	AllowedOrigins []string
	RateLimit      int
	RateWindow     time.Duration
	MaxUploadBytes int64
	RequestTimeout time.Duration
	// TrustProxyHeaders takes the client address from X-Forwarded-For /
	// X-Real-IP. Enable only behind a proxy that overwrites them.
	TrustProxyHeaders bool
}

type Services struct {
	Auth    *service.AuthService
	OTP     *service.OTPService
	Notes   *service.NoteService
	MoonPay *payments.MoonPay
}

func NewRouter(cfg RouterConfig, svc Services, rdb *redis.Client, log *zap.Logger) http.Handler {
	r := chi.NewRouter()

	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = 60 * time.Second
	}

	// Base Middlewares
	r.Use(chiMiddleware.RequestID)
	if cfg.TrustProxyHeaders {
		r.Use(chiMiddleware.RealIP)
	}
	r.Use(middleware.RequestLogger(log))
	r.Use(chiMiddleware.Recoverer)
	r.Use(chiMiddleware.Timeout(cfg.RequestTimeout))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		ExposedHeaders:   []string{"Retry-After"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.Write([]byte("Welcome to the NoteKeeper API"))
	})
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("OK"))
	})

	authenticate := middleware.Authenticator(cfg.Tokens, cfg.RequireCookie)

	// Public account routes
	limiter := middleware.RateLimit(rdb, cfg.RateLimit, cfg.RateWindow, "rl:user", log)
	r.Route("/user", func(u chi.Router) {
		handler.NewAuthHandler(svc.Auth, cfg.Cookie).RegisterRoutes(u, limiter)
	})

	// Authenticated account and two-factor routes
	r.Route("/auth", func(a chi.Router) {
		a.Use(authenticate)
		handler.NewUserHandler(svc.Auth).RegisterRoutes(a)
		a.Route("/otp", handler.NewOTPHandler(svc.OTP).RegisterRoutes)
	})

	r.Route("/admin/dashboard", func(ad chi.Router) {
		ad.Use(authenticate)
		ad.Use(middleware.RequireRoles(model.RoleAdmin))
		handler.NewAdminHandler(svc.Auth, svc.Notes).RegisterRoutes(ad)
	})

	r.Route("/secure/api", func(s chi.Router) {
		s.Use(authenticate)
		handler.NewNoteHandler(svc.Notes, cfg.MaxUploadBytes).RegisterRoutes(s)
	})

	paymentHandler := handler.NewPaymentHandler(svc.MoonPay)
	r.Route("/crypto", func(c chi.Router) {
		c.Use(authenticate)
		paymentHandler.RegisterCryptoRoutes(c)
	})
	r.Route("/transaction", paymentHandler.RegisterTransactionRoutes)

	return r
}
