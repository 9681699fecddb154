package api

import (
	"net/http"
	"time"

	"codebattle/internal/api/handler"
	"codebattle/internal/api/middleware"
	"codebattle/internal/app/service"
	"codebattle/internal/platform/config"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"golang.org/x/time/rate"
)

type Services struct {
	Auth          *service.AuthService
	Contests      *service.ContestService
	Registrations *service.RegistrationService
	Exports       *service.ExportService
	Users         *service.UserService
}

func NewRouter(cfg *config.Config, svc Services) http.Handler {
	r := chi.NewRouter()

	// Base Middlewares
	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(middleware.RequestLogger)
	r.Use(chiMiddleware.Recoverer)
	r.Use(chiMiddleware.Timeout(60 * time.Second))

	// Resolves the session cookie (or bearer token) into a user for every route below.
	auth := middleware.NewAuth(svc.Auth, cfg.SessionCookieName)
	r.Use(auth.Session)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("OK"))
	})

	cookie := handler.SessionCookie{
		Name:   cfg.SessionCookieName,
		Secure: cfg.IsProduction(),
		MaxAge: cfg.SessionMaxAge,
	}
	throttle := middleware.RateLimit(middleware.RateLimiterConfig{
		Rate:      rate.Limit(float64(cfg.LoginRatePerMinute) / 60),
		Burst:     cfg.LoginRateBurst,
		ExpiresIn: 10 * time.Minute,
	})
	authHandler := handler.NewAuthHandler(svc.Auth, cookie, throttle)
	contestHandler := handler.NewContestHandler(svc.Contests, svc.Registrations)
	registrationHandler := handler.NewRegistrationHandler(svc.Registrations)
	exportHandler := handler.NewExportHandler(svc.Exports)
	userHandler := handler.NewUserHandler(svc.Users)

	r.Route("/api/v1", func(v1 chi.Router) {
		v1.Route("/auth", authHandler.RegisterRoutes)

		v1.Route("/contests", func(cr chi.Router) {
			contestHandler.RegisterRoutes(cr)
			cr.Route("/{contestID}/registrations", registrationHandler.RegisterRoutes)
		})

		v1.Route("/me", userHandler.RegisterProfileRoutes)
		v1.Route("/admin", userHandler.RegisterAdminRoutes)
	})

	// Browser-facing routes: gates redirect instead of answering with JSON.
	r.Route("/exports", exportHandler.RegisterRoutes)
	userHandler.RegisterPageRoutes(r)
	r.Post("/logout", authHandler.LogoutRedirect)

	return r
}
