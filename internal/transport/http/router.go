package http

import (
	"net/http"

	"github.com/fyiona/accounts/internal/application/auth"
	"github.com/fyiona/accounts/internal/application/lifecycle"
	"github.com/fyiona/accounts/internal/application/token"
	"github.com/fyiona/accounts/internal/application/user"
	"github.com/fyiona/accounts/internal/config"
	"github.com/fyiona/accounts/internal/domain"
	"github.com/fyiona/accounts/internal/infrastructure/dynamo"
	jwtinfra "github.com/fyiona/accounts/internal/infrastructure/jwt"
	"github.com/fyiona/accounts/internal/infrastructure/smtp"
	"github.com/fyiona/accounts/internal/infrastructure/sns"
	"github.com/fyiona/accounts/internal/transport/http/handler"
	appmiddleware "github.com/fyiona/accounts/internal/transport/http/middleware"
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"golang.org/x/time/rate"
)

// Deps holds all infrastructure dependencies for the router.
type Deps struct {
	UserRepo        *dynamo.UserRepo
	ProfileRepo     *dynamo.ProfileRepo
	AccessTokenRepo *dynamo.AccessTokenRepo
	Mailer          smtp.Mailer
	SMSSender       sns.SMSSender
	Codec           *jwtinfra.Codec
}

// NewRouter builds and returns the application router.
func NewRouter(cfg *config.Config, deps *Deps) http.Handler {
	r := chi.NewRouter()
	r.Use(chimiddleware.Logger)
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.RequestID)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PATCH", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	// 5 requests/second, burst of 10 — applied to sensitive public endpoints.
	sensitiveRL := appmiddleware.NewRateLimiter(rate.Limit(5), 10)

	tokenSvc := token.NewService(deps.AccessTokenRepo)

	bus := lifecycle.NewBus()
	lifecycle.NewHooks(deps.ProfileRepo, tokenSvc, deps.Mailer, cfg.DomainName).Register(bus)

	userSvc := user.NewService(user.ServiceDeps{
		UserRepo:    deps.UserRepo,
		ProfileRepo: deps.ProfileRepo,
		Bus:         bus,
	})
	authSvc := auth.NewService(auth.ServiceDeps{
		UserRepo:    deps.UserRepo,
		ProfileRepo: deps.ProfileRepo,
		Tokens:      tokenSvc,
		OTPRepo:     deps.AccessTokenRepo,
		Mailer:      deps.Mailer,
		SMSSender:   deps.SMSSender,
		Codec:       deps.Codec,
		Bus:         bus,
		DomainName:  cfg.DomainName,
	})

	authMw := appmiddleware.Auth(appmiddleware.NewAuthenticator(deps.Codec, deps.UserRepo))

	healthH := handler.NewHealthHandler()
	accountH := handler.NewAccountHandler(userSvc, authSvc)
	userH := handler.NewUserHandler(userSvc)
	pwH := handler.NewPasswordResetHandler(authSvc)
	emailH := handler.NewEmailUpdateHandler(authSvc)
	phoneH := handler.NewPhoneConfirmHandler(authSvc)

	r.Route("/v1", func(r chi.Router) {
		// ── Public routes (no auth) ──────────────────────────────────────────
		r.Get("/health-check/{action}", healthH.Ping)
		r.Post("/health-check/{action}", healthH.Ping)
		r.With(sensitiveRL.Limit).Post("/accounts/registration", accountH.Register)
		r.With(sensitiveRL.Limit).Post("/accounts/login", accountH.Login)
		r.Get("/accounts/registration/confirmation/{token}", accountH.ConfirmRegistration)
		r.With(sensitiveRL.Limit).Post("/accounts/password/reset", pwH.Request)
		r.Get("/accounts/password/reset/confirmation", pwH.Preview)
		r.Patch("/accounts/password/reset/confirmation", pwH.Complete)
		// The one-time token in the link is the credential for these two.
		r.Get("/accounts/delete", accountH.ConfirmDeletion)
		r.Get("/users/email/confirmation/{token}", emailH.Confirm)

		// ── Authenticated routes ─────────────────────────────────────────────
		r.Group(func(r chi.Router) {
			r.Use(authMw)
			r.Use(appmiddleware.RequireUser)

			r.Get("/users/me", userH.Me)
			r.Patch("/users/update", userH.Update)
			r.Get("/users/search/by/email", userH.SearchByEmail)
			r.Get("/users/search/by/phone", userH.SearchByPhone)
			r.Post("/users/follow/{id}", userH.Follow)
			r.Patch("/users/password/update", userH.ChangePassword)
			r.Post("/users/email/update", emailH.Request)
			r.Post("/users/phone/{action}", phoneH.Action)
			r.Delete("/accounts/delete", accountH.RequestDeletion)

			// Admin-only routes
			r.Group(func(r chi.Router) {
				r.Use(appmiddleware.RequireRole(domain.RoleAdmin))

				r.Get("/users", userH.List)
			})
		})
	})

	return r
}
