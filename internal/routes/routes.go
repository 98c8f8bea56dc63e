package routes

import (
	"net/http"

	"github.com/tisu1989/auth-project/internal/app"
	"github.com/tisu1989/auth-project/internal/handler"
	"github.com/tisu1989/auth-project/internal/middleware"
)

func SetupRoutes(app *app.App) http.Handler {
	// Handlers
	home := handler.NewHomeHandler()
	auth := handler.NewAuthHandler(app.CredentialService, app.Cfg.IsProduction())
	posts := handler.NewPostHandler(app.PostService)

	rateLimit := middleware.RateLimit(app.AuthRateLimiter)

	mux := http.NewServeMux()

	// ============================================================================
	// PUBLIC ROUTES
	// ============================================================================

	mux.HandleFunc("GET /{$}", home.Home)

	// Auth (rate limited)
	mux.HandleFunc("POST /api/auth/signup", rateLimit(auth.Signup))
	mux.HandleFunc("POST /api/auth/signin", rateLimit(auth.Signin))
	mux.HandleFunc("POST /api/auth/signout", auth.Signout)
	mux.HandleFunc("PATCH /api/auth/send-verification-code", rateLimit(auth.SendVerificationCode))
	mux.HandleFunc("PATCH /api/auth/verify-verification-code", rateLimit(auth.VerifyVerificationCode))
	mux.HandleFunc("PATCH /api/auth/send-forgot-password-code", rateLimit(auth.SendForgotPasswordCode))
	mux.HandleFunc("PATCH /api/auth/verify-forgot-password-code", rateLimit(auth.VerifyForgotPasswordCode))

	// Posts
	mux.HandleFunc("GET /api/posts/all-posts", posts.List)

	// ============================================================================
	// AUTHENTICATED ROUTES
	// ============================================================================

	mux.HandleFunc("PATCH /api/auth/change-password", rateLimit(middleware.RequireAuth(auth.ChangePassword)))
	mux.HandleFunc("POST /api/posts/create-post", middleware.RequireAuth(posts.Create))

	// Catch-all
	mux.HandleFunc("/", home.NotFound)

	return middleware.Chain(mux,
		middleware.RequestLogging,
		middleware.Authenticate(app.Tokens),
	)
}
