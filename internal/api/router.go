package api

import (
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/isdelr/recipehub-be/internal/api/handlers"
	"github.com/isdelr/recipehub-be/internal/auth"
	"github.com/isdelr/recipehub-be/internal/metrics"
	"github.com/isdelr/recipehub-be/internal/policy"
	"github.com/isdelr/recipehub-be/internal/services"
	"github.com/isdelr/recipehub-be/internal/websocket"
)

// Dependencies bundles everything the router wires into handlers.
type Dependencies struct {
	Users   services.UserServiceProvider
	Recipes services.RecipeServiceProvider
	Ratings services.RatingServiceProvider
	Events  services.EventServiceProvider
	Images  services.ImageServiceProvider

	JWT    *auth.JWTManager
	Policy *policy.Policy
	Hub    *websocket.Hub
	DB     handlers.Pinger

	AllowedOrigins []string
	AuthRateLimit  float64
	AuthRateBurst  int
}

// NewRouter creates and configures a new Chi router.
func NewRouter(deps Dependencies) *chi.Mux {
	r := chi.NewRouter()

	// Basic middleware stack
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(metrics.InstrumentHandler)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   deps.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Initialize handlers
	userHandler := handlers.NewUserHandler(deps.Users)
	recipeHandler := handlers.NewRecipeHandler(deps.Recipes, deps.Images)
	ratingHandler := handlers.NewRatingHandler(deps.Ratings)
	eventHandler := handlers.NewEventHandler(deps.Events)
	wsHandler := handlers.NewWebSocketHandler(deps.Hub, deps.Policy, deps.Recipes, deps.AllowedOrigins)
	healthHandler := handlers.NewHealthHandler(deps.DB)
	limiter := NewRateLimiter(deps.AuthRateLimit, deps.AuthRateBurst)

	r.Get("/healthz", healthHandler.Check)
	r.Handle("/metrics", metrics.Handler())

	// Anonymous callers may only register and obtain tokens.
	r.Route("/auth", func(r chi.Router) {
		r.With(limiter.Handler).Post("/register", userHandler.Register)
		r.With(limiter.Handler).Post("/login", userHandler.Login)
		r.With(limiter.Handler).Post("/refresh", userHandler.Refresh)
		r.With(auth.Authenticate(deps.JWT, false)).Get("/me", userHandler.GetMe)
	})

	// Everything else resolves the bearer token first and leaves the
	// decision to the access policy inside the services.
	r.Group(func(r chi.Router) {
		r.Use(auth.Authenticate(deps.JWT, false))

		r.Route("/recipes", func(r chi.Router) {
			r.Get("/", recipeHandler.GetAll)
			r.Post("/", recipeHandler.Create)
			r.Post("/images", recipeHandler.RequestImageUpload)
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", recipeHandler.Get)
				r.Put("/", recipeHandler.Update)
				r.Patch("/", recipeHandler.Update)
				r.Delete("/", recipeHandler.Delete)
			})
		})

		r.Route("/ratings", func(r chi.Router) {
			r.Get("/", ratingHandler.GetAll)
			r.Post("/", ratingHandler.Create)
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", ratingHandler.Get)
				r.Put("/", ratingHandler.Update)
				r.Patch("/", ratingHandler.Update)
				r.Delete("/", ratingHandler.Delete)
			})
		})

		r.Get("/events", eventHandler.GetRecent)
	})

	// Browsers cannot set headers on websocket handshakes, so the token may
	// also arrive as ?token=.
	r.Group(func(r chi.Router) {
		r.Use(auth.Authenticate(deps.JWT, true))
		r.Get("/ws", wsHandler.Serve)
		r.Get("/ws/recipes/{id}", wsHandler.Serve)
	})

	return r
}
