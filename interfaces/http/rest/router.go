package rest

import (
	"net/http"
	"strings"

	"familytree/infrastructure/di"
	"familytree/interfaces/http/rest/handlers"
	"familytree/interfaces/http/rest/middleware"
	v1 "familytree/interfaces/http/rest/v1"
	pkgerrors "familytree/pkg/errors"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// Version is reported by /health
const Version = "2.0.0"

// Router creates and configures the HTTP router
type Router struct {
	container *di.Container
	errors    *pkgerrors.ErrorHandler
}

// NewRouter creates a new router instance
func NewRouter(container *di.Container) *Router {
	return &Router{
		container: container,
		errors:    pkgerrors.NewErrorHandler(container.Logger, !container.Config.IsProduction()),
	}
}

// Setup configures all routes and middleware
func (rt *Router) Setup() http.Handler {
	c := rt.container
	router := chi.NewRouter()

	// Global middleware
	router.Use(chimiddleware.RequestID)
	router.Use(chimiddleware.RealIP)
	router.Use(middleware.Logger(c.Logger))
	router.Use(middleware.Metrics(c.Collector))
	router.Use(rt.errors.Middleware)
	router.Use(c.Tracer.Middleware)
	router.Use(versionMiddleware)

	if c.Config.EnableCORS {
		router.Use(cors.Handler(cors.Options{
			AllowedOrigins:   c.Config.AllowedOrigins,
			AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
			AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
			ExposedHeaders:   []string{"X-Request-ID", "Location"},
			AllowCredentials: true,
			MaxAge:           300,
		}))
	}

	health := handlers.NewHealthHandler(c, Version, c.Logger)
	router.Get("/health", health.Health)
	router.Get("/ready", health.Ready)
	router.Method(http.MethodGet, "/metrics", c.Collector.Handler())

	limiter := middleware.RateLimit(c.RateLimiter, c.Config.RateLimitRPS, rt.errors, c.Logger)
	authenticate := middleware.Authenticate(c.JWTValidator, rt.errors, c.Logger)

	router.Route("/api/v2", func(r chi.Router) {
		r.Use(authenticate)
		r.Use(limiter)

		r.Route("/persons", func(r chi.Router) {
			personHandler := handlers.NewPersonHandler(c.CommandBus, c.QueryBus, rt.errors, c.Logger)
			r.Post("/", personHandler.CreatePerson)
			r.Get("/", personHandler.ListPersons)
			r.Get("/{personID}", personHandler.GetPerson)
			r.Put("/{personID}", personHandler.UpdatePerson)
			r.Delete("/{personID}", personHandler.DeletePerson)
			r.Get("/{personID}/history", personHandler.GetPersonHistory)
		})

		r.Get("/tree", handlers.NewTreeHandler(c.QueryBus, rt.errors, c.Logger).GetTree)
	})

	// The member API keeps its original paths and envelope
	members := v1.NewRouter(c.CommandBus, c.QueryBus, c.Logger)
	router.With(authenticate, limiter).Mount(v1.BasePath, members)

	return router
}

// versionMiddleware adds API version headers to all responses
func versionMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasPrefix(r.URL.Path, "/api/v2") {
			w.Header().Set("X-API-Version", "v2")
		}
		w.Header().Set("X-API-Latest", "v2")
		next.ServeHTTP(w, r)
	})
}
