package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/isdelr/realty-be/internal/api/handlers"
	"github.com/isdelr/realty-be/internal/auth"
	"github.com/isdelr/realty-be/internal/config"
	"github.com/isdelr/realty-be/internal/metrics"
	"github.com/isdelr/realty-be/internal/services"
	"github.com/isdelr/realty-be/internal/websocket"
)

// Deps holds everything the router hands to its handlers.
type Deps struct {
	Config      config.Config
	Codec       *auth.Codec
	Revocations auth.RevocationStore
	Users       services.UserServiceProvider
	Info        services.InfoServiceProvider
	Properties  services.PropertyServiceProvider
	Events      services.EventServiceProvider
	DB          handlers.Pinger
	HostStats   handlers.HostStatsSource
	Hub         *websocket.Hub
	Metrics     *metrics.Metrics
}

// NewRouter creates and configures a new Chi router.
func NewRouter(d Deps) *chi.Mux {
	r := chi.NewRouter()

	// Basic middleware stack
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(RequestLogger)
	r.Use(middleware.Recoverer)
	r.Use(d.Metrics.Middleware)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   d.Config.Server.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Initialize handlers
	var publisher handlers.ListingPublisher
	if d.Hub != nil {
		publisher = d.Hub
	}
	authHandler := handlers.NewAuthHandler(d.Users, d.Info, d.Events, d.Codec, d.Revocations, d.Metrics)
	propertyHandler := handlers.NewPropertyHandler(d.Properties, d.Events, publisher, d.Metrics)
	infoHandler := handlers.NewInfoHandler(d.Info, d.Events)
	eventHandler := handlers.NewEventHandler(d.Events)
	healthHandler := handlers.NewHealthHandler(d.DB, d.HostStats)

	gate := auth.Gate(d.Codec, d.Revocations)
	limiter := NewRateLimiter(d.Config.Auth.LoginRatePerMinute, d.Config.Auth.LoginRateBurst, d.Metrics)

	r.NotFound(handlers.NotFound)
	r.MethodNotAllowed(handlers.NotFound)

	r.Get("/health", healthHandler.Health)
	if d.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", d.Metrics.Handler())
	}
	if d.Hub != nil {
		wsHandler := handlers.NewWebSocketHandler(d.Hub, d.Config.Server.AllowedOrigins)
		r.Get("/ws/listings", wsHandler.Serve)
	}

	// Account endpoints
	r.Group(func(r chi.Router) {
		r.Use(limiter.Middleware)
		r.Post("/signup", authHandler.Signup)
		r.Post("/login", authHandler.Login)
	})
	r.Group(func(r chi.Router) {
		r.Use(gate)
		r.Post("/logout", authHandler.Logout)
		r.Get("/me", authHandler.GetMe)
	})

	r.Route("/property", func(r chi.Router) {
		r.Get("/getPropertiesByPage", propertyHandler.GetPropertiesByPage)
		r.Get("/getPropertiesByUserId", propertyHandler.GetPropertiesByUserID)
		r.Get("/getProperty/{propertyId}", propertyHandler.GetProperty)
		r.Get("/getAllImagesForProperty", propertyHandler.GetAllImagesForProperty)

		r.Group(func(r chi.Router) {
			r.Use(gate)
			r.Post("/addProperty", propertyHandler.AddProperty)
			r.Put("/editPropertyInformation/{propertyId}", propertyHandler.EditPropertyInformation)
			r.Delete("/delete/{propertyId}", propertyHandler.Delete)
		})
	})

	r.Route("/info", func(r chi.Router) {
		r.Get("/getContactInfoForProperty", infoHandler.GetContactInfoForProperty)

		r.Group(func(r chi.Router) {
			r.Use(gate)
			r.Get("/getUserInfo", infoHandler.GetUserInfo)
			r.Put("/updateUserInfo", infoHandler.UpdateUserInfo)
			r.Get("/getProfilePicture", infoHandler.GetProfilePicture)
			r.Put("/updateProfilePicture", infoHandler.UpdateProfilePicture)
			r.Get("/getRecentActivity", eventHandler.GetRecent)
		})
	})

	return r
}
