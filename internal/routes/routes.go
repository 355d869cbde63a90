package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/jwtauth/v5"

	"github.com/evn/grubana/internal/app"
	adminHandlers "github.com/evn/grubana/internal/handlers/admin"
	realtimeHandlers "github.com/evn/grubana/internal/handlers/realtime"
	sessionHandlers "github.com/evn/grubana/internal/handlers/session"
	truckHandlers "github.com/evn/grubana/internal/handlers/trucks"
	"github.com/evn/grubana/internal/middleware"
	"github.com/evn/grubana/internal/pkg/response"
)

// Setup инициализирует и возвращает настроенный маршрутизатор.
func Setup(a *app.App) *chi.Mux {
	cfg := a.Config
	now := cfg.Now

	jwtAuth := jwtauth.New("HS256", []byte(cfg.JwtSecret), nil)

	truckHandler := truckHandlers.NewTruckHandler(a.Trucks, now)
	sessionHandler := sessionHandlers.NewSessionHandler(a.Sessions, a.Trucks, now)
	mapFeedHandler := realtimeHandlers.NewMapFeedHandler(a.Hub, a.Log)

	router := chi.NewRouter()
	router.Use(chiMiddleware.RequestID)
	router.Use(chiMiddleware.Logger)
	router.Use(chiMiddleware.Recoverer)
	router.Use(jwtauth.Verifier(jwtAuth))
	router.Use(middleware.AddOwnerIDToContext())

	// Public routes
	router.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		response.RespondWithJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	router.Get("/api/trucks", truckHandler.ListMap)
	router.Get("/api/trucks/{ownerID}/status", truckHandler.GetStatus)
	router.Get("/api/trucks/{ownerID}/orderable", truckHandler.CheckOrderable)
	router.Get("/ws/map", mapFeedHandler.ServeWS)
	router.With(middleware.SweepToken(cfg.SweepTokenHash)).
		Post("/api/cron/sweep", adminHandlers.SweepHandler(a.Sweeper, now))

	// Authenticated owner routes
	router.Group(func(r chi.Router) {
		r.Use(jwtauth.Authenticator(jwtAuth))
		r.Use(middleware.RequireOwner)

		r.Get("/api/session", sessionHandler.GetSession)
		r.Post("/api/session/live", sessionHandler.GoLive)
		r.Post("/api/session/heartbeat", sessionHandler.Heartbeat)
		r.Post("/api/session/offline", sessionHandler.GoOffline)
		r.Put("/api/session/visibility", sessionHandler.SetVisibility)
		r.Get("/api/profile/business-hours", sessionHandler.GetBusinessHours)
		r.Put("/api/profile/business-hours", sessionHandler.SetBusinessHours)

		// Superadmin routes
		r.Group(func(r chi.Router) {
			r.Use(middleware.SuperadminOnly)

			r.Get("/api/admin/trucks", adminHandlers.ListTrucksHandler(a.Trucks, now))
			r.Post("/api/admin/trucks/{ownerID}/offline", adminHandlers.ForceOfflineHandler(a.Sessions, now))
			r.Post("/api/admin/sweep", adminHandlers.SweepHandler(a.Sweeper, now))
			r.Get("/api/admin/report.xlsx", adminHandlers.ReportHandler(a.Trucks, now, a.Log))
		})
	})

	return router
}
