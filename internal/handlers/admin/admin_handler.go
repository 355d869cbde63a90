package admin

import (
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/evn/grubana/internal/pkg/response"
	"github.com/evn/grubana/internal/services/report"
	sessionService "github.com/evn/grubana/internal/services/session"
	"github.com/evn/grubana/internal/services/sweep"
	truckService "github.com/evn/grubana/internal/services/trucks"
)

// ListTrucksHandler returns every truck, hidden ones included.
func ListTrucksHandler(trucks *truckService.Service, now func() time.Time) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		views, err := trucks.All(r.Context(), now())
		if err != nil {
			response.RespondWithError(w, http.StatusInternalServerError, "Failed to load trucks")
			return
		}
		response.RespondWithJSON(w, http.StatusOK, views)
	}
}

// SweepHandler runs one expiry sweep. It serves both the admin button and the cron endpoint.
func SweepHandler(sweeper *sweep.Sweeper, now func() time.Time) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		res, err := sweeper.Run(r.Context(), now())
		if err != nil {
			response.RespondWithError(w, http.StatusInternalServerError, "Failed to run sweep")
			return
		}
		response.RespondWithJSON(w, http.StatusOK, map[string]interface{}{
			"message":      "Sweep completed",
			"result":       res,
			"processed_at": now().Format(time.RFC3339),
		})
	}
}

// ForceOfflineHandler ends a truck's live state on behalf of its owner.
func ForceOfflineHandler(sessions *sessionService.Manager, now func() time.Time) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ownerID := chi.URLParam(r, "ownerID")
		if err := sessions.GoOffline(r.Context(), ownerID, now()); err != nil {
			response.RespondWithError(w, http.StatusInternalServerError, "Failed to end session")
			return
		}
		response.RespondWithJSON(w, http.StatusOK, map[string]string{"message": "Truck is offline", "owner_id": ownerID})
	}
}

// ReportHandler streams the status export as xlsx.
func ReportHandler(trucks *truckService.Service, now func() time.Time, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		at := now()
		views, err := trucks.All(r.Context(), at)
		if err != nil {
			response.RespondWithError(w, http.StatusInternalServerError, "Failed to load trucks")
			return
		}

		f, err := report.Build(views, at)
		if err != nil {
			log.Error("❌ build report", zap.Error(err))
			response.RespondWithError(w, http.StatusInternalServerError, "Failed to build report")
			return
		}
		defer f.Close()

		w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=trucks-%s.xlsx", at.Format("20060102-1504")))
		if _, err := f.WriteTo(w); err != nil {
			log.Warn("⚠️ report write interrupted", zap.Error(err))
		}
	}
}
