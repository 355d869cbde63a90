package trucks

import (
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/evn/grubana/internal/models"
	"github.com/evn/grubana/internal/pkg/response"
	"github.com/evn/grubana/internal/repositories"
	truckService "github.com/evn/grubana/internal/services/trucks"
)

type TruckHandler struct {
	service *truckService.Service
	now     func() time.Time
}

func NewTruckHandler(service *truckService.Service, now func() time.Time) *TruckHandler {
	return &TruckHandler{service: service, now: now}
}

// ListMap returns the markers for the customer map.
func (h *TruckHandler) ListMap(w http.ResponseWriter, r *http.Request) {
	views, err := h.service.Map(r.Context(), h.now())
	if err != nil {
		response.RespondWithError(w, http.StatusInternalServerError, "Failed to load trucks")
		return
	}
	if views == nil {
		views = []models.TruckView{}
	}
	response.RespondWithJSON(w, http.StatusOK, views)
}

func (h *TruckHandler) GetStatus(w http.ResponseWriter, r *http.Request) {
	ownerID := chi.URLParam(r, "ownerID")

	view, err := h.service.Status(r.Context(), ownerID, h.now())
	if errors.Is(err, repositories.ErrNotFound) {
		response.RespondWithError(w, http.StatusNotFound, "Truck not found")
		return
	}
	if err != nil {
		response.RespondWithError(w, http.StatusInternalServerError, "Failed to load truck")
		return
	}
	response.RespondWithJSON(w, http.StatusOK, view)
}

// CheckOrderable is called by the checkout flow before accepting a pre-order.
func (h *TruckHandler) CheckOrderable(w http.ResponseWriter, r *http.Request) {
	ownerID := chi.URLParam(r, "ownerID")

	err := h.service.CheckOrderable(r.Context(), ownerID, h.now())
	switch {
	case errors.Is(err, truckService.ErrNotOrderable):
		response.RespondWithJSON(w, http.StatusOK, map[string]interface{}{"orderable": false, "reason": err.Error()})
	case err != nil:
		response.RespondWithError(w, http.StatusInternalServerError, "Failed to check truck")
	default:
		response.RespondWithJSON(w, http.StatusOK, map[string]interface{}{"orderable": true})
	}
}
