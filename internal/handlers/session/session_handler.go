// handlers/session/session_handler.go

package session

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/evn/grubana/internal/middleware"
	"github.com/evn/grubana/internal/models"
	"github.com/evn/grubana/internal/pkg/response"
	"github.com/evn/grubana/internal/repositories"
	sessionService "github.com/evn/grubana/internal/services/session"
	truckService "github.com/evn/grubana/internal/services/trucks"
)

type SessionHandler struct {
	sessions *sessionService.Manager
	trucks   *truckService.Service
	now      func() time.Time
}

func NewSessionHandler(sessions *sessionService.Manager, trucks *truckService.Service, now func() time.Time) *SessionHandler {
	return &SessionHandler{sessions: sessions, trucks: trucks, now: now}
}

type locationRequest struct {
	Lat *float64 `json:"lat"`
	Lng *float64 `json:"lng"`
}

type visibilityRequest struct {
	Visible *bool `json:"visible"`
}

type writeResult struct {
	Persisted  bool  `json:"persisted"`
	NewSession *bool `json:"new_session,omitempty"`
}

// GetSession возвращает запись и текущий статус грузовика владельца.
func (h *SessionHandler) GetSession(w http.ResponseWriter, r *http.Request) {
	ownerID, _ := middleware.GetOwnerIDFromContext(r.Context())

	view, err := h.trucks.Status(r.Context(), ownerID, h.now())
	if errors.Is(err, repositories.ErrNotFound) {
		response.RespondWithError(w, http.StatusNotFound, "No session yet")
		return
	}
	if err != nil {
		response.RespondWithError(w, http.StatusInternalServerError, "Failed to load session")
		return
	}
	response.RespondWithJSON(w, http.StatusOK, view)
}

// GoLive never fails the owner's flow on a storage error: it answers 202 with persisted=false.
func (h *SessionHandler) GoLive(w http.ResponseWriter, r *http.Request) {
	ownerID, _ := middleware.GetOwnerIDFromContext(r.Context())
	coords, ok := decodeCoordinates(w, r)
	if !ok {
		return
	}

	started, err := h.sessions.GoLive(r.Context(), ownerID, h.now(), coords)
	if err != nil {
		response.RespondWithJSON(w, http.StatusAccepted, writeResult{Persisted: false})
		return
	}
	response.RespondWithJSON(w, http.StatusOK, writeResult{Persisted: true, NewSession: &started})
}

func (h *SessionHandler) Heartbeat(w http.ResponseWriter, r *http.Request) {
	ownerID, _ := middleware.GetOwnerIDFromContext(r.Context())
	coords, ok := decodeCoordinates(w, r)
	if !ok {
		return
	}

	err := h.sessions.Heartbeat(r.Context(), ownerID, h.now(), coords)
	switch {
	case errors.Is(err, sessionService.ErrUnknownOwner):
		response.RespondWithError(w, http.StatusConflict, "Go live before sending heartbeats")
	case err != nil:
		response.RespondWithJSON(w, http.StatusAccepted, writeResult{Persisted: false})
	default:
		response.RespondWithJSON(w, http.StatusOK, writeResult{Persisted: true})
	}
}

// GoOffline is called on logout; logout must always complete.
func (h *SessionHandler) GoOffline(w http.ResponseWriter, r *http.Request) {
	ownerID, _ := middleware.GetOwnerIDFromContext(r.Context())

	if err := h.sessions.GoOffline(r.Context(), ownerID, h.now()); err != nil {
		response.RespondWithJSON(w, http.StatusAccepted, writeResult{Persisted: false})
		return
	}
	response.RespondWithJSON(w, http.StatusOK, writeResult{Persisted: true})
}

func (h *SessionHandler) SetVisibility(w http.ResponseWriter, r *http.Request) {
	ownerID, _ := middleware.GetOwnerIDFromContext(r.Context())

	var req visibilityRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Visible == nil {
		response.RespondWithError(w, http.StatusBadRequest, "Body must be {\"visible\": true|false}")
		return
	}

	if err := h.sessions.SetVisible(r.Context(), ownerID, *req.Visible, h.now()); err != nil {
		response.RespondWithError(w, http.StatusInternalServerError, "Failed to save visibility")
		return
	}
	response.RespondWithJSON(w, http.StatusOK, map[string]bool{"visible": *req.Visible})
}

func (h *SessionHandler) GetBusinessHours(w http.ResponseWriter, r *http.Request) {
	ownerID, _ := middleware.GetOwnerIDFromContext(r.Context())

	hours, isDefault, err := h.trucks.BusinessHours(r.Context(), ownerID)
	if err != nil {
		response.RespondWithError(w, http.StatusInternalServerError, "Failed to load business hours")
		return
	}
	response.RespondWithJSON(w, http.StatusOK, map[string]interface{}{
		"business_hours": hours,
		"is_default":     isDefault,
	})
}

func (h *SessionHandler) SetBusinessHours(w http.ResponseWriter, r *http.Request) {
	ownerID, _ := middleware.GetOwnerIDFromContext(r.Context())

	var hours models.BusinessHours
	if err := json.NewDecoder(r.Body).Decode(&hours); err != nil {
		response.RespondWithError(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	err := h.trucks.SetBusinessHours(r.Context(), ownerID, hours, h.now())
	if errors.Is(err, truckService.ErrInvalidHours) {
		response.RespondWithError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err != nil {
		response.RespondWithError(w, http.StatusInternalServerError, "Failed to save business hours")
		return
	}
	response.RespondWithJSON(w, http.StatusOK, map[string]interface{}{"business_hours": hours.Normalize()})
}

// decodeCoordinates reads an optional {"lat","lng"} body. An empty body means no position.
func decodeCoordinates(w http.ResponseWriter, r *http.Request) (*models.Coordinates, bool) {
	var req locationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		response.RespondWithError(w, http.StatusBadRequest, "Invalid JSON")
		return nil, false
	}
	if req.Lat == nil || req.Lng == nil {
		return nil, true
	}
	if *req.Lat < -90 || *req.Lat > 90 || *req.Lng < -180 || *req.Lng > 180 {
		response.RespondWithError(w, http.StatusBadRequest, "Coordinates out of range")
		return nil, false
	}
	return &models.Coordinates{Lat: *req.Lat, Lng: *req.Lng}, true
}
