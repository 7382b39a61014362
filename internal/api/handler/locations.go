package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/airsight/airsight/internal/api/models"
	"github.com/airsight/airsight/internal/api/response"
	"github.com/airsight/airsight/internal/geocoding"
	"github.com/airsight/airsight/pkg/mercator"
)

// LocationsHandler handles geocoding endpoints.
type LocationsHandler struct {
	service *geocoding.Service
}

// NewLocationsHandler creates a new LocationsHandler.
func NewLocationsHandler(service *geocoding.Service) *LocationsHandler {
	return &LocationsHandler{service: service}
}

type searchResponse struct {
	Results []geocoding.Location `json:"results"`
}

// Search handles GET /v1/locations?q= - forward geocoding.
func (h *LocationsHandler) Search(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("q")
	if query == "" {
		response.BadRequest(w, r, "query parameter q is required", []models.FieldError{
			{Field: "q", Message: "must not be empty", Code: "required"},
		})
		return
	}

	results, err := h.service.Search(r.Context(), query)
	if err != nil {
		response.ServiceUnavailable(w, r, "geocoding provider unavailable")
		return
	}
	if results == nil {
		results = []geocoding.Location{}
	}

	response.JSON(w, r, http.StatusOK, searchResponse{Results: results})
}

type reverseRequest struct {
	Lat *float64 `json:"lat"`
	Lng *float64 `json:"lng"`
}

// Reverse handles POST /v1/locations:reverse - reverse geocoding.
func (h *LocationsHandler) Reverse(w http.ResponseWriter, r *http.Request) {
	var req reverseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, r, "invalid request body", nil)
		return
	}
	if req.Lat == nil || req.Lng == nil {
		response.BadRequest(w, r, "lat and lng are required", []models.FieldError{
			{Field: "lat", Message: "must be provided", Code: "required"},
			{Field: "lng", Message: "must be provided", Code: "required"},
		})
		return
	}

	location, err := h.service.ReverseGeocode(r.Context(), mercator.Point{Lat: *req.Lat, Lng: *req.Lng})
	switch {
	case errors.Is(err, geocoding.ErrInvalidCoordinates):
		response.BadRequest(w, r, "coordinates out of range", nil)
	case errors.Is(err, geocoding.ErrNoResult):
		response.NotFound(w, r, "no location found for coordinates")
	case err != nil:
		response.ServiceUnavailable(w, r, "geocoding provider unavailable")
	default:
		response.JSON(w, r, http.StatusOK, location)
	}
}
