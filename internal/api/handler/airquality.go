package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/airsight/airsight/internal/airquality"
	"github.com/airsight/airsight/internal/api/models"
	"github.com/airsight/airsight/internal/api/response"
)

// AirQualityHandler handles air quality endpoints.
type AirQualityHandler struct {
	service *airquality.Service
}

// NewAirQualityHandler creates a new AirQualityHandler.
func NewAirQualityHandler(service *airquality.Service) *AirQualityHandler {
	return &AirQualityHandler{service: service}
}

// Current handles GET /v1/air-quality/current?lat=&lng=.
func (h *AirQualityHandler) Current(w http.ResponseWriter, r *http.Request) {
	lat, lng, ok := coordinates(w, r)
	if !ok {
		return
	}

	n, err := h.service.Current(r.Context(), lat, lng)
	switch {
	case errors.Is(err, airquality.ErrInvalidCoordinates):
		response.BadRequest(w, r, "coordinates out of range", nil)
	case err != nil:
		response.ServiceUnavailable(w, r, "air quality provider unavailable")
	default:
		response.JSON(w, r, http.StatusOK, n)
	}
}

type historyResponse struct {
	Hours []airquality.HourlyRecord `json:"hours"`
}

// History handles GET /v1/air-quality/history?lat=&lng=&hours=.
func (h *AirQualityHandler) History(w http.ResponseWriter, r *http.Request) {
	lat, lng, ok := coordinates(w, r)
	if !ok {
		return
	}

	hours := 0
	if raw := r.URL.Query().Get("hours"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			response.BadRequest(w, r, "hours must be an integer", []models.FieldError{
				{Field: "hours", Message: "must be an integer", Code: "invalid"},
			})
			return
		}
		hours = parsed
	}

	records, err := h.service.History(r.Context(), lat, lng, hours)
	switch {
	case errors.Is(err, airquality.ErrInvalidCoordinates):
		response.BadRequest(w, r, "coordinates out of range", nil)
	case err != nil:
		response.ServiceUnavailable(w, r, "air quality provider unavailable")
	default:
		if records == nil {
			records = []airquality.HourlyRecord{}
		}
		response.JSON(w, r, http.StatusOK, historyResponse{Hours: records})
	}
}

type weeklyResponse struct {
	Days []airquality.DailyAverage `json:"days"`
}

// Weekly handles GET /v1/air-quality/weekly?lat=&lng= - per-day AQI averages
// over the last week.
func (h *AirQualityHandler) Weekly(w http.ResponseWriter, r *http.Request) {
	lat, lng, ok := coordinates(w, r)
	if !ok {
		return
	}

	days, err := h.service.WeeklyAverages(r.Context(), lat, lng)
	if err != nil {
		response.ServiceUnavailable(w, r, "air quality provider unavailable")
		return
	}
	if days == nil {
		days = []airquality.DailyAverage{}
	}
	response.JSON(w, r, http.StatusOK, weeklyResponse{Days: days})
}

// coordinates parses and validates the lat/lng query parameters, writing a
// problem response when they are missing or malformed.
func coordinates(w http.ResponseWriter, r *http.Request) (float64, float64, bool) {
	latRaw := r.URL.Query().Get("lat")
	lngRaw := r.URL.Query().Get("lng")
	if latRaw == "" || lngRaw == "" {
		response.BadRequest(w, r, "lat and lng query parameters are required", []models.FieldError{
			{Field: "lat", Message: "must be provided", Code: "required"},
			{Field: "lng", Message: "must be provided", Code: "required"},
		})
		return 0, 0, false
	}

	lat, err := strconv.ParseFloat(latRaw, 64)
	if err != nil {
		response.BadRequest(w, r, "lat must be a number", []models.FieldError{
			{Field: "lat", Message: "must be a number", Code: "invalid"},
		})
		return 0, 0, false
	}
	lng, err := strconv.ParseFloat(lngRaw, 64)
	if err != nil {
		response.BadRequest(w, r, "lng must be a number", []models.FieldError{
			{Field: "lng", Message: "must be a number", Code: "invalid"},
		})
		return 0, 0, false
	}

	return lat, lng, true
}
