package handler

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/airsight/airsight/internal/api/models"
	"github.com/airsight/airsight/internal/api/response"
	"github.com/airsight/airsight/internal/tiles"
	"github.com/airsight/airsight/pkg/mercator"
)

const (
	// viewportTileSize matches the upstream tile raster.
	viewportTileSize = 256

	// defaultViewportZoom is the dashboard's global-view zoom level.
	defaultViewportZoom = 2

	// Default and maximum viewport dimensions in pixels. The cap bounds the
	// tile fan-out a single request can trigger.
	defaultViewportWidth  = 1024
	defaultViewportHeight = 768
	maxViewportDimension  = 4096

	// Mercator's usable latitude range; beyond it the projection distorts
	// into uselessness and the poles are undefined.
	maxViewportLat = 85.0
)

// ViewportHandler resolves a map viewport into tile placements, warming the
// heatmap overlays through the tile scheduler as a side effect.
type ViewportHandler struct {
	scheduler *tiles.Scheduler
}

// NewViewportHandler creates a new ViewportHandler.
func NewViewportHandler(scheduler *tiles.Scheduler) *ViewportHandler {
	return &ViewportHandler{scheduler: scheduler}
}

type tilePlacement struct {
	Z     int     `json:"z"`
	X     int     `json:"x"`
	Y     int     `json:"y"`
	Left  float64 `json:"left"`
	Top   float64 `json:"top"`
	State string  `json:"state"`
	URL   string  `json:"url,omitempty"`
}

type viewportResponse struct {
	Zoom     int             `json:"zoom"`
	TileSize int             `json:"tileSize"`
	Tiles    []tilePlacement `json:"tiles"`
}

// Resolve handles GET /v1/tiles/viewport. It computes the tile set covering
// the requested viewport, schedules overlay fetches for it, and reports each
// placement with its overlay state. Ready overlays carry the proxy URL to
// retrieve the bytes from.
func (h *ViewportHandler) Resolve(w http.ResponseWriter, r *http.Request) {
	lat, lng, ok := coordinates(w, r)
	if !ok {
		return
	}
	if lat < -maxViewportLat || lat > maxViewportLat {
		response.BadRequest(w, r, "lat outside the projectable range", []models.FieldError{
			{Field: "lat", Message: "must be between -85 and 85", Code: "invalid"},
		})
		return
	}
	if lng < -180 || lng > 180 {
		response.BadRequest(w, r, "lng out of range", []models.FieldError{
			{Field: "lng", Message: "must be between -180 and 180", Code: "invalid"},
		})
		return
	}

	width, ok := dimension(w, r, "width", defaultViewportWidth)
	if !ok {
		return
	}
	height, ok := dimension(w, r, "height", defaultViewportHeight)
	if !ok {
		return
	}

	zoom := defaultViewportZoom
	if raw := r.URL.Query().Get("zoom"); raw != "" {
		z, err := strconv.Atoi(raw)
		if err != nil || z < 0 || z > maxTileZoom {
			response.BadRequest(w, r, "zoom level out of range", []models.FieldError{
				{Field: "zoom", Message: fmt.Sprintf("must be between 0 and %d", maxTileZoom), Code: "invalid"},
			})
			return
		}
		zoom = z
	}

	center := mercator.Point{Lat: lat, Lng: lng}
	placements := mercator.VisibleTiles(center, width, height, zoom, viewportTileSize)

	requested := make([]mercator.Tile, 0, len(placements))
	for _, p := range placements {
		requested = append(requested, p.Tile)
	}

	done := h.scheduler.Request(r.Context(), requested)
	select {
	case <-done:
	case <-r.Context().Done():
		// Report whatever settled; unresolved tiles stay pending.
	}

	resp := viewportResponse{
		Zoom:     zoom,
		TileSize: viewportTileSize,
		Tiles:    make([]tilePlacement, 0, len(placements)),
	}
	for _, p := range placements {
		tp := tilePlacement{
			Z:     p.Tile.Z,
			X:     p.Tile.X,
			Y:     p.Tile.Y,
			Left:  p.Left,
			Top:   p.Top,
			State: tiles.StatePending.String(),
		}
		if state, ok := h.scheduler.State(p.Tile.Key()); ok {
			tp.State = state.String()
		}
		if tp.State == tiles.StateReady.String() {
			tp.URL = fmt.Sprintf("/v1/tiles/heatmap/%d/%d/%d", p.Tile.Z, p.Tile.X, p.Tile.Y)
		}
		resp.Tiles = append(resp.Tiles, tp)
	}

	response.JSON(w, r, http.StatusOK, resp)
}

func dimension(w http.ResponseWriter, r *http.Request, name string, fallback int) (int, bool) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return fallback, true
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v <= 0 || v > maxViewportDimension {
		response.BadRequest(w, r, name+" out of range", []models.FieldError{
			{Field: name, Message: fmt.Sprintf("must be between 1 and %d", maxViewportDimension), Code: "invalid"},
		})
		return 0, false
	}
	return v, true
}
