package handler

import (
	"context"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/airsight/airsight/internal/api/models"
	"github.com/airsight/airsight/internal/api/response"
	"github.com/airsight/airsight/internal/tiles"
	"github.com/airsight/airsight/pkg/mercator"
)

// maxTileZoom is the deepest zoom level the upstream heatmap serves.
const maxTileZoom = 16

// TileSource fetches one heatmap overlay tile, returning the image bytes and
// content type.
type TileSource interface {
	HeatmapTile(ctx context.Context, z, x, y int) ([]byte, string, error)
}

// TilesHandler proxies heatmap overlay tiles. When a scheduler is attached,
// tiles already resolved by a viewport request are served from its cache
// without touching the upstream.
type TilesHandler struct {
	source    TileSource
	scheduler *tiles.Scheduler
}

// NewTilesHandler creates a new TilesHandler. scheduler may be nil.
func NewTilesHandler(source TileSource, scheduler *tiles.Scheduler) *TilesHandler {
	return &TilesHandler{source: source, scheduler: scheduler}
}

// Heatmap handles GET /v1/tiles/heatmap/{z}/{x}/{y}. Tile bytes are passed
// through with the upstream content type and a public cache header.
func (h *TilesHandler) Heatmap(w http.ResponseWriter, r *http.Request) {
	z, okZ := tileCoord(r, "z")
	x, okX := tileCoord(r, "x")
	y, okY := tileCoord(r, "y")
	if !okZ || !okX || !okY {
		response.BadRequest(w, r, "tile coordinates must be non-negative integers", []models.FieldError{
			{Field: "z/x/y", Message: "must be non-negative integers", Code: "invalid"},
		})
		return
	}

	if z > maxTileZoom {
		response.BadRequest(w, r, "zoom level out of range", nil)
		return
	}
	// y has no wraparound: tiles past the poles do not exist.
	if y >= 1<<uint(z) {
		response.NotFound(w, r, "tile row out of range for zoom level")
		return
	}

	if h.scheduler != nil {
		key := mercator.Tile{Z: z, X: x, Y: y}.Key()
		if handle := h.scheduler.Ready(key); handle != nil {
			if data := handle.Bytes(); len(data) > 0 {
				w.Header().Set("Content-Type", "image/png")
				w.Header().Set("Cache-Control", "public, max-age=300")
				w.WriteHeader(http.StatusOK)
				_, _ = w.Write(data)
				return
			}
		}
	}

	data, contentType, err := h.source.HeatmapTile(r.Context(), z, x, y)
	if err != nil {
		response.ServiceUnavailable(w, r, "heatmap tile unavailable")
		return
	}

	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Cache-Control", "public, max-age=300")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

func tileCoord(r *http.Request, name string) (int, bool) {
	v, err := strconv.Atoi(chi.URLParam(r, name))
	if err != nil || v < 0 {
		return 0, false
	}
	return v, true
}
