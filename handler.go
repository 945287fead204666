package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/teris-io/shortid"
)

const (
	contentHTML = "text/html; charset=utf-8"
	contentJSON = "application/json"
)

// web mercator latitude limit
const maxLat = 85.0511

type existsResponse struct {
	Success string `json:"success"`
	Error   string `json:"error,omitempty"`
}

// Handler exposes the Service over HTTP.
type Handler struct {
	svc    *Service
	strict bool
}

func NewHandler(svc *Service, strict bool) *Handler {
	return &Handler{svc: svc, strict: strict}
}

// Router 注册路由
func (h *Handler) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(h.requestID)

	r.Get("/", h.root)
	r.Get("/summary", h.summary)
	r.Get("/exists", h.exists)
	r.Get("/lookup", h.lookup)
	r.Get("/metadata", h.metadata)
	return r
}

func (h *Handler) requestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, err := shortid.Generate()
		if err != nil {
			id = "-"
		}
		h.svc.entry(r.Context()).WithField("req", id).Debugf("%s %s from %s", r.Method, r.URL, r.RemoteAddr)
		next.ServeHTTP(w, r.WithContext(withRequestID(r.Context(), id)))
	})
}

// root keeps the single-endpoint shape: summary when the flag is present,
// otherwise an existence check.
func (h *Handler) root(w http.ResponseWriter, r *http.Request) {
	if _, ok := r.URL.Query()["summary"]; ok {
		h.summary(w, r)
		return
	}
	h.exists(w, r)
}

func (h *Handler) summary(w http.ResponseWriter, r *http.Request) {
	var buf bytes.Buffer
	// failures are already rendered into buf as a diagnostic line
	_ = h.svc.GetZoomSummary(r.Context(), r.URL.Query().Get("db"), &buf, HTMLBreak)
	w.Header().Set("Content-Type", contentHTML)
	w.Write(buf.Bytes())
}

func (h *Handler) exists(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	k, err := parseTileKey(q.Get("z"), q.Get("x"), q.Get("y"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, existsResponse{Success: "false", Error: err.Error()})
		return
	}
	res, err := h.svc.TileExists(r.Context(), q.Get("db"), k)
	h.writeExistence(w, res, err)
}

func (h *Handler) lookup(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	lat, lon, zoom, err := parseCoordinate(q.Get("lat"), q.Get("lon"), q.Get("zoom"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, existsResponse{Success: "false", Error: err.Error()})
		return
	}
	res, _, err := h.svc.LookupByCoordinate(r.Context(), q.Get("db"), lat, lon, zoom)
	h.writeExistence(w, res, err)
}

func (h *Handler) metadata(w http.ResponseWriter, r *http.Request) {
	md, err := h.svc.Metadata(r.Context(), r.URL.Query().Get("db"))
	if err != nil {
		h.svc.entry(r.Context()).Warnf("metadata: %s", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, md)
}

// writeExistence renders Failed as "false"; strict mode adds the reason and
// a 500 status so callers can tell it apart from a missing tile.
func (h *Handler) writeExistence(w http.ResponseWriter, res Existence, err error) {
	switch {
	case res == Found:
		writeJSON(w, http.StatusOK, existsResponse{Success: "true"})
	case res == Failed && h.strict:
		writeJSON(w, http.StatusInternalServerError, existsResponse{Success: "false", Error: err.Error()})
	default:
		writeJSON(w, http.StatusOK, existsResponse{Success: "false"})
	}
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", contentJSON)
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func parseTileKey(z, x, y string) (TileKey, error) {
	zoom, err := parseNonNegative("z", z)
	if err != nil {
		return TileKey{}, err
	}
	if zoom > ZoomMax {
		return TileKey{}, fmt.Errorf("z out of range: %d", zoom)
	}
	col, err := parseNonNegative("x", x)
	if err != nil {
		return TileKey{}, err
	}
	row, err := parseNonNegative("y", y)
	if err != nil {
		return TileKey{}, err
	}
	return TileKey{Zoom: zoom, Column: col, Row: row}, nil
}

func parseNonNegative(name, s string) (int, error) {
	if s == "" {
		return 0, fmt.Errorf("missing %s", name)
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %q", name, s)
	}
	if v < 0 {
		return 0, fmt.Errorf("negative %s: %d", name, v)
	}
	return v, nil
}

func parseCoordinate(latS, lonS, zoomS string) (float64, float64, int, error) {
	lat, err := strconv.ParseFloat(latS, 64)
	if err != nil || math.IsNaN(lat) || math.Abs(lat) > maxLat {
		return 0, 0, 0, fmt.Errorf("invalid lat: %q", latS)
	}
	lon, err := strconv.ParseFloat(lonS, 64)
	if err != nil || math.IsNaN(lon) || math.Abs(lon) > 180 {
		return 0, 0, 0, fmt.Errorf("invalid lon: %q", lonS)
	}
	zoom, err := parseNonNegative("zoom", zoomS)
	if err != nil {
		return 0, 0, 0, err
	}
	if zoom > ZoomMax {
		return 0, 0, 0, fmt.Errorf("zoom out of range: %d", zoom)
	}
	return lat, lon, zoom, nil
}
