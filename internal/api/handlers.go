package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/robert-malhotra/s1-deburst/internal/catalog"
	"github.com/robert-malhotra/s1-deburst/internal/config"
	"github.com/robert-malhotra/s1-deburst/internal/geodesy"
	"github.com/robert-malhotra/s1-deburst/internal/metrics"
	"github.com/robert-malhotra/s1-deburst/internal/process"
	"github.com/robert-malhotra/s1-deburst/internal/raster"
	"github.com/robert-malhotra/s1-deburst/internal/safe"
	"github.com/robert-malhotra/s1-deburst/internal/stac"
)

// Runner runs the deburst pipeline for one swath and band of a SAFE product.
type Runner interface {
	Run(ctx context.Context, dir string, swath int, band string) (*process.Result, error)
}

// Handlers contains all HTTP handlers for the deburst API.
type Handlers struct {
	cfg     *config.Config
	runner  Runner
	store   catalog.Store
	metrics *metrics.Metrics
	logger  *slog.Logger
}

// NewHandlers creates a new Handlers instance with the given dependencies.
func NewHandlers(cfg *config.Config, runner Runner, store catalog.Store, logger *slog.Logger) *Handlers {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handlers{
		cfg:    cfg,
		runner: runner,
		store:  store,
		logger: logger,
	}
}

// WithMetrics enables the /metrics endpoint and request instrumentation.
func (h *Handlers) WithMetrics(m *metrics.Metrics) *Handlers {
	h.metrics = m
	return h
}

// MosaicRequest is the body of POST /mosaics.
type MosaicRequest struct {
	// SAFE is the product directory relative to the configured data root
	SAFE  string `json:"safe"`
	Swath int    `json:"swath"`
	Band  string `json:"band"`
}

// ProductResponse describes a decomposed product name.
type ProductResponse struct {
	Name    string           `json:"name"`
	Product safe.ProductName `json:"product"`
	Bands   []string         `json:"bands"`
	Swaths  int              `json:"swaths"`
}

// BurstsResponse describes where each burst landed in a mosaic.
type BurstsResponse struct {
	ID       string              `json:"id"`
	Width    int                 `json:"width"`
	Height   int                 `json:"height"`
	XOffset  int                 `json:"x_offset"`
	YOffset  int                 `json:"y_offset"`
	Overlaps []int               `json:"overlaps"`
	Bursts   []process.BurstInfo `json:"bursts"`
}

// GCPsResponse lists the control points kept for a mosaic, in mosaic-local
// pixel and line coordinates.
type GCPsResponse struct {
	ID           string                `json:"id"`
	SRS          string                `json:"srs,omitempty"`
	GeoTransform *geodesy.GeoTransform `json:"geotransform,omitempty"`
	RMSE         float64               `json:"rmse"`
	Discarded    int                   `json:"discarded"`
	GCPs         []raster.GCP          `json:"gcps"`
	Error        string                `json:"error,omitempty"`
}

// Health reports service liveness.
// GET /health
func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	resp := map[string]any{"status": "ok"}
	if st, ok := h.store.(interface {
		Stats() (int, time.Duration)
	}); ok {
		count, oldest := st.Stats()
		resp["mosaics"] = count
		resp["oldest_age_seconds"] = oldest.Seconds()
	} else {
		resp["mosaics"] = len(h.store.List())
	}
	WriteJSON(w, http.StatusOK, resp)
}

// Metrics serves Prometheus metrics.
// GET /metrics
func (h *Handlers) Metrics(w http.ResponseWriter, r *http.Request) {
	if h.metrics == nil {
		WriteNotFound(w, "metrics disabled")
		return
	}
	h.metrics.Handler().ServeHTTP(w, r)
}

// Product decomposes a SAFE product name.
// GET /products/{name}
func (h *Handlers) Product(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	pn, err := safe.ParseProductName(name)
	if err != nil {
		WriteInvalidParameter(w, err.Error())
		return
	}

	WriteJSON(w, http.StatusOK, ProductResponse{
		Name:    pn.String(),
		Product: pn,
		Bands:   pn.Bands(),
		Swaths:  pn.Swaths(),
	})
}

// CreateMosaic debursts one swath and band of a product under the data root.
// POST /mosaics
func (h *Handlers) CreateMosaic(w http.ResponseWriter, r *http.Request) {
	var req MosaicRequest
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		WriteBadRequest(w, fmt.Sprintf("invalid request body: %v", err))
		return
	}

	dir, err := h.resolveProduct(req.SAFE)
	if err != nil {
		WriteInvalidParameter(w, err.Error())
		return
	}
	if req.Swath < 1 {
		WriteInvalidParameter(w, fmt.Sprintf("swath must be positive, got %d", req.Swath))
		return
	}
	if req.Band == "" {
		WriteInvalidParameter(w, "band is required")
		return
	}

	res, err := h.runner.Run(r.Context(), dir, req.Swath, strings.ToUpper(req.Band))
	if err != nil {
		h.logger.Warn("mosaic failed",
			slog.String("request_id", GetRequestID(r.Context())),
			slog.String("safe", req.SAFE),
			slog.Int("swath", req.Swath),
			slog.String("band", req.Band),
			slog.String("error", err.Error()),
		)
		WriteErrorFor(w, err)
		return
	}

	item, err := stac.MosaicItem(res, h.itemOptions())
	if err != nil {
		WriteInternalError(w, err.Error())
		return
	}
	if res.Output != "" {
		if err := stac.WriteSidecar(stac.SidecarPath(res.Output), item); err != nil {
			h.logger.Error("failed to write item sidecar",
				slog.String("id", res.ID),
				slog.String("error", err.Error()),
			)
		}
	}

	if err := h.store.Put(res, item); err != nil {
		WriteInternalError(w, err.Error())
		return
	}

	w.Header().Set("Location", h.cfg.STAC.BaseURL+"/mosaics/"+res.ID)
	WriteGeoJSON(w, http.StatusCreated, item)
}

// ListMosaics returns the stored mosaics as an ItemCollection.
// GET /mosaics
func (h *Handlers) ListMosaics(w http.ResponseWriter, r *http.Request) {
	entries := h.store.List()
	items := make([]*stac.Item, 0, len(entries))
	for _, e := range entries {
		items = append(items, e.Item)
	}

	ic := stac.NewItemCollection(items)
	ic.AddLink("self", h.cfg.STAC.BaseURL+"/mosaics", "application/geo+json")
	ic.AddLink("root", h.cfg.STAC.BaseURL+"/", "application/json")
	ic.AddLink("collection", h.cfg.STAC.BaseURL+"/collection", "application/json")

	WriteGeoJSON(w, http.StatusOK, ic)
}

// Mosaic returns the STAC Item of a stored mosaic.
// GET /mosaics/{id}
func (h *Handlers) Mosaic(w http.ResponseWriter, r *http.Request) {
	entry, ok := h.entry(w, r)
	if !ok {
		return
	}
	WriteGeoJSON(w, http.StatusOK, entry.Item)
}

// Bursts returns the burst windows, overlaps and write offsets of a mosaic.
// GET /mosaics/{id}/bursts
func (h *Handlers) Bursts(w http.ResponseWriter, r *http.Request) {
	entry, ok := h.entry(w, r)
	if !ok {
		return
	}

	res := entry.Result
	resp := BurstsResponse{ID: res.ID, Bursts: res.Bursts}
	if m := res.Mosaic; m != nil {
		resp.Width = m.Width
		resp.Height = m.Height
		resp.XOffset = m.XOffset
		resp.YOffset = m.YOffset
		resp.Overlaps = m.Overlaps
	}
	WriteJSON(w, http.StatusOK, resp)
}

// GCPs returns the filtered control points of a mosaic.
// GET /mosaics/{id}/gcps
func (h *Handlers) GCPs(w http.ResponseWriter, r *http.Request) {
	entry, ok := h.entry(w, r)
	if !ok {
		return
	}

	res := entry.Result
	resp := GCPsResponse{ID: res.ID, GCPs: []raster.GCP{}, Error: res.GeorefError}
	if g := res.Georef; g != nil {
		gt := g.GeoTransform
		resp.SRS = process.SpatialReference
		resp.GeoTransform = &gt
		resp.RMSE = g.RMSE
		resp.Discarded = g.Discarded
		resp.GCPs = g.GCPs
	}
	WriteJSON(w, http.StatusOK, resp)
}

// Collection returns the collection of stored mosaics.
// GET /collection
func (h *Handlers) Collection(w http.ResponseWriter, r *http.Request) {
	entries := h.store.List()
	items := make([]*stac.Item, 0, len(entries))
	for _, e := range entries {
		items = append(items, e.Item)
	}

	c := stac.NewCollection(h.cfg.STAC.Collection, "Sentinel-1 swaths with bursts stitched into a seamless mosaic",
		h.cfg.STAC.Version, items)
	baseURL := h.cfg.STAC.BaseURL
	c.Links = append(c.Links,
		&stac.Link{Rel: "self", Href: baseURL + "/collection", Type: "application/json"},
		&stac.Link{Rel: "root", Href: baseURL + "/", Type: "application/json"},
		&stac.Link{Rel: "items", Href: baseURL + "/mosaics", Type: "application/geo+json"},
	)

	WriteJSON(w, http.StatusOK, c)
}

func (h *Handlers) entry(w http.ResponseWriter, r *http.Request) (*catalog.Entry, bool) {
	id := chi.URLParam(r, "id")
	entry, err := h.store.Get(id)
	if err != nil {
		if errors.Is(err, catalog.ErrExpired) {
			WriteNotFound(w, fmt.Sprintf("mosaic %s expired", id))
		} else {
			WriteErrorFor(w, fmt.Errorf("%w: %s", err, id))
		}
		return nil, false
	}
	return entry, true
}

// resolveProduct maps a request path onto the data root. Paths that are
// absolute or leave the root are rejected.
func (h *Handlers) resolveProduct(p string) (string, error) {
	if p == "" {
		return "", fmt.Errorf("safe is required")
	}
	clean := filepath.FromSlash(p)
	if !filepath.IsLocal(clean) {
		return "", fmt.Errorf("safe path %q must be relative to the data root", p)
	}
	return filepath.Join(h.cfg.Processing.DataRoot, clean), nil
}

func (h *Handlers) itemOptions() stac.ItemOptions {
	return stac.ItemOptions{
		Collection: h.cfg.STAC.Collection,
		BaseURL:    h.cfg.STAC.BaseURL,
		Version:    h.cfg.STAC.Version,
	}
}
