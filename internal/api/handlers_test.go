package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/robert-malhotra/s1-deburst/internal/annotation"
	"github.com/robert-malhotra/s1-deburst/internal/burst"
	"github.com/robert-malhotra/s1-deburst/internal/catalog"
	"github.com/robert-malhotra/s1-deburst/internal/config"
	"github.com/robert-malhotra/s1-deburst/internal/metrics"
	"github.com/robert-malhotra/s1-deburst/internal/process"
	"github.com/robert-malhotra/s1-deburst/internal/process/processtest"
	"github.com/robert-malhotra/s1-deburst/internal/raster"
	"github.com/robert-malhotra/s1-deburst/internal/safe"
)

const testMosaicID = "S1A_IW_SLC__1SDV_20230111T060136_20230111T060203_046732_059A26_F5B0_IW1_VV"

func testConfig(dataRoot string) *config.Config {
	return &config.Config{
		Processing: config.ProcessingConfig{
			Workers:  2,
			DataRoot: dataRoot,
		},
		STAC: config.STACConfig{
			Version:    "1.0.0",
			BaseURL:    "http://localhost:8080",
			Collection: "sentinel-1-deburst",
		},
	}
}

type testServer struct {
	router chi.Router
	store  *catalog.MemoryStore
	root   string
}

// newTestServer serves a data root holding one synthetic product built from anx.
func newTestServer(t *testing.T, anx []float64, withGrid bool, writer raster.Writer) *testServer {
	t.Helper()
	root := t.TempDir()
	_, rasters := processtest.MakeProduct(t, root, anx, withGrid)

	pipeline := process.NewPipeline(rasters, annotation.FileSource{})
	if writer != nil {
		pipeline = pipeline.WithWriter(writer)
	}

	store := catalog.NewMemoryStore(time.Hour, time.Hour)
	t.Cleanup(store.Stop)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	h := NewHandlers(testConfig(root), pipeline, store, logger).WithMetrics(metrics.New())
	return &testServer{router: NewRouter(h, logger), store: store, root: root}
}

func (s *testServer) do(t *testing.T, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, r)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func mosaicBody(swath int, band string) string {
	return fmt.Sprintf(`{"safe": %q, "swath": %d, "band": %q}`, processtest.ProductName, swath, band)
}

func decode(t *testing.T, w *httptest.ResponseRecorder, v any) {
	t.Helper()
	if err := json.Unmarshal(w.Body.Bytes(), v); err != nil {
		t.Fatalf("failed to decode response %q: %v", w.Body.String(), err)
	}
}

func TestHealth(t *testing.T) {
	s := newTestServer(t, processtest.OverlappingEpochs, true, nil)
	w := s.do(t, "GET", "/health", "")

	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", w.Code)
	}
	var resp map[string]any
	decode(t, w, &resp)
	if resp["status"] != "ok" || resp["mosaics"] != float64(0) || resp["oldest_age_seconds"] != float64(0) {
		t.Errorf("unexpected health response: %v", resp)
	}

	if w := s.do(t, "POST", "/mosaics", mosaicBody(1, "VV")); w.Code != http.StatusCreated {
		t.Fatalf("create status = %d: %s", w.Code, w.Body.String())
	}
	w = s.do(t, "GET", "/health", "")
	resp = nil
	decode(t, w, &resp)
	if resp["mosaics"] != float64(1) {
		t.Errorf("mosaics = %v, want 1", resp["mosaics"])
	}
	if age, ok := resp["oldest_age_seconds"].(float64); !ok || age < 0 {
		t.Errorf("oldest_age_seconds = %v", resp["oldest_age_seconds"])
	}
}

func TestProduct(t *testing.T) {
	s := newTestServer(t, processtest.OverlappingEpochs, true, nil)

	tests := []struct {
		name       string
		product    string
		wantStatus int
		wantBands  []string
		wantSwaths int
	}{
		{"dual polarisation", processtest.ProductName, http.StatusOK, []string{"VV", "VH"}, 3},
		{"without extension", strings.TrimSuffix(processtest.ProductName, ".SAFE"), http.StatusOK, []string{"VV", "VH"}, 3},
		{"invalid", "not-a-product", http.StatusBadRequest, nil, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := s.do(t, "GET", "/products/"+tt.product, "")
			if w.Code != tt.wantStatus {
				t.Fatalf("expected status %d, got %d: %s", tt.wantStatus, w.Code, w.Body.String())
			}
			if tt.wantStatus != http.StatusOK {
				var e STACError
				decode(t, w, &e)
				if e.Code != ErrCodeInvalidParameter {
					t.Errorf("expected code %s, got %s", ErrCodeInvalidParameter, e.Code)
				}
				return
			}
			var resp ProductResponse
			decode(t, w, &resp)
			if strings.Join(resp.Bands, ",") != strings.Join(tt.wantBands, ",") {
				t.Errorf("bands = %v, want %v", resp.Bands, tt.wantBands)
			}
			if resp.Swaths != tt.wantSwaths {
				t.Errorf("swaths = %d, want %d", resp.Swaths, tt.wantSwaths)
			}
			if resp.Product.AbsoluteOrbit != 46732 {
				t.Errorf("absolute orbit = %d, want 46732", resp.Product.AbsoluteOrbit)
			}
		})
	}
}

func TestCreateMosaic(t *testing.T) {
	s := newTestServer(t, processtest.OverlappingEpochs, true, nil)

	w := s.do(t, "POST", "/mosaics", mosaicBody(1, "vv"))
	if w.Code != http.StatusCreated {
		t.Fatalf("expected status 201, got %d: %s", w.Code, w.Body.String())
	}
	if ct := w.Header().Get("Content-Type"); ct != "application/geo+json" {
		t.Errorf("expected Content-Type application/geo+json, got %s", ct)
	}
	if loc := w.Header().Get("Location"); loc != "http://localhost:8080/mosaics/"+testMosaicID {
		t.Errorf("unexpected Location %q", loc)
	}

	var item map[string]any
	decode(t, w, &item)
	if item["id"] != testMosaicID {
		t.Errorf("item id = %v, want %s", item["id"], testMosaicID)
	}
	if item["collection"] != "sentinel-1-deburst" {
		t.Errorf("item collection = %v", item["collection"])
	}
	props, _ := item["properties"].(map[string]any)
	if shape, _ := props["proj:shape"].([]any); len(shape) != 2 || shape[0] != float64(220) || shape[1] != float64(290) {
		t.Errorf("proj:shape = %v, want [220 290]", props["proj:shape"])
	}

	if _, err := s.store.Get(testMosaicID); err != nil {
		t.Errorf("mosaic not stored: %v", err)
	}
}

func TestCreateMosaic_WritesSidecar(t *testing.T) {
	out := t.TempDir()
	s := newTestServer(t, processtest.OverlappingEpochs, true, raster.NewTIFFWriter(out))

	w := s.do(t, "POST", "/mosaics", mosaicBody(1, "VV"))
	if w.Code != http.StatusCreated {
		t.Fatalf("expected status 201, got %d: %s", w.Code, w.Body.String())
	}

	data, err := os.ReadFile(filepath.Join(out, testMosaicID+".json"))
	if err != nil {
		t.Fatalf("sidecar not written: %v", err)
	}
	if !bytes.Contains(data, []byte(testMosaicID)) {
		t.Errorf("sidecar does not describe the mosaic: %s", data)
	}
}

func TestCreateMosaic_Errors(t *testing.T) {
	tests := []struct {
		name       string
		anx        []float64
		body       string
		wantStatus int
		wantCode   string
	}{
		{
			name:       "malformed timing",
			anx:        []float64{0, 0.18, 0.36},
			body:       mosaicBody(1, "VV"),
			wantStatus: http.StatusUnprocessableEntity,
			wantCode:   ErrCodeInvalidProduct,
		},
		{
			name:       "missing swath files",
			body:       mosaicBody(2, "VV"),
			wantStatus: http.StatusNotFound,
			wantCode:   ErrCodeNotFound,
		},
		{
			name:       "band not recorded",
			body:       mosaicBody(1, "HH"),
			wantStatus: http.StatusNotFound,
			wantCode:   ErrCodeNotFound,
		},
		{
			name:       "unknown product directory",
			body:       `{"safe": "S1A_IW_SLC__1SDV_20240101T000000_20240101T000027_052000_064000_AAAA.SAFE", "swath": 1, "band": "VV"}`,
			wantStatus: http.StatusNotFound,
			wantCode:   ErrCodeNotFound,
		},
		{
			name:       "path escaping data root",
			body:       `{"safe": "../elsewhere.SAFE", "swath": 1, "band": "VV"}`,
			wantStatus: http.StatusBadRequest,
			wantCode:   ErrCodeInvalidParameter,
		},
		{
			name:       "absolute path",
			body:       `{"safe": "/etc", "swath": 1, "band": "VV"}`,
			wantStatus: http.StatusBadRequest,
			wantCode:   ErrCodeInvalidParameter,
		},
		{
			name:       "zero swath",
			body:       mosaicBody(0, "VV"),
			wantStatus: http.StatusBadRequest,
			wantCode:   ErrCodeInvalidParameter,
		},
		{
			name:       "missing band",
			body:       mosaicBody(1, ""),
			wantStatus: http.StatusBadRequest,
			wantCode:   ErrCodeInvalidParameter,
		},
		{
			name:       "malformed body",
			body:       `{"safe":`,
			wantStatus: http.StatusBadRequest,
			wantCode:   ErrCodeBadRequest,
		},
		{
			name:       "unknown field",
			body:       `{"safe": "a.SAFE", "swath": 1, "band": "VV", "burst": 2}`,
			wantStatus: http.StatusBadRequest,
			wantCode:   ErrCodeBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			anx := tt.anx
			if anx == nil {
				anx = processtest.OverlappingEpochs
			}
			s := newTestServer(t, anx, true, nil)

			w := s.do(t, "POST", "/mosaics", tt.body)
			if w.Code != tt.wantStatus {
				t.Fatalf("expected status %d, got %d: %s", tt.wantStatus, w.Code, w.Body.String())
			}
			var e STACError
			decode(t, w, &e)
			if e.Code != tt.wantCode {
				t.Errorf("expected code %s, got %s", tt.wantCode, e.Code)
			}
			if e.Description == "" {
				t.Error("expected error description")
			}
			if len(s.store.List()) != 0 {
				t.Error("failed request stored a mosaic")
			}
		})
	}
}

func TestMosaicRoutes(t *testing.T) {
	s := newTestServer(t, processtest.OverlappingEpochs, true, nil)
	if w := s.do(t, "POST", "/mosaics", mosaicBody(1, "VV")); w.Code != http.StatusCreated {
		t.Fatalf("create mosaic: status %d: %s", w.Code, w.Body.String())
	}

	t.Run("item", func(t *testing.T) {
		w := s.do(t, "GET", "/mosaics/"+testMosaicID, "")
		if w.Code != http.StatusOK {
			t.Fatalf("expected status 200, got %d", w.Code)
		}
		var item map[string]any
		decode(t, w, &item)
		if item["id"] != testMosaicID {
			t.Errorf("item id = %v", item["id"])
		}
	})

	t.Run("bursts", func(t *testing.T) {
		w := s.do(t, "GET", "/mosaics/"+testMosaicID+"/bursts", "")
		if w.Code != http.StatusOK {
			t.Fatalf("expected status 200, got %d", w.Code)
		}
		var resp BurstsResponse
		decode(t, w, &resp)
		if resp.Width != 290 || resp.Height != 220 || resp.XOffset != 5 || resp.YOffset != 10 {
			t.Errorf("layout = %+v", resp)
		}
		if len(resp.Bursts) != 3 {
			t.Fatalf("expected 3 bursts, got %d", len(resp.Bursts))
		}
		for i, want := range []int{0, 70, 140} {
			if resp.Bursts[i].Offset != want {
				t.Errorf("burst %d offset = %d, want %d", i, resp.Bursts[i].Offset, want)
			}
		}
		if fmt.Sprint(resp.Overlaps) != "[0 10 10]" {
			t.Errorf("overlaps = %v, want [0 10 10]", resp.Overlaps)
		}
	})

	t.Run("gcps", func(t *testing.T) {
		w := s.do(t, "GET", "/mosaics/"+testMosaicID+"/gcps", "")
		if w.Code != http.StatusOK {
			t.Fatalf("expected status 200, got %d", w.Code)
		}
		var resp GCPsResponse
		decode(t, w, &resp)
		if len(resp.GCPs) != 18 || resp.Discarded != 18 {
			t.Errorf("kept %d, discarded %d, want 18 and 18", len(resp.GCPs), resp.Discarded)
		}
		if resp.SRS != process.SpatialReference || resp.GeoTransform == nil {
			t.Errorf("srs = %q, geotransform = %v", resp.SRS, resp.GeoTransform)
		}
		for _, g := range resp.GCPs {
			if g.Pixel < 0 || g.Pixel >= 290 {
				t.Errorf("GCP pixel %v outside mosaic columns", g.Pixel)
			}
		}
	})

	t.Run("list", func(t *testing.T) {
		w := s.do(t, "GET", "/mosaics", "")
		if w.Code != http.StatusOK {
			t.Fatalf("expected status 200, got %d", w.Code)
		}
		var ic map[string]any
		decode(t, w, &ic)
		if ic["type"] != "FeatureCollection" || ic["numberReturned"] != float64(1) {
			t.Errorf("unexpected collection: %v", ic)
		}
	})

	t.Run("collection", func(t *testing.T) {
		w := s.do(t, "GET", "/collection", "")
		if w.Code != http.StatusOK {
			t.Fatalf("expected status 200, got %d", w.Code)
		}
		var c map[string]any
		decode(t, w, &c)
		if c["id"] != "sentinel-1-deburst" {
			t.Errorf("collection id = %v", c["id"])
		}
	})

	t.Run("metrics", func(t *testing.T) {
		w := s.do(t, "GET", "/metrics", "")
		if w.Code != http.StatusOK {
			t.Fatalf("expected status 200, got %d", w.Code)
		}
		if !strings.Contains(w.Body.String(), `status="201"} 1`) {
			t.Errorf("metrics missing mosaic request count:\n%s", w.Body.String())
		}
	})
}

func TestMosaicRoutes_NotFound(t *testing.T) {
	s := newTestServer(t, processtest.OverlappingEpochs, true, nil)

	for _, path := range []string{"/mosaics/unknown", "/mosaics/unknown/bursts", "/mosaics/unknown/gcps", "/nope"} {
		t.Run(path, func(t *testing.T) {
			w := s.do(t, "GET", path, "")
			if w.Code != http.StatusNotFound {
				t.Fatalf("expected status 404, got %d", w.Code)
			}
			var e STACError
			decode(t, w, &e)
			if e.Code != ErrCodeNotFound {
				t.Errorf("expected code NotFound, got %s", e.Code)
			}
		})
	}
}

func TestGCPs_NotGeoreferenced(t *testing.T) {
	s := newTestServer(t, processtest.OverlappingEpochs, false, nil)
	if w := s.do(t, "POST", "/mosaics", mosaicBody(1, "VV")); w.Code != http.StatusCreated {
		t.Fatalf("create mosaic: status %d: %s", w.Code, w.Body.String())
	}

	w := s.do(t, "GET", "/mosaics/"+testMosaicID+"/gcps", "")
	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", w.Code)
	}
	var resp GCPsResponse
	decode(t, w, &resp)
	if len(resp.GCPs) != 0 || resp.GeoTransform != nil || resp.Error == "" {
		t.Errorf("unexpected response for ungeoreferenced mosaic: %+v", resp)
	}
}

func TestMethodNotAllowed(t *testing.T) {
	s := newTestServer(t, processtest.OverlappingEpochs, true, nil)
	w := s.do(t, "DELETE", "/mosaics", "")
	if w.Code != http.StatusMethodNotAllowed {
		t.Errorf("expected status 405, got %d", w.Code)
	}
}

type stubRunner struct {
	err error
}

func (s stubRunner) Run(context.Context, string, int, string) (*process.Result, error) {
	return nil, s.err
}

func TestCreateMosaic_PipelineErrors(t *testing.T) {
	tests := []struct {
		err        error
		wantStatus int
	}{
		{fmt.Errorf("burst 2: %w", burst.ErrDegenerateWindow), http.StatusUnprocessableEntity},
		{burst.ErrInconsistentMetadata, http.StatusUnprocessableEntity},
		{fmt.Errorf("read: %w", raster.ErrWindowOutOfBounds), http.StatusUnprocessableEntity},
		{safe.ErrInvalidSAFE, http.StatusUnprocessableEntity},
		{raster.ErrNotFound, http.StatusNotFound},
		{context.DeadlineExceeded, http.StatusServiceUnavailable},
		{errors.New("disk on fire"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.err.Error(), func(t *testing.T) {
			store := catalog.NewMemoryStore(time.Hour, time.Hour)
			defer store.Stop()
			logger := slog.New(slog.NewTextHandler(io.Discard, nil))
			h := NewHandlers(testConfig(t.TempDir()), stubRunner{tt.err}, store, logger)
			router := NewRouter(h, logger)

			req := httptest.NewRequest("POST", "/mosaics", strings.NewReader(mosaicBody(1, "VV")))
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)

			if w.Code != tt.wantStatus {
				t.Errorf("expected status %d, got %d", tt.wantStatus, w.Code)
			}
		})
	}
}

func TestMetrics_Disabled(t *testing.T) {
	store := catalog.NewMemoryStore(time.Hour, time.Hour)
	defer store.Stop()
	h := NewHandlers(testConfig(t.TempDir()), stubRunner{}, store, nil)

	w := httptest.NewRecorder()
	NewRouter(h, slog.New(slog.NewTextHandler(io.Discard, nil))).ServeHTTP(w, httptest.NewRequest("GET", "/metrics", nil))
	if w.Code != http.StatusNotFound {
		t.Errorf("expected status 404, got %d", w.Code)
	}
}
