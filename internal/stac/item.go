package stac

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	gostac "github.com/planetlabs/go-stac"

	"github.com/robert-malhotra/s1-deburst/internal/geodesy"
	"github.com/robert-malhotra/s1-deburst/internal/process"
	"github.com/robert-malhotra/s1-deburst/pkg/geojson"
)

// ItemOptions controls how mosaic items are identified and linked.
type ItemOptions struct {
	Collection string
	BaseURL    string
	Version    string
}

// MosaicItem describes a deburst mosaic as a STAC Item. Ungeoreferenced
// mosaics get a null geometry.
func MosaicItem(res *process.Result, opts ItemOptions) (*gostac.Item, error) {
	if res == nil || res.Mosaic == nil {
		return nil, fmt.Errorf("result has no mosaic")
	}
	if res.ID == "" {
		return nil, fmt.Errorf("result has no ID")
	}

	item := NewItem(res.ID, opts.Collection, opts.Version)

	if res.Georef != nil {
		ring := res.Georef.GeoTransform.Footprint(res.Mosaic.Width, res.Mosaic.Height)
		geom, err := geojson.NewPolygon(ring)
		if err != nil {
			return nil, fmt.Errorf("failed to build footprint: %w", err)
		}
		item.Geometry = geom

		bbox, err := geojson.ComputeBBox(geom)
		if err == nil {
			item.Bbox = bbox
		}
	}

	name := res.Product
	props := item.Properties

	// STAC requires either datetime or start_datetime/end_datetime
	props["datetime"] = nil
	start, stop := res.Swath.Start, res.Swath.Stop
	if start.IsZero() {
		start, stop = name.Start, name.Stop
	}
	if !start.IsZero() {
		props["start_datetime"] = start
	}
	if !stop.IsZero() {
		props["end_datetime"] = stop
	}

	if platform := platformName(name.Platform); platform != "" {
		props["platform"] = platform
		props["constellation"] = getConstellation(platform)
		if band := getFrequencyBand(platform); band != "" {
			props["sar:frequency_band"] = band
		}
	}
	props["instruments"] = []string{"c-sar"}
	props["sar:instrument_mode"] = name.Mode
	props["sar:polarizations"] = []string{res.Files.Band}
	props["sar:product_type"] = name.ProductType
	props["processing:level"] = mapProcessingLevel(name.ProductType)
	if name.AbsoluteOrbit > 0 {
		props["sat:absolute_orbit"] = name.AbsoluteOrbit
	}

	props["proj:epsg"] = nil
	props["proj:shape"] = []int{res.Mosaic.Height, res.Mosaic.Width}
	if res.Georef != nil {
		props["proj:epsg"] = 4326
		props["proj:transform"] = res.Georef.GeoTransform
		props["deburst:gcp_count"] = len(res.Georef.GCPs)
		props["deburst:gcp_rmse"] = res.Georef.RMSE
		if bbox := geodesy.Bounds(res.Georef.GCPs); bbox != nil {
			props["deburst:gcp_bbox"] = bbox
		}
	} else if res.GeorefError != "" {
		props["deburst:georef_error"] = res.GeorefError
	}

	props["deburst:swath"] = res.Swath.Swath
	props["deburst:bursts"] = len(res.Bursts)
	props["deburst:overlaps"] = res.Mosaic.Overlaps
	props["deburst:origin"] = []int{res.Mosaic.XOffset, res.Mosaic.YOffset}
	props["created"] = FormatTime(res.Created)

	addAssets(item, res)
	addLinks(item, opts)

	return item, nil
}

// platformName maps a mission identifier such as S1A to sentinel-1a.
func platformName(mission string) string {
	mission = strings.ToLower(mission)
	if !strings.HasPrefix(mission, "s1") || len(mission) != 3 {
		return ""
	}
	return "sentinel-1" + mission[2:]
}

// getConstellation determines the constellation from the platform name
func getConstellation(platform string) string {
	if strings.HasPrefix(strings.ToLower(platform), "sentinel-1") {
		return "sentinel-1"
	}
	return ""
}

// getFrequencyBand determines the SAR frequency band from the platform
func getFrequencyBand(platform string) string {
	if strings.HasPrefix(strings.ToLower(platform), "sentinel-1") {
		return "C"
	}
	return ""
}

// mapProcessingLevel maps a product type to a STAC processing level
func mapProcessingLevel(productType string) string {
	productType = strings.ToUpper(productType)

	switch {
	case productType == "RAW":
		return "L0"
	case productType == "SLC", strings.HasPrefix(productType, "GRD"):
		return "L1"
	case productType == "OCN":
		return "L2"
	default:
		return productType
	}
}

// addAssets adds the written raster, its sidecars and the source files.
func addAssets(item *gostac.Item, res *process.Result) {
	if res.Output != "" {
		base := strings.TrimSuffix(res.Output, filepath.Ext(res.Output))
		item.Assets["amplitude"] = &gostac.Asset{
			Href:  res.Output,
			Title: "Deburst amplitude (dB, 16-bit stretch)",
			Type:  getMediaType(res.Output),
			Roles: []string{"data", "amplitude"},
		}
		item.Assets["world_file"] = &gostac.Asset{
			Href:  base + ".tfw",
			Title: "ESRI world file",
			Type:  "text/plain",
			Roles: []string{"metadata"},
		}
	}
	if res.Files.Measurement != "" {
		item.Assets["measurement"] = &gostac.Asset{
			Href:  res.Files.Measurement,
			Title: "Source measurement",
			Type:  getMediaType(res.Files.Measurement),
			Roles: []string{"source"},
		}
	}
	if res.Files.Annotation != "" {
		item.Assets["annotation"] = &gostac.Asset{
			Href:  res.Files.Annotation,
			Title: "Source annotation",
			Type:  getMediaType(res.Files.Annotation),
			Roles: []string{"metadata", "source"},
		}
	}
}

// getMediaType determines the MIME type from a file name
func getMediaType(path string) string {
	path = strings.ToLower(path)
	switch {
	case strings.HasSuffix(path, ".tif"), strings.HasSuffix(path, ".tiff"):
		return "image/tiff; application=geotiff"
	case strings.HasSuffix(path, ".xml"):
		return "application/xml"
	case strings.HasSuffix(path, ".json"):
		return "application/json"
	default:
		return "application/octet-stream"
	}
}

// addLinks adds STAC links (self, parent, collection, root) to the item
func addLinks(item *gostac.Item, opts ItemOptions) {
	if opts.BaseURL == "" {
		return
	}
	baseURL := strings.TrimSuffix(opts.BaseURL, "/")

	item.Links = append(item.Links,
		&gostac.Link{
			Rel:  "self",
			Href: fmt.Sprintf("%s/mosaics/%s", baseURL, item.Id),
			Type: "application/geo+json",
		},
		&gostac.Link{
			Rel:  "parent",
			Href: baseURL + "/collection",
			Type: "application/json",
		},
		&gostac.Link{
			Rel:  "collection",
			Href: baseURL + "/collection",
			Type: "application/json",
		},
		&gostac.Link{
			Rel:  "root",
			Href: baseURL + "/",
			Type: "application/json",
		},
	)
}

// WriteSidecar stores item as indented JSON at path, typically next to the
// raster it describes.
func WriteSidecar(path string, item *gostac.Item) error {
	data, err := json.MarshalIndent(item, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal item %s: %w", item.Id, err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write item sidecar: %w", err)
	}
	return nil
}

// SidecarPath returns the item sidecar path for a raster path.
func SidecarPath(rasterPath string) string {
	return strings.TrimSuffix(rasterPath, filepath.Ext(rasterPath)) + ".json"
}
