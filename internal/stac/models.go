// Package stac describes deburst mosaics as STAC Items, wrapping
// planetlabs/go-stac for core types.
package stac

import (
	"time"

	gostac "github.com/planetlabs/go-stac"
)

// Re-export core types from planetlabs/go-stac for convenience
type (
	Item       = gostac.Item
	Collection = gostac.Collection
	Asset      = gostac.Asset
	Link       = gostac.Link
	Extent     = gostac.Extent
)

// ItemCollection represents a STAC ItemCollection (GeoJSON FeatureCollection).
type ItemCollection struct {
	Type           string         `json:"type"` // "FeatureCollection"
	Features       []*gostac.Item `json:"features"`
	Links          []*gostac.Link `json:"links"`
	NumberReturned int            `json:"numberReturned"`
}

// NewItemCollection creates a new ItemCollection with the given items.
func NewItemCollection(items []*gostac.Item) *ItemCollection {
	if items == nil {
		items = make([]*gostac.Item, 0)
	}
	return &ItemCollection{
		Type:           "FeatureCollection",
		Features:       items,
		Links:          make([]*gostac.Link, 0),
		NumberReturned: len(items),
	}
}

// AddLink adds a link to the ItemCollection.
func (ic *ItemCollection) AddLink(rel, href, mediaType string) {
	ic.Links = append(ic.Links, &gostac.Link{
		Rel:  rel,
		Href: href,
		Type: mediaType,
	})
}

// NewItem creates a new STAC Item with the given ID and collection.
func NewItem(id, collection, version string) *gostac.Item {
	return &gostac.Item{
		Version:    version,
		Id:         id,
		Collection: collection,
		Properties: make(map[string]any),
		Assets:     make(map[string]*gostac.Asset),
		Links:      make([]*gostac.Link, 0),
	}
}

// NewCollection creates the mosaic collection with an extent covering items.
func NewCollection(id, description, version string, items []*gostac.Item) *gostac.Collection {
	c := &gostac.Collection{
		Version:     version,
		Id:          id,
		Title:       "Deburst Sentinel-1 mosaics",
		Description: description,
		License:     "proprietary",
		Links:       make([]*gostac.Link, 0),
		Assets:      make(map[string]*gostac.Asset),
		Summaries:   make(map[string]any),
	}

	bbox := []float64{-180, -90, 180, 90}
	var start, end *time.Time
	first := true
	for _, item := range items {
		if len(item.Bbox) == 4 {
			if first {
				bbox = append([]float64(nil), item.Bbox...)
				first = false
			} else {
				bbox[0] = min(bbox[0], item.Bbox[0])
				bbox[1] = min(bbox[1], item.Bbox[1])
				bbox[2] = max(bbox[2], item.Bbox[2])
				bbox[3] = max(bbox[3], item.Bbox[3])
			}
		}
		if t, ok := item.Properties["start_datetime"].(time.Time); ok && (start == nil || t.Before(*start)) {
			start = &t
		}
		if t, ok := item.Properties["end_datetime"].(time.Time); ok && (end == nil || t.After(*end)) {
			end = &t
		}
	}

	interval := []any{nil, nil}
	if start != nil {
		interval[0] = FormatTime(*start)
	}
	if end != nil {
		interval[1] = FormatTime(*end)
	}
	c.Extent = &gostac.Extent{
		Spatial:  &gostac.SpatialExtent{Bbox: [][]float64{bbox}},
		Temporal: &gostac.TemporalExtent{Interval: [][]any{interval}},
	}
	c.Summaries["platform"] = []string{"sentinel-1a", "sentinel-1b", "sentinel-1c"}
	c.Summaries["sar:instrument_mode"] = []string{"IW", "EW"}

	return c
}

// FormatTime formats a time.Time as RFC3339 for STAC.
func FormatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}
