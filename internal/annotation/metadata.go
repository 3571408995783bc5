package annotation

import (
	"context"
	"fmt"
	"time"

	"github.com/robert-malhotra/s1-deburst/internal/burst"
	"github.com/robert-malhotra/s1-deburst/internal/raster"
)

// Swath is the per-swath description carried by an annotation.
type Swath struct {
	Mission             string    `json:"mission"`
	Mode                string    `json:"mode"`
	Swath               string    `json:"swath"`
	Polarisation        string    `json:"polarisation"`
	ProductType         string    `json:"product_type"`
	Start               time.Time `json:"start"`
	Stop                time.Time `json:"stop"`
	AbsoluteOrbit       int       `json:"absolute_orbit"`
	LinesPerBurst       int       `json:"lines_per_burst"`
	SamplesPerBurst     int       `json:"samples_per_burst"`
	AzimuthTimeInterval float64   `json:"azimuth_time_interval"`
	NumberOfLines       int       `json:"number_of_lines"`
	NumberOfSamples     int       `json:"number_of_samples"`
	Bursts              int       `json:"bursts"`
}

// SwathMetadata returns the swath-level description.
func (a *Annotation) SwathMetadata() Swath {
	return Swath{
		Mission:             a.Header.MissionID,
		Mode:                a.Header.Mode,
		Swath:               a.Header.Swath,
		Polarisation:        a.Header.Polarisation,
		ProductType:         a.Header.ProductType,
		Start:               a.Header.StartTime.Time,
		Stop:                a.Header.StopTime.Time,
		AbsoluteOrbit:       a.Header.AbsoluteOrbit,
		LinesPerBurst:       a.SwathTiming.LinesPerBurst,
		SamplesPerBurst:     a.SwathTiming.SamplesPerBurst,
		AzimuthTimeInterval: a.ImageInformation.AzimuthTimeInterval,
		NumberOfLines:       a.ImageInformation.NumberOfLines,
		NumberOfSamples:     a.ImageInformation.NumberOfSamples,
		Bursts:              len(a.SwathTiming.BurstList.Bursts),
	}
}

// BurstMetadata returns the metadata of every burst in acquisition order.
func (a *Annotation) BurstMetadata() ([]burst.Metadata, error) {
	list := a.SwathTiming.BurstList
	if len(list.Bursts) == 0 {
		return nil, fmt.Errorf("%w: annotation lists no bursts", burst.ErrInconsistentMetadata)
	}
	if list.Count != 0 && list.Count != len(list.Bursts) {
		return nil, fmt.Errorf("%w: burst list count %d but %d bursts present",
			burst.ErrInconsistentMetadata, list.Count, len(list.Bursts))
	}

	metas := make([]burst.Metadata, len(list.Bursts))
	for i, b := range list.Bursts {
		metas[i] = burst.Metadata{
			LinesPerBurst:       a.SwathTiming.LinesPerBurst,
			SamplesPerBurst:     a.SwathTiming.SamplesPerBurst,
			AzimuthTimeInterval: a.ImageInformation.AzimuthTimeInterval,
			AzimuthAnxTime:      b.AzimuthAnxTime,
			FirstValidSample:    []int(b.FirstValidSample),
			LastValidSample:     []int(b.LastValidSample),
		}
	}
	return metas, nil
}

// Swath builds the burst swath described by the annotation.
func (a *Annotation) Swath() (*burst.Swath, error) {
	metas, err := a.BurstMetadata()
	if err != nil {
		return nil, err
	}
	return burst.NewSwath(metas)
}

// GroundControlPoints returns the geolocation grid as control points in raw
// raster coordinates, in file order.
func (a *Annotation) GroundControlPoints() []raster.GCP {
	gcps := make([]raster.GCP, len(a.GeolocationGrid))
	for i, p := range a.GeolocationGrid {
		gcps[i] = raster.GCP{
			Line:      p.Line,
			Pixel:     p.Pixel,
			Longitude: p.Longitude,
			Latitude:  p.Latitude,
			Elevation: p.Height,
		}
	}
	return gcps
}

// FileSource serves control points from annotation files on disk. The path
// passed to GroundControlPoints is the annotation file.
type FileSource struct{}

// GroundControlPoints implements raster.GCPSource.
func (FileSource) GroundControlPoints(ctx context.Context, path string) ([]raster.GCP, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	a, err := Load(path)
	if err != nil {
		return nil, err
	}
	return a.GroundControlPoints(), nil
}
