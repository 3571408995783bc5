// Package annotation reads Sentinel-1 product annotation files into the
// burst metadata and control points the deburst core consumes.
package annotation

import (
	"encoding/xml"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
)

// Annotation is the subset of a product annotation file used for
// debursting.
type Annotation struct {
	XMLName          xml.Name         `xml:"product"`
	Header           Header           `xml:"adsHeader"`
	ImageInformation ImageInformation `xml:"imageAnnotation>imageInformation"`
	SwathTiming      SwathTiming      `xml:"swathTiming"`
	GeolocationGrid  []GridPoint      `xml:"geolocationGrid>geolocationGridPointList>geolocationGridPoint"`
}

// Header identifies the measurement an annotation describes.
type Header struct {
	MissionID         string `xml:"missionId"`
	ProductType       string `xml:"productType"`
	Polarisation      string `xml:"polarisation"`
	Mode              string `xml:"mode"`
	Swath             string `xml:"swath"`
	StartTime         Time   `xml:"startTime"`
	StopTime          Time   `xml:"stopTime"`
	AbsoluteOrbit     int    `xml:"absoluteOrbitNumber"`
	MissionDataTakeID int    `xml:"missionDataTakeId"`
	ImageNumber       string `xml:"imageNumber"`
}

// ImageInformation describes the measurement raster.
type ImageInformation struct {
	ProductFirstLineUTCTime Time    `xml:"productFirstLineUtcTime"`
	ProductLastLineUTCTime  Time    `xml:"productLastLineUtcTime"`
	AzimuthTimeInterval     float64 `xml:"azimuthTimeInterval"`
	RangePixelSpacing       float64 `xml:"rangePixelSpacing"`
	AzimuthPixelSpacing     float64 `xml:"azimuthPixelSpacing"`
	NumberOfSamples         int     `xml:"numberOfSamples"`
	NumberOfLines           int     `xml:"numberOfLines"`
}

// SwathTiming holds the burst list of a TOPSAR swath.
type SwathTiming struct {
	LinesPerBurst   int       `xml:"linesPerBurst"`
	SamplesPerBurst int       `xml:"samplesPerBurst"`
	BurstList       BurstList `xml:"burstList"`
}

// BurstList is the ordered list of bursts in a swath.
type BurstList struct {
	Count  int          `xml:"count,attr"`
	Bursts []BurstEntry `xml:"burst"`
}

// BurstEntry is one burst record.
type BurstEntry struct {
	AzimuthTime      Time    `xml:"azimuthTime"`
	AzimuthAnxTime   float64 `xml:"azimuthAnxTime"`
	SensingTime      Time    `xml:"sensingTime"`
	ByteOffset       int64   `xml:"byteOffset"`
	FirstValidSample IntList `xml:"firstValidSample"`
	LastValidSample  IntList `xml:"lastValidSample"`
}

// GridPoint is one geolocation grid point.
type GridPoint struct {
	AzimuthTime    Time    `xml:"azimuthTime"`
	SlantRangeTime float64 `xml:"slantRangeTime"`
	Line           float64 `xml:"line"`
	Pixel          float64 `xml:"pixel"`
	Latitude       float64 `xml:"latitude"`
	Longitude      float64 `xml:"longitude"`
	Height         float64 `xml:"height"`
	IncidenceAngle float64 `xml:"incidenceAngle"`
}

// IntList is a whitespace separated list of integers.
type IntList []int

// UnmarshalText implements encoding.TextUnmarshaler.
func (l *IntList) UnmarshalText(text []byte) error {
	fields := strings.Fields(string(text))
	out := make(IntList, len(fields))
	for i, f := range fields {
		v, err := strconv.Atoi(f)
		if err != nil {
			return fmt.Errorf("invalid integer %q at position %d: %w", f, i, err)
		}
		out[i] = v
	}
	*l = out
	return nil
}

// Parse decodes an annotation document.
func Parse(r io.Reader) (*Annotation, error) {
	var a Annotation
	if err := xml.NewDecoder(r).Decode(&a); err != nil {
		return nil, fmt.Errorf("failed to decode annotation: %w", err)
	}
	return &a, nil
}

// Load reads and decodes the annotation file at path.
func Load(path string) (*Annotation, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open annotation: %w", err)
	}
	defer f.Close()

	a, err := Parse(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return a, nil
}
