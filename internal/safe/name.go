// Package safe locates the measurement and annotation files of a Sentinel-1
// SAFE product.
package safe

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

const nameTimeFormat = "20060102T150405"

// swathCounts is the number of sub-swaths per acquisition mode.
var swathCounts = map[string]int{
	"WV": 2,
	"IW": 3,
	"EW": 5,
	"SM": 6,
}

// polarisations maps the single/dual flag and the transmit polarisation to
// the recorded bands.
var polarisations = map[string]map[string][]string{
	"S": {"H": {"HH"}, "V": {"VV"}},
	"D": {"H": {"HH", "HV"}, "V": {"VV", "VH"}},
}

// ProductName is the decomposition of
// MMM_BB_TTTR_LFPP_YYYYMMDDTHHMMSS_YYYYMMDDTHHMMSS_OOOOOO_DDDDDD_CCCC.SAFE.
type ProductName struct {
	Platform          string    `json:"platform"`
	Mode              string    `json:"mode"`
	ProductType       string    `json:"product_type"`
	Level             string    `json:"processing_level"`
	Class             string    `json:"product_class"`
	Polarisation      string    `json:"polarisation"`
	Start             time.Time `json:"start_datetime"`
	Stop              time.Time `json:"end_datetime"`
	AbsoluteOrbit     int       `json:"absolute_orbit"`
	MissionDataTakeID string    `json:"mission_data_take_id"`
	UniqueID          string    `json:"unique_id"`

	name string
}

// ParseProductName decomposes a product name, with or without the .SAFE
// extension.
func ParseProductName(name string) (ProductName, error) {
	base := strings.TrimSuffix(strings.TrimSuffix(name, "/"), ".SAFE")
	fields := strings.FieldsFunc(base, func(r rune) bool { return r == '_' })
	if len(fields) != 9 {
		return ProductName{}, fmt.Errorf("%w: %q has %d fields, want 9", ErrInvalidProductName, name, len(fields))
	}

	n := ProductName{
		Platform:          fields[0],
		Mode:              fields[1],
		ProductType:       fields[2],
		MissionDataTakeID: fields[7],
		UniqueID:          fields[8],
		name:              base,
	}

	if _, ok := swathCounts[n.Mode]; !ok {
		return ProductName{}, fmt.Errorf("%w: unknown mode %q", ErrInvalidProductName, n.Mode)
	}

	lfpp := fields[3]
	if len(lfpp) != 4 {
		return ProductName{}, fmt.Errorf("%w: malformed level/class/polarisation %q", ErrInvalidProductName, lfpp)
	}
	n.Level, n.Class, n.Polarisation = lfpp[0:1], lfpp[1:2], lfpp[2:4]
	if _, ok := polarisations[lfpp[2:3]][lfpp[3:4]]; !ok {
		return ProductName{}, fmt.Errorf("%w: unknown polarisation %q", ErrInvalidProductName, n.Polarisation)
	}

	var err error
	if n.Start, err = time.Parse(nameTimeFormat, fields[4]); err != nil {
		return ProductName{}, fmt.Errorf("%w: start time: %w", ErrInvalidProductName, err)
	}
	if n.Stop, err = time.Parse(nameTimeFormat, fields[5]); err != nil {
		return ProductName{}, fmt.Errorf("%w: stop time: %w", ErrInvalidProductName, err)
	}
	if n.AbsoluteOrbit, err = strconv.Atoi(fields[6]); err != nil {
		return ProductName{}, fmt.Errorf("%w: absolute orbit %q", ErrInvalidProductName, fields[6])
	}

	return n, nil
}

// Bands returns the recorded polarisation bands, e.g. [VV VH].
func (n ProductName) Bands() []string {
	bands := polarisations[n.Polarisation[0:1]][n.Polarisation[1:2]]
	out := make([]string, len(bands))
	copy(out, bands)
	return out
}

// Swaths returns the number of sub-swaths of the acquisition mode.
func (n ProductName) Swaths() int { return swathCounts[n.Mode] }

// HasBand reports whether band was recorded, ignoring case.
func (n ProductName) HasBand(band string) bool {
	for _, b := range n.Bands() {
		if strings.EqualFold(b, band) {
			return true
		}
	}
	return false
}

// FilePrefix returns the lower-case prefix shared by the measurement and
// annotation files of one swath and band, e.g. "s1a-iw2-slc-vv-".
func (n ProductName) FilePrefix(swath int, band string) string {
	return strings.ToLower(fmt.Sprintf("%s-%s%d-%s-%s-", n.Platform, n.Mode, swath, n.ProductType, band))
}

// String returns the product name without the .SAFE extension.
func (n ProductName) String() string { return n.name }
