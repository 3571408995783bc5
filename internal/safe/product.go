package safe

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// requiredEntries must exist directly under a SAFE directory.
var requiredEntries = []string{"annotation", "measurement", "manifest.safe", "preview"}

// Product is an opened SAFE directory.
type Product struct {
	Dir  string
	Name ProductName
}

// Files are the measurement raster and annotation of one swath and band.
type Files struct {
	Swath       int    `json:"swath"`
	Band        string `json:"band"`
	Measurement string `json:"measurement"`
	Annotation  string `json:"annotation"`
}

// Open validates the SAFE directory at dir and decomposes its name.
func Open(dir string) (*Product, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidSAFE, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%w: %s is not a directory", ErrInvalidSAFE, dir)
	}

	name, err := ParseProductName(filepath.Base(filepath.Clean(dir)))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidSAFE, err)
	}

	for _, entry := range requiredEntries {
		if _, err := os.Stat(filepath.Join(dir, entry)); err != nil {
			return nil, fmt.Errorf("%w: missing %s: %w", ErrInvalidSAFE, entry, err)
		}
	}

	return &Product{Dir: dir, Name: name}, nil
}

// Files locates the measurement and annotation of a swath, numbered from 1,
// and band.
func (p *Product) Files(swath int, band string) (Files, error) {
	if swath < 1 || swath > p.Name.Swaths() {
		return Files{}, fmt.Errorf("%w: swath %d outside 1..%d for mode %s", ErrNotFound, swath, p.Name.Swaths(), p.Name.Mode)
	}
	if !p.Name.HasBand(band) {
		return Files{}, fmt.Errorf("%w: band %s not in %v", ErrNotFound, band, p.Name.Bands())
	}

	prefix := p.Name.FilePrefix(swath, band)
	measurement, err := findFile(filepath.Join(p.Dir, "measurement"), prefix, ".tiff", ".tif")
	if err != nil {
		return Files{}, err
	}
	annotation, err := findFile(filepath.Join(p.Dir, "annotation"), prefix, ".xml")
	if err != nil {
		return Files{}, err
	}

	return Files{
		Swath:       swath,
		Band:        strings.ToUpper(band),
		Measurement: measurement,
		Annotation:  annotation,
	}, nil
}

// findFile returns the first regular file in dir, in name order, whose name
// starts with prefix and ends with one of exts.
func findFile(dir, prefix string, exts ...string) (string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", fmt.Errorf("failed to list %s: %w", dir, err)
	}

	for _, e := range entries {
		if e.IsDir() || e.Type()&fs.ModeType != 0 {
			continue
		}
		name := strings.ToLower(e.Name())
		if !strings.HasPrefix(name, prefix) {
			continue
		}
		for _, ext := range exts {
			if strings.HasSuffix(name, ext) {
				return filepath.Join(dir, e.Name()), nil
			}
		}
	}

	return "", fmt.Errorf("%w: no %s*%s in %s", ErrNotFound, prefix, strings.Join(exts, "|"), dir)
}
