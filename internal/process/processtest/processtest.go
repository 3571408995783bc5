// Package processtest builds synthetic SAFE products for pipeline tests.
package processtest

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/robert-malhotra/s1-deburst/internal/geodesy"
	"github.com/robert-malhotra/s1-deburst/internal/raster"
)

// ProductName is the SAFE directory name of the synthetic product.
const ProductName = "S1A_IW_SLC__1SDV_20230111T060136_20230111T060203_046732_059A26_F5B0.SAFE"

// FileStem is the IW1 VV measurement and annotation file name without extension.
const FileStem = "s1a-iw1-slc-vv-20230111t060137-20230111t060203-046732-059a26-004"

// TrimmedFrame maps raw pixel and overlap-trimmed line to lon/lat.
var TrimmedFrame = geodesy.GeoTransform{-121.5, 1e-4, 1e-5, 37.5, -1e-5, -1e-4}

// OverlappingEpochs are burst epochs giving a 10-line overlap at the
// 0.002s line interval of AnnotationXML.
var OverlappingEpochs = []float64{0, 0.141, 0.282}

// AnnotationXML renders an annotation of 100-line bursts valid over
// [10, 90) x [5, 295) with the given epochs. withGrid adds a control
// point grid consistent with TrimmedFrame for 10-line overlaps.
func AnnotationXML(anx []float64, withGrid bool) string {
	var sb strings.Builder
	sb.WriteString(`<product><adsHeader><missionId>S1A</missionId><productType>SLC</productType>` +
		`<polarisation>VV</polarisation><mode>IW</mode><swath>IW1</swath>` +
		`<startTime>2023-01-11T06:01:37.000000</startTime><stopTime>2023-01-11T06:02:03.000000</stopTime>` +
		`</adsHeader><imageAnnotation><imageInformation><azimuthTimeInterval>0.002</azimuthTimeInterval>` +
		`<numberOfSamples>300</numberOfSamples>`)
	fmt.Fprintf(&sb, `<numberOfLines>%d</numberOfLines></imageInformation></imageAnnotation>`, 100*len(anx))
	sb.WriteString(`<swathTiming><linesPerBurst>100</linesPerBurst><samplesPerBurst>300</samplesPerBurst>`)
	fmt.Fprintf(&sb, `<burstList count="%d">`, len(anx))

	first := make([]string, 100)
	last := make([]string, 100)
	for i := range first {
		first[i], last[i] = "-1", "-1"
		if i >= 10 && i < 90 {
			first[i], last[i] = "5", "295"
		}
	}
	for _, t := range anx {
		fmt.Fprintf(&sb, `<burst><azimuthAnxTime>%g</azimuthAnxTime><firstValidSample>%s</firstValidSample>`+
			`<lastValidSample>%s</lastValidSample></burst>`, t, strings.Join(first, " "), strings.Join(last, " "))
	}
	sb.WriteString(`</burstList></swathTiming><geolocationGrid><geolocationGridPointList>`)

	if withGrid {
		for b := range anx {
			for _, local := range []int{0, 50, 99} {
				line := b*100 + local
				for _, pixel := range []int{0, 100, 200, 299} {
					lon, lat := TrimmedFrame.Apply(float64(pixel), float64(line-10*b))
					fmt.Fprintf(&sb, `<geolocationGridPoint><line>%d</line><pixel>%d</pixel>`+
						`<latitude>%.12f</latitude><longitude>%.12f</longitude><height>0</height></geolocationGridPoint>`,
						line, pixel, lat, lon)
				}
			}
		}
	}
	sb.WriteString(`</geolocationGridPointList></geolocationGrid></product>`)
	return sb.String()
}

// MakeProduct writes a SAFE directory under root holding one IW1 VV
// annotation and registers its measurement raster with the returned store.
// Raw pixel (x, y) holds complex(y, x).
func MakeProduct(t testing.TB, root string, anx []float64, withGrid bool) (string, *raster.MemoryStore) {
	t.Helper()
	dir := filepath.Join(root, ProductName)
	for _, d := range []string{"annotation", "measurement", "preview"} {
		if err := os.MkdirAll(filepath.Join(dir, d), 0o755); err != nil {
			t.Fatal(err)
		}
	}
	measurement := filepath.Join(dir, "measurement", FileStem+".tiff")
	files := []struct {
		path, content string
	}{
		{filepath.Join(dir, "manifest.safe"), ""},
		{measurement, ""},
		{filepath.Join(dir, "annotation", FileStem+".xml"), AnnotationXML(anx, withGrid)},
	}
	for _, f := range files {
		if err := os.WriteFile(f.path, []byte(f.content), 0o644); err != nil {
			t.Fatal(err)
		}
	}

	raw := raster.NewBlock(300, 100*len(anx))
	for y := 0; y < raw.Height; y++ {
		for x := 0; x < raw.Width; x++ {
			raw.Set(x, y, complex(float32(y), float32(x)))
		}
	}
	store := raster.NewMemoryStore()
	store.Put(measurement, raw)
	return dir, store
}
