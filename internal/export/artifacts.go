package export

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/jpeg"
	"image/png"
	"regexp"
	"time"

	"ecoresiduos/internal/aggregate"
	"ecoresiduos/internal/chart"
	"ecoresiduos/internal/records"
)

// FullDatabaseSlug names raw-record exports of the whole dataset.
const FullDatabaseSlug = "base_de_datos_completa"

// JPEGQuality is used for lossy chart images.
const JPEGQuality = 92

const xmlHeader = `<?xml version="1.0" encoding="UTF-8"?>` + "\n"

// ErrNoCapturer is returned when a raster chart is requested without an
// off-screen surface.
var ErrNoCapturer = errors.New("export: no chart capturer configured")

// Results exports aggregation rows of one or more variables.
func Results(results []aggregate.Result, f Format, slug string, now time.Time) (Artifact, error) {
	var t Table
	for i, res := range results {
		rt := ResultTable(res)
		if i == 0 {
			t.Columns = rt.Columns
		}
		t.Rows = append(t.Rows, rt.Rows...)
	}
	if f == FormatJSON {
		payload, err := JSON(results)
		if err != nil {
			return Artifact{}, err
		}
		return NewArtifact(slug, f, now, payload), nil
	}
	payload, err := Encode(t, f)
	if err != nil {
		return Artifact{}, err
	}
	return NewArtifact(slug, f, now, payload), nil
}

// RawRecords exports records with their fields renamed to human-readable
// labels. Unmapped fields keep their names.
func RawRecords(rows []records.Record, f Format, slug string, now time.Time) (Artifact, error) {
	if slug == "" {
		slug = FullDatabaseSlug
	}
	var (
		payload []byte
		err     error
	)
	if f == FormatJSON {
		labelled := make([]map[string]any, len(rows))
		for i, r := range rows {
			m := make(map[string]any, len(r))
			for k, v := range r {
				m[records.Label(k)] = v
			}
			labelled[i] = m
		}
		payload, err = JSON(labelled)
	} else {
		payload, err = Encode(RecordTable(rows), f)
	}
	if err != nil {
		return Artifact{}, fmt.Errorf("export records: %w", err)
	}
	return NewArtifact(slug, f, now, payload), nil
}

// ChartImage exports a single chart at export geometry. PNG and JPEG are
// captured off-screen; SVG is rendered as vector markup and pinned.
func ChartImage(res aggregate.Result, kind chart.Kind, f Format, capturer chart.Capturer, now time.Time) (Artifact, error) {
	slug := Slug("grafico", res.VariableID, string(kind))
	switch f {
	case FormatSVG:
		markup, err := chart.SVG(res, kind, chart.Options{Mode: chart.ModeInteractive, Width: chart.ExportWidth})
		if err != nil {
			return Artifact{}, err
		}
		pinned, err := PinSVG(markup, chart.ExportWidth, chart.ExportHeight)
		if err != nil {
			return Artifact{}, err
		}
		return NewArtifact(slug, f, now, pinned), nil
	case FormatPNG, FormatJPEG:
		if capturer == nil {
			return Artifact{}, ErrNoCapturer
		}
		shot, err := capturer.Capture(res, kind)
		if err != nil {
			return Artifact{}, err
		}
		if f == FormatJPEG {
			if shot, err = pngToJPEG(shot); err != nil {
				return Artifact{}, err
			}
		}
		return NewArtifact(slug, f, now, shot), nil
	default:
		return Artifact{}, fmt.Errorf("%w: %s is not an image format", ErrUnsupportedFormat, f)
	}
}

func pngToJPEG(data []byte) ([]byte, error) {
	src, err := png.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode capture: %w", err)
	}
	flat := image.NewRGBA(src.Bounds())
	draw.Draw(flat, flat.Bounds(), &image.Uniform{C: color.White}, image.Point{}, draw.Src)
	draw.Draw(flat, flat.Bounds(), src, src.Bounds().Min, draw.Over)
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, flat, &jpeg.Options{Quality: JPEGQuality}); err != nil {
		return nil, fmt.Errorf("encode jpeg: %w", err)
	}
	return buf.Bytes(), nil
}

var (
	svgRoot      = regexp.MustCompile(`<svg\b[^>]*>`)
	sizeAttrs    = regexp.MustCompile(`\s(width|height|viewBox)="[^"]*"`)
	xmlDeclStart = []byte("<?xml")
)

// PinSVG rewrites the root element's width, height and viewBox to the given
// geometry and prefixes the XML declaration.
func PinSVG(markup []byte, width, height int) ([]byte, error) {
	loc := svgRoot.FindIndex(markup)
	if loc == nil {
		return nil, errors.New("export: markup has no svg root")
	}
	root := sizeAttrs.ReplaceAll(markup[loc[0]:loc[1]], nil)
	pinned := fmt.Sprintf(` width="%d" height="%d" viewBox="0 0 %d %d"`, width, height, width, height)
	root = append(root[:4:4], append([]byte(pinned), root[4:]...)...)

	var out bytes.Buffer
	if !bytes.HasPrefix(bytes.TrimSpace(markup), xmlDeclStart) {
		out.WriteString(xmlHeader)
	}
	out.Write(markup[:loc[0]])
	out.Write(root)
	out.Write(markup[loc[1]:])
	return out.Bytes(), nil
}
