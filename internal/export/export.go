// Package export serialises tables, raw records and single charts into
// downloadable artifacts.
package export

import (
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Format identifies an artifact encoding.
type Format string

const (
	FormatCSV  Format = "csv"
	FormatXLSX Format = "xlsx"
	FormatJSON Format = "json"
	FormatPNG  Format = "png"
	FormatJPEG Format = "jpeg"
	FormatSVG  Format = "svg"
	FormatPDF  Format = "pdf"
	FormatDOC  Format = "doc"
)

var formatInfo = map[Format]struct {
	ext         string
	contentType string
}{
	FormatCSV:  {"csv", "text/csv; charset=utf-8"},
	FormatXLSX: {"xlsx", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"},
	FormatJSON: {"json", "application/json"},
	FormatPNG:  {"png", "image/png"},
	FormatJPEG: {"jpg", "image/jpeg"},
	FormatSVG:  {"svg", "image/svg+xml"},
	FormatPDF:  {"pdf", "application/pdf"},
	FormatDOC:  {"doc", "application/msword"},
}

// ErrUnsupportedFormat is returned for unknown formats and for formats that
// do not apply to the requested artifact.
var ErrUnsupportedFormat = errors.New("export: unsupported format")

// ParseFormat validates a user supplied format name.
func ParseFormat(s string) (Format, error) {
	f := Format(strings.ToLower(strings.TrimSpace(s)))
	if f == "jpg" {
		f = FormatJPEG
	}
	if _, ok := formatInfo[f]; !ok {
		return "", fmt.Errorf("%w %q", ErrUnsupportedFormat, s)
	}
	return f, nil
}

// Extension returns the filename extension without the dot.
func (f Format) Extension() string { return formatInfo[f].ext }

// ContentType returns the MIME type of the format.
func (f Format) ContentType() string { return formatInfo[f].contentType }

// Artifact is a finished file ready for download or storage.
type Artifact struct {
	Filename    string `json:"filename"`
	ContentType string `json:"content_type"`
	Payload     []byte `json:"-"`
}

// NewArtifact names the payload after slug and the date of t.
func NewArtifact(slug string, f Format, t time.Time, payload []byte) Artifact {
	return Artifact{
		Filename:    Filename(slug, f.Extension(), t),
		ContentType: f.ContentType(),
		Payload:     payload,
	}
}

// Filename builds "<slug>_YYYY-MM-DD.<ext>".
func Filename(slug, ext string, t time.Time) string {
	if slug == "" {
		slug = "exportacion"
	}
	return fmt.Sprintf("%s_%s.%s", slug, t.Format(time.DateOnly), ext)
}

// Slug joins the non-empty parts into a lowercase ASCII identifier with
// diacritics removed and runs of other characters collapsed to "_".
func Slug(parts ...string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	var b strings.Builder
	pending := false
	for _, part := range parts {
		s, _, err := transform.String(t, part)
		if err != nil {
			s = part
		}
		for _, r := range strings.ToLower(s) {
			if r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r)) {
				if pending && b.Len() > 0 {
					b.WriteByte('_')
				}
				pending = false
				b.WriteRune(r)
				continue
			}
			pending = true
		}
		pending = true
	}
	return b.String()
}
