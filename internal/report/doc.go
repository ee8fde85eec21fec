package report

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"html/template"
	"image"
	"image/color"
	_ "image/png" // decode captured charts

	"github.com/disintegration/imaging"
)

// Document images are resampled to this size, letterboxed on white.
const (
	DocImageWidth  = 600
	DocImageHeight = 375
	// PieBlurSigma softens rasterisation edges of pie charts.
	PieBlurSigma = 0.6
)

// DocRenderer writes a Plan as Word-compatible HTML.
type DocRenderer struct{}

// NewDocRenderer returns a document renderer.
func NewDocRenderer() *DocRenderer { return &DocRenderer{} }

type docFigure struct {
	Figure
	Src template.URL
}

type docBlock struct {
	Block
	Image *docFigure
}

type docView struct {
	Title  string
	Blocks []docBlock
}

// Render produces the document bytes of plan.
func (r *DocRenderer) Render(plan Plan) ([]byte, error) {
	view := docView{Title: plan.Title}
	for _, b := range plan.Blocks {
		db := docBlock{Block: b}
		if b.Kind == BlockFigure {
			f := docFigure{Figure: *b.Figure}
			if f.PNG != nil {
				src, err := docImage(f.PNG, f.Kind == "pie")
				if err != nil {
					f.Placeholder = placeholder(f.Title)
				} else {
					f.Src = src
					f.Width, f.Height = DocImageWidth, DocImageHeight
				}
			}
			db.Image = &f
		}
		view.Blocks = append(view.Blocks, db)
	}
	var buf bytes.Buffer
	if err := docTemplate.Execute(&buf, view); err != nil {
		return nil, fmt.Errorf("render document: %w", err)
	}
	return buf.Bytes(), nil
}

// docImage fits the chart into the document frame and returns a data URL.
func docImage(data []byte, pie bool) (template.URL, error) {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("decode chart image: %w", err)
	}
	framed := Letterbox(img, DocImageWidth, DocImageHeight)
	if pie {
		framed = imaging.Blur(framed, PieBlurSigma)
	}
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, framed, imaging.PNG); err != nil {
		return "", fmt.Errorf("encode chart image: %w", err)
	}
	return template.URL("data:image/png;base64," + base64.StdEncoding.EncodeToString(buf.Bytes())), nil
}

// Letterbox scales img to fit w×h keeping its aspect ratio and centres it on
// a white canvas of exactly w×h.
func Letterbox(img image.Image, w, h int) *image.NRGBA {
	fitted := imaging.Fit(img, w, h, imaging.Lanczos)
	canvas := imaging.New(w, h, color.White)
	return imaging.PasteCenter(canvas, fitted)
}

var docTemplate = template.Must(template.New("doc").Parse(`<html xmlns:o="urn:schemas-microsoft-com:office:office" xmlns:w="urn:schemas-microsoft-com:office:word" xmlns="http://www.w3.org/TR/REC-html40">
<head>
<meta charset="utf-8">
<title>{{.Title}}</title>
<style>
@page Section1 { size: 21cm 29.7cm; margin: 2cm 2cm 2cm 2cm; }
div.Section1 { page: Section1; }
body { font-family: Calibri, Arial, sans-serif; font-size: 11pt; }
h1 { font-size: 16pt; text-align: center; }
h2 { font-size: 13pt; margin-top: 18pt; mso-keep-with-next: always; page-break-after: avoid; }
p.meta { margin: 2pt 0; }
p.caption { font-size: 10pt; font-style: italic; margin: 6pt 0 3pt 0; mso-keep-with-next: always; page-break-after: avoid; }
p.note { font-size: 8pt; font-style: italic; margin: 3pt 0 12pt 0; }
p.notice { font-style: italic; color: #777777; }
p.footer { font-size: 9pt; font-style: italic; margin-top: 18pt; }
div.figure { page-break-inside: avoid; text-align: center; }
div.placeholder { border: 1pt solid #999999; background: #f5f5f5; color: #777777; padding: 12pt; font-style: italic; }
table { border-collapse: collapse; width: 100%; page-break-inside: avoid; }
th, td { border: 1pt solid #888888; padding: 2pt 4pt; font-size: 9pt; text-align: center; }
th { background: #d0e0d0; font-weight: bold; mso-keep-with-next: always; }
td.first { text-align: left; }
tr.group td { background: #e8f0e8; font-weight: bold; text-align: left; mso-keep-with-next: always; }
tr.total td, tr.average td { background: #f6f6f6; font-weight: bold; }
</style>
</head>
<body>
<div class="Section1">
{{- range .Blocks}}
{{- if eq .Kind "title"}}
<h1>{{.Text}}</h1>
{{- else if eq .Kind "meta"}}
<p class="meta">{{.Text}}</p>
{{- else if eq .Kind "heading"}}
<h2>{{.Text}}</h2>
{{- else if eq .Kind "figure"}}{{with .Image}}
<div class="figure">
<p class="caption">{{.Label}}. {{.Caption}}</p>
{{- if .Src}}
<img src="{{.Src}}" width="{{.Width}}" height="{{.Height}}" alt="{{.Caption}}">
{{- else}}
<div class="placeholder">{{.Placeholder}}</div>
{{- end}}
<p class="note">{{.Note}}</p>
</div>
{{- end}}
{{- else if eq .Kind "table"}}{{with .Table}}
<p class="caption">{{.Label}}. {{.Caption}}</p>
<table>
<tr>{{range .Columns}}<th>{{.}}</th>{{end}}</tr>
{{- $cols := len .Columns}}
{{- range .Rows}}
{{- if eq .Style "group"}}
<tr class="group"><td colspan="{{$cols}}">{{index .Cells 0}}</td></tr>
{{- else}}
<tr{{if .Style}} class="{{.Style}}"{{end}}>{{range $i, $c := .Cells}}<td{{if eq $i 0}} class="first"{{end}}>{{$c}}</td>{{end}}</tr>
{{- end}}
{{- end}}
</table>
<p class="note">{{.Note}}</p>
{{- end}}
{{- else if eq .Kind "notice"}}
<p class="notice">{{.Text}}</p>
{{- else if eq .Kind "footer"}}
<p class="footer">{{.Text}}</p>
{{- end}}
{{- end}}
</div>
</body>
</html>
`))
