package reports

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"ecoresiduos/internal/blob"
	"ecoresiduos/internal/catalog"
	"ecoresiduos/internal/chart"
	"ecoresiduos/internal/export"
	"ecoresiduos/internal/observability"
	"ecoresiduos/internal/records"
	"ecoresiduos/internal/report"
)

const apiPrefix = "/api/v1"

// Handler provides HTTP access to the catalog, aggregations, chart and
// tabular downloads, queued report exports and stored artifacts.
type Handler struct {
	Exporter *Exporter
	Exports  ExportScheduler
	Store    blob.Store
	// Metrics serves /metrics when set.
	Metrics http.Handler
	Logger  observability.Logger
}

// NewHandler constructs a reports HTTP handler.
func NewHandler(e *Exporter) *Handler {
	return &Handler{Exporter: e, Logger: observability.NopLogger()}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if h.Exporter == nil {
		writeError(w, http.StatusInternalServerError, "exporter not configured")
		return
	}

	path := strings.TrimSuffix(r.URL.Path, "/")
	switch {
	case path == "/metrics" && h.Metrics != nil:
		h.Metrics.ServeHTTP(w, r)
	case path == apiPrefix+"/catalog":
		h.get(w, r, h.handleCatalog)
	case path == apiPrefix+"/aggregations":
		h.get(w, r, h.handleAggregations)
	case path == apiPrefix+"/charts":
		h.get(w, r, h.handleChart)
	case path == apiPrefix+"/records/export":
		h.get(w, r, h.handleRecordsExport)
	case strings.HasPrefix(path, apiPrefix+"/reports/exports"):
		if h.Exports == nil {
			http.NotFound(w, r)
			return
		}
		h.handleExports(w, r, path)
	case strings.HasPrefix(path, apiPrefix+"/artifacts/"):
		if h.Store == nil {
			http.NotFound(w, r)
			return
		}
		h.get(w, r, func(w http.ResponseWriter, r *http.Request) {
			h.handleArtifact(w, r, strings.TrimPrefix(path, apiPrefix+"/artifacts/"))
		})
	default:
		http.NotFound(w, r)
	}
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request, fn http.HandlerFunc) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	fn(w, r)
}

type sectionView struct {
	ID          string               `json:"id"`
	Title       string               `json:"title"`
	Demographic bool                 `json:"demographic"`
	Likert      bool                 `json:"likert"`
	Variables   []catalog.Descriptor `json:"variables"`
}

func (h *Handler) handleCatalog(w http.ResponseWriter, _ *http.Request) {
	sections := h.Exporter.Catalog().Sections()
	out := make([]sectionView, 0, len(sections))
	for _, s := range sections {
		view := sectionView{ID: s.ID, Title: s.Title, Demographic: s.Demographic, Likert: s.IsLikert()}
		for _, v := range s.Variables {
			view.Variables = append(view.Variables, v.Describe())
		}
		if p, ok := s.Pooled(); ok {
			view.Variables = append(view.Variables, p.Describe())
		}
		out = append(out, view)
	}
	writeJSON(w, http.StatusOK, map[string]any{"sections": out})
}

func (h *Handler) handleAggregations(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filters, err := records.ParseFilters(q["filter"])
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	results, err := h.Exporter.Aggregate(r.Context(), q.Get("dataset"), q.Get("section"), q.Get("variable"), filters)
	if err != nil {
		writeError(w, statusFor(err), err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"filters": filters.Summary(),
		"results": results,
	})
}

func (h *Handler) handleChart(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filters, err := records.ParseFilters(q["filter"])
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	kind, err := chart.ParseKind(q.Get("kind"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if format := q.Get("format"); format != "" {
		f, err := export.ParseFormat(format)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		h.download(w, r, ExportInput{
			Kind:      KindChart,
			Dataset:   q.Get("dataset"),
			Format:    f,
			Section:   q.Get("section"),
			Variable:  q.Get("variable"),
			ChartKind: kind,
			Filters:   filters,
		})
		return
	}
	if q.Get("variable") == "" {
		writeError(w, http.StatusBadRequest, "variable required")
		return
	}
	results, err := h.Exporter.Aggregate(r.Context(), q.Get("dataset"), q.Get("section"), q.Get("variable"), filters)
	if err != nil {
		writeError(w, statusFor(err), err.Error())
		return
	}
	width, _ := strconv.Atoi(q.Get("width"))
	compact, _ := strconv.ParseBool(q.Get("compact"))
	svg, err := chart.SVG(results[0], kind, chart.Options{Mode: chart.ModeInteractive, Width: width, Compact: compact})
	if err != nil {
		writeError(w, statusFor(err), err.Error())
		return
	}
	w.Header().Set("Content-Type", "image/svg+xml")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(svg)
}

func (h *Handler) handleRecordsExport(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filters, err := records.ParseFilters(q["filter"])
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	format := q.Get("format")
	if format == "" {
		format = string(export.FormatCSV)
	}
	f, err := export.ParseFormat(format)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	kind := KindRecords
	if q.Get("section") != "" {
		kind = KindResults
	}
	h.download(w, r, ExportInput{
		Kind:     kind,
		Dataset:  q.Get("dataset"),
		Format:   f,
		Section:  q.Get("section"),
		Variable: q.Get("variable"),
		Filters:  filters,
	})
}

// download renders in synchronously and streams it as an attachment.
func (h *Handler) download(w http.ResponseWriter, r *http.Request, in ExportInput) {
	artifact, err := h.Exporter.Render(r.Context(), in)
	if err != nil {
		writeError(w, statusFor(err), err.Error())
		return
	}
	writeAttachment(w, artifact.Filename, artifact.ContentType, artifact.Payload)
}

func (h *Handler) handleExports(w http.ResponseWriter, r *http.Request, path string) {
	if path == apiPrefix+"/reports/exports" {
		if r.Method != http.MethodPost {
			writeError(w, http.StatusMethodNotAllowed, "method not allowed")
			return
		}
		h.handleExportCreate(w, r)
		return
	}
	if !strings.HasPrefix(path, apiPrefix+"/reports/exports/") {
		http.NotFound(w, r)
		return
	}
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	id := strings.TrimPrefix(path, apiPrefix+"/reports/exports/")
	record, ok := h.Exports.GetExport(id)
	if !ok {
		writeError(w, http.StatusNotFound, "export not found")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"export": record})
}

func (h *Handler) handleExportCreate(w http.ResponseWriter, r *http.Request) {
	var in ExportInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, http.StatusBadRequest, "invalid export request payload")
		return
	}
	if in.Kind == "" {
		in.Kind = KindReport
	}
	record, err := h.Exports.EnqueueExport(r.Context(), in)
	if err != nil {
		status := statusFor(err)
		if errors.Is(err, ErrQueueFull) || errors.Is(err, ErrWorkerStopped) {
			status = http.StatusServiceUnavailable
		}
		writeError(w, status, err.Error())
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]any{"export": record})
}

func (h *Handler) handleArtifact(w http.ResponseWriter, r *http.Request, key string) {
	info, body, err := h.Store.Get(r.Context(), key)
	if err != nil {
		if errors.Is(err, blob.ErrNotFound) {
			writeError(w, http.StatusNotFound, "artifact not found")
			return
		}
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	defer func() { _ = body.Close() }()
	filename := info.Metadata["filename"]
	if filename == "" {
		filename = key[strings.LastIndex(key, "/")+1:]
	}
	w.Header().Set("Content-Type", info.ContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	if info.Size > 0 {
		w.Header().Set("Content-Length", strconv.FormatInt(info.Size, 10))
	}
	w.WriteHeader(http.StatusOK)
	if _, err := io.Copy(w, body); err != nil {
		h.logger().Warn("artifact stream interrupted", "key", key, "error", err)
	}
}

func (h *Handler) logger() observability.Logger {
	if h.Logger == nil {
		return observability.NopLogger()
	}
	return h.Logger
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, catalog.ErrUnknownSection), errors.Is(err, catalog.ErrUnknownVariable):
		return http.StatusNotFound
	case errors.Is(err, report.ErrEmptySelection),
		errors.Is(err, ErrInvalidExport),
		errors.Is(err, chart.ErrUnsupportedKind),
		errors.Is(err, export.ErrUnsupportedFormat):
		return http.StatusBadRequest
	case errors.Is(err, export.ErrNoCapturer):
		return http.StatusNotImplemented
	default:
		return http.StatusInternalServerError
	}
}

func writeAttachment(w http.ResponseWriter, filename, contentType string, payload []byte) {
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	w.Header().Set("Content-Length", strconv.Itoa(len(payload)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(payload)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
