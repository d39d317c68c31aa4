// Package htmlmap renders a dataset as a single self-contained Leaflet page.
package htmlmap

import (
	"bytes"
	"context"
	_ "embed"
	"encoding/json"
	"fmt"
	"html/template"
	"io"
	"log/slog"
	"time"

	"github.com/couchcryptid/cyberattack-map/internal/atomicfile"
	"github.com/couchcryptid/cyberattack-map/internal/domain"
)

//go:embed map.html.tmpl
var pageSource string

var page = template.Must(template.New("map").Parse(pageSource))

// Default initial view, used until markers are placed and whenever the
// filters hide every marker.
var (
	DefaultCenter = domain.Coordinates{Lat: 52.09, Lon: 5.12}
	DefaultZoom   = 7
)

// Options controls presentation details that are not part of the dataset.
type Options struct {
	Center domain.Coordinates
	Zoom   int
	// SentinelLabel names the sentinel organisation in the legend and filters.
	SentinelLabel string
}

// DefaultOptions returns the standard view over the Netherlands.
func DefaultOptions() Options {
	return Options{Center: DefaultCenter, Zoom: DefaultZoom, SentinelLabel: "AddComm"}
}

type pageData struct {
	Title         string
	Region        string
	AttackTypes   []string
	IncidentsJSON template.JS
	Count         int
	DateFrom      string
	DateTo        string
	Center        domain.Coordinates
	Zoom          int
	SentinelLabel string
	GeneratedAt   string
}

// EncodeIncidents serializes incidents for inline embedding in a script
// element. encoding/json escapes <, > and & so the payload can never close
// the surrounding tag.
func EncodeIncidents(incidents []domain.Incident) ([]byte, error) {
	if incidents == nil {
		incidents = []domain.Incident{}
	}
	b, err := json.Marshal(incidents)
	if err != nil {
		return nil, fmt.Errorf("encode incidents: %w", err)
	}
	return b, nil
}

// Render writes the HTML document for ds to w.
func Render(w io.Writer, ds domain.Dataset, opts Options) error {
	data, err := EncodeIncidents(ds.Incidents)
	if err != nil {
		return err
	}
	attackTypes := ds.AttackTypes
	if attackTypes == nil {
		attackTypes = domain.AttackTypes(ds.Incidents)
	}

	return page.Execute(w, pageData{
		Title:         ds.Title,
		Region:        ds.Region,
		AttackTypes:   attackTypes,
		IncidentsJSON: template.JS(data), //nolint:gosec // produced by json.Marshal, HTML-safe
		Count:         len(ds.Incidents),
		DateFrom:      ds.DateFrom,
		DateTo:        ds.DateTo,
		Center:        opts.Center,
		Zoom:          opts.Zoom,
		SentinelLabel: opts.SentinelLabel,
		GeneratedAt:   ds.GeneratedAt.UTC().Format(time.RFC3339),
	})
}

// Renderer is the pipeline loader that writes the map document to a file.
type Renderer struct {
	path   string
	opts   Options
	logger *slog.Logger
}

// NewRenderer creates a Renderer writing to path.
func NewRenderer(path string, opts Options, logger *slog.Logger) *Renderer {
	return &Renderer{path: path, opts: opts, logger: logger}
}

// Name identifies the sink in logs and metrics.
func (r *Renderer) Name() string { return "html" }

// Path returns the output file path.
func (r *Renderer) Path() string { return r.path }

// Load renders ds and replaces the output file.
func (r *Renderer) Load(_ context.Context, ds domain.Dataset) error {
	var buf bytes.Buffer
	if err := Render(&buf, ds, r.opts); err != nil {
		return fmt.Errorf("render map: %w", err)
	}
	if err := atomicfile.Write(r.path, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("write map %s: %w", r.path, err)
	}
	r.logger.Info("map written", "path", r.path, "incidents", len(ds.Incidents), "bytes", buf.Len())
	return nil
}
