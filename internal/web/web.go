// Package web renders the dashboard page and serves its static assets.
package web

import (
	"bytes"
	"context"
	"embed"
	"errors"
	"fmt"
	"html/template"
	"io"
	"io/fs"
	"net/http"
	"strconv"
	"time"

	"github.com/breatheroute/aqdash/internal/airquality"
	"github.com/breatheroute/aqdash/internal/config"
	"github.com/breatheroute/aqdash/internal/format"
	"github.com/breatheroute/aqdash/internal/page"
	"github.com/breatheroute/aqdash/internal/page/htmldom"
)

// SelectorStations is the element holding the station panel.
const SelectorStations = "#stations"

//go:embed templates/*.html
var templateFS embed.FS

//go:embed static
var staticFS embed.FS

// Data is the input of the dashboard template.
type Data struct {
	Title     string
	Config    config.Public
	Stations  []airquality.StationLevel
	FetchedAt time.Time
	Now       time.Time
}

// Renderer executes the dashboard template for one locale and time zone.
type Renderer struct {
	tmpl      *template.Template
	formatter format.Formatter
}

// NewRenderer parses the embedded templates.
func NewRenderer(formatter format.Formatter) (*Renderer, error) {
	tmpl, err := template.New("dashboard.html").Funcs(Funcs(formatter)).ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("parse templates: %w", err)
	}
	return &Renderer{tmpl: tmpl, formatter: formatter}, nil
}

// Funcs returns the template helpers bound to formatter.
func Funcs(f format.Formatter) template.FuncMap {
	return template.FuncMap{
		"formatTime":     f.Time,
		"formatInstant":  f.Instant,
		"formatDuration": f.Duration,
		"since":          f.Since,
		"aqLevel": func(pm25 float64) airquality.Level {
			return airquality.Classify(pm25)
		},
		"aqLabel": func(l airquality.Level) string {
			return l.LabelFor(f.Locale)
		},
		"pm": func(v float64) string {
			return strconv.FormatFloat(v, 'f', 1, 64)
		},
		"lang": func() string { return string(f.Locale) },
	}
}

// Render writes the dashboard page.
func (r *Renderer) Render(w io.Writer, data Data) error {
	if data.Title == "" {
		data.Title = "Air Quality Dashboard"
	}
	if data.Now.IsZero() {
		data.Now = time.Now()
	}
	return r.tmpl.ExecuteTemplate(w, "dashboard.html", data)
}

// RenderStations writes only the station panel.
func (r *Renderer) RenderStations(w io.Writer, data Data) error {
	if data.Now.IsZero() {
		data.Now = time.Now()
	}
	return r.tmpl.ExecuteTemplate(w, "stations", data)
}

// NewDocument renders the dashboard into a live document.
func (r *Renderer) NewDocument(data Data) (*htmldom.Document, error) {
	var buf bytes.Buffer
	if err := r.Render(&buf, data); err != nil {
		return nil, fmt.Errorf("render dashboard: %w", err)
	}
	return htmldom.Parse(&buf)
}

// StationSource supplies classified station levels.
type StationSource interface {
	StationLevels(ctx context.Context, cachedOnly bool) ([]airquality.StationLevel, time.Time, error)
}

// StationsViewConfig configures a StationsView.
type StationsViewConfig struct {
	Renderer *Renderer
	Document page.Document
	Source   StationSource

	// Toolkit re-activates widgets in the new panel. Optional.
	Toolkit page.Toolkit

	// Now defaults to time.Now.
	Now func() time.Time
}

// StationsView keeps the station panel of a live page in step with the
// cached snapshot.
type StationsView struct {
	cfg StationsViewConfig
}

// NewStationsView creates a StationsView.
func NewStationsView(cfg StationsViewConfig) *StationsView {
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &StationsView{cfg: cfg}
}

// Update re-renders the station panel from the cached snapshot. It never
// contacts the provider and leaves the panel alone while nothing is cached.
func (v *StationsView) Update(ctx context.Context) error {
	levels, fetchedAt, err := v.cfg.Source.StationLevels(ctx, true)
	if errors.Is(err, airquality.ErrCacheEmpty) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("load station levels: %w", err)
	}

	var buf bytes.Buffer
	if err := v.cfg.Renderer.RenderStations(&buf, Data{
		Stations:  levels,
		FetchedAt: fetchedAt,
		Now:       v.cfg.Now(),
	}); err != nil {
		return fmt.Errorf("render stations: %w", err)
	}

	panel, ok := v.cfg.Document.QuerySelector(SelectorStations)
	if !ok {
		return nil
	}
	panel.SetHTML(buf.String())
	if v.cfg.Toolkit != nil {
		page.InitWidgets(v.cfg.Document, v.cfg.Toolkit)
	}
	return nil
}

// StaticHandler serves the embedded assets under prefix.
func StaticHandler(prefix string) http.Handler {
	sub, err := fs.Sub(staticFS, "static")
	if err != nil {
		panic(err)
	}
	return http.StripPrefix(prefix, http.FileServer(http.FS(sub)))
}
