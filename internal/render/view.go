package render

import (
	"bytes"
	"html/template"
	"strings"
	"sync"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"

	"github.com/zhouzirui/research-desk/backend/internal/model/research"
)

// The goldmark instance is configured once and shared; Convert keeps its
// per-call state local.
var (
	markdownOnce sync.Once
	markdown     goldmark.Markdown
)

func markdownRenderer() goldmark.Markdown {
	markdownOnce.Do(func() {
		markdown = goldmark.New(
			goldmark.WithExtensions(extension.GFM),
		)
	})
	return markdown
}

// View is the display model of one aggregated state.
type View struct {
	Analysts    []research.Analyst `json:"analysts,omitempty"`
	FinalReport string             `json:"finalReport,omitempty"`
	ReportHTML  template.HTML      `json:"-"`
}

// HasAnalysts reports whether the analysts section should be shown.
func (v View) HasAnalysts() bool {
	return len(v.Analysts) > 0
}

// HasReport reports whether the report section should be shown.
func (v View) HasReport() bool {
	return strings.TrimSpace(v.FinalReport) != ""
}

// NewView builds the display model. Sections absent from state stay empty.
func NewView(state research.State) (View, error) {
	view := View{
		Analysts:    state.Analysts(),
		FinalReport: state.FinalReport(),
	}
	if !view.HasReport() {
		return view, nil
	}

	html, err := Markdown(view.FinalReport)
	if err != nil {
		return View{}, err
	}
	view.ReportHTML = html
	return view, nil
}

// Markdown converts markdown source to HTML. Raw HTML in the source is
// dropped by goldmark's default renderer.
func Markdown(source string) (template.HTML, error) {
	var buf bytes.Buffer
	if err := markdownRenderer().Convert([]byte(source), &buf); err != nil {
		return "", err
	}
	return template.HTML(buf.String()), nil
}
