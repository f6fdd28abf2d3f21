// Package pdf renders a submitted or in-progress form as a single-page
// PDF document: one US Letter page of positioned Helvetica text lines,
// with an optional watermark drawn under the text.
package pdf

import (
	"bytes"
	"fmt"
	"time"

	"github.com/go-pdf/fpdf"

	"hrdhat-backend/internal/config"
	"hrdhat-backend/internal/domain"
)

// Options control optional report sections.
type Options struct {
	IncludeSignatures bool    `json:"includeSignatures"`
	IncludeTimestamp  bool    `json:"includeTimestamp"`
	Quality           float64 `json:"quality"`
	Watermark         string  `json:"watermark"`
}

// DefaultOptions mirror the export dialog defaults.
func DefaultOptions() Options {
	return Options{IncludeSignatures: true, IncludeTimestamp: true, Quality: 0.95}
}

const (
	pageHeight = 792 // US Letter, points
	marginLeft = 54
	marginTop  = 64
	lineHeight = 16
)

// Generator renders drafts using the field schema for labels.
type Generator struct {
	schema *config.SchemaProvider
	clock  func() time.Time
}

// Option configures a Generator.
type Option func(*Generator)

// WithClock overrides the generator clock.
func WithClock(clock func() time.Time) Option {
	return func(g *Generator) { g.clock = clock }
}

// NewGenerator creates a PDF generator.
func NewGenerator(schema *config.SchemaProvider, opts ...Option) *Generator {
	g := &Generator{schema: schema, clock: time.Now}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Generate renders the draft as a PDF document.
func (g *Generator) Generate(draft domain.Draft, opts Options) ([]byte, error) {
	if opts.Quality < 0 || opts.Quality > 1 {
		return nil, fmt.Errorf("quality must be between 0 and 1, got %v", opts.Quality)
	}

	doc := fpdf.New("P", "pt", "Letter", "")
	// Uncompressed streams keep the text layer inspectable.
	doc.SetCompression(false)
	doc.SetTitle(draft.Title, true)
	doc.SetAutoPageBreak(false, 0)
	doc.AddPage()

	if opts.Watermark != "" {
		doc.SetFont("Helvetica", "B", 48)
		doc.SetTextColor(217, 217, 217)
		doc.Text(marginLeft, pageHeight/2, opts.Watermark)
		doc.SetTextColor(0, 0, 0)
	}

	y := float64(marginTop)
	for _, line := range g.buildLines(draft, opts) {
		y += line.gap
		doc.SetFont("Helvetica", line.style, line.size)
		doc.Text(marginLeft, y, line.text)
		y += lineHeight
		if y > pageHeight-marginLeft {
			break
		}
	}

	var buf bytes.Buffer
	if err := doc.Output(&buf); err != nil {
		return nil, fmt.Errorf("render pdf: %w", err)
	}
	return buf.Bytes(), nil
}

type textLine struct {
	text  string
	style string
	size  float64
	gap   float64 // extra vertical space before the line
}

func (g *Generator) buildLines(draft domain.Draft, opts Options) []textLine {
	lines := []textLine{
		{text: "HRDHat - Field Level Risk Assessment", style: "B", size: 18},
		{text: draft.Title, style: "B", size: 14, gap: 8},
		{text: "Form ID: " + draft.ID, size: 10},
		{text: "Created: " + draft.CreatedAt, size: 10},
		{text: "Last updated: " + draft.UpdatedAt, size: 10},
	}

	lines = append(lines, textLine{text: "General Information", style: "B", size: 13, gap: 12})
	info := draft.Data.GeneralInfo
	for _, field := range g.schema.GeneralInfoFields() {
		value := ""
		if info != nil {
			value = info.Field(field.Name)
		}
		if value == "" {
			value = "-"
		}
		lines = append(lines, textLine{text: field.Label + ": " + value, size: 10})
	}

	if len(draft.Data.Modules) > 0 {
		lines = append(lines, textLine{
			text: fmt.Sprintf("Additional modules completed: %d", len(draft.Data.Modules)),
			size: 10, gap: 12,
		})
	}

	if opts.IncludeSignatures {
		lines = append(lines,
			textLine{text: "Signatures", style: "B", size: 13, gap: 16},
			textLine{text: "Worker: ____________________________", size: 10, gap: 8},
			textLine{text: "Supervisor: ________________________", size: 10, gap: 8},
		)
	}

	if opts.IncludeTimestamp {
		lines = append(lines, textLine{
			text: "Generated: " + domain.FormatTimestamp(g.clock()),
			size: 8, gap: 16,
		})
	}
	return lines
}
