// Package export renders recipes as downloadable documents.
package export

import (
	"bytes"
	"fmt"
	"io"
	"strconv"

	"github.com/go-pdf/fpdf"
	"github.com/gosimple/slug"

	"recipe_hub/internal/common"
	"recipe_hub/internal/domain/model"
)

const (
	pageMargin      = 50.0
	lineHeight      = 18.0
	ingredientFloor = 100.0 // minimum distance from the bottom before a page break
	stepFloor       = 50.0
)

type rgb struct{ r, g, b int }

var (
	primaryColor   = rgb{0xD3, 0x2F, 0x2F}
	secondaryColor = rgb{0x5D, 0x40, 0x37}
	textColor      = rgb{0x21, 0x21, 0x21}
)

// Filename is the download name for a recipe's PDF.
func Filename(r *model.Recipe) string {
	name := slug.Make(r.Title)
	if name == "" {
		name = "recipe-" + r.ID
	}
	return name + ".pdf"
}

// RenderPDF writes r as an A4 PDF to w. Nothing is written to w when
// rendering fails.
func RenderPDF(r *model.Recipe, w io.Writer) error {
	doc := newDocument()
	doc.render(r)
	if err := doc.pdf.Error(); err != nil {
		return fmt.Errorf("render recipe %s: %w: %v", r.ID, common.ErrExport, err)
	}

	var buf bytes.Buffer
	if err := doc.pdf.Output(&buf); err != nil {
		return fmt.Errorf("output recipe %s: %w: %v", r.ID, common.ErrExport, err)
	}
	if _, err := buf.WriteTo(w); err != nil {
		return fmt.Errorf("write recipe %s: %w: %v", r.ID, common.ErrExport, err)
	}
	return nil
}

type document struct {
	pdf    *fpdf.Fpdf
	tr     func(string) string
	height float64
	y      float64
}

func newDocument() *document {
	pdf := fpdf.New("P", "pt", "A4", "")
	pdf.SetAutoPageBreak(false, 0)
	pdf.SetMargins(pageMargin, pageMargin, pageMargin)
	_, h := pdf.GetPageSize()
	return &document{
		pdf:    pdf,
		tr:     pdf.UnicodeTranslatorFromDescriptor(""),
		height: h,
	}
}

func (d *document) render(r *model.Recipe) {
	d.newPage()

	d.font("B", 22, primaryColor)
	d.text(pageMargin, r.Title)
	d.y += 30

	d.font("", 12, textColor)
	d.text(pageMargin, "Description: "+r.Description)
	d.y += 20

	d.text(pageMargin, "Time: "+r.Time)
	d.text(250, "Category: "+string(r.Category))
	d.text(430, "Calories: "+r.Calories)
	d.y += 30

	d.heading("Ingredients:")
	for _, ing := range r.Ingredients {
		d.text(60, "• "+ing)
		d.advance(ingredientFloor)
	}

	d.y += 10
	d.heading("Steps:")
	for i, step := range r.Steps {
		d.text(60, strconv.Itoa(i+1)+". "+step)
		d.advance(stepFloor)
	}
}

func (d *document) newPage() {
	d.pdf.AddPage()
	d.y = pageMargin
	d.font("", 12, textColor)
}

func (d *document) heading(s string) {
	d.font("B", 16, secondaryColor)
	d.text(pageMargin, s)
	d.y += 25
	d.font("", 12, textColor)
}

// advance moves to the next line and starts a new page once the cursor comes
// within floor points of the bottom edge.
func (d *document) advance(floor float64) {
	d.y += lineHeight
	if d.y > d.height-floor {
		d.newPage()
	}
}

func (d *document) font(style string, size float64, c rgb) {
	d.pdf.SetFont("Helvetica", style, size)
	d.pdf.SetTextColor(c.r, c.g, c.b)
}

func (d *document) text(x float64, s string) {
	d.pdf.Text(x, d.y, d.tr(s))
}
