package pdfgen

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-pdf/fpdf"
)

// Document is the content of a rendered report artifact.
type Document struct {
	Title       string
	GeneratedAt time.Time
	AISummary   string
	RawText     string
}

// Write renders the report PDF to path. Layout is a title block with the
// generation date, the AI summary section, then the raw OCR text in a
// monospace face.
func Write(path string, doc Document) error {
	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetAutoPageBreak(true, 18)
	pdf.AddPage()
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	title := strings.TrimSpace(doc.Title)
	if title == "" {
		title = "Document Report"
	}
	pdf.SetFont("Helvetica", "B", 18)
	pdf.MultiCell(0, 9, tr(title), "", "L", false)

	pdf.SetFont("Helvetica", "", 10)
	pdf.SetTextColor(110, 110, 110)
	pdf.CellFormat(0, 6, tr("Generated on "+doc.GeneratedAt.Format("January 2, 2006 15:04")), "", 1, "L", false, 0, "")
	pdf.SetTextColor(0, 0, 0)
	pdf.Ln(4)

	writeSection(pdf, tr, "AI Summary", doc.AISummary, "Helvetica", 11)
	pdf.Ln(4)
	writeSection(pdf, tr, "Raw OCR Text", doc.RawText, "Courier", 9)

	if err := pdf.OutputFileAndClose(path); err != nil {
		return fmt.Errorf("write pdf: %w", err)
	}
	return nil
}

func writeSection(pdf *fpdf.Fpdf, tr func(string) string, heading, body, bodyFont string, bodySize float64) {
	pdf.SetFont("Helvetica", "B", 14)
	pdf.CellFormat(0, 8, tr(heading), "", 1, "L", false, 0, "")
	pdf.SetDrawColor(200, 200, 200)
	x, y := pdf.GetX(), pdf.GetY()
	pdf.Line(x, y, x+180, y)
	pdf.Ln(3)

	text := strings.TrimSpace(body)
	if text == "" {
		text = "(empty)"
	}
	pdf.SetFont(bodyFont, "", bodySize)
	pdf.MultiCell(0, 5, tr(text), "", "L", false)
}
