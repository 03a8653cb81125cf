package export

import (
	"bytes"
	"fmt"

	"github.com/jung-kurt/gofpdf"
)

// Field is a labelled single value printed as "Label: value".
type Field struct {
	Label string
	Value string
}

// Section is a heading followed by free text or bullet lines.
type Section struct {
	Heading string
	Text    string
	Bullets []string
}

// Check is a yes/no item of a checklist.
type Check struct {
	Label   string
	Checked bool
}

// Document describes a single-record report such as an incident form.
type Document struct {
	Title    string
	Subtitle string
	Fields   []Field
	Sections []Section
	Checks   []Check
	Footer   string
}

// DocumentRenderer prints Documents as portrait A4 PDFs.
type DocumentRenderer struct{}

// NewDocumentRenderer constructs a renderer.
func NewDocumentRenderer() *DocumentRenderer {
	return &DocumentRenderer{}
}

// Render lays out the document and returns the PDF bytes.
func (r *DocumentRenderer) Render(doc Document) ([]byte, error) {
	if doc.Title == "" {
		return nil, fmt.Errorf("document requires a title")
	}
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(15, 15, 15)
	pdf.SetAutoPageBreak(true, 20)
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	if doc.Footer != "" {
		pdf.SetFooterFunc(func() {
			pdf.SetY(-15)
			pdf.SetFont("Arial", "I", 8)
			pdf.CellFormat(0, 10, tr(fmt.Sprintf("%s - %d", doc.Footer, pdf.PageNo())), "", 0, "C", false, 0, "")
		})
	}
	pdf.AddPage()

	pdf.SetFont("Arial", "B", 15)
	pdf.CellFormat(0, 10, tr(doc.Title), "", 1, "C", false, 0, "")
	if doc.Subtitle != "" {
		pdf.SetFont("Arial", "", 10)
		pdf.CellFormat(0, 6, tr(doc.Subtitle), "", 1, "C", false, 0, "")
	}
	pdf.Ln(6)

	for _, field := range doc.Fields {
		pdf.SetFont("Arial", "B", 10)
		pdf.CellFormat(45, 7, tr(field.Label+":"), "", 0, "", false, 0, "")
		pdf.SetFont("Arial", "", 10)
		pdf.MultiCell(0, 7, tr(orDash(field.Value)), "", "", false)
	}

	for _, section := range doc.Sections {
		pdf.Ln(3)
		pdf.SetFont("Arial", "B", 11)
		pdf.CellFormat(0, 8, tr(section.Heading), "B", 1, "", false, 0, "")
		pdf.SetFont("Arial", "", 10)
		if section.Text != "" {
			pdf.MultiCell(0, 6, tr(section.Text), "", "", false)
		}
		for _, line := range section.Bullets {
			pdf.MultiCell(0, 6, tr("- "+line), "", "", false)
		}
		if section.Text == "" && len(section.Bullets) == 0 {
			pdf.MultiCell(0, 6, "-", "", "", false)
		}
	}

	if len(doc.Checks) > 0 {
		pdf.Ln(3)
		pdf.SetFont("Arial", "B", 11)
		pdf.CellFormat(0, 8, tr("Verificaciones finales"), "B", 1, "", false, 0, "")
		pdf.SetFont("Arial", "", 10)
		for _, check := range doc.Checks {
			mark := "[ ]"
			if check.Checked {
				mark = "[X]"
			}
			pdf.MultiCell(0, 6, tr(mark+" "+check.Label), "", "", false)
		}
	}

	buf := &bytes.Buffer{}
	if err := pdf.Output(buf); err != nil {
		return nil, fmt.Errorf("render document: %w", err)
	}
	return buf.Bytes(), nil
}

func orDash(value string) string {
	if value == "" {
		return "-"
	}
	return value
}
