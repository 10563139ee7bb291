package export

import (
	"bytes"
	"fmt"
	"time"

	"github.com/jung-kurt/gofpdf"
)

// Slip is the confirmation handed to a parent after an admissions submission.
type Slip struct {
	School            string
	ApplicationNumber string
	StudentName       string
	Program           string
	Grade             string
	ParentName        string
	ParentEmail       string
	SubmittedAt       time.Time
}

// RenderSlip draws a single page confirmation slip.
func RenderSlip(s Slip) ([]byte, error) {
	if s.ApplicationNumber == "" {
		return nil, fmt.Errorf("slip requires an application number")
	}
	pdf := gofpdf.New("P", "mm", "A5", "")
	pdf.SetMargins(12, 15, 12)
	pdf.AddPage()
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	pdf.SetFont("Arial", "B", 15)
	pdf.CellFormat(0, 9, tr(s.School), "", 1, "C", false, 0, "")
	pdf.SetFont("Arial", "", 11)
	pdf.CellFormat(0, 7, "Admission Application Confirmation", "", 1, "C", false, 0, "")
	pdf.Ln(6)

	pdf.SetFont("Arial", "B", 20)
	pdf.SetFillColor(230, 236, 245)
	pdf.CellFormat(0, 14, s.ApplicationNumber, "1", 1, "C", true, 0, "")
	pdf.Ln(6)

	rows := [][2]string{
		{"Student", s.StudentName},
		{"Program", s.Program},
		{"Grade", s.Grade},
		{"Parent / Guardian", s.ParentName},
		{"Email", s.ParentEmail},
		{"Submitted", s.SubmittedAt.Format("02 Jan 2006 15:04")},
	}
	for _, row := range rows {
		pdf.SetFont("Arial", "B", 10)
		pdf.CellFormat(42, 8, row[0], "B", 0, "", false, 0, "")
		pdf.SetFont("Arial", "", 10)
		pdf.CellFormat(0, 8, tr(row[1]), "B", 1, "", false, 0, "")
	}

	pdf.Ln(8)
	pdf.SetFont("Arial", "I", 9)
	pdf.MultiCell(0, 5, "Keep this application number for your records. The admissions office will contact you by email once your application has been reviewed.", "", "L", false)

	buf := &bytes.Buffer{}
	if err := pdf.Output(buf); err != nil {
		return nil, fmt.Errorf("render slip: %w", err)
	}
	return buf.Bytes(), nil
}
