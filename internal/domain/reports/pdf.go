package reports

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/jung-kurt/gofpdf"
)

// CompensationPDF renders the per-department compensation report as a PDF
// and writes it to w.
func (s *Service) CompensationPDF(ctx context.Context, w io.Writer) error {
	rows, err := s.CompensationByDepartment(ctx)
	if err != nil {
		return err
	}

	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetTitle("Compensation Report", false)
	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 16)
	pdf.Cell(0, 10, "Compensation Report")
	pdf.Ln(8)
	pdf.SetFont("Helvetica", "", 9)
	pdf.Cell(0, 6, "Generated "+time.Now().UTC().Format("2006-01-02 15:04 MST"))
	pdf.Ln(10)

	colWidths := []float64{60, 22, 32, 32, 32}
	headers := []string{"Department", "Count", "Mean", "Min", "Max"}

	pdf.SetFont("Helvetica", "B", 10)
	pdf.SetFillColor(230, 230, 230)
	for i, h := range headers {
		pdf.CellFormat(colWidths[i], 8, h, "1", 0, "L", true, 0, "")
	}
	pdf.Ln(-1)

	pdf.SetFont("Helvetica", "", 10)
	for _, row := range rows {
		pdf.CellFormat(colWidths[0], 7, row.Department, "1", 0, "L", false, 0, "")
		pdf.CellFormat(colWidths[1], 7, fmt.Sprintf("%d", row.Stats.Count), "1", 0, "R", false, 0, "")
		pdf.CellFormat(colWidths[2], 7, row.Stats.Mean.StringFixed(2), "1", 0, "R", false, 0, "")
		pdf.CellFormat(colWidths[3], 7, row.Stats.Min.StringFixed(2), "1", 0, "R", false, 0, "")
		pdf.CellFormat(colWidths[4], 7, row.Stats.Max.StringFixed(2), "1", 0, "R", false, 0, "")
		pdf.Ln(-1)
	}

	if err := pdf.Output(w); err != nil {
		return fmt.Errorf("render compensation pdf: %w", err)
	}
	return nil
}
