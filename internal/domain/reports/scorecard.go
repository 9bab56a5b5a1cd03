package reports

import (
	"fmt"
	"io"
	"time"

	"github.com/jung-kurt/gofpdf"

	"kpireview/internal/domain/scoring"
	"kpireview/internal/domain/staff"
)

type ScoreCard struct {
	Staff       staff.Profile
	Reviewer    string
	Breakdown   scoring.Breakdown
	Trend       []scoring.Point
	GeneratedAt time.Time
}

// RenderPDF writes an A4 score card.
func RenderPDF(w io.Writer, card ScoreCard) error {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetTitle("KPI score card", false)
	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 16)
	pdf.Cell(0, 10, "KPI Score Card")
	pdf.Ln(12)

	pdf.SetFont("Helvetica", "", 11)
	pdf.Cell(0, 7, fmt.Sprintf("Staff: %s (%s)", card.Staff.DisplayName, card.Staff.Role))
	pdf.Ln(6)
	if card.Staff.PositionName != "" {
		pdf.Cell(0, 7, fmt.Sprintf("Position: %s", card.Staff.PositionName))
		pdf.Ln(6)
	}
	if card.Reviewer != "" {
		pdf.Cell(0, 7, fmt.Sprintf("Reviewed by: %s", card.Reviewer))
		pdf.Ln(6)
	}
	p := card.Breakdown.Period
	pdf.Cell(0, 7, fmt.Sprintf("Period: %s (%s to %s)", p.Key(), p.Start.Format("2006-01-02"), p.End.AddDate(0, 0, -1).Format("2006-01-02")))
	pdf.Ln(10)

	pdf.SetFont("Helvetica", "B", 11)
	pdf.CellFormat(70, 8, "KPI", "1", 0, "L", false, 0, "")
	pdf.CellFormat(30, 8, "Floor", "1", 0, "L", false, 0, "")
	pdf.CellFormat(20, 8, "Weight", "1", 0, "R", false, 0, "")
	pdf.CellFormat(20, 8, "Met", "1", 0, "C", false, 0, "")
	pdf.CellFormat(20, 8, "Earned", "1", 1, "R", false, 0, "")

	pdf.SetFont("Helvetica", "", 10)
	for _, row := range card.Breakdown.Rows {
		title := row.Title
		if title == "" {
			title = row.KPIID
		}
		if row.Removed {
			title += " (removed)"
		}
		met := "no"
		if row.Met {
			met = "yes"
		}
		pdf.CellFormat(70, 7, truncate(title, 38), "1", 0, "L", false, 0, "")
		pdf.CellFormat(30, 7, truncate(row.Floor, 16), "1", 0, "L", false, 0, "")
		pdf.CellFormat(20, 7, fmt.Sprintf("%d", row.Weight), "1", 0, "R", false, 0, "")
		pdf.CellFormat(20, 7, met, "1", 0, "C", false, 0, "")
		pdf.CellFormat(20, 7, fmt.Sprintf("%d", row.Earned), "1", 1, "R", false, 0, "")
		if !row.Met && row.Plan != "" {
			pdf.SetFont("Helvetica", "I", 9)
			pdf.MultiCell(160, 5, "Plan: "+row.Plan, "", "L", false)
			pdf.SetFont("Helvetica", "", 10)
		}
	}
	if len(card.Breakdown.Rows) == 0 {
		pdf.CellFormat(160, 7, "No reviews recorded in this period.", "1", 1, "C", false, 0, "")
	}
	pdf.Ln(6)

	pdf.SetFont("Helvetica", "B", 12)
	pdf.Cell(0, 8, fmt.Sprintf("Score: %d%% (%d of %d)", card.Breakdown.Score, card.Breakdown.Earned, card.Breakdown.Possible))
	pdf.Ln(10)

	if len(card.Trend) > 0 {
		pdf.SetFont("Helvetica", "B", 11)
		pdf.Cell(0, 7, "Trend")
		pdf.Ln(7)
		pdf.SetFont("Helvetica", "", 10)
		for _, pt := range card.Trend {
			pdf.Cell(0, 6, fmt.Sprintf("%s: %d%%", pt.Key, pt.Score))
			pdf.Ln(5)
		}
	}

	if !card.GeneratedAt.IsZero() {
		pdf.Ln(4)
		pdf.SetFont("Helvetica", "I", 8)
		pdf.Cell(0, 5, "Generated "+card.GeneratedAt.Format(time.RFC3339))
	}
	return pdf.Output(w)
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "..."
}
