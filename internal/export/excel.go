package export

import (
	"bytes"
	"fmt"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/recruitgenius/backend/internal/models"
)

const (
	SummarySheet     = "Summary"
	EvaluationsSheet = "Evaluations"
)

var evaluationHeaders = []string{
	"Rank", "Candidate", "Email", "Job", "Overall",
	"Technical", "Experience", "Education", "Soft Skills", "Cultural Fit",
	"Matched Skills", "Status", "Selected", "Recordings", "Transcribed", "Remarks", "Evaluated At",
}

// EvaluationsXLSX renders ranked evaluation rows as an xlsx workbook.
func EvaluationsXLSX(rows []models.EvaluationRow, generated time.Time) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", SummarySheet); err != nil {
		return nil, err
	}
	if _, err := f.NewSheet(EvaluationsSheet); err != nil {
		return nil, err
	}

	if err := writeSummary(f, rows, generated); err != nil {
		return nil, fmt.Errorf("summary sheet: %w", err)
	}
	if err := writeEvaluations(f, rows); err != nil {
		return nil, fmt.Errorf("evaluations sheet: %w", err)
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func writeSummary(f *excelize.File, rows []models.EvaluationRow, generated time.Time) error {
	_ = f.SetColWidth(SummarySheet, "A", "A", 24)
	_ = f.SetColWidth(SummarySheet, "B", "B", 30)

	label, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return err
	}

	var high, medium, low, selected int
	var total float64
	for _, r := range rows {
		switch models.LevelFor(r.OverallScore) {
		case models.LevelHigh:
			high++
		case models.LevelMedium:
			medium++
		default:
			low++
		}
		if r.SelectedForInterview {
			selected++
		}
		total += r.OverallScore
	}
	avg := 0.0
	if len(rows) > 0 {
		avg = total / float64(len(rows))
	}

	pairs := [][2]any{
		{"Generated", generated.UTC().Format(time.RFC3339)},
		{"Evaluations", len(rows)},
		{"Average score", fmt.Sprintf("%.1f", avg)},
		{"High (75+)", high},
		{"Medium (50-74)", medium},
		{"Low (<50)", low},
		{"Selected for interview", selected},
	}
	for i, p := range pairs {
		row := i + 1
		if err := f.SetCellValue(SummarySheet, fmt.Sprintf("A%d", row), p[0]); err != nil {
			return err
		}
		if err := f.SetCellValue(SummarySheet, fmt.Sprintf("B%d", row), p[1]); err != nil {
			return err
		}
		_ = f.SetCellStyle(SummarySheet, fmt.Sprintf("A%d", row), fmt.Sprintf("A%d", row), label)
	}
	return nil
}

func writeEvaluations(f *excelize.File, rows []models.EvaluationRow) error {
	header, err := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Color: "FFFFFF"},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"4472C4"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
	})
	if err != nil {
		return err
	}

	if err := f.SetSheetRow(EvaluationsSheet, "A1", &evaluationHeaders); err != nil {
		return err
	}
	last, _ := excelize.ColumnNumberToName(len(evaluationHeaders))
	_ = f.SetCellStyle(EvaluationsSheet, "A1", last+"1", header)
	_ = f.SetColWidth(EvaluationsSheet, "B", "D", 24)
	_ = f.SetColWidth(EvaluationsSheet, "K", "K", 40)
	_ = f.SetColWidth(EvaluationsSheet, "P", "P", 40)

	for i, r := range rows {
		vals := []any{
			i + 1,
			r.CandidateName,
			r.CandidateEmail,
			r.JobTitle,
			r.OverallScore,
			r.TechnicalScore,
			r.ExperienceScore,
			r.EducationScore,
			r.SoftSkillsScore,
			r.CultureScore,
			strings.Join(r.MatchedSkills, ", "),
			r.Status,
			yesNo(r.SelectedForInterview),
			r.RecordingCount,
			r.ProcessedCount,
			r.Remarks,
			r.CreatedAt.UTC().Format("2006-01-02 15:04"),
		}
		cell, _ := excelize.CoordinatesToCellName(1, i+2)
		if err := f.SetSheetRow(EvaluationsSheet, cell, &vals); err != nil {
			return err
		}
	}

	if len(rows) > 0 {
		_ = f.AutoFilter(EvaluationsSheet, fmt.Sprintf("A1:%s%d", last, len(rows)+1), nil)
	}
	return f.SetPanes(EvaluationsSheet, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	})
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}
