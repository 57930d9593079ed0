package export

import (
	"bytes"
	"testing"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/recruitgenius/backend/internal/models"
)

func TestEvaluationsXLSX(t *testing.T) {
	rows := []models.EvaluationRow{
		{
			ResumeEvaluation: models.ResumeEvaluation{
				OverallScore:         88,
				TechnicalScore:       90,
				MatchedSkills:        []string{"Go", "Postgres"},
				Status:               models.EvaluationShortlisted,
				SelectedForInterview: true,
			},
			CandidateName:  "Jane Doe",
			CandidateEmail: "jane@example.com",
			JobTitle:       "Backend Engineer",
			RecordingCount: 3,
			ProcessedCount: 2,
		},
		{
			ResumeEvaluation: models.ResumeEvaluation{OverallScore: 41, Status: models.EvaluationPending},
			CandidateName:    "John Roe",
		},
	}

	data, err := EvaluationsXLSX(rows, time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("export: %v", err)
	}

	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) != 2 || sheets[0] != SummarySheet || sheets[1] != EvaluationsSheet {
		t.Fatalf("sheets = %v", sheets)
	}

	got, err := f.GetRows(EvaluationsSheet)
	if err != nil {
		t.Fatalf("rows: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("expected header + 2 rows, got %d", len(got))
	}
	if got[0][0] != "Rank" || got[0][1] != "Candidate" {
		t.Fatalf("header = %v", got[0])
	}
	if got[1][1] != "Jane Doe" || got[1][4] != "88" || got[1][10] != "Go, Postgres" || got[1][12] != "yes" {
		t.Fatalf("first row = %v", got[1])
	}
	if got[2][1] != "John Roe" || got[2][0] != "2" {
		t.Fatalf("second row = %v", got[2])
	}

	count, err := f.GetCellValue(SummarySheet, "B2")
	if err != nil || count != "2" {
		t.Fatalf("summary count = %q err=%v", count, err)
	}
	selected, _ := f.GetCellValue(SummarySheet, "B7")
	if selected != "1" {
		t.Fatalf("selected = %q", selected)
	}
}

func TestEvaluationsXLSXEmpty(t *testing.T) {
	data, err := EvaluationsXLSX(nil, time.Now())
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	if len(data) == 0 {
		t.Fatalf("expected a workbook")
	}
}
