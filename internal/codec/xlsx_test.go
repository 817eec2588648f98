package codec

import (
	"bytes"
	"errors"
	"testing"

	"github.com/xuri/excelize/v2"

	"quizly-service/internal/domain"
)

func sampleQuiz() domain.Quiz {
	return domain.Quiz{
		ID:          "quiz-1",
		Title:       "World Capitals",
		Description: "A tour of capital cities",
		Topic:       "Geography",
		TimerMode:   domain.TimerTotalDuration,
		TimeLimit:   90,
		Questions: []domain.Question{
			{
				ID:          "q1",
				Text:        "Capital of France?",
				Explanation: "Paris has been the capital since 987.",
				ImageURL:    "https://example.com/paris.jpg",
				Options: []domain.Option{
					{ID: "o1", Text: "Paris", IsCorrect: true},
					{ID: "o2", Text: "Lyon", IsCorrect: false},
					{ID: "o3", Text: "Marseille", IsCorrect: false},
				},
			},
			{
				ID:   "q2",
				Text: "Capital of Japan?",
				Options: []domain.Option{
					{ID: "o4", Text: "Osaka", IsCorrect: false},
					{ID: "o5", Text: "Tokyo", IsCorrect: true},
				},
			},
		},
	}
}

func TestExportImportRoundTrip(t *testing.T) {
	quiz := sampleQuiz()

	data, err := Export(quiz)
	if err != nil {
		t.Fatalf("export: %v", err)
	}

	draft, err := Import(data)
	if err != nil {
		t.Fatalf("import: %v", err)
	}

	if draft.Title != quiz.Title || draft.Description != quiz.Description || draft.Topic != quiz.Topic {
		t.Fatalf("metadata mismatch: %+v", draft)
	}
	if draft.TimerMode != domain.TimerTotalDuration || draft.TimeLimit != 90 {
		t.Fatalf("timer config mismatch: mode=%s limit=%d", draft.TimerMode, draft.TimeLimit)
	}
	if len(draft.Questions) != len(quiz.Questions) {
		t.Fatalf("expected %d questions, got %d", len(quiz.Questions), len(draft.Questions))
	}

	for i, want := range quiz.Questions {
		got := draft.Questions[i]
		if got.Text != want.Text || got.Explanation != want.Explanation || got.ImageURL != want.ImageURL {
			t.Fatalf("question %d mismatch: %+v", i, got)
		}
		if len(got.Options) != len(want.Options) {
			t.Fatalf("question %d: expected %d options, got %d", i, len(want.Options), len(got.Options))
		}
		for j, opt := range want.Options {
			if got.Options[j].Text != opt.Text || got.Options[j].IsCorrect != opt.IsCorrect {
				t.Fatalf("question %d option %d mismatch: %+v", i, j, got.Options[j])
			}
			if got.Options[j].ID == opt.ID {
				t.Fatalf("imported options must get fresh identifiers")
			}
		}
		if got.ID == want.ID {
			t.Fatalf("imported questions must get fresh identifiers")
		}
	}
}

func TestImportDefaultsWithoutMetadataSheet(t *testing.T) {
	f := excelize.NewFile()
	rows := [][]interface{}{
		{"Question", "Option 1", "Is Correct 1", "Option 2", "Is Correct 2"},
		{"2+2?", "4", "TRUE", "5", "FALSE"},
	}
	for i, row := range rows {
		cell, _ := excelize.CoordinatesToCellName(1, i+1)
		if err := f.SetSheetRow("Sheet1", cell, &row); err != nil {
			t.Fatalf("build sheet: %v", err)
		}
	}
	buf, err := f.WriteToBuffer()
	if err != nil {
		t.Fatalf("write: %v", err)
	}

	draft, err := Import(buf.Bytes())
	if err != nil {
		t.Fatalf("import: %v", err)
	}

	if draft.Title != "Imported Quiz" || draft.Description != "Imported from Excel" || draft.Topic != "General" {
		t.Fatalf("expected metadata defaults, got %+v", draft)
	}
	if draft.TimerMode != domain.TimerPerQuestion || draft.TimeLimit != 30 {
		t.Fatalf("expected timer defaults, got mode=%s limit=%d", draft.TimerMode, draft.TimeLimit)
	}
	if len(draft.Questions) != 1 {
		t.Fatalf("expected 1 question from fallback sheet, got %d", len(draft.Questions))
	}
	q := draft.Questions[0]
	if q.Text != "2+2?" || len(q.Options) != 2 || !q.Options[0].IsCorrect || q.Options[1].IsCorrect {
		t.Fatalf("unexpected question %+v", q)
	}
}

func TestImportRowWithoutOptionsGetsTrueFalseFallback(t *testing.T) {
	f := excelize.NewFile()
	header := []interface{}{"Question", "Explanation"}
	row := []interface{}{"", "no options here"}
	_ = f.SetSheetRow("Sheet1", "A1", &header)
	_ = f.SetSheetRow("Sheet1", "A2", &row)
	buf, err := f.WriteToBuffer()
	if err != nil {
		t.Fatalf("write: %v", err)
	}

	draft, err := Import(buf.Bytes())
	if err != nil {
		t.Fatalf("import: %v", err)
	}
	if len(draft.Questions) != 1 {
		t.Fatalf("expected 1 question, got %d", len(draft.Questions))
	}
	q := draft.Questions[0]
	if q.Text != "Untitled Question" {
		t.Fatalf("expected untitled default, got %q", q.Text)
	}
	if len(q.Options) != 2 || q.Options[0].Text != "True" || !q.Options[0].IsCorrect ||
		q.Options[1].Text != "False" || q.Options[1].IsCorrect {
		t.Fatalf("expected True/False fallback, got %+v", q.Options)
	}
}

func TestImportParsesHandEditedMetadata(t *testing.T) {
	f := excelize.NewFile()
	_ = f.SetSheetName("Sheet1", "Questions")
	qrows := [][]interface{}{
		{"Question", "Option 1", "Is Correct 1", "Option 2", "Is Correct 2"},
		{"Pick", "yes", "true", "no", ""},
	}
	for i, row := range qrows {
		cell, _ := excelize.CoordinatesToCellName(1, i+1)
		_ = f.SetSheetRow("Questions", cell, &row)
	}
	_, _ = f.NewSheet("Metadata")
	mrows := [][]interface{}{
		{"Key", "Value"},
		{"Title", "Edited"},
		{"Timer Mode", "sideways"},
		{"Time Limit", "not-a-number"},
		{"Flavor", "ignored key"},
	}
	for i, row := range mrows {
		cell, _ := excelize.CoordinatesToCellName(1, i+1)
		_ = f.SetSheetRow("Metadata", cell, &row)
	}
	buf, err := f.WriteToBuffer()
	if err != nil {
		t.Fatalf("write: %v", err)
	}

	draft, err := Import(buf.Bytes())
	if err != nil {
		t.Fatalf("import: %v", err)
	}
	if draft.Title != "Edited" {
		t.Fatalf("expected title override, got %q", draft.Title)
	}
	if draft.TimerMode != domain.TimerPerQuestion {
		t.Fatalf("unrecognized timer mode must keep default, got %s", draft.TimerMode)
	}
	if draft.TimeLimit != 30 {
		t.Fatalf("unparseable time limit must fall back to 30, got %d", draft.TimeLimit)
	}
}

func TestImportRejectsCorruptDocument(t *testing.T) {
	_, err := Import(bytes.Repeat([]byte{0x42}, 64))
	if !errors.Is(err, domain.ErrBadDocument) {
		t.Fatalf("expected bad document error, got %v", err)
	}
}

func TestExportFileName(t *testing.T) {
	cases := []struct {
		title, want string
	}{
		{"World Capitals", "World_Capitals.xlsx"},
		{"", "quiz.xlsx"},
		{"C++ & Go!", "C_____Go_.xlsx"},
		{"plain", "plain.xlsx"},
	}
	for _, tc := range cases {
		if got := ExportFileName(tc.title); got != tc.want {
			t.Fatalf("ExportFileName(%q) = %q, want %q", tc.title, got, tc.want)
		}
	}
}
