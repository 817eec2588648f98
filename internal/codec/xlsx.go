// Package codec implements the two-sheet xlsx interchange format for
// quizzes: a Metadata sheet of key/value rows and a Questions sheet with one
// row per question and a pair of columns per option slot.
package codec

import (
	"bytes"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/xuri/excelize/v2"

	"quizly-service/internal/domain"
)

const (
	questionsSheet = "Questions"
	metadataSheet  = "Metadata"

	colQuestion    = "Question"
	colExplanation = "Explanation"
	colImageURL    = "Image URL"
)

// Export serializes a quiz to an xlsx document. Rows in the Questions sheet
// are only as wide as their own option count; the header covers the widest
// question in the set.
func Export(quiz domain.Quiz) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", questionsSheet); err != nil {
		return nil, fmt.Errorf("export quiz: %w", err)
	}

	maxOptions := 0
	for _, q := range quiz.Questions {
		if len(q.Options) > maxOptions {
			maxOptions = len(q.Options)
		}
	}

	header := []interface{}{colQuestion, colExplanation, colImageURL}
	for i := 1; i <= maxOptions; i++ {
		header = append(header, fmt.Sprintf("Option %d", i), fmt.Sprintf("Is Correct %d", i))
	}
	if err := f.SetSheetRow(questionsSheet, "A1", &header); err != nil {
		return nil, fmt.Errorf("export quiz: %w", err)
	}

	for i, q := range quiz.Questions {
		row := []interface{}{q.Text, q.Explanation, q.ImageURL}
		for _, opt := range q.Options {
			row = append(row, opt.Text, opt.IsCorrect)
		}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return nil, fmt.Errorf("export quiz: %w", err)
		}
		if err := f.SetSheetRow(questionsSheet, cell, &row); err != nil {
			return nil, fmt.Errorf("export quiz: %w", err)
		}
	}

	if _, err := f.NewSheet(metadataSheet); err != nil {
		return nil, fmt.Errorf("export quiz: %w", err)
	}
	meta := [][]interface{}{
		{"Key", "Value"},
		{"Title", quiz.Title},
		{"Description", quiz.Description},
		{"Topic", quiz.Topic},
		{"Timer Mode", string(quiz.EffectiveTimerMode())},
		{"Time Limit", strconv.Itoa(quiz.EffectiveTimeLimit())},
	}
	for i, row := range meta {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return nil, fmt.Errorf("export quiz: %w", err)
		}
		if err := f.SetSheetRow(metadataSheet, cell, &row); err != nil {
			return nil, fmt.Errorf("export quiz: %w", err)
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("export quiz: %w", err)
	}
	return buf.Bytes(), nil
}

var fileNameSanitizer = regexp.MustCompile(`[^a-zA-Z0-9]`)

// ExportFileName derives a download filename from the quiz title,
// substituting non-alphanumeric characters and falling back to "quiz".
func ExportFileName(title string) string {
	name := fileNameSanitizer.ReplaceAllString(title, "_")
	if name == "" {
		name = "quiz"
	}
	return name + ".xlsx"
}

// Import parses an xlsx document of arbitrary origin into a draft. Every
// field is independently defaultable; only a structurally unreadable
// document fails the import, and then with a single error and no partial
// result.
func Import(data []byte) (domain.Draft, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return domain.Draft{}, fmt.Errorf("%w: %v", domain.ErrBadDocument, err)
	}
	defer f.Close()

	draft := domain.Draft{
		Title:       "Imported Quiz",
		Description: "Imported from Excel",
		Topic:       "General",
		TimerMode:   domain.TimerPerQuestion,
		TimeLimit:   domain.DefaultTimeLimit,
	}

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return domain.Draft{}, fmt.Errorf("%w: document has no sheets", domain.ErrBadDocument)
	}

	if containsSheet(sheets, metadataSheet) {
		applyMetadata(f, &draft)
	}

	source := sheets[0]
	if containsSheet(sheets, questionsSheet) {
		source = questionsSheet
	}
	rows, err := f.GetRows(source)
	if err != nil {
		return domain.Draft{}, fmt.Errorf("%w: %v", domain.ErrBadDocument, err)
	}
	if len(rows) == 0 {
		return draft, nil
	}

	cols := make(map[string]int, len(rows[0]))
	for i, name := range rows[0] {
		if _, ok := cols[name]; !ok {
			cols[name] = i
		}
	}

	for _, row := range rows[1:] {
		draft.Questions = append(draft.Questions, parseQuestionRow(cols, row))
	}
	return draft, nil
}

func parseQuestionRow(cols map[string]int, row []string) domain.Question {
	q := domain.Question{ID: uuid.NewString()}

	q.Text, _ = cellValue(cols, row, colQuestion)
	if q.Text == "" {
		q.Text = "Untitled Question"
	}
	q.Explanation, _ = cellValue(cols, row, colExplanation)
	q.ImageURL, _ = cellValue(cols, row, colImageURL)

	// A slot counts as present when its Option cell exists, even with empty
	// text. Is Correct coerces case-insensitively from "true"; anything else
	// (including absent) is false.
	for i := 1; i <= domain.MaxOptionsPerQuestion; i++ {
		text, present := cellValue(cols, row, fmt.Sprintf("Option %d", i))
		if !present {
			continue
		}
		correct, _ := cellValue(cols, row, fmt.Sprintf("Is Correct %d", i))
		q.Options = append(q.Options, domain.Option{
			ID:        uuid.NewString(),
			Text:      text,
			IsCorrect: strings.EqualFold(correct, "true"),
		})
	}

	// A row without any option cells still has to be playable.
	if len(q.Options) == 0 {
		q.Options = []domain.Option{
			{ID: uuid.NewString(), Text: "True", IsCorrect: true},
			{ID: uuid.NewString(), Text: "False", IsCorrect: false},
		}
	}
	return q
}

func applyMetadata(f *excelize.File, draft *domain.Draft) {
	rows, err := f.GetRows(metadataSheet)
	if err != nil || len(rows) < 2 {
		return
	}
	keyIdx, valIdx := -1, -1
	for i, name := range rows[0] {
		switch name {
		case "Key":
			keyIdx = i
		case "Value":
			valIdx = i
		}
	}
	if keyIdx < 0 || valIdx < 0 {
		return
	}
	for _, row := range rows[1:] {
		if keyIdx >= len(row) || valIdx >= len(row) {
			continue
		}
		value := row[valIdx]
		if value == "" {
			continue
		}
		switch row[keyIdx] {
		case "Title":
			draft.Title = value
		case "Description":
			draft.Description = value
		case "Topic":
			draft.Topic = value
		case "Timer Mode":
			// Unrecognized modes keep the per-question default.
			if mode := domain.TimerMode(value); mode == domain.TimerPerQuestion || mode == domain.TimerTotalDuration {
				draft.TimerMode = mode
			}
		case "Time Limit":
			if n, err := strconv.Atoi(value); err == nil && n > 0 {
				draft.TimeLimit = n
			}
		}
	}
}

// cellValue resolves a named column for one row, reporting whether the cell
// is present. Short rows simply lack their trailing cells.
func cellValue(cols map[string]int, row []string, name string) (string, bool) {
	idx, ok := cols[name]
	if !ok || idx >= len(row) {
		return "", false
	}
	return row[idx], true
}

func containsSheet(sheets []string, name string) bool {
	for _, s := range sheets {
		if s == name {
			return true
		}
	}
	return false
}
