package domain

import (
	"fmt"

	"github.com/go-playground/validator/v10"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterStructValidation(oneCorrectOption, Question{})
	return v
}

// oneCorrectOption enforces the authoring invariant that exactly one option
// is flagged correct. Tolerant inputs (import, generation) are normalized
// before they reach validation.
func oneCorrectOption(sl validator.StructLevel) {
	q := sl.Current().Interface().(Question)
	correct := 0
	for _, opt := range q.Options {
		if opt.IsCorrect {
			correct++
		}
	}
	if correct != 1 {
		sl.ReportError(q.Options, "Options", "options", "onecorrect", "")
	}
}

// ValidateQuiz checks that a quiz is playable and unambiguous: a title, at
// least one question, 2-6 options each, exactly one correct per question.
func ValidateQuiz(q Quiz) error {
	if err := validate.Struct(q); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidQuiz, err)
	}
	return nil
}

// Normalize resolves ambiguous correctness flags on a draft before it is
// saved: the first option flagged correct wins; if none is flagged the first
// option becomes correct. Questions with fewer than two options gain a
// True/False pair so every question stays playable.
func (d *Draft) Normalize() {
	for i := range d.Questions {
		q := &d.Questions[i]
		if len(q.Options) == 0 {
			q.Options = []Option{
				{Text: "True", IsCorrect: true},
				{Text: "False", IsCorrect: false},
			}
			continue
		}
		seen := false
		for j := range q.Options {
			if q.Options[j].IsCorrect {
				if seen {
					q.Options[j].IsCorrect = false
				}
				seen = true
			}
		}
		if !seen {
			q.Options[0].IsCorrect = true
		}
	}
}
