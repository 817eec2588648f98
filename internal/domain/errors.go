package domain

import "errors"

var (
	// ErrQuizNotFound indicates the quiz content could not be loaded.
	ErrQuizNotFound = errors.New("quiz not found")
	// ErrQuizNotPlayable is returned when an attempt is started on a quiz with no questions.
	ErrQuizNotPlayable = errors.New("quiz has no questions")
	// ErrInvalidQuiz wraps validation failures on authored quiz data.
	ErrInvalidQuiz = errors.New("invalid quiz")
	// ErrBadDocument is returned when an interchange document cannot be parsed at all.
	ErrBadDocument = errors.New("unreadable quiz document")
	// ErrGenerationFailed is returned when the remote generator rejects or fails a request.
	ErrGenerationFailed = errors.New("quiz generation failed")
)
