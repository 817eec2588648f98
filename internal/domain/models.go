package domain

// TimerMode selects the countdown discipline for a quiz attempt.
type TimerMode string

const (
	// TimerPerQuestion resets the countdown at every question boundary.
	TimerPerQuestion TimerMode = "per-question"
	// TimerTotalDuration runs one countdown across the whole attempt.
	TimerTotalDuration TimerMode = "total-duration"
)

const (
	// DefaultTimeLimit is the countdown length, in seconds, used when a quiz
	// carries no explicit limit.
	DefaultTimeLimit = 30
	// MaxOptionsPerQuestion caps the option slots recognized by authoring and import.
	MaxOptionsPerQuestion = 6
)

// Option represents a possible answer for a question.
type Option struct {
	ID        string `json:"id"`
	Text      string `json:"text"`
	IsCorrect bool   `json:"isCorrect"`
}

// Question models an MCQ question with exactly one correct option.
type Question struct {
	ID          string   `json:"id"`
	Text        string   `json:"text" validate:"required"`
	ImageURL    string   `json:"imageUrl,omitempty"`
	Explanation string   `json:"explanation,omitempty"`
	Options     []Option `json:"options" validate:"min=2,max=6"`
}

// Quiz is a titled, ordered set of questions plus timer configuration.
// Quizzes are value objects: created whole and replaced whole on edit.
type Quiz struct {
	ID          string     `json:"id"`
	Title       string     `json:"title" validate:"required"`
	Description string     `json:"description"`
	Topic       string     `json:"topic"`
	CreatedAt   int64      `json:"createdAt"` // epoch milliseconds
	Questions   []Question `json:"questions" validate:"min=1,dive"`
	TimerMode   TimerMode  `json:"timerMode,omitempty"`
	TimeLimit   int        `json:"timeLimit,omitempty" validate:"gte=0"` // seconds
}

// Draft is a partially specified quiz, as produced by import or remote
// generation. Every field is independently defaultable; the application
// layer fills in identifiers and timestamps before a draft becomes a Quiz.
type Draft struct {
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Topic       string     `json:"topic"`
	Questions   []Question `json:"questions"`
	TimerMode   TimerMode  `json:"timerMode,omitempty"`
	TimeLimit   int        `json:"timeLimit,omitempty"`
}

// EffectiveTimerMode resolves the timer discipline, defaulting to per-question.
func (q Quiz) EffectiveTimerMode() TimerMode {
	if q.TimerMode == TimerTotalDuration {
		return TimerTotalDuration
	}
	return TimerPerQuestion
}

// EffectiveTimeLimit resolves the countdown seconds, defaulting to 30.
func (q Quiz) EffectiveTimeLimit() int {
	if q.TimeLimit > 0 {
		return q.TimeLimit
	}
	return DefaultTimeLimit
}

// CorrectOption returns the first option flagged correct, if any.
func (q Question) CorrectOption() (Option, bool) {
	for _, opt := range q.Options {
		if opt.IsCorrect {
			return opt, true
		}
	}
	return Option{}, false
}
