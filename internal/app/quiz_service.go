package app

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"quizly-service/internal/domain"
)

// QuizStore abstracts where the quiz library lives (in-memory, Postgres).
type QuizStore interface {
	ListQuizzes(ctx context.Context) ([]domain.Quiz, error)
	GetQuiz(ctx context.Context, quizID string) (domain.Quiz, error)
	SaveQuiz(ctx context.Context, quiz domain.Quiz) error
	DeleteQuiz(ctx context.Context, quizID string) error
}

// QuizRepository is the cached read path used when starting attempts.
type QuizRepository interface {
	GetQuiz(ctx context.Context, quizID string) (domain.Quiz, error)
}

// QuizInvalidator is implemented by caching repositories that can drop a
// stale entry after a save or delete.
type QuizInvalidator interface {
	Invalidate(ctx context.Context, quizID string) error
}

// SourceDocument is an attachment handed to the remote generator.
type SourceDocument struct {
	MimeType   string `json:"mimeType"`
	Base64Data string `json:"base64Data"`
}

// GenerateRequest describes one quiz-generation call. Topic, document, or
// both must be supplied; QuestionCount of zero lets the generator decide.
type GenerateRequest struct {
	Topic         string          `json:"topic,omitempty"`
	Document      *SourceDocument `json:"document,omitempty"`
	QuestionCount int             `json:"questionCount,omitempty"`
}

// Generator is the opaque remote quiz generator. Failures surface to the
// caller as-is; there is no automatic retry.
type Generator interface {
	GenerateQuiz(ctx context.Context, req GenerateRequest) (domain.Draft, error)
}

// QuizService contains the quiz library use cases: CRUD over the store,
// draft intake from import and generation, and attempt construction.
type QuizService struct {
	store     QuizStore
	cache     QuizRepository
	generator Generator
	scheduler Scheduler
	now       func() time.Time
}

func NewQuizService(store QuizStore, cache QuizRepository, generator Generator, scheduler Scheduler) *QuizService {
	if scheduler == nil {
		scheduler = TickerScheduler{}
	}
	return &QuizService{
		store:     store,
		cache:     cache,
		generator: generator,
		scheduler: scheduler,
		now:       time.Now,
	}
}

// ListQuizzes returns the quiz library, newest first.
func (s *QuizService) ListQuizzes(ctx context.Context) ([]domain.Quiz, error) {
	return s.store.ListQuizzes(ctx)
}

// GetQuiz loads one quiz from the store.
func (s *QuizService) GetQuiz(ctx context.Context, quizID string) (domain.Quiz, error) {
	return s.store.GetQuiz(ctx, quizID)
}

// SaveQuiz validates and stores a quiz whole. A quiz without an ID is
// treated as new: it receives a fresh ID and creation timestamp. Saving an
// existing ID replaces the stored value.
func (s *QuizService) SaveQuiz(ctx context.Context, quiz domain.Quiz) (domain.Quiz, error) {
	if quiz.ID == "" {
		quiz.ID = uuid.NewString()
		quiz.CreatedAt = s.now().UnixMilli()
	}
	mintIDs(&quiz)
	if err := domain.ValidateQuiz(quiz); err != nil {
		return domain.Quiz{}, err
	}
	if err := s.store.SaveQuiz(ctx, quiz); err != nil {
		return domain.Quiz{}, fmt.Errorf("save quiz: %w", err)
	}
	s.invalidate(ctx, quiz.ID)
	return quiz, nil
}

// DeleteQuiz removes a quiz from the library.
func (s *QuizService) DeleteQuiz(ctx context.Context, quizID string) error {
	if err := s.store.DeleteQuiz(ctx, quizID); err != nil {
		return err
	}
	s.invalidate(ctx, quizID)
	return nil
}

// CreateFromDraft turns a tolerant draft (import, generation) into a stored
// quiz: ambiguous correctness flags are normalized, missing metadata takes
// defaults, and every entity gets a fresh identifier.
func (s *QuizService) CreateFromDraft(ctx context.Context, draft domain.Draft) (domain.Quiz, error) {
	draft.Normalize()
	quiz := domain.Quiz{
		ID:          uuid.NewString(),
		Title:       draft.Title,
		Description: draft.Description,
		Topic:       draft.Topic,
		CreatedAt:   s.now().UnixMilli(),
		Questions:   draft.Questions,
		TimerMode:   draft.TimerMode,
		TimeLimit:   draft.TimeLimit,
	}
	if quiz.Title == "" {
		quiz.Title = "Untitled Quiz"
	}
	if quiz.Topic == "" {
		quiz.Topic = "General"
	}
	mintIDs(&quiz)
	if err := domain.ValidateQuiz(quiz); err != nil {
		return domain.Quiz{}, err
	}
	if err := s.store.SaveQuiz(ctx, quiz); err != nil {
		return domain.Quiz{}, fmt.Errorf("save quiz: %w", err)
	}
	return quiz, nil
}

// GenerateQuiz asks the remote generator for quiz content and stores the
// result. Generator failures are returned to the caller so the UI can offer
// a retry.
func (s *QuizService) GenerateQuiz(ctx context.Context, req GenerateRequest) (domain.Quiz, error) {
	if s.generator == nil {
		return domain.Quiz{}, domain.ErrGenerationFailed
	}
	draft, err := s.generator.GenerateQuiz(ctx, req)
	if err != nil {
		return domain.Quiz{}, fmt.Errorf("%w: %v", domain.ErrGenerationFailed, err)
	}
	return s.CreateFromDraft(ctx, draft)
}

// StartAttempt loads a quiz through the cached read path and constructs a
// session engine over it. The attempt borrows the quiz read-only; the caller
// supplies the sound capability for its client (nil for silence) and must
// Close the attempt when done.
func (s *QuizService) StartAttempt(ctx context.Context, quizID string, sounds SoundPlayer) (*Attempt, error) {
	quiz, err := s.cache.GetQuiz(ctx, quizID)
	if err != nil {
		return nil, err
	}
	if len(quiz.Questions) == 0 {
		return nil, domain.ErrQuizNotPlayable
	}
	return NewAttempt(quiz, s.scheduler, sounds), nil
}

func (s *QuizService) invalidate(ctx context.Context, quizID string) {
	if inv, ok := s.cache.(QuizInvalidator); ok {
		_ = inv.Invalidate(ctx, quizID)
	}
}

// mintIDs assigns fresh identifiers to any entity missing one.
func mintIDs(q *domain.Quiz) {
	if q.ID == "" {
		q.ID = uuid.NewString()
	}
	for i := range q.Questions {
		if q.Questions[i].ID == "" {
			q.Questions[i].ID = uuid.NewString()
		}
		for j := range q.Questions[i].Options {
			if q.Questions[i].Options[j].ID == "" {
				q.Questions[i].Options[j].ID = uuid.NewString()
			}
		}
	}
}
