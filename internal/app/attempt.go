package app

import (
	"sync"
	"time"

	"quizly-service/internal/domain"
)

// AttemptSnapshot is the read-only view of an attempt pushed to subscribers
// after every transition.
type AttemptSnapshot struct {
	QuizID           string           `json:"quizId"`
	Title            string           `json:"title"`
	CurrentIndex     int              `json:"currentIndex"`
	TotalQuestions   int              `json:"totalQuestions"`
	Question         *domain.Question `json:"question,omitempty"`
	SelectedOptionID string           `json:"selectedOptionId,omitempty"`
	IsAnswered       bool             `json:"isAnswered"`
	Score            int              `json:"score"`
	ShowResult       bool             `json:"showResult"`
	TimeLeft         int              `json:"timeLeft"`
	DisplayScore     int              `json:"displayScore"`
	TimerMode        domain.TimerMode `json:"timerMode"`
}

// Attempt drives one quiz attempt: question sequencing, answer capture,
// scoring, and the countdown discipline selected by the quiz. The source quiz
// is borrowed read-only; retaking resets state without touching it.
//
// Transitions outside their preconditions are silent no-ops. The engine is a
// UI-driven state machine with no persisted state at risk, so duplicate
// rapid-fire triggers are absorbed rather than raised as errors.
type Attempt struct {
	quiz      domain.Quiz
	timerMode domain.TimerMode
	timeLimit int
	scheduler Scheduler
	sounds    SoundPlayer

	mu               sync.Mutex
	currentIndex     int
	selectedOptionID string
	answered         bool
	score            int
	showResult       bool
	timeLeft         int
	displayScore     int
	closed           bool
	stopTimer        func()
	stopCountUp      func()
	subscribers      map[chan AttemptSnapshot]struct{}
}

// NewAttempt builds an attempt over a quiz. The countdown is not armed until
// Start is called. A nil sounds player falls back to NopSounds.
func NewAttempt(quiz domain.Quiz, scheduler Scheduler, sounds SoundPlayer) *Attempt {
	if scheduler == nil {
		scheduler = TickerScheduler{}
	}
	if sounds == nil {
		sounds = NopSounds{}
	}
	return &Attempt{
		quiz:        quiz,
		timerMode:   quiz.EffectiveTimerMode(),
		timeLimit:   quiz.EffectiveTimeLimit(),
		scheduler:   scheduler,
		sounds:      sounds,
		timeLeft:    quiz.EffectiveTimeLimit(),
		subscribers: make(map[chan AttemptSnapshot]struct{}),
	}
}

// Start arms the one-second countdown and pushes the initial snapshot.
// Starting twice is a no-op.
func (a *Attempt) Start() {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.closed || a.stopTimer != nil {
		return
	}
	a.armTimerLocked()
	a.broadcastLocked()
}

// SelectOption records the participant's choice for the current question.
// Permitted only before the question is answered; re-selection is idempotent.
func (a *Attempt) SelectOption(optionID string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.closed || a.showResult || a.answered {
		return
	}
	if !a.currentQuestionHasOption(optionID) {
		return
	}
	a.selectedOptionID = optionID
	a.sounds.Click()
	a.broadcastLocked()
}

// Submit marks the current question answered and scores it. Permitted only
// when an option is selected and the question is not yet answered; the
// decision is irreversible for that question.
func (a *Attempt) Submit() {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.closed || a.showResult || a.answered || a.selectedOptionID == "" {
		return
	}
	a.answered = true
	if a.selectedIsCorrectLocked() {
		a.score++
		a.sounds.Correct()
	} else {
		a.sounds.Incorrect()
	}
	if a.timerMode == domain.TimerPerQuestion {
		// Countdown pauses during the post-answer review period.
		a.stopTimerLocked()
	}
	a.broadcastLocked()
}

// Next advances past an answered question. On the last question it enters the
// terminal result state; otherwise it clears the answer state and, in
// per-question mode, resets and re-arms the countdown.
func (a *Attempt) Next() {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.closed || a.showResult || !a.answered {
		return
	}
	if a.currentIndex >= len(a.quiz.Questions)-1 {
		a.finishLocked()
	} else {
		a.currentIndex++
		a.selectedOptionID = ""
		a.answered = false
		if a.timerMode == domain.TimerPerQuestion {
			a.timeLeft = a.timeLimit
			a.armTimerLocked()
		}
		a.sounds.Click()
	}
	a.broadcastLocked()
}

// Retake resets the attempt to its initial state without mutating the source
// quiz. The previous countdown is stopped before a fresh one is armed, so a
// stale timer can never fire into the new attempt state.
func (a *Attempt) Retake() {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.closed {
		return
	}
	a.stopTimerLocked()
	a.stopCountUpLocked()
	a.currentIndex = 0
	a.selectedOptionID = ""
	a.answered = false
	a.score = 0
	a.showResult = false
	a.displayScore = 0
	a.timeLeft = a.timeLimit
	a.armTimerLocked()
	a.sounds.Click()
	a.broadcastLocked()
}

// Close tears the attempt down: all timers stop, subscribers are closed, and
// every later transition is a no-op. Exit discards state; there is nothing to
// persist.
func (a *Attempt) Close() {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.closed {
		return
	}
	a.closed = true
	a.stopTimerLocked()
	a.stopCountUpLocked()
	for ch := range a.subscribers {
		delete(a.subscribers, ch)
		close(ch)
	}
}

// Subscribe returns a channel of snapshots, seeded with the current state.
// The caller must invoke cancel to avoid leaks.
func (a *Attempt) Subscribe() (<-chan AttemptSnapshot, func()) {
	ch := make(chan AttemptSnapshot, 8)

	a.mu.Lock()
	a.subscribers[ch] = struct{}{}
	initial := a.snapshotLocked()
	a.mu.Unlock()

	ch <- initial

	cancel := func() {
		a.mu.Lock()
		if _, ok := a.subscribers[ch]; ok {
			delete(a.subscribers, ch)
			close(ch)
		}
		a.mu.Unlock()
	}
	return ch, cancel
}

// Snapshot returns the current state.
func (a *Attempt) Snapshot() AttemptSnapshot {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.snapshotLocked()
}

// Result reports the final score once the attempt is complete.
func (a *Attempt) Result() (score, total int, done bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.score, len(a.quiz.Questions), a.showResult
}

// tick is the per-second countdown step. Exactly one decrement per elapsed
// second while the timer is eligible: session live, count above zero, and not
// paused in post-answer review.
func (a *Attempt) tick() {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.closed || a.showResult || a.timeLeft <= 0 {
		return
	}
	if a.timerMode == domain.TimerPerQuestion && a.answered {
		return
	}
	a.timeLeft--
	switch {
	case a.timeLeft == 0 && a.timerMode == domain.TimerPerQuestion:
		// Timeout counts as an incorrect answer; the participant may still
		// review and advance, but nothing auto-advances.
		a.answered = true
		a.selectedOptionID = ""
		a.stopTimerLocked()
		a.sounds.Incorrect()
	case a.timeLeft == 0:
		a.finishLocked()
	case a.timeLeft <= 5:
		a.sounds.Tick()
	}
	a.broadcastLocked()
}

func (a *Attempt) finishLocked() {
	a.showResult = true
	a.stopTimerLocked()
	a.sounds.Complete()
	a.startCountUpLocked()
}

// startCountUpLocked animates displayScore from zero to the final score over
// roughly one second. Cosmetic only; Score stays authoritative throughout.
func (a *Attempt) startCountUpLocked() {
	a.displayScore = 0
	if a.score == 0 {
		return
	}
	interval := time.Second / time.Duration(a.score)
	if interval < 50*time.Millisecond {
		interval = 50 * time.Millisecond
	}
	a.stopCountUp = a.scheduler.Every(interval, a.countUpStep)
}

func (a *Attempt) countUpStep() {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.closed || !a.showResult || a.displayScore >= a.score {
		a.stopCountUpLocked()
		return
	}
	a.displayScore++
	if a.displayScore >= a.score {
		a.stopCountUpLocked()
	}
	a.broadcastLocked()
}

func (a *Attempt) armTimerLocked() {
	a.stopTimerLocked()
	a.stopTimer = a.scheduler.Every(time.Second, a.tick)
}

func (a *Attempt) stopTimerLocked() {
	if a.stopTimer != nil {
		a.stopTimer()
		a.stopTimer = nil
	}
}

func (a *Attempt) stopCountUpLocked() {
	if a.stopCountUp != nil {
		a.stopCountUp()
		a.stopCountUp = nil
	}
}

func (a *Attempt) currentQuestionHasOption(optionID string) bool {
	if a.currentIndex >= len(a.quiz.Questions) {
		return false
	}
	for _, opt := range a.quiz.Questions[a.currentIndex].Options {
		if opt.ID == optionID {
			return true
		}
	}
	return false
}

func (a *Attempt) selectedIsCorrectLocked() bool {
	if a.currentIndex >= len(a.quiz.Questions) {
		return false
	}
	for _, opt := range a.quiz.Questions[a.currentIndex].Options {
		if opt.ID == a.selectedOptionID {
			return opt.IsCorrect
		}
	}
	return false
}

func (a *Attempt) snapshotLocked() AttemptSnapshot {
	snap := AttemptSnapshot{
		QuizID:           a.quiz.ID,
		Title:            a.quiz.Title,
		CurrentIndex:     a.currentIndex,
		TotalQuestions:   len(a.quiz.Questions),
		SelectedOptionID: a.selectedOptionID,
		IsAnswered:       a.answered,
		Score:            a.score,
		ShowResult:       a.showResult,
		TimeLeft:         a.timeLeft,
		DisplayScore:     a.displayScore,
		TimerMode:        a.timerMode,
	}
	if !a.showResult && a.currentIndex < len(a.quiz.Questions) {
		q := a.quiz.Questions[a.currentIndex]
		snap.Question = &q
	}
	return snap
}

func (a *Attempt) broadcastLocked() {
	snap := a.snapshotLocked()
	for ch := range a.subscribers {
		select {
		case ch <- snap:
		default:
			// Drop the stale update so a slow client never blocks the engine.
			select {
			case <-ch:
			default:
			}
			ch <- snap
		}
	}
}
