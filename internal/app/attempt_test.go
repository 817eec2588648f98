package app_test

import (
	"sync"
	"testing"
	"time"

	"quizly-service/internal/app"
	"quizly-service/internal/domain"
)

// manualScheduler lets tests drive the countdown deterministically: one call
// to fire() is one elapsed second.
type manualScheduler struct {
	mu     sync.Mutex
	timers []*manualTimer
}

type manualTimer struct {
	interval time.Duration
	fn       func()
	stopped  bool
}

func (s *manualScheduler) Every(interval time.Duration, fn func()) func() {
	s.mu.Lock()
	t := &manualTimer{interval: interval, fn: fn}
	s.timers = append(s.timers, t)
	s.mu.Unlock()
	return func() {
		s.mu.Lock()
		t.stopped = true
		s.mu.Unlock()
	}
}

// fire invokes the most recently armed, still-active one-second timer.
func (s *manualScheduler) fire(t *testing.T, times int) {
	t.Helper()
	for i := 0; i < times; i++ {
		fn := s.activeCountdown()
		if fn == nil {
			t.Fatalf("no active countdown to fire")
		}
		fn()
	}
}

func (s *manualScheduler) activeCountdown() func() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := len(s.timers) - 1; i >= 0; i-- {
		if !s.timers[i].stopped && s.timers[i].interval == time.Second {
			return s.timers[i].fn
		}
	}
	return nil
}

func (s *manualScheduler) countdownArmed() bool {
	return s.activeCountdown() != nil
}

// fireCountUp drains the cosmetic score animation, if armed.
func (s *manualScheduler) fireCountUp(limit int) {
	for i := 0; i < limit; i++ {
		s.mu.Lock()
		var fn func()
		for j := len(s.timers) - 1; j >= 0; j-- {
			if !s.timers[j].stopped && s.timers[j].interval < time.Second {
				fn = s.timers[j].fn
				break
			}
		}
		s.mu.Unlock()
		if fn == nil {
			return
		}
		fn()
	}
}

type cueRecorder struct {
	mu   sync.Mutex
	cues []string
}

func (c *cueRecorder) add(cue string) {
	c.mu.Lock()
	c.cues = append(c.cues, cue)
	c.mu.Unlock()
}

func (c *cueRecorder) Click()     { c.add("click") }
func (c *cueRecorder) Tick()      { c.add("tick") }
func (c *cueRecorder) Correct()   { c.add("correct") }
func (c *cueRecorder) Incorrect() { c.add("incorrect") }
func (c *cueRecorder) Complete()  { c.add("complete") }

func (c *cueRecorder) count(cue string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, got := range c.cues {
		if got == cue {
			n++
		}
	}
	return n
}

func twoOptionQuiz(questions int, mode domain.TimerMode, limit int) domain.Quiz {
	quiz := domain.Quiz{
		ID:        "quiz-1",
		Title:     "Sample",
		TimerMode: mode,
		TimeLimit: limit,
	}
	for i := 0; i < questions; i++ {
		quiz.Questions = append(quiz.Questions, domain.Question{
			ID:   "q" + string(rune('1'+i)),
			Text: "Select the right option",
			Options: []domain.Option{
				{ID: "wrong" + string(rune('1'+i)), Text: "Wrong", IsCorrect: false},
				{ID: "right" + string(rune('1'+i)), Text: "Right", IsCorrect: true},
			},
		})
	}
	return quiz
}

func TestAnswerAndCompleteSingleQuestion(t *testing.T) {
	sched := &manualScheduler{}
	attempt := app.NewAttempt(twoOptionQuiz(1, domain.TimerPerQuestion, 30), sched, nil)
	attempt.Start()

	attempt.SelectOption("right1")
	attempt.Submit()

	snap := attempt.Snapshot()
	if !snap.IsAnswered || snap.Score != 1 {
		t.Fatalf("expected answered with score 1, got %+v", snap)
	}

	attempt.Next()
	score, total, done := attempt.Result()
	if !done || score != 1 || total != 1 {
		t.Fatalf("expected terminal 1/1, got score=%d total=%d done=%v", score, total, done)
	}
}

func TestFullRunScoresWithinBounds(t *testing.T) {
	sched := &manualScheduler{}
	attempt := app.NewAttempt(twoOptionQuiz(4, domain.TimerPerQuestion, 30), sched, nil)
	attempt.Start()

	picks := []string{"right1", "wrong2", "right3", "wrong4"}
	for i, pick := range picks {
		attempt.SelectOption(pick)
		attempt.Submit()
		attempt.Next()
		_, _, done := attempt.Result()
		if wantDone := i == len(picks)-1; done != wantDone {
			t.Fatalf("after question %d: done=%v", i+1, done)
		}
	}

	score, total, done := attempt.Result()
	if !done || total != 4 || score != 2 {
		t.Fatalf("expected terminal 2/4, got score=%d total=%d done=%v", score, total, done)
	}
}

func TestSubmitRequiresSelection(t *testing.T) {
	sched := &manualScheduler{}
	attempt := app.NewAttempt(twoOptionQuiz(1, domain.TimerPerQuestion, 30), sched, nil)
	attempt.Start()

	attempt.Submit()
	if snap := attempt.Snapshot(); snap.IsAnswered {
		t.Fatalf("submit without selection must be a no-op")
	}

	attempt.Next()
	if _, _, done := attempt.Result(); done {
		t.Fatalf("next before answering must be a no-op")
	}

	// Double submit never double-counts.
	attempt.SelectOption("right1")
	attempt.Submit()
	attempt.Submit()
	if snap := attempt.Snapshot(); snap.Score != 1 {
		t.Fatalf("expected score 1 after double submit, got %d", snap.Score)
	}
}

func TestSelectionIdempotentBeforeSubmit(t *testing.T) {
	sched := &manualScheduler{}
	attempt := app.NewAttempt(twoOptionQuiz(1, domain.TimerPerQuestion, 30), sched, nil)
	attempt.Start()

	attempt.SelectOption("wrong1")
	attempt.SelectOption("right1")
	attempt.SelectOption("missing")
	if snap := attempt.Snapshot(); snap.SelectedOptionID != "right1" {
		t.Fatalf("expected re-selection to win, got %q", snap.SelectedOptionID)
	}

	attempt.Submit()
	attempt.SelectOption("wrong1")
	if snap := attempt.Snapshot(); snap.SelectedOptionID != "right1" {
		t.Fatalf("selection after submit must be ignored")
	}
}

func TestPerQuestionTimeoutCountsIncorrect(t *testing.T) {
	sched := &manualScheduler{}
	cues := &cueRecorder{}
	attempt := app.NewAttempt(twoOptionQuiz(2, domain.TimerPerQuestion, 3), sched, cues)
	attempt.Start()

	sched.fire(t, 3)

	snap := attempt.Snapshot()
	if !snap.IsAnswered || snap.SelectedOptionID != "" || snap.TimeLeft != 0 {
		t.Fatalf("expected timed-out unanswered question, got %+v", snap)
	}
	if snap.ShowResult {
		t.Fatalf("per-question timeout must not end the session")
	}
	if cues.count("incorrect") != 1 {
		t.Fatalf("expected one incorrect cue, got %d", cues.count("incorrect"))
	}
	if sched.countdownArmed() {
		t.Fatalf("countdown must stop once the question is answered")
	}

	// Timeout never blocks advancing; the next question gets a fresh clock.
	attempt.Next()
	snap = attempt.Snapshot()
	if snap.CurrentIndex != 1 || snap.IsAnswered || snap.TimeLeft != 3 {
		t.Fatalf("expected fresh second question, got %+v", snap)
	}
	if !sched.countdownArmed() {
		t.Fatalf("countdown must re-arm on advance")
	}

	attempt.SelectOption("right2")
	attempt.Submit()
	attempt.Next()
	score, total, done := attempt.Result()
	if !done || score != 1 || total != 2 {
		t.Fatalf("expected 1/2 with timeout counted incorrect, got %d/%d done=%v", score, total, done)
	}
}

func TestCountdownPausesDuringReview(t *testing.T) {
	sched := &manualScheduler{}
	attempt := app.NewAttempt(twoOptionQuiz(2, domain.TimerPerQuestion, 10), sched, nil)
	attempt.Start()

	sched.fire(t, 4)
	attempt.SelectOption("right1")
	attempt.Submit()

	if sched.countdownArmed() {
		t.Fatalf("countdown must pause after submit in per-question mode")
	}
	if snap := attempt.Snapshot(); snap.TimeLeft != 6 {
		t.Fatalf("expected 6s left, got %d", snap.TimeLeft)
	}
}

func TestTotalDurationTimeoutEndsSession(t *testing.T) {
	sched := &manualScheduler{}
	attempt := app.NewAttempt(twoOptionQuiz(3, domain.TimerTotalDuration, 5), sched, nil)
	attempt.Start()

	sched.fire(t, 5)

	score, total, done := attempt.Result()
	if !done || score != 0 || total != 3 {
		t.Fatalf("expected terminal 0/3 after total timeout, got %d/%d done=%v", score, total, done)
	}
	if sched.countdownArmed() {
		t.Fatalf("countdown must stop at terminal state")
	}

	// Nothing is processed after the terminal transition.
	attempt.SelectOption("right1")
	attempt.Submit()
	attempt.Next()
	if score, _, _ := attempt.Result(); score != 0 {
		t.Fatalf("answers after terminal state must be ignored, got score %d", score)
	}
}

func TestTotalDurationClockSurvivesTransitions(t *testing.T) {
	sched := &manualScheduler{}
	attempt := app.NewAttempt(twoOptionQuiz(2, domain.TimerTotalDuration, 10), sched, nil)
	attempt.Start()

	sched.fire(t, 3)
	attempt.SelectOption("right1")
	attempt.Submit()
	if !sched.countdownArmed() {
		t.Fatalf("total-duration countdown must keep running through review")
	}
	sched.fire(t, 2)
	attempt.Next()

	snap := attempt.Snapshot()
	if snap.TimeLeft != 5 {
		t.Fatalf("advancing must not reset the total clock, got %d", snap.TimeLeft)
	}

	// Clock can expire mid-review of the final question.
	attempt.SelectOption("right2")
	attempt.Submit()
	sched.fire(t, 5)
	score, _, done := attempt.Result()
	if !done || score != 2 {
		t.Fatalf("expected terminal 2/2 on expiry, got score=%d done=%v", score, done)
	}
}

func TestRetakeRestoresInitialState(t *testing.T) {
	sched := &manualScheduler{}
	attempt := app.NewAttempt(twoOptionQuiz(2, domain.TimerPerQuestion, 7), sched, nil)
	attempt.Start()

	sched.fire(t, 2)
	attempt.SelectOption("right1")
	attempt.Submit()
	attempt.Next()
	attempt.SelectOption("wrong2")
	attempt.Submit()
	attempt.Next()
	if _, _, done := attempt.Result(); !done {
		t.Fatalf("expected terminal state before retake")
	}

	attempt.Retake()

	snap := attempt.Snapshot()
	if snap.CurrentIndex != 0 || snap.Score != 0 || snap.IsAnswered ||
		snap.SelectedOptionID != "" || snap.ShowResult || snap.TimeLeft != 7 || snap.DisplayScore != 0 {
		t.Fatalf("retake must restore initial state, got %+v", snap)
	}
	if !sched.countdownArmed() {
		t.Fatalf("retake must arm a fresh countdown")
	}

	// The first run's timer handle is cancelled, so it can never tick into
	// the new attempt's state.
	sched.mu.Lock()
	firstStopped := sched.timers[0].stopped
	sched.mu.Unlock()
	if !firstStopped {
		t.Fatalf("retake must cancel the previous countdown handle")
	}
}

func TestDisplayScoreCountsUp(t *testing.T) {
	sched := &manualScheduler{}
	attempt := app.NewAttempt(twoOptionQuiz(3, domain.TimerPerQuestion, 30), sched, nil)
	attempt.Start()

	for i := 1; i <= 3; i++ {
		attempt.SelectOption("right" + string(rune('0'+i)))
		attempt.Submit()
		attempt.Next()
	}
	if _, _, done := attempt.Result(); !done {
		t.Fatalf("expected terminal state")
	}
	if snap := attempt.Snapshot(); snap.DisplayScore != 0 {
		t.Fatalf("display score starts at 0, got %d", snap.DisplayScore)
	}

	sched.fireCountUp(10)
	if snap := attempt.Snapshot(); snap.DisplayScore != 3 {
		t.Fatalf("expected display score 3, got %d", snap.DisplayScore)
	}
}

func TestSubscribeReceivesSnapshots(t *testing.T) {
	sched := &manualScheduler{}
	attempt := app.NewAttempt(twoOptionQuiz(1, domain.TimerPerQuestion, 30), sched, nil)

	updates, cancel := attempt.Subscribe()
	defer cancel()

	initial := <-updates
	if initial.TimeLeft != 30 || initial.Question == nil {
		t.Fatalf("unexpected initial snapshot %+v", initial)
	}

	attempt.Start()
	attempt.SelectOption("right1")

	var last app.AttemptSnapshot
	for len(updates) > 0 {
		last = <-updates
	}
	if last.SelectedOptionID != "right1" {
		t.Fatalf("expected selection in snapshot, got %+v", last)
	}
}

func TestCloseStopsEverything(t *testing.T) {
	sched := &manualScheduler{}
	cues := &cueRecorder{}
	attempt := app.NewAttempt(twoOptionQuiz(1, domain.TimerPerQuestion, 30), sched, cues)
	attempt.Start()
	tick := sched.activeCountdown()

	attempt.Close()
	if sched.countdownArmed() {
		t.Fatalf("close must stop the countdown")
	}

	before := attempt.Snapshot().TimeLeft
	tick()
	attempt.SelectOption("right1")
	attempt.Submit()
	snap := attempt.Snapshot()
	if snap.TimeLeft != before || snap.Score != 0 {
		t.Fatalf("closed attempt must ignore all triggers, got %+v", snap)
	}
}

func TestLowTimeTickCues(t *testing.T) {
	sched := &manualScheduler{}
	cues := &cueRecorder{}
	attempt := app.NewAttempt(twoOptionQuiz(1, domain.TimerPerQuestion, 8), sched, cues)
	attempt.Start()

	sched.fire(t, 7)
	if got := cues.count("tick"); got != 5 {
		t.Fatalf("expected 5 low-time ticks, got %d", got)
	}
}
