package memory

import (
	"sync"

	"quizly-service/internal/app"
)

// AttemptRegistry tracks live attempts so the transport can report on and
// tear down in-flight sessions. Attempts own their state; the registry only
// indexes them.
type AttemptRegistry struct {
	mu       sync.RWMutex
	attempts map[string]*app.Attempt
}

func NewAttemptRegistry() *AttemptRegistry {
	return &AttemptRegistry{attempts: make(map[string]*app.Attempt)}
}

func (r *AttemptRegistry) Register(id string, attempt *app.Attempt) {
	r.mu.Lock()
	r.attempts[id] = attempt
	r.mu.Unlock()
}

func (r *AttemptRegistry) Get(id string) (*app.Attempt, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	attempt, ok := r.attempts[id]
	return attempt, ok
}

// Unregister removes an attempt from the index. The caller is responsible
// for closing the attempt itself.
func (r *AttemptRegistry) Unregister(id string) {
	r.mu.Lock()
	delete(r.attempts, id)
	r.mu.Unlock()
}

// Active reports the number of in-flight attempts.
func (r *AttemptRegistry) Active() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.attempts)
}

// CloseAll tears down every live attempt, e.g. on server shutdown.
func (r *AttemptRegistry) CloseAll() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for id, attempt := range r.attempts {
		attempt.Close()
		delete(r.attempts, id)
	}
}
