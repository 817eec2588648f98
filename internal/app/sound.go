package app

// SoundPlayer is the audio-feedback capability injected into an attempt.
// Implementations are fire-and-forget: they must never block the engine and
// must swallow their own errors. The websocket transport forwards cues to the
// connected client; NopSounds is used everywhere else.
type SoundPlayer interface {
	Click()
	Tick()
	Correct()
	Incorrect()
	Complete()
}

// NopSounds discards every cue.
type NopSounds struct{}

func (NopSounds) Click()     {}
func (NopSounds) Tick()      {}
func (NopSounds) Correct()   {}
func (NopSounds) Incorrect() {}
func (NopSounds) Complete()  {}
