package core

import "tracestats/clock"

// Sessions remembers where each restarted session ended so that the elapsed
// time of the whole capture can be reported even though every session counts
// ticks from zero.
type Sessions struct {
	boundaries []clock.Tick
}

func NewSessions() *Sessions {
	return &Sessions{
		boundaries: make([]clock.Tick, 0),
	}
}

// OnRestart records final, the last tick of the session that just ended.
func (sessions *Sessions) OnRestart(final clock.Tick) {
	sessions.boundaries = append(sessions.boundaries, final)
}

func (sessions *Sessions) Restarts() int {
	return len(sessions.boundaries)
}

func (sessions *Sessions) Boundaries() []clock.Tick {
	return sessions.boundaries
}

// GrandTotal adds the last tick of the current session to every recorded
// boundary.
func (sessions *Sessions) GrandTotal(final clock.Tick) clock.Tick {
	total := final
	for _, boundary := range sessions.boundaries {
		total += boundary
	}
	return total
}
