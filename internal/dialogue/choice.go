package dialogue

import "math/rand"

// ChoiceState is the runtime state of a choice group while it waits for a
// selection. It exists only during the group's choice phase.
type ChoiceState struct {
	StartTime           float64
	Timeout             float64
	Timed               bool
	HasChoicesAvailable bool
	HasMadeChoice       bool
	SelectedIndex       int // -1 when nothing is selected
}

func newChoiceState(now, timeout float64, timed bool) *ChoiceState {
	return &ChoiceState{
		StartTime:     now,
		Timeout:       timeout,
		Timed:         timed,
		SelectedIndex: -1,
	}
}

// Expired reports whether a timed choice ran past its timeout. The comparison
// is strict: at exactly StartTime+Timeout the choice is still open.
func (s *ChoiceState) Expired(now float64) bool {
	return s.Timed && now-s.StartTime > s.Timeout
}

// Select records a user choice.
func (s *ChoiceState) Select(index int) {
	s.HasMadeChoice = true
	s.SelectedIndex = index
}

// Resolved reports whether the group can stop waiting.
func (s *ChoiceState) Resolved(now float64) bool {
	return !s.HasChoicesAvailable || s.HasMadeChoice || s.Expired(now)
}

// TimeoutSelection picks the child index a timed-out group continues with, or -1
// when the group is skipped.
func TimeoutSelection(b TimeoutBehavior, childCount int, rng *rand.Rand) int {
	if childCount <= 0 {
		return -1
	}
	switch b {
	case TimeoutFirstChoice:
		return 0
	case TimeoutRandomChoice:
		return rng.Intn(childCount)
	default:
		return -1
	}
}
