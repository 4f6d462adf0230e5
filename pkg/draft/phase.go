package draft

// Phase is the lifecycle position of a running draft.
type Phase int

const (
	PhaseIdle Phase = iota
	PhasePreparing
	PhaseInRound
	PhaseBetweenRounds
	PhasePaused
	PhaseEnded
)

func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhasePreparing:
		return "preparing"
	case PhaseInRound:
		return "inRound"
	case PhaseBetweenRounds:
		return "betweenRounds"
	case PhasePaused:
		return "paused"
	case PhaseEnded:
		return "ended"
	}
	return "unknown"
}

// Active reports whether the draft still accepts picks (possibly after a
// resume).
func (p Phase) Active() bool {
	return p == PhaseInRound || p == PhaseBetweenRounds || p == PhasePaused
}

// negMod returns n mod m with a non-negative result, which plain % does not
// give for negative n.
func negMod(n, m int) int {
	return ((n % m) + m) % m
}
