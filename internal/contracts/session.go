package contracts

// Phase is the trading phase for a wall-clock instant
type Phase string

const (
	PhasePremarket     Phase = "PREMARKET"
	PhaseOpenSelection Phase = "OPEN_SELECTION"
	PhaseRegular       Phase = "REGULAR"
	PhaseClosed        Phase = "CLOSED"
)

// Session selects a liquidity threshold block
type Session string

const (
	SessionPremarket Session = "premarket"
	SessionRegular   Session = "regular"
)

// SessionFor maps a phase to its liquidity session
func SessionFor(p Phase) Session {
	if p == PhasePremarket {
		return SessionPremarket
	}
	return SessionRegular
}
