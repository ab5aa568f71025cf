package verification

// State is the position of a Session in the verification flow.
type State int

const (
	Idle State = iota
	Sending
	AwaitingCode
	Verifying
	Verified
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Sending:
		return "sending"
	case AwaitingCode:
		return "awaiting code"
	case Verifying:
		return "verifying"
	case Verified:
		return "verified"
	default:
		return "unknown"
	}
}

// InFlight reports whether a network call is outstanding in this state.
func (s State) InFlight() bool {
	return s == Sending || s == Verifying
}
