package verification

// Event is a snapshot of a Session published after every change.
type Event struct {
	Email         string
	State         State
	Verified      bool
	Cooldown      int
	ResendAllowed bool
	Err           error
}

// Listener receives session events. It is called outside the session lock.
type Listener func(Event)
