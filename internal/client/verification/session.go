package verification

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/dmitrijs2005/regflow/internal/logging"
)

const (
	CooldownSeconds       = 60
	DefaultRequestTimeout = 15 * time.Second
)

// OTPSender is the part of the OTP API a session needs.
type OTPSender interface {
	SendOTP(ctx context.Context, email string) error
	VerifyOTP(ctx context.Context, email, otp string) error
}

type Option func(*Session)

// WithRequestTimeout bounds every outbound call. Non-positive values are ignored.
func WithRequestTimeout(d time.Duration) Option {
	return func(s *Session) {
		if d > 0 {
			s.timeout = d
		}
	}
}

func WithLogger(l logging.Logger) Option {
	return func(s *Session) {
		if l != nil {
			s.logger = l
		}
	}
}

// Session is the verification state of one email address.
// It is safe for concurrent use.
type Session struct {
	client  OTPSender
	logger  logging.Logger
	timeout time.Duration

	mu            sync.Mutex
	email         string
	state         State
	cooldown      int
	resendAllowed bool
	code          string
	err           error
	epoch         uint64
	listeners     map[int]Listener
	nextListener  int
}

func NewSession(email string, c OTPSender, opts ...Option) *Session {
	s := &Session{
		client:        c,
		logger:        logging.Nop(),
		timeout:       DefaultRequestTimeout,
		email:         email,
		state:         Idle,
		resendAllowed: true,
		listeners:     make(map[int]Listener),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Subscribe registers l and returns a function that removes it.
func (s *Session) Subscribe(l Listener) (unsubscribe func()) {
	s.mu.Lock()
	id := s.nextListener
	s.nextListener++
	s.listeners[id] = l
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		delete(s.listeners, id)
		s.mu.Unlock()
	}
}

func (s *Session) Email() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.email
}

func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *Session) Verified() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state == Verified
}

func (s *Session) Cooldown() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cooldown
}

func (s *Session) ResendAllowed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.resendAllowed
}

// Code is the last code the user submitted. It survives a failed verify.
func (s *Session) Code() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.code
}

// Err is the last failure, or nil after a success or reset.
func (s *Session) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

func (s *Session) Snapshot() Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

// RequestCode sends a new code. From Idle it is the first send; from
// AwaitingCode it is a resend and requires the cooldown to have elapsed.
func (s *Session) RequestCode(ctx context.Context) error {
	s.mu.Lock()
	switch {
	case s.state.InFlight():
		s.mu.Unlock()
		return ErrInFlight
	case s.state == Verified:
		s.mu.Unlock()
		return ErrInvalidState
	case s.state == AwaitingCode && !s.resendAllowed:
		s.mu.Unlock()
		return ErrCooldown
	}

	prev := s.state
	s.state = Sending
	epoch, email := s.epoch, s.email
	s.publishLocked()

	s.logger.Debug(ctx, "requesting otp", "email", email, "resend", prev == AwaitingCode)

	callCtx, cancel := context.WithTimeout(ctx, s.timeout)
	err := s.client.SendOTP(callCtx, email)
	cancel()

	s.mu.Lock()
	if s.epoch != epoch {
		s.mu.Unlock()
		s.logger.Debug(ctx, "discarding otp send result after reset", "email", email)
		return ErrReset
	}
	if err != nil {
		s.state = prev
		s.err = err
		s.logger.Warn(ctx, "otp send failed", "email", email, "error", err)
	} else {
		s.state = AwaitingCode
		s.cooldown = CooldownSeconds
		s.resendAllowed = false
		s.code = ""
		s.err = nil
		s.logger.Info(ctx, "otp sent", "email", email)
	}
	s.publishLocked()
	return err
}

// SubmitCode verifies code against the OTP API. An empty code is rejected
// without a network call.
func (s *Session) SubmitCode(ctx context.Context, code string) error {
	s.mu.Lock()
	switch {
	case s.state.InFlight():
		s.mu.Unlock()
		return ErrInFlight
	case s.state != AwaitingCode:
		s.mu.Unlock()
		return ErrInvalidState
	}

	s.code = code
	otp := strings.TrimSpace(code)
	if otp == "" {
		s.err = ErrEmptyCode
		s.publishLocked()
		return ErrEmptyCode
	}

	s.state = Verifying
	epoch, email := s.epoch, s.email
	s.publishLocked()

	callCtx, cancel := context.WithTimeout(ctx, s.timeout)
	err := s.client.VerifyOTP(callCtx, email, otp)
	cancel()

	s.mu.Lock()
	if s.epoch != epoch {
		s.mu.Unlock()
		s.logger.Debug(ctx, "discarding otp verify result after reset", "email", email)
		return ErrReset
	}
	if err != nil {
		s.state = AwaitingCode
		s.err = err
		s.logger.Warn(ctx, "otp verification failed", "email", email, "error", err)
	} else {
		s.state = Verified
		s.err = nil
		s.logger.Info(ctx, "email verified", "email", email)
	}
	s.publishLocked()
	return err
}

// Tick advances the cooldown by one second. At zero it is a no-op.
// The owner of the session calls it once per second.
func (s *Session) Tick() {
	s.mu.Lock()
	if s.cooldown == 0 {
		s.mu.Unlock()
		return
	}
	s.cooldown--
	if s.cooldown == 0 {
		s.resendAllowed = true
	}
	s.publishLocked()
}

// ChangeEmail resets the session to Idle for a new address.
func (s *Session) ChangeEmail(email string) {
	s.mu.Lock()
	s.resetLocked(email)
	s.publishLocked()
}

// Reset returns the session to Idle keeping the current address.
func (s *Session) Reset() {
	s.mu.Lock()
	s.resetLocked(s.email)
	s.publishLocked()
}

func (s *Session) resetLocked(email string) {
	s.epoch++
	s.email = email
	s.state = Idle
	s.cooldown = 0
	s.resendAllowed = true
	s.code = ""
	s.err = nil
}

func (s *Session) snapshotLocked() Event {
	return Event{
		Email:         s.email,
		State:         s.state,
		Verified:      s.state == Verified,
		Cooldown:      s.cooldown,
		ResendAllowed: s.resendAllowed,
		Err:           s.err,
	}
}

// publishLocked snapshots the session, releases the lock and delivers the
// event. The caller must hold s.mu; it is not held on return.
func (s *Session) publishLocked() {
	ev := s.snapshotLocked()
	ls := make([]Listener, 0, len(s.listeners))
	for _, l := range s.listeners {
		ls = append(ls, l)
	}
	s.mu.Unlock()

	for _, l := range ls {
		l(ev)
	}
}
