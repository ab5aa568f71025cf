package verification

import (
	"context"
	"fmt"
	"sync"

	"github.com/dmitrijs2005/regflow/internal/client/client"
)

// fakeOTP records calls and returns preset results. When gate is set, each
// call signals started and then waits for gate or ctx.
type fakeOTP struct {
	mu          sync.Mutex
	sendErr     error
	verifyErr   error
	sendCalls   int
	verifyCalls int
	lastEmail   string
	lastOTP     string

	gate    chan struct{}
	started chan struct{}
}

func (f *fakeOTP) wait(ctx context.Context) error {
	if f.gate == nil {
		return nil
	}
	if f.started != nil {
		f.started <- struct{}{}
	}
	select {
	case <-f.gate:
		return nil
	case <-ctx.Done():
		return &client.APIError{
			Op:      "fake",
			Message: client.MsgNetwork,
			Err:     fmt.Errorf("%w: %w", client.ErrUnavailable, ctx.Err()),
		}
	}
}

func (f *fakeOTP) SendOTP(ctx context.Context, email string) error {
	f.mu.Lock()
	f.sendCalls++
	f.lastEmail = email
	err := f.sendErr
	f.mu.Unlock()

	if werr := f.wait(ctx); werr != nil {
		return werr
	}
	return err
}

func (f *fakeOTP) VerifyOTP(ctx context.Context, email, otp string) error {
	f.mu.Lock()
	f.verifyCalls++
	f.lastEmail = email
	f.lastOTP = otp
	err := f.verifyErr
	f.mu.Unlock()

	if werr := f.wait(ctx); werr != nil {
		return werr
	}
	return err
}

func (f *fakeOTP) calls() (send, verify int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.sendCalls, f.verifyCalls
}

func (f *fakeOTP) setVerifyErr(err error) {
	f.mu.Lock()
	f.verifyErr = err
	f.mu.Unlock()
}

func (f *fakeOTP) setSendErr(err error) {
	f.mu.Lock()
	f.sendErr = err
	f.mu.Unlock()
}

func rejected(msg string) error {
	return &client.APIError{Op: "fake", Message: msg, Err: client.ErrRejected}
}
