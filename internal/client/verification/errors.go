package verification

import (
	"errors"

	"github.com/dmitrijs2005/regflow/internal/client/client"
)

var (
	ErrEmptyCode    = errors.New("empty otp code")
	ErrInFlight     = errors.New("request already in flight")
	ErrCooldown     = errors.New("resend is not allowed yet")
	ErrInvalidState = errors.New("operation not allowed in current state")
	ErrReset        = errors.New("session was reset")
)

const MsgEmptyCode = "Please enter the OTP"

// UserMessage renders err the way the user should see it.
func UserMessage(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrEmptyCode):
		return MsgEmptyCode
	case errors.Is(err, ErrCooldown):
		return "Please wait before requesting a new code"
	case errors.Is(err, ErrInFlight):
		return "Please wait, a request is in progress"
	}
	return client.UserMessage(err)
}
