package client

import "errors"

var (
	ErrUnavailable = errors.New("otp service unavailable")
	ErrRejected    = errors.New("rejected by otp service")
)

// User-facing fallbacks used when the service gives no message of its own.
const (
	MsgNetwork      = "Network error. Please check your connection and try again."
	MsgSendFailed   = "Failed to send OTP. Please try again."
	MsgVerifyFailed = "OTP verification failed. Please try again."
	MsgUnhealthy    = "OTP service is not available right now."
)

// APIError is the normalized failure of an OTP API call.
type APIError struct {
	Op      string
	Message string
	Err     error
}

func (e *APIError) Error() string {
	return e.Op + ": " + e.Message
}

func (e *APIError) Unwrap() error {
	return e.Err
}

// UserMessage is the text to show the user for this failure.
func (e *APIError) UserMessage() string {
	return e.Message
}

// UserMessage extracts the user-facing message from err, falling back to
// err.Error() for errors that did not come from this package.
func UserMessage(err error) string {
	if err == nil {
		return ""
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.UserMessage()
	}
	return err.Error()
}
