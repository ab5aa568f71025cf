package client

import "context"

// OTPClient is the contract of the external OTP API.
//
// SendOTP and VerifyOTP succeed only when the service explicitly reports
// success. All methods honor context cancellation and deadlines.
type OTPClient interface {
	SendOTP(ctx context.Context, email string) error
	VerifyOTP(ctx context.Context, email, otp string) error
	Health(ctx context.Context) error
	Close() error
}
