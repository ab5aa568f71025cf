// Package client contains the client-side building blocks that talk to the
// outside world.
//
// # Overview
//
// The package provides:
//  1. A transport-agnostic contract for the external OTP API (see OTPClient):
//     SendOTP, VerifyOTP and Health.
//  2. A concrete HTTP/JSON implementation (see HTTPClient) reproducing the
//     API's wire format exactly:
//     POST /api/send-otp   {"email"}         -> {"success","message"}
//     POST /api/verify-otp {"email","otp"}   -> {"success","message"}
//     GET  /api/health                       -> {"status"}
//  3. Local persistence bootstrap (InitDatabase, RunMigrations) wiring an
//     SQLite database with embedded goose migrations.
//
// # Error Handling
//
// Every failure is an *APIError carrying a user-facing message. Callers match
// the cause with errors.Is: ErrUnavailable (transport failure or timeout) or
// ErrRejected (the service answered without "success": true). Nothing is
// retried here; a retry is always a new user action.
package client
