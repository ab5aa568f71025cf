// Package verification implements the email one-time-passcode session.
//
// A Session moves through Idle, Sending, AwaitingCode, Verifying and
// Verified. Entering Sending or Verifying is the in-flight guard: a second
// request while one is outstanding returns ErrInFlight without touching the
// network. A failed call lands back in the state it started from and the
// failure is kept in Err until the next success or reset.
//
// After a code is sent the session starts a fixed 60 second cooldown. The
// cooldown only moves on Tick (Run drives Tick once per second); when it
// reaches zero the resend flag flips and nothing else changes.
//
// Verified is one-way. The only way out is ChangeEmail or Reset, which put
// the session back to Idle with a zero cooldown and discard the result of any
// call still in flight.
//
// Every change, cooldown ticks included, is published to listeners as an
// Event snapshot. Listeners run outside the session lock and may call back
// into the session.
package verification
