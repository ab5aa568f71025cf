// Package cli provides the interactive registration client.
//
// It wires configuration, the local store, the user directory, the OTP API
// and the image host, then runs a REPL over the registration Coordinator.
// Typical flow:
//
//	email ada@example.com
//	mobile 555-1234
//	send
//	verify 123456
//	submit
//
// Sends and verifies run in the background so the prompt stays usable while
// a request is outstanding; the session's in-flight guard rejects repeats.
// A watcher probes the OTP API health endpoint and prints a banner when it
// goes down or comes back. The cooldown is driven by the Coordinator's ticker.
//
// The REPL is started via App.Run(ctx), which blocks until the user exits.
package cli
