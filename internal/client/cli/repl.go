package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
)

// printlnFn is a test seam for REPL output.
var printlnFn = fmt.Println

const helpText = `Available commands:
  email <address>     enter the email address (checks for an existing account)
  mobile <number>     enter the mobile number (checks for an existing account)
  send                send a verification code to the email
  resend              send a new code once the cooldown is over
  verify <code>       verify the code (alias: code)
  federated <token>   use an ID token from an identity provider instead of a code
  status              show the registration status
  submit              create the account
  whoami              show the last registration on this machine
  reset               start over
  exit | quit         leave the program`

// execIface is the command surface the REPL needs. The real App satisfies
// it; tests provide a stub.
type execIface interface {
	Email(ctx context.Context, args []string) error
	Mobile(ctx context.Context, args []string) error
	Send(ctx context.Context) error
	Resend(ctx context.Context) error
	Verify(ctx context.Context, args []string) error
	Federated(ctx context.Context, args []string) error
	Status(ctx context.Context) error
	Submit(ctx context.Context) error
	WhoAmI(ctx context.Context) error
	Reset(ctx context.Context) error
}

// runREPL reads commands from reader and dispatches them to a until EOF,
// "exit" or "quit", or until ctx is done. Handler errors are reported by the
// handlers themselves.
func runREPL(ctx context.Context, a execIface, statusFn func() string, reader *bufio.Reader) {
	for {
		if ctx.Err() != nil {
			return
		}
		printlnFn(fmt.Sprintf("regflow %s> ", statusFn()))

		line, err := reader.ReadString('\n')
		if err != nil && !(errors.Is(err, io.EOF) && line != "") {
			return
		}

		parts := strings.Fields(line)
		if len(parts) == 0 {
			continue
		}
		cmd, args := strings.ToLower(parts[0]), parts[1:]

		switch cmd {
		case "help", "?":
			printlnFn(helpText)
		case "email":
			_ = a.Email(ctx, args)
		case "mobile":
			_ = a.Mobile(ctx, args)
		case "send":
			_ = a.Send(ctx)
		case "resend":
			_ = a.Resend(ctx)
		case "verify", "code":
			_ = a.Verify(ctx, args)
		case "federated":
			_ = a.Federated(ctx, args)
		case "status":
			_ = a.Status(ctx)
		case "submit":
			_ = a.Submit(ctx)
		case "whoami":
			_ = a.WhoAmI(ctx)
		case "reset":
			_ = a.Reset(ctx)
		case "exit", "quit":
			printlnFn("Bye!")
			return
		default:
			printlnFn("Unknown command:", cmd)
		}
	}
}
