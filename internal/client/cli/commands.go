package cli

import (
	"context"
	"errors"
	"strings"

	"github.com/dmitrijs2005/regflow/internal/client/federated"
	"github.com/dmitrijs2005/regflow/internal/client/models"
	"github.com/dmitrijs2005/regflow/internal/client/services"
	"github.com/dmitrijs2005/regflow/internal/client/verification"
	"github.com/dmitrijs2005/regflow/internal/common"
)

var errNoSession = errors.New("no verification session")

// messageFor renders err as a single line for the user.
func messageFor(err error) string {
	for _, known := range []error{
		services.ErrDuplicateEmail,
		services.ErrDuplicateMobile,
		services.ErrLookup,
		services.ErrNotReady,
		services.ErrEmailMismatch,
		services.ErrNoEmail,
		federated.ErrNotConfigured,
		federated.ErrTokenExpired,
		federated.ErrEmailNotVerified,
		federated.ErrInvalidToken,
	} {
		if errors.Is(err, known) {
			return capitalize(known.Error())
		}
	}
	switch {
	case errors.Is(err, errNoSession):
		return "Enter a new email address first"
	case errors.Is(err, verification.ErrInvalidState):
		return "That is not possible right now, check 'status'"
	case errors.Is(err, models.ErrInvalidForm):
		return capitalize(strings.TrimPrefix(err.Error(), models.ErrInvalidForm.Error()+": "))
	}
	return verification.UserMessage(err)
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

// argOrPrompt returns the joined args, or asks for the value when none were given.
func (a *App) argOrPrompt(args []string, prompt string) (string, error) {
	if len(args) > 0 {
		return strings.Join(args, " "), nil
	}
	return getSimpleText(a.reader, prompt, a.out)
}

func (a *App) report(err error) error {
	if err != nil {
		a.printf("Error: %s\n", messageFor(err))
	}
	return err
}

func (a *App) Email(ctx context.Context, args []string) error {
	email, err := a.argOrPrompt(args, "Email address")
	if err != nil {
		return err
	}

	err = a.coord.EmailEntered(ctx, email)
	switch {
	case errors.Is(err, services.ErrLookup) && a.coord.Session() != nil:
		a.printf("Warning: %s. You can still verify this address.\n", messageFor(err))
		return err
	case err != nil:
		return a.report(err)
	case a.coord.Session() == nil:
		a.printf("Email cleared.\n")
	default:
		a.printf("Email is available. Type 'send' to get a verification code.\n")
	}
	return nil
}

func (a *App) Mobile(ctx context.Context, args []string) error {
	mobile, err := a.argOrPrompt(args, "Mobile number")
	if err != nil {
		return err
	}
	if err := a.coord.MobileEntered(ctx, mobile); err != nil {
		return a.report(err)
	}
	if common.NormalizeContact(strings.TrimSpace(mobile)) != "" {
		a.printf("Mobile number is available.\n")
	}
	return nil
}

func (a *App) Send(ctx context.Context) error {
	return a.requestCode(ctx, false)
}

func (a *App) Resend(ctx context.Context) error {
	return a.requestCode(ctx, true)
}

func (a *App) requestCode(ctx context.Context, resend bool) error {
	s := a.coord.Session()
	if s == nil {
		return a.report(errNoSession)
	}

	ev := s.Snapshot()
	switch {
	case ev.State.InFlight():
		return a.report(verification.ErrInFlight)
	case resend && ev.State == verification.Idle:
		a.printf("No code has been sent yet, sending one now.\n")
	case !resend && ev.State == verification.AwaitingCode:
		a.printf("A code was already sent. Use 'resend' to get a new one.\n")
		return nil
	case ev.State == verification.AwaitingCode && !ev.ResendAllowed:
		a.printf("You can request a new code in %ds.\n", ev.Cooldown)
		return verification.ErrCooldown
	}

	a.printf("Sending code to %s...\n", ev.Email)
	a.async(func() {
		err := s.RequestCode(ctx)
		switch {
		case errors.Is(err, verification.ErrReset):
		case err != nil:
			a.report(err)
		default:
			a.printf("\nCode sent to %s. You can request another in %ds.\n", ev.Email, verification.CooldownSeconds)
		}
	})
	return nil
}

func (a *App) Verify(ctx context.Context, args []string) error {
	s := a.coord.Session()
	if s == nil {
		return a.report(errNoSession)
	}
	if st := s.State(); st.InFlight() {
		return a.report(verification.ErrInFlight)
	}

	code := strings.Join(args, "")
	if code == "" && s.State() == verification.AwaitingCode {
		var err error
		if code, err = getSimpleText(a.reader, "Verification code", a.out); err != nil {
			return err
		}
	}

	a.async(func() {
		err := s.SubmitCode(ctx, code)
		switch {
		case errors.Is(err, verification.ErrReset):
		case err != nil:
			a.report(err)
		default:
			a.printf("\nEmail %s verified.\n", s.Email())
		}
	})
	return nil
}

func (a *App) Federated(ctx context.Context, args []string) error {
	token, err := a.argOrPrompt(args, "Identity token")
	if err != nil {
		return err
	}
	id, err := a.coord.SignInFederated(ctx, token)
	if err != nil {
		return a.report(err)
	}
	a.printf("Signed in with %s as %s. No code is needed.\n", id.Issuer, id.Email)
	return nil
}

func (a *App) Status(ctx context.Context) error {
	st := a.coord.Status()

	a.printf("Email:     %s\n", orDash(st.Email))
	if st.EmailDuplicate {
		a.printf("           already registered\n")
	}
	a.printf("Mobile:    %s\n", orDash(st.Mobile))
	if st.MobileDuplicate {
		a.printf("           already registered\n")
	}

	if s := a.coord.Session(); s != nil {
		ev := s.Snapshot()
		a.printf("Session:   %s\n", ev.State)
		if ev.Cooldown > 0 {
			a.printf("Resend in: %ds\n", ev.Cooldown)
		}
		if ev.Err != nil {
			a.printf("Last error: %s\n", messageFor(ev.Err))
		}
	}
	if st.Federated {
		a.printf("Verified by identity provider\n")
	}

	a.stateMu.Lock()
	apiUp := a.apiUp
	a.stateMu.Unlock()
	if apiUp != nil && !*apiUp {
		a.printf("Verification service: unreachable\n")
	}

	if st.CanSubmit {
		a.printf("Ready to submit.\n")
	} else {
		a.printf("Not ready to submit.\n")
	}
	return nil
}

func (a *App) WhoAmI(ctx context.Context) error {
	r, err := a.receipts.Load(ctx)
	if errors.Is(err, common.ErrNotFound) {
		a.printf("No registration on this machine yet.\n")
		return nil
	}
	if err != nil {
		return a.report(err)
	}
	a.printf("Account:   %s\nEmail:     %s\n", r.AccountID, r.Email)
	if r.ImageURL != "" {
		a.printf("Image:     %s\n", r.ImageURL)
	}
	return nil
}

func (a *App) Reset(ctx context.Context) error {
	a.coord.Abandon()
	a.printf("Registration reset.\n")
	return nil
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
