// Package services contains the application services of the registration
// CLI: the Coordinator that drives duplicate checks, email verification and
// account creation, and the ReceiptStore that remembers the result locally.
package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/dmitrijs2005/regflow/internal/client/directory"
	"github.com/dmitrijs2005/regflow/internal/client/federated"
	"github.com/dmitrijs2005/regflow/internal/client/models"
	"github.com/dmitrijs2005/regflow/internal/client/verification"
	"github.com/dmitrijs2005/regflow/internal/common"
	"github.com/dmitrijs2005/regflow/internal/cryptox"
	"github.com/dmitrijs2005/regflow/internal/logging"
)

// ImageUploader stores a local image for an account and returns its URL.
type ImageUploader interface {
	UploadFile(ctx context.Context, accountID, path string) (string, error)
}

// IdentityVerifier validates a federated ID token.
type IdentityVerifier interface {
	Verify(ctx context.Context, token string) (*federated.Identity, error)
}

// ReceiptSaver records a finished registration.
type ReceiptSaver interface {
	Save(ctx context.Context, r models.Receipt) error
}

type Option func(*Coordinator)

// WithStrictDuplicateCheck makes a failed email lookup block verification
// instead of letting the user continue.
func WithStrictDuplicateCheck(strict bool) Option {
	return func(c *Coordinator) { c.strict = strict }
}

func WithRequestTimeout(d time.Duration) Option {
	return func(c *Coordinator) { c.requestTimeout = d }
}

func WithTickInterval(d time.Duration) Option {
	return func(c *Coordinator) {
		if d > 0 {
			c.tickInterval = d
		}
	}
}

func WithLogger(l logging.Logger) Option {
	return func(c *Coordinator) {
		if l != nil {
			c.logger = l
		}
	}
}

func WithImageUploader(u ImageUploader) Option {
	return func(c *Coordinator) { c.uploader = u }
}

func WithIdentityVerifier(v IdentityVerifier) Option {
	return func(c *Coordinator) { c.identities = v }
}

func WithReceipts(r ReceiptSaver) Option {
	return func(c *Coordinator) { c.receipts = r }
}

// Coordinator decides when an email needs verification and whether the
// registration may be submitted. It is safe for concurrent use.
type Coordinator struct {
	directory  directory.Directory
	accounts   directory.AccountStore
	otp        verification.OTPSender
	uploader   ImageUploader
	identities IdentityVerifier
	receipts   ReceiptSaver
	logger     logging.Logger

	strict         bool
	requestTimeout time.Duration
	tickInterval   time.Duration

	mu              sync.Mutex
	gen             uint64
	email           string
	mobile          string
	emailDuplicate  bool
	mobileDuplicate bool
	emailVerified   bool
	session         *verification.Session
	unsubscribe     func()
	identity        *federated.Identity
	listeners       []verification.Listener
}

func NewCoordinator(dir directory.Directory, accounts directory.AccountStore, otp verification.OTPSender, opts ...Option) *Coordinator {
	c := &Coordinator{
		directory:    dir,
		accounts:     accounts,
		otp:          otp,
		logger:       logging.Nop(),
		tickInterval: time.Second,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// OnEvent registers l for events of the current and every future session.
func (c *Coordinator) OnEvent(l verification.Listener) {
	c.mu.Lock()
	c.listeners = append(c.listeners, l)
	c.mu.Unlock()
}

// EmailEntered resets any session and checks email against the directory.
// A new session is created when the address is free. A failed lookup is
// returned wrapped in ErrLookup; by default the session is still created.
func (c *Coordinator) EmailEntered(ctx context.Context, email string) error {
	email = common.NormalizeEmail(email)

	c.mu.Lock()
	c.gen++
	gen := c.gen
	c.dropSessionLocked()
	c.email = email
	if c.identity != nil && common.NormalizeEmail(c.identity.Email) != email {
		c.identity = nil
	}
	if email == "" {
		c.emailDuplicate = false
		c.mu.Unlock()
		return nil
	}
	c.mu.Unlock()

	found, lookupErr := c.directory.EmailExists(ctx, email)

	c.mu.Lock()
	if c.gen != gen {
		c.mu.Unlock()
		return nil
	}

	switch {
	case lookupErr != nil && c.strict:
		c.mu.Unlock()
		c.logger.Warn(ctx, "email lookup failed", "email", email, "error", lookupErr)
		return fmt.Errorf("%w: %w", ErrLookup, lookupErr)
	case lookupErr == nil && found:
		c.emailDuplicate = true
		c.mu.Unlock()
		c.logger.Info(ctx, "email already registered", "email", email)
		return ErrDuplicateEmail
	}

	c.emailDuplicate = false
	s := c.newSessionLocked(email)
	listeners := append([]verification.Listener(nil), c.listeners...)
	c.mu.Unlock()

	ev := s.Snapshot()
	for _, l := range listeners {
		l(ev)
	}

	if lookupErr != nil {
		c.logger.Warn(ctx, "email lookup failed, continuing without duplicate check", "email", email, "error", lookupErr)
		return fmt.Errorf("%w: %w", ErrLookup, lookupErr)
	}
	c.logger.Debug(ctx, "verification session created", "email", email)
	return nil
}

// MobileEntered checks mobile against the directory. A failed lookup leaves
// the duplicate flag at its last value.
func (c *Coordinator) MobileEntered(ctx context.Context, mobile string) error {
	mobile = common.NormalizeContact(strings.TrimSpace(mobile))

	c.mu.Lock()
	c.mobile = mobile
	if mobile == "" {
		c.mobileDuplicate = false
		c.mu.Unlock()
		return nil
	}
	c.mu.Unlock()

	found, err := c.directory.MobileExists(ctx, mobile)

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.mobile != mobile {
		return nil
	}
	if err != nil {
		c.logger.Warn(ctx, "mobile lookup failed", "error", err)
		return fmt.Errorf("%w: %w", ErrLookup, err)
	}
	c.mobileDuplicate = found
	if found {
		return ErrDuplicateMobile
	}
	return nil
}

// SignInFederated accepts an ID token from an external provider. When the
// provider vouches for the entered email, the verification requirement is
// satisfied without an OTP.
func (c *Coordinator) SignInFederated(ctx context.Context, token string) (*federated.Identity, error) {
	if c.identities == nil {
		return nil, federated.ErrNotConfigured
	}

	id, err := c.identities.Verify(ctx, token)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	switch {
	case c.email == "":
		return nil, ErrNoEmail
	case c.emailDuplicate:
		return nil, ErrDuplicateEmail
	case common.NormalizeEmail(id.Email) != c.email:
		return nil, ErrEmailMismatch
	}
	c.identity = id
	c.logger.Info(ctx, "federated identity accepted", "email", c.email, "issuer", id.Issuer)
	return id, nil
}

// CanSubmit reports whether Submit would pass the gate.
func (c *Coordinator) CanSubmit() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.canSubmitLocked()
}

func (c *Coordinator) canSubmitLocked() bool {
	if c.email == "" || c.emailDuplicate || c.mobileDuplicate {
		return false
	}
	if c.identity != nil && common.NormalizeEmail(c.identity.Email) == c.email {
		return true
	}
	return c.session != nil && c.emailVerified
}

// Status is a read-only view of the registration gate.
type Status struct {
	Email           string
	Mobile          string
	EmailDuplicate  bool
	MobileDuplicate bool
	EmailVerified   bool
	Federated       bool
	CanSubmit       bool
}

func (c *Coordinator) Status() Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Status{
		Email:           c.email,
		Mobile:          c.mobile,
		EmailDuplicate:  c.emailDuplicate,
		MobileDuplicate: c.mobileDuplicate,
		EmailVerified:   c.session != nil && c.emailVerified,
		Federated:       c.identity != nil,
		CanSubmit:       c.canSubmitLocked(),
	}
}

// Session returns the live verification session, or nil.
func (c *Coordinator) Session() *verification.Session {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.session
}

// Submit creates the account for form. The form's email and mobile must be
// the ones already checked. The image is uploaded after the account exists;
// if that fails the account is kept and the error wraps ErrImageUpload.
// form.Password is wiped before Submit returns.
func (c *Coordinator) Submit(ctx context.Context, form *models.RegistrationForm) (*models.Account, error) {
	defer common.WipeByteArray(form.Password)

	email := common.NormalizeEmail(form.Email)
	mobile := common.NormalizeContact(strings.TrimSpace(form.Mobile))

	c.mu.Lock()
	ready := c.canSubmitLocked() && email == c.email && mobile == c.mobile
	c.mu.Unlock()
	if !ready {
		return nil, ErrNotReady
	}

	if err := form.Validate(); err != nil {
		return nil, err
	}

	acc, err := c.accounts.CreateAccount(ctx, &models.Account{
		FullName:     strings.TrimSpace(form.FullName),
		Email:        email,
		Mobile:       mobile,
		PasswordHash: cryptox.HashPassword(form.Password),
	})
	if err != nil {
		if errors.Is(err, directory.ErrAlreadyExists) {
			return nil, fmt.Errorf("create account: %w", c.markConflict(ctx, email, mobile, err))
		}
		return nil, fmt.Errorf("create account: %w", err)
	}
	c.logger.Info(ctx, "account created", "account_id", acc.ID, "email", acc.Email)

	imageErr := c.attachImage(ctx, acc, form.ImagePath)

	if c.receipts != nil {
		r := models.Receipt{AccountID: acc.ID, Email: acc.Email, ImageURL: acc.ImageURL}
		if err := c.receipts.Save(ctx, r); err != nil {
			c.logger.Warn(ctx, "save receipt failed", "account_id", acc.ID, "error", err)
		}
	}

	c.Abandon()
	return acc, imageErr
}

// markConflict records a unique violation found while creating the account
// so the gate stays closed until the conflicting field is entered again.
func (c *Coordinator) markConflict(ctx context.Context, email, mobile string, err error) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if errors.Is(err, directory.ErrMobileTaken) {
		if c.mobile == mobile {
			c.mobileDuplicate = true
		}
		c.logger.Info(ctx, "mobile already registered", "email", email)
		return fmt.Errorf("%w: %w", ErrDuplicateMobile, err)
	}

	if c.email == email {
		c.gen++
		c.dropSessionLocked()
		c.emailDuplicate = true
		c.identity = nil
	}
	c.logger.Info(ctx, "email already registered", "email", email)
	return fmt.Errorf("%w: %w", ErrDuplicateEmail, err)
}

func (c *Coordinator) attachImage(ctx context.Context, acc *models.Account, path string) error {
	if strings.TrimSpace(path) == "" || c.uploader == nil {
		return nil
	}

	url, err := c.uploader.UploadFile(ctx, acc.ID, path)
	if err != nil {
		c.logger.Warn(ctx, "profile image upload failed", "account_id", acc.ID, "error", err)
		return fmt.Errorf("%w: %w", ErrImageUpload, err)
	}
	if err := c.accounts.SetImageURL(ctx, acc.ID, url); err != nil {
		c.logger.Warn(ctx, "record image url failed", "account_id", acc.ID, "error", err)
		return fmt.Errorf("%w: %w", ErrImageUpload, err)
	}
	acc.ImageURL = url
	return nil
}

// Abandon destroys the session and forgets the entered values.
func (c *Coordinator) Abandon() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.gen++
	c.dropSessionLocked()
	c.email, c.mobile = "", ""
	c.emailDuplicate, c.mobileDuplicate = false, false
	c.identity = nil
}

// Run ticks the live session once per tick interval until ctx is done.
func (c *Coordinator) Run(ctx context.Context) {
	ticker := time.NewTicker(c.tickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if s := c.Session(); s != nil {
				s.Tick()
			}
		}
	}
}

func (c *Coordinator) newSessionLocked(email string) *verification.Session {
	s := verification.NewSession(email, c.otp,
		verification.WithRequestTimeout(c.requestTimeout),
		verification.WithLogger(c.logger),
	)
	c.session = s
	c.emailVerified = false
	c.unsubscribe = s.Subscribe(func(ev verification.Event) {
		c.mu.Lock()
		if c.session != s {
			c.mu.Unlock()
			return
		}
		c.emailVerified = ev.Verified
		listeners := append([]verification.Listener(nil), c.listeners...)
		c.mu.Unlock()

		for _, l := range listeners {
			l(ev)
		}
	})
	return s
}

// dropSessionLocked detaches and resets the current session. The listener
// is removed first so the reset does not call back into c.
func (c *Coordinator) dropSessionLocked() {
	if c.session == nil {
		return
	}
	c.unsubscribe()
	c.session.Reset()
	c.session = nil
	c.unsubscribe = nil
	c.emailVerified = false
}
