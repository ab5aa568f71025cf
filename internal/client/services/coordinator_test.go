package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/dmitrijs2005/regflow/internal/client/directory"
	"github.com/dmitrijs2005/regflow/internal/client/federated"
	"github.com/dmitrijs2005/regflow/internal/client/models"
	"github.com/dmitrijs2005/regflow/internal/client/verification"
	"github.com/dmitrijs2005/regflow/internal/cryptox"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type deps struct {
	dir      *fakeDirectory
	accounts *fakeAccounts
	otp      *fakeOTP
}

func newCoordinator(opts ...Option) (*Coordinator, *deps) {
	d := &deps{dir: &fakeDirectory{}, accounts: &fakeAccounts{}, otp: &fakeOTP{}}
	return NewCoordinator(d.dir, d.accounts, d.otp, opts...), d
}

func verify(t *testing.T, c *Coordinator) {
	t.Helper()
	s := c.Session()
	require.NotNil(t, s)
	require.NoError(t, s.RequestCode(context.Background()))
	require.NoError(t, s.SubmitCode(context.Background(), "123456"))
}

// readyCoordinator has a verified email and a free mobile number.
func readyCoordinator(t *testing.T, opts ...Option) (*Coordinator, *deps) {
	t.Helper()
	c, d := newCoordinator(opts...)
	require.NoError(t, c.EmailEntered(context.Background(), "new@x.com"))
	require.NoError(t, c.MobileEntered(context.Background(), "555-1234"))
	verify(t, c)
	require.True(t, c.CanSubmit())
	return c, d
}

func form() *models.RegistrationForm {
	return &models.RegistrationForm{
		FullName: " Ada Lovelace ",
		Email:    "New@X.com",
		Mobile:   "555 1234",
		Password: []byte("correct horse"),
	}
}

func TestEmailEntered_NewEmail_CreatesIdleSession(t *testing.T) {
	c, d := newCoordinator()

	require.NoError(t, c.EmailEntered(context.Background(), "  New@X.com "))

	s := c.Session()
	require.NotNil(t, s)
	assert.Equal(t, verification.Idle, s.State())
	assert.Equal(t, "new@x.com", s.Email())
	assert.Equal(t, "new@x.com", d.dir.lastEmail)

	require.NoError(t, s.RequestCode(context.Background()))
	assert.Equal(t, verification.AwaitingCode, s.State())
	assert.Equal(t, verification.CooldownSeconds, s.Cooldown())
}

func TestEmailEntered_Duplicate_NoSession(t *testing.T) {
	c, d := newCoordinator()
	d.dir.emails = map[string]bool{"taken@x.com": true}

	err := c.EmailEntered(context.Background(), "taken@x.com")

	require.ErrorIs(t, err, ErrDuplicateEmail)
	assert.Nil(t, c.Session())
	assert.True(t, c.Status().EmailDuplicate)
	assert.False(t, c.CanSubmit())
}

func TestEmailEntered_Empty_NoLookup(t *testing.T) {
	c, d := newCoordinator()

	require.NoError(t, c.EmailEntered(context.Background(), "   "))
	assert.Nil(t, c.Session())
	assert.Equal(t, 0, d.dir.emailCalls)
}

func TestEmailEntered_LookupError_FailsOpenButStillNeedsVerification(t *testing.T) {
	c, d := newCoordinator()
	d.dir.emailErr = errors.New("directory down")
	require.NoError(t, c.MobileEntered(context.Background(), "5551234"))

	err := c.EmailEntered(context.Background(), "a@x.com")

	require.ErrorIs(t, err, ErrLookup)
	require.NotNil(t, c.Session())
	assert.False(t, c.Status().EmailDuplicate)
	assert.False(t, c.CanSubmit())

	verify(t, c)
	assert.True(t, c.CanSubmit())
}

func TestEmailEntered_LookupError_Strict_KeepsFlag(t *testing.T) {
	c, d := newCoordinator(WithStrictDuplicateCheck(true))
	d.dir.emails = map[string]bool{"taken@x.com": true}
	require.ErrorIs(t, c.EmailEntered(context.Background(), "taken@x.com"), ErrDuplicateEmail)

	d.dir.emailErr = errors.New("directory down")
	err := c.EmailEntered(context.Background(), "b@x.com")

	require.ErrorIs(t, err, ErrLookup)
	assert.Nil(t, c.Session())
	assert.True(t, c.Status().EmailDuplicate)
	assert.False(t, c.CanSubmit())
}

func TestEmailEntered_ChangeResetsVerifiedSession(t *testing.T) {
	c, _ := readyCoordinator(t)
	old := c.Session()

	var last verification.Event
	c.OnEvent(func(ev verification.Event) { last = ev })

	require.NoError(t, c.EmailEntered(context.Background(), "b@x.com"))

	assert.Equal(t, verification.Idle, old.State())
	assert.Equal(t, 0, old.Cooldown())
	s := c.Session()
	require.NotNil(t, s)
	assert.NotSame(t, old, s)
	assert.Equal(t, verification.Idle, s.State())
	assert.False(t, last.Verified)
	assert.Equal(t, "b@x.com", last.Email)
	assert.False(t, c.CanSubmit())
}

func TestOnEvent_ReceivesVerifiedFlag(t *testing.T) {
	c, _ := newCoordinator()
	var mu sync.Mutex
	var verified []bool
	c.OnEvent(func(ev verification.Event) {
		mu.Lock()
		verified = append(verified, ev.Verified)
		mu.Unlock()
	})

	require.NoError(t, c.EmailEntered(context.Background(), "a@x.com"))
	verify(t, c)

	mu.Lock()
	defer mu.Unlock()
	require.NotEmpty(t, verified)
	assert.True(t, verified[len(verified)-1])
	assert.False(t, verified[0])
}

func TestMobileEntered_DuplicateBlocksEvenWhenVerified(t *testing.T) {
	c, d := readyCoordinator(t)
	d.dir.mobiles = map[string]bool{"5551234": true}

	err := c.MobileEntered(context.Background(), "5551234")

	require.ErrorIs(t, err, ErrDuplicateMobile)
	assert.True(t, c.Session().Verified())
	assert.False(t, c.CanSubmit())

	require.NoError(t, c.MobileEntered(context.Background(), "5559999"))
	assert.True(t, c.CanSubmit())
}

func TestMobileEntered_LookupError_LeavesFlag(t *testing.T) {
	c, d := readyCoordinator(t)
	d.dir.mobiles = map[string]bool{"5551234": true}
	require.ErrorIs(t, c.MobileEntered(context.Background(), "5551234"), ErrDuplicateMobile)

	d.dir.mobileErr = errors.New("timeout")
	require.ErrorIs(t, c.MobileEntered(context.Background(), "5550000"), ErrLookup)
	assert.True(t, c.Status().MobileDuplicate)

	d.dir.mobileErr = nil
	require.NoError(t, c.MobileEntered(context.Background(), "5550000"))
	require.ErrorIs(t, c.MobileEntered(context.Background(), "5551234"), ErrDuplicateMobile)
	d.dir.mobileErr = errors.New("timeout")
	d.dir.mobiles = nil
	require.Error(t, c.MobileEntered(context.Background(), "5551234"))
	assert.True(t, c.Status().MobileDuplicate)
}

func TestMobileEntered_Normalizes(t *testing.T) {
	c, d := newCoordinator()
	require.NoError(t, c.MobileEntered(context.Background(), " (555) 123-4 "))
	assert.Equal(t, "5551234", d.dir.lastMobile)
}

func TestCanSubmit_RequiresVerification(t *testing.T) {
	c, d := newCoordinator()
	require.NoError(t, c.EmailEntered(context.Background(), "a@x.com"))
	require.NoError(t, c.MobileEntered(context.Background(), "5551234"))
	assert.False(t, c.CanSubmit())

	s := c.Session()
	require.NoError(t, s.RequestCode(context.Background()))
	assert.False(t, c.CanSubmit())

	d.otp.verifyErr = errors.New("invalid")
	require.Error(t, s.SubmitCode(context.Background(), "000000"))
	assert.False(t, c.CanSubmit())

	d.otp.verifyErr = nil
	require.NoError(t, s.SubmitCode(context.Background(), "123456"))
	assert.True(t, c.CanSubmit())
}

func TestSignInFederated_SatisfiesGate(t *testing.T) {
	v := &fakeVerifier{id: &federated.Identity{Email: "A@x.com", Issuer: "idp"}}
	c, d := newCoordinator(WithIdentityVerifier(v))
	require.NoError(t, c.EmailEntered(context.Background(), "a@x.com"))
	require.NoError(t, c.MobileEntered(context.Background(), "5551234"))

	id, err := c.SignInFederated(context.Background(), "token")
	require.NoError(t, err)
	assert.Equal(t, "idp", id.Issuer)

	assert.True(t, c.CanSubmit())
	assert.Equal(t, verification.Idle, c.Session().State())
	assert.False(t, c.Session().Verified())
	assert.Equal(t, 0, d.otp.sendCalls)

	require.NoError(t, c.EmailEntered(context.Background(), "b@x.com"))
	assert.False(t, c.CanSubmit())
	assert.False(t, c.Status().Federated)
}

func TestSignInFederated_Errors(t *testing.T) {
	c, _ := newCoordinator()
	_, err := c.SignInFederated(context.Background(), "t")
	assert.ErrorIs(t, err, federated.ErrNotConfigured)

	v := &fakeVerifier{id: &federated.Identity{Email: "other@x.com"}}
	c, _ = newCoordinator(WithIdentityVerifier(v))
	_, err = c.SignInFederated(context.Background(), "t")
	assert.ErrorIs(t, err, ErrNoEmail)

	require.NoError(t, c.EmailEntered(context.Background(), "a@x.com"))
	_, err = c.SignInFederated(context.Background(), "t")
	assert.ErrorIs(t, err, ErrEmailMismatch)
	assert.False(t, c.CanSubmit())

	v.id, v.err = nil, federated.ErrTokenExpired
	_, err = c.SignInFederated(context.Background(), "t")
	assert.ErrorIs(t, err, federated.ErrTokenExpired)
}

func TestSubmit_NotReady(t *testing.T) {
	c, d := newCoordinator()
	require.NoError(t, c.EmailEntered(context.Background(), "new@x.com"))

	_, err := c.Submit(context.Background(), form())
	require.ErrorIs(t, err, ErrNotReady)
	assert.Nil(t, d.accounts.created)
}

func TestSubmit_FormEmailMustMatchVerified(t *testing.T) {
	c, d := readyCoordinator(t)
	f := form()
	f.Email = "someone-else@x.com"

	_, err := c.Submit(context.Background(), f)
	require.ErrorIs(t, err, ErrNotReady)
	assert.Nil(t, d.accounts.created)
	assert.Equal(t, make([]byte, len("correct horse")), f.Password)
}

func TestSubmit_InvalidForm(t *testing.T) {
	c, d := readyCoordinator(t)
	f := form()
	f.FullName = ""

	_, err := c.Submit(context.Background(), f)
	require.ErrorIs(t, err, models.ErrInvalidForm)
	assert.Nil(t, d.accounts.created)
	assert.True(t, c.CanSubmit())
	assert.Equal(t, make([]byte, len("correct horse")), f.Password)
}

func TestSubmit_Success_WithImage(t *testing.T) {
	up := &fakeUploader{url: "https://cdn/x.png"}
	rc := &fakeReceipts{}
	c, d := readyCoordinator(t, WithImageUploader(up), WithReceipts(rc))
	f := form()
	f.ImagePath = "/tmp/me.png"

	acc, err := c.Submit(context.Background(), f)
	require.NoError(t, err)

	assert.Equal(t, "acc-1", acc.ID)
	assert.Equal(t, "Ada Lovelace", acc.FullName)
	assert.Equal(t, "new@x.com", acc.Email)
	assert.Equal(t, "5551234", acc.Mobile)
	assert.Equal(t, "https://cdn/x.png", acc.ImageURL)

	ok, err := cryptox.VerifyPassword([]byte("correct horse"), d.accounts.created.PasswordHash)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, make([]byte, len("correct horse")), f.Password)

	assert.Equal(t, "acc-1", up.lastAccount)
	assert.Equal(t, "/tmp/me.png", up.lastPath)
	assert.Equal(t, "https://cdn/x.png", d.accounts.imageURL)
	assert.Equal(t, &models.Receipt{AccountID: "acc-1", Email: "new@x.com", ImageURL: "https://cdn/x.png"}, rc.saved)

	assert.Nil(t, c.Session())
	assert.False(t, c.CanSubmit())
}

func TestSubmit_ImageFailure_KeepsAccount(t *testing.T) {
	up := &fakeUploader{err: errors.New("s3 down")}
	rc := &fakeReceipts{}
	c, d := readyCoordinator(t, WithImageUploader(up), WithReceipts(rc))
	f := form()
	f.ImagePath = "/tmp/me.png"

	acc, err := c.Submit(context.Background(), f)

	require.ErrorIs(t, err, ErrImageUpload)
	require.NotNil(t, acc)
	assert.NotNil(t, d.accounts.created)
	assert.Empty(t, acc.ImageURL)
	require.NotNil(t, rc.saved)
	assert.Equal(t, "acc-1", rc.saved.AccountID)
}

func TestSubmit_SetImageURLFailure(t *testing.T) {
	up := &fakeUploader{url: "https://cdn/x.png"}
	c, d := readyCoordinator(t, WithImageUploader(up))
	d.accounts.setImageErr = errors.New("db down")
	f := form()
	f.ImagePath = "/tmp/me.png"

	acc, err := c.Submit(context.Background(), f)
	require.ErrorIs(t, err, ErrImageUpload)
	assert.NotNil(t, acc)
}

func TestSubmit_AccountExists(t *testing.T) {
	c, d := readyCoordinator(t)
	d.accounts.createErr = fmt.Errorf("%w: %w: users_email_key", directory.ErrAlreadyExists, directory.ErrEmailTaken)

	_, err := c.Submit(context.Background(), form())
	require.ErrorIs(t, err, ErrDuplicateEmail)
	require.ErrorIs(t, err, directory.ErrAlreadyExists)
	assert.NotErrorIs(t, err, ErrDuplicateMobile)

	st := c.Status()
	assert.True(t, st.EmailDuplicate)
	assert.False(t, st.MobileDuplicate)
	assert.False(t, st.CanSubmit)
	assert.Nil(t, c.Session())
}

func TestSubmit_MobileTakenAtCreate_BlocksUntilMobileChanges(t *testing.T) {
	c, d := readyCoordinator(t)
	d.accounts.createErr = fmt.Errorf("%w: %w: profiles_mobile_key", directory.ErrAlreadyExists, directory.ErrMobileTaken)

	_, err := c.Submit(context.Background(), form())
	require.ErrorIs(t, err, ErrDuplicateMobile)
	assert.NotErrorIs(t, err, ErrDuplicateEmail)

	st := c.Status()
	assert.True(t, st.MobileDuplicate)
	assert.False(t, st.EmailDuplicate)
	assert.True(t, st.EmailVerified)
	assert.False(t, st.CanSubmit)

	d.accounts.createErr = nil
	require.NoError(t, c.MobileEntered(context.Background(), "555-9999"))
	assert.True(t, c.CanSubmit())

	f := form()
	f.Mobile = "555-9999"
	acc, err := c.Submit(context.Background(), f)
	require.NoError(t, err)
	assert.Equal(t, "5559999", acc.Mobile)
}

func TestSubmit_ReceiptFailureIsNotFatal(t *testing.T) {
	c, _ := readyCoordinator(t, WithReceipts(&fakeReceipts{err: errors.New("disk full")}))

	acc, err := c.Submit(context.Background(), form())
	require.NoError(t, err)
	assert.Equal(t, "acc-1", acc.ID)
}

func TestAbandon(t *testing.T) {
	c, _ := readyCoordinator(t)
	s := c.Session()

	c.Abandon()

	assert.Nil(t, c.Session())
	assert.Equal(t, verification.Idle, s.State())
	assert.False(t, c.CanSubmit())
	assert.Equal(t, Status{}, c.Status())
}

func TestRun_TicksLiveSession(t *testing.T) {
	c, _ := newCoordinator(WithTickInterval(time.Millisecond))
	require.NoError(t, c.EmailEntered(context.Background(), "a@x.com"))
	s := c.Session()
	require.NoError(t, s.RequestCode(context.Background()))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		c.Run(ctx)
		close(done)
	}()

	require.Eventually(t, s.ResendAllowed, 2*time.Second, 5*time.Millisecond)
	cancel()
	<-done
	assert.Equal(t, 0, s.Cooldown())
}
