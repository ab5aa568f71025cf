package services

import (
	"context"
	"sync"

	"github.com/dmitrijs2005/regflow/internal/client/federated"
	"github.com/dmitrijs2005/regflow/internal/client/models"
)

type fakeDirectory struct {
	mu          sync.Mutex
	emails      map[string]bool
	mobiles     map[string]bool
	emailErr    error
	mobileErr   error
	emailCalls  int
	mobileCalls int
	lastEmail   string
	lastMobile  string
}

func (f *fakeDirectory) EmailExists(_ context.Context, email string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.emailCalls++
	f.lastEmail = email
	if f.emailErr != nil {
		return false, f.emailErr
	}
	return f.emails[email], nil
}

func (f *fakeDirectory) MobileExists(_ context.Context, mobile string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.mobileCalls++
	f.lastMobile = mobile
	if f.mobileErr != nil {
		return false, f.mobileErr
	}
	return f.mobiles[mobile], nil
}

type fakeAccounts struct {
	createErr   error
	setImageErr error
	created     *models.Account
	imageURL    string
}

func (f *fakeAccounts) CreateAccount(_ context.Context, acc *models.Account) (*models.Account, error) {
	if f.createErr != nil {
		return nil, f.createErr
	}
	cp := *acc
	cp.ID = "acc-1"
	f.created = &cp
	return &cp, nil
}

func (f *fakeAccounts) SetImageURL(_ context.Context, accountID, url string) error {
	if f.setImageErr != nil {
		return f.setImageErr
	}
	f.imageURL = url
	return nil
}

type fakeOTP struct {
	mu          sync.Mutex
	sendErr     error
	verifyErr   error
	sendCalls   int
	verifyCalls int
}

func (f *fakeOTP) SendOTP(context.Context, string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sendCalls++
	return f.sendErr
}

func (f *fakeOTP) VerifyOTP(context.Context, string, string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.verifyCalls++
	return f.verifyErr
}

type fakeUploader struct {
	url         string
	err         error
	lastAccount string
	lastPath    string
}

func (f *fakeUploader) UploadFile(_ context.Context, accountID, path string) (string, error) {
	f.lastAccount, f.lastPath = accountID, path
	return f.url, f.err
}

type fakeVerifier struct {
	id  *federated.Identity
	err error
}

func (f *fakeVerifier) Verify(context.Context, string) (*federated.Identity, error) {
	return f.id, f.err
}

type fakeReceipts struct {
	saved *models.Receipt
	err   error
}

func (f *fakeReceipts) Save(_ context.Context, r models.Receipt) error {
	f.saved = &r
	return f.err
}
