package directory

import (
	"context"
	"errors"

	"github.com/dmitrijs2005/regflow/internal/client/models"
)

var ErrAlreadyExists = errors.New("account already exists")

// ErrEmailTaken and ErrMobileTaken name the field behind an ErrAlreadyExists.
// Both are wrapped together with ErrAlreadyExists.
var (
	ErrEmailTaken  = errors.New("email taken")
	ErrMobileTaken = errors.New("mobile taken")
)

// Directory answers whether a user with the given email or mobile exists.
type Directory interface {
	EmailExists(ctx context.Context, email string) (bool, error)
	MobileExists(ctx context.Context, mobile string) (bool, error)
}

// AccountStore persists new accounts.
type AccountStore interface {
	CreateAccount(ctx context.Context, acc *models.Account) (*models.Account, error)
	SetImageURL(ctx context.Context, accountID, url string) error
}
