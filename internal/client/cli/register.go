package cli

import (
	"bytes"
	"context"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/regflow/internal/client/models"
	"github.com/dmitrijs2005/regflow/internal/client/services"
	"github.com/dmitrijs2005/regflow/internal/common"
)

var errPasswordMismatch = errors.New("passwords do not match")

// Submit collects the remaining form fields and creates the account.
func (a *App) Submit(ctx context.Context) error {
	if !a.coord.CanSubmit() {
		return a.report(services.ErrNotReady)
	}
	st := a.coord.Status()

	name, err := getSimpleText(a.reader, "Full name", a.out)
	if err != nil {
		return err
	}

	password, err := a.readNewPassword()
	if err != nil {
		a.printf("Error: %s\n", capitalize(err.Error()))
		return err
	}
	defer common.WipeByteArray(password)

	image, err := getSimpleText(a.reader, "Profile image path (optional)", a.out)
	if err != nil {
		return err
	}

	acc, err := a.coord.Submit(ctx, &models.RegistrationForm{
		FullName:  name,
		Email:     st.Email,
		Mobile:    st.Mobile,
		Password:  password,
		ImagePath: image,
	})
	switch {
	case errors.Is(err, services.ErrImageUpload) && acc != nil:
		a.printf("Account %s created, but the profile image could not be uploaded.\n", acc.ID)
		return err
	case err != nil:
		return a.report(err)
	}

	a.printf("Registration complete. Account ID: %s\n", acc.ID)
	if acc.ImageURL != "" {
		a.printf("Profile image: %s\n", acc.ImageURL)
	}
	return nil
}

func (a *App) readNewPassword() ([]byte, error) {
	pw, err := getPassword("Password", a.out)
	if err != nil {
		return nil, err
	}
	confirm, err := getPassword("Repeat password", a.out)
	if err != nil {
		common.WipeByteArray(pw)
		return nil, err
	}
	defer common.WipeByteArray(confirm)

	if !bytes.Equal(pw, confirm) {
		common.WipeByteArray(pw)
		return nil, errPasswordMismatch
	}
	if len(pw) < models.MinPasswordLength {
		common.WipeByteArray(pw)
		return nil, fmt.Errorf("password must be at least %d characters", models.MinPasswordLength)
	}
	return pw, nil
}
