package services

import "errors"

var (
	ErrDuplicateEmail  = errors.New("an account with this email already exists")
	ErrDuplicateMobile = errors.New("an account with this mobile number already exists")
	ErrLookup          = errors.New("could not check for an existing account, please try again")
	ErrNotReady        = errors.New("registration is not ready to submit")
	ErrImageUpload     = errors.New("profile image upload failed")
	ErrEmailMismatch   = errors.New("identity email does not match the entered email")
	ErrNoEmail         = errors.New("enter an email address first")
)
