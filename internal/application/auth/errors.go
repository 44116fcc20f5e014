package auth

import "errors"

var (
	ErrEmailPasswordRequired = errors.New("Email and password are required")
	ErrInvalidEmail          = errors.New("Invalid Email")
	ErrIncorrectPassword     = errors.New("Incorrect Password")
	ErrAccountLocked         = errors.New("Account locked after too many failed attempts. Try again later")
	ErrAccountInactive       = errors.New("Account is disabled")
	ErrNotAuthenticated      = errors.New("Not authenticated")
)
