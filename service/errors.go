package service

import "errors"

// Domain errors returned by the auth and catalog services. Handlers map these
// to HTTP statuses; anything else is a 500.
var (
	ErrEmailTaken         = errors.New("email already exists")
	ErrUserNotFound       = errors.New("user not found")
	ErrAlreadyVerified    = errors.New("account is already verified")
	ErrInvalidOTP         = errors.New("invalid OTP")
	ErrOTPExpired         = errors.New("OTP has expired")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrNotVerified        = errors.New("account is not verified")
	ErrWrongOldPassword   = errors.New("incorrect old password")

	ErrBookNotFound     = errors.New("book not found")
	ErrAuthorNotFound   = errors.New("author not found")
	ErrCategoryNotFound = errors.New("category not found")
	ErrTagNotFound      = errors.New("tag not found")
	ErrInvalidPrice     = errors.New("price must be a decimal number")
)
