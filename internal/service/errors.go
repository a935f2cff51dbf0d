package service

import "errors"

// Business-rule outcomes. Handlers map these to HTTP statuses with errors.Is;
// anything not in this list is treated as an internal failure.
var (
	ErrValidation         = errors.New("missing or invalid input")
	ErrNotFound           = errors.New("user not found")
	ErrDuplicateEmail     = errors.New("email already registered, sign in instead")
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrAlreadyVerified    = errors.New("account already verified")
	ErrNoOtpPending       = errors.New("no otp pending for this account")
	ErrOtpExpired         = errors.New("otp expired, request a new one")
	ErrOtpMismatch        = errors.New("incorrect otp")
	ErrDelivery           = errors.New("could not send email")
	ErrStore              = errors.New("storage failure")
)
