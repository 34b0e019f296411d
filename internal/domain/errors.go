package domain

import "errors"

var (
	// ErrNotFound is returned when the requested resource does not exist.
	// Keeping this sentinel in domain lets adapters map it consistently to 404.
	ErrNotFound = errors.New("resource not found")

	// ErrInvalidUsername and ErrWeakPassword are registration-validation
	// failures; their messages are intentionally specific, unlike login failures.
	ErrInvalidUsername   = errors.New("invalid username")
	ErrWeakPassword      = errors.New("weak password")
	ErrDuplicateUsername = errors.New("username already taken")

	// ErrAuthenticationFailed hides whether the username or the password was
	// wrong, to prevent account-enumeration side channels.
	ErrAuthenticationFailed = errors.New("invalid username or password")
	ErrAccountInactive      = errors.New("account is inactive")

	ErrCaptchaMissing     = errors.New("captcha token and answer are required")
	ErrCaptchaNotFound    = errors.New("captcha invalid or expired")
	ErrCaptchaWrongAnswer = errors.New("wrong captcha answer")
	ErrCaptchaExhausted   = errors.New("too many wrong captcha attempts")

	ErrTokenMissing          = errors.New("authentication token missing")
	ErrTokenMalformed        = errors.New("malformed token")
	ErrTokenExpired          = errors.New("token expired")
	ErrTokenInvalidSignature = errors.New("invalid token signature")

	ErrRateLimited  = errors.New("too many requests, try again later")
	ErrInvalidInput = errors.New("invalid input")
)
