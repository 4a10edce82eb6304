package domain

import "errors"

// Sentinel errors forming the failure taxonomy of the identity core. Callers
// match them with errors.Is; services wrap them with operation context.
var (
	// ErrValidation indicates malformed input rejected before reaching the core.
	ErrValidation = errors.New("invalid input")
	// ErrConflict indicates an email address is already registered.
	ErrConflict = errors.New("email already registered")
	// ErrUnauthorized indicates bad credentials or an account that cannot sign in.
	// The message deliberately does not distinguish an unknown email from a wrong
	// password or an inactive account.
	ErrUnauthorized = errors.New("invalid email or password")
	// ErrNotFound indicates an unknown user or confirmation token.
	ErrNotFound = errors.New("not found")
	// ErrInvalidState indicates a lifecycle violation on the user aggregate,
	// such as assigning a confirmation token to an activated account.
	ErrInvalidState = errors.New("invalid account state")
	// ErrInvalidToken indicates a confirmation token that is expired or already consumed.
	ErrInvalidToken = errors.New("confirmation token expired or already used")
	// ErrConfiguration indicates required configuration, such as the signing
	// secret, is missing at startup.
	ErrConfiguration = errors.New("missing configuration")
	// ErrCrypto indicates an unexpected failure while hashing or decoding
	// stored credential material.
	ErrCrypto = errors.New("crypto failure")
)
