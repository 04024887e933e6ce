package token

import "errors"

var (
	ErrTokenNotFound       = errors.New("service token not found")
	ErrNameTaken           = errors.New("service token name already exists")
	ErrInvalidName         = errors.New("service token name is required")
	ErrAlreadyBootstrapped = errors.New("system already bootstrapped")
	ErrUnauthenticated     = errors.New("invalid or unknown access key")
)
