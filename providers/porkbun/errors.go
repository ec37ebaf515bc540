package porkbun

import "errors"

var (
	// ErrTransport indicates the request never produced an HTTP response.
	ErrTransport = errors.New("porkbun request failed")

	// ErrAPIAccess indicates a response that is not the expected record list.
	// The usual cause is API access being disabled for the domain.
	ErrAPIAccess = errors.New("unexpected porkbun response (did you enable API access for this domain?)")

	// ErrPing indicates the credentials check did not succeed.
	ErrPing = errors.New("porkbun ping failed")
)
