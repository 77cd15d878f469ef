package meta

import (
	"fmt"

	"github.com/pkg/errors"
)

// ErrNetwork represents a transport-level failure (timeout, connection reset,
// DNS failure, etc.) that prevented a request from completing. Session state
// is never altered because of one, so the caller may simply try again.
type ErrNetwork struct {
	// Method is the HTTP method of the failed request.
	Method string
	// Path is the path of the failed request.
	Path string
	// Err is the underlying transport error.
	Err error
}

func (e *ErrNetwork) Error() string {
	return fmt.Sprintf("Network error invoking %s %s: %s", e.Method, e.Path, e.Err)
}

func (e *ErrNetwork) Unwrap() error {
	return e.Err
}

// Cause is implemented for compatibility with github.com/pkg/errors.
func (e *ErrNetwork) Cause() error {
	return e.Err
}

// ErrAuthExpired represents an access token expiry that could not be
// recovered from, either because refreshing the token failed or because the
// API server still reported expiry after the request was replayed with a
// freshly refreshed token. Session state has been cleared by the time a caller
// receives this error.
type ErrAuthExpired struct {
	// Reason describes why the session could not be recovered.
	Reason string
	// Err, if non-nil, is the failure that ended the session.
	Err error
}

func (e *ErrAuthExpired) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("Session expired: %s", e.Reason)
	}
	return fmt.Sprintf("Session expired: %s: %s", e.Reason, e.Err)
}

func (e *ErrAuthExpired) Unwrap() error {
	return e.Err
}

// ErrRefreshRejected represents a refresh attempt that reached the API server
// but did not yield a new access token-- the long-lived secret was revoked or
// expired, or the server's reply could not be understood. It is treated
// exactly like ErrAuthExpired.
type ErrRefreshRejected struct {
	// Code is the application-level code the server replied with, if any.
	Code int
	// Messages is the message the server replied with, if any.
	Messages string
	// Reason describes why the reply was rejected when the server's reply could
	// not be used at all.
	Reason string
}

func (e *ErrRefreshRejected) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("Token refresh rejected: %s", e.Reason)
	}
	return fmt.Sprintf(
		"Token refresh rejected by API server (code %d): %s",
		e.Code,
		e.Messages,
	)
}

// ErrAPI represents a well-formed API response carrying an application-level
// code other than CodeSuccess. It is not part of the session error taxonomy;
// wrong passwords, captcha mismatches and the like all surface this way.
type ErrAPI struct {
	Code     int
	Messages string
}

func (e *ErrAPI) Error() string {
	if e.Messages == "" {
		return fmt.Sprintf("API server replied with code %d", e.Code)
	}
	return fmt.Sprintf("API server replied with code %d: %s", e.Code, e.Messages)
}

// IsSessionTerminated returns true if err indicates that the session has ended
// and the application should present itself as logged out.
func IsSessionTerminated(err error) bool {
	var authExpiredErr *ErrAuthExpired
	if errors.As(err, &authExpiredErr) {
		return true
	}
	var refreshRejectedErr *ErrRefreshRejected
	return errors.As(err, &refreshRejectedErr)
}

// IsNetwork returns true if err is, or wraps, an *ErrNetwork, meaning the
// request may simply be tried again. A network failure that ended the session
// (e.g. while refreshing the access token) is terminal, so IsNetwork returns
// false for any err that IsSessionTerminated returns true for.
func IsNetwork(err error) bool {
	if IsSessionTerminated(err) {
		return false
	}
	var networkErr *ErrNetwork
	return errors.As(err, &networkErr)
}
