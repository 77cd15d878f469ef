package meta

import (
	"encoding/json"

	"github.com/pkg/errors"
)

const (
	// CodeSuccess is the application-level code every endpoint uses to signal
	// success. Callers must check it; a 200 transport status alone means nothing.
	CodeSuccess = 2000
	// CodeAccessTokenExpired is the application-level code the API server uses
	// to signal that the access token attached to a request is no longer valid.
	// It arrives with transport status 200.
	CodeAccessTokenExpired = 4011
)

// Response represents the envelope wrapped around every API response.
type Response struct {
	// Code is the application-level result code.
	Code int `json:"code"`
	// Messages is a human-readable description of the result. Servers populate
	// it mostly on failure.
	Messages string `json:"messages"`
	// Data is the endpoint-specific payload. It is left undecoded so that each
	// caller can decode it into its own type.
	Data json.RawMessage `json:"data,omitempty"`
}

// Succeeded returns true if the response carries the success sentinel.
func (r Response) Succeeded() bool {
	return r.Code == CodeSuccess
}

// AccessTokenExpired returns true if the response signals that the access
// token the request was sent with has expired.
func (r Response) AccessTokenExpired() bool {
	return r.Code == CodeAccessTokenExpired
}

// DecodeData unmarshals the response's payload into the value pointed to by v.
// An absent or null payload leaves v untouched.
func (r Response) DecodeData(v interface{}) error {
	if len(r.Data) == 0 || string(r.Data) == "null" {
		return nil
	}
	if err := json.Unmarshal(r.Data, v); err != nil {
		return errors.Wrap(err, "error unmarshaling response data")
	}
	return nil
}
