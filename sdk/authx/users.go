package authx

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/krancour/authkeeper/sdk/restmachinery"
	"github.com/pkg/errors"
)

// User represents a registered user as described by the API server.
type User struct {
	ID        int64  `json:"id"`
	UUID      string `json:"uuid,omitempty"`
	Username  string `json:"username"`
	Email     string `json:"email"`
	OpenID    string `json:"openid,omitempty"`
	Avatar    string `json:"avatar,omitempty"`
	Address   string `json:"address,omitempty"`
	Signature string `json:"signature,omitempty"`
	// Register identifies how the user registered.
	Register int  `json:"register"`
	Freeze   bool `json:"freeze"`
}

// Registration represents a request to register a new user.
type Registration struct {
	Username string `json:"username"`
	Password string `json:"password"`
	Email    string `json:"email"`
	// VerificationCode is the code mailed to Email by
	// CaptchasClient.SendEmailVerificationCode.
	VerificationCode string `json:"verification_code"`
	// PasswordConfirmation must repeat Password. It is only checked by Validate
	// and is never sent.
	PasswordConfirmation string `json:"-"`
}

// Validate checks the Registration against the rules the API server enforces
// so obviously invalid registrations can be caught before they are sent.
// Validation is the caller's responsibility; UsersClient.Register does not
// call this.
func (r Registration) Validate() error {
	if r.Password != r.PasswordConfirmation {
		return &ErrValidation{
			Reason:  "registration",
			Details: []string{"password and password confirmation do not match"},
		}
	}
	return validate(registrationSchemaLoader, "registration", r)
}

// UsersClient is the specialized client for registering and identifying users.
type UsersClient interface {
	// Register registers a new user. Some API servers log new users in right
	// away; if the reply includes a user and an access token, they become the
	// current session and are returned. Otherwise a nil *Session is returned
	// and the new user must log in.
	Register(context.Context, Registration) (*Session, error)
	// Current returns the logged in user or nil if no user is logged in.
	Current() (*User, error)
}

type usersClient struct {
	*restmachinery.BaseClient
}

// NewUsersClient returns a specialized client for registering and identifying
// users.
func NewUsersClient(baseClient *restmachinery.BaseClient) UsersClient {
	return &usersClient{
		BaseClient: baseClient,
	}
}

func (u *usersClient) Register(
	ctx context.Context,
	registration Registration,
) (*Session, error) {
	data := sessionData{}
	if err := u.ExecuteRequest(
		ctx,
		restmachinery.OutboundRequest{
			Method:     http.MethodPost,
			Path:       "user/register",
			ReqBodyObj: registration,
			RespObj:    &data,
		},
	); err != nil {
		return nil, err
	}
	if !data.complete() {
		return nil, nil
	}
	session, err := data.session()
	if err != nil {
		return nil, err
	}
	u.State().Replace(ctx, data.User, data.AccessToken)
	return &session, nil
}

func (u *usersClient) Current() (*User, error) {
	snapshot := u.State().Read()
	if !snapshot.LoggedIn() {
		return nil, nil
	}
	user := &User{}
	if err := json.Unmarshal(snapshot.User, user); err != nil {
		return nil, errors.Wrap(err, "error unmarshaling current user")
	}
	return user, nil
}
