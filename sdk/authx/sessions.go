package authx

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/krancour/authkeeper/sdk/restmachinery"
	"github.com/pkg/errors"
)

// LoginCredentials represents the payload of a login request.
type LoginCredentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	// Captcha is the answer to the challenge identified by CaptchaID.
	Captcha   string `json:"captcha"`
	CaptchaID string `json:"captcha_id"`
}

// Validate checks the LoginCredentials for completeness. Validation is the
// caller's responsibility; SessionsClient.Login does not call this.
func (l LoginCredentials) Validate() error {
	return validate(loginCredentialsSchemaLoader, "login credentials", l)
}

// Session represents a logged in user and the access token issued to them.
type Session struct {
	User        User   `json:"user"`
	AccessToken string `json:"access_token"`
}

// sessionData is the wire form of a Session. The user is kept raw so session
// state can persist exactly what the server sent.
type sessionData struct {
	User        json.RawMessage `json:"user"`
	AccessToken string          `json:"access_token"`
}

func (s sessionData) complete() bool {
	return len(s.User) > 0 && string(s.User) != "null" && s.AccessToken != ""
}

func (s sessionData) session() (Session, error) {
	session := Session{AccessToken: s.AccessToken}
	if err := json.Unmarshal(s.User, &session.User); err != nil {
		return session, errors.Wrap(err, "error unmarshaling user")
	}
	return session, nil
}

// SessionsClient is the specialized client for logging in and out.
type SessionsClient interface {
	// Login exchanges credentials for a user and access token, which become the
	// current session. The API server also hands the transport a long-lived
	// secret used for refreshing the access token later.
	Login(context.Context, LoginCredentials) (Session, error)
	// Logout ends the session on the API server and, if the server agrees,
	// clears the current session.
	Logout(context.Context) error
	// Refresh obtains a new access token for the current session right away.
	Refresh(context.Context) error
}

type sessionsClient struct {
	*restmachinery.BaseClient
}

// NewSessionsClient returns a specialized client for logging in and out.
func NewSessionsClient(baseClient *restmachinery.BaseClient) SessionsClient {
	return &sessionsClient{
		BaseClient: baseClient,
	}
}

func (s *sessionsClient) Login(
	ctx context.Context,
	credentials LoginCredentials,
) (Session, error) {
	data := sessionData{}
	if err := s.ExecuteRequest(
		ctx,
		restmachinery.OutboundRequest{
			Method:     http.MethodPost,
			Path:       "user/login",
			ReqBodyObj: credentials,
			RespObj:    &data,
		},
	); err != nil {
		return Session{}, err
	}
	if !data.complete() {
		return Session{}, errors.New(
			"API server reported a successful login but did not return a session",
		)
	}
	session, err := data.session()
	if err != nil {
		return session, err
	}
	s.State().Replace(ctx, data.User, data.AccessToken)
	return session, nil
}

func (s *sessionsClient) Logout(ctx context.Context) error {
	if err := s.ExecuteRequest(
		ctx,
		restmachinery.OutboundRequest{
			Method: http.MethodPost,
			Path:   "user/logout",
		},
	); err != nil {
		return err
	}
	s.State().Clear(ctx)
	return nil
}

func (s *sessionsClient) Refresh(ctx context.Context) error {
	return s.BaseClient.Refresh(ctx)
}
