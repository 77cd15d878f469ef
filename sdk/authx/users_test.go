package authx

import (
	"context"
	"encoding/json"
	"fmt"
	"io/ioutil"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"
)

func TestRegistrationValidate(t *testing.T) {
	valid := Registration{
		Username:             "tony",
		Password:             "hunter22",
		PasswordConfirmation: "hunter22",
		Email:                "tony@example.com",
		VerificationCode:     "123456",
	}
	testCases := []struct {
		name         string
		registration func() Registration
		assertions   func(t *testing.T, err error)
	}{
		{
			name:         "valid",
			registration: func() Registration { return valid },
			assertions: func(t *testing.T, err error) {
				require.NoError(t, err)
			},
		},
		{
			name: "confirmation mismatch",
			registration: func() Registration {
				r := valid
				r.PasswordConfirmation = "hunter23"
				return r
			},
			assertions: func(t *testing.T, err error) {
				verr := &ErrValidation{}
				require.True(t, errors.As(err, &verr))
				require.Contains(t, verr.Details[0], "do not match")
			},
		},
		{
			name: "password too short",
			registration: func() Registration {
				r := valid
				r.Password = "short"
				r.PasswordConfirmation = "short"
				return r
			},
			assertions: func(t *testing.T, err error) {
				verr := &ErrValidation{}
				require.True(t, errors.As(err, &verr))
				require.Len(t, verr.Details, 1)
			},
		},
		{
			name: "password too long",
			registration: func() Registration {
				r := valid
				r.Password = "abcdefghijklmnopqrstu"
				r.PasswordConfirmation = r.Password
				return r
			},
			assertions: func(t *testing.T, err error) {
				require.Error(t, err)
			},
		},
		{
			name: "username too long",
			registration: func() Registration {
				r := valid
				r.Username = "abcdefghijklmnopqrstu"
				return r
			},
			assertions: func(t *testing.T, err error) {
				require.Error(t, err)
			},
		},
		{
			name: "missing verification code",
			registration: func() Registration {
				r := valid
				r.VerificationCode = ""
				return r
			},
			assertions: func(t *testing.T, err error) {
				require.Error(t, err)
			},
		},
	}
	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			testCase.assertions(t, testCase.registration().Validate())
		})
	}
}

func TestUsersClientRegister(t *testing.T) {
	registration := Registration{
		Username:             "tony",
		Password:             "hunter22",
		PasswordConfirmation: "hunter22",
		Email:                "tony@example.com",
		VerificationCode:     "123456",
	}
	testCases := []struct {
		name       string
		response   string
		assertions func(t *testing.T, session *Session, err error, client APIClient)
	}{
		{
			name: "logged in right away",
			response: fmt.Sprintf(
				`{"code":2000,"messages":"ok","data":{"user":%s,"access_token":"T1"}}`,
				testUser,
			),
			assertions: func(
				t *testing.T,
				session *Session,
				err error,
				client APIClient,
			) {
				require.NoError(t, err)
				require.NotNil(t, session)
				require.Equal(t, "T1", session.AccessToken)
				require.Equal(t, "T1", client.BaseClient().State().Read().AccessToken)
			},
		},
		{
			name:     "must log in",
			response: `{"code":2000,"messages":"ok","data":{"id":42}}`,
			assertions: func(
				t *testing.T,
				session *Session,
				err error,
				client APIClient,
			) {
				require.NoError(t, err)
				require.Nil(t, session)
				require.False(t, client.BaseClient().State().Read().LoggedIn())
			},
		},
		{
			name:     "refused",
			response: `{"code":4002,"messages":"verification code is wrong"}`,
			assertions: func(
				t *testing.T,
				session *Session,
				err error,
				client APIClient,
			) {
				require.Error(t, err)
				require.Nil(t, session)
				require.False(t, client.BaseClient().State().Read().LoggedIn())
			},
		},
	}
	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			server := httptest.NewServer(
				http.HandlerFunc(
					func(w http.ResponseWriter, r *http.Request) {
						require.Equal(t, http.MethodPost, r.Method)
						require.Equal(t, "/user/register", r.URL.Path)
						bodyBytes, err := ioutil.ReadAll(r.Body)
						require.NoError(t, err)
						body := map[string]string{}
						require.NoError(t, json.Unmarshal(bodyBytes, &body))
						require.Equal(
							t,
							map[string]string{
								"username":          "tony",
								"password":          "hunter22",
								"email":             "tony@example.com",
								"verification_code": "123456",
							},
							body,
						)
						fmt.Fprint(w, testCase.response)
					},
				),
			)
			defer server.Close()
			client := newTestAPIClient(t, server.URL, nil)
			session, err := client.Users().Register(context.Background(), registration)
			testCase.assertions(t, session, err, client)
		})
	}
}

func TestUsersClientCurrent(t *testing.T) {
	client := newTestAPIClient(t, testAPIAddress, nil)
	user, err := client.Users().Current()
	require.NoError(t, err)
	require.Nil(t, user)

	client = newTestAPIClient(t, testAPIAddress, loggedInState())
	user, err = client.Users().Current()
	require.NoError(t, err)
	require.NotNil(t, user)
	require.Equal(t, int64(42), user.ID)
	require.Equal(t, "tony@example.com", user.Email)
}
