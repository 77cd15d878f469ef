package authx

import (
	"github.com/krancour/authkeeper/sdk/restmachinery"
	"github.com/krancour/authkeeper/sdk/session"
	"github.com/sirupsen/logrus"
)

// APIClient is the root client for the authentication-related parts of the
// API. Every specialized client it returns shares one session and one
// BaseClient, so a burst of expired requests across all of them still results
// in a single refresh.
type APIClient interface {
	// Sessions returns a specialized client for logging in and out.
	Sessions() SessionsClient
	// Users returns a specialized client for registering and identifying users.
	Users() UsersClient
	// Captchas returns a specialized client for challenges and verification
	// codes.
	Captchas() CaptchasClient
	// BaseClient returns the BaseClient underlying every specialized client. It
	// can send arbitrary requests with the same session handling.
	BaseClient() *restmachinery.BaseClient
}

type apiClient struct {
	baseClient *restmachinery.BaseClient
	// sessionsClient is a specialized client for Session management.
	sessionsClient SessionsClient
	// usersClient is a specialized client for User management.
	usersClient UsersClient
	// captchasClient is a specialized client for challenges and verification
	// codes.
	captchasClient CaptchasClient
}

// NewAPIClient returns an APIClient that reads and maintains the specified
// session state.
func NewAPIClient(
	config restmachinery.BaseClientConfig,
	state *session.State,
	log logrus.FieldLogger,
) (APIClient, error) {
	baseClient, err := restmachinery.NewBaseClient(config, state, log)
	if err != nil {
		return nil, err
	}
	return &apiClient{
		baseClient:     baseClient,
		sessionsClient: NewSessionsClient(baseClient),
		usersClient:    NewUsersClient(baseClient),
		captchasClient: NewCaptchasClient(baseClient),
	}, nil
}

func (a *apiClient) Sessions() SessionsClient {
	return a.sessionsClient
}

func (a *apiClient) Users() UsersClient {
	return a.usersClient
}

func (a *apiClient) Captchas() CaptchasClient {
	return a.captchasClient
}

func (a *apiClient) BaseClient() *restmachinery.BaseClient {
	return a.baseClient
}
