package authx

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/krancour/authkeeper/sdk/restmachinery"
	"github.com/krancour/authkeeper/sdk/session"
	"github.com/sirupsen/logrus"
	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/require"
)

const (
	testAPIAddress  = "localhost:8080"
	testUser        = `{"id":42,"username":"tony","email":"tony@example.com"}`
	testAccessToken = "T1"
)

func testLogger() logrus.FieldLogger {
	log, _ := logtest.NewNullLogger()
	return log
}

func newTestAPIClient(
	t *testing.T,
	apiAddress string,
	state *session.State,
) APIClient {
	if state == nil {
		state = session.NewState(nil, testLogger())
	}
	client, err := NewAPIClient(
		restmachinery.BaseClientConfig{APIAddress: apiAddress},
		state,
		testLogger(),
	)
	require.NoError(t, err)
	return client
}

func loggedInState() *session.State {
	state := session.NewState(nil, testLogger())
	state.Replace(context.Background(), json.RawMessage(testUser), testAccessToken)
	return state
}

func TestNewAPIClient(t *testing.T) {
	client := newTestAPIClient(t, testAPIAddress, nil)
	require.IsType(t, &apiClient{}, client)
	require.NotNil(t, client.BaseClient())
	require.Equal(t, testAPIAddress, client.BaseClient().APIAddress)
	require.NotNil(t, client.(*apiClient).sessionsClient)
	require.NotNil(t, client.Sessions())
	require.NotNil(t, client.(*apiClient).usersClient)
	require.NotNil(t, client.Users())
	require.NotNil(t, client.(*apiClient).captchasClient)
	require.NotNil(t, client.Captchas())
	// Every specialized client shares one BaseClient
	require.Same(
		t,
		client.BaseClient(),
		client.Sessions().(*sessionsClient).BaseClient,
	)
	require.Same(
		t,
		client.BaseClient(),
		client.Users().(*usersClient).BaseClient,
	)
	require.Same(
		t,
		client.BaseClient(),
		client.Captchas().(*captchasClient).BaseClient,
	)
}
