package session

import (
	"context"
	"encoding/json"
	"sync"
	"testing"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/require"
)

const (
	testUser         = `{"id":1,"username":"tony"}`
	testAccessToken  = "T1"
	testRenewedToken = "T2"
)

func testLogger() logrus.FieldLogger {
	log, _ := logtest.NewNullLogger()
	return log
}

type brokenPersister struct{}

func (brokenPersister) Get(context.Context, string) (string, bool, error) {
	return "", false, errors.New("disk on fire")
}

func (brokenPersister) Set(context.Context, string, string) error {
	return errors.New("disk on fire")
}

func (brokenPersister) Delete(context.Context, string) error {
	return errors.New("disk on fire")
}

func requireConsistent(t *testing.T, snapshot Snapshot) {
	require.Equal(
		t,
		len(snapshot.User) > 0,
		snapshot.AccessToken != "",
		"user and access token must be present or absent together",
	)
}

func TestReplaceAndClear(t *testing.T) {
	ctx := context.Background()
	persister := NewMemoryPersister()
	state := NewState(persister, testLogger())
	require.False(t, state.Read().LoggedIn())

	state.Replace(ctx, json.RawMessage(testUser), testAccessToken)
	snapshot := state.Read()
	require.True(t, snapshot.LoggedIn())
	require.JSONEq(t, testUser, string(snapshot.User))
	require.Equal(t, testAccessToken, snapshot.AccessToken)
	user, ok, err := persister.Get(ctx, UserKey)
	require.NoError(t, err)
	require.True(t, ok)
	require.JSONEq(t, testUser, user)
	token, ok, err := persister.Get(ctx, AccessTokenKey)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, testAccessToken, token)

	require.True(t, state.Clear(ctx))
	require.False(t, state.Read().LoggedIn())
	requireConsistent(t, state.Read())
	_, ok, err = persister.Get(ctx, UserKey)
	require.NoError(t, err)
	require.False(t, ok)
	_, ok, err = persister.Get(ctx, AccessTokenKey)
	require.NoError(t, err)
	require.False(t, ok)

	// Clearing again reports that there was nothing to clear
	require.False(t, state.Clear(ctx))
}

func TestReplacePartial(t *testing.T) {
	ctx := context.Background()
	state := NewState(nil, testLogger())
	state.Replace(ctx, json.RawMessage(testUser), testAccessToken)

	state.Replace(ctx, json.RawMessage(testUser), "")
	require.False(t, state.Read().LoggedIn())
	requireConsistent(t, state.Read())

	state.Replace(ctx, nil, testAccessToken)
	require.False(t, state.Read().LoggedIn())
	requireConsistent(t, state.Read())
}

func TestRenew(t *testing.T) {
	ctx := context.Background()
	state := NewState(nil, testLogger())

	// Nothing to renew while logged out
	require.False(t, state.Renew(ctx, testRenewedToken))
	require.False(t, state.Read().LoggedIn())

	state.Replace(ctx, json.RawMessage(testUser), testAccessToken)
	require.False(t, state.Renew(ctx, ""))
	require.True(t, state.Renew(ctx, testRenewedToken))
	snapshot := state.Read()
	require.JSONEq(t, testUser, string(snapshot.User))
	require.Equal(t, testRenewedToken, snapshot.AccessToken)
}

func TestRestore(t *testing.T) {
	testCases := []struct {
		name       string
		persister  func() Persister
		assertions func(t *testing.T, result RestoreResult, state *State)
	}{
		{
			name:      "empty storage",
			persister: NewMemoryPersister,
			assertions: func(t *testing.T, result RestoreResult, state *State) {
				require.Equal(t, RestoreEmpty, result)
				require.False(t, state.Read().LoggedIn())
			},
		},
		{
			name: "only user persisted",
			persister: func() Persister {
				p := NewMemoryPersister()
				_ = p.Set(context.Background(), UserKey, testUser)
				return p
			},
			assertions: func(t *testing.T, result RestoreResult, state *State) {
				require.Equal(t, RestoreEmpty, result)
				require.False(t, state.Read().LoggedIn())
				requireConsistent(t, state.Read())
			},
		},
		{
			name: "only access token persisted",
			persister: func() Persister {
				p := NewMemoryPersister()
				_ = p.Set(context.Background(), AccessTokenKey, testAccessToken)
				return p
			},
			assertions: func(t *testing.T, result RestoreResult, state *State) {
				require.Equal(t, RestoreEmpty, result)
				requireConsistent(t, state.Read())
			},
		},
		{
			name: "corrupt user",
			persister: func() Persister {
				p := NewMemoryPersister()
				_ = p.Set(context.Background(), UserKey, "{not json")
				_ = p.Set(context.Background(), AccessTokenKey, testAccessToken)
				return p
			},
			assertions: func(t *testing.T, result RestoreResult, state *State) {
				require.Equal(t, RestoreCorrupt, result)
				require.Equal(t, "corrupt", result.String())
				require.False(t, state.Read().LoggedIn())
			},
		},
		{
			name: "storage error",
			persister: func() Persister {
				return brokenPersister{}
			},
			assertions: func(t *testing.T, result RestoreResult, state *State) {
				require.Equal(t, RestoreEmpty, result)
				require.False(t, state.Read().LoggedIn())
			},
		},
		{
			name: "complete session",
			persister: func() Persister {
				p := NewMemoryPersister()
				_ = p.Set(context.Background(), UserKey, testUser)
				_ = p.Set(context.Background(), AccessTokenKey, testAccessToken)
				return p
			},
			assertions: func(t *testing.T, result RestoreResult, state *State) {
				require.Equal(t, RestoreRestored, result)
				require.Equal(t, "restored", result.String())
				snapshot := state.Read()
				require.JSONEq(t, testUser, string(snapshot.User))
				require.Equal(t, testAccessToken, snapshot.AccessToken)
			},
		},
	}
	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			state := NewState(testCase.persister(), testLogger())
			result := state.Restore(context.Background())
			testCase.assertions(t, result, state)
		})
	}
}

func TestStorageFailuresAreSwallowed(t *testing.T) {
	ctx := context.Background()
	state := NewState(brokenPersister{}, testLogger())
	state.Replace(ctx, json.RawMessage(testUser), testAccessToken)
	require.True(t, state.Read().LoggedIn())
	require.True(t, state.Renew(ctx, testRenewedToken))
	require.True(t, state.Clear(ctx))
	require.False(t, state.Read().LoggedIn())
}

func TestConcurrentTransitionsStayConsistent(t *testing.T) {
	ctx := context.Background()
	state := NewState(nil, testLogger())
	const n = 50
	var wg sync.WaitGroup
	wg.Add(n * 4)
	for i := 0; i < n; i++ {
		go func() {
			defer wg.Done()
			state.Replace(ctx, json.RawMessage(testUser), testAccessToken)
		}()
		go func() {
			defer wg.Done()
			state.Renew(ctx, testRenewedToken)
		}()
		go func() {
			defer wg.Done()
			state.Clear(ctx)
		}()
		go func() {
			defer wg.Done()
			requireConsistent(t, state.Read())
		}()
	}
	wg.Wait()
	requireConsistent(t, state.Read())
}
