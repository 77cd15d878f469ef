package restmachinery

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/gorilla/mux"
	"github.com/krancour/authkeeper/sdk/session"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/require"
)

const (
	testUser          = `{"id":1,"username":"tony"}`
	testStaleToken    = "T1"
	testFreshToken    = "T2"
	testProtectedPath = "/user/profile"
)

func testLogger() logrus.FieldLogger {
	log, _ := logtest.NewNullLogger()
	return log
}

// testAPIServer is a fake API server that accepts exactly one access token on
// its protected endpoint and hands out a new one from its refresh endpoint.
type testAPIServer struct {
	*httptest.Server

	mu         sync.Mutex
	validToken string
	seenTokens []string
	seenIDs    []string

	protectedCalls int32
	refreshCalls   int32

	// refreshHandler, when set, replaces the default refresh behavior.
	refreshHandler http.HandlerFunc
	// beforeExpire, when set, runs before the protected endpoint signals expiry.
	beforeExpire func()
}

func newTestAPIServer(t *testing.T, validToken string) *testAPIServer {
	s := &testAPIServer{validToken: validToken}
	router := mux.NewRouter()
	router.HandleFunc(testProtectedPath, s.protected).Methods(http.MethodGet)
	router.HandleFunc("/"+RefreshPath, s.refresh).Methods(http.MethodGet)
	s.Server = httptest.NewServer(router)
	t.Cleanup(s.Close)
	return s
}

func (s *testAPIServer) protected(w http.ResponseWriter, r *http.Request) {
	atomic.AddInt32(&s.protectedCalls, 1)
	token := r.Header.Get(AccessTokenHeader)
	s.mu.Lock()
	s.seenTokens = append(s.seenTokens, token)
	s.seenIDs = append(s.seenIDs, r.Header.Get(RequestIDHeader))
	valid := s.validToken
	s.mu.Unlock()
	if token == "" || token != valid {
		if s.beforeExpire != nil {
			s.beforeExpire()
		}
		fmt.Fprint(w, `{"code":4011,"messages":"access token expired"}`)
		return
	}
	fmt.Fprint(w, `{"code":2000,"messages":"ok","data":{"username":"tony"}}`)
}

func (s *testAPIServer) refresh(w http.ResponseWriter, r *http.Request) {
	atomic.AddInt32(&s.refreshCalls, 1)
	if s.refreshHandler != nil {
		s.refreshHandler(w, r)
		return
	}
	s.mu.Lock()
	s.validToken = testFreshToken
	s.mu.Unlock()
	fmt.Fprintf(
		w,
		`{"code":2000,"messages":"ok","data":{"access_token":%q}}`,
		testFreshToken,
	)
}

func (s *testAPIServer) tokens() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string{}, s.seenTokens...)
}

func (s *testAPIServer) requestIDs() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string{}, s.seenIDs...)
}

func loggedInState(t *testing.T, accessToken string) *session.State {
	state := session.NewState(nil, testLogger())
	state.Replace(context.Background(), json.RawMessage(testUser), accessToken)
	return state
}

type terminationRecorder struct {
	count int32
	last  atomic.Value
}

func (r *terminationRecorder) record(err error) {
	atomic.AddInt32(&r.count, 1)
	r.last.Store(err)
}

func (r *terminationRecorder) calls() int {
	return int(atomic.LoadInt32(&r.count))
}

func newTestBaseClient(
	t *testing.T,
	apiAddress string,
	state *session.State,
	recorder *terminationRecorder,
) (*BaseClient, *prometheus.Registry) {
	registry := prometheus.NewRegistry()
	config := BaseClientConfig{
		APIAddress:        apiAddress,
		MetricsRegisterer: registry,
	}
	if recorder != nil {
		config.OnSessionTerminated = recorder.record
	}
	client, err := NewBaseClient(config, state, testLogger())
	require.NoError(t, err)
	return client, registry
}
