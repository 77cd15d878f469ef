package session

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/sirupsen/logrus"
)

// Snapshot is a point-in-time, read-only view of session state.
type Snapshot struct {
	// User is the serialized identity of the logged in user. Its schema is owned
	// by the API and is opaque to session state.
	User json.RawMessage
	// AccessToken is the short-lived credential attached to API requests.
	AccessToken string
}

// LoggedIn returns true if the snapshot holds both a user and an access token.
func (s Snapshot) LoggedIn() bool {
	return len(s.User) > 0 && s.AccessToken != ""
}

// RestoreResult indicates what Restore found in durable storage.
type RestoreResult int

const (
	// RestoreEmpty indicates there was no complete session to restore.
	RestoreEmpty RestoreResult = iota
	// RestoreRestored indicates a complete session was restored.
	RestoreRestored
	// RestoreCorrupt indicates durable storage held a complete session that
	// could not be parsed. Nothing was restored.
	RestoreCorrupt
)

func (r RestoreResult) String() string {
	switch r {
	case RestoreRestored:
		return "restored"
	case RestoreCorrupt:
		return "corrupt"
	default:
		return "empty"
	}
}

// State holds the current user and access token. A user and an access token
// are always present together or absent together. A single State is meant to
// be shared by every API client in a process.
type State struct {
	persister Persister
	log       logrus.FieldLogger

	mu          sync.RWMutex
	user        json.RawMessage
	accessToken string

	// persistMu serializes writes to durable storage so they land in the same
	// order as the in-memory transitions that caused them. It is never held by
	// Read.
	persistMu sync.Mutex
}

// NewState returns empty session state backed by the specified Persister. If
// the Persister is nil, state is kept in memory only. Callers wishing to pick
// up a previously persisted session must call Restore.
func NewState(persister Persister, log logrus.FieldLogger) *State {
	if persister == nil {
		persister = NewMemoryPersister()
	}
	return &State{
		persister: persister,
		log:       log.WithField("component", "session-state"),
	}
}

// Read returns a snapshot of current state. It never waits on durable storage.
func (s *State) Read() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Snapshot{
		User:        s.user,
		AccessToken: s.accessToken,
	}
}

// Replace atomically installs the specified user and access token and
// persists both. If either is empty, the call is equivalent to Clear since
// one can never be present without the other.
func (s *State) Replace(
	ctx context.Context,
	user json.RawMessage,
	accessToken string,
) {
	if len(user) == 0 || accessToken == "" {
		s.log.Warn("refusing to install a partial session; clearing instead")
		s.Clear(ctx)
		return
	}
	userCopy := make(json.RawMessage, len(user))
	copy(userCopy, user)

	s.persistMu.Lock()
	defer s.persistMu.Unlock()

	s.mu.Lock()
	s.user = userCopy
	s.accessToken = accessToken
	s.mu.Unlock()

	s.persist(ctx, string(userCopy), accessToken)
}

// Renew atomically replaces the access token while keeping the current user.
// If no user is logged in, state is left untouched and false is returned.
func (s *State) Renew(ctx context.Context, accessToken string) bool {
	if accessToken == "" {
		return false
	}

	s.persistMu.Lock()
	defer s.persistMu.Unlock()

	s.mu.Lock()
	if len(s.user) == 0 {
		s.mu.Unlock()
		return false
	}
	s.accessToken = accessToken
	user := s.user
	s.mu.Unlock()

	s.persist(ctx, string(user), accessToken)
	return true
}

// Clear atomically removes the user and access token from state and from
// durable storage. It returns true if there was a session to clear.
func (s *State) Clear(ctx context.Context) bool {
	s.persistMu.Lock()
	defer s.persistMu.Unlock()

	s.mu.Lock()
	hadSession := len(s.user) > 0 || s.accessToken != ""
	s.user = nil
	s.accessToken = ""
	s.mu.Unlock()

	for _, key := range []string{UserKey, AccessTokenKey} {
		if err := s.persister.Delete(ctx, key); err != nil {
			s.log.WithError(err).WithField("key", key).Warn(
				"error removing session entry from durable storage",
			)
		}
	}
	return hadSession
}

// Restore attempts to populate state from durable storage. Storage errors are
// logged and treated as there being nothing to restore. State is only
// modified when RestoreRestored is returned.
func (s *State) Restore(ctx context.Context) RestoreResult {
	s.persistMu.Lock()
	defer s.persistMu.Unlock()

	user, userFound, err := s.persister.Get(ctx, UserKey)
	if err != nil {
		s.log.WithError(err).Warn("error reading user from durable storage")
		return RestoreEmpty
	}
	accessToken, tokenFound, err := s.persister.Get(ctx, AccessTokenKey)
	if err != nil {
		s.log.WithError(err).Warn("error reading access token from durable storage")
		return RestoreEmpty
	}
	if !userFound || !tokenFound || user == "" || accessToken == "" {
		return RestoreEmpty
	}
	if !json.Valid([]byte(user)) {
		s.log.Warn("persisted user is not valid JSON; ignoring persisted session")
		return RestoreCorrupt
	}

	s.mu.Lock()
	s.user = json.RawMessage(user)
	s.accessToken = accessToken
	s.mu.Unlock()

	return RestoreRestored
}

func (s *State) persist(ctx context.Context, user, accessToken string) {
	if err := s.persister.Set(ctx, UserKey, user); err != nil {
		s.log.WithError(err).Warn("error persisting user")
	}
	if err := s.persister.Set(ctx, AccessTokenKey, accessToken); err != nil {
		s.log.WithError(err).Warn("error persisting access token")
	}
}
