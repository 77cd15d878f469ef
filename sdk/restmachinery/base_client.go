package restmachinery

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"io"
	"io/ioutil"
	"net/http"
	"net/http/cookiejar"
	"strings"
	"time"

	"github.com/krancour/authkeeper/sdk/meta"
	"github.com/krancour/authkeeper/sdk/session"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	uuid "github.com/satori/go.uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/net/publicsuffix"
	"golang.org/x/sync/singleflight"
)

const (
	// AccessTokenHeader is the header that carries the access token.
	AccessTokenHeader = "x-access-token"
	// RequestIDHeader carries an identifier shared by a request and its replay.
	RequestIDHeader = "X-Request-ID"

	refreshKey = "refresh"
)

// BaseClientConfig encapsulates configuration for a BaseClient.
type BaseClientConfig struct {
	// APIAddress is the base URL of the API server, e.g. https://example.com.
	APIAddress string
	// AllowInsecure permits TLS connections to servers whose certificates cannot
	// be verified. It is ignored when HTTPClient is specified.
	AllowInsecure bool
	// Timeout bounds each individual HTTP exchange. It is ignored when
	// HTTPClient is specified. Defaults to 30 seconds.
	Timeout time.Duration
	// Jar optionally holds cookies set by the API server before this client
	// was created, such as the long-lived secret the refresh endpoint expects.
	// It is ignored when HTTPClient is specified. When nil, an empty jar is
	// created.
	Jar http.CookieJar
	// HTTPClient optionally overrides the HTTP client. It must carry whatever
	// long-lived secret the refresh endpoint expects, typically in a cookie
	// jar.
	HTTPClient *http.Client
	// Refresher optionally overrides how access tokens are refreshed. When nil,
	// the API server's refresh endpoint is used.
	Refresher Refresher
	// OnSessionTerminated, if non-nil, is invoked once each time the session
	// ends because it could not be kept alive. It must not block.
	OnSessionTerminated func(error)
	// MetricsRegisterer, if non-nil, is where request and refresh metrics are
	// registered.
	MetricsRegisterer prometheus.Registerer
}

// ApplyDefaults sets default values for unspecified configuration.
func (c *BaseClientConfig) ApplyDefaults() {
	if c.Timeout == 0 {
		c.Timeout = 30 * time.Second
	}
}

// BaseClient sends requests to the API server on behalf of every specialized
// client in a process. It attaches the current access token to each request
// and, when the API server reports that token as expired, refreshes it and
// replays the request once. However many requests observe expiry at the same
// time, only one refresh is in flight at any moment and every request waiting
// on it observes its outcome.
type BaseClient struct {
	// APIAddress is the base URL of the API server.
	APIAddress string
	// HTTPClient is the client used for every exchange with the API server,
	// including refreshes.
	HTTPClient *http.Client

	state               *session.State
	refresher           Refresher
	refreshGroup        singleflight.Group
	onSessionTerminated func(error)
	metrics             *metrics
	log                 logrus.FieldLogger
}

// NewBaseClient returns a BaseClient that reads and maintains the specified
// session state.
func NewBaseClient(
	config BaseClientConfig,
	state *session.State,
	log logrus.FieldLogger,
) (*BaseClient, error) {
	config.ApplyDefaults()
	httpClient := config.HTTPClient
	if httpClient == nil {
		jar := config.Jar
		if jar == nil {
			var err error
			if jar, err = cookiejar.New(
				&cookiejar.Options{PublicSuffixList: publicsuffix.List},
			); err != nil {
				return nil, errors.Wrap(err, "error creating cookie jar")
			}
		}
		httpClient = &http.Client{
			Timeout: config.Timeout,
			Jar:     jar,
			Transport: &http.Transport{
				Proxy: http.ProxyFromEnvironment,
				TLSClientConfig: &tls.Config{
					InsecureSkipVerify: config.AllowInsecure, // nolint: gosec
				},
			},
		}
	}
	m, err := newMetrics(config.MetricsRegisterer)
	if err != nil {
		return nil, err
	}
	b := &BaseClient{
		APIAddress:          config.APIAddress,
		HTTPClient:          httpClient,
		state:               state,
		refresher:           config.Refresher,
		onSessionTerminated: config.OnSessionTerminated,
		metrics:             m,
		log:                 log.WithField("component", "base-client"),
	}
	if b.refresher == nil {
		b.refresher = NewTokenRefresher(config.APIAddress, httpClient, state, log)
	}
	return b, nil
}

// State returns the session state the BaseClient reads and maintains.
func (b *BaseClient) State() *session.State {
	return b.state
}

// Send sends the specified request and returns the API server's response
// envelope. Responses carrying application-level codes other than the
// expiry signal are returned as-is, failures included. Transport failures are
// returned as *meta.ErrNetwork and leave session state untouched. If the
// access token expired and could not be refreshed, or expired again after
// being refreshed, session state is cleared and *meta.ErrAuthExpired is
// returned.
func (b *BaseClient) Send(
	ctx context.Context,
	req OutboundRequest,
) (*meta.Response, error) {
	reqBody, err := marshalBody(req.ReqBodyObj)
	if err != nil {
		return nil, err
	}
	requestID := uuid.NewV4().String()
	log := b.log.WithFields(logrus.Fields{
		"request": requestID,
		"method":  req.Method,
		"path":    req.Path,
	})

	var replayed bool
	for {
		accessToken := b.state.Read().AccessToken
		resp, err := b.submit(ctx, req, reqBody, requestID, accessToken)
		if err != nil {
			if meta.IsNetwork(err) {
				b.metrics.requests.WithLabelValues(outcomeNetworkErr).Inc()
			} else {
				b.metrics.requests.WithLabelValues(outcomeMalformed).Inc()
			}
			return nil, err
		}
		if !resp.AccessTokenExpired() {
			log.WithField("code", resp.Code).Debug("request completed")
			b.metrics.requests.WithLabelValues(outcomeOK).Inc()
			return resp, nil
		}

		if replayed {
			log.Info("access token rejected after refresh; ending session")
			authErr := &meta.ErrAuthExpired{
				Reason: "API server rejected the refreshed access token",
			}
			b.terminateSession(ctx, authErr)
			b.metrics.requests.WithLabelValues(outcomeAuthExpired).Inc()
			return nil, authErr
		}

		log.Debug("access token expired; enlisting in refresh")
		if err := b.enlistInRefresh(ctx, accessToken); err != nil {
			b.metrics.requests.WithLabelValues(outcomeAuthExpired).Inc()
			return nil, err
		}
		replayed = true
		b.metrics.replays.Inc()
		log.Debug("replaying request with refreshed access token")
	}
}

// ExecuteRequest sends the specified request and, if the API server reports
// success, decodes the response's data into req.RespObj. Any other
// application-level code is returned as *meta.ErrAPI.
func (b *BaseClient) ExecuteRequest(
	ctx context.Context,
	req OutboundRequest,
) error {
	resp, err := b.Send(ctx, req)
	if err != nil {
		return err
	}
	if !resp.Succeeded() {
		return &meta.ErrAPI{
			Code:     resp.Code,
			Messages: resp.Messages,
		}
	}
	if req.RespObj != nil {
		return resp.DecodeData(req.RespObj)
	}
	return nil
}

// Refresh refreshes the access token now, joining a refresh that is already in
// flight if there is one. On failure session state is cleared and
// *meta.ErrAuthExpired is returned.
func (b *BaseClient) Refresh(ctx context.Context) error {
	return b.sharedRefresh(ctx, nil)
}

// enlistInRefresh joins or starts the shared refresh on behalf of a request
// that was sent with staleAccessToken and found it expired.
func (b *BaseClient) enlistInRefresh(
	ctx context.Context,
	staleAccessToken string,
) error {
	skip := func() (bool, error) {
		return b.refreshUnneeded(staleAccessToken)
	}
	if ok, err := skip(); ok {
		return err
	}
	return b.sharedRefresh(ctx, skip)
}

// refreshUnneeded returns true if a request sent with staleAccessToken should
// not refresh after all, along with the error, if any, the request should end
// with instead.
func (b *BaseClient) refreshUnneeded(staleAccessToken string) (bool, error) {
	current := b.state.Read().AccessToken
	switch {
	case current != "" && current != staleAccessToken:
		// Another request already refreshed the token after this one was sent.
		// There's nothing to do but replay.
		return true, nil
	case current == "" && staleAccessToken != "":
		// The session ended (logout or a failed refresh) while this request was
		// in flight.
		return true, &meta.ErrAuthExpired{
			Reason: "session ended while the request was in flight",
		}
	}
	return false, nil
}

// sharedRefresh runs at most one refresh at a time. Callers arriving while a
// refresh is in flight wait for it and share its outcome. The in-flight handle
// is dropped the moment the refresh returns, so the next expiry starts afresh.
// If skip is non-nil, it is consulted once the refresh is underway, since a
// previous refresh may have completed after the caller last checked.
func (b *BaseClient) sharedRefresh(
	ctx context.Context,
	skip func() (bool, error),
) error {
	_, err, _ := b.refreshGroup.Do(refreshKey, func() (interface{}, error) {
		if skip != nil {
			if ok, err := skip(); ok {
				return nil, err
			}
		}
		// Refreshing on behalf of many callers, so don't let the one that
		// happened to arrive first cancel it for everyone else.
		refreshCtx := context.WithoutCancel(ctx)
		err := b.refresher.Refresh(refreshCtx)
		if err != nil {
			b.metrics.refreshes.WithLabelValues(outcomeFailed).Inc()
			authErr := &meta.ErrAuthExpired{
				Reason: "access token could not be refreshed",
				Err:    err,
			}
			b.terminateSession(refreshCtx, authErr)
			return nil, authErr
		}
		b.metrics.refreshes.WithLabelValues(outcomeSucceeded).Inc()
		return nil, nil
	})
	return err
}

// terminateSession clears session state and, if that ended a live session,
// notifies whoever is listening. Clearing an already empty state is silent.
func (b *BaseClient) terminateSession(ctx context.Context, err error) {
	if b.state.Clear(ctx) {
		b.notifySessionTerminated(err)
	}
}

func (b *BaseClient) notifySessionTerminated(err error) {
	b.log.WithError(err).Info("session terminated")
	if b.onSessionTerminated != nil {
		b.onSessionTerminated(err)
	}
}

func (b *BaseClient) submit(
	ctx context.Context,
	req OutboundRequest,
	reqBody []byte,
	requestID string,
	accessToken string,
) (*meta.Response, error) {
	var reqBodyReader io.Reader
	if reqBody != nil {
		reqBodyReader = bytes.NewReader(reqBody)
	}
	r, err := http.NewRequestWithContext(
		ctx,
		req.Method,
		apiURL(b.APIAddress, req.Path),
		reqBodyReader,
	)
	if err != nil {
		return nil, errors.Wrapf(
			err,
			"error creating request %s %s",
			req.Method,
			req.Path,
		)
	}
	if len(req.QueryParams) > 0 {
		q := r.URL.Query()
		for k, v := range req.QueryParams {
			q.Set(k, v)
		}
		r.URL.RawQuery = q.Encode()
	}
	if reqBody != nil {
		r.Header.Set("Content-Type", "application/json")
	}
	for k, v := range req.Headers {
		r.Header.Add(k, v)
	}
	r.Header.Set(RequestIDHeader, requestID)
	if accessToken != "" {
		r.Header.Set(AccessTokenHeader, accessToken)
	}

	resp, err := b.HTTPClient.Do(r)
	if err != nil {
		return nil, &meta.ErrNetwork{
			Method: req.Method,
			Path:   req.Path,
			Err:    err,
		}
	}
	defer resp.Body.Close()
	respBodyBytes, err := ioutil.ReadAll(resp.Body)
	if err != nil {
		return nil, &meta.ErrNetwork{
			Method: req.Method,
			Path:   req.Path,
			Err:    errors.Wrap(err, "error reading response body"),
		}
	}
	envelope := &meta.Response{}
	if err := json.Unmarshal(respBodyBytes, envelope); err != nil {
		return nil, errors.Wrapf(
			err,
			"error unmarshaling response body of %s %s (HTTP status %d)",
			req.Method,
			req.Path,
			resp.StatusCode,
		)
	}
	return envelope, nil
}

func marshalBody(reqBodyObj interface{}) ([]byte, error) {
	if reqBodyObj == nil {
		return nil, nil
	}
	if rb, ok := reqBodyObj.([]byte); ok {
		return rb, nil
	}
	reqBodyBytes, err := json.Marshal(reqBodyObj)
	if err != nil {
		return nil, errors.Wrap(err, "error marshaling request body")
	}
	return reqBodyBytes, nil
}

func apiURL(apiAddress, path string) string {
	return strings.TrimSuffix(apiAddress, "/") + "/" +
		strings.TrimPrefix(path, "/")
}
