package restmachinery

import (
	"context"
	"encoding/json"
	"fmt"
	"io/ioutil"
	"net/http"
	"strings"

	"github.com/krancour/authkeeper/sdk/meta"
	"github.com/krancour/authkeeper/sdk/session"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/xeipuuv/gojsonschema"
)

// RefreshPath is the path of the endpoint that exchanges the long-lived secret
// held by the transport (a cookie) for a new access token.
const RefreshPath = "refreshToken"

// refreshResponseSchema describes a usable reply from the refresh endpoint.
// Successful replies must carry a non-empty access token.
const refreshResponseSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "required": ["code"],
  "properties": {
    "code": { "type": "integer" },
    "messages": { "type": "string" }
  },
  "if": {
    "properties": { "code": { "const": 2000 } }
  },
  "then": {
    "required": ["data"],
    "properties": {
      "data": {
        "type": "object",
        "required": ["access_token"],
        "properties": {
          "access_token": { "type": "string", "minLength": 1 }
        }
      }
    }
  }
}`

var refreshResponseSchemaLoader = gojsonschema.NewStringLoader(
	refreshResponseSchema,
)

// Refresher is an interface for components that obtain a new access token and
// install it into session state. Each call makes exactly one attempt. Session
// state is left for the caller to clear when an attempt fails.
type Refresher interface {
	Refresh(context.Context) error
}

type tokenRefresher struct {
	apiAddress string
	httpClient *http.Client
	state      *session.State
	log        logrus.FieldLogger
}

// NewTokenRefresher returns a Refresher that calls the API server's refresh
// endpoint. The long-lived secret is never handled here; it must be carried by
// the specified http.Client, typically in its cookie jar.
func NewTokenRefresher(
	apiAddress string,
	httpClient *http.Client,
	state *session.State,
	log logrus.FieldLogger,
) Refresher {
	return &tokenRefresher{
		apiAddress: apiAddress,
		httpClient: httpClient,
		state:      state,
		log:        log.WithField("component", "token-refresher"),
	}
}

func (t *tokenRefresher) Refresh(ctx context.Context) error {
	accessToken, err := t.exchange(ctx)
	if err != nil {
		t.log.WithError(err).Info("access token refresh failed")
		return err
	}
	if !t.state.Renew(ctx, accessToken) {
		t.log.Info("session ended while the access token was being refreshed")
		return &meta.ErrRefreshRejected{
			Reason: "session ended while the access token was being refreshed",
		}
	}
	t.log.Info("access token refreshed")
	return nil
}

func (t *tokenRefresher) exchange(ctx context.Context) (string, error) {
	req, err := http.NewRequestWithContext(
		ctx,
		http.MethodGet,
		apiURL(t.apiAddress, RefreshPath),
		nil,
	)
	if err != nil {
		return "", errors.Wrap(err, "error creating refresh request")
	}
	resp, err := t.httpClient.Do(req)
	if err != nil {
		return "", &meta.ErrNetwork{
			Method: http.MethodGet,
			Path:   RefreshPath,
			Err:    err,
		}
	}
	defer resp.Body.Close()
	bodyBytes, err := ioutil.ReadAll(resp.Body)
	if err != nil {
		return "", &meta.ErrNetwork{
			Method: http.MethodGet,
			Path:   RefreshPath,
			Err:    errors.Wrap(err, "error reading refresh response body"),
		}
	}
	if resp.StatusCode != http.StatusOK {
		return "", &meta.ErrRefreshRejected{
			Reason: fmt.Sprintf("received %d from API server", resp.StatusCode),
		}
	}

	result, err := gojsonschema.Validate(
		refreshResponseSchemaLoader,
		gojsonschema.NewBytesLoader(bodyBytes),
	)
	if err != nil {
		return "", &meta.ErrRefreshRejected{
			Reason: fmt.Sprintf("malformed refresh response: %s", err),
		}
	}
	if !result.Valid() {
		details := make([]string, len(result.Errors()))
		for i, resultErr := range result.Errors() {
			details[i] = resultErr.String()
		}
		return "", &meta.ErrRefreshRejected{
			Reason: fmt.Sprintf(
				"malformed refresh response: %s",
				strings.Join(details, "; "),
			),
		}
	}

	envelope := meta.Response{}
	if err := json.Unmarshal(bodyBytes, &envelope); err != nil {
		return "", &meta.ErrRefreshRejected{
			Reason: fmt.Sprintf("malformed refresh response: %s", err),
		}
	}
	if !envelope.Succeeded() {
		return "", &meta.ErrRefreshRejected{
			Code:     envelope.Code,
			Messages: envelope.Messages,
		}
	}
	data := struct {
		AccessToken string `json:"access_token"`
	}{}
	if err := envelope.DecodeData(&data); err != nil {
		return "", &meta.ErrRefreshRejected{
			Reason: fmt.Sprintf("malformed refresh response: %s", err),
		}
	}
	return data.AccessToken, nil
}
