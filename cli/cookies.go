package main

import (
	"encoding/json"
	"io/ioutil"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/krancour/authkeeper/sdk/restmachinery"
	"github.com/pkg/errors"
)

type storedCookie struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// cookieFile keeps the cookies the API server hands out, including the
// long-lived secret used for refreshing access tokens, across invocations of
// the CLI. Cookies are stored per API server address. A jar only reveals the
// names and values of its cookies, so that is all that is kept.
type cookieFile struct {
	path string
}

// cookieURLs returns the URLs whose cookies are kept for the specified API
// server. The refresh endpoint is included since the API server may scope its
// secret to that path alone.
func cookieURLs(apiAddress string) ([]*url.URL, error) {
	rootURL, err := url.Parse(apiAddress)
	if err != nil {
		return nil, errors.Wrapf(err, "error parsing API address %q", apiAddress)
	}
	refreshURL, err := url.Parse(
		strings.TrimSuffix(apiAddress, "/") + "/" + restmachinery.RefreshPath,
	)
	if err != nil {
		return nil, errors.Wrap(err, "error building refresh URL")
	}
	return []*url.URL{rootURL, refreshURL}, nil
}

// load adds cookies stored for the specified API server to the jar.
func (c cookieFile) load(jar http.CookieJar, apiAddress string) error {
	all, err := c.read()
	if err != nil {
		return err
	}
	stored, ok := all[apiAddress]
	if !ok {
		return nil
	}
	urls, err := cookieURLs(apiAddress)
	if err != nil {
		return err
	}
	cookies := make([]*http.Cookie, len(stored))
	for i, s := range stored {
		cookies[i] = &http.Cookie{
			Name:  s.Name,
			Value: s.Value,
			Path:  "/",
		}
	}
	jar.SetCookies(urls[0], cookies)
	return nil
}

// save replaces the cookies stored for the specified API server with those
// currently in the jar.
func (c cookieFile) save(jar http.CookieJar, apiAddress string) error {
	all, err := c.read()
	if err != nil {
		return err
	}
	urls, err := cookieURLs(apiAddress)
	if err != nil {
		return err
	}
	seen := map[string]struct{}{}
	stored := []storedCookie{}
	for _, u := range urls {
		for _, cookie := range jar.Cookies(u) {
			if _, ok := seen[cookie.Name]; ok {
				continue
			}
			seen[cookie.Name] = struct{}{}
			stored = append(
				stored,
				storedCookie{Name: cookie.Name, Value: cookie.Value},
			)
		}
	}
	if len(stored) == 0 {
		delete(all, apiAddress)
	} else {
		all[apiAddress] = stored
	}
	return c.write(all)
}

func (c cookieFile) read() (map[string][]storedCookie, error) {
	all := map[string][]storedCookie{}
	fileBytes, err := ioutil.ReadFile(c.path)
	if err != nil {
		if os.IsNotExist(err) {
			return all, nil
		}
		return nil, errors.Wrapf(err, "error reading cookie file %s", c.path)
	}
	if err := json.Unmarshal(fileBytes, &all); err != nil {
		return nil, errors.Wrapf(err, "error parsing cookie file %s", c.path)
	}
	return all, nil
}

func (c cookieFile) write(all map[string][]storedCookie) error {
	if len(all) == 0 {
		if err := os.Remove(c.path); err != nil && !os.IsNotExist(err) {
			return errors.Wrapf(err, "error deleting cookie file %s", c.path)
		}
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(c.path), 0700); err != nil {
		return errors.Wrapf(err, "error creating directory for %s", c.path)
	}
	fileBytes, err := json.Marshal(all)
	if err != nil {
		return errors.Wrap(err, "error marshaling cookies")
	}
	if err := ioutil.WriteFile(c.path, fileBytes, 0600); err != nil {
		return errors.Wrapf(err, "error writing to %s", c.path)
	}
	return nil
}
