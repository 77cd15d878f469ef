// Package file provides a session.Persister that keeps session entries in a
// JSON file on the local filesystem.
package file

import (
	"context"
	"encoding/json"
	"io/ioutil"
	"os"
	"path/filepath"
	"sync"

	"github.com/krancour/authkeeper/sdk/session"
	"github.com/mitchellh/go-homedir"
	"github.com/pkg/errors"
)

const (
	homeDirName     = ".authkeeper"
	sessionFileName = "session"
)

type persister struct {
	path string
	mu   sync.Mutex
}

// NewPersister returns a session.Persister that stores entries in the file at
// the specified path. The file and any missing parent directories are created
// on first write.
func NewPersister(path string) session.Persister {
	return &persister{
		path: path,
	}
}

// HomeDir returns the path of the directory in which authkeeper keeps its
// files by default.
func HomeDir() (string, error) {
	homeDir, err := homedir.Dir()
	if err != nil {
		return "", errors.Wrap(err, "error locating user's home directory")
	}
	return filepath.Join(homeDir, homeDirName), nil
}

// DefaultPath returns the default location of the session file.
func DefaultPath() (string, error) {
	authkeeperHome, err := HomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(authkeeperHome, sessionFileName), nil
}

func (p *persister) Get(_ context.Context, key string) (string, bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	entries, err := p.load()
	if err != nil {
		return "", false, err
	}
	value, ok := entries[key]
	return value, ok, nil
}

func (p *persister) Set(_ context.Context, key string, value string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	entries, err := p.load()
	if err != nil {
		return err
	}
	entries[key] = value
	return p.save(entries)
}

func (p *persister) Delete(_ context.Context, key string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	entries, err := p.load()
	if err != nil {
		return err
	}
	if _, ok := entries[key]; !ok {
		return nil
	}
	delete(entries, key)
	if len(entries) == 0 {
		if err := os.Remove(p.path); err != nil && !os.IsNotExist(err) {
			return errors.Wrapf(err, "error deleting session file %s", p.path)
		}
		return nil
	}
	return p.save(entries)
}

func (p *persister) load() (map[string]string, error) {
	entries := map[string]string{}
	fileBytes, err := ioutil.ReadFile(p.path)
	if err != nil {
		if os.IsNotExist(err) {
			return entries, nil
		}
		return nil, errors.Wrapf(err, "error reading session file %s", p.path)
	}
	if err := json.Unmarshal(fileBytes, &entries); err != nil {
		return nil, errors.Wrapf(err, "error parsing session file %s", p.path)
	}
	return entries, nil
}

func (p *persister) save(entries map[string]string) error {
	dir := filepath.Dir(p.path)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return errors.Wrapf(err, "error creating directory %s", dir)
	}
	fileBytes, err := json.Marshal(entries)
	if err != nil {
		return errors.Wrap(err, "error marshaling session entries")
	}
	// Write to a temporary file and rename it over the real one so a crash
	// can't leave a half-written session behind.
	tmpFile, err := ioutil.TempFile(dir, sessionFileName)
	if err != nil {
		return errors.Wrapf(err, "error creating temporary file in %s", dir)
	}
	defer os.Remove(tmpFile.Name())
	if _, err := tmpFile.Write(fileBytes); err != nil {
		tmpFile.Close()
		return errors.Wrapf(err, "error writing to %s", tmpFile.Name())
	}
	if err := tmpFile.Close(); err != nil {
		return errors.Wrapf(err, "error closing %s", tmpFile.Name())
	}
	if err := os.Rename(tmpFile.Name(), p.path); err != nil {
		return errors.Wrapf(err, "error writing to %s", p.path)
	}
	return nil
}
