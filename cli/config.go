package main

import (
	"encoding/json"
	"io/ioutil"
	"os"
	"path/filepath"

	"github.com/krancour/authkeeper/sdk/session/file"
	"github.com/pkg/errors"
)

const (
	configFileName  = "config"
	cookiesFileName = "cookies"
)

type config struct {
	APIAddress string `json:"apiAddress"`
}

func getConfigPath() (string, error) {
	authkeeperHome, err := file.HomeDir()
	if err != nil {
		return "", errors.Wrap(err, "error finding authkeeper home")
	}
	return filepath.Join(authkeeperHome, configFileName), nil
}

// getConfig returns the configuration stored at configPath or nil if there is
// none.
func getConfig(configPath string) (*config, error) {
	configBytes, err := ioutil.ReadFile(configPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, errors.Wrapf(
			err,
			"error reading authkeeper config file at %s",
			configPath,
		)
	}
	config := &config{}
	if err := json.Unmarshal(configBytes, config); err != nil {
		return nil, errors.Wrapf(
			err,
			"error parsing authkeeper config file at %s",
			configPath,
		)
	}
	return config, nil
}

func saveConfig(configPath string, config *config) error {
	authkeeperHome := filepath.Dir(configPath)
	if err := os.MkdirAll(authkeeperHome, 0700); err != nil {
		return errors.Wrapf(
			err,
			"error creating authkeeper home at %s",
			authkeeperHome,
		)
	}
	configBytes, err := json.Marshal(config)
	if err != nil {
		return errors.Wrap(err, "error marshaling config")
	}
	if err :=
		ioutil.WriteFile(configPath, configBytes, 0600); err != nil {
		return errors.Wrapf(err, "error writing to %s", configPath)
	}
	return nil
}

// rememberAPIAddress saves the address of the API server last logged into so
// later commands needn't specify it.
func rememberAPIAddress(apiAddress string) error {
	configPath, err := getConfigPath()
	if err != nil {
		return err
	}
	if err := saveConfig(
		configPath,
		&config{
			APIAddress: apiAddress,
		},
	); err != nil {
		return errors.Wrap(err, "error persisting configuration")
	}
	return nil
}
