package main

import (
	"fmt"
	"net/http"
	"net/http/cookiejar"
	"os"
	"path/filepath"
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/krancour/authkeeper/internal/mongodb"
	redisconfig "github.com/krancour/authkeeper/internal/redis"
	"github.com/krancour/authkeeper/sdk/authx"
	"github.com/krancour/authkeeper/sdk/restmachinery"
	"github.com/krancour/authkeeper/sdk/session"
	"github.com/krancour/authkeeper/sdk/session/file"
	sessionmongodb "github.com/krancour/authkeeper/sdk/session/mongodb"
	sessionredis "github.com/krancour/authkeeper/sdk/session/redis"
	"github.com/pkg/errors"
	"github.com/urfave/cli/v2"
	"golang.org/x/net/publicsuffix"
)

const envconfigPrefix = "AUTHKEEPER"

// environment represents settings that are rarely changed and are therefore
// only read from AUTHKEEPER_* environment variables.
type environment struct {
	Timeout           time.Duration `envconfig:"TIMEOUT" default:"30s"`
	RedisKeyPrefix    string        `envconfig:"REDIS_KEY_PREFIX" default:"authkeeper:session"`
	MongoDBCollection string        `envconfig:"MONGODB_COLLECTION" default:"sessions"`
}

func getEnvironment() (environment, error) {
	env := environment{}
	if err := envconfig.Process(envconfigPrefix, &env); err != nil {
		return env, errors.Wrap(
			err,
			"error getting authkeeper configuration from environment",
		)
	}
	return env, nil
}

// client is an authx.APIClient whose cookies outlive the process.
type client struct {
	authx.APIClient
	apiAddress string
	jar        http.CookieJar
	cookies    cookieFile
}

// getClient returns a client for the API server named by the --server flag or,
// failing that, the configuration saved at the last login. The session is
// restored from the backend named by the --session-backend flag. Callers must
// close the client when they are done with it.
func getClient(c *cli.Context) (*client, error) {
	authkeeperHome, err := file.HomeDir()
	if err != nil {
		return nil, errors.Wrap(err, "error finding authkeeper home")
	}
	apiAddress, err := getAPIAddress(c, filepath.Join(authkeeperHome, configFileName))
	if err != nil {
		return nil, err
	}
	env, err := getEnvironment()
	if err != nil {
		return nil, err
	}

	persister, err := getPersister(c, env)
	if err != nil {
		return nil, err
	}
	state := session.NewState(persister, logger)
	if state.Restore(c.Context) == session.RestoreCorrupt {
		logger.Warn("ignoring corrupt stored session")
	}

	jar, err := cookiejar.New(
		&cookiejar.Options{PublicSuffixList: publicsuffix.List},
	)
	if err != nil {
		return nil, errors.Wrap(err, "error creating cookie jar")
	}
	cookies := cookieFile{path: filepath.Join(authkeeperHome, cookiesFileName)}
	if err := cookies.load(jar, apiAddress); err != nil {
		logger.WithError(err).Warn("ignoring stored cookies")
	}

	apiClient, err := authx.NewAPIClient(
		restmachinery.BaseClientConfig{
			APIAddress:          apiAddress,
			AllowInsecure:       c.Bool(flagInsecure),
			Timeout:             env.Timeout,
			Jar:                 jar,
			OnSessionTerminated: printLoggedOutNotice,
		},
		state,
		logger,
	)
	if err != nil {
		return nil, errors.Wrap(err, "error getting authkeeper client")
	}
	return &client{
		APIClient:  apiClient,
		apiAddress: apiAddress,
		jar:        jar,
		cookies:    cookies,
	}, nil
}

// close saves whatever cookies the API server handed out during this
// invocation.
func (c *client) close() {
	if err := c.cookies.save(c.jar, c.apiAddress); err != nil {
		logger.WithError(err).Warn("error saving cookies")
	}
}

func getAPIAddress(c *cli.Context, configPath string) (string, error) {
	if apiAddress := c.String(flagServer); apiAddress != "" {
		return apiAddress, nil
	}
	config, err := getConfig(configPath)
	if err != nil {
		return "", err
	}
	if config == nil || config.APIAddress == "" {
		return "", errors.New(
			"no API server address was specified; please use --server or " +
				"`authkeeper --server <address> login` to continue",
		)
	}
	return config.APIAddress, nil
}

func getPersister(
	c *cli.Context,
	env environment,
) (session.Persister, error) {
	switch backend := c.String(flagSessionBackend); backend {
	case "file":
		sessionPath, err := file.DefaultPath()
		if err != nil {
			return nil, err
		}
		return file.NewPersister(sessionPath), nil
	case "redis":
		redisCfg, err := redisconfig.ConfigFromEnvironment()
		if err != nil {
			return nil, err
		}
		return sessionredis.NewPersister(
			redisconfig.Client(redisCfg),
			env.RedisKeyPrefix,
		), nil
	case "mongodb":
		mongoCfg, err := mongodb.ConfigFromEnvironment()
		if err != nil {
			return nil, err
		}
		database, err := mongodb.Database(c.Context, mongoCfg)
		if err != nil {
			return nil, err
		}
		return sessionmongodb.NewPersister(database, env.MongoDBCollection), nil
	default:
		return nil, errors.Errorf(
			"unsupported session backend %q; supported backends: file, redis, "+
				"mongodb",
			backend,
		)
	}
}

func printLoggedOutNotice(err error) {
	fmt.Fprintf(
		os.Stderr,
		"\nYou have been logged out: %s\nPlease use `authkeeper login` to log "+
			"in again.\n",
		err,
	)
}
