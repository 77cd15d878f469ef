package main

import (
	"context"
	"encoding/json"
	"io/ioutil"
	"math"
	"net/http"
	"strings"
	"time"

	"github.com/gosuri/uitable"
	"github.com/krancour/authkeeper/internal/retries"
	"github.com/krancour/authkeeper/sdk/meta"
	"github.com/krancour/authkeeper/sdk/restmachinery"
	"github.com/pkg/errors"
	"github.com/urfave/cli/v2"
)

const maxRequestBackoff = 10 * time.Second

var requestCommand = &cli.Command{
	Name:      "request",
	Usage:     "Send an arbitrary request to the API server",
	ArgsUsage: "PATH",
	Description: "Sends a request with the current access token attached. If " +
		"the access token has expired, it is refreshed and the request is sent " +
		"once more.",
	Flags: []cli.Flag{
		&cli.StringFlag{
			Name:    flagMethod,
			Aliases: []string{"X"},
			Usage:   "Use the specified HTTP method",
			Value:   http.MethodGet,
		},
		&cli.StringFlag{
			Name:    flagBody,
			Aliases: []string{"d"},
			Usage: "Send the specified JSON request body; prefix with @ to read " +
				"it from a file",
		},
		&cli.StringSliceFlag{
			Name:    flagHeader,
			Aliases: []string{"H"},
			Usage:   "Add the specified header, in the form NAME:VALUE",
		},
		&cli.UintFlag{
			Name: flagRetries,
			Usage: "Retry the specified number of times if the API server cannot " +
				"be reached",
		},
		cliFlagOutput,
	},
	Action: request,
}

func request(c *cli.Context) error {
	output := c.String(flagOutput)

	if err := validateOutputFormat(output); err != nil {
		return err
	}
	if c.Args().Len() != 1 {
		return errors.New("exactly one PATH argument is required")
	}
	req := restmachinery.OutboundRequest{
		Method: strings.ToUpper(c.String(flagMethod)),
		Path:   c.Args().First(),
	}
	var err error
	if req.Headers, err = parseHeaders(c.StringSlice(flagHeader)); err != nil {
		return err
	}
	if req.ReqBodyObj, err = readBody(c.String(flagBody)); err != nil {
		return err
	}

	client, err := getClient(c)
	if err != nil {
		return err
	}
	defer client.close()

	resp, err := sendWithRetries(
		c.Context,
		client.BaseClient(),
		req,
		c.Uint(flagRetries),
	)
	if err != nil {
		return err
	}

	return printOutput(
		output,
		"request",
		resp,
		func(table *uitable.Table) {
			table.AddRow("CODE", "MESSAGES", "DATA")
			table.AddRow(resp.Code, resp.Messages, string(resp.Data))
		},
	)
}

// sendWithRetries sends the specified request, trying again up to the
// specified number of times if the API server cannot be reached. Failures that
// end the session are never retried.
func sendWithRetries(
	ctx context.Context,
	client *restmachinery.BaseClient,
	req restmachinery.OutboundRequest,
	maxRetries uint,
) (*meta.Response, error) {
	attempts := maxRetries + 1
	if attempts > math.MaxUint8 {
		attempts = math.MaxUint8
	}
	var resp *meta.Response
	err := retries.ManageRetries(
		ctx,
		logger,
		"send request",
		uint8(attempts),
		maxRequestBackoff,
		func() (bool, error) {
			var err error
			resp, err = client.Send(ctx, req)
			return meta.IsNetwork(err), err
		},
	)
	return resp, err
}

func parseHeaders(headers []string) (map[string]string, error) {
	if len(headers) == 0 {
		return nil, nil
	}
	parsed := make(map[string]string, len(headers))
	for _, header := range headers {
		tokens := strings.SplitN(header, ":", 2)
		if len(tokens) != 2 || strings.TrimSpace(tokens[0]) == "" {
			return nil, errors.Errorf(
				"header %q is not of the form NAME:VALUE",
				header,
			)
		}
		parsed[strings.TrimSpace(tokens[0])] = strings.TrimSpace(tokens[1])
	}
	return parsed, nil
}

// readBody returns the request body described by the --body flag, or nil if
// there is none. The body must be valid JSON.
func readBody(body string) (interface{}, error) {
	if body == "" {
		return nil, nil
	}
	bodyBytes := []byte(body)
	if strings.HasPrefix(body, "@") {
		var err error
		if bodyBytes, err = ioutil.ReadFile(body[1:]); err != nil {
			return nil, errors.Wrapf(err, "error reading request body from %s", body[1:])
		}
	}
	if !json.Valid(bodyBytes) {
		return nil, errors.New("request body is not valid JSON")
	}
	return bodyBytes, nil
}
