package main

import "github.com/urfave/cli/v2"

const (
	flagBody           = "body"
	flagCaptcha        = "captcha"
	flagCaptchaID      = "captcha-id"
	flagCode           = "code"
	flagEmail          = "email"
	flagFile           = "file"
	flagHeader         = "header"
	flagInsecure       = "insecure"
	flagLogLevel       = "log-level"
	flagMethod         = "method"
	flagOutput         = "output"
	flagPassword       = "password"
	flagRetries        = "retries"
	flagServer         = "server"
	flagSessionBackend = "session-backend"
	flagUsername       = "username"
)

var (
	cliFlagOutput = &cli.StringFlag{
		Name:    flagOutput,
		Aliases: []string{"o"},
		Usage: "Return output in the specified format; supported formats: table, " +
			"yaml, json",
		Value: "table",
	}
	cliFlagCaptcha = &cli.StringFlag{
		Name: flagCaptcha,
		Usage: "Specify the answer to the challenge identified by --captcha-id " +
			"for non-interactive use",
	}
	cliFlagCaptchaID = &cli.StringFlag{
		Name: flagCaptchaID,
		Usage: "Specify the ID of a challenge fetched with `authkeeper captcha`; " +
			"if omitted, a new challenge is fetched and its answer prompted for",
	}
	cliFlagEmail = &cli.StringFlag{
		Name:    flagEmail,
		Aliases: []string{"e"},
		Usage:   "Specify the email address; prompted for if omitted",
	}
)
