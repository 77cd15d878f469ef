package main

import (
	"fmt"

	"github.com/AlecAivazis/survey/v2"
	"github.com/gosuri/uitable"
	"github.com/krancour/authkeeper/sdk/authx"
	"github.com/urfave/cli/v2"
)

var captchaCommand = &cli.Command{
	Name:  "captcha",
	Usage: "Fetch a challenge",
	Description: "Fetches a challenge for use with the --captcha-id flag of " +
		"the login and send-code commands.",
	Flags: []cli.Flag{
		&cli.StringFlag{
			Name:    flagFile,
			Aliases: []string{"f"},
			Usage: "Save the challenge image to the specified file; by default " +
				"it is saved to a temporary file",
		},
		cliFlagOutput,
	},
	Action: captcha,
}

var registerCommand = &cli.Command{
	Name:  "register",
	Usage: "Register a new user",
	Description: "Registers a new user using a code mailed by the send-code " +
		"command.",
	Flags: []cli.Flag{
		&cli.StringFlag{
			Name:    flagUsername,
			Aliases: []string{"u"},
			Usage:   "Specify the username; prompted for if omitted",
		},
		cliFlagEmail,
		&cli.StringFlag{
			Name:    flagPassword,
			Aliases: []string{"p"},
			Usage: "Specify the password for non-interactive registration; must " +
				"be 8 to 20 characters",
		},
		&cli.StringFlag{
			Name:  flagCode,
			Usage: "Specify the verification code; prompted for if omitted",
		},
	},
	Action: register,
}

var sendCodeCommand = &cli.Command{
	Name:  "send-code",
	Usage: "Mail a verification code needed for registration",
	Flags: []cli.Flag{
		cliFlagEmail,
		cliFlagCaptcha,
		cliFlagCaptchaID,
	},
	Action: sendCode,
}

type captchaOutput struct {
	CaptchaID string `json:"captchaID"`
	File      string `json:"file"`
}

func captcha(c *cli.Context) error {
	output := c.String(flagOutput)

	if err := validateOutputFormat(output); err != nil {
		return err
	}

	client, err := getClient(c)
	if err != nil {
		return err
	}
	defer client.close()

	challenge, err := client.Captchas().Get(c.Context)
	if err != nil {
		return err
	}
	imagePath, err := saveCaptchaImage(challenge, c.String(flagFile))
	if err != nil {
		return err
	}

	out := captchaOutput{
		CaptchaID: challenge.CaptchaID,
		File:      imagePath,
	}
	return printOutput(
		output,
		"captcha",
		out,
		func(table *uitable.Table) {
			table.AddRow("CAPTCHA ID", "FILE")
			table.AddRow(out.CaptchaID, out.File)
		},
	)
}

func register(c *cli.Context) error {
	registration := authx.Registration{
		Username:         c.String(flagUsername),
		Email:            c.String(flagEmail),
		Password:         c.String(flagPassword),
		VerificationCode: c.String(flagCode),
	}

	client, err := getClient(c)
	if err != nil {
		return err
	}
	defer client.close()

	if err := ask(
		&registration.Username,
		&survey.Input{Message: "Username"},
		flagUsername,
	); err != nil {
		return err
	}
	if err := ask(
		&registration.Email,
		&survey.Input{Message: "Email"},
		flagEmail,
	); err != nil {
		return err
	}
	if registration.Password == "" {
		if err := ask(
			&registration.Password,
			&survey.Password{Message: "Password"},
			flagPassword,
		); err != nil {
			return err
		}
		if err := ask(
			&registration.PasswordConfirmation,
			&survey.Password{Message: "Confirm password"},
			flagPassword,
		); err != nil {
			return err
		}
	} else {
		registration.PasswordConfirmation = registration.Password
	}
	if err := ask(
		&registration.VerificationCode,
		&survey.Input{Message: "Verification code"},
		flagCode,
	); err != nil {
		return err
	}
	if err := registration.Validate(); err != nil {
		return err
	}

	session, err := client.Users().Register(c.Context, registration)
	if err != nil {
		return err
	}
	if session == nil {
		fmt.Println(
			"\nYou have been registered. Please use `authkeeper login` to log in.",
		)
		return nil
	}
	if err := rememberAPIAddress(client.apiAddress); err != nil {
		return err
	}
	fmt.Printf(
		"\nYou have been registered and are logged in as %s.\n",
		session.User.Username,
	)
	return nil
}

func sendCode(c *cli.Context) error {
	req := authx.VerificationCodeRequest{
		Email: c.String(flagEmail),
	}

	client, err := getClient(c)
	if err != nil {
		return err
	}
	defer client.close()

	if err := ask(
		&req.Email,
		&survey.Input{Message: "Email"},
		flagEmail,
	); err != nil {
		return err
	}
	if req.CaptchaID, req.Captcha, err = solveCaptcha(c, client); err != nil {
		return err
	}
	if err := req.Validate(); err != nil {
		return err
	}

	if err := client.Captchas().SendEmailVerificationCode(
		c.Context,
		req,
	); err != nil {
		return err
	}
	fmt.Printf("A verification code has been sent to %s.\n", req.Email)
	return nil
}
