package main

import (
	"fmt"

	"github.com/AlecAivazis/survey/v2"
	"github.com/gosuri/uitable"
	"github.com/krancour/authkeeper/sdk/authx"
	"github.com/pkg/errors"
	"github.com/urfave/cli/v2"
)

var loginCommand = &cli.Command{
	Name:  "login",
	Usage: "Log in to the API server",
	Description: "Logs in using an email address, a password, and the answer " +
		"to a challenge. The API server's address is remembered for later " +
		"commands.",
	Flags: []cli.Flag{
		cliFlagEmail,
		&cli.StringFlag{
			Name:    flagPassword,
			Aliases: []string{"p"},
			Usage:   "Specify the password for non-interactive login",
		},
		cliFlagCaptcha,
		cliFlagCaptchaID,
	},
	Action: login,
}

var logoutCommand = &cli.Command{
	Name:   "logout",
	Usage:  "Log out of the API server",
	Action: logout,
}

var refreshCommand = &cli.Command{
	Name:   "refresh",
	Usage:  "Obtain a new access token for the current session",
	Action: refresh,
}

var whoamiCommand = &cli.Command{
	Name:  "whoami",
	Usage: "Show the logged in user",
	Flags: []cli.Flag{
		cliFlagOutput,
	},
	Action: whoami,
}

func login(c *cli.Context) error {
	credentials := authx.LoginCredentials{
		Email:    c.String(flagEmail),
		Password: c.String(flagPassword),
	}

	client, err := getClient(c)
	if err != nil {
		return err
	}
	defer client.close()

	if err := ask(
		&credentials.Email,
		&survey.Input{Message: "Email"},
		flagEmail,
	); err != nil {
		return err
	}
	if err := ask(
		&credentials.Password,
		&survey.Password{Message: "Password"},
		flagPassword,
	); err != nil {
		return err
	}
	if credentials.CaptchaID, credentials.Captcha, err =
		solveCaptcha(c, client); err != nil {
		return err
	}
	if err := credentials.Validate(); err != nil {
		return err
	}

	session, err := client.Sessions().Login(c.Context, credentials)
	if err != nil {
		return err
	}

	if err := rememberAPIAddress(client.apiAddress); err != nil {
		return err
	}

	fmt.Printf("\nYou are logged in as %s.\n", session.User.Username)
	return nil
}

func logout(c *cli.Context) error {
	client, err := getClient(c)
	if err != nil {
		return err
	}
	defer client.close()

	if !client.BaseClient().State().Read().LoggedIn() {
		fmt.Println("You are not logged in.")
		return nil
	}
	if err := client.Sessions().Logout(c.Context); err != nil {
		return err
	}
	fmt.Println("You have been logged out.")
	return nil
}

func refresh(c *cli.Context) error {
	client, err := getClient(c)
	if err != nil {
		return err
	}
	defer client.close()

	if !client.BaseClient().State().Read().LoggedIn() {
		return errors.New("you are not logged in")
	}
	if err := client.Sessions().Refresh(c.Context); err != nil {
		return err
	}
	fmt.Println("Your access token has been refreshed.")
	return nil
}

func whoami(c *cli.Context) error {
	output := c.String(flagOutput)

	if err := validateOutputFormat(output); err != nil {
		return err
	}

	client, err := getClient(c)
	if err != nil {
		return err
	}
	defer client.close()

	user, err := client.Users().Current()
	if err != nil {
		return err
	}
	if user == nil {
		fmt.Println("You are not logged in.")
		return nil
	}

	return printOutput(
		output,
		"whoami",
		user,
		func(table *uitable.Table) {
			table.AddRow("ID", "USERNAME", "EMAIL", "FROZEN?")
			table.AddRow(user.ID, user.Username, user.Email, user.Freeze)
		},
	)
}
