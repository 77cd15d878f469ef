package main

import (
	"fmt"
	"io/ioutil"
	"mime"
	"os"

	"github.com/AlecAivazis/survey/v2"
	"github.com/krancour/authkeeper/sdk/authx"
	"github.com/pkg/errors"
	"github.com/urfave/cli/v2"
	"golang.org/x/crypto/ssh/terminal"
)

func interactive() bool {
	return terminal.IsTerminal(int(os.Stdin.Fd()))
}

// ask prompts for *value unless it is already set.
func ask(value *string, prompt survey.Prompt, flag string) error {
	if *value != "" {
		return nil
	}
	if !interactive() {
		return errors.Errorf(
			"--%s is required when not running interactively",
			flag,
		)
	}
	return survey.AskOne(prompt, value, survey.WithValidator(survey.Required))
}

// solveCaptcha returns the ID of a challenge and its answer. Unless both were
// specified using flags, a new challenge is fetched as needed, its image is
// saved to a temporary file, and the user is asked for the answer.
func solveCaptcha(c *cli.Context, client *client) (string, string, error) {
	captchaID := c.String(flagCaptchaID)
	answer := c.String(flagCaptcha)
	if captchaID != "" && answer != "" {
		return captchaID, answer, nil
	}
	if !interactive() {
		return "", "", errors.Errorf(
			"--%s and --%s are required when not running interactively",
			flagCaptchaID,
			flagCaptcha,
		)
	}
	if captchaID == "" {
		captcha, err := client.Captchas().Get(c.Context)
		if err != nil {
			return "", "", errors.Wrap(err, "error fetching captcha")
		}
		imagePath, err := saveCaptchaImage(captcha, "")
		if err != nil {
			return "", "", err
		}
		fmt.Printf("The challenge has been saved to %s\n\n", imagePath)
		captchaID = captcha.CaptchaID
	}
	if err := ask(
		&answer,
		&survey.Input{Message: "Captcha"},
		flagCaptcha,
	); err != nil {
		return "", "", err
	}
	return captchaID, answer, nil
}

// saveCaptchaImage writes the challenge image to the specified path or, if
// none is specified, to a new temporary file. It returns the path written to.
func saveCaptchaImage(captcha authx.Captcha, path string) (string, error) {
	image, mediaType, err := captcha.Image()
	if err != nil {
		return "", err
	}
	if path == "" {
		var ext string
		if exts, _ := mime.ExtensionsByType(mediaType); len(exts) > 0 {
			ext = exts[0]
		}
		tmpFile, err := ioutil.TempFile("", "authkeeper-captcha-*"+ext)
		if err != nil {
			return "", errors.Wrap(err, "error creating file for captcha")
		}
		path = tmpFile.Name()
		if err := tmpFile.Close(); err != nil {
			return "", errors.Wrapf(err, "error closing %s", path)
		}
	}
	if err := ioutil.WriteFile(path, image, 0600); err != nil {
		return "", errors.Wrapf(err, "error writing captcha to %s", path)
	}
	return path, nil
}
