package authx

import (
	"context"
	"encoding/base64"
	"net/http"
	"strings"

	"github.com/krancour/authkeeper/sdk/restmachinery"
	"github.com/pkg/errors"
)

// Captcha represents a challenge issued by the API server. Answers to the
// challenge accompany login and verification code requests.
type Captcha struct {
	CaptchaID string `json:"captcha_id"`
	// PicPath is the challenge image, usually inlined as a data URL.
	PicPath string `json:"pic_path"`
}

// Image returns the decoded challenge image and its media type when PicPath
// is a base64 data URL.
func (c Captcha) Image() ([]byte, string, error) {
	const prefix = "data:"
	if !strings.HasPrefix(c.PicPath, prefix) {
		return nil, "", errors.New("captcha image is not a data URL")
	}
	tokens := strings.SplitN(strings.TrimPrefix(c.PicPath, prefix), ",", 2)
	if len(tokens) != 2 || !strings.HasSuffix(tokens[0], ";base64") {
		return nil, "", errors.New("captcha image is not a base64 data URL")
	}
	image, err := base64.StdEncoding.DecodeString(tokens[1])
	if err != nil {
		return nil, "", errors.Wrap(err, "error decoding captcha image")
	}
	return image, strings.TrimSuffix(tokens[0], ";base64"), nil
}

// VerificationCodeRequest represents a request to mail a registration
// verification code to Email.
type VerificationCodeRequest struct {
	Email     string `json:"email"`
	Captcha   string `json:"captcha"`
	CaptchaID string `json:"captcha_id"`
}

// Validate checks the VerificationCodeRequest for completeness.
func (v VerificationCodeRequest) Validate() error {
	return validate(
		verificationCodeRequestSchemaLoader,
		"verification code request",
		v,
	)
}

// CaptchasClient is the specialized client for challenges and verification
// codes.
type CaptchasClient interface {
	// Get returns a new Captcha.
	Get(context.Context) (Captcha, error)
	// SendEmailVerificationCode asks the API server to mail a verification code
	// needed for registration.
	SendEmailVerificationCode(context.Context, VerificationCodeRequest) error
}

type captchasClient struct {
	*restmachinery.BaseClient
}

// NewCaptchasClient returns a specialized client for challenges and
// verification codes.
func NewCaptchasClient(baseClient *restmachinery.BaseClient) CaptchasClient {
	return &captchasClient{
		BaseClient: baseClient,
	}
}

func (c *captchasClient) Get(ctx context.Context) (Captcha, error) {
	captcha := Captcha{}
	err := c.ExecuteRequest(
		ctx,
		restmachinery.OutboundRequest{
			Method:  http.MethodPost,
			Path:    "base/captcha",
			RespObj: &captcha,
		},
	)
	return captcha, err
}

func (c *captchasClient) SendEmailVerificationCode(
	ctx context.Context,
	req VerificationCodeRequest,
) error {
	return c.ExecuteRequest(
		ctx,
		restmachinery.OutboundRequest{
			Method:     http.MethodPost,
			Path:       "base/sendEmailVerificationCode",
			ReqBodyObj: req,
		},
	)
}
