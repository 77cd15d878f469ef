package authx

import (
	"fmt"

	"github.com/pkg/errors"
	"github.com/xeipuuv/gojsonschema"
)

var (
	loginCredentialsSchemaLoader = gojsonschema.NewStringLoader(`{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "required": ["email", "password", "captcha", "captcha_id"],
  "properties": {
    "email": { "type": "string", "format": "email" },
    "password": { "type": "string", "minLength": 1 },
    "captcha": { "type": "string", "minLength": 1 },
    "captcha_id": { "type": "string", "minLength": 1 }
  }
}`)

	registrationSchemaLoader = gojsonschema.NewStringLoader(`{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "required": ["username", "password", "email", "verification_code"],
  "properties": {
    "username": { "type": "string", "minLength": 1, "maxLength": 20 },
    "password": { "type": "string", "minLength": 8, "maxLength": 20 },
    "email": { "type": "string", "format": "email" },
    "verification_code": { "type": "string", "minLength": 1 }
  }
}`)

	verificationCodeRequestSchemaLoader = gojsonschema.NewStringLoader(`{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "required": ["email", "captcha", "captcha_id"],
  "properties": {
    "email": { "type": "string", "format": "email" },
    "captcha": { "type": "string", "minLength": 1 },
    "captcha_id": { "type": "string", "minLength": 1 }
  }
}`)
)

// ErrValidation represents a request payload that failed client-side
// validation and was therefore never sent.
type ErrValidation struct {
	Reason  string
	Details []string
}

func (e *ErrValidation) Error() string {
	if len(e.Details) == 0 {
		return fmt.Sprintf("Invalid %s", e.Reason)
	}
	msg := fmt.Sprintf("Invalid %s:", e.Reason)
	for i, detail := range e.Details {
		msg = fmt.Sprintf("%s\n  %d. %s", msg, i, detail)
	}
	return msg
}

func validate(
	schemaLoader gojsonschema.JSONLoader,
	what string,
	obj interface{},
) error {
	result, err := gojsonschema.Validate(
		schemaLoader,
		gojsonschema.NewGoLoader(obj),
	)
	if err != nil {
		return errors.Wrapf(err, "error validating %s", what)
	}
	if result.Valid() {
		return nil
	}
	verr := &ErrValidation{
		Reason:  what,
		Details: make([]string, len(result.Errors())),
	}
	for i, resultErr := range result.Errors() {
		verr.Details[i] = resultErr.String()
	}
	return verr
}
