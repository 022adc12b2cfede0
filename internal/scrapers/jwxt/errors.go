package jwxt

import (
	"errors"
	"fmt"
)

var ErrInvalidState = errors.New("invalid session state")

// ChallengeFormatError is returned when the session challenge is not of the
// form `<scode>#<sxh>`.
type ChallengeFormatError struct {
	Body string
}

func (e ChallengeFormatError) Error() string {
	body := e.Body
	if len(body) > 64 {
		body = body[:64] + "..."
	}
	return fmt.Sprintf("malformed login challenge %q", body)
}

type CaptchaExhaustedError struct {
	Attempts int
}

func (e CaptchaExhaustedError) Error() string {
	return fmt.Sprintf("no usable captcha after %d attempts", e.Attempts)
}

// LoginRejectedError is returned when the portal answers the credential
// submission with anything other than a redirect.
type LoginRejectedError struct {
	Status  int
	Message string
}

func (e LoginRejectedError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("login rejected (status %d)", e.Status)
	}
	return fmt.Sprintf("login rejected (status %d): %s", e.Status, e.Message)
}

// SessionExpiredError is returned when an export comes back as the login page.
type SessionExpiredError struct {
	Week int
}

func (e SessionExpiredError) Error() string {
	return fmt.Sprintf("session expired while exporting week %d", e.Week)
}

type StatusError struct {
	Op     string
	Status int
}

func (e StatusError) Error() string {
	return fmt.Sprintf("%s: unexpected status %d", e.Op, e.Status)
}
