package commands

import (
	"errors"
	"fmt"
	"jwassist-backend/internal/scrapers/jwxt"
)

const (
	exitOk               = 0
	exitFailure          = 1
	exitPartialExport    = 2
	exitChallengeFormat  = 3
	exitCaptchaExhausted = 4
	exitLoginRejected    = 5
)

// PartialExportError is returned when a run finished but some weeks could not
// be exported.
type PartialExportError struct {
	Weeks []int
}

func (e PartialExportError) Error() string {
	return fmt.Sprintf("weeks %v failed to export", e.Weeks)
}

// ExitCode maps an error returned by a command to the process exit status.
func ExitCode(err error) int {
	if err == nil {
		return exitOk
	}

	var challengeErr jwxt.ChallengeFormatError
	var captchaErr jwxt.CaptchaExhaustedError
	var rejectedErr jwxt.LoginRejectedError
	var partialErr PartialExportError
	switch {
	case errors.As(err, &challengeErr):
		return exitChallengeFormat
	case errors.As(err, &captchaErr):
		return exitCaptchaExhausted
	case errors.As(err, &rejectedErr):
		return exitLoginRejected
	case errors.As(err, &partialErr):
		return exitPartialExport
	default:
		return exitFailure
	}
}
