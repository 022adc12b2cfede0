package jwxt

import (
	"context"
	"fmt"
	"jwassist-backend/internal/components/chrono"
	"jwassist-backend/internal/components/telemetry"
	"os"
	"path/filepath"
	"strings"
)

const (
	report_captcha_acquire   = "captcha.acquire"
	report_captcha_recognize = "captcha.recognize"
	report_captcha_archive   = "captcha.archive"
)

// Recognizer reads the text out of a captcha image.
type Recognizer interface {
	Recognize(ctx context.Context, image []byte) (string, error)
}

// RecognizerFunc adapts a plain function into a Recognizer.
type RecognizerFunc func(ctx context.Context, image []byte) (string, error)

func (f RecognizerFunc) Recognize(ctx context.Context, image []byte) (string, error) {
	return f(ctx, image)
}

// CaptchaFetcher fetches a fresh captcha image bound to the current session.
type CaptchaFetcher interface {
	FetchCaptcha(ctx context.Context) ([]byte, error)
}

// CaptchaArchive keeps the images that were fetched, for building training
// sets or debugging the recognizer.
type CaptchaArchive interface {
	Save(image []byte) error
}

type CaptchaOptions struct {
	MaxAttempts int
	Length      int
	// Forbidden lists characters the recognizer is known to confuse with
	// others, results containing any of them are retried.
	Forbidden string
	Archive   CaptchaArchive
}

func DefaultCaptchaOptions() CaptchaOptions {
	return CaptchaOptions{
		MaxAttempts: 10,
		Length:      4,
		Forbidden:   "i",
	}
}

// NormalizeCaptcha lowercases raw, keeps only ascii letters and digits and
// truncates it to length. ok is false when fewer than length characters
// remain or the result contains a forbidden character.
func NormalizeCaptcha(raw string, length int, forbidden string) (code string, ok bool) {
	var out strings.Builder
	for _, r := range strings.ToLower(raw) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			out.WriteRune(r)
		}
	}
	code = out.String()
	if len(code) < length {
		return "", false
	}
	code = code[:length]
	if forbidden != "" && strings.ContainsAny(code, strings.ToLower(forbidden)) {
		return "", false
	}
	return code, true
}

// AcquireCaptcha fetches and recognizes captchas until one passes
// NormalizeCaptcha, a fresh image is fetched on every attempt. Recognizer
// errors count as failed attempts, fetch errors abort.
func AcquireCaptcha(
	ctx context.Context,
	fetcher CaptchaFetcher,
	recognizer Recognizer,
	opts CaptchaOptions,
	tel telemetry.API,
) (string, error) {
	defaults := DefaultCaptchaOptions()
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = defaults.MaxAttempts
	}
	if opts.Length <= 0 {
		opts.Length = defaults.Length
	}

	for attempt := 1; attempt <= opts.MaxAttempts; attempt++ {
		image, err := fetcher.FetchCaptcha(ctx)
		if err != nil {
			tel.ReportBroken(report_captcha_acquire, err, attempt)
			return "", fmt.Errorf("fetch captcha: %w", err)
		}

		if opts.Archive != nil {
			err = opts.Archive.Save(image)
			if err != nil {
				tel.ReportWarning(report_captcha_archive, err)
			}
		}

		raw, err := recognizer.Recognize(ctx, image)
		if err != nil {
			if ctx.Err() != nil {
				return "", ctx.Err()
			}
			tel.ReportWarning(report_captcha_recognize, err, attempt)
			continue
		}

		code, ok := NormalizeCaptcha(raw, opts.Length, opts.Forbidden)
		if !ok {
			tel.ReportDebug("captcha rejected", attempt, raw)
			continue
		}
		tel.ReportCount(report_captcha_acquire, int64(attempt))
		return code, nil
	}

	tel.ReportBroken(report_captcha_acquire, CaptchaExhaustedError{Attempts: opts.MaxAttempts})
	return "", CaptchaExhaustedError{Attempts: opts.MaxAttempts}
}

// DirArchive writes every captcha to Dir as
// `captcha_<YYYYMMDD_HHMMSS_micro>.png`.
type DirArchive struct {
	Dir   string
	Clock chrono.TimeAPI
}

func (a DirArchive) filename() string {
	now := a.Clock.Now()
	return fmt.Sprintf("captcha_%s_%06d.png", now.Format("20060102_150405"), now.Nanosecond()/1000)
}

func (a DirArchive) Save(image []byte) error {
	err := os.MkdirAll(a.Dir, 0755)
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(a.Dir, a.filename()), image, 0644)
}
