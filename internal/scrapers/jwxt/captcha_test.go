package jwxt

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"jwassist-backend/internal/components/chrono"
	"jwassist-backend/internal/components/telemetry"

	"github.com/stretchr/testify/require"
)

type scriptedCaptcha struct {
	outputs []string
	errs    []error
	fetches int
}

func (s *scriptedCaptcha) FetchCaptcha(ctx context.Context) ([]byte, error) {
	s.fetches++
	return []byte{0x89, 'P', 'N', 'G', byte(s.fetches)}, nil
}

func (s *scriptedCaptcha) Recognize(ctx context.Context, image []byte) (string, error) {
	i := int(image[len(image)-1]) - 1
	if i < len(s.errs) && s.errs[i] != nil {
		return "", s.errs[i]
	}
	if i >= len(s.outputs) {
		return "", nil
	}
	return s.outputs[i], nil
}

func TestNormalizeCaptcha(t *testing.T) {
	cases := []struct {
		raw      string
		expected string
		ok       bool
	}{
		{raw: "AB1X", expected: "ab1x", ok: true},
		{raw: " a-b 1_x ", expected: "ab1x", ok: true},
		{raw: "ab1x9z", expected: "ab1x", ok: true},
		{raw: "abc", ok: false},
		{raw: "", ok: false},
		{raw: "abci", ok: false},
		{raw: "ABCI", ok: false},
		{raw: "abcdi", expected: "abcd", ok: true},
		{raw: "验证ab12", expected: "ab12", ok: true},
	}

	for _, testCase := range cases {
		code, ok := NormalizeCaptcha(testCase.raw, 4, "i")
		require.Equal(t, testCase.ok, ok, testCase.raw)
		require.Equal(t, testCase.expected, code, testCase.raw)
	}
}

func TestAcquireCaptchaRetries(t *testing.T) {
	script := &scriptedCaptcha{outputs: []string{"", "abci", "ab1x"}}

	code, err := AcquireCaptcha(context.Background(), script, script, DefaultCaptchaOptions(), telemetry.NewMemoryAPI())
	require.NoError(t, err)
	require.Equal(t, "ab1x", code)
	require.Equal(t, 3, script.fetches)
}

func TestAcquireCaptchaExhausted(t *testing.T) {
	outputs := make([]string, 10)
	for i := range outputs {
		outputs[i] = "xi"
	}
	script := &scriptedCaptcha{outputs: outputs}

	_, err := AcquireCaptcha(context.Background(), script, script, DefaultCaptchaOptions(), telemetry.NewMemoryAPI())
	var exhausted CaptchaExhaustedError
	require.ErrorAs(t, err, &exhausted)
	require.Equal(t, 10, exhausted.Attempts)
	require.Equal(t, 10, script.fetches)
}

func TestAcquireCaptchaRecognizerErrorCountsAsAttempt(t *testing.T) {
	script := &scriptedCaptcha{
		outputs: []string{"", "k7pq"},
		errs:    []error{errors.New("ocr service down")},
	}
	mem := telemetry.NewMemoryAPI()

	code, err := AcquireCaptcha(context.Background(), script, script, DefaultCaptchaOptions(), mem)
	require.NoError(t, err)
	require.Equal(t, "k7pq", code)
	require.Equal(t, 2, script.fetches)
	require.Len(t, mem.Reports(telemetry.KindWarning, report_captcha_recognize), 1)
}

type failingFetcher struct{}

func (failingFetcher) FetchCaptcha(ctx context.Context) ([]byte, error) {
	return nil, errors.New("connection reset")
}

func TestAcquireCaptchaFetchErrorAborts(t *testing.T) {
	recognizer := RecognizerFunc(func(ctx context.Context, image []byte) (string, error) {
		t.Fatal("recognizer should not be called")
		return "", nil
	})
	_, err := AcquireCaptcha(context.Background(), failingFetcher{}, recognizer, DefaultCaptchaOptions(), telemetry.NewMemoryAPI())
	require.ErrorContains(t, err, "connection reset")
}

type brokenArchive struct{}

func (brokenArchive) Save([]byte) error {
	return errors.New("disk full")
}

func TestAcquireCaptchaArchiveFailureIsWarning(t *testing.T) {
	script := &scriptedCaptcha{outputs: []string{"ab1x"}}
	opts := DefaultCaptchaOptions()
	opts.Archive = brokenArchive{}
	mem := telemetry.NewMemoryAPI()

	code, err := AcquireCaptcha(context.Background(), script, script, opts, mem)
	require.NoError(t, err)
	require.Equal(t, "ab1x", code)
	require.Len(t, mem.Reports(telemetry.KindWarning, report_captcha_archive), 1)
}

func TestDirArchive(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "captchas")
	at := time.Date(2025, 9, 15, 8, 5, 9, 123456789, chrono.CST)
	archive := DirArchive{Dir: dir, Clock: chrono.FixedTime{At: at}}

	require.NoError(t, archive.Save([]byte("png")))

	contents, err := os.ReadFile(filepath.Join(dir, "captcha_20250915_080509_123456.png"))
	require.NoError(t, err)
	require.Equal(t, "png", string(contents))
}
