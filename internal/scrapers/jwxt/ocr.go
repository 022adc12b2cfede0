package jwxt

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
)

// HttpRecognizer posts the image to an ocr service as
// `{"image": "<base64>"}`. The text is read from whichever of `result`,
// `data` or `text` is set in the response.
type HttpRecognizer struct {
	http *resty.Client
	url  string
}

func NewHttpRecognizer(url string, timeout time.Duration) HttpRecognizer {
	client := resty.New()
	client.SetTimeout(timeout)
	return HttpRecognizer{http: client, url: url}
}

type ocrRequest struct {
	Image string `json:"image"`
}

type ocrResponse struct {
	Result string `json:"result"`
	Data   string `json:"data"`
	Text   string `json:"text"`
}

func (r HttpRecognizer) Recognize(ctx context.Context, image []byte) (string, error) {
	var out ocrResponse
	res, err := r.http.R().
		SetContext(ctx).
		SetBody(ocrRequest{Image: base64.StdEncoding.EncodeToString(image)}).
		SetResult(&out).
		ForceContentType("application/json").
		Post(r.url)
	if err != nil {
		return "", fmt.Errorf("ocr request: %w", err)
	}
	if res.IsError() {
		return "", StatusError{Op: "ocr request", Status: res.StatusCode()}
	}

	for _, text := range []string{out.Result, out.Data, out.Text} {
		if text != "" {
			return text, nil
		}
	}
	return "", fmt.Errorf("ocr response has no text")
}

// CommandRecognizer runs an external program with the image on stdin and
// takes its trimmed stdout as the text.
type CommandRecognizer struct {
	Name string
	Args []string
}

func (r CommandRecognizer) Recognize(ctx context.Context, image []byte) (string, error) {
	cmd := exec.CommandContext(ctx, r.Name, r.Args...)
	cmd.Stdin = bytes.NewReader(image)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	out, err := cmd.Output()
	if err != nil {
		return "", fmt.Errorf("run %s: %w: %s", r.Name, err, strings.TrimSpace(stderr.String()))
	}
	return strings.TrimSpace(string(out)), nil
}
