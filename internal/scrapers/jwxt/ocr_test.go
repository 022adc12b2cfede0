package jwxt

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os/exec"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestHttpRecognizer(t *testing.T) {
	cases := []struct {
		name     string
		response string
		status   int
		expected string
		fails    bool
	}{
		{name: "result", response: `{"result": "ab1x"}`, status: 200, expected: "ab1x"},
		{name: "data", response: `{"data": "k7pq"}`, status: 200, expected: "k7pq"},
		{name: "text", response: `{"text": "zz99"}`, status: 200, expected: "zz99"},
		{name: "empty", response: `{}`, status: 200, fails: true},
		{name: "server error", response: `{"result": "ab1x"}`, status: 500, fails: true},
	}

	for _, testCase := range cases {
		t.Run(testCase.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				var req ocrRequest
				require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
				image, err := base64.StdEncoding.DecodeString(req.Image)
				require.NoError(t, err)
				require.Equal(t, "captcha-bytes", string(image))

				w.WriteHeader(testCase.status)
				w.Write([]byte(testCase.response))
			}))
			defer srv.Close()

			recognizer := NewHttpRecognizer(srv.URL, time.Second*5)
			text, err := recognizer.Recognize(context.Background(), []byte("captcha-bytes"))
			if testCase.fails {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			require.Equal(t, testCase.expected, text)
		})
	}
}

func TestCommandRecognizer(t *testing.T) {
	if _, err := exec.LookPath("tr"); err != nil {
		t.Skip("tr is not available")
	}

	recognizer := CommandRecognizer{Name: "tr", Args: []string{"a-z", "A-Z"}}
	text, err := recognizer.Recognize(context.Background(), []byte("ab1x\n"))
	require.NoError(t, err)
	require.Equal(t, "AB1X", text)

	_, err = CommandRecognizer{Name: "/nonexistent/ocr"}.Recognize(context.Background(), nil)
	require.Error(t, err)
}
