package telemetry

import (
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync/atomic"

	"github.com/go-resty/resty/v2"
)

// DumpOutput receives every http exchange of an instrumented client, one
// call per response.
type DumpOutput interface {
	Write(id string, contents string)
}

// DirOutput writes each exchange to its own file in Dir, the directory is
// created on first use.
type DirOutput struct {
	Dir string
}

func (o DirOutput) Write(id string, contents string) {
	err := os.MkdirAll(o.Dir, 0700)
	if err == nil {
		err = os.WriteFile(filepath.Join(o.Dir, id+".txt"), []byte(contents), 0600)
	}
	if err != nil {
		slog.Warn("failed to write http dump", "id", id, "err", err)
	}
}

const redacted = "<redacted>"

// DumpResty writes every request and response made by client to out. Values
// of the redact keys are masked in query strings and form bodies.
func DumpResty(client *resty.Client, out DumpOutput, redact ...string) {
	var idcounter uint64
	client.OnAfterResponse(func(_ *resty.Client, res *resty.Response) error {
		id := atomic.AddUint64(&idcounter, 1)
		name := fmt.Sprintf("%04d_%s", id, strings.ToLower(res.Request.Method))
		out.Write(name, formatExchange(res, redact))
		return nil
	})
}

func formatHeaders(headers http.Header) string {
	keys := make([]string, 0, len(headers))
	for k := range headers {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var out strings.Builder
	for _, k := range keys {
		for _, v := range headers[k] {
			if k == "Cookie" || k == "Set-Cookie" {
				v = redacted
			}
			fmt.Fprintf(&out, "%s: %s\n", k, v)
		}
	}
	return strings.TrimSuffix(out.String(), "\n")
}

func redactValues(values url.Values, redact []string) url.Values {
	for _, key := range redact {
		if _, ok := values[key]; ok {
			values[key] = []string{redacted}
		}
	}
	return values
}

func redactUrl(raw string, redact []string) string {
	u, err := url.Parse(raw)
	if err != nil || u.RawQuery == "" {
		return raw
	}
	u.RawQuery = redactValues(u.Query(), redact).Encode()
	return u.String()
}

func formatRequestBody(req *http.Request, redact []string) string {
	if req == nil || req.GetBody == nil {
		return ""
	}
	body, err := req.GetBody()
	if err != nil {
		return fmt.Sprintf("failed to get request body: %s", err.Error())
	}
	if body == nil {
		return ""
	}
	defer body.Close()
	contents, err := io.ReadAll(body)
	if err != nil {
		return fmt.Sprintf("failed to read request body: %s", err.Error())
	}
	if strings.HasPrefix(req.Header.Get("Content-Type"), "application/x-www-form-urlencoded") {
		values, err := url.ParseQuery(string(contents))
		if err == nil {
			return redactValues(values, redact).Encode()
		}
	}
	return string(contents)
}

func isText(contentType string) bool {
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return contentType == ""
	}
	return strings.HasPrefix(mediaType, "text/") ||
		strings.HasSuffix(mediaType, "json") ||
		strings.HasSuffix(mediaType, "xml") ||
		mediaType == "application/x-www-form-urlencoded"
}

func formatResponseBody(res *resty.Response) string {
	contentType := res.Header().Get("Content-Type")
	if !isText(contentType) {
		return fmt.Sprintf("<%d bytes of %s>", len(res.Body()), contentType)
	}
	return res.String()
}

const exchangeTemplate = `---- REQUEST ----

%s %s

%s

%s

---- RESPONSE ----

%d %s

%s

%s
`

func formatExchange(res *resty.Response, redact []string) string {
	var requestHeaders string
	if res.Request.RawRequest != nil {
		requestHeaders = formatHeaders(res.Request.RawRequest.Header)
	}

	location := res.Request.URL
	if res.RawResponse != nil {
		redirected, err := res.RawResponse.Location()
		if err == nil {
			location = redirected.String()
		}
	}

	return fmt.Sprintf(
		exchangeTemplate,
		res.Request.Method, redactUrl(res.Request.URL, redact),
		requestHeaders,
		formatRequestBody(res.Request.RawRequest, redact),
		res.StatusCode(), redactUrl(location, redact),
		formatHeaders(res.Header()),
		formatResponseBody(res),
	)
}
