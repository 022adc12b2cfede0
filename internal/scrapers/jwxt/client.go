package jwxt

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"jwassist-backend/internal/components/telemetry"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"

	"github.com/andybalholm/brotli"
	"github.com/go-resty/resty/v2"
	"golang.org/x/net/publicsuffix"
	"golang.org/x/time/rate"
)

const userAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/123.0.0.0 Safari/537.36"

type noRedirectKeyType int

var noRedirectKey noRedirectKeyType

// withoutRedirects marks a request context so the redirect policy hands the
// 3xx response back instead of following it.
func withoutRedirects(ctx context.Context) context.Context {
	return context.WithValue(ctx, noRedirectKey, true)
}

func redirectPolicy(hostname string) resty.RedirectPolicy {
	return resty.RedirectPolicyFunc(func(req *http.Request, via []*http.Request) error {
		if noFollow, _ := req.Context().Value(noRedirectKey).(bool); noFollow {
			return http.ErrUseLastResponse
		}
		if len(via) >= 10 {
			return fmt.Errorf("stopped after %d redirects", len(via))
		}
		if req.URL.Hostname() != hostname {
			return fmt.Errorf("redirect to foreign host %s", req.URL.Hostname())
		}
		return nil
	})
}

// decodeBrotli expands `br` encoded bodies, gzip is already handled by resty.
func decodeBrotli(_ *resty.Client, res *resty.Response) error {
	if !strings.EqualFold(res.Header().Get("Content-Encoding"), "br") {
		return nil
	}
	body, err := io.ReadAll(brotli.NewReader(bytes.NewReader(res.Body())))
	if err != nil {
		return fmt.Errorf("decode brotli body: %w", err)
	}
	res.SetBody(body)
	return nil
}

// redactedFields never show up in http dumps.
var redactedFields = []string{"userPassword", "encoded", "RANDOMCODE"}

func newHttpClient(baseUrl *url.URL, opts Options, tel telemetry.API) (*resty.Client, error) {
	client := resty.New()
	client.SetBaseURL(strings.TrimSuffix(baseUrl.String(), "/"))

	jar, err := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
	if err != nil {
		return nil, err
	}
	client.SetCookieJar(jar)

	client.SetHeader("User-Agent", userAgent)
	client.SetHeader("Accept-Language", "zh-CN,zh;q=0.9")
	client.SetHeader("Accept-Encoding", "gzip, br")
	client.SetRedirectPolicy(redirectPolicy(baseUrl.Hostname()))
	client.SetTimeout(opts.Timeout)

	if opts.RequestsPerSecond > 0 {
		burst := int(opts.RequestsPerSecond)
		if burst < 1 {
			burst = 1
		}
		rateLimiter := rate.NewLimiter(rate.Limit(opts.RequestsPerSecond), burst)
		client.OnBeforeRequest(func(_ *resty.Client, req *resty.Request) error {
			return rateLimiter.Wait(req.Context())
		})
	}

	client.OnAfterResponse(decodeBrotli)
	telemetry.InstrumentResty(client, tel)
	if opts.Dump != nil {
		telemetry.DumpResty(client, opts.Dump, redactedFields...)
	}

	return client, nil
}
