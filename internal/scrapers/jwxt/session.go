package jwxt

import (
	"bytes"
	"context"
	"fmt"
	"jwassist-backend/internal/assert"
	"jwassist-backend/internal/components/chrono"
	"jwassist-backend/internal/components/telemetry"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/go-resty/resty/v2"
)

const (
	report_session_load_page         = "session.load-page"
	report_session_obtain_challenge  = "session.obtain-challenge"
	report_session_fetch_captcha     = "session.fetch-captcha"
	report_session_submit_credential = "session.submit-credentials"
	report_session_activate          = "session.activate"
	report_session_export_week       = "session.export-week"
)

const (
	pathLogin      = "/"
	pathLogon      = "/Logon.do"
	pathCaptcha    = "/verifycode.servlet"
	pathPrint      = "/jsxsd/xskb/xskb_print.do"
	pathScheduleUI = "/jsxsd/xskb/xskb_list.do"
)

// State is where a Session is in the login sequence. The sequence only moves
// forward, any failed step puts the session in StateFailed for good.
type State int

const (
	StateFresh State = iota
	StatePageLoaded
	StateChallengeObtained
	StateCredentialsSubmitted
	StateActivated
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateFresh:
		return "fresh"
	case StatePageLoaded:
		return "page-loaded"
	case StateChallengeObtained:
		return "challenge-obtained"
	case StateCredentialsSubmitted:
		return "credentials-submitted"
	case StateActivated:
		return "activated"
	case StateFailed:
		return "failed"
	default:
		return "unknown(" + strconv.Itoa(int(s)) + ")"
	}
}

type Credentials struct {
	Username string
	Password string
}

type Options struct {
	BaseUrl           string
	Term              string
	TemplateID        string
	Timeout           time.Duration
	RequestsPerSecond float64
	Captcha           CaptchaOptions
	Clock             chrono.TimeAPI
	// Dump receives every http exchange when set.
	Dump telemetry.DumpOutput
}

// Session is a single cookie-carrying conversation with the portal. It is not
// safe for concurrent use.
type Session struct {
	opts       Options
	baseUrl    *url.URL
	http       *resty.Client
	recognizer Recognizer
	tel        telemetry.API

	state     State
	challenge *Challenge
	submitted submission
}

type submission struct {
	status   int
	location string
	body     []byte
}

func NewSession(opts Options, recognizer Recognizer, tel telemetry.API) (*Session, error) {
	assert.NotNil(recognizer)
	assert.NotNil(tel)
	assert.NotEmptyStr(opts.BaseUrl)
	assert.Positive("captcha length", opts.Captcha.Length)
	assert.Positive("captcha attempts", opts.Captcha.MaxAttempts)

	tel = telemetry.NewScopedAPI("jwxt", tel)

	baseUrl, err := url.Parse(opts.BaseUrl)
	if err != nil {
		return nil, err
	}
	if opts.Timeout <= 0 {
		opts.Timeout = time.Second * 20
	}
	if opts.Clock == nil {
		opts.Clock = chrono.NewStandardTime(chrono.CST)
	}

	httpClient, err := newHttpClient(baseUrl, opts, tel)
	if err != nil {
		return nil, err
	}

	return &Session{
		opts:       opts,
		baseUrl:    baseUrl,
		http:       httpClient,
		recognizer: recognizer,
		tel:        tel,
	}, nil
}

func (s *Session) State() State {
	return s.state
}

func (s *Session) loginPageUrl() string {
	return s.baseUrl.ResolveReference(&url.URL{Path: pathLogin}).String()
}

func (s *Session) expect(state State) error {
	if s.state != state {
		return fmt.Errorf("%w: session is %s, expected %s", ErrInvalidState, s.state, state)
	}
	return nil
}

func (s *Session) fail(id string, err error) error {
	s.state = StateFailed
	s.tel.ReportBroken(id, err)
	return fmt.Errorf("jwxt: login failed: %w", err)
}

// Login runs the whole login sequence, on success the session is activated
// and can export schedules.
func (s *Session) Login(ctx context.Context, creds Credentials) error {
	if creds.Username == "" {
		return fmt.Errorf("jwxt: login failed: empty username")
	}
	err := s.LoadPage(ctx)
	if err != nil {
		return err
	}
	err = s.ObtainChallenge(ctx)
	if err != nil {
		return err
	}
	err = s.SubmitCredentials(ctx, creds)
	if err != nil {
		return err
	}
	return s.Activate(ctx)
}

// LoadPage fetches the login page, which sets the session cookie.
func (s *Session) LoadPage(ctx context.Context) error {
	err := s.expect(StateFresh)
	if err != nil {
		return err
	}

	res, err := s.http.R().
		SetContext(ctx).
		Get(pathLogin)
	if err != nil {
		return s.fail(report_session_load_page, fmt.Errorf("login page request: %w", err))
	}
	if res.IsError() {
		return s.fail(report_session_load_page, StatusError{Op: "login page", Status: res.StatusCode()})
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(res.Body()))
	if err == nil && doc.Find("form#loginForm, input[name=userAccount]").Length() == 0 {
		s.tel.ReportWarning(report_session_load_page, "login page has no login form")
	}

	s.state = StatePageLoaded
	return nil
}

// ObtainChallenge requests the `scode#sxh` pair used by Encode.
func (s *Session) ObtainChallenge(ctx context.Context) error {
	err := s.expect(StatePageLoaded)
	if err != nil {
		return err
	}

	res, err := s.http.R().
		SetContext(ctx).
		SetQueryParam("method", "logon").
		SetQueryParam("flag", "sess").
		Post(pathLogon)
	if err != nil {
		return s.fail(report_session_obtain_challenge, fmt.Errorf("challenge request: %w", err))
	}
	if res.IsError() {
		return s.fail(report_session_obtain_challenge, StatusError{Op: "challenge", Status: res.StatusCode()})
	}

	challenge, err := ParseChallenge(res.String())
	if err != nil {
		return s.fail(report_session_obtain_challenge, err)
	}
	s.challenge = &challenge
	s.state = StateChallengeObtained
	return nil
}

// FetchCaptcha fetches a new captcha image for the session, the timestamp
// parameter keeps caches from serving an old image.
func (s *Session) FetchCaptcha(ctx context.Context) ([]byte, error) {
	res, err := s.http.R().
		SetContext(ctx).
		SetQueryParam("t", strconv.FormatInt(s.opts.Clock.Now().UnixMilli(), 10)).
		SetHeader("Referer", s.loginPageUrl()).
		Get(pathCaptcha)
	if err != nil {
		s.tel.ReportBroken(report_session_fetch_captcha, err)
		return nil, err
	}
	if res.IsError() {
		return nil, StatusError{Op: "captcha", Status: res.StatusCode()}
	}
	return res.Body(), nil
}

func encodeLoginForm(username, captcha, encoded string) string {
	// the portal expects exactly these fields in this order, url.Values
	// would sort them.
	return "userAccount=" + url.QueryEscape(username) +
		"&userPassword=" +
		"&RANDOMCODE=" + url.QueryEscape(captcha) +
		"&encoded=" + url.QueryEscape(encoded)
}

// SubmitCredentials solves a captcha, encodes the credentials with the
// challenge and posts them. The challenge is consumed whether or not the
// submission succeeds.
func (s *Session) SubmitCredentials(ctx context.Context, creds Credentials) error {
	err := s.expect(StateChallengeObtained)
	if err != nil {
		return err
	}
	challenge := *s.challenge
	s.challenge = nil

	captcha, err := AcquireCaptcha(ctx, s, s.recognizer, s.opts.Captcha, s.tel)
	if err != nil {
		return s.fail(report_session_submit_credential, err)
	}
	encoded := Encode(creds.Username, creds.Password, challenge)

	res, err := s.http.R().
		SetContext(withoutRedirects(ctx)).
		SetQueryParam("method", "logon").
		SetHeader("Content-Type", "application/x-www-form-urlencoded").
		SetHeader("Origin", strings.TrimSuffix(s.baseUrl.String(), "/")).
		SetHeader("Referer", s.loginPageUrl()).
		SetBody(encodeLoginForm(creds.Username, captcha, encoded)).
		Post(pathLogon)
	if err != nil {
		return s.fail(report_session_submit_credential, fmt.Errorf("submit request: %w", err))
	}

	s.submitted = submission{
		status:   res.StatusCode(),
		location: res.Header().Get("Location"),
		body:     res.Body(),
	}
	s.state = StateCredentialsSubmitted
	return nil
}

var rejectionSelectors = []string{"#showMsg", "font[color=red]", ".dlmi font", "#errorinfo", ".error"}

// rejectionMessage pulls the error the portal shows on the login page.
func rejectionMessage(body []byte) string {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return ""
	}
	for _, selector := range rejectionSelectors {
		text := strings.TrimSpace(doc.Find(selector).First().Text())
		if text != "" {
			return text
		}
	}
	return ""
}

// Activate follows the redirect handed out for accepted credentials. Anything
// but a 3xx with a Location means the credentials or captcha were rejected.
func (s *Session) Activate(ctx context.Context) error {
	err := s.expect(StateCredentialsSubmitted)
	if err != nil {
		return err
	}
	submitted := s.submitted
	s.submitted = submission{}

	if submitted.status < 300 || submitted.status >= 400 || submitted.location == "" {
		return s.fail(report_session_activate, LoginRejectedError{
			Status:  submitted.status,
			Message: rejectionMessage(submitted.body),
		})
	}

	location, err := url.Parse(submitted.location)
	if err != nil {
		return s.fail(report_session_activate, fmt.Errorf("parse redirect %q: %w", submitted.location, err))
	}
	target := s.baseUrl.ResolveReference(location)

	res, err := s.http.R().
		SetContext(ctx).
		Get(target.String())
	if err != nil {
		return s.fail(report_session_activate, fmt.Errorf("redirect request: %w", err))
	}
	if res.IsError() {
		return s.fail(report_session_activate, StatusError{Op: "redirect", Status: res.StatusCode()})
	}
	s.state = StateActivated
	return nil
}

var sessionExpiredMarkers = [][]byte{
	[]byte("loginForm"),
	[]byte("请输入账号"),
}

func isLoginPage(body []byte) bool {
	for _, marker := range sessionExpiredMarkers {
		if bytes.Contains(body, marker) {
			return true
		}
	}
	return false
}

// ExportWeek downloads the printable timetable workbook of one week.
func (s *Session) ExportWeek(ctx context.Context, week int) ([]byte, error) {
	err := s.expect(StateActivated)
	if err != nil {
		return nil, err
	}

	res, err := s.http.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"xnxq01id": s.opts.Term,
			"zc":       strconv.Itoa(week),
			"kbjcmsid": s.opts.TemplateID,
			"wkbkc":    "1",
		}).
		SetHeader("Referer", s.baseUrl.ResolveReference(&url.URL{Path: pathScheduleUI}).String()).
		Get(pathPrint)
	if err != nil {
		s.tel.ReportWarning(report_session_export_week, week, err)
		return nil, fmt.Errorf("export week %d: %w", week, err)
	}
	if res.StatusCode() != http.StatusOK {
		return nil, StatusError{Op: fmt.Sprintf("export week %d", week), Status: res.StatusCode()}
	}
	if isLoginPage(res.Body()) {
		return nil, SessionExpiredError{Week: week}
	}
	return res.Body(), nil
}
