package commands

import (
	"fmt"
	"jwassist-backend/internal/components/chrono"
	"jwassist-backend/internal/components/telemetry"
	"jwassist-backend/internal/coursestore"
	"jwassist-backend/internal/publish"
	"jwassist-backend/internal/schedule"
	"jwassist-backend/internal/scrapers/jwxt"
	"time"
)

type PortalConfig struct {
	BaseUrl           string  `json:"base_url"`
	Term              string  `json:"term"`
	TemplateID        string  `json:"template_id"`
	TimeoutSeconds    int     `json:"timeout_seconds"`
	RequestsPerSecond float64 `json:"requests_per_second"`
	// DumpDir, when set, receives every http exchange with the portal
	// (credentials redacted).
	DumpDir string `json:"dump_dir"`
}

type OcrConfig struct {
	// Url of an http recognizer, takes precedence over Command.
	Url            string   `json:"url"`
	Command        []string `json:"command"`
	TimeoutSeconds int      `json:"timeout_seconds"`
}

type CaptchaConfig struct {
	MaxAttempts int       `json:"max_attempts"`
	Forbidden   string    `json:"forbidden"`
	ArchiveDir  string    `json:"archive_dir"`
	Ocr         OcrConfig `json:"ocr"`
}

type PublishConfig struct {
	publish.Config
	RemoteName string `json:"remote_name"`
}

type Config struct {
	Portal            PortalConfig       `json:"portal"`
	TermStart         string             `json:"term_start"`
	Weeks             int                `json:"weeks"`
	ClassroomStrategy string             `json:"classroom_strategy"`
	Captcha           CaptchaConfig      `json:"captcha"`
	ExportDir         string             `json:"export_dir"`
	Output            string             `json:"output"`
	DB                coursestore.Config `json:"db"`
	Publish           PublishConfig      `json:"publish"`
	Cron              string             `json:"cron"`
	Telemetry         telemetry.Config   `json:"telemetry"`
}

func defaultConfig() Config {
	captcha := jwxt.DefaultCaptchaOptions()
	return Config{
		Portal: PortalConfig{
			BaseUrl:           "https://jwyth.hnkjxy.net.cn",
			Term:              "2025-2026-1",
			TemplateID:        "C26030BDC5F8456CBE75B8779AED2F8A",
			TimeoutSeconds:    20,
			RequestsPerSecond: 2,
		},
		TermStart:         "2025-09-15",
		Weeks:             21,
		ClassroomStrategy: schedule.StrategyKeyword,
		Captcha: CaptchaConfig{
			MaxAttempts: captcha.MaxAttempts,
			Forbidden:   captcha.Forbidden,
			Ocr: OcrConfig{
				TimeoutSeconds: 10,
			},
		},
		ExportDir: "extracted_courses",
		Output:    "data/all_weeks_courses.json",
		Publish: PublishConfig{
			RemoteName: "all_weeks_courses.json",
		},
		// mondays at 06:30, portal time
		Cron: "30 6 * * 1",
	}
}

func (c Config) calendar() (schedule.Calendar, error) {
	cal, err := schedule.ParseCalendar(c.TermStart, chrono.CST)
	if err != nil {
		return schedule.Calendar{}, fmt.Errorf("term_start: %w", err)
	}
	return cal, nil
}

func (c Config) assembler() (schedule.Assembler, error) {
	cal, err := c.calendar()
	if err != nil {
		return schedule.Assembler{}, err
	}
	parser, err := schedule.NewCellParser(c.ClassroomStrategy)
	if err != nil {
		return schedule.Assembler{}, err
	}
	return schedule.Assembler{
		Calendar: cal,
		Parser:   parser,
	}, nil
}

func (c Config) recognizer() (jwxt.Recognizer, error) {
	timeout := time.Duration(c.Captcha.Ocr.TimeoutSeconds) * time.Second
	switch {
	case c.Captcha.Ocr.Url != "":
		return jwxt.NewHttpRecognizer(c.Captcha.Ocr.Url, timeout), nil
	case len(c.Captcha.Ocr.Command) > 0:
		return jwxt.CommandRecognizer{
			Name: c.Captcha.Ocr.Command[0],
			Args: c.Captcha.Ocr.Command[1:],
		}, nil
	default:
		return nil, fmt.Errorf("no captcha recognizer configured, set captcha.ocr.url or captcha.ocr.command")
	}
}

func (c Config) sessionOptions(clock chrono.TimeAPI) jwxt.Options {
	captcha := jwxt.DefaultCaptchaOptions()
	captcha.MaxAttempts = c.Captcha.MaxAttempts
	captcha.Forbidden = c.Captcha.Forbidden
	if c.Captcha.ArchiveDir != "" {
		captcha.Archive = jwxt.DirArchive{
			Dir:   c.Captcha.ArchiveDir,
			Clock: clock,
		}
	}

	var dump telemetry.DumpOutput
	if c.Portal.DumpDir != "" {
		dump = telemetry.DirOutput{Dir: c.Portal.DumpDir}
	}

	return jwxt.Options{
		BaseUrl:           c.Portal.BaseUrl,
		Term:              c.Portal.Term,
		TemplateID:        c.Portal.TemplateID,
		Timeout:           time.Duration(c.Portal.TimeoutSeconds) * time.Second,
		RequestsPerSecond: c.Portal.RequestsPerSecond,
		Captcha:           captcha,
		Clock:             clock,
		Dump:              dump,
	}
}

// credentialsFromEnv reads JW_USERNAME (required) and JW_PASSWORD.
func credentialsFromEnv(getenv func(string) string) (jwxt.Credentials, error) {
	username := getenv("JW_USERNAME")
	if username == "" {
		return jwxt.Credentials{}, fmt.Errorf("JW_USERNAME is not set")
	}
	return jwxt.Credentials{
		Username: username,
		Password: getenv("JW_PASSWORD"),
	}, nil
}
