package commands

import (
	"context"
	"fmt"
	"jwassist-backend/internal/components/chrono"
	"jwassist-backend/internal/components/telemetry"
	"jwassist-backend/internal/coursestore"
	"jwassist-backend/internal/publish"
	"jwassist-backend/internal/schedule"
	"jwassist-backend/internal/scrapers/jwxt"
	"os"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const (
	report_pipeline_login   = "pipeline.login"
	report_pipeline_parse   = "pipeline.parse"
	report_pipeline_store   = "pipeline.store"
	report_pipeline_publish = "pipeline.publish"
)

var tracer = otel.Tracer("jwassist-backend/cmd/jwcourses")

// pipeline is the export -> parse -> store -> publish chain, each step can
// also be run on its own.
type pipeline struct {
	config     Config
	tel        telemetry.API
	clock      chrono.TimeAPI
	recognizer jwxt.Recognizer
	creds      jwxt.Credentials
}

func newPipeline(env environment) (pipeline, error) {
	creds, err := credentialsFromEnv(os.Getenv)
	if err != nil {
		return pipeline{}, err
	}
	recognizer, err := env.config.recognizer()
	if err != nil {
		return pipeline{}, err
	}
	return pipeline{
		config:     env.config,
		tel:        env.tel,
		clock:      env.clock,
		recognizer: recognizer,
		creds:      creds,
	}, nil
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

func (p pipeline) login(ctx context.Context) (session *jwxt.Session, err error) {
	ctx, span := tracer.Start(ctx, "login", trace.WithAttributes(
		attribute.String("portal", p.config.Portal.BaseUrl),
	))
	defer func() { endSpan(span, err) }()

	session, err = jwxt.NewSession(p.config.sessionOptions(p.clock), p.recognizer, p.tel)
	if err != nil {
		return nil, err
	}
	err = session.Login(ctx, p.creds)
	if err != nil {
		return nil, err
	}
	p.tel.ReportDebug("logged in", "username", p.creds.Username)
	return session, nil
}

// export logs in and exports weeks into the export dir.
func (p pipeline) export(ctx context.Context, weeks []int) (report jwxt.ExportReport, err error) {
	session, err := p.login(ctx)
	if err != nil {
		p.tel.ReportBroken(report_pipeline_login, err)
		return jwxt.ExportReport{}, err
	}

	ctx, span := tracer.Start(ctx, "export", trace.WithAttributes(
		attribute.IntSlice("weeks", weeks),
	))
	defer func() { endSpan(span, err) }()

	report, err = jwxt.ExportWeeks(ctx, session, jwxt.DirStore{Dir: p.config.ExportDir}, weeks, p.tel)
	if err != nil {
		return report, err
	}
	span.SetAttributes(
		attribute.Int("exported", len(report.Exported)),
		attribute.Int("failed", len(report.Failed)),
	)
	if len(report.Failed) > 0 {
		return report, PartialExportError{Weeks: report.FailedWeeks()}
	}
	return report, nil
}

// parse assembles every workbook in dir and writes the dataset json to out.
func (p pipeline) parse(ctx context.Context, dir, out string) (dataset schedule.Dataset, err error) {
	_, span := tracer.Start(ctx, "parse", trace.WithAttributes(
		attribute.String("dir", dir),
	))
	defer func() { endSpan(span, err) }()

	assembler, err := p.config.assembler()
	if err != nil {
		return nil, err
	}
	dataset, failures, err := schedule.ParseDir(dir, assembler, p.tel)
	if err != nil {
		return nil, err
	}
	for _, failure := range failures {
		p.tel.ReportWarning(report_pipeline_parse, failure.Error())
	}

	err = schedule.WriteDatasetFile(out, dataset)
	if err != nil {
		return nil, fmt.Errorf("write %s: %w", out, err)
	}
	p.tel.ReportCount(report_pipeline_parse, int64(len(dataset)))
	return dataset, nil
}

// store saves the dataset into the configured database and records the run.
func (p pipeline) store(ctx context.Context, config coursestore.Config, dataset schedule.Dataset, report jwxt.ExportReport) (err error) {
	ctx, span := tracer.Start(ctx, "store")
	defer func() { endSpan(span, err) }()

	startedAt := p.clock.Now()
	db, err := coursestore.Open(config)
	if err != nil {
		return err
	}
	defer db.Close()

	store, err := coursestore.NewStore(ctx, db)
	if err != nil {
		return err
	}
	runID, err := store.BeginRun(ctx, startedAt)
	if err != nil {
		return err
	}
	err = store.SaveDataset(ctx, runID, dataset)
	if err != nil {
		return err
	}
	return store.FinishRun(ctx, runID, p.clock.Now(), len(report.Exported), len(report.Failed))
}

func (p pipeline) publish(ctx context.Context, localPath string) (err error) {
	ctx, span := tracer.Start(ctx, "publish", trace.WithAttributes(
		attribute.String("host", p.config.Publish.Host),
	))
	defer func() { endSpan(span, err) }()

	return publish.Upload(ctx, p.config.Publish.Config, localPath, p.config.Publish.RemoteName)
}

// run exports weeks then rebuilds the dataset from the whole export dir. A
// partial export still parses, stores and publishes what was exported, the
// partial error is returned at the end.
func (p pipeline) run(ctx context.Context, weeks []int) (err error) {
	ctx, span := tracer.Start(ctx, "run")
	defer func() { endSpan(span, err) }()

	report, exportErr := p.export(ctx, weeks)
	if exportErr != nil && len(report.Exported) == 0 {
		return exportErr
	}

	dataset, err := p.parse(ctx, p.config.ExportDir, p.config.Output)
	if err != nil {
		return err
	}

	if p.config.DB.Url != "" {
		err = p.store(ctx, p.config.DB, dataset, report)
		if err != nil {
			p.tel.ReportBroken(report_pipeline_store, err)
			return fmt.Errorf("store dataset: %w", err)
		}
	}
	if p.config.Publish.Enabled() {
		err = p.publish(ctx, p.config.Output)
		if err != nil {
			p.tel.ReportBroken(report_pipeline_publish, err)
			return fmt.Errorf("publish dataset: %w", err)
		}
	}

	return exportErr
}
