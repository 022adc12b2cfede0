package telemetry

import (
	"context"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/go-resty/resty/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const (
	report_resty_request  = "resty.request"
	report_resty_response = "resty.response"
)

// InstrumentResty numbers every request made by client, reports it with its
// status and latency and wraps it in a span. Transport errors are broken,
// server errors (5xx) are warnings. Bodies are never recorded.
func InstrumentResty(client *resty.Client, tel API) {
	r := &restyReporter{
		tel:    tel,
		tracer: otel.Tracer("jwassist-backend/resty"),
	}
	client.OnBeforeRequest(r.begin)
	client.OnAfterResponse(r.finish)
	client.OnError(r.fail)
}

type restyReporter struct {
	tel    API
	tracer trace.Tracer
	seq    atomic.Uint64
}

type inflightKeyType int

var inflightKey inflightKeyType

type inflight struct {
	seq   uint64
	began time.Time
	span  trace.Span
}

func (r *restyReporter) begin(_ *resty.Client, req *resty.Request) error {
	seq := r.seq.Add(1)
	ctx, span := r.tracer.Start(req.Context(), "http "+req.Method, trace.WithAttributes(
		attribute.String("http.method", req.Method),
		attribute.String("http.url", req.URL),
	))
	req.SetContext(context.WithValue(ctx, inflightKey, inflight{
		seq:   seq,
		began: time.Now(),
		span:  span,
	}))
	r.tel.ReportDebug(report_resty_request, seq, req.Method, req.URL)
	return nil
}

// lookup tolerates requests that never went through begin, resty calls
// OnError for failures that happen before the request middlewares run.
func lookup(req *resty.Request) (inflight, time.Duration) {
	info, ok := req.Context().Value(inflightKey).(inflight)
	if !ok {
		return inflight{span: trace.SpanFromContext(context.Background())}, 0
	}
	return info, time.Since(info.began)
}

func (r *restyReporter) finish(_ *resty.Client, res *resty.Response) error {
	info, latency := lookup(res.Request)
	defer info.span.End()

	status := res.StatusCode()
	info.span.SetAttributes(
		attribute.Int("http.status_code", status),
		attribute.Int("http.response_size", len(res.Body())),
	)
	if status >= http.StatusInternalServerError {
		info.span.SetStatus(codes.Error, res.Status())
		r.tel.ReportWarning(report_resty_response, info.seq, res.Request.URL, res.Status())
	}
	r.tel.ReportDebug(report_resty_response, info.seq, latency.String(), res.Status(), len(res.Body()))
	return nil
}

func (r *restyReporter) fail(req *resty.Request, err error) {
	info, latency := lookup(req)
	defer info.span.End()

	info.span.RecordError(err)
	info.span.SetStatus(codes.Error, err.Error())
	r.tel.ReportBroken(report_resty_response, err, info.seq, req.Method, req.URL, latency.String())
}
