package telemetry

import (
	"fmt"
)

// API is the logging/metrics surface every component reports through.
// Components take it as a dependency so tests can assert on what was reported.
type API interface {
	// ReportBroken reports a component that failed in a way someone should look at.
	//
	// The `id` names the component and operation that broke, not the line of code.
	// ex. a failed captcha fetch inside the login flow of the portal session is
	// reported as `session.login`, the detail (which request, which status) goes
	// into params or into the wrapped error.
	//
	// Formatting rules:
	// 1) all lowercase
	// 2) underscores for large components
	// 3) dashes for methods of a larger component
	//
	// Package prefixes come from ScopedAPI, so ids only need `<struct>.<method>`.
	ReportBroken(id string, params ...any)

	// ReportWarning reports something that did not break the run but may need
	// investigating (a single week failing to export, a captcha that could not
	// be archived).
	ReportWarning(id string, params ...any)

	// ReportDebug reports details that are dropped unless verbose output is on.
	ReportDebug(msg string, params ...any)

	// ReportCount reports a point-in-time count, ex. the number of records
	// assembled for a week. Counts are samples, they should not be summed.
	ReportCount(id string, count int64)
}

// ScopedAPI prefixes every id with a namespace, the same way a sub-logger
// carries a prefix.
type ScopedAPI struct {
	namespace string
	inner     API
}

func NewScopedAPI(namespace string, inner API) ScopedAPI {
	return ScopedAPI{namespace: namespace, inner: inner}
}

func (s ScopedAPI) scoped(id string) string {
	return fmt.Sprintf("%s: %s", s.namespace, id)
}

func (s ScopedAPI) ReportBroken(id string, params ...any) {
	s.inner.ReportBroken(s.scoped(id), params...)
}

func (s ScopedAPI) ReportWarning(id string, params ...any) {
	s.inner.ReportWarning(s.scoped(id), params...)
}

func (s ScopedAPI) ReportDebug(msg string, params ...any) {
	s.inner.ReportDebug(s.scoped(msg), params...)
}

func (s ScopedAPI) ReportCount(id string, count int64) {
	s.inner.ReportCount(s.scoped(id), count)
}

// MultiAPI fans every report out to each of its members in order.
type MultiAPI []API

func (m MultiAPI) ReportBroken(id string, params ...any) {
	for _, api := range m {
		api.ReportBroken(id, params...)
	}
}

func (m MultiAPI) ReportWarning(id string, params ...any) {
	for _, api := range m {
		api.ReportWarning(id, params...)
	}
}

func (m MultiAPI) ReportDebug(msg string, params ...any) {
	for _, api := range m {
		api.ReportDebug(msg, params...)
	}
}

func (m MultiAPI) ReportCount(id string, count int64) {
	for _, api := range m {
		api.ReportCount(id, count)
	}
}
