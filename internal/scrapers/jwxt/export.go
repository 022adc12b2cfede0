package jwxt

import (
	"context"
	"fmt"
	"jwassist-backend/internal/components/telemetry"
	"os"
	"path/filepath"
	"sort"
)

const report_exporter_export_weeks = "exporter.export-weeks"

// WeekSource is anything that can produce the raw workbook of a week, in
// practice an activated Session.
type WeekSource interface {
	ExportWeek(ctx context.Context, week int) ([]byte, error)
}

// WeekStore persists raw workbooks.
type WeekStore interface {
	Save(week int, data []byte) (path string, err error)
}

// DirStore keeps workbooks in Dir as `courses_week_NN.xls`.
type DirStore struct {
	Dir string
}

func (d DirStore) Path(week int) string {
	return filepath.Join(d.Dir, fmt.Sprintf("courses_week_%02d.xls", week))
}

func (d DirStore) Save(week int, data []byte) (string, error) {
	err := os.MkdirAll(d.Dir, 0755)
	if err != nil {
		return "", err
	}
	path := d.Path(week)
	err = os.WriteFile(path, data, 0644)
	if err != nil {
		return "", err
	}
	return path, nil
}

// ExportReport is the outcome of an export run, every requested week ends up
// in exactly one of Exported and Failed.
type ExportReport struct {
	Exported map[int]string
	Failed   map[int]error
}

func (r ExportReport) ExportedWeeks() []int {
	return sortedKeys(r.Exported)
}

func (r ExportReport) FailedWeeks() []int {
	return sortedKeys(r.Failed)
}

func sortedKeys[V any](m map[int]V) []int {
	keys := make([]int, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Ints(keys)
	return keys
}

// ExportWeeks exports the given weeks in order. A failing week is recorded in
// the report and the next week is attempted anyway, only a cancelled context
// stops the run early (the returned error is then the context's).
// Workbooks of failed weeks are never written, so a stale file from an
// earlier run is left untouched.
func ExportWeeks(
	ctx context.Context,
	source WeekSource,
	store WeekStore,
	weeks []int,
	tel telemetry.API,
) (ExportReport, error) {
	report := ExportReport{
		Exported: map[int]string{},
		Failed:   map[int]error{},
	}

	for _, week := range weeks {
		if err := ctx.Err(); err != nil {
			return report, err
		}

		data, err := source.ExportWeek(ctx, week)
		if err != nil {
			tel.ReportWarning(report_exporter_export_weeks, week, err)
			report.Failed[week] = err
			continue
		}

		path, err := store.Save(week, data)
		if err != nil {
			tel.ReportWarning(report_exporter_export_weeks, week, err)
			report.Failed[week] = fmt.Errorf("save week %d: %w", week, err)
			continue
		}
		tel.ReportDebug("week exported", week, path, len(data))
		report.Exported[week] = path
	}

	tel.ReportCount(report_exporter_export_weeks, int64(len(report.Exported)))
	return report, nil
}

// WeekRange returns the weeks from..to inclusive.
func WeekRange(from, to int) []int {
	var weeks []int
	for week := from; week <= to; week++ {
		weeks = append(weeks, week)
	}
	return weeks
}
