package schedule

import (
	"encoding/json"
	"fmt"
	"io"
	"jwassist-backend/internal/components/telemetry"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
)

const (
	report_parse_dir  = "dataset.parse-dir"
	report_parse_week = "dataset.parse-week"
)

// Dataset maps a zero padded week key to the records of that week.
type Dataset map[string][]Record

// Weeks returns the keys of the dataset in ascending order.
func (d Dataset) Weeks() []string {
	keys := make([]string, 0, len(d))
	for k := range d {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

type WeekError struct {
	Week string
	Path string
	Err  error
}

func (e WeekError) Error() string {
	return fmt.Sprintf("week %s (%s): %s", e.Week, e.Path, e.Err)
}

func (e WeekError) Unwrap() error {
	return e.Err
}

// WeekFromFilename extracts the week number from names like
// `courses_week_07.xls`, the number is whatever follows the last underscore.
func WeekFromFilename(path string) (int, error) {
	stem := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	idx := strings.LastIndex(stem, "_")
	week, err := strconv.Atoi(stem[idx+1:])
	if err != nil || week < 1 {
		return 0, fmt.Errorf("no week number in filename %q", filepath.Base(path))
	}
	return week, nil
}

// ParseFile assembles a single exported workbook.
func (a Assembler) ParseFile(path string, week int) ([]Record, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	grid, err := ReadXLS(f)
	if err != nil {
		return nil, err
	}
	return a.Assemble(grid, week)
}

// ParseDir assembles every `*.xls` workbook in dir in filename order. A week
// that fails is left out of the dataset and returned among the week errors,
// it does not stop the other weeks from being parsed.
func ParseDir(dir string, a Assembler, tel telemetry.API) (Dataset, []WeekError, error) {
	paths, err := filepath.Glob(filepath.Join(dir, "*.xls"))
	if err != nil {
		return nil, nil, err
	}
	sort.Strings(paths)

	dataset := Dataset{}
	var failures []WeekError
	for _, path := range paths {
		week, err := WeekFromFilename(path)
		if err != nil {
			tel.ReportWarning(report_parse_dir, err)
			failures = append(failures, WeekError{Path: path, Err: err})
			continue
		}
		key := WeekKey(week)

		records, err := a.ParseFile(path, week)
		if err != nil {
			tel.ReportWarning(report_parse_week, key, err)
			failures = append(failures, WeekError{Week: key, Path: path, Err: err})
			continue
		}
		tel.ReportCount(report_parse_week, int64(len(records)))
		dataset[key] = records
	}
	return dataset, failures, nil
}

// WriteDataset writes the dataset as indented json with keys sorted and
// non-ascii text left unescaped.
func WriteDataset(w io.Writer, dataset Dataset) error {
	out := make(map[string][]Record, len(dataset))
	for key, records := range dataset {
		if records == nil {
			records = []Record{}
		}
		out[key] = records
	}

	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}

func ReadDataset(r io.Reader) (Dataset, error) {
	var dataset Dataset
	err := json.NewDecoder(r).Decode(&dataset)
	if err != nil {
		return nil, err
	}
	for key, records := range dataset {
		week, err := strconv.Atoi(key)
		if err != nil {
			return nil, fmt.Errorf("invalid week key %q", key)
		}
		for i := range records {
			records[i].Week = week
		}
	}
	return dataset, nil
}

// WriteDatasetFile writes the dataset to path, creating parent directories.
func WriteDatasetFile(path string, dataset Dataset) error {
	err := os.MkdirAll(filepath.Dir(path), 0755)
	if err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	err = WriteDataset(f, dataset)
	if closeErr := f.Close(); err == nil {
		err = closeErr
	}
	return err
}

func ReadDatasetFile(path string) (Dataset, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return ReadDataset(f)
}
