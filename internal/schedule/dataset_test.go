package schedule

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"jwassist-backend/internal/components/telemetry"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

func TestWeekFromFilename(t *testing.T) {
	cases := []struct {
		path  string
		week  int
		valid bool
	}{
		{path: "extracted_courses/courses_week_01.xls", week: 1, valid: true},
		{path: "courses_week_21.xls", week: 21, valid: true},
		{path: "7.xls", week: 7, valid: true},
		{path: "courses_week_.xls", valid: false},
		{path: "courses_week_00.xls", valid: false},
		{path: "notes.xls", valid: false},
	}

	for _, testCase := range cases {
		week, err := WeekFromFilename(testCase.path)
		if !testCase.valid {
			require.Error(t, err, testCase.path)
			continue
		}
		require.NoError(t, err, testCase.path)
		require.Equal(t, testCase.week, week)
	}
}

func TestWriteDataset(t *testing.T) {
	dataset := Dataset{
		"02": nil,
		"01": {{
			Week:      1,
			Weekday:   "Monday",
			Date:      "2025-09-15",
			Section:   "第一大节 (01,02小节)",
			Name:      "高等数学 <A>",
			Classroom: UnknownClassroom,
		}},
	}

	var buf bytes.Buffer
	require.NoError(t, WriteDataset(&buf, dataset))

	expected := `{
  "01": [
    {
      "weekday": "Monday",
      "date": "2025-09-15",
      "section": "第一大节 (01,02小节)",
      "name": "高等数学 <A>",
      "classroom": "未知教室"
    }
  ],
  "02": []
}
`
	if diff := cmp.Diff(expected, buf.String()); diff != "" {
		t.Fatal(diff)
	}

	read, err := ReadDataset(strings.NewReader(buf.String()))
	require.NoError(t, err)
	require.Equal(t, []string{"01", "02"}, read.Weeks())
	require.Equal(t, dataset["01"], read["01"])
}

func TestParseDirIsolatesWeeks(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "courses_week_02.xls"), []byte("not a workbook"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "courses_week_x.xls"), []byte("not a workbook"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "readme.txt"), []byte("ignored"), 0644))

	mem := telemetry.NewMemoryAPI()
	dataset, failures, err := ParseDir(dir, Assembler{Calendar: testCalendar(t), Parser: KeywordParser{}}, mem)
	require.NoError(t, err)
	require.Empty(t, dataset)
	require.Len(t, failures, 2)
	require.Equal(t, "02", failures[0].Week)
	require.Equal(t, "", failures[1].Week)
	require.Len(t, mem.Reports(telemetry.KindWarning, ""), 2)
}

func TestReadXLS(t *testing.T) {
	f, err := os.Open(filepath.Join("testdata", "courses_week_03.xls"))
	require.NoError(t, err)
	defer f.Close()

	grid, err := ReadXLS(f)
	require.NoError(t, err)

	rows, cols := grid.Shape()
	require.Equal(t, 9, rows)
	require.Equal(t, 8, cols)
	require.Equal(t, "2025-2026-1学期 第3周 学生个人课表", grid.Cell(0, 0))
	require.Equal(t, "星期日", grid.Cell(2, 7))
	require.Equal(t, "", grid.Cell(1, 0))
}

func TestParseDirWorkbook(t *testing.T) {
	mem := telemetry.NewMemoryAPI()
	assembler := Assembler{Calendar: testCalendar(t), Parser: KeywordParser{}}
	dataset, failures, err := ParseDir("testdata", assembler, mem)
	require.NoError(t, err)
	require.Empty(t, failures)
	require.Empty(t, mem.Reports(telemetry.KindWarning, ""))

	expected := Dataset{
		"03": {
			{
				Week:      3,
				Weekday:   "Monday",
				Date:      "2025-09-29",
				Section:   "第一大节 (01,02小节) 08:00-09:35",
				Name:      "高等数学",
				Classroom: "博学楼304",
			},
			{
				Week:      3,
				Weekday:   "Saturday",
				Date:      "2025-10-04",
				Section:   "第二大节 (03,04小节) 10:05-11:40",
				Name:      "Physics",
				Classroom: "Laboratory 2",
			},
			{
				Week:      3,
				Weekday:   "Sunday",
				Date:      "2025-10-05",
				Section:   "第六大节 (11,12小节) 20:45-22:20",
				Name:      "大学英语",
				Classroom: UnknownClassroom,
			},
		},
	}
	if diff := cmp.Diff(expected, dataset); diff != "" {
		t.Fatal(diff)
	}
}

func TestWriteDatasetFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data", "all_weeks_courses.json")
	require.NoError(t, WriteDatasetFile(path, Dataset{"03": {}}))

	dataset, err := ReadDatasetFile(path)
	require.NoError(t, err)
	require.Equal(t, []string{"03"}, dataset.Weeks())
}
