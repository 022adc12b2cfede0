package coursestore

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"jwassist-backend/internal/components/chrono"
	"jwassist-backend/internal/schedule"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) Store {
	t.Helper()
	db, err := Open(Config{Url: ":memory:"})
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	store, err := NewStore(context.Background(), db)
	require.NoError(t, err)
	return store
}

func record(week int, weekday, name string) schedule.Record {
	return schedule.Record{
		Week:      week,
		Weekday:   weekday,
		Date:      "2025-09-15",
		Section:   "第一大节",
		Name:      name,
		Classroom: schedule.UnknownClassroom,
	}
}

func TestStore(t *testing.T) {
	store := newTestStore(t)
	ctx, cancel := context.WithTimeout(context.Background(), time.Second*5)
	defer cancel()

	{
		records, err := store.Week(ctx, "01")
		require.NoError(t, err)
		require.Empty(t, records)
	}

	started := time.Date(2025, 9, 15, 7, 0, 0, 0, chrono.CST)
	runID, err := store.BeginRun(ctx, started)
	require.NoError(t, err)

	first := schedule.Dataset{
		"01": {record(1, "Monday", "高等数学"), record(1, "Tuesday", "大学英语")},
		"02": {record(2, "Friday", "线性代数")},
	}
	require.NoError(t, store.SaveDataset(ctx, runID, first))
	require.NoError(t, store.FinishRun(ctx, runID, started.Add(time.Minute), 2, 0))

	{
		records, err := store.Week(ctx, "1")
		require.NoError(t, err)
		if diff := cmp.Diff(first["01"], records); diff != "" {
			t.Fatal(diff)
		}
	}

	// saving again replaces only the weeks that are present
	secondRun, err := store.BeginRun(ctx, started.Add(time.Hour))
	require.NoError(t, err)
	require.NoError(t, store.SaveDataset(ctx, secondRun, schedule.Dataset{
		"01": {record(1, "Sunday", "体育")},
	}))

	dataset, err := store.Dataset(ctx)
	require.NoError(t, err)
	expected := schedule.Dataset{
		"01": {record(1, "Sunday", "体育")},
		"02": first["02"],
	}
	if diff := cmp.Diff(expected, dataset); diff != "" {
		t.Fatal(diff)
	}

	latest, err := store.LatestRun(ctx)
	require.NoError(t, err)
	require.Equal(t, secondRun, latest.ID)
	require.True(t, latest.FinishedAt.IsZero())

	require.Error(t, store.FinishRun(ctx, "missing", started, 0, 0))
}

func TestOpenFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "courses.db")
	db, err := Open(Config{Url: path})
	require.NoError(t, err)
	defer db.Close()

	_, err = NewStore(context.Background(), db)
	require.NoError(t, err)

	_, err = Open(Config{})
	require.Error(t, err)
}
