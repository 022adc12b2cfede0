package coursestore

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"
	"jwassist-backend/internal/schedule"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "github.com/tursodatabase/libsql-client-go/libsql"
	_ "modernc.org/sqlite"
)

//go:embed schema.sql
var Schema string

type Config struct {
	// Url is either a local sqlite file path or a remote libsql url
	// (`libsql://`, `https://`, `http://`), an auth token goes into the
	// `authToken` query parameter.
	Url string `json:"url"`
}

func isRemote(u string) bool {
	for _, prefix := range []string{"libsql://", "https://", "http://", "wss://", "ws://"} {
		if strings.HasPrefix(u, prefix) {
			return true
		}
	}
	return false
}

// Open opens the database named by the config.
func Open(config Config) (*sql.DB, error) {
	if config.Url == "" {
		return nil, fmt.Errorf("a database url was not specified")
	}
	if isRemote(config.Url) {
		return sql.Open("libsql", config.Url)
	}

	if config.Url != ":memory:" {
		err := os.MkdirAll(filepath.Dir(config.Url), 0755)
		if err != nil {
			return nil, err
		}
	}
	db, err := sql.Open("sqlite", config.Url)
	if err != nil {
		return nil, err
	}
	// sqlite allows a single writer, and every connection to :memory: is a
	// separate database.
	db.SetMaxOpenConns(1)
	if config.Url != ":memory:" {
		_, err = db.Exec("PRAGMA journal_mode=WAL")
		if err != nil {
			db.Close()
			return nil, err
		}
	}
	return db, nil
}

// Store keeps the assembled weekly dataset along with a log of export runs.
type Store struct {
	db *sql.DB
}

// NewStore creates the tables if they do not exist yet.
func NewStore(ctx context.Context, db *sql.DB) (Store, error) {
	for _, stmt := range strings.Split(Schema, ";") {
		if strings.TrimSpace(stmt) == "" {
			continue
		}
		_, err := db.ExecContext(ctx, stmt)
		if err != nil {
			return Store{}, fmt.Errorf("apply schema: %w", err)
		}
	}
	return Store{db: db}, nil
}

type Run struct {
	ID         string
	StartedAt  time.Time
	FinishedAt time.Time
	Exported   int
	Failed     int
}

func (s Store) BeginRun(ctx context.Context, startedAt time.Time) (string, error) {
	id := uuid.NewString()
	_, err := s.db.ExecContext(
		ctx,
		"insert into export_run(id, started_at) values (?, ?)",
		id, startedAt.Unix(),
	)
	if err != nil {
		return "", err
	}
	return id, nil
}

func (s Store) FinishRun(ctx context.Context, id string, finishedAt time.Time, exported, failed int) error {
	res, err := s.db.ExecContext(
		ctx,
		"update export_run set finished_at = ?, exported = ?, failed = ? where id = ?",
		finishedAt.Unix(), exported, failed, id,
	)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("unknown run %s", id)
	}
	return nil
}

// LatestRun returns the most recently started run, sql.ErrNoRows when there
// is none.
func (s Store) LatestRun(ctx context.Context) (Run, error) {
	var run Run
	var started int64
	var finished sql.NullInt64
	err := s.db.QueryRowContext(
		ctx,
		"select id, started_at, finished_at, exported, failed from export_run order by started_at desc, rowid desc limit 1",
	).Scan(&run.ID, &started, &finished, &run.Exported, &run.Failed)
	if err != nil {
		return Run{}, err
	}
	run.StartedAt = time.Unix(started, 0)
	if finished.Valid {
		run.FinishedAt = time.Unix(finished.Int64, 0)
	}
	return run, nil
}

// SaveDataset replaces the stored records of every week in the dataset,
// weeks not in the dataset are kept as they are.
func (s Store) SaveDataset(ctx context.Context, runID string, dataset schedule.Dataset) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, week := range dataset.Weeks() {
		_, err = tx.ExecContext(ctx, "delete from course_record where week = ?", week)
		if err != nil {
			return err
		}
		for seq, r := range dataset[week] {
			_, err = tx.ExecContext(
				ctx,
				`insert into course_record(run_id, week, seq, weekday, date, section, name, classroom)
				values (?, ?, ?, ?, ?, ?, ?, ?)`,
				runID, week, seq, r.Weekday, r.Date, r.Section, r.Name, r.Classroom,
			)
			if err != nil {
				return err
			}
		}
	}
	return tx.Commit()
}

// Week returns the records of a week in the order they were assembled.
func (s Store) Week(ctx context.Context, week string) ([]schedule.Record, error) {
	weekNo, err := strconv.Atoi(week)
	if err != nil {
		return nil, fmt.Errorf("invalid week %q", week)
	}

	rows, err := s.db.QueryContext(
		ctx,
		"select weekday, date, section, name, classroom from course_record where week = ? order by seq",
		schedule.WeekKey(weekNo),
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	records := []schedule.Record{}
	for rows.Next() {
		r := schedule.Record{Week: weekNo}
		err = rows.Scan(&r.Weekday, &r.Date, &r.Section, &r.Name, &r.Classroom)
		if err != nil {
			return nil, err
		}
		records = append(records, r)
	}
	return records, rows.Err()
}

// Dataset loads every stored week.
func (s Store) Dataset(ctx context.Context) (schedule.Dataset, error) {
	rows, err := s.db.QueryContext(ctx, "select distinct week from course_record order by week")
	if err != nil {
		return nil, err
	}
	var weeks []string
	for rows.Next() {
		var week string
		err = rows.Scan(&week)
		if err != nil {
			rows.Close()
			return nil, err
		}
		weeks = append(weeks, week)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	dataset := schedule.Dataset{}
	for _, week := range weeks {
		records, err := s.Week(ctx, week)
		if err != nil {
			return nil, err
		}
		dataset[week] = records
	}
	return dataset, nil
}
