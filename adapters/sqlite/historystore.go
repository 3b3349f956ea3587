package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/artpar/pipekit/core/value"
	"github.com/artpar/pipekit/domain/evaluation"
	"github.com/artpar/pipekit/ports"
)

// timeLayout sorts lexicographically in chronological order.
const timeLayout = "2006-01-02 15:04:05.000000000"

// HistoryStore implements ports.HistoryStore using SQLite.
type HistoryStore struct {
	db *DB
}

// NewHistoryStore creates a new SQLite history store.
func NewHistoryStore(db *DB) *HistoryStore {
	return &HistoryStore{db: db}
}

// Record stores one evaluation. Recording an existing ID replaces it.
func (s *HistoryStore) Record(ctx context.Context, r evaluation.Record) error {
	input, err := json.Marshal(r.Input)
	if err != nil {
		return fmt.Errorf("encode input: %w", err)
	}
	output, err := json.Marshal(r.Output)
	if err != nil {
		return fmt.Errorf("encode output: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO evaluations (
			id, pipeline, status, input, output, error, error_kind, started_at, duration_ns
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, r.ID, r.Pipeline, string(r.Status), string(input), string(output),
		r.Error, r.ErrorKind, formatTime(r.StartedAt), int64(r.Duration))
	return err
}

const selectRecord = `
	SELECT id, pipeline, status, input, output, error, error_kind, started_at, duration_ns
	FROM evaluations
`

// Get retrieves an evaluation by ID.
func (s *HistoryStore) Get(ctx context.Context, id string) (evaluation.Record, error) {
	row := s.db.QueryRowContext(ctx, selectRecord+" WHERE id = ?", id)
	r, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return evaluation.Record{}, ports.ErrNotFound
	}
	return r, err
}

// List returns evaluations matching the filter, newest first.
func (s *HistoryStore) List(ctx context.Context, f evaluation.Filter) ([]evaluation.Record, error) {
	where, args := whereClause(f)
	args = append(args, f.EffectiveLimit())
	rows, err := s.db.QueryContext(ctx, selectRecord+where+" ORDER BY started_at DESC, id DESC LIMIT ?", args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []evaluation.Record
	for rows.Next() {
		r, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// Summaries aggregates evaluations matching the filter per pipeline.
func (s *HistoryStore) Summaries(ctx context.Context, f evaluation.Filter) ([]evaluation.Summary, error) {
	where, args := whereClause(f)
	rows, err := s.db.QueryContext(ctx, `
		SELECT
			pipeline,
			COUNT(*) as count,
			COALESCE(SUM(CASE WHEN status = 'failed' THEN 1 ELSE 0 END), 0) as error_count,
			CAST(COALESCE(AVG(duration_ns), 0) AS INTEGER) as avg_duration,
			COALESCE(MAX(duration_ns), 0) as max_duration,
			MIN(started_at) as first_started,
			MAX(started_at) as last_started
		FROM evaluations`+where+`
		GROUP BY pipeline
		ORDER BY pipeline
	`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []evaluation.Summary
	for rows.Next() {
		var (
			sum           evaluation.Summary
			avg, longest  int64
			first, latest string
		)
		if err := rows.Scan(&sum.Pipeline, &sum.Count, &sum.ErrorCount, &avg, &longest, &first, &latest); err != nil {
			return nil, err
		}
		sum.AvgDuration = time.Duration(avg)
		sum.MaxDuration = time.Duration(longest)
		if sum.FirstStarted, err = parseTime(first); err != nil {
			return nil, err
		}
		if sum.LastStarted, err = parseTime(latest); err != nil {
			return nil, err
		}
		out = append(out, sum)
	}
	return out, rows.Err()
}

func whereClause(f evaluation.Filter) (string, []any) {
	var (
		conds []string
		args  []any
	)
	if f.Pipeline != "" {
		conds = append(conds, "pipeline = ?")
		args = append(args, f.Pipeline)
	}
	if f.Status != "" {
		conds = append(conds, "status = ?")
		args = append(args, string(f.Status))
	}
	if !f.Since.IsZero() {
		conds = append(conds, "started_at >= ?")
		args = append(args, formatTime(f.Since))
	}
	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRecord(row scanner) (evaluation.Record, error) {
	var (
		r                     evaluation.Record
		status, input, output string
		started               string
		duration              int64
	)
	if err := row.Scan(&r.ID, &r.Pipeline, &status, &input, &output, &r.Error, &r.ErrorKind, &started, &duration); err != nil {
		return evaluation.Record{}, err
	}
	r.Status = evaluation.Status(status)
	r.Duration = time.Duration(duration)

	var err error
	if r.StartedAt, err = parseTime(started); err != nil {
		return evaluation.Record{}, err
	}
	if r.Input, err = decodeValue(input); err != nil {
		return evaluation.Record{}, fmt.Errorf("decode input of %s: %w", r.ID, err)
	}
	if r.Output, err = decodeValue(output); err != nil {
		return evaluation.Record{}, fmt.Errorf("decode output of %s: %w", r.ID, err)
	}
	return r, nil
}

func decodeValue(data string) (value.Value, error) {
	var v value.Value
	if err := json.Unmarshal([]byte(data), &v); err != nil {
		return value.Null(), err
	}
	return v, nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) (time.Time, error) {
	t, err := time.ParseInLocation(timeLayout, s, time.UTC)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse timestamp %q: %w", s, err)
	}
	return t, nil
}

var _ ports.HistoryStore = (*HistoryStore)(nil)
