// Package store handles SQLite persistence.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	sq "github.com/Masterminds/squirrel"

	"github.com/verte-zerg/amcq/internal/model"

	_ "modernc.org/sqlite" // SQLite driver.
)

// Keys of the string-valued entries.
const (
	KeyStreak   = "streak"
	KeySettings = "amcSettings"
)

var sqlBuilder = sq.StatementBuilder.PlaceholderFormat(sq.Question)

// Store wraps SQLite access for quiz state.
type Store struct {
	db *sql.DB
}

// Open opens or creates the SQLite database and applies migrations.
func Open(path string) (*Store, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	// One writer; keeps modernc from handing out a second connection mid-transaction.
	db.SetMaxOpenConns(1)
	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		if cerr := db.Close(); cerr != nil {
			// Best-effort close on migration failure.
			_ = cerr
		}
		return nil, err
	}
	return store, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS kv (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS progress (
			problem_id TEXT PRIMARY KEY,
			correct INTEGER NOT NULL,
			updated_at TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS test_sessions (
			id TEXT PRIMARY KEY,
			level TEXT NOT NULL,
			score REAL NOT NULL,
			max_score REAL NOT NULL,
			started_at TEXT NOT NULL,
			ended_at TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS test_results (
			session_id TEXT NOT NULL,
			number INTEGER NOT NULL,
			problem_id TEXT NOT NULL,
			answer TEXT NOT NULL,
			correct_answer TEXT NOT NULL,
			correct INTEGER NOT NULL,
			PRIMARY KEY (session_id, number)
		);`,
		`CREATE INDEX IF NOT EXISTS idx_test_sessions_ended_at ON test_sessions(ended_at);`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

// GetString returns the value stored under key and whether it exists.
func (s *Store) GetString(ctx context.Context, key string) (string, bool, error) {
	var value string
	err := s.db.QueryRowContext(ctx, `SELECT value FROM kv WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return value, true, nil
}

// SetString stores value under key, replacing any previous value.
func (s *Store) SetString(ctx context.Context, key, value string) error {
	query, args, err := sqlBuilder.Insert("kv").
		Columns("key", "value").
		Values(key, value).
		Suffix("ON CONFLICT(key) DO UPDATE SET value = excluded.value").
		ToSql()
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, query, args...)
	return err
}

// LoadSettings returns the stored settings, or the defaults when none were saved.
// A corrupt entry yields the defaults together with the decode error.
func (s *Store) LoadSettings(ctx context.Context) (model.Settings, error) {
	raw, ok, err := s.GetString(ctx, KeySettings)
	if err != nil {
		return model.DefaultSettings(), err
	}
	if !ok {
		return model.DefaultSettings(), nil
	}
	var settings model.Settings
	if err := json.Unmarshal([]byte(raw), &settings); err != nil {
		return model.DefaultSettings(), fmt.Errorf("failed to decode settings: %w", err)
	}
	return settings.Normalize(), nil
}

// SaveSettings normalizes and stores settings, returning what was written.
func (s *Store) SaveSettings(ctx context.Context, settings model.Settings) (model.Settings, error) {
	settings = settings.Normalize()
	data, err := json.Marshal(settings)
	if err != nil {
		return settings, fmt.Errorf("failed to encode settings: %w", err)
	}
	return settings, s.SetString(ctx, KeySettings, string(data))
}

// Streak returns the stored streak, 0 when absent.
func (s *Store) Streak(ctx context.Context) (int, error) {
	raw, ok, err := s.GetString(ctx, KeyStreak)
	if err != nil || !ok {
		return 0, err
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("invalid stored streak %q", raw)
	}
	return n, nil
}

// SetStreak stores the streak.
func (s *Store) SetStreak(ctx context.Context, n int) error {
	return s.SetString(ctx, KeyStreak, strconv.Itoa(n))
}

// SetProgress records the latest outcome for a problem, overwriting any earlier one.
func (s *Store) SetProgress(ctx context.Context, problemID string, correct bool) error {
	query, args, err := sqlBuilder.Insert("progress").
		Columns("problem_id", "correct", "updated_at").
		Values(problemID, boolToInt(correct), time.Now().UTC().Format(time.RFC3339Nano)).
		Suffix("ON CONFLICT(problem_id) DO UPDATE SET correct = excluded.correct, updated_at = excluded.updated_at").
		ToSql()
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, query, args...)
	return err
}

// Progress returns the whole progress map.
func (s *Store) Progress(ctx context.Context) (map[string]bool, error) {
	entries, err := s.ListProgress(ctx, model.ProgressFilter{})
	if err != nil {
		return nil, err
	}
	out := make(map[string]bool, len(entries))
	for _, e := range entries {
		out[e.ProblemID] = e.Correct
	}
	return out, nil
}

// ListProgress returns progress entries ordered by problem id.
func (s *Store) ListProgress(ctx context.Context, filter model.ProgressFilter) ([]model.ProgressEntry, error) {
	query := sqlBuilder.Select("problem_id", "correct", "updated_at").From("progress")
	if filter.Year > 0 {
		prefix := strconv.Itoa(filter.Year) + "_"
		query = query.Where(sq.Expr("substr(problem_id, 1, ?) = ?", len(prefix), prefix))
	}
	if filter.Level != "" {
		query = query.Where(sq.Expr("instr(problem_id, ?) > 0", levelToken(filter.Level)))
	}
	query = query.OrderBy("problem_id ASC")

	stmt, args, err := query.ToSql()
	if err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx, stmt, args...)
	if err != nil {
		return nil, err
	}
	defer func() {
		if cerr := rows.Close(); cerr != nil {
			// Best-effort rows close.
			_ = cerr
		}
	}()

	var result []model.ProgressEntry
	for rows.Next() {
		var entry model.ProgressEntry
		var correct int
		var updatedAt string
		if err := rows.Scan(&entry.ProblemID, &correct, &updatedAt); err != nil {
			return nil, err
		}
		parsed, err := time.Parse(time.RFC3339Nano, updatedAt)
		if err != nil {
			return nil, err
		}
		entry.Correct = correct != 0
		entry.UpdatedAt = parsed
		result = append(result, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

// ResetProgress deletes every progress entry.
func (s *Store) ResetProgress(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM progress`)
	return err
}

// InsertTest stores a finished test and its per-problem results.
func (s *Store) InsertTest(ctx context.Context, rec model.TestRecord) (err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			if rerr := tx.Rollback(); rerr != nil {
				// Best-effort rollback.
				_ = rerr
			}
		}
	}()

	query, args, err := sqlBuilder.Insert("test_sessions").
		Columns("id", "level", "score", "max_score", "started_at", "ended_at").
		Values(rec.ID, string(rec.Level), rec.Score, rec.MaxScore,
			rec.StartedAt.UTC().Format(time.RFC3339Nano), rec.EndedAt.UTC().Format(time.RFC3339Nano)).
		ToSql()
	if err != nil {
		return err
	}
	if _, err = tx.ExecContext(ctx, query, args...); err != nil {
		return err
	}

	if len(rec.Results) > 0 {
		insert := sqlBuilder.Insert("test_results").
			Columns("session_id", "number", "problem_id", "answer", "correct_answer", "correct")
		for _, r := range rec.Results {
			insert = insert.Values(rec.ID, r.Number, r.ProblemID, r.Answer, r.CorrectAnswer, boolToInt(r.Correct))
		}
		query, args, err = insert.ToSql()
		if err != nil {
			return err
		}
		if _, err = tx.ExecContext(ctx, query, args...); err != nil {
			return err
		}
	}

	return tx.Commit()
}

// ListTests returns finished tests ordered oldest first, with their results.
func (s *Store) ListTests(ctx context.Context, filter model.TestFilter) ([]model.TestRecord, error) {
	query := sqlBuilder.Select("id", "level", "score", "max_score", "started_at", "ended_at").
		From("test_sessions").
		OrderBy("ended_at DESC")
	if filter.Level != "" {
		query = query.Where(sq.Eq{"level": string(filter.Level)})
	}
	if filter.Last > 0 {
		query = query.Limit(uint64(filter.Last))
	}
	stmt, args, err := query.ToSql()
	if err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx, stmt, args...)
	if err != nil {
		return nil, err
	}
	defer func() {
		if cerr := rows.Close(); cerr != nil {
			// Best-effort rows close.
			_ = cerr
		}
	}()

	var records []model.TestRecord
	for rows.Next() {
		var rec model.TestRecord
		var level, startedAt, endedAt string
		if err := rows.Scan(&rec.ID, &level, &rec.Score, &rec.MaxScore, &startedAt, &endedAt); err != nil {
			return nil, err
		}
		rec.Level = model.Level(level)
		if rec.StartedAt, err = time.Parse(time.RFC3339Nano, startedAt); err != nil {
			return nil, err
		}
		if rec.EndedAt, err = time.Parse(time.RFC3339Nano, endedAt); err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	for i, j := 0, len(records)-1; i < j; i, j = i+1, j-1 {
		records[i], records[j] = records[j], records[i]
	}
	if err := s.attachResults(ctx, records); err != nil {
		return nil, err
	}
	return records, nil
}

func (s *Store) attachResults(ctx context.Context, records []model.TestRecord) error {
	if len(records) == 0 {
		return nil
	}
	ids := make([]string, len(records))
	index := make(map[string]int, len(records))
	for i, rec := range records {
		ids[i] = rec.ID
		index[rec.ID] = i
	}
	stmt, args, err := sqlBuilder.Select("session_id", "number", "problem_id", "answer", "correct_answer", "correct").
		From("test_results").
		Where(sq.Eq{"session_id": ids}).
		OrderBy("session_id", "number").
		ToSql()
	if err != nil {
		return err
	}
	rows, err := s.db.QueryContext(ctx, stmt, args...)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := rows.Close(); cerr != nil {
			// Best-effort rows close.
			_ = cerr
		}
	}()
	for rows.Next() {
		var sessionID string
		var r model.TestResult
		var correct int
		if err := rows.Scan(&sessionID, &r.Number, &r.ProblemID, &r.Answer, &r.CorrectAnswer, &correct); err != nil {
			return err
		}
		r.Correct = correct != 0
		i := index[sessionID]
		records[i].Results = append(records[i].Results, r)
	}
	return rows.Err()
}

func levelToken(l model.Level) string {
	if l.IsAIME() {
		return "_AIME_"
	}
	// "_AMC_10" matches 10, 10A and 10B but never 12.
	return "_AMC_" + string(l)[len("AMC"):]
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
