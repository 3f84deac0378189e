package out

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	reviewdto "komekome/internal/modules/review/dto"
	"komekome/internal/modules/stats/dto"
	statsout "komekome/internal/modules/stats/port/out"

	_ "modernc.org/sqlite"
)

type SQLiteAttemptIndex struct {
	db *sql.DB
}

func NewSQLiteAttemptIndex(dbPath string) (statsout.AttemptIndex, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("create db dir: %w", err)
	}
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	index := &SQLiteAttemptIndex{db: db}
	if err := index.ensureSchema(context.Background()); err != nil {
		return nil, err
	}
	return index, nil
}

func (s *SQLiteAttemptIndex) ensureSchema(ctx context.Context) error {
	const ddl = `
CREATE TABLE IF NOT EXISTS attempts (
  id TEXT PRIMARY KEY,
  item_id TEXT NOT NULL,
  date TEXT NOT NULL,
  result TEXT NOT NULL,
  elapsed_seconds INTEGER NOT NULL,
  kome_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_attempts_date ON attempts(date);
CREATE TABLE IF NOT EXISTS attempt_mistakes (
  attempt_id TEXT NOT NULL,
  tag TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_attempt_mistakes_attempt ON attempt_mistakes(attempt_id);
`
	if _, err := s.db.ExecContext(ctx, ddl); err != nil {
		return fmt.Errorf("create attempts schema: %w", err)
	}
	return nil
}

func (s *SQLiteAttemptIndex) Rebuild(ctx context.Context, records []reviewdto.AttemptRecord) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin rebuild: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM attempts`); err != nil {
		return fmt.Errorf("reset attempts: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM attempt_mistakes`); err != nil {
		return fmt.Errorf("reset attempt mistakes: %w", err)
	}

	const insertAttempt = `
INSERT INTO attempts (id, item_id, date, result, elapsed_seconds, kome_at)
VALUES (?, ?, ?, ?, ?, ?);
`
	const insertMistake = `INSERT INTO attempt_mistakes (attempt_id, tag) VALUES (?, ?);`

	for _, record := range records {
		if _, err := tx.ExecContext(ctx, insertAttempt,
			record.ID,
			record.ItemID,
			record.Date,
			record.Result,
			record.ElapsedSeconds,
			record.KomeTotalAtTime,
		); err != nil {
			return fmt.Errorf("insert attempt %s: %w", record.ID, err)
		}
		for _, tag := range record.Mistakes {
			if _, err := tx.ExecContext(ctx, insertMistake, record.ID, tag); err != nil {
				return fmt.Errorf("insert mistake tag for %s: %w", record.ID, err)
			}
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit rebuild: %w", err)
	}
	return nil
}

func (s *SQLiteAttemptIndex) Totals(ctx context.Context, from string) (dto.Totals, error) {
	query := `
SELECT COUNT(*),
       COALESCE(SUM(CASE WHEN result = 'correct' THEN 1 ELSE 0 END), 0),
       COALESCE(SUM(elapsed_seconds), 0),
       COUNT(DISTINCT item_id)
FROM attempts
`
	args := []any{}
	if from != "" {
		query += `WHERE date >= ?`
		args = append(args, from)
	}
	var totals dto.Totals
	row := s.db.QueryRowContext(ctx, query, args...)
	if err := row.Scan(&totals.Total, &totals.Correct, &totals.StudySeconds, &totals.UniqueItems); err != nil {
		return dto.Totals{}, fmt.Errorf("query totals: %w", err)
	}
	return totals, nil
}

func (s *SQLiteAttemptIndex) DailyCounts(ctx context.Context, from string) ([]dto.DailyPoint, error) {
	query := `
SELECT date,
       COUNT(*),
       COALESCE(SUM(CASE WHEN result = 'correct' THEN 1 ELSE 0 END), 0),
       COALESCE(SUM(elapsed_seconds), 0)
FROM attempts
`
	args := []any{}
	if from != "" {
		query += `WHERE date >= ?
`
		args = append(args, from)
	}
	query += `GROUP BY date ORDER BY date`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query daily counts: %w", err)
	}
	defer rows.Close()

	var points []dto.DailyPoint
	for rows.Next() {
		var point dto.DailyPoint
		if err := rows.Scan(&point.Date, &point.Total, &point.Correct, &point.StudySeconds); err != nil {
			return nil, fmt.Errorf("scan daily point: %w", err)
		}
		point.Incorrect = point.Total - point.Correct
		points = append(points, point)
	}
	return points, rows.Err()
}

func (s *SQLiteAttemptIndex) WeakItems(ctx context.Context, from string, limit int) ([]dto.WeakItem, error) {
	query := `
SELECT item_id, COUNT(*) AS wrong
FROM attempts
WHERE result = 'incorrect'
`
	args := []any{}
	if from != "" {
		query += `AND date >= ?
`
		args = append(args, from)
	}
	query += `GROUP BY item_id ORDER BY wrong DESC, item_id LIMIT ?`
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query weak items: %w", err)
	}
	defer rows.Close()

	var items []dto.WeakItem
	for rows.Next() {
		var item dto.WeakItem
		if err := rows.Scan(&item.ItemID, &item.Wrong); err != nil {
			return nil, fmt.Errorf("scan weak item: %w", err)
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

func (s *SQLiteAttemptIndex) MistakeCounts(ctx context.Context, from string) ([]dto.TagCount, error) {
	query := `
SELECT m.tag, COUNT(*) AS n
FROM attempt_mistakes m
JOIN attempts a ON a.id = m.attempt_id
`
	args := []any{}
	if from != "" {
		query += `WHERE a.date >= ?
`
		args = append(args, from)
	}
	query += `GROUP BY m.tag ORDER BY n DESC, m.tag`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query mistake counts: %w", err)
	}
	defer rows.Close()

	var counts []dto.TagCount
	for rows.Next() {
		var count dto.TagCount
		if err := rows.Scan(&count.Tag, &count.Count); err != nil {
			return nil, fmt.Errorf("scan mistake count: %w", err)
		}
		counts = append(counts, count)
	}
	return counts, rows.Err()
}

func (s *SQLiteAttemptIndex) PracticeDates(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT DISTINCT date FROM attempts ORDER BY date DESC`)
	if err != nil {
		return nil, fmt.Errorf("query practice dates: %w", err)
	}
	defer rows.Close()

	var dates []string
	for rows.Next() {
		var date string
		if err := rows.Scan(&date); err != nil {
			return nil, fmt.Errorf("scan practice date: %w", err)
		}
		dates = append(dates, date)
	}
	return dates, rows.Err()
}

func (s *SQLiteAttemptIndex) AttemptedItemCount(ctx context.Context) (int, error) {
	var count int
	row := s.db.QueryRowContext(ctx, `SELECT COUNT(DISTINCT item_id) FROM attempts`)
	if err := row.Scan(&count); err != nil {
		return 0, fmt.Errorf("query attempted item count: %w", err)
	}
	return count, nil
}

func (s *SQLiteAttemptIndex) Close() error {
	return s.db.Close()
}
