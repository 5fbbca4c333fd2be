package storage

import (
	"database/sql"
	"fmt"
)

const resultsSchema = `
CREATE TABLE IF NOT EXISTS results (
    id TEXT PRIMARY KEY,
    doc_id TEXT,
    exchange TEXT,
    filing_type TEXT,
    filing_date TEXT,
    source_file TEXT,
    output_json TEXT,
    created_at TEXT
);
CREATE INDEX IF NOT EXISTS results_created_index ON results(created_at);
`

// SQLiteResults - the processed-results database file read by the dashboard.
type SQLiteResults struct {
	db *sql.DB
}

// InitSQLiteResults - ...
func InitSQLiteResults(path string) (*SQLiteResults, error) {
	db, err := openSQLite(path)
	if err != nil {
		return nil, err
	}
	if _, err := db.Exec(resultsSchema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ensure results schema: %w", err)
	}
	return &SQLiteResults{db: db}, nil
}

// Close ...
func (repo *SQLiteResults) Close() error {
	return repo.db.Close()
}

// SaveResult upserts by record id; re-running a scan overwrites the
// previous row for the same record.
func (repo *SQLiteResults) SaveResult(res *Result) error {
	query := `
	insert or replace into results
	(id, doc_id, exchange, filing_type, filing_date, source_file, output_json, created_at)
	values (?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err := repo.db.Exec(query,
		res.ID,
		res.DocID,
		res.Exchange,
		res.FilingType,
		res.FilingDate,
		res.SourceFile,
		res.OutputJSON,
		res.CreatedAt,
	)
	return err
}

// ListResults returns newest-first rows, optionally filtered by exchange.
func (repo *SQLiteResults) ListResults(exchange string, limit int) ([]*Result, error) {
	if limit <= 0 {
		limit = 500
	}
	query := `
	select id, doc_id, exchange, filing_type, filing_date, source_file, output_json, created_at
	from results
	`
	args := []interface{}{}
	if exchange != "" {
		query += ` where exchange = ?`
		args = append(args, exchange)
	}
	query += ` order by created_at desc limit ?`
	args = append(args, limit)

	rows, err := repo.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*Result
	for rows.Next() {
		res := &Result{}
		err := rows.Scan(
			&res.ID,
			&res.DocID,
			&res.Exchange,
			&res.FilingType,
			&res.FilingDate,
			&res.SourceFile,
			&res.OutputJSON,
			&res.CreatedAt,
		)
		if err != nil {
			return nil, err
		}
		out = append(out, res)
	}
	return out, rows.Err()
}
