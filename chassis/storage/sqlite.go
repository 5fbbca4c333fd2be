package storage

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	msqlite "modernc.org/sqlite"
	sqlite3lib "modernc.org/sqlite/lib"
)

const taskSchema = `
CREATE TABLE IF NOT EXISTS t_scan_task (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    action TEXT NOT NULL,
    payload TEXT NOT NULL,
    state TEXT NOT NULL,
    result TEXT NOT NULL DEFAULT '{}',
    error TEXT NOT NULL DEFAULT '{}',
    attempts INTEGER NOT NULL DEFAULT 0,
    created_dt INTEGER NOT NULL,
    updated_dt INTEGER NOT NULL,
    delayed_dt INTEGER
);
CREATE UNIQUE INDEX IF NOT EXISTS scan_task_doc_index
    ON t_scan_task(action, json_extract(payload, '$.docID'));
`

// openSQLite opens a database file with the WAL options used across the
// pipeline. In-memory paths are passed through untouched for tests.
func openSQLite(path string) (*sql.DB, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}
	dsn := path
	if !strings.HasPrefix(path, ":memory:") && !strings.HasPrefix(path, "file:") {
		dsn = filepath.Clean(path) + "?_journal_mode=WAL&_busy_timeout=5000&_synchronous=NORMAL"
	}
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	// single writer; the claim UPDATE below relies on it
	sqlDB.SetMaxOpenConns(1)
	if err := sqlDB.Ping(); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	return sqlDB, nil
}

// SQLiteRepository - scan-task table in a local database file. Used by the
// single-binary runner and single-node deployments.
type SQLiteRepository struct {
	db *sql.DB
}

// InitSQLiteRepository - ...
func InitSQLiteRepository(cfg Config) (*SQLiteRepository, error) {
	db, err := openSQLite(cfg.Path)
	if err != nil {
		return nil, err
	}
	if _, err := db.Exec(taskSchema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ensure task schema: %w", err)
	}
	return &SQLiteRepository{db: db}, nil
}

// Close ...
func (repo *SQLiteRepository) Close() error {
	return repo.db.Close()
}

func marshalMap(m map[string]string) string {
	if len(m) == 0 {
		return "{}"
	}
	bin, err := json.Marshal(m)
	if err != nil {
		return "{}"
	}
	return string(bin)
}

func unmarshalMap(raw string) map[string]string {
	m := map[string]string{}
	if raw != "" {
		_ = json.Unmarshal([]byte(raw), &m)
	}
	return m
}

// Enqueue - ...
func (repo *SQLiteRepository) Enqueue(task *Task) error {
	now := time.Now().Unix()
	query := `insert into t_scan_task(action, payload, state, created_dt, updated_dt) values (?, ?, ?, ?, ?)`
	_, err := repo.db.Exec(query, string(task.Action), marshalMap(task.Payload), string(SCHEDULED), now, now)
	if err != nil {
		var se *msqlite.Error
		if errors.As(err, &se) && se.Code() == sqlite3lib.SQLITE_CONSTRAINT_UNIQUE {
			return ErrDuplicateTask
		}
		return err
	}
	return nil
}

// SelectTask claims the oldest runnable task. SQLite has no SKIP LOCKED;
// a single UPDATE is atomic under the writer lock, which the single-writer
// pool guarantees.
func (repo *SQLiteRepository) SelectTask() (*Task, error) {
	now := time.Now().Unix()
	query := `
	update t_scan_task
	set
		state = 'ACQUIRED',
		updated_dt = ?,
		delayed_dt = null,
		attempts = attempts + 1
	where id = (
		select id from t_scan_task
		where state in ('SCHEDULED', 'ERROR')
			and (delayed_dt is null or delayed_dt < ?)
		order by id
		limit 1
	)
	returning id, action, payload, state, attempts;
	`
	var task Task
	var payload string
	err := repo.db.QueryRow(query, now, now).Scan(
		&task.ID,
		&task.Action,
		&payload,
		&task.State,
		&task.Attempts,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNoTask
		}
		return nil, err
	}
	task.Payload = unmarshalMap(payload)
	task.Payload["attempt"] = strconv.Itoa(task.Attempts) // Versioning
	return &task, nil
}

// SetTaskResult - ...
func (repo *SQLiteRepository) SetTaskResult(task *Task) error {
	now := time.Now().Unix()
	var res sql.Result
	var err error
	if len(task.Error) == 0 {
		attempt := task.Result["attempt"]
		query := `
		update t_scan_task
		set
		  state = 'SUCCESS',
		  result = ?,
		  error = '{}',
		  updated_dt = ?,
		  delayed_dt = null
		where id = ? and state = 'ACQUIRED' and attempts = ?;
		`
		res, err = repo.db.Exec(query, marshalMap(task.Result), now, task.ID, attempt)
	} else {
		attempt := task.Error["attempt"]
		query := `
		update t_scan_task
		set
		  state = CASE WHEN attempts < ? THEN 'ERROR' ELSE 'CRITICAL_ERROR' END,
		  error = ?,
		  updated_dt = ?,
		  delayed_dt = CASE WHEN attempts < ? THEN ? + 5 * attempts ELSE null END
		where id = ? and state = 'ACQUIRED' and attempts = ?;
		`
		res, err = repo.db.Exec(query, TaskMaxRetries, marshalMap(task.Error), now, TaskMaxRetries, now, task.ID, attempt)
	}
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrStaleUpdate
	}
	return nil
}

// RepairStaleTasks ...
func (repo *SQLiteRepository) RepairStaleTasks(timeout int, batchSize int) (int, error) {
	now := time.Now().Unix()
	query := `
	update t_scan_task
	set
	  state = CASE WHEN attempts + 1 < ? THEN 'ERROR' ELSE 'CRITICAL_ERROR' END,
	  updated_dt = ?,
	  delayed_dt = CASE WHEN attempts + 1 < ? THEN ? + 5 * (attempts + 1) ELSE null END,
	  attempts = attempts + 1,
	  error = '{"code": "0", "message": "stale task"}'
	where id in (
		select id from t_scan_task
		where state = 'ACQUIRED' and updated_dt < ?
		limit ?
	);
	`
	res, err := repo.db.Exec(query, TaskMaxRetries, now, TaskMaxRetries, now, now-int64(timeout), batchSize)
	if err != nil {
		return 0, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	return int(affected), nil
}

// CleanOldTasks ...
func (repo *SQLiteRepository) CleanOldTasks(expiration int) (int, error) {
	now := time.Now().Unix()
	query := `delete from t_scan_task where state = 'SUCCESS' and updated_dt < ?;`
	res, err := repo.db.Exec(query, now-int64(expiration))
	if err != nil {
		return 0, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	return int(affected), nil
}

// CountActive reports tasks still travelling through the pipeline. The
// single-binary runner polls it to detect batch completion.
func (repo *SQLiteRepository) CountActive() (int, error) {
	var n int
	err := repo.db.QueryRow(`select count(*) from t_scan_task where state in ('SCHEDULED', 'ACQUIRED', 'ERROR')`).Scan(&n)
	return n, err
}
