package storage

import "errors"

const (
	// TaskMaxRetries before setting CRITICAL_ERROR state.
	TaskMaxRetries = 10
)

// Sentinel errors shared by both backends so the service loops can branch
// without caring which driver is underneath.
var (
	ErrDuplicateTask = errors.New("duplicated task")
	ErrNoTask        = errors.New("no rows in result set")
	ErrStaleUpdate   = errors.New("zero rows affected")
)

// Config - ...
type Config struct {
	Driver      string // sqlite | postgres
	DSN         string // postgres
	Path        string // sqlite task db file
	ResultsPath string // sqlite results db file
}

// ScanRepository - the scan-task table shared by the services.
type ScanRepository interface {
	Enqueue(*Task) error
	SelectTask() (*Task, error)
	SetTaskResult(*Task) error
	RepairStaleTasks(timeout int, batchSize int) (int, error)
	CleanOldTasks(expiration int) (int, error)
}

// InitRepository picks the task storage backend by cfg.Driver.
func InitRepository(cfg Config) (ScanRepository, error) {
	if cfg.Driver == "postgres" {
		return InitPGRepository(cfg)
	}
	return InitSQLiteRepository(cfg)
}

// ResultRepository - persisted extraction results backing the dashboard.
type ResultRepository interface {
	SaveResult(*Result) error
	ListResults(exchange string, limit int) ([]*Result, error)
}
