package storage

import (
	"context"
	"errors"
	"strconv"

	"github.com/jackc/pgconn"
	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"
)

// PGRepository - Postgres-backed scan-task table for multi-node deployments.
type PGRepository struct {
	pool *pgxpool.Pool
}

// InitPGRepository - ...
func InitPGRepository(cfg Config) (ScanRepository, error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, err
	}
	pool, err := pgxpool.ConnectConfig(context.Background(), poolConfig)
	if err != nil {
		return nil, err
	}
	return &PGRepository{
		pool: pool,
	}, nil
}

// Enqueue - ...
func (repo *PGRepository) Enqueue(task *Task) error {
	query := `insert into t_scan_task(action, payload, state) values ($1, $2, $3)`
	_, err := repo.pool.Exec(context.Background(), query, task.Action, task.Payload, SCHEDULED)
	if err != nil {
		// unique index on (action, payload->>'docID') guards against
		// re-submitting the same filing
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return ErrDuplicateTask
		}
		return err
	}
	return nil
}

// SelectTask - ...
func (repo *PGRepository) SelectTask() (*Task, error) {
	var task Task
	query := `
	with task as (
        select id, action, payload, state, attempts
		from t_scan_task where
			state in ('SCHEDULED', 'ERROR')
			and (delayed_dt is null or delayed_dt < localtimestamp)
	    limit 1 for update skip locked
	) update t_scan_task
	set
		state = 'ACQUIRED',
		updated_dt = localtimestamp,
		delayed_dt = null,
		attempts = t_scan_task.attempts +1
	from task
	where t_scan_task.id = task.id
	returning t_scan_task.id, t_scan_task.action, t_scan_task.payload, t_scan_task.state, t_scan_task.attempts;
	`
	err := repo.pool.QueryRow(context.Background(), query).Scan(
		&task.ID,
		&task.Action,
		&task.Payload,
		&task.State,
		&task.Attempts,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNoTask
		}
		return nil, err
	}
	task.Payload["attempt"] = strconv.Itoa(task.Attempts) // Versioning
	return &task, nil
}

// SetTaskResult - ...
func (repo *PGRepository) SetTaskResult(task *Task) error {
	var tag pgconn.CommandTag
	var err error
	if len(task.Error) == 0 {
		attempt := task.Result["attempt"]
		query := `
		update t_scan_task
		set
		  state = 'SUCCESS',
		  result = $3,
		  error = '{}',
		  updated_dt = localtimestamp,
		  delayed_dt = null
		where id = $1 and state = 'ACQUIRED' and attempts = $2;
		`
		tag, err = repo.pool.Exec(context.Background(), query, task.ID, attempt, task.Result)
	} else {
		attempt := task.Error["attempt"]
		query := `
		update t_scan_task
		set
		  state = CASE WHEN attempts < $1 THEN 'ERROR' ELSE 'CRITICAL_ERROR' END,
		  error = $2,
		  updated_dt = localtimestamp,
		  delayed_dt = CASE WHEN attempts < $1 THEN localtimestamp + concat(5 * attempts, ' seconds')::INTERVAL ELSE null END
		where id = $3 and state = 'ACQUIRED' and attempts = $4;
		`
		tag, err = repo.pool.Exec(context.Background(), query, TaskMaxRetries, task.Error, task.ID, attempt)
	}

	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrStaleUpdate
	}
	return nil
}

// RepairStaleTasks ...
func (repo *PGRepository) RepairStaleTasks(timeout int, batchSize int) (int, error) {
	query := `
	with tasks as (
        select id, attempts
	    from t_scan_task where state = 'ACQUIRED' and updated_dt < localtimestamp - concat($1::int, ' seconds')::INTERVAL
	    limit $2 for update skip locked
	) update t_scan_task
	set
	  state = CASE WHEN t_scan_task.attempts + 1 < $3 THEN 'ERROR' ELSE 'CRITICAL_ERROR' END,
	  updated_dt = localtimestamp,
	  delayed_dt = CASE WHEN t_scan_task.attempts + 1 < $3 THEN localtimestamp + concat(5 * (t_scan_task.attempts +1), ' seconds')::INTERVAL ELSE null END,
	  attempts = t_scan_task.attempts +1,
	  error = '{"code": "0", "message": "stale task"}'
	from tasks
	where t_scan_task.id = tasks.id;
	`
	cmdTag, err := repo.pool.Exec(context.Background(), query, timeout, batchSize, TaskMaxRetries)
	if err != nil {
		return 0, err
	}
	return int(cmdTag.RowsAffected()), nil
}

// CleanOldTasks ...
func (repo *PGRepository) CleanOldTasks(expiration int) (int, error) {
	query := `
	delete from t_scan_task
	where
		state = 'SUCCESS' and
		updated_dt < localtimestamp - concat($1::int, ' seconds')::INTERVAL;
	`
	cmdTag, err := repo.pool.Exec(context.Background(), query, expiration)
	if err != nil {
		return 0, err
	}
	return int(cmdTag.RowsAffected()), nil
}
