package storage

import (
	"time"
)

// State - submitted record's possible states
type State string

const (
	SCHEDULED      State = "SCHEDULED"
	ACQUIRED       State = "ACQUIRED"
	SUCCESS        State = "SUCCESS"
	ERROR          State = "ERROR"
	CRITICAL_ERROR State = "CRITICAL_ERROR"
)

// Action - supported scan actions
type Action string

const (
	SCAN_ASX Action = "SCAN_ASX"
	SCAN_SEC Action = "SCAN_SEC"
)

// ActionForExchange maps an exchange name onto the scan action handling it.
func ActionForExchange(exchange string) Action {
	if exchange == "SEC" {
		return SCAN_SEC
	}
	return SCAN_ASX
}

// Task - one filing scan travelling through the pipeline.
type Task struct {
	ID        int
	Action    Action
	Payload   map[string]string
	CreatedDt time.Time
	UpdatedDt time.Time
	State     State
	Result    map[string]string
	Error     map[string]string
	Attempts  int
}
