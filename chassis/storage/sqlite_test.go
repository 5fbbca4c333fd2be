package storage

import (
	"errors"
	"strconv"
	"testing"
)

func newTaskRepo(t *testing.T) *SQLiteRepository {
	t.Helper()
	repo, err := InitSQLiteRepository(Config{Path: t.TempDir() + "/tasks.db"})
	if err != nil {
		t.Fatalf("InitSQLiteRepository: %v", err)
	}
	t.Cleanup(func() { repo.Close() })
	return repo
}

func scanTask(docID string) *Task {
	return &Task{
		Action: SCAN_ASX,
		Payload: map[string]string{
			"docID":      docID,
			"fileURL":    "https://announcements.asx.com.au/asxpdf/x.pdf",
			"exchange":   "ASX",
			"filingType": "quarterly",
		},
		State:  SCHEDULED,
		Result: map[string]string{},
	}
}

func TestEnqueueAndSelect(t *testing.T) {
	repo := newTaskRepo(t)
	if err := repo.Enqueue(scanTask("BHP2024Q")); err != nil {
		t.Fatalf("Enqueue: %v", err)
	}

	task, err := repo.SelectTask()
	if err != nil {
		t.Fatalf("SelectTask: %v", err)
	}
	if task.State != ACQUIRED {
		t.Errorf("state = %s, want ACQUIRED", task.State)
	}
	if task.Attempts != 1 {
		t.Errorf("attempts = %d, want 1", task.Attempts)
	}
	if task.Payload["attempt"] != "1" {
		t.Errorf("payload attempt = %q, want 1", task.Payload["attempt"])
	}
	if task.Payload["docID"] != "BHP2024Q" {
		t.Errorf("docID = %q", task.Payload["docID"])
	}

	// no runnable task remains
	if _, err := repo.SelectTask(); !errors.Is(err, ErrNoTask) {
		t.Errorf("second select err = %v, want ErrNoTask", err)
	}
}

func TestEnqueueDuplicate(t *testing.T) {
	repo := newTaskRepo(t)
	if err := repo.Enqueue(scanTask("BHP2024Q")); err != nil {
		t.Fatalf("first enqueue: %v", err)
	}
	if err := repo.Enqueue(scanTask("BHP2024Q")); !errors.Is(err, ErrDuplicateTask) {
		t.Errorf("duplicate enqueue err = %v, want ErrDuplicateTask", err)
	}
	// same doc under a different action is a separate task
	other := scanTask("BHP2024Q")
	other.Action = SCAN_SEC
	if err := repo.Enqueue(other); err != nil {
		t.Errorf("different action enqueue: %v", err)
	}
}

func TestSetTaskResultSuccess(t *testing.T) {
	repo := newTaskRepo(t)
	if err := repo.Enqueue(scanTask("BHP2024Q")); err != nil {
		t.Fatal(err)
	}
	task, err := repo.SelectTask()
	if err != nil {
		t.Fatal(err)
	}

	task.Result = map[string]string{"status": "ok", "count": "2", "attempt": task.Payload["attempt"]}
	task.Error = nil
	if err := repo.SetTaskResult(task); err != nil {
		t.Fatalf("SetTaskResult: %v", err)
	}

	n, err := repo.CountActive()
	if err != nil {
		t.Fatal(err)
	}
	if n != 0 {
		t.Errorf("active = %d, want 0", n)
	}
}

func TestSetTaskResultErrorRetries(t *testing.T) {
	repo := newTaskRepo(t)
	if err := repo.Enqueue(scanTask("BHP2024Q")); err != nil {
		t.Fatal(err)
	}
	task, err := repo.SelectTask()
	if err != nil {
		t.Fatal(err)
	}

	task.Error = map[string]string{"code": "1", "message": "download failed", "attempt": task.Payload["attempt"]}
	if err := repo.SetTaskResult(task); err != nil {
		t.Fatalf("SetTaskResult: %v", err)
	}

	// errored task stays active, delayed for backoff
	n, err := repo.CountActive()
	if err != nil {
		t.Fatal(err)
	}
	if n != 1 {
		t.Errorf("active = %d, want 1", n)
	}
	// still delayed, not yet claimable
	if _, err := repo.SelectTask(); !errors.Is(err, ErrNoTask) {
		t.Errorf("select during backoff err = %v, want ErrNoTask", err)
	}
}

func TestSetTaskResultStaleAttempt(t *testing.T) {
	repo := newTaskRepo(t)
	if err := repo.Enqueue(scanTask("BHP2024Q")); err != nil {
		t.Fatal(err)
	}
	task, err := repo.SelectTask()
	if err != nil {
		t.Fatal(err)
	}
	task.Result = map[string]string{"status": "ok", "attempt": strconv.Itoa(task.Attempts + 1)}
	if err := repo.SetTaskResult(task); !errors.Is(err, ErrStaleUpdate) {
		t.Errorf("stale result err = %v, want ErrStaleUpdate", err)
	}
}

func TestRepairStaleTasks(t *testing.T) {
	repo := newTaskRepo(t)
	if err := repo.Enqueue(scanTask("BHP2024Q")); err != nil {
		t.Fatal(err)
	}
	if _, err := repo.SelectTask(); err != nil {
		t.Fatal(err)
	}

	// timeout of -1s makes the just-acquired task count as stale
	repaired, err := repo.RepairStaleTasks(-1, 10)
	if err != nil {
		t.Fatalf("RepairStaleTasks: %v", err)
	}
	if repaired != 1 {
		t.Errorf("repaired = %d, want 1", repaired)
	}
}

func TestCleanOldTasks(t *testing.T) {
	repo := newTaskRepo(t)
	if err := repo.Enqueue(scanTask("BHP2024Q")); err != nil {
		t.Fatal(err)
	}
	task, err := repo.SelectTask()
	if err != nil {
		t.Fatal(err)
	}
	task.Result = map[string]string{"status": "ok", "attempt": task.Payload["attempt"]}
	if err := repo.SetTaskResult(task); err != nil {
		t.Fatal(err)
	}

	cleaned, err := repo.CleanOldTasks(-1)
	if err != nil {
		t.Fatalf("CleanOldTasks: %v", err)
	}
	if cleaned != 1 {
		t.Errorf("cleaned = %d, want 1", cleaned)
	}
}

func TestResultsRoundTrip(t *testing.T) {
	repo, err := InitSQLiteResults(t.TempDir() + "/results.db")
	if err != nil {
		t.Fatalf("InitSQLiteResults: %v", err)
	}
	defer repo.Close()

	rows := []*Result{
		{ID: "a1", DocID: "BHP2024Q", Exchange: "ASX", FilingType: "quarterly", CreatedAt: "2026-08-01T00:00:00Z", OutputJSON: `{"items":[]}`},
		{ID: "b2", DocID: "0001227500", Exchange: "SEC", FilingType: "SEC_10Q", CreatedAt: "2026-08-02T00:00:00Z", OutputJSON: `{"items":[]}`},
	}
	for _, r := range rows {
		if err := repo.SaveResult(r); err != nil {
			t.Fatalf("SaveResult: %v", err)
		}
	}

	all, err := repo.ListResults("", 0)
	if err != nil {
		t.Fatalf("ListResults: %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("len = %d, want 2", len(all))
	}
	if all[0].ID != "b2" {
		t.Errorf("newest first: got %s", all[0].ID)
	}

	asxOnly, err := repo.ListResults("ASX", 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(asxOnly) != 1 || asxOnly[0].DocID != "BHP2024Q" {
		t.Errorf("asx filter returned %+v", asxOnly)
	}

	// upsert replaces
	rows[0].OutputJSON = `{"items":[{"text":"x"}]}`
	if err := repo.SaveResult(rows[0]); err != nil {
		t.Fatal(err)
	}
	again, err := repo.ListResults("ASX", 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(again) != 1 || again[0].OutputJSON != rows[0].OutputJSON {
		t.Errorf("upsert did not replace: %+v", again)
	}
}
