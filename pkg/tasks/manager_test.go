package tasks

import (
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/ezchat/ezchat/pkg/models"
)

type memoryStore struct {
	docs  map[string][]string
	loads int
	saves int
	fail  bool
}

func newMemoryStore() *memoryStore {
	return &memoryStore{docs: make(map[string][]string)}
}

func (s *memoryStore) LoadTasks(userID, date string) ([]string, error) {
	if s.fail {
		return nil, errors.New("connection refused")
	}
	s.loads++
	tasks, ok := s.docs[userID+"|"+date]
	if !ok {
		return []string{}, nil
	}
	out := make([]string, len(tasks))
	copy(out, tasks)
	return out, nil
}

func (s *memoryStore) SaveTasks(userID, date string, tasks []string) error {
	if s.fail {
		return errors.New("connection refused")
	}
	s.saves++
	doc := make([]string, len(tasks))
	copy(doc, tasks)
	s.docs[userID+"|"+date] = doc
	return nil
}

func newTestManager(t *testing.T) (*Manager, *memoryStore) {
	t.Helper()
	store := newMemoryStore()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewManager(store, logger), store
}

func TestAddTaskAppendsInOrder(t *testing.T) {
	m, store := newTestManager(t)

	if _, err := m.AddTask("u1", "2025-06-01", "buy milk"); err != nil {
		t.Fatalf("add task: %v", err)
	}
	tasks, err := m.AddTask("u1", "2025-06-01", "call mom")
	if err != nil {
		t.Fatalf("add task: %v", err)
	}

	if len(tasks) != 2 || tasks[0] != "buy milk" || tasks[1] != "call mom" {
		t.Fatalf("expected append order preserved, got %v", tasks)
	}
	if got := store.docs["u1|2025-06-01"]; len(got) != 2 {
		t.Fatalf("expected whole list persisted, got %v", got)
	}
}

func TestAddTaskRejectsEmptyText(t *testing.T) {
	m, store := newTestManager(t)

	if _, err := m.AddTask("u1", "2025-06-01", "   "); !errors.Is(err, models.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if store.saves != 0 {
		t.Fatalf("expected no persistence on rejected input, got %d saves", store.saves)
	}
}

func TestAddTaskRejectsBadDate(t *testing.T) {
	m, _ := newTestManager(t)

	for _, date := range []string{"", "06/01/2025", "2025-13-40", "yesterday"} {
		if _, err := m.AddTask("u1", date, "task"); !errors.Is(err, models.ErrValidation) {
			t.Fatalf("date %q: expected validation error, got %v", date, err)
		}
	}
}

func TestDeleteTaskPreservesOrder(t *testing.T) {
	m, _ := newTestManager(t)

	for _, text := range []string{"a", "b", "c"} {
		if _, err := m.AddTask("u1", "2025-06-01", text); err != nil {
			t.Fatalf("add task: %v", err)
		}
	}

	tasks, err := m.DeleteTask("u1", "2025-06-01", 1)
	if err != nil {
		t.Fatalf("delete task: %v", err)
	}
	if len(tasks) != 2 || tasks[0] != "a" || tasks[1] != "c" {
		t.Fatalf("expected [a c], got %v", tasks)
	}
}

func TestDeleteTaskOutOfRange(t *testing.T) {
	m, _ := newTestManager(t)

	if _, err := m.AddTask("u1", "2025-06-01", "only"); err != nil {
		t.Fatalf("add task: %v", err)
	}
	if _, err := m.DeleteTask("u1", "2025-06-01", 1); !errors.Is(err, models.ErrNotFound) {
		t.Fatalf("expected not-found error, got %v", err)
	}
	if _, err := m.DeleteTask("u1", "2025-06-01", -1); !errors.Is(err, models.ErrNotFound) {
		t.Fatalf("expected not-found error, got %v", err)
	}
}

func TestEditTaskReplacesInPlace(t *testing.T) {
	m, _ := newTestManager(t)

	for _, text := range []string{"a", "b"} {
		if _, err := m.AddTask("u1", "2025-06-01", text); err != nil {
			t.Fatalf("add task: %v", err)
		}
	}

	tasks, err := m.EditTask("u1", "2025-06-01", 0, "a2")
	if err != nil {
		t.Fatalf("edit task: %v", err)
	}
	if tasks[0] != "a2" || tasks[1] != "b" {
		t.Fatalf("expected [a2 b], got %v", tasks)
	}
}

func TestGetTasksServedFromCacheForSameDate(t *testing.T) {
	m, store := newTestManager(t)

	if _, err := m.GetTasks("u1", "2025-06-01"); err != nil {
		t.Fatalf("get tasks: %v", err)
	}
	if _, err := m.GetTasks("u1", "2025-06-01"); err != nil {
		t.Fatalf("get tasks: %v", err)
	}
	if store.loads != 1 {
		t.Fatalf("expected one backing load for repeated reads, got %d", store.loads)
	}
}

func TestDateSwitchRefetchesAndSelfHeals(t *testing.T) {
	m, store := newTestManager(t)

	if _, err := m.AddTask("u1", "2025-06-01", "stale soon"); err != nil {
		t.Fatalf("add task: %v", err)
	}

	// Another device rewrites the document behind the cache
	store.docs["u1|2025-06-01"] = []string{"rewritten elsewhere"}

	if _, err := m.GetTasks("u1", "2025-06-02"); err != nil {
		t.Fatalf("get tasks: %v", err)
	}

	tasks, err := m.GetTasks("u1", "2025-06-01")
	if err != nil {
		t.Fatalf("get tasks: %v", err)
	}
	if len(tasks) != 1 || tasks[0] != "rewritten elsewhere" {
		t.Fatalf("expected refetch after date switch, got %v", tasks)
	}
}

func TestBackendFailureLeavesCacheUntouched(t *testing.T) {
	m, store := newTestManager(t)

	if _, err := m.AddTask("u1", "2025-06-01", "keep me"); err != nil {
		t.Fatalf("add task: %v", err)
	}

	store.fail = true
	if _, err := m.AddTask("u1", "2025-06-01", "lost"); !errors.Is(err, models.ErrBackendUnavailable) {
		t.Fatalf("expected backend error, got %v", err)
	}
	store.fail = false

	tasks, err := m.GetTasks("u1", "2025-06-01")
	if err != nil {
		t.Fatalf("get tasks: %v", err)
	}
	if len(tasks) != 1 || tasks[0] != "keep me" {
		t.Fatalf("expected failed write not to dirty the list, got %v", tasks)
	}
}

func TestTaskListsAreIsolatedPerUser(t *testing.T) {
	m, _ := newTestManager(t)

	if _, err := m.AddTask("u1", "2025-06-01", "mine"); err != nil {
		t.Fatalf("add task: %v", err)
	}
	tasks, err := m.GetTasks("u2", "2025-06-01")
	if err != nil {
		t.Fatalf("get tasks: %v", err)
	}
	if len(tasks) != 0 {
		t.Fatalf("expected empty list for other user, got %v", tasks)
	}
}
