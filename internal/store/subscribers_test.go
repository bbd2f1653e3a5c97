package store

import (
	"errors"
	"os"
	"path/filepath"
	"slices"
	"sync"
	"testing"

	"go.uber.org/zap"
)

func openTemp(t *testing.T) (*SubscriberStore, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "data", "notifications.json")
	s, err := Open(path, zap.NewNop())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	return s, path
}

func reopen(t *testing.T, path string) *SubscriberStore {
	t.Helper()
	s, err := Open(path, zap.NewNop())
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	return s
}

func TestOpenMissingFileStartsEmpty(t *testing.T) {
	s, _ := openTemp(t)
	if got := s.ListAll(); len(got) != 0 {
		t.Fatalf("ListAll = %v, want empty", got)
	}
}

func TestLoadCorruptFileStartsEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "notifications.json")
	if err := os.WriteFile(path, []byte(`{"enabledChatIds": [1, 2`), 0o644); err != nil {
		t.Fatal(err)
	}

	s := reopen(t, path)
	if got := s.ListAll(); len(got) != 0 {
		t.Fatalf("ListAll = %v, want empty", got)
	}

	// The store stays usable and overwrites the corrupt file.
	if err := s.Add(7); err != nil {
		t.Fatalf("Add: %v", err)
	}
	if got := reopen(t, path).ListAll(); !slices.Equal(got, []int64{7}) {
		t.Fatalf("after reload = %v, want [7]", got)
	}
}

func TestLoadLegacyFileDeduplicates(t *testing.T) {
	path := filepath.Join(t.TempDir(), "notifications.json")
	if err := os.WriteFile(path, []byte(`{"enabledChatIds":[42,-100123,42]}`), 0o644); err != nil {
		t.Fatal(err)
	}

	s := reopen(t, path)
	if got := s.ListAll(); !slices.Equal(got, []int64{-100123, 42}) {
		t.Fatalf("ListAll = %v, want [-100123 42]", got)
	}
}

func TestLoadEmptyObject(t *testing.T) {
	path := filepath.Join(t.TempDir(), "notifications.json")
	if err := os.WriteFile(path, []byte(`{}`), 0o644); err != nil {
		t.Fatal(err)
	}
	if got := reopen(t, path).Len(); got != 0 {
		t.Fatalf("Len = %d, want 0", got)
	}
}

func TestRoundTrip(t *testing.T) {
	s, path := openTemp(t)
	for _, id := range []int64{30, 10, 20} {
		if err := s.Add(id); err != nil {
			t.Fatalf("Add(%d): %v", id, err)
		}
	}
	if err := s.Remove(20); err != nil {
		t.Fatalf("Remove: %v", err)
	}

	got := reopen(t, path).ListAll()
	if !slices.Equal(got, []int64{10, 30}) {
		t.Fatalf("reloaded = %v, want [10 30]", got)
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if string(raw) != `{"enabledChatIds":[10,30]}` {
		t.Errorf("file = %s", raw)
	}
}

func TestAddIdempotent(t *testing.T) {
	s, path := openTemp(t)
	if err := s.Add(5); err != nil {
		t.Fatal(err)
	}
	if err := s.Add(5); err != nil {
		t.Fatal(err)
	}
	if got := s.ListAll(); !slices.Equal(got, []int64{5}) {
		t.Fatalf("ListAll = %v, want [5]", got)
	}
	if got := reopen(t, path).ListAll(); !slices.Equal(got, []int64{5}) {
		t.Fatalf("reloaded = %v, want [5]", got)
	}
}

func TestAddPresentStillPersists(t *testing.T) {
	s, _ := openTemp(t)
	if err := s.Add(5); err != nil {
		t.Fatal(err)
	}

	writes := 0
	s.writeFile = func(string, []byte, os.FileMode) error {
		writes++
		return errors.New("disk full")
	}
	if err := s.Add(5); !errors.Is(err, ErrPersist) {
		t.Fatalf("Add = %v, want ErrPersist", err)
	}
	if writes != 1 {
		t.Errorf("writes = %d, want 1", writes)
	}
}

func TestRemoveIdempotent(t *testing.T) {
	s, _ := openTemp(t)

	writes := 0
	s.writeFile = func(string, []byte, os.FileMode) error {
		writes++
		return nil
	}
	if err := s.Remove(99); err != nil {
		t.Fatalf("Remove on empty store: %v", err)
	}
	if writes != 0 {
		t.Errorf("writes = %d, want 0", writes)
	}

	if err := s.Add(1); err != nil {
		t.Fatal(err)
	}
	if err := s.Remove(99); err != nil {
		t.Fatalf("Remove absent: %v", err)
	}
	if got := s.ListAll(); !slices.Equal(got, []int64{1}) {
		t.Fatalf("ListAll = %v, want [1]", got)
	}
}

func TestFailedWriteLeavesStateUnchanged(t *testing.T) {
	s, path := openTemp(t)
	if err := s.Add(1); err != nil {
		t.Fatal(err)
	}

	// Removing the directory makes the atomic write fail.
	if err := os.RemoveAll(filepath.Dir(path)); err != nil {
		t.Fatal(err)
	}

	if err := s.Add(2); !errors.Is(err, ErrPersist) {
		t.Fatalf("Add = %v, want ErrPersist", err)
	}
	if err := s.Remove(1); !errors.Is(err, ErrPersist) {
		t.Fatalf("Remove = %v, want ErrPersist", err)
	}
	if got := s.ListAll(); !slices.Equal(got, []int64{1}) {
		t.Fatalf("ListAll = %v, want [1]", got)
	}
}

func TestListAllIsSnapshot(t *testing.T) {
	s, _ := openTemp(t)
	if err := s.Add(1); err != nil {
		t.Fatal(err)
	}
	snap := s.ListAll()
	if err := s.Add(2); err != nil {
		t.Fatal(err)
	}
	snap[0] = 100
	if !slices.Equal(snap, []int64{100}) {
		t.Fatalf("snapshot changed to %v", snap)
	}
	if got := s.ListAll(); !slices.Equal(got, []int64{1, 2}) {
		t.Fatalf("ListAll = %v, want [1 2]", got)
	}
}

func TestConcurrentAddsNoLostUpdates(t *testing.T) {
	s, path := openTemp(t)

	const n = 50
	var wg sync.WaitGroup
	for i := int64(1); i <= n; i++ {
		wg.Add(1)
		go func(id int64) {
			defer wg.Done()
			if err := s.Add(id); err != nil {
				t.Errorf("Add(%d): %v", id, err)
			}
		}(i)
	}
	wg.Wait()

	want := make([]int64, 0, n)
	for i := int64(1); i <= n; i++ {
		want = append(want, i)
	}
	if got := s.ListAll(); !slices.Equal(got, want) {
		t.Fatalf("in memory = %v", got)
	}
	if got := reopen(t, path).ListAll(); !slices.Equal(got, want) {
		t.Fatalf("on disk = %v", got)
	}
}

func TestConcurrentAddRemoveMixed(t *testing.T) {
	s, path := openTemp(t)
	for i := int64(0); i < 20; i++ {
		if err := s.Add(i); err != nil {
			t.Fatal(err)
		}
	}

	var wg sync.WaitGroup
	for i := int64(0); i < 20; i++ {
		wg.Add(2)
		go func(id int64) {
			defer wg.Done()
			if id%2 == 0 {
				_ = s.Remove(id)
			}
		}(i)
		go func(id int64) {
			defer wg.Done()
			_ = s.Add(id + 100)
		}(i)
	}
	wg.Wait()

	var want []int64
	for i := int64(0); i < 20; i++ {
		if i%2 == 1 {
			want = append(want, i)
		}
	}
	for i := int64(100); i < 120; i++ {
		want = append(want, i)
	}
	if got := s.ListAll(); !slices.Equal(got, want) {
		t.Fatalf("in memory = %v, want %v", got, want)
	}
	if got := reopen(t, path).ListAll(); !slices.Equal(got, want) {
		t.Fatalf("on disk = %v, want %v", got, want)
	}
}

func TestRacingAddRemoveSameID(t *testing.T) {
	for round := 0; round < 20; round++ {
		s, path := openTemp(t)

		var wg sync.WaitGroup
		wg.Add(2)
		go func() { defer wg.Done(); _ = s.Add(42) }()
		go func() { defer wg.Done(); _ = s.Remove(42) }()
		wg.Wait()

		inMemory := s.Contains(42)
		onDisk := reopen(t, path).Contains(42)
		if inMemory != onDisk {
			t.Fatalf("round %d: memory=%v disk=%v", round, inMemory, onDisk)
		}
	}
}
