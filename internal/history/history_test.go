package history

import (
	"path/filepath"
	"testing"
	"time"
)

func openTestLog(t *testing.T) *Log {
	t.Helper()

	l, err := Open(filepath.Join(t.TempDir(), "history.db"))
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	t.Cleanup(func() { l.Close() })
	return l
}

func TestAppendAndList(t *testing.T) {
	l := openTestLog(t)

	base := time.Date(2025, 6, 16, 9, 0, 0, 0, time.UTC)
	for i := 0; i < 3; i++ {
		e := &Entry{
			SlotID:      int64(i + 1),
			PostID:      int64(i + 1),
			CompanyID:   1,
			CompanyName: "Alpha",
			Status:      "sent",
			Trigger:     TriggerScheduled,
			ScheduledAt: base.Add(time.Duration(i) * time.Hour),
			CreatedAt:   base.Add(time.Duration(i) * time.Hour),
		}
		if err := l.Append(e); err != nil {
			t.Fatalf("Append() error = %v", err)
		}
		if e.ID == "" {
			t.Fatal("Append() did not assign an id")
		}
	}

	entries, err := l.List(10, 0)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(entries) != 3 {
		t.Fatalf("List() returned %d entries, want 3", len(entries))
	}
	// Newest first.
	if entries[0].SlotID != 3 || entries[2].SlotID != 1 {
		t.Errorf("List() order wrong: %d, %d, %d", entries[0].SlotID, entries[1].SlotID, entries[2].SlotID)
	}

	// Pagination.
	entries, err = l.List(1, 1)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(entries) != 1 || entries[0].SlotID != 2 {
		t.Errorf("List(1, 1) = %+v", entries)
	}
}

func TestSetViewCount(t *testing.T) {
	l := openTestLog(t)

	e := &Entry{SlotID: 1, PostID: 1, CompanyName: "Alpha", Status: "sent", Trigger: TriggerManual}
	if err := l.Append(e); err != nil {
		t.Fatalf("Append() error = %v", err)
	}

	if err := l.SetViewCount(e.ID, 1234); err != nil {
		t.Fatalf("SetViewCount() error = %v", err)
	}

	entries, err := l.List(1, 0)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if entries[0].ViewCount == nil || *entries[0].ViewCount != 1234 {
		t.Errorf("view count = %v, want 1234", entries[0].ViewCount)
	}

	if err := l.SetViewCount("no-such-id", 1); err == nil {
		t.Error("SetViewCount() on missing entry: expected error")
	}
}
