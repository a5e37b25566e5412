package journal

import (
	"path/filepath"
	"testing"
)

func openTestJournal(t *testing.T) *Journal {
	t.Helper()
	j, err := Open(filepath.Join(t.TempDir(), "journal.db"))
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	t.Cleanup(func() { j.Close() })
	return j
}

func TestRecordAndRecent(t *testing.T) {
	j := openTestJournal(t)

	records := []struct{ kind, conn string }{
		{"connected", "a"},
		{"connected", "b"},
		{"disconnected", "a"},
		{"halt", ""},
	}
	for _, r := range records {
		if err := j.Record(r.kind, r.conn, ""); err != nil {
			t.Fatalf("Record failed: %v", err)
		}
	}

	recent, err := j.Recent(3)
	if err != nil {
		t.Fatalf("Recent failed: %v", err)
	}
	if len(recent) != 3 {
		t.Fatalf("Expected 3 entries, got %d", len(recent))
	}
	if recent[0].Kind != "halt" || recent[2].Kind != "connected" || recent[2].ConnID != "b" {
		t.Errorf("Expected newest first, got %+v", recent)
	}
	if recent[0].At.IsZero() {
		t.Error("Entries must be timestamped")
	}
}

func TestRecentOfKind(t *testing.T) {
	j := openTestJournal(t)
	_ = j.Record("connected", "a", "")
	_ = j.Record("disconnected", "a", "")
	_ = j.Record("connected", "b", "")

	got, err := j.RecentOfKind("connected", 10)
	if err != nil {
		t.Fatalf("RecentOfKind failed: %v", err)
	}
	if len(got) != 2 || got[0].ConnID != "b" {
		t.Errorf("Unexpected entries %+v", got)
	}

	none, err := j.RecentOfKind("ota_end", 10)
	if err != nil || len(none) != 0 {
		t.Errorf("Expected no entries and no error, got %v %v", none, err)
	}
}

func TestJournalSurvivesReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "journal.db")
	j, err := Open(path)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	_ = j.Record("halt", "", "shutdown")
	j.Close()

	j, err = Open(path)
	if err != nil {
		t.Fatalf("Reopen failed: %v", err)
	}
	defer j.Close()
	got, _ := j.Recent(10)
	if len(got) != 1 || got[0].Detail != "shutdown" {
		t.Errorf("Expected persisted entry, got %+v", got)
	}
}
