package project

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestWriteAndReadSummary(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out", "summary.json")

	s := NewRunSummary("cascade", []string{"a.csv", "b.csv"})
	s.BaseScore = 80.5
	s.FinalScore = 79.25
	official := 79.25
	s.OfficialScore = &official
	s.Replaced = []int{3, 7}
	s.Finish()

	if err := WriteSummary(path, s); err != nil {
		t.Fatalf("WriteSummary failed: %v", err)
	}
	got, err := ReadSummary(path)
	if err != nil {
		t.Fatalf("ReadSummary failed: %v", err)
	}

	if got.ID != s.ID || len(got.ID) != 8 {
		t.Errorf("expected ID %s, got %s", s.ID, got.ID)
	}
	if got.Command != "cascade" {
		t.Errorf("expected command cascade, got %s", got.Command)
	}
	if got.OfficialScore == nil || *got.OfficialScore != 79.25 {
		t.Errorf("expected official score 79.25, got %v", got.OfficialScore)
	}
	if len(got.Replaced) != 2 || got.Replaced[1] != 7 {
		t.Errorf("expected replaced [3 7], got %v", got.Replaced)
	}
	if got.Elapsed == "" {
		t.Error("expected non-empty Elapsed")
	}
}

func TestReadSummaryErrors(t *testing.T) {
	dir := t.TempDir()
	if _, err := ReadSummary(filepath.Join(dir, "nope.json")); err == nil {
		t.Fatal("expected error for missing file")
	}

	path := filepath.Join(dir, "noversion.json")
	if err := os.WriteFile(path, []byte(`{"command": "score"}`), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := ReadSummary(path); err == nil {
		t.Fatal("expected error for missing version")
	}
}

func TestListHistoryOldestFirst(t *testing.T) {
	dir := t.TempDir()
	base := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)
	for i, cmd := range []string{"refine", "score", "cascade"} {
		s := NewRunSummary(cmd, nil)
		s.StartedAt = base.Add(time.Duration(2-i) * time.Hour)
		if err := WriteSummary(HistoryPath(dir, s), s); err != nil {
			t.Fatal(err)
		}
	}

	got, err := ListHistory(dir)
	if err != nil {
		t.Fatalf("ListHistory failed: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("expected 3 summaries, got %d", len(got))
	}
	if got[0].Command != "cascade" || got[2].Command != "refine" {
		t.Errorf("unexpected order: %s, %s, %s", got[0].Command, got[1].Command, got[2].Command)
	}
}
