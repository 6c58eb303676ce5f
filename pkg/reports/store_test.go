package reports_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/venuecontrol/avctl/pkg/reports"
)

func TestStore_SaveAndLoadRoundTrips(t *testing.T) {
	dir := t.TempDir()
	store := reports.NewStore(dir)

	report := reports.Assemble("2026-07-30", nil, nil, nil, nil)
	if err := store.Save(report); err != nil {
		t.Fatalf("Save: %v", err)
	}

	if _, err := os.Stat(filepath.Join(dir, "2026-07-30.txt")); err != nil {
		t.Errorf("expected text form to exist: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "2026-07-30.json")); err != nil {
		t.Errorf("expected json form to exist: %v", err)
	}

	got, err := store.Load("2026-07-30")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got.Date != report.Date || got.Status != report.Status {
		t.Errorf("Load() = %+v, want %+v", got, report)
	}
}

func TestStore_LoadMissingDateReturnsZeroValue(t *testing.T) {
	store := reports.NewStore(t.TempDir())
	got, err := store.Load("2026-01-01")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got.Date != "" {
		t.Errorf("expected zero-value report for a missing date, got %+v", got)
	}
}

func TestStore_ClearRemovesBothForms(t *testing.T) {
	dir := t.TempDir()
	store := reports.NewStore(dir)

	report := reports.Assemble("2026-07-30", nil, nil, nil, nil)
	if err := store.Save(report); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if err := store.Clear("2026-07-30"); err != nil {
		t.Fatalf("Clear: %v", err)
	}

	got, err := store.Load("2026-07-30")
	if err != nil {
		t.Fatalf("Load after Clear: %v", err)
	}
	if got.Date != "" {
		t.Errorf("expected no report after Clear, got %+v", got)
	}
}
