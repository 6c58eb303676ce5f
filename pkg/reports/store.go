package reports

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// Store persists one (text, JSON) pair per date to a directory (spec.md §6
// "Daily-report text and structured forms, one pair per date... the core
// treats these sinks abstractly; the file-layout thereof is an external
// concern"). The Save/Load/Clear shape is adapted from the reference
// controller's JSON state-file store, retargeted from device/zone session
// state onto daily reports.
type Store struct {
	mu  sync.Mutex
	dir string
}

// NewStore creates a report store rooted at dir. The directory is created
// lazily on first Save.
func NewStore(dir string) *Store {
	return &Store{dir: dir}
}

// Save writes the date's text and JSON forms, overwriting any existing pair
// for that date.
func (s *Store) Save(r DailyReport) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.MkdirAll(s.dir, 0755); err != nil {
		return err
	}

	text := DailyText(r)
	if err := os.WriteFile(s.textPath(r.Date), []byte(text), 0644); err != nil {
		return fmt.Errorf("reports: write text: %w", err)
	}

	data, err := DailyJSON(r)
	if err != nil {
		return fmt.Errorf("reports: marshal: %w", err)
	}
	if err := os.WriteFile(s.jsonPath(r.Date), data, 0644); err != nil {
		return fmt.Errorf("reports: write json: %w", err)
	}
	return nil
}

// Load reads back the JSON form for date. It returns a zero DailyReport and
// a nil error if no report has been saved for that date yet.
func (s *Store) Load(date string) (DailyReport, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.jsonPath(date))
	if os.IsNotExist(err) {
		return DailyReport{}, nil
	}
	if err != nil {
		return DailyReport{}, err
	}

	var r DailyReport
	if err := json.Unmarshal(data, &r); err != nil {
		return DailyReport{}, fmt.Errorf("reports: decode: %w", err)
	}
	return r, nil
}

// Clear removes both forms for date, if present.
func (s *Store) Clear(date string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, path := range []string{s.textPath(date), s.jsonPath(date)} {
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			return err
		}
	}
	return nil
}

func (s *Store) textPath(date string) string {
	return filepath.Join(s.dir, date+".txt")
}

func (s *Store) jsonPath(date string) string {
	return filepath.Join(s.dir, date+".json")
}
