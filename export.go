package loupe

import (
	"fmt"

	"loupe/internal/store"
)

// Export dumps the current catalog (files, pins, resolved references) into a
// SQLite database at dbPath for external tooling. The export is one-way: the
// Library never reads it back.
func (l *Library) Export(dbPath string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	s, err := store.NewStore(dbPath)
	if err != nil {
		return fmt.Errorf("export: %w", err)
	}
	defer s.Close()

	if err := s.Migrate(); err != nil {
		return fmt.Errorf("export: %w", err)
	}
	if err := s.Export(l.api); err != nil {
		return fmt.Errorf("export: %w", err)
	}
	return nil
}
