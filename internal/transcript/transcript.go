// Package transcript writes per-iteration agent transcripts under the
// orchestration root's logs/ directory. Transcripts are append-only and named
// deterministically by iteration index and timestamp; they exist for humans,
// the engine never reads them back.
package transcript

import (
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// DirName is the transcript subdirectory under the orchestration root.
const DirName = "logs"

// Store creates iteration transcript files.
type Store struct {
	dir string

	// now is injectable for deterministic names in tests.
	now func() time.Time
}

// New ensures the logs/ directory exists under root and returns a Store.
func New(root string) (*Store, error) {
	dir := filepath.Join(root, DirName)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("transcript: ensure log dir: %w", err)
	}
	return &Store{dir: dir, now: time.Now}, nil
}

// Create opens the transcript file for an iteration. The caller owns the
// returned file and must close it when the iteration ends.
func (s *Store) Create(iteration int) (*os.File, error) {
	name := fmt.Sprintf("iter-%03d-%s.log", iteration, s.now().Format("20060102T150405"))
	f, err := os.OpenFile(filepath.Join(s.dir, name), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("transcript: open %s: %w", name, err)
	}
	return f, nil
}

// Dir returns the transcript directory path.
func (s *Store) Dir() string { return s.dir }
