// Package record is the file-backed record store. The shared folder is the
// database: one JSON file per project, one per user-month of time entries,
// and a single team_data.json of lookup tables. A sync service (OneDrive or
// similar) replicates the folder between machines, so every write is an
// atomic rename and every load re-reads from disk. Concurrent edits to the
// same file resolve last-writer-wins; Stat exposes mtimes so callers can
// warn before overwriting newer data.
package record

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/kmarcini/protrack/internal/domain"
)

// Subfolders of the data folder.
const (
	ProjectsDir = "projects"
	TimeDir     = "time"

	// TeamDataFile holds the shared lookup tables.
	TeamDataFile = "team_data.json"
)

// retryDelay is how long to wait before the single retry on a transient
// filesystem error. Sync clients hold short exclusive locks during upload.
const retryDelay = 150 * time.Millisecond

// Store reads and writes record files under a single data folder. It keeps
// no cache: the dataset is human-entry-scale and other machines edit the
// folder between calls.
type Store struct {
	root string
	log  *slog.Logger
}

// Open prepares the folder layout under root and seeds a default
// team_data.json when none exists yet.
func Open(root string, logger *slog.Logger) (*Store, error) {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if root == "" {
		return nil, &domain.ValidationError{Field: "data folder", Reason: "no path configured"}
	}
	for _, dir := range []string{root, filepath.Join(root, ProjectsDir), filepath.Join(root, TimeDir)} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating data directory: %w", err)
		}
	}

	s := &Store{root: root, log: logger}
	if !s.Exists(TeamDataFile) {
		if err := s.Save(TeamDataFile, domain.DefaultLookupTable()); err != nil {
			return nil, fmt.Errorf("seeding team data: %w", err)
		}
		logger.Info("seeded default team data", "path", s.Abs(TeamDataFile))
	}
	return s, nil
}

// Root returns the data folder path.
func (s *Store) Root() string { return s.root }

// Abs resolves a store-relative path.
func (s *Store) Abs(rel string) string { return filepath.Join(s.root, rel) }

// Exists reports whether a record file is present.
func (s *Store) Exists(rel string) bool {
	_, err := os.Stat(s.Abs(rel))
	return err == nil
}

// Stat returns the modification time of a record file. Callers can compare
// it against the mtime they loaded at to warn about concurrent edits.
func (s *Store) Stat(rel string) (time.Time, error) {
	info, err := os.Stat(s.Abs(rel))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return time.Time{}, err
		}
		return time.Time{}, &domain.IOError{Path: s.Abs(rel), Err: err}
	}
	return info.ModTime(), nil
}

// Load reads and decodes one record file. A missing file surfaces as
// fs.ErrNotExist (callers mostly treat that as a normal empty state); an
// unparseable file surfaces as *domain.CorruptError with the path, never
// silently dropped.
func (s *Store) Load(rel string, into any) error {
	path := s.Abs(rel)
	data, err := readRetry(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("loading %s: %w", rel, err)
		}
		return &domain.IOError{Path: path, Err: err}
	}
	if err := json.Unmarshal(data, into); err != nil {
		return &domain.CorruptError{Path: path, Err: err}
	}
	return nil
}

// Save encodes the record and writes it with a temp-file-then-rename so no
// reader ever observes a half-written file. The last writer wins on
// concurrent saves of the same file.
func (s *Store) Save(rel string, record any) error {
	path := s.Abs(rel)
	data, err := json.MarshalIndent(record, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding %s: %w", rel, err)
	}
	data = append(data, '\n')

	write := func() error {
		tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".tmp-*")
		if err != nil {
			return err
		}
		defer os.Remove(tmp.Name())
		if _, err := tmp.Write(data); err != nil {
			tmp.Close()
			return err
		}
		if err := tmp.Sync(); err != nil {
			tmp.Close()
			return err
		}
		if err := tmp.Close(); err != nil {
			return err
		}
		if err := os.Chmod(tmp.Name(), 0o644); err != nil {
			return err
		}
		return os.Rename(tmp.Name(), path)
	}
	if err := write(); err != nil {
		s.log.Warn("write failed, retrying once", "path", path, "error", err)
		time.Sleep(retryDelay)
		if err := write(); err != nil {
			return &domain.IOError{Path: path, Err: err}
		}
	}
	return nil
}

// Remove deletes a record file. Missing files are not an error so deletes
// are idempotent across processes.
func (s *Store) Remove(rel string) error {
	path := s.Abs(rel)
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return &domain.IOError{Path: path, Err: err}
	}
	return nil
}

// List returns the names of the JSON record files in a subfolder, sorted for
// stable iteration. Temp files from in-flight writes are skipped.
func (s *Store) List(dir string) ([]string, error) {
	entries, err := os.ReadDir(s.Abs(dir))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, &domain.IOError{Path: s.Abs(dir), Err: err}
	}
	var names []string
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || strings.HasPrefix(name, ".") || !strings.HasSuffix(name, ".json") {
			continue
		}
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

func readRetry(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err == nil || errors.Is(err, fs.ErrNotExist) {
		return data, err
	}
	time.Sleep(retryDelay)
	return os.ReadFile(path)
}
