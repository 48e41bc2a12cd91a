package record_test

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"testing"

	"github.com/kmarcini/protrack/internal/domain"
	"github.com/kmarcini/protrack/internal/record"
)

func openStore(t *testing.T) *record.Store {
	t.Helper()
	s, err := record.Open(t.TempDir(), nil)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	return s
}

func TestOpenCreatesLayoutAndSeedsTeamData(t *testing.T) {
	s := openStore(t)

	for _, rel := range []string{record.ProjectsDir, record.TimeDir} {
		if info, err := os.Stat(s.Abs(rel)); err != nil || !info.IsDir() {
			t.Errorf("expected directory %s after Open (err=%v)", rel, err)
		}
	}
	if !s.Exists(record.TeamDataFile) {
		t.Fatal("team data not seeded")
	}

	var table domain.LookupTable
	if err := s.Load(record.TeamDataFile, &table); err != nil {
		t.Fatalf("loading seeded team data: %v", err)
	}
	if len(table.Categories[domain.CategoryWorkTypes]) == 0 {
		t.Error("seeded team data has no work types")
	}
}

func TestOpenRejectsEmptyRoot(t *testing.T) {
	if _, err := record.Open("", nil); err == nil {
		t.Fatal("expected error for empty root")
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	s := openStore(t)

	in := domain.TimeFile{
		SchemaVersion: domain.SchemaVersion,
		UserID:        "jdoe",
		Month:         "2026-08",
	}
	if err := s.Save("time/jdoe_2026-08.json", &in); err != nil {
		t.Fatalf("Save: %v", err)
	}

	var out domain.TimeFile
	if err := s.Load("time/jdoe_2026-08.json", &out); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if out.UserID != in.UserID || out.Month != in.Month {
		t.Errorf("round trip mismatch: %+v", out)
	}

	// Atomic write leaves no temp files behind.
	entries, err := os.ReadDir(s.Abs(record.TimeDir))
	if err != nil {
		t.Fatal(err)
	}
	for _, e := range entries {
		if e.Name() != "jdoe_2026-08.json" {
			t.Errorf("unexpected leftover file %q", e.Name())
		}
	}
}

func TestLoadMissingFile(t *testing.T) {
	s := openStore(t)
	var out domain.TimeFile
	err := s.Load("time/nobody_2026-01.json", &out)
	if !errors.Is(err, fs.ErrNotExist) {
		t.Fatalf("err = %v, want fs.ErrNotExist", err)
	}
}

func TestLoadCorruptFileSurfacesPath(t *testing.T) {
	s := openStore(t)
	path := s.Abs("projects/PRJ-BAD.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o644); err != nil {
		t.Fatal(err)
	}

	var p domain.Project
	err := s.Load("projects/PRJ-BAD.json", &p)
	var corrupt *domain.CorruptError
	if !errors.As(err, &corrupt) {
		t.Fatalf("err = %v, want *domain.CorruptError", err)
	}
	if corrupt.Path != path {
		t.Errorf("corrupt path = %q, want %q", corrupt.Path, path)
	}
}

func TestRemoveIsIdempotent(t *testing.T) {
	s := openStore(t)
	if err := s.Save("projects/PRJ-1.json", map[string]any{"schema_version": domain.SchemaVersion}); err != nil {
		t.Fatal(err)
	}
	if err := s.Remove("projects/PRJ-1.json"); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	if err := s.Remove("projects/PRJ-1.json"); err != nil {
		t.Fatalf("second Remove: %v", err)
	}
}

func TestListSkipsNonRecordFiles(t *testing.T) {
	s := openStore(t)
	dir := s.Abs(record.ProjectsDir)
	for _, name := range []string{"PRJ-2.json", "PRJ-1.json", ".PRJ-3.json.tmp-42", "notes.txt"} {
		if err := os.WriteFile(filepath.Join(dir, name), []byte("{}"), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	if err := os.Mkdir(filepath.Join(dir, "sub.json"), 0o755); err != nil {
		t.Fatal(err)
	}

	names, err := s.List(record.ProjectsDir)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	want := []string{"PRJ-1.json", "PRJ-2.json"}
	if len(names) != len(want) {
		t.Fatalf("List = %v, want %v", names, want)
	}
	for i := range want {
		if names[i] != want[i] {
			t.Errorf("List[%d] = %q, want %q", i, names[i], want[i])
		}
	}
}

func TestListMissingDirIsEmpty(t *testing.T) {
	s := openStore(t)
	names, err := s.List("never-created")
	if err != nil || names != nil {
		t.Fatalf("List = %v, %v; want nil, nil", names, err)
	}
}
