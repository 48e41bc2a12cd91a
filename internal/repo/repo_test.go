package repo_test

import (
	"testing"
	"time"

	"github.com/kmarcini/protrack/internal/domain"
	"github.com/kmarcini/protrack/internal/record"
	"github.com/kmarcini/protrack/internal/repo"
)

// fakeClock lets tests drive time deterministically.
type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time { return c.now }

func (c *fakeClock) advance(d time.Duration) { c.now = c.now.Add(d) }

type testEnv struct {
	store    *record.Store
	lookups  *repo.Lookups
	projects *repo.Projects
	entries  *repo.Entries
	clock    *fakeClock
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	store, err := record.Open(t.TempDir(), nil)
	if err != nil {
		t.Fatalf("opening store: %v", err)
	}
	clock := &fakeClock{now: time.Date(2026, 8, 24, 9, 0, 0, 0, time.Local)}
	lookups := repo.NewLookups(store, nil)
	projects := repo.NewProjects(store, lookups, clock, nil)
	entries := repo.NewEntries(store, projects, lookups, nil)
	return &testEnv{
		store:    store,
		lookups:  lookups,
		projects: projects,
		entries:  entries,
		clock:    clock,
	}
}

func (env *testEnv) createProject(t *testing.T, name string) *domain.Project {
	t.Helper()
	proj, err := env.projects.Create(repo.ProjectDraft{Name: name, CreatedBy: "jdoe"})
	if err != nil {
		t.Fatalf("creating project %q: %v", name, err)
	}
	return proj
}

func (env *testEnv) createEntry(t *testing.T, projectID, userID string, start time.Time, d time.Duration) *domain.TimeEntry {
	t.Helper()
	end := start.Add(d)
	entry, err := env.entries.Create(repo.EntryDraft{
		ProjectID:  projectID,
		UserID:     userID,
		WorkTypeID: "creation",
		Start:      start,
		End:        &end,
		Manual:     true,
	})
	if err != nil {
		t.Fatalf("creating entry: %v", err)
	}
	return entry
}
