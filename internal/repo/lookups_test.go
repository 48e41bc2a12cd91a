package repo_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/kmarcini/protrack/internal/domain"
)

func TestLookupAddAndList(t *testing.T) {
	env := newTestEnv(t)

	v, err := env.lookups.Add(domain.CategoryCampuses, "Main Campus", "")
	if err != nil {
		t.Fatalf("Add: %v", err)
	}
	if v.ID != "main-campus" || !v.Active {
		t.Errorf("added value = %+v", v)
	}

	values, err := env.lookups.List(domain.CategoryCampuses, false)
	if err != nil {
		t.Fatal(err)
	}
	if len(values) != 1 || values[0].Name != "Main Campus" {
		t.Errorf("List = %v", values)
	}
}

func TestLookupAddRejectsDuplicates(t *testing.T) {
	env := newTestEnv(t)
	if _, err := env.lookups.Add(domain.CategoryCampuses, "North", ""); err != nil {
		t.Fatal(err)
	}

	var conflict *domain.ConflictError
	if _, err := env.lookups.Add(domain.CategoryCampuses, "north", ""); !errors.As(err, &conflict) {
		t.Errorf("case-insensitive duplicate: err = %v, want conflict", err)
	}
	// Different display name, same slug.
	if _, err := env.lookups.Add(domain.CategoryCampuses, "NORTH ", ""); !errors.As(err, &conflict) {
		t.Errorf("slug collision: err = %v, want conflict", err)
	}
}

func TestLookupAddRejectsUnknownCategory(t *testing.T) {
	env := newTestEnv(t)
	var invalid *domain.ValidationError
	if _, err := env.lookups.Add("flavours", "Vanilla", ""); !errors.As(err, &invalid) {
		t.Fatalf("err = %v, want validation error", err)
	}
}

func TestLookupRenameKeepsID(t *testing.T) {
	env := newTestEnv(t)

	v, err := env.lookups.Rename(domain.CategoryWorkTypes, "creation", "Content Creation")
	if err != nil {
		t.Fatalf("Rename: %v", err)
	}
	if v.ID != "creation" {
		t.Errorf("rename changed the id: %+v", v)
	}
	got, err := env.lookups.Get(domain.CategoryWorkTypes, "creation")
	if err != nil {
		t.Fatal(err)
	}
	if got.Name != "Content Creation" {
		t.Errorf("name = %q after rename", got.Name)
	}
}

func TestLookupDeactivateHidesFromPickers(t *testing.T) {
	env := newTestEnv(t)

	if err := env.lookups.Deactivate(domain.CategoryWorkTypes, "admin"); err != nil {
		t.Fatalf("Deactivate: %v", err)
	}
	// Idempotent.
	if err := env.lookups.Deactivate(domain.CategoryWorkTypes, "admin"); err != nil {
		t.Fatalf("second Deactivate: %v", err)
	}

	active, err := env.lookups.List(domain.CategoryWorkTypes, false)
	if err != nil {
		t.Fatal(err)
	}
	for _, v := range active {
		if v.ID == "admin" {
			t.Error("deactivated value still listed as active")
		}
	}
	all, err := env.lookups.List(domain.CategoryWorkTypes, true)
	if err != nil {
		t.Fatal(err)
	}
	found := false
	for _, v := range all {
		if v.ID == "admin" && !v.Active {
			found = true
		}
	}
	if !found {
		t.Error("deactivated value missing from includeInactive listing")
	}

	if err := env.lookups.Activate(domain.CategoryWorkTypes, "admin"); err != nil {
		t.Fatalf("Activate: %v", err)
	}
	got, err := env.lookups.Get(domain.CategoryWorkTypes, "admin")
	if err != nil {
		t.Fatal(err)
	}
	if !got.Active {
		t.Error("value still inactive after Activate")
	}
}

func TestLookupDeleteBlockedWhileReferenced(t *testing.T) {
	env := newTestEnv(t)
	proj := env.createProject(t, "Uses Creation")
	env.createEntry(t, proj.ID, "jdoe", env.clock.Now(), time.Hour)

	err := env.lookups.Delete(domain.CategoryWorkTypes, "creation")
	var conflict *domain.ConflictError
	if !errors.As(err, &conflict) {
		t.Fatalf("err = %v, want conflict while a time entry references the work type", err)
	}

	// An unreferenced value deletes fine.
	if err := env.lookups.Delete(domain.CategoryWorkTypes, "miscellaneous"); err != nil {
		t.Fatalf("Delete unreferenced: %v", err)
	}
	if _, err := env.lookups.Get(domain.CategoryWorkTypes, "miscellaneous"); err == nil {
		t.Error("value still present after Delete")
	}
}

func TestLookupBulkImport(t *testing.T) {
	env := newTestEnv(t)

	added, skipped, errs, err := env.lookups.BulkImport(context.Background(),
		domain.CategoryCampuses, []string{"North", "South", "north", "  ", "East"})
	if err != nil {
		t.Fatalf("BulkImport: %v", err)
	}
	if added != 3 || skipped != 1 || len(errs) != 1 {
		t.Errorf("added=%d skipped=%d errs=%v; want 3, 1, one blank-name error", added, skipped, errs)
	}

	values, err := env.lookups.List(domain.CategoryCampuses, false)
	if err != nil {
		t.Fatal(err)
	}
	if len(values) != 3 {
		t.Errorf("campuses on disk = %d, want 3", len(values))
	}
}
