package domain_test

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/kmarcini/protrack/internal/domain"
)

func TestSlug(t *testing.T) {
	cases := []struct {
		in, want string
	}{
		{"Creation", "creation"},
		{"Not Started", "not-started"},
		{"  Main Campus  ", "main-campus"},
		{"R&D / Misc", "r-d-misc"},
		{"2024 Intake", "2024-intake"},
		{"---", ""},
	}
	for _, c := range cases {
		if got := domain.Slug(c.in); got != c.want {
			t.Errorf("Slug(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}

func TestDefaultLookupTableSeedsWorkTypesAndStatuses(t *testing.T) {
	table := domain.DefaultLookupTable()

	if table.SchemaVersion != domain.SchemaVersion {
		t.Errorf("schema version = %d, want %d", table.SchemaVersion, domain.SchemaVersion)
	}
	for _, category := range domain.Categories {
		if _, ok := table.Categories[category]; !ok {
			t.Errorf("category %q missing from default table", category)
		}
	}
	if v, ok := table.Find(domain.CategoryWorkTypes, "creation"); !ok || v.Name != "Creation" {
		t.Errorf("expected seeded work type Creation, got %+v (ok=%v)", v, ok)
	}
	if v, ok := table.FindByName(domain.CategoryStatuses, "in progress"); !ok || v.ID != "in-progress" {
		t.Errorf("expected case-insensitive status match, got %+v (ok=%v)", v, ok)
	}
}

func TestLookupTableUpgradesLegacyFile(t *testing.T) {
	legacy := []byte(`{
		"schema_version": 1,
		"work_types": ["Planning", "Creation"],
		"project_statuses": ["Not Started", "Complete"],
		"campuses": ["Main Campus"],
		"effort_types": ["New Build"],
		"employees": [{"id": "jdoe", "name": "J. Doe", "role": "producer"}]
	}`)

	var table domain.LookupTable
	if err := json.Unmarshal(legacy, &table); err != nil {
		t.Fatalf("unmarshal legacy table: %v", err)
	}

	if table.SchemaVersion != domain.SchemaVersion {
		t.Errorf("upgraded schema version = %d, want %d", table.SchemaVersion, domain.SchemaVersion)
	}
	v, ok := table.Find(domain.CategoryCampuses, "main-campus")
	if !ok {
		t.Fatal("campus Main Campus not migrated to slug id main-campus")
	}
	if !v.Active {
		t.Error("migrated values should be active")
	}
	emp, ok := table.Find(domain.CategoryEmployees, "jdoe")
	if !ok {
		t.Fatal("employee jdoe not migrated")
	}
	if emp.Role != "producer" {
		t.Errorf("employee role = %q, want producer", emp.Role)
	}

	// A second unmarshal of the same bytes must produce identical ids.
	var again domain.LookupTable
	if err := json.Unmarshal(legacy, &again); err != nil {
		t.Fatalf("second unmarshal: %v", err)
	}
	if _, ok := again.Find(domain.CategoryCampuses, "main-campus"); !ok {
		t.Error("migration ids are not stable across re-loads")
	}
}

func TestLookupTableRejectsNewerSchema(t *testing.T) {
	data := []byte(`{"schema_version": 99, "categories": {}}`)
	var table domain.LookupTable
	err := json.Unmarshal(data, &table)
	if !errors.Is(err, domain.ErrSchemaTooNew) {
		t.Fatalf("err = %v, want ErrSchemaTooNew", err)
	}
}
