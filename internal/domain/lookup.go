package domain

import (
	"encoding/json"
	"fmt"
	"strings"
)

// SchemaVersion is the current on-disk schema for all record files.
const SchemaVersion = 2

// Lookup categories stored in team_data.json.
const (
	CategoryEmployees   = "employees"
	CategoryWorkTypes   = "work_types"
	CategoryCampuses    = "campuses"
	CategoryEffortTypes = "effort_types"
	CategoryStatuses    = "statuses"
)

// Categories lists every valid lookup category.
var Categories = []string{
	CategoryEmployees,
	CategoryWorkTypes,
	CategoryCampuses,
	CategoryEffortTypes,
	CategoryStatuses,
}

// LookupValue is a single entry in a shared lookup category. Values are never
// hard-deleted while referenced; they are deactivated instead.
type LookupValue struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Active bool   `json:"active"`
	Role   string `json:"role,omitempty"` // employees only
}

// LookupTable is the shared team configuration file.
type LookupTable struct {
	SchemaVersion int                      `json:"schema_version"`
	Categories    map[string][]LookupValue `json:"categories"`
}

// Slug derives the stable id for a lookup value from its display name.
// Deterministic so that legacy files migrate to the same ids on every load.
func Slug(name string) string {
	var b strings.Builder
	lastDash := true
	for _, r := range strings.ToLower(strings.TrimSpace(name)) {
		switch {
		case r >= 'a' && r <= 'z' || r >= '0' && r <= '9':
			b.WriteRune(r)
			lastDash = false
		default:
			if !lastDash {
				b.WriteByte('-')
				lastDash = true
			}
		}
	}
	return strings.TrimRight(b.String(), "-")
}

// DefaultLookupTable seeds a new data folder with the stock work types and
// statuses so a team can start logging immediately.
func DefaultLookupTable() *LookupTable {
	t := &LookupTable{
		SchemaVersion: SchemaVersion,
		Categories:    map[string][]LookupValue{},
	}
	for _, c := range Categories {
		t.Categories[c] = []LookupValue{}
	}
	for _, name := range []string{
		"Planning", "Creation", "Review", "Production",
		"Admin", "Meetings", "Miscellaneous",
	} {
		t.Categories[CategoryWorkTypes] = append(t.Categories[CategoryWorkTypes],
			LookupValue{ID: Slug(name), Name: name, Active: true})
	}
	for _, name := range []string{"Not Started", "In Progress", "Complete"} {
		t.Categories[CategoryStatuses] = append(t.Categories[CategoryStatuses],
			LookupValue{ID: Slug(name), Name: name, Active: true})
	}
	return t
}

// Find returns the value with the given id in a category.
func (t *LookupTable) Find(category, id string) (LookupValue, bool) {
	for _, v := range t.Categories[category] {
		if v.ID == id {
			return v, true
		}
	}
	return LookupValue{}, false
}

// FindByName matches case-insensitively on display name.
func (t *LookupTable) FindByName(category, name string) (LookupValue, bool) {
	for _, v := range t.Categories[category] {
		if strings.EqualFold(v.Name, strings.TrimSpace(name)) {
			return v, true
		}
	}
	return LookupValue{}, false
}

// legacyLookupTable is the version 1 shape: flat lists of names, written by
// the first generation of the tracker.
type legacyLookupTable struct {
	SchemaVersion   int               `json:"schema_version"`
	WorkTypes       []string          `json:"work_types"`
	Employees       []json.RawMessage `json:"employees"`
	ProjectStatuses []string          `json:"project_statuses"`
	Campuses        []string          `json:"campuses"`
	EffortTypes     []string          `json:"effort_types"`
}

type legacyEmployee struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Role string `json:"role"`
}

// UnmarshalJSON upgrades version 1 files (flat name lists) to the current
// shape. Files declaring a newer schema fail with ErrSchemaTooNew.
func (t *LookupTable) UnmarshalJSON(data []byte) error {
	var probe struct {
		SchemaVersion int `json:"schema_version"`
	}
	if err := json.Unmarshal(data, &probe); err != nil {
		return err
	}
	if probe.SchemaVersion > SchemaVersion {
		return fmt.Errorf("team data declares version %d: %w", probe.SchemaVersion, ErrSchemaTooNew)
	}

	if probe.SchemaVersion >= SchemaVersion {
		type current LookupTable
		var c current
		if err := json.Unmarshal(data, &c); err != nil {
			return err
		}
		*t = LookupTable(c)
		if t.Categories == nil {
			t.Categories = map[string][]LookupValue{}
		}
		return nil
	}

	var legacy legacyLookupTable
	if err := json.Unmarshal(data, &legacy); err != nil {
		return err
	}
	*t = *upgradeLookupTable(&legacy)
	return nil
}

func upgradeLookupTable(legacy *legacyLookupTable) *LookupTable {
	t := &LookupTable{
		SchemaVersion: SchemaVersion,
		Categories:    map[string][]LookupValue{},
	}
	names := map[string][]string{
		CategoryWorkTypes:   legacy.WorkTypes,
		CategoryStatuses:    legacy.ProjectStatuses,
		CategoryCampuses:    legacy.Campuses,
		CategoryEffortTypes: legacy.EffortTypes,
	}
	for _, c := range Categories {
		t.Categories[c] = []LookupValue{}
	}
	for category, list := range names {
		for _, name := range list {
			t.Categories[category] = append(t.Categories[category],
				LookupValue{ID: Slug(name), Name: name, Active: true})
		}
	}
	for _, raw := range legacy.Employees {
		var emp legacyEmployee
		if err := json.Unmarshal(raw, &emp); err != nil || emp.ID == "" {
			continue
		}
		t.Categories[CategoryEmployees] = append(t.Categories[CategoryEmployees],
			LookupValue{ID: emp.ID, Name: emp.Name, Active: true, Role: emp.Role})
	}
	return t
}
