package repo

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"strings"

	"github.com/kmarcini/protrack/internal/domain"
	"github.com/kmarcini/protrack/internal/record"
)

// Lookups manages the shared lookup tables in team_data.json.
type Lookups struct {
	store *record.Store
	log   *slog.Logger
}

func NewLookups(store *record.Store, logger *slog.Logger) *Lookups {
	if logger == nil {
		logger = discard()
	}
	return &Lookups{store: store, log: logger}
}

// Table loads the current lookup tables from disk. A missing file yields the
// seeded defaults, matching what Open would have written.
func (l *Lookups) Table() (*domain.LookupTable, error) {
	var t domain.LookupTable
	if err := l.store.Load(record.TeamDataFile, &t); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return domain.DefaultLookupTable(), nil
		}
		return nil, err
	}
	if t.Categories == nil {
		t.Categories = map[string][]domain.LookupValue{}
	}
	return &t, nil
}

// List returns the values of one category, active ones only unless
// includeInactive is set.
func (l *Lookups) List(category string, includeInactive bool) ([]domain.LookupValue, error) {
	if err := checkCategory(category); err != nil {
		return nil, err
	}
	t, err := l.Table()
	if err != nil {
		return nil, err
	}
	var out []domain.LookupValue
	for _, v := range t.Categories[category] {
		if v.Active || includeInactive {
			out = append(out, v)
		}
	}
	return out, nil
}

// Get returns one value by id.
func (l *Lookups) Get(category, id string) (domain.LookupValue, error) {
	if err := checkCategory(category); err != nil {
		return domain.LookupValue{}, err
	}
	t, err := l.Table()
	if err != nil {
		return domain.LookupValue{}, err
	}
	v, ok := t.Find(category, id)
	if !ok {
		return domain.LookupValue{}, &domain.NotFoundError{Kind: category + " value", ID: id}
	}
	return v, nil
}

// Add creates a new lookup value. Names are unique per category, compared
// case-insensitively. role only applies to employees.
func (l *Lookups) Add(category, name, role string) (domain.LookupValue, error) {
	if err := checkCategory(category); err != nil {
		return domain.LookupValue{}, err
	}
	t, err := l.Table()
	if err != nil {
		return domain.LookupValue{}, err
	}
	v, err := addValue(t, category, strings.TrimSpace(name), role)
	if err != nil {
		return domain.LookupValue{}, err
	}
	if err := l.save(t); err != nil {
		return domain.LookupValue{}, err
	}
	l.log.Info("lookup value added", "category", category, "id", v.ID)
	return v, nil
}

// Rename changes the display name, keeping the id stable so references in
// projects and entries stay valid.
func (l *Lookups) Rename(category, id, newName string) (domain.LookupValue, error) {
	if err := checkCategory(category); err != nil {
		return domain.LookupValue{}, err
	}
	newName = strings.TrimSpace(newName)
	if newName == "" {
		return domain.LookupValue{}, &domain.ValidationError{Field: "name", Reason: "must not be empty"}
	}
	t, err := l.Table()
	if err != nil {
		return domain.LookupValue{}, err
	}
	if existing, ok := t.FindByName(category, newName); ok && existing.ID != id {
		return domain.LookupValue{}, &domain.ConflictError{
			Reason: fmt.Sprintf("%s %q already exists", category, newName),
		}
	}
	values := t.Categories[category]
	for i := range values {
		if values[i].ID == id {
			values[i].Name = newName
			if err := l.save(t); err != nil {
				return domain.LookupValue{}, err
			}
			return values[i], nil
		}
	}
	return domain.LookupValue{}, &domain.NotFoundError{Kind: category + " value", ID: id}
}

// Deactivate soft-removes a value. Idempotent: deactivating twice is fine.
func (l *Lookups) Deactivate(category, id string) error {
	return l.setActive(category, id, false)
}

// Activate restores a previously deactivated value.
func (l *Lookups) Activate(category, id string) error {
	return l.setActive(category, id, true)
}

func (l *Lookups) setActive(category, id string, active bool) error {
	if err := checkCategory(category); err != nil {
		return err
	}
	t, err := l.Table()
	if err != nil {
		return err
	}
	values := t.Categories[category]
	for i := range values {
		if values[i].ID == id {
			if values[i].Active == active {
				return nil
			}
			values[i].Active = active
			return l.save(t)
		}
	}
	return &domain.NotFoundError{Kind: category + " value", ID: id}
}

// Delete hard-removes a value. Disallowed while any project or time entry
// still references it; deactivate instead.
func (l *Lookups) Delete(category, id string) error {
	if err := checkCategory(category); err != nil {
		return err
	}
	inUse, where, err := l.referenced(category, id)
	if err != nil {
		return err
	}
	if inUse {
		return &domain.ConflictError{
			Reason: fmt.Sprintf("%s value %q is still referenced by %s; deactivate it instead", category, id, where),
		}
	}
	t, err := l.Table()
	if err != nil {
		return err
	}
	values := t.Categories[category]
	for i := range values {
		if values[i].ID == id {
			t.Categories[category] = append(values[:i:i], values[i+1:]...)
			return l.save(t)
		}
	}
	return &domain.NotFoundError{Kind: category + " value", ID: id}
}

// BulkImport adds a batch of names to a category, skipping duplicates. Rows
// are validated independently; a bad row never aborts the batch. On
// cancellation the values accepted so far are persisted before returning.
func (l *Lookups) BulkImport(ctx context.Context, category string, names []string) (added, skipped int, errs []RowError, err error) {
	if err := checkCategory(category); err != nil {
		return 0, 0, nil, err
	}
	t, err := l.Table()
	if err != nil {
		return 0, 0, nil, err
	}
	for i, name := range names {
		if ctxErr := ctx.Err(); ctxErr != nil {
			if added > 0 {
				if saveErr := l.save(t); saveErr != nil {
					return added, skipped, errs, saveErr
				}
			}
			return added, skipped, errs, ctxErr
		}
		if _, addErr := addValue(t, category, strings.TrimSpace(name), ""); addErr != nil {
			var conflict *domain.ConflictError
			if errors.As(addErr, &conflict) {
				skipped++
			} else {
				errs = append(errs, RowError{Row: i + 1, Err: addErr})
			}
			continue
		}
		added++
	}
	if added > 0 {
		if err := l.save(t); err != nil {
			return 0, skipped, errs, err
		}
	}
	l.log.Info("lookup import finished", "category", category, "added", added, "skipped", skipped, "errors", len(errs))
	return added, skipped, errs, nil
}

func (l *Lookups) save(t *domain.LookupTable) error {
	t.SchemaVersion = domain.SchemaVersion
	return l.store.Save(record.TeamDataFile, t)
}

// referenced reports whether any project or time entry still points at the
// value. Corrupt files abort the check: deleting based on a partial scan
// could orphan references.
func (l *Lookups) referenced(category, id string) (bool, string, error) {
	switch category {
	case domain.CategoryCampuses, domain.CategoryEffortTypes, domain.CategoryStatuses:
		names, err := l.store.List(record.ProjectsDir)
		if err != nil {
			return false, "", err
		}
		for _, name := range names {
			var p domain.Project
			if err := l.store.Load(record.ProjectsDir+"/"+name, &p); err != nil {
				return false, "", err
			}
			ref := map[string]string{
				domain.CategoryCampuses:    p.CampusID,
				domain.CategoryEffortTypes: p.EffortTypeID,
				domain.CategoryStatuses:    p.StatusID,
			}[category]
			if ref == id {
				return true, "project " + p.ID, nil
			}
		}
	case domain.CategoryWorkTypes, domain.CategoryEmployees:
		names, err := l.store.List(record.TimeDir)
		if err != nil {
			return false, "", err
		}
		for _, name := range names {
			var f domain.TimeFile
			if err := l.store.Load(record.TimeDir+"/"+name, &f); err != nil {
				return false, "", err
			}
			for _, e := range f.Entries {
				if (category == domain.CategoryWorkTypes && e.WorkTypeID == id) ||
					(category == domain.CategoryEmployees && e.UserID == id) {
					return true, "time entry " + e.ID, nil
				}
			}
		}
	}
	return false, "", nil
}

func addValue(t *domain.LookupTable, category, name, role string) (domain.LookupValue, error) {
	if name == "" {
		return domain.LookupValue{}, &domain.ValidationError{Field: "name", Reason: "must not be empty"}
	}
	id := domain.Slug(name)
	if id == "" {
		return domain.LookupValue{}, &domain.ValidationError{Field: "name", Reason: "must contain letters or digits"}
	}
	if existing, ok := t.FindByName(category, name); ok {
		return domain.LookupValue{}, &domain.ConflictError{
			Reason: fmt.Sprintf("%s %q already exists (id %s)", category, name, existing.ID),
		}
	}
	if existing, ok := t.Find(category, id); ok {
		return domain.LookupValue{}, &domain.ConflictError{
			Reason: fmt.Sprintf("%s %q collides with existing value %q (id %s)", category, name, existing.Name, id),
		}
	}
	v := domain.LookupValue{ID: id, Name: name, Active: true, Role: role}
	t.Categories[category] = append(t.Categories[category], v)
	return v, nil
}

func checkCategory(category string) error {
	for _, c := range domain.Categories {
		if c == category {
			return nil
		}
	}
	return &domain.ValidationError{
		Field:  "category",
		Reason: fmt.Sprintf("unknown category %q (valid: %s)", category, strings.Join(domain.Categories, ", ")),
	}
}
