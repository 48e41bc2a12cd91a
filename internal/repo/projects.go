package repo

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"github.com/kmarcini/protrack/internal/domain"
	"github.com/kmarcini/protrack/internal/record"
)

// Clock supplies the current time. Injected so tests and the timer engine
// can run against a deterministic clock.
type Clock interface {
	Now() time.Time
}

// SystemClock is the real clock.
type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now() }

// ProjectDraft is the input for creating a project. Lookup references are
// checked against the current table: they must exist and be active.
type ProjectDraft struct {
	Name            string `validate:"required,max=200"`
	TargetViewHours decimal.Decimal
	CampusID        string
	Offer           string
	SubOffer        string
	EffortTypeID    string
	StatusID        string
	Notes           string
	CreatedBy       string
}

// ProjectPatch updates a subset of fields. Nil pointers leave fields alone;
// the project id itself is immutable.
type ProjectPatch struct {
	Name            *string
	TargetViewHours *decimal.Decimal
	CampusID        *string
	Offer           *string
	SubOffer        *string
	EffortTypeID    *string
	StatusID        *string
	Notes           *string
	ModifiedBy      string
}

// ProjectFilter narrows List results.
type ProjectFilter struct {
	IncludeArchived bool
	StatusID        string
	CampusID        string
}

// Projects is the repository for project record files.
type Projects struct {
	store    *record.Store
	lookups  *Lookups
	clock    Clock
	validate *validator.Validate
	log      *slog.Logger
}

func NewProjects(store *record.Store, lookups *Lookups, clock Clock, logger *slog.Logger) *Projects {
	if clock == nil {
		clock = SystemClock{}
	}
	if logger == nil {
		logger = discard()
	}
	return &Projects{
		store:    store,
		lookups:  lookups,
		clock:    clock,
		validate: newValidate(),
		log:      logger,
	}
}

func projectPath(id string) string {
	return record.ProjectsDir + "/" + id + ".json"
}

// List loads every project matching the filter. A corrupt file is skipped
// with a warning rather than hiding the rest of the portfolio; Get on the
// same id will still surface the corruption.
func (p *Projects) List(filter ProjectFilter) ([]domain.Project, error) {
	names, err := p.store.List(record.ProjectsDir)
	if err != nil {
		return nil, err
	}
	var out []domain.Project
	for _, name := range names {
		var proj domain.Project
		if err := p.store.Load(record.ProjectsDir+"/"+name, &proj); err != nil {
			var corrupt *domain.CorruptError
			if errors.As(err, &corrupt) {
				p.log.Warn("skipping corrupt project file", "path", corrupt.Path, "error", corrupt.Err)
				continue
			}
			return nil, err
		}
		if !filter.IncludeArchived && proj.Archived {
			continue
		}
		if filter.StatusID != "" && proj.StatusID != filter.StatusID {
			continue
		}
		if filter.CampusID != "" && proj.CampusID != filter.CampusID {
			continue
		}
		out = append(out, proj)
	}
	return out, nil
}

// Get loads one project by id.
func (p *Projects) Get(id string) (*domain.Project, error) {
	var proj domain.Project
	if err := p.store.Load(projectPath(id), &proj); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, &domain.NotFoundError{Kind: "project", ID: id}
		}
		return nil, err
	}
	return &proj, nil
}

// Create validates the draft, assigns an id, and persists the new project.
func (p *Projects) Create(draft ProjectDraft) (*domain.Project, error) {
	table, err := p.lookups.Table()
	if err != nil {
		return nil, err
	}
	if err := p.checkDraft(draft, table); err != nil {
		return nil, err
	}
	if existing, err := p.findByName(draft.Name); err != nil {
		return nil, err
	} else if existing != nil {
		return nil, &domain.ConflictError{
			Reason: fmt.Sprintf("project named %q already exists (id %s)", draft.Name, existing.ID),
		}
	}

	now := p.clock.Now()
	proj := &domain.Project{
		SchemaVersion:   domain.SchemaVersion,
		ID:              domain.NewProjectID(now),
		Name:            strings.TrimSpace(draft.Name),
		TargetViewHours: draft.TargetViewHours,
		CampusID:        draft.CampusID,
		Offer:           draft.Offer,
		SubOffer:        draft.SubOffer,
		EffortTypeID:    draft.EffortTypeID,
		StatusID:        draft.StatusID,
		Notes:           draft.Notes,
		CreatedAt:       now,
		CreatedBy:       draft.CreatedBy,
		ModifiedAt:      now,
		ModifiedBy:      draft.CreatedBy,
	}
	if err := p.store.Save(projectPath(proj.ID), proj); err != nil {
		return nil, err
	}
	p.log.Info("project created", "id", proj.ID, "name", proj.Name)
	return proj, nil
}

// Update re-reads the project from disk, applies the patch, re-validates,
// and saves. Concurrent edits from another machine still resolve
// last-writer-wins, but validating against current disk state narrows the
// window.
func (p *Projects) Update(id string, patch ProjectPatch) (*domain.Project, error) {
	proj, err := p.Get(id)
	if err != nil {
		return nil, err
	}
	table, err := p.lookups.Table()
	if err != nil {
		return nil, err
	}

	if patch.Name != nil {
		name := strings.TrimSpace(*patch.Name)
		if name == "" {
			return nil, &domain.ValidationError{Field: "name", Reason: "must not be empty"}
		}
		if existing, err := p.findByName(name); err != nil {
			return nil, err
		} else if existing != nil && existing.ID != id {
			return nil, &domain.ConflictError{
				Reason: fmt.Sprintf("project named %q already exists (id %s)", name, existing.ID),
			}
		}
		proj.Name = name
	}
	if patch.TargetViewHours != nil {
		if patch.TargetViewHours.IsNegative() {
			return nil, &domain.ValidationError{Field: "target view hours", Reason: "must not be negative"}
		}
		proj.TargetViewHours = *patch.TargetViewHours
	}
	for _, ref := range []struct {
		category string
		value    *string
		field    *string
	}{
		{domain.CategoryCampuses, patch.CampusID, &proj.CampusID},
		{domain.CategoryEffortTypes, patch.EffortTypeID, &proj.EffortTypeID},
		{domain.CategoryStatuses, patch.StatusID, &proj.StatusID},
	} {
		if ref.value == nil {
			continue
		}
		if err := checkLookupRef(table, ref.category, *ref.value); err != nil {
			return nil, err
		}
		*ref.field = *ref.value
	}
	if patch.Offer != nil {
		proj.Offer = *patch.Offer
	}
	if patch.SubOffer != nil {
		proj.SubOffer = *patch.SubOffer
	}
	if patch.Notes != nil {
		proj.Notes = *patch.Notes
	}

	proj.ModifiedAt = p.clock.Now()
	proj.ModifiedBy = patch.ModifiedBy
	if err := p.store.Save(projectPath(id), proj); err != nil {
		return nil, err
	}
	return proj, nil
}

// Archive soft-deletes a project: it disappears from default listings and
// rejects new time entries. Idempotent.
func (p *Projects) Archive(id string, by string) error {
	proj, err := p.Get(id)
	if err != nil {
		return err
	}
	if proj.Archived {
		return nil
	}
	proj.Archived = true
	proj.ModifiedAt = p.clock.Now()
	proj.ModifiedBy = by
	return p.store.Save(projectPath(id), proj)
}

// Unarchive restores an archived project. Idempotent.
func (p *Projects) Unarchive(id string, by string) error {
	proj, err := p.Get(id)
	if err != nil {
		return err
	}
	if !proj.Archived {
		return nil
	}
	proj.Archived = false
	proj.ModifiedAt = p.clock.Now()
	proj.ModifiedBy = by
	return p.store.Save(projectPath(id), proj)
}

// Delete hard-removes a project and, with it, its embedded chunk modules.
// Disallowed while time entries still reference the project: that history
// must stay attributable.
func (p *Projects) Delete(id string) error {
	if _, err := p.Get(id); err != nil {
		return err
	}
	names, err := p.store.List(record.TimeDir)
	if err != nil {
		return err
	}
	for _, name := range names {
		var f domain.TimeFile
		if err := p.store.Load(record.TimeDir+"/"+name, &f); err != nil {
			return err
		}
		for _, e := range f.Entries {
			if e.ProjectID == id {
				return &domain.ConflictError{
					Reason: fmt.Sprintf("project %s has logged time entries; archive it instead", id),
				}
			}
		}
	}
	if err := p.store.Remove(projectPath(id)); err != nil {
		return err
	}
	p.log.Info("project deleted", "id", id)
	return nil
}

func (p *Projects) checkDraft(draft ProjectDraft, table *domain.LookupTable) error {
	if err := p.validate.Struct(draft); err != nil {
		if field, tag, ok := firstInvalidField(err); ok {
			return &domain.ValidationError{Field: field, Reason: "failed " + tag + " check"}
		}
		return err
	}
	if draft.TargetViewHours.IsNegative() {
		return &domain.ValidationError{Field: "target view hours", Reason: "must not be negative"}
	}
	for _, ref := range []struct {
		category string
		value    string
	}{
		{domain.CategoryCampuses, draft.CampusID},
		{domain.CategoryEffortTypes, draft.EffortTypeID},
		{domain.CategoryStatuses, draft.StatusID},
	} {
		if err := checkLookupRef(table, ref.category, ref.value); err != nil {
			return err
		}
	}
	return nil
}

func (p *Projects) findByName(name string) (*domain.Project, error) {
	all, err := p.List(ProjectFilter{IncludeArchived: true})
	if err != nil {
		return nil, err
	}
	for i := range all {
		if strings.EqualFold(all[i].Name, strings.TrimSpace(name)) {
			return &all[i], nil
		}
	}
	return nil, nil
}

func checkLookupRef(table *domain.LookupTable, category, id string) error {
	if id == "" {
		return nil
	}
	v, ok := table.Find(category, id)
	if !ok {
		return &domain.ValidationError{
			Field:  category,
			Reason: fmt.Sprintf("no %s value with id %q", category, id),
		}
	}
	if !v.Active {
		return &domain.ValidationError{
			Field:  category,
			Reason: fmt.Sprintf("%s value %q is deactivated", category, id),
		}
	}
	return nil
}
