package repo

import (
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/kmarcini/protrack/internal/domain"
)

// Modules is a typed view over the chunk modules embedded in project files.
// Because modules live inside their project's record, every mutation is one
// atomic write of that file and deleting the project removes them with it.
type Modules struct {
	projects *Projects
	lookups  *Lookups
}

func NewModules(projects *Projects, lookups *Lookups) *Modules {
	return &Modules{projects: projects, lookups: lookups}
}

// List returns a project's modules in sequence order.
func (m *Modules) List(projectID string) ([]domain.ChunkModule, error) {
	proj, err := m.projects.Get(projectID)
	if err != nil {
		return nil, err
	}
	return proj.Modules, nil
}

// Add appends a module with the next sequence number.
func (m *Modules) Add(projectID, name string, by string) (domain.ChunkModule, error) {
	proj, err := m.projects.Get(projectID)
	if err != nil {
		return domain.ChunkModule{}, err
	}
	next := 1
	for _, mod := range proj.Modules {
		if mod.Number >= next {
			next = mod.Number + 1
		}
	}
	mod := domain.ChunkModule{
		ID:     uuid.NewString(),
		Number: next,
		Name:   strings.TrimSpace(name),
		Status: domain.ModuleStatusNotStarted,
	}
	proj.Modules = append(proj.Modules, mod)
	if err := m.saveProject(proj, by); err != nil {
		return domain.ChunkModule{}, err
	}
	return mod, nil
}

// SetStatus moves a module through the production statuses. The status name
// must be an active value in the statuses lookup.
func (m *Modules) SetStatus(projectID, moduleID, status string, by string) error {
	table, err := m.lookups.Table()
	if err != nil {
		return err
	}
	v, ok := table.FindByName(domain.CategoryStatuses, status)
	if !ok || !v.Active {
		return &domain.ValidationError{
			Field:  "status",
			Reason: fmt.Sprintf("%q is not an active status", status),
		}
	}
	proj, err := m.projects.Get(projectID)
	if err != nil {
		return err
	}
	for i := range proj.Modules {
		if proj.Modules[i].ID == moduleID {
			proj.Modules[i].Status = v.Name
			return m.saveProject(proj, by)
		}
	}
	return &domain.NotFoundError{Kind: "module", ID: moduleID}
}

// Delete hard-removes one module. Modules carry no time data, so there is
// nothing to cascade.
func (m *Modules) Delete(projectID, moduleID string, by string) error {
	proj, err := m.projects.Get(projectID)
	if err != nil {
		return err
	}
	for i := range proj.Modules {
		if proj.Modules[i].ID == moduleID {
			proj.Modules = append(proj.Modules[:i:i], proj.Modules[i+1:]...)
			return m.saveProject(proj, by)
		}
	}
	return &domain.NotFoundError{Kind: "module", ID: moduleID}
}

func (m *Modules) saveProject(proj *domain.Project, by string) error {
	proj.ModifiedAt = m.projects.clock.Now()
	proj.ModifiedBy = by
	return m.projects.store.Save(projectPath(proj.ID), proj)
}
