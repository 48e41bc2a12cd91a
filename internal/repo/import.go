package repo

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/kmarcini/protrack/internal/domain"
)

// ImportRow is one row of a project bulk import, as produced by the CSV or
// spreadsheet reader. Lookup fields carry display names and are resolved
// against the current table.
type ImportRow struct {
	Name        string
	TargetHours string
	Campus      string
	Offer       string
	SubOffer    string
	EffortType  string
	Status      string
	Notes       string
}

// RowError ties an import failure to its 1-based row number.
type RowError struct {
	Row int
	Err error
}

func (e RowError) Error() string {
	return fmt.Sprintf("row %d: %v", e.Row, e.Err)
}

// ImportResult summarizes a bulk import. Skipped counts rows whose project
// name already exists; Errors holds rows that failed validation.
type ImportResult struct {
	Created int
	Skipped int
	Errors  []RowError
}

// BulkImport creates projects from rows with partial-success semantics: each
// row is validated independently, bad rows are reported and skipped, and a
// cancellation between rows leaves every previously created project intact
// on disk.
func (p *Projects) BulkImport(ctx context.Context, rows []ImportRow, createdBy string) (ImportResult, error) {
	var result ImportResult
	table, err := p.lookups.Table()
	if err != nil {
		return result, err
	}

	for i, row := range rows {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return result, ctxErr
		}
		draft, err := p.rowToDraft(row, table, createdBy)
		if err != nil {
			result.Errors = append(result.Errors, RowError{Row: i + 1, Err: err})
			continue
		}
		if _, err := p.Create(draft); err != nil {
			var conflict *domain.ConflictError
			if errors.As(err, &conflict) {
				result.Skipped++
				continue
			}
			result.Errors = append(result.Errors, RowError{Row: i + 1, Err: err})
			continue
		}
		result.Created++
	}
	p.log.Info("project import finished",
		"created", result.Created, "skipped", result.Skipped, "errors", len(result.Errors))
	return result, nil
}

func (p *Projects) rowToDraft(row ImportRow, table *domain.LookupTable, createdBy string) (ProjectDraft, error) {
	draft := ProjectDraft{
		Name:      strings.TrimSpace(row.Name),
		Offer:     strings.TrimSpace(row.Offer),
		SubOffer:  strings.TrimSpace(row.SubOffer),
		Notes:     row.Notes,
		CreatedBy: createdBy,
	}
	if draft.Name == "" {
		return draft, &domain.ValidationError{Field: "name", Reason: "must not be empty"}
	}
	if s := strings.TrimSpace(row.TargetHours); s != "" {
		target, err := decimal.NewFromString(s)
		if err != nil {
			return draft, &domain.ValidationError{Field: "target view hours", Reason: fmt.Sprintf("%q is not a number", s)}
		}
		if target.IsNegative() {
			return draft, &domain.ValidationError{Field: "target view hours", Reason: "must not be negative"}
		}
		draft.TargetViewHours = target
	}
	for _, ref := range []struct {
		category string
		name     string
		field    *string
	}{
		{domain.CategoryCampuses, row.Campus, &draft.CampusID},
		{domain.CategoryEffortTypes, row.EffortType, &draft.EffortTypeID},
		{domain.CategoryStatuses, row.Status, &draft.StatusID},
	} {
		name := strings.TrimSpace(ref.name)
		if name == "" {
			continue
		}
		v, ok := table.FindByName(ref.category, name)
		if !ok {
			return draft, &domain.ValidationError{
				Field:  ref.category,
				Reason: fmt.Sprintf("no %s value named %q", ref.category, name),
			}
		}
		*ref.field = v.ID
	}
	return draft, nil
}
