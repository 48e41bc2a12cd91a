package domain

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Chunk module statuses reuse the project status lookup names.
const ModuleStatusNotStarted = "Not Started"

// ChunkModule is a production sub-division of a project. It carries status
// only, never time data, and lives inside its project's record file so that
// deleting the project removes its modules in the same atomic write.
type ChunkModule struct {
	ID     string `json:"id"`
	Number int    `json:"number"`
	Name   string `json:"name,omitempty"`
	Status string `json:"status"`
}

// Project is one record file under projects/.
type Project struct {
	SchemaVersion   int             `json:"schema_version"`
	ID              string          `json:"id"`
	Name            string          `json:"name"`
	TargetViewHours decimal.Decimal `json:"target_view_hours"`
	CampusID        string          `json:"campus_id,omitempty"`
	Offer           string          `json:"offer,omitempty"`
	SubOffer        string          `json:"sub_offer,omitempty"`
	EffortTypeID    string          `json:"effort_type_id,omitempty"`
	StatusID        string          `json:"status_id,omitempty"`
	Archived        bool            `json:"archived"`
	Notes           string          `json:"notes,omitempty"`
	Modules         []ChunkModule   `json:"modules,omitempty"`
	CreatedAt       time.Time       `json:"created_at"`
	CreatedBy       string          `json:"created_by,omitempty"`
	ModifiedAt      time.Time       `json:"modified_at"`
	ModifiedBy      string          `json:"modified_by,omitempty"`
}

// NewProjectID builds a readable, globally unique project id. The timestamp
// keeps filenames sortable; the suffix breaks same-second collisions.
func NewProjectID(now time.Time) string {
	suffix := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:4])
	return fmt.Sprintf("PRJ-%s-%s", now.Format("20060102150405"), suffix)
}

// legacyProject is the version 1 shape: float target_hours, free-text lookup
// names, and modules under "tms".
type legacyProject struct {
	ID          string        `json:"id"`
	Name        string        `json:"name"`
	TargetHours float64       `json:"target_hours"`
	Campus      string        `json:"campus"`
	Offer       string        `json:"offer"`
	SubOffer    string        `json:"sub_offer"`
	EffortType  string        `json:"effort_type"`
	Status      string        `json:"status"`
	Notes       string        `json:"notes"`
	TMs         []legacyTM    `json:"tms"`
	CreatedAt   string        `json:"created_at"`
	CreatedBy   string        `json:"created_by"`
	ModifiedAt  string        `json:"modified_at"`
	ModifiedBy  string        `json:"modified_by"`
}

type legacyTM struct {
	Number int    `json:"number"`
	Name   string `json:"name"`
	Status string `json:"status"`
}

// UnmarshalJSON upgrades version 1 project files. Lookup names migrate to
// their slug ids, matching the ids the lookup table migration produces.
func (p *Project) UnmarshalJSON(data []byte) error {
	var probe struct {
		SchemaVersion int `json:"schema_version"`
	}
	if err := json.Unmarshal(data, &probe); err != nil {
		return err
	}
	if probe.SchemaVersion > SchemaVersion {
		return fmt.Errorf("project declares version %d: %w", probe.SchemaVersion, ErrSchemaTooNew)
	}

	if probe.SchemaVersion >= SchemaVersion {
		type current Project
		var c current
		if err := json.Unmarshal(data, &c); err != nil {
			return err
		}
		*p = Project(c)
		return nil
	}

	var legacy legacyProject
	if err := json.Unmarshal(data, &legacy); err != nil {
		return err
	}
	*p = Project{
		SchemaVersion:   SchemaVersion,
		ID:              legacy.ID,
		Name:            legacy.Name,
		TargetViewHours: decimal.NewFromFloat(legacy.TargetHours),
		CampusID:        Slug(legacy.Campus),
		Offer:           legacy.Offer,
		SubOffer:        legacy.SubOffer,
		EffortTypeID:    Slug(legacy.EffortType),
		StatusID:        Slug(legacy.Status),
		Notes:           legacy.Notes,
		CreatedBy:       legacy.CreatedBy,
		ModifiedBy:      legacy.ModifiedBy,
		CreatedAt:       parseLegacyTime(legacy.CreatedAt),
		ModifiedAt:      parseLegacyTime(legacy.ModifiedAt),
	}
	for _, tm := range legacy.TMs {
		status := tm.Status
		if status == "" {
			status = ModuleStatusNotStarted
		}
		// Deterministic id: the file is re-read on every load and may not be
		// rewritten at v2 for a while, so migrated ids must be stable.
		p.Modules = append(p.Modules, ChunkModule{
			ID:     fmt.Sprintf("%s-tm-%d", legacy.ID, tm.Number),
			Number: tm.Number,
			Name:   tm.Name,
			Status: status,
		})
	}
	return nil
}

func parseLegacyTime(s string) time.Time {
	for _, layout := range []string{time.RFC3339, "2006-01-02T15:04:05.999999", "2006-01-02"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Time{}
}
