package repo

import (
	"errors"
	"io/fs"
	"log/slog"
	"sort"

	"github.com/kmarcini/protrack/internal/domain"
	"github.com/kmarcini/protrack/internal/record"
)

// starredFile is a per-user file at the data folder root, never shared
// between users, so it carries no contention concerns.
type starredFile struct {
	SchemaVersion int      `json:"schema_version"`
	Starred       []string `json:"starred"`
}

// Stars tracks which projects a user pinned for quick access.
type Stars struct {
	store *record.Store
	log   *slog.Logger
}

func NewStars(store *record.Store, logger *slog.Logger) *Stars {
	if logger == nil {
		logger = discard()
	}
	return &Stars{store: store, log: logger}
}

func starredPath(userID string) string {
	return userID + "_starred.json"
}

// List returns the user's starred project ids.
func (s *Stars) List(userID string) (map[string]bool, error) {
	var f starredFile
	if err := s.store.Load(starredPath(userID), &f); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return map[string]bool{}, nil
		}
		return nil, err
	}
	out := make(map[string]bool, len(f.Starred))
	for _, id := range f.Starred {
		out[id] = true
	}
	return out, nil
}

// Set stars or unstars a project for the user. Idempotent.
func (s *Stars) Set(userID, projectID string, starred bool) error {
	current, err := s.List(userID)
	if err != nil {
		return err
	}
	if current[projectID] == starred {
		return nil
	}
	if starred {
		current[projectID] = true
	} else {
		delete(current, projectID)
	}
	ids := make([]string, 0, len(current))
	for id := range current {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return s.store.Save(starredPath(userID), &starredFile{
		SchemaVersion: domain.SchemaVersion,
		Starred:       ids,
	})
}
