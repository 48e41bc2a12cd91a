package repo

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/kmarcini/protrack/internal/domain"
	"github.com/kmarcini/protrack/internal/record"
)

// EntryDraft is the input for creating a time entry. End nil means the entry
// starts running.
type EntryDraft struct {
	ProjectID  string `validate:"required"`
	UserID     string `validate:"required"`
	WorkTypeID string `validate:"required"`
	Start      time.Time
	End        *time.Time
	Notes      string
	Manual     bool
}

// EntryFilter narrows List results. From/To bound the entry start date,
// inclusive; zero values leave that side unbounded.
type EntryFilter struct {
	From           time.Time
	To             time.Time
	ProjectID      string
	WorkTypeID     string
	UserID         string
	IncludeRunning bool
}

// Entries is the repository for time-entry partitions under time/.
type Entries struct {
	store    *record.Store
	projects *Projects
	lookups  *Lookups
	validate *validator.Validate
	log      *slog.Logger
}

func NewEntries(store *record.Store, projects *Projects, lookups *Lookups, logger *slog.Logger) *Entries {
	if logger == nil {
		logger = discard()
	}
	return &Entries{
		store:    store,
		projects: projects,
		lookups:  lookups,
		validate: newValidate(),
		log:      logger,
	}
}

func timeFilePath(userID, month string) string {
	return record.TimeDir + "/" + domain.TimeFileName(userID, month)
}

// Create validates and persists a new entry into its user-month partition.
// The project must exist and not be archived; a completed entry must end
// strictly after it starts; an open entry is rejected while the user already
// has one running.
func (r *Entries) Create(draft EntryDraft) (*domain.TimeEntry, error) {
	if err := r.validate.Struct(draft); err != nil {
		if field, tag, ok := firstInvalidField(err); ok {
			return nil, &domain.ValidationError{Field: field, Reason: "failed " + tag + " check"}
		}
		return nil, err
	}
	if draft.Start.IsZero() {
		return nil, &domain.ValidationError{Field: "start", Reason: "must be set"}
	}
	if draft.End != nil && !draft.End.After(draft.Start) {
		return nil, domain.ErrInvalidDuration
	}

	proj, err := r.projects.Get(draft.ProjectID)
	if err != nil {
		return nil, err
	}
	if proj.Archived {
		return nil, &domain.ConflictError{
			Reason: fmt.Sprintf("project %s is archived and rejects new time entries", proj.ID),
		}
	}
	table, err := r.lookups.Table()
	if err != nil {
		return nil, err
	}
	if err := checkLookupRef(table, domain.CategoryWorkTypes, draft.WorkTypeID); err != nil {
		return nil, err
	}

	if draft.End == nil {
		open, err := r.OpenEntry(draft.UserID)
		if err != nil {
			return nil, err
		}
		if open != nil {
			return nil, domain.ErrAlreadyRunning
		}
	}

	entry := domain.TimeEntry{
		ID:         uuid.NewString(),
		ProjectID:  draft.ProjectID,
		UserID:     draft.UserID,
		WorkTypeID: draft.WorkTypeID,
		Start:      draft.Start,
		End:        draft.End,
		Notes:      draft.Notes,
		Manual:     draft.Manual,
	}
	if err := r.appendEntry(entry); err != nil {
		return nil, err
	}
	r.log.Info("time entry created", "id", entry.ID, "project", entry.ProjectID, "running", entry.Running())
	return &entry, nil
}

// Get scans for one entry by id. The user id bounds the scan to that user's
// partitions.
func (r *Entries) Get(userID, id string) (*domain.TimeEntry, error) {
	files, err := r.userFiles(userID)
	if err != nil {
		return nil, err
	}
	for _, name := range files {
		f, err := r.loadFile(name)
		if err != nil {
			return nil, err
		}
		if f == nil {
			continue
		}
		for i := range f.Entries {
			if f.Entries[i].ID == id && f.Entries[i].UserID == userID {
				return &f.Entries[i], nil
			}
		}
	}
	return nil, &domain.NotFoundError{Kind: "time entry", ID: id}
}

// List loads every entry matching the filter, checking for cancellation
// between partition files. A corrupt partition aborts with its path: report
// totals over a silently truncated scan would be wrong in a way nobody
// notices.
func (r *Entries) List(ctx context.Context, filter EntryFilter) ([]domain.TimeEntry, error) {
	var files []string
	var err error
	if filter.UserID != "" {
		files, err = r.userFiles(filter.UserID)
	} else {
		files, err = r.store.List(record.TimeDir)
	}
	if err != nil {
		return nil, err
	}

	var out []domain.TimeEntry
	for _, name := range files {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		f, err := r.loadFile(name)
		if err != nil {
			return nil, err
		}
		if f == nil {
			continue
		}
		for _, e := range f.Entries {
			if !matchEntry(e, filter) {
				continue
			}
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Start.Before(out[j].Start) })
	return out, nil
}

// OpenEntries returns every running entry for a user. More than one means a
// write race slipped through; the timer engine resolves that.
func (r *Entries) OpenEntries(userID string) ([]domain.TimeEntry, error) {
	files, err := r.userFiles(userID)
	if err != nil {
		return nil, err
	}
	var open []domain.TimeEntry
	for _, name := range files {
		f, err := r.loadFile(name)
		if err != nil {
			return nil, err
		}
		if f == nil {
			continue
		}
		for _, e := range f.Entries {
			if e.Running() && e.UserID == userID {
				open = append(open, e)
			}
		}
	}
	sort.Slice(open, func(i, j int) bool { return open[i].Start.Before(open[j].Start) })
	return open, nil
}

// OpenEntry returns the user's running entry, or nil when idle. Always
// re-derived from disk: the process may have restarted, or another machine
// may have started the timer.
func (r *Entries) OpenEntry(userID string) (*domain.TimeEntry, error) {
	open, err := r.OpenEntries(userID)
	if err != nil {
		return nil, err
	}
	if len(open) == 0 {
		return nil, nil
	}
	return &open[0], nil
}

// Update replaces the stored copy of an entry inside its partition.
func (r *Entries) Update(entry domain.TimeEntry) error {
	if entry.End != nil && !entry.End.After(entry.Start) {
		return domain.ErrInvalidDuration
	}
	path := timeFilePath(entry.UserID, domain.MonthKey(entry.Start))
	f, err := r.loadFile(domain.TimeFileName(entry.UserID, domain.MonthKey(entry.Start)))
	if err != nil {
		return err
	}
	if f == nil {
		return &domain.NotFoundError{Kind: "time entry", ID: entry.ID}
	}
	for i := range f.Entries {
		if f.Entries[i].ID == entry.ID {
			f.Entries[i] = entry
			return r.saveFile(path, f)
		}
	}
	return &domain.NotFoundError{Kind: "time entry", ID: entry.ID}
}

// Delete hard-removes one entry. Entries own nothing, so nothing cascades.
func (r *Entries) Delete(userID, id string) error {
	files, err := r.userFiles(userID)
	if err != nil {
		return err
	}
	for _, name := range files {
		f, err := r.loadFile(name)
		if err != nil {
			return err
		}
		if f == nil {
			continue
		}
		for i := range f.Entries {
			if f.Entries[i].ID == id && f.Entries[i].UserID == userID {
				f.Entries = append(f.Entries[:i:i], f.Entries[i+1:]...)
				return r.saveFile(record.TimeDir+"/"+name, f)
			}
		}
	}
	return &domain.NotFoundError{Kind: "time entry", ID: id}
}

func (r *Entries) appendEntry(entry domain.TimeEntry) error {
	month := domain.MonthKey(entry.Start)
	name := domain.TimeFileName(entry.UserID, month)
	f, err := r.loadFile(name)
	if err != nil {
		return err
	}
	if f == nil {
		f = &domain.TimeFile{
			SchemaVersion: domain.SchemaVersion,
			UserID:        entry.UserID,
			Month:         month,
		}
	}
	f.Entries = append(f.Entries, entry)
	return r.saveFile(record.TimeDir+"/"+name, f)
}

// loadFile returns nil without error when the partition does not exist yet.
func (r *Entries) loadFile(name string) (*domain.TimeFile, error) {
	var f domain.TimeFile
	if err := r.store.Load(record.TimeDir+"/"+name, &f); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}
	return &f, nil
}

func (r *Entries) saveFile(path string, f *domain.TimeFile) error {
	f.SchemaVersion = domain.SchemaVersion
	return r.store.Save(path, f)
}

// userFiles narrows the partition scan by file-name prefix. The prefix can
// overmatch when one user id is a prefix of another ("john" vs "john_smith"),
// so callers still check each entry's UserID.
func (r *Entries) userFiles(userID string) ([]string, error) {
	names, err := r.store.List(record.TimeDir)
	if err != nil {
		return nil, err
	}
	var out []string
	for _, name := range names {
		if strings.HasPrefix(name, userID+"_") {
			out = append(out, name)
		}
	}
	return out, nil
}

func matchEntry(e domain.TimeEntry, filter EntryFilter) bool {
	if e.Running() && !filter.IncludeRunning {
		return false
	}
	if filter.ProjectID != "" && e.ProjectID != filter.ProjectID {
		return false
	}
	if filter.WorkTypeID != "" && e.WorkTypeID != filter.WorkTypeID {
		return false
	}
	if filter.UserID != "" && e.UserID != filter.UserID {
		return false
	}
	if !filter.From.IsZero() && e.Start.Before(startOfDay(filter.From)) {
		return false
	}
	if !filter.To.IsZero() && !e.Start.Before(startOfDay(filter.To).AddDate(0, 0, 1)) {
		return false
	}
	return true
}

func startOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
