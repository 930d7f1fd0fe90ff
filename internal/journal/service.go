package journal

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"sync"
	"time"

	"go.uber.org/zap"
)

var (
	errMissingDocuments  = errors.New("document store is required")
	errMissingIDProvider = errors.New("id provider is required")
	// ErrEntryNotFound indicates an update referenced an unknown entry id.
	ErrEntryNotFound = errors.New("journal: entry not found")
	noOpLogger       = zap.NewNop()
)

// Documents abstracts the durable whole-document persistence of the two
// collections. Reads report a missing document via fs.ErrNotExist so
// the service can substitute defaults; writes must be all-or-nothing.
type Documents interface {
	ReadEntries() ([]Entry, error)
	WriteEntries(entries []Entry) error
	ReadSettings() (Settings, error)
	WriteSettings(settings Settings) error
}

// IDProvider issues unique identifiers for new entries.
type IDProvider interface {
	NewID() (string, error)
}

// ServiceError carries a machine-readable operation.reason code along
// with the underlying cause.
type ServiceError struct {
	code string
	err  error
}

func (e *ServiceError) Error() string {
	if e.err == nil {
		return e.code
	}
	return fmt.Sprintf("%s: %v", e.code, e.err)
}

func (e *ServiceError) Unwrap() error {
	return e.err
}

func (e *ServiceError) Code() string {
	return e.code
}

const (
	opServiceNew     = "journal.service.new"
	opListEntries    = "journal.list_entries"
	opAddEntry       = "journal.add_entry"
	opUpdateEntry    = "journal.update_entry"
	opDeleteEntry    = "journal.delete_entry"
	opGetSettings    = "journal.get_settings"
	opSaveSettings   = "journal.save_settings"
	opExportSnapshot = "journal.export_snapshot"
	opImportSnapshot = "journal.import_snapshot"
)

func newServiceError(operation, reason string, cause error) error {
	code := fmt.Sprintf("%s.%s", operation, reason)
	return &ServiceError{code: code, err: cause}
}

// ServiceConfig carries the dependencies for constructing a Service.
type ServiceConfig struct {
	Documents  Documents
	Clock      func() time.Time
	IDProvider IDProvider
	Logger     *zap.Logger
}

// Service owns the durable entry collection and settings record. All
// mutation passes through it; writes to the same collection serialize
// through a per-collection mutex so concurrent callers within the
// process cannot lose updates.
type Service struct {
	documents  Documents
	clock      func() time.Time
	idProvider IDProvider
	logger     *zap.Logger

	entriesMu  sync.Mutex
	settingsMu sync.Mutex
}

// NewService validates the configuration and returns a Service.
func NewService(cfg ServiceConfig) (*Service, error) {
	if cfg.Documents == nil {
		return nil, newServiceError(opServiceNew, "missing_documents", errMissingDocuments)
	}
	if cfg.IDProvider == nil {
		return nil, newServiceError(opServiceNew, "missing_id_provider", errMissingIDProvider)
	}

	clock := cfg.Clock
	if clock == nil {
		clock = time.Now
	}
	logger := cfg.Logger
	if logger == nil {
		logger = noOpLogger
	}

	return &Service{
		documents:  cfg.Documents,
		clock:      clock,
		idProvider: cfg.IDProvider,
		logger:     logger,
	}, nil
}

// ListEntries returns the stored collection in stored order, newest
// first by convention. An unreadable backing document degrades to an
// empty collection so callers always receive a valid list; only
// context cancellation surfaces as an error.
func (s *Service) ListEntries(ctx context.Context) ([]Entry, error) {
	if err := ctx.Err(); err != nil {
		return nil, newServiceError(opListEntries, "context_done", err)
	}
	s.entriesMu.Lock()
	defer s.entriesMu.Unlock()
	return s.readEntriesLocked(opListEntries), nil
}

// AddEntry assigns a fresh id and timestamp, merges the patch over the
// entry defaults, prepends the result, and persists the whole
// collection. The returned entry includes the assigned fields.
func (s *Service) AddEntry(ctx context.Context, patch EntryPatch) (Entry, error) {
	if err := ctx.Err(); err != nil {
		return Entry{}, newServiceError(opAddEntry, "context_done", err)
	}

	entryID, err := s.idProvider.NewID()
	if err != nil {
		s.logError(opAddEntry, "id_generation_failed", err)
		return Entry{}, newServiceError(opAddEntry, "id_generation_failed", err)
	}

	created := patch.Apply(Entry{
		ID:      entryID,
		Date:    s.clock().UTC().Format(time.RFC3339),
		Content: "",
		Mood:    MoodNeutral,
	})

	s.entriesMu.Lock()
	defer s.entriesMu.Unlock()

	entries := s.readEntriesLocked(opAddEntry)
	updated := make([]Entry, 0, len(entries)+1)
	updated = append(updated, created)
	updated = append(updated, entries...)

	if err := s.documents.WriteEntries(updated); err != nil {
		s.logError(opAddEntry, "persist_failed", err, zap.String("entry_id", created.ID))
		return Entry{}, newServiceError(opAddEntry, "persist_failed", err)
	}
	return created, nil
}

// UpdateEntry merges the patch over the stored entry with the given id
// and persists the collection. The id and date of the stored entry are
// never overwritten. A lookup miss returns ErrEntryNotFound without
// mutating anything.
func (s *Service) UpdateEntry(ctx context.Context, entryID string, patch EntryPatch) (Entry, error) {
	if err := ctx.Err(); err != nil {
		return Entry{}, newServiceError(opUpdateEntry, "context_done", err)
	}

	s.entriesMu.Lock()
	defer s.entriesMu.Unlock()

	entries := s.readEntriesLocked(opUpdateEntry)
	index := -1
	for i, entry := range entries {
		if entry.ID == entryID {
			index = i
			break
		}
	}
	if index < 0 {
		return Entry{}, newServiceError(opUpdateEntry, "not_found", ErrEntryNotFound)
	}

	updated := make([]Entry, len(entries))
	copy(updated, entries)
	updated[index] = patch.Apply(entries[index])

	if err := s.documents.WriteEntries(updated); err != nil {
		s.logError(opUpdateEntry, "persist_failed", err, zap.String("entry_id", entryID))
		return Entry{}, newServiceError(opUpdateEntry, "persist_failed", err)
	}
	return updated[index], nil
}

// DeleteEntry removes the matching entry, if any, and persists the
// remainder. Deleting an unknown id is not an error; the collection is
// simply unchanged.
func (s *Service) DeleteEntry(ctx context.Context, entryID string) error {
	if err := ctx.Err(); err != nil {
		return newServiceError(opDeleteEntry, "context_done", err)
	}

	s.entriesMu.Lock()
	defer s.entriesMu.Unlock()

	entries := s.readEntriesLocked(opDeleteEntry)
	remaining := make([]Entry, 0, len(entries))
	for _, entry := range entries {
		if entry.ID != entryID {
			remaining = append(remaining, entry)
		}
	}

	if err := s.documents.WriteEntries(remaining); err != nil {
		s.logError(opDeleteEntry, "persist_failed", err, zap.String("entry_id", entryID))
		return newServiceError(opDeleteEntry, "persist_failed", err)
	}
	return nil
}

// GetSettings returns the persisted settings merged field-by-field over
// the hardcoded defaults. A missing or unreadable record degrades to
// pure defaults.
func (s *Service) GetSettings(ctx context.Context) (Settings, error) {
	if err := ctx.Err(); err != nil {
		return Settings{}, newServiceError(opGetSettings, "context_done", err)
	}
	s.settingsMu.Lock()
	defer s.settingsMu.Unlock()
	return s.readSettingsLocked(opGetSettings), nil
}

// SaveSettings persists the given record as-is; the caller is
// responsible for having merged defaults beforehand.
func (s *Service) SaveSettings(ctx context.Context, settings Settings) error {
	if err := ctx.Err(); err != nil {
		return newServiceError(opSaveSettings, "context_done", err)
	}

	s.settingsMu.Lock()
	defer s.settingsMu.Unlock()

	if err := s.documents.WriteSettings(settings); err != nil {
		s.logError(opSaveSettings, "persist_failed", err)
		return newServiceError(opSaveSettings, "persist_failed", err)
	}
	return nil
}

// ExportSnapshot wraps the current entries and merged settings with a
// fresh export timestamp. It does not mutate state.
func (s *Service) ExportSnapshot(ctx context.Context) (BackupEnvelope, error) {
	if err := ctx.Err(); err != nil {
		return BackupEnvelope{}, newServiceError(opExportSnapshot, "context_done", err)
	}

	s.entriesMu.Lock()
	entries := s.readEntriesLocked(opExportSnapshot)
	s.entriesMu.Unlock()

	s.settingsMu.Lock()
	settings := s.readSettingsLocked(opExportSnapshot)
	s.settingsMu.Unlock()

	return BackupEnvelope{
		Entries:    entries,
		Settings:   &settings,
		ExportDate: s.clock().UTC().Format(time.RFC3339),
	}, nil
}

// ImportSnapshot replaces the entries collection and the settings
// record wholesale with whatever the envelope carries. A nil envelope
// field leaves the corresponding collection untouched; there is no
// per-field merge on import.
func (s *Service) ImportSnapshot(ctx context.Context, envelope BackupEnvelope) error {
	if err := ctx.Err(); err != nil {
		return newServiceError(opImportSnapshot, "context_done", err)
	}

	if envelope.Entries != nil {
		s.entriesMu.Lock()
		err := s.documents.WriteEntries(envelope.Entries)
		s.entriesMu.Unlock()
		if err != nil {
			s.logError(opImportSnapshot, "entries_persist_failed", err)
			return newServiceError(opImportSnapshot, "entries_persist_failed", err)
		}
	}

	if envelope.Settings != nil {
		s.settingsMu.Lock()
		err := s.documents.WriteSettings(*envelope.Settings)
		s.settingsMu.Unlock()
		if err != nil {
			s.logError(opImportSnapshot, "settings_persist_failed", err)
			return newServiceError(opImportSnapshot, "settings_persist_failed", err)
		}
	}
	return nil
}

// readEntriesLocked recovers read failures to an empty collection.
// Writes never get this treatment; they must fail loudly.
func (s *Service) readEntriesLocked(operation string) []Entry {
	entries, err := s.documents.ReadEntries()
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			s.logger.Warn("entries unreadable, substituting empty collection",
				zap.String("operation", operation), zap.Error(err))
		}
		return []Entry{}
	}
	if entries == nil {
		entries = []Entry{}
	}
	return entries
}

func (s *Service) readSettingsLocked(operation string) Settings {
	stored, err := s.documents.ReadSettings()
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			s.logger.Warn("settings unreadable, substituting defaults",
				zap.String("operation", operation), zap.Error(err))
		}
		return DefaultSettings()
	}
	return MergeSettings(stored)
}

func (s *Service) logError(operation, reason string, err error, fields ...zap.Field) {
	attrs := []zap.Field{
		zap.String("operation", operation),
		zap.String("reason", reason),
	}
	if err != nil {
		attrs = append(attrs, zap.Error(err))
	}
	attrs = append(attrs, fields...)
	s.logger.Error("journal service error", attrs...)
}
