package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/sourcegraph/conc/pool"
	"go.uber.org/zap"

	"github.com/daily-life-app/backend/internal/journal"
)

var (
	errMissingAPI       = errors.New("cache: api client is required")
	errMissingConfirmer = errors.New("cache: removal confirmer is required")
	// ErrMalformedImport indicates an import payload that is not a
	// valid backup envelope. Nothing is sent to the server.
	ErrMalformedImport = errors.New("cache: malformed import payload")
	// ErrRemovalDeclined indicates the confirmer rejected a removal;
	// no request was issued.
	ErrRemovalDeclined = errors.New("cache: removal declined")
)

// Confirmer gates destructive operations. Removal proceeds only when
// it returns true; deletion is never silent.
type Confirmer func(entry journal.Entry) bool

// CacheConfig carries the dependencies for constructing a Cache.
type CacheConfig struct {
	API       API
	Confirmer Confirmer
	Logger    *zap.Logger
}

// Cache is the in-memory mirror of the server's collections, owned by
// whoever drives the presentation layer. It is disposable: the server
// remains the source of truth, and the mirror only changes after a
// confirmed server round-trip. Operations on the same Cache serialize
// through its mutex; the busy flag is readable concurrently so a UI
// can disable its triggers while a round-trip is in flight.
type Cache struct {
	api     API
	confirm Confirmer
	logger  *zap.Logger

	mu       sync.Mutex
	busy     atomic.Bool
	loaded   bool
	entries  []journal.Entry
	settings journal.Settings
}

// NewCache validates the configuration and returns an empty Cache
// holding default settings until the first Load.
func NewCache(cfg CacheConfig) (*Cache, error) {
	if cfg.API == nil {
		return nil, errMissingAPI
	}
	if cfg.Confirmer == nil {
		return nil, errMissingConfirmer
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Cache{
		api:      cfg.API,
		confirm:  cfg.Confirmer,
		logger:   logger,
		entries:  []journal.Entry{},
		settings: journal.DefaultSettings(),
	}, nil
}

// Load fetches entries and settings concurrently and replaces the
// mirror. Settings are re-merged over defaults client-side as
// resilience against a server that returns a partial record. Any fetch
// failure leaves the prior mirror intact.
func (c *Cache) Load(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.loadLocked(ctx)
}

func (c *Cache) loadLocked(ctx context.Context) error {
	c.busy.Store(true)
	defer c.busy.Store(false)

	var (
		entries  []journal.Entry
		settings journal.Settings
	)
	fetch := pool.New().WithContext(ctx)
	fetch.Go(func(ctx context.Context) error {
		fetched, err := c.api.ListEntries(ctx)
		if err != nil {
			return err
		}
		entries = fetched
		return nil
	})
	fetch.Go(func(ctx context.Context) error {
		fetched, err := c.api.GetSettings(ctx)
		if err != nil {
			return err
		}
		settings = fetched
		return nil
	})
	if err := fetch.Wait(); err != nil {
		c.logger.Warn("cache load failed, keeping prior mirror", zap.Error(err))
		return err
	}

	if entries == nil {
		entries = []journal.Entry{}
	}
	c.entries = entries
	c.settings = journal.MergeSettings(settings)
	c.loaded = true
	return nil
}

// Add creates an entry through the server and, once confirmed,
// prepends the returned record to the mirror without a full reload.
func (c *Cache) Add(ctx context.Context, patch journal.EntryPatch) (journal.Entry, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.busy.Store(true)
	defer c.busy.Store(false)

	created, err := c.api.AddEntry(ctx, patch)
	if err != nil {
		c.logger.Warn("add entry failed", zap.Error(err))
		return journal.Entry{}, err
	}

	updated := make([]journal.Entry, 0, len(c.entries)+1)
	updated = append(updated, created)
	updated = append(updated, c.entries...)
	c.entries = updated
	return created, nil
}

// Update patches an entry through the server and applies the same
// partial merge to the mirror's matching record. A not-found or
// transport failure leaves the mirror unchanged.
func (c *Cache) Update(ctx context.Context, entryID string, patch journal.EntryPatch) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.busy.Store(true)
	defer c.busy.Store(false)

	if _, err := c.api.UpdateEntry(ctx, entryID, patch); err != nil {
		c.logger.Warn("update entry failed", zap.String("entry_id", entryID), zap.Error(err))
		return err
	}

	for i, entry := range c.entries {
		if entry.ID == entryID {
			c.entries[i] = patch.Apply(entry)
			break
		}
	}
	return nil
}

// Remove deletes an entry after the confirmer approves. A declined
// confirmation issues no request and returns ErrRemovalDeclined.
func (c *Cache) Remove(ctx context.Context, entryID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	target := journal.Entry{ID: entryID}
	for _, entry := range c.entries {
		if entry.ID == entryID {
			target = entry
			break
		}
	}
	if !c.confirm(target) {
		return ErrRemovalDeclined
	}

	c.busy.Store(true)
	defer c.busy.Store(false)

	if err := c.api.DeleteEntry(ctx, entryID); err != nil {
		c.logger.Warn("delete entry failed", zap.String("entry_id", entryID), zap.Error(err))
		return err
	}

	remaining := make([]journal.Entry, 0, len(c.entries))
	for _, entry := range c.entries {
		if entry.ID != entryID {
			remaining = append(remaining, entry)
		}
	}
	c.entries = remaining
	return nil
}

// SaveSettings merges the given record over defaults, persists it
// through the server, and updates the mirror once confirmed.
func (c *Cache) SaveSettings(ctx context.Context, settings journal.Settings) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.busy.Store(true)
	defer c.busy.Store(false)

	merged := journal.MergeSettings(settings)
	if err := c.api.SaveSettings(ctx, merged); err != nil {
		c.logger.Warn("save settings failed", zap.Error(err))
		return err
	}
	c.settings = merged
	return nil
}

// ImportAndReload parses a raw backup payload, sends it to the server,
// and then resynchronizes the mirror from the server regardless of
// what the import replaced. The mirror is never reconstructed locally
// after an import because replacement is wholesale.
func (c *Cache) ImportAndReload(ctx context.Context, rawJSON []byte) error {
	var envelope journal.BackupEnvelope
	if err := json.Unmarshal(rawJSON, &envelope); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedImport, err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.busy.Store(true)
	defer c.busy.Store(false)

	importErr := c.api.ImportSnapshot(ctx, envelope)
	if importErr != nil {
		c.logger.Warn("import failed", zap.Error(importErr))
	}
	// Resync even after a failed import: entries may have been
	// replaced before the settings write failed.
	return errors.Join(importErr, c.loadLocked(ctx))
}

// Export requests a snapshot and returns it with its download
// filename. Pure read, no mirror mutation.
func (c *Cache) Export(ctx context.Context) (journal.BackupEnvelope, string, error) {
	envelope, err := c.api.ExportSnapshot(ctx)
	if err != nil {
		c.logger.Warn("export failed", zap.Error(err))
		return journal.BackupEnvelope{}, "", err
	}
	return envelope, journal.BackupFileName(envelope.ExportDate), nil
}

// Entries returns a copy of the mirrored entry collection.
func (c *Cache) Entries() []journal.Entry {
	c.mu.Lock()
	defer c.mu.Unlock()
	entries := make([]journal.Entry, len(c.entries))
	copy(entries, c.entries)
	return entries
}

// Settings returns the mirrored settings record.
func (c *Cache) Settings() journal.Settings {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.settings
}

// Busy reports whether a server round-trip is in flight.
func (c *Cache) Busy() bool {
	return c.busy.Load()
}

// Loaded reports whether the mirror has completed at least one Load.
func (c *Cache) Loaded() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.loaded
}
