// Package storage persists the journal collections as whole-file JSON
// documents: the entry collection as a JSON array, the settings record
// as a single JSON object. Every mutation rewrites the full document
// through a temp file and rename so a reader never observes a partial
// write.
package storage

import (
	"encoding/json"
	"fmt"
	"path/filepath"

	"github.com/spf13/afero"
	"go.uber.org/zap"

	"github.com/daily-life-app/backend/internal/journal"
)

const (
	entriesFileName  = "entries.json"
	settingsFileName = "settings.json"
	documentFileMode = 0o644
	dataDirMode      = 0o755
)

// Documents reads and writes the journal documents on an afero
// filesystem rooted at a data directory.
type Documents struct {
	fs     afero.Fs
	dir    string
	logger *zap.Logger
}

// NewDocuments ensures the data directory exists and returns a
// Documents bound to it.
func NewDocuments(fileSystem afero.Fs, dir string, logger *zap.Logger) (*Documents, error) {
	if fileSystem == nil {
		return nil, fmt.Errorf("storage: filesystem is required")
	}
	if dir == "" {
		return nil, fmt.Errorf("storage: data directory is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if err := fileSystem.MkdirAll(dir, dataDirMode); err != nil {
		return nil, fmt.Errorf("storage: create data directory: %w", err)
	}
	return &Documents{fs: fileSystem, dir: dir, logger: logger}, nil
}

// ReadEntries loads the entry collection. A missing document surfaces
// as fs.ErrNotExist through the underlying filesystem error.
func (d *Documents) ReadEntries() ([]journal.Entry, error) {
	var entries []journal.Entry
	if err := d.readDocument(entriesFileName, &entries); err != nil {
		return nil, err
	}
	return entries, nil
}

// WriteEntries rewrites the whole entry collection atomically.
func (d *Documents) WriteEntries(entries []journal.Entry) error {
	if entries == nil {
		entries = []journal.Entry{}
	}
	return d.writeDocument(entriesFileName, entries)
}

// ReadSettings loads the settings record. A missing document surfaces
// as fs.ErrNotExist through the underlying filesystem error.
func (d *Documents) ReadSettings() (journal.Settings, error) {
	var settings journal.Settings
	if err := d.readDocument(settingsFileName, &settings); err != nil {
		return journal.Settings{}, err
	}
	return settings, nil
}

// WriteSettings rewrites the settings record atomically.
func (d *Documents) WriteSettings(settings journal.Settings) error {
	return d.writeDocument(settingsFileName, settings)
}

func (d *Documents) readDocument(name string, target any) error {
	path := filepath.Join(d.dir, name)
	payload, err := afero.ReadFile(d.fs, path)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(payload, target); err != nil {
		return fmt.Errorf("storage: decode %s: %w", name, err)
	}
	return nil
}

// writeDocument commits the serialized document through a temp file in
// the same directory followed by a rename, so the previous document
// stays intact if the write fails partway.
func (d *Documents) writeDocument(name string, source any) error {
	payload, err := json.MarshalIndent(source, "", "  ")
	if err != nil {
		return fmt.Errorf("storage: encode %s: %w", name, err)
	}

	tempPath := filepath.Join(d.dir, name+".tmp")
	finalPath := filepath.Join(d.dir, name)

	if err := afero.WriteFile(d.fs, tempPath, payload, documentFileMode); err != nil {
		return fmt.Errorf("storage: write %s: %w", name, err)
	}
	if err := d.fs.Rename(tempPath, finalPath); err != nil {
		if removeErr := d.fs.Remove(tempPath); removeErr != nil {
			d.logger.Warn("temp document cleanup failed",
				zap.String("path", tempPath), zap.Error(removeErr))
		}
		return fmt.Errorf("storage: commit %s: %w", name, err)
	}
	return nil
}
