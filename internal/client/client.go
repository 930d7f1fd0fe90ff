// Package client provides the HTTP client for the journal API and the
// in-memory cache that mirrors server state for a presentation layer.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/daily-life-app/backend/internal/journal"
)

const defaultRequestTimeout = 15 * time.Second

var errMissingBaseURL = errors.New("client: base url is required")

// API is the journal surface the cache depends on. *APIClient is the
// production implementation; tests may substitute their own.
type API interface {
	ListEntries(ctx context.Context) ([]journal.Entry, error)
	AddEntry(ctx context.Context, patch journal.EntryPatch) (journal.Entry, error)
	UpdateEntry(ctx context.Context, entryID string, patch journal.EntryPatch) (journal.Entry, error)
	DeleteEntry(ctx context.Context, entryID string) error
	GetSettings(ctx context.Context) (journal.Settings, error)
	SaveSettings(ctx context.Context, settings journal.Settings) error
	ExportSnapshot(ctx context.Context) (journal.BackupEnvelope, error)
	ImportSnapshot(ctx context.Context, envelope journal.BackupEnvelope) error
}

// StatusError reports a non-2xx response from the journal API.
type StatusError struct {
	StatusCode int
	Code       string
}

func (e *StatusError) Error() string {
	if e.Code == "" {
		return fmt.Sprintf("client: unexpected status %d", e.StatusCode)
	}
	return fmt.Sprintf("client: unexpected status %d (%s)", e.StatusCode, e.Code)
}

// APIClient talks to the journal REST surface.
type APIClient struct {
	baseURL    string
	httpClient *http.Client
}

// NewAPIClient constructs a client for the given base URL. A nil
// httpClient gets a default with a bounded request timeout so a
// hanging server cannot hold callers forever.
func NewAPIClient(baseURL string, httpClient *http.Client) (*APIClient, error) {
	trimmed := strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if trimmed == "" {
		return nil, errMissingBaseURL
	}
	if _, err := url.Parse(trimmed); err != nil {
		return nil, fmt.Errorf("client: invalid base url: %w", err)
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: defaultRequestTimeout}
	}
	return &APIClient{baseURL: trimmed, httpClient: httpClient}, nil
}

// ListEntries fetches the full entry collection.
func (c *APIClient) ListEntries(ctx context.Context) ([]journal.Entry, error) {
	var entries []journal.Entry
	if err := c.doJSON(ctx, http.MethodGet, "/api/entries", nil, &entries); err != nil {
		return nil, err
	}
	return entries, nil
}

// AddEntry creates an entry and returns it with server-assigned fields.
func (c *APIClient) AddEntry(ctx context.Context, patch journal.EntryPatch) (journal.Entry, error) {
	var created journal.Entry
	if err := c.doJSON(ctx, http.MethodPost, "/api/entries/add", patch, &created); err != nil {
		return journal.Entry{}, err
	}
	return created, nil
}

// UpdateEntry patches an existing entry. An unknown id surfaces as
// journal.ErrEntryNotFound.
func (c *APIClient) UpdateEntry(ctx context.Context, entryID string, patch journal.EntryPatch) (journal.Entry, error) {
	var updated journal.Entry
	err := c.doJSON(ctx, http.MethodPut, "/api/entries/"+url.PathEscape(entryID), patch, &updated)
	if err != nil {
		var statusErr *StatusError
		if errors.As(err, &statusErr) && statusErr.StatusCode == http.StatusNotFound {
			return journal.Entry{}, fmt.Errorf("%w: %s", journal.ErrEntryNotFound, entryID)
		}
		return journal.Entry{}, err
	}
	return updated, nil
}

// DeleteEntry removes an entry. Deleting an unknown id succeeds.
func (c *APIClient) DeleteEntry(ctx context.Context, entryID string) error {
	return c.doJSON(ctx, http.MethodDelete, "/api/entries/"+url.PathEscape(entryID), nil, nil)
}

// GetSettings fetches the settings record, already merged with
// defaults on the server side.
func (c *APIClient) GetSettings(ctx context.Context) (journal.Settings, error) {
	var settings journal.Settings
	if err := c.doJSON(ctx, http.MethodGet, "/api/settings", nil, &settings); err != nil {
		return journal.Settings{}, err
	}
	return settings, nil
}

// SaveSettings persists the given settings record.
func (c *APIClient) SaveSettings(ctx context.Context, settings journal.Settings) error {
	return c.doJSON(ctx, http.MethodPost, "/api/settings", settings, nil)
}

// ExportSnapshot downloads the backup envelope.
func (c *APIClient) ExportSnapshot(ctx context.Context) (journal.BackupEnvelope, error) {
	var envelope journal.BackupEnvelope
	if err := c.doJSON(ctx, http.MethodGet, "/api/export", nil, &envelope); err != nil {
		return journal.BackupEnvelope{}, err
	}
	return envelope, nil
}

// ImportSnapshot uploads a backup envelope for wholesale restore.
func (c *APIClient) ImportSnapshot(ctx context.Context, envelope journal.BackupEnvelope) error {
	return c.doJSON(ctx, http.MethodPost, "/api/import", envelope, nil)
}

// Health checks the liveness endpoint.
func (c *APIClient) Health(ctx context.Context) error {
	return c.doJSON(ctx, http.MethodGet, "/api/health", nil, nil)
}

func (c *APIClient) doJSON(ctx context.Context, method, path string, body, target any) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("client: encode request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	request, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("client: build request: %w", err)
	}
	if body != nil {
		request.Header.Set("Content-Type", "application/json")
	}

	response, err := c.httpClient.Do(request)
	if err != nil {
		return fmt.Errorf("client: %s %s: %w", method, path, err)
	}
	defer response.Body.Close()

	if response.StatusCode < http.StatusOK || response.StatusCode >= http.StatusMultipleChoices {
		return &StatusError{
			StatusCode: response.StatusCode,
			Code:       decodeErrorCode(response.Body),
		}
	}

	if target == nil {
		return nil
	}
	if err := json.NewDecoder(response.Body).Decode(target); err != nil {
		return fmt.Errorf("client: decode response: %w", err)
	}
	return nil
}

func decodeErrorCode(body io.Reader) string {
	var payload struct {
		Error string `json:"error"`
		Code  string `json:"code"`
	}
	if err := json.NewDecoder(body).Decode(&payload); err != nil {
		return ""
	}
	if payload.Code != "" {
		return payload.Code
	}
	return payload.Error
}
