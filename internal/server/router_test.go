package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/afero"
	"go.uber.org/zap"

	"github.com/daily-life-app/backend/internal/journal"
	"github.com/daily-life-app/backend/internal/storage"
)

const jsonContentType = "application/json"

func newTestHandler(testContext *testing.T) http.Handler {
	testContext.Helper()
	gin.SetMode(gin.TestMode)

	documents, err := storage.NewDocuments(afero.NewMemMapFs(), "data", zap.NewNop())
	if err != nil {
		testContext.Fatalf("failed to build documents: %v", err)
	}
	journalService, err := journal.NewService(journal.ServiceConfig{
		Documents:  documents,
		Clock:      func() time.Time { return time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC) },
		IDProvider: journal.NewUUIDProvider(),
		Logger:     zap.NewNop(),
	})
	if err != nil {
		testContext.Fatalf("failed to build journal service: %v", err)
	}
	handler, err := NewHTTPHandler(Dependencies{
		JournalService: journalService,
		Logger:         zap.NewNop(),
	})
	if err != nil {
		testContext.Fatalf("failed to build handler: %v", err)
	}
	return handler
}

func performRequest(handler http.Handler, method, path, body string) *httptest.ResponseRecorder {
	var request *http.Request
	if body == "" {
		request = httptest.NewRequest(method, path, http.NoBody)
	} else {
		request = httptest.NewRequest(method, path, strings.NewReader(body))
		request.Header.Set("Content-Type", jsonContentType)
	}
	recorder := httptest.NewRecorder()
	handler.ServeHTTP(recorder, request)
	return recorder
}

func TestNewHTTPHandlerRequiresService(testContext *testing.T) {
	if _, err := NewHTTPHandler(Dependencies{}); err == nil {
		testContext.Fatalf("expected handler construction to fail without a journal service")
	}
}

func TestHandleHealth(testContext *testing.T) {
	handler := newTestHandler(testContext)

	recorder := performRequest(handler, http.MethodGet, "/api/health", "")

	if recorder.Code != http.StatusOK {
		testContext.Fatalf("expected ok status, got %d", recorder.Code)
	}
	if recorder.Body.String() != `{"status":"OK"}` {
		testContext.Fatalf("unexpected body: %s", recorder.Body.String())
	}
}

func TestAddAndListEntries(testContext *testing.T) {
	handler := newTestHandler(testContext)

	recorder := performRequest(handler, http.MethodPost, "/api/entries/add", `{"content":"hello","mood":"happy"}`)
	if recorder.Code != http.StatusOK {
		testContext.Fatalf("expected ok status, got %d: %s", recorder.Code, recorder.Body.String())
	}

	var created journal.Entry
	if err := json.Unmarshal(recorder.Body.Bytes(), &created); err != nil {
		testContext.Fatalf("failed to decode created entry: %v", err)
	}
	if created.ID == "" || created.Date == "" {
		testContext.Fatalf("expected server-assigned id and date, got %#v", created)
	}
	if created.Content != "hello" || created.Mood != journal.MoodHappy {
		testContext.Fatalf("unexpected entry fields: %#v", created)
	}

	recorder = performRequest(handler, http.MethodGet, "/api/entries", "")
	if recorder.Code != http.StatusOK {
		testContext.Fatalf("expected ok status, got %d", recorder.Code)
	}
	var entries []journal.Entry
	if err := json.Unmarshal(recorder.Body.Bytes(), &entries); err != nil {
		testContext.Fatalf("failed to decode entries: %v", err)
	}
	if len(entries) != 1 || entries[0].ID != created.ID {
		testContext.Fatalf("expected the created entry back, got %#v", entries)
	}
}

func TestAddEntryValidation(testContext *testing.T) {
	handler := newTestHandler(testContext)

	testCases := []struct {
		name      string
		body      string
		wantError string
	}{
		{name: "missing-content", body: `{"mood":"happy"}`, wantError: "content_required"},
		{name: "blank-content", body: `{"content":"   "}`, wantError: "content_required"},
		{name: "unknown-mood", body: `{"content":"hello","mood":"ecstatic"}`, wantError: "invalid_mood"},
		{name: "malformed-json", body: `{"content":`, wantError: "invalid_request"},
	}

	for _, testCase := range testCases {
		testContext.Run(testCase.name, func(testContext *testing.T) {
			recorder := performRequest(handler, http.MethodPost, "/api/entries/add", testCase.body)
			if recorder.Code != http.StatusBadRequest {
				testContext.Fatalf("expected bad request status, got %d", recorder.Code)
			}
			expected := `{"error":"` + testCase.wantError + `"}`
			if recorder.Body.String() != expected {
				testContext.Fatalf("unexpected body: %s", recorder.Body.String())
			}
		})
	}
}

func TestUpdateEntryUnknownIDReturnsNotFound(testContext *testing.T) {
	handler := newTestHandler(testContext)

	recorder := performRequest(handler, http.MethodPut, "/api/entries/missing-id", `{"content":"edited"}`)

	if recorder.Code != http.StatusNotFound {
		testContext.Fatalf("expected not found status, got %d", recorder.Code)
	}
	if recorder.Body.String() != `{"error":"entry_not_found"}` {
		testContext.Fatalf("unexpected body: %s", recorder.Body.String())
	}
}

func TestUpdateEntryMergesFields(testContext *testing.T) {
	handler := newTestHandler(testContext)

	recorder := performRequest(handler, http.MethodPost, "/api/entries/add", `{"content":"original","mood":"sad"}`)
	var created journal.Entry
	if err := json.Unmarshal(recorder.Body.Bytes(), &created); err != nil {
		testContext.Fatalf("failed to decode created entry: %v", err)
	}

	recorder = performRequest(handler, http.MethodPut, "/api/entries/"+created.ID, `{"content":"edited"}`)
	if recorder.Code != http.StatusOK {
		testContext.Fatalf("expected ok status, got %d: %s", recorder.Code, recorder.Body.String())
	}

	var updated journal.Entry
	if err := json.Unmarshal(recorder.Body.Bytes(), &updated); err != nil {
		testContext.Fatalf("failed to decode updated entry: %v", err)
	}
	if updated.Content != "edited" {
		testContext.Fatalf("expected edited content, got %q", updated.Content)
	}
	if updated.Mood != journal.MoodSad {
		testContext.Fatalf("absent mood must keep the stored value, got %q", updated.Mood)
	}
	if updated.Date != created.Date {
		testContext.Fatalf("date must not change on update")
	}
}

func TestDeleteEntryUnknownIDSucceeds(testContext *testing.T) {
	handler := newTestHandler(testContext)

	recorder := performRequest(handler, http.MethodDelete, "/api/entries/missing-id", "")

	if recorder.Code != http.StatusOK {
		testContext.Fatalf("delete must be idempotent, got status %d", recorder.Code)
	}
}

func TestSettingsSaveAndGet(testContext *testing.T) {
	handler := newTestHandler(testContext)

	recorder := performRequest(handler, http.MethodPost, "/api/settings", `{"theme":"dark"}`)
	if recorder.Code != http.StatusOK {
		testContext.Fatalf("expected ok status, got %d: %s", recorder.Code, recorder.Body.String())
	}

	recorder = performRequest(handler, http.MethodGet, "/api/settings", "")
	if recorder.Code != http.StatusOK {
		testContext.Fatalf("expected ok status, got %d", recorder.Code)
	}
	var settings journal.Settings
	if err := json.Unmarshal(recorder.Body.Bytes(), &settings); err != nil {
		testContext.Fatalf("failed to decode settings: %v", err)
	}
	if settings.Theme != journal.ThemeDark {
		testContext.Fatalf("expected persisted theme, got %q", settings.Theme)
	}
	if settings.CustomTexts.AppTitle == "" {
		testContext.Fatalf("settings must come back merged with defaults")
	}
}

func TestExportCarriesDownloadFilename(testContext *testing.T) {
	handler := newTestHandler(testContext)

	recorder := performRequest(handler, http.MethodGet, "/api/export", "")

	if recorder.Code != http.StatusOK {
		testContext.Fatalf("expected ok status, got %d", recorder.Code)
	}
	disposition := recorder.Header().Get("Content-Disposition")
	if disposition != `attachment; filename="daily-life-backup-2026-08-30.json"` {
		testContext.Fatalf("unexpected content disposition: %s", disposition)
	}
	var envelope journal.BackupEnvelope
	if err := json.Unmarshal(recorder.Body.Bytes(), &envelope); err != nil {
		testContext.Fatalf("failed to decode envelope: %v", err)
	}
	if envelope.ExportDate != "2026-08-30T12:00:00Z" {
		testContext.Fatalf("unexpected export date: %q", envelope.ExportDate)
	}
	if envelope.Settings == nil {
		testContext.Fatalf("export must include the settings record")
	}
}

func TestImportRejectsMalformedPayload(testContext *testing.T) {
	handler := newTestHandler(testContext)

	recorder := performRequest(handler, http.MethodPost, "/api/import", `{"entries": "nope"}`)

	if recorder.Code != http.StatusBadRequest {
		testContext.Fatalf("expected bad request status, got %d", recorder.Code)
	}
	if recorder.Body.String() != `{"error":"malformed_import"}` {
		testContext.Fatalf("unexpected body: %s", recorder.Body.String())
	}
}

func TestImportThenListReflectsRestoredEntries(testContext *testing.T) {
	handler := newTestHandler(testContext)

	body := `{"entries":[{"id":"restored-1","date":"2026-01-01T00:00:00Z","content":"restored","mood":"happy"}],"exportDate":"2026-08-01T00:00:00Z"}`
	recorder := performRequest(handler, http.MethodPost, "/api/import", body)
	if recorder.Code != http.StatusOK {
		testContext.Fatalf("expected ok status, got %d: %s", recorder.Code, recorder.Body.String())
	}

	recorder = performRequest(handler, http.MethodGet, "/api/entries", "")
	var entries []journal.Entry
	if err := json.Unmarshal(recorder.Body.Bytes(), &entries); err != nil {
		testContext.Fatalf("failed to decode entries: %v", err)
	}
	if len(entries) != 1 || entries[0].ID != "restored-1" {
		testContext.Fatalf("expected the restored collection, got %#v", entries)
	}
}

func TestStatsAggregatesMoodCounts(testContext *testing.T) {
	handler := newTestHandler(testContext)

	performRequest(handler, http.MethodPost, "/api/entries/add", `{"content":"one","mood":"happy"}`)
	performRequest(handler, http.MethodPost, "/api/entries/add", `{"content":"two","mood":"happy"}`)
	performRequest(handler, http.MethodPost, "/api/entries/add", `{"content":"three","mood":"awful"}`)

	recorder := performRequest(handler, http.MethodGet, "/api/stats", "")
	if recorder.Code != http.StatusOK {
		testContext.Fatalf("expected ok status, got %d", recorder.Code)
	}

	var stats journal.MoodStats
	if err := json.Unmarshal(recorder.Body.Bytes(), &stats); err != nil {
		testContext.Fatalf("failed to decode stats: %v", err)
	}
	if stats.Total != 3 {
		testContext.Fatalf("expected total 3, got %d", stats.Total)
	}
	if stats.Moods[journal.MoodHappy] != 2 || stats.Moods[journal.MoodAwful] != 1 {
		testContext.Fatalf("unexpected mood breakdown: %#v", stats.Moods)
	}
}
