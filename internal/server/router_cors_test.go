package server

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestCORSPreflightAllowsBrowserClients(testContext *testing.T) {
	handler := newTestHandler(testContext)

	request := httptest.NewRequest(http.MethodOptions, "/api/entries", http.NoBody)
	request.Header.Set("Origin", "https://journal.example.com")
	request.Header.Set("Access-Control-Request-Method", http.MethodPut)
	request.Header.Set("Access-Control-Request-Headers", "Content-Type")

	recorder := httptest.NewRecorder()
	handler.ServeHTTP(recorder, request)

	if recorder.Code != http.StatusNoContent {
		testContext.Fatalf("expected status %d, got %d", http.StatusNoContent, recorder.Code)
	}

	allowMethods := recorder.Header().Get("Access-Control-Allow-Methods")
	if !strings.Contains(allowMethods, http.MethodPut) || !strings.Contains(allowMethods, http.MethodDelete) {
		testContext.Fatalf("expected mutation methods in Access-Control-Allow-Methods, got %q", allowMethods)
	}

	allowHeaders := recorder.Header().Get("Access-Control-Allow-Headers")
	if !strings.Contains(strings.ToLower(allowHeaders), "content-type") {
		testContext.Fatalf("expected Content-Type in Access-Control-Allow-Headers, got %q", allowHeaders)
	}
}
