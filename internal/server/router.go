package server

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/daily-life-app/backend/internal/journal"
)

var errMissingJournalService = errors.New("journal service dependency required")

// Dependencies carries the collaborators of the HTTP handler.
type Dependencies struct {
	JournalService *journal.Service
	Logger         *zap.Logger
}

// NewHTTPHandler wires the REST surface for the journal service.
func NewHTTPHandler(deps Dependencies) (http.Handler, error) {
	if deps.JournalService == nil {
		return nil, errMissingJournalService
	}

	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(cors.New(cors.Config{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowHeaders: []string{"Authorization", "Content-Type"},
		MaxAge:       12 * time.Hour,
	}))

	handler := &httpHandler{
		journalService: deps.JournalService,
		logger:         logger,
	}

	api := router.Group("/api")
	api.GET("/entries", handler.handleListEntries)
	api.POST("/entries/add", handler.handleAddEntry)
	api.PUT("/entries/:id", handler.handleUpdateEntry)
	api.DELETE("/entries/:id", handler.handleDeleteEntry)
	api.GET("/settings", handler.handleGetSettings)
	api.POST("/settings", handler.handleSaveSettings)
	api.GET("/export", handler.handleExport)
	api.POST("/import", handler.handleImport)
	api.GET("/stats", handler.handleStats)
	api.GET("/health", handler.handleHealth)

	return router, nil
}

type httpHandler struct {
	journalService *journal.Service
	logger         *zap.Logger
}

type entryRequestPayload struct {
	Content *string `json:"content"`
	Mood    *string `json:"mood"`
}

func (p entryRequestPayload) toPatch() (journal.EntryPatch, error) {
	patch := journal.EntryPatch{Content: p.Content}
	if p.Mood != nil && strings.TrimSpace(*p.Mood) != "" {
		mood, err := journal.ParseMood(*p.Mood)
		if err != nil {
			return journal.EntryPatch{}, err
		}
		patch.Mood = &mood
	}
	return patch, nil
}

func (h *httpHandler) handleListEntries(c *gin.Context) {
	entries, err := h.journalService.ListEntries(c.Request.Context())
	if err != nil {
		h.respondServiceError(c, "failed to list entries", err)
		return
	}
	c.JSON(http.StatusOK, entries)
}

func (h *httpHandler) handleAddEntry(c *gin.Context) {
	var request entryRequestPayload
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}
	if request.Content == nil || strings.TrimSpace(*request.Content) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "content_required"})
		return
	}

	patch, err := request.toPatch()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_mood"})
		return
	}

	created, err := h.journalService.AddEntry(c.Request.Context(), patch)
	if err != nil {
		h.respondServiceError(c, "failed to add entry", err)
		return
	}
	c.JSON(http.StatusOK, created)
}

func (h *httpHandler) handleUpdateEntry(c *gin.Context) {
	entryID := c.Param("id")

	var request entryRequestPayload
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}

	patch, err := request.toPatch()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_mood"})
		return
	}

	updated, err := h.journalService.UpdateEntry(c.Request.Context(), entryID, patch)
	if err != nil {
		if errors.Is(err, journal.ErrEntryNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "entry_not_found"})
			return
		}
		h.respondServiceError(c, "failed to update entry", err)
		return
	}
	c.JSON(http.StatusOK, updated)
}

func (h *httpHandler) handleDeleteEntry(c *gin.Context) {
	if err := h.journalService.DeleteEntry(c.Request.Context(), c.Param("id")); err != nil {
		h.respondServiceError(c, "failed to delete entry", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "OK"})
}

func (h *httpHandler) handleGetSettings(c *gin.Context) {
	settings, err := h.journalService.GetSettings(c.Request.Context())
	if err != nil {
		h.respondServiceError(c, "failed to load settings", err)
		return
	}
	c.JSON(http.StatusOK, settings)
}

func (h *httpHandler) handleSaveSettings(c *gin.Context) {
	var settings journal.Settings
	if err := c.ShouldBindJSON(&settings); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}

	if err := h.journalService.SaveSettings(c.Request.Context(), settings); err != nil {
		h.respondServiceError(c, "failed to save settings", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "OK"})
}

func (h *httpHandler) handleExport(c *gin.Context) {
	envelope, err := h.journalService.ExportSnapshot(c.Request.Context())
	if err != nil {
		h.respondServiceError(c, "failed to export snapshot", err)
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", journal.BackupFileName(envelope.ExportDate)))
	c.JSON(http.StatusOK, envelope)
}

func (h *httpHandler) handleImport(c *gin.Context) {
	var envelope journal.BackupEnvelope
	if err := c.ShouldBindJSON(&envelope); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "malformed_import"})
		return
	}

	if err := h.journalService.ImportSnapshot(c.Request.Context(), envelope); err != nil {
		h.respondServiceError(c, "failed to import snapshot", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "OK"})
}

func (h *httpHandler) handleStats(c *gin.Context) {
	entries, err := h.journalService.ListEntries(c.Request.Context())
	if err != nil {
		h.respondServiceError(c, "failed to compute stats", err)
		return
	}
	c.JSON(http.StatusOK, journal.CountMoods(entries))
}

func (h *httpHandler) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "OK"})
}

func (h *httpHandler) respondServiceError(c *gin.Context, message string, err error) {
	h.logger.Error(message, zap.Error(err))
	response := gin.H{"error": "internal_error"}
	var serviceErr *journal.ServiceError
	if errors.As(err, &serviceErr) {
		response["code"] = serviceErr.Code()
	}
	c.JSON(http.StatusInternalServerError, response)
}
