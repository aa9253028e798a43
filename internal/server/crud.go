package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/verdantstack/agrisync/internal/farm"
	"github.com/verdantstack/agrisync/internal/sync"
)

// The CRUD endpoints are the direct write path: they share ownership
// scoping, validation and tombstoning with the sync engine but always win
// against stale offline copies (the loser learns via its next push).

func (h *httpHandler) collectionKind(c *gin.Context) (farm.EntityKind, bool) {
	kind, err := sync.KindForCollection(c.Param("collection"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown_collection"})
		return "", false
	}
	return kind, true
}

func (h *httpHandler) handleListCollection(c *gin.Context) {
	userID := c.GetString(userIDContextKey)
	kind, ok := h.collectionKind(c)
	if !ok {
		return
	}

	records, err := h.engine.ListOwned(c.Request.Context(), userID, kind)
	if err != nil {
		h.logger.Error("list collection failed",
			zap.String("user_id", userID), zap.String("entity", string(kind)), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "list_failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": records})
}

func (h *httpHandler) handleCreateRecord(c *gin.Context) {
	userID := c.GetString(userIDContextKey)
	kind, ok := h.collectionKind(c)
	if !ok {
		return
	}

	var body map[string]any
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}

	record, err := h.engine.DirectCreate(c.Request.Context(), userID, kind, body)
	if h.writeRecordError(c, userID, kind, err) {
		return
	}
	h.publishFarmChange(userID)
	c.JSON(http.StatusCreated, record)
}

func (h *httpHandler) handleUpdateRecord(c *gin.Context) {
	userID := c.GetString(userIDContextKey)
	kind, ok := h.collectionKind(c)
	if !ok {
		return
	}

	var body map[string]any
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}

	record, err := h.engine.DirectUpdate(c.Request.Context(), userID, kind, c.Param("id"), body)
	if h.writeRecordError(c, userID, kind, err) {
		return
	}
	h.publishFarmChange(userID)
	c.JSON(http.StatusOK, record)
}

func (h *httpHandler) handleDeleteRecord(c *gin.Context) {
	userID := c.GetString(userIDContextKey)
	kind, ok := h.collectionKind(c)
	if !ok {
		return
	}

	err := h.engine.DirectDelete(c.Request.Context(), userID, kind, c.Param("id"))
	if h.writeRecordError(c, userID, kind, err) {
		return
	}
	h.publishFarmChange(userID)
	c.Status(http.StatusNoContent)
}

// writeRecordError maps engine errors to responses; reports whether the
// request is finished.
func (h *httpHandler) writeRecordError(c *gin.Context, userID string, kind farm.EntityKind, err error) bool {
	if err == nil {
		return false
	}
	var invalid *sync.ValidationError
	switch {
	case errors.As(err, &invalid):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "validation_failed", "reason": invalid.Reason})
	case errors.Is(err, farm.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "not_found"})
	default:
		h.logger.Error("record write failed",
			zap.String("user_id", userID), zap.String("entity", string(kind)), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "write_failed"})
	}
	return true
}

func (h *httpHandler) publishFarmChange(userID string) {
	h.dispatcher.Publish(RealtimeMessage{
		UserID:    userID,
		EventType: RealtimeEventFarmChanged,
		Timestamp: h.engine.ServerTime(),
	})
}
