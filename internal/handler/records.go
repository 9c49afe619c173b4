package handler

import (
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"

	"pocket-change/internal/domain"
	"pocket-change/internal/records"

	"github.com/gin-gonic/gin"
)

const maxLogEntryBytes = 16 << 10

// listLog returns the log's entries, most recent first.
func (h *Handler) listLog(l *records.Log) gin.HandlerFunc {
	return func(c *gin.Context) {
		entries := l.Entries()
		c.JSON(http.StatusOK, gin.H{
			"entries": entries,
			"count":   len(entries),
		})
	}
}

// addLogEntry appends the request body as a new record. The body must be a
// valid JSON document; it is stored verbatim as the entry payload.
func (h *Handler) addLogEntry(l *records.Log) gin.HandlerFunc {
	return func(c *gin.Context) {
		body, err := io.ReadAll(io.LimitReader(c.Request.Body, maxLogEntryBytes))
		if err != nil {
			respondError(c, fmt.Errorf("%w: unreadable body", domain.ErrValidation))
			return
		}
		if !json.Valid(body) {
			respondError(c, fmt.Errorf("%w: body must be valid JSON", domain.ErrValidation))
			return
		}

		id, err := l.Add(c.Request.Context(), body)
		if err != nil {
			// Entry is live in memory; only the mirror write failed.
			log.Printf("log persist error: %v", err)
		}
		c.JSON(http.StatusCreated, gin.H{"success": true, "id": id})
	}
}

func (h *Handler) removeLogEntry(l *records.Log) gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.Param("id")
		if !l.Remove(c.Request.Context(), id) {
			c.AbortWithStatusJSON(http.StatusNotFound, gin.H{
				"success": false,
				"message": "no entry with id " + id,
			})
			return
		}
		c.JSON(http.StatusOK, gin.H{"success": true})
	}
}

func (h *Handler) clearLog(l *records.Log) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := l.Clear(c.Request.Context()); err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"success": true})
	}
}
