package handler

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/mvieira/scanledger/internal/repository"
)

// RecordHandler serves the reconciled-record read endpoints.
type RecordHandler struct {
	records *repository.RecordRepository
}

// NewRecordHandler creates a new record handler.
func NewRecordHandler(records *repository.RecordRepository) *RecordHandler {
	return &RecordHandler{records: records}
}

// ListRecords returns reconciled records, most recent scan first.
// GET /api/v1/records?base=BASE1,BASE2&stalled=...&limit=&offset=
func (h *RecordHandler) ListRecords(c *gin.Context) {
	filter := &repository.RecordFilter{
		Bases:   splitList(c.Query("base")),
		Buckets: splitList(c.Query("stalled")),
		Limit:   queryInt(c, "limit", 100),
		Offset:  queryInt(c, "offset", 0),
	}

	records, total, err := h.records.List(c.Request.Context(), filter)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list records"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"records": records,
		"count":   len(records),
		"total":   total,
	})
}

// GetRecord returns one record by its order number.
// GET /api/v1/records/:order
func (h *RecordHandler) GetRecord(c *gin.Context) {
	record, err := h.records.GetByOrderNumber(c.Request.Context(), c.Param("order"))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "record not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load record"})
		return
	}
	c.JSON(http.StatusOK, record)
}

// splitList turns a comma-separated query value into trimmed non-empty
// items.
func splitList(raw string) []string {
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
