package handler

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/mvieira/scanledger/internal/domain"
	"github.com/mvieira/scanledger/internal/repository"
)

// DriverHandler manages manual driver-status overrides. An override is
// keyed by (driver, base); writing a null status clears it.
type DriverHandler struct {
	overrides *repository.OverrideRepository
}

// NewDriverHandler creates a new driver handler.
func NewDriverHandler(overrides *repository.OverrideRepository) *DriverHandler {
	return &DriverHandler{overrides: overrides}
}

// ListStatuses returns all driver-status overrides.
// GET /api/v1/drivers/status
func (h *DriverHandler) ListStatuses(c *gin.Context) {
	overrides, err := h.overrides.ListAll(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list driver statuses"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"overrides": overrides, "count": len(overrides)})
}

type driverStatusRequest struct {
	Base   string  `json:"base"`
	Status *string `json:"status"`
	Note   string  `json:"note"`
}

// SetStatus creates, updates or clears one driver-status override. A
// null status means the operator is withdrawing the override.
// POST /api/v1/drivers/:driver/status
func (h *DriverHandler) SetStatus(c *gin.Context) {
	driver := strings.TrimSpace(c.Param("driver"))
	if driver == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "driver is required"})
		return
	}

	var req driverStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	base := strings.TrimSpace(req.Base)

	ctx := c.Request.Context()

	if req.Status == nil {
		if err := h.overrides.Delete(ctx, driver, base); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to clear driver status"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"driver": driver, "base": base, "status": nil})
		return
	}

	status := strings.TrimSpace(*req.Status)
	if !domain.IsValidDriverStatus(status) {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":    "invalid status",
			"statuses": domain.DriverStatuses,
		})
		return
	}
	if len(req.Note) > 500 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "note exceeds 500 characters"})
		return
	}

	override, err := h.overrides.Set(ctx, driver, base, status, req.Note)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to set driver status"})
		return
	}
	c.JSON(http.StatusOK, override)
}

// GetStatus returns the overrides of one driver. With a base query it
// narrows to that single (driver, base) row, answering a null status
// when none is set.
// GET /api/v1/drivers/:driver/status?base=
func (h *DriverHandler) GetStatus(c *gin.Context) {
	driver := strings.TrimSpace(c.Param("driver"))
	if driver == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "driver is required"})
		return
	}
	ctx := c.Request.Context()

	if base, narrowed := c.GetQuery("base"); narrowed {
		override, err := h.overrides.Get(ctx, driver, strings.TrimSpace(base))
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load driver status"})
			return
		}
		if override == nil {
			c.JSON(http.StatusOK, gin.H{"driver": driver, "base": strings.TrimSpace(base), "status": nil})
			return
		}
		c.JSON(http.StatusOK, override)
		return
	}

	overrides, err := h.overrides.ListByDriver(ctx, driver)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load driver statuses"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"driver": driver, "overrides": overrides, "count": len(overrides)})
}
