package handlers

import (
	"database/sql"
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/pretyflaco/voucherprint/internal/history"
)

// HistoryHandler reads the printed-voucher audit trail.
type HistoryHandler struct {
	store *history.Store
}

func NewHistoryHandler(store *history.Store) *HistoryHandler {
	return &HistoryHandler{store: store}
}

// GetJob handles GET /api/jobs/:id.
func (h *HistoryHandler) GetJob(c *gin.Context) {
	entry, err := h.store.GetEntry(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			c.JSON(http.StatusNotFound, ErrorResponse{
				Error:   "not_found",
				Message: "No record of that job",
			})
			return
		}
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error:   "database_error",
			Message: "Failed to load job",
		})
		return
	}
	c.JSON(http.StatusOK, entry)
}

// ListHistory handles GET /api/history with optional status, limit
// and offset query parameters.
func (h *HistoryHandler) ListHistory(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))
	status := c.Query("status")

	entries, err := h.store.ListEntries(c.Request.Context(), status, limit, offset)
	if err != nil {
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error:   "database_error",
			Message: "Failed to load history",
		})
		return
	}
	if entries == nil {
		entries = []*history.Entry{}
	}
	c.JSON(http.StatusOK, entries)
}

// Stats handles GET /api/history/stats.
func (h *HistoryHandler) Stats(c *gin.Context) {
	stats, err := h.store.GetStats(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error:   "database_error",
			Message: "Failed to aggregate stats",
		})
		return
	}
	c.JSON(http.StatusOK, stats)
}

func (h *HistoryHandler) RegisterRoutes(r *gin.RouterGroup) {
	r.GET("/jobs/:id", h.GetJob)
	r.GET("/history", h.ListHistory)
	r.GET("/history/stats", h.Stats)
}
