package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/pretyflaco/voucherprint/internal/transport"
)

// MethodsHandler surfaces the connection manager: which transports
// exist, which would be picked, and the explicit override.
type MethodsHandler struct {
	manager *transport.Manager
}

func NewMethodsHandler(manager *transport.Manager) *MethodsHandler {
	return &MethodsHandler{manager: manager}
}

// MethodsResponse lists every adapter with live availability flags.
type MethodsResponse struct {
	Methods []transport.Info `json:"methods"`
	Active  transport.Type   `json:"active,omitempty"`
}

// ListMethods handles GET /api/methods.
func (h *MethodsHandler) ListMethods(c *gin.Context) {
	c.JSON(http.StatusOK, MethodsResponse{
		Methods: h.manager.AvailableAdapters(c.Request.Context()),
		Active:  h.manager.ActiveType(),
	})
}

// Recommendations handles GET /api/methods/recommendations.
func (h *MethodsHandler) Recommendations(c *gin.Context) {
	c.JSON(http.StatusOK, h.manager.Recommendations())
}

type SetActiveRequest struct {
	Type string `json:"type" binding:"required"`
}

// SetActive handles PUT /api/methods/active.
func (h *MethodsHandler) SetActive(c *gin.Context) {
	var req SetActiveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "validation_error",
			Message: err.Error(),
		})
		return
	}

	if err := h.manager.SetActiveAdapter(c.Request.Context(), transport.Type(req.Type)); err != nil {
		c.JSON(http.StatusUnprocessableEntity, ErrorResponse{
			Error:   "adapter_unavailable",
			Message: err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "active": req.Type})
}

// ClearActive handles DELETE /api/methods/active: drop the memoized
// selection so the next print re-probes.
func (h *MethodsHandler) ClearActive(c *gin.Context) {
	h.manager.InvalidateActive()
	c.JSON(http.StatusOK, gin.H{"success": true})
}

func (h *MethodsHandler) RegisterRoutes(r *gin.RouterGroup) {
	r.GET("/methods", h.ListMethods)
	r.GET("/methods/recommendations", h.Recommendations)
	r.PUT("/methods/active", h.SetActive)
	r.DELETE("/methods/active", h.ClearActive)
}
