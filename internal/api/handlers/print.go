package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/pretyflaco/voucherprint/internal/printing"
)

// PrintHandler exposes the orchestrator over HTTP. Print failures are
// reported inside the result body with a 200 status; only malformed
// requests earn a 4xx.
type PrintHandler struct {
	svc      *printing.Service
	defaults PrintDefaults
}

func NewPrintHandler(svc *printing.Service, defaults PrintDefaults) *PrintHandler {
	return &PrintHandler{svc: svc, defaults: defaults}
}

// PrintVoucher handles POST /api/print.
func (h *PrintHandler) PrintVoucher(c *gin.Context) {
	var req PrintRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "validation_error",
			Message: err.Error(),
		})
		return
	}

	res := h.svc.PrintVoucher(c.Request.Context(), req.Voucher, req.Options.toOptions(h.defaults))
	c.JSON(http.StatusOK, res)
}

// PrintBatch handles POST /api/print/batch.
func (h *PrintHandler) PrintBatch(c *gin.Context) {
	var req BatchPrintRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "validation_error",
			Message: err.Error(),
		})
		return
	}
	if len(req.Vouchers) == 0 {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "validation_error",
			Message: "At least one voucher is required",
		})
		return
	}

	res := h.svc.PrintVouchers(c.Request.Context(), req.Vouchers, req.Options.toOptions(h.defaults))
	c.JSON(http.StatusOK, res)
}

// PreviewResponse carries a built receipt without printing it.
type PreviewResponse struct {
	Data       string `json:"data"`
	Bytes      int    `json:"bytes"`
	PaperWidth int    `json:"paperWidth"`
}

// Preview handles POST /api/receipt/preview: build and return the receipt
// base64-encoded, for preview or external hand-off.
func (h *PrintHandler) Preview(c *gin.Context) {
	var req PrintRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "validation_error",
			Message: err.Error(),
		})
		return
	}

	opts := req.Options.toOptions(h.defaults)
	raw, err := h.svc.ReceiptBytes(req.Voucher, opts)
	if err != nil {
		c.JSON(http.StatusUnprocessableEntity, ErrorResponse{
			Error:   "build_error",
			Message: err.Error(),
		})
		return
	}

	b64, err := h.svc.ReceiptBase64(req.Voucher, opts)
	if err != nil {
		c.JSON(http.StatusUnprocessableEntity, ErrorResponse{
			Error:   "build_error",
			Message: err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, PreviewResponse{
		Data:       b64,
		Bytes:      len(raw),
		PaperWidth: opts.PaperWidth,
	})
}

// DeepLinkResponse carries the companion-app handoff URI.
type DeepLinkResponse struct {
	URI string `json:"uri"`
}

// DeepLink handles POST /api/deeplink.
func (h *PrintHandler) DeepLink(c *gin.Context) {
	var req PrintRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "validation_error",
			Message: err.Error(),
		})
		return
	}

	uri, err := h.svc.DeepLink(req.Voucher, req.Options.toOptions(h.defaults))
	if err != nil {
		c.JSON(http.StatusUnprocessableEntity, ErrorResponse{
			Error:   "deeplink_error",
			Message: err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, DeepLinkResponse{URI: uri})
}

func (h *PrintHandler) RegisterRoutes(r *gin.RouterGroup) {
	r.POST("/print", h.PrintVoucher)
	r.POST("/print/batch", h.PrintBatch)
	r.POST("/receipt/preview", h.Preview)
	r.POST("/deeplink", h.DeepLink)
}
