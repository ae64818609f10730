package handlers

import (
	"database/sql"
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/pretyflaco/voucherprint/internal/config"
	"github.com/pretyflaco/voucherprint/internal/history"
)

const (
	settingsKeyPaperWidth = "paper_width"
	settingsKeyShowLogo   = "show_logo"
	settingsKeyFooterText = "footer_text"
)

// SettingsHandler reads and writes the runtime-adjustable settings.
// File configuration stays authoritative for anything not stored here.
type SettingsHandler struct {
	store *history.Store
	cfg   *config.Config
}

func NewSettingsHandler(store *history.Store, cfg *config.Config) *SettingsHandler {
	return &SettingsHandler{store: store, cfg: cfg}
}

type SettingsResponse struct {
	PaperWidth int    `json:"paperWidth"`
	ShowLogo   bool   `json:"showLogo"`
	FooterText string `json:"footerText"`
}

// GetSettings handles GET /api/settings: the file-config defaults with
// any stored overrides applied.
func (h *SettingsHandler) GetSettings(c *gin.Context) {
	ctx := c.Request.Context()
	resp := SettingsResponse{
		PaperWidth: h.cfg.Printing.PaperWidth,
		ShowLogo:   h.cfg.Printing.LogoPath != "",
		FooterText: h.cfg.Printing.FooterText,
	}

	if v, err := h.store.GetSetting(ctx, settingsKeyPaperWidth); err == nil {
		if width, err := strconv.Atoi(v); err == nil && (width == 58 || width == 80) {
			resp.PaperWidth = width
		}
	}
	if v, err := h.store.GetSetting(ctx, settingsKeyShowLogo); err == nil {
		resp.ShowLogo = v == "true"
	}
	if v, err := h.store.GetSetting(ctx, settingsKeyFooterText); err == nil {
		resp.FooterText = v
	}

	c.JSON(http.StatusOK, resp)
}

type UpdateSettingsRequest struct {
	PaperWidth *int    `json:"paperWidth"`
	ShowLogo   *bool   `json:"showLogo"`
	FooterText *string `json:"footerText"`
}

// UpdateSettings handles PUT /api/settings.
func (h *SettingsHandler) UpdateSettings(c *gin.Context) {
	var req UpdateSettingsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "validation_error",
			Message: err.Error(),
		})
		return
	}

	ctx := c.Request.Context()
	if req.PaperWidth != nil {
		if *req.PaperWidth != 58 && *req.PaperWidth != 80 {
			c.JSON(http.StatusBadRequest, ErrorResponse{
				Error:   "validation_error",
				Message: "Paper width must be 58 or 80",
			})
			return
		}
		if err := h.store.SetSetting(ctx, settingsKeyPaperWidth, strconv.Itoa(*req.PaperWidth)); err != nil {
			h.storeError(c, err)
			return
		}
	}
	if req.ShowLogo != nil {
		if err := h.store.SetSetting(ctx, settingsKeyShowLogo, strconv.FormatBool(*req.ShowLogo)); err != nil {
			h.storeError(c, err)
			return
		}
	}
	if req.FooterText != nil {
		if err := h.store.SetSetting(ctx, settingsKeyFooterText, *req.FooterText); err != nil {
			h.storeError(c, err)
			return
		}
	}

	h.GetSettings(c)
}

func (h *SettingsHandler) storeError(c *gin.Context, err error) {
	if errors.Is(err, sql.ErrNoRows) {
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "not_found", Message: err.Error()})
		return
	}
	c.JSON(http.StatusInternalServerError, ErrorResponse{
		Error:   "database_error",
		Message: "Failed to store setting",
	})
}

type ServerConfigResponse struct {
	Port          int    `json:"port"`
	PaperWidth    int    `json:"paper_width"`
	LogoPath      string `json:"logo_path"`
	HistoryPath   string `json:"history_path"`
	RetentionDays int    `json:"retention_days"`
	RetryDelay    string `json:"retry_delay"`
	MaxRetries    int    `json:"max_retries"`
	InterJobDelay string `json:"inter_job_delay"`
	LogLevel      string `json:"log_level"`
	LogFormat     string `json:"log_format"`
}

// GetServerConfig handles GET /api/config: the read-only view
// of the file configuration.
func (h *SettingsHandler) GetServerConfig(c *gin.Context) {
	c.JSON(http.StatusOK, ServerConfigResponse{
		Port:          h.cfg.Server.Port,
		PaperWidth:    h.cfg.Printing.PaperWidth,
		LogoPath:      h.cfg.Printing.LogoPath,
		HistoryPath:   h.cfg.History.Path,
		RetentionDays: h.cfg.History.RetentionDays,
		RetryDelay:    h.cfg.Printing.RetryDelay.String(),
		MaxRetries:    h.cfg.Printing.MaxRetries,
		InterJobDelay: h.cfg.Printing.InterJobDelay.String(),
		LogLevel:      h.cfg.Logging.Level,
		LogFormat:     h.cfg.Logging.Format,
	})
}

func (h *SettingsHandler) RegisterRoutes(r *gin.RouterGroup) {
	r.GET("/settings", h.GetSettings)
	r.PUT("/settings", h.UpdateSettings)
	r.GET("/config", h.GetServerConfig)
}
