package web

import (
	"net/http"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"

	"github.com/sgoodz/bitcoin-heatmap/internal/logger"
)

// Viewer preference defaults.
const (
	defaultMapLayer = "dark"
	defaultViewMode = "auto"
)

// PrefsHandler stores per-visitor display preferences in the cookie session
// so the map comes back the way the visitor left it.
type PrefsHandler struct{}

type prefsPayload struct {
	MapLayer    string `json:"map_layer"`
	ViewMode    string `json:"view_mode"`
	AutoRefresh bool   `json:"auto_refresh"`
}

// GetPrefs returns the stored preferences, falling back to defaults.
func (h *PrefsHandler) GetPrefs(c *gin.Context) {
	session := sessions.Default(c)

	p := prefsPayload{MapLayer: defaultMapLayer, ViewMode: defaultViewMode}
	if v, ok := session.Get("map_layer").(string); ok && v != "" {
		p.MapLayer = v
	}
	if v, ok := session.Get("view_mode").(string); ok && v != "" {
		p.ViewMode = v
	}
	if v, ok := session.Get("auto_refresh").(bool); ok {
		p.AutoRefresh = v
	}

	c.JSON(http.StatusOK, p)
}

// SavePrefs replaces the stored preferences.
func (h *PrefsHandler) SavePrefs(c *gin.Context) {
	var p prefsPayload
	if err := c.ShouldBindJSON(&p); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	session := sessions.Default(c)
	session.Set("map_layer", p.MapLayer)
	session.Set("view_mode", p.ViewMode)
	session.Set("auto_refresh", p.AutoRefresh)
	if err := session.Save(); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to save preferences"})
		return
	}

	logger.LogEvent(logger.TypeWeb, "save prefs", c.ClientIP(), "SUCCESS")
	c.JSON(http.StatusOK, p)
}
