package web

import (
	"net/http"
	"time"

	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"

	"github.com/sgoodz/bitcoin-heatmap/internal/nodes"
)

// SetupRoutes mounts the dashboard page and the JSON API. Sessions only
// carry viewer preferences; the dashboard itself is public.
func SetupRoutes(r *gin.Engine, svc *nodes.Service) {
	store := cookie.NewStore([]byte("btc-heatmap-prefs"))
	store.Options(sessions.Options{
		Path:     "/",
		MaxAge:   3600 * 24 * 30,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	r.Use(sessions.Sessions("heatmap_session", store))
	r.Use(RequestID(), AccessLog())

	nodesHandler := &NodesHandler{Svc: svc}
	systemHandler := &SystemHandler{Start: time.Now()}
	prefsHandler := &PrefsHandler{}
	eventsHandler := &EventsHandler{}

	r.GET("/", func(c *gin.Context) {
		c.HTML(http.StatusOK, "dashboard.html", gin.H{
			"title":  "Bitcoin Network Heatmap",
			"active": "dashboard",
		})
	})

	api := r.Group("/api")
	{
		api.GET("/snapshot", nodesHandler.GetSnapshot)
		api.GET("/heatmap", nodesHandler.GetHeatmap)
		api.GET("/nodes", nodesHandler.GetNodes)
		api.GET("/stats", nodesHandler.GetStats)
		api.POST("/refresh", nodesHandler.Refresh)

		api.GET("/system", systemHandler.GetSystem)
		api.GET("/events", eventsHandler.GetEvents)

		api.GET("/prefs", prefsHandler.GetPrefs)
		api.POST("/prefs", prefsHandler.SavePrefs)
	}
}
