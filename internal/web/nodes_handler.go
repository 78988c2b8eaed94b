package web

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/sgoodz/bitcoin-heatmap/internal/nodes"
)

// NodesHandler serves the aggregated snapshot data to the map UI.
type NodesHandler struct {
	Svc *nodes.Service
}

// GetSnapshot runs one load (subject to the cache check) and returns the
// combined payload the dashboard needs on page load.
func (h *NodesHandler) GetSnapshot(c *gin.Context) {
	res := h.Svc.Load(c.Request.Context())
	c.JSON(http.StatusOK, gin.H{
		"heatmap": gin.H{
			"points": res.HeatPoints(),
			"max":    res.Ceiling,
		},
		"nodes":      res.Peers,
		"stats":      res.Stats,
		"loading":    h.Svc.Loading(),
		"error":      res.Err,
		"fetched_at": res.FetchedAt,
		"from_cache": res.FromCache,
	})
}

// GetHeatmap returns the [lat, lon, intensity] triples plus the display
// ceiling for the heat layer.
func (h *NodesHandler) GetHeatmap(c *gin.Context) {
	res := h.lastOrLoad(c)
	c.JSON(http.StatusOK, gin.H{
		"points": res.HeatPoints(),
		"max":    res.Ceiling,
		"count":  len(res.Cells),
	})
}

// GetNodes returns the capped marker list.
func (h *NodesHandler) GetNodes(c *gin.Context) {
	res := h.lastOrLoad(c)
	c.JSON(http.StatusOK, gin.H{
		"nodes": res.Peers,
		"total": res.Stats.TotalNodes,
	})
}

// GetStats returns the analytics panel payload.
func (h *NodesHandler) GetStats(c *gin.Context) {
	res := h.lastOrLoad(c)
	c.JSON(http.StatusOK, gin.H{
		"stats":      res.Stats,
		"error":      res.Err,
		"fetched_at": res.FetchedAt,
		"from_cache": res.FromCache,
	})
}

// Refresh is the explicit refresh trigger. The cache check still applies, so
// a refresh inside the TTL window serves cached statistics.
func (h *NodesHandler) Refresh(c *gin.Context) {
	res := h.Svc.Load(c.Request.Context())
	status := "SUCCESS"
	if res.Err != "" {
		status = "FAILED"
	}
	c.JSON(http.StatusOK, gin.H{
		"status":     status,
		"error":      res.Err,
		"total":      res.Stats.TotalNodes,
		"from_cache": res.FromCache,
	})
}

// lastOrLoad serves the committed result, loading first only when nothing
// has been committed yet.
func (h *NodesHandler) lastOrLoad(c *gin.Context) nodes.Result {
	if res, ok := h.Svc.Snapshot(); ok {
		return res
	}
	return h.Svc.Load(c.Request.Context())
}
