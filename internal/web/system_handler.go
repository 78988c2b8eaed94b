package web

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"
)

// SystemHandler exposes host health for the dashboard footer.
type SystemHandler struct {
	Start time.Time
}

// GetSystem reports process uptime plus OS CPU and memory usage.
func (h *SystemHandler) GetSystem(c *gin.Context) {
	cpuUsage := 0.0
	if pct, err := cpu.Percent(0, false); err == nil && len(pct) > 0 {
		cpuUsage = pct[0]
	}

	memUsage := 0.0
	if vm, err := mem.VirtualMemory(); err == nil {
		memUsage = vm.UsedPercent
	}

	c.JSON(http.StatusOK, gin.H{
		"timestamp": time.Now().UnixMilli(),
		"cpu_usage": cpuUsage,
		"mem_usage": memUsage,
		"uptime":    time.Since(h.Start).Round(time.Second).String(),
	})
}
