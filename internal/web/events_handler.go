package web

import (
	"bufio"
	"encoding/json"
	"net/http"
	"os"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/sgoodz/bitcoin-heatmap/internal/logger"
)

// EventsHandler serves the fetch/cache audit trail recorded by the logger.
type EventsHandler struct{}

// GetEvents reads one event category (default: all) newest first.
// ?type=fetch|web|cache filters by category, ?limit=N caps the result.
func (h *EventsHandler) GetEvents(c *gin.Context) {
	eventType := c.DefaultQuery("type", "")
	limit, err := strconv.Atoi(c.DefaultQuery("limit", "100"))
	if err != nil || limit <= 0 {
		limit = 100
	}

	file, err := os.Open(logger.EventFilePath(eventType))
	if err != nil {
		c.JSON(http.StatusOK, []logger.Event{})
		return
	}
	defer file.Close()

	var events []logger.Event
	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var e logger.Event
		if err := json.Unmarshal(line, &e); err == nil {
			events = append(events, e)
		}
	}

	// newest first
	for i, j := 0, len(events)-1; i < j; i, j = i+1, j-1 {
		events[i], events[j] = events[j], events[i]
	}
	if len(events) > limit {
		events = events[:limit]
	}
	if events == nil {
		events = []logger.Event{}
	}

	c.JSON(http.StatusOK, events)
}
