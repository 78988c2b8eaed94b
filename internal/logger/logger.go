package logger

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// Event type constants so call sites cannot typo a category.
const (
	TypeFetch = "fetch"
	TypeWeb   = "web"
	TypeCache = "cache"
)

// Event is one audit record: a fetch attempt, a cache decision or a web
// action, appended as a JSON line.
type Event struct {
	Timestamp string `json:"timestamp"`
	ID        string `json:"id"`
	Type      string `json:"type"`
	Action    string `json:"action"`
	Target    string `json:"target"`
	Status    string `json:"status"`
}

var eventDir = "."

// Setup configures the process-wide logrus logger and the directory that
// receives the JSONL event files.
func Setup(level string, dir string) {
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		lvl = logrus.InfoLevel
	}
	logrus.SetLevel(lvl)
	logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	if dir != "" {
		eventDir = dir
	}
}

// LogEvent records one audit event to the shared log and the per-category
// JSONL file.
func LogEvent(eventType, action, target, status string) {
	e := Event{
		Timestamp: time.Now().Format("2006-01-02 15:04:05"),
		ID:        uuid.NewString(),
		Type:      eventType,
		Action:    action,
		Target:    target,
		Status:    status,
	}

	logrus.WithFields(logrus.Fields{
		"type":   e.Type,
		"target": e.Target,
		"status": e.Status,
	}).Info(e.Action)

	saveToFile("events.jsonl", e)
	saveToFile(fmt.Sprintf("%s_events.jsonl", eventType), e)
}

// LogFetch records a snapshot fetch or cache-hit event.
func LogFetch(action, target, status string) {
	LogEvent(TypeFetch, action, target, status)
}

// EventFilePath returns the JSONL file backing one event category, or the
// shared file when eventType is empty.
func EventFilePath(eventType string) string {
	if eventType == "" {
		return filepath.Join(eventDir, "events.jsonl")
	}
	return filepath.Join(eventDir, fmt.Sprintf("%s_events.jsonl", eventType))
}

func saveToFile(name string, e Event) {
	f, err := os.OpenFile(filepath.Join(eventDir, name), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		logrus.WithError(err).Warn("event file open failed")
		return
	}
	defer f.Close()

	b, _ := json.Marshal(e)
	f.Write(b)
	f.Write([]byte("\n"))
}
