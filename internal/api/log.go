package api

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"regexp"
	"sort"
	"strings"
	"time"

	"venuemap/pkg/logging"
)

// Regex to capture key=value or key="value with spaces"
var logRegex = regexp.MustCompile(`([a-zA-Z0-9_\-.]+)=(?:"([^"]*)"|([^ ]+))`)

// handleLatestLog returns the last server log line and the last analytics event.
func handleLatestLog(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(map[string]string{
		"log":   formatLogLine(logging.LastLog.Last()),
		"event": logging.LastEvent.Last(),
	}); err != nil {
		slog.Error("Failed to write log response", "error", err)
	}
}

// maxParamLen drops ids, session uuids and paths from the status line.
const maxParamLen = 20

// formatLogLine condenses a slog text line to "HH:MM:SS [component] msg (k=v, ...)".
// Level is dropped, params are sorted and long values omitted.
func formatLogLine(raw string) string {
	var timeStr, component, msg string
	var params []string

	for _, m := range logRegex.FindAllStringSubmatch(raw, -1) {
		key, val := m[1], m[2]
		if val == "" {
			val = m[3]
		}
		val = strings.TrimSpace(val)

		switch key {
		case "time":
			if t, err := time.Parse(time.RFC3339, val); err == nil {
				timeStr = t.Format("15:04:05")
			}
		case "level":
		case "msg":
			msg = val
		case "component":
			component = val
		default:
			if len(val) <= maxParamLen {
				params = append(params, key+"="+val)
			}
		}
	}

	if msg == "" {
		return raw
	}
	if component != "" {
		msg = fmt.Sprintf("[%s] %s", component, msg)
	}
	if timeStr != "" {
		msg = timeStr + " " + msg
	}
	if len(params) == 0 {
		return msg
	}
	sort.Strings(params)
	return fmt.Sprintf("%s (%s)", msg, strings.Join(params, ", "))
}
