package api

import (
	"fmt"
	"net/http"
	"regexp"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/samber/lo"

	"voyageai/pkg/logging"
)

const (
	maxLogParamLen = 20
	maxLogLines    = 50
)

// slog text attributes: key=value or key="quoted value".
var logAttr = regexp.MustCompile(`([a-zA-Z0-9_\-.]+)=(?:"([^"]*)"|([^ ]+))`)

type latestLogResponse struct {
	Log   string   `json:"log"`
	Lines []string `json:"lines,omitempty"`
}

// handleLatestLog returns the newest status line. ?lines=n adds up to n recent lines, oldest first.
func handleLatestLog(w http.ResponseWriter, r *http.Request) {
	resp := latestLogResponse{Log: formatLogLine(logging.GlobalLogCapture.GetLastLine())}

	if raw := r.URL.Query().Get("lines"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			writeError(w, http.StatusBadRequest, codeBadRequest, "lines must be a positive integer")
			return
		}
		resp.Lines = lo.Map(logging.GlobalLogCapture.Lines(min(n, maxLogLines)), func(l string, _ int) string {
			return formatLogLine(l)
		})
	}
	writeJSON(w, http.StatusOK, resp)
}

// formatLogLine turns a slog text line into "HH:MM:SS msg (k=v, ...)".
// Level is dropped, attributes are sorted and values longer than maxLogParamLen are omitted.
// Lines that are not slog output are returned unchanged.
func formatLogLine(raw string) string {
	var stamp, msg string
	var attrs []string

	for _, m := range logAttr.FindAllStringSubmatch(raw, -1) {
		key, val := m[1], strings.TrimSpace(lo.Ternary(m[2] != "", m[2], m[3]))
		switch {
		case key == "level":
		case key == "time":
			if t, err := time.Parse(time.RFC3339, val); err == nil {
				stamp = t.Format("15:04:05")
			}
		case key == "msg":
			msg = val
		case len(val) <= maxLogParamLen:
			attrs = append(attrs, key+"="+val)
		}
	}
	if msg == "" {
		return raw
	}

	out := msg
	if stamp != "" {
		out = stamp + " " + msg
	}
	if len(attrs) == 0 {
		return out
	}
	slices.Sort(attrs)
	return fmt.Sprintf("%s (%s)", out, strings.Join(attrs, ", "))
}
