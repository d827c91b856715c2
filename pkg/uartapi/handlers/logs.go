package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/txn2/uartdbg/pkg/uartapi/types"
)

// LogsHandler serves captured log entries
type LogsHandler struct {
	logs types.LogReader
}

func NewLogsHandler(logs types.LogReader) *LogsHandler {
	return &LogsHandler{logs: logs}
}

// Recent returns the last ?count= entries (default 100, at most 1000)
func (h *LogsHandler) Recent(c *gin.Context) {
	if h.logs == nil {
		respondError(c, http.StatusServiceUnavailable, "NOT_READY", "log buffer not available")
		return
	}

	count, err := strconv.Atoi(c.DefaultQuery("count", "100"))
	if err != nil || count < 1 {
		count = 100
	}
	if count > 1000 {
		count = 1000
	}

	entries := h.logs.Last(count)
	resp := types.LogsResponse{Logs: make([]types.LogEntryResponse, len(entries))}
	for i, e := range entries {
		resp.Logs[i] = types.LogEntryResponse{
			Timestamp: e.Time,
			Level:     e.Level,
			Message:   e.Message,
			Fields:    e.Fields,
		}
	}

	respondOK(c, http.StatusOK, resp, len(entries))
}
