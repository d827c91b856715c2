package handlers

import (
	"net/http"
	"os"

	"github.com/gin-gonic/gin"
	"github.com/pkg/errors"
	"github.com/txn2/uartdbg/pkg/uartapi/types"
	"github.com/txn2/uartdbg/pkg/uartpool"
	"github.com/txn2/uartdbg/pkg/uartscript"
)

// ScriptsHandler queues script runs
type ScriptsHandler struct {
	starter types.ScriptStarter
}

func NewScriptsHandler(starter types.ScriptStarter) *ScriptsHandler {
	return &ScriptsHandler{starter: starter}
}

// Run queues a script from a host path or inline source and returns
// without waiting for it. Output shows up as panels.
func (h *ScriptsHandler) Run(c *gin.Context) {
	var req types.ScriptRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "INVALID_REQUEST", err.Error())
		return
	}

	var s uartscript.Script
	switch {
	case req.Path != "" && req.Source != "":
		respondError(c, http.StatusBadRequest, "INVALID_REQUEST", "set either path or source, not both")
		return
	case req.Path != "":
		if _, err := os.Stat(req.Path); err != nil {
			respondError(c, http.StatusNotFound, "NOT_FOUND", err.Error())
			return
		}
		s = uartscript.FromFile(req.Path)
	case req.Source != "":
		s = uartscript.FromSource(req.Source)
	default:
		respondError(c, http.StatusBadRequest, "INVALID_REQUEST", "path or source is required")
		return
	}

	if err := h.starter.Start(s); err != nil {
		if errors.Is(err, uartpool.ErrQueueFull) {
			respondError(c, http.StatusTooManyRequests, "QUEUE_FULL", err.Error())
			return
		}
		respondError(c, http.StatusServiceUnavailable, "NOT_STARTED", err.Error())
		return
	}

	respondOK(c, http.StatusAccepted, types.ScriptResponse{Script: s.String(), Queued: true}, 0)
}
