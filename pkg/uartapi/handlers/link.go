package handlers

import (
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/txn2/uartdbg/pkg/uartapi/types"
	"github.com/txn2/uartdbg/pkg/uartcfg"
	"github.com/txn2/uartdbg/pkg/uartlink"
)

// LinkHandler reports and controls the serial link
type LinkHandler struct {
	link   types.LinkController
	events types.EventStats
	panels types.PanelReader
	ports  types.PortLister
	cfg    uartcfg.Config
}

// NewLinkHandler creates a link handler. cfg supplies the connection
// parameters a connect request does not override.
func NewLinkHandler(link types.LinkController, events types.EventStats, panels types.PanelReader, ports types.PortLister, cfg uartcfg.Config) *LinkHandler {
	return &LinkHandler{link: link, events: events, panels: panels, ports: ports, cfg: cfg}
}

// Status returns the link state and counters
func (h *LinkHandler) Status(c *gin.Context) {
	info := h.link.Info()

	resp := types.StatusResponse{
		Status: info.Status.String(),
		Stats: types.LinkStats{
			BytesRead:    info.Stats.BytesRead,
			BytesWritten: info.Stats.BytesWritten,
			Writes:       info.Stats.Writes,
			WriteErrors:  info.Stats.WriteErrors,
		},
		RxBuffered: h.link.Buffer().Len(),
	}
	if info.Conn.Port != "" {
		resp.Port = info.Conn.Port
		resp.BaudRate = info.Conn.BaudRate
		resp.Parity = info.Conn.Parity.String()
		resp.StopBits = info.Conn.StopBits.String()
	}
	if !info.Since.IsZero() {
		resp.Since = info.Since
	}
	if info.LastErr != nil {
		resp.LastError = info.LastErr.Error()
	}
	if h.panels != nil {
		resp.Panels = len(h.panels.Snapshot().Panels)
	}
	if h.events != nil {
		resp.PendingEvents = h.events.Len()
		resp.DroppedEvents = h.events.Dropped()
	}

	respondOK(c, http.StatusOK, resp, 0)
}

// Connect opens the link, replacing any open one
func (h *LinkHandler) Connect(c *gin.Context) {
	var req types.ConnectRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		respondError(c, http.StatusBadRequest, "INVALID_REQUEST", err.Error())
		return
	}

	cfg := h.cfg
	if req.Port != "" {
		cfg.Port = req.Port
	}
	if req.BaudRate != 0 {
		cfg.Baud = req.BaudRate
	}
	if req.Parity != "" {
		cfg.ParityName = req.Parity
	}
	if req.StopBits != "" {
		cfg.StopBitsStr = req.StopBits
	}

	conn, err := cfg.Connection()
	if err != nil {
		respondError(c, http.StatusBadRequest, "INVALID_CONNECTION", err.Error())
		return
	}

	if err := h.link.Connect(conn); err != nil {
		var openErr *uartlink.OpenError
		if errors.As(err, &openErr) {
			respondError(c, http.StatusBadGateway, "OPEN_FAILED", err.Error())
			return
		}
		respondError(c, http.StatusInternalServerError, "CONNECT_FAILED", err.Error())
		return
	}

	respondOK(c, http.StatusOK, gin.H{"connected": conn.String()}, 0)
}

// Disconnect closes the link; it is a no-op when not connected
func (h *LinkHandler) Disconnect(c *gin.Context) {
	h.link.Disconnect()
	respondOK(c, http.StatusOK, gin.H{"disconnected": true, "at": time.Now()}, 0)
}

// Ports lists the serial ports of the host
func (h *LinkHandler) Ports(c *gin.Context) {
	if h.ports == nil {
		respondError(c, http.StatusServiceUnavailable, "NOT_AVAILABLE", "port enumeration not available")
		return
	}
	ports, err := h.ports()
	if err != nil {
		respondError(c, http.StatusInternalServerError, "LIST_FAILED", err.Error())
		return
	}
	if ports == nil {
		ports = []string{}
	}
	respondOK(c, http.StatusOK, types.PortsResponse{Ports: ports}, len(ports))
}
