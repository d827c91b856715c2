package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/txn2/uartdbg/pkg/uartapi/types"
	"github.com/txn2/uartdbg/pkg/uarttui/events"
	"github.com/txn2/uartdbg/pkg/uarttui/state"
)

// PanelsHandler serves the published panel state
type PanelsHandler struct {
	panels types.PanelReader
}

func NewPanelsHandler(panels types.PanelReader) *PanelsHandler {
	return &PanelsHandler{panels: panels}
}

func toPanelResponse(p state.PanelSnapshot, withText bool) types.PanelResponse {
	resp := types.PanelResponse{
		ID:      uint64(p.ID),
		Name:    p.Name,
		Size:    len(p.Text),
		Created: p.Created,
		Updated: p.Updated,
	}
	if withText {
		resp.Text = p.Text
	}
	return resp
}

// List returns every panel in creation order. ?text=false omits the
// panel text.
func (h *PanelsHandler) List(c *gin.Context) {
	snap := h.panels.Snapshot()
	withText := c.DefaultQuery("text", "true") != "false"

	resp := types.PanelListResponse{
		Panels:    make([]types.PanelResponse, 0, len(snap.Panels)),
		LinkLost:  snap.LinkLost,
		LinkError: snap.LinkError,
		Applied:   snap.Applied,
		Ignored:   snap.Ignored,
		Published: snap.Published,
	}
	for _, p := range snap.Panels {
		resp.Panels = append(resp.Panels, toPanelResponse(p, withText))
	}

	respondOK(c, http.StatusOK, resp, len(resp.Panels))
}

// Get returns one panel by id
func (h *PanelsHandler) Get(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		respondError(c, http.StatusBadRequest, "INVALID_ID", "panel id must be a non-negative integer")
		return
	}

	p, ok := h.panels.Snapshot().Find(events.PanelID(id))
	if !ok {
		respondError(c, http.StatusNotFound, "NOT_FOUND", "panel not found: "+c.Param("id"))
		return
	}
	respondOK(c, http.StatusOK, toPanelResponse(p, true), 0)
}
