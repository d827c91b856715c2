package handlers

import (
	"encoding/hex"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/pkg/errors"
	"github.com/txn2/uartdbg/pkg/uartapi/types"
	"github.com/txn2/uartdbg/pkg/uartsession"
	"github.com/txn2/uartdbg/pkg/uarttui/components"
	"github.com/txn2/uartdbg/pkg/uarttx"
)

// maxTxBytes bounds one transmit request
const maxTxBytes = 64 * 1024

// DataHandler serves the receive buffer and queues transmit data
type DataHandler struct {
	link   types.LinkController
	sender types.Sender
}

func NewDataHandler(link types.LinkController, sender types.Sender) *DataHandler {
	return &DataHandler{link: link, sender: sender}
}

// Rx returns the receive buffer; ?format=hex adds the hex view
func (h *DataHandler) Rx(c *gin.Context) {
	buf := h.link.Buffer()
	raw := buf.Bytes()

	resp := types.RxResponse{
		Text:       buf.String(),
		Length:     len(raw),
		Generation: buf.Generation(),
	}
	if c.Query("format") == "hex" {
		resp.Hex = components.FormatHex(raw)
	}
	respondOK(c, http.StatusOK, resp, 0)
}

// ClearRx empties the receive buffer
func (h *DataHandler) ClearRx(c *gin.Context) {
	h.link.Buffer().Clear()
	c.Status(http.StatusNoContent)
}

// decodeTx turns a request into bytes
func decodeTx(req types.TxRequest) ([]byte, error) {
	switch {
	case req.Text != "" && req.Hex != "":
		return nil, errors.New("set either text or hex, not both")
	case req.Hex != "":
		p, err := hex.DecodeString(strings.Join(strings.Fields(req.Hex), ""))
		if err != nil {
			return nil, errors.Wrap(err, "invalid hex")
		}
		return p, nil
	case req.Text != "":
		return []byte(req.Text), nil
	}
	return nil, errors.New("nothing to send")
}

// Tx queues data for the device. It does not wait for the write.
func (h *DataHandler) Tx(c *gin.Context) {
	var req types.TxRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "INVALID_REQUEST", err.Error())
		return
	}

	p, err := decodeTx(req)
	if err != nil {
		respondError(c, http.StatusBadRequest, "INVALID_REQUEST", err.Error())
		return
	}
	if len(p) > maxTxBytes {
		respondError(c, http.StatusRequestEntityTooLarge, "TOO_LARGE", "transmit data exceeds 64 KiB")
		return
	}

	if h.link.Info().Status != uartsession.StatusConnected {
		respondError(c, http.StatusConflict, "NOT_CONNECTED", uartsession.ErrNotConnected.Error())
		return
	}

	if err := h.sender.Send(p); err != nil {
		if errors.Is(err, uarttx.ErrQueueFull) {
			respondError(c, http.StatusTooManyRequests, "QUEUE_FULL", err.Error())
			return
		}
		respondError(c, http.StatusServiceUnavailable, "SEND_FAILED", err.Error())
		return
	}

	respondOK(c, http.StatusAccepted, types.TxResponse{Queued: len(p)}, 0)
}
