package handler

import (
	"io"

	"github.com/gin-gonic/gin"

	"github.com/bluetrack/tracking-backend-go/internal/live"
	"github.com/bluetrack/tracking-backend-go/internal/service"
	"github.com/bluetrack/tracking-backend-go/pkg/response"
)

// LiveHandler serves the live position feed: the SSE subscription
// stream and the one-shot snapshot read.
type LiveHandler struct {
	broadcaster     *live.Broadcaster
	snapshotService *service.SnapshotService
}

// NewLiveHandler creates a new live handler
func NewLiveHandler(broadcaster *live.Broadcaster, snapshotService *service.SnapshotService) *LiveHandler {
	return &LiveHandler{
		broadcaster:     broadcaster,
		snapshotService: snapshotService,
	}
}

// Stream handles GET /api/v1/live/stream. The client receives one
// bootstrap event with the full current snapshot, then one update
// event per accepted ingestion until it disconnects.
func (h *LiveHandler) Stream(c *gin.Context) {
	sub := h.broadcaster.Subscribe()
	defer h.broadcaster.Unsubscribe(sub)

	c.Writer.Header().Set("Cache-Control", "no-cache")
	c.Writer.Header().Set("Connection", "keep-alive")

	c.SSEvent("bootstrap", sub.Bootstrap)
	c.Writer.Flush()

	ctx := c.Request.Context()
	c.Stream(func(w io.Writer) bool {
		select {
		case entry := <-sub.Updates():
			c.SSEvent("update", entry)
			return true
		case <-sub.Done():
			return false
		case <-ctx.Done():
			return false
		}
	})
}

// Positions handles GET /api/v1/live/positions
func (h *LiveHandler) Positions(c *gin.Context) {
	response.Success(c, h.snapshotService.LivePositions())
}
