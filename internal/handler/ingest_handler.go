package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/bluetrack/tracking-backend-go/internal/models"
	"github.com/bluetrack/tracking-backend-go/internal/service"
	"github.com/bluetrack/tracking-backend-go/pkg/response"
)

// IngestHandler receives tracker webhook reports
type IngestHandler struct {
	ingestService *service.IngestService
}

// NewIngestHandler creates a new ingest handler
func NewIngestHandler(ingestService *service.IngestService) *IngestHandler {
	return &IngestHandler{
		ingestService: ingestService,
	}
}

// Report handles POST /api/v1/tracker/report
func (h *IngestHandler) Report(c *gin.Context) {
	var report models.TrackerReport
	if err := c.ShouldBindJSON(&report); err != nil {
		response.BadRequest(c, "Invalid JSON payload")
		return
	}

	ack, err := h.ingestService.Ingest(report)
	if err != nil {
		response.FromError(c, err)
		return
	}

	response.Success(c, ack)
}
