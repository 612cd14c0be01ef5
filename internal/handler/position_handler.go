package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/bluetrack/tracking-backend-go/internal/models"
	"github.com/bluetrack/tracking-backend-go/internal/service"
	"github.com/bluetrack/tracking-backend-go/pkg/response"
)

// PositionHandler serves position store reads
type PositionHandler struct {
	positionService *service.PositionService
}

// NewPositionHandler creates a new position handler
func NewPositionHandler(positionService *service.PositionService) *PositionHandler {
	return &PositionHandler{
		positionService: positionService,
	}
}

// Recent handles GET /api/v1/positions
func (h *PositionHandler) Recent(c *gin.Context) {
	var filter models.PositionFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		response.BadRequest(c, "Invalid query parameters")
		return
	}
	if filter.AccountID == "" {
		response.BadRequest(c, "accountId is required")
		return
	}

	result, err := h.positionService.RecentPositions(filter)
	if err != nil {
		response.InternalError(c, err.Error())
		return
	}

	response.Success(c, result)
}
