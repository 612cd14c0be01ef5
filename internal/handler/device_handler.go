package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/bluetrack/tracking-backend-go/internal/service"
	"github.com/bluetrack/tracking-backend-go/pkg/response"
)

// DeviceHandler serves device status reads and admin operations
type DeviceHandler struct {
	deviceService *service.DeviceService
}

// NewDeviceHandler creates a new device handler
func NewDeviceHandler(deviceService *service.DeviceService) *DeviceHandler {
	return &DeviceHandler{
		deviceService: deviceService,
	}
}

// Status handles GET /api/v1/devices/:device_id/status
func (h *DeviceHandler) Status(c *gin.Context) {
	status, err := h.deviceService.Status(c.Param("device_id"))
	if err != nil {
		response.FromError(c, err)
		return
	}

	response.Success(c, status)
}

// Deactivate handles POST /api/v1/devices/:device_id/deactivate
func (h *DeviceHandler) Deactivate(c *gin.Context) {
	if err := h.deviceService.Deactivate(c.Param("device_id")); err != nil {
		response.FromError(c, err)
		return
	}

	response.Success(c, gin.H{"deviceId": c.Param("device_id"), "isActive": false})
}

type reassignRequest struct {
	AccountID string `json:"accountId" binding:"required"`
}

// Reassign handles POST /api/v1/devices/:device_id/reassign
func (h *DeviceHandler) Reassign(c *gin.Context) {
	var req reassignRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "accountId is required")
		return
	}

	if err := h.deviceService.Reassign(c.Param("device_id"), req.AccountID); err != nil {
		response.FromError(c, err)
		return
	}

	response.Success(c, gin.H{"deviceId": c.Param("device_id"), "accountId": req.AccountID})
}
