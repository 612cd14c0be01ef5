package response

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/bluetrack/tracking-backend-go/internal/apperr"
)

// Response represents a standard API response
type Response struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Kind    string      `json:"kind,omitempty"`
	Data    interface{} `json:"data,omitempty"`
}

// Success sends a successful response
func Success(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, Response{
		Code:    0,
		Message: "success",
		Data:    data,
	})
}

// Error sends an error response
func Error(c *gin.Context, code int, message string) {
	c.JSON(code, Response{
		Code:    code,
		Message: message,
	})
}

// BadRequest sends a 400 bad request response
func BadRequest(c *gin.Context, message string) {
	Error(c, http.StatusBadRequest, message)
}

// NotFound sends a 404 not found response
func NotFound(c *gin.Context, message string) {
	Error(c, http.StatusNotFound, message)
}

// Unauthorized sends a 401 unauthorized response
func Unauthorized(c *gin.Context, message string) {
	Error(c, http.StatusUnauthorized, message)
}

// InternalError sends a 500 internal server error response
func InternalError(c *gin.Context, message string) {
	Error(c, http.StatusInternalServerError, message)
}

// FromError maps a classified error onto the wire contract: the kind
// drives both the HTTP status and the machine-readable kind field.
func FromError(c *gin.Context, err error) {
	kind := apperr.KindOf(err)
	c.JSON(statusFor(kind), Response{
		Code:    statusFor(kind),
		Message: err.Error(),
		Kind:    string(kind),
	})
}

func statusFor(kind apperr.Kind) int {
	switch kind {
	case apperr.KindMissingIdentifier, apperr.KindMissingCoordinates, apperr.KindValidation:
		return http.StatusBadRequest
	case apperr.KindNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}
