package respond

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// JSON writes payload verbatim with the given status.
func JSON(c *gin.Context, status int, payload any) {
	c.JSON(status, payload)
}

// Success writes a 200 response whose body is fields plus "success": true.
func Success(c *gin.Context, fields gin.H) {
	body := make(gin.H, len(fields)+1)
	for k, v := range fields {
		body[k] = v
	}
	body["success"] = true
	JSON(c, http.StatusOK, body)
}
