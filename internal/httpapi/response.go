package httpapi

import "github.com/gin-gonic/gin"

// respondData writes the success envelope {"data": ...}.
func respondData(c *gin.Context, status int, v any) {
	c.JSON(status, gin.H{"data": v})
}

// respondError writes the error envelope {"error": ...} and aborts.
func respondError(c *gin.Context, status int, msg string) {
	c.AbortWithStatusJSON(status, gin.H{"error": msg})
}
