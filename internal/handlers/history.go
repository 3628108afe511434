package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/instacall/signaling/internal/history"
)

// CallHistory returns the authenticated host's recent call records,
// newest first. Requires the JWT middleware.
func CallHistory(rec *history.Recorder) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, exists := c.Get("user_id")
		if !exists {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
			return
		}

		records, err := rec.History(c.Request.Context(), userID.(string))
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch history"})
			return
		}

		c.JSON(http.StatusOK, gin.H{"calls": records})
	}
}
