package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/instacall/signaling/internal/auth"
)

// LoginRequest represents the login request body
type LoginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// LoginResponse represents the login response
type LoginResponse struct {
	Token  string `json:"token"`
	UserID string `json:"user_id"`
}

// Login issues a JWT a host can present on the signaling socket.
// For demo purposes, accepts any username/password combination.
func Login(verifier *auth.Verifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req LoginRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{
				"error": "Invalid request body",
			})
			return
		}

		// For demo: accept any username/password
		// In production, validate against a user database
		userID := req.Username

		token, err := verifier.Issue(userID, time.Now())
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{
				"error": "Failed to generate token",
			})
			return
		}

		c.JSON(http.StatusOK, LoginResponse{
			Token:  token,
			UserID: userID,
		})
	}
}
