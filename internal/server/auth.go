package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// handleLogin checks the configured credential pair and returns a signed token.
func (s *Server) handleLogin(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondErrorMessage(c, http.StatusBadRequest, "Invalid request body")
		return
	}

	token, err := s.auth.Login(req.Email, req.Password)
	if err != nil {
		s.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, response{
		Success: true,
		Token:   token,
		Message: "Login successful",
	})
}

// protect requires a valid bearer token before the request proceeds. Decoded
// claims are attached to the context for downstream handlers.
func (s *Server) protect() gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if !strings.HasPrefix(header, "Bearer ") {
			respondErrorMessage(c, http.StatusUnauthorized,
				"Not authorized to access this route. Please provide a valid token.")
			return
		}

		claims, err := s.auth.Verify(strings.TrimPrefix(header, "Bearer "))
		if err != nil {
			respondErrorMessage(c, http.StatusUnauthorized, "Token is invalid or expired")
			return
		}

		c.Set("user", claims)
		c.Next()
	}
}
