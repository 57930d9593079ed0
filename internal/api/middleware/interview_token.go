package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/recruitgenius/backend/internal/auth"
	"github.com/recruitgenius/backend/internal/utils"
)

// LinkParser validates interview-link tokens.
type LinkParser interface {
	Parse(raw string) (*auth.InterviewClaims, error)
}

// InterviewToken authenticates candidates by the token from their interview
// link. Browsers cannot set headers on websocket upgrades, so ?token= is
// accepted as well as a bearer header.
func InterviewToken(links LinkParser) gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := ""
		if h := c.GetHeader("Authorization"); strings.HasPrefix(h, "Bearer ") {
			raw = strings.TrimSpace(strings.TrimPrefix(h, "Bearer "))
		}
		if raw == "" {
			raw = strings.TrimSpace(c.Query("token"))
		}
		if raw == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, apiError{
				Code:    utils.CodeUnauthorized,
				Message: "missing interview token",
			})
			return
		}

		claims, err := links.Parse(raw)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, apiError{
				Code:    utils.CodeUnauthorized,
				Message: "invalid or expired interview link",
			})
			return
		}

		c.Set("candidate_id", claims.CandidateID)
		c.Set("session_id", claims.SessionID)
		c.Next()
	}
}
