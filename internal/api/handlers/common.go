package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/recruitgenius/backend/internal/utils"
)

type APIError struct {
	Code    utils.Code `json:"code"`
	Message string     `json:"message"`
}

func writeError(c *gin.Context, err error) {
	status := utils.HTTPStatus(err)
	if status >= 500 {
		_ = c.Error(err)
	}

	var ae *utils.AppError
	if errors.As(err, &ae) {
		c.JSON(status, APIError{
			Code:    ae.Code,
			Message: ae.Message,
		})
		return
	}

	c.JSON(status, APIError{
		Code:    utils.CodeInternal,
		Message: http.StatusText(status),
	})
}

// requireInterview returns the candidate and session bound to the request's
// interview token.
func requireInterview(c *gin.Context) (candidateID, sessionID string, ok bool) {
	candidateID = c.GetString("candidate_id")
	sessionID = c.GetString("session_id")
	if candidateID == "" || sessionID == "" {
		writeError(c, utils.E(utils.CodeUnauthorized, "Auth", "unauthorized", nil))
		return "", "", false
	}
	return candidateID, sessionID, true
}

func intQuery(c *gin.Context, key string, fallback int) (int, error) {
	v := c.Query(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, utils.E(utils.CodeInvalidArgument, "Query", key+" must be an integer", err)
	}
	return n, nil
}
