package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/recruitgenius/backend/internal/services"
	"github.com/recruitgenius/backend/internal/utils"
)

// AdminHandler serves the admin drill-down views.
type AdminHandler struct {
	admin services.AdminService
}

func NewAdminHandler(admin services.AdminService) *AdminHandler {
	return &AdminHandler{admin: admin}
}

type ProcessRecordingRequest struct {
	AudioURL string `json:"audio_url"`
}

func (h *AdminHandler) CandidateDetail(c *gin.Context) {
	d, err := h.admin.CandidateDetail(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, d)
}

func (h *AdminHandler) InterviewLink(c *gin.Context) {
	link, err := h.admin.IssueInterviewLink(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, link)
}

func (h *AdminHandler) SessionDetail(c *gin.Context) {
	d, err := h.admin.SessionDetail(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, d)
}

// ProcessRecording accepts an optional body with an audio_url override.
func (h *AdminHandler) ProcessRecording(c *gin.Context) {
	var req ProcessRecordingRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			writeError(c, utils.E(utils.CodeInvalidArgument, "AdminHandler.ProcessRecording", "invalid request body", err))
			return
		}
	}
	out, err := h.admin.ProcessRecording(c.Request.Context(), c.Param("id"), req.AudioURL)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, out)
}

func (h *AdminHandler) RecordingAttempts(c *gin.Context) {
	out, err := h.admin.RecordingAttempts(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, out)
}
