package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/recruitgenius/backend/internal/services"
	"github.com/recruitgenius/backend/internal/utils"
)

type JobPostingHandler struct {
	svc services.JobPostingService
}

func NewJobPostingHandler(svc services.JobPostingService) *JobPostingHandler {
	return &JobPostingHandler{svc: svc}
}

type JobPostingRequest struct {
	Title       string `json:"title" binding:"required"`
	Description string `json:"description" binding:"required"`
}

func (h *JobPostingHandler) Create(c *gin.Context) {
	var req JobPostingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, utils.E(utils.CodeInvalidArgument, "JobPostingHandler.Create", "invalid request body", err))
		return
	}
	j, err := h.svc.Create(c.Request.Context(), req.Title, req.Description)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, j)
}

func (h *JobPostingHandler) List(c *gin.Context) {
	out, err := h.svc.List(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, out)
}

func (h *JobPostingHandler) Get(c *gin.Context) {
	j, err := h.svc.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, j)
}
