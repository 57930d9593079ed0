package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/recruitgenius/backend/internal/models"
	"github.com/recruitgenius/backend/internal/services"
	"github.com/recruitgenius/backend/internal/utils"
)

type EvaluationHandler struct {
	evals services.EvaluationService
	admin services.AdminService
}

func NewEvaluationHandler(evals services.EvaluationService, admin services.AdminService) *EvaluationHandler {
	return &EvaluationHandler{evals: evals, admin: admin}
}

type AnalyzeRequest struct {
	ResumeID     string `json:"resume_id" binding:"required"`
	JobPostingID string `json:"job_posting_id" binding:"required"`
}

type BatchAnalyzeRequest struct {
	JobPostingID string   `json:"job_posting_id" binding:"required"`
	ResumeIDs    []string `json:"resume_ids"`
}

type BulkStatusRequest struct {
	IDs    []string `json:"ids" binding:"required"`
	Status string   `json:"status" binding:"required"`
}

func (h *EvaluationHandler) Analyze(c *gin.Context) {
	var req AnalyzeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, utils.E(utils.CodeInvalidArgument, "EvaluationHandler.Analyze", "invalid request body", err))
		return
	}
	ev, err := h.evals.Analyze(c.Request.Context(), req.ResumeID, req.JobPostingID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, ev)
}

func (h *EvaluationHandler) AnalyzeBatch(c *gin.Context) {
	var req BatchAnalyzeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, utils.E(utils.CodeInvalidArgument, "EvaluationHandler.AnalyzeBatch", "invalid request body", err))
		return
	}
	sum, err := h.evals.AnalyzeBatch(c.Request.Context(), req.JobPostingID, req.ResumeIDs)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, sum)
}

func (h *EvaluationHandler) List(c *gin.Context) {
	f, err := evaluationFilter(c)
	if err != nil {
		writeError(c, err)
		return
	}
	rows, err := h.admin.ListEvaluations(c.Request.Context(), f)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, rows)
}

func (h *EvaluationHandler) Export(c *gin.Context) {
	f, err := evaluationFilter(c)
	if err != nil {
		writeError(c, err)
		return
	}
	data, err := h.admin.ExportEvaluations(c.Request.Context(), f)
	if err != nil {
		writeError(c, err)
		return
	}
	name := "evaluations-" + time.Now().UTC().Format("20060102-150405") + ".xlsx"
	c.Header("Content-Disposition", `attachment; filename="`+name+`"`)
	c.Data(http.StatusOK, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", data)
}

func (h *EvaluationHandler) Get(c *gin.Context) {
	ev, err := h.evals.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, ev)
}

func (h *EvaluationHandler) Update(c *gin.Context) {
	var upd models.EvaluationUpdate
	if err := c.ShouldBindJSON(&upd); err != nil {
		writeError(c, utils.E(utils.CodeInvalidArgument, "EvaluationHandler.Update", "invalid request body", err))
		return
	}
	ev, err := h.evals.Update(c.Request.Context(), c.Param("id"), upd)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, ev)
}

func (h *EvaluationHandler) BulkStatus(c *gin.Context) {
	var req BulkStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, utils.E(utils.CodeInvalidArgument, "EvaluationHandler.BulkStatus", "invalid request body", err))
		return
	}
	res, err := h.evals.BulkSetStatus(c.Request.Context(), req.IDs, req.Status)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *EvaluationHandler) Select(c *gin.Context) {
	sel, err := h.evals.SelectForInterview(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, sel)
}

func evaluationFilter(c *gin.Context) (models.EvaluationFilter, error) {
	f := models.EvaluationFilter{
		JobPostingID: c.Query("job_posting_id"),
		CandidateID:  c.Query("candidate_id"),
		Status:       c.Query("status"),
		SelectedOnly: c.Query("selected") == "true",
	}
	if v := c.Query("min_score"); v != "" {
		score, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return f, utils.E(utils.CodeInvalidArgument, "Query", "min_score must be a number", err)
		}
		f.MinScore = score
	}
	var err error
	if f.Limit, err = intQuery(c, "limit", 0); err != nil {
		return f, err
	}
	if f.Offset, err = intQuery(c, "offset", 0); err != nil {
		return f, err
	}
	return f, nil
}
