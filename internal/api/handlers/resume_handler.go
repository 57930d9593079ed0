package handlers

import (
	"bytes"
	"io"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/recruitgenius/backend/internal/services"
	"github.com/recruitgenius/backend/internal/utils"
)

type ResumeHandler struct {
	svc      services.ResumeService
	maxBytes int64
}

func NewResumeHandler(svc services.ResumeService, maxBytes int64) *ResumeHandler {
	return &ResumeHandler{svc: svc, maxBytes: maxBytes}
}

// Upload takes multipart fields file, name and email.
func (h *ResumeHandler) Upload(c *gin.Context) {
	const op = "ResumeHandler.Upload"

	fh, err := c.FormFile("file")
	if err != nil {
		writeError(c, utils.E(utils.CodeInvalidArgument, op, "missing multipart field 'file'", err))
		return
	}
	if h.maxBytes > 0 && fh.Size > h.maxBytes {
		writeError(c, utils.E(utils.CodeTooLarge, op, "file too large", nil))
		return
	}

	file, err := fh.Open()
	if err != nil {
		writeError(c, utils.E(utils.CodeInternal, op, "failed to open upload", err))
		return
	}
	defer file.Close()

	var body io.Reader = file
	if strings.ToLower(filepath.Ext(fh.Filename)) == ".pdf" {
		// sniff the first 512 bytes, then stitch them back on
		head := make([]byte, 512)
		n, _ := io.ReadFull(file, head)
		head = head[:n]
		if ct := http.DetectContentType(head); ct != "application/pdf" {
			writeError(c, utils.E(utils.CodeInvalidArgument, op, "invalid content type (must be pdf)", nil))
			return
		}
		body = io.MultiReader(bytes.NewReader(head), file)
	}

	row, err := h.svc.Upload(c.Request.Context(), services.ResumeUpload{
		CandidateName:  c.PostForm("name"),
		CandidateEmail: c.PostForm("email"),
		FileName:       fh.Filename,
		Size:           fh.Size,
		Body:           body,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, row)
}

func (h *ResumeHandler) List(c *gin.Context) {
	out, err := h.svc.List(c.Request.Context(), c.Query("candidate_id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, out)
}

func (h *ResumeHandler) Get(c *gin.Context) {
	r, err := h.svc.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, r)
}
