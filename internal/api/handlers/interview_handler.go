package handlers

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/recruitgenius/backend/internal/auth"
	"github.com/recruitgenius/backend/internal/models"
	"github.com/recruitgenius/backend/internal/services"
	"github.com/recruitgenius/backend/internal/utils"
)

// InterviewHandler serves the candidate side of an interview. Every route
// except Start is scoped to the session named in the interview token.
type InterviewHandler struct {
	candidates services.CandidateService
	sessions   services.SessionService
	links      InterviewLinks
	maxAudio   int64
}

// InterviewLinks issues and verifies candidate interview tokens.
type InterviewLinks interface {
	services.LinkIssuer
	Parse(raw string) (*auth.InterviewClaims, error)
}

func NewInterviewHandler(candidates services.CandidateService, sessions services.SessionService, links InterviewLinks, maxAudio int64) *InterviewHandler {
	return &InterviewHandler{candidates: candidates, sessions: sessions, links: links, maxAudio: maxAudio}
}

type StartInterviewRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email" binding:"required"`
	Category string `json:"category"`
}

type StartInterviewResponse struct {
	Session   *models.Session        `json:"session"`
	Status    string                 `json:"status"`
	Question  *services.QuestionView `json:"question,omitempty"`
	Token     string                 `json:"token"`
	URL       string                 `json:"url"`
	ExpiresAt time.Time              `json:"expires_at"`
}

type SessionStateResponse struct {
	Session  *models.Session        `json:"session"`
	Status   string                 `json:"status"`
	Question *services.QuestionView `json:"question,omitempty"`
}

// Start registers the candidate and opens a session. An open session is only
// resumed when the request carries that session's interview token; the email
// alone never hands out a token for it.
func (h *InterviewHandler) Start(c *gin.Context) {
	const op = "InterviewHandler.Start"

	var req StartInterviewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, utils.E(utils.CodeInvalidArgument, op, "invalid request body", err))
		return
	}
	ctx := c.Request.Context()

	cand, err := h.candidates.Register(ctx, req.Name, req.Email)
	if err != nil {
		writeError(c, err)
		return
	}

	var sess *models.Session
	if cand.SessionID != nil {
		existing, err := h.sessions.Get(ctx, *cand.SessionID)
		if err != nil && !utils.IsCode(err, utils.CodeNotFound) {
			writeError(c, err)
			return
		}
		if existing != nil && !existing.IsCompleted {
			if !h.holdsToken(c, cand.ID, existing.ID) {
				writeError(c, utils.E(utils.CodeConflict, op, "an interview is already in progress; open it with your interview link", nil))
				return
			}
			sess = existing
		}
	}
	if sess == nil {
		if sess, err = h.sessions.StartForCandidate(ctx, cand.ID, req.Category); err != nil {
			writeError(c, err)
			return
		}
	}

	view, err := h.currentQuestion(c, sess)
	if err != nil {
		writeError(c, err)
		return
	}
	token, exp, err := h.links.Issue(cand.ID, sess.ID)
	if err != nil {
		writeError(c, utils.E(utils.CodeInternal, op, "failed to issue interview link", err))
		return
	}

	c.JSON(http.StatusOK, StartInterviewResponse{
		Session:   sess,
		Status:    sess.Status(),
		Question:  view,
		Token:     token,
		URL:       h.links.URL(token),
		ExpiresAt: exp,
	})
}

// holdsToken reports whether the request's bearer token belongs to the
// given candidate and session.
func (h *InterviewHandler) holdsToken(c *gin.Context, candidateID, sessionID string) bool {
	raw := strings.TrimSpace(strings.TrimPrefix(c.GetHeader("Authorization"), "Bearer "))
	if raw == "" {
		return false
	}
	claims, err := h.links.Parse(raw)
	if err != nil {
		return false
	}
	return claims.CandidateID == candidateID && claims.SessionID == sessionID
}

func (h *InterviewHandler) Session(c *gin.Context) {
	sess, ok := h.ownedSession(c)
	if !ok {
		return
	}
	view, err := h.currentQuestion(c, sess)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, SessionStateResponse{Session: sess, Status: sess.Status(), Question: view})
}

func (h *InterviewHandler) Question(c *gin.Context) {
	_, sessionID, ok := requireInterview(c)
	if !ok {
		return
	}
	idx, err := strconv.Atoi(c.Param("index"))
	if err != nil {
		writeError(c, utils.E(utils.CodeInvalidArgument, "InterviewHandler.Question", "index must be an integer", err))
		return
	}
	view, err := h.sessions.QuestionAt(c.Request.Context(), sessionID, idx)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

func (h *InterviewHandler) Record(c *gin.Context) {
	const op = "InterviewHandler.Record"

	_, sessionID, ok := requireInterview(c)
	if !ok {
		return
	}
	questionID := c.PostForm("question_id")
	if questionID == "" {
		writeError(c, utils.E(utils.CodeInvalidArgument, op, "missing form field 'question_id'", nil))
		return
	}
	fh, err := c.FormFile("audio")
	if err != nil {
		writeError(c, utils.E(utils.CodeInvalidArgument, op, "missing multipart field 'audio'", err))
		return
	}
	if h.maxAudio > 0 && fh.Size > h.maxAudio {
		writeError(c, utils.E(utils.CodeTooLarge, op, "audio exceeds size limit", nil))
		return
	}

	file, err := fh.Open()
	if err != nil {
		writeError(c, utils.E(utils.CodeInternal, op, "failed to open upload", err))
		return
	}
	defer file.Close()

	rec, err := h.sessions.RecordAnswer(c.Request.Context(), sessionID, questionID, services.AudioUpload{
		FileName:    fh.Filename,
		ContentType: fh.Header.Get("Content-Type"),
		Size:        fh.Size,
		Body:        file,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, rec)
}

func (h *InterviewHandler) Advance(c *gin.Context) {
	_, sessionID, ok := requireInterview(c)
	if !ok {
		return
	}
	res, err := h.sessions.Advance(c.Request.Context(), sessionID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// ownedSession loads the token's session and checks it still belongs to the
// token's candidate.
func (h *InterviewHandler) ownedSession(c *gin.Context) (*models.Session, bool) {
	candidateID, sessionID, ok := requireInterview(c)
	if !ok {
		return nil, false
	}
	sess, err := h.sessions.Get(c.Request.Context(), sessionID)
	if err != nil {
		writeError(c, err)
		return nil, false
	}
	if sess.CandidateID != candidateID {
		writeError(c, utils.E(utils.CodeForbidden, "InterviewHandler", "forbidden", nil))
		return nil, false
	}
	return sess, true
}

func (h *InterviewHandler) currentQuestion(c *gin.Context, sess *models.Session) (*services.QuestionView, error) {
	if sess.IsCompleted || len(sess.Questions) == 0 {
		return nil, nil
	}
	return h.sessions.QuestionAt(c.Request.Context(), sess.ID, sess.Progress)
}
