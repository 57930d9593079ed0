package routes

import (
	"github.com/gin-gonic/gin"

	"github.com/recruitgenius/backend/internal/api/handlers"
	"github.com/recruitgenius/backend/internal/api/middleware"
)

type Deps struct {
	Interview   *handlers.InterviewHandler
	WS          *handlers.WSHandler
	Questions   *handlers.QuestionHandler
	JobPostings *handlers.JobPostingHandler
	Resumes     *handlers.ResumeHandler
	Evaluations *handlers.EvaluationHandler
	Admin       *handlers.AdminHandler

	Links     middleware.LinkParser
	AdminAuth gin.HandlerFunc // defaults to the Supabase JWT check
}

func RegisterRoutes(r *gin.Engine, d Deps) {
	r.GET("/ping", func(c *gin.Context) {
		c.JSON(200, gin.H{"message": "pong"})
	})

	r.POST("/interview/start", d.Interview.Start)

	// Candidate routes (interview link token)
	cand := r.Group("/interview/session")
	cand.Use(middleware.InterviewToken(d.Links))
	cand.GET("", d.Interview.Session)
	cand.GET("/questions/:index", d.Interview.Question)
	cand.POST("/recordings", d.Interview.Record)
	cand.POST("/advance", d.Interview.Advance)
	cand.GET("/ws", d.WS.SessionWS)

	// Admin routes (JWT + admin role)
	adminAuth := d.AdminAuth
	if adminAuth == nil {
		adminAuth = middleware.JWTAuth()
	}
	admin := r.Group("/admin")
	admin.Use(adminAuth, middleware.RequireAdmin())

	admin.POST("/questions", d.Questions.Create)
	admin.GET("/questions", d.Questions.List)
	admin.GET("/questions/:id", d.Questions.Get)
	admin.PUT("/questions/:id", d.Questions.Update)
	admin.DELETE("/questions/:id", d.Questions.Delete)

	admin.POST("/job-postings", d.JobPostings.Create)
	admin.GET("/job-postings", d.JobPostings.List)
	admin.GET("/job-postings/:id", d.JobPostings.Get)

	admin.POST("/resumes", d.Resumes.Upload)
	admin.GET("/resumes", d.Resumes.List)
	admin.GET("/resumes/:id", d.Resumes.Get)

	admin.POST("/evaluations/analyze", d.Evaluations.Analyze)
	admin.POST("/evaluations/batch", d.Evaluations.AnalyzeBatch)
	admin.GET("/evaluations", d.Evaluations.List)
	admin.GET("/evaluations/export", d.Evaluations.Export)
	admin.POST("/evaluations/bulk-status", d.Evaluations.BulkStatus)
	admin.GET("/evaluations/:id", d.Evaluations.Get)
	admin.PATCH("/evaluations/:id", d.Evaluations.Update)
	admin.POST("/evaluations/:id/select", d.Evaluations.Select)

	admin.GET("/candidates/:id", d.Admin.CandidateDetail)
	admin.POST("/candidates/:id/interview-link", d.Admin.InterviewLink)
	admin.GET("/sessions/:id", d.Admin.SessionDetail)
	admin.POST("/recordings/:id/process", d.Admin.ProcessRecording)
	admin.GET("/recordings/:id/attempts", d.Admin.RecordingAttempts)
}
