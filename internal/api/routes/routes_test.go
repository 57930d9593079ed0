package routes

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"

	"github.com/recruitgenius/backend/internal/api/handlers"
	"github.com/recruitgenius/backend/internal/models"
	"github.com/recruitgenius/backend/internal/services"
)

const (
	testSecret   = "admin-test-secret"
	testIssuer   = "https://project.supabase.co/auth/v1"
	testAudience = "authenticated"
)

type stubQuestions struct {
	services.QuestionService
	listed int
}

func (s *stubQuestions) List(context.Context, string) ([]models.Question, error) {
	s.listed++
	return []models.Question{{ID: "q1", Text: "Tell us about yourself"}}, nil
}

func newAdminRouter(t *testing.T) (*gin.Engine, *stubQuestions) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	t.Setenv("SUPABASE_JWT_SECRET", testSecret)
	t.Setenv("SUPABASE_JWT_ISSUER", testIssuer)
	t.Setenv("SUPABASE_JWT_AUDIENCE", testAudience)

	qs := &stubQuestions{}
	r := gin.New()
	RegisterRoutes(r, Deps{Questions: handlers.NewQuestionHandler(qs)})
	return r, qs
}

func signToken(t *testing.T, secret string, claims jwt.MapClaims) string {
	t.Helper()
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	return tok
}

func adminClaims(role string) jwt.MapClaims {
	return jwt.MapClaims{
		"sub":          "user-1",
		"iss":          testIssuer,
		"aud":          testAudience,
		"exp":          time.Now().Add(time.Hour).Unix(),
		"role":         "authenticated",
		"app_metadata": map[string]any{"role": role},
	}
}

func TestAdminRoutesRequireAdminJWT(t *testing.T) {
	r, qs := newAdminRouter(t)

	wrongIssuer := adminClaims("admin")
	wrongIssuer["iss"] = "https://elsewhere.test"
	wrongAudience := adminClaims("admin")
	wrongAudience["aud"] = "anon"
	expired := adminClaims("admin")
	expired["exp"] = time.Now().Add(-time.Minute).Unix()
	noRole := adminClaims("")
	delete(noRole, "app_metadata")

	cases := []struct {
		name   string
		header string
		want   int
	}{
		{"no token", "", http.StatusUnauthorized},
		{"not bearer", "Basic abc", http.StatusUnauthorized},
		{"garbage", "Bearer not-a-jwt", http.StatusUnauthorized},
		{"wrong secret", "Bearer " + signToken(t, "other-secret", adminClaims("admin")), http.StatusUnauthorized},
		{"wrong issuer", "Bearer " + signToken(t, testSecret, wrongIssuer), http.StatusUnauthorized},
		{"wrong audience", "Bearer " + signToken(t, testSecret, wrongAudience), http.StatusUnauthorized},
		{"expired", "Bearer " + signToken(t, testSecret, expired), http.StatusUnauthorized},
		{"user role", "Bearer " + signToken(t, testSecret, adminClaims("user")), http.StatusForbidden},
		{"default role", "Bearer " + signToken(t, testSecret, noRole), http.StatusForbidden},
		{"admin", "Bearer " + signToken(t, testSecret, adminClaims("admin")), http.StatusOK},
		{"admin mixed case", "Bearer " + signToken(t, testSecret, adminClaims("Admin")), http.StatusOK},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			before := qs.listed
			req := httptest.NewRequest(http.MethodGet, "/admin/questions", nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)
			if w.Code != tc.want {
				t.Fatalf("status = %d, want %d: %s", w.Code, tc.want, w.Body.String())
			}
			reached := qs.listed > before
			if reached != (tc.want == http.StatusOK) {
				t.Fatalf("handler reached = %v for status %d", reached, w.Code)
			}
		})
	}
}

func TestAdminRoutesFailClosedWithoutSecret(t *testing.T) {
	gin.SetMode(gin.TestMode)
	t.Setenv("SUPABASE_JWT_SECRET", "")
	qs := &stubQuestions{}
	r := gin.New()
	RegisterRoutes(r, Deps{Questions: handlers.NewQuestionHandler(qs)})

	req := httptest.NewRequest(http.MethodGet, "/admin/questions", nil)
	req.Header.Set("Authorization", "Bearer "+signToken(t, "unused", adminClaims("admin")))
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusInternalServerError || qs.listed != 0 {
		t.Fatalf("status = %d listed = %d", w.Code, qs.listed)
	}
}
