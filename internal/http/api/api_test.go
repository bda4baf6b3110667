package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/testimonialkit/testimonialkit/internal/db"
	"github.com/testimonialkit/testimonialkit/internal/http/middleware"
	"github.com/testimonialkit/testimonialkit/internal/models"
	"github.com/testimonialkit/testimonialkit/internal/ratelimit"
	"github.com/testimonialkit/testimonialkit/internal/security"
	"gorm.io/gorm"
)

const testOperatorToken = "ops-secret"

type testServer struct {
	t      *testing.T
	engine *gin.Engine
	conn   *gorm.DB
	ipSeq  atomic.Int64
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	conn, err := db.Open(filepath.Join(t.TempDir(), "api.db"))
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { _ = db.Close(conn) })
	if errMigrate := db.Migrate(conn); errMigrate != nil {
		t.Fatalf("migrate: %v", errMigrate)
	}

	now := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	clock := func() time.Time { return now }
	tokens, errTokens := security.NewTokenIssuer("test-secret", time.Hour, clock)
	if errTokens != nil {
		t.Fatalf("token issuer: %v", errTokens)
	}
	backend := ratelimit.SelectBackend(context.Background(), ratelimit.RedisSettings{}, nil, clock)
	engine := NewRouter(Options{
		DB:            conn,
		Tokens:        tokens,
		Gate:          ratelimit.NewGate(nil, clock),
		Limiters:      ratelimit.NewLimiters(backend.Counter, ""),
		Backend:       backend,
		Development:   true,
		PublicURL:     "https://testimonials.example.com",
		OperatorToken: testOperatorToken,
		Now:           clock,
	})
	return &testServer{t: t, engine: engine, conn: conn}
}

// nextIP returns a fresh client address so the global API policy does not
// interfere with unrelated assertions.
func (s *testServer) nextIP() string {
	n := s.ipSeq.Add(1)
	return fmt.Sprintf("10.0.%d.%d", n/250, n%250+1)
}

func (s *testServer) do(method, path string, body any, headers map[string]string) *httptest.ResponseRecorder {
	s.t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, errMarshal := json.Marshal(body)
		if errMarshal != nil {
			s.t.Fatalf("marshal body: %v", errMarshal)
		}
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Forwarded-For", s.nextIP())
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	s.engine.ServeHTTP(w, req)
	return w
}

func (s *testServer) register(username string) string {
	s.t.Helper()
	w := s.do(http.MethodPost, "/api/auth/register", gin.H{
		"username": username,
		"email":    username + "@example.com",
		"password": "Sifre1234",
	}, nil)
	if w.Code != http.StatusCreated {
		s.t.Fatalf("register %s: expected 201, got %d %s", username, w.Code, w.Body.String())
	}
	var resp struct {
		Token string `json:"token"`
	}
	if errDecode := json.Unmarshal(w.Body.Bytes(), &resp); errDecode != nil || resp.Token == "" {
		s.t.Fatalf("register %s: missing token in %s", username, w.Body.String())
	}
	return resp.Token
}

func bearer(token string) map[string]string {
	return map[string]string{"Authorization": "Bearer " + token}
}

func TestRegisterAndLogin(t *testing.T) {
	s := newTestServer(t)
	s.register("ayse")

	if w := s.do(http.MethodPost, "/api/auth/register", gin.H{"username": "ayse", "email": "other@example.com", "password": "Sifre1234"}, nil); w.Code != http.StatusConflict {
		t.Fatalf("expected 409 for taken username, got %d", w.Code)
	}
	if w := s.do(http.MethodPost, "/api/auth/register", gin.H{"username": "mehmet", "email": "ayse@example.com", "password": "Sifre1234"}, nil); w.Code != http.StatusConflict {
		t.Fatalf("expected 409 for taken email, got %d", w.Code)
	}
	if w := s.do(http.MethodPost, "/api/auth/register", gin.H{"username": "x", "email": "x@example.com", "password": "Sifre1234"}, nil); w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for short username, got %d", w.Code)
	}

	w := s.do(http.MethodPost, "/api/auth/login", gin.H{"email": "AYSE@example.com", "password": "Sifre1234"}, nil)
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), `"token"`) {
		t.Fatalf("expected login ok, got %d %s", w.Code, w.Body.String())
	}
	if w := s.do(http.MethodPost, "/api/auth/login", gin.H{"email": "ayse@example.com", "password": "Yanlis1234"}, nil); w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for wrong password, got %d", w.Code)
	}
	if w := s.do(http.MethodPost, "/api/auth/login", gin.H{"email": "nobody@example.com", "password": "Sifre1234"}, nil); w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for unknown email, got %d", w.Code)
	}
}

func TestAuthRoutesUseAuthPolicy(t *testing.T) {
	s := newTestServer(t)
	ip := map[string]string{"X-Forwarded-For": "9.9.9.9"}
	body := gin.H{"email": "nobody@example.com", "password": "x"}

	for i := 0; i < ratelimit.AuthPolicy.Limit; i++ {
		if w := s.do(http.MethodPost, "/api/auth/login", body, ip); w.Code != http.StatusUnauthorized {
			t.Fatalf("attempt %d: expected 401, got %d", i+1, w.Code)
		}
	}
	w := s.do(http.MethodPost, "/api/auth/login", body, ip)
	if w.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429 after auth limit, got %d", w.Code)
	}
	if w.Header().Get("Retry-After") != "300" {
		t.Fatalf("expected Retry-After 300, got %q", w.Header().Get("Retry-After"))
	}
}

func TestProfileGetGatedByUsername(t *testing.T) {
	s := newTestServer(t)
	s.register("ayse")

	w := s.do(http.MethodGet, "/api/user-profile/ayse", nil, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d %s", w.Code, w.Body.String())
	}
	if got := w.Header().Get("Cache-Control"); got != "public, s-maxage=600, stale-while-revalidate=1200" {
		t.Fatalf("unexpected cache-control %q", got)
	}
	if strings.Contains(w.Body.String(), "email") {
		t.Fatalf("expected public profile without email, got %s", w.Body.String())
	}

	for i := 1; i < ratelimit.APIPolicy.Limit; i++ {
		if w := s.do(http.MethodGet, "/api/user-profile/ayse", nil, nil); w.Code != http.StatusOK {
			t.Fatalf("request %d: expected 200, got %d", i+1, w.Code)
		}
	}
	w = s.do(http.MethodGet, "/api/user-profile/ayse", nil, nil)
	if w.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429 once the username bucket is full, got %d", w.Code)
	}
	if w.Header().Get("Cache-Control") != "no-cache, no-store, must-revalidate" {
		t.Fatalf("expected no-cache on 429, got %q", w.Header().Get("Cache-Control"))
	}

	if w := s.do(http.MethodGet, "/api/user-profile/mehmet", nil, nil); w.Code != http.StatusNotFound {
		t.Fatalf("expected other username unaffected and missing, got %d", w.Code)
	}
	if w := s.do(http.MethodGet, "/api/user-profile/a_b", nil, nil); w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for invalid username, got %d", w.Code)
	}
}

func TestProfileUpdate(t *testing.T) {
	s := newTestServer(t)
	token := s.register("ayse")
	s.register("mehmet")

	update := gin.H{"fullName": "Ayşe Yılmaz", "username": "ayse-y", "bio": "Tasarımcı", "website": "https://ayse.dev"}
	if w := s.do(http.MethodPut, "/api/user-profile/update", update, nil); w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token, got %d", w.Code)
	}
	w := s.do(http.MethodPut, "/api/user-profile/update", update, bearer(token))
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d %s", w.Code, w.Body.String())
	}
	var user models.User
	if errFind := s.conn.Where("username = ?", "ayse-y").First(&user).Error; errFind != nil {
		t.Fatalf("expected renamed user: %v", errFind)
	}
	if user.DisplayName != "Ayşe Yılmaz" || user.WebsiteURL != "https://ayse.dev" {
		t.Fatalf("unexpected stored profile %+v", user)
	}

	taken := gin.H{"fullName": "Ayşe", "username": "mehmet"}
	if w := s.do(http.MethodPut, "/api/user-profile/update", taken, bearer(token)); w.Code != http.StatusConflict {
		t.Fatalf("expected 409 for taken username, got %d", w.Code)
	}
}

func TestTestimonialSubmissionLimit(t *testing.T) {
	s := newTestServer(t)
	s.register("ayse")
	ip := map[string]string{"X-Forwarded-For": "5.6.7.8"}
	body := gin.H{"customer_name": "Mehmet", "content": "Çok memnun kaldım, teşekkürler!"}

	for i := 0; i < ratelimit.TestimonialPolicy.Limit; i++ {
		w := s.do(http.MethodPost, "/api/testimonials/ayse", body, ip)
		if w.Code != http.StatusCreated {
			t.Fatalf("submission %d: expected 201, got %d %s", i+1, w.Code, w.Body.String())
		}
	}
	w := s.do(http.MethodPost, "/api/testimonials/ayse", body, ip)
	if w.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429 on fourth submission, got %d", w.Code)
	}
	if w.Header().Get("Retry-After") != "3600" {
		t.Fatalf("expected Retry-After 3600, got %q", w.Header().Get("Retry-After"))
	}

	if w := s.do(http.MethodPost, "/api/testimonials/ayse", body, nil); w.Code != http.StatusCreated {
		t.Fatalf("expected another client unaffected, got %d", w.Code)
	}
	if w := s.do(http.MethodPost, "/api/testimonials/ayse", gin.H{"customer_name": "M", "content": "kısa"}, nil); w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for invalid payload, got %d", w.Code)
	}
	if w := s.do(http.MethodPost, "/api/testimonials/nobody", body, nil); w.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown profile, got %d", w.Code)
	}

	var pending int64
	s.conn.Model(&models.Testimonial{}).Where("is_approved = ?", false).Count(&pending)
	if pending != 4 {
		t.Fatalf("expected 4 pending testimonials, got %d", pending)
	}
}

func TestModerationFlow(t *testing.T) {
	s := newTestServer(t)
	owner := s.register("ayse")
	intruder := s.register("mehmet")

	w := s.do(http.MethodPost, "/api/testimonials/ayse", gin.H{"customer_name": "Zeynep", "content": "<b>Harika</b> bir hizmet aldım"}, nil)
	if w.Code != http.StatusCreated {
		t.Fatalf("submit: expected 201, got %d", w.Code)
	}
	var created struct {
		Testimonial struct {
			ID uint64 `json:"id"`
		} `json:"testimonial"`
	}
	_ = json.Unmarshal(w.Body.Bytes(), &created)
	id := created.Testimonial.ID

	if w := s.do(http.MethodGet, "/api/testimonials/ayse", nil, nil); !strings.Contains(w.Body.String(), `"testimonials":[]`) {
		t.Fatalf("expected pending testimonial hidden, got %s", w.Body.String())
	}

	approvePath := fmt.Sprintf("/api/dashboard/testimonials/%d/approve", id)
	if w := s.do(http.MethodPost, approvePath, nil, bearer(intruder)); w.Code != http.StatusNotFound {
		t.Fatalf("expected other owner to get 404, got %d", w.Code)
	}
	if w := s.do(http.MethodPost, approvePath, nil, bearer(owner)); w.Code != http.StatusOK {
		t.Fatalf("approve: expected 200, got %d %s", w.Code, w.Body.String())
	}

	w = s.do(http.MethodGet, "/api/testimonials/ayse", nil, nil)
	if !strings.Contains(w.Body.String(), "bHarika/b bir hizmet aldım") {
		t.Fatalf("expected approved, sanitized testimonial listed, got %s", w.Body.String())
	}

	w = s.do(http.MethodGet, "/api/dashboard/stats", nil, bearer(owner))
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), `"approved":1`) || !strings.Contains(w.Body.String(), `"total":1`) {
		t.Fatalf("unexpected stats %d %s", w.Code, w.Body.String())
	}

	if w := s.do(http.MethodPost, fmt.Sprintf("/api/dashboard/testimonials/%d/reject", id), nil, bearer(owner)); w.Code != http.StatusOK {
		t.Fatalf("reject: expected 200, got %d", w.Code)
	}
	w = s.do(http.MethodGet, "/api/dashboard/testimonials?status=pending", nil, bearer(owner))
	if !strings.Contains(w.Body.String(), "Zeynep") {
		t.Fatalf("expected rejected testimonial back in pending list, got %s", w.Body.String())
	}
	if w := s.do(http.MethodGet, "/api/dashboard/testimonials?status=weird", nil, bearer(owner)); w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for unknown status, got %d", w.Code)
	}
}

func TestWidget(t *testing.T) {
	s := newTestServer(t)
	s.register("ayse")

	w := s.do(http.MethodGet, "/api/widget/ayse", nil, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if !strings.HasPrefix(w.Header().Get("Content-Type"), "text/html") {
		t.Fatalf("expected html, got %q", w.Header().Get("Content-Type"))
	}
	if w.Header().Get("Access-Control-Allow-Origin") != "*" || w.Header().Get("Cache-Control") != "public, max-age=300, s-maxage=300" {
		t.Fatalf("unexpected widget headers %v", w.Header())
	}
	if !strings.Contains(w.Body.String(), "https://testimonials.example.com/ayse") {
		t.Fatalf("expected profile link in widget")
	}

	if w := s.do(http.MethodOptions, "/api/widget/ayse", nil, nil); w.Code != http.StatusOK {
		t.Fatalf("expected preflight 200, got %d", w.Code)
	}
	if w := s.do(http.MethodGet, "/api/widget/nobody", nil, nil); w.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", w.Code)
	}
}

func TestIdentityCacheEndpointsRequireOperator(t *testing.T) {
	s := newTestServer(t)
	s.do(http.MethodGet, "/api/testimonials/ayse", nil, map[string]string{
		"X-Forwarded-For": "203.0.113.77",
		"User-Agent":      "VisitorBrowser/1.0",
	})
	token := s.register("stranger")
	const cachePath = "/api/dashboard/rate-limit/identity-cache"

	if w := s.do(http.MethodGet, cachePath, nil, bearer(token)); w.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for owner without operator token, got %d %s", w.Code, w.Body.String())
	}
	if w := s.do(http.MethodDelete, cachePath, nil, bearer(token)); w.Code != http.StatusForbidden {
		t.Fatalf("expected 403 on clear for owner without operator token, got %d", w.Code)
	}
	wrong := bearer(token)
	wrong[middleware.HeaderOperatorToken] = "guess"
	if w := s.do(http.MethodGet, cachePath, nil, wrong); w.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for wrong operator token, got %d", w.Code)
	}

	operator := bearer(token)
	operator[middleware.HeaderOperatorToken] = testOperatorToken
	w := s.do(http.MethodGet, cachePath, nil, operator)
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), "203.0.113.77") {
		t.Fatalf("unexpected stats response %d %s", w.Code, w.Body.String())
	}
	if w := s.do(http.MethodDelete, cachePath, nil, operator); w.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", w.Code)
	}
}

func TestHealthz(t *testing.T) {
	s := newTestServer(t)
	w := s.do(http.MethodGet, "/healthz", nil, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d %s", w.Code, w.Body.String())
	}
	if !strings.Contains(w.Body.String(), `"rate_limit_backend":"memory"`) {
		t.Fatalf("expected backend name, got %s", w.Body.String())
	}
}
