package routes

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/ArowuTest/healthclaims-backend/internal/config"
	"github.com/ArowuTest/healthclaims-backend/internal/handlers"
	"github.com/ArowuTest/healthclaims-backend/internal/models"
	"github.com/ArowuTest/healthclaims-backend/internal/repositories/memory"
	"github.com/ArowuTest/healthclaims-backend/internal/services"
	"github.com/ArowuTest/healthclaims-backend/pkg/filehost"
	"github.com/ArowuTest/healthclaims-backend/pkg/jwt"
	"github.com/ArowuTest/healthclaims-backend/pkg/revocation"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type testServer struct {
	t      *testing.T
	router *gin.Engine
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	log := zap.NewNop()
	cfg := &config.Config{
		Environment: "test",
		Server:      config.ServerConfig{AllowedOrigins: []string{"http://localhost:8000"}},
		FileHost:    config.FileHostConfig{MaxFileSize: 1 << 20},
	}

	revocations := revocation.NewMemoryStore(time.Minute)
	t.Cleanup(revocations.Close)

	tokens := jwt.NewTokenService("test-secret", "healthclaims", time.Hour)
	authService := services.NewAuthService(memory.NewUserRepository(), tokens, revocations, log)
	claimService := services.NewClaimService(memory.NewClaimRepository(), config.ReviewPolicyPendingOnly, log)
	host := filehost.NewHost(filehost.NewMockBackend("https://files.example.com"), filehost.Options{
		AllowedExtensions: []string{".pdf", ".png"},
	}, log)

	router := SetupRouter(cfg, HandlerDependencies{
		AuthHandler:     handlers.NewAuthHandler(authService, log),
		ClaimHandler:    handlers.NewClaimHandler(claimService, log),
		DocumentHandler: handlers.NewDocumentHandler(services.NewDocumentService(host), log),
		HealthHandler:   handlers.NewHealthHandler(config.DriverMemory, nil, log),
		Authenticator:   authService,
	}, log)
	return &testServer{t: t, router: router}
}

func (s *testServer) do(method, path, token string, body any) *httptest.ResponseRecorder {
	s.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			s.t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func (s *testServer) register(name, email string, role models.UserRole) (string, string) {
	s.t.Helper()
	w := s.do(http.MethodPost, "/api/auth/register", "", gin.H{
		"name": name, "email": email, "password": "secret123", "role": role,
	})
	if w.Code != http.StatusCreated {
		s.t.Fatalf("register %s: status %d body %s", email, w.Code, w.Body.String())
	}
	var resp struct {
		Token string `json:"token"`
		User  struct {
			ID string `json:"id"`
		} `json:"user"`
	}
	decode(s.t, w, &resp)
	return resp.Token, resp.User.ID
}

func decode(t *testing.T, w *httptest.ResponseRecorder, v any) {
	t.Helper()
	if err := json.Unmarshal(w.Body.Bytes(), v); err != nil {
		t.Fatalf("decode %s: %v", w.Body.String(), err)
	}
}

func TestHealth(t *testing.T) {
	s := newTestServer(t)
	w := s.do(http.MethodGet, "/api/health", "", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
}

func TestClaimLifecycle(t *testing.T) {
	s := newTestServer(t)
	patientToken, patientID := s.register("John Doe", "patient@example.com", models.RolePatient)
	insurerToken, _ := s.register("Acme Health", "insurer@example.com", models.RoleInsurer)

	w := s.do(http.MethodPost, "/api/claims", patientToken, gin.H{
		"amount":      450,
		"description": "Annual physical examination",
		"documents":   []any{"https://files.example.com/lab.pdf", gin.H{"url": "https://files.example.com/scan.png", "originalName": "scan.png"}},
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("submit: status %d body %s", w.Code, w.Body.String())
	}
	var claim models.Claim
	decode(t, w, &claim)
	if claim.Status != models.StatusPending || claim.PatientID != patientID || len(claim.Documents) != 2 {
		t.Fatalf("unexpected claim: %+v", claim)
	}

	if w := s.do(http.MethodPost, "/api/claims", insurerToken, gin.H{"amount": 10, "description": "Not allowed"}); w.Code != http.StatusForbidden {
		t.Errorf("insurer submit: status %d", w.Code)
	}

	w = s.do(http.MethodGet, "/api/claims/"+patientID, patientToken, nil)
	var list struct {
		Data  []models.Claim `json:"data"`
		Count int            `json:"count"`
	}
	decode(t, w, &list)
	if w.Code != http.StatusOK || list.Count != 1 || len(list.Data) != 1 {
		t.Fatalf("own list: status %d body %s", w.Code, w.Body.String())
	}

	if w := s.do(http.MethodGet, "/api/claims/"+claim.ID.Hex()+"x", patientToken, nil); w.Code != http.StatusForbidden {
		t.Errorf("foreign list: status %d", w.Code)
	}
	if w := s.do(http.MethodGet, "/api/claims", patientToken, nil); w.Code != http.StatusForbidden {
		t.Errorf("patient list all: status %d", w.Code)
	}
	if w := s.do(http.MethodGet, "/api/claims/stats", patientToken, nil); w.Code != http.StatusForbidden {
		t.Errorf("patient stats: status %d", w.Code)
	}

	w = s.do(http.MethodGet, "/api/claims/detail/"+claim.ID.Hex(), patientToken, nil)
	if w.Code != http.StatusOK {
		t.Errorf("detail: status %d", w.Code)
	}

	w = s.do(http.MethodPut, "/api/claims/"+claim.ID.Hex(), insurerToken, gin.H{
		"status": "approved", "approvedAmount": 400, "comments": "Covered under plan",
	})
	if w.Code != http.StatusOK {
		t.Fatalf("review: status %d body %s", w.Code, w.Body.String())
	}
	var reviewed models.Claim
	decode(t, w, &reviewed)
	if reviewed.Status != models.StatusApproved || reviewed.ApprovedAmount == nil || *reviewed.ApprovedAmount != 400 {
		t.Errorf("unexpected review result: %+v", reviewed)
	}

	w = s.do(http.MethodPut, "/api/claims/"+claim.ID.Hex(), insurerToken, gin.H{
		"status": "rejected", "comments": "Second look",
	})
	if w.Code != http.StatusConflict {
		t.Errorf("second review: status %d", w.Code)
	}

	w = s.do(http.MethodGet, "/api/claims/stats", insurerToken, nil)
	var stats models.ClaimStats
	decode(t, w, &stats)
	if w.Code != http.StatusOK || stats.Total != 1 || stats.Approved != 1 || stats.TotalApprovedAmount != 400 {
		t.Errorf("stats: status %d body %s", w.Code, w.Body.String())
	}

	w = s.do(http.MethodGet, "/api/claims?status=approved&sort=amount&order=asc", insurerToken, nil)
	decode(t, w, &list)
	if w.Code != http.StatusOK || list.Count != 1 {
		t.Errorf("filtered list: status %d body %s", w.Code, w.Body.String())
	}
}

func TestReview_ValidationAndNotFound(t *testing.T) {
	s := newTestServer(t)
	insurerToken, _ := s.register("Acme Health", "insurer@example.com", models.RoleInsurer)

	w := s.do(http.MethodPut, "/api/claims/64a000000000000000000001", insurerToken, gin.H{"status": "pending", "comments": "x"})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d", w.Code)
	}
	var body struct {
		Fields map[string]string `json:"fields"`
	}
	decode(t, w, &body)
	if _, ok := body.Fields["status"]; !ok {
		t.Errorf("expected a status field error, got %v", body.Fields)
	}

	w = s.do(http.MethodPut, "/api/claims/64a000000000000000000001", insurerToken, gin.H{"status": "rejected", "comments": "Not covered"})
	if w.Code != http.StatusNotFound {
		t.Errorf("unknown claim: status %d", w.Code)
	}
	if w := s.do(http.MethodGet, "/api/claims/detail/not-an-id", insurerToken, nil); w.Code != http.StatusNotFound {
		t.Errorf("malformed id: status %d", w.Code)
	}
}

func TestAuth_LoginLogout(t *testing.T) {
	s := newTestServer(t)
	s.register("John Doe", "patient@example.com", models.RolePatient)

	w := s.do(http.MethodPost, "/api/auth/login", "", gin.H{"email": "patient@example.com", "password": "secret123", "role": "insurer"})
	if w.Code != http.StatusUnauthorized {
		t.Errorf("role mismatch: status %d", w.Code)
	}

	w = s.do(http.MethodPost, "/api/auth/login", "", gin.H{"email": "patient@example.com", "password": "secret123", "role": "patient"})
	if w.Code != http.StatusOK {
		t.Fatalf("login: status %d body %s", w.Code, w.Body.String())
	}
	var resp models.AuthResponse
	decode(t, w, &resp)

	if w := s.do(http.MethodGet, "/api/auth/me", resp.Token, nil); w.Code != http.StatusOK {
		t.Errorf("me: status %d", w.Code)
	}
	if w := s.do(http.MethodPost, "/api/auth/logout", resp.Token, nil); w.Code != http.StatusOK {
		t.Errorf("logout: status %d", w.Code)
	}
	if w := s.do(http.MethodGet, "/api/auth/me", resp.Token, nil); w.Code != http.StatusUnauthorized {
		t.Errorf("me after logout: status %d", w.Code)
	}
	if w := s.do(http.MethodGet, "/api/auth/me", "", nil); w.Code != http.StatusUnauthorized {
		t.Errorf("me without token: status %d", w.Code)
	}
}

func TestRegister_BindingErrors(t *testing.T) {
	s := newTestServer(t)
	w := s.do(http.MethodPost, "/api/auth/register", "", gin.H{"name": "X", "email": "not-an-email", "password": "123", "role": "admin"})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d", w.Code)
	}
	var body struct {
		Fields map[string]string `json:"fields"`
	}
	decode(t, w, &body)
	for _, field := range []string{"email", "password", "role"} {
		if _, ok := body.Fields[field]; !ok {
			t.Errorf("missing field error for %s in %v", field, body.Fields)
		}
	}
}

func TestDocumentUpload(t *testing.T) {
	s := newTestServer(t)
	patientToken, _ := s.register("John Doe", "patient@example.com", models.RolePatient)
	insurerToken, _ := s.register("Acme Health", "insurer@example.com", models.RoleInsurer)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for name, content := range map[string]string{"receipt.pdf": "%PDF-1.4", "setup.exe": "MZ"} {
		part, err := mw.CreateFormFile("files", name)
		if err != nil {
			t.Fatalf("create part: %v", err)
		}
		_, _ = part.Write([]byte(content))
	}
	_ = mw.Close()
	payload := buf.Bytes()

	upload := func(token string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/api/documents", bytes.NewReader(payload))
		req.Header.Set("Content-Type", mw.FormDataContentType())
		req.Header.Set("Authorization", "Bearer "+token)
		w := httptest.NewRecorder()
		s.router.ServeHTTP(w, req)
		return w
	}

	if w := upload(insurerToken); w.Code != http.StatusForbidden {
		t.Errorf("insurer upload: status %d", w.Code)
	}

	w := upload(patientToken)
	if w.Code != http.StatusOK {
		t.Fatalf("upload: status %d body %s", w.Code, w.Body.String())
	}
	var result struct {
		Documents []models.Document `json:"documents"`
		Failed    []struct {
			Name  string `json:"name"`
			Error string `json:"error"`
		} `json:"failed"`
	}
	decode(t, w, &result)
	if len(result.Documents) != 1 || result.Documents[0].OriginalName != "receipt.pdf" {
		t.Errorf("documents = %+v", result.Documents)
	}
	if len(result.Failed) != 1 || result.Failed[0].Name != "setup.exe" {
		t.Errorf("failed = %+v", result.Failed)
	}

	w = s.do(http.MethodPost, "/api/documents/presign", patientToken, gin.H{
		"files": []gin.H{{"name": "scan.png", "contentType": "image/png"}},
	})
	if w.Code != http.StatusOK {
		t.Fatalf("presign: status %d body %s", w.Code, w.Body.String())
	}
}
