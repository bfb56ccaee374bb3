package stubapi

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"strings"
	"testing"
	"time"

	"github.com/kirillkom/complaint-desk/internal/core/domain"
)

func newTestHandler(t *testing.T) (http.Handler, *Store) {
	t.Helper()
	store := NewStore(nil)
	return NewRouter(store, Options{}).Handler(), store
}

func loginToken(t *testing.T, handler http.Handler) string {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/api/auth/login", strings.NewReader(`{"username":"admin","password":"admin123","recordar":true}`))
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)
	if res.Code != http.StatusOK {
		t.Fatalf("login expected 200, got %d: %s", res.Code, res.Body.String())
	}
	var body map[string]any
	if err := json.Unmarshal(res.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode login: %v", err)
	}
	token, _ := body["token"].(string)
	if token == "" || body["tipoToken"] != "Bearer" {
		t.Fatalf("unexpected login body %v", body)
	}
	return token
}

func seedComplaint(store *Store, worker string, status domain.ComplaintStatus) domain.Complaint {
	c := store.Create(domain.ComplaintDraft{
		Type:           "Otro",
		IncidentDate:   domain.NewDate(2024, time.January, 10),
		Description:    "descripcion",
		WorkerFullName: worker,
		Department:     "Sereci",
	})
	if status != "" {
		store.SetStatus(c.Code, status)
	}
	return c
}

func TestLoginRejectsWrongPassword(t *testing.T) {
	handler, _ := newTestHandler(t)

	req := httptest.NewRequest(http.MethodPost, "/api/auth/login", strings.NewReader(`{"username":"admin","password":"nope"}`))
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)
	if res.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", res.Code)
	}

	req = httptest.NewRequest(http.MethodPost, "/api/auth/login", strings.NewReader(`{"username":""}`))
	res = httptest.NewRecorder()
	handler.ServeHTTP(res, req)
	if res.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", res.Code)
	}
}

func TestStaffRoutesRequireBearer(t *testing.T) {
	handler, _ := newTestHandler(t)

	req := httptest.NewRequest(http.MethodGet, "/api/complaints/stats", nil)
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)
	if res.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token, got %d", res.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/api/complaints/stats", nil)
	req.Header.Set("Authorization", "Bearer "+loginToken(t, handler))
	res = httptest.NewRecorder()
	handler.ServeHTTP(res, req)
	if res.Code != http.StatusOK {
		t.Fatalf("expected 200 with token, got %d", res.Code)
	}
	if res.Header().Get(requestIDHeader) == "" {
		t.Fatalf("expected request id header")
	}
}

func TestRequestLogCarriesStaffRole(t *testing.T) {
	var logs bytes.Buffer
	handler := NewRouter(NewStore(nil), Options{Logger: slog.New(slog.NewJSONHandler(&logs, nil))}).Handler()
	token := loginToken(t, handler)

	logs.Reset()
	req := httptest.NewRequest(http.MethodGet, "/api/complaints/stats", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set(requestIDHeader, "req-stats-1")
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)
	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", res.Code)
	}
	if got := res.Header().Get(requestIDHeader); got != "req-stats-1" {
		t.Fatalf("expected caller request id echoed, got %q", got)
	}

	var line map[string]any
	if err := json.Unmarshal(logs.Bytes(), &line); err != nil {
		t.Fatalf("decode log line %q: %v", logs.String(), err)
	}
	if line["msg"] != "stub_request" || line["request_id"] != "req-stats-1" {
		t.Fatalf("unexpected log line %v", line)
	}
	if line["staff"] != "admin" || line["rol"] != "ADMIN" {
		t.Fatalf("expected staff identity in log line, got %v", line)
	}

	logs.Reset()
	req = httptest.NewRequest(http.MethodGet, "/api/complaints/stats", nil)
	handler.ServeHTTP(httptest.NewRecorder(), req)
	line = nil
	if err := json.Unmarshal(logs.Bytes(), &line); err != nil {
		t.Fatalf("decode log line %q: %v", logs.String(), err)
	}
	if line["level"] != "WARN" || line["status"] != float64(http.StatusUnauthorized) {
		t.Fatalf("expected warn line for rejected request, got %v", line)
	}
	if _, ok := line["rol"]; ok {
		t.Fatalf("anonymous request must not carry a role, got %v", line)
	}
}

func TestCreateComplaintValidatesDraft(t *testing.T) {
	handler, _ := newTestHandler(t)

	req := httptest.NewRequest(http.MethodPost, "/api/complaints/nueva", strings.NewReader(`{"complaintType":"Otro"}`))
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)
	if res.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", res.Code)
	}
	var body map[string]string
	_ = json.Unmarshal(res.Body.Bytes(), &body)
	if body["error"] == "" {
		t.Fatalf("expected error message, got %s", res.Body.String())
	}
}

func TestAdvancedSearchAndPagination(t *testing.T) {
	handler, store := newTestHandler(t)
	for i := 0; i < 12; i++ {
		seedComplaint(store, "Ana Torres", "")
	}
	seedComplaint(store, "Luis Rojas", domain.StatusResolved)
	token := loginToken(t, handler)

	get := func(target string) domain.Page[domain.Complaint] {
		t.Helper()
		req := httptest.NewRequest(http.MethodGet, target, nil)
		req.Header.Set("Authorization", "Bearer "+token)
		res := httptest.NewRecorder()
		handler.ServeHTTP(res, req)
		if res.Code != http.StatusOK {
			t.Fatalf("GET %s expected 200, got %d", target, res.Code)
		}
		var page domain.Page[domain.Complaint]
		if err := json.Unmarshal(res.Body.Bytes(), &page); err != nil {
			t.Fatalf("decode page: %v", err)
		}
		return page
	}

	page := get("/api/complaints/paginacion?page=1&size=10&sortBy=submittedAt&direction=desc")
	if page.TotalItems != 13 || page.TotalPages != 2 || len(page.Items) != 3 || page.PageIndex != 1 {
		t.Fatalf("unexpected page %+v", page)
	}

	resolved := get("/api/complaints/search/advanced/quick?status=RESUELTO&page=0&size=10")
	if resolved.TotalItems != 1 || resolved.Items[0].WorkerFullName != "Luis Rojas" {
		t.Fatalf("unexpected advanced result %+v", resolved)
	}

	byWorker := get("/api/complaints/search/by-worker?name=ana&page=0&size=5")
	if byWorker.TotalItems != 12 || len(byWorker.Items) != 5 {
		t.Fatalf("unexpected by-worker result %+v", byWorker)
	}
}

func TestUploadRejectsNonImages(t *testing.T) {
	handler, store := newTestHandler(t)
	c := seedComplaint(store, "Ana", "")

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", `form-data; name="files"; filename="notes.txt"`)
	header.Set("Content-Type", "text/plain")
	part, _ := writer.CreatePart(header)
	_, _ = part.Write([]byte("hello"))
	_ = writer.WriteField("idComplaint", c.ID.String())
	_ = writer.Close()

	req := httptest.NewRequest(http.MethodPost, "/api/imagenes/subir-multiples", &body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)
	if res.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", res.Code)
	}
	var resp map[string]string
	_ = json.Unmarshal(res.Body.Bytes(), &resp)
	if !strings.Contains(resp["error"], "Solo se permiten") {
		t.Fatalf("unexpected error body %v", resp)
	}
	if len(store.Images(c.ID)) != 0 {
		t.Fatalf("expected no stored images")
	}
}
