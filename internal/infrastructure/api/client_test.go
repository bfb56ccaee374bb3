package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/kirillkom/complaint-desk/internal/core/domain"
	"github.com/kirillkom/complaint-desk/internal/core/ports"
	"github.com/kirillkom/complaint-desk/internal/infrastructure/resilience"
)

type memFile struct {
	name string
	mime string
	data []byte
}

func (f memFile) Name() string     { return f.name }
func (f memFile) MimeType() string { return f.mime }
func (f memFile) Size() int64      { return int64(len(f.data)) }
func (f memFile) Open() (io.ReadCloser, error) {
	return io.NopCloser(bytes.NewReader(f.data)), nil
}

type headerSourceFake struct{ token string }

func (h headerSourceFake) AuthHeaders(context.Context) http.Header {
	out := http.Header{}
	out.Set("Content-Type", "application/json")
	out.Set("Authorization", "Bearer "+h.token)
	return out
}

func (h headerSourceFake) MultipartAuthHeaders(context.Context) http.Header {
	out := http.Header{}
	out.Set("Authorization", "Bearer "+h.token)
	return out
}

type observerFake struct {
	outcomes map[string]string
}

func (o *observerFake) ObserveRequest(operation, outcome string, _ time.Duration) {
	if o.outcomes == nil {
		o.outcomes = map[string]string{}
	}
	o.outcomes[operation] = outcome
}

func newTestClient(serverURL string, observer RequestObserver) *Client {
	return New(serverURL, Options{
		HTTPClient: &http.Client{Timeout: 5 * time.Second},
		Guard:      resilience.NewGuard(resilience.Config{BreakerEnabled: false}, nil, nil),
		Observer:   observer,
	}).WithCredentials(headerSourceFake{token: "tok"})
}

func TestListSendsPagingAndSort(t *testing.T) {
	var gotQuery, gotAuth string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/complaints/paginacion" {
			http.NotFound(w, r)
			return
		}
		gotQuery = r.URL.RawQuery
		gotAuth = r.Header.Get("Authorization")
		_, _ = w.Write([]byte(`{"content":[{"id":7,"complaintCode":"DEN-7","complaintType":"Otro","incidentDate":"2024-02-01"}],"number":2,"size":10,"totalPages":4,"totalElements":31}`))
	}))
	defer server.Close()

	observer := &observerFake{}
	page, err := NewComplaintGateway(newTestClient(server.URL, observer)).List(context.Background(), 2, 10, domain.ListOptions{})
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if gotQuery != "direction=desc&page=2&size=10&sortBy=submittedAt" {
		t.Fatalf("unexpected query %q", gotQuery)
	}
	if gotAuth != "Bearer tok" {
		t.Fatalf("expected bearer token, got %q", gotAuth)
	}
	if page.PageIndex != 2 || page.TotalPages != 4 || page.TotalItems != 31 || len(page.Items) != 1 {
		t.Fatalf("unexpected page %+v", page)
	}
	if page.Items[0].ID != "7" || page.Items[0].Code != "DEN-7" {
		t.Fatalf("unexpected complaint %+v", page.Items[0])
	}
	if observer.outcomes["complaints.list"] != "ok" {
		t.Fatalf("expected ok outcome, got %v", observer.outcomes)
	}
}

func TestSearchAdvancedOmitsEmptyFilters(t *testing.T) {
	var gotQuery map[string][]string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.Query()
		_, _ = w.Write([]byte(`{"content":[],"number":0,"size":10,"totalPages":0,"totalElements":0}`))
	}))
	defer server.Close()

	gw := NewComplaintGateway(newTestClient(server.URL, nil))
	_, err := gw.SearchAdvanced(context.Background(), domain.SearchFilters{Status: domain.StatusPending, WorkerName: "  "}, 0, 10)
	if err != nil {
		t.Fatalf("SearchAdvanced() error = %v", err)
	}
	if gotQuery["status"][0] != "PENDIENTE" {
		t.Fatalf("expected status filter, got %v", gotQuery)
	}
	for _, absent := range []string{"department", "complaintType", "workerName"} {
		if _, ok := gotQuery[absent]; ok {
			t.Fatalf("empty filter %s must be absent, got %v", absent, gotQuery)
		}
	}
}

func TestSearchRealTimeEscapesTerm(t *testing.T) {
	var gotTerm string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotTerm = r.URL.Query().Get("q")
		_, _ = w.Write([]byte(`[{"id":"1","complaintCode":"DEN-1"}]`))
	}))
	defer server.Close()

	results, err := NewComplaintGateway(newTestClient(server.URL, nil)).SearchRealTime(context.Background(), "Pérez & co")
	if err != nil {
		t.Fatalf("SearchRealTime() error = %v", err)
	}
	if gotTerm != "Pérez & co" || len(results) != 1 {
		t.Fatalf("unexpected term %q or results %d", gotTerm, len(results))
	}
}

func TestCreateMapsNon2xxToRejected(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		_, _ = w.Write([]byte(`{"error":"incidentDate inválida"}`))
	}))
	defer server.Close()

	_, err := NewComplaintGateway(newTestClient(server.URL, nil)).Create(context.Background(), domain.ComplaintDraft{Type: "Otro"})
	var gwErr *domain.GatewayError
	if !errors.As(err, &gwErr) {
		t.Fatalf("expected GatewayError, got %v", err)
	}
	if gwErr.Kind != domain.GatewayRejected || gwErr.StatusCode != 422 || gwErr.Message != "incidentDate inválida" {
		t.Fatalf("unexpected gateway error %+v", gwErr)
	}
	if errors.Is(err, domain.ErrTemporary) {
		t.Fatalf("client rejection is not temporary")
	}
}

func TestGetByCodeNotFoundAndServerErrors(t *testing.T) {
	status := http.StatusNotFound
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "missing", status)
	}))
	defer server.Close()
	gw := NewComplaintGateway(newTestClient(server.URL, nil))

	_, err := gw.GetByCode(context.Background(), "DEN-404")
	if !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	var gwErr *domain.GatewayError
	if !errors.As(err, &gwErr) || gwErr.Kind != domain.GatewayNetworkOrServer {
		t.Fatalf("expected NetworkOrServer, got %v", err)
	}

	status = http.StatusBadGateway
	_, err = gw.Stats(context.Background())
	if !errors.Is(err, domain.ErrTemporary) || !errors.Is(err, domain.ErrGateway) {
		t.Fatalf("expected temporary gateway error, got %v", err)
	}
	if !strings.Contains(err.Error(), "missing") {
		t.Fatalf("expected response body in error, got %v", err)
	}
}

func TestTransportFailureIsNetworkOrServer(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	url := server.URL
	server.Close()

	_, err := NewComplaintGateway(newTestClient(url, nil)).Stats(context.Background())
	var gwErr *domain.GatewayError
	if !errors.As(err, &gwErr) || gwErr.Kind != domain.GatewayNetworkOrServer || gwErr.StatusCode != 0 {
		t.Fatalf("expected NetworkOrServer without status, got %v", err)
	}
}

func TestUploadManySendsOneMultipartRequest(t *testing.T) {
	requests := 0
	var names, types []string
	var idComplaint, auth, contentType string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests++
		if r.URL.Path != "/api/imagenes/subir-multiples" {
			http.NotFound(w, r)
			return
		}
		auth = r.Header.Get("Authorization")
		contentType = r.Header.Get("Content-Type")
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Errorf("parse multipart: %v", err)
			return
		}
		for _, fh := range r.MultipartForm.File["files"] {
			names = append(names, fh.Filename)
			types = append(types, fh.Header.Get("Content-Type"))
		}
		idComplaint = r.FormValue("idComplaint")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"imagenes": []map[string]any{
				{"idImagen": 1, "nombreOriginal": "a.png", "nombreArchivo": "x1.png", "tipoContenido": "image/png", "tamanio": 3},
				{"idImagen": 2, "nombreOriginal": "b.jpg", "nombreArchivo": "x2.jpg", "tipoContenido": "image/jpeg", "tamanio": 4},
			},
		})
	}))
	defer server.Close()

	files := []ports.FileHandle{
		memFile{name: "a.png", mime: "image/png", data: []byte("png")},
		memFile{name: "b.jpg", mime: "image/jpeg", data: []byte("jpeg")},
	}
	images, err := NewEvidenceGateway(newTestClient(server.URL, nil)).UploadMany(context.Background(), files, "42")
	if err != nil {
		t.Fatalf("UploadMany() error = %v", err)
	}
	if requests != 1 {
		t.Fatalf("expected a single request, got %d", requests)
	}
	if strings.Join(names, ",") != "a.png,b.jpg" || strings.Join(types, ",") != "image/png,image/jpeg" {
		t.Fatalf("unexpected parts %v %v", names, types)
	}
	if idComplaint != "42" {
		t.Fatalf("unexpected idComplaint %q", idComplaint)
	}
	if auth != "Bearer tok" || !strings.HasPrefix(contentType, "multipart/form-data; boundary=") {
		t.Fatalf("unexpected headers auth=%q content-type=%q", auth, contentType)
	}
	if len(images) != 2 || images[1].ID != "2" || images[1].StoredName != "x2.jpg" {
		t.Fatalf("unexpected images %+v", images)
	}
}

func TestUploadManyErrorBody(t *testing.T) {
	body := `{"error":"Solo se permiten imágenes"}`
	status := http.StatusBadRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	defer server.Close()
	gw := NewEvidenceGateway(newTestClient(server.URL, nil))
	files := []ports.FileHandle{memFile{name: "a.png", mime: "image/png", data: []byte("x")}}

	_, err := gw.UploadMany(context.Background(), files, "1")
	var gwErr *domain.GatewayError
	if !errors.As(err, &gwErr) || gwErr.Kind != domain.GatewayRejected || gwErr.Message != "Solo se permiten imágenes" {
		t.Fatalf("expected Rejected with server message, got %v", err)
	}

	body = "<html>bad gateway</html>"
	status = http.StatusBadGateway
	_, err = gw.UploadMany(context.Background(), files, "1")
	if !errors.As(err, &gwErr) || gwErr.Kind != domain.GatewayNetworkOrServer {
		t.Fatalf("expected NetworkOrServer without structured body, got %v", err)
	}
}

func TestEvidenceListAndDownload(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/imagenes/denuncia/9":
			_, _ = w.Write([]byte(`[{"idImagen":5,"nombreArchivo":"k.gif","tamanio":10}]`))
		case "/api/imagenes/descargar/k.gif":
			_, _ = w.Write([]byte("GIF89a"))
		default:
			http.NotFound(w, r)
		}
	}))
	defer server.Close()
	gw := NewEvidenceGateway(newTestClient(server.URL, nil))

	images, err := gw.ListByComplaint(context.Background(), "9")
	if err != nil || len(images) != 1 || images[0].StoredName != "k.gif" {
		t.Fatalf("ListByComplaint() = %+v, %v", images, err)
	}
	if got := gw.DownloadURL("k.gif"); got != server.URL+"/api/imagenes/descargar/k.gif" {
		t.Fatalf("unexpected download url %q", got)
	}
	var buf bytes.Buffer
	n, err := gw.Download(context.Background(), "k.gif", &buf)
	if err != nil || n != 6 || buf.String() != "GIF89a" {
		t.Fatalf("Download() = %d, %v, %q", n, err, buf.String())
	}
}

func TestLoginMapsStatusCodes(t *testing.T) {
	var gotBody map[string]any
	status := http.StatusOK
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&gotBody)
		if status != http.StatusOK {
			w.WriteHeader(status)
			return
		}
		_, _ = w.Write([]byte(`{"token":"abc","usuarioId":3,"username":"admin","nombreCompleto":"Ada","rol":"ADMIN","expiresIn":3600,"tipoToken":"Bearer"}`))
	}))
	defer server.Close()
	auth := NewAuthClient(newTestClient(server.URL, nil))

	resp, err := auth.Login(context.Background(), "admin", "pw", true)
	if err != nil {
		t.Fatalf("Login() error = %v", err)
	}
	if resp.Token != "abc" || resp.UserID != "3" || !strings.Contains(string(resp.Raw), `"tipoToken":"Bearer"`) {
		t.Fatalf("unexpected login response %+v", resp)
	}
	if gotBody["recordar"] != true || gotBody["username"] != "admin" {
		t.Fatalf("unexpected login body %v", gotBody)
	}

	cases := map[int]domain.AuthErrorKind{
		http.StatusUnauthorized:        domain.AuthInvalidCredentials,
		http.StatusBadRequest:          domain.AuthBadRequest,
		http.StatusInternalServerError: domain.AuthServerError,
	}
	for code, kind := range cases {
		status = code
		_, err := auth.Login(context.Background(), "admin", "pw", false)
		var authErr *domain.AuthError
		if !errors.As(err, &authErr) || authErr.Kind != kind {
			t.Fatalf("status %d: expected %s, got %v", code, kind, err)
		}
		if kind == domain.AuthServerError && authErr.StatusCode != code {
			t.Fatalf("expected status code carried, got %d", authErr.StatusCode)
		}
	}
}

func TestOpenCircuitIsReportedAsTemporary(t *testing.T) {
	calls := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	observer := &observerFake{}
	client := New(server.URL, Options{
		HTTPClient: server.Client(),
		Guard: resilience.NewGuard(resilience.Config{
			BreakerEnabled:      true,
			BreakerMinRequests:  1,
			BreakerFailureRatio: 0.5,
			BreakerOpenTimeout:  time.Minute,
		}, nil, nil),
		Observer: observer,
	})
	gw := NewComplaintGateway(client)

	_, _ = gw.Stats(context.Background())
	_, err := gw.Stats(context.Background())
	if calls != 1 {
		t.Fatalf("open circuit must not reach the server, calls=%d", calls)
	}
	if !errors.Is(err, domain.ErrTemporary) || !errors.Is(err, domain.ErrGateway) {
		t.Fatalf("expected temporary gateway error, got %v", err)
	}
	if observer.outcomes["complaints.stats"] != "circuit_open" {
		t.Fatalf("expected circuit_open outcome, got %v", observer.outcomes)
	}
}
