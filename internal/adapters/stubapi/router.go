package stubapi

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/kirillkom/complaint-desk/internal/core/domain"
)

const realTimeLimit = 10

type Options struct {
	Accounts []Account
	// Secret signs the issued tokens. Empty uses a fixed development key.
	Secret        []byte
	TokenTTL      time.Duration
	ShortTokenTTL time.Duration
	MaxImages     int
	MaxImageBytes int64
	// OnImagesUploaded is called with the number of images each upload
	// request stored.
	OnImagesUploaded func(count int)
	Now              func() time.Time
	Logger           *slog.Logger
}

// Router serves the complaint REST API from memory.
type Router struct {
	store         *Store
	accounts      map[string]Account
	secret        []byte
	tokenTTL      time.Duration
	shortTokenTTL time.Duration
	maxImages     int
	maxImageBytes int64
	onUploaded    func(int)
	now           func() time.Time
	logger        *slog.Logger
}

func NewRouter(store *Store, opts Options) *Router {
	if len(opts.Secret) == 0 {
		opts.Secret = []byte("complaint-desk-stub")
	}
	if opts.TokenTTL <= 0 {
		opts.TokenTTL = 24 * time.Hour
	}
	if opts.ShortTokenTTL <= 0 {
		opts.ShortTokenTTL = time.Hour
	}
	if opts.MaxImages <= 0 {
		opts.MaxImages = 5
	}
	if opts.MaxImageBytes <= 0 {
		opts.MaxImageBytes = 5 << 20
	}
	if opts.OnImagesUploaded == nil {
		opts.OnImagesUploaded = func(int) {}
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if len(opts.Accounts) == 0 {
		opts.Accounts = []Account{{ID: 1, Username: "admin", Password: "admin123", FullName: "Administrador", Role: "ADMIN"}}
	}
	accounts := make(map[string]Account, len(opts.Accounts))
	for _, a := range opts.Accounts {
		accounts[a.Username] = a
	}
	return &Router{
		store:         store,
		accounts:      accounts,
		secret:        opts.Secret,
		tokenTTL:      opts.TokenTTL,
		shortTokenTTL: opts.ShortTokenTTL,
		maxImages:     opts.MaxImages,
		maxImageBytes: opts.MaxImageBytes,
		onUploaded:    opts.OnImagesUploaded,
		now:           opts.Now,
		logger:        opts.Logger,
	}
}

func (rt *Router) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(trackRequests(rt.logger))
	r.Use(middleware.Recoverer)

	r.Get("/healthz", rt.healthz)
	r.Route("/api", func(r chi.Router) {
		r.Post("/auth/login", rt.login)

		r.Post("/complaints/nueva", rt.createComplaint)
		r.Post("/imagenes/subir-multiples", rt.uploadMany)
		r.Post("/imagenes/upload", rt.uploadOne)
		r.Get("/imagenes/descargar/{nombre}", rt.download)

		r.Group(func(r chi.Router) {
			r.Use(rt.requireBearer)
			r.Get("/complaints/paginacion", rt.listComplaints)
			r.Get("/complaints/search/real-time", rt.searchRealTime)
			r.Get("/complaints/search/by-worker", rt.searchByWorker)
			r.Get("/complaints/search/advanced/quick", rt.searchAdvanced)
			r.Get("/complaints/stats", rt.stats)
			r.Get("/complaints/{code}", rt.getByCode)
			r.Get("/imagenes/denuncia/{id}", rt.listImages)
		})
	})
	return r
}

func (rt *Router) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (rt *Router) createComplaint(w http.ResponseWriter, r *http.Request) {
	var draft domain.ComplaintDraft
	if err := json.NewDecoder(r.Body).Decode(&draft); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}
	draft = draft.Normalize()
	if err := domain.ValidateDraft(draft, domain.DateOf(rt.now())); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusCreated, rt.store.Create(draft))
}

func (rt *Router) listComplaints(w http.ResponseWriter, r *http.Request) {
	page, size := pageParams(r)
	sortBy := strings.TrimSpace(r.URL.Query().Get("sortBy"))
	if sortBy == "" {
		sortBy = "submittedAt"
	}
	desc := !strings.EqualFold(r.URL.Query().Get("direction"), string(domain.SortAsc))
	writeJSON(w, http.StatusOK, paginate(rt.store.Query(nil, sortBy, desc), page, size))
}

func (rt *Router) searchRealTime(w http.ResponseWriter, r *http.Request) {
	term := strings.ToLower(strings.TrimSpace(r.URL.Query().Get("q")))
	if term == "" {
		writeJSON(w, http.StatusOK, []domain.Complaint{})
		return
	}
	results := rt.store.Query(func(c domain.Complaint) bool {
		for _, field := range []string{c.Code, string(c.Type), c.WorkerFullName, c.Description, string(c.Department), c.Location} {
			if strings.Contains(strings.ToLower(field), term) {
				return true
			}
		}
		return false
	}, "submittedAt", true)
	if len(results) > realTimeLimit {
		results = results[:realTimeLimit]
	}
	writeJSON(w, http.StatusOK, results)
}

func (rt *Router) searchByWorker(w http.ResponseWriter, r *http.Request) {
	name := strings.ToLower(strings.TrimSpace(r.URL.Query().Get("name")))
	if name == "" {
		writeError(w, http.StatusBadRequest, "name is required")
		return
	}
	page, size := pageParams(r)
	results := rt.store.Query(func(c domain.Complaint) bool {
		return strings.Contains(strings.ToLower(c.WorkerFullName), name)
	}, "submittedAt", true)
	writeJSON(w, http.StatusOK, paginate(results, page, size))
}

func (rt *Router) searchAdvanced(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	department := strings.TrimSpace(q.Get("department"))
	complaintType := strings.TrimSpace(q.Get("complaintType"))
	worker := strings.ToLower(strings.TrimSpace(q.Get("workerName")))
	status := strings.TrimSpace(q.Get("status"))
	page, size := pageParams(r)

	results := rt.store.Query(func(c domain.Complaint) bool {
		if department != "" && !strings.EqualFold(string(c.Department), department) {
			return false
		}
		if complaintType != "" && !strings.EqualFold(string(c.Type), complaintType) {
			return false
		}
		if worker != "" && !strings.Contains(strings.ToLower(c.WorkerFullName), worker) {
			return false
		}
		if status != "" && !strings.EqualFold(string(c.DisplayStatus()), status) {
			return false
		}
		return true
	}, "submittedAt", true)
	writeJSON(w, http.StatusOK, paginate(results, page, size))
}

func (rt *Router) getByCode(w http.ResponseWriter, r *http.Request) {
	code := strings.TrimSpace(chi.URLParam(r, "code"))
	c, ok := rt.store.ByCode(code)
	if !ok {
		writeError(w, http.StatusNotFound, "denuncia no encontrada")
		return
	}
	writeJSON(w, http.StatusOK, c)
}

func (rt *Router) stats(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, rt.store.Stats())
}

func pageParams(r *http.Request) (int, int) {
	page, err := strconv.Atoi(r.URL.Query().Get("page"))
	if err != nil || page < 0 {
		page = 0
	}
	size, err := strconv.Atoi(r.URL.Query().Get("size"))
	if err != nil || size <= 0 {
		size = 10
	}
	if size > 100 {
		size = 100
	}
	return page, size
}

func paginate(items []domain.Complaint, page, size int) domain.Page[domain.Complaint] {
	total := len(items)
	totalPages := (total + size - 1) / size
	start := page * size
	if start > total {
		start = total
	}
	end := start + size
	if end > total {
		end = total
	}
	return domain.Page[domain.Complaint]{
		Items:      items[start:end],
		PageIndex:  page,
		PageSize:   size,
		TotalPages: totalPages,
		TotalItems: int64(total),
	}
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
