package api

import (
	"context"
	"net/url"
	"strconv"
	"strings"

	"github.com/kirillkom/complaint-desk/internal/core/domain"
)

// ComplaintGateway is the typed client of /api/complaints.
type ComplaintGateway struct {
	client *Client
}

func NewComplaintGateway(client *Client) *ComplaintGateway {
	return &ComplaintGateway{client: client}
}

func (g *ComplaintGateway) Create(ctx context.Context, draft domain.ComplaintDraft) (*domain.Complaint, error) {
	const op = "complaints.create"
	var out domain.Complaint
	if err := g.client.postJSON(ctx, op, "/complaints/nueva", draft, &out); err != nil {
		return nil, gatewayError(op, err, rejectedOnStatus)
	}
	return &out, nil
}

func (g *ComplaintGateway) List(ctx context.Context, page, size int, opts domain.ListOptions) (domain.Page[domain.Complaint], error) {
	const op = "complaints.list"
	if opts.SortBy == "" {
		opts = domain.DefaultListOptions()
	}
	if opts.Direction == "" {
		opts.Direction = domain.SortDesc
	}
	query := pageQuery(page, size)
	query.Set("sortBy", opts.SortBy)
	query.Set("direction", string(opts.Direction))

	var out domain.Page[domain.Complaint]
	if err := g.client.getJSON(ctx, op, "/complaints/paginacion", query, &out); err != nil {
		return domain.Page[domain.Complaint]{}, gatewayError(op, err, neverRejected)
	}
	return out, nil
}

func (g *ComplaintGateway) SearchRealTime(ctx context.Context, term string) ([]domain.Complaint, error) {
	const op = "complaints.search_real_time"
	query := url.Values{}
	query.Set("q", term)

	var out []domain.Complaint
	if err := g.client.getJSON(ctx, op, "/complaints/search/real-time", query, &out); err != nil {
		return nil, gatewayError(op, err, neverRejected)
	}
	return out, nil
}

// SearchAdvanced sends only the filters that are set.
func (g *ComplaintGateway) SearchAdvanced(ctx context.Context, filters domain.SearchFilters, page, size int) (domain.Page[domain.Complaint], error) {
	const op = "complaints.search_advanced"
	query := url.Values{}
	setIfPresent(query, "department", string(filters.Department))
	setIfPresent(query, "complaintType", string(filters.Type))
	setIfPresent(query, "workerName", filters.WorkerName)
	setIfPresent(query, "status", string(filters.Status))
	query.Set("page", strconv.Itoa(page))
	query.Set("size", strconv.Itoa(size))

	var out domain.Page[domain.Complaint]
	if err := g.client.getJSON(ctx, op, "/complaints/search/advanced/quick", query, &out); err != nil {
		return domain.Page[domain.Complaint]{}, gatewayError(op, err, neverRejected)
	}
	return out, nil
}

func (g *ComplaintGateway) SearchByWorker(ctx context.Context, name string, page, size int) (domain.Page[domain.Complaint], error) {
	const op = "complaints.search_by_worker"
	query := pageQuery(page, size)
	query.Set("name", name)

	var out domain.Page[domain.Complaint]
	if err := g.client.getJSON(ctx, op, "/complaints/search/by-worker", query, &out); err != nil {
		return domain.Page[domain.Complaint]{}, gatewayError(op, err, neverRejected)
	}
	return out, nil
}

func (g *ComplaintGateway) GetByCode(ctx context.Context, code string) (*domain.Complaint, error) {
	const op = "complaints.get_by_code"
	var out domain.Complaint
	if err := g.client.getJSON(ctx, op, "/complaints/"+url.PathEscape(code), nil, &out); err != nil {
		return nil, gatewayError(op, err, neverRejected)
	}
	return &out, nil
}

func (g *ComplaintGateway) Stats(ctx context.Context) (domain.Stats, error) {
	const op = "complaints.stats"
	var out domain.Stats
	if err := g.client.getJSON(ctx, op, "/complaints/stats", nil, &out); err != nil {
		return domain.Stats{}, gatewayError(op, err, neverRejected)
	}
	return out, nil
}

func pageQuery(page, size int) url.Values {
	query := url.Values{}
	query.Set("page", strconv.Itoa(page))
	query.Set("size", strconv.Itoa(size))
	return query
}

func setIfPresent(query url.Values, key, value string) {
	if value = strings.TrimSpace(value); value != "" {
		query.Set(key, value)
	}
}
