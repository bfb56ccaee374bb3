package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/kirillkom/complaint-desk/internal/core/domain"
	"github.com/kirillkom/complaint-desk/internal/core/ports"
)

var ErrDirectoryClosed = errors.New("directory closed")

type DirectoryOptions struct {
	PageSize        int
	MinSearchLength int
	SearchDebounce  time.Duration
	ListOptions     domain.ListOptions
	// OnChange receives a snapshot after every applied state change.
	OnChange func(DirectoryView)
	// AfterFunc schedules the debounced search. It returns a stop function.
	AfterFunc func(delay time.Duration, fn func()) (stop func() bool)
	Logger    *slog.Logger
}

// DirectoryView is an immutable snapshot of the directory state.
type DirectoryView struct {
	Complaints    []domain.Complaint
	PageIndex     int
	PageSize      int
	TotalPages    int
	TotalItems    int64
	Filters       domain.SearchFilters
	SearchTerm    string
	SearchResults []domain.Complaint
	ShowResults   bool
	Pinned        bool
	Loading       bool
	Stats         *domain.Stats
	Err           error
	CanPrevious   bool
	CanNext       bool
}

// Directory merges structured filters, debounced free-text search and
// pagination into one result view. Every fetch and search carries a
// sequence number; responses of superseded requests are dropped and their
// contexts cancelled.
type Directory struct {
	complaints ports.ComplaintGateway
	pageSize   int
	minSearch  int
	debounce   time.Duration
	listOpts   domain.ListOptions
	onChange   func(DirectoryView)
	afterFunc  func(time.Duration, func()) func() bool
	logger     *slog.Logger

	base       context.Context
	cancelBase context.CancelFunc

	mu            sync.Mutex
	closed        bool
	fetchSeq      uint64
	searchSeq     uint64
	cancelFetch   context.CancelFunc
	cancelSearch  context.CancelFunc
	stopDebounce  func() bool
	pageIndex     int
	totalPages    int
	totalItems    int64
	filters       domain.SearchFilters
	searchTerm    string
	searchResults []domain.Complaint
	showResults   bool
	displayed     []domain.Complaint
	pinned        bool
	loading       bool
	stats         *domain.Stats
	lastErr       error
}

func NewDirectory(complaints ports.ComplaintGateway, opts DirectoryOptions) *Directory {
	if opts.PageSize <= 0 {
		opts.PageSize = 10
	}
	if opts.MinSearchLength <= 0 {
		opts.MinSearchLength = 2
	}
	if opts.SearchDebounce <= 0 {
		opts.SearchDebounce = 300 * time.Millisecond
	}
	if opts.ListOptions.SortBy == "" {
		opts.ListOptions = domain.DefaultListOptions()
	}
	if opts.AfterFunc == nil {
		opts.AfterFunc = func(delay time.Duration, fn func()) func() bool {
			return time.AfterFunc(delay, fn).Stop
		}
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	base, cancel := context.WithCancel(context.Background())
	return &Directory{
		complaints: complaints,
		pageSize:   opts.PageSize,
		minSearch:  opts.MinSearchLength,
		debounce:   opts.SearchDebounce,
		listOpts:   opts.ListOptions,
		onChange:   opts.OnChange,
		afterFunc:  opts.AfterFunc,
		logger:     opts.Logger,
		base:       base,
		cancelBase: cancel,
	}
}

// Refresh refetches the current page with the current filters.
func (d *Directory) Refresh(ctx context.Context) error {
	return d.update(ctx, func() error { return nil })
}

// SetFilter changes one structured filter, returns to the first page and
// refetches.
func (d *Directory) SetFilter(ctx context.Context, field domain.FilterField, value string) error {
	return d.update(ctx, func() error {
		next, err := d.filters.With(field, value)
		if err != nil {
			return err
		}
		d.filters = next
		d.pageIndex = 0
		d.pinned = false
		return nil
	})
}

// SetFilters replaces every structured filter at once.
func (d *Directory) SetFilters(ctx context.Context, filters domain.SearchFilters) error {
	return d.update(ctx, func() error {
		if filters.Status != "" {
			if _, ok := domain.ParseStatus(string(filters.Status)); !ok {
				return &domain.ValidationError{Field: string(domain.FilterStatus), Rule: domain.RuleUnknownStatus}
			}
		}
		d.filters = filters
		d.pageIndex = 0
		d.pinned = false
		return nil
	})
}

// ClearFilters resets filters, search term and page together and refetches.
func (d *Directory) ClearFilters(ctx context.Context) error {
	return d.update(ctx, func() error {
		d.filters = domain.SearchFilters{}
		d.resetSearchLocked()
		d.pageIndex = 0
		d.pinned = false
		return nil
	})
}

// ClearSearch drops the free-text term only. Structured filters stay; the
// table is refetched when it was pinned to a search result.
func (d *Directory) ClearSearch(ctx context.Context) error {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return ErrDirectoryClosed
	}
	d.resetSearchLocked()
	wasPinned := d.pinned
	d.mu.Unlock()

	if !wasPinned {
		d.notify()
		return nil
	}
	return d.update(ctx, func() error {
		d.pinned = false
		return nil
	})
}

func (d *Directory) NextPage(ctx context.Context) error {
	return d.GoToPage(ctx, d.View().PageIndex+1)
}

func (d *Directory) PreviousPage(ctx context.Context) error {
	return d.GoToPage(ctx, d.View().PageIndex-1)
}

// GoToPage navigates within [0, totalPages). Out of range targets and pinned
// results are a no-op.
func (d *Directory) GoToPage(ctx context.Context, page int) error {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return ErrDirectoryClosed
	}
	if d.pinned || page < 0 || page == d.pageIndex || page > d.totalPages-1 {
		d.mu.Unlock()
		return nil
	}
	d.mu.Unlock()

	return d.update(ctx, func() error {
		d.pageIndex = page
		return nil
	})
}

// SetSearchTerm updates the free-text term. Terms shorter than the minimum
// hide the result list without a request; longer ones schedule a debounced
// real-time search.
func (d *Directory) SetSearchTerm(term string) {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return
	}
	d.searchTerm = term
	d.searchSeq++
	seq := d.searchSeq
	d.stopSearchLocked()

	trimmed := strings.TrimSpace(term)
	if utf8.RuneCountInString(trimmed) < d.minSearch {
		d.searchResults = nil
		d.showResults = false
		d.mu.Unlock()
		d.notify()
		return
	}
	d.stopDebounce = d.afterFunc(d.debounce, func() { d.runSearch(seq, trimmed) })
	d.mu.Unlock()
}

func (d *Directory) runSearch(seq uint64, term string) {
	d.mu.Lock()
	if d.closed || seq != d.searchSeq {
		d.mu.Unlock()
		return
	}
	ctx, cancel := context.WithCancel(d.base)
	d.cancelSearch = cancel
	d.mu.Unlock()

	results, err := d.complaints.SearchRealTime(ctx, term)
	cancel()

	d.mu.Lock()
	if seq != d.searchSeq {
		d.mu.Unlock()
		return
	}
	d.cancelSearch = nil
	if err != nil {
		d.logger.Warn("directory_search_failed", "term_length", utf8.RuneCountInString(term), "error", err)
		d.lastErr = err
		d.searchResults = nil
		d.showResults = false
	} else {
		d.lastErr = nil
		d.searchResults = results
		d.showResults = true
	}
	d.mu.Unlock()
	d.notify()
}

// SelectResult pins the table to one real-time search result.
func (d *Directory) SelectResult(index int) (domain.Complaint, error) {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return domain.Complaint{}, ErrDirectoryClosed
	}
	if index < 0 || index >= len(d.searchResults) {
		d.mu.Unlock()
		return domain.Complaint{}, fmt.Errorf("search result %d out of range [0, %d)", index, len(d.searchResults))
	}
	selected := d.searchResults[index]

	d.fetchSeq++
	if d.cancelFetch != nil {
		d.cancelFetch()
		d.cancelFetch = nil
	}
	d.searchSeq++
	d.stopSearchLocked()

	d.displayed = []domain.Complaint{selected}
	d.totalPages = 1
	d.totalItems = 1
	d.pageIndex = 0
	d.pinned = true
	d.loading = false
	d.searchTerm = selected.Code
	d.searchResults = nil
	d.showResults = false
	d.mu.Unlock()

	d.notify()
	return selected, nil
}

// LoadStats fetches the summary counters. They are not tied to the active
// filters.
func (d *Directory) LoadStats(ctx context.Context) (domain.Stats, error) {
	stats, err := d.complaints.Stats(ctx)
	if err != nil {
		return domain.Stats{}, err
	}
	d.mu.Lock()
	d.stats = &stats
	d.mu.Unlock()
	d.notify()
	return stats, nil
}

func (d *Directory) View() DirectoryView {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.viewLocked()
}

// Close cancels every pending request and timer.
func (d *Directory) Close() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return
	}
	d.closed = true
	d.stopSearchLocked()
	if d.cancelFetch != nil {
		d.cancelFetch()
		d.cancelFetch = nil
	}
	d.cancelBase()
}

// update applies mutate under the lock and fetches the resulting page.
func (d *Directory) update(ctx context.Context, mutate func() error) error {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return ErrDirectoryClosed
	}
	if err := mutate(); err != nil {
		d.mu.Unlock()
		return err
	}

	d.fetchSeq++
	seq := d.fetchSeq
	if d.cancelFetch != nil {
		d.cancelFetch()
	}
	fetchCtx, cancel := context.WithCancel(ctx)
	stop := context.AfterFunc(d.base, cancel)
	d.cancelFetch = cancel
	d.loading = true
	filters := d.filters
	page := d.pageIndex
	d.mu.Unlock()
	d.notify()

	result, err := d.fetchPage(fetchCtx, filters, page)
	stop()
	cancel()

	d.mu.Lock()
	if seq != d.fetchSeq {
		d.mu.Unlock()
		return nil
	}
	d.cancelFetch = nil
	d.loading = false
	if err != nil {
		d.lastErr = err
		d.mu.Unlock()
		d.notify()
		return err
	}
	d.lastErr = nil
	d.displayed = result.Items
	d.totalPages = result.TotalPages
	d.totalItems = result.TotalItems
	d.mu.Unlock()
	d.notify()
	return nil
}

func (d *Directory) fetchPage(ctx context.Context, filters domain.SearchFilters, page int) (domain.Page[domain.Complaint], error) {
	if filters.IsEmpty() {
		return d.complaints.List(ctx, page, d.pageSize, d.listOpts)
	}
	return d.complaints.SearchAdvanced(ctx, filters, page, d.pageSize)
}

func (d *Directory) resetSearchLocked() {
	d.searchSeq++
	d.stopSearchLocked()
	d.searchTerm = ""
	d.searchResults = nil
	d.showResults = false
}

func (d *Directory) stopSearchLocked() {
	if d.stopDebounce != nil {
		d.stopDebounce()
		d.stopDebounce = nil
	}
	if d.cancelSearch != nil {
		d.cancelSearch()
		d.cancelSearch = nil
	}
}

func (d *Directory) viewLocked() DirectoryView {
	view := DirectoryView{
		Complaints:    append([]domain.Complaint(nil), d.displayed...),
		PageIndex:     d.pageIndex,
		PageSize:      d.pageSize,
		TotalPages:    d.totalPages,
		TotalItems:    d.totalItems,
		Filters:       d.filters,
		SearchTerm:    d.searchTerm,
		SearchResults: append([]domain.Complaint(nil), d.searchResults...),
		ShowResults:   d.showResults,
		Pinned:        d.pinned,
		Loading:       d.loading,
		Err:           d.lastErr,
		CanPrevious:   !d.pinned && d.pageIndex > 0,
		CanNext:       !d.pinned && d.pageIndex < d.totalPages-1,
	}
	if d.stats != nil {
		stats := *d.stats
		view.Stats = &stats
	}
	return view
}

func (d *Directory) notify() {
	if d.onChange == nil {
		return
	}
	d.onChange(d.View())
}
