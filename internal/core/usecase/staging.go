package usecase

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/kirillkom/complaint-desk/internal/core/domain"
	"github.com/kirillkom/complaint-desk/internal/core/ports"
)

type StagingConfig struct {
	MaxImages    int
	MaxFileBytes int64
	AllowedTypes []string
}

func DefaultStagingConfig() StagingConfig {
	return StagingConfig{
		MaxImages:    5,
		MaxFileBytes: 5 * 1024 * 1024,
		AllowedTypes: []string{"image/jpeg", "image/jpg", "image/png", "image/gif"},
	}
}

func (c StagingConfig) normalize() StagingConfig {
	def := DefaultStagingConfig()
	if c.MaxImages <= 0 {
		c.MaxImages = def.MaxImages
	}
	if c.MaxFileBytes <= 0 {
		c.MaxFileBytes = def.MaxFileBytes
	}
	if len(c.AllowedTypes) == 0 {
		c.AllowedTypes = def.AllowedTypes
	}
	return c
}

// StagedImage is a snapshot of one file waiting in the staging area.
type StagedImage struct {
	ID         string
	Name       string
	SizeBytes  int64
	MimeType   string
	PreviewRef string
	State      domain.UploadState
	File       ports.FileHandle
}

type stagedItem struct {
	image   StagedImage
	preview ports.PreviewHandle
}

// StagingArea owns selected evidence files and their preview resources until
// they are uploaded, removed, or the area is closed. Every preview acquired
// here is released exactly once.
type StagingArea struct {
	cfg      StagingConfig
	previews ports.PreviewProvider
	allowed  map[string]struct{}

	mu     sync.Mutex
	items  []*stagedItem
	closed bool
}

func NewStagingArea(cfg StagingConfig, previews ports.PreviewProvider) *StagingArea {
	cfg = cfg.normalize()
	allowed := make(map[string]struct{}, len(cfg.AllowedTypes))
	for _, t := range cfg.AllowedTypes {
		allowed[normalizeMimeType(t)] = struct{}{}
	}
	return &StagingArea{
		cfg:      cfg,
		previews: previews,
		allowed:  allowed,
	}
}

// Stage validates the whole batch and either stages every file or none.
func (a *StagingArea) Stage(files []ports.FileHandle) ([]StagedImage, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.closed {
		return nil, &domain.StagingError{Kind: domain.StagingClosed}
	}
	if len(files) == 0 {
		return nil, nil
	}
	if err := a.validateBatch(files); err != nil {
		return nil, err
	}

	added := make([]*stagedItem, 0, len(files))
	for _, file := range files {
		preview, err := a.previews.Acquire(file)
		if err != nil {
			for _, item := range added {
				_ = item.preview.Release()
			}
			return nil, fmt.Errorf("acquire preview for %s: %w", file.Name(), err)
		}
		added = append(added, &stagedItem{
			image: StagedImage{
				ID:         uuid.NewString(),
				Name:       file.Name(),
				SizeBytes:  file.Size(),
				MimeType:   normalizeMimeType(file.MimeType()),
				PreviewRef: preview.Ref(),
				State:      domain.UploadStaged,
				File:       file,
			},
			preview: preview,
		})
	}
	a.items = append(a.items, added...)

	out := make([]StagedImage, 0, len(added))
	for _, item := range added {
		out = append(out, item.image)
	}
	return out, nil
}

func (a *StagingArea) validateBatch(files []ports.FileHandle) error {
	if len(a.items)+len(files) > a.cfg.MaxImages {
		return &domain.StagingError{Kind: domain.StagingTooMany, Limit: int64(a.cfg.MaxImages)}
	}

	var invalid []string
	for _, file := range files {
		if _, ok := a.allowed[normalizeMimeType(file.MimeType())]; !ok {
			invalid = append(invalid, file.Name())
		}
	}
	if len(invalid) > 0 {
		return &domain.StagingError{Kind: domain.StagingInvalidType, Files: invalid}
	}

	var oversized []string
	for _, file := range files {
		if file.Size() > a.cfg.MaxFileBytes {
			oversized = append(oversized, file.Name())
		}
	}
	if len(oversized) > 0 {
		return &domain.StagingError{Kind: domain.StagingTooLarge, Limit: a.cfg.MaxFileBytes, Files: oversized}
	}
	return nil
}

// Remove releases the item's preview and drops it. Unknown ids are a no-op.
func (a *StagingArea) Remove(id string) (bool, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	idx := a.indexOf(id)
	if idx < 0 {
		return false, nil
	}
	item := a.items[idx]
	if item.image.State == domain.UploadUploading {
		return false, fmt.Errorf("staged image %s is uploading", id)
	}
	releaseErr := item.preview.Release()
	a.items = append(a.items[:idx], a.items[idx+1:]...)
	if releaseErr != nil {
		return true, fmt.Errorf("release preview %s: %w", item.image.PreviewRef, releaseErr)
	}
	return true, nil
}

// Reorder moves one item within the display order.
func (a *StagingArea) Reorder(from, to int) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	n := len(a.items)
	if from < 0 || from >= n || to < 0 || to >= n {
		return fmt.Errorf("reorder %d -> %d out of range [0, %d)", from, to, n)
	}
	if from == to {
		return nil
	}
	item := a.items[from]
	a.items = append(a.items[:from], a.items[from+1:]...)
	a.items = append(a.items[:to], append([]*stagedItem{item}, a.items[to:]...)...)
	return nil
}

func (a *StagingArea) Items() []StagedImage {
	a.mu.Lock()
	defer a.mu.Unlock()

	out := make([]StagedImage, 0, len(a.items))
	for _, item := range a.items {
		out = append(out, item.image)
	}
	return out
}

func (a *StagingArea) Len() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.items)
}

func (a *StagingArea) Remaining() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.cfg.MaxImages - len(a.items)
}

func (a *StagingArea) PendingFiles() ([]string, []ports.FileHandle) {
	a.mu.Lock()
	defer a.mu.Unlock()

	var ids []string
	var files []ports.FileHandle
	for _, item := range a.items {
		if item.image.State == domain.UploadStaged || item.image.State == domain.UploadFailed {
			ids = append(ids, item.image.ID)
			files = append(files, item.image.File)
		}
	}
	return ids, files
}

func (a *StagingArea) MarkUploading(ids []string) error {
	return a.transition(ids, domain.UploadUploading)
}

func (a *StagingArea) MarkUploaded(ids []string) error {
	return a.transition(ids, domain.UploadUploaded)
}

func (a *StagingArea) MarkFailed(ids []string) error {
	return a.transition(ids, domain.UploadFailed)
}

func (a *StagingArea) transition(ids []string, next domain.UploadState) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	targets := make([]*stagedItem, 0, len(ids))
	for _, id := range ids {
		idx := a.indexOf(id)
		if idx < 0 {
			return fmt.Errorf("staged image %s not found", id)
		}
		item := a.items[idx]
		if !item.image.State.CanTransition(next) {
			return fmt.Errorf("staged image %s: %s -> %s not allowed", id, item.image.State, next)
		}
		targets = append(targets, item)
	}
	for _, item := range targets {
		item.image.State = next
	}
	return nil
}

// Clear releases every preview and empties the area. The area stays usable.
func (a *StagingArea) Clear() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.releaseAllLocked()
}

// Close releases every remaining preview and rejects further staging.
// Calling it again is a no-op.
func (a *StagingArea) Close() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.closed {
		return nil
	}
	a.closed = true
	return a.releaseAllLocked()
}

func (a *StagingArea) releaseAllLocked() error {
	var errs []error
	for _, item := range a.items {
		if err := item.preview.Release(); err != nil {
			errs = append(errs, fmt.Errorf("release preview %s: %w", item.image.PreviewRef, err))
		}
	}
	a.items = nil
	return errors.Join(errs...)
}

func (a *StagingArea) indexOf(id string) int {
	for i, item := range a.items {
		if item.image.ID == id {
			return i
		}
	}
	return -1
}

func normalizeMimeType(raw string) string {
	value := strings.ToLower(strings.TrimSpace(raw))
	if idx := strings.Index(value, ";"); idx >= 0 {
		value = strings.TrimSpace(value[:idx])
	}
	return value
}
