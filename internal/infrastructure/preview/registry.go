package preview

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/kirillkom/complaint-desk/internal/core/ports"
)

var ErrAlreadyReleased = errors.New("preview already released")

// Registry materializes staged files as local copies that a viewer can
// open. Every acquired copy is tracked until it is released.
type Registry struct {
	dir   string
	owned bool

	mu   sync.Mutex
	refs map[string]struct{}
}

// New keeps previews under dir. An empty dir creates a private temporary
// directory that Close removes.
func New(dir string) (*Registry, error) {
	owned := false
	if strings.TrimSpace(dir) == "" {
		tmp, err := os.MkdirTemp("", "complaint-previews-*")
		if err != nil {
			return nil, fmt.Errorf("create preview dir: %w", err)
		}
		dir = tmp
		owned = true
	} else if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("create preview dir: %w", err)
	}
	return &Registry{dir: dir, owned: owned, refs: make(map[string]struct{})}, nil
}

func (r *Registry) Acquire(file ports.FileHandle) (ports.PreviewHandle, error) {
	if file == nil {
		return nil, errors.New("preview: nil file")
	}
	target := filepath.Join(r.dir, uuid.NewString()+strings.ToLower(filepath.Ext(file.Name())))

	src, err := file.Open()
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", file.Name(), err)
	}
	defer src.Close()

	dst, err := os.OpenFile(target, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o600)
	if err != nil {
		return nil, fmt.Errorf("create preview: %w", err)
	}
	if _, err := io.Copy(dst, src); err != nil {
		_ = dst.Close()
		_ = os.Remove(target)
		return nil, fmt.Errorf("write preview: %w", err)
	}
	if err := dst.Close(); err != nil {
		_ = os.Remove(target)
		return nil, fmt.Errorf("close preview: %w", err)
	}

	r.mu.Lock()
	r.refs[target] = struct{}{}
	r.mu.Unlock()
	return &handle{registry: r, ref: target}, nil
}

// Outstanding is the number of previews acquired and not yet released.
func (r *Registry) Outstanding() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.refs)
}

// Close releases whatever is still held.
func (r *Registry) Close() error {
	r.mu.Lock()
	refs := make([]string, 0, len(r.refs))
	for ref := range r.refs {
		refs = append(refs, ref)
	}
	r.refs = make(map[string]struct{})
	r.mu.Unlock()

	var errs []error
	for _, ref := range refs {
		if err := os.Remove(ref); err != nil && !errors.Is(err, os.ErrNotExist) {
			errs = append(errs, err)
		}
	}
	if r.owned {
		if err := os.RemoveAll(r.dir); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (r *Registry) release(ref string) error {
	r.mu.Lock()
	_, ok := r.refs[ref]
	delete(r.refs, ref)
	r.mu.Unlock()
	if !ok {
		return fmt.Errorf("%w: %s", ErrAlreadyReleased, ref)
	}
	if err := os.Remove(ref); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove preview: %w", err)
	}
	return nil
}

type handle struct {
	registry *Registry
	ref      string
}

func (h *handle) Ref() string { return h.ref }

func (h *handle) Release() error { return h.registry.release(h.ref) }
