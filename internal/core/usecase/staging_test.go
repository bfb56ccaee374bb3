package usecase

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"testing"

	"github.com/kirillkom/complaint-desk/internal/core/domain"
	"github.com/kirillkom/complaint-desk/internal/core/ports"
)

type fileFake struct {
	name string
	mime string
	size int64
	body string
}

func (f *fileFake) Name() string     { return f.name }
func (f *fileFake) MimeType() string { return f.mime }
func (f *fileFake) Size() int64      { return f.size }
func (f *fileFake) Open() (io.ReadCloser, error) {
	return io.NopCloser(strings.NewReader(f.body)), nil
}

func pngFile(name string) *fileFake {
	return &fileFake{name: name, mime: "image/png", size: 1024, body: "png-" + name}
}

type previewProviderFake struct {
	acquired      int
	released      int
	doubleRelease int
	failOn        string
}

func (p *previewProviderFake) Acquire(file ports.FileHandle) (ports.PreviewHandle, error) {
	if p.failOn != "" && file.Name() == p.failOn {
		return nil, errors.New("preview unavailable")
	}
	p.acquired++
	return &previewHandleFake{owner: p, ref: fmt.Sprintf("preview-%d", p.acquired)}, nil
}

func (p *previewProviderFake) outstanding() int { return p.acquired - p.released }

type previewHandleFake struct {
	owner    *previewProviderFake
	ref      string
	released bool
}

func (h *previewHandleFake) Ref() string { return h.ref }

func (h *previewHandleFake) Release() error {
	if h.released {
		h.owner.doubleRelease++
		return errors.New("already released")
	}
	h.released = true
	h.owner.released++
	return nil
}

func TestStagingStagesBatchInOrder(t *testing.T) {
	previews := &previewProviderFake{}
	area := NewStagingArea(DefaultStagingConfig(), previews)

	staged, err := area.Stage([]ports.FileHandle{pngFile("a.png"), pngFile("b.png")})
	if err != nil {
		t.Fatalf("Stage() error = %v", err)
	}
	if len(staged) != 2 || area.Len() != 2 {
		t.Fatalf("expected 2 staged items, got %d (area %d)", len(staged), area.Len())
	}
	items := area.Items()
	if items[0].Name != "a.png" || items[1].Name != "b.png" {
		t.Fatalf("unexpected order: %s, %s", items[0].Name, items[1].Name)
	}
	if items[0].ID == "" || items[0].ID == items[1].ID {
		t.Fatalf("expected distinct local ids, got %q and %q", items[0].ID, items[1].ID)
	}
	if items[0].State != domain.UploadStaged {
		t.Fatalf("expected staged state, got %s", items[0].State)
	}
	if previews.acquired != 2 {
		t.Fatalf("expected 2 previews acquired, got %d", previews.acquired)
	}
}

func TestStagingRejectsTooManyAtomically(t *testing.T) {
	previews := &previewProviderFake{}
	area := NewStagingArea(DefaultStagingConfig(), previews)
	if _, err := area.Stage([]ports.FileHandle{pngFile("1.png"), pngFile("2.png"), pngFile("3.png")}); err != nil {
		t.Fatalf("Stage() error = %v", err)
	}
	before := area.Items()

	_, err := area.Stage([]ports.FileHandle{pngFile("4.png"), pngFile("5.png"), pngFile("6.png")})
	var sErr *domain.StagingError
	if !errors.As(err, &sErr) || sErr.Kind != domain.StagingTooMany {
		t.Fatalf("expected TooMany, got %v", err)
	}
	if sErr.Limit != 5 {
		t.Fatalf("expected limit 5, got %d", sErr.Limit)
	}
	after := area.Items()
	if len(after) != len(before) {
		t.Fatalf("staging area changed: %d -> %d", len(before), len(after))
	}
	for i := range before {
		if before[i].ID != after[i].ID {
			t.Fatalf("item %d changed", i)
		}
	}
	if previews.acquired != 3 {
		t.Fatalf("rejected batch must not acquire previews, acquired=%d", previews.acquired)
	}
}

func TestStagingRejectsInvalidTypeBeforeSize(t *testing.T) {
	area := NewStagingArea(DefaultStagingConfig(), &previewProviderFake{})

	doc := &fileFake{name: "notes.pdf", mime: "application/pdf", size: 10}
	huge := &fileFake{name: "huge.png", mime: "image/png", size: 6 << 20}
	_, err := area.Stage([]ports.FileHandle{huge, doc})
	var sErr *domain.StagingError
	if !errors.As(err, &sErr) || sErr.Kind != domain.StagingInvalidType {
		t.Fatalf("expected InvalidType, got %v", err)
	}
	if len(sErr.Files) != 1 || sErr.Files[0] != "notes.pdf" {
		t.Fatalf("unexpected offending files %v", sErr.Files)
	}
	if area.Len() != 0 {
		t.Fatalf("expected empty area, got %d", area.Len())
	}
	if !errors.Is(err, domain.ErrStaging) {
		t.Fatalf("expected ErrStaging kind")
	}
}

func TestStagingSizeLimitIsInclusive(t *testing.T) {
	area := NewStagingArea(DefaultStagingConfig(), &previewProviderFake{})

	exact := &fileFake{name: "exact.jpg", mime: "IMAGE/JPEG", size: 5 << 20}
	if _, err := area.Stage([]ports.FileHandle{exact}); err != nil {
		t.Fatalf("file at the limit must be accepted, got %v", err)
	}

	over := &fileFake{name: "over.gif", mime: "image/gif", size: 5<<20 + 1}
	_, err := area.Stage([]ports.FileHandle{over})
	var sErr *domain.StagingError
	if !errors.As(err, &sErr) || sErr.Kind != domain.StagingTooLarge {
		t.Fatalf("expected TooLarge, got %v", err)
	}
	if area.Len() != 1 {
		t.Fatalf("expected 1 staged item, got %d", area.Len())
	}
}

func TestStagingReleasesAcquiredPreviewsWhenAcquireFails(t *testing.T) {
	previews := &previewProviderFake{failOn: "b.png"}
	area := NewStagingArea(DefaultStagingConfig(), previews)

	if _, err := area.Stage([]ports.FileHandle{pngFile("a.png"), pngFile("b.png")}); err == nil {
		t.Fatalf("expected preview failure")
	}
	if area.Len() != 0 {
		t.Fatalf("expected no staged items, got %d", area.Len())
	}
	if previews.outstanding() != 0 {
		t.Fatalf("expected no outstanding previews, got %d", previews.outstanding())
	}
}

func TestStagingRemoveReleasesExactlyOnePreview(t *testing.T) {
	previews := &previewProviderFake{}
	area := NewStagingArea(DefaultStagingConfig(), previews)
	staged, err := area.Stage([]ports.FileHandle{pngFile("a.png"), pngFile("b.png")})
	if err != nil {
		t.Fatalf("Stage() error = %v", err)
	}

	removed, err := area.Remove(staged[0].ID)
	if err != nil || !removed {
		t.Fatalf("Remove() = %v, %v", removed, err)
	}
	if area.Len() != 1 {
		t.Fatalf("expected count to drop by one, got %d", area.Len())
	}
	if previews.released != 1 {
		t.Fatalf("expected one release, got %d", previews.released)
	}

	removed, err = area.Remove(staged[0].ID)
	if err != nil || removed {
		t.Fatalf("second Remove() must be a no-op, got %v, %v", removed, err)
	}

	if err := area.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if err := area.Close(); err != nil {
		t.Fatalf("second Close() error = %v", err)
	}
	if previews.released != 2 || previews.doubleRelease != 0 {
		t.Fatalf("expected 2 releases and no double release, got %d/%d", previews.released, previews.doubleRelease)
	}
	if _, err := area.Stage([]ports.FileHandle{pngFile("c.png")}); !errors.Is(err, domain.ErrStaging) {
		t.Fatalf("closed area must reject staging, got %v", err)
	}
}

func TestStagingReorder(t *testing.T) {
	area := NewStagingArea(DefaultStagingConfig(), &previewProviderFake{})
	_, _ = area.Stage([]ports.FileHandle{pngFile("a.png"), pngFile("b.png"), pngFile("c.png")})

	if err := area.Reorder(0, 2); err != nil {
		t.Fatalf("Reorder() error = %v", err)
	}
	var names []string
	for _, item := range area.Items() {
		names = append(names, item.Name)
	}
	if strings.Join(names, ",") != "b.png,c.png,a.png" {
		t.Fatalf("unexpected order %v", names)
	}
	if err := area.Reorder(0, 3); err == nil {
		t.Fatalf("expected out of range error")
	}
}

func TestStagingUploadStateTransitions(t *testing.T) {
	area := NewStagingArea(DefaultStagingConfig(), &previewProviderFake{})
	_, _ = area.Stage([]ports.FileHandle{pngFile("a.png"), pngFile("b.png")})

	ids, files := area.PendingFiles()
	if len(ids) != 2 || len(files) != 2 {
		t.Fatalf("expected 2 pending files, got %d", len(ids))
	}
	if err := area.MarkUploaded(ids); err == nil {
		t.Fatalf("staged -> uploaded must be rejected")
	}
	if err := area.MarkUploading(ids); err != nil {
		t.Fatalf("MarkUploading() error = %v", err)
	}
	if pending, _ := area.PendingFiles(); len(pending) != 0 {
		t.Fatalf("uploading items are not pending, got %d", len(pending))
	}
	if _, err := area.Remove(ids[0]); err == nil {
		t.Fatalf("uploading items must not be removable")
	}
	if err := area.MarkFailed(ids); err != nil {
		t.Fatalf("MarkFailed() error = %v", err)
	}
	if pending, _ := area.PendingFiles(); len(pending) != 2 {
		t.Fatalf("failed items must be pending for retry, got %d", len(pending))
	}
	if err := area.MarkUploading(ids); err != nil {
		t.Fatalf("retry MarkUploading() error = %v", err)
	}
	if err := area.MarkUploaded(ids); err != nil {
		t.Fatalf("MarkUploaded() error = %v", err)
	}
	for _, item := range area.Items() {
		if item.State != domain.UploadUploaded {
			t.Fatalf("expected uploaded, got %s", item.State)
		}
	}
}

func TestStagingClearKeepsAreaUsable(t *testing.T) {
	previews := &previewProviderFake{}
	area := NewStagingArea(StagingConfig{MaxImages: 2}, previews)
	_, _ = area.Stage([]ports.FileHandle{pngFile("a.png"), pngFile("b.png")})

	if err := area.Clear(); err != nil {
		t.Fatalf("Clear() error = %v", err)
	}
	if area.Len() != 0 || previews.outstanding() != 0 {
		t.Fatalf("expected empty area without outstanding previews")
	}
	if _, err := area.Stage([]ports.FileHandle{pngFile("c.png")}); err != nil {
		t.Fatalf("Stage() after Clear() error = %v", err)
	}
	if area.Remaining() != 1 {
		t.Fatalf("expected 1 remaining slot, got %d", area.Remaining())
	}
}
