package bootstrap

import (
	"context"
	"testing"

	"github.com/kirillkom/complaint-desk/internal/config"
	"github.com/kirillkom/complaint-desk/internal/infrastructure/storage/localfs"
)

func testConfig(t *testing.T) config.Config {
	t.Helper()
	return config.Config{
		APIBaseURL:         "http://127.0.0.1:1",
		Language:           "en",
		HTTPTimeoutSeconds: 1,
		SessionBackend:     "file",
		SessionPath:        t.TempDir(),
		PreviewDir:         t.TempDir(),
		MaxImages:          3,
		PageSize:           5,
	}
}

func TestNewWiresLocalDefaults(t *testing.T) {
	app, err := New(context.Background(), testConfig(t), nil)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	defer app.Close()

	if app.Catalog.Language() != "en" {
		t.Fatalf("expected en catalog, got %q", app.Catalog.Language())
	}
	if _, ok := app.Receipts.(*localfs.ReceiptJournal); !ok {
		t.Fatalf("expected local receipt journal, got %T", app.Receipts)
	}
	if app.Credentials.IsAuthenticated(context.Background()) {
		t.Fatalf("fresh session must not be authenticated")
	}

	form, err := app.NewComplaintForm()
	if err != nil {
		t.Fatalf("NewComplaintForm() error = %v", err)
	}
	if form.Staging().Remaining() != 3 {
		t.Fatalf("expected configured max images, got %d", form.Staging().Remaining())
	}

	dir := app.NewDirectory(nil)
	defer dir.Close()
	if dir.View().PageSize != 5 {
		t.Fatalf("expected configured page size, got %d", dir.View().PageSize)
	}
}

func TestNewRejectsUnknownSessionBackend(t *testing.T) {
	cfg := testConfig(t)
	cfg.SessionBackend = "memcached"
	if _, err := New(context.Background(), cfg, nil); err == nil {
		t.Fatalf("expected error for unknown session backend")
	}
}
