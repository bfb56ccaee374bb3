package usecase

import (
	"bytes"
	"context"
	"errors"
	"io"
	"testing"

	"github.com/kirillkom/complaint-desk/internal/core/domain"
)

type exporterFake struct {
	exported []domain.Complaint
	err      error
}

func (f *exporterFake) Export(_ context.Context, w io.Writer, complaints []domain.Complaint) error {
	if f.err != nil {
		return f.err
	}
	f.exported = complaints
	_, err := w.Write([]byte("ok"))
	return err
}

func TestExportWalksAllPages(t *testing.T) {
	gw := &complaintGatewayFake{listPage: complaintPage(3, "DEN-1", "DEN-2")}
	exporter := &exporterFake{}
	uc := NewExportUseCase(gw, exporter, 2)

	var buf bytes.Buffer
	n, err := uc.Export(context.Background(), &buf, domain.SearchFilters{})
	if err != nil {
		t.Fatalf("Export() error = %v", err)
	}
	if n != 6 || len(exporter.exported) != 6 {
		t.Fatalf("expected 6 exported complaints, got %d", n)
	}
	if len(gw.listCalls) != 3 || gw.listCalls[2].page != 2 || gw.listCalls[0].size != 2 {
		t.Fatalf("unexpected list calls %+v", gw.listCalls)
	}
	if buf.String() != "ok" {
		t.Fatalf("exporter output not written")
	}
}

func TestExportUsesAdvancedSearchWithFilters(t *testing.T) {
	gw := &complaintGatewayFake{advancedPage: complaintPage(1, "DEN-4")}
	uc := NewExportUseCase(gw, &exporterFake{}, 0)

	n, err := uc.Export(context.Background(), io.Discard, domain.SearchFilters{Status: domain.StatusResolved})
	if err != nil || n != 1 {
		t.Fatalf("Export() = %d, %v", n, err)
	}
	if len(gw.advancedCalls) != 1 || gw.advancedCalls[0].size != 50 {
		t.Fatalf("unexpected advanced calls %+v", gw.advancedCalls)
	}
}

func TestExportPropagatesGatewayError(t *testing.T) {
	gw := &complaintGatewayFake{err: &domain.GatewayError{Kind: domain.GatewayNetworkOrServer, Operation: "list"}}
	exporter := &exporterFake{}
	_, err := NewExportUseCase(gw, exporter, 10).Export(context.Background(), io.Discard, domain.SearchFilters{})
	if !errors.Is(err, domain.ErrGateway) {
		t.Fatalf("expected gateway error, got %v", err)
	}
	if exporter.exported != nil {
		t.Fatalf("nothing must be exported on failure")
	}
}

func TestDetailsByCodeFormatsEvidenceSizes(t *testing.T) {
	gw := &complaintGatewayFake{}
	evidence := &evidenceGatewayFake{listed: []domain.EvidenceImage{{ID: "1", SizeBytes: 2048}}}
	details, err := NewDetailsUseCase(gw, evidence).ByCode(context.Background(), " DEN-3 ")
	if err != nil {
		t.Fatalf("ByCode() error = %v", err)
	}
	if details.Complaint.Code != "DEN-3" {
		t.Fatalf("unexpected complaint %+v", details.Complaint)
	}
	if details.Evidence[0].SizeLabel != "2.00 KB" {
		t.Fatalf("unexpected size label %q", details.Evidence[0].SizeLabel)
	}

	if _, err := NewDetailsUseCase(gw, evidence).ByCode(context.Background(), ""); !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}
