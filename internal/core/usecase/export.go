package usecase

import (
	"context"
	"fmt"
	"io"

	"github.com/kirillkom/complaint-desk/internal/core/domain"
	"github.com/kirillkom/complaint-desk/internal/core/ports"
)

const exportMaxPages = 1000

type ExportUseCase struct {
	complaints ports.ComplaintGateway
	exporter   ports.ComplaintExporter
	pageSize   int
	listOpts   domain.ListOptions
}

func NewExportUseCase(complaints ports.ComplaintGateway, exporter ports.ComplaintExporter, pageSize int) *ExportUseCase {
	if pageSize <= 0 {
		pageSize = 50
	}
	return &ExportUseCase{
		complaints: complaints,
		exporter:   exporter,
		pageSize:   pageSize,
		listOpts:   domain.DefaultListOptions(),
	}
}

// Export walks every page matching filters and writes them with the
// configured exporter. It returns the number of exported complaints.
func (uc *ExportUseCase) Export(ctx context.Context, w io.Writer, filters domain.SearchFilters) (int, error) {
	var all []domain.Complaint
	for page := 0; page < exportMaxPages; page++ {
		result, err := uc.fetch(ctx, filters, page)
		if err != nil {
			return 0, fmt.Errorf("fetch page %d: %w", page, err)
		}
		all = append(all, result.Items...)
		if len(result.Items) == 0 || !result.HasNext() {
			break
		}
	}

	if err := uc.exporter.Export(ctx, w, all); err != nil {
		return 0, fmt.Errorf("export complaints: %w", err)
	}
	return len(all), nil
}

func (uc *ExportUseCase) fetch(ctx context.Context, filters domain.SearchFilters, page int) (domain.Page[domain.Complaint], error) {
	if filters.IsEmpty() {
		return uc.complaints.List(ctx, page, uc.pageSize, uc.listOpts)
	}
	return uc.complaints.SearchAdvanced(ctx, filters, page, uc.pageSize)
}
