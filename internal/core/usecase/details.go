package usecase

import (
	"context"
	"fmt"
	"strings"

	"github.com/kirillkom/complaint-desk/internal/core/domain"
	"github.com/kirillkom/complaint-desk/internal/core/ports"
)

type ComplaintDetails struct {
	Complaint domain.Complaint
	Evidence  []domain.EvidenceImage
}

type DetailsUseCase struct {
	complaints ports.ComplaintGateway
	evidence   ports.EvidenceGateway
}

func NewDetailsUseCase(complaints ports.ComplaintGateway, evidence ports.EvidenceGateway) *DetailsUseCase {
	return &DetailsUseCase{complaints: complaints, evidence: evidence}
}

// ByCode loads a complaint by tracking code together with its evidence.
func (uc *DetailsUseCase) ByCode(ctx context.Context, code string) (*ComplaintDetails, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return nil, &domain.ValidationError{Field: "complaintCode", Rule: domain.RuleRequired}
	}
	complaint, err := uc.complaints.GetByCode(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("get complaint %s: %w", code, err)
	}
	images, err := uc.evidence.ListByComplaint(ctx, complaint.ID)
	if err != nil {
		return nil, fmt.Errorf("list evidence of %s: %w", code, err)
	}
	for i := range images {
		if images[i].SizeLabel == "" {
			images[i].SizeLabel = domain.FormatSize(images[i].SizeBytes)
		}
	}
	return &ComplaintDetails{Complaint: *complaint, Evidence: images}, nil
}
