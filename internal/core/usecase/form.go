package usecase

import (
	"sync"

	"github.com/kirillkom/complaint-desk/internal/core/domain"
	"github.com/kirillkom/complaint-desk/internal/core/ports"
)

// ComplaintForm is the reporter's draft together with its staged evidence.
type ComplaintForm struct {
	mu      sync.Mutex
	draft   domain.ComplaintDraft
	staging *StagingArea
}

func NewComplaintForm(staging *StagingArea) *ComplaintForm {
	return &ComplaintForm{staging: staging}
}

func (f *ComplaintForm) SetDraft(draft domain.ComplaintDraft) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.draft = draft
}

func (f *ComplaintForm) Draft() domain.ComplaintDraft {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.draft
}

func (f *ComplaintForm) Evidence() ports.EvidenceBatch {
	return f.staging
}

func (f *ComplaintForm) Staging() *StagingArea {
	return f.staging
}

// Reset empties the draft and releases every staged preview.
func (f *ComplaintForm) Reset() {
	f.mu.Lock()
	f.draft = domain.ComplaintDraft{}
	f.mu.Unlock()
	_ = f.staging.Clear()
}
