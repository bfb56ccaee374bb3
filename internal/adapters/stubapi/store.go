package stubapi

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/kirillkom/complaint-desk/internal/core/domain"
)

type storedImage struct {
	domain.EvidenceImage
	ComplaintID domain.ID
	Data        []byte
}

// Store keeps complaints and evidence in memory.
type Store struct {
	now func() time.Time

	mu            sync.RWMutex
	complaints    []domain.Complaint
	images        map[domain.ID][]string
	blobs         map[string]*storedImage
	nextComplaint int64
	nextImage     int64
}

func NewStore(now func() time.Time) *Store {
	if now == nil {
		now = time.Now
	}
	return &Store{
		now:    now,
		images: make(map[domain.ID][]string),
		blobs:  make(map[string]*storedImage),
	}
}

// Create assigns an id, a tracking code and the initial status.
func (s *Store) Create(draft domain.ComplaintDraft) domain.Complaint {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextComplaint++
	now := s.now().UTC()
	c := domain.Complaint{
		ID:                domain.ID(strconv.FormatInt(s.nextComplaint, 10)),
		Code:              fmt.Sprintf("DEN-%d-%04d", now.Year(), s.nextComplaint),
		Type:              draft.Type,
		IncidentDate:      draft.IncidentDate,
		Description:       draft.Description,
		Location:          draft.Location,
		WorkerFullName:    draft.WorkerFullName,
		Department:        draft.Department,
		WorkerPosition:    draft.WorkerPosition,
		WorkerDescription: draft.WorkerDescription,
		Status:            domain.StatusPending,
		SubmittedAt:       now,
	}
	s.complaints = append(s.complaints, c)
	return c
}

// SetStatus changes the status of the complaint with the given code.
func (s *Store) SetStatus(code string, status domain.ComplaintStatus) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.complaints {
		if s.complaints[i].Code == code {
			s.complaints[i].Status = status
			return true
		}
	}
	return false
}

func (s *Store) ByCode(code string) (domain.Complaint, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, c := range s.complaints {
		if strings.EqualFold(c.Code, code) {
			return c, true
		}
	}
	return domain.Complaint{}, false
}

func (s *Store) exists(id domain.ID) bool {
	for _, c := range s.complaints {
		if c.ID == id {
			return true
		}
	}
	return false
}

// Query returns the complaints that satisfy match, ordered by sortBy.
func (s *Store) Query(match func(domain.Complaint) bool, sortBy string, desc bool) []domain.Complaint {
	s.mu.RLock()
	out := make([]domain.Complaint, 0, len(s.complaints))
	for _, c := range s.complaints {
		if match == nil || match(c) {
			out = append(out, c)
		}
	}
	s.mu.RUnlock()

	less := func(a, b domain.Complaint) bool { return a.SubmittedAt.Before(b.SubmittedAt) }
	switch sortBy {
	case "incidentDate":
		less = func(a, b domain.Complaint) bool { return a.IncidentDate.Before(b.IncidentDate.Time) }
	case "complaintCode":
		less = func(a, b domain.Complaint) bool { return a.Code < b.Code }
	case "complaintType":
		less = func(a, b domain.Complaint) bool { return a.Type < b.Type }
	}
	sort.SliceStable(out, func(i, j int) bool {
		if desc {
			return less(out[j], out[i])
		}
		return less(out[i], out[j])
	})
	return out
}

func (s *Store) Stats() domain.Stats {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var st domain.Stats
	for _, c := range s.complaints {
		st.Total++
		switch c.DisplayStatus() {
		case domain.StatusPending:
			st.Pending++
		case domain.StatusResolved:
			st.Resolved++
		}
	}
	return st
}

// AddImage stores one evidence image for an existing complaint.
func (s *Store) AddImage(complaintID domain.ID, originalName, mimeType, ext string, data []byte) (domain.EvidenceImage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.exists(complaintID) {
		return domain.EvidenceImage{}, fmt.Errorf("denuncia %s no encontrada", complaintID)
	}
	s.nextImage++
	id := domain.ID(strconv.FormatInt(s.nextImage, 10))
	stored := fmt.Sprintf("%s_%d%s", complaintID, s.nextImage, ext)
	img := &storedImage{
		EvidenceImage: domain.EvidenceImage{
			ID:               id,
			OriginalFilename: originalName,
			StoredName:       stored,
			MimeType:         mimeType,
			SizeBytes:        int64(len(data)),
			SizeLabel:        domain.FormatSize(int64(len(data))),
			UploadedAt:       s.now().UTC(),
			DownloadURL:      "/api/imagenes/descargar/" + stored,
		},
		ComplaintID: complaintID,
		Data:        data,
	}
	s.blobs[stored] = img
	s.images[complaintID] = append(s.images[complaintID], stored)
	return img.EvidenceImage, nil
}

func (s *Store) Images(complaintID domain.ID) []domain.EvidenceImage {
	s.mu.RLock()
	defer s.mu.RUnlock()
	names := s.images[complaintID]
	out := make([]domain.EvidenceImage, 0, len(names))
	for _, name := range names {
		out = append(out, s.blobs[name].EvidenceImage)
	}
	return out
}

func (s *Store) Blob(storedName string) (domain.EvidenceImage, []byte, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	img, ok := s.blobs[storedName]
	if !ok {
		return domain.EvidenceImage{}, nil, false
	}
	return img.EvidenceImage, img.Data, true
}
