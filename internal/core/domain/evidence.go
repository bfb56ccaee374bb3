package domain

import (
	"fmt"
	"time"
)

type EvidenceImage struct {
	ID               ID        `json:"idImagen"`
	OriginalFilename string    `json:"nombreOriginal"`
	StoredName       string    `json:"nombreArchivo"`
	MimeType         string    `json:"tipoContenido"`
	SizeBytes        int64     `json:"tamanio"`
	SizeLabel        string    `json:"tamanioFormateado,omitempty"`
	UploadedAt       time.Time `json:"fechaSubida"`
	DownloadURL      string    `json:"urlDescarga"`
}

// UploadState is the per-item state of a staged evidence file.
type UploadState string

const (
	UploadStaged    UploadState = "staged"
	UploadUploading UploadState = "uploading"
	UploadUploaded  UploadState = "uploaded"
	UploadFailed    UploadState = "failed"
)

// CanTransition reports whether a staged item may move from s to next.
// Failed items may be retried.
func (s UploadState) CanTransition(next UploadState) bool {
	switch s {
	case UploadStaged:
		return next == UploadUploading
	case UploadUploading:
		return next == UploadUploaded || next == UploadFailed
	case UploadFailed:
		return next == UploadUploading
	default:
		return false
	}
}

// FormatSize renders a byte count the way the evidence gallery shows it.
func FormatSize(bytes int64) string {
	if bytes <= 0 {
		return "0 Bytes"
	}
	units := []string{"Bytes", "KB", "MB", "GB"}
	value := float64(bytes)
	idx := 0
	for value >= 1024 && idx < len(units)-1 {
		value /= 1024
		idx++
	}
	if idx == 0 {
		return fmt.Sprintf("%d %s", bytes, units[idx])
	}
	return fmt.Sprintf("%.2f %s", value, units[idx])
}
