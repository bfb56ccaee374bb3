package stubapi

import (
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/kirillkom/complaint-desk/internal/core/domain"
)

var allowedImageTypes = map[string]string{
	"image/jpeg": ".jpg",
	"image/jpg":  ".jpg",
	"image/png":  ".png",
	"image/gif":  ".gif",
}

type uploadedFile struct {
	header *multipart.FileHeader
	ext    string
}

func (rt *Router) uploadMany(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(int64(rt.maxImages) * rt.maxImageBytes); err != nil {
		writeError(w, http.StatusBadRequest, "multipart form inválido")
		return
	}
	complaintID := domain.ID(strings.TrimSpace(r.FormValue("idComplaint")))
	if complaintID == "" {
		writeError(w, http.StatusBadRequest, "idComplaint es obligatorio")
		return
	}
	headers := r.MultipartForm.File["files"]
	if len(headers) == 0 {
		writeError(w, http.StatusBadRequest, "No hay imágenes para subir")
		return
	}
	if len(headers) > rt.maxImages {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("Solo puedes subir máximo %d imágenes", rt.maxImages))
		return
	}

	files := make([]uploadedFile, 0, len(headers))
	for _, h := range headers {
		f, msg := rt.checkImage(h)
		if msg != "" {
			writeError(w, http.StatusBadRequest, msg)
			return
		}
		files = append(files, f)
	}

	images := make([]domain.EvidenceImage, 0, len(files))
	for _, f := range files {
		img, err := rt.storeImage(complaintID, f)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		images = append(images, img)
	}
	rt.onUploaded(len(images))
	writeJSON(w, http.StatusOK, map[string]any{
		"mensaje":  fmt.Sprintf("%d imágenes subidas", len(images)),
		"imagenes": images,
	})
}

func (rt *Router) uploadOne(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(rt.maxImageBytes); err != nil {
		writeError(w, http.StatusBadRequest, "multipart form inválido")
		return
	}
	complaintID := domain.ID(strings.TrimSpace(r.FormValue("denunciaId")))
	headers := r.MultipartForm.File["file"]
	if complaintID == "" || len(headers) != 1 {
		writeError(w, http.StatusBadRequest, "file y denunciaId son obligatorios")
		return
	}
	f, msg := rt.checkImage(headers[0])
	if msg != "" {
		writeError(w, http.StatusBadRequest, msg)
		return
	}
	img, err := rt.storeImage(complaintID, f)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	rt.onUploaded(1)
	writeJSON(w, http.StatusOK, img)
}

func (rt *Router) listImages(w http.ResponseWriter, r *http.Request) {
	id := domain.ID(strings.TrimSpace(chi.URLParam(r, "id")))
	writeJSON(w, http.StatusOK, rt.store.Images(id))
}

func (rt *Router) download(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "nombre")
	img, data, ok := rt.store.Blob(name)
	if !ok {
		writeError(w, http.StatusNotFound, "imagen no encontrada")
		return
	}
	w.Header().Set("Content-Type", img.MimeType)
	w.Header().Set("Content-Disposition", fmt.Sprintf(`inline; filename="%s"`, img.OriginalFilename))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

func (rt *Router) checkImage(h *multipart.FileHeader) (uploadedFile, string) {
	mimeType := strings.ToLower(strings.TrimSpace(h.Header.Get("Content-Type")))
	if i := strings.IndexByte(mimeType, ';'); i >= 0 {
		mimeType = strings.TrimSpace(mimeType[:i])
	}
	ext, ok := allowedImageTypes[mimeType]
	if !ok {
		return uploadedFile{}, "Solo se permiten archivos de imagen (JPEG, PNG, GIF)"
	}
	if h.Size > rt.maxImageBytes {
		return uploadedFile{}, fmt.Sprintf("Las imágenes no deben exceder los %s", domain.FormatSize(rt.maxImageBytes))
	}
	if original := strings.ToLower(filepath.Ext(h.Filename)); original != "" {
		ext = original
	}
	return uploadedFile{header: h, ext: ext}, ""
}

func (rt *Router) storeImage(complaintID domain.ID, f uploadedFile) (domain.EvidenceImage, error) {
	src, err := f.header.Open()
	if err != nil {
		return domain.EvidenceImage{}, fmt.Errorf("no se pudo leer %s", f.header.Filename)
	}
	defer src.Close()
	data, err := io.ReadAll(src)
	if err != nil {
		return domain.EvidenceImage{}, fmt.Errorf("no se pudo leer %s", f.header.Filename)
	}
	mimeType := strings.ToLower(f.header.Header.Get("Content-Type"))
	return rt.store.AddImage(complaintID, f.header.Filename, mimeType, f.ext, data)
}
