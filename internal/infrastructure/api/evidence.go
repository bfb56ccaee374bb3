package api

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"strings"

	"github.com/kirillkom/complaint-desk/internal/core/domain"
	"github.com/kirillkom/complaint-desk/internal/core/ports"
)

// EvidenceGateway is the typed client of /api/imagenes.
type EvidenceGateway struct {
	client *Client
}

func NewEvidenceGateway(client *Client) *EvidenceGateway {
	return &EvidenceGateway{client: client}
}

// UploadMany sends every file in one multipart request: repeated "files"
// parts followed by "idComplaint".
func (g *EvidenceGateway) UploadMany(ctx context.Context, files []ports.FileHandle, complaintID domain.ID) ([]domain.EvidenceImage, error) {
	const op = "evidence.upload_many"
	if len(files) == 0 {
		return nil, nil
	}
	if complaintID == "" {
		return nil, domain.WrapError(domain.ErrValidation, op, errors.New("complaint id is required"))
	}

	var out struct {
		Images []domain.EvidenceImage `json:"imagenes"`
	}
	err := g.postMultipart(ctx, op, "/imagenes/subir-multiples", func(w *multipart.Writer) error {
		for _, file := range files {
			if err := writeFilePart(w, "files", file); err != nil {
				return err
			}
		}
		return w.WriteField("idComplaint", complaintID.String())
	}, &out)
	if err != nil {
		return nil, gatewayError(op, err, rejectedOnServerMessage)
	}
	return out.Images, nil
}

// Upload sends a single file through the legacy one-file endpoint.
func (g *EvidenceGateway) Upload(ctx context.Context, file ports.FileHandle, complaintID domain.ID) (*domain.EvidenceImage, error) {
	const op = "evidence.upload"
	var out domain.EvidenceImage
	err := g.postMultipart(ctx, op, "/imagenes/upload", func(w *multipart.Writer) error {
		if err := writeFilePart(w, "file", file); err != nil {
			return err
		}
		return w.WriteField("denunciaId", complaintID.String())
	}, &out)
	if err != nil {
		return nil, gatewayError(op, err, rejectedOnServerMessage)
	}
	return &out, nil
}

func (g *EvidenceGateway) ListByComplaint(ctx context.Context, complaintID domain.ID) ([]domain.EvidenceImage, error) {
	const op = "evidence.list_by_complaint"
	var out []domain.EvidenceImage
	if err := g.client.getJSON(ctx, op, "/imagenes/denuncia/"+url.PathEscape(complaintID.String()), nil, &out); err != nil {
		return nil, gatewayError(op, err, neverRejected)
	}
	return out, nil
}

// DownloadURL is the absolute link of a stored image.
func (g *EvidenceGateway) DownloadURL(storedName string) string {
	return g.client.url("/imagenes/descargar/" + url.PathEscape(storedName))
}

// Download streams a stored image into w and returns the bytes written.
func (g *EvidenceGateway) Download(ctx context.Context, storedName string, w io.Writer) (int64, error) {
	const op = "evidence.download"
	var written int64
	err := g.client.do(ctx, op, func(ctx context.Context) (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.DownloadURL(storedName), nil)
		if err != nil {
			return nil, err
		}
		copyHeaders(req.Header, g.client.multipartHeaders(ctx))
		return req, nil
	}, func(resp *http.Response) error {
		n, err := io.Copy(w, resp.Body)
		written = n
		if err != nil {
			return fmt.Errorf("copy %s body: %w", op, err)
		}
		return nil
	})
	if err != nil {
		return written, gatewayError(op, err, neverRejected)
	}
	return written, nil
}

func (g *EvidenceGateway) postMultipart(ctx context.Context, operation, path string, fill func(*multipart.Writer) error, out any) error {
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	if err := fill(writer); err != nil {
		return fmt.Errorf("build %s body: %w", operation, err)
	}
	if err := writer.Close(); err != nil {
		return fmt.Errorf("close %s body: %w", operation, err)
	}
	payload := body.Bytes()
	contentType := writer.FormDataContentType()

	return g.client.do(ctx, operation, func(ctx context.Context) (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.client.url(path), bytes.NewReader(payload))
		if err != nil {
			return nil, err
		}
		copyHeaders(req.Header, g.client.multipartHeaders(ctx))
		req.Header.Set("Content-Type", contentType)
		req.Header.Set("Accept", "application/json")
		return req, nil
	}, decodeInto(operation, out))
}

var quoteEscaper = strings.NewReplacer("\\", "\\\\", `"`, "\\\"")

func writeFilePart(w *multipart.Writer, field string, file ports.FileHandle) error {
	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", fmt.Sprintf(`form-data; name="%s"; filename="%s"`,
		quoteEscaper.Replace(field), quoteEscaper.Replace(file.Name())))
	mimeType := strings.TrimSpace(file.MimeType())
	if mimeType == "" {
		mimeType = "application/octet-stream"
	}
	header.Set("Content-Type", mimeType)

	part, err := w.CreatePart(header)
	if err != nil {
		return fmt.Errorf("create part for %s: %w", file.Name(), err)
	}
	rc, err := file.Open()
	if err != nil {
		return fmt.Errorf("open %s: %w", file.Name(), err)
	}
	defer rc.Close()
	if _, err := io.Copy(part, rc); err != nil {
		return fmt.Errorf("copy %s: %w", file.Name(), err)
	}
	return nil
}
