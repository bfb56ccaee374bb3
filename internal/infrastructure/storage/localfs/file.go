package localfs

import (
	"fmt"
	"io"
	"mime"
	"os"
	"path/filepath"
	"strings"

	"github.com/kirillkom/complaint-desk/internal/core/ports"
)

// File is an evidence file selected from the local disk. Its type is the
// one declared by the extension; content is not sniffed.
type File struct {
	path     string
	size     int64
	mimeType string
}

func OpenFile(path string) (*File, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("stat file: %w", err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("%s is a directory", path)
	}
	return &File{
		path:     path,
		size:     info.Size(),
		mimeType: mimeByExtension(path),
	}, nil
}

// OpenFiles opens every path, stopping at the first failure.
func OpenFiles(paths []string) ([]ports.FileHandle, error) {
	out := make([]ports.FileHandle, 0, len(paths))
	for _, p := range paths {
		f, err := OpenFile(p)
		if err != nil {
			return nil, err
		}
		out = append(out, f)
	}
	return out, nil
}

func (f *File) Name() string     { return filepath.Base(f.path) }
func (f *File) MimeType() string { return f.mimeType }
func (f *File) Size() int64      { return f.size }

func (f *File) Open() (io.ReadCloser, error) {
	file, err := os.Open(f.path)
	if err != nil {
		return nil, fmt.Errorf("open file: %w", err)
	}
	return file, nil
}

func mimeByExtension(path string) string {
	ext := strings.ToLower(filepath.Ext(path))
	switch ext {
	case ".jpg", ".jpeg":
		return "image/jpeg"
	case ".png":
		return "image/png"
	case ".gif":
		return "image/gif"
	}
	if t := mime.TypeByExtension(ext); t != "" {
		return t
	}
	return "application/octet-stream"
}
