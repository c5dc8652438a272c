package services

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"

	"github.com/google/uuid"
)

// Upload - файл, пришедший из multipart-формы.
type Upload struct {
	FileName string
	Size     int64
	Body     io.Reader
}

var imageExtensions = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/webp": ".webp",
}

var errBadImage = errors.New("unsupported or oversized image")

// saveImage сохраняет изображение под случайным именем в dir.
// Тип определяется по содержимому, а не по расширению из формы.
func saveImage(dir string, u *Upload, maxSize int64) (string, error) {
	if u.Size > maxSize {
		return "", errBadImage
	}

	head := make([]byte, 512)
	n, err := io.ReadFull(u.Body, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("read upload: %w", err)
	}
	head = head[:n]
	ext, ok := imageExtensions[http.DetectContentType(head)]
	if !ok {
		return "", errBadImage
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create upload dir: %w", err)
	}
	path := filepath.Join(dir, uuid.NewString()+ext)

	out, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("failed to create file on server: %w", err)
	}
	defer out.Close()

	written, err := io.Copy(out, io.LimitReader(io.MultiReader(bytes.NewReader(head), u.Body), maxSize+1))
	if err != nil {
		os.Remove(path)
		return "", fmt.Errorf("failed to copy file content: %w", err)
	}
	if written > maxSize {
		os.Remove(path)
		return "", errBadImage
	}
	return filepath.ToSlash(path), nil
}
