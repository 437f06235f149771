package service

import (
	"net/http"
	"path/filepath"
	"strings"

	"personashield/internal/domain"
)

// detectImageType validates an uploaded image by extension and magic bytes
// and returns its MIME content type.
func detectImageType(filename string, content []byte) (string, error) {
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(filename), "."))
	if _, ok := domain.AllowedExtensions[ext]; !ok {
		return "", domain.ErrUnsupportedFileType
	}

	head := content
	if len(head) > 512 {
		head = head[:512]
	}
	detected := http.DetectContentType(head)
	fileType, ok := domain.AllowedContentTypes[detected]
	if !ok {
		return "", domain.ErrUnsupportedFileType
	}
	return domain.ContentTypes[fileType], nil
}
