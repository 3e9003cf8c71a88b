package util

import (
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
)

// ReadUploadedFile reads a multipart file fully, refusing files larger than maxBytes.
// It returns the content and the sniffed content type.
func ReadUploadedFile(file *multipart.FileHeader, maxBytes int64) ([]byte, string, error) {
	if file.Size > maxBytes {
		return nil, "", fmt.Errorf("file exceeds %d bytes", maxBytes)
	}

	src, err := file.Open()
	if err != nil {
		return nil, "", err
	}
	defer src.Close()

	data, err := io.ReadAll(io.LimitReader(src, maxBytes+1))
	if err != nil {
		return nil, "", err
	}
	if int64(len(data)) > maxBytes {
		return nil, "", fmt.Errorf("file exceeds %d bytes", maxBytes)
	}

	return data, http.DetectContentType(data), nil
}
