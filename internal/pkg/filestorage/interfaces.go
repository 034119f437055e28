package filestorage

import (
	"mime/multipart"
)

// TempStorage holds uploaded files while a request is processed
type TempStorage interface {
	// SaveFile writes the upload under a generated name and returns that name
	SaveFile(fileHeader *multipart.FileHeader) (string, error)

	// ReadFile returns the content saved under name
	ReadFile(name string) ([]byte, error)

	// DeleteFile removes a saved file; missing files are not an error
	DeleteFile(name string) error
}
