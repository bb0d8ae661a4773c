package storage

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"infrascan/internal/apperror"
)

// DefaultExtension is used when the client filename carries no usable one.
const DefaultExtension = ".jpg"

// UploadStore writes incoming files under a single directory using generated
// names. Client filenames never become paths.
type UploadStore struct {
	dir string
}

// NewUploadStore creates the upload directory if needed.
func NewUploadStore(dir string) (*UploadStore, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, apperror.NewStartupError("failed to create upload directory "+dir, err)
	}
	return &UploadStore{dir: dir}, nil
}

// Dir returns the upload directory.
func (s *UploadStore) Dir() string {
	return s.dir
}

// Upload is one persisted request file. Release removes it.
type Upload struct {
	Path         string
	OriginalName string
	Size         int64
}

// Save copies src into a new collision-free file. On error nothing is left
// on disk.
func (s *UploadStore) Save(src io.Reader, originalName string) (*Upload, error) {
	path := filepath.Join(s.dir, uuid.NewString()+Extension(originalName))

	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0644)
	if err != nil {
		return nil, apperror.NewIOError("failed to create upload file", err)
	}

	n, err := io.Copy(f, src)
	if closeErr := f.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		os.Remove(path)
		return nil, apperror.NewIOError("failed to write upload file", err)
	}

	return &Upload{Path: path, OriginalName: originalName, Size: n}, nil
}

// Read returns the stored bytes.
func (u *Upload) Read() ([]byte, error) {
	data, err := os.ReadFile(u.Path)
	if err != nil {
		return nil, apperror.NewIOError("failed to read upload file", err)
	}
	return data, nil
}

// Release deletes the file. Safe to call more than once.
func (u *Upload) Release() error {
	if u == nil || u.Path == "" {
		return nil
	}
	err := os.Remove(u.Path)
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove upload %s: %w", u.Path, err)
	}
	u.Path = ""
	return nil
}

// Extension returns the lower-cased extension of a client filename when it is
// a short alphanumeric suffix, DefaultExtension otherwise.
func Extension(name string) string {
	ext := strings.ToLower(filepath.Ext(filepath.Base(strings.ReplaceAll(name, "\\", "/"))))
	if len(ext) < 2 || len(ext) > 6 {
		return DefaultExtension
	}
	for _, r := range ext[1:] {
		if (r < 'a' || r > 'z') && (r < '0' || r > '9') {
			return DefaultExtension
		}
	}
	return ext
}
