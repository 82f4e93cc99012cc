package localfiles

import (
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/sjwg/reporter-backend/internal/platform/logger"
)

// Extensions accepted by the submission endpoint. Anything else is rejected
// before a single byte hits disk.
var allowedExtensions = map[string]bool{
	".pdf":  true,
	".png":  true,
	".jpg":  true,
	".jpeg": true,
}

const reportsSubdir = "reports"

// Store is the local upload-root file store shared by the API process and
// the pipeline workers. All paths it hands out live under Root(); the public
// URL space mirrors the root under /uploads.
type Store struct {
	root string
	log  *logger.Logger
}

func NewStore(root string, baseLog *logger.Logger) (*Store, error) {
	if strings.TrimSpace(root) == "" {
		return nil, fmt.Errorf("upload root is required")
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("create upload root: %w", err)
	}
	return &Store{root: root, log: baseLog.With("service", "FileStore")}, nil
}

func (s *Store) Root() string { return s.root }

// NormalizeExtension lower-cases an extension and guarantees a leading dot,
// so ".PDF", "pdf" and ".pdf" all compare equal.
func NormalizeExtension(ext string) string {
	ext = strings.ToLower(strings.TrimSpace(ext))
	if ext == "" {
		return ""
	}
	if !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	return ext
}

// AllowedUpload reports whether the filename carries a supported extension.
func AllowedUpload(filename string) bool {
	return allowedExtensions[NormalizeExtension(filepath.Ext(filename))]
}

// SaveUpload writes the uploaded bytes under a collision-free name: a random
// token prefixed to the sanitized base name. Directory components in the
// client-supplied filename are stripped so it can never traverse outside the
// upload root.
func (s *Store) SaveUpload(filename string, r io.Reader) (string, error) {
	safe := filepath.Base(filepath.Clean(filename))
	if safe == "." || safe == string(filepath.Separator) {
		return "", fmt.Errorf("invalid filename %q", filename)
	}
	token := strings.ReplaceAll(uuid.New().String(), "-", "")
	dest := filepath.Join(s.root, token+"_"+safe)

	f, err := os.Create(dest)
	if err != nil {
		return "", fmt.Errorf("create upload file: %w", err)
	}
	defer f.Close()
	if _, err := io.Copy(f, r); err != nil {
		_ = os.Remove(dest)
		return "", fmt.Errorf("write upload file: %w", err)
	}
	return dest, nil
}

// Remove deletes a stored file. Missing files are not an error.
func (s *Store) Remove(storedPath string) error {
	err := os.Remove(storedPath)
	if err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

// ReportPaths returns the on-disk destination and the public URL for a
// report's rendered artifact. The name is derived from the report id only,
// so a re-run overwrites instead of duplicating.
func (s *Store) ReportPaths(reportID uint) (diskPath, publicURL string) {
	name := fmt.Sprintf("report_%d.pdf", reportID)
	return filepath.Join(s.root, reportsSubdir, name), path.Join("/uploads", reportsSubdir, name)
}

// ResolvePublic maps a public /uploads URL back to its on-disk path.
// Anything resolving outside the upload root is rejected.
func (s *Store) ResolvePublic(publicURL string) (string, error) {
	trimmed := strings.TrimPrefix(strings.TrimPrefix(publicURL, "/"), "uploads/")
	clean := filepath.Clean(trimmed)
	if clean == "." || strings.HasPrefix(clean, "..") || filepath.IsAbs(clean) {
		return "", fmt.Errorf("invalid artifact path %q", publicURL)
	}
	return filepath.Join(s.root, clean), nil
}
