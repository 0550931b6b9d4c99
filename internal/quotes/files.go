package quotes

import (
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"mime"
	"strings"

	_ "golang.org/x/image/webp"
)

// FileInput is one uploaded file part. Open may be called more than once.
type FileInput struct {
	Filename    string
	ContentType string
	Size        int64
	Open        func() (io.ReadCloser, error)
}

// FilePolicy bounds what a single submission may upload.
type FilePolicy struct {
	MaxFiles     int
	MaxBytes     int64
	AllowedTypes []string
}

// DefaultFilePolicy allows five JPEG, PNG or WebP photos of up to 10 MiB.
func DefaultFilePolicy() FilePolicy {
	return FilePolicy{
		MaxFiles:     5,
		MaxBytes:     10 * 1024 * 1024,
		AllowedTypes: []string{"image/jpeg", "image/png", "image/webp"},
	}
}

// formatByType maps MIME types to the image package's format names.
var formatByType = map[string]string{
	"image/jpeg": "jpeg",
	"image/png":  "png",
	"image/webp": "webp",
}

// FileError is a user-presentable file rejection.
type FileError struct {
	Filename string
	Message  string
	Err      error
}

func (e *FileError) Error() string { return e.Message }

func (e *FileError) Unwrap() error { return e.Err }

// ValidateFiles drops empty parts (no file chosen) and rejects the whole
// batch if any remaining file breaks the policy. It returns the files to
// upload.
func ValidateFiles(files []FileInput, policy FilePolicy) ([]FileInput, error) {
	selected := make([]FileInput, 0, len(files))
	for _, f := range files {
		if f.Size == 0 && strings.TrimSpace(f.Filename) == "" {
			continue
		}
		selected = append(selected, f)
	}

	if policy.MaxFiles > 0 && len(selected) > policy.MaxFiles {
		return nil, &FileError{
			Message: fmt.Sprintf("Maximum %d files allowed", policy.MaxFiles),
			Err:     ErrTooManyFiles,
		}
	}

	for _, f := range selected {
		if err := validateFile(f, policy); err != nil {
			return nil, err
		}
	}
	return selected, nil
}

func validateFile(f FileInput, policy FilePolicy) error {
	name := displayName(f.Filename)
	if policy.MaxBytes > 0 && f.Size > policy.MaxBytes {
		return &FileError{
			Filename: f.Filename,
			Message:  fmt.Sprintf("File %q exceeds %s limit", name, formatBytes(policy.MaxBytes)),
			Err:      ErrFileTooLarge,
		}
	}

	contentType := normalizeContentType(f.ContentType)
	if !typeAllowed(contentType, policy.AllowedTypes) {
		return &FileError{
			Filename: f.Filename,
			Message:  fmt.Sprintf("File %q has invalid type. Allowed: JPEG, PNG, WebP", name),
			Err:      ErrFileType,
		}
	}

	format, err := sniffImageFormat(f)
	if err != nil || format != formatByType[contentType] {
		return &FileError{
			Filename: f.Filename,
			Message:  fmt.Sprintf("File %q is not a valid JPEG, PNG, or WebP image", name),
			Err:      ErrFileContent,
		}
	}
	return nil
}

// sniffImageFormat decodes only the image header.
func sniffImageFormat(f FileInput) (string, error) {
	if f.Open == nil {
		return "", ErrFileContent
	}
	rc, err := f.Open()
	if err != nil {
		return "", err
	}
	defer rc.Close()
	_, format, err := image.DecodeConfig(rc)
	return format, err
}

func normalizeContentType(contentType string) string {
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return strings.ToLower(strings.TrimSpace(contentType))
	}
	return mediaType
}

func typeAllowed(contentType string, allowed []string) bool {
	for _, t := range allowed {
		if strings.EqualFold(contentType, t) {
			return formatByType[contentType] != ""
		}
	}
	return false
}

func displayName(filename string) string {
	name := strings.TrimSpace(filename)
	if name == "" {
		return "upload"
	}
	const maxLen = 80
	if r := []rune(name); len(r) > maxLen {
		return string(r[:maxLen]) + "..."
	}
	return name
}

func formatBytes(n int64) string {
	const mb = 1024 * 1024
	if n%mb == 0 {
		return fmt.Sprintf("%dMB", n/mb)
	}
	return fmt.Sprintf("%d bytes", n)
}
