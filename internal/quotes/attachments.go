package quotes

import (
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"
)

const defaultExtension = "jpg"

var allowedExtensions = map[string]bool{
	"jpg":  true,
	"jpeg": true,
	"png":  true,
	"webp": true,
}

var extensionByType = map[string]string{
	"image/jpeg": "jpg",
	"image/png":  "png",
	"image/webp": "webp",
}

// SanitizeExtension picks the object extension. The client filename is only
// trusted when its suffix is on the allow-list; otherwise the declared type
// decides, then the default.
func SanitizeExtension(filename, contentType string) string {
	ext := strings.ToLower(strings.TrimPrefix(path.Ext(filename), "."))
	if allowedExtensions[ext] {
		return ext
	}
	if ext, ok := extensionByType[normalizeContentType(contentType)]; ok {
		return ext
	}
	return defaultExtension
}

// BuildStoragePath returns {lead_id}/{unix_ms}-{token}.{ext}.
func BuildStoragePath(leadID, ext string, now time.Time, token string) string {
	return fmt.Sprintf("%s/%d-%s.%s", leadID, now.UnixMilli(), token, ext)
}

// newPathToken returns 32 random hex characters.
func newPathToken() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")
}
