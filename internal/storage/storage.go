// Package storage puts uploaded files somewhere publicly readable.
package storage

import (
	"context"
	"fmt"
	"net/http"
	"path"
	"strings"

	"github.com/google/uuid"
)

// MaxAvatarSize is the upper bound for avatar uploads in bytes.
const MaxAvatarSize = 2 << 20

// allowedImageTypes maps accepted content types to file extensions.
var allowedImageTypes = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/gif":  ".gif",
	"image/webp": ".webp",
}

// Object is a file ready to be stored.
type Object struct {
	Key         string
	ContentType string
	Body        []byte
}

// ObjectStore stores objects and resolves their public URL.
type ObjectStore interface {
	// Put writes obj under obj.Key, replacing any existing object.
	Put(ctx context.Context, obj Object) error

	// PublicURL returns the URL at which key can be downloaded.
	PublicURL(key string) string
}

// DetectImage sniffs body and returns its content type and extension. ok is
// false when body is not one of the accepted image formats.
func DetectImage(body []byte) (contentType, ext string, ok bool) {
	contentType = http.DetectContentType(body)
	if i := strings.IndexByte(contentType, ';'); i >= 0 {
		contentType = contentType[:i]
	}
	ext, ok = allowedImageTypes[contentType]
	return contentType, ext, ok
}

// AvatarKey returns a fresh object key for a user's avatar.
func AvatarKey(prefix string, userID uuid.UUID, ext string) string {
	return path.Join(prefix, userID.String(), fmt.Sprintf("%s%s", uuid.NewString(), ext))
}
