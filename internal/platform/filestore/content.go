package filestore

import (
	"fmt"

	"github.com/gabriel-vasile/mimetype"
)

// MaxUploadBytes is the per-file cap for review attachments.
const MaxUploadBytes int64 = 10 << 20

// AllowedTypes lists the accepted attachment MIME types.
var AllowedTypes = []string{
	"application/pdf",
	"image/png",
	"image/jpeg",
	"application/msword",
	"application/vnd.openxmlformats-officedocument.wordprocessingml.document",
	"text/plain",
}

type Content struct {
	MIME      string
	Extension string
}

// Detect sniffs data and checks it against AllowedTypes. The detected type's
// ancestors count too, so CSV or JSON content is accepted as plain text. The
// allowed ancestor names the stored MIME type and extension.
func Detect(data []byte) (Content, error) {
	mt := mimetype.Detect(data)
	for node := mt; node != nil; node = node.Parent() {
		for _, allowed := range AllowedTypes {
			if node.Is(allowed) {
				return Content{MIME: allowed, Extension: node.Extension()}, nil
			}
		}
	}
	return Content{MIME: mt.String()}, fmt.Errorf("%w: %s", ErrUnsupportedType, mt.String())
}

// CheckSize enforces limit, falling back to MaxUploadBytes when limit is not positive.
func CheckSize(size, limit int64) error {
	if limit <= 0 {
		limit = MaxUploadBytes
	}
	if size > limit {
		return fmt.Errorf("%w: %d bytes > %d", ErrTooLarge, size, limit)
	}
	return nil
}
