// Package imagestore persists uploaded images under content-addressed names.
//
// An image is stored as hex(sha256(content)) + ".jpg" regardless of its real
// encoding, so identical bytes always map to the same name and re-uploading
// them overwrites the blob with identical content.
package imagestore

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"io"
	"path"
	"strings"
)

// Extension is appended to every stored image name.
const Extension = ".jpg"

var (
	ErrImageNotFound    = errors.New("imagestore: image not found")
	ErrInvalidImageName = errors.New("imagestore: invalid image name")
)

// Store is implemented by every image backend. Implementations must be safe
// for concurrent use.
type Store interface {
	// Save writes data under its content name and returns that name.
	Save(ctx context.Context, data []byte) (string, error)
	// Open returns the stored image. The caller closes the reader.
	Open(ctx context.Context, name string) (io.ReadCloser, error)
}

// ContentName derives the storage name for data.
func ContentName(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:]) + Extension
}

// ValidateName rejects names that do not end in Extension or that could
// resolve outside the store, such as names with directory separators.
func ValidateName(name string) error {
	switch {
	case !strings.HasSuffix(name, Extension):
		return ErrInvalidImageName
	case strings.ContainsAny(name, `/\`):
		return ErrInvalidImageName
	case path.Base(name) != name || strings.HasPrefix(name, "."):
		return ErrInvalidImageName
	}
	return nil
}
