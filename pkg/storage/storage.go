package stores

import "io"

// Store is the object-storage surface for alert media. Keys are opaque
// to callers; PublicURL renders the address persisted on the alert.
type Store interface {
	Read(key string) (io.ReadCloser, int64, error)
	Write(key string, r io.Reader, contentType string) error
	Delete(key string) error
	Exists(key string) (bool, error)
	PublicURL(key string) string
}
