package stores

import (
	"io"
	"os"
	"path/filepath"
	"strings"
)

// LocalStore keeps media on disk under a base directory. Development
// fallback when no MinIO endpoint is configured.
type LocalStore struct {
	Dir     string
	BaseURL string
}

func NewLocalStore(dir, baseURL string) Store {
	return &LocalStore{Dir: dir, BaseURL: baseURL}
}

func (l *LocalStore) path(key string) string {
	return filepath.Join(l.Dir, filepath.Clean("/"+key))
}

func (l *LocalStore) Read(key string) (io.ReadCloser, int64, error) {
	f, err := os.Open(l.path(key))
	if err != nil {
		return nil, 0, err
	}
	st, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, 0, err
	}
	return f, st.Size(), nil
}

func (l *LocalStore) Write(key string, r io.Reader, contentType string) error {
	p := l.path(key)
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return err
	}
	f, err := os.Create(p)
	if err != nil {
		return err
	}
	defer f.Close()
	_, err = io.Copy(f, r)
	return err
}

func (l *LocalStore) Delete(key string) error {
	return os.Remove(l.path(key))
}

func (l *LocalStore) Exists(key string) (bool, error) {
	if _, err := os.Stat(l.path(key)); err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func (l *LocalStore) PublicURL(key string) string {
	return strings.TrimRight(l.BaseURL, "/") + "/" + key
}
