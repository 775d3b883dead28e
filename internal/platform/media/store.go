package media

import (
	"context"
	"fmt"
	"io"
	"mime"
	"os"
	"path/filepath"
	"strings"
	"time"

	errs "github.com/darisni/darisni-backend/internal/pkg/errors"
	"github.com/darisni/darisni-backend/internal/platform/logger"
)

// Store is the byte-level contract between the catalog and the disk. Keys
// are slash-separated paths relative to the configured video root; every
// operation refuses keys that would escape it.
type Store interface {
	Save(ctx context.Context, key string, file io.Reader) (int64, error)
	Open(ctx context.Context, key string) (io.ReadCloser, error)
	// OpenRange returns a reader over length bytes starting at offset.
	OpenRange(ctx context.Context, key string, offset, length int64) (io.ReadCloser, error)
	Attrs(ctx context.Context, key string) (*ObjectAttrs, error)
	Delete(ctx context.Context, key string) error
}

type ObjectAttrs struct {
	Size        int64
	ContentType string
	Updated     time.Time
}

type diskStore struct {
	log  *logger.Logger
	root string
}

func NewDiskStore(log *logger.Logger, root string) (Store, error) {
	if strings.TrimSpace(root) == "" {
		return nil, fmt.Errorf("video root required")
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolve video root: %w", err)
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return nil, fmt.Errorf("create video root: %w", err)
	}
	storeLog := log.With("service", "MediaStore")
	return &diskStore{log: storeLog, root: abs}, nil
}

// resolve maps a key to an absolute path under the root, rejecting
// traversal attempts.
func (s *diskStore) resolve(key string) (string, error) {
	k := strings.TrimSpace(key)
	if k == "" {
		return "", fmt.Errorf("empty key: %w", errs.ErrInvalidArgument)
	}
	if strings.Contains(k, "\x00") {
		return "", fmt.Errorf("invalid key: %w", errs.ErrInvalidArgument)
	}
	full := filepath.Join(s.root, filepath.FromSlash(k))
	full = filepath.Clean(full)
	if full != s.root && !strings.HasPrefix(full, s.root+string(os.PathSeparator)) {
		return "", fmt.Errorf("key escapes video root: %w", errs.ErrInvalidArgument)
	}
	if full == s.root {
		return "", fmt.Errorf("key resolves to video root: %w", errs.ErrInvalidArgument)
	}
	return full, nil
}

func (s *diskStore) Save(ctx context.Context, key string, file io.Reader) (int64, error) {
	full, err := s.resolve(key)
	if err != nil {
		return 0, err
	}
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return 0, fmt.Errorf("mkdir for %s: %w", key, err)
	}
	dst, err := os.Create(full)
	if err != nil {
		return 0, fmt.Errorf("create %s: %w", key, err)
	}
	n, err := io.Copy(dst, file)
	if cErr := dst.Close(); cErr != nil && err == nil {
		err = cErr
	}
	if err != nil {
		// Never leave a partial file behind.
		_ = os.Remove(full)
		return 0, fmt.Errorf("write %s: %w", key, err)
	}
	return n, nil
}

func (s *diskStore) Open(ctx context.Context, key string) (io.ReadCloser, error) {
	full, err := s.resolve(key)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(full)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errs.ErrNotFound
		}
		return nil, fmt.Errorf("open %s: %w", key, err)
	}
	return f, nil
}

func (s *diskStore) OpenRange(ctx context.Context, key string, offset, length int64) (io.ReadCloser, error) {
	if offset < 0 || length <= 0 {
		return nil, fmt.Errorf("invalid range offset=%d length=%d: %w", offset, length, errs.ErrInvalidArgument)
	}
	full, err := s.resolve(key)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(full)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errs.ErrNotFound
		}
		return nil, fmt.Errorf("open %s: %w", key, err)
	}
	if _, err := f.Seek(offset, io.SeekStart); err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("seek %s to %d: %w", key, offset, err)
	}
	return &rangeReader{r: io.LimitReader(f, length), f: f}, nil
}

func (s *diskStore) Attrs(ctx context.Context, key string) (*ObjectAttrs, error) {
	full, err := s.resolve(key)
	if err != nil {
		return nil, err
	}
	info, err := os.Stat(full)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errs.ErrNotFound
		}
		return nil, fmt.Errorf("stat %s: %w", key, err)
	}
	if info.IsDir() {
		return nil, errs.ErrNotFound
	}
	contentType := mime.TypeByExtension(filepath.Ext(full))
	return &ObjectAttrs{
		Size:        info.Size(),
		ContentType: contentType,
		Updated:     info.ModTime(),
	}, nil
}

func (s *diskStore) Delete(ctx context.Context, key string) error {
	full, err := s.resolve(key)
	if err != nil {
		return err
	}
	if err := os.Remove(full); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove %s: %w", key, err)
	}
	return nil
}

type rangeReader struct {
	r io.Reader
	f *os.File
}

func (rr *rangeReader) Read(p []byte) (int, error) { return rr.r.Read(p) }
func (rr *rangeReader) Close() error               { return rr.f.Close() }
