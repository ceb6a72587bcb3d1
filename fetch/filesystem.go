package fetch

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// FilesystemDownloader caches responses on disk so a restarted node
// can reuse the morning's schedule zip instead of hitting the
// operator API again. Bodies live in one file per URL; retrieval
// times live in an index file next to them.
type FilesystemDownloader struct {
	dir     string
	index   map[string]string
	mutex   sync.Mutex
	TimeNow func() time.Time
}

func NewFilesystemDownloader(dir string) (*FilesystemDownloader, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("creating cache dir: %w", err)
	}

	d := &FilesystemDownloader{
		dir:     dir,
		index:   map[string]string{},
		TimeNow: time.Now,
	}

	buf, err := os.ReadFile(d.indexPath())
	if os.IsNotExist(err) {
		return d, nil
	} else if err != nil {
		return nil, fmt.Errorf("reading cache index: %w", err)
	}

	if err := json.Unmarshal(buf, &d.index); err != nil {
		return nil, fmt.Errorf("unmarshalling cache index: %w", err)
	}

	return d, nil
}

func (d *FilesystemDownloader) Get(
	ctx context.Context,
	url string,
	headers map[string]string,
	options GetOptions,
) ([]byte, error) {
	d.mutex.Lock()
	defer d.mutex.Unlock()

	if options.Cache {
		if stamp, found := d.index[url]; found {
			retrievedAt, err := time.Parse(time.RFC3339, stamp)
			if err != nil {
				return nil, fmt.Errorf("parsing cache stamp: %w", err)
			}
			if retrievedAt.Add(options.CacheTTL).After(d.TimeNow()) {
				body, err := os.ReadFile(d.bodyPath(url))
				if err == nil {
					return body, nil
				}
				// Index points at a missing file, fall through
				// and refetch.
			}
		}
	}

	body, err := HTTPGet(ctx, url, headers, options)
	if err != nil {
		return nil, err
	}

	if options.Cache {
		if err := os.WriteFile(d.bodyPath(url), body, 0644); err != nil {
			return nil, fmt.Errorf("writing cache body: %w", err)
		}
		d.index[url] = d.TimeNow().UTC().Format(time.RFC3339)
		if err := d.saveIndex(); err != nil {
			return nil, err
		}
	}

	return body, nil
}

func (d *FilesystemDownloader) indexPath() string {
	return filepath.Join(d.dir, "index.json")
}

func (d *FilesystemDownloader) bodyPath(url string) string {
	sum := sha256.Sum256([]byte(url))
	return filepath.Join(d.dir, hex.EncodeToString(sum[:8])+".bin")
}

func (d *FilesystemDownloader) saveIndex() error {
	buf, err := json.Marshal(d.index)
	if err != nil {
		return fmt.Errorf("marshalling cache index: %w", err)
	}
	if err := os.WriteFile(d.indexPath(), buf, 0644); err != nil {
		return fmt.Errorf("writing cache index: %w", err)
	}
	return nil
}
