package downloader

import (
	"context"
	"net/url"
	"sync"
	"time"
)

// Caches downloaded resources in memory.
type MemoryDownloader struct {
	mutex sync.Mutex
	cache map[string]downloaderCacheEntry

	TimeNow func() time.Time
}

func NewMemoryDownloader() *MemoryDownloader {
	return &MemoryDownloader{
		cache:   make(map[string]downloaderCacheEntry),
		TimeNow: time.Now,
	}
}

type downloaderCacheEntry struct {
	data       []byte
	expiration time.Time
}

func (d *MemoryDownloader) Get(
	ctx context.Context,
	url string,
	headers map[string]string,
	options GetOptions,
) ([]byte, error) {

	return d.cached(cacheKey(url, nil), options, func() ([]byte, error) {
		return HTTPGet(ctx, url, headers, options)
	})
}

func (d *MemoryDownloader) PostForm(
	ctx context.Context,
	url string,
	form url.Values,
	options GetOptions,
) ([]byte, error) {

	return d.cached(cacheKey(url, form), options, func() ([]byte, error) {
		return HTTPPostForm(ctx, url, form, options)
	})
}

func (d *MemoryDownloader) cached(
	key string,
	options GetOptions,
	fetch func() ([]byte, error),
) ([]byte, error) {

	if options.Cache {
		d.mutex.Lock()
		defer d.mutex.Unlock()

		if entry, ok := d.cache[key]; ok {
			if entry.expiration.After(d.TimeNow()) {
				return entry.data, nil
			}
		}
	}

	body, err := fetch()
	if err != nil {
		return nil, err
	}

	if options.Cache {
		d.cache[key] = downloaderCacheEntry{
			data:       body,
			expiration: d.TimeNow().Add(options.CacheTTL),
		}
	}

	return body, nil
}
