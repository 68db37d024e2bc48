package negotiation

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"netneg/internal/model"
)

// Advertisement is a peer's published component list, fetched by URL.
type Advertisement struct {
	ProtocolVersion string            `json:"protocol_version,omitempty"`
	Components      []model.Component `json:"components"`

	// Cache metadata - not from wire, set by fetcher
	ProfileURL string    `json:"-"`
	FetchedAt  time.Time `json:"-"`
	ExpiresAt  time.Time `json:"-"`
}

// Validate checks the document a peer published: the revision, when given,
// must be a semantic version and the components must form a valid
// advertisement. An invalid document is never cached.
func (a *Advertisement) Validate() error {
	if a.ProtocolVersion != "" && !ValidProtocolVersion(a.ProtocolVersion) {
		return &VersionError{
			Code:         ProtocolVersionInvalid,
			Message:      fmt.Sprintf("protocol_version %q is not a semantic version", a.ProtocolVersion),
			AgentVersion: a.ProtocolVersion,
		}
	}
	return model.ValidateAdvertisement(a.Components)
}

// AdvertisementFetcher fetches and caches peer advertisements.
// Interface allows mocking in tests.
type AdvertisementFetcher interface {
	Fetch(ctx context.Context, profileURL string) (*Advertisement, error)
}

// DefaultCacheTTL is used when HTTP cache headers don't specify a duration.
const DefaultCacheTTL = 5 * time.Minute

// DefaultFetchTimeout is the timeout for fetching an advertisement.
const DefaultFetchTimeout = 5 * time.Second

// MaxCacheEntries limits the number of cached advertisements (LRU eviction).
const MaxCacheEntries = 1000

// maxAdvertisementSize bounds the response body read from a peer.
const maxAdvertisementSize = 1 << 20

// FetcherConfig contains configuration for the advertisement fetcher.
type FetcherConfig struct {
	CacheTTL     time.Duration     // Default TTL when not specified by cache headers
	FetchTimeout time.Duration     // HTTP timeout for fetching advertisements
	MaxEntries   int               // Max cache entries (0 = default)
	Transport    http.RoundTripper // nil = http.DefaultTransport
}

// HTTPAdvertisementFetcher fetches advertisements over HTTP with caching.
// Respects Cache-Control max-age, Expires and ETag revalidation.
type HTTPAdvertisementFetcher struct {
	client     *http.Client
	cache      map[string]*cacheEntry
	cacheMu    sync.RWMutex
	config     FetcherConfig
	accessList []string // LRU tracking: most recent at end
}

type cacheEntry struct {
	advert    *Advertisement
	expiresAt time.Time
	etag      string
}

// NewHTTPAdvertisementFetcher creates a fetcher with default config.
func NewHTTPAdvertisementFetcher() *HTTPAdvertisementFetcher {
	return NewHTTPAdvertisementFetcherWithConfig(FetcherConfig{})
}

// NewHTTPAdvertisementFetcherWithConfig creates a fetcher with custom config.
func NewHTTPAdvertisementFetcherWithConfig(config FetcherConfig) *HTTPAdvertisementFetcher {
	if config.CacheTTL == 0 {
		config.CacheTTL = DefaultCacheTTL
	}
	if config.FetchTimeout == 0 {
		config.FetchTimeout = DefaultFetchTimeout
	}
	if config.MaxEntries == 0 {
		config.MaxEntries = MaxCacheEntries
	}

	return &HTTPAdvertisementFetcher{
		client: &http.Client{
			Timeout:   config.FetchTimeout,
			Transport: config.Transport,
		},
		cache:      make(map[string]*cacheEntry),
		config:     config,
		accessList: make([]string, 0, config.MaxEntries),
	}
}

// Fetch retrieves an advertisement, using cache when possible.
// A fresh entry is returned immediately; a stale one is revalidated with its
// ETag. If the peer is unreachable and a stale entry exists, the stale entry
// is returned.
func (f *HTTPAdvertisementFetcher) Fetch(ctx context.Context, profileURL string) (*Advertisement, error) {
	f.cacheMu.RLock()
	entry, exists := f.cache[profileURL]
	f.cacheMu.RUnlock()

	if exists && entry.expiresAt.After(time.Now()) {
		f.recordAccess(profileURL)
		return entry.advert, nil
	}

	advert, err := f.fetchFromNetwork(ctx, profileURL, entry)
	if err != nil {
		if exists {
			return entry.advert, nil
		}
		return nil, fmt.Errorf("fetch advertisement: %w", err)
	}

	return advert, nil
}

func (f *HTTPAdvertisementFetcher) fetchFromNetwork(ctx context.Context, profileURL string, staleEntry *cacheEntry) (*Advertisement, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, profileURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	if staleEntry != nil && staleEntry.etag != "" {
		req.Header.Set("If-None-Match", staleEntry.etag)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	// 304 Not Modified - refresh TTL and keep the cached advertisement
	if resp.StatusCode == http.StatusNotModified && staleEntry != nil {
		f.updateCacheEntry(profileURL, staleEntry.advert, resp)
		return staleEntry.advert, nil
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d from %s", resp.StatusCode, profileURL)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxAdvertisementSize))
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}

	var advert Advertisement
	if err := json.Unmarshal(body, &advert); err != nil {
		return nil, fmt.Errorf("parse advertisement JSON: %w", err)
	}
	if err := advert.Validate(); err != nil {
		return nil, fmt.Errorf("invalid advertisement from %s: %w", profileURL, err)
	}

	advert.ProfileURL = profileURL
	advert.FetchedAt = time.Now()

	f.updateCacheEntry(profileURL, &advert, resp)

	return &advert, nil
}

func (f *HTTPAdvertisementFetcher) updateCacheEntry(url string, advert *Advertisement, resp *http.Response) {
	expiresAt := time.Now().Add(f.parseCacheTTL(resp))
	advert.ExpiresAt = expiresAt

	entry := &cacheEntry{
		advert:    advert,
		expiresAt: expiresAt,
		etag:      resp.Header.Get("ETag"),
	}

	f.cacheMu.Lock()
	defer f.cacheMu.Unlock()

	if _, ok := f.cache[url]; !ok && len(f.cache) >= f.config.MaxEntries {
		f.evictOldest()
	}

	f.cache[url] = entry
	f.recordAccessLocked(url)
}

// parseCacheTTL extracts TTL from HTTP cache headers.
// Priority: max-age in Cache-Control, then Expires header, then default.
func (f *HTTPAdvertisementFetcher) parseCacheTTL(resp *http.Response) time.Duration {
	if cc := resp.Header.Get("Cache-Control"); cc != "" {
		for _, directive := range strings.Split(cc, ",") {
			directive = strings.TrimSpace(directive)
			if directive == "no-store" || directive == "no-cache" {
				return 0
			}
			if seconds, ok := strings.CutPrefix(directive, "max-age="); ok {
				if n, err := strconv.Atoi(seconds); err == nil && n >= 0 {
					return time.Duration(n) * time.Second
				}
			}
		}
	}

	if expires := resp.Header.Get("Expires"); expires != "" {
		if t, err := http.ParseTime(expires); err == nil {
			if ttl := time.Until(t); ttl > 0 {
				return ttl
			}
		}
	}

	return f.config.CacheTTL
}

func (f *HTTPAdvertisementFetcher) recordAccess(url string) {
	f.cacheMu.Lock()
	defer f.cacheMu.Unlock()
	f.recordAccessLocked(url)
}

func (f *HTTPAdvertisementFetcher) recordAccessLocked(url string) {
	for i, u := range f.accessList {
		if u == url {
			f.accessList = append(f.accessList[:i], f.accessList[i+1:]...)
			break
		}
	}
	f.accessList = append(f.accessList, url)
}

func (f *HTTPAdvertisementFetcher) evictOldest() {
	if len(f.accessList) == 0 {
		return
	}
	oldest := f.accessList[0]
	f.accessList = f.accessList[1:]
	delete(f.cache, oldest)
}

// ClearCache removes all cached entries.
func (f *HTTPAdvertisementFetcher) ClearCache() {
	f.cacheMu.Lock()
	defer f.cacheMu.Unlock()
	f.cache = make(map[string]*cacheEntry)
	f.accessList = make([]string, 0, f.config.MaxEntries)
}

// CacheLen returns the number of cached advertisements.
func (f *HTTPAdvertisementFetcher) CacheLen() int {
	f.cacheMu.RLock()
	defer f.cacheMu.RUnlock()
	return len(f.cache)
}
