package validation

import (
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"
)

// normalizerCacheSize bounds the raw-URL memo. Sized for the distinct-URL
// cardinality of a single tenant, not the whole keyspace.
const normalizerCacheSize = 4096

// URLNormalizer converts raw page URLs to their canonical storage form:
// query string and fragment stripped, trailing slash removed (except for
// the bare root), lowercased, and the leading slash dropped so the value
// can be embedded directly in a storage key. Reads add the slash back for
// display.
type URLNormalizer struct {
	cache *lru.Cache[string, string]
}

// NewURLNormalizer returns a normalizer with a bounded memo cache
func NewURLNormalizer() (*URLNormalizer, error) {
	cache, err := lru.New[string, string](normalizerCacheSize)
	if err != nil {
		return nil, err
	}
	return &URLNormalizer{cache: cache}, nil
}

// Normalize returns the canonical storage form of rawURL
func (n *URLNormalizer) Normalize(rawURL string) string {
	if rawURL == "" {
		return rawURL
	}
	if cached, ok := n.cache.Get(rawURL); ok {
		return cached
	}

	normalized := normalize(rawURL)
	n.cache.Add(rawURL, normalized)
	return normalized
}

func normalize(rawURL string) string {
	s := rawURL

	if i := strings.IndexByte(s, '?'); i != -1 {
		s = s[:i]
	}
	if i := strings.IndexByte(s, '#'); i != -1 {
		s = s[:i]
	}

	// Trailing slash is noise except on the bare root.
	if len(s) > 1 && strings.HasSuffix(s, "/") {
		s = s[:len(s)-1]
	}

	s = strings.ToLower(s)

	return strings.TrimPrefix(s, "/")
}
