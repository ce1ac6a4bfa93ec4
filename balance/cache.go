package balance

import (
	"context"
	"sort"
	"strings"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"golang.org/x/sync/singleflight"

	checkout "github.com/lumenlabs/checkout-go"
)

const (
	defaultCacheTTL   = 30 * time.Second
	defaultCacheSweep = 5 * time.Minute
)

// CachedProvider memoizes balance snapshots per owner for a short window so
// repeated checks during one checkout flow do not hammer the RPC node.
// Concurrent fetches for the same owner are collapsed into one upstream call.
type CachedProvider struct {
	inner BalancesProvider
	cache *gocache.Cache
	group singleflight.Group
}

// NewCachedProvider wraps inner with a TTL cache. A non-positive ttl falls
// back to the default window.
func NewCachedProvider(inner BalancesProvider, ttl time.Duration) *CachedProvider {
	if ttl <= 0 {
		ttl = defaultCacheTTL
	}
	return &CachedProvider{
		inner: inner,
		cache: gocache.New(ttl, defaultCacheSweep),
	}
}

// Balances implements BalancesProvider. Snapshots are cached per owner and
// requested token set; forceFetch bypasses the cache and refreshes the
// stored snapshot.
func (p *CachedProvider) Balances(ctx context.Context, owner string, tokens []string, forceFetch bool) ([]checkout.ItemBalance, error) {
	key := snapshotKey(owner, tokens)

	if !forceFetch {
		if cached, ok := p.cache.Get(key); ok {
			return cached.([]checkout.ItemBalance), nil
		}
	}

	result, err, _ := p.group.Do(key, func() (any, error) {
		balances, err := p.inner.Balances(ctx, owner, tokens, forceFetch)
		if err != nil {
			return nil, err
		}
		p.cache.SetDefault(key, balances)
		return balances, nil
	})
	if err != nil {
		return nil, err
	}

	return result.([]checkout.ItemBalance), nil
}

// Invalidate drops every cached snapshot for one owner.
func (p *CachedProvider) Invalidate(owner string) {
	prefix := strings.ToLower(owner) + "|"
	for key := range p.cache.Items() {
		if strings.HasPrefix(key, prefix) {
			p.cache.Delete(key)
		}
	}
}

// snapshotKey is order-insensitive over the requested tokens so permuted
// item lists share a cache entry.
func snapshotKey(owner string, tokens []string) string {
	normalized := make([]string, len(tokens))
	for i, token := range tokens {
		normalized[i] = strings.ToLower(token)
	}
	sort.Strings(normalized)
	return strings.ToLower(owner) + "|" + strings.Join(normalized, ",")
}
