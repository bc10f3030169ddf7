package cache

import (
	"log/slog"
	"time"

	"github.com/IliaW/util-cli/config"
	gocache "github.com/patrickmn/go-cache"
)

// LocalCache is the in-process fallback used when no memcached servers are configured.
type LocalCache struct {
	store *gocache.Cache
	log   *slog.Logger
}

func NewLocalCache(cfg *config.CacheConfig, log *slog.Logger) *LocalCache {
	ttl := cfg.TtlForReport
	if ttl <= 0 {
		ttl = gocache.NoExpiration
	}
	return &LocalCache{
		store: gocache.New(ttl, 10*time.Minute),
		log:   log,
	}
}

func (lc *LocalCache) SaveReportLink(seedURL string, link string) {
	if link == "" {
		lc.log.Warn("report link is empty. Skip saving to cache.")
		return
	}
	lc.store.SetDefault(reportKey(seedURL), link)
	lc.log.Debug("report link saved to local cache.")
}

func (lc *LocalCache) ReportLink(seedURL string) (string, bool) {
	v, ok := lc.store.Get(reportKey(seedURL))
	if !ok {
		return "", false
	}
	link, ok := v.(string)
	return link, ok
}

func (lc *LocalCache) Close() {
	lc.store.Flush()
}
