package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"log/slog"

	"github.com/IliaW/util-cli/config"
)

// CachedClient keeps the link to the latest exported report of a seed url.
type CachedClient interface {
	SaveReportLink(seedURL string, link string)
	ReportLink(seedURL string) (string, bool)
	Close()
}

// New returns a memcached client when servers are configured and the in-process
// cache otherwise. A memcached connection failure falls back to the local cache.
func New(cfg *config.CacheConfig, log *slog.Logger) CachedClient {
	if cfg.Servers == "" {
		return NewLocalCache(cfg, log)
	}
	mc, err := NewMemcachedClient(cfg, log)
	if err != nil {
		log.Warn("memcached is unavailable. Use local cache.", slog.String("err", err.Error()))
		return NewLocalCache(cfg, log)
	}
	return mc
}

func hashURL(url string) string {
	hash := sha256.New()
	hash.Write([]byte(url))
	return hex.EncodeToString(hash.Sum(nil))
}

func reportKey(seedURL string) string {
	return hashURL(seedURL) + "-report"
}
