package cache

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/IliaW/util-cli/config"
	"github.com/bradfitz/gomemcache/memcache"
	jsoniter "github.com/json-iterator/go"
)

type MemcachedClient struct {
	client *memcache.Client
	cfg    *config.CacheConfig
	log    *slog.Logger
}

func NewMemcachedClient(cacheConfig *config.CacheConfig, log *slog.Logger) (*MemcachedClient, error) {
	log.Info("connecting to memcached...")
	ss := new(memcache.ServerList)
	servers := strings.Split(cacheConfig.Servers, ",")
	if err := ss.SetServers(servers...); err != nil {
		return nil, fmt.Errorf("failed to set memcached servers: %w", err)
	}
	c := &MemcachedClient{
		client: memcache.NewFromSelector(ss),
		cfg:    cacheConfig,
		log:    log,
	}
	c.log.Info("pinging the memcached.")
	if err := c.client.Ping(); err != nil {
		return nil, fmt.Errorf("connection to the memcached is failed: %w", err)
	}
	c.log.Info("connected to memcached!")

	return c, nil
}

func (mc *MemcachedClient) SaveReportLink(seedURL string, link string) {
	if link == "" {
		mc.log.Warn("report link is empty. Skip saving to cache.")
		return
	}
	key := reportKey(seedURL)
	if err := mc.set(key, link, int32(mc.cfg.TtlForReport.Seconds())); err != nil {
		mc.log.Error("failed to save report link to cache.", slog.String("key", key),
			slog.String("err", err.Error()))
		return
	}
	mc.log.Debug("report link saved to cache.")
}

func (mc *MemcachedClient) ReportLink(seedURL string) (string, bool) {
	key := reportKey(seedURL)
	item, err := mc.client.Get(key)
	if err != nil {
		if !errors.Is(err, memcache.ErrCacheMiss) {
			mc.log.Warn("failed to read report link from cache.", slog.String("key", key),
				slog.String("err", err.Error()))
		}
		return "", false
	}
	var link string
	if err = jsoniter.Unmarshal(item.Value, &link); err != nil {
		mc.log.Error("failed to unmarshal cached report link.", slog.String("key", key),
			slog.String("err", err.Error()))
		return "", false
	}

	return link, true
}

func (mc *MemcachedClient) Close() {
	mc.log.Info("closing memcached connection.")
	if err := mc.client.Close(); err != nil {
		mc.log.Error("failed to close memcached connection.", slog.String("err", err.Error()))
	}
}

func (mc *MemcachedClient) set(key string, value any, expiration int32) error {
	byteValue, err := jsoniter.Marshal(value)
	if err != nil {
		return err
	}
	item := &memcache.Item{
		Key:        key,
		Value:      byteValue,
		Expiration: expiration,
	}

	return mc.client.Set(item)
}
