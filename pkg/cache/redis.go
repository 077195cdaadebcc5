package cache

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/timoknapp/badminton-buddy/pkg/logger"
)

// KeyPrefix namespaces every key the client writes.
const KeyPrefix = "bb:"

const redisOpTimeout = 5 * time.Second

// RedisStore implements Store on a shared Redis, so several shells on one machine
// or a small fleet of watchers can share a single signed-in session.
type RedisStore struct {
	rdb       *redis.Client
	namespace string
}

// NewRedisStore connects to addr and pings it once. namespace separates
// independent sessions on the same Redis; it is usually the API host.
func NewRedisStore(ctx context.Context, addr string, db int, namespace string) (*RedisStore, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr: addr,
		DB:   db,
	})

	pingCtx, cancel := context.WithTimeout(ctx, redisOpTimeout)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("failed to connect to Redis at %s: %w", addr, err)
	}

	logger.Debug("Redis state store connected at %s (db %d)", addr, db)
	return &RedisStore{rdb: rdb, namespace: namespace}, nil
}

func (s *RedisStore) identityKey() string { return redisKey(s.namespace, identityKey) }
func (s *RedisStore) prefillKey() string  { return redisKey(s.namespace, prefillKey) }
func (s *RedisStore) cookiesKey(host string) string {
	return redisKey(s.namespace, "cookies:"+host)
}

func redisKey(namespace, name string) string {
	if namespace == "" {
		return KeyPrefix + name
	}
	return KeyPrefix + namespace + ":" + name
}

func opContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), redisOpTimeout)
}

func (s *RedisStore) getBytes(key string) ([]byte, error) {
	ctx, cancel := opContext()
	defer cancel()
	data, err := s.rdb.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get %s: %w", key, err)
	}
	return data, nil
}

func (s *RedisStore) setBytes(key string, data []byte) error {
	ctx, cancel := opContext()
	defer cancel()
	if err := s.rdb.Set(ctx, key, data, 0).Err(); err != nil {
		return fmt.Errorf("failed to set %s: %w", key, err)
	}
	return nil
}

func (s *RedisStore) del(key string) error {
	ctx, cancel := opContext()
	defer cancel()
	if err := s.rdb.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("failed to delete %s: %w", key, err)
	}
	return nil
}

func (s *RedisStore) LoadIdentity() ([]byte, error)  { return s.getBytes(s.identityKey()) }
func (s *RedisStore) SaveIdentity(data []byte) error { return s.setBytes(s.identityKey(), data) }
func (s *RedisStore) ClearIdentity() error           { return s.del(s.identityKey()) }

func (s *RedisStore) SavePrefill(data []byte) error { return s.setBytes(s.prefillKey(), data) }
func (s *RedisStore) LoadPrefill() ([]byte, error)  { return s.getBytes(s.prefillKey()) }
func (s *RedisStore) ClearPrefill() error           { return s.del(s.prefillKey()) }

// TakePrefill uses GETDEL so two shells cannot both consume the same prefill.
func (s *RedisStore) TakePrefill() ([]byte, error) {
	ctx, cancel := opContext()
	defer cancel()
	data, err := s.rdb.GetDel(ctx, s.prefillKey()).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to take prefill: %w", err)
	}
	return data, nil
}

func (s *RedisStore) LoadCookies(host string) ([]*http.Cookie, error) {
	data, err := s.getBytes(s.cookiesKey(host))
	if err != nil || data == nil {
		return nil, err
	}
	return decodeCookies(data)
}

func (s *RedisStore) SaveCookies(host string, cookies []*http.Cookie) error {
	if len(cookies) == 0 {
		return s.del(s.cookiesKey(host))
	}
	data, err := encodeCookies(cookies)
	if err != nil {
		return err
	}
	return s.setBytes(s.cookiesKey(host), data)
}

// GetCacheStatistics mirrors BoltStore's report using EXISTS and a key scan.
func (s *RedisStore) GetCacheStatistics() (map[string]int, error) {
	ctx, cancel := opContext()
	defer cancel()

	stats := map[string]int{"identity": 0, "prefill": 0, "cookie_hosts": 0, "cookies": 0}

	pipe := s.rdb.Pipeline()
	identity := pipe.Exists(ctx, s.identityKey())
	prefill := pipe.Exists(ctx, s.prefillKey())
	if _, err := pipe.Exec(ctx); err != nil {
		return stats, fmt.Errorf("failed to read Redis statistics: %w", err)
	}
	stats["identity"] = int(identity.Val())
	stats["prefill"] = int(prefill.Val())

	iter := s.rdb.Scan(ctx, 0, s.cookiesKey("*"), 100).Iterator()
	for iter.Next(ctx) {
		stats["cookie_hosts"]++
		data, err := s.rdb.Get(ctx, iter.Val()).Bytes()
		if err != nil {
			continue
		}
		if cookies, err := decodeCookies(data); err == nil {
			stats["cookies"] += len(cookies)
		}
	}
	return stats, iter.Err()
}

func (s *RedisStore) Close() error {
	return s.rdb.Close()
}
