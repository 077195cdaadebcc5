package cache

import (
	"fmt"
	"net/http"
	"os"
	"path/filepath"

	"github.com/timoknapp/badminton-buddy/pkg/logger"
	"go.etcd.io/bbolt"
)

const (
	// Bucket holding the mirrored identity and the pending booking prefill
	SessionBucket = "session"
	// Bucket holding session cookies, keyed by API host
	CookiesBucket = "cookies"

	identityKey = "identity"
	prefillKey  = "prefill"
)

// Store is the durable client state: the identity mirror, the booking prefill and the cookie jar.
type Store interface {
	LoadIdentity() ([]byte, error)
	SaveIdentity(data []byte) error
	ClearIdentity() error

	SavePrefill(data []byte) error
	LoadPrefill() ([]byte, error)
	TakePrefill() ([]byte, error)
	ClearPrefill() error

	LoadCookies(host string) ([]*http.Cookie, error)
	SaveCookies(host string, cookies []*http.Cookie) error

	GetCacheStatistics() (map[string]int, error)
	Close() error
}

// BoltStore implements Store on a local BoltDB file
type BoltStore struct {
	db *bbolt.DB
}

// NewBoltStore opens (or creates) the state file at dbPath
func NewBoltStore(dbPath string) (*BoltStore, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, fmt.Errorf("failed to create state directory %s: %w", dir, err)
	}

	db, err := bbolt.Open(dbPath, 0600, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to open BoltDB at %s: %w", dbPath, err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		for _, name := range []string{SessionBucket, CookiesBucket} {
			if _, err := tx.CreateBucketIfNotExists([]byte(name)); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create buckets: %w", err)
	}

	logger.Debug("BoltDB state store opened at: %s", dbPath)
	return &BoltStore{db: db}, nil
}

func (s *BoltStore) get(bucket, key string) ([]byte, error) {
	var out []byte
	err := s.db.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket([]byte(bucket))
		if b == nil {
			return nil
		}
		if v := b.Get([]byte(key)); v != nil {
			// bolt values are only valid inside the transaction
			out = append([]byte(nil), v...)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get %s/%s: %w", bucket, key, err)
	}
	return out, nil
}

func (s *BoltStore) put(bucket, key string, data []byte) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket([]byte(bucket))
		if b == nil {
			return fmt.Errorf("bucket %s does not exist", bucket)
		}
		return b.Put([]byte(key), data)
	})
}

func (s *BoltStore) delete(bucket, key string) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket([]byte(bucket))
		if b == nil {
			return nil
		}
		return b.Delete([]byte(key))
	})
}

func (s *BoltStore) LoadIdentity() ([]byte, error) {
	return s.get(SessionBucket, identityKey)
}

func (s *BoltStore) SaveIdentity(data []byte) error {
	return s.put(SessionBucket, identityKey, data)
}

func (s *BoltStore) ClearIdentity() error {
	return s.delete(SessionBucket, identityKey)
}

func (s *BoltStore) SavePrefill(data []byte) error {
	return s.put(SessionBucket, prefillKey, data)
}

func (s *BoltStore) LoadPrefill() ([]byte, error) {
	return s.get(SessionBucket, prefillKey)
}

// TakePrefill reads and deletes the prefill in a single transaction
func (s *BoltStore) TakePrefill() ([]byte, error) {
	var out []byte
	err := s.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket([]byte(SessionBucket))
		if b == nil {
			return nil
		}
		v := b.Get([]byte(prefillKey))
		if v == nil {
			return nil
		}
		out = append([]byte(nil), v...)
		return b.Delete([]byte(prefillKey))
	})
	if err != nil {
		return nil, fmt.Errorf("failed to take prefill: %w", err)
	}
	return out, nil
}

func (s *BoltStore) ClearPrefill() error {
	return s.delete(SessionBucket, prefillKey)
}

func (s *BoltStore) LoadCookies(host string) ([]*http.Cookie, error) {
	data, err := s.get(CookiesBucket, host)
	if err != nil || data == nil {
		return nil, err
	}
	return decodeCookies(data)
}

// SaveCookies replaces the stored cookies for host; an empty set removes the entry
func (s *BoltStore) SaveCookies(host string, cookies []*http.Cookie) error {
	if len(cookies) == 0 {
		return s.delete(CookiesBucket, host)
	}
	data, err := encodeCookies(cookies)
	if err != nil {
		return err
	}
	return s.put(CookiesBucket, host, data)
}

// Close closes the BoltDB database
func (s *BoltStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// GetCacheStatistics reports what the state file currently holds
func (s *BoltStore) GetCacheStatistics() (map[string]int, error) {
	stats := map[string]int{
		"identity":     0,
		"prefill":      0,
		"cookie_hosts": 0,
		"cookies":      0,
	}

	err := s.db.View(func(tx *bbolt.Tx) error {
		if b := tx.Bucket([]byte(SessionBucket)); b != nil {
			if b.Get([]byte(identityKey)) != nil {
				stats["identity"] = 1
			}
			if b.Get([]byte(prefillKey)) != nil {
				stats["prefill"] = 1
			}
		}
		b := tx.Bucket([]byte(CookiesBucket))
		if b == nil {
			return nil
		}
		return b.ForEach(func(k, v []byte) error {
			stats["cookie_hosts"]++
			cookies, err := decodeCookies(v)
			if err != nil {
				logger.Error("Failed to decode cookies for host %s: %v", string(k), err)
				return nil
			}
			stats["cookies"] += len(cookies)
			return nil
		})
	})

	return stats, err
}
