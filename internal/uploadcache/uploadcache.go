// Package uploadcache remembers which content hashes were already uploaded
// so repeat uploads of identical bytes can be skipped.
package uploadcache

import (
	"encoding/binary"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	bolt "go.etcd.io/bbolt"
)

const (
	uploadBucket = "uploads"
	expiryBytes  = 8
)

// Defaults for entry lifetime and sweep cadence.
const (
	DefaultTTL           = 7 * 24 * time.Hour
	DefaultSweepInterval = time.Hour
)

// Cache is a bbolt-backed map from SHA-256 content hash to platform file ID.
// Entries expire after a TTL; stale entries are swept on a fixed cadence so
// the file never grows unbounded.
type Cache struct {
	db            *bolt.DB
	sweepMu       sync.Mutex
	lastSweep     atomic.Int64
	ttl           time.Duration
	sweepInterval time.Duration
}

// Open initializes the cache at path, creating parent directories as needed.
// A ttl of zero means DefaultTTL.
func Open(path string, ttl time.Duration) (*Cache, error) {
	if ttl <= 0 {
		ttl = DefaultTTL
	}

	dir := filepath.Dir(path)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create cache directory: %w", err)
		}
	}

	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("open upload cache: %w", err)
	}

	if err := db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(uploadBucket))

		return err
	}); err != nil {
		db.Close()

		return nil, fmt.Errorf("init upload cache bucket: %w", err)
	}

	c := &Cache{
		db:            db,
		ttl:           ttl,
		sweepInterval: DefaultSweepInterval,
	}
	c.lastSweep.Store(time.Now().Unix())

	return c, nil
}

// Close closes the underlying database. Safe on a nil cache.
func (c *Cache) Close() error {
	if c == nil || c.db == nil {
		return nil
	}

	return c.db.Close()
}

// Lookup returns the file ID stored for hash, if the entry exists and has
// not expired. Expired entries are deleted on the way out.
func (c *Cache) Lookup(hash string) (string, bool, error) {
	if c == nil || c.db == nil {
		return "", false, nil
	}

	if err := c.maybeSweep(time.Now()); err != nil {
		return "", false, err
	}

	var (
		fileID string
		ok     bool
	)

	err := c.db.Update(func(tx *bolt.Tx) error {
		bucket := tx.Bucket([]byte(uploadBucket))
		if bucket == nil {
			return fmt.Errorf("upload bucket missing")
		}

		key := []byte(hash)
		value := bucket.Get(key)
		if value == nil {
			return nil
		}

		expiry, id, valid := decodeEntry(value)
		if !valid || !expiry.After(time.Now()) {
			return bucket.Delete(key)
		}

		fileID = id
		ok = true

		return nil
	})

	return fileID, ok, err
}

// Store records that hash was uploaded as fileID.
func (c *Cache) Store(hash, fileID string) error {
	if c == nil || c.db == nil {
		return nil
	}

	now := time.Now()
	if err := c.maybeSweep(now); err != nil {
		return err
	}

	return c.db.Update(func(tx *bolt.Tx) error {
		bucket := tx.Bucket([]byte(uploadBucket))
		if bucket == nil {
			return fmt.Errorf("upload bucket missing")
		}

		return bucket.Put([]byte(hash), encodeEntry(now.Add(c.ttl), fileID))
	})
}

// maybeSweep removes expired entries, at most once per sweep interval.
func (c *Cache) maybeSweep(now time.Time) error {
	last := time.Unix(c.lastSweep.Load(), 0)
	if now.Sub(last) < c.sweepInterval {
		return nil
	}

	c.sweepMu.Lock()
	defer c.sweepMu.Unlock()

	last = time.Unix(c.lastSweep.Load(), 0)
	if now.Sub(last) < c.sweepInterval {
		return nil
	}

	err := c.db.Update(func(tx *bolt.Tx) error {
		bucket := tx.Bucket([]byte(uploadBucket))
		if bucket == nil {
			return fmt.Errorf("upload bucket missing")
		}

		cursor := bucket.Cursor()
		for k, v := cursor.First(); k != nil; k, v = cursor.Next() {
			expiry, _, valid := decodeEntry(v)
			if !valid || !expiry.After(now) {
				if err := cursor.Delete(); err != nil {
					return err
				}
			}
		}

		return nil
	})
	if err == nil {
		c.lastSweep.Store(now.Unix())
	}

	return err
}

// encodeEntry packs an expiry timestamp and file ID into one value:
// 8 bytes of big-endian unix seconds followed by the file ID bytes.
func encodeEntry(expiry time.Time, fileID string) []byte {
	buf := make([]byte, expiryBytes+len(fileID))
	binary.BigEndian.PutUint64(buf, uint64(expiry.Unix()))
	copy(buf[expiryBytes:], fileID)

	return buf
}

// decodeEntry unpacks a stored value. valid is false for malformed values.
func decodeEntry(value []byte) (time.Time, string, bool) {
	if len(value) < expiryBytes {
		return time.Time{}, "", false
	}

	unix := int64(binary.BigEndian.Uint64(value[:expiryBytes]))
	if unix <= 0 {
		return time.Time{}, "", false
	}

	return time.Unix(unix, 0), string(value[expiryBytes:]), true
}
