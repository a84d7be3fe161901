package cache

import (
	"encoding/json"
	"fmt"
	"time"

	"go.etcd.io/bbolt"
	"go.uber.org/zap"

	"github.com/alanbriolat/clipbot"
	"github.com/alanbriolat/clipbot/generic"
)

var Buckets = struct {
	Metadata []byte
	Entries  []byte
}{
	Metadata: []byte("__metadata__"),
	Entries:  []byte("entries"),
}

var MetadataKeys = struct {
	Version []byte
}{
	Version: []byte("version"),
}

const currentVersion = 1

// An Entry records where already-delivered media lives on the messaging platform, so it can be resent without
// resolving the URL again.
type Entry struct {
	Kind      clipbot.MediaKind `json:"kind"`
	Handles   []string          `json:"handles"`
	CreatedAt time.Time         `json:"created_at"`
}

func (e Entry) Age(now time.Time) time.Duration {
	return now.Sub(e.CreatedAt)
}

type Options struct {
	// Entries older than this are treated as absent and removed by PurgeExpired.
	TTL time.Duration
	// Clock override, time.Now if nil.
	Now func() time.Time
}

// Cache is a persistent fingerprint -> Entry map backed by a bbolt file.
type Cache struct {
	db  *bbolt.DB
	ttl time.Duration
	now func() time.Time
	log *zap.SugaredLogger
}

func Open(path string, opts Options) (_ *Cache, err error) {
	if opts.TTL <= 0 {
		return nil, fmt.Errorf("cache TTL must be positive, got %v", opts.TTL)
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	db, err := bbolt.Open(path, 0600, &bbolt.Options{Timeout: 5 * time.Second})
	if err != nil {
		return nil, err
	}
	defer func() {
		if err != nil {
			_ = db.Close()
		}
	}()
	err = db.Update(func(tx *bbolt.Tx) (err error) {
		// Ensure buckets exist
		var metadata *bbolt.Bucket
		if metadata, err = tx.CreateBucketIfNotExists(Buckets.Metadata); err != nil {
			return err
		}
		if _, err := tx.CreateBucketIfNotExists(Buckets.Entries); err != nil {
			return err
		}

		var version int
		if versionBytes := metadata.Get(MetadataKeys.Version); versionBytes == nil {
			version = 0
		} else if err = json.Unmarshal(versionBytes, &version); err != nil {
			return err
		}
		if version > currentVersion {
			return fmt.Errorf("cache file version %d is newer than supported version %d", version, currentVersion)
		}

		if versionBytes, err := json.Marshal(currentVersion); err != nil {
			return err
		} else if err = metadata.Put(MetadataKeys.Version, versionBytes); err != nil {
			return err
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &Cache{
		db:  db,
		ttl: opts.TTL,
		now: opts.Now,
		log: zap.S().Named("cache"),
	}, nil
}

func (c *Cache) Close() error {
	return c.db.Close()
}

func (c *Cache) TTL() time.Duration {
	return c.ttl
}

// Get looks up a fingerprint. Expired and unreadable entries are reported as absent.
func (c *Cache) Get(fingerprint string) generic.Option[Entry] {
	var entry Entry
	var found bool
	err := c.db.View(func(tx *bbolt.Tx) error {
		data := tx.Bucket(Buckets.Entries).Get([]byte(fingerprint))
		if data == nil {
			return nil
		}
		if err := json.Unmarshal(data, &entry); err != nil {
			return err
		}
		found = true
		return nil
	})
	if err != nil {
		c.log.Warnw("failed to read cache entry", "fingerprint", fingerprint, "error", err)
		return generic.None[Entry]()
	}
	if !found || c.expired(entry, c.now()) {
		return generic.None[Entry]()
	}
	return generic.Some(entry)
}

// Put inserts or replaces the entry for a fingerprint. A zero CreatedAt is set to the current time.
func (c *Cache) Put(fingerprint string, entry Entry) error {
	if len(entry.Handles) == 0 {
		return fmt.Errorf("cache entry for %s has no handles", fingerprint)
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = c.now()
	}
	data, err := json.Marshal(entry)
	if err != nil {
		return err
	}
	return c.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(Buckets.Entries).Put([]byte(fingerprint), data)
	})
}

// PurgeExpired deletes every entry whose age at now exceeds the TTL, returning how many were removed. Entries
// that can't be decoded are removed too.
func (c *Cache) PurgeExpired(now time.Time) (int, error) {
	removed := 0
	err := c.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(Buckets.Entries)
		var stale [][]byte
		err := bucket.ForEach(func(k, v []byte) error {
			var entry Entry
			if err := json.Unmarshal(v, &entry); err != nil || c.expired(entry, now) {
				// Keys are only valid for the life of the transaction, and deleting during ForEach is unsafe
				stale = append(stale, append([]byte(nil), k...))
			}
			return nil
		})
		if err != nil {
			return err
		}
		for _, k := range stale {
			if err := bucket.Delete(k); err != nil {
				return err
			}
		}
		removed = len(stale)
		return nil
	})
	if err != nil {
		return 0, err
	}
	c.log.Infow("purged expired entries", "removed", removed)
	return removed, nil
}

// Count returns the number of stored entries, including any not yet purged.
func (c *Cache) Count() (n int, err error) {
	err = c.db.View(func(tx *bbolt.Tx) error {
		n = tx.Bucket(Buckets.Entries).Stats().KeyN
		return nil
	})
	return n, err
}

func (c *Cache) expired(entry Entry, now time.Time) bool {
	return entry.Age(now) > c.ttl
}
