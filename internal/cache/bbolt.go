package cache

import (
	"time"

	bolt "github.com/coreos/bbolt"
)

// BBoltCache is a coreos/bbolt file-backed Cache. Values are stored with
// an 8-byte big-endian expiry prefix so Retrieve can honor allowExpired
// without a second index.
type BBoltCache struct {
	cfg Configuration
	db  *bolt.DB
}

// NewBBoltCache returns a BBoltCache for cfg. Connect opens the file.
func NewBBoltCache(cfg Configuration) *BBoltCache {
	return &BBoltCache{cfg: cfg}
}

func (c *BBoltCache) Configuration() Configuration { return c.cfg }

func (c *BBoltCache) Connect() error {
	db, err := bolt.Open(c.cfg.BBolt.Filename, 0600, nil)
	if err != nil {
		return err
	}
	c.db = db
	return db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(c.cfg.BBolt.Bucket))
		return err
	})
}

func (c *BBoltCache) Store(key string, data []byte, ttl time.Duration) error {
	return c.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(c.cfg.BBolt.Bucket))
		return b.Put([]byte(key), encodeExpiry(time.Now().Add(ttl), data))
	})
}

func (c *BBoltCache) Retrieve(key string, allowExpired bool) ([]byte, error) {
	var out []byte
	err := c.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(c.cfg.BBolt.Bucket))
		v := b.Get([]byte(key))
		if v == nil {
			return ErrKeyNotFound{Key: key}
		}
		expires, data := decodeExpiry(v)
		if !allowExpired && time.Now().After(expires) {
			return ErrKeyNotFound{Key: key}
		}
		out = append([]byte(nil), data...)
		return nil
	})
	return out, err
}

func (c *BBoltCache) Remove(key string) {
	c.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket([]byte(c.cfg.BBolt.Bucket)).Delete([]byte(key))
	})
}

func (c *BBoltCache) Close() error {
	if c.db == nil {
		return nil
	}
	return c.db.Close()
}

func encodeExpiry(expires time.Time, data []byte) []byte {
	ts := expires.UnixNano()
	out := make([]byte, 8+len(data))
	for i := 0; i < 8; i++ {
		out[i] = byte(ts >> (56 - 8*i))
	}
	copy(out[8:], data)
	return out
}

func decodeExpiry(v []byte) (time.Time, []byte) {
	if len(v) < 8 {
		return time.Time{}, v
	}
	var ts int64
	for i := 0; i < 8; i++ {
		ts = ts<<8 | int64(v[i])
	}
	return time.Unix(0, ts), v[8:]
}
