package cache

import (
	"time"

	badger "github.com/dgraph-io/badger"
)

// BadgerCache is a dgraph-io/badger directory-backed Cache.
type BadgerCache struct {
	cfg Configuration
	db  *badger.DB
}

// NewBadgerCache returns a BadgerCache for cfg. Connect opens the store.
func NewBadgerCache(cfg Configuration) *BadgerCache {
	return &BadgerCache{cfg: cfg}
}

func (c *BadgerCache) Configuration() Configuration { return c.cfg }

func (c *BadgerCache) Connect() error {
	opts := badger.DefaultOptions(c.cfg.Badger.Directory)
	db, err := badger.Open(opts)
	if err != nil {
		return err
	}
	c.db = db
	return nil
}

func (c *BadgerCache) Store(key string, data []byte, ttl time.Duration) error {
	return c.db.Update(func(txn *badger.Txn) error {
		e := badger.NewEntry([]byte(key), data)
		if ttl > 0 {
			e = e.WithTTL(ttl)
		}
		return txn.SetEntry(e)
	})
}

func (c *BadgerCache) Retrieve(key string, allowExpired bool) ([]byte, error) {
	var out []byte
	err := c.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(key))
		if err == badger.ErrKeyNotFound {
			return ErrKeyNotFound{Key: key}
		}
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			out = append([]byte(nil), val...)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (c *BadgerCache) Remove(key string) {
	c.db.Update(func(txn *badger.Txn) error {
		return txn.Delete([]byte(key))
	})
}

func (c *BadgerCache) Close() error {
	if c.db == nil {
		return nil
	}
	return c.db.Close()
}
