// Package bboltdb implements the key-value database layer based on bbolt.
package bboltdb

import (
	"bytes"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/rezbera/revm/ethdb"
	"github.com/rezbera/revm/log"
	"go.etcd.io/bbolt"
)

var bucketName = []byte("ethdb")

// Database is a persistent key-value store based on the bbolt storage engine.
// Apart from basic data storage functionality it also supports batch writes and
// iterating over the keyspace in binary-alphabetical order.
type Database struct {
	fn string    // Filename for reporting
	db *bbolt.DB // Underlying bbolt storage engine

	quitLock sync.Mutex
	closed   bool

	log log.Logger // Contextual logger tracking the database path
}

// New opens the bbolt file inside the directory dir, creating both if needed.
func New(dir string, readonly bool, ephemeral bool) (*Database, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, errors.Wrapf(err, "create directory %s", dir)
	}
	fullpath := filepath.Join(dir, "bbolt.db")
	innerDB, err := bbolt.Open(fullpath, 0600, &bbolt.Options{
		Timeout:  time.Second,
		ReadOnly: readonly,
		NoSync:   ephemeral,
	})
	if err != nil {
		return nil, errors.Wrapf(err, "open bbolt database %s", fullpath)
	}
	if !readonly {
		// Create the default bucket if it does not exist
		err = innerDB.Update(func(tx *bbolt.Tx) error {
			_, err := tx.CreateBucketIfNotExists(bucketName)
			return err
		})
		if err != nil {
			innerDB.Close()
			return nil, errors.Wrap(err, "create default bucket")
		}
	}
	return &Database{
		fn:  dir,
		db:  innerDB,
		log: log.New("database", fullpath),
	}, nil
}

// Put adds the given value under the specified key to the database.
func (d *Database) Put(key []byte, value []byte) error {
	defer ethdb.EthdbPutTimer.UpdateSince(time.Now())
	return d.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketName).Put(key, value)
	})
}

// Get retrieves the value corresponding to the specified key from the database.
func (d *Database) Get(key []byte) ([]byte, error) {
	defer ethdb.EthdbGetTimer.UpdateSince(time.Now())

	var result []byte
	err := d.db.View(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(bucketName)
		if bucket == nil {
			return nil
		}
		// Values are only valid for the life of the transaction.
		if v := bucket.Get(key); v != nil {
			result = append([]byte{}, v...)
		}
		return nil
	})
	if err != nil {
		return nil, errors.Wrapf(err, "bbolt get %x", key)
	}
	if result == nil {
		return nil, ethdb.ErrNotFound
	}
	return result, nil
}

// Delete removes the specified key from the database.
func (d *Database) Delete(key []byte) error {
	defer ethdb.EthdbDeleteTimer.UpdateSince(time.Now())
	return d.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketName).Delete(key)
	})
}

// Has checks if the given key exists in the database.
func (d *Database) Has(key []byte) (bool, error) {
	var exists bool
	err := d.db.View(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(bucketName)
		if bucket == nil {
			return nil
		}
		k, _ := bucket.Cursor().Seek(key)
		exists = k != nil && bytes.Equal(k, key)
		return nil
	})
	return exists, err
}

// Close closes the database file.
func (d *Database) Close() error {
	d.quitLock.Lock()
	defer d.quitLock.Unlock()

	if d.closed {
		return nil
	}
	d.closed = true
	if err := d.db.Close(); err != nil {
		d.log.Error("Failed to close database", "err", err)
		return err
	}
	return nil
}

// Path returns the directory holding the database file.
func (d *Database) Path() string {
	return d.fn
}

// NewBatch creates a write-only key-value store that buffers changes to its host
// database until a final write is called.
func (d *Database) NewBatch() ethdb.Batch {
	return &batch{db: d.db}
}

// NewIterator returns an iterator over the keys with the given prefix, starting
// at prefix+start. The entries are copied out of a read transaction so the
// iterator holds no lock on the file.
func (d *Database) NewIterator(prefix []byte, start []byte) ethdb.Iterator {
	it := &iterator{index: -1}
	it.err = d.db.View(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(bucketName)
		if bucket == nil {
			return nil
		}
		cursor := bucket.Cursor()
		seek := append(append([]byte{}, prefix...), start...)
		for k, v := cursor.Seek(seek); k != nil && bytes.HasPrefix(k, prefix); k, v = cursor.Next() {
			it.keys = append(it.keys, append([]byte{}, k...))
			it.values = append(it.values, append([]byte{}, v...))
		}
		return nil
	})
	return it
}

type iterator struct {
	index  int
	keys   [][]byte
	values [][]byte
	err    error
}

func (it *iterator) Next() bool {
	if it.err != nil || it.index >= len(it.keys) {
		return false
	}
	it.index++
	return it.index < len(it.keys)
}

func (it *iterator) Error() error { return it.err }

func (it *iterator) Key() []byte {
	if it.index < 0 || it.index >= len(it.keys) {
		return nil
	}
	return it.keys[it.index]
}

func (it *iterator) Value() []byte {
	if it.index < 0 || it.index >= len(it.values) {
		return nil
	}
	return it.values[it.index]
}

func (it *iterator) Release() {
	it.index, it.keys, it.values = -1, nil, nil
}

type keyvalue struct {
	key    []byte
	value  []byte
	delete bool
}

// batch buffers writes and applies them in a single bbolt transaction.
type batch struct {
	db     *bbolt.DB
	writes []keyvalue
	size   int
}

func (b *batch) Put(key, value []byte) error {
	b.writes = append(b.writes, keyvalue{append([]byte{}, key...), append([]byte{}, value...), false})
	b.size += len(key) + len(value)
	return nil
}

func (b *batch) Delete(key []byte) error {
	b.writes = append(b.writes, keyvalue{append([]byte{}, key...), nil, true})
	b.size += len(key)
	return nil
}

func (b *batch) ValueSize() int {
	return b.size
}

func (b *batch) Write() error {
	defer ethdb.EthdbBatchWriteTimer.UpdateSince(time.Now())
	return b.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(bucketName)
		for _, kv := range b.writes {
			var err error
			if kv.delete {
				err = bucket.Delete(kv.key)
			} else {
				err = bucket.Put(kv.key, kv.value)
			}
			if err != nil {
				return err
			}
		}
		return nil
	})
}

func (b *batch) Reset() {
	b.writes = b.writes[:0]
	b.size = 0
}

func (b *batch) Replay(w ethdb.KeyValueWriter) error {
	for _, kv := range b.writes {
		if kv.delete {
			if err := w.Delete(kv.key); err != nil {
				return err
			}
			continue
		}
		if err := w.Put(kv.key, kv.value); err != nil {
			return err
		}
	}
	return nil
}
