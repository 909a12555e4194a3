package pagestore

import (
	"encoding/binary"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	bolt "go.etcd.io/bbolt"
)

var walBucket = []byte("wal")

// WAL is a durability log for page-store mutations, backed by bbolt.
// Every alloc and install, and the old address each ReplacePage
// retires, is appended as one record after the in-memory table has been
// updated; addresses retired through Txn.Dealloc are not logged. A
// record holds the op, page id and
// address only, not the page bytes. The tree package never touches
// bbolt directly; the Store's transactions call WAL.Append.
type WAL struct {
	db      *bolt.DB
	session uuid.UUID
	seq     uint64
}

// OpType distinguishes the kinds of records a WAL can hold.
type OpType uint8

const (
	OpAlloc OpType = iota
	OpInstall
	OpDealloc
)

// Record is one logged mutation.
type Record struct {
	Op   OpType
	ID   PageId
	Addr PageAddr
}

// OpenWAL opens (creating if necessary) a bbolt file at path to back
// the write-ahead log for one Store session.
func OpenWAL(path string) (*WAL, error) {
	db, err := bolt.Open(path, 0600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, errors.Wrap(err, "pagestore: open wal")
	}
	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(walBucket)
		return err
	})
	if err != nil {
		db.Close()
		return nil, errors.Wrap(err, "pagestore: init wal bucket")
	}
	return &WAL{db: db, session: uuid.New()}, nil
}

// Append writes one record, keyed by the session id and a monotonic
// sequence number, so records of one session replay in append order.
func (w *WAL) Append(rec Record) error {
	seq := w.seq
	w.seq++

	key := make([]byte, 24)
	copy(key, w.session[:])
	binary.BigEndian.PutUint64(key[16:], seq)

	val := make([]byte, 17)
	val[0] = byte(rec.Op)
	binary.LittleEndian.PutUint64(val[1:9], uint64(rec.ID))
	binary.LittleEndian.PutUint64(val[9:17], uint64(rec.Addr))

	return w.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(walBucket).Put(key, val)
	})
}

// Replay calls fn for every record the WAL file holds, in key order:
// grouped by session, in append order within a session. Sessions are
// ordered by their random session id, not by when they were opened.
func (w *WAL) Replay(fn func(Record) error) error {
	return w.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(walBucket).ForEach(func(k, v []byte) error {
			if len(v) != 17 {
				return errors.New("pagestore: truncated wal record")
			}
			rec := Record{
				Op:   OpType(v[0]),
				ID:   PageId(binary.LittleEndian.Uint64(v[1:9])),
				Addr: PageAddr(binary.LittleEndian.Uint64(v[9:17])),
			}
			return fn(rec)
		})
	})
}

// Close flushes and closes the underlying bbolt file.
func (w *WAL) Close() error { return w.db.Close() }
