// Package store implements a bbolt-backed durability store for
// TRANSIENT_LOCAL and TRANSIENT durability (§6 SUPPLEMENTED FEATURES):
// changes persist across a writer restart, generalizing the statefile
// worker's pattern (one background goroutine owning the Persist writes)
// from a single encrypted blob to a real embedded key/value store with
// a bucket per writer GUID.
package store

import (
	"encoding/binary"
	"fmt"

	"github.com/fxamacker/cbor/v2"
	"go.etcd.io/bbolt"

	"github.com/charmbracelet/log"

	"github.com/opendds-go/rtps/internal/worker"
	"github.com/opendds-go/rtps/rtps/history"
	"github.com/opendds-go/rtps/rtps/types"
)

// record is the CBOR-encoded form of a CacheChange persisted to disk.
type record struct {
	Kind           int
	InstanceHandle [16]byte
	Payload        []byte
}

// Store owns the bbolt database and a worker goroutine that serializes
// every Persist write against it (Purge bypasses it), mirroring the teacher's single-writer
// statefile discipline without holding a lock across app-facing calls.
type Store struct {
	worker.Worker
	db     *bbolt.DB
	log    *log.Logger
	writes chan writeRequest
}

type writeRequest struct {
	bucket []byte
	key    []byte
	value  []byte
	result chan error
}

// Open creates or opens the bbolt database at path and starts the
// writer goroutine.
func Open(path string, logger *log.Logger) (*Store, error) {
	db, err := bbolt.Open(path, 0600, nil)
	if err != nil {
		return nil, fmt.Errorf("store: open %s: %w", path, err)
	}
	s := &Store{db: db, log: logger, writes: make(chan writeRequest)}
	s.Go(s.run)
	return s, nil
}

func (s *Store) run() {
	for {
		select {
		case <-s.HaltCh():
			return
		case req := <-s.writes:
			err := s.db.Update(func(tx *bbolt.Tx) error {
				b, err := tx.CreateBucketIfNotExists(req.bucket)
				if err != nil {
					return err
				}
				return b.Put(req.key, req.value)
			})
			req.result <- err
		}
	}
}

func bucketName(writer types.GUID) []byte {
	return []byte(writer.String())
}

func seqKey(sn types.SequenceNumber) []byte {
	buf := make([]byte, 8)
	binary.BigEndian.PutUint64(buf, uint64(sn))
	return buf
}

// Persist writes one CacheChange into the bucket for its writer GUID,
// keyed by big-endian sequence number so a bucket scan yields changes in
// order (§6: TRANSIENT_LOCAL/TRANSIENT durability).
func (s *Store) Persist(c *history.CacheChange) error {
	rec := record{Kind: int(c.Kind), InstanceHandle: c.InstanceHandle, Payload: c.Payload}
	buf, err := cbor.Marshal(rec)
	if err != nil {
		return fmt.Errorf("store: marshal change: %w", err)
	}
	result := make(chan error, 1)
	s.writes <- writeRequest{bucket: bucketName(c.WriterGuid), key: seqKey(c.SequenceNumber), value: buf, result: result}
	return <-result
}

// Load returns every persisted change for writer, in ascending sequence
// number order, for replay into a freshly (re)started writer's
// HistoryCache.
func (s *Store) Load(writer types.GUID) ([]*history.CacheChange, error) {
	var out []*history.CacheChange
	err := s.db.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket(bucketName(writer))
		if b == nil {
			return nil
		}
		return b.ForEach(func(k, v []byte) error {
			var rec record
			if err := cbor.Unmarshal(v, &rec); err != nil {
				return fmt.Errorf("store: unmarshal change: %w", err)
			}
			out = append(out, &history.CacheChange{
				Kind:           history.ChangeKind(rec.Kind),
				WriterGuid:     writer,
				SequenceNumber: types.SequenceNumber(binary.BigEndian.Uint64(k)),
				InstanceHandle: rec.InstanceHandle,
				Payload:        rec.Payload,
			})
			return nil
		})
	})
	return out, err
}

// Purge deletes every persisted change for writer (e.g. on
// DataWriter.dispose_all_instances or endpoint deletion). bbolt
// serializes all Update calls on its own, so this bypasses the writer
// goroutine rather than overload it with a delete-shaped Put.
func (s *Store) Purge(writer types.GUID) error {
	bucket := bucketName(writer)
	return s.db.Update(func(tx *bbolt.Tx) error {
		err := tx.DeleteBucket(bucket)
		if err != nil && err != bbolt.ErrBucketNotFound {
			return err
		}
		return nil
	})
}

// Close stops the writer goroutine and closes the database.
func (s *Store) Close() error {
	s.Halt()
	return s.db.Close()
}
