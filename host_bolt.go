package timelimit

import (
	"encoding/binary"
	"fmt"
	"time"

	bolt "go.etcd.io/bbolt"
)

// Compile-time proof that BoltHost satisfies the Host interface.
var _ Host = (*BoltHost)(nil)

var (
	bucketSessions = []byte("sessions")
	keyExpiresAt   = []byte("__expires_at")
)

// BoltHost is a bbolt-backed Host for stacks that invoke each lifecycle
// phase in a separate process: values published at admission time survive
// until the close phase re-opens the registry under the same session ID.
// Entries expire after the configured TTL so abandoned sessions cannot grow
// the registry without bound; call Prune to collect them.
type BoltHost struct {
	db      *bolt.DB
	session string
	ttl     time.Duration
}

// OpenBoltHost opens (or creates) the session registry at path and binds it
// to sessionID, an opaque identifier the host stack keeps stable across the
// session's lifecycle phases.
func OpenBoltHost(path, sessionID string, ttl time.Duration) (*BoltHost, error) {
	if sessionID == "" {
		return nil, fmt.Errorf("registry: empty session id")
	}
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: 2 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("registry: open %s: %w", path, err)
	}

	if err := db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketSessions)
		return err
	}); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("registry: init bucket: %w", err)
	}

	return &BoltHost{db: db, session: sessionID, ttl: ttl}, nil
}

// SetData publishes value under key and refreshes the session's expiry.
func (h *BoltHost) SetData(key, value string) error {
	expiry := time.Now().Add(h.ttl).Unix()
	return h.db.Update(func(tx *bolt.Tx) error {
		b, err := tx.Bucket(bucketSessions).CreateBucketIfNotExists([]byte(h.session))
		if err != nil {
			return fmt.Errorf("registry: session %s: %w", h.session, err)
		}
		var buf [8]byte
		binary.BigEndian.PutUint64(buf[:], uint64(expiry))
		if err := b.Put(keyExpiresAt, buf[:]); err != nil {
			return err
		}
		return b.Put([]byte(key), []byte(value))
	})
}

// GetData returns the value published under key. An expired session reads
// as empty even before Prune has collected it.
func (h *BoltHost) GetData(key string) (string, bool, error) {
	var val string
	var ok bool
	err := h.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketSessions).Bucket([]byte(h.session))
		if b == nil || expired(b, time.Now()) {
			return nil
		}
		if data := b.Get([]byte(key)); data != nil {
			val, ok = string(data), true
		}
		return nil
	})
	if err != nil {
		return "", false, fmt.Errorf("registry: read session %s: %w", h.session, err)
	}
	return val, ok, nil
}

// End discards every value published for this session. Host stacks call it
// once the close phase has run.
func (h *BoltHost) End() error {
	return h.db.Update(func(tx *bolt.Tx) error {
		root := tx.Bucket(bucketSessions)
		if root.Bucket([]byte(h.session)) == nil {
			return nil
		}
		return root.DeleteBucket([]byte(h.session))
	})
}

// Prune removes sessions whose TTL has elapsed.
func (h *BoltHost) Prune() error {
	now := time.Now()
	return h.db.Update(func(tx *bolt.Tx) error {
		root := tx.Bucket(bucketSessions)
		c := root.Cursor()
		var toDelete [][]byte
		for k, v := c.First(); k != nil; k, v = c.Next() {
			if v != nil {
				continue // not a sub-bucket
			}
			b := root.Bucket(k)
			if b == nil || expired(b, now) {
				toDelete = append(toDelete, append([]byte{}, k...))
			}
		}
		for _, k := range toDelete {
			if err := root.DeleteBucket(k); err != nil {
				return err
			}
		}
		return nil
	})
}

// Close cleanly closes the underlying bbolt database.
func (h *BoltHost) Close() error { return h.db.Close() }

// expired reports whether a session bucket's expiry stamp has passed. A
// bucket without a stamp is treated as expired.
func expired(b *bolt.Bucket, now time.Time) bool {
	data := b.Get(keyExpiresAt)
	if len(data) < 8 {
		return true
	}
	return now.Unix() >= int64(binary.BigEndian.Uint64(data))
}
