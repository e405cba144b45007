package store

import (
	"bytes"
	"encoding/binary"
	"encoding/gob"
	"fmt"
	"os"
	"path/filepath"

	"go.etcd.io/bbolt"
)

var (
	bucketMeta        = []byte("meta")
	bucketAccounts    = []byte("accounts")
	bucketStakes      = []byte("stakes")
	bucketReferrals   = []byte("referrals")
	bucketRewards     = []byte("rewards")
	bucketCheckpoints = []byte("checkpoints")

	keyMeta = []byte("meta")
)

// stateBuckets are rewritten on every Save.
var stateBuckets = [][]byte{bucketMeta, bucketAccounts, bucketStakes, bucketReferrals, bucketRewards}

var allBuckets = [][]byte{bucketMeta, bucketAccounts, bucketStakes, bucketReferrals, bucketRewards, bucketCheckpoints}

// BoltStore persists snapshots in a bbolt database. The current state is
// spread over one bucket per entity; checkpoints are whole gob snapshots.
type BoltStore struct {
	db *bbolt.DB
}

// Compile-time interface check.
var _ Store = (*BoltStore)(nil)

// OpenBoltStore opens or creates the bbolt database at dbPath.
// The parent directory is created if it does not exist.
func OpenBoltStore(dbPath string) (*BoltStore, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0700); err != nil {
		return nil, fmt.Errorf("store: create directory: %w", err)
	}
	db, err := bbolt.Open(dbPath, 0600, nil)
	if err != nil {
		return nil, fmt.Errorf("store: open bolt db: %w", err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		for _, name := range allBuckets {
			if _, err := tx.CreateBucketIfNotExists(name); err != nil {
				return fmt.Errorf("boltstore: create bucket %q: %w", name, err)
			}
		}
		return nil
	})
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("store: create buckets: %w", err)
	}

	return &BoltStore{db: db}, nil
}

// Close closes the underlying database.
func (s *BoltStore) Close() error { return s.db.Close() }

// stakeKey orders stakes by holder then round.
func stakeKey(st *Stake) []byte {
	k := make([]byte, len(st.Holder)+8)
	copy(k, st.Holder[:])
	binary.BigEndian.PutUint64(k[len(st.Holder):], st.Round)
	return k
}

func encodeGob(v interface{}) ([]byte, error) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func decodeGob(data []byte, v interface{}) error {
	return gob.NewDecoder(bytes.NewReader(data)).Decode(v)
}

func decodeSnapshot(data []byte) (*Snapshot, error) {
	var snap Snapshot
	if err := decodeGob(data, &snap); err != nil {
		return nil, fmt.Errorf("store: decode snapshot: %w", err)
	}
	return &snap, nil
}

func putGob(b *bbolt.Bucket, key []byte, v interface{}) error {
	data, err := encodeGob(v)
	if err != nil {
		return fmt.Errorf("encode: %w", err)
	}
	return b.Put(key, data)
}

// Save replaces the current state in a single transaction.
func (s *BoltStore) Save(snap *Snapshot) error {
	if snap == nil {
		return fmt.Errorf("%w: snapshot", ErrNilParam)
	}

	return s.db.Update(func(tx *bbolt.Tx) error {
		for _, name := range stateBuckets {
			if err := tx.DeleteBucket(name); err != nil {
				return fmt.Errorf("boltstore: clear bucket %q: %w", name, err)
			}
			if _, err := tx.CreateBucket(name); err != nil {
				return fmt.Errorf("boltstore: create bucket %q: %w", name, err)
			}
		}

		if err := putGob(tx.Bucket(bucketMeta), keyMeta, &snap.Meta); err != nil {
			return fmt.Errorf("boltstore: put meta: %w", err)
		}
		ab := tx.Bucket(bucketAccounts)
		for i := range snap.Accounts {
			a := &snap.Accounts[i]
			if err := putGob(ab, a.Address[:], a); err != nil {
				return fmt.Errorf("boltstore: put account: %w", err)
			}
		}
		sb := tx.Bucket(bucketStakes)
		for i := range snap.Stakes {
			st := &snap.Stakes[i]
			if err := putGob(sb, stakeKey(st), st); err != nil {
				return fmt.Errorf("boltstore: put stake: %w", err)
			}
		}
		rb := tx.Bucket(bucketReferrals)
		for _, r := range snap.Referrals {
			if err := rb.Put(r.Holder.Bytes(), r.Referrer.Bytes()); err != nil {
				return fmt.Errorf("boltstore: put referral: %w", err)
			}
		}
		wb := tx.Bucket(bucketRewards)
		for i := range snap.Rewards {
			r := &snap.Rewards[i]
			if err := putGob(wb, r.Holder[:], r); err != nil {
				return fmt.Errorf("boltstore: put reward: %w", err)
			}
		}
		return nil
	})
}

// Load reads the current state. Entities come back ordered by key.
func (s *BoltStore) Load() (*Snapshot, error) {
	var snap Snapshot
	err := s.db.View(func(tx *bbolt.Tx) error {
		data := tx.Bucket(bucketMeta).Get(keyMeta)
		if data == nil {
			return ErrSnapshotNotFound
		}
		if err := decodeGob(data, &snap.Meta); err != nil {
			return fmt.Errorf("boltstore: decode meta: %w", err)
		}

		err := tx.Bucket(bucketAccounts).ForEach(func(_, v []byte) error {
			var a Account
			if err := decodeGob(v, &a); err != nil {
				return fmt.Errorf("boltstore: decode account: %w", err)
			}
			snap.Accounts = append(snap.Accounts, a)
			return nil
		})
		if err != nil {
			return err
		}
		err = tx.Bucket(bucketStakes).ForEach(func(_, v []byte) error {
			var st Stake
			if err := decodeGob(v, &st); err != nil {
				return fmt.Errorf("boltstore: decode stake: %w", err)
			}
			snap.Stakes = append(snap.Stakes, st)
			return nil
		})
		if err != nil {
			return err
		}
		err = tx.Bucket(bucketReferrals).ForEach(func(k, v []byte) error {
			var r Referral
			copy(r.Holder[:], k)
			copy(r.Referrer[:], v)
			snap.Referrals = append(snap.Referrals, r)
			return nil
		})
		if err != nil {
			return err
		}
		return tx.Bucket(bucketRewards).ForEach(func(_, v []byte) error {
			var r Reward
			if err := decodeGob(v, &r); err != nil {
				return fmt.Errorf("boltstore: decode reward: %w", err)
			}
			snap.Rewards = append(snap.Rewards, r)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return &snap, nil
}

// PutCheckpoint stores snap under name.
func (s *BoltStore) PutCheckpoint(name string, snap *Snapshot) error {
	if name == "" {
		return ErrInvalidName
	}
	if snap == nil {
		return fmt.Errorf("%w: snapshot", ErrNilParam)
	}
	return s.db.Update(func(tx *bbolt.Tx) error {
		if err := putGob(tx.Bucket(bucketCheckpoints), []byte(name), snap); err != nil {
			return fmt.Errorf("boltstore: put checkpoint: %w", err)
		}
		return nil
	})
}

// GetCheckpoint returns the checkpoint stored under name.
func (s *BoltStore) GetCheckpoint(name string) (*Snapshot, error) {
	var snap *Snapshot
	err := s.db.View(func(tx *bbolt.Tx) error {
		data := tx.Bucket(bucketCheckpoints).Get([]byte(name))
		if data == nil {
			return fmt.Errorf("%w: %q", ErrSnapshotNotFound, name)
		}
		var err error
		snap, err = decodeSnapshot(data)
		return err
	})
	if err != nil {
		return nil, err
	}
	return snap, nil
}

// Checkpoints lists checkpoint names in key order.
func (s *BoltStore) Checkpoints() ([]string, error) {
	var names []string
	err := s.db.View(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketCheckpoints).ForEach(func(k, _ []byte) error {
			names = append(names, string(k))
			return nil
		})
	})
	if err != nil {
		return nil, fmt.Errorf("boltstore: list checkpoints: %w", err)
	}
	return names, nil
}

// DeleteCheckpoint removes a checkpoint.
func (s *BoltStore) DeleteCheckpoint(name string) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(bucketCheckpoints)
		if b.Get([]byte(name)) == nil {
			return fmt.Errorf("%w: %q", ErrSnapshotNotFound, name)
		}
		if err := b.Delete([]byte(name)); err != nil {
			return fmt.Errorf("boltstore: delete checkpoint: %w", err)
		}
		return nil
	})
}
