package store

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/ethereum/go-ethereum/common"
	bolt "go.etcd.io/bbolt"
)

// Bucket names.
var (
	// bucketCode stores deployed code keyed by address.
	bucketCode = []byte("code")

	// bucketNonces stores the next nonce of each deployer, keyed by address.
	bucketNonces = []byte("nonces")
)

// BoltConfig configures a Bolt store.
type BoltConfig struct {
	// Path of the database file; its directory is created if necessary.
	Path string

	// NoSync disables fsync after each write (faster but less durable).
	NoSync bool

	// Timeout for acquiring the file lock; zero waits indefinitely.
	Timeout time.Duration
}

// DefaultBoltConfig returns the default configuration for a database at path.
func DefaultBoltConfig(path string) BoltConfig {
	return BoltConfig{
		Path:    path,
		Timeout: 5 * time.Second,
	}
}

// Bolt is a Store backed by a bbolt database, allowing deployments to persist
// across processes.
type Bolt struct {
	db *bolt.DB
}

var _ Store = (*Bolt)(nil)

// OpenBolt creates or opens the database described by cfg.
func OpenBolt(cfg BoltConfig) (*Bolt, error) {
	if err := os.MkdirAll(filepath.Dir(cfg.Path), 0755); err != nil {
		return nil, fmt.Errorf("create directory: %w", err)
	}

	db, err := bolt.Open(cfg.Path, 0600, &bolt.Options{
		Timeout: cfg.Timeout,
		NoSync:  cfg.NoSync,
	})
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		for _, name := range [][]byte{bucketCode, bucketNonces} {
			if _, err := tx.CreateBucketIfNotExists(name); err != nil {
				return fmt.Errorf("create bucket %s: %w", name, err)
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("init buckets: %w", err)
	}

	return &Bolt{db: db}, nil
}

// NextNonce implements Store.
func (b *Bolt) NextNonce(deployer common.Address) (uint64, error) {
	var n uint64
	err := b.update(func(tx *bolt.Tx) error {
		bkt := tx.Bucket(bucketNonces)
		if v := bkt.Get(deployer[:]); v != nil {
			if len(v) != 8 {
				return fmt.Errorf("corrupt nonce for %v: %d bytes", deployer, len(v))
			}
			n = binary.BigEndian.Uint64(v)
		}
		return bkt.Put(deployer[:], binary.BigEndian.AppendUint64(nil, n+1))
	})
	return n, err
}

// PutCode implements Store.
func (b *Bolt) PutCode(addr common.Address, code []byte) error {
	return b.update(func(tx *bolt.Tx) error {
		bkt := tx.Bucket(bucketCode)
		if bkt.Get(addr[:]) != nil {
			return ErrExists
		}
		return bkt.Put(addr[:], code)
	})
}

// Code implements Store.
func (b *Bolt) Code(addr common.Address) ([]byte, error) {
	var code []byte
	err := b.view(func(tx *bolt.Tx) error {
		v := tx.Bucket(bucketCode).Get(addr[:])
		if v == nil {
			return ErrNotFound
		}
		// Values are only valid for the life of the transaction.
		code = bytes.Clone(v)
		return nil
	})
	return code, err
}

// Close implements Store.
func (b *Bolt) Close() error {
	return b.db.Close()
}

func (b *Bolt) update(fn func(*bolt.Tx) error) error {
	if err := b.db.Update(fn); err != nil {
		return boltErr(err)
	}
	return nil
}

func (b *Bolt) view(fn func(*bolt.Tx) error) error {
	if err := b.db.View(fn); err != nil {
		return boltErr(err)
	}
	return nil
}

func boltErr(err error) error {
	if errors.Is(err, bolt.ErrDatabaseNotOpen) {
		return ErrClosed
	}
	return err
}
