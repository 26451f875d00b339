// Package bolt implements the chain store on an embedded bbolt database,
// for single-node deployments that do not want to run Postgres.
package bolt

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"time"

	bbolt "go.etcd.io/bbolt"

	"github.com/Cleancoindev2/ptokens-core/internal/domain/model"
	"github.com/Cleancoindev2/ptokens-core/internal/metrics"
	"github.com/Cleancoindev2/ptokens-core/internal/store"
)

// Per-chain bucket names. Each chain gets its own trio so state never
// crosses chains.
const (
	bucketBlocks   = "blocks"
	bucketPointers = "pointers"
	bucketConfig   = "config"
)

type Store struct {
	db *bbolt.DB
}

var _ store.ChainStore = (*Store)(nil)

// Open opens (creating if needed) the database file at path.
func Open(path string) (*Store, error) {
	db, err := bbolt.Open(path, 0o600, &bbolt.Options{Timeout: 5 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("open bolt db %s: %w", path, err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func bucketName(kind string, chain model.Chain) []byte {
	return []byte(kind + ":" + chain.String())
}

func (s *Store) GetBlock(_ context.Context, chain model.Chain, hash string) (*model.BlockRecord, error) {
	var block *model.BlockRecord
	err := s.db.View(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(bucketName(bucketBlocks, chain))
		if bucket == nil {
			return fmt.Errorf("block %s: %w", hash, store.ErrNotFound)
		}
		raw := bucket.Get([]byte(hash))
		if raw == nil {
			return fmt.Errorf("block %s: %w", hash, store.ErrNotFound)
		}
		block = &model.BlockRecord{}
		if err := json.Unmarshal(raw, block); err != nil {
			metrics.StoreErrorsTotal.WithLabelValues("bolt", "get_block").Inc()
			return fmt.Errorf("decode block %s: %w", hash, err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return block, nil
}

func (s *Store) PutBlock(_ context.Context, chain model.Chain, block *model.BlockRecord) error {
	raw, err := json.Marshal(block)
	if err != nil {
		return fmt.Errorf("encode block %s: %w", block.Hash, err)
	}
	err = s.db.Update(func(tx *bbolt.Tx) error {
		bucket, err := tx.CreateBucketIfNotExists(bucketName(bucketBlocks, chain))
		if err != nil {
			return err
		}
		return bucket.Put([]byte(block.Hash), raw)
	})
	if err != nil {
		metrics.StoreErrorsTotal.WithLabelValues("bolt", "put_block").Inc()
		return fmt.Errorf("put block %s: %w", block.Hash, err)
	}
	return nil
}

func (s *Store) GetPointer(_ context.Context, chain model.Chain, name string) (string, error) {
	var hash string
	err := s.db.View(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(bucketName(bucketPointers, chain))
		if bucket == nil {
			return fmt.Errorf("pointer %s: %w", name, store.ErrNotFound)
		}
		raw := bucket.Get([]byte(name))
		if raw == nil {
			return fmt.Errorf("pointer %s: %w", name, store.ErrNotFound)
		}
		hash = string(raw)
		return nil
	})
	if err != nil {
		return "", err
	}
	return hash, nil
}

func (s *Store) SetPointer(_ context.Context, chain model.Chain, name, hash string) error {
	err := s.db.Update(func(tx *bbolt.Tx) error {
		bucket, err := tx.CreateBucketIfNotExists(bucketName(bucketPointers, chain))
		if err != nil {
			return err
		}
		return bucket.Put([]byte(name), []byte(hash))
	})
	if err != nil {
		metrics.StoreErrorsTotal.WithLabelValues("bolt", "set_pointer").Inc()
		return fmt.Errorf("set pointer %s: %w", name, err)
	}
	return nil
}

func (s *Store) GetConfig(_ context.Context, chain model.Chain, name string) (uint64, error) {
	var value uint64
	err := s.db.View(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(bucketName(bucketConfig, chain))
		if bucket == nil {
			return fmt.Errorf("config %s: %w", name, store.ErrNotFound)
		}
		raw := bucket.Get([]byte(name))
		if raw == nil {
			return fmt.Errorf("config %s: %w", name, store.ErrNotFound)
		}
		if len(raw) != 8 {
			return fmt.Errorf("config %s: malformed value of %d bytes", name, len(raw))
		}
		value = binary.BigEndian.Uint64(raw)
		return nil
	})
	if err != nil {
		return 0, err
	}
	return value, nil
}

func (s *Store) SetConfig(_ context.Context, chain model.Chain, name string, value uint64) error {
	raw := make([]byte, 8)
	binary.BigEndian.PutUint64(raw, value)
	err := s.db.Update(func(tx *bbolt.Tx) error {
		bucket, err := tx.CreateBucketIfNotExists(bucketName(bucketConfig, chain))
		if err != nil {
			return err
		}
		return bucket.Put([]byte(name), raw)
	})
	if err != nil {
		metrics.StoreErrorsTotal.WithLabelValues("bolt", "set_config").Inc()
		return fmt.Errorf("set config %s: %w", name, err)
	}
	return nil
}
