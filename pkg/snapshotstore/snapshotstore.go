package snapshotstore

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	badger "github.com/dgraph-io/badger/v4"
)

// Store is a small on-disk KV (Badger) holding JSON documents.
type Store struct {
	db *badger.DB
}

type OpenOptions struct {
	Path     string
	ReadOnly bool
	// InMemory ignores Path and keeps everything in RAM (tests).
	InMemory bool
}

func Open(opts OpenOptions) (*Store, error) {
	path := strings.TrimSpace(opts.Path)
	if path == "" && !opts.InMemory {
		return nil, errors.New("snapshotstore: path is required")
	}
	bopts := badger.DefaultOptions(path).
		WithLogger(nil).
		WithReadOnly(opts.ReadOnly)
	if opts.InMemory {
		bopts = badger.DefaultOptions("").WithInMemory(true).WithLogger(nil)
	}
	db, err := badger.Open(bopts)
	if err != nil {
		return nil, fmt.Errorf("snapshotstore: open %s: %w", path, err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func normKey(key string) ([]byte, error) {
	k := []byte(strings.TrimSpace(key))
	if len(k) == 0 {
		return nil, errors.New("snapshotstore: key is empty")
	}
	return k, nil
}

// Get returns the raw value. found is false when the key does not exist.
func (s *Store) Get(key string) (val []byte, found bool, err error) {
	if s == nil || s.db == nil {
		return nil, false, errors.New("snapshotstore: not opened")
	}
	k, err := normKey(key)
	if err != nil {
		return nil, false, err
	}
	err = s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(k)
		if err != nil {
			if errors.Is(err, badger.ErrKeyNotFound) {
				return nil
			}
			return err
		}
		found = true
		val, err = item.ValueCopy(nil)
		return err
	})
	if err != nil {
		return nil, false, err
	}
	return val, found, nil
}

func (s *Store) Set(key string, val []byte) error {
	if s == nil || s.db == nil {
		return errors.New("snapshotstore: not opened")
	}
	k, err := normKey(key)
	if err != nil {
		return err
	}
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(k, val)
	})
}

// PutJSON stores v encoded as JSON.
func (s *Store) PutJSON(key string, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("snapshotstore: encode %s: %w", key, err)
	}
	return s.Set(key, b)
}

// GetJSON decodes the value under key into v. It reports false, without touching v,
// when the key is missing.
func (s *Store) GetJSON(key string, v any) (bool, error) {
	b, found, err := s.Get(key)
	if err != nil || !found {
		return false, err
	}
	if err := json.Unmarshal(b, v); err != nil {
		return true, fmt.Errorf("snapshotstore: decode %s: %w", key, err)
	}
	return true, nil
}
