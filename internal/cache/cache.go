// Package cache keeps printed DMR documents in Badger, keyed by dataset
// identity and canonical constraint string.
package cache

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"

	"github.com/dgraph-io/badger/v4"
	"golang.org/x/text/unicode/norm"

	"github.com/roach88/dap4/internal/dmr"
	"github.com/roach88/dap4/internal/generator"
	"github.com/roach88/dap4/internal/view"
)

// Domain prefixes for content-addressed keys.
// Version suffix enables future algorithm migration.
const (
	DomainDMR     = "dap4/dmr/v1"
	DomainDataset = "dap4/dataset/v1"
)

// hashWithDomain computes SHA-256 hash with domain separation.
// Format: SHA256(domain + 0x00 + part + 0x00 + part ...), each part NFC
// normalized. The null separators keep part boundaries unambiguous.
func hashWithDomain(domain string, parts ...string) string {
	h := sha256.New()
	h.Write([]byte(domain))
	for _, p := range parts {
		h.Write([]byte{0x00})
		h.Write([]byte(norm.NFC.String(p)))
	}
	return hex.EncodeToString(h.Sum(nil))
}

// Key returns the cache key of the DMR for a constraint over a dataset.
// dataset identifies the dataset model, e.g. its Fingerprint.
func Key(dataset, constraint string) string {
	return hashWithDomain(DomainDMR, dataset, constraint)
}

// Fingerprint identifies a dataset model by the text of its full DMR, so
// that editing the model invalidates every cached entry for it.
func Fingerprint(ds *dmr.Dataset) (string, error) {
	var buf bytes.Buffer
	if err := generator.PrintDMR(&buf, ds, view.NewUniversal(ds)); err != nil {
		return "", fmt.Errorf("fingerprint %s: %w", ds.Name(), err)
	}
	return hashWithDomain(DomainDataset, buf.String()), nil
}

// Cache is a Badger-backed DMR cache.
type Cache struct {
	db *badger.DB
}

// Open opens or creates a cache in dir. An empty dir keeps the cache in
// memory.
func Open(dir string) (*Cache, error) {
	opts := badger.DefaultOptions(dir)
	if dir == "" {
		opts = opts.WithInMemory(true)
	}
	opts.Logger = nil

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open badger: %w", err)
	}
	return &Cache{db: db}, nil
}

// Close closes the cache.
func (c *Cache) Close() error {
	return c.db.Close()
}

// Get returns the DMR stored under key.
func (c *Cache) Get(key string) (string, bool, error) {
	var text string
	err := c.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(key))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			text = string(val)
			return nil
		})
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("cache get: %w", err)
	}
	return text, true, nil
}

// Put stores a DMR under key.
func (c *Cache) Put(key, text string) error {
	err := c.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(key), []byte(text))
	})
	if err != nil {
		return fmt.Errorf("cache put: %w", err)
	}
	return nil
}

// DMR returns the DMR of ds as seen through v, printing and storing it on
// a miss. hit reports whether it came from the cache.
func (c *Cache) DMR(ds *dmr.Dataset, v view.View) (text string, hit bool, err error) {
	fp, err := Fingerprint(ds)
	if err != nil {
		return "", false, err
	}
	key := Key(fp, v.ConstraintString())
	if text, ok, err := c.Get(key); err != nil || ok {
		return text, ok, err
	}

	var buf bytes.Buffer
	if err := generator.PrintDMR(&buf, ds, v); err != nil {
		return "", false, err
	}
	if err := c.Put(key, buf.String()); err != nil {
		return "", false, err
	}
	return buf.String(), false, nil
}
