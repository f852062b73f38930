package catalog

import (
	"context"
	"encoding/json"
	"strconv"
	"strings"
	"sync"

	"github.com/dgraph-io/badger/v4"

	"github.com/skn123/robin-sub001/internal/errors"
)

// Key prefixes for different data types
const (
	prefixEntry = "e:" // e:name -> entry JSON
	prefixToken = "t:" // t:token:name -> weight
)

// BadgerBackend is a BadgerDB-backed catalog.
type BadgerBackend struct {
	db       *badger.DB
	mu       sync.RWMutex
	readOnly bool
	count    int
}

// NewBadgerBackend creates a new BadgerDB catalog.
func NewBadgerBackend() *BadgerBackend {
	return &BadgerBackend{}
}

// Initialize opens or creates the BadgerDB database at the given path.
func (b *BadgerBackend) Initialize(path string, readOnly bool) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	opts := badger.DefaultOptions(path).
		WithNumCompactors(2).
		WithLoggingLevel(badger.ERROR)
	if readOnly {
		opts = opts.WithReadOnly(true)
	}

	db, err := badger.Open(opts)
	if err != nil {
		return errors.Wrapf(err, "opening catalog %s", path)
	}
	b.db = db
	b.readOnly = readOnly
	b.count = b.countEntries()
	return nil
}

func (b *BadgerBackend) countEntries() int {
	txn := b.db.NewTransaction(false)
	defer txn.Discard()

	opts := badger.DefaultIteratorOptions
	opts.PrefetchValues = false
	opts.Prefix = []byte(prefixEntry)
	it := txn.NewIterator(opts)
	defer it.Close()

	n := 0
	for it.Rewind(); it.Valid(); it.Next() {
		n++
	}
	return n
}

// Close releases all resources held by the backend.
func (b *BadgerBackend) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.db == nil {
		return nil
	}
	err := b.db.Close()
	b.db = nil
	return err
}

// Store replaces the catalog contents with entries.
func (b *BadgerBackend) Store(ctx context.Context, entries []*Entry) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.db == nil {
		return errors.New("catalog is not initialized")
	}
	if b.readOnly {
		return errors.New("catalog is read-only")
	}
	if err := b.db.DropAll(); err != nil {
		return errors.Wrap(err, "clearing catalog")
	}
	b.count = 0

	wb := b.db.NewWriteBatch()
	defer wb.Cancel()

	for _, e := range entries {
		if err := ctx.Err(); err != nil {
			return err
		}
		data, err := json.Marshal(e)
		if err != nil {
			return errors.Wrapf(err, "marshaling %s", e.Name)
		}
		if err := wb.Set(entryKey(e.Name), data); err != nil {
			return errors.Wrapf(err, "storing %s", e.Name)
		}
		for token, weight := range weights(e) {
			if err := wb.Set(tokenKey(token, e.Name), []byte(strconv.FormatFloat(weight, 'g', -1, 64))); err != nil {
				return errors.Wrapf(err, "indexing %s", e.Name)
			}
		}
	}
	if err := wb.Flush(); err != nil {
		return errors.Wrap(err, "flushing catalog")
	}
	b.count = len(entries)
	return nil
}

// Entry returns the entry with the given full name.
func (b *BadgerBackend) Entry(_ context.Context, name string) (*Entry, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.db == nil {
		return nil, errors.New("catalog is not initialized")
	}
	txn := b.db.NewTransaction(false)
	defer txn.Discard()
	return getEntry(txn, name)
}

func getEntry(txn *badger.Txn, name string) (*Entry, error) {
	item, err := txn.Get(entryKey(name))
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, errors.NotFound(name)
	}
	if err != nil {
		return nil, errors.Wrapf(err, "reading %s", name)
	}

	var e Entry
	if err := item.Value(func(val []byte) error {
		return json.Unmarshal(val, &e)
	}); err != nil {
		return nil, errors.Wrapf(err, "decoding %s", name)
	}
	return &e, nil
}

// Search ranks the stored entries against the tokens of query.
func (b *BadgerBackend) Search(ctx context.Context, query string, limit int) ([]SearchResult, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.db == nil {
		return nil, errors.New("catalog is not initialized")
	}
	txn := b.db.NewTransaction(false)
	defer txn.Discard()

	scores := make(map[string]float64)
	for _, token := range tokenize(query) {
		prefix := tokenKey(token, "")
		opts := badger.DefaultIteratorOptions
		opts.Prefix = prefix
		it := txn.NewIterator(opts)
		for it.Rewind(); it.Valid(); it.Next() {
			item := it.Item()
			name := strings.TrimPrefix(string(item.Key()), string(prefix))
			_ = item.Value(func(val []byte) error {
				weight, err := strconv.ParseFloat(string(val), 64)
				if err == nil {
					scores[name] += weight
				}
				return nil
			})
		}
		it.Close()
		if err := ctx.Err(); err != nil {
			return nil, err
		}
	}

	results := make([]SearchResult, 0, len(scores))
	for name, score := range scores {
		e, err := getEntry(txn, name)
		if err != nil {
			continue
		}
		results = append(results, SearchResult{Name: name, Kind: e.Kind, Score: score, Snippet: snippet(e)})
	}
	return rank(results, limit), nil
}

// Count returns the number of stored entries.
func (b *BadgerBackend) Count() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.count
}

func entryKey(name string) []byte {
	return []byte(prefixEntry + name)
}

func tokenKey(token, name string) []byte {
	return []byte(prefixToken + token + ":" + name)
}
