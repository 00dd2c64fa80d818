package storage

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const (
	keyStats       = "stats"
	movePrefix     = "move/"
	defaultLogName = "badger"
)

// CachedMove is a search result remembered for a position and depth.
type CachedMove struct {
	Move     string    `json:"move"`
	Score    int       `json:"score"`
	Depth    int       `json:"depth"`
	StoredAt time.Time `json:"stored_at"`
}

// Stats are the service counters.
type Stats struct {
	Requests  int64     `json:"requests"`
	CacheHits int64     `json:"cache_hits"`
	Fallbacks int64     `json:"fallbacks"`
	Errors    int64     `json:"errors"`
	Since     time.Time `json:"since"`
}

// HitRate returns cache hits as a percentage of requests.
func (s Stats) HitRate() float64 {
	if s.Requests == 0 {
		return 0
	}
	return float64(s.CacheHits) / float64(s.Requests) * 100
}

// Storage wraps BadgerDB for the move cache and the counters.
type Storage struct {
	db *badger.DB
}

// Open opens (or creates) the database in dir.
func Open(dir string) (*Storage, error) {
	return open(badger.DefaultOptions(dir))
}

// OpenInMemory opens a database that lives only as long as the process.
func OpenInMemory() (*Storage, error) {
	return open(badger.DefaultOptions("").WithInMemory(true))
}

func open(opts badger.Options) (*Storage, error) {
	opts = opts.WithLogger(badgerLogger{log.With().Str("component", defaultLogName).Logger()})
	db, err := badger.Open(opts)
	if err != nil {
		return nil, errors.Wrap(err, "storage: open badger")
	}
	return &Storage{db: db}, nil
}

// Close closes the database.
func (s *Storage) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func moveKey(fen string, depth int) []byte {
	return []byte(fmt.Sprintf("%s%02d/%s", movePrefix, depth, fen))
}

// LookupMove returns the cached result for fen searched to depth.
func (s *Storage) LookupMove(fen string, depth int) (CachedMove, bool, error) {
	var cm CachedMove
	found := false
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(moveKey(fen, depth))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		found = true
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &cm)
		})
	})
	if err != nil {
		return CachedMove{}, false, errors.Wrap(err, "storage: lookup move")
	}
	return cm, found, nil
}

// StoreMove caches a result for fen searched to depth.
func (s *Storage) StoreMove(fen string, depth int, cm CachedMove) error {
	if cm.StoredAt.IsZero() {
		cm.StoredAt = time.Now()
	}
	data, err := json.Marshal(cm)
	if err != nil {
		return errors.Wrap(err, "storage: encode move")
	}
	return errors.Wrap(s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(moveKey(fen, depth), data)
	}), "storage: store move")
}

// DeleteMove drops a cached result, e.g. one that no longer validates.
func (s *Storage) DeleteMove(fen string, depth int) error {
	return errors.Wrap(s.db.Update(func(txn *badger.Txn) error {
		return txn.Delete(moveKey(fen, depth))
	}), "storage: delete move")
}

// CachedMoves counts the cached results.
func (s *Storage) CachedMoves() (int, error) {
	n := 0
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		opts.Prefix = []byte(movePrefix)
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Rewind(); it.Valid(); it.Next() {
			n++
		}
		return nil
	})
	return n, errors.Wrap(err, "storage: count moves")
}

func loadStats(txn *badger.Txn) (Stats, error) {
	var st Stats
	item, err := txn.Get([]byte(keyStats))
	if errors.Is(err, badger.ErrKeyNotFound) {
		return Stats{Since: time.Now().UTC()}, nil
	}
	if err != nil {
		return st, err
	}
	err = item.Value(func(val []byte) error {
		return json.Unmarshal(val, &st)
	})
	return st, err
}

// LoadStats returns the counters, zero if none were recorded yet.
func (s *Storage) LoadStats() (Stats, error) {
	var st Stats
	err := s.db.View(func(txn *badger.Txn) error {
		var err error
		st, err = loadStats(txn)
		return err
	})
	return st, errors.Wrap(err, "storage: load stats")
}

// UpdateStats applies fn to the counters in one transaction.
func (s *Storage) UpdateStats(fn func(*Stats)) error {
	err := s.db.Update(func(txn *badger.Txn) error {
		st, err := loadStats(txn)
		if err != nil {
			return err
		}
		fn(&st)
		data, err := json.Marshal(st)
		if err != nil {
			return err
		}
		return txn.Set([]byte(keyStats), data)
	})
	return errors.Wrap(err, "storage: update stats")
}

// badgerLogger routes badger's own logging into zerolog. Badger is chatty
// at info level, so that goes to debug.
type badgerLogger struct {
	l zerolog.Logger
}

func (b badgerLogger) Errorf(f string, args ...interface{}) {
	b.l.Error().Msgf(f, args...)
}

func (b badgerLogger) Warningf(f string, args ...interface{}) {
	b.l.Warn().Msgf(f, args...)
}

func (b badgerLogger) Infof(f string, args ...interface{}) {
	b.l.Debug().Msgf(f, args...)
}

func (b badgerLogger) Debugf(f string, args ...interface{}) {
	b.l.Trace().Msgf(f, args...)
}
