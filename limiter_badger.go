package pressroom

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/rs/zerolog"
)

const (
	badgerKeyPrefix   = "ratelimit:"
	badgerMaxAttempts = 10
)

// BadgerCounter is a Counter backed by badger. Each increment is a single
// read-modify-write transaction; buckets expire through badger's TTL.
type BadgerCounter struct {
	db *badger.DB
}

// OpenBadgerCounter opens a badger database at dir. An empty dir keeps the
// database in memory.
func OpenBadgerCounter(dir string, logger zerolog.Logger) (*BadgerCounter, error) {
	opts := badger.DefaultOptions(dir).WithLogger(badgerLogger{logger})
	if dir == "" {
		opts = opts.WithInMemory(true)
	}
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger: %w", err)
	}
	return &BadgerCounter{db: db}, nil
}

// Incr implements Counter. Conflicting concurrent increments are retried.
func (c *BadgerCounter) Incr(ctx context.Context, key string, window time.Duration, now time.Time) (int, time.Time, error) {
	k := []byte(badgerKeyPrefix + key)
	for attempt := 0; attempt < badgerMaxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return 0, time.Time{}, err
		}

		var (
			count   int
			resetAt time.Time
		)
		err := c.db.Update(func(txn *badger.Txn) error {
			item, err := txn.Get(k)
			switch {
			case errors.Is(err, badger.ErrKeyNotFound):
			case err != nil:
				return err
			default:
				if err := item.Value(func(val []byte) error {
					count, resetAt = decodeBucket(val)
					return nil
				}); err != nil {
					return err
				}
			}

			if count == 0 || !resetAt.After(now) {
				count, resetAt = 0, now.Add(window)
			}
			count++
			entry := badger.NewEntry(k, encodeBucket(count, resetAt)).WithTTL(resetAt.Sub(now))
			return txn.SetEntry(entry)
		})
		if errors.Is(err, badger.ErrConflict) {
			continue
		}
		if err != nil {
			return 0, time.Time{}, fmt.Errorf("increment %s: %w", key, err)
		}
		return count, resetAt, nil
	}
	return 0, time.Time{}, fmt.Errorf("increment %s: %w", key, badger.ErrConflict)
}

// Close closes the database.
func (c *BadgerCounter) Close() error {
	return c.db.Close()
}

func encodeBucket(count int, resetAt time.Time) []byte {
	buf := make([]byte, 16)
	binary.BigEndian.PutUint64(buf[:8], uint64(count))
	binary.BigEndian.PutUint64(buf[8:], uint64(resetAt.UnixNano()))
	return buf
}

func decodeBucket(val []byte) (int, time.Time) {
	if len(val) != 16 {
		return 0, time.Time{}
	}
	count := int(binary.BigEndian.Uint64(val[:8]))
	resetAt := time.Unix(0, int64(binary.BigEndian.Uint64(val[8:])))
	return count, resetAt
}

// badgerLogger routes badger's logs to zerolog; info and debug are demoted
// to debug.
type badgerLogger struct {
	l zerolog.Logger
}

func (b badgerLogger) Errorf(f string, v ...interface{})   { b.l.Error().Msgf("badger: "+f, v...) }
func (b badgerLogger) Warningf(f string, v ...interface{}) { b.l.Warn().Msgf("badger: "+f, v...) }
func (b badgerLogger) Infof(f string, v ...interface{})    { b.l.Debug().Msgf("badger: "+f, v...) }
func (b badgerLogger) Debugf(f string, v ...interface{})   { b.l.Debug().Msgf("badger: "+f, v...) }
