package store

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v5"

	"github.com/eneskucukk/ParkingLotApp/internal/logging"
	"github.com/eneskucukk/ParkingLotApp/internal/parking"
)

const (
	DefaultPath          = "parking_fees.json"
	defaultMaxTries      = 3
	defaultRetryInterval = 50 * time.Millisecond

	// Large enough that a record never bypasses the buffer, so a failed
	// flush always leaves the unwritten remainder in it.
	writeBufferSize = 64 << 10
)

type logFile interface {
	io.Writer
	io.ReaderAt
	Sync() error
	Truncate(size int64) error
	Close() error
}

// FileStore appends one JSON record per line to a file that stays open for
// the life of the store. Every append is flushed before returning, and
// synced to disk when fsync is enabled. A failed attempt is truncated away
// so earlier lines are never touched.
type FileStore struct {
	path          string
	fsync         bool
	maxTries      uint
	retryInterval time.Duration

	mu     sync.Mutex
	file   logFile
	w      *bufio.Writer
	offset int64
	torn   bool
}

type FileOption func(*FileStore)

func WithFsync(enabled bool) FileOption {
	return func(s *FileStore) {
		s.fsync = enabled
	}
}

func WithMaxTries(n uint) FileOption {
	return func(s *FileStore) {
		if n > 0 {
			s.maxTries = n
		}
	}
}

func WithRetryInterval(d time.Duration) FileOption {
	return func(s *FileStore) {
		if d > 0 {
			s.retryInterval = d
		}
	}
}

func OpenFileStore(path string, opts ...FileOption) (*FileStore, error) {
	if path == "" {
		path = DefaultPath
	}

	f, err := os.OpenFile(path, os.O_RDWR|os.O_APPEND|os.O_CREATE, 0o644)
	if err != nil {
		return nil, wrapIO(fmt.Errorf("open %s: %w", path, err))
	}

	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, wrapIO(fmt.Errorf("stat %s: %w", path, err))
	}

	s, err := newFileStore(path, f, info.Size(), opts...)
	if err != nil {
		f.Close()
		return nil, err
	}
	return s, nil
}

func newFileStore(path string, f logFile, size int64, opts ...FileOption) (*FileStore, error) {
	s := &FileStore{
		path:          path,
		fsync:         true,
		maxTries:      defaultMaxTries,
		retryInterval: defaultRetryInterval,
		file:          f,
		w:             bufio.NewWriterSize(f, writeBufferSize),
		offset:        size,
	}
	for _, opt := range opts {
		opt(s)
	}

	// A previous process may have died mid-line.
	if size > 0 {
		last := make([]byte, 1)
		if _, err := f.ReadAt(last, size-1); err != nil {
			return nil, wrapIO(fmt.Errorf("read tail of %s: %w", path, err))
		}
		s.torn = last[0] != '\n'
	}
	return s, nil
}

func (s *FileStore) Path() string {
	return s.path
}

func (s *FileStore) Append(ctx context.Context, tx parking.Transaction) error {
	line, err := NewRecord(tx).MarshalLine()
	if err != nil {
		return wrapIO(fmt.Errorf("encode transaction: %w", err))
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.file == nil {
		return wrapIO(ErrClosed)
	}

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = s.retryInterval
	bo.MaxInterval = 20 * s.retryInterval

	attempt := 0
	_, err = backoff.Retry(ctx, func() (struct{}, error) {
		attempt++
		if err := s.write(line); err != nil {
			logging.Warn(ctx, "transaction append failed",
				"path", s.path,
				"attempt", attempt,
				"error", err,
			)
			return struct{}{}, err
		}
		return struct{}{}, nil
	},
		backoff.WithBackOff(bo),
		backoff.WithMaxTries(s.maxTries),
	)
	if err != nil {
		return wrapIO(fmt.Errorf("append to %s after %d attempts: %w", s.path, attempt, err))
	}
	return nil
}

// write expects s.mu to be held.
func (s *FileStore) write(line []byte) error {
	s.w.Reset(s.file)

	payload := len(line)
	if s.torn {
		s.w.WriteByte('\n')
		payload++
	}
	s.w.Write(line)

	err := s.w.Flush()
	written := payload - s.w.Buffered()
	if err == nil && s.fsync {
		err = s.file.Sync()
	}
	if err != nil {
		if terr := s.file.Truncate(s.offset); terr != nil {
			if written > 0 {
				s.offset += int64(written)
				s.torn = written < payload
			}
			return backoff.Permanent(errors.Join(err, fmt.Errorf("roll back partial write: %w", terr)))
		}
		return err
	}

	s.offset += int64(payload)
	s.torn = false
	return nil
}

// Transactions replays the log from disk.
func (s *FileStore) Transactions(ctx context.Context) ([]parking.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := os.Open(s.path)
	if err != nil {
		return nil, wrapIO(fmt.Errorf("open %s: %w", s.path, err))
	}
	defer f.Close()

	records, err := ReadRecords(f)
	if err != nil {
		logging.Warn(ctx, "transaction log contains unreadable lines", "path", s.path, "error", err)
	}

	txs := make([]parking.Transaction, 0, len(records))
	for _, rec := range records {
		tx, err := rec.Transaction()
		if err != nil {
			return txs, wrapIO(err)
		}
		txs = append(txs, tx)
	}
	return txs, nil
}

func (s *FileStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.file == nil {
		return nil
	}

	// Every successful append already flushed; anything still buffered
	// belongs to a failed attempt and is dropped.
	s.w.Reset(io.Discard)
	err := s.file.Close()
	s.file = nil
	return wrapIO(err)
}
