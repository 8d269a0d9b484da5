package store

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eneskucukk/ParkingLotApp/internal/parking"
)

func sampleTx(plate string, minutes int) parking.Transaction {
	return parking.Transaction{
		Plate:           plate,
		DurationMinutes: minutes,
		Fee:             parking.ComputeFee(minutes),
		ExitTime:        time.Date(2026, 10, 15, 14, 45, 0, 0, time.Local),
	}
}

func readLines(t *testing.T, path string) []string {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	return strings.Split(strings.TrimSuffix(string(data), "\n"), "\n")
}

func TestFileStoreAppendsOneLinePerTransaction(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "parking_fees.json")

	s, err := OpenFileStore(path)
	require.NoError(t, err)

	require.NoError(t, s.Append(ctx, sampleTx("34ABC123", 45)))
	require.NoError(t, s.Append(ctx, sampleTx("06XYZ99", 10)))
	require.NoError(t, s.Close())

	lines := readLines(t, path)
	require.Len(t, lines, 2)
	assert.Equal(t, `{"plate":"34ABC123","duration_minutes":45,"fee":10.00,"exit_time":"2026-10-15 14:45:00"}`, lines[0])
	assert.Equal(t, `{"plate":"06XYZ99","duration_minutes":10,"fee":5.00,"exit_time":"2026-10-15 14:45:00"}`, lines[1])
}

func TestFileStoreReopenKeepsExistingRecords(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "ledger.jsonl")

	s, err := OpenFileStore(path, WithFsync(false))
	require.NoError(t, err)
	require.NoError(t, s.Append(ctx, sampleTx("A", 1)))
	require.NoError(t, s.Close())

	s, err = OpenFileStore(path, WithFsync(false))
	require.NoError(t, err)
	require.NoError(t, s.Append(ctx, sampleTx("B", 2)))

	txs, err := s.Transactions(ctx)
	require.NoError(t, err)
	require.Len(t, txs, 2)
	assert.Equal(t, "A", txs[0].Plate)
	assert.Equal(t, "B", txs[1].Plate)
	require.NoError(t, s.Close())
}

func TestFileStoreIsolatesTornTailFromPreviousRun(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "ledger.jsonl")
	good := `{"plate":"A","duration_minutes":1,"fee":5.00,"exit_time":"2026-10-15 10:00:00"}` + "\n"
	require.NoError(t, os.WriteFile(path, []byte(good+`{"plate":"B","dur`), 0o644))

	s, err := OpenFileStore(path)
	require.NoError(t, err)
	require.NoError(t, s.Append(ctx, sampleTx("C", 3)))

	txs, err := s.Transactions(ctx)
	require.NoError(t, err)
	require.Len(t, txs, 2)
	assert.Equal(t, "A", txs[0].Plate)
	assert.Equal(t, "C", txs[1].Plate)
	require.NoError(t, s.Close())
}

func TestFileStoreAppendAfterClose(t *testing.T) {
	s, err := OpenFileStore(filepath.Join(t.TempDir(), "ledger.jsonl"))
	require.NoError(t, err)
	require.NoError(t, s.Close())
	require.NoError(t, s.Close())

	err = s.Append(context.Background(), sampleTx("A", 1))
	assert.ErrorIs(t, err, parking.ErrIOFailure)
	assert.ErrorIs(t, err, ErrClosed)
}

func TestOpenFileStoreUnwritableDirectory(t *testing.T) {
	_, err := OpenFileStore(filepath.Join(t.TempDir(), "missing", "ledger.jsonl"))
	assert.ErrorIs(t, err, parking.ErrIOFailure)
}

type flakyFile struct {
	buf        []byte
	failWrites int
	partial    bool
	failSyncs  int
	truncErr   error
	writeCalls int
}

var errDisk = errors.New("disk unavailable")

func (f *flakyFile) Write(p []byte) (int, error) {
	f.writeCalls++
	if f.failWrites > 0 {
		f.failWrites--
		if f.partial {
			n := len(p) / 2
			f.buf = append(f.buf, p[:n]...)
			return n, errDisk
		}
		return 0, errDisk
	}
	f.buf = append(f.buf, p...)
	return len(p), nil
}

func (f *flakyFile) ReadAt(p []byte, off int64) (int, error) {
	if off >= int64(len(f.buf)) {
		return 0, io.EOF
	}
	n := copy(p, f.buf[off:])
	if n < len(p) {
		return n, io.EOF
	}
	return n, nil
}

func (f *flakyFile) Sync() error {
	if f.failSyncs > 0 {
		f.failSyncs--
		return errDisk
	}
	return nil
}

func (f *flakyFile) Truncate(size int64) error {
	if f.truncErr != nil {
		return f.truncErr
	}
	f.buf = f.buf[:size]
	return nil
}

func (f *flakyFile) Close() error { return nil }

func newFlakyStore(t *testing.T, f *flakyFile, opts ...FileOption) *FileStore {
	t.Helper()
	opts = append([]FileOption{WithRetryInterval(time.Millisecond)}, opts...)
	s, err := newFileStore("flaky.jsonl", f, int64(len(f.buf)), opts...)
	require.NoError(t, err)
	return s
}

func TestFileStoreRetriesAndRollsBackPartialWrite(t *testing.T) {
	f := &flakyFile{failWrites: 1, partial: true}
	s := newFlakyStore(t, f)

	require.NoError(t, s.Append(context.Background(), sampleTx("A", 1)))

	assert.Equal(t, 2, f.writeCalls)
	records, err := ReadRecords(bytes.NewReader(f.buf))
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "A", records[0].Plate)
}

func TestFileStoreRetriesFailedSync(t *testing.T) {
	f := &flakyFile{failSyncs: 1}
	s := newFlakyStore(t, f)

	require.NoError(t, s.Append(context.Background(), sampleTx("A", 1)))

	records, err := ReadRecords(bytes.NewReader(f.buf))
	require.NoError(t, err)
	assert.Len(t, records, 1)
}

func TestFileStoreGivesUpAfterMaxTries(t *testing.T) {
	prior := `{"plate":"P","duration_minutes":0,"fee":5.00,"exit_time":"2026-10-15 09:00:00"}` + "\n"
	f := &flakyFile{buf: []byte(prior), failWrites: 10, partial: true}
	s := newFlakyStore(t, f, WithMaxTries(3))

	err := s.Append(context.Background(), sampleTx("A", 1))
	assert.ErrorIs(t, err, parking.ErrIOFailure)
	assert.ErrorIs(t, err, errDisk)
	assert.Equal(t, 3, f.writeCalls)
	assert.Equal(t, prior, string(f.buf))
}

func TestFileStoreFailedRollbackIsolatesFragment(t *testing.T) {
	f := &flakyFile{failWrites: 1, partial: true, truncErr: errors.New("read-only")}
	s := newFlakyStore(t, f)

	err := s.Append(context.Background(), sampleTx("A", 1))
	assert.ErrorIs(t, err, parking.ErrIOFailure)
	assert.Equal(t, 1, f.writeCalls)

	f.truncErr = nil
	require.NoError(t, s.Append(context.Background(), sampleTx("B", 2)))

	records, err := ReadRecords(bytes.NewReader(f.buf))
	assert.Error(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "B", records[0].Plate)
}

func TestFileStoreStopsRetryingOnCancel(t *testing.T) {
	f := &flakyFile{failWrites: 100}
	s := newFlakyStore(t, f, WithMaxTries(100), WithRetryInterval(time.Hour))

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	err := s.Append(ctx, sampleTx("A", 1))
	assert.ErrorIs(t, err, parking.ErrIOFailure)
	assert.Less(t, f.writeCalls, 100)
}

func TestLedgerReleaseWithFailingFileKeepsSpotOccupied(t *testing.T) {
	ctx := context.Background()
	f := &flakyFile{failWrites: 10}
	s := newFlakyStore(t, f, WithMaxTries(2))
	lot := parking.NewParkingLot(6, s)

	_, err := lot.Park(ctx, 3, "34ABC123")
	require.NoError(t, err)

	_, err = lot.Release(ctx, 3)
	assert.ErrorIs(t, err, parking.ErrIOFailure)
	assert.Equal(t, parking.SpotStateOccupied, lot.Snapshot().Spots[3].State)
	assert.Empty(t, f.buf)
}
