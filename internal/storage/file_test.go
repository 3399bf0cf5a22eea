package storage

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func openTemp(t *testing.T) *File {
	t.Helper()
	f, err := Open(filepath.Join(t.TempDir(), "records.tkv"), DefaultOptions())
	require.NoError(t, err)
	t.Cleanup(func() { _ = f.Close() })
	return f
}

func TestOpenCreatesSuperblock(t *testing.T) {
	path := filepath.Join(t.TempDir(), "records.tkv")
	f, err := Open(path, DefaultOptions())
	require.NoError(t, err)
	defer f.Close()

	fi, err := os.Stat(path)
	require.NoError(t, err)
	require.Equal(t, int64(SuperblockSize), fi.Size())

	root, err := f.RootAddress()
	require.NoError(t, err)
	require.Equal(t, uint64(0), root, "fresh file has no committed root")
}

func TestWriteReadRoundTrip(t *testing.T) {
	f := openTemp(t)

	a1, err := f.Write([]byte("first"))
	require.NoError(t, err)
	require.Equal(t, uint64(SuperblockSize), a1, "first record starts at the superblock boundary")

	a2, err := f.Write([]byte("second record"))
	require.NoError(t, err)
	require.Greater(t, a2, a1)

	got, err := f.Read(a1)
	require.NoError(t, err)
	require.Equal(t, []byte("first"), got)

	got, err = f.Read(a2)
	require.NoError(t, err)
	require.Equal(t, []byte("second record"), got)
}

func TestCommitRootAddress(t *testing.T) {
	path := filepath.Join(t.TempDir(), "records.tkv")
	f, err := Open(path, DefaultOptions())
	require.NoError(t, err)

	addr, err := f.Write([]byte("root node"))
	require.NoError(t, err)
	require.NoError(t, f.CommitRootAddress(addr))
	require.False(t, f.Locked(), "commit releases the lock")
	require.NoError(t, f.Close())

	// reopen: committed root and record survive
	f, err = Open(path, DefaultOptions())
	require.NoError(t, err)
	defer f.Close()

	root, err := f.RootAddress()
	require.NoError(t, err)
	require.Equal(t, addr, root)

	got, err := f.Read(root)
	require.NoError(t, err)
	require.Equal(t, []byte("root node"), got)
}

func TestLockIdempotent(t *testing.T) {
	f := openTemp(t)

	newly, err := f.Lock()
	require.NoError(t, err)
	require.True(t, newly)
	require.True(t, f.Locked())

	newly, err = f.Lock()
	require.NoError(t, err)
	require.False(t, newly, "second Lock on the same handle is a no-op")

	require.NoError(t, f.Unlock())
	require.False(t, f.Locked())
	require.NoError(t, f.Unlock(), "Unlock when not held is a no-op")
}

func TestWriteHoldsLock(t *testing.T) {
	f := openTemp(t)

	_, err := f.Write([]byte("x"))
	require.NoError(t, err)
	require.True(t, f.Locked(), "Write locks and does not unlock")
}

func TestReadTruncatedRecord(t *testing.T) {
	path := filepath.Join(t.TempDir(), "records.tkv")
	f, err := Open(path, DefaultOptions())
	require.NoError(t, err)
	defer f.Close()

	addr, err := f.Write([]byte("will be truncated"))
	require.NoError(t, err)
	require.NoError(t, f.Unlock())

	// chop off half the payload behind the handle's back
	require.NoError(t, os.Truncate(path, int64(addr)+8+4))

	_, err = f.Read(addr)
	require.ErrorIs(t, err, ErrMalformedRecord)
}

func TestReadBeyondEOF(t *testing.T) {
	f := openTemp(t)

	_, err := f.Read(1 << 20)
	require.ErrorIs(t, err, ErrMalformedRecord)
}

func TestClosedFile(t *testing.T) {
	f := openTemp(t)
	require.NoError(t, f.Close())
	require.True(t, f.Closed())
	require.NoError(t, f.Close(), "Close is idempotent")

	_, err := f.Write([]byte("x"))
	require.ErrorIs(t, err, ErrClosed)
	_, err = f.Read(SuperblockSize)
	require.ErrorIs(t, err, ErrClosed)
	_, err = f.RootAddress()
	require.ErrorIs(t, err, ErrClosed)
	_, err = f.Lock()
	require.ErrorIs(t, err, ErrClosed)
	require.ErrorIs(t, f.CommitRootAddress(0), ErrClosed)
}

func TestOpenPreservesExistingRecords(t *testing.T) {
	path := filepath.Join(t.TempDir(), "records.tkv")
	f, err := Open(path, DefaultOptions())
	require.NoError(t, err)

	a1, err := f.Write([]byte("one"))
	require.NoError(t, err)
	require.NoError(t, f.Close())

	// second open appends after the first record, not over it
	f, err = Open(path, DefaultOptions())
	require.NoError(t, err)
	defer f.Close()

	a2, err := f.Write([]byte("two"))
	require.NoError(t, err)
	require.Greater(t, a2, a1)

	got, err := f.Read(a1)
	require.NoError(t, err)
	require.Equal(t, []byte("one"), got)
}
