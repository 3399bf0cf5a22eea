package storage

import (
	"encoding/binary"
	"io"
	"os"
	"sync"

	"github.com/cockroachdb/errors"
	"go.uber.org/zap"
	"golang.org/x/sys/unix"
)

const (
	// SuperblockSize is the size of the header region. The first record
	// always starts here, on a sector boundary.
	SuperblockSize = 4096

	// prefixLen is the size of a record length prefix (big-endian uint64).
	prefixLen = 8

	// maxRecordLen bounds a decoded length prefix. A prefix beyond this is
	// garbage (a fabricated or torn address), not a real record.
	maxRecordLen = 1 << 31
)

// Options configures a File.
type Options struct {
	// Mode is the permission bits used when creating the file.
	Mode os.FileMode
	// Logger receives debug events. Nil means no logging.
	Logger *zap.Logger
}

// DefaultOptions returns the options used when none are given.
func DefaultOptions() Options {
	return Options{Mode: 0644}
}

// File is a single-file record store. One File wraps one *os.File and
// tracks whether this handle holds the exclusive write lock.
type File struct {
	f    *os.File
	path string
	log  *zap.Logger

	mu     sync.Mutex
	end    int64 // append offset, never below SuperblockSize
	locked bool
	closed bool
}

// Open opens or creates the record file at path and guarantees the
// superblock region exists.
func Open(path string, opts Options) (*File, error) {
	if opts.Mode == 0 {
		opts.Mode = 0644
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}

	fp, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, opts.Mode)
	if err != nil {
		return nil, errors.Wrap(err, "open record file")
	}

	f := &File{f: fp, path: path, log: opts.Logger}
	if err := f.ensureSuperblock(); err != nil {
		_ = fp.Close()
		return nil, err
	}
	return f, nil
}

// ensureSuperblock zero-pads the file up to SuperblockSize so the first
// record starts on a sector boundary.
func (f *File) ensureSuperblock() error {
	if _, err := f.Lock(); err != nil {
		return err
	}
	defer func() { _ = f.Unlock() }()

	fi, err := f.f.Stat()
	if err != nil {
		return errors.Wrap(err, "stat record file")
	}
	size := fi.Size()
	if size < SuperblockSize {
		pad := make([]byte, SuperblockSize-size)
		if _, err := f.f.WriteAt(pad, size); err != nil {
			return errors.Wrap(err, "pad superblock")
		}
		f.log.Debug("initialized superblock", zap.String("path", f.path))
		size = SuperblockSize
	}

	f.mu.Lock()
	f.end = size
	f.mu.Unlock()
	return nil
}

// Lock takes the exclusive advisory lock if this handle does not already
// hold it. It reports whether the lock was newly acquired.
func (f *File) Lock() (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return false, ErrClosed
	}
	if f.locked {
		return false, nil
	}
	if err := unix.Flock(int(f.f.Fd()), unix.LOCK_EX); err != nil {
		return false, errors.Wrap(err, "flock")
	}
	f.locked = true
	f.log.Debug("acquired write lock", zap.String("path", f.path))
	return true, nil
}

// Unlock syncs and releases the lock if held. Safe to call when not held.
func (f *File) Unlock() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.unlockLocked()
}

func (f *File) unlockLocked() error {
	if !f.locked {
		return nil
	}
	if err := f.f.Sync(); err != nil {
		return errors.Wrap(err, "sync before unlock")
	}
	if err := unix.Flock(int(f.f.Fd()), unix.LOCK_UN); err != nil {
		return errors.Wrap(err, "funlock")
	}
	f.locked = false
	return nil
}

// Locked reports whether this handle holds the write lock.
func (f *File) Locked() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.locked
}

// Write appends a length-prefixed record and returns its address (the
// offset of the length prefix). The write lock is taken if not already
// held, and is NOT released here; it stays held until commit or close.
func (f *File) Write(p []byte) (uint64, error) {
	if _, err := f.Lock(); err != nil {
		return 0, err
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return 0, ErrClosed
	}

	addr := uint64(f.end)
	buf := make([]byte, prefixLen+len(p))
	binary.BigEndian.PutUint64(buf[:prefixLen], uint64(len(p)))
	copy(buf[prefixLen:], p)

	if _, err := f.f.WriteAt(buf, f.end); err != nil {
		return 0, errors.Wrapf(err, "append record at %d", addr)
	}
	f.end += int64(len(buf))
	return addr, nil
}

// Read returns the payload of the record at addr. No lock is taken;
// records are immutable once their address has been handed out.
//
// Addresses must come from a prior Write, RootAddress, or a decoded node
// record. A truncated or implausible record is ErrMalformedRecord.
func (f *File) Read(addr uint64) ([]byte, error) {
	f.mu.Lock()
	closed := f.closed
	f.mu.Unlock()
	if closed {
		return nil, ErrClosed
	}

	var hdr [prefixLen]byte
	if _, err := f.f.ReadAt(hdr[:], int64(addr)); err != nil {
		if err == io.EOF || err == io.ErrUnexpectedEOF {
			return nil, errors.Wrapf(ErrMalformedRecord, "record prefix at %d", addr)
		}
		return nil, errors.Wrapf(err, "read record prefix at %d", addr)
	}
	n := binary.BigEndian.Uint64(hdr[:])
	if n > maxRecordLen {
		return nil, errors.Wrapf(ErrMalformedRecord, "record at %d claims %d bytes", addr, n)
	}

	p := make([]byte, n)
	if _, err := f.f.ReadAt(p, int64(addr)+prefixLen); err != nil {
		if err == io.EOF || err == io.ErrUnexpectedEOF {
			return nil, errors.Wrapf(ErrMalformedRecord, "record payload at %d", addr)
		}
		return nil, errors.Wrapf(err, "read record payload at %d", addr)
	}
	return p, nil
}

// CommitRootAddress durably publishes addr as the new root: sync all
// pending appends, overwrite the 8 root bytes, sync again, release the
// lock. The 8-byte write lands inside one sector, so the previous root
// stays valid until the new one is fully on disk.
func (f *File) CommitRootAddress(addr uint64) error {
	if _, err := f.Lock(); err != nil {
		return err
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return ErrClosed
	}

	if err := f.f.Sync(); err != nil {
		return errors.Wrap(err, "sync records before root commit")
	}
	var buf [prefixLen]byte
	binary.BigEndian.PutUint64(buf[:], addr)
	if _, err := f.f.WriteAt(buf[:], 0); err != nil {
		return errors.Wrap(err, "write root address")
	}
	if err := f.f.Sync(); err != nil {
		return errors.Wrap(err, "sync root address")
	}
	f.log.Debug("committed root", zap.String("path", f.path), zap.Uint64("root", addr))
	return f.unlockLocked()
}

// RootAddress reads the current root address from the superblock.
// 0 means the tree is empty (nothing has ever been committed).
func (f *File) RootAddress() (uint64, error) {
	f.mu.Lock()
	closed := f.closed
	f.mu.Unlock()
	if closed {
		return 0, ErrClosed
	}

	var buf [prefixLen]byte
	if _, err := f.f.ReadAt(buf[:], 0); err != nil {
		return 0, errors.Wrap(err, "read root address")
	}
	return binary.BigEndian.Uint64(buf[:]), nil
}

// Close releases the lock if held and closes the file. Further operations
// return ErrClosed. Close is idempotent.
func (f *File) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return nil
	}
	if err := f.unlockLocked(); err != nil {
		return err
	}
	f.closed = true
	return errors.Wrap(f.f.Close(), "close record file")
}

// Closed reports whether Close has been called.
func (f *File) Closed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closed
}

// Path returns the path the file was opened with.
func (f *File) Path() string {
	return f.path
}
