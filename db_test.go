package treekv

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func tempPath(t *testing.T) string {
	t.Helper()
	return filepath.Join(t.TempDir(), "test.tkv")
}

func mustConnect(t *testing.T, path string) *DB {
	t.Helper()
	db, err := Connect(path, WithLogger(zaptest.NewLogger(t)))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

// The unbalanced scenario: strictly descending inserts build a left spine.
func TestUnbalancedScenario(t *testing.T) {
	path := tempPath(t)

	db := mustConnect(t, path)
	require.NoError(t, db.Close())

	db = mustConnect(t, path)
	require.NoError(t, db.Set(Int(16), []byte("big")))
	require.NoError(t, db.Set(Int(15), []byte("med")))
	require.NoError(t, db.Set(Int(14), []byte("sml")))
	require.NoError(t, db.Commit())
	require.NoError(t, db.Close())

	db = mustConnect(t, path)
	v, err := db.Get(Int(16))
	require.NoError(t, err)
	assert.Equal(t, "big", string(v))

	v, err = db.GetMin()
	require.NoError(t, err)
	assert.Equal(t, "sml", string(v))

	e, err := db.GetLeft(Int(16))
	require.NoError(t, err)
	assert.Equal(t, Entry{Key: Int(15), Value: []byte("med")}, e)

	// the tree really is a spine: 15's literal left child is 14
	e, err = db.GetLeft(Int(15))
	require.NoError(t, err)
	assert.Equal(t, Entry{Key: Int(14), Value: []byte("sml")}, e)

	entries, err := db.Chop(Float(15.5))
	require.NoError(t, err)
	assert.Equal(t, []Entry{
		{Key: Int(15), Value: []byte("med")},
		{Key: Int(14), Value: []byte("sml")},
	}, entries)
	require.NoError(t, db.Close())
}

// The balanced scenario: the 9-key tree from the classic BST diagram.
func TestBalancedScenario(t *testing.T) {
	path := tempPath(t)

	db := mustConnect(t, path)
	input := []struct {
		key int64
		val string
	}{
		{8, "eight"}, {3, "three"}, {10, "ten"}, {1, "one"}, {6, "six"},
		{14, "fourteen"}, {4, "four"}, {7, "seven"}, {13, "thirteen"},
	}
	for _, kv := range input {
		require.NoError(t, db.Set(Int(kv.key), []byte(kv.val)))
	}
	require.NoError(t, db.Commit())
	require.NoError(t, db.Close())

	db = mustConnect(t, path)
	expectChild := func(get func(Key) (Entry, error), key, childKey int64, childVal string) {
		t.Helper()
		e, err := get(Int(key))
		require.NoError(t, err)
		assert.Equal(t, Entry{Key: Int(childKey), Value: []byte(childVal)}, e)
	}
	expectChild(db.GetLeft, 8, 3, "three")
	expectChild(db.GetRight, 8, 10, "ten")
	expectChild(db.GetLeft, 3, 1, "one")
	expectChild(db.GetRight, 3, 6, "six")
	expectChild(db.GetLeft, 6, 4, "four")
	expectChild(db.GetRight, 6, 7, "seven")
	expectChild(db.GetRight, 10, 14, "fourteen")
	expectChild(db.GetLeft, 14, 13, "thirteen")

	want := []Entry{
		{Key: Int(3), Value: []byte("three")},
		{Key: Int(1), Value: []byte("one")},
		{Key: Int(6), Value: []byte("six")},
		{Key: Int(4), Value: []byte("four")},
	}
	entries, err := db.Chop(Int(6))
	require.NoError(t, err)
	assert.Equal(t, want, entries, "chop on a key in the tree")

	entries, err = db.Chop(Float(6.1))
	require.NoError(t, err)
	assert.Equal(t, want, entries, "chop on a threshold between keys")
	require.NoError(t, db.Close())
}

func TestUncommittedSetNotDurable(t *testing.T) {
	path := tempPath(t)

	db := mustConnect(t, path)
	require.NoError(t, db.Set(Int(16), []byte("big")))
	require.NoError(t, db.Commit())
	require.NoError(t, db.Close())

	// set without commit
	db = mustConnect(t, path)
	require.NoError(t, db.Set(Int(16), []byte("really big")))
	v, err := db.Get(Int(16))
	require.NoError(t, err)
	assert.Equal(t, "really big", string(v), "a handle sees its own uncommitted set")
	require.NoError(t, db.Close())

	db = mustConnect(t, path)
	v, err = db.Get(Int(16))
	require.NoError(t, err)
	assert.Equal(t, "big", string(v), "the uncommitted set must not survive")
	require.NoError(t, db.Close())
}

func TestNeverCommittedKeyAbsentAfterReopen(t *testing.T) {
	path := tempPath(t)

	db := mustConnect(t, path)
	require.NoError(t, db.Set(String("k"), []byte("v")))
	require.NoError(t, db.Close())

	db = mustConnect(t, path)
	_, err := db.Get(String("k"))
	require.ErrorIs(t, err, ErrKeyNotFound)
}

func TestRoundTripManyKeys(t *testing.T) {
	path := tempPath(t)

	db := mustConnect(t, path)
	for i := int64(0); i < 100; i++ {
		// a shuffled-ish order so the tree is not a pure spine
		k := (i * 37) % 100
		require.NoError(t, db.Set(Int(k), []byte{byte(k)}))
	}
	require.NoError(t, db.Commit())
	require.NoError(t, db.Close())

	db = mustConnect(t, path)
	for i := int64(0); i < 100; i++ {
		v, err := db.Get(Int(i))
		require.NoError(t, err)
		require.Equal(t, []byte{byte(i)}, v)
	}

	entries, err := db.Scan()
	require.NoError(t, err)
	require.Len(t, entries, 100)
}

func TestStringKeys(t *testing.T) {
	db := mustConnect(t, tempPath(t))
	require.NoError(t, db.Set(String("banana"), []byte("yellow")))
	require.NoError(t, db.Set(String("apple"), []byte("red")))
	require.NoError(t, db.Set(String("cherry"), []byte("dark red")))
	require.NoError(t, db.Commit())

	v, err := db.GetMin()
	require.NoError(t, err)
	assert.Equal(t, "red", string(v))

	entries, err := db.Chop(String("banana"))
	require.NoError(t, err)
	require.Len(t, entries, 2)
}

func TestDeleteUnsupported(t *testing.T) {
	db := mustConnect(t, tempPath(t))
	require.NoError(t, db.Set(Int(1), []byte("one")))
	require.ErrorIs(t, db.Delete(Int(1)), ErrUnsupported)
}

func TestClosedHandle(t *testing.T) {
	db := mustConnect(t, tempPath(t))
	require.NoError(t, db.Set(Int(1), []byte("one")))
	require.NoError(t, db.Commit())
	require.NoError(t, db.Close())
	require.NoError(t, db.Close(), "Close is idempotent")

	_, err := db.Get(Int(1))
	require.ErrorIs(t, err, ErrClosed)
	require.ErrorIs(t, db.Set(Int(2), []byte("two")), ErrClosed)
	require.ErrorIs(t, db.Commit(), ErrClosed)
	require.ErrorIs(t, db.Delete(Int(1)), ErrClosed)
	_, err = db.GetMin()
	require.ErrorIs(t, err, ErrClosed)
	_, err = db.GetLeft(Int(1))
	require.ErrorIs(t, err, ErrClosed)
	_, err = db.GetRight(Int(1))
	require.ErrorIs(t, err, ErrClosed)
	_, err = db.Chop(Int(1))
	require.ErrorIs(t, err, ErrClosed)
	_, err = db.Scan()
	require.ErrorIs(t, err, ErrClosed)
}

func TestReaderSeesLatestCommit(t *testing.T) {
	path := tempPath(t)

	writer := mustConnect(t, path)
	reader := mustConnect(t, path)

	_, err := reader.Get(Int(1))
	require.ErrorIs(t, err, ErrKeyNotFound)

	require.NoError(t, writer.Set(Int(1), []byte("one")))

	// uncommitted writes are invisible to the other handle
	_, err = reader.Get(Int(1))
	require.ErrorIs(t, err, ErrKeyNotFound)

	// commit releases the write lock and publishes the root; the reader
	// picks it up on its next refresh without taking a lock itself
	require.NoError(t, writer.Commit())
	v, err := reader.Get(Int(1))
	require.NoError(t, err)
	assert.Equal(t, "one", string(v))
}

func TestCommitOnFreshHandleIsHarmless(t *testing.T) {
	path := tempPath(t)

	db := mustConnect(t, path)
	require.NoError(t, db.Set(Int(1), []byte("one")))
	require.NoError(t, db.Commit())
	require.NoError(t, db.Close())

	// commit with no pending sets republishes the same root
	db = mustConnect(t, path)
	require.NoError(t, db.Commit())
	v, err := db.Get(Int(1))
	require.NoError(t, err)
	assert.Equal(t, "one", string(v))
}
