package storage

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMemDBMissingKey(t *testing.T) {
	db := NewMemDB()
	defer db.Close()

	_, err := db.Get([]byte("absent"))
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	ok, err := db.Has([]byte("absent"))
	if err != nil || ok {
		t.Fatalf("expected missing key, ok=%v err=%v", ok, err)
	}
}

func TestMemDBValuesAreCopied(t *testing.T) {
	db := NewMemDB()
	value := []byte("abc")
	if err := db.Put([]byte("k"), value); err != nil {
		t.Fatalf("put: %v", err)
	}
	value[0] = 'z'
	got, err := db.Get([]byte("k"))
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if string(got) != "abc" {
		t.Fatalf("stored value aliased caller slice: %q", got)
	}
}

func TestMemDBBatchWrite(t *testing.T) {
	db := NewMemDB()
	batch := NewBatch()
	batch.Put([]byte("a"), []byte("1"))
	batch.Put([]byte("b"), []byte("2"))
	batch.Put([]byte("a"), []byte("3"))
	require.Equal(t, 3, batch.Len())
	require.NoError(t, db.Write(batch))

	got, err := db.Get([]byte("a"))
	require.NoError(t, err)
	require.Equal(t, []byte("3"), got)
	require.Equal(t, 2, db.Len())
}

func TestLevelDBBatchPersists(t *testing.T) {
	dir := t.TempDir()

	db1, err := NewLevelDB(dir)
	require.NoError(t, err)

	batch := NewBatch()
	batch.Put([]byte("count"), []byte{0x01})
	batch.Put([]byte("record/0"), []byte("first"))
	require.NoError(t, db1.Write(batch))
	db1.Close()

	db2, err := NewLevelDB(dir)
	require.NoError(t, err)
	defer db2.Close()

	got, err := db2.Get([]byte("record/0"))
	require.NoError(t, err)
	require.Equal(t, []byte("first"), got)

	_, err = db2.Get([]byte("record/1"))
	require.ErrorIs(t, err, ErrNotFound)

	ok, err := db2.Has([]byte("count"))
	require.NoError(t, err)
	require.True(t, ok)
}
