package bboltdb

import (
	"fmt"
	"path/filepath"
	"testing"

	"github.com/rezbera/revm/ethdb"
	"github.com/rezbera/revm/ethdb/dbtest"
	"github.com/stretchr/testify/require"
)

func TestBoltDB(t *testing.T) {
	dir := t.TempDir()
	n := 0
	t.Run("DatabaseSuite", func(t *testing.T) {
		dbtest.TestDatabaseSuite(t, func() ethdb.KeyValueStore {
			n++
			db, err := New(filepath.Join(dir, fmt.Sprint(n)), false, true)
			require.NoError(t, err)
			return db
		})
	})
}

func TestBoltDBReadOnly(t *testing.T) {
	dir := t.TempDir()
	db, err := New(dir, false, false)
	require.NoError(t, err)
	require.NoError(t, db.Put([]byte("k"), []byte("v")))
	require.NoError(t, db.Close())

	db, err = New(dir, true, false)
	require.NoError(t, err)
	defer db.Close()
	v, err := db.Get([]byte("k"))
	require.NoError(t, err)
	require.Equal(t, []byte("v"), v)
}
