package sqlite_test

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/carebalance/generic"
	"github.com/warp/carebalance/store"
	"github.com/warp/carebalance/store/sqlite"
	"github.com/warp/carebalance/store/storetest"
)

func newStore(t *testing.T) store.Store {
	t.Helper()
	s, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestSQLiteStore(t *testing.T) {
	storetest.Run(t, newStore)
}

func TestSQLiteStore_PersistsAcrossReopen(t *testing.T) {
	// GIVEN: A file database with one holiday
	path := filepath.Join(t.TempDir(), "balances.db")
	ctx := context.Background()

	s, err := sqlite.New(path)
	require.NoError(t, err)
	_, err = s.SaveHoliday(ctx, generic.Holiday{
		ID: "h-1", Date: generic.NewTimePoint(2027, time.February, 15), Name: "Fiesta local",
		Type: generic.HolidayLocal, Active: true,
	})
	require.NoError(t, err)
	require.NoError(t, s.Close())

	// WHEN: Reopening it
	again, err := sqlite.New(path)
	require.NoError(t, err)
	defer again.Close()

	// THEN: The holiday is still there and migrations ran twice without error
	holidays, err := again.ListHolidays(ctx, 2027, 2)
	require.NoError(t, err)
	require.Len(t, holidays, 1)
	assert.Equal(t, generic.HolidayLocal, holidays[0].Type)
}
