// Package store groups the storage interfaces into the single method set
// that the HTTP layer and cmd/server depend on.
//
// Implementations:
//   - store/sqlite:   default, file or ":memory:"
//   - store/postgres: pgx pool
//   - store/memory:   maps, for tests
//   - store/cache:    holiday-caching decorator over any of the above
package store

import (
	"context"

	"github.com/warp/carebalance/generic"
	"github.com/warp/carebalance/schedule"
)

// Store is everything the service persists.
type Store interface {
	generic.PartyStore
	generic.HolidayStore
	generic.BalanceStore
	schedule.AssignmentStore

	// Reset deletes every record. Used by the demo scenario loader.
	Reset(ctx context.Context) error
}
