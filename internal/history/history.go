// Package history keeps the per-room rolling message log.
//
// The contract is the filter/cap policy only: every append and every
// read first drops entries older than the TTL, then truncates to the
// most recent MaxEntries. No durability beyond the substrate.
package history

import (
	"context"
	"time"

	"github.com/dkeye/Relay/internal/domain"
)

const (
	DefaultTTL = 24 * time.Hour
	DefaultCap = 200
)

type Store interface {
	Append(ctx context.Context, room domain.RoomID, e domain.Entry) error
	Read(ctx context.Context, room domain.RoomID) ([]domain.Entry, error)
}

// Prune applies the visibility policy: TTL first, then cap by dropping
// from the head. Idempotent for a fixed now and input.
func Prune(entries []domain.Entry, now time.Time, ttl time.Duration, max int) []domain.Entry {
	cutoff := now.Add(-ttl)
	fresh := make([]domain.Entry, 0, len(entries))
	for _, e := range entries {
		if e.Timestamp.After(cutoff) {
			fresh = append(fresh, e)
		}
	}
	if len(fresh) > max {
		fresh = fresh[len(fresh)-max:]
	}
	return fresh
}
