// Package auth holds the credential store and the admission check the
// gateway runs once per connection. The room trusts the gateway and
// performs no further authorization.
package auth

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"

	"github.com/dkeye/Relay/internal/domain"
)

var (
	ErrMissingToken  = errors.New("missing token")
	ErrUnknownRoom   = errors.New("unknown room")
	ErrTokenMismatch = errors.New("token mismatch")
)

// Credential is a store listing row: a room id with its record.
type Credential struct {
	RoomID domain.RoomID
	domain.Record
}

type Store interface {
	Lookup(ctx context.Context, room domain.RoomID) (domain.Record, bool, error)
	Put(ctx context.Context, room domain.RoomID, rec domain.Record) error
	Delete(ctx context.Context, room domain.RoomID) error
	// List returns all credentials, newest first.
	List(ctx context.Context) ([]Credential, error)
}

type Gate struct {
	store Store
}

func NewGate(store Store) *Gate {
	return &Gate{store: store}
}

// Check validates a connection attempt against the stored credential.
// Error order matches the gateway's status mapping: missing token,
// unknown room, then mismatch.
func (g *Gate) Check(ctx context.Context, room domain.RoomID, token string) error {
	if token == "" {
		return ErrMissingToken
	}
	rec, ok, err := g.store.Lookup(ctx, room)
	if err != nil {
		return fmt.Errorf("credential lookup: %w", err)
	}
	if !ok {
		return ErrUnknownRoom
	}
	if subtle.ConstantTimeCompare([]byte(rec.Token), []byte(token)) != 1 {
		return ErrTokenMismatch
	}
	return nil
}
