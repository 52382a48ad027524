// Package domain contains entity without logic, just meta-data
package domain

import (
	"errors"

	"github.com/google/uuid"
)

type (
	RoomID   string
	ClientID string
)

// BroadcastTarget marks history entries addressed to every client.
const BroadcastTarget ClientID = "all"

var ErrInvalidRole = errors.New("invalid role")

type Role string

const (
	RoleHost   Role = "host"
	RoleClient Role = "client"
)

func ParseRole(s string) (Role, error) {
	switch Role(s) {
	case RoleHost:
		return RoleHost, nil
	case RoleClient:
		return RoleClient, nil
	}
	return "", ErrInvalidRole
}

func NewRoomID() RoomID {
	return RoomID(uuid.NewString())
}

// NewClientID returns a short 8-character id for clients that did not
// supply one. The first uuid group is plain hex, no separators.
func NewClientID() ClientID {
	return ClientID(uuid.NewString()[:8])
}
