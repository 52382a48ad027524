package domain

import "time"

type Direction string

const (
	DirectionInbound  Direction = "in"
	DirectionOutbound Direction = "out"
	DirectionSystem   Direction = "system"
)

// Entry is one routed message as the host console sees it.
// Immutable once appended; pruning is the only removal path.
type Entry struct {
	Timestamp time.Time `json:"ts"`
	ClientID  ClientID  `json:"clientId"`
	Direction Direction `json:"direction"`
	Content   string    `json:"content"`
}

func NewEntry(id ClientID, dir Direction, content string) Entry {
	return Entry{
		Timestamp: time.Now().UTC(),
		ClientID:  id,
		Direction: dir,
		Content:   content,
	}
}
