package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Record is the credential stored per room id. Consumed by the gateway
// once per connection; the room itself never sees it.
type Record struct {
	Token     string    `json:"token"`
	CreatedAt time.Time `json:"createdAt"`
}

func NewRecord() Record {
	return Record{
		Token:     NewToken(),
		CreatedAt: time.Now().UTC(),
	}
}

// NewToken returns a 32-character connection token.
func NewToken() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")
}
