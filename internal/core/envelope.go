package core

import (
	"encoding/json"

	"github.com/dkeye/Relay/internal/domain"
)

// Host-facing wire protocol. Host->room is plain text that may carry a
// send_to_client command; room->host is always a typed JSON envelope.
// Room<->client traffic is raw opaque text, never wrapped or parsed.

const (
	typeSendToClient  = "send_to_client"
	typeClientMessage = "client_message"
	typeClientJoin    = "client_join"
	typeClientLeave   = "client_leave"
	typeHistory       = "history"
)

type hostCommand struct {
	Type     string `json:"type"`
	ClientID string `json:"clientId"`
	Data     string `json:"data"`
}

// decodeHostCommand classifies a host frame. Unicast only for a
// well-formed send_to_client with a non-empty clientId; everything
// else, malformed JSON included, is a verbatim broadcast.
func decodeHostCommand(raw Frame) (target domain.ClientID, payload string, unicast bool) {
	var cmd hostCommand
	if err := json.Unmarshal(raw, &cmd); err != nil {
		return "", "", false
	}
	if cmd.Type != typeSendToClient || cmd.ClientID == "" {
		return "", "", false
	}
	return domain.ClientID(cmd.ClientID), cmd.Data, true
}

type clientEnvelope struct {
	Type     string          `json:"type"`
	ClientID domain.ClientID `json:"clientId"`
	Data     string          `json:"data,omitempty"`
}

func encodeClientMessage(id domain.ClientID, data string) Frame {
	b, _ := json.Marshal(clientEnvelope{Type: typeClientMessage, ClientID: id, Data: data})
	return b
}

func encodeClientJoin(id domain.ClientID) Frame {
	b, _ := json.Marshal(clientEnvelope{Type: typeClientJoin, ClientID: id})
	return b
}

func encodeClientLeave(id domain.ClientID) Frame {
	b, _ := json.Marshal(clientEnvelope{Type: typeClientLeave, ClientID: id})
	return b
}

type historyEnvelope struct {
	Type     string         `json:"type"`
	Messages []domain.Entry `json:"messages"`
}

func encodeHistory(entries []domain.Entry) Frame {
	if entries == nil {
		entries = []domain.Entry{}
	}
	b, _ := json.Marshal(historyEnvelope{Type: typeHistory, Messages: entries})
	return b
}
