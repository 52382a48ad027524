package core

import (
	"strings"
	"testing"

	"github.com/dkeye/Relay/internal/domain"
)

func TestDecodeHostCommand(t *testing.T) {
	tests := []struct {
		name       string
		raw        string
		wantUni    bool
		wantTarget domain.ClientID
		wantData   string
	}{
		{
			name:       "well-formed unicast",
			raw:        `{"type":"send_to_client","clientId":"C1","data":"pong"}`,
			wantUni:    true,
			wantTarget: "C1",
			wantData:   "pong",
		},
		{
			name:    "empty clientId broadcasts",
			raw:     `{"type":"send_to_client","clientId":"","data":"x"}`,
			wantUni: false,
		},
		{
			name:    "other type broadcasts",
			raw:     `{"type":"shout","clientId":"C1","data":"x"}`,
			wantUni: false,
		},
		{
			name:    "plain text broadcasts",
			raw:     "ping",
			wantUni: false,
		},
		{
			name:    "truncated json broadcasts",
			raw:     `{"type":"send_to_client","clientId":`,
			wantUni: false,
		},
		{
			name:    "non-string data broadcasts",
			raw:     `{"type":"send_to_client","clientId":"C1","data":123}`,
			wantUni: false,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			target, data, unicast := decodeHostCommand(Frame(tt.raw))
			if unicast != tt.wantUni {
				t.Fatalf("unicast = %v, want %v", unicast, tt.wantUni)
			}
			if !unicast {
				return
			}
			if target != tt.wantTarget || data != tt.wantData {
				t.Errorf("got (%q, %q), want (%q, %q)", target, data, tt.wantTarget, tt.wantData)
			}
		})
	}
}

func TestEncodeHistoryEmptyIsArray(t *testing.T) {
	got := string(encodeHistory(nil))
	if !strings.Contains(got, `"messages":[]`) {
		t.Errorf("empty history = %s, want messages to be an empty array", got)
	}
}

func TestEncodeEnvelopes(t *testing.T) {
	if got := string(encodeClientJoin("C1")); got != `{"type":"client_join","clientId":"C1"}` {
		t.Errorf("join = %s", got)
	}
	if got := string(encodeClientLeave("C1")); got != `{"type":"client_leave","clientId":"C1"}` {
		t.Errorf("leave = %s", got)
	}
	if got := string(encodeClientMessage("C1", "hi")); got != `{"type":"client_message","clientId":"C1","data":"hi"}` {
		t.Errorf("message = %s", got)
	}
}
