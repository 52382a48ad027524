package core

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/dkeye/Relay/internal/domain"
	"github.com/dkeye/Relay/internal/history"
)

const (
	eventBuffer  = 64
	storeTimeout = 3 * time.Second
)

// Room is the per-room relay actor. All admissions, frames and closes
// for one room funnel through a single event loop, so hostSession,
// clients and the history handle need no locking. Distinct rooms share
// nothing.
type Room struct {
	id     domain.RoomID
	ctx    context.Context
	events chan event
	store  history.Store
	log    zerolog.Logger

	// Owned by the run loop.
	host    *Session
	clients map[domain.ClientID]*Session
	order   []domain.ClientID

	// Counters readable from outside the loop.
	clientCount atomic.Int32
	hostOnline  atomic.Bool
}

type event interface{ isEvent() }

type admitEvent struct{ sess *Session }
type frameEvent struct {
	sess *Session
	data Frame
}
type closeEvent struct{ sess *Session }

func (admitEvent) isEvent() {}
func (frameEvent) isEvent() {}
func (closeEvent) isEvent() {}

func newRoom(ctx context.Context, id domain.RoomID, store history.Store) *Room {
	return &Room{
		id:      id,
		ctx:     ctx,
		events:  make(chan event, eventBuffer),
		store:   store,
		log:     log.With().Str("module", "core.room").Str("room", string(id)).Logger(),
		clients: make(map[domain.ClientID]*Session),
	}
}

// Admit hands a session with an accepted stream to the actor.
func (r *Room) Admit(s *Session) {
	r.dispatch(admitEvent{sess: s})
}

// HandleFrame feeds one inbound frame from the session's read pump.
func (r *Room) HandleFrame(s *Session, data []byte) {
	r.dispatch(frameEvent{sess: s, data: Frame(data)})
}

// HandleClose reports that the session's stream is gone.
func (r *Room) HandleClose(s *Session) {
	r.dispatch(closeEvent{sess: s})
}

func (r *Room) Info() RoomInfo {
	return RoomInfo{
		ID:          r.id,
		ClientCount: int(r.clientCount.Load()),
		HostOnline:  r.hostOnline.Load(),
	}
}

func (r *Room) dispatch(ev event) {
	select {
	case r.events <- ev:
	case <-r.ctx.Done():
	}
}

func (r *Room) run() {
	for {
		select {
		case <-r.ctx.Done():
			return
		case ev := <-r.events:
			r.handle(ev)
		}
	}
}

func (r *Room) handle(ev event) {
	switch ev := ev.(type) {
	case admitEvent:
		if ev.sess.Role == domain.RoleHost {
			r.admitHost(ev.sess)
		} else {
			r.admitClient(ev.sess)
		}
	case frameEvent:
		if ev.sess.Role == domain.RoleHost {
			// Frames queued by an evicted host are not routed.
			if ev.sess == r.host {
				r.onHostFrame(ev.data)
			}
		} else if r.clients[ev.sess.ClientID] == ev.sess {
			r.onClientFrame(ev.sess, ev.data)
		}
	case closeEvent:
		r.onClose(ev.sess)
	}
}

// admitHost installs the new host, evicting any previous one. The
// single-host invariant holds by eviction, not rejection.
func (r *Room) admitHost(s *Session) {
	if r.host != nil {
		r.host.Close(1000, "new host connected")
		r.log.Info().Msg("host evicted by reconnect")
	}
	r.host = s
	s.markActive()
	r.hostOnline.Store(true)
	r.log.Info().Msg("host connected")
	r.replay(s)
}

// replay runs inside the admission turn, after the handshake has
// already been written by the gateway: the host sees history, then one
// join per live client in insertion order, before any later event.
func (r *Room) replay(host *Session) {
	ctx, cancel := context.WithTimeout(r.ctx, storeTimeout)
	defer cancel()
	entries, err := r.store.Read(ctx, r.id)
	if err != nil {
		// Failed replay omits the history envelope.
		r.log.Warn().Err(err).Msg("history replay skipped")
	} else {
		r.deliver(host, encodeHistory(entries))
	}
	for _, id := range r.order {
		r.deliver(host, encodeClientJoin(id))
	}
}

func (r *Room) admitClient(s *Session) {
	if old, ok := r.clients[s.ClientID]; ok {
		// Last writer wins: the colliding id displaces the old session.
		old.Close(1000, "client id replaced")
		r.dropOrder(s.ClientID)
		r.log.Info().Str("client", string(s.ClientID)).Msg("client id replaced")
	}
	r.clients[s.ClientID] = s
	r.order = append(r.order, s.ClientID)
	s.markActive()
	r.clientCount.Store(int32(len(r.clients)))
	r.log.Info().Str("client", string(s.ClientID)).Msg("client connected")

	if r.host != nil {
		r.deliver(r.host, encodeClientJoin(s.ClientID))
	}
	r.append(domain.NewEntry(s.ClientID, domain.DirectionSystem, "online"))
}

// onHostFrame routes host traffic: unicast for a well-formed
// send_to_client, verbatim broadcast for anything else. A unicast to
// an absent client reaches nobody; the entry still names the target.
func (r *Room) onHostFrame(data Frame) {
	if target, payload, unicast := decodeHostCommand(data); unicast {
		if s, ok := r.clients[target]; ok {
			r.deliver(s, Frame(payload))
		}
		r.append(domain.NewEntry(target, domain.DirectionOutbound, payload))
		return
	}
	for _, id := range r.order {
		r.deliver(r.clients[id], data)
	}
	r.append(domain.NewEntry(domain.BroadcastTarget, domain.DirectionOutbound, string(data)))
}

// onClientFrame forwards to the host if one is live; without a host the
// message is dropped, no queue. The entry is appended either way.
func (r *Room) onClientFrame(s *Session, data Frame) {
	if r.host != nil {
		r.deliver(r.host, encodeClientMessage(s.ClientID, string(data)))
	}
	r.append(domain.NewEntry(s.ClientID, domain.DirectionInbound, string(data)))
}

func (r *Room) onClose(s *Session) {
	s.Close(1000, "")
	switch s.Role {
	case domain.RoleHost:
		if r.host == s {
			r.host = nil
			r.hostOnline.Store(false)
			r.log.Info().Msg("host disconnected")
		}
	case domain.RoleClient:
		if r.clients[s.ClientID] != s {
			// Already displaced by a colliding id.
			return
		}
		delete(r.clients, s.ClientID)
		r.dropOrder(s.ClientID)
		r.clientCount.Store(int32(len(r.clients)))
		r.log.Info().Str("client", string(s.ClientID)).Msg("client disconnected")
		if r.host != nil {
			r.deliver(r.host, encodeClientLeave(s.ClientID))
		}
		r.append(domain.NewEntry(s.ClientID, domain.DirectionSystem, "offline"))
	}
}

// deliver is fire and forget: a send racing a closing stream is
// dropped without retry and never surfaced to the sender.
func (r *Room) deliver(s *Session, f Frame) {
	if s == nil {
		return
	}
	if err := s.Conn().TrySend(f); err != nil {
		r.log.Debug().Err(err).Msg("delivery dropped")
	}
}

func (r *Room) append(e domain.Entry) {
	ctx, cancel := context.WithTimeout(r.ctx, storeTimeout)
	defer cancel()
	if err := r.store.Append(ctx, r.id, e); err != nil {
		// Discarded, consistent with the non-durability contract.
		r.log.Warn().Err(err).Msg("history append dropped")
	}
}

func (r *Room) dropOrder(id domain.ClientID) {
	for i, cid := range r.order {
		if cid == id {
			r.order = append(r.order[:i], r.order[i+1:]...)
			return
		}
	}
}
