package server

import (
	"sort"
	"sync"

	"github.com/juju/errors"
	"github.com/voicelink/voicelink/server/identifiers"
)

// VoiceState owns every piece of voice-side state: the voice registry, the
// room membership sets and the call table. Everything lives behind a single
// mutex so no operation ever needs two locks, even transitions spanning
// rooms and calls. Methods only mutate state and return the connection
// handles to notify; callers perform network writes after the lock is
// released.
//
// The call table holds directed caller→callee edges. A pending call is a
// single edge; accepting it adds the reverse edge. A peer keys at most one
// edge at a time.
type VoiceState struct {
	mu      sync.Mutex
	clients map[identifiers.UserName]*VoiceClient
	rooms   map[identifiers.RoomID]map[identifiers.UserName]struct{}
	calls   map[identifiers.UserName]identifiers.UserName
}

func NewVoiceState() *VoiceState {
	return &VoiceState{
		clients: map[identifiers.UserName]*VoiceClient{},
		rooms:   map[identifiers.RoomID]map[identifiers.UserName]struct{}{},
		calls:   map[identifiers.UserName]identifiers.UserName{},
	}
}

// Register binds name to its voice connection.
func (s *VoiceState) Register(name identifiers.UserName, client *VoiceClient) error {
	if name == "" {
		return errors.Trace(ErrEmptyName)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.clients[name]; ok {
		return errors.Annotatef(ErrNameTaken, "name: %s", name)
	}

	s.clients[name] = client

	return nil
}

func (s *VoiceState) Lookup(name identifiers.UserName) (*VoiceClient, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	client, ok := s.clients[name]

	return client, ok
}

// JoinRoom adds name to the room, creating it lazily. Joining twice or
// joining while not registered on the voice side is a no-op.
func (s *VoiceState) JoinRoom(name identifiers.UserName, roomID identifiers.RoomID) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.clients[name]; !ok {
		return
	}

	room, ok := s.rooms[roomID]
	if !ok {
		room = map[identifiers.UserName]struct{}{}
		s.rooms[roomID] = room
	}

	room[name] = struct{}{}
}

// LeaveRoom removes name from the room and deletes the room when it becomes
// empty. Leaving a room one is not in is a no-op.
func (s *VoiceState) LeaveRoom(name identifiers.UserName, roomID identifiers.RoomID) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.leaveRoom(name, roomID)
}

func (s *VoiceState) leaveRoom(name identifiers.UserName, roomID identifiers.RoomID) {
	room, ok := s.rooms[roomID]
	if !ok {
		return
	}

	delete(room, name)

	if len(room) == 0 {
		delete(s.rooms, roomID)
	}
}

// RoomMembers returns the room's member names, sorted. A missing room yields
// nil.
func (s *VoiceState) RoomMembers(roomID identifiers.RoomID) identifiers.UserNames {
	s.mu.Lock()

	var names identifiers.UserNames
	for name := range s.rooms[roomID] {
		names = append(names, name)
	}

	s.mu.Unlock()

	sort.Sort(names)

	return names
}

// busy reports whether name participates in any call relation, as the caller
// of a pending or active call or as the target of one.
func (s *VoiceState) busy(name identifiers.UserName) bool {
	if _, ok := s.calls[name]; ok {
		return true
	}

	for _, callee := range s.calls {
		if callee == name {
			return true
		}
	}

	return false
}

// StartCall records the pending edge caller→callee and returns the callee's
// connection to ring. It fails silently (nil, false) when the callee is not
// registered, when either party is already involved in a call, or on a
// self-call.
func (s *VoiceState) StartCall(caller, callee identifiers.UserName) (*VoiceClient, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if caller == callee {
		return nil, false
	}

	calleeClient, ok := s.clients[callee]
	if !ok {
		return nil, false
	}

	if s.busy(caller) || s.busy(callee) {
		return nil, false
	}

	s.calls[caller] = callee

	return calleeClient, true
}

// AcceptCall promotes the pending edge caller→callee to a mutual relation
// and returns the caller's connection to notify. Accepting a call that is
// not pending changes nothing.
func (s *VoiceState) AcceptCall(callee, caller identifiers.UserName) (*VoiceClient, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.calls[caller] != callee {
		return nil, false
	}

	callerClient, ok := s.clients[caller]
	if !ok {
		return nil, false
	}

	s.calls[callee] = caller

	prometheusCallsActive.Inc()

	return callerClient, true
}

// RejectCall removes the pending edge caller→callee and returns the caller's
// connection to notify. Rejecting a call that is not pending changes
// nothing.
func (s *VoiceState) RejectCall(callee, caller identifiers.UserName) (*VoiceClient, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.calls[caller] != callee {
		return nil, false
	}

	delete(s.calls, caller)

	callerClient, ok := s.clients[caller]

	return callerClient, ok
}

// EndCall removes the edge keyed by peer and, when present, the reverse
// edge. Both participants' connections are returned so each side receives
// the call_ended notice, the initiator included.
func (s *VoiceState) EndCall(peer identifiers.UserName) ([]*VoiceClient, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	other, ok := s.calls[peer]
	if !ok {
		return nil, false
	}

	delete(s.calls, peer)

	if s.calls[other] == peer {
		delete(s.calls, other)
		prometheusCallsActive.Dec()
	}

	var participants []*VoiceClient

	if client, ok := s.clients[other]; ok {
		participants = append(participants, client)
	}

	if client, ok := s.clients[peer]; ok {
		participants = append(participants, client)
	}

	return participants, true
}

// AudioTargets resolves the recipient set for one audio frame from sender.
// With a room id the frame goes to every other member, but only when the
// sender is a member itself. Without one it follows the sender's outgoing
// call edge. An empty result means the frame has no route and is dropped.
func (s *VoiceState) AudioTargets(sender identifiers.UserName, roomID identifiers.RoomID) []*VoiceClient {
	s.mu.Lock()
	defer s.mu.Unlock()

	var targets []*VoiceClient

	if roomID != "" {
		room, ok := s.rooms[roomID]
		if !ok {
			return nil
		}

		if _, ok := room[sender]; !ok {
			return nil
		}

		for name := range room {
			if name == sender {
				continue
			}

			if client, ok := s.clients[name]; ok {
				targets = append(targets, client)
			}
		}

		return targets
	}

	other, ok := s.calls[sender]
	if !ok {
		return nil
	}

	if client, ok := s.clients[other]; ok {
		targets = append(targets, client)
	}

	return targets
}

// Unregister tears down everything the disconnecting peer owned: its voice
// registration, its room memberships and any call edge it appears in, in
// either role. The returned connections belong to call peers left behind;
// each should be sent call_ended.
func (s *VoiceState) Unregister(name identifiers.UserName) []*VoiceClient {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.clients, name)

	for roomID := range s.rooms {
		s.leaveRoom(name, roomID)
	}

	var abandoned []*VoiceClient

	if other, ok := s.calls[name]; ok {
		delete(s.calls, name)

		if s.calls[other] == name {
			delete(s.calls, other)
			prometheusCallsActive.Dec()
		}

		if client, ok := s.clients[other]; ok {
			abandoned = append(abandoned, client)
		}
	}

	// The disconnecting peer may also be the callee of pending calls.
	for caller, callee := range s.calls {
		if callee == name {
			delete(s.calls, caller)

			if client, ok := s.clients[caller]; ok {
				abandoned = append(abandoned, client)
			}
		}
	}

	return abandoned
}

// Stats is a point-in-time summary for the ops endpoint.
type VoiceStats struct {
	Clients int `json:"clients"`
	Rooms   int `json:"rooms"`
	Calls   int `json:"calls"`
}

func (s *VoiceState) Stats() VoiceStats {
	s.mu.Lock()
	defer s.mu.Unlock()

	return VoiceStats{
		Clients: len(s.clients),
		Rooms:   len(s.rooms),
		Calls:   len(s.calls),
	}
}
