package message

import (
	"encoding/json"

	"github.com/juju/errors"
	"github.com/voicelink/voicelink/server/identifiers"
)

// VoiceProtocolVersion is carried in every voice envelope so the encoding
// can evolve without breaking older clients outright.
const VoiceProtocolVersion = 1

var (
	ErrUnknownVoiceType   = errors.New("unknown voice envelope type")
	ErrUnsupportedVersion = errors.New("unsupported voice protocol version")
)

type VoiceType string

const (
	VoiceTypeJoinRoom         VoiceType = "join_room"
	VoiceTypeLeaveRoom        VoiceType = "leave_room"
	VoiceTypeStartPrivateCall VoiceType = "start_private_call"
	VoiceTypeAcceptCall       VoiceType = "accept_call"
	VoiceTypeRejectCall       VoiceType = "reject_call"
	VoiceTypeEndCall          VoiceType = "end_call"
	VoiceTypeAudioData        VoiceType = "audio_data"

	VoiceTypeIncomingCall VoiceType = "incoming_call"
	VoiceTypeCallAccepted VoiceType = "call_accepted"
	VoiceTypeCallRejected VoiceType = "call_rejected"
	VoiceTypeCallEnded    VoiceType = "call_ended"
)

// VoiceEnvelope is one message on the voice-control channel. It encodes as a
// tagged union: {"v":1,"type":"...","payload":{...}}.
type VoiceEnvelope struct {
	Version int
	Type    VoiceType
	Payload VoicePayload
}

// VoicePayload has exactly one field set, matching the envelope type.
type VoicePayload struct {
	JoinRoom         *Room
	LeaveRoom        *Room
	StartPrivateCall *StartPrivateCall
	AcceptCall       *CallPeer
	RejectCall       *CallPeer
	EndCall          *EndCall
	AudioData        *AudioData
	IncomingCall     *CallPeer
	CallAccepted     *CallAnswer
	CallRejected     *CallAnswer
	CallEnded        *CallEnded
}

type Room struct {
	RoomID identifiers.RoomID `json:"room_id"`
}

type StartPrivateCall struct {
	Callee identifiers.UserName `json:"callee"`
}

// CallPeer names the calling side of a pending call. Inbound it identifies
// whose call is being accepted or rejected; outbound it announces who is
// ringing.
type CallPeer struct {
	Caller identifiers.UserName `json:"caller"`
}

// CallAnswer names the callee that accepted or rejected a call.
type CallAnswer struct {
	Callee identifiers.UserName `json:"callee"`
}

type CallEnded struct {
	User identifiers.UserName `json:"user"`
}

type EndCall struct{}

// AudioData carries one chunk of raw PCM audio. Sender is filled in by the
// server on forwarded frames. A non-empty RoomID addresses a room, otherwise
// the frame follows the sender's active private call.
type AudioData struct {
	Sender identifiers.UserName `json:"sender,omitempty"`
	RoomID identifiers.RoomID   `json:"room_id,omitempty"`
	Audio  []byte               `json:"audio_data"`
}

func NewJoinRoom(roomID identifiers.RoomID) VoiceEnvelope {
	return VoiceEnvelope{
		Version: VoiceProtocolVersion,
		Type:    VoiceTypeJoinRoom,
		Payload: VoicePayload{JoinRoom: &Room{RoomID: roomID}},
	}
}

func NewLeaveRoom(roomID identifiers.RoomID) VoiceEnvelope {
	return VoiceEnvelope{
		Version: VoiceProtocolVersion,
		Type:    VoiceTypeLeaveRoom,
		Payload: VoicePayload{LeaveRoom: &Room{RoomID: roomID}},
	}
}

func NewStartPrivateCall(callee identifiers.UserName) VoiceEnvelope {
	return VoiceEnvelope{
		Version: VoiceProtocolVersion,
		Type:    VoiceTypeStartPrivateCall,
		Payload: VoicePayload{StartPrivateCall: &StartPrivateCall{Callee: callee}},
	}
}

func NewAcceptCall(caller identifiers.UserName) VoiceEnvelope {
	return VoiceEnvelope{
		Version: VoiceProtocolVersion,
		Type:    VoiceTypeAcceptCall,
		Payload: VoicePayload{AcceptCall: &CallPeer{Caller: caller}},
	}
}

func NewRejectCall(caller identifiers.UserName) VoiceEnvelope {
	return VoiceEnvelope{
		Version: VoiceProtocolVersion,
		Type:    VoiceTypeRejectCall,
		Payload: VoicePayload{RejectCall: &CallPeer{Caller: caller}},
	}
}

func NewEndCall() VoiceEnvelope {
	return VoiceEnvelope{
		Version: VoiceProtocolVersion,
		Type:    VoiceTypeEndCall,
		Payload: VoicePayload{EndCall: &EndCall{}},
	}
}

func NewAudioData(roomID identifiers.RoomID, audio []byte) VoiceEnvelope {
	return VoiceEnvelope{
		Version: VoiceProtocolVersion,
		Type:    VoiceTypeAudioData,
		Payload: VoicePayload{AudioData: &AudioData{RoomID: roomID, Audio: audio}},
	}
}

func NewIncomingCall(caller identifiers.UserName) VoiceEnvelope {
	return VoiceEnvelope{
		Version: VoiceProtocolVersion,
		Type:    VoiceTypeIncomingCall,
		Payload: VoicePayload{IncomingCall: &CallPeer{Caller: caller}},
	}
}

func NewCallAccepted(callee identifiers.UserName) VoiceEnvelope {
	return VoiceEnvelope{
		Version: VoiceProtocolVersion,
		Type:    VoiceTypeCallAccepted,
		Payload: VoicePayload{CallAccepted: &CallAnswer{Callee: callee}},
	}
}

func NewCallRejected(callee identifiers.UserName) VoiceEnvelope {
	return VoiceEnvelope{
		Version: VoiceProtocolVersion,
		Type:    VoiceTypeCallRejected,
		Payload: VoicePayload{CallRejected: &CallAnswer{Callee: callee}},
	}
}

func NewCallEnded(user identifiers.UserName) VoiceEnvelope {
	return VoiceEnvelope{
		Version: VoiceProtocolVersion,
		Type:    VoiceTypeCallEnded,
		Payload: VoicePayload{CallEnded: &CallEnded{User: user}},
	}
}

// NewAudioForward is the server-side copy of a relayed audio frame, stamped
// with the sending peer's name.
func NewAudioForward(sender identifiers.UserName, roomID identifiers.RoomID, audio []byte) VoiceEnvelope {
	return VoiceEnvelope{
		Version: VoiceProtocolVersion,
		Type:    VoiceTypeAudioData,
		Payload: VoicePayload{AudioData: &AudioData{
			Sender: sender,
			RoomID: roomID,
			Audio:  audio,
		}},
	}
}

type voiceJSON struct {
	Version int             `json:"v"`
	Type    VoiceType       `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

func (m VoiceEnvelope) MarshalJSON() ([]byte, error) {
	var (
		payload []byte
		err     error
	)

	switch m.Type {
	case VoiceTypeJoinRoom:
		payload, err = json.Marshal(m.Payload.JoinRoom)
		err = errors.Trace(err)
	case VoiceTypeLeaveRoom:
		payload, err = json.Marshal(m.Payload.LeaveRoom)
		err = errors.Trace(err)
	case VoiceTypeStartPrivateCall:
		payload, err = json.Marshal(m.Payload.StartPrivateCall)
		err = errors.Trace(err)
	case VoiceTypeAcceptCall:
		payload, err = json.Marshal(m.Payload.AcceptCall)
		err = errors.Trace(err)
	case VoiceTypeRejectCall:
		payload, err = json.Marshal(m.Payload.RejectCall)
		err = errors.Trace(err)
	case VoiceTypeEndCall:
		payload, err = json.Marshal(m.Payload.EndCall)
		err = errors.Trace(err)
	case VoiceTypeAudioData:
		payload, err = json.Marshal(m.Payload.AudioData)
		err = errors.Trace(err)
	case VoiceTypeIncomingCall:
		payload, err = json.Marshal(m.Payload.IncomingCall)
		err = errors.Trace(err)
	case VoiceTypeCallAccepted:
		payload, err = json.Marshal(m.Payload.CallAccepted)
		err = errors.Trace(err)
	case VoiceTypeCallRejected:
		payload, err = json.Marshal(m.Payload.CallRejected)
		err = errors.Trace(err)
	case VoiceTypeCallEnded:
		payload, err = json.Marshal(m.Payload.CallEnded)
		err = errors.Trace(err)
	default:
		err = errors.Annotatef(ErrUnknownVoiceType, "type: %s", m.Type)
	}

	if err != nil {
		return nil, errors.Trace(err)
	}

	b, err := json.Marshal(voiceJSON{
		Version: m.Version,
		Type:    m.Type,
		Payload: payload,
	})

	return b, errors.Annotatef(err, "type: %s", m.Type)
}

func (m *VoiceEnvelope) UnmarshalJSON(b []byte) error {
	var j voiceJSON

	if err := json.Unmarshal(b, &j); err != nil {
		return errors.Trace(err)
	}

	if j.Version != VoiceProtocolVersion {
		return errors.Annotatef(ErrUnsupportedVersion, "version: %d", j.Version)
	}

	m.Version = j.Version
	m.Type = j.Type

	var err error

	switch m.Type {
	case VoiceTypeJoinRoom:
		m.Payload.JoinRoom = &Room{}
		err = json.Unmarshal(j.Payload, m.Payload.JoinRoom)
		err = errors.Trace(err)
	case VoiceTypeLeaveRoom:
		m.Payload.LeaveRoom = &Room{}
		err = json.Unmarshal(j.Payload, m.Payload.LeaveRoom)
		err = errors.Trace(err)
	case VoiceTypeStartPrivateCall:
		m.Payload.StartPrivateCall = &StartPrivateCall{}
		err = json.Unmarshal(j.Payload, m.Payload.StartPrivateCall)
		err = errors.Trace(err)
	case VoiceTypeAcceptCall:
		m.Payload.AcceptCall = &CallPeer{}
		err = json.Unmarshal(j.Payload, m.Payload.AcceptCall)
		err = errors.Trace(err)
	case VoiceTypeRejectCall:
		m.Payload.RejectCall = &CallPeer{}
		err = json.Unmarshal(j.Payload, m.Payload.RejectCall)
		err = errors.Trace(err)
	case VoiceTypeEndCall:
		m.Payload.EndCall = &EndCall{}
	case VoiceTypeAudioData:
		m.Payload.AudioData = &AudioData{}
		err = json.Unmarshal(j.Payload, m.Payload.AudioData)
		err = errors.Trace(err)
	case VoiceTypeIncomingCall:
		m.Payload.IncomingCall = &CallPeer{}
		err = json.Unmarshal(j.Payload, m.Payload.IncomingCall)
		err = errors.Trace(err)
	case VoiceTypeCallAccepted:
		m.Payload.CallAccepted = &CallAnswer{}
		err = json.Unmarshal(j.Payload, m.Payload.CallAccepted)
		err = errors.Trace(err)
	case VoiceTypeCallRejected:
		m.Payload.CallRejected = &CallAnswer{}
		err = json.Unmarshal(j.Payload, m.Payload.CallRejected)
		err = errors.Trace(err)
	case VoiceTypeCallEnded:
		m.Payload.CallEnded = &CallEnded{}
		err = json.Unmarshal(j.Payload, m.Payload.CallEnded)
		err = errors.Trace(err)
	default:
		err = errors.Annotatef(ErrUnknownVoiceType, "type: %s", m.Type)
	}

	return errors.Annotatef(err, "payload: %s", j.Payload)
}

func (m VoiceEnvelope) Encode() ([]byte, error) {
	b, err := json.Marshal(m)

	return b, errors.Trace(err)
}

func DecodeVoiceEnvelope(b []byte) (VoiceEnvelope, error) {
	var m VoiceEnvelope

	err := json.Unmarshal(b, &m)

	return m, errors.Trace(err)
}
