package message

import (
	"encoding/json"
	"time"

	"github.com/juju/errors"
	"github.com/voicelink/voicelink/server/identifiers"
)

// SystemSender is the sender identity used for server-originated chat
// envelopes.
const SystemSender = "system"

type ChatType string

// Inbound chat request types.
const (
	ChatTypeMessage      ChatType = "message"
	ChatTypePrivate      ChatType = "private"
	ChatTypeCommand      ChatType = "command"
	ChatTypeHeartbeat    ChatType = "heartbeat"
	ChatTypeFile         ChatType = "file"
	ChatTypeImage        ChatType = "image"
	ChatTypePrivateFile  ChatType = "private_file"
	ChatTypePrivateImage ChatType = "private_image"
	ChatTypeVoiceStatus  ChatType = "voice_status"
	ChatTypeDisconnect   ChatType = "disconnect"
)

// Outbound chat envelope types.
const (
	ChatTypeConnect      ChatType = "connect"
	ChatTypeSystem       ChatType = "system"
	ChatTypeBroadcast    ChatType = "broadcast"
	ChatTypePrivateSent  ChatType = "private_sent"
	ChatTypeUsers        ChatType = "users"
	ChatTypeFileReceive  ChatType = "file_receive"
	ChatTypeImageReceive ChatType = "image_receive"
	ChatTypeHeartbeatAck ChatType = "heartbeat_ack"
)

const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// CommandUsers is the only recognized value of ChatRequest.Command.
const CommandUsers = "users"

// Registration is the first message a chat client sends.
type Registration struct {
	Username identifiers.UserName `json:"username"`
}

// ChatRequest is any chat message received after registration. The populated
// fields depend on Type; file and image payloads are base64-encoded by the
// client.
type ChatRequest struct {
	Type         ChatType             `json:"type"`
	Content      string               `json:"content,omitempty"`
	Target       identifiers.UserName `json:"target,omitempty"`
	Command      string               `json:"command,omitempty"`
	FileName     string               `json:"file_name,omitempty"`
	FileSize     int64                `json:"file_size,omitempty"`
	FileContent  string               `json:"file_content,omitempty"`
	ImageName    string               `json:"image_name,omitempty"`
	ImageContent string               `json:"image_content,omitempty"`
	Status       string               `json:"status,omitempty"`
}

// ChatEnvelope is any chat message the server sends.
type ChatEnvelope struct {
	Type         ChatType             `json:"type"`
	Status       string               `json:"status,omitempty"`
	Sender       string               `json:"sender,omitempty"`
	Message      string               `json:"message,omitempty"`
	Timestamp    int64                `json:"timestamp,omitempty"`
	VoicePort    int                  `json:"voice_port,omitempty"`
	Users        []string             `json:"users,omitempty"`
	Target       identifiers.UserName `json:"target,omitempty"`
	Private      bool                 `json:"private,omitempty"`
	FileName     string               `json:"file_name,omitempty"`
	FileSize     int64                `json:"file_size,omitempty"`
	FileContent  string               `json:"file_content,omitempty"`
	ImageName    string               `json:"image_name,omitempty"`
	ImageContent string               `json:"image_content,omitempty"`
}

func now() int64 {
	return time.Now().Unix()
}

// NewConnectSuccess is the successful registration response. It carries the
// voice-control port so the client knows where to open its voice connection.
func NewConnectSuccess(name identifiers.UserName, voicePort int) ChatEnvelope {
	return ChatEnvelope{
		Type:      ChatTypeConnect,
		Status:    StatusSuccess,
		Sender:    SystemSender,
		Message:   "welcome " + name.String(),
		VoicePort: voicePort,
		Timestamp: now(),
	}
}

// NewConnectError is the registration failure response, the only explicit
// error envelope the protocol has.
func NewConnectError(reason string) ChatEnvelope {
	return ChatEnvelope{
		Type:      ChatTypeConnect,
		Status:    StatusError,
		Sender:    SystemSender,
		Message:   reason,
		Timestamp: now(),
	}
}

func NewSystem(text string) ChatEnvelope {
	return ChatEnvelope{
		Type:      ChatTypeSystem,
		Sender:    SystemSender,
		Message:   text,
		Timestamp: now(),
	}
}

// NewBroadcastNotice is a server-originated announcement, for example a join
// or leave notice.
func NewBroadcastNotice(text string) ChatEnvelope {
	return ChatEnvelope{
		Type:      ChatTypeBroadcast,
		Sender:    SystemSender,
		Message:   text,
		Timestamp: now(),
	}
}

func NewUserMessage(sender identifiers.UserName, text string) ChatEnvelope {
	return ChatEnvelope{
		Type:      ChatTypeMessage,
		Sender:    sender.String(),
		Message:   text,
		Timestamp: now(),
	}
}

func NewPrivate(sender identifiers.UserName, text string) ChatEnvelope {
	return ChatEnvelope{
		Type:      ChatTypePrivate,
		Sender:    sender.String(),
		Message:   text,
		Timestamp: now(),
	}
}

// NewPrivateSent confirms to the sender that a private payload was relayed.
func NewPrivateSent(target identifiers.UserName, text string) ChatEnvelope {
	return ChatEnvelope{
		Type:      ChatTypePrivateSent,
		Sender:    SystemSender,
		Message:   "[private to " + target.String() + "] " + text,
		Timestamp: now(),
	}
}

func NewUsers(names identifiers.UserNames) ChatEnvelope {
	return ChatEnvelope{
		Type:      ChatTypeUsers,
		Sender:    SystemSender,
		Users:     names.Strings(),
		Timestamp: now(),
	}
}

func NewFileReceive(sender identifiers.UserName, req ChatRequest) ChatEnvelope {
	return ChatEnvelope{
		Type:        ChatTypeFileReceive,
		Sender:      sender.String(),
		FileName:    req.FileName,
		FileSize:    req.FileSize,
		FileContent: req.FileContent,
		Private:     req.Type == ChatTypePrivateFile,
		Target:      req.Target,
		Timestamp:   now(),
	}
}

func NewImageReceive(sender identifiers.UserName, req ChatRequest) ChatEnvelope {
	return ChatEnvelope{
		Type:         ChatTypeImageReceive,
		Sender:       sender.String(),
		ImageName:    req.ImageName,
		ImageContent: req.ImageContent,
		Private:      req.Type == ChatTypePrivateImage,
		Target:       req.Target,
		Timestamp:    now(),
	}
}

func NewVoiceStatus(sender identifiers.UserName, target identifiers.UserName, status string) ChatEnvelope {
	return ChatEnvelope{
		Type:      ChatTypeVoiceStatus,
		Sender:    sender.String(),
		Target:    target,
		Message:   status,
		Timestamp: now(),
	}
}

func NewHeartbeatAck() ChatEnvelope {
	return ChatEnvelope{
		Type:      ChatTypeHeartbeatAck,
		Timestamp: now(),
	}
}

func (m ChatEnvelope) Encode() ([]byte, error) {
	b, err := json.Marshal(m)

	return b, errors.Annotatef(err, "encode chat envelope: %s", m.Type)
}

func DecodeChatEnvelope(b []byte) (ChatEnvelope, error) {
	var m ChatEnvelope

	err := json.Unmarshal(b, &m)

	return m, errors.Annotate(err, "decode chat envelope")
}

func DecodeRegistration(b []byte) (Registration, error) {
	var r Registration

	err := json.Unmarshal(b, &r)

	return r, errors.Annotate(err, "decode registration")
}

func (r Registration) Encode() ([]byte, error) {
	b, err := json.Marshal(r)

	return b, errors.Annotate(err, "encode registration")
}

func DecodeChatRequest(b []byte) (ChatRequest, error) {
	var m ChatRequest

	err := json.Unmarshal(b, &m)

	return m, errors.Annotate(err, "decode chat request")
}

func (m ChatRequest) Encode() ([]byte, error) {
	b, err := json.Marshal(m)

	return b, errors.Annotatef(err, "encode chat request: %s", m.Type)
}
