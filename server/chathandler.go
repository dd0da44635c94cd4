package server

import (
	"context"
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/juju/errors"
	"github.com/voicelink/voicelink/server/identifiers"
	"github.com/voicelink/voicelink/server/logger"
	"github.com/voicelink/voicelink/server/message"
	"github.com/voicelink/voicelink/server/multierr"
	"github.com/voicelink/voicelink/server/wire"
)

// ChatHandler runs one worker per chat connection: the registration
// handshake first, then the message loop. All routing decisions are made by
// the worker owning the sending connection.
type ChatHandler struct {
	log         logger.Logger
	registry    *ChatRegistry
	voicePort   int
	maxFrame    uint32
	readTimeout time.Duration
}

func NewChatHandler(
	log logger.Logger,
	registry *ChatRegistry,
	voicePort int,
	maxFrame uint32,
	readTimeout time.Duration,
) *ChatHandler {
	return &ChatHandler{
		log:         log.WithNamespaceAppended("chat"),
		registry:    registry,
		voicePort:   voicePort,
		maxFrame:    maxFrame,
		readTimeout: readTimeout,
	}
}

// Handle owns conn for its whole lifetime and always closes it. Failures are
// isolated to this connection.
func (h *ChatHandler) Handle(ctx context.Context, conn net.Conn) {
	start := time.Now()

	prometheusChatConnTotal.Inc()
	prometheusChatConnActive.Inc()

	defer func() {
		prometheusChatConnActive.Dec()
		prometheusChatConnDuration.Observe(time.Since(start).Seconds())
	}()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	// Closing the connection is the only way to unblock the reader, both on
	// server shutdown and on liveness eviction.
	go func() {
		<-ctx.Done()
		conn.Close()
	}()

	watchdog := NewWatchdog(ctx, h.readTimeout, func() {
		h.log.Info("Evicting silent chat connection", logger.Ctx{
			"remote_addr": conn.RemoteAddr(),
		})
		conn.Close()
	})

	client := NewChatClient(conn)

	log := h.log.WithCtx(logger.Ctx{
		"conn_id":     client.ID(),
		"remote_addr": conn.RemoteAddr(),
	})

	name, err := h.handshake(client)
	if err != nil {
		log.Info(fmt.Sprintf("Chat registration failed: %s", err), nil)

		return
	}

	log = log.WithCtx(logger.Ctx{"user": name})
	log.Info("Peer joined chat", nil)

	defer func() {
		h.registry.drop(client)
		h.broadcastNotice(fmt.Sprintf("%s left the chat", name), name)
		log.Info("Peer left chat", nil)
	}()

	h.broadcastNotice(fmt.Sprintf("%s joined the chat", name), name)

	welcome := message.NewSystem(fmt.Sprintf("welcome! users online: %d", h.registry.Size()))
	if err := client.Write(welcome); err != nil {
		log.Info(fmt.Sprintf("Welcome write failed: %s", err), nil)

		return
	}

	for {
		payload, err := wire.ReadFrame(conn, h.maxFrame)
		if err != nil {
			if multierr.Is(err, wire.ErrFrameTooLarge) || multierr.Is(err, wire.ErrEmptyFrame) {
				log.Warn(fmt.Sprintf("Skipping bad chat frame: %s", err), nil)

				continue
			}

			return
		}

		watchdog.Touch()

		req, err := message.DecodeChatRequest(payload)
		if err != nil {
			log.Warn(fmt.Sprintf("Malformed chat request: %s", err), nil)

			continue
		}

		if !h.route(log, client, req) {
			return
		}
	}
}

// handshake reads the registration message and claims the name. The
// response envelope is the only place the protocol reports errors
// explicitly.
func (h *ChatHandler) handshake(client *ChatClient) (name identifiers.UserName, err error) {
	payload, err := wire.ReadFrame(client.conn, h.maxFrame)
	if err != nil {
		return "", errors.Trace(err)
	}

	reg, err := message.DecodeRegistration(payload)
	if err != nil {
		return "", errors.Trace(err)
	}

	name = reg.Username

	if name == "" {
		_ = client.Write(message.NewConnectError("name must not be empty"))

		return "", errors.Trace(ErrEmptyName)
	}

	if err := h.registry.Register(name, client); err != nil {
		if multierr.Is(err, ErrNameTaken) {
			_ = client.Write(message.NewConnectError("name already taken"))
		}

		return "", errors.Trace(err)
	}

	client.SetName(name)

	if err := client.Write(message.NewConnectSuccess(name, h.voicePort)); err != nil {
		h.registry.drop(client)

		return "", errors.Trace(err)
	}

	return name, nil
}

// route dispatches one request. It returns false when the connection should
// shut down.
func (h *ChatHandler) route(log logger.Logger, client *ChatClient, req message.ChatRequest) bool {
	sender := client.Name()

	switch req.Type {
	case message.ChatTypeMessage:
		if strings.TrimSpace(req.Content) == "" {
			return true
		}

		prometheusChatMessagesTotal.Inc()

		h.broadcast(message.NewUserMessage(sender, req.Content), "")

	case message.ChatTypePrivate:
		if req.Target == "" || strings.TrimSpace(req.Content) == "" {
			return true
		}

		prometheusChatMessagesTotal.Inc()

		h.send(req.Target, message.NewPrivate(sender, req.Content))
		_ = client.Write(message.NewPrivateSent(req.Target, req.Content))

	case message.ChatTypeCommand:
		if req.Command == message.CommandUsers {
			_ = client.Write(message.NewUsers(h.registry.Names()))
		}

	case message.ChatTypeHeartbeat:
		_ = client.Write(message.NewHeartbeatAck())

	case message.ChatTypeFile:
		if req.FileName == "" || req.FileContent == "" {
			return true
		}

		h.broadcast(message.NewFileReceive(sender, req), "")

	case message.ChatTypeImage:
		if req.ImageName == "" || req.ImageContent == "" {
			return true
		}

		h.broadcast(message.NewImageReceive(sender, req), "")

	case message.ChatTypePrivateFile:
		if req.Target == "" || req.FileName == "" || req.FileContent == "" {
			return true
		}

		h.send(req.Target, message.NewFileReceive(sender, req))
		_ = client.Write(message.NewPrivateSent(req.Target, "sent file: "+req.FileName))

	case message.ChatTypePrivateImage:
		if req.Target == "" || req.ImageName == "" || req.ImageContent == "" {
			return true
		}

		h.send(req.Target, message.NewImageReceive(sender, req))
		_ = client.Write(message.NewPrivateSent(req.Target, "sent image: "+req.ImageName))

	case message.ChatTypeVoiceStatus:
		if req.Target == "" || req.Status == "" {
			return true
		}

		h.send(req.Target, message.NewVoiceStatus(sender, req.Target, req.Status))

	case message.ChatTypeDisconnect:
		return false

	default:
		log.Debug(fmt.Sprintf("Ignoring unknown chat request type: %s", req.Type), nil)
	}

	return true
}

func (h *ChatHandler) broadcast(env message.ChatEnvelope, exclude identifiers.UserName) {
	if err := h.registry.Broadcast(env, exclude); err != nil {
		h.log.Info(fmt.Sprintf("Broadcast dropped recipients: %s", err), nil)
	}
}

func (h *ChatHandler) broadcastNotice(text string, exclude identifiers.UserName) {
	h.broadcast(message.NewBroadcastNotice(text), exclude)
}

// send delivers to a single peer. Missing targets are a silent no-op.
func (h *ChatHandler) send(target identifiers.UserName, env message.ChatEnvelope) {
	if err := h.registry.Send(target, env); err != nil && !multierr.Is(err, ErrNotFound) {
		h.log.Info(fmt.Sprintf("Private send failed: %s", err), nil)
	}
}
