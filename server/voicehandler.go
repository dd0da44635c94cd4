package server

import (
	"context"
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/voicelink/voicelink/server/identifiers"
	"github.com/voicelink/voicelink/server/logger"
	"github.com/voicelink/voicelink/server/message"
	"github.com/voicelink/voicelink/server/multierr"
	"github.com/voicelink/voicelink/server/wire"
)

// VoiceHandler runs one worker per voice-control connection. After the
// identity handshake it feeds signaling messages into the call state machine
// and relays audio frames. Invalid signaling is a silent no-op: no state
// change and no acknowledgment.
type VoiceHandler struct {
	log         logger.Logger
	state       *VoiceState
	maxFrame    uint32
	readTimeout time.Duration
}

func NewVoiceHandler(
	log logger.Logger,
	state *VoiceState,
	maxFrame uint32,
	readTimeout time.Duration,
) *VoiceHandler {
	return &VoiceHandler{
		log:         log.WithNamespaceAppended("voice"),
		state:       state,
		maxFrame:    maxFrame,
		readTimeout: readTimeout,
	}
}

func (h *VoiceHandler) Handle(ctx context.Context, conn net.Conn) {
	start := time.Now()

	prometheusVoiceConnTotal.Inc()
	prometheusVoiceConnActive.Inc()

	defer func() {
		prometheusVoiceConnActive.Dec()
		prometheusVoiceConnDuration.Observe(time.Since(start).Seconds())
	}()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	go func() {
		<-ctx.Done()
		conn.Close()
	}()

	watchdog := NewWatchdog(ctx, h.readTimeout, func() {
		h.log.Info("Evicting silent voice connection", logger.Ctx{
			"remote_addr": conn.RemoteAddr(),
		})
		conn.Close()
	})

	log := h.log.WithCtx(logger.Ctx{"remote_addr": conn.RemoteAddr()})

	// The handshake frame is the raw identity bytes, no type tag.
	payload, err := wire.ReadFrame(conn, h.maxFrame)
	if err != nil {
		log.Info(fmt.Sprintf("Voice handshake failed: %s", err), nil)

		return
	}

	name := identifiers.UserName(strings.TrimSpace(string(payload)))
	if name == "" {
		log.Info("Voice handshake with empty name", nil)

		return
	}

	client := NewVoiceClient(conn, name)

	if err := h.state.Register(name, client); err != nil {
		log.Info(fmt.Sprintf("Voice registration failed: %s", err), nil)

		return
	}

	log = log.WithCtx(logger.Ctx{"user": name})
	log.Info("Peer joined voice", nil)

	defer func() {
		for _, abandoned := range h.state.Unregister(name) {
			if err := abandoned.Write(message.NewCallEnded(name)); err != nil {
				log.Info(fmt.Sprintf("Call-ended notify failed: %s", err), nil)
			}
		}

		log.Info("Peer left voice", nil)
	}()

	for {
		payload, err := wire.ReadFrame(conn, h.maxFrame)
		if err != nil {
			if multierr.Is(err, wire.ErrFrameTooLarge) || multierr.Is(err, wire.ErrEmptyFrame) {
				log.Warn(fmt.Sprintf("Skipping bad voice frame: %s", err), nil)

				continue
			}

			return
		}

		watchdog.Touch()

		env, err := message.DecodeVoiceEnvelope(payload)
		if err != nil {
			// Malformed envelopes are fatal for this message only.
			log.Warn(fmt.Sprintf("Malformed voice envelope: %s", err), nil)

			continue
		}

		h.route(log, name, env)
	}
}

func (h *VoiceHandler) route(log logger.Logger, name identifiers.UserName, env message.VoiceEnvelope) {
	switch env.Type {
	case message.VoiceTypeJoinRoom:
		if env.Payload.JoinRoom == nil {
			return
		}

		roomID := env.Payload.JoinRoom.RoomID
		if roomID == "" {
			roomID = identifiers.DefaultRoom
		}

		h.state.JoinRoom(name, roomID)
		log.Debug(fmt.Sprintf("Joined room: %s", roomID), nil)

	case message.VoiceTypeLeaveRoom:
		if env.Payload.LeaveRoom == nil {
			return
		}

		roomID := env.Payload.LeaveRoom.RoomID
		if roomID == "" {
			roomID = identifiers.DefaultRoom
		}

		h.state.LeaveRoom(name, roomID)
		log.Debug(fmt.Sprintf("Left room: %s", roomID), nil)

	case message.VoiceTypeStartPrivateCall:
		if env.Payload.StartPrivateCall == nil {
			return
		}

		callee := env.Payload.StartPrivateCall.Callee

		calleeClient, ok := h.state.StartCall(name, callee)
		if !ok {
			log.Debug(fmt.Sprintf("Call attempt ignored: %s", callee), nil)

			return
		}

		prometheusCallsStartedTotal.Inc()
		log.Info(fmt.Sprintf("Calling: %s", callee), nil)

		if err := calleeClient.Write(message.NewIncomingCall(name)); err != nil {
			log.Info(fmt.Sprintf("Ring failed: %s", err), nil)
		}

	case message.VoiceTypeAcceptCall:
		if env.Payload.AcceptCall == nil {
			return
		}

		caller := env.Payload.AcceptCall.Caller

		callerClient, ok := h.state.AcceptCall(name, caller)
		if !ok {
			return
		}

		log.Info(fmt.Sprintf("Accepted call from: %s", caller), nil)

		if err := callerClient.Write(message.NewCallAccepted(name)); err != nil {
			log.Info(fmt.Sprintf("Accept notify failed: %s", err), nil)
		}

	case message.VoiceTypeRejectCall:
		if env.Payload.RejectCall == nil {
			return
		}

		caller := env.Payload.RejectCall.Caller

		callerClient, ok := h.state.RejectCall(name, caller)
		if !ok {
			return
		}

		log.Info(fmt.Sprintf("Rejected call from: %s", caller), nil)

		if err := callerClient.Write(message.NewCallRejected(name)); err != nil {
			log.Info(fmt.Sprintf("Reject notify failed: %s", err), nil)
		}

	case message.VoiceTypeEndCall:
		participants, ok := h.state.EndCall(name)
		if !ok {
			return
		}

		log.Info("Ended call", nil)

		for _, participant := range participants {
			if err := participant.Write(message.NewCallEnded(name)); err != nil {
				log.Info(fmt.Sprintf("End notify failed: %s", err), nil)
			}
		}

	case message.VoiceTypeAudioData:
		if env.Payload.AudioData == nil {
			return
		}

		h.relayAudio(log, name, env.Payload.AudioData)

	default:
		log.Debug(fmt.Sprintf("Ignoring voice envelope type: %s", env.Type), nil)
	}
}

// relayAudio fans one frame out to its recipient set. Frames without a valid
// route are dropped. Each forward is independent: a slow or broken target
// never fails the others.
func (h *VoiceHandler) relayAudio(log logger.Logger, sender identifiers.UserName, audio *message.AudioData) {
	targets := h.state.AudioTargets(sender, audio.RoomID)
	if len(targets) == 0 {
		prometheusAudioFramesDropped.Inc()

		return
	}

	forward := message.NewAudioForward(sender, audio.RoomID, audio.Audio)

	for _, target := range targets {
		if err := target.Write(forward); err != nil {
			log.Debug(fmt.Sprintf("Audio forward failed: %s", err), nil)

			continue
		}

		prometheusAudioFramesTotal.Inc()
		prometheusAudioBytesTotal.Add(float64(len(audio.Audio)))
	}
}
