package server_test

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/voicelink/voicelink/server"
	"github.com/voicelink/voicelink/server/identifiers"
	"github.com/voicelink/voicelink/server/message"
	"github.com/voicelink/voicelink/server/test"
	"github.com/voicelink/voicelink/server/wire"
	"go.uber.org/goleak"
)

type relayFixture struct {
	t         *testing.T
	server    *server.Server
	chatAddr  string
	voiceAddr string
	voicePort int
	cancel    context.CancelFunc
	done      chan error
}

func startRelay(t *testing.T) *relayFixture {
	t.Helper()

	chatListener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	voiceListener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	var config server.Config

	server.InitConfig(&config)

	config.BindHost = "127.0.0.1"
	config.ChatPort = chatListener.Addr().(*net.TCPAddr).Port
	config.VoicePort = voiceListener.Addr().(*net.TCPAddr).Port
	config.ReadTimeout = 10 * time.Second

	relay := server.New(test.NewLogger(), config)

	ctx, cancel := context.WithCancel(context.Background())

	f := &relayFixture{
		t:         t,
		server:    relay,
		chatAddr:  chatListener.Addr().String(),
		voiceAddr: voiceListener.Addr().String(),
		voicePort: config.VoicePort,
		cancel:    cancel,
		done:      make(chan error, 1),
	}

	go func() {
		f.done <- relay.Start(ctx, chatListener, voiceListener)
	}()

	return f
}

func (f *relayFixture) stop() {
	f.cancel()
	require.NoError(f.t, <-f.done)
}

func dialChat(t *testing.T, f *relayFixture, name string) net.Conn {
	t.Helper()

	conn, err := net.Dial("tcp", f.chatAddr)
	require.NoError(t, err)

	payload, err := message.Registration{Username: identifiers.UserName(name)}.Encode()
	require.NoError(t, err)
	require.NoError(t, wire.WriteFrame(conn, payload))

	return conn
}

func readChat(t *testing.T, conn net.Conn) message.ChatEnvelope {
	t.Helper()

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))

	payload, err := wire.ReadFrame(conn, wire.DefaultMaxFrameBytes)
	require.NoError(t, err)

	env, err := message.DecodeChatEnvelope(payload)
	require.NoError(t, err)

	return env
}

func writeChat(t *testing.T, conn net.Conn, req message.ChatRequest) {
	t.Helper()

	payload, err := req.Encode()
	require.NoError(t, err)
	require.NoError(t, wire.WriteFrame(conn, payload))
}

func dialVoice(t *testing.T, f *relayFixture, name string) net.Conn {
	t.Helper()

	conn, err := net.Dial("tcp", f.voiceAddr)
	require.NoError(t, err)
	require.NoError(t, wire.WriteFrame(conn, []byte(name)))

	require.Eventually(t, func() bool {
		_, ok := f.server.VoiceState().Lookup(identifiers.UserName(name))

		return ok
	}, 5*time.Second, 5*time.Millisecond, "voice registration: %s", name)

	return conn
}

func readVoice(t *testing.T, conn net.Conn) message.VoiceEnvelope {
	t.Helper()

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))

	payload, err := wire.ReadFrame(conn, wire.DefaultMaxFrameBytes)
	require.NoError(t, err)

	env, err := message.DecodeVoiceEnvelope(payload)
	require.NoError(t, err)

	return env
}

func writeVoice(t *testing.T, conn net.Conn, env message.VoiceEnvelope) {
	t.Helper()

	payload, err := env.Encode()
	require.NoError(t, err)
	require.NoError(t, wire.WriteFrame(conn, payload))
}

func TestRelay_chatBroadcast(t *testing.T) {
	defer goleak.VerifyNone(t)

	f := startRelay(t)
	defer f.stop()

	alice := dialChat(t, f, "alice")
	defer alice.Close()

	env := readChat(t, alice)
	require.Equal(t, message.ChatTypeConnect, env.Type)
	require.Equal(t, message.StatusSuccess, env.Status)
	assert.Equal(t, f.voicePort, env.VoicePort)

	env = readChat(t, alice)
	assert.Equal(t, message.ChatTypeSystem, env.Type)
	assert.Contains(t, env.Message, "users online: 1")

	bob := dialChat(t, f, "bob")
	defer bob.Close()

	env = readChat(t, bob)
	require.Equal(t, message.ChatTypeConnect, env.Type)
	require.Equal(t, message.StatusSuccess, env.Status)

	env = readChat(t, bob)
	assert.Equal(t, message.ChatTypeSystem, env.Type)

	env = readChat(t, alice)
	assert.Equal(t, message.ChatTypeBroadcast, env.Type)
	assert.Equal(t, message.SystemSender, env.Sender)
	assert.Equal(t, "bob joined the chat", env.Message)

	writeChat(t, bob, message.ChatRequest{Type: message.ChatTypeMessage, Content: "hello"})

	// User messages reach every client, the sender included.
	for _, conn := range []net.Conn{alice, bob} {
		env = readChat(t, conn)
		assert.Equal(t, message.ChatTypeMessage, env.Type)
		assert.Equal(t, "bob", env.Sender)
		assert.Equal(t, "hello", env.Message)
	}

	writeChat(t, bob, message.ChatRequest{Type: message.ChatTypeCommand, Command: message.CommandUsers})

	env = readChat(t, bob)
	assert.Equal(t, message.ChatTypeUsers, env.Type)
	assert.Equal(t, []string{"alice", "bob"}, env.Users)

	alice.Close()

	env = readChat(t, bob)
	assert.Equal(t, message.ChatTypeBroadcast, env.Type)
	assert.Equal(t, "alice left the chat", env.Message)
}

func TestRelay_chatPrivate(t *testing.T) {
	defer goleak.VerifyNone(t)

	f := startRelay(t)
	defer f.stop()

	alice := dialChat(t, f, "alice")
	defer alice.Close()

	readChat(t, alice)
	readChat(t, alice)

	bob := dialChat(t, f, "bob")
	defer bob.Close()

	readChat(t, bob)
	readChat(t, bob)
	readChat(t, alice)

	writeChat(t, alice, message.ChatRequest{
		Type:    message.ChatTypePrivate,
		Target:  "bob",
		Content: "psst",
	})

	env := readChat(t, bob)
	assert.Equal(t, message.ChatTypePrivate, env.Type)
	assert.Equal(t, "alice", env.Sender)
	assert.Equal(t, "psst", env.Message)

	env = readChat(t, alice)
	assert.Equal(t, message.ChatTypePrivateSent, env.Type)
	assert.Equal(t, "[private to bob] psst", env.Message)

	// A private message to an absent peer is dropped, but the sender still
	// gets its confirmation.
	writeChat(t, alice, message.ChatRequest{
		Type:    message.ChatTypePrivate,
		Target:  "nobody",
		Content: "anyone there",
	})

	env = readChat(t, alice)
	assert.Equal(t, message.ChatTypePrivateSent, env.Type)

	writeChat(t, alice, message.ChatRequest{Type: message.ChatTypeHeartbeat})

	env = readChat(t, alice)
	assert.Equal(t, message.ChatTypeHeartbeatAck, env.Type)
}

func TestRelay_chatRegistrationErrors(t *testing.T) {
	defer goleak.VerifyNone(t)

	f := startRelay(t)
	defer f.stop()

	nameless := dialChat(t, f, "")
	defer nameless.Close()

	env := readChat(t, nameless)
	assert.Equal(t, message.ChatTypeConnect, env.Type)
	assert.Equal(t, message.StatusError, env.Status)
	assert.Equal(t, "name must not be empty", env.Message)

	_, err := wire.ReadFrame(nameless, wire.DefaultMaxFrameBytes)
	assert.Error(t, err, "connection should be closed after a failed registration")

	alice := dialChat(t, f, "alice")
	defer alice.Close()

	readChat(t, alice)
	readChat(t, alice)

	impostor := dialChat(t, f, "alice")
	defer impostor.Close()

	env = readChat(t, impostor)
	assert.Equal(t, message.ChatTypeConnect, env.Type)
	assert.Equal(t, message.StatusError, env.Status)
	assert.Equal(t, "name already taken", env.Message)

	// The original registration is unaffected.
	writeChat(t, alice, message.ChatRequest{Type: message.ChatTypeHeartbeat})
	env = readChat(t, alice)
	assert.Equal(t, message.ChatTypeHeartbeatAck, env.Type)
}

func TestRelay_voiceCallFlow(t *testing.T) {
	defer goleak.VerifyNone(t)

	f := startRelay(t)
	defer f.stop()

	alice := dialVoice(t, f, "alice")
	defer alice.Close()

	bob := dialVoice(t, f, "bob")
	defer bob.Close()

	writeVoice(t, bob, message.NewStartPrivateCall("alice"))

	env := readVoice(t, alice)
	require.Equal(t, message.VoiceTypeIncomingCall, env.Type)
	require.NotNil(t, env.Payload.IncomingCall)
	assert.Equal(t, identifiers.UserName("bob"), env.Payload.IncomingCall.Caller)

	writeVoice(t, alice, message.NewAcceptCall("bob"))

	env = readVoice(t, bob)
	require.Equal(t, message.VoiceTypeCallAccepted, env.Type)
	require.NotNil(t, env.Payload.CallAccepted)
	assert.Equal(t, identifiers.UserName("alice"), env.Payload.CallAccepted.Callee)

	audio := []byte{0x01, 0x02, 0x03, 0x04}

	writeVoice(t, bob, message.NewAudioData("", audio))

	env = readVoice(t, alice)
	require.Equal(t, message.VoiceTypeAudioData, env.Type)
	require.NotNil(t, env.Payload.AudioData)
	assert.Equal(t, identifiers.UserName("bob"), env.Payload.AudioData.Sender)
	assert.Equal(t, audio, env.Payload.AudioData.Audio)

	writeVoice(t, alice, message.NewEndCall())

	for _, conn := range []net.Conn{alice, bob} {
		env = readVoice(t, conn)
		require.Equal(t, message.VoiceTypeCallEnded, env.Type)
		require.NotNil(t, env.Payload.CallEnded)
		assert.Equal(t, identifiers.UserName("alice"), env.Payload.CallEnded.User)
	}
}

func TestRelay_voiceRejectCall(t *testing.T) {
	defer goleak.VerifyNone(t)

	f := startRelay(t)
	defer f.stop()

	alice := dialVoice(t, f, "alice")
	defer alice.Close()

	bob := dialVoice(t, f, "bob")
	defer bob.Close()

	writeVoice(t, alice, message.NewStartPrivateCall("bob"))

	env := readVoice(t, bob)
	require.Equal(t, message.VoiceTypeIncomingCall, env.Type)

	writeVoice(t, bob, message.NewRejectCall("alice"))

	env = readVoice(t, alice)
	require.Equal(t, message.VoiceTypeCallRejected, env.Type)
	require.NotNil(t, env.Payload.CallRejected)
	assert.Equal(t, identifiers.UserName("bob"), env.Payload.CallRejected.Callee)
}

func TestRelay_voiceDisconnectEndsCall(t *testing.T) {
	defer goleak.VerifyNone(t)

	f := startRelay(t)
	defer f.stop()

	carol := dialVoice(t, f, "carol")
	defer carol.Close()

	dave := dialVoice(t, f, "dave")
	defer dave.Close()

	writeVoice(t, carol, message.NewStartPrivateCall("dave"))

	env := readVoice(t, dave)
	require.Equal(t, message.VoiceTypeIncomingCall, env.Type)

	writeVoice(t, dave, message.NewAcceptCall("carol"))

	env = readVoice(t, carol)
	require.Equal(t, message.VoiceTypeCallAccepted, env.Type)

	// The peer that vanishes mid-call never says goodbye; the other side
	// still learns the call is over.
	carol.Close()

	env = readVoice(t, dave)
	require.Equal(t, message.VoiceTypeCallEnded, env.Type)
	require.NotNil(t, env.Payload.CallEnded)
	assert.Equal(t, identifiers.UserName("carol"), env.Payload.CallEnded.User)
}

func TestRelay_voiceRoomAudio(t *testing.T) {
	defer goleak.VerifyNone(t)

	f := startRelay(t)
	defer f.stop()

	alice := dialVoice(t, f, "alice")
	defer alice.Close()

	bob := dialVoice(t, f, "bob")
	defer bob.Close()

	carol := dialVoice(t, f, "carol")
	defer carol.Close()

	for _, conn := range []net.Conn{alice, bob, carol} {
		writeVoice(t, conn, message.NewJoinRoom("general"))
	}

	require.Eventually(t, func() bool {
		return len(f.server.VoiceState().RoomMembers("general")) == 3
	}, 5*time.Second, 5*time.Millisecond)

	audio := []byte("pcm chunk")

	writeVoice(t, alice, message.NewAudioData("general", audio))

	for _, conn := range []net.Conn{bob, carol} {
		env := readVoice(t, conn)
		require.Equal(t, message.VoiceTypeAudioData, env.Type)
		require.NotNil(t, env.Payload.AudioData)
		assert.Equal(t, identifiers.UserName("alice"), env.Payload.AudioData.Sender)
		assert.Equal(t, identifiers.RoomID("general"), env.Payload.AudioData.RoomID)
		assert.Equal(t, audio, env.Payload.AudioData.Audio)
	}
}

func TestRelay_voiceEmptyNameRejected(t *testing.T) {
	defer goleak.VerifyNone(t)

	f := startRelay(t)
	defer f.stop()

	conn, err := net.Dial("tcp", f.voiceAddr)
	require.NoError(t, err)

	defer conn.Close()

	require.NoError(t, wire.WriteFrame(conn, []byte("   ")))
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))

	_, err = wire.ReadFrame(conn, wire.DefaultMaxFrameBytes)
	assert.Error(t, err, "connection should be closed after an empty name")
}

func TestRelay_shutdownClosesConnections(t *testing.T) {
	defer goleak.VerifyNone(t)

	f := startRelay(t)

	alice := dialChat(t, f, "alice")
	defer alice.Close()

	readChat(t, alice)
	readChat(t, alice)

	f.stop()

	require.NoError(t, alice.SetReadDeadline(time.Now().Add(5*time.Second)))

	for {
		if _, err := wire.ReadFrame(alice, wire.DefaultMaxFrameBytes); err != nil {
			break
		}
	}
}
