package message_test

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/voicelink/voicelink/server/message"
	"github.com/voicelink/voicelink/server/multierr"
)

func TestVoiceEnvelope_roundTrip(t *testing.T) {
	envelopes := []message.VoiceEnvelope{
		message.NewJoinRoom("general"),
		message.NewLeaveRoom("general"),
		message.NewStartPrivateCall("bob"),
		message.NewAcceptCall("alice"),
		message.NewRejectCall("alice"),
		message.NewEndCall(),
		message.NewIncomingCall("alice"),
		message.NewCallAccepted("bob"),
		message.NewCallRejected("bob"),
		message.NewCallEnded("alice"),
		message.NewAudioForward("alice", "general", []byte{0x01, 0x02, 0x03}),
	}

	for _, env := range envelopes {
		b, err := env.Encode()
		require.NoError(t, err, "encode %s", env.Type)

		decoded, err := message.DecodeVoiceEnvelope(b)
		require.NoError(t, err, "decode %s", env.Type)

		assert.Equal(t, env, decoded, "round trip %s", env.Type)
	}
}

func TestVoiceEnvelope_wireFormat(t *testing.T) {
	b, err := message.NewStartPrivateCall("bob").Encode()
	require.NoError(t, err)

	assert.JSONEq(t, `{"v":1,"type":"start_private_call","payload":{"callee":"bob"}}`, string(b))
}

func TestVoiceEnvelope_audioDataBase64(t *testing.T) {
	env := message.NewAudioData("", []byte("pcm"))

	b, err := env.Encode()
	require.NoError(t, err)

	var j struct {
		Payload struct {
			Audio string `json:"audio_data"`
		} `json:"payload"`
	}

	require.NoError(t, json.Unmarshal(b, &j))
	assert.Equal(t, "cGNt", j.Payload.Audio)
}

func TestVoiceEnvelope_unknownType(t *testing.T) {
	_, err := message.DecodeVoiceEnvelope([]byte(`{"v":1,"type":"bogus","payload":{}}`))
	require.Error(t, err)
	assert.True(t, multierr.Is(err, message.ErrUnknownVoiceType))

	_, err = message.VoiceEnvelope{Version: 1, Type: "bogus"}.Encode()
	require.Error(t, err)
}

func TestVoiceEnvelope_unsupportedVersion(t *testing.T) {
	_, err := message.DecodeVoiceEnvelope([]byte(`{"v":2,"type":"end_call","payload":{}}`))
	require.Error(t, err)
	assert.True(t, multierr.Is(err, message.ErrUnsupportedVersion))
}

func TestVoiceEnvelope_endCallIgnoresPayload(t *testing.T) {
	env, err := message.DecodeVoiceEnvelope([]byte(`{"v":1,"type":"end_call"}`))
	require.NoError(t, err)

	assert.Equal(t, message.VoiceTypeEndCall, env.Type)
	require.NotNil(t, env.Payload.EndCall)
}
