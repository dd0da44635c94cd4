package server

import (
	"net"
	"sync"

	"github.com/juju/errors"
	"github.com/voicelink/voicelink/server/identifiers"
	"github.com/voicelink/voicelink/server/message"
	"github.com/voicelink/voicelink/server/wire"
)

// VoiceClient binds one voice-control connection to a peer identity. A peer
// may hold a voice connection without a chat connection and vice versa.
type VoiceClient struct {
	id      string
	name    identifiers.UserName
	conn    net.Conn
	writeMu sync.Mutex
}

func NewVoiceClient(conn net.Conn, name identifiers.UserName) *VoiceClient {
	return &VoiceClient{
		id:   NewShortID(),
		name: name,
		conn: conn,
	}
}

func (c *VoiceClient) ID() string {
	return c.id
}

func (c *VoiceClient) Name() identifiers.UserName {
	return c.name
}

func (c *VoiceClient) Write(env message.VoiceEnvelope) error {
	payload, err := env.Encode()
	if err != nil {
		return errors.Trace(err)
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	return errors.Annotatef(wire.WriteFrame(c.conn, payload), "voice write to: %s", c.name)
}

func (c *VoiceClient) Close() error {
	return errors.Trace(c.conn.Close())
}
