package server

import (
	"net"
	"sync"

	"github.com/juju/errors"
	"github.com/voicelink/voicelink/server/identifiers"
	"github.com/voicelink/voicelink/server/message"
	"github.com/voicelink/voicelink/server/wire"
)

// ChatClient binds one chat connection to a peer identity. Writes are
// serialized with a mutex so concurrent routers never interleave frames.
type ChatClient struct {
	id      string
	conn    net.Conn
	writeMu sync.Mutex

	nameMu sync.RWMutex
	name   identifiers.UserName
}

func NewChatClient(conn net.Conn) *ChatClient {
	return &ChatClient{
		id:   NewShortID(),
		conn: conn,
	}
}

// ID identifies the connection in logs before a display name is known.
func (c *ChatClient) ID() string {
	return c.id
}

func (c *ChatClient) Name() identifiers.UserName {
	c.nameMu.RLock()
	defer c.nameMu.RUnlock()

	return c.name
}

func (c *ChatClient) SetName(name identifiers.UserName) {
	c.nameMu.Lock()
	c.name = name
	c.nameMu.Unlock()
}

func (c *ChatClient) RemoteAddr() net.Addr {
	return c.conn.RemoteAddr()
}

func (c *ChatClient) Write(env message.ChatEnvelope) error {
	payload, err := env.Encode()
	if err != nil {
		return errors.Trace(err)
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	return errors.Annotatef(wire.WriteFrame(c.conn, payload), "chat write to: %s", c.Name())
}

func (c *ChatClient) Close() error {
	return errors.Trace(c.conn.Close())
}
