package server

import (
	"context"
	"net"
	"sync"

	"github.com/juju/errors"
	"github.com/voicelink/voicelink/server/logger"
	"github.com/voicelink/voicelink/server/multierr"
)

// Server runs the two relay listeners. Each accepted connection gets its own
// worker goroutine which blocks on reads for the connection's lifetime.
type Server struct {
	log      logger.Logger
	config   Config
	registry *ChatRegistry
	voice    *VoiceState
	chat     *ChatHandler
	voiceH   *VoiceHandler
}

func New(log logger.Logger, config Config) *Server {
	log = log.WithNamespaceAppended("server")

	registry := NewChatRegistry()
	voice := NewVoiceState()

	return &Server{
		log:      log,
		config:   config,
		registry: registry,
		voice:    voice,
		chat:     NewChatHandler(log, registry, config.VoicePort, config.MaxFrameBytes, config.ReadTimeout),
		voiceH:   NewVoiceHandler(log, voice, config.MaxFrameBytes, config.ReadTimeout),
	}
}

// Registry exposes the chat registry for the ops endpoint.
func (s *Server) Registry() *ChatRegistry {
	return s.registry
}

// VoiceState exposes the voice state for the ops endpoint.
func (s *Server) VoiceState() *VoiceState {
	return s.voice
}

// Start serves both listeners until ctx is done or an accept loop fails for
// a reason other than the listeners being closed. It returns after every
// connection worker has finished.
func (s *Server) Start(ctx context.Context, chatListener, voiceListener net.Listener) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var handlers sync.WaitGroup

	acceptErrCh := make(chan error, 2)

	var accepts sync.WaitGroup

	accepts.Add(2)

	go func() {
		defer accepts.Done()
		acceptErrCh <- s.acceptLoop(ctx, chatListener, &handlers, s.chat.Handle)
	}()

	go func() {
		defer accepts.Done()
		acceptErrCh <- s.acceptLoop(ctx, voiceListener, &handlers, s.voiceH.Handle)
	}()

	var err error

	select {
	case <-ctx.Done():
	case err = <-acceptErrCh:
	}

	chatListener.Close()
	voiceListener.Close()
	cancel()

	accepts.Wait()
	handlers.Wait()

	if err != nil && !multierr.Is(err, net.ErrClosed) {
		return errors.Trace(err)
	}

	return nil
}

func (s *Server) acceptLoop(
	ctx context.Context,
	l net.Listener,
	handlers *sync.WaitGroup,
	handle func(ctx context.Context, conn net.Conn),
) error {
	s.log.Info("Listening", logger.Ctx{"local_addr": l.Addr()})

	for {
		conn, err := l.Accept()
		if err != nil {
			return errors.Annotate(err, "accept")
		}

		s.log.Debug("Accepted connection", logger.Ctx{"remote_addr": conn.RemoteAddr()})

		handlers.Add(1)

		go func() {
			defer handlers.Done()
			handle(ctx, conn)
		}()
	}
}
