package cli

import (
	"context"
	"fmt"
	"net"
	"strconv"

	"github.com/juju/errors"
	"github.com/spf13/pflag"
	"github.com/voicelink/voicelink/server"
	"github.com/voicelink/voicelink/server/command"
	"github.com/voicelink/voicelink/server/logger"
)

type serverHandler struct {
	args struct {
		config  string
		opsAddr string
	}

	log   logger.Logger
	props Props
}

func (h *serverHandler) RegisterFlags(c *command.Command, flags *pflag.FlagSet) {
	flags.StringVarP(&h.args.config, "config", "c", "", "config file to use")
	flags.StringVar(&h.args.opsAddr, "ops-addr", "", "when set, serves /status and /metrics (example: 127.0.0.1:9090)")
}

// Handle accepts the optional positional arguments [host [chat-port
// [voice-port]]], which override the file and environment configuration.
func (h *serverHandler) Handle(ctx context.Context, args []string) error {
	config, err := h.configure(args)
	if err != nil {
		return errors.Trace(err)
	}

	relay := server.New(h.log, config)

	if h.args.opsAddr != "" {
		config.Ops.BindAddr = h.args.opsAddr
	}

	if config.Ops.BindAddr != "" {
		opsListener, err := net.Listen("tcp", config.Ops.BindAddr)
		if err != nil {
			return errors.Annotatef(err, "listen ops: %q", config.Ops.BindAddr)
		}

		h.log.Info("Listen ops", logger.Ctx{"local_addr": opsListener.Addr()})

		mux := server.NewOpsMux(h.log, relay, config.Ops.Prometheus)

		go func() {
			if err := server.NewOpsServer(mux).Start(ctx, opsListener); err != nil {
				h.log.Error("Ops server", errors.Trace(err), nil)
			}
		}()
	}

	chatListener, err := net.Listen("tcp", net.JoinHostPort(
		config.BindHost,
		strconv.Itoa(config.ChatPort),
	))
	if err != nil {
		return errors.Annotate(err, "listen chat")
	}

	defer chatListener.Close()

	voiceListener, err := net.Listen("tcp", net.JoinHostPort(
		config.BindHost,
		strconv.Itoa(config.VoicePort),
	))
	if err != nil {
		return errors.Annotate(err, "listen voice")
	}

	defer voiceListener.Close()

	err = relay.Start(ctx, chatListener, voiceListener)

	return errors.Trace(err)
}

func (h *serverHandler) configure(args []string) (server.Config, error) {
	configFiles := []string{}
	if h.args.config != "" {
		configFiles = append(configFiles, h.args.config)
	}

	config, err := server.ReadConfig(configFiles)
	if err != nil {
		return config, errors.Annotate(err, "read config")
	}

	if len(args) > 0 {
		config.BindHost = args[0]
	}

	if len(args) > 1 {
		config.ChatPort, err = strconv.Atoi(args[1])
		if err != nil {
			return config, errors.Annotatef(err, "chat port: %q", args[1])
		}
	}

	if len(args) > 2 {
		config.VoicePort, err = strconv.Atoi(args[2])
		if err != nil {
			return config, errors.Annotatef(err, "voice port: %q", args[2])
		}
	}

	h.log.Info(fmt.Sprintf("Using config: %+v", config), nil)

	return config, nil
}

func newServerCmd(props Props) *command.Command {
	h := &serverHandler{
		log:   props.Log,
		props: props,
	}

	return command.New(command.Params{
		Name:         "server",
		Desc:         "Starts the voicelink relay server (default)",
		FlagRegistry: h,
		Handler:      h,
	})
}
