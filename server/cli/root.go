package cli

import (
	"github.com/voicelink/voicelink/server/command"
)

func NewRootCommand(props Props) *command.Command {
	return command.New(command.Params{
		Name: "voicelink",
		Desc: "VoiceLink is a chat and voice-call relay server.",
		ArgsPreProcessor: command.ArgsProcessorFunc(func(c *command.Command, args []string) []string {
			for _, arg := range args {
				if len(arg) > 0 && arg[0] != '-' {
					break
				}

				if arg == "-h" || arg == "--help" {
					return args
				}
			}

			// Running without a subcommand starts the server.
			if len(args) == 0 {
				return []string{"server"}
			}

			if first := args[0]; len(first) > 0 && first[0] == '-' {
				return append([]string{"server"}, args...)
			}

			return args
		}),
		SubCommands: []*command.Command{
			newServerCmd(props),
			newVersionCmd(props),
		},
	})
}
