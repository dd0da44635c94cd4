package main

import (
	"context"
	"os"

	"github.com/juju/errors"
	"github.com/spf13/pflag"
	"github.com/voicelink/voicelink/server/cli"
	"github.com/voicelink/voicelink/server/logger"
	"github.com/voicelink/voicelink/server/multierr"
)

const gitDescribe string = "v0.0.0"

func start(ctx context.Context, log logger.Logger, args []string) error {
	err := cli.Exec(ctx, cli.Props{
		Log:     log,
		Version: gitDescribe,
		Args:    args,
	})

	return errors.Trace(err)
}

func main() {
	config := logger.ConfigMap{
		"voicelink":    logger.LevelInfo,
		"voicelink:**": logger.LevelInfo,
	}

	// Environment overrides the defaults per pattern.
	for pattern, level := range logger.NewConfigMapFromString(os.Getenv("VOICELINK_LOG")) {
		config[pattern] = level
	}

	log := logger.New().
		WithConfig(config).
		WithNamespaceAppended("voicelink")

	err := start(context.Background(), log, os.Args[1:])

	if multierr.Is(err, pflag.ErrHelp) {
		os.Exit(1)
	} else if err != nil {
		log.Error("Command error", errors.Trace(err), nil)
		os.Exit(1)
	}
}
