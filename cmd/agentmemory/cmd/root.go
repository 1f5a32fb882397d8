package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/habiliai/agentmemory"
	"github.com/habiliai/agentmemory/config"
	"github.com/habiliai/agentmemory/internal/mylog"
	"github.com/spf13/cobra"
)

type rootFlags struct {
	ConfigPath string
	LogLevel   string
}

func newRootCmd() *cobra.Command {
	flags := &rootFlags{}
	cmd := &cobra.Command{
		Use:           "agentmemory",
		Short:         "Long-term memory engine for conversational agents",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringVarP(&flags.ConfigPath, "config", "c", "", "Path to a YAML config file")
	cmd.PersistentFlags().StringVar(&flags.LogLevel, "log-level", "", "Override the configured log level (debug, info, warn, error)")

	cmd.AddCommand(
		newServeCmd(flags),
		newMCPCmd(flags),
		newChatCmd(flags),
		newListCmd(flags),
		newSearchCmd(flags),
		newForgetCmd(flags),
		newHealthCmd(flags),
	)

	return cmd
}

func loadConfig(flags *rootFlags) (*config.Config, error) {
	conf, err := config.Load(flags.ConfigPath)
	if err != nil {
		return nil, err
	}
	if flags.LogLevel != "" {
		conf.Log.LogLevel = flags.LogLevel
	}
	return conf, nil
}

// openEngine loads the configuration and builds an engine. The caller closes it.
func openEngine(ctx context.Context, flags *rootFlags) (*agentmemory.Engine, *config.Config, error) {
	conf, err := loadConfig(flags)
	if err != nil {
		return nil, nil, err
	}

	logger := mylog.NewLogger(conf.Log.LogLevel, conf.Log.LogHandler)
	engine, err := agentmemory.NewEngine(ctx, conf, agentmemory.WithLogger(logger))
	if err != nil {
		return nil, nil, err
	}
	return engine, conf, nil
}

func closeEngine(engine *agentmemory.Engine) {
	if err := engine.Close(); err != nil {
		engine.Logger().Warn("failed to close engine", mylog.Err(err))
	}
}

func Execute() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "error: %+v\n", err)
		os.Exit(1)
	}
}
