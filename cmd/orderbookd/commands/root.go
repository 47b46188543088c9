package commands

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	cfg "github.com/tendermint/orderbook/config"
	"github.com/tendermint/orderbook/libs/log"
)

var (
	config = cfg.DefaultConfig()
	logger = log.MustNewDefaultLogger(log.LogFormatPlain, log.LogLevelInfo)
)

// ParseConfig retrieves the default environment configuration,
// sets up the home directory and ensures that the root exists
func ParseConfig() (*cfg.Config, error) {
	conf := cfg.DefaultConfig()
	if err := viper.Unmarshal(conf, viper.DecodeHook(cfg.DecodeHook())); err != nil {
		return nil, err
	}
	conf.SetRoot(conf.RootDir)
	cfg.EnsureRoot(conf.RootDir)
	if err := conf.ValidateBasic(); err != nil {
		return nil, fmt.Errorf("error in config file: %w", err)
	}
	return conf, nil
}

// RootCommand constructs the root command-line entry point of the node.
func RootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "orderbookd",
		Short: "Limit order book engine served over ABCI",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) (err error) {
			if cmd.Name() == VersionCmd.Name() {
				return nil
			}

			config, err = ParseConfig()
			if err != nil {
				return err
			}

			logger, err = log.NewDefaultLogger(config.LogFormat, config.LogLevel)
			if err != nil {
				return err
			}
			logger = logger.With("module", "main")
			return nil
		},
	}
	cmd.PersistentFlags().String("log-level", config.LogLevel, "log level")
	cmd.PersistentFlags().String("log-format", config.LogFormat, "log format (plain|json)")
	return cmd
}
