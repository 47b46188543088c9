package commands

import (
	"bytes"
	"fmt"

	"github.com/creachadair/atomicfile"
	"github.com/spf13/cobra"
	tmos "github.com/tendermint/tendermint/libs/os"

	"github.com/tendermint/orderbook/app"
	cfg "github.com/tendermint/orderbook/config"
	"github.com/tendermint/orderbook/types"
)

// NewInitCmd returns the command writing config.toml and the app_state of
// the genesis document into the home directory. Existing files are kept.
func NewInitCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Initializes the order book home directory",
		RunE: func(cmd *cobra.Command, args []string) error {
			authorities, err := cmd.Flags().GetStringSlice("authority")
			if err != nil {
				return err
			}
			return initFiles(config, authorities)
		},
	}
	cmd.Flags().String("chain-id", config.ChainID, "chain the node serves")
	cmd.Flags().String("db-backend", config.DBBackend, "database backend: goleveldb | memdb | pebbledb")
	cmd.Flags().StringSlice("authority", nil, "accounts allowed to administer order books (default [admin])")
	return cmd
}

func initFiles(conf *cfg.Config, authorities []string) error {
	configFile := cfg.ConfigFile(conf.RootDir)
	if tmos.FileExists(configFile) {
		logger.Info("Found config file", "path", configFile)
	} else {
		if err := cfg.WriteConfigFile(conf.RootDir, conf); err != nil {
			return err
		}
		logger.Info("Generated config file", "path", configFile)
	}

	genFile := conf.GenesisFile()
	if tmos.FileExists(genFile) {
		logger.Info("Found genesis app state", "path", genFile)
		return nil
	}

	g := app.DefaultGenesis()
	g.Params = conf.Engine.Params
	g.ExpirationWeightLimit = conf.Engine.ExpirationWeightLimit
	if len(authorities) > 0 {
		g.Authorities = make([]types.AccountID, len(authorities))
		for i, a := range authorities {
			g.Authorities[i] = types.AccountID(a)
		}
	}
	if err := g.ValidateBasic(); err != nil {
		return fmt.Errorf("invalid genesis: %w", err)
	}
	bz, err := g.JSON()
	if err != nil {
		return err
	}
	if _, err := atomicfile.WriteAll(genFile, bytes.NewReader(bz), 0644); err != nil {
		return err
	}
	logger.Info("Generated genesis app state", "path", genFile)
	return nil
}
