package main

import (
	"os"
	"path/filepath"

	"github.com/tendermint/tendermint/libs/cli"

	cmd "github.com/tendermint/orderbook/cmd/orderbookd/commands"
	cfg "github.com/tendermint/orderbook/config"
)

func main() {
	rootCmd := cmd.RootCommand()
	rootCmd.AddCommand(
		cmd.NewInitCmd(),
		cmd.NewStartCmd(),
		cmd.VersionCmd,
	)

	cmd := cli.PrepareBaseCmd(rootCmd, "OB", os.ExpandEnv(filepath.Join("$HOME", cfg.DefaultOrderBookDir)))
	if err := cmd.Execute(); err != nil {
		panic(err)
	}
}
