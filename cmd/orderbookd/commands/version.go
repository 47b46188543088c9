package commands

import (
	"fmt"

	jsoniter "github.com/json-iterator/go"
	"github.com/spf13/cobra"
	tmversion "github.com/tendermint/tendermint/version"

	"github.com/tendermint/orderbook/version"
)

var verbose bool

// VersionCmd ...
var VersionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show version info",
	Run: func(cmd *cobra.Command, args []string) {
		if !verbose {
			fmt.Println(version.Version)
			return
		}
		values, _ := jsoniter.ConfigCompatibleWithStandardLibrary.MarshalIndent(struct {
			OrderBook   string `json:"orderbook"`
			GitCommit   string `json:"git_commit,omitempty"`
			AppProtocol uint64 `json:"app_protocol"`
			ABCI        string `json:"abci"`
			Tendermint  string `json:"tendermint"`
		}{
			OrderBook:   version.Version,
			GitCommit:   version.GitCommit,
			AppProtocol: version.AppProtocol.Uint64(),
			ABCI:        tmversion.ABCIVersion,
			Tendermint:  tmversion.TMCoreSemVer,
		}, "", "  ")
		fmt.Println(string(values))
	},
}

func init() {
	VersionCmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "Show protocol and library versions")
}
