package app

import (
	"fmt"

	dbm "github.com/tendermint/tm-db"

	"github.com/tendermint/orderbook/store"
	"github.com/tendermint/orderbook/store/kv"
)

// State is the application state as of the last commit.
type State struct {
	Height  int64  `json:"height"`
	AppHash []byte `json:"app_hash"`
	// Time of the last committed block in milliseconds.
	Time int64 `json:"time"`
}

func loadState(db dbm.DB) (State, error) {
	var state State
	stateBytes, err := db.Get(store.AppStateKey())
	if err != nil {
		return state, err
	}
	if len(stateBytes) == 0 {
		return state, nil
	}
	if err := cdc.Unmarshal(stateBytes, &state); err != nil {
		panic(fmt.Sprintf("app: state has been corrupted: %v", err))
	}
	return state, nil
}

func saveState(w kv.Writer, state State) error {
	stateBytes, err := cdc.Marshal(state)
	if err != nil {
		return err
	}
	return w.Set(store.AppStateKey(), stateBytes)
}

// loadGenesis returns the genesis the state was built from. It reports
// false before InitChain.
func loadGenesis(db dbm.DB) (Genesis, bool, error) {
	var g Genesis
	bz, err := db.Get(store.GenesisKey())
	if err != nil || len(bz) == 0 {
		return g, false, err
	}
	if err := cdc.Unmarshal(bz, &g); err != nil {
		panic(fmt.Sprintf("app: stored genesis has been corrupted: %v", err))
	}
	return g, true, nil
}
