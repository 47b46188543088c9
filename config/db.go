package config

import (
	dbm "github.com/tendermint/tm-db"

	"github.com/tendermint/orderbook/store/pebbledb"
)

// DBContext specifies config information for loading a new DB.
type DBContext struct {
	ID     string
	Config *Config
}

// DBProvider takes a DBContext and returns an instantiated DB.
type DBProvider func(*DBContext) (dbm.DB, error)

// DefaultDBProvider returns a database using the DBBackend and DBDir
// specified in the Config.
func DefaultDBProvider(ctx *DBContext) (dbm.DB, error) {
	if ctx.Config.DBBackend == pebbledb.BackendType {
		db, err := pebbledb.New(ctx.ID, ctx.Config.DBDir())
		if err != nil {
			return nil, err
		}
		return db, nil
	}
	dbType := dbm.BackendType(ctx.Config.DBBackend)

	return dbm.NewDB(ctx.ID, dbType, ctx.Config.DBDir())
}
