package ledger

import (
	"fmt"
	"sort"

	"github.com/tendermint/orderbook/types"
)

// Asset describes a registered asset.
type Asset struct {
	ID        types.AssetID `json:"id" mapstructure:"id" toml:"id"`
	Divisible bool          `json:"divisible" mapstructure:"divisible" toml:"divisible"`
}

// DEX binds a dex id to the asset every book of the dex is priced in.
type DEX struct {
	ID        types.DEXID   `json:"id" mapstructure:"id" toml:"id"`
	BaseAsset types.AssetID `json:"base_asset" mapstructure:"base-asset" toml:"base-asset"`
}

// Registry answers asset and dex lookups. It is immutable after
// construction.
type Registry struct {
	assets map[types.AssetID]Asset
	dexes  map[types.DEXID]types.AssetID
}

// NewRegistry validates and indexes the registered assets and dexes.
func NewRegistry(assets []Asset, dexes []DEX) (*Registry, error) {
	r := &Registry{
		assets: make(map[types.AssetID]Asset, len(assets)),
		dexes:  make(map[types.DEXID]types.AssetID, len(dexes)),
	}
	for _, a := range assets {
		if a.ID == "" {
			return nil, fmt.Errorf("asset id can't be empty")
		}
		if _, ok := r.assets[a.ID]; ok {
			return nil, fmt.Errorf("asset %s declared twice", a.ID)
		}
		r.assets[a.ID] = a
	}
	for _, d := range dexes {
		if _, ok := r.dexes[d.ID]; ok {
			return nil, fmt.Errorf("dex %d declared twice", d.ID)
		}
		if _, ok := r.assets[d.BaseAsset]; !ok {
			return nil, fmt.Errorf("dex %d base asset %s is not registered", d.ID, d.BaseAsset)
		}
		r.dexes[d.ID] = d.BaseAsset
	}
	return r, nil
}

// AssetInfo implements orderbook.AssetRegistry.
func (r *Registry) AssetInfo(id types.AssetID) (divisible bool, ok bool) {
	a, ok := r.assets[id]
	return a.Divisible, ok
}

// BaseAsset implements orderbook.DEXRegistry.
func (r *Registry) BaseAsset(dex types.DEXID) (types.AssetID, bool) {
	asset, ok := r.dexes[dex]
	return asset, ok
}

// Assets returns the registered assets sorted by id.
func (r *Registry) Assets() []Asset {
	out := make([]Asset, 0, len(r.assets))
	for _, a := range r.assets {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// DEXes returns the registered dexes sorted by id.
func (r *Registry) DEXes() []DEX {
	out := make([]DEX, 0, len(r.dexes))
	for id, base := range r.dexes {
		out = append(out, DEX{ID: id, BaseAsset: base})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}
