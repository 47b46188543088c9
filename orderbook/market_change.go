package orderbook

import (
	"fmt"
	"sort"

	"github.com/tendermint/orderbook/types"
)

// PartExecution is a resting order that is only partially consumed by a
// deal.
type PartExecution struct {
	// Order holds the amount left after the deal.
	Order types.LimitOrder
	// Executed is the base amount taken from the order.
	Executed types.OrderAmount
}

// MarketChange describes every effect of one operation on a book. It is
// computed without touching state and applied in one step.
type MarketChange struct {
	DealInput    *types.OrderAmount
	DealOutput   *types.OrderAmount
	MarketInput  *types.OrderAmount
	MarketOutput *types.OrderAmount

	ToPlace       map[types.OrderID]types.LimitOrder
	ToPartExecute map[types.OrderID]PartExecution
	ToFullExecute map[types.OrderID]types.LimitOrder
	ToCancel      map[types.OrderID]types.LimitOrder
	ToForceUpdate map[types.OrderID]types.LimitOrder

	Payment Payment

	// IgnoreUnscheduleError tolerates canceled orders that are no longer
	// in the expiration agenda.
	IgnoreUnscheduleError bool
}

func NewMarketChange(id types.OrderBookID) MarketChange {
	return MarketChange{
		ToPlace:       make(map[types.OrderID]types.LimitOrder),
		ToPartExecute: make(map[types.OrderID]PartExecution),
		ToFullExecute: make(map[types.OrderID]types.LimitOrder),
		ToCancel:      make(map[types.OrderID]types.LimitOrder),
		ToForceUpdate: make(map[types.OrderID]types.LimitOrder),
		Payment:       NewPayment(id),
	}
}

// Merge folds other into c. Order maps are overwritten by key, the totals
// are summed and the payments merged. On error c is unchanged.
func (c *MarketChange) Merge(other MarketChange) error {
	dealInput, err := types.AddOptional(c.DealInput, other.DealInput)
	if err != nil {
		return fmt.Errorf("deal input: %w", err)
	}
	dealOutput, err := types.AddOptional(c.DealOutput, other.DealOutput)
	if err != nil {
		return fmt.Errorf("deal output: %w", err)
	}
	marketInput, err := types.AddOptional(c.MarketInput, other.MarketInput)
	if err != nil {
		return fmt.Errorf("market input: %w", err)
	}
	marketOutput, err := types.AddOptional(c.MarketOutput, other.MarketOutput)
	if err != nil {
		return fmt.Errorf("market output: %w", err)
	}
	payment := c.Payment.Clone()
	if err := payment.Merge(other.Payment); err != nil {
		return err
	}

	c.DealInput, c.DealOutput = dealInput, dealOutput
	c.MarketInput, c.MarketOutput = marketInput, marketOutput
	c.Payment = payment
	c.IgnoreUnscheduleError = c.IgnoreUnscheduleError || other.IgnoreUnscheduleError
	for id, o := range other.ToPlace {
		c.ToPlace[id] = o
	}
	for id, pe := range other.ToPartExecute {
		c.ToPartExecute[id] = pe
	}
	for id, o := range other.ToFullExecute {
		c.ToFullExecute[id] = o
	}
	for id, o := range other.ToCancel {
		c.ToCancel[id] = o
	}
	for id, o := range other.ToForceUpdate {
		c.ToForceUpdate[id] = o
	}
	return nil
}

// CountOfExecutedOrders is the number of resting orders touched by deals.
func (c MarketChange) CountOfExecutedOrders() int {
	return len(c.ToPartExecute) + len(c.ToFullExecute)
}

func sortedIDs[V any](m map[types.OrderID]V) []types.OrderID {
	ids := make([]types.OrderID, 0, len(m))
	for id := range m {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}
