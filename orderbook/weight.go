package orderbook

// Weights of the block services in abstract units.
const (
	ServiceBaseWeight             uint64 = 10_000
	ServiceBlockBaseWeight        uint64 = 5_000
	ServiceSingleExpirationWeight uint64 = 20_000
	AlignSingleOrderWeight        uint64 = 20_000
)

// WeightMeter tracks a budget consumed by the block services.
type WeightMeter struct {
	consumed uint64
	limit    uint64
}

func NewWeightMeter(limit uint64) *WeightMeter {
	return &WeightMeter{limit: limit}
}

func (w *WeightMeter) Consumed() uint64  { return w.consumed }
func (w *WeightMeter) Remaining() uint64 { return w.limit - w.consumed }

// CanAccrue reports whether weight fits into the remaining budget.
func (w *WeightMeter) CanAccrue(weight uint64) bool {
	return weight <= w.Remaining()
}

// CheckAccrue consumes weight if it fits and reports whether it did.
func (w *WeightMeter) CheckAccrue(weight uint64) bool {
	if !w.CanAccrue(weight) {
		return false
	}
	w.consumed += weight
	return true
}

// CheckAccrueN consumes weight for as many of n items as fit and returns
// their number.
func (w *WeightMeter) CheckAccrueN(weight uint64, n int) int {
	if weight == 0 {
		return n
	}
	fit := w.Remaining() / weight
	if uint64(n) < fit {
		fit = uint64(n)
	}
	w.consumed += fit * weight
	return int(fit)
}
