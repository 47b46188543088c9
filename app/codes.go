package app

import (
	"errors"

	"github.com/tendermint/orderbook/types"
)

// Codespace of every non-zero response code returned by the application.
const Codespace = "orderbook"

// Return codes. Codes below 100 describe the request itself, the others
// map engine errors one to one.
const (
	CodeTypeOK              uint32 = 0
	CodeTypeEncodingError   uint32 = 1
	CodeTypeInvalidMsg      uint32 = 2
	CodeTypeUnknownMsg      uint32 = 3
	CodeTypeUnknownQuery    uint32 = 4
	CodeTypeNotInitialized  uint32 = 5
	CodeTypeUnknownError    uint32 = 99
	CodeTypeOrderBookErrors uint32 = 100
)

var (
	ErrEncoding       = errors.New("tx encoding error")
	ErrInvalidMsg     = errors.New("invalid message")
	ErrUnknownMsg     = errors.New("unknown message type")
	ErrUnknownQuery   = errors.New("unknown query path")
	ErrNotInitialized = errors.New("chain is not initialized")
)

// errorCodes is append-only: codes are part of the wire protocol.
var errorCodes = []struct {
	err  error
	code uint32
}{
	{ErrEncoding, CodeTypeEncodingError},
	{ErrInvalidMsg, CodeTypeInvalidMsg},
	{ErrUnknownMsg, CodeTypeUnknownMsg},
	{ErrUnknownQuery, CodeTypeUnknownQuery},
	{ErrNotInitialized, CodeTypeNotInitialized},

	{types.ErrAmountVariantMismatch, 100},
	{types.ErrUnknownOrderBook, 101},
	{types.ErrOrderBookAlreadyExists, 102},
	{types.ErrInvalidOrderBookID, 103},
	{types.ErrForbiddenToCreateOrderBookWithSameAssets, 104},
	{types.ErrNotAllowedQuoteAsset, 105},
	{types.ErrAssetNotExists, 106},
	{types.ErrUserHasNoNFT, 107},
	{types.ErrInvalidTickSize, 108},
	{types.ErrInvalidStepLotSize, 109},
	{types.ErrInvalidMinLotSize, 110},
	{types.ErrInvalidMaxLotSize, 111},
	{types.ErrTickSizeAndStepLotSizeAreTooSmall, 112},
	{types.ErrInvalidStatus, 113},
	{types.ErrTradingIsForbidden, 114},
	{types.ErrPlacementOfLimitOrdersIsForbidden, 115},
	{types.ErrCancellationOfLimitOrdersIsForbidden, 116},
	{types.ErrUnauthorized, 117},
	{types.ErrUnknownLimitOrder, 118},
	{types.ErrLimitOrderAlreadyExists, 119},
	{types.ErrLimitOrderStorageOverflow, 120},
	{types.ErrUpdateLimitOrderError, 121},
	{types.ErrDeleteLimitOrderError, 122},
	{types.ErrInvalidLifespan, 123},
	{types.ErrInvalidOrderAmount, 124},
	{types.ErrInvalidLimitOrderPrice, 125},
	{types.ErrUserHasMaxCountOfOpenedOrders, 126},
	{types.ErrPriceReachedMaxCountOfLimitOrders, 127},
	{types.ErrOrderBookReachedMaxCountOfPricesForSide, 128},
	{types.ErrNotEnoughLiquidityInOrderBook, 129},
	{types.ErrPriceCalculationFailed, 130},
	{types.ErrAmountCalculationFailed, 131},
	{types.ErrInvalidAsset, 132},
	{types.ErrSlippageLimitExceeded, 133},
	{types.ErrBlockScheduleFull, 134},
	{types.ErrExpirationNotFound, 135},
	{types.ErrExpirationsInThePast, 136},
	{types.ErrInsufficientBalance, 137},
	{types.ErrInsufficientEscrow, 138},
	{types.ErrOrderBookIsLocked, 139},
}

// CodeOf returns the response code of err.
func CodeOf(err error) uint32 {
	if err == nil {
		return CodeTypeOK
	}
	for _, ec := range errorCodes {
		if errors.Is(err, ec.err) {
			return ec.code
		}
	}
	return CodeTypeUnknownError
}
