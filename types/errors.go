package types

import "errors"

var (
	ErrAmountVariantMismatch = errors.New("order amounts have different kinds")

	// order book
	ErrUnknownOrderBook                         = errors.New("unknown order book")
	ErrOrderBookAlreadyExists                   = errors.New("order book already exists")
	ErrInvalidOrderBookID                       = errors.New("invalid order book id")
	ErrForbiddenToCreateOrderBookWithSameAssets = errors.New("order book base and quote assets must differ")
	ErrNotAllowedQuoteAsset                     = errors.New("quote asset is not the dex base asset")
	ErrAssetNotExists                           = errors.New("asset does not exist")
	ErrUserHasNoNFT                             = errors.New("user does not hold the nft")
	ErrInvalidTickSize                          = errors.New("invalid tick size")
	ErrInvalidStepLotSize                       = errors.New("invalid step lot size")
	ErrInvalidMinLotSize                        = errors.New("invalid min lot size")
	ErrInvalidMaxLotSize                        = errors.New("invalid max lot size")
	ErrTickSizeAndStepLotSizeAreTooSmall        = errors.New("tick size and step lot size are too small")
	ErrInvalidStatus                            = errors.New("invalid order book status")
	ErrOrderBookIsLocked                        = errors.New("order book is locked for alignment")

	// status gates
	ErrTradingIsForbidden                   = errors.New("trading is forbidden")
	ErrPlacementOfLimitOrdersIsForbidden    = errors.New("placement of limit orders is forbidden")
	ErrCancellationOfLimitOrdersIsForbidden = errors.New("cancellation of limit orders is forbidden")
	ErrUnauthorized                         = errors.New("unauthorized")

	// limit orders
	ErrUnknownLimitOrder                       = errors.New("unknown limit order")
	ErrLimitOrderAlreadyExists                 = errors.New("limit order already exists")
	ErrLimitOrderStorageOverflow               = errors.New("limit order storage overflow")
	ErrUpdateLimitOrderError                   = errors.New("limit order amount cannot grow")
	ErrDeleteLimitOrderError                   = errors.New("failed to delete limit order")
	ErrInvalidLifespan                         = errors.New("invalid lifespan")
	ErrInvalidOrderAmount                      = errors.New("invalid order amount")
	ErrInvalidLimitOrderPrice                  = errors.New("invalid limit order price")
	ErrUserHasMaxCountOfOpenedOrders           = errors.New("user has max count of opened orders")
	ErrPriceReachedMaxCountOfLimitOrders       = errors.New("price reached max count of limit orders")
	ErrOrderBookReachedMaxCountOfPricesForSide = errors.New("order book reached max count of prices for side")

	// matching
	ErrNotEnoughLiquidityInOrderBook = errors.New("not enough liquidity in order book")
	ErrPriceCalculationFailed        = errors.New("price calculation failed")
	ErrAmountCalculationFailed       = errors.New("amount calculation failed")
	ErrInvalidAsset                  = errors.New("asset does not belong to the order book")
	ErrSlippageLimitExceeded         = errors.New("slippage limit exceeded")

	// scheduling
	ErrBlockScheduleFull    = errors.New("block expiration schedule is full")
	ErrExpirationNotFound   = errors.New("expiration not found")
	ErrExpirationsInThePast = errors.New("expiration block is in the past")

	// settlement
	ErrInsufficientBalance = errors.New("insufficient balance")
	ErrInsufficientEscrow  = errors.New("insufficient locked liquidity")
)
